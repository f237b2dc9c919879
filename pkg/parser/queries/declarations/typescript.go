// Package declarations holds the queries that index named declarations:
// components, prop interfaces, and the variables figma.connect arguments
// and object spreads refer to.
package declarations

// TSQueries matches named declarations in TypeScript and TSX.
//
// Captures:
//   - @declaration.name - the declared identifier
//   - @declaration.node - the declaration itself
const TSQueries = `
(function_declaration
  name: (identifier) @declaration.name
) @declaration.node

(generator_function_declaration
  name: (identifier) @declaration.name
) @declaration.node

(class_declaration
  name: (type_identifier) @declaration.name
) @declaration.node

(variable_declarator
  name: (identifier) @declaration.name
) @declaration.node

(interface_declaration
  name: (type_identifier) @declaration.name
) @declaration.node

(type_alias_declaration
  name: (type_identifier) @declaration.name
) @declaration.node
`
