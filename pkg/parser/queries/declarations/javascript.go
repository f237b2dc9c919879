package declarations

// JSQueries matches named declarations in JavaScript and JSX. Classes use
// a plain identifier for their name and there are no type declarations.
const JSQueries = `
(function_declaration
  name: (identifier) @declaration.name
) @declaration.node

(generator_function_declaration
  name: (identifier) @declaration.name
) @declaration.node

(class_declaration
  name: (identifier) @declaration.name
) @declaration.node

(variable_declarator
  name: (identifier) @declaration.name
) @declaration.node
`
