package imports

// Queries matches module-level import and re-export statements.
//
// The statement node is captured whole; the program model walks the
// import_clause / export_clause itself because default, named, aliased and
// namespace bindings all need to be told apart per specifier.
//
// The same node and field names exist in the TypeScript, TSX and JavaScript
// grammars, so one query string serves all three.
//
// Captures:
//   - @import.statement / @import.source - import ... from 'source'
//   - @export.statement / @export.source - export ... from 'source'
const Queries = `
; import Button from './Button'
; import { Button as B } from './Button'
; import * as DS from './ds'
(import_statement
  source: (string (string_fragment) @import.source)
) @import.statement

; export { Button } from './Button'
; export * from './components'
(export_statement
  source: (string (string_fragment) @export.source)
) @export.statement
`
