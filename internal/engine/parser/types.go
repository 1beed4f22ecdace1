// # internal/engine/parser/types.go
package parser

import "modgraph/internal/engine/graph"

// Grammar names a tree-sitter grammar served by the parser.
type Grammar string

const (
	GrammarJavaScript Grammar = "javascript"
	GrammarTypeScript Grammar = "typescript"
	GrammarTSX        Grammar = "tsx"
	GrammarHTML       Grammar = "html"
	GrammarJSON       Grammar = "json"
)

// ParseResult is the module structure of one source file.
type ParseResult struct {
	Imports        []graph.CollectedImport
	Exports        []graph.CollectedExport
	HasSideEffects bool
	Format         graph.ModuleFormat
	Symbols        graph.SymbolTable
}
