// # internal/engine/parser/parser.go
package parser

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"modgraph/internal/engine/graph"
	"modgraph/internal/shared/observability"
)

// ErrParse marks a file whose syntax tree could not be built or contains
// syntax errors.
var ErrParse = stderrors.New("parse error")

var extensionGrammars = map[string]Grammar{
	".js":     GrammarJavaScript,
	".jsx":    GrammarJavaScript,
	".mjs":    GrammarJavaScript,
	".cjs":    GrammarJavaScript,
	".ts":     GrammarTypeScript,
	".mts":    GrammarTypeScript,
	".cts":    GrammarTypeScript,
	".tsx":    GrammarTSX,
	".json":   GrammarJSON,
	".vue":    GrammarTypeScript,
	".svelte": GrammarTypeScript,
	".astro":  GrammarTypeScript,
}

var frameworkExtensions = map[string]bool{
	".vue":    true,
	".svelte": true,
	".astro":  true,
}

// GrammarFor picks the grammar for a path by extension. Framework components
// map to the TypeScript grammar used for their extracted scripts.
func GrammarFor(path string) (Grammar, bool) {
	g, ok := extensionGrammars[strings.ToLower(filepath.Ext(path))]
	return g, ok
}

// IsFrameworkFile reports whether path is a component whose scripts must be
// extracted before parsing.
func IsFrameworkFile(path string) bool {
	return frameworkExtensions[strings.ToLower(filepath.Ext(path))]
}

// Parser extracts module structure and symbols from JavaScript and
// TypeScript sources. Safe for concurrent use.
type Parser struct {
	pools  map[Grammar]*ParserPool
	logger *slog.Logger
}

func New() *Parser {
	return &Parser{
		pools: map[Grammar]*ParserPool{
			GrammarJavaScript: NewParserPool(GrammarJavaScript, sitter.NewLanguage(tree_sitter_javascript.Language())),
			GrammarTypeScript: NewParserPool(GrammarTypeScript, sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())),
			GrammarTSX:        NewParserPool(GrammarTSX, sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())),
		},
		logger: slog.Default().With("component", "parser"),
	}
}

func (p *Parser) IsSupportedPath(path string) bool {
	_, ok := GrammarFor(path)
	return ok
}

// Parse extracts imports, exports, side effects, module format and the
// symbol table of source. Errors wrap ErrParse.
func (p *Parser) Parse(path string, source []byte) (res *ParseResult, err error) {
	grammar, ok := GrammarFor(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unsupported file type", ErrParse, path)
	}
	defer observability.ObserveParse(string(grammar), time.Now())

	if grammar == GrammarJSON {
		return jsonModule(), nil
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%w: %s: %v", ErrParse, path, r)
		}
	}()

	pool := p.pools[grammar]
	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("%w: %s: no syntax tree", ErrParse, path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("%w: %s: no syntax tree", ErrParse, path)
	}
	if root.HasError() {
		if bad := firstError(root); bad != nil {
			pos := bad.StartPosition()
			return nil, fmt.Errorf("%w: %s:%d:%d: syntax error", ErrParse, path, pos.Row+1, pos.Column+1)
		}
		return nil, fmt.Errorf("%w: %s: syntax error", ErrParse, path)
	}

	res = extractModule(root, source)
	res.Symbols = analyzeSymbols(root, source)
	p.logger.Debug("parsed module", "path", path, "imports", len(res.Imports), "exports", len(res.Exports))
	return res, nil
}

// AnalyzeSymbols parses source and returns only its symbol table.
func (p *Parser) AnalyzeSymbols(path string, source []byte) (graph.SymbolTable, error) {
	res, err := p.Parse(path, source)
	if err != nil {
		return graph.SymbolTable{}, err
	}
	return res.Symbols, nil
}

// jsonModule describes a JSON file: a single default export, no effects.
func jsonModule() *ParseResult {
	return &ParseResult{
		Exports: []graph.CollectedExport{{Kind: graph.CollectedDefault, Exported: "default"}},
		Format:  graph.FormatESM,
	}
}

func firstError(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if !child.HasError() && !child.IsMissing() {
			continue
		}
		if bad := firstError(child); bad != nil {
			return bad
		}
	}
	return nil
}
