package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"modgraph/internal/engine/graph"
)

// NodeHandler processes a node for an extractor.
// Returns true if the handler has processed children and the walker should stop.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node) bool

// ExtractionContext carries the source and the result being filled.
type ExtractionContext struct {
	Source []byte
	Result *ParseResult
}

// ExtractorEngine walks the syntax tree and dispatches node handlers by kind.
type ExtractorEngine struct {
	handlers map[string]NodeHandler
}

func NewExtractorEngine(handlers map[string]NodeHandler) *ExtractorEngine {
	return &ExtractorEngine{handlers: handlers}
}

func (e *ExtractorEngine) Walk(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}
	if handler, ok := e.handlers[node.Kind()]; ok && handler(ctx, node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		e.Walk(ctx, node.Child(i))
	}
}

func (c *ExtractionContext) Text(node *sitter.Node) string {
	return nodeText(c.Source, node)
}

func (c *ExtractionContext) Span(node *sitter.Node) graph.Span {
	if node == nil {
		return graph.Span{}
	}
	pos := node.StartPosition()
	return graph.Span{
		Line:   int(pos.Row) + 1,
		Column: int(pos.Column) + 1,
		Start:  int(node.StartByte()),
		End:    int(node.EndByte()),
	}
}

func nodeText(source []byte, node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// hasToken reports whether node has a direct anonymous child of the given kind,
// such as the `type` keyword of `import type`.
func hasToken(node *sitter.Node, kind string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if !child.IsNamed() && child.Kind() == kind {
			return true
		}
	}
	return false
}

// namedChildren returns the named children of node, skipping comments.
func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.Kind() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

func childOfKind(node *sitter.Node, kinds ...string) *sitter.Node {
	for _, child := range namedChildren(node) {
		for _, kind := range kinds {
			if child.Kind() == kind {
				return child
			}
		}
	}
	return nil
}

// stringValue returns the unquoted contents of a string or template literal
// without substitutions.
func stringValue(source []byte, node *sitter.Node) (string, bool) {
	if node == nil {
		return "", false
	}
	switch node.Kind() {
	case "string":
		return trimQuoted(nodeText(source, node)), true
	case "template_string":
		if childOfKind(node, "template_substitution") != nil {
			return "", false
		}
		return trimQuoted(nodeText(source, node)), true
	}
	return "", false
}

func trimQuoted(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if first == last && (first == '"' || first == '\'' || first == '`') {
			return value[1 : len(value)-1]
		}
	}
	return value
}
