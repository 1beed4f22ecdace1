// # internal/engine/parser/script.go
package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
)

// ScriptExtractor pulls script fragments out of framework components.
type ScriptExtractor struct {
	pool *ParserPool
}

func NewScriptExtractor() *ScriptExtractor {
	return &ScriptExtractor{
		pool: NewParserPool(GrammarHTML, sitter.NewLanguage(tree_sitter_html.Language())),
	}
}

// Extract returns the script fragments of a .vue, .svelte or .astro file in
// source order. Astro frontmatter comes first.
func (e *ScriptExtractor) Extract(path string, source []byte) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".vue", ".svelte":
		return e.scriptElements(path, source)
	case ".astro":
		front, rest := astroFrontmatter(source)
		scripts, err := e.scriptElements(path, rest)
		if err != nil {
			return nil, err
		}
		if front != "" {
			scripts = append([]string{front}, scripts...)
		}
		return scripts, nil
	}
	return nil, fmt.Errorf("%w: %s: not a framework component", ErrParse, path)
}

func (e *ScriptExtractor) scriptElements(path string, source []byte) ([]string, error) {
	sp := e.pool.Get()
	defer e.pool.Put(sp)

	tree := sp.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("%w: %s: no syntax tree", ErrParse, path)
	}
	defer tree.Close()

	var scripts []string
	engine := NewExtractorEngine(map[string]NodeHandler{
		"script_element": func(ctx *ExtractionContext, node *sitter.Node) bool {
			if raw := childOfKind(node, "raw_text"); raw != nil {
				if text := ctx.Text(raw); strings.TrimSpace(text) != "" {
					scripts = append(scripts, text)
				}
			}
			return true
		},
		"style_element": func(*ExtractionContext, *sitter.Node) bool { return true },
	})
	engine.Walk(&ExtractionContext{Source: source}, tree.RootNode())
	return scripts, nil
}

// astroFrontmatter splits a leading `---` fenced block from the template.
func astroFrontmatter(source []byte) (string, []byte) {
	text := string(source)
	trimmed := strings.TrimLeft(text, " \t\r\n")
	if !strings.HasPrefix(trimmed, "---") {
		return "", source
	}
	offset := len(text) - len(trimmed) + 3
	body := text[offset:]
	end := strings.Index(body, "\n---")
	if end < 0 {
		return "", source
	}
	front := body[:end]
	rest := body[end+len("\n---"):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		rest = ""
	}
	return strings.Trim(front, "\r\n"), []byte(rest)
}

// JoinScripts concatenates fragments with a blank line between them.
func JoinScripts(fragments []string) string {
	return strings.Join(fragments, "\n\n")
}
