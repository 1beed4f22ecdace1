package report

import (
	"bytes"
	"fmt"
	"strings"
)

// DefaultContextRadius is the number of lines shown on each side of a hit.
const DefaultContextRadius = 3

// Snippet is a window of source lines around one declaration.
type Snippet struct {
	Name string
	Line int
	// Context lines are formatted as "<linenum>: <source>".
	Context []string
}

// ExportSnippet returns the lines around the declaration of name. When line
// is positive it is trusted; otherwise the first word-boundary occurrence of
// name is used. ok is false when neither locates the declaration.
func ExportSnippet(name string, line int, content []byte, radius int) (Snippet, bool) {
	s := Snippet{Name: name}
	lines := splitLines(content)
	if len(lines) == 0 {
		return s, false
	}
	if radius < 0 {
		radius = 0
	}

	hit := line - 1
	if hit < 0 || hit >= len(lines) {
		hit = -1
		for i, l := range lines {
			if containsSymbol(l, name) {
				hit = i
				break
			}
		}
	}
	if hit < 0 {
		return s, false
	}
	s.Line = hit + 1
	s.Context = buildContext(lines, hit, radius)
	return s, true
}

// containsSymbol reports whether line contains symbol on identifier boundaries.
func containsSymbol(line, symbol string) bool {
	if symbol == "" {
		return false
	}
	for offset := 0; offset < len(line); {
		idx := strings.Index(line[offset:], symbol)
		if idx < 0 {
			return false
		}
		idx += offset
		before := idx > 0 && isIdentChar(line[idx-1])
		end := idx + len(symbol)
		after := end < len(line) && isIdentChar(line[end])
		if !before && !after {
			return true
		}
		offset = idx + 1
	}
	return false
}

func isIdentChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') || c == '_' || c == '$'
}

func buildContext(lines []string, hitIdx, radius int) []string {
	start := max(hitIdx-radius, 0)
	end := min(hitIdx+radius+1, len(lines))

	out := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, fmt.Sprintf("%6d: %s", i+1, lines[i]))
	}
	return out
}

// splitLines splits content on newlines, dropping the empty line produced by
// a trailing newline.
func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	raw := bytes.Split(content, []byte("\n"))
	lines := make([]string, len(raw))
	for i, b := range raw {
		lines[i] = strings.TrimSuffix(string(b), "\r")
	}
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
