package formats

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"modgraph/internal/engine/graph"
)

func moduleLabel(mod *graph.Module) string {
	parts := []string{mod.ID.Path()}
	parts = append(parts, fmt.Sprintf("(%d exports, %d imports)", len(mod.Exports), len(mod.Imports)))
	if mod.ModuleFormat != "" && mod.ModuleFormat != graph.FormatUnknown {
		parts = append(parts, fmt.Sprintf("[%s]", mod.ModuleFormat))
	}
	return strings.Join(parts, "\\n")
}

func sanitizeID(name string) string {
	if name == "" {
		return "m"
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if unicode.IsDigit(rune(out[0])) {
		return "m_" + out
	}
	return out
}

// makeIDs assigns a unique diagram identifier to every name. Names that
// sanitize to the same identifier get a numeric suffix in input order.
func makeIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func relPath(root, path string) string {
	root = strings.TrimSpace(root)
	path = strings.TrimSpace(path)
	if root == "" || path == "" || !filepath.IsAbs(path) {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
