package util

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// NormalizePath converts separators to slashes and cleans the result.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}

// RelativeTo returns p relative to root in slash form. Paths outside root are
// returned normalized but otherwise unchanged.
func RelativeTo(root, p string) string {
	p = NormalizePath(p)
	root = NormalizePath(root)
	if root == "" || !path.IsAbs(p) {
		return strings.TrimPrefix(p, "./")
	}
	rel, err := filepath.Rel(filepath.FromSlash(root), filepath.FromSlash(p))
	if err != nil {
		return p
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return p
	}
	return rel
}

// IsWithin reports whether p equals root or is contained in it.
func IsWithin(root, p string) bool {
	root = NormalizePath(root)
	p = NormalizePath(p)
	if root == "" || root == "/" {
		return true
	}
	return p == root || strings.HasPrefix(p, root+"/")
}

// SortedStringKeys returns the map's keys in sorted order.
func SortedStringKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// WriteFileWithDirs creates parent directories (0755) and writes the file with perm.
func WriteFileWithDirs(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, perm)
}
