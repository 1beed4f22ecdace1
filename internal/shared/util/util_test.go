package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"":                  "",
		"src/../lib/a.ts":   "lib/a.ts",
		`src\components\b`:  "src/components/b",
		"/proj/./src//x.ts": "/proj/src/x.ts",
		"./index.ts":        "index.ts",
	}
	for in, want := range tests {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRelativeTo(t *testing.T) {
	if got := RelativeTo("/proj", "/proj/src/a.ts"); got != "src/a.ts" {
		t.Errorf("expected src/a.ts, got %q", got)
	}
	if got := RelativeTo("/proj", "/other/a.ts"); got != "/other/a.ts" {
		t.Errorf("expected outside path unchanged, got %q", got)
	}
	if got := RelativeTo("/proj", "./src/a.ts"); got != "src/a.ts" {
		t.Errorf("expected relative path normalized, got %q", got)
	}
}

func TestIsWithin(t *testing.T) {
	if !IsWithin("/proj", "/proj/src/a.ts") {
		t.Error("expected nested path to be within root")
	}
	if !IsWithin("/proj", "/proj") {
		t.Error("expected root to be within itself")
	}
	if IsWithin("/proj", "/project/a.ts") {
		t.Error("expected sibling prefix not to be within root")
	}
	if IsWithin("/proj", "/proj/../etc/passwd") {
		t.Error("expected traversal path to escape root")
	}
}

func TestSortedStringKeys(t *testing.T) {
	keys := SortedStringKeys(map[string]int{"b": 1, "a": 2, "c": 3})
	if len(keys) != 3 || keys[0] != "a" || keys[2] != "c" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

func TestWriteFileWithDirs(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "dir", "report.json")
	if err := WriteFileWithDirs(target, []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFileWithDirs failed: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil || string(data) != "{}" {
		t.Fatalf("unexpected content %q (%v)", data, err)
	}
}
