package runtime

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryRuntime(t *testing.T) {
	ctx := context.Background()
	rt := NewMemoryRuntime("/proj")
	rt.AddFile("/proj/src/a.ts", "export const a = 1;")
	rt.AddFile("src/b.ts", "export const b = 2;")

	t.Run("read absolute and relative", func(t *testing.T) {
		data, err := rt.ReadFile(ctx, "/proj/src/a.ts")
		if err != nil || string(data) != "export const a = 1;" {
			t.Fatalf("unexpected read: %q %v", data, err)
		}
		if _, err := rt.ReadFile(ctx, "/proj/src/b.ts"); err != nil {
			t.Fatalf("expected relative AddFile to resolve against cwd: %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := rt.ReadFile(ctx, "/proj/missing.ts")
		if !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("expected ErrNotExist, got %v", err)
		}
	})

	t.Run("implicit directories", func(t *testing.T) {
		if !rt.Exists("/proj/src") {
			t.Error("expected /proj/src to exist as a directory")
		}
		meta, err := rt.Metadata(ctx, "/proj/src")
		if err != nil || !meta.IsDir || meta.IsFile {
			t.Errorf("expected directory metadata, got %+v %v", meta, err)
		}
		if rt.Exists("/proj/sr") {
			t.Error("expected partial prefix not to be a directory")
		}
	})

	t.Run("file metadata", func(t *testing.T) {
		meta, err := rt.Metadata(ctx, "/proj/src/a.ts")
		if err != nil {
			t.Fatal(err)
		}
		if !meta.IsFile || meta.Size != int64(len("export const a = 1;")) {
			t.Errorf("unexpected metadata %+v", meta)
		}
	})

	t.Run("remove", func(t *testing.T) {
		rt.RemoveFile("/proj/src/b.ts")
		if rt.Exists("/proj/src/b.ts") {
			t.Error("expected removed file to be gone")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := rt.ReadFile(cctx, "/proj/src/a.ts"); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestOSRuntime(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	file := filepath.Join(dir, "index.js")
	if err := os.WriteFile(file, []byte("import './x';"), 0o644); err != nil {
		t.Fatal(err)
	}

	rt := &OSRuntime{Dir: dir}
	cwd, err := rt.Cwd()
	if err != nil {
		t.Fatal(err)
	}
	if cwd != dir {
		t.Errorf("expected cwd %q, got %q", dir, cwd)
	}
	if !rt.Exists(file) {
		t.Error("expected file to exist")
	}
	meta, err := rt.Metadata(ctx, file)
	if err != nil || !meta.IsFile || meta.Size != 13 {
		t.Errorf("unexpected metadata %+v %v", meta, err)
	}
	meta, err = rt.Metadata(ctx, dir)
	if err != nil || !meta.IsDir {
		t.Errorf("expected dir metadata, got %+v %v", meta, err)
	}
	data, err := rt.ReadFile(ctx, file)
	if err != nil || string(data) != "import './x';" {
		t.Errorf("unexpected content %q %v", data, err)
	}
}
