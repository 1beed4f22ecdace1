package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"time"
)

// MemoryRuntime is a map-backed Runtime. Directories exist implicitly for
// every parent of a stored file.
type MemoryRuntime struct {
	mu    sync.RWMutex
	cwd   string
	files map[string]memFile
}

type memFile struct {
	data     []byte
	modified time.Time
}

func NewMemoryRuntime(cwd string) *MemoryRuntime {
	return &MemoryRuntime{
		cwd:   clean(cwd),
		files: make(map[string]memFile),
	}
}

// AddFile stores content at p. Relative paths are joined to the runtime cwd.
func (r *MemoryRuntime) AddFile(p, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[r.abs(p)] = memFile{data: []byte(content), modified: time.Now()}
}

func (r *MemoryRuntime) RemoveFile(p string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, r.abs(p))
}

func (r *MemoryRuntime) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.files[r.abs(p)]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: p, Err: fs.ErrNotExist}
	}
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out, nil
}

func (r *MemoryRuntime) Exists(p string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := r.abs(p)
	if _, ok := r.files[key]; ok {
		return true
	}
	return r.isDirLocked(key)
}

func (r *MemoryRuntime) Metadata(ctx context.Context, p string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := r.abs(p)
	if f, ok := r.files[key]; ok {
		return Metadata{Size: int64(len(f.data)), IsFile: true, Modified: f.modified}, nil
	}
	if r.isDirLocked(key) {
		return Metadata{IsDir: true}, nil
	}
	return Metadata{}, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
}

func (r *MemoryRuntime) Cwd() (string, error) {
	if r.cwd == "" {
		return "", fmt.Errorf("memory runtime has no working directory")
	}
	return r.cwd, nil
}

func (r *MemoryRuntime) isDirLocked(key string) bool {
	prefix := key + "/"
	if key == "/" {
		prefix = "/"
	}
	for name := range r.files {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (r *MemoryRuntime) abs(p string) string {
	p = clean(p)
	if !path.IsAbs(p) && r.cwd != "" {
		return path.Join(r.cwd, p)
	}
	return p
}

func clean(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}
