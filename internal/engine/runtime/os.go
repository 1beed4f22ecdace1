package runtime

import (
	"context"
	"os"
	"path/filepath"
)

// OSRuntime reads from the native filesystem.
type OSRuntime struct {
	// Dir overrides the process working directory when non-empty.
	Dir string
}

func NewOSRuntime() *OSRuntime {
	return &OSRuntime{}
}

func (r *OSRuntime) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.FromSlash(path))
}

func (r *OSRuntime) Exists(path string) bool {
	_, err := os.Stat(filepath.FromSlash(path))
	return err == nil
}

func (r *OSRuntime) Metadata(ctx context.Context, path string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	info, err := os.Stat(filepath.FromSlash(path))
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		Size:     info.Size(),
		IsDir:    info.IsDir(),
		IsFile:   info.Mode().IsRegular(),
		Modified: info.ModTime(),
	}, nil
}

func (r *OSRuntime) Cwd() (string, error) {
	if r.Dir != "" {
		return filepath.Abs(r.Dir)
	}
	return os.Getwd()
}
