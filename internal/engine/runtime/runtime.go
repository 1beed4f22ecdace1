// # internal/engine/runtime/runtime.go
package runtime

import (
	"context"
	"time"
)

// Metadata describes a filesystem entry.
type Metadata struct {
	Size     int64
	IsDir    bool
	IsFile   bool
	Modified time.Time
}

// Runtime is the only filesystem dependency of the walker and resolver. It can
// be backed by the native filesystem, an in-memory tree, or a sandbox.
type Runtime interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	Exists(path string) bool
	Metadata(ctx context.Context, path string) (Metadata, error)
	Cwd() (string, error)
}
