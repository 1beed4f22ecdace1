// # internal/engine/graph/module_id.go
package graph

import (
	"path"
	"strings"

	"modgraph/internal/core/errors"
	"modgraph/internal/shared/util"
)

const virtualPrefix = "virtual:"

// ModuleID is the unique key of a module in the graph: a cleaned,
// slash-separated project path, or a "virtual:" id for synthetic modules.
type ModuleID string

// NewModuleID normalizes p into a ModuleID.
func NewModuleID(p string) (ModuleID, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.New(errors.CodeValidationError, "module id path must not be empty")
	}
	if strings.HasPrefix(p, virtualPrefix) {
		return ModuleID(p), nil
	}
	return ModuleID(util.NormalizePath(p)), nil
}

// MustModuleID is NewModuleID for literals known to be valid.
func MustModuleID(p string) ModuleID {
	id, err := NewModuleID(p)
	if err != nil {
		panic(err)
	}
	return id
}

func NewVirtualModuleID(name string) (ModuleID, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New(errors.CodeValidationError, "virtual module name must not be empty")
	}
	return ModuleID(virtualPrefix + name), nil
}

func (id ModuleID) IsVirtual() bool {
	return strings.HasPrefix(string(id), virtualPrefix)
}

// Path returns the filesystem path for regular ids and the bare name for
// virtual ones.
func (id ModuleID) Path() string {
	return strings.TrimPrefix(string(id), virtualPrefix)
}

func (id ModuleID) String() string {
	return string(id)
}

// SourceType classifies a module by its file extension.
type SourceType string

const (
	SourceJavaScript SourceType = "javascript"
	SourceTypeScript SourceType = "typescript"
	SourceJSX        SourceType = "jsx"
	SourceTSX        SourceType = "tsx"
	SourceJSON       SourceType = "json"
	SourceCSS        SourceType = "css"
	SourceUnknown    SourceType = "unknown"
)

func SourceTypeFromPath(p string) SourceType {
	switch strings.ToLower(path.Ext(p)) {
	case ".js", ".mjs", ".cjs":
		return SourceJavaScript
	case ".ts", ".mts", ".cts":
		return SourceTypeScript
	case ".jsx":
		return SourceJSX
	case ".tsx":
		return SourceTSX
	case ".json":
		return SourceJSON
	case ".css":
		return SourceCSS
	default:
		return SourceUnknown
	}
}

func (s SourceType) IsJavaScriptLike() bool {
	switch s {
	case SourceJavaScript, SourceTypeScript, SourceJSX, SourceTSX:
		return true
	}
	return false
}
