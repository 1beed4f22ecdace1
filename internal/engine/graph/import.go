package graph

import "strings"

// ImportKind is the mechanism used to load a dependency.
type ImportKind string

const (
	ImportStatic   ImportKind = "static"
	ImportDynamic  ImportKind = "dynamic"
	ImportRequire  ImportKind = "require"
	ImportTypeOnly ImportKind = "type-only"
	ImportReExport ImportKind = "re-export"
)

// IsRuntime reports whether the import survives type erasure.
func (k ImportKind) IsRuntime() bool {
	return k != ImportTypeOnly
}

// IsStatic reports whether the dependency is known before execution.
func (k ImportKind) IsStatic() bool {
	switch k {
	case ImportStatic, ImportRequire, ImportReExport:
		return true
	}
	return false
}

type SpecifierKind string

const (
	SpecifierNamed     SpecifierKind = "named"
	SpecifierDefault   SpecifierKind = "default"
	SpecifierNamespace SpecifierKind = "namespace"
)

// ImportSpecifier is one binding of an import statement. Imported is the
// name in the source module (Named only); Local is the binding in the
// importing module.
type ImportSpecifier struct {
	Kind     SpecifierKind `json:"kind"`
	Imported string        `json:"imported,omitempty"`
	Local    string        `json:"local,omitempty"`
}

func NamedSpecifier(imported, local string) ImportSpecifier {
	if local == "" {
		local = imported
	}
	return ImportSpecifier{Kind: SpecifierNamed, Imported: imported, Local: local}
}

func DefaultSpecifier(local string) ImportSpecifier {
	return ImportSpecifier{Kind: SpecifierDefault, Imported: "default", Local: local}
}

func NamespaceSpecifier(local string) ImportSpecifier {
	return ImportSpecifier{Kind: SpecifierNamespace, Local: local}
}

// Span locates a construct in its source file. Lines and columns are 1-based.
type Span struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Start  int `json:"start"`
	End    int `json:"end"`
}

// Import is one import statement. Source always holds the raw specifier;
// ResolvedTo is set only when it resolves to a module present in the graph.
type Import struct {
	Source     string            `json:"source"`
	Specifiers []ImportSpecifier `json:"specifiers,omitempty"`
	Kind       ImportKind        `json:"kind"`
	ResolvedTo *ModuleID         `json:"resolved_to,omitempty"`
	Span       Span              `json:"span"`
}

func (i Import) IsSideEffectOnly() bool {
	return len(i.Specifiers) == 0
}

// IsExternal reports whether the specifier points outside the project.
func (i Import) IsExternal() bool {
	switch {
	case strings.HasPrefix(i.Source, "."),
		strings.HasPrefix(i.Source, "/"),
		strings.HasPrefix(i.Source, "\\"),
		strings.HasPrefix(i.Source, virtualPrefix):
		return false
	}
	return true
}

func (i Import) IsNamespaceImport() bool {
	for _, spec := range i.Specifiers {
		if spec.Kind == SpecifierNamespace {
			return true
		}
	}
	return false
}

// NamespaceName returns the local binding of a namespace import.
func (i Import) NamespaceName() (string, bool) {
	for _, spec := range i.Specifiers {
		if spec.Kind == SpecifierNamespace {
			return spec.Local, true
		}
	}
	return "", false
}

func (i Import) Clone() Import {
	out := i
	if i.Specifiers != nil {
		out.Specifiers = append([]ImportSpecifier(nil), i.Specifiers...)
	}
	if i.ResolvedTo != nil {
		id := *i.ResolvedTo
		out.ResolvedTo = &id
	}
	return out
}
