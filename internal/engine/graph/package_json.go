package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"modgraph/internal/core/errors"
	"modgraph/internal/engine/runtime"
)

// MaxPackageJSONSize caps the package.json files LoadPackageJSON accepts.
const MaxPackageJSONSize = 10 * 1024 * 1024

type DependencyType string

const (
	DependencyProduction  DependencyType = "dependencies"
	DependencyDevelopment DependencyType = "devDependencies"
	DependencyPeer        DependencyType = "peerDependencies"
	DependencyOptional    DependencyType = "optionalDependencies"
)

// DependencyTypes lists every dependency section in report order.
var DependencyTypes = []DependencyType{DependencyProduction, DependencyDevelopment, DependencyPeer, DependencyOptional}

type PackageJSON struct {
	Name                 string            `json:"name,omitempty"`
	Version              string            `json:"version,omitempty"`
	Dependencies         map[string]string `json:"dependencies,omitempty"`
	DevDependencies      map[string]string `json:"devDependencies,omitempty"`
	PeerDependencies     map[string]string `json:"peerDependencies,omitempty"`
	OptionalDependencies map[string]string `json:"optionalDependencies,omitempty"`
	Path                 string            `json:"-"`
}

// Section returns the declared packages of one dependency type.
func (p *PackageJSON) Section(t DependencyType) map[string]string {
	switch t {
	case DependencyProduction:
		return p.Dependencies
	case DependencyDevelopment:
		return p.DevDependencies
	case DependencyPeer:
		return p.PeerDependencies
	case DependencyOptional:
		return p.OptionalDependencies
	}
	return nil
}

// DependencyNames returns the sorted, de-duplicated package names of the
// production and optional sections, plus dev and peer when requested.
func (p *PackageJSON) DependencyNames(includeDev, includePeer bool) []string {
	set := make(map[string]bool)
	for _, t := range DependencyTypes {
		if (t == DependencyDevelopment && !includeDev) || (t == DependencyPeer && !includePeer) {
			continue
		}
		for name := range p.Section(t) {
			set[name] = true
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadPackageJSON reads and decodes the package.json at p through rt.
func LoadPackageJSON(ctx context.Context, rt runtime.Runtime, p string) (*PackageJSON, error) {
	if strings.Contains(p, "..") {
		err := errors.New(errors.CodeValidationError, "package.json path contains '..'")
		return nil, errors.AddContext(err, errors.CtxPath, p)
	}
	meta, err := rt.Metadata(ctx, p)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "cannot read package.json metadata"), errors.CtxPath, p)
	}
	if meta.Size > MaxPackageJSONSize {
		err := errors.New(errors.CodeLimitExceeded, fmt.Sprintf("package.json exceeds maximum size of %dMB", MaxPackageJSONSize/1024/1024))
		return nil, errors.AddContext(err, errors.CtxPath, p)
	}
	data, err := rt.ReadFile(ctx, p)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "failed to read package.json"), errors.CtxPath, p)
	}
	if !utf8.Valid(data) {
		err := errors.New(errors.CodeValidationError, "package.json contains invalid UTF-8")
		return nil, errors.AddContext(err, errors.CtxPath, p)
	}
	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "invalid package.json format"), errors.CtxPath, p)
	}
	pkg.Path = p
	return &pkg, nil
}

// FindPackageJSON loads the nearest package.json at or above dir.
func FindPackageJSON(ctx context.Context, rt runtime.Runtime, dir string) (*PackageJSON, error) {
	current := path.Clean(strings.ReplaceAll(dir, "\\", "/"))
	for {
		candidate := path.Join(current, "package.json")
		if rt.Exists(candidate) {
			return LoadPackageJSON(ctx, rt, candidate)
		}
		parent := path.Dir(current)
		if parent == current {
			err := errors.New(errors.CodeNotFound, "no package.json found in directory tree")
			return nil, errors.AddContext(err, errors.CtxPath, dir)
		}
		current = parent
	}
}

// ExtractPackageName returns the npm package of an import specifier:
// "@scope/pkg/sub" -> "@scope/pkg", "lodash/fp" -> "lodash".
func ExtractPackageName(specifier string) string {
	if specifier == "" {
		return specifier
	}
	if strings.HasPrefix(specifier, "@") {
		first := strings.Index(specifier, "/")
		if first < 0 {
			return specifier
		}
		if second := strings.Index(specifier[first+1:], "/"); second >= 0 {
			return specifier[:first+1+second]
		}
		return specifier
	}
	if i := strings.Index(specifier, "/"); i >= 0 {
		return specifier[:i]
	}
	return specifier
}

type UnusedDependency struct {
	Package string         `json:"package"`
	Version string         `json:"version"`
	Type    DependencyType `json:"type"`
}

type TypeCoverage struct {
	Declared int `json:"declared"`
	Used     int `json:"used"`
	Unused   int `json:"unused"`
}

type DependencyCoverage struct {
	TotalDeclared int                             `json:"total_declared"`
	TotalUsed     int                             `json:"total_used"`
	TotalUnused   int                             `json:"total_unused"`
	ByType        map[DependencyType]TypeCoverage `json:"by_type"`
}

func (c DependencyCoverage) CoveragePercentage() float64 {
	if c.TotalDeclared == 0 {
		return 100
	}
	return float64(c.TotalUsed) / float64(c.TotalDeclared) * 100
}

func (g *ModuleGraph) importedPackages() map[string]bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]bool)
	for _, mod := range g.modules {
		for _, imp := range mod.Imports {
			if imp.IsExternal() {
				out[ExtractPackageName(imp.Source)] = true
			}
		}
		for _, exp := range mod.Exports {
			if exp.ReExportTarget != nil || exp.ReExportedFrom == "" {
				continue
			}
			if (Import{Source: exp.ReExportedFrom}).IsExternal() {
				out[ExtractPackageName(exp.ReExportedFrom)] = true
			}
		}
	}
	return out
}

// UnusedNPMDependencies lists declared packages that no module imports.
// Production and optional sections are always checked.
func (g *ModuleGraph) UnusedNPMDependencies(pkg *PackageJSON, includeDev, includePeer bool) []UnusedDependency {
	imported := g.importedPackages()
	var out []UnusedDependency
	for _, t := range DependencyTypes {
		if (t == DependencyDevelopment && !includeDev) || (t == DependencyPeer && !includePeer) {
			continue
		}
		section := pkg.Section(t)
		names := make([]string, 0, len(section))
		for name := range section {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if !imported[name] {
				out = append(out, UnusedDependency{Package: name, Version: section[name], Type: t})
			}
		}
	}
	return out
}

// DependencyCoverage reports declared versus imported packages per section.
func (g *ModuleGraph) DependencyCoverage(pkg *PackageJSON) DependencyCoverage {
	imported := g.importedPackages()
	cov := DependencyCoverage{ByType: make(map[DependencyType]TypeCoverage, len(DependencyTypes))}
	for _, t := range DependencyTypes {
		section := pkg.Section(t)
		tc := TypeCoverage{Declared: len(section)}
		for name := range section {
			if imported[name] {
				tc.Used++
			}
		}
		tc.Unused = tc.Declared - tc.Used
		cov.ByType[t] = tc
		cov.TotalDeclared += tc.Declared
		cov.TotalUsed += tc.Used
	}
	cov.TotalUnused = cov.TotalDeclared - cov.TotalUsed
	return cov
}
