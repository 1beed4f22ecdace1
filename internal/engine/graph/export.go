package graph

import "sort"

// ExportKind classifies an export statement.
type ExportKind string

const (
	ExportNamed        ExportKind = "named"
	ExportDefault      ExportKind = "default"
	ExportStarReExport ExportKind = "star-re-export"
	ExportReExport     ExportKind = "re-export"
	ExportTypeOnly     ExportKind = "type-only"
)

// StarExportName is the synthetic name carried by `export * from` exports.
const StarExportName = "*"

// Export is one exported binding of a module. For re-exports, ReExportedFrom
// holds the id of the forwarded module when it was collected, or the raw
// specifier otherwise, and Local holds the name in that module ("*" for
// `export * as ns from`). ReExportTarget is set only in the collected case.
type Export struct {
	Name             string     `json:"name"`
	Kind             ExportKind `json:"kind"`
	Local            string     `json:"local,omitempty"`
	IsUsed           bool       `json:"is_used"`
	IsTypeOnly       bool       `json:"is_type_only"`
	ReExportedFrom   string     `json:"re_exported_from,omitempty"`
	ReExportTarget   *ModuleID  `json:"re_export_target,omitempty"`
	IsFrameworkUsed  bool       `json:"is_framework_used"`
	CameFromCommonJS bool       `json:"came_from_commonjs"`
	Span             Span       `json:"span"`
	UsageCount       *int       `json:"usage_count,omitempty"`
}

func (e *Export) MarkUsed() {
	e.IsUsed = true
}

// MarkFrameworkUsed flags the export as consumed by framework conventions.
func (e *Export) MarkFrameworkUsed() {
	e.IsFrameworkUsed = true
	e.IsUsed = true
}

func (e Export) IsDefault() bool {
	return e.Kind == ExportDefault || e.Name == "default"
}

func (e Export) IsReExport() bool {
	return e.Kind == ExportReExport || e.Kind == ExportStarReExport
}

// forwardsFrom reports whether e is a re-export of module id.
func (e Export) forwardsFrom(id ModuleID) bool {
	if e.ReExportTarget != nil {
		return *e.ReExportTarget == id
	}
	return e.ReExportedFrom != "" && e.ReExportedFrom == id.String()
}

func (e *Export) SetUsageCount(n int) {
	e.UsageCount = &n
}

func (e *Export) IncrementUsageCount() {
	if e.UsageCount == nil {
		e.SetUsageCount(1)
		return
	}
	*e.UsageCount++
}

func (e *Export) ResetUsageCount() {
	e.UsageCount = nil
}

// Usage returns the computed usage count, or 0 when it was never computed.
func (e Export) Usage() int {
	if e.UsageCount == nil {
		return 0
	}
	return *e.UsageCount
}

func (e Export) Clone() Export {
	out := e
	if e.UsageCount != nil {
		n := *e.UsageCount
		out.UsageCount = &n
	}
	if e.ReExportTarget != nil {
		target := *e.ReExportTarget
		out.ReExportTarget = &target
	}
	return out
}

// UnusedExport pairs an unused export with its module.
type UnusedExport struct {
	ModuleID ModuleID `json:"module_id"`
	Export   Export   `json:"export"`
}

// ExternalDependency aggregates every importer of one external specifier.
type ExternalDependency struct {
	Specifier string     `json:"specifier"`
	Importers []ModuleID `json:"importers"`
}

// AddImporter records id once, keeping Importers sorted.
func (d *ExternalDependency) AddImporter(id ModuleID) {
	i := sort.Search(len(d.Importers), func(i int) bool { return d.Importers[i] >= id })
	if i < len(d.Importers) && d.Importers[i] == id {
		return
	}
	d.Importers = append(d.Importers, "")
	copy(d.Importers[i+1:], d.Importers[i:])
	d.Importers[i] = id
}

// RemoveImporter drops id and reports whether it was present.
func (d *ExternalDependency) RemoveImporter(id ModuleID) bool {
	i := sort.Search(len(d.Importers), func(i int) bool { return d.Importers[i] >= id })
	if i == len(d.Importers) || d.Importers[i] != id {
		return false
	}
	d.Importers = append(d.Importers[:i], d.Importers[i+1:]...)
	return true
}

func (d ExternalDependency) Clone() ExternalDependency {
	return ExternalDependency{
		Specifier: d.Specifier,
		Importers: append([]ModuleID(nil), d.Importers...),
	}
}
