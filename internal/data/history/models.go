package history

import "time"

const SchemaVersion = 1

// Snapshot is the persisted summary of one analysis run.
type Snapshot struct {
	RunID             string               `json:"run_id"`
	Project           string               `json:"project"`
	SchemaVersion     int                  `json:"schema_version"`
	Timestamp         time.Time            `json:"timestamp"`
	ModuleCount       int                  `json:"module_count"`
	EntryCount        int                  `json:"entry_count"`
	ExternalCount     int                  `json:"external_count"`
	SideEffectCount   int                  `json:"side_effect_count"`
	UnusedExportCount int                  `json:"unused_export_count"`
	UnreachableCount  int                  `json:"unreachable_count"`
	Modules           []ModuleRecord       `json:"modules,omitempty"`
	UnusedExports     []UnusedExportRecord `json:"unused_exports,omitempty"`
}

type ModuleRecord struct {
	ID             string `json:"id"`
	IsEntry        bool   `json:"is_entry"`
	HasSideEffects bool   `json:"has_side_effects"`
	ImportCount    int    `json:"import_count"`
	ExportCount    int    `json:"export_count"`
}

type UnusedExportRecord struct {
	ModuleID string `json:"module_id"`
	Name     string `json:"name"`
	Line     int    `json:"line"`
}

func (r UnusedExportRecord) key() string {
	return r.ModuleID + "#" + r.Name
}

// SnapshotDiff compares two runs of the same project.
type SnapshotDiff struct {
	ModuleDelta int                  `json:"module_delta"`
	Added       []UnusedExportRecord `json:"added"`
	Removed     []UnusedExportRecord `json:"removed"`
}

// Diff reports unused exports that appeared or disappeared between prev and
// cur. A nil prev treats every unused export in cur as added.
func Diff(prev, cur *Snapshot) SnapshotDiff {
	var diff SnapshotDiff
	if cur == nil {
		return diff
	}
	if prev == nil {
		diff.ModuleDelta = cur.ModuleCount
		diff.Added = append(diff.Added, cur.UnusedExports...)
		return diff
	}
	diff.ModuleDelta = cur.ModuleCount - prev.ModuleCount

	before := make(map[string]bool, len(prev.UnusedExports))
	for _, rec := range prev.UnusedExports {
		before[rec.key()] = true
	}
	after := make(map[string]bool, len(cur.UnusedExports))
	for _, rec := range cur.UnusedExports {
		after[rec.key()] = true
		if !before[rec.key()] {
			diff.Added = append(diff.Added, rec)
		}
	}
	for _, rec := range prev.UnusedExports {
		if !after[rec.key()] {
			diff.Removed = append(diff.Removed, rec)
		}
	}
	return diff
}
