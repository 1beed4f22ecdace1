package graph

// ModuleFormat is the module system a file is written in.
type ModuleFormat string

const (
	FormatESM      ModuleFormat = "esm"
	FormatCommonJS ModuleFormat = "cjs"
	FormatUnknown  ModuleFormat = "unknown"
)

// Module is one source file's resolved identity plus its imports, exports and
// symbol table. The graph owns inserted modules; callers receive clones.
type Module struct {
	ID             ModuleID     `json:"id"`
	Path           string       `json:"path"`
	SourceType     SourceType   `json:"source_type"`
	Imports        []Import     `json:"imports"`
	Exports        []Export     `json:"exports"`
	HasSideEffects bool         `json:"has_side_effects"`
	IsEntry        bool         `json:"is_entry"`
	IsExternal     bool         `json:"is_external"`
	OriginalSize   int          `json:"original_size"`
	BundledSize    *int         `json:"bundled_size,omitempty"`
	SymbolTable    SymbolTable  `json:"symbol_table"`
	ModuleFormat   ModuleFormat `json:"module_format"`
	HasStarExports bool         `json:"has_star_exports"`
	ExecutionOrder *int         `json:"execution_order,omitempty"`
}

// NewModule creates a module whose source type is derived from path.
func NewModule(id ModuleID, path string) *Module {
	return &Module{
		ID:           id,
		Path:         path,
		SourceType:   SourceTypeFromPath(path),
		ModuleFormat: FormatUnknown,
	}
}

// Export returns the export with the given name.
func (m *Module) Export(name string) (*Export, bool) {
	for i := range m.Exports {
		if m.Exports[i].Name == name {
			return &m.Exports[i], true
		}
	}
	return nil, false
}

// ExportNames lists export names in declaration order.
func (m *Module) ExportNames() []string {
	names := make([]string, 0, len(m.Exports))
	for _, e := range m.Exports {
		names = append(names, e.Name)
	}
	return names
}

func (m *Module) Clone() *Module {
	if m == nil {
		return nil
	}
	out := *m
	if m.Imports != nil {
		out.Imports = make([]Import, len(m.Imports))
		for i, imp := range m.Imports {
			out.Imports[i] = imp.Clone()
		}
	}
	if m.Exports != nil {
		out.Exports = make([]Export, len(m.Exports))
		for i, exp := range m.Exports {
			out.Exports[i] = exp.Clone()
		}
	}
	if m.BundledSize != nil {
		n := *m.BundledSize
		out.BundledSize = &n
	}
	if m.ExecutionOrder != nil {
		n := *m.ExecutionOrder
		out.ExecutionOrder = &n
	}
	out.SymbolTable = m.SymbolTable.Clone()
	return &out
}
