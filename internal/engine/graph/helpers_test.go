package graph

func id(p string) ModuleID {
	return MustModuleID(p)
}

func idPtr(p string) *ModuleID {
	m := id(p)
	return &m
}

func module(p string, exports ...Export) *Module {
	mod := NewModule(id(p), p)
	mod.Exports = exports
	return mod
}

func named(name string) Export {
	return Export{Name: name, Kind: ExportNamed}
}

// starFrom is `export * from target`.
func starFrom(target string) Export {
	return Export{Name: StarExportName, Local: StarExportName, Kind: ExportStarReExport, ReExportedFrom: target, ReExportTarget: idPtr(target)}
}

// reExportFrom is `export { local as name } from target`.
func reExportFrom(target, local, name string) Export {
	return Export{Name: name, Local: local, Kind: ExportReExport, ReExportedFrom: target, ReExportTarget: idPtr(target)}
}

func importFrom(target string, kind ImportKind, specs ...ImportSpecifier) Import {
	return Import{Source: "./" + target, Kind: kind, Specifiers: specs, ResolvedTo: idPtr(target)}
}

// buildGraph inserts modules in order.
func buildGraph(mods ...*Module) *ModuleGraph {
	g := NewModuleGraph()
	for _, m := range mods {
		if err := g.AddModule(m); err != nil {
			panic(err)
		}
	}
	return g
}
