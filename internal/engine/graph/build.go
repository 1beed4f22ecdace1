package graph

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"modgraph/internal/core/errors"
	"modgraph/internal/shared/observability"
)

// FromCollection builds a graph from walk output. Only imports whose target
// was collected get a ResolvedTo; everything else is aggregated as an
// external dependency under its raw specifier.
func FromCollection(ctx context.Context, state *CollectionState) (*ModuleGraph, error) {
	if state == nil {
		return nil, errors.New(errors.CodeValidationError, "collection state must not be nil")
	}
	ctx, span := observability.Tracer.Start(ctx, "graph.FromCollection",
		trace.WithAttributes(attribute.Int("modules", len(state.Modules))))
	defer span.End()

	keys := state.Keys()
	ids := make(map[string]ModuleID, len(keys))
	for _, key := range keys {
		id, err := NewModuleID(key)
		if err != nil {
			return nil, errors.AddContext(err, errors.CtxPath, key)
		}
		ids[key] = id
	}

	entries := make(map[string]bool, len(state.EntryPoints))
	for _, key := range state.EntryPoints {
		entries[key] = true
	}

	g := NewModuleGraph()
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		collected := state.Modules[key]
		mod := convertModule(ids[key], key, collected, ids)
		mod.IsEntry = collected.IsEntry || entries[key]
		if err := g.AddModule(mod); err != nil {
			return nil, fmt.Errorf("add module %s: %w", key, err)
		}
	}
	for _, key := range state.EntryPoints {
		if id, ok := ids[key]; ok {
			g.AddEntryPoint(id)
		}
	}
	return g, nil
}

func convertModule(id ModuleID, key string, collected *CollectedModule, ids map[string]ModuleID) *Module {
	path := collected.Path
	if path == "" {
		path = key
	}
	mod := NewModule(id, path)
	mod.HasSideEffects = collected.HasSideEffects
	mod.IsExternal = collected.IsExternal
	mod.OriginalSize = len(collected.Code)
	if collected.Format != "" {
		mod.ModuleFormat = collected.Format
	}

	for _, ci := range collected.Imports {
		imp := Import{
			Source:     ci.Source,
			Specifiers: append([]ImportSpecifier(nil), ci.Specifiers...),
			Kind:       ci.Kind,
			Span:       ci.Span,
		}
		if target, ok := ids[ci.ResolvedPath]; ok && ci.ResolvedPath != "" {
			imp.ResolvedTo = &target
		}
		mod.Imports = append(mod.Imports, imp)
	}

	localNames := make([]string, 0, len(collected.Exports))
	for _, ce := range collected.Exports {
		exp := convertExport(ce, ids)
		if exp.Kind == ExportStarReExport {
			mod.HasStarExports = true
		}
		mod.Exports = append(mod.Exports, exp)

		if !ce.IsReExport() {
			localNames = append(localNames, exp.Name)
			if ce.Local != "" && ce.Local != exp.Name {
				localNames = append(localNames, ce.Local)
			}
		}
	}

	mod.SymbolTable = collected.Symbols.Clone()
	mod.SymbolTable.MarkExports(localNames)
	return mod
}

func convertExport(ce CollectedExport, ids map[string]ModuleID) Export {
	exp := Export{
		Name:             ce.Exported,
		Local:            ce.Local,
		IsTypeOnly:       ce.IsTypeOnly,
		CameFromCommonJS: ce.CameFromCommonJS,
		Span:             ce.Span,
	}
	if ce.IsReExport() {
		exp.ReExportedFrom = ce.Source
		if target, ok := ids[ce.ResolvedPath]; ok && ce.ResolvedPath != "" {
			exp.ReExportedFrom = target.String()
			exp.ReExportTarget = &target
		}
	}

	switch {
	case ce.Kind == CollectedAll && ce.Exported == "":
		exp.Name = StarExportName
		exp.Local = StarExportName
		exp.Kind = ExportStarReExport
	case ce.Kind == CollectedAll:
		exp.Local = StarExportName
		exp.Kind = ExportReExport
	case ce.IsReExport():
		exp.Kind = ExportReExport
		if exp.Local == "" {
			exp.Local = exp.Name
		}
	case ce.Kind == CollectedDefault:
		exp.Name = "default"
		exp.Kind = ExportDefault
	case ce.IsTypeOnly:
		exp.Kind = ExportTypeOnly
	default:
		exp.Kind = ExportNamed
	}
	return exp
}
