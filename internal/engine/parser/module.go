// # internal/engine/parser/module.go
package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"modgraph/internal/engine/graph"
)

// moduleExtractor collects the import/export structure of one program.
type moduleExtractor struct {
	esm      bool
	commonJS bool
	calls    *ExtractorEngine
}

func extractModule(root *sitter.Node, source []byte) *ParseResult {
	res := &ParseResult{Format: graph.FormatUnknown}
	ctx := &ExtractionContext{Source: source, Result: res}

	m := &moduleExtractor{}
	m.calls = NewExtractorEngine(map[string]NodeHandler{
		"call_expression": m.extractCall,
	})
	engine := NewExtractorEngine(map[string]NodeHandler{
		"import_statement":    m.extractImport,
		"export_statement":    m.extractExport,
		"call_expression":     m.extractCall,
		"internal_module":     m.walkCalls,
		"ambient_declaration": m.walkCalls,
	})
	engine.Walk(ctx, root)

	res.HasSideEffects = m.topLevelEffects(ctx, root)
	switch {
	case m.esm:
		res.Format = graph.FormatESM
	case m.commonJS:
		res.Format = graph.FormatCommonJS
	}
	return res
}

// walkCalls only looks for dynamic imports and require calls below node, so
// exports nested in namespaces and ambient modules are not taken as module
// exports.
func (m *moduleExtractor) walkCalls(ctx *ExtractionContext, node *sitter.Node) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		m.calls.Walk(ctx, node.Child(i))
	}
	return true
}

func (m *moduleExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	m.esm = true

	if req := childOfKind(node, "import_require_clause"); req != nil {
		source, ok := stringValue(ctx.Source, req.ChildByFieldName("source"))
		if !ok {
			return true
		}
		var specs []graph.ImportSpecifier
		if name := childOfKind(req, "identifier"); name != nil {
			specs = append(specs, graph.NamespaceSpecifier(ctx.Text(name)))
		}
		m.addImport(ctx, node, source, specs, graph.ImportRequire)
		return true
	}

	source, ok := stringValue(ctx.Source, node.ChildByFieldName("source"))
	if !ok {
		return true
	}
	kind := graph.ImportStatic
	if hasToken(node, "type") {
		kind = graph.ImportTypeOnly
	}
	var specs []graph.ImportSpecifier
	if clause := childOfKind(node, "import_clause"); clause != nil {
		var allTypes bool
		specs, allTypes = m.importClause(ctx, clause)
		if allTypes {
			kind = graph.ImportTypeOnly
		}
	}
	m.addImport(ctx, node, source, specs, kind)
	return true
}

// importClause returns the bindings of an import clause and whether every
// binding is an inline `type` specifier.
func (m *moduleExtractor) importClause(ctx *ExtractionContext, clause *sitter.Node) ([]graph.ImportSpecifier, bool) {
	var specs []graph.ImportSpecifier
	allTypes := true
	for _, child := range namedChildren(clause) {
		switch child.Kind() {
		case "identifier":
			specs = append(specs, graph.DefaultSpecifier(ctx.Text(child)))
			allTypes = false
		case "namespace_import":
			if name := childOfKind(child, "identifier"); name != nil {
				specs = append(specs, graph.NamespaceSpecifier(ctx.Text(name)))
			}
			allTypes = false
		case "named_imports":
			for _, spec := range namedChildren(child) {
				if spec.Kind() != "import_specifier" {
					continue
				}
				imported := exportName(ctx.Source, spec.ChildByFieldName("name"))
				local := ctx.Text(spec.ChildByFieldName("alias"))
				if imported == "default" {
					specs = append(specs, graph.DefaultSpecifier(local))
				} else {
					specs = append(specs, graph.NamedSpecifier(imported, local))
				}
				if !hasToken(spec, "type") {
					allTypes = false
				}
			}
		}
	}
	return specs, allTypes && len(specs) > 0
}

func (m *moduleExtractor) addImport(ctx *ExtractionContext, node *sitter.Node, source string, specs []graph.ImportSpecifier, kind graph.ImportKind) {
	ctx.Result.Imports = append(ctx.Result.Imports, graph.CollectedImport{
		Source:     source,
		Specifiers: specs,
		Kind:       kind,
		Span:       ctx.Span(node),
	})
}

func (m *moduleExtractor) extractExport(ctx *ExtractionContext, node *sitter.Node) bool {
	m.esm = true
	span := ctx.Span(node)
	add := func(exp graph.CollectedExport) {
		exp.Span = span
		ctx.Result.Exports = append(ctx.Result.Exports, exp)
	}

	sourceNode := node.ChildByFieldName("source")
	source, hasSource := stringValue(ctx.Source, sourceNode)
	typeOnly := hasToken(node, "type")

	if decl := node.ChildByFieldName("declaration"); decl != nil {
		if hasToken(node, "default") {
			names := declaredNames(ctx.Source, decl)
			local := ""
			if len(names) > 0 {
				local = names[0]
			}
			add(graph.CollectedExport{Kind: graph.CollectedDefault, Exported: "default", Local: local})
		} else {
			isType := isTypeDeclaration(decl)
			for _, name := range declaredNames(ctx.Source, decl) {
				add(graph.CollectedExport{Kind: graph.CollectedNamed, Exported: name, Local: name, IsTypeOnly: isType})
			}
		}
		m.calls.Walk(ctx, decl)
		return true
	}

	if value := node.ChildByFieldName("value"); value != nil || hasToken(node, "default") || hasToken(node, "=") {
		exp := graph.CollectedExport{Kind: graph.CollectedDefault, Exported: "default"}
		if value == nil {
			// export = expr
			for _, child := range namedChildren(node) {
				value = child
			}
			exp.CameFromCommonJS = true
		}
		if value != nil {
			switch value.Kind() {
			case "identifier":
				exp.Local = ctx.Text(value)
			case "function_expression", "function", "generator_function", "class":
				exp.Local = ctx.Text(value.ChildByFieldName("name"))
			}
		}
		add(exp)
		m.calls.Walk(ctx, value)
		return true
	}

	if ns := childOfKind(node, "namespace_export"); ns != nil {
		if !hasSource {
			return true
		}
		name := ""
		for _, child := range namedChildren(ns) {
			name = exportName(ctx.Source, child)
		}
		add(graph.CollectedExport{Kind: graph.CollectedAll, Exported: name, Source: source, IsTypeOnly: typeOnly})
		return true
	}

	if clause := childOfKind(node, "export_clause"); clause != nil {
		for _, spec := range namedChildren(clause) {
			if spec.Kind() != "export_specifier" {
				continue
			}
			local := exportName(ctx.Source, spec.ChildByFieldName("name"))
			exported := local
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				exported = exportName(ctx.Source, alias)
			}
			exp := graph.CollectedExport{
				Kind:       graph.CollectedNamed,
				Exported:   exported,
				Local:      local,
				IsTypeOnly: typeOnly || hasToken(spec, "type"),
			}
			if hasSource {
				exp.Source = source
			} else if exported == "default" {
				exp.Kind = graph.CollectedDefault
			}
			add(exp)
		}
		return true
	}

	if hasSource && hasToken(node, "*") {
		add(graph.CollectedExport{Kind: graph.CollectedAll, Source: source, IsTypeOnly: typeOnly})
	}
	return true
}

func (m *moduleExtractor) extractCall(ctx *ExtractionContext, node *sitter.Node) bool {
	fn := node.ChildByFieldName("function")
	args := node.ChildByFieldName("arguments")
	if fn == nil || args == nil {
		return false
	}
	argv := namedChildren(args)
	if len(argv) == 0 {
		return false
	}
	switch {
	case fn.Kind() == "import":
		if source, ok := stringValue(ctx.Source, argv[0]); ok {
			specs := []graph.ImportSpecifier{graph.NamespaceSpecifier("*")}
			m.addImport(ctx, node, source, specs, graph.ImportDynamic)
		}
	case fn.Kind() == "identifier" && ctx.Text(fn) == "require":
		if source, ok := stringValue(ctx.Source, argv[0]); ok {
			m.commonJS = true
			m.addImport(ctx, node, source, requireBindings(ctx, node), graph.ImportRequire)
		}
	}
	return false
}

// requireBindings derives specifiers from how the result of require() is
// consumed.
func requireBindings(ctx *ExtractionContext, call *sitter.Node) []graph.ImportSpecifier {
	parent := call.Parent()
	if parent == nil {
		return nil
	}
	switch parent.Kind() {
	case "expression_statement":
		return nil
	case "member_expression":
		if prop := parent.ChildByFieldName("property"); prop != nil {
			return []graph.ImportSpecifier{graph.NamedSpecifier(ctx.Text(prop), "")}
		}
	case "variable_declarator":
		name := parent.ChildByFieldName("name")
		if name == nil {
			break
		}
		switch name.Kind() {
		case "identifier":
			return []graph.ImportSpecifier{graph.NamespaceSpecifier(ctx.Text(name))}
		case "object_pattern":
			var specs []graph.ImportSpecifier
			for _, prop := range namedChildren(name) {
				switch prop.Kind() {
				case "shorthand_property_identifier_pattern":
					specs = append(specs, graph.NamedSpecifier(ctx.Text(prop), ""))
				case "pair_pattern":
					key := ctx.Text(prop.ChildByFieldName("key"))
					local := ctx.Text(prop.ChildByFieldName("value"))
					specs = append(specs, graph.NamedSpecifier(trimQuoted(key), local))
				}
			}
			return specs
		}
	}
	return []graph.ImportSpecifier{graph.NamespaceSpecifier("*")}
}

// topLevelEffects reports whether any top-level statement does more than
// import, export a declaration or declare pure bindings. CommonJS export
// assignments are recorded as exports along the way.
func (m *moduleExtractor) topLevelEffects(ctx *ExtractionContext, root *sitter.Node) bool {
	effects := false
	for _, stmt := range namedChildren(root) {
		switch stmt.Kind() {
		case "import_statement", "empty_statement", "hash_bang_line",
			"function_declaration", "generator_function_declaration", "function_signature",
			"class_declaration", "abstract_class_declaration",
			"interface_declaration", "type_alias_declaration", "enum_declaration",
			"ambient_declaration", "internal_module", "module", "import_alias":
		case "export_statement":
			if value := stmt.ChildByFieldName("value"); value != nil && hasEffects(ctx.Source, value) {
				effects = true
			}
		case "lexical_declaration", "variable_declaration":
			if hasEffects(ctx.Source, stmt) {
				effects = true
			}
		case "expression_statement":
			if isDirective(stmt) {
				continue
			}
			if m.commonJSExport(ctx, stmt) {
				continue
			}
			effects = true
		default:
			effects = true
		}
	}
	return effects
}

// commonJSExport records `module.exports = ...`, `module.exports.x = ...`
// and `exports.x = ...` assignments.
func (m *moduleExtractor) commonJSExport(ctx *ExtractionContext, stmt *sitter.Node) bool {
	children := namedChildren(stmt)
	if len(children) != 1 || children[0].Kind() != "assignment_expression" {
		return false
	}
	assign := children[0]
	left := assign.ChildByFieldName("left")
	right := assign.ChildByFieldName("right")
	if left == nil || left.Kind() != "member_expression" {
		return false
	}
	target := ctx.Text(left.ChildByFieldName("object"))
	prop := ctx.Text(left.ChildByFieldName("property"))
	span := ctx.Span(stmt)

	switch {
	case target == "module" && prop == "exports":
		m.commonJS = true
		ctx.Result.Exports = append(ctx.Result.Exports, graph.CollectedExport{
			Kind: graph.CollectedDefault, Exported: "default", CameFromCommonJS: true, Span: span,
		})
		if right != nil && right.Kind() == "object" {
			for _, member := range namedChildren(right) {
				name := ""
				switch member.Kind() {
				case "shorthand_property_identifier":
					name = ctx.Text(member)
				case "pair", "method_definition":
					key := member.ChildByFieldName("key")
					if key == nil {
						key = member.ChildByFieldName("name")
					}
					name = trimQuoted(ctx.Text(key))
				}
				if name != "" {
					ctx.Result.Exports = append(ctx.Result.Exports, graph.CollectedExport{
						Kind: graph.CollectedNamed, Exported: name, Local: name, CameFromCommonJS: true, Span: span,
					})
				}
			}
		}
	case target == "exports" || target == "module.exports":
		m.commonJS = true
		ctx.Result.Exports = append(ctx.Result.Exports, graph.CollectedExport{
			Kind: graph.CollectedNamed, Exported: prop, Local: prop, CameFromCommonJS: true, Span: span,
		})
	default:
		return false
	}
	return right == nil || !hasEffects(ctx.Source, right)
}

// hasEffects reports calls other than require, constructions, assignments
// or updates below node. Function and class bodies are not evaluated at
// declaration time and are skipped.
func hasEffects(source []byte, node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch node.Kind() {
	case "arrow_function", "function_expression", "function", "generator_function",
		"class", "class_body", "statement_block":
		return false
	case "call_expression":
		// require() loads a dependency like an import does.
		fn := node.ChildByFieldName("function")
		return fn == nil || fn.Kind() != "identifier" || nodeText(source, fn) != "require"
	case "new_expression", "assignment_expression",
		"augmented_assignment_expression", "update_expression",
		"await_expression", "yield_expression":
		return true
	case "unary_expression":
		if hasToken(node, "delete") {
			return true
		}
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if hasEffects(source, node.Child(i)) {
			return true
		}
	}
	return false
}

func isDirective(stmt *sitter.Node) bool {
	children := namedChildren(stmt)
	return len(children) == 1 && children[0].Kind() == "string"
}

func isTypeDeclaration(decl *sitter.Node) bool {
	switch decl.Kind() {
	case "interface_declaration", "type_alias_declaration":
		return true
	case "ambient_declaration":
		if children := namedChildren(decl); len(children) > 0 {
			return isTypeDeclaration(children[0])
		}
	}
	return false
}

// declaredNames returns the bindings introduced by a declaration.
func declaredNames(source []byte, decl *sitter.Node) []string {
	switch decl.Kind() {
	case "lexical_declaration", "variable_declaration":
		var names []string
		for _, child := range namedChildren(decl) {
			if child.Kind() == "variable_declarator" {
				names = append(names, patternNames(source, child.ChildByFieldName("name"))...)
			}
		}
		return names
	case "ambient_declaration":
		for _, child := range namedChildren(decl) {
			if names := declaredNames(source, child); len(names) > 0 {
				return names
			}
		}
		return nil
	}
	if name := decl.ChildByFieldName("name"); name != nil {
		return []string{nodeText(source, name)}
	}
	return nil
}

// patternNames flattens a binding pattern into the identifiers it binds.
func patternNames(source []byte, node *sitter.Node) []string {
	if node == nil {
		return nil
	}
	switch node.Kind() {
	case "identifier", "shorthand_property_identifier_pattern":
		return []string{nodeText(source, node)}
	case "pair_pattern":
		return patternNames(source, node.ChildByFieldName("value"))
	case "assignment_pattern", "object_assignment_pattern":
		return patternNames(source, node.ChildByFieldName("left"))
	case "object_pattern", "array_pattern", "rest_pattern":
		var names []string
		for _, child := range namedChildren(node) {
			names = append(names, patternNames(source, child)...)
		}
		return names
	}
	return nil
}

// exportName returns the text of an identifier or string module export name.
func exportName(source []byte, node *sitter.Node) string {
	if node == nil {
		return ""
	}
	if value, ok := stringValue(source, node); ok {
		return value
	}
	return nodeText(source, node)
}
