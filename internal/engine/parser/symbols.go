// # internal/engine/parser/symbols.go
package parser

import (
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"modgraph/internal/engine/graph"
)

type scope struct {
	id     int
	parent *scope
	names  map[string]int
}

func (s *scope) lookup(name string) (int, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if idx, ok := cur.names[name]; ok {
			return idx, true
		}
	}
	return 0, false
}

type symbolRef struct {
	scope *scope
	name  string
	read  bool
	write bool
}

// memberRef is an access to a class or enum member through `this`, the
// class name or the enum name.
type memberRef struct {
	owner string
	name  string
	read  bool
	write bool
}

// symbolAnalyzer builds a symbol table in one walk and resolves references
// afterwards, so hoisted declarations are found.
type symbolAnalyzer struct {
	source  []byte
	table   graph.SymbolTable
	scopes  int
	refs    []symbolRef
	members []memberRef
	exports []symbolRef
	owners  map[string]map[string]int
	class   string
	anon    int
}

func analyzeSymbols(root *sitter.Node, source []byte) graph.SymbolTable {
	a := &symbolAnalyzer{source: source, owners: make(map[string]map[string]int)}
	program := a.newScope(nil)
	a.walkChildren(root, program)
	a.resolve()
	a.table.ScopeCount = a.scopes
	return a.table
}

func (a *symbolAnalyzer) newScope(parent *scope) *scope {
	s := &scope{id: a.scopes, parent: parent, names: make(map[string]int)}
	a.scopes++
	return s
}

func (a *symbolAnalyzer) text(node *sitter.Node) string {
	return nodeText(a.source, node)
}

func (a *symbolAnalyzer) add(name string, node *sitter.Node, kind graph.SymbolKind, scopeID, writes int, meta graph.SymbolMetadata) int {
	pos := node.StartPosition()
	sym := graph.NewSymbol(name, kind, graph.SymbolSpan{
		Line:   int(pos.Row) + 1,
		Column: int(pos.Column) + 1,
		Offset: int(node.StartByte()),
	}, scopeID)
	sym.WriteCount = writes
	sym.Metadata = meta
	a.table.AddSymbol(sym)
	return len(a.table.Symbols) - 1
}

func (a *symbolAnalyzer) declare(sc *scope, name *sitter.Node, kind graph.SymbolKind, writes int, meta graph.SymbolMetadata) int {
	if name == nil {
		return -1
	}
	text := a.text(name)
	if text == "" {
		return -1
	}
	idx := a.add(text, name, kind, sc.id, writes, meta)
	sc.names[text] = idx
	return idx
}

func (a *symbolAnalyzer) declareMember(owner string, name *sitter.Node, kind graph.SymbolKind, scopeID, writes int, meta graph.SymbolMetadata) {
	if name == nil {
		return
	}
	text := trimQuoted(a.text(name))
	if text == "" {
		return
	}
	idx := a.add(text, name, kind, scopeID, writes, meta)
	if a.owners[owner] == nil {
		a.owners[owner] = make(map[string]int)
	}
	a.owners[owner][text] = idx
}

func (a *symbolAnalyzer) reference(sc *scope, name string, read, write bool) {
	if name == "" {
		return
	}
	a.refs = append(a.refs, symbolRef{scope: sc, name: name, read: read, write: write})
}

func (a *symbolAnalyzer) walkChildren(node *sitter.Node, sc *scope) {
	for _, child := range namedChildren(node) {
		a.walk(child, sc)
	}
}

func (a *symbolAnalyzer) walk(node *sitter.Node, sc *scope) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "import_statement":
		a.importBindings(node, sc)
	case "export_statement":
		a.exportStatement(node, sc)
	case "function_declaration", "generator_function_declaration":
		a.function(node, sc, true)
	case "function_expression", "function", "generator_function", "arrow_function":
		a.function(node, sc, false)
	case "function_signature":
		a.signature(node, sc)
	case "method_definition":
		a.callable(node, sc)
	case "class_declaration", "abstract_class_declaration":
		a.class(node, sc, true)
	case "class":
		a.class(node, sc, false)
	case "lexical_declaration", "variable_declaration":
		a.variables(node, sc)
	case "interface_declaration":
		a.declare(sc, node.ChildByFieldName("name"), graph.SymbolInterface, 0, graph.SymbolMetadata{})
		a.walkExcept(node, sc, "name")
	case "type_alias_declaration":
		a.declare(sc, node.ChildByFieldName("name"), graph.SymbolTypeAlias, 0, graph.SymbolMetadata{})
		a.walkExcept(node, sc, "name")
	case "enum_declaration":
		a.enum(node, sc)
	case "internal_module", "module":
		a.walk(node.ChildByFieldName("body"), sc)
	case "statement_block", "class_static_block":
		a.walkChildren(node, a.newScope(sc))
	case "for_statement":
		a.walkChildren(node, a.newScope(sc))
	case "for_in_statement":
		a.forIn(node, sc)
	case "catch_clause":
		inner := a.newScope(sc)
		a.eachBinding(node.ChildByFieldName("parameter"), inner, func(n *sitter.Node) {
			a.declare(inner, n, graph.SymbolParameter, 0, graph.SymbolMetadata{})
		})
		a.walk(node.ChildByFieldName("body"), inner)
	case "required_parameter", "optional_parameter":
		a.walk(node.ChildByFieldName("type"), sc)
		a.walk(node.ChildByFieldName("value"), sc)
	case "assignment_expression":
		a.target(node.ChildByFieldName("left"), sc, false)
		a.walk(node.ChildByFieldName("right"), sc)
	case "augmented_assignment_expression":
		a.target(node.ChildByFieldName("left"), sc, true)
		a.walk(node.ChildByFieldName("right"), sc)
	case "update_expression":
		a.target(node.ChildByFieldName("argument"), sc, true)
	case "member_expression":
		a.member(node, sc, true, false)
	case "identifier", "type_identifier", "shorthand_property_identifier":
		a.reference(sc, a.text(node), true, false)
	case "labeled_statement":
		a.walk(node.ChildByFieldName("body"), sc)
	default:
		a.walkChildren(node, sc)
	}
}

// walkExcept walks every named child except the one held by field.
func (a *symbolAnalyzer) walkExcept(node *sitter.Node, sc *scope, field string) {
	skip := node.ChildByFieldName(field)
	for _, child := range namedChildren(node) {
		if skip != nil && sameNode(child, skip) {
			continue
		}
		a.walk(child, sc)
	}
}

func (a *symbolAnalyzer) importBindings(node *sitter.Node, sc *scope) {
	declare := func(n *sitter.Node) {
		a.declare(sc, n, graph.SymbolImport, 0, graph.SymbolMetadata{})
	}
	if req := childOfKind(node, "import_require_clause"); req != nil {
		declare(childOfKind(req, "identifier"))
		return
	}
	clause := childOfKind(node, "import_clause")
	for _, child := range namedChildren(clause) {
		switch child.Kind() {
		case "identifier":
			declare(child)
		case "namespace_import":
			declare(childOfKind(child, "identifier"))
		case "named_imports":
			for _, spec := range namedChildren(child) {
				if spec.Kind() != "import_specifier" {
					continue
				}
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					declare(alias)
				} else {
					declare(spec.ChildByFieldName("name"))
				}
			}
		}
	}
}

func (a *symbolAnalyzer) exportStatement(node *sitter.Node, sc *scope) {
	if node.ChildByFieldName("source") != nil {
		return
	}
	if decl := node.ChildByFieldName("declaration"); decl != nil {
		before := len(a.table.Symbols)
		a.walk(decl, sc)
		for i := before; i < len(a.table.Symbols); i++ {
			s := &a.table.Symbols[i]
			if s.ScopeID == sc.id && !s.Kind.IsClassMember() && s.Kind != graph.SymbolEnumMember && s.Kind != graph.SymbolParameter {
				s.IsExported = true
			}
		}
		return
	}
	if value := node.ChildByFieldName("value"); value != nil {
		if value.Kind() == "identifier" {
			a.exports = append(a.exports, symbolRef{scope: sc, name: a.text(value)})
			return
		}
		a.walk(value, sc)
		return
	}
	for _, child := range namedChildren(node) {
		switch child.Kind() {
		case "export_clause":
			for _, spec := range namedChildren(child) {
				if spec.Kind() == "export_specifier" {
					a.exports = append(a.exports, symbolRef{scope: sc, name: a.text(spec.ChildByFieldName("name"))})
				}
			}
		case "identifier":
			// export = name
			a.exports = append(a.exports, symbolRef{scope: sc, name: a.text(child)})
		default:
			a.walk(child, sc)
		}
	}
}

func (a *symbolAnalyzer) function(node *sitter.Node, sc *scope, declaration bool) {
	name := node.ChildByFieldName("name")
	if declaration {
		a.declare(sc, name, graph.SymbolFunction, 0, functionQuality(a.source, node))
		a.callable(node, sc)
		return
	}
	inner := a.callable(node, sc)
	if name != nil {
		a.declare(inner, name, graph.SymbolFunction, 0, functionQuality(a.source, node))
	}
}

// callable opens the scope of a function-like node, declares its parameters
// and walks its body.
func (a *symbolAnalyzer) callable(node *sitter.Node, sc *scope) *scope {
	inner := a.newScope(sc)
	a.walk(node.ChildByFieldName("type_parameters"), inner)
	if param := node.ChildByFieldName("parameter"); param != nil {
		a.declare(inner, param, graph.SymbolParameter, 0, graph.SymbolMetadata{})
	}
	for _, param := range namedChildren(node.ChildByFieldName("parameters")) {
		a.eachBinding(param, inner, func(n *sitter.Node) {
			a.declare(inner, n, graph.SymbolParameter, 0, graph.SymbolMetadata{})
		})
	}
	a.walk(node.ChildByFieldName("return_type"), inner)

	body := node.ChildByFieldName("body")
	if body != nil && body.Kind() == "statement_block" {
		a.walkChildren(body, inner)
	} else {
		a.walk(body, inner)
	}
	return inner
}

// signature walks the type references of an overload or ambient function
// signature without declaring anything.
func (a *symbolAnalyzer) signature(node *sitter.Node, sc *scope) {
	for _, param := range namedChildren(node.ChildByFieldName("parameters")) {
		a.walk(param.ChildByFieldName("type"), sc)
	}
	a.walk(node.ChildByFieldName("return_type"), sc)
}

// eachBinding calls fn for every identifier bound by a pattern and walks
// default values and type annotations as references.
func (a *symbolAnalyzer) eachBinding(node *sitter.Node, sc *scope, fn func(*sitter.Node)) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "identifier", "shorthand_property_identifier_pattern":
		fn(node)
	case "object_pattern", "array_pattern", "rest_pattern":
		for _, child := range namedChildren(node) {
			a.eachBinding(child, sc, fn)
		}
	case "pair_pattern":
		if key := node.ChildByFieldName("key"); key != nil && key.Kind() == "computed_property_name" {
			a.walk(key, sc)
		}
		a.eachBinding(node.ChildByFieldName("value"), sc, fn)
	case "assignment_pattern", "object_assignment_pattern":
		a.eachBinding(node.ChildByFieldName("left"), sc, fn)
		a.walk(node.ChildByFieldName("right"), sc)
	case "required_parameter", "optional_parameter":
		a.eachBinding(node.ChildByFieldName("pattern"), sc, fn)
		a.walk(node.ChildByFieldName("type"), sc)
		a.walk(node.ChildByFieldName("value"), sc)
	case "this", "comment":
	default:
		a.walk(node, sc)
	}
}

func (a *symbolAnalyzer) variables(node *sitter.Node, sc *scope) {
	for _, decl := range namedChildren(node) {
		if decl.Kind() != "variable_declarator" {
			continue
		}
		value := decl.ChildByFieldName("value")
		writes := 0
		if value != nil {
			writes = 1
		}
		a.eachBinding(decl.ChildByFieldName("name"), sc, func(n *sitter.Node) {
			a.declare(sc, n, graph.SymbolVariable, writes, graph.SymbolMetadata{})
		})
		a.walk(decl.ChildByFieldName("type"), sc)
		a.walk(value, sc)
	}
}

func (a *symbolAnalyzer) forIn(node *sitter.Node, sc *scope) {
	inner := a.newScope(sc)
	a.walk(node.ChildByFieldName("right"), sc)
	left := node.ChildByFieldName("left")
	if node.ChildByFieldName("kind") != nil || hasToken(node, "const") || hasToken(node, "let") || hasToken(node, "var") {
		a.eachBinding(left, inner, func(n *sitter.Node) {
			a.declare(inner, n, graph.SymbolVariable, 1, graph.SymbolMetadata{})
		})
	} else {
		a.target(left, inner, false)
	}
	a.walk(node.ChildByFieldName("body"), inner)
}

// target records an assignment target as a write, and as a read too for
// compound assignments and updates.
func (a *symbolAnalyzer) target(node *sitter.Node, sc *scope, alsoRead bool) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "identifier":
		a.reference(sc, a.text(node), alsoRead, true)
	case "member_expression":
		a.member(node, sc, alsoRead, true)
	case "parenthesized_expression":
		for _, child := range namedChildren(node) {
			a.target(child, sc, alsoRead)
		}
	case "object_pattern", "array_pattern":
		a.eachBinding(node, sc, func(n *sitter.Node) {
			a.reference(sc, a.text(n), alsoRead, true)
		})
	default:
		a.walk(node, sc)
	}
}

func (a *symbolAnalyzer) member(node *sitter.Node, sc *scope, read, write bool) {
	obj := node.ChildByFieldName("object")
	prop := a.text(node.ChildByFieldName("property"))
	if obj == nil {
		return
	}
	switch obj.Kind() {
	case "this":
		if a.class != "" {
			a.members = append(a.members, memberRef{owner: a.class, name: prop, read: read, write: write})
		}
	case "identifier":
		a.members = append(a.members, memberRef{owner: a.text(obj), name: prop, read: read, write: write})
		a.reference(sc, a.text(obj), true, false)
	default:
		a.walk(obj, sc)
	}
}

func (a *symbolAnalyzer) class(node *sitter.Node, sc *scope, declaration bool) {
	name := node.ChildByFieldName("name")
	owner := a.text(name)
	inner := a.newScope(sc)
	switch {
	case declaration:
		a.declare(sc, name, graph.SymbolClass, 0, classQuality(node))
	case name != nil:
		a.declare(inner, name, graph.SymbolClass, 0, classQuality(node))
	default:
		owner = a.anonymousClassName(node)
	}

	for _, child := range namedChildren(node) {
		switch child.Kind() {
		case "class_heritage", "type_parameters", "decorator":
			a.walk(child, sc)
		}
	}

	prev := a.class
	a.class = owner
	a.classBody(node.ChildByFieldName("body"), inner, owner)
	a.class = prev
}

// anonymousClassName names a class expression after the variable it is
// assigned to, or numbers it.
func (a *symbolAnalyzer) anonymousClassName(node *sitter.Node) string {
	if parent := node.Parent(); parent != nil && parent.Kind() == "variable_declarator" {
		if name := parent.ChildByFieldName("name"); name != nil && name.Kind() == "identifier" {
			return a.text(name)
		}
	}
	a.anon++
	return fmt.Sprintf("<anonymous class %d>", a.anon)
}

func (a *symbolAnalyzer) classBody(body *sitter.Node, sc *scope, owner string) {
	for _, member := range namedChildren(body) {
		switch member.Kind() {
		case "method_definition":
			a.method(member, sc, owner, false)
		case "abstract_method_signature":
			a.method(member, sc, owner, true)
		case "field_definition", "public_field_definition":
			name := member.ChildByFieldName("name")
			if name == nil {
				name = member.ChildByFieldName("property")
			}
			value := member.ChildByFieldName("value")
			writes := 0
			if value != nil {
				writes = 1
			}
			a.decorators(member, sc)
			meta := a.memberMeta(member, name, owner)
			meta.IsReadonly = hasToken(member, "readonly")
			meta.IsAbstract = hasToken(member, "abstract")
			a.declareMember(owner, name, graph.SymbolClassProperty, sc.id, writes, graph.ClassMemberMeta(meta))
			a.walk(member.ChildByFieldName("type"), sc)
			a.walk(value, sc)
		default:
			a.walk(member, sc)
		}
	}
}

func (a *symbolAnalyzer) method(node *sitter.Node, sc *scope, owner string, abstract bool) {
	name := node.ChildByFieldName("name")
	meta := a.memberMeta(node, name, owner)
	meta.IsAbstract = abstract

	kind := graph.SymbolClassMethod
	switch {
	case a.text(name) == "constructor":
		kind = graph.SymbolClassConstructor
	case hasToken(node, "get"):
		kind = graph.SymbolClassGetter
		meta.IsAccessor = true
	case hasToken(node, "set"):
		kind = graph.SymbolClassSetter
		meta.IsAccessor = true
	}
	a.declareMember(owner, name, kind, sc.id, 0, graph.ClassMemberMeta(meta))
	a.decorators(node, sc)

	if abstract {
		a.signature(node, sc)
		return
	}
	if kind == graph.SymbolClassConstructor {
		a.parameterProperties(node, sc, owner)
	}
	a.callable(node, sc)
}

// parameterProperties declares constructor parameters with an accessibility
// or readonly modifier as class properties.
func (a *symbolAnalyzer) parameterProperties(ctor *sitter.Node, sc *scope, owner string) {
	for _, param := range namedChildren(ctor.ChildByFieldName("parameters")) {
		modifier := childOfKind(param, "accessibility_modifier")
		readonly := hasToken(param, "readonly")
		if modifier == nil && !readonly {
			continue
		}
		name := param.ChildByFieldName("pattern")
		if name == nil || name.Kind() != "identifier" {
			continue
		}
		meta := graph.ClassMemberMetadata{
			Visibility: visibility(a.text(modifier)),
			ClassName:  owner,
			IsReadonly: readonly,
		}
		a.declareMember(owner, name, graph.SymbolClassProperty, sc.id, 1, graph.ClassMemberMeta(meta))
	}
}

func (a *symbolAnalyzer) decorators(node *sitter.Node, sc *scope) {
	for _, child := range namedChildren(node) {
		if child.Kind() == "decorator" {
			a.walk(child, sc)
		}
	}
}

func (a *symbolAnalyzer) memberMeta(node, name *sitter.Node, owner string) graph.ClassMemberMetadata {
	vis := visibility(a.text(childOfKind(node, "accessibility_modifier")))
	if name != nil && name.Kind() == "private_property_identifier" {
		vis = graph.VisibilityPrivate
	}
	return graph.ClassMemberMetadata{
		Visibility: vis,
		IsStatic:   hasToken(node, "static"),
		ClassName:  owner,
	}
}

func visibility(modifier string) graph.Visibility {
	switch strings.TrimSpace(modifier) {
	case "private":
		return graph.VisibilityPrivate
	case "protected":
		return graph.VisibilityProtected
	}
	return graph.VisibilityPublic
}

func (a *symbolAnalyzer) enum(node *sitter.Node, sc *scope) {
	name := node.ChildByFieldName("name")
	a.declare(sc, name, graph.SymbolEnum, 0, graph.SymbolMetadata{})
	owner := a.text(name)
	inner := a.newScope(sc)

	var next int64
	implicit := true
	for _, member := range namedChildren(node.ChildByFieldName("body")) {
		var memberName, value *sitter.Node
		switch member.Kind() {
		case "property_identifier", "string":
			memberName = member
		case "enum_assignment":
			memberName = member.ChildByFieldName("name")
			value = member.ChildByFieldName("value")
		default:
			continue
		}

		var v *graph.EnumMemberValue
		writes := 0
		if value == nil {
			if implicit {
				v = &graph.EnumMemberValue{Kind: graph.EnumValueNumber, Number: next}
				next++
			}
		} else {
			writes = 1
			v = a.enumValue(value)
			implicit = v.Kind == graph.EnumValueNumber
			if implicit {
				next = v.Number + 1
			}
			a.walk(value, sc)
		}
		meta := graph.EnumMemberMeta(graph.EnumMemberMetadata{EnumName: owner, Value: v})
		a.declareMember(owner, memberName, graph.SymbolEnumMember, inner.id, writes, meta)
	}
}

func (a *symbolAnalyzer) enumValue(node *sitter.Node) *graph.EnumMemberValue {
	text := strings.ReplaceAll(a.text(node), "_", "")
	switch node.Kind() {
	case "number":
		if n, err := strconv.ParseInt(text, 0, 64); err == nil {
			return &graph.EnumMemberValue{Kind: graph.EnumValueNumber, Number: n}
		}
	case "unary_expression":
		if n, err := strconv.ParseInt(strings.ReplaceAll(text, " ", ""), 0, 64); err == nil {
			return &graph.EnumMemberValue{Kind: graph.EnumValueNumber, Number: n}
		}
	case "string":
		return &graph.EnumMemberValue{Kind: graph.EnumValueString, String: trimQuoted(a.text(node))}
	}
	return &graph.EnumMemberValue{Kind: graph.EnumValueComputed}
}

func (a *symbolAnalyzer) resolve() {
	for _, ref := range a.refs {
		idx, ok := ref.scope.lookup(ref.name)
		if !ok {
			continue
		}
		s := &a.table.Symbols[idx]
		if ref.read {
			s.ReadCount++
		}
		if ref.write {
			s.WriteCount++
		}
	}
	for _, ref := range a.members {
		idx, ok := a.owners[ref.owner][ref.name]
		if !ok {
			continue
		}
		s := &a.table.Symbols[idx]
		if ref.read {
			s.ReadCount++
		}
		if ref.write {
			s.WriteCount++
		}
	}
	for _, ref := range a.exports {
		if idx, ok := ref.scope.lookup(ref.name); ok {
			a.table.Symbols[idx].IsExported = true
		}
	}
}

func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}
