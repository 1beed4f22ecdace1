package graph

import "sort"

// SymbolKind is the declaration form of a symbol.
type SymbolKind string

const (
	SymbolVariable         SymbolKind = "variable"
	SymbolFunction         SymbolKind = "function"
	SymbolClass            SymbolKind = "class"
	SymbolParameter        SymbolKind = "parameter"
	SymbolTypeAlias        SymbolKind = "type-alias"
	SymbolInterface        SymbolKind = "interface"
	SymbolEnum             SymbolKind = "enum"
	SymbolImport           SymbolKind = "import"
	SymbolClassProperty    SymbolKind = "class-property"
	SymbolClassMethod      SymbolKind = "class-method"
	SymbolClassGetter      SymbolKind = "class-getter"
	SymbolClassSetter      SymbolKind = "class-setter"
	SymbolClassConstructor SymbolKind = "class-constructor"
	SymbolEnumMember       SymbolKind = "enum-member"
)

// IsSafelyRemovable reports whether an unused symbol of this kind can be
// deleted without touching other declarations.
func (k SymbolKind) IsSafelyRemovable() bool {
	switch k {
	case SymbolVariable, SymbolFunction, SymbolClass, SymbolTypeAlias, SymbolInterface:
		return true
	}
	return false
}

func (k SymbolKind) IsClassMember() bool {
	switch k {
	case SymbolClassProperty, SymbolClassMethod, SymbolClassGetter, SymbolClassSetter, SymbolClassConstructor:
		return true
	}
	return false
}

// SymbolSpan is the declaration position; Line and Column are 1-based.
type SymbolSpan struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityProtected Visibility = "protected"
)

type MetadataKind string

const (
	MetadataNone        MetadataKind = ""
	MetadataClassMember MetadataKind = "class-member"
	MetadataEnumMember  MetadataKind = "enum-member"
	MetadataCodeQuality MetadataKind = "code-quality"
)

// SymbolMetadata is a tagged union: exactly the field matching Kind is set.
type SymbolMetadata struct {
	Kind        MetadataKind         `json:"kind,omitempty"`
	ClassMember *ClassMemberMetadata `json:"class_member,omitempty"`
	EnumMember  *EnumMemberMetadata  `json:"enum_member,omitempty"`
	CodeQuality *CodeQualityMetadata `json:"code_quality,omitempty"`
}

type ClassMemberMetadata struct {
	Visibility Visibility `json:"visibility"`
	IsStatic   bool       `json:"is_static"`
	ClassName  string     `json:"class_name"`
	IsAccessor bool       `json:"is_accessor"`
	IsAbstract bool       `json:"is_abstract"`
	IsReadonly bool       `json:"is_readonly"`
}

type EnumValueKind string

const (
	EnumValueNumber   EnumValueKind = "number"
	EnumValueString   EnumValueKind = "string"
	EnumValueComputed EnumValueKind = "computed"
)

type EnumMemberValue struct {
	Kind   EnumValueKind `json:"kind"`
	Number int64         `json:"number,omitempty"`
	String string        `json:"string,omitempty"`
}

type EnumMemberMetadata struct {
	EnumName string           `json:"enum_name"`
	Value    *EnumMemberValue `json:"value,omitempty"`
}

// CodeQualityMetadata holds per-declaration metrics. Nil fields were not
// measured for the declaration kind.
type CodeQualityMetadata struct {
	LineCount       *int `json:"line_count,omitempty"`
	ParameterCount  *int `json:"parameter_count,omitempty"`
	Complexity      *int `json:"complexity,omitempty"`
	MaxNestingDepth *int `json:"max_nesting_depth,omitempty"`
	ReturnCount     *int `json:"return_count,omitempty"`
	MethodCount     *int `json:"method_count,omitempty"`
	FieldCount      *int `json:"field_count,omitempty"`
}

func ClassMemberMeta(m ClassMemberMetadata) SymbolMetadata {
	return SymbolMetadata{Kind: MetadataClassMember, ClassMember: &m}
}

func EnumMemberMeta(m EnumMemberMetadata) SymbolMetadata {
	return SymbolMetadata{Kind: MetadataEnumMember, EnumMember: &m}
}

func CodeQualityMeta(m CodeQualityMetadata) SymbolMetadata {
	return SymbolMetadata{Kind: MetadataCodeQuality, CodeQuality: &m}
}

func (m SymbolMetadata) clone() SymbolMetadata {
	out := SymbolMetadata{Kind: m.Kind}
	if m.ClassMember != nil {
		c := *m.ClassMember
		out.ClassMember = &c
	}
	if m.EnumMember != nil {
		e := *m.EnumMember
		if m.EnumMember.Value != nil {
			v := *m.EnumMember.Value
			e.Value = &v
		}
		out.EnumMember = &e
	}
	if m.CodeQuality != nil {
		q := *m.CodeQuality
		out.CodeQuality = &q
	}
	return out
}

// Symbol is a named declaration within one module.
type Symbol struct {
	Name            string         `json:"name"`
	Kind            SymbolKind     `json:"kind"`
	DeclarationSpan SymbolSpan     `json:"declaration_span"`
	ReadCount       int            `json:"read_count"`
	WriteCount      int            `json:"write_count"`
	IsExported      bool           `json:"is_exported"`
	ScopeID         int            `json:"scope_id"`
	Metadata        SymbolMetadata `json:"metadata"`
}

// ModuleScopeID is the scope of a module's top-level declarations.
const ModuleScopeID = 0

func NewSymbol(name string, kind SymbolKind, span SymbolSpan, scopeID int) Symbol {
	return Symbol{Name: name, Kind: kind, DeclarationSpan: span, ScopeID: scopeID}
}

// IsUnused reports dead symbols. The declaring write does not count as use,
// so a symbol is unused when it is not exported, never read and written at
// most once.
func (s Symbol) IsUnused() bool {
	return !s.IsExported && s.ReadCount == 0 && s.WriteCount <= 1
}

func (s Symbol) ClassMember() (*ClassMemberMetadata, bool) {
	if s.Metadata.Kind == MetadataClassMember && s.Metadata.ClassMember != nil {
		return s.Metadata.ClassMember, true
	}
	return nil, false
}

func (s Symbol) EnumMember() (*EnumMemberMetadata, bool) {
	if s.Metadata.Kind == MetadataEnumMember && s.Metadata.EnumMember != nil {
		return s.Metadata.EnumMember, true
	}
	return nil, false
}

func (s Symbol) CodeQuality() (*CodeQualityMetadata, bool) {
	if s.Metadata.Kind == MetadataCodeQuality && s.Metadata.CodeQuality != nil {
		return s.Metadata.CodeQuality, true
	}
	return nil, false
}

// SymbolTable tracks the symbols declared in one module.
type SymbolTable struct {
	Symbols    []Symbol `json:"symbols"`
	ScopeCount int      `json:"scope_count"`
}

func (t *SymbolTable) AddSymbol(s Symbol) {
	t.Symbols = append(t.Symbols, s)
}

func (t SymbolTable) Len() int {
	return len(t.Symbols)
}

func (t SymbolTable) UnusedSymbols() []Symbol {
	var out []Symbol
	for _, s := range t.Symbols {
		if s.IsUnused() {
			out = append(out, s)
		}
	}
	return out
}

func (t SymbolTable) SymbolsByName(name string) []Symbol {
	var out []Symbol
	for _, s := range t.Symbols {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// MarkExports sets IsExported on every top-level, non-member symbol whose
// name is in names.
func (t *SymbolTable) MarkExports(names []string) {
	if len(names) == 0 {
		return
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	for i := range t.Symbols {
		s := &t.Symbols[i]
		if s.ScopeID != ModuleScopeID || s.Kind.IsClassMember() || s.Kind == SymbolEnumMember || s.Kind == SymbolParameter {
			continue
		}
		if set[s.Name] {
			s.IsExported = true
		}
	}
}

// EnumMembersByEnum groups enum members under their owning enum.
func (t SymbolTable) EnumMembersByEnum() map[string][]Symbol {
	out := make(map[string][]Symbol)
	for _, s := range t.Symbols {
		if meta, ok := s.EnumMember(); ok {
			out[meta.EnumName] = append(out[meta.EnumName], s)
		}
	}
	return out
}

// UnusedEnumMembers returns enum members that are unused symbols.
func (t SymbolTable) UnusedEnumMembers() []Symbol {
	var out []Symbol
	for _, s := range t.Symbols {
		if s.Kind == SymbolEnumMember && s.IsUnused() {
			out = append(out, s)
		}
	}
	return out
}

func (t SymbolTable) Clone() SymbolTable {
	out := SymbolTable{ScopeCount: t.ScopeCount}
	if t.Symbols != nil {
		out.Symbols = make([]Symbol, len(t.Symbols))
		for i, s := range t.Symbols {
			s.Metadata = s.Metadata.clone()
			out.Symbols[i] = s
		}
	}
	return out
}

// SymbolStatistics summarizes symbol usage across a table or a graph.
type SymbolStatistics struct {
	Total  int                `json:"total"`
	Unused int                `json:"unused"`
	ByKind map[SymbolKind]int `json:"by_kind"`
}

func NewSymbolStatistics(symbols []Symbol) SymbolStatistics {
	stats := SymbolStatistics{ByKind: make(map[SymbolKind]int)}
	for _, s := range symbols {
		stats.Total++
		stats.ByKind[s.Kind]++
		if s.IsUnused() {
			stats.Unused++
		}
	}
	return stats
}

func (s SymbolStatistics) UnusedPercentage() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Unused) / float64(s.Total) * 100
}

// Kinds returns the recorded kinds in sorted order.
func (s SymbolStatistics) Kinds() []SymbolKind {
	kinds := make([]SymbolKind, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
