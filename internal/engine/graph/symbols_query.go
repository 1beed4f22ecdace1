package graph

// ModuleSymbol pairs a symbol with the module declaring it.
type ModuleSymbol struct {
	ModuleID ModuleID `json:"module_id"`
	Symbol   Symbol   `json:"symbol"`
}

// ClassMemberInfo is a class member together with its metadata.
type ClassMemberInfo struct {
	ModuleID ModuleID            `json:"module_id"`
	Symbol   Symbol              `json:"symbol"`
	Metadata ClassMemberMetadata `json:"metadata"`
}

// EnumMemberInfo is an enum member together with its initializer value.
type EnumMemberInfo struct {
	ModuleID ModuleID         `json:"module_id"`
	Symbol   Symbol           `json:"symbol"`
	Value    *EnumMemberValue `json:"value,omitempty"`
}

// eachSymbol visits every symbol in module id order under the read lock.
func (g *ModuleGraph) eachSymbol(fn func(id ModuleID, s Symbol)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, id := range sortedIDs(g.modules) {
		for _, s := range g.modules[id].SymbolTable.Clone().Symbols {
			fn(id, s)
		}
	}
}

func (g *ModuleGraph) UnusedSymbols() []ModuleSymbol {
	var out []ModuleSymbol
	g.eachSymbol(func(id ModuleID, s Symbol) {
		if s.IsUnused() {
			out = append(out, ModuleSymbol{ModuleID: id, Symbol: s})
		}
	})
	return out
}

// UnusedSymbolsInModule returns nil when the module is unknown.
func (g *ModuleGraph) UnusedSymbolsInModule(id ModuleID) []Symbol {
	g.mu.RLock()
	defer g.mu.RUnlock()
	mod, ok := g.modules[id]
	if !ok {
		return nil
	}
	return mod.SymbolTable.Clone().UnusedSymbols()
}

func (g *ModuleGraph) AllSymbols() []ModuleSymbol {
	var out []ModuleSymbol
	g.eachSymbol(func(id ModuleID, s Symbol) {
		out = append(out, ModuleSymbol{ModuleID: id, Symbol: s})
	})
	return out
}

func (g *ModuleGraph) SymbolStatistics() SymbolStatistics {
	var all []Symbol
	g.eachSymbol(func(_ ModuleID, s Symbol) {
		all = append(all, s)
	})
	return NewSymbolStatistics(all)
}

// UnusedPrivateClassMembers groups unused private members by class name.
func (g *ModuleGraph) UnusedPrivateClassMembers() map[string][]ModuleSymbol {
	out := make(map[string][]ModuleSymbol)
	g.eachSymbol(func(id ModuleID, s Symbol) {
		meta, ok := s.ClassMember()
		if !ok || !s.IsUnused() || meta.Visibility != VisibilityPrivate {
			return
		}
		out[meta.ClassName] = append(out[meta.ClassName], ModuleSymbol{ModuleID: id, Symbol: s})
	})
	return out
}

func (g *ModuleGraph) AllClassMembers() []ClassMemberInfo {
	var out []ClassMemberInfo
	g.eachSymbol(func(id ModuleID, s Symbol) {
		if meta, ok := s.ClassMember(); ok {
			out = append(out, ClassMemberInfo{ModuleID: id, Symbol: s, Metadata: *meta})
		}
	})
	return out
}

// UnusedPublicClassMembers lists unused members that are not private.
// Removing them can break callers outside the analyzed project.
func (g *ModuleGraph) UnusedPublicClassMembers() []ModuleSymbol {
	var out []ModuleSymbol
	g.eachSymbol(func(id ModuleID, s Symbol) {
		meta, ok := s.ClassMember()
		if ok && s.IsUnused() && meta.Visibility != VisibilityPrivate {
			out = append(out, ModuleSymbol{ModuleID: id, Symbol: s})
		}
	})
	return out
}

// UnusedEnumMembers groups unused enum members by enum name.
func (g *ModuleGraph) UnusedEnumMembers() map[string][]ModuleSymbol {
	out := make(map[string][]ModuleSymbol)
	g.eachSymbol(func(id ModuleID, s Symbol) {
		meta, ok := s.EnumMember()
		if !ok || s.Kind != SymbolEnumMember || !s.IsUnused() {
			return
		}
		out[meta.EnumName] = append(out[meta.EnumName], ModuleSymbol{ModuleID: id, Symbol: s})
	})
	return out
}

func (g *ModuleGraph) AllEnumMembers() map[string][]EnumMemberInfo {
	out := make(map[string][]EnumMemberInfo)
	g.eachSymbol(func(id ModuleID, s Symbol) {
		if meta, ok := s.EnumMember(); ok {
			out[meta.EnumName] = append(out[meta.EnumName], EnumMemberInfo{ModuleID: id, Symbol: s, Value: meta.Value})
		}
	})
	return out
}
