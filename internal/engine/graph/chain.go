package graph

import (
	"context"
	"strings"
)

// MaxDependencyChainDepth bounds the number of hops a chain may have. Longer
// branches are dropped without error.
const MaxDependencyChainDepth = 50

// DependencyChain is one path from an entry point to a target.
type DependencyChain struct {
	Path  []ModuleID `json:"path"`
	Depth int        `json:"depth"`
}

func NewDependencyChain(path []ModuleID) DependencyChain {
	depth := 0
	if len(path) > 0 {
		depth = len(path) - 1
	}
	return DependencyChain{Path: path, Depth: depth}
}

func (c DependencyChain) EntryPoint() (ModuleID, bool) {
	if len(c.Path) == 0 {
		return "", false
	}
	return c.Path[0], true
}

func (c DependencyChain) Target() (ModuleID, bool) {
	if len(c.Path) == 0 {
		return "", false
	}
	return c.Path[len(c.Path)-1], true
}

// HasCycle reports whether a module appears twice on the path.
func (c DependencyChain) HasCycle() bool {
	seen := make(map[ModuleID]bool, len(c.Path))
	for _, id := range c.Path {
		if seen[id] {
			return true
		}
		seen[id] = true
	}
	return false
}

// Format renders the chain as "a -> b -> c".
func (c DependencyChain) Format() string {
	parts := make([]string, len(c.Path))
	for i, id := range c.Path {
		parts[i] = id.Path()
	}
	return strings.Join(parts, " -> ")
}

// ChainAnalysis aggregates every chain reaching a target.
type ChainAnalysis struct {
	Target          ModuleID          `json:"target"`
	Chains          []DependencyChain `json:"chains"`
	MinDepth        *int              `json:"min_depth,omitempty"`
	MaxDepth        *int              `json:"max_depth,omitempty"`
	AvgDepth        float64           `json:"avg_depth"`
	EntryPointCount int               `json:"entry_point_count"`
}

func NewChainAnalysis(target ModuleID, chains []DependencyChain) ChainAnalysis {
	a := ChainAnalysis{Target: target, Chains: chains}
	if len(chains) == 0 {
		return a
	}
	entries := make(map[ModuleID]bool)
	sum := 0
	for _, c := range chains {
		d := c.Depth
		if a.MinDepth == nil || d < *a.MinDepth {
			a.MinDepth = &d
		}
		if a.MaxDepth == nil || d > *a.MaxDepth {
			dd := d
			a.MaxDepth = &dd
		}
		sum += d
		if entry, ok := c.EntryPoint(); ok {
			entries[entry] = true
		}
	}
	a.AvgDepth = float64(sum) / float64(len(chains))
	a.EntryPointCount = len(entries)
	return a
}

func (a ChainAnalysis) IsReachable() bool {
	return len(a.Chains) > 0
}

// ShortestChain returns the first chain of minimal depth.
func (a ChainAnalysis) ShortestChain() (DependencyChain, bool) {
	if len(a.Chains) == 0 {
		return DependencyChain{}, false
	}
	best := a.Chains[0]
	for _, c := range a.Chains[1:] {
		if c.Depth < best.Depth {
			best = c
		}
	}
	return best, true
}

func (a ChainAnalysis) CircularChains() []DependencyChain {
	var out []DependencyChain
	for _, c := range a.Chains {
		if c.HasCycle() {
			out = append(out, c)
		}
	}
	return out
}

// pathKey identifies a path by its parent path node and last module, so two
// paths are equal exactly when their module sequences are equal.
type pathKey struct {
	parent int
	module ModuleID
}

type pathNode struct {
	key   pathKey
	depth int
}

// FindChains enumerates paths from entries to target breadth first. A path
// is skipped only when the identical sequence was already queued, and
// reaching the target does not stop the branch, so chains through cycles are
// recorded too. Paths are not extended past MaxDependencyChainDepth hops.
func FindChains(ctx context.Context, entries []ModuleID, target ModuleID, deps func(ModuleID) []ModuleID) ([]DependencyChain, error) {
	nodes := make([]pathNode, 0, len(entries))
	index := make(map[pathKey]int)
	var queue []int

	push := func(parent int, id ModuleID, depth int) {
		key := pathKey{parent: parent, module: id}
		if _, seen := index[key]; seen {
			return
		}
		index[key] = len(nodes)
		nodes = append(nodes, pathNode{key: key, depth: depth})
		queue = append(queue, len(nodes)-1)
	}
	for _, entry := range entries {
		push(-1, entry, 0)
	}

	var chains []DependencyChain
	for steps := 0; len(queue) > 0; steps++ {
		if steps%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return chains, err
			}
		}
		current := queue[0]
		queue = queue[1:]
		node := nodes[current]

		if node.key.module == target {
			chains = append(chains, NewDependencyChain(materialize(nodes, current)))
		}
		if node.depth >= MaxDependencyChainDepth {
			continue
		}
		for _, dep := range deps(node.key.module) {
			push(current, dep, node.depth+1)
		}
	}
	return chains, nil
}

func materialize(nodes []pathNode, at int) []ModuleID {
	path := make([]ModuleID, nodes[at].depth+1)
	for i := at; i >= 0; i = nodes[i].key.parent {
		path[nodes[i].depth] = nodes[i].key.module
	}
	return path
}

// DependencyChainsTo enumerates chains from the graph's entry points to target.
func (g *ModuleGraph) DependencyChainsTo(ctx context.Context, target ModuleID) ([]DependencyChain, error) {
	entries := g.EntryPoints()
	g.mu.RLock()
	defer g.mu.RUnlock()
	return FindChains(ctx, entries, target, func(id ModuleID) []ModuleID {
		return sortedSet(g.dependencies[id])
	})
}

func (g *ModuleGraph) AnalyzeDependencyChains(ctx context.Context, target ModuleID) (ChainAnalysis, error) {
	chains, err := g.DependencyChainsTo(ctx, target)
	if err != nil {
		return ChainAnalysis{}, err
	}
	return NewChainAnalysis(target, chains), nil
}

// ImportDepth returns the shortest hop count from any entry point to id.
func (g *ModuleGraph) ImportDepth(id ModuleID) (int, bool) {
	depth, ok := g.shortestDepths()[id]
	return depth, ok
}

// ModulesByDepth groups reachable modules by their import depth.
func (g *ModuleGraph) ModulesByDepth() map[int][]ModuleID {
	out := make(map[int][]ModuleID)
	depths := g.shortestDepths()
	for _, id := range sortedIDs(depths) {
		out[depths[id]] = append(out[depths[id]], id)
	}
	return out
}

// shortestDepths runs a level BFS from every entry point, bounded like chain
// enumeration. The first level reaching a module equals the depth of its
// shortest chain.
func (g *ModuleGraph) shortestDepths() map[ModuleID]int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	depths := make(map[ModuleID]int)
	var frontier []ModuleID
	for id := range g.entryPoints {
		depths[id] = 0
		frontier = append(frontier, id)
	}
	for level := 1; len(frontier) > 0 && level <= MaxDependencyChainDepth; level++ {
		var next []ModuleID
		for _, id := range frontier {
			for dep := range g.dependencies[id] {
				if _, seen := depths[dep]; seen {
					continue
				}
				depths[dep] = level
				next = append(next, dep)
			}
		}
		frontier = next
	}
	return depths
}

// IsReachableOnlyThroughDeadCode reports modules no entry point reaches.
func (g *ModuleGraph) IsReachableOnlyThroughDeadCode(id ModuleID) bool {
	_, reachable := g.ImportDepth(id)
	return !reachable
}
