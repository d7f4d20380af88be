package analysis

import (
	"sort"

	"github.com/hashicorp/go-set/v3"

	"jresolve/internal/graph"
)

// ImpactReport summarizes how the type hierarchy moved between two runs.
type ImpactReport struct {
	Added   []string
	Removed []string
	// Changed types kept their name but got different direct supertypes.
	Changed []string
	// IndirectlyAffected are subtypes, in the new hierarchy, of changed or
	// removed types.
	IndirectlyAffected []string
}

// Empty reports whether nothing moved.
func (r *ImpactReport) Empty() bool {
	return len(r.Added)+len(r.Removed)+len(r.Changed)+len(r.IndirectlyAffected) == 0
}

// Analyzer performs impact analysis on the type hierarchy.
type Analyzer struct {
	g *graph.Graph
}

// NewAnalyzer creates a new analyzer over the current hierarchy.
func NewAnalyzer(g *graph.Graph) *Analyzer {
	return &Analyzer{g: g}
}

// AnalyzeImpact compares the current hierarchy with a previous one. Library
// types are ignored. A nil previous graph makes every type added.
func (a *Analyzer) AnalyzeImpact(previous *graph.Graph) *ImpactReport {
	if previous == nil {
		previous = graph.NewGraph()
	}
	report := &ImpactReport{}
	direct := set.New[string](8)

	// 1. Find Direct Impacts
	for id, node := range a.g.Nodes {
		if node.Symbol.External {
			continue
		}
		old, ok := previous.Nodes[id]
		switch {
		case !ok || old.Symbol.External:
			report.Added = append(report.Added, node.Symbol.Name)
			direct.Insert(id)
		case !sameSupertypes(previous, a.g, id):
			report.Changed = append(report.Changed, node.Symbol.Name)
			direct.Insert(id)
		}
	}
	var removedIDs []string
	for id, node := range previous.Nodes {
		if node.Symbol.External {
			continue
		}
		if cur, ok := a.g.Nodes[id]; !ok || cur.Symbol.External {
			report.Removed = append(report.Removed, node.Symbol.Name)
			removedIDs = append(removedIDs, id)
		}
	}

	// 2. Find Indirect Impacts (subtypes)
	indirect := set.New[string](8)
	seeds := append(removedIDs, report.changedIDs(a.g)...)
	for len(seeds) > 0 {
		id := seeds[0]
		seeds = seeds[1:]
		for _, dep := range a.g.GetDependents(id) {
			depID := dep.Symbol.ID
			if direct.Contains(depID) || !indirect.Insert(depID) {
				continue
			}
			report.IndirectlyAffected = append(report.IndirectlyAffected, dep.Symbol.Name)
			seeds = append(seeds, depID)
		}
	}

	sort.Strings(report.Added)
	sort.Strings(report.Removed)
	sort.Strings(report.Changed)
	sort.Strings(report.IndirectlyAffected)
	return report
}

func (r *ImpactReport) changedIDs(g *graph.Graph) []string {
	var ids []string
	for _, n := range r.Changed {
		for _, node := range g.Lookup(n) {
			ids = append(ids, node.Symbol.ID)
		}
	}
	return ids
}

func sameSupertypes(prev, cur *graph.Graph, id string) bool {
	ids := func(g *graph.Graph) *set.Set[string] {
		s := set.New[string](4)
		for _, n := range g.GetDependencies(id) {
			s.Insert(n.Symbol.ID)
		}
		return s
	}
	return ids(prev).Equal(ids(cur))
}
