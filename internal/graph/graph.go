package graph

import (
	"sort"

	"github.com/hashicorp/go-set/v3"
)

// Node represents a vertex in the type hierarchy.
type Node struct {
	Symbol *Symbol
}

// Edge represents a directed relationship between two nodes.
type Edge struct {
	From string
	To   string
	Kind RelationKind
}

// Graph manages nodes and their relationships.
type Graph struct {
	Nodes      map[string]*Node
	Edges      []Edge
	Unresolved []Unresolved

	// Index for faster lookup: dotted or simple name -> []ID
	nameIndex map[string][]string
	edgeSet   *set.Set[Edge]
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:     make(map[string]*Node),
		Edges:     []Edge{},
		nameIndex: make(map[string][]string),
		edgeSet:   set.New[Edge](16),
	}
}

// AddSymbol adds a symbol as a node and indexes it. A symbol that is
// already present is replaced unless the new one is external.
func (g *Graph) AddSymbol(s *Symbol) {
	if s == nil {
		return
	}
	if old, ok := g.Nodes[s.ID]; ok {
		if s.External && !old.Symbol.External {
			return
		}
		old.Symbol = s
		return
	}
	g.Nodes[s.ID] = &Node{Symbol: s}
	g.index(s)
}

func (g *Graph) index(s *Symbol) {
	g.nameIndex[s.Name] = append(g.nameIndex[s.Name], s.ID)
	if simple := simpleName(s.Name); simple != s.Name {
		g.nameIndex[simple] = append(g.nameIndex[simple], s.ID)
	}
}

// RebuildIndices recomputes the name and edge indexes, e.g. after loading
// nodes and edges from storage.
func (g *Graph) RebuildIndices() {
	g.nameIndex = make(map[string][]string)
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		g.index(g.Nodes[id].Symbol)
	}
	g.edgeSet = set.From(g.Edges)
}

// AddEdge records a relation once.
func (g *Graph) AddEdge(from, to string, kind RelationKind) {
	e := Edge{From: from, To: to, Kind: kind}
	if !g.edgeSet.Insert(e) {
		return
	}
	g.Edges = append(g.Edges, e)
}

// Lookup finds nodes by dotted name, simple name or internal ID.
func (g *Graph) Lookup(name string) []*Node {
	var out []*Node
	for _, id := range g.nameIndex[name] {
		out = append(out, g.Nodes[id])
	}
	if node, ok := g.Nodes[name]; ok && len(out) == 0 {
		out = append(out, node)
	}
	return out
}

// GetDependencies returns the direct supertypes of the given node.
func (g *Graph) GetDependencies(id string) []*Node {
	var deps []*Node
	for _, edge := range g.Edges {
		if edge.From == id && edge.Kind != RelationEncloses {
			if node, ok := g.Nodes[edge.To]; ok {
				deps = append(deps, node)
			}
		}
	}
	return deps
}

// GetDependents returns the direct subtypes of the given node.
func (g *Graph) GetDependents(id string) []*Node {
	var deps []*Node
	for _, edge := range g.Edges {
		if edge.To == id && edge.Kind != RelationEncloses {
			if node, ok := g.Nodes[edge.From]; ok {
				deps = append(deps, node)
			}
		}
	}
	return deps
}

// Ancestors returns every transitive supertype of id, nearest first.
// Inheritance cycles are tolerated.
func (g *Graph) Ancestors(id string) []*Node {
	seen := set.From([]string{id})
	var out []*Node
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dep := range g.GetDependencies(cur) {
			if !seen.Insert(dep.Symbol.ID) {
				continue
			}
			out = append(out, dep)
			queue = append(queue, dep.Symbol.ID)
		}
	}
	return out
}

// Members returns the types enclosed by id.
func (g *Graph) Members(id string) []*Node {
	var out []*Node
	for _, edge := range g.Edges {
		if edge.From == id && edge.Kind == RelationEncloses {
			if node, ok := g.Nodes[edge.To]; ok {
				out = append(out, node)
			}
		}
	}
	return out
}

func simpleName(dotted string) string {
	for i := len(dotted) - 1; i >= 0; i-- {
		if dotted[i] == '.' {
			return dotted[i+1:]
		}
	}
	return dotted
}
