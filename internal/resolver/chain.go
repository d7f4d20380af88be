package resolver

import "jresolve/internal/name"

// Layer is one named priority level of a Chain.
type Layer struct {
	Name     string
	Resolver TypeNameResolver
}

// StageResult records what one layer answered during a Trace.
type StageResult struct {
	Layer      string
	Candidates []*name.Name
	Selected   bool
}

// Chain is a TypeNameResolver over layers in priority order: the first
// layer with any candidates wins, exactly like nested EitherOr.
type Chain struct {
	layers []Layer
}

func NewChain(layers ...Layer) *Chain {
	var kept []Layer
	for _, l := range layers {
		if l.Resolver != nil {
			kept = append(kept, l)
		}
	}
	return &Chain{layers: kept}
}

func (c *Chain) Lookup(n *name.Name) []*name.Name {
	for _, l := range c.layers {
		if got := l.Resolver.Lookup(n); len(got) > 0 {
			return got
		}
	}
	return nil
}

// Layers returns the layer names in priority order.
func (c *Chain) Layers() []string {
	out := make([]string, len(c.layers))
	for i, l := range c.layers {
		out[i] = l.Name
	}
	return out
}

// Trace asks every layer and marks the one Lookup would select.
func (c *Chain) Trace(n *name.Name) []StageResult {
	var out []StageResult
	selected := false
	for _, l := range c.layers {
		got := l.Resolver.Lookup(n)
		res := StageResult{Layer: l.Name, Candidates: got}
		if !selected && len(got) > 0 {
			res.Selected = true
			selected = true
		}
		out = append(out, res)
	}
	return out
}

// Fold collapses the chain into nested EitherOr resolvers.
func (c *Chain) Fold() TypeNameResolver {
	var out TypeNameResolver
	for i := len(c.layers) - 1; i >= 0; i-- {
		out = EitherOr(c.layers[i].Resolver, out)
	}
	if out == nil {
		return Empty
	}
	return out
}
