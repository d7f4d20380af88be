package graph

func (g *Graph) UnresolvedReasonCounts() map[UnresolvedReason]int {
	counts := make(map[UnresolvedReason]int)
	if g == nil {
		return counts
	}
	for _, u := range g.Unresolved {
		reason := u.Reason
		if reason == "" {
			reason = ReasonNoCandidate
		}
		counts[reason]++
	}
	return counts
}

// KindCounts returns the number of in-batch nodes per declaration kind.
func (g *Graph) KindCounts() map[string]int {
	counts := make(map[string]int)
	if g == nil {
		return counts
	}
	for _, n := range g.Nodes {
		if !n.Symbol.External {
			counts[n.Symbol.Kind]++
		}
	}
	return counts
}
