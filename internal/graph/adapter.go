package graph

import (
	"jresolve/internal/ast"
	"jresolve/internal/declare"
	"jresolve/internal/diag"
	"jresolve/internal/name"
	"jresolve/internal/resolver"
)

// FromDeclarations builds the type hierarchy of a resolved batch. Supertypes
// that live outside the batch are pulled from infos and marked external,
// together with their own ancestors.
func FromDeclarations(decls []*declare.Declaration, infos resolver.TypeInfoResolver) *Graph {
	g := NewGraph()
	var types []*declare.Declaration
	for _, d := range decls {
		if d.IsTypeParameter() || d.Duplicate || d.TypeInfo() == nil {
			continue
		}
		types = append(types, d)
		g.AddSymbol(fromDeclaration(d))
	}

	var external []*name.Name
	link := func(from string, to *name.Name, kind RelationKind) {
		if _, ok := g.Nodes[to.ToInternalNameString()]; !ok {
			info, found := resolveInfo(infos, to)
			if !found {
				g.Unresolved = append(g.Unresolved, Unresolved{
					Symbol: from,
					Reason: ReasonSourceMissing,
					Detail: to.ToDottedString(),
				})
				return
			}
			g.AddSymbol(fromTypeInfo(info))
			external = append(external, to)
		}
		g.AddEdge(from, to.ToInternalNameString(), kind)
	}

	for _, d := range types {
		info := d.TypeInfo()
		id := d.Canonical.ToInternalNameString()
		if d.Stage == declare.Unresolvable {
			g.Unresolved = append(g.Unresolved, Unresolved{
				Symbol: id,
				Reason: ReasonCycle,
				Detail: d.Canonical.ToDottedString(),
			})
		}
		if info.SuperType != nil {
			link(id, info.SuperType, RelationExtends)
		}
		for _, iface := range info.Interfaces {
			kind := RelationImplements
			if info.IsInterface() {
				kind = RelationExtends
			}
			link(id, iface, kind)
		}
		if info.OuterType != nil {
			if _, ok := g.Nodes[info.OuterType.ToInternalNameString()]; ok {
				g.AddEdge(info.OuterType.ToInternalNameString(), id, RelationEncloses)
			}
		}
	}

	// External ancestors, e.g. java.lang.Object above java.util.AbstractList.
	for len(external) > 0 {
		t := external[0]
		external = external[1:]
		info, ok := resolveInfo(infos, t)
		if !ok {
			continue
		}
		id := t.ToInternalNameString()
		for _, st := range info.Supertypes() {
			kind := RelationExtends
			if st != info.SuperType && !info.IsInterface() {
				kind = RelationImplements
			}
			_, known := g.Nodes[st.ToInternalNameString()]
			link(id, st, kind)
			if !known {
				if _, added := g.Nodes[st.ToInternalNameString()]; added {
					external = append(external, st)
				}
			}
		}
	}
	return g
}

// AddDiagnostics records name-level failures of the batch as unresolved
// entries. Cycles are taken from declaration stages instead.
func (g *Graph) AddDiagnostics(items []diag.Diagnostic) {
	for _, d := range items {
		var reason UnresolvedReason
		switch d.Category {
		case diag.CategoryUnresolved:
			reason = ReasonNoCandidate
		case diag.CategoryAmbiguous:
			reason = ReasonAmbiguous
		default:
			continue
		}
		g.Unresolved = append(g.Unresolved, Unresolved{
			Symbol: d.Pos.String(),
			Reason: reason,
			Detail: d.Message,
		})
	}
}

func resolveInfo(infos resolver.TypeInfoResolver, n *name.Name) (*resolver.TypeInfo, bool) {
	if infos == nil {
		return nil, false
	}
	return infos.Resolve(n)
}

func fromDeclaration(d *declare.Declaration) *Symbol {
	info := d.TypeInfo()
	s := &Symbol{
		ID:        d.Canonical.ToInternalNameString(),
		Name:      d.Canonical.ToDottedString(),
		Package:   d.Canonical.Package().ToDottedString(),
		Kind:      kindOf(d.Node.Type, info),
		Modifiers: info.Modifiers.String(),
		Stage:     d.Stage.String(),
		Line:      d.Node.Pos.Line,
	}
	if d.Unit != nil {
		s.Filepath = d.Unit.Ident
	}
	if s.Filepath == "" {
		s.Filepath = d.Node.Pos.File
	}
	return s
}

func fromTypeInfo(info *resolver.TypeInfo) *Symbol {
	kind := "class"
	switch {
	case info.Modifiers.Has(resolver.ModAnnotation):
		kind = "annotation"
	case info.IsInterface():
		kind = "interface"
	case info.Modifiers.Has(resolver.ModEnum):
		kind = "enum"
	}
	return &Symbol{
		ID:        info.CanonicalName.ToInternalNameString(),
		Name:      info.CanonicalName.ToDottedString(),
		Package:   info.CanonicalName.Package().ToDottedString(),
		Kind:      kind,
		Modifiers: info.Modifiers.String(),
		External:  true,
	}
}

func kindOf(t ast.NodeType, info *resolver.TypeInfo) string {
	switch {
	case info.Anonymous:
		return "anonymous"
	case t == ast.EnumDecl:
		return "enum"
	case info.Modifiers.Has(resolver.ModAnnotation):
		return "annotation"
	case t == ast.InterfaceDecl:
		return "interface"
	}
	return "class"
}
