package declare

import (
	"github.com/hashicorp/go-set/v3"

	"jresolve/internal/ast"
	"jresolve/internal/diag"
	"jresolve/internal/name"
	"jresolve/internal/resolver"
)

// ResolverForScope returns the type-name resolver of a scope node. It
// accepts simple and qualified names and is memoized per scope.
func (e *Env) ResolverForScope(scope *ast.Node) resolver.TypeNameResolver {
	if r, ok := e.qualified[scope.ID()]; ok {
		return r
	}
	r := resolver.Qualified(e.simpleResolver(scope), e)
	e.qualified[scope.ID()] = r
	return r
}

// simpleResolver answers single identifiers visible in scope.
func (e *Env) simpleResolver(scope *ast.Node) resolver.TypeNameResolver {
	if scope == nil {
		return resolver.Empty
	}
	if r, ok := e.simple[scope.ID()]; ok {
		return r
	}

	var r resolver.TypeNameResolver
	switch {
	case scope.Type == ast.CompilationUnit:
		r = e.UnitChain(scope)
	case scope.IsCallable():
		r = resolver.NewChain(
			resolver.Layer{Name: "declared", Resolver: resolver.Static(e.declared[scope.ID()])},
			resolver.Layer{Name: "enclosing", Resolver: e.simpleResolver(e.parentScope[scope.ID()])},
		)
	default:
		d := e.byNode[scope.ID()]
		if d == nil {
			return resolver.Empty
		}
		e.resolve(d)
		if r, ok := e.simple[scope.ID()]; ok {
			return r
		}
		r = resolver.NewChain(
			resolver.Layer{Name: "declared", Resolver: resolver.Static(e.declared[scope.ID()])},
			resolver.Layer{Name: "inherited", Resolver: e.inherited(d)},
			resolver.Layer{Name: "enclosing", Resolver: e.simpleResolver(e.parentScope[scope.ID()])},
		)
	}
	e.simple[scope.ID()] = r
	return r
}

// clauseResolver resolves the supertype and bound clauses of a declaring
// node: the type parameters of node mask the scope the node is declared in.
func (e *Env) clauseResolver(node, owner *ast.Node) resolver.TypeNameResolver {
	if r, ok := e.clauses[node.ID()]; ok {
		return r
	}
	table := make(map[string][]*name.Name)
	for _, tp := range e.typeParams[node.ID()] {
		table[tp.Node.Ident] = append(table[tp.Node.Ident], tp.Canonical)
	}
	r := resolver.Qualified(resolver.EitherOr(resolver.Static(table), e.simpleResolver(owner)), e)
	e.clauses[node.ID()] = r
	return r
}

// ClauseResolver resolves names in the supertype clauses and type
// parameter bounds of a type declaration.
func (e *Env) ClauseResolver(decl *ast.Node) resolver.TypeNameResolver {
	return e.clauseResolver(decl, e.parentScope[decl.ID()])
}

// inherited answers member types inherited from the supertypes of d.
func (e *Env) inherited(d *Declaration) resolver.TypeNameResolver {
	return resolver.TypeNameResolverFunc(func(n *name.Name) []*name.Name {
		if n == nil || n.Parent() != nil || !n.HasIdentifier() {
			return nil
		}
		var out []*name.Name
		for _, s := range d.TypeInfo().Supertypes() {
			if t, ok := e.MemberType(s, n.Identifier()); ok {
				out = appendUnique(out, t)
			}
		}
		return out
	})
}

// UnitChain returns the layered import resolver of a compilation unit:
// single-type imports, then the unit's package, then wildcard imports and
// finally java.lang.
func (e *Env) UnitChain(unit *ast.Node) *resolver.Chain {
	if c, ok := e.unitChains[unit.ID()]; ok {
		return c
	}
	fq := e.FullyQualified()
	var single, wildcard []*name.Name
	for _, imp := range unit.ChildrenWithRole(ast.RoleImport) {
		ref := imp.FirstChildWithRole(ast.RoleQualifier)
		if ref == nil || len(ref.Idents) == 0 {
			continue
		}
		got := fq.Lookup(name.AmbiguousNamed(ref.Idents...))
		if imp.Wildcard {
			if c := firstOfKind(got, name.Package, name.Class); c != nil {
				wildcard = appendUnique(wildcard, c)
				continue
			}
			diag.Reportf(e.sink, imp.Pos, diag.CategoryUnresolved, "cannot resolve import %s.*", ref.Dotted())
			continue
		}
		if t := firstOfKind(got, name.Class); t != nil {
			single = append(single, t)
			continue
		}
		if imp.Static && len(ref.Idents) > 1 {
			owner := fq.Lookup(name.AmbiguousNamed(ref.Idents[:len(ref.Idents)-1]...))
			if firstOfKind(owner, name.Class) != nil {
				// a static field or method import
				continue
			}
		}
		diag.Reportf(e.sink, imp.Pos, diag.CategoryUnresolved, "cannot resolve import %s", ref.Dotted())
	}

	c := resolver.NewChain(
		resolver.Layer{Name: "single-type imports", Resolver: resolver.UnqualifiedNameToQualified(single, e.sink, unit.Pos)},
		resolver.Layer{Name: "package", Resolver: resolver.WildcardLookup([]*name.Name{e.PackageOf(unit)}, e)},
		resolver.Layer{Name: "wildcard imports", Resolver: resolver.WildcardLookup(wildcard, e)},
		resolver.Layer{Name: "java.lang", Resolver: resolver.WildcardLookup([]*name.Name{javaLang}, e)},
	)
	e.unitChains[unit.ID()] = c
	return c
}

// FullyQualified resolves canonical dotted names without any scope.
func (e *Env) FullyQualified() resolver.TypeNameResolver {
	if e.fullyQualified == nil {
		e.fullyQualified = resolver.Qualified(nil, e)
	}
	return e.fullyQualified
}

// TypeInfoResolver answers in-batch declarations first and the universe
// after them.
func (e *Env) TypeInfoResolver() resolver.TypeInfoResolver {
	batch := resolver.TypeInfoResolverFunc(func(n *name.Name) (*resolver.TypeInfo, bool) {
		if n == nil {
			return nil, false
		}
		d, ok := e.byName[n.Key()]
		if !ok || d.TypeInfo() == nil {
			return nil, false
		}
		return d.TypeInfo(), true
	})
	if e.universe == nil {
		return batch
	}
	return resolver.EitherOrInfo(batch, e.universe)
}

// MemberType implements resolver.Canonicalizer. It reads installed
// TypeInfo records and never triggers resolution.
func (e *Env) MemberType(container *name.Name, identifier string) (*name.Name, bool) {
	if container == nil {
		return nil, false
	}
	switch container.Kind() {
	case name.Package:
		n, err := container.Child(identifier, name.Class)
		if err != nil {
			return nil, false
		}
		if d, ok := e.byName[n.Key()]; ok {
			return d.Canonical, true
		}
		if e.universe != nil {
			return e.universe.MemberType(container, identifier)
		}
	case name.Class:
		return e.memberTypeIn(e.TypeInfoResolver(), container, identifier, set.New[string](4))
	}
	return nil, false
}

func (e *Env) memberTypeIn(infos resolver.TypeInfoResolver, t *name.Name, identifier string, seen *set.Set[string]) (*name.Name, bool) {
	if !seen.Insert(t.Key()) {
		return nil, false
	}
	ti, ok := infos.Resolve(t)
	if !ok {
		return nil, false
	}
	if in, ok := ti.InnerType(identifier); ok {
		return in, true
	}
	for _, s := range ti.Supertypes() {
		if n, ok := e.memberTypeIn(infos, s, identifier, seen); ok {
			return n, true
		}
	}
	return nil, false
}

// PackageExists implements resolver.Canonicalizer.
func (e *Env) PackageExists(pkg *name.Name) bool {
	if pkg == nil || pkg.Kind() != name.Package {
		return false
	}
	if _, ok := e.packages[pkg.Key()]; ok {
		return true
	}
	return e.universe != nil && e.universe.PackageExists(pkg)
}

// InstallScopeResolvers attaches the resolver of every scope node.
func (e *Env) InstallScopeResolvers() {
	for _, u := range e.units {
		ast.Walk(u, func(n *ast.Node) bool {
			if n.IsTypeScope() {
				n.SetTypeNameResolver(e.ResolverForScope(n))
			}
			return true
		})
	}
}

func firstOfKind(ns []*name.Name, kinds ...name.Kind) *name.Name {
	for _, n := range ns {
		for _, k := range kinds {
			if n.Kind() == k {
				return n
			}
		}
	}
	return nil
}

func appendUnique(list []*name.Name, n *name.Name) []*name.Name {
	for _, e := range list {
		if e.Equal(n) {
			return list
		}
	}
	return append(list, n)
}
