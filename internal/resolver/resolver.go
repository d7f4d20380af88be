package resolver

import (
	"jresolve/internal/diag"
	"jresolve/internal/name"
)

// TypeNameResolver maps a possibly ambiguous name to candidate canonical
// names. No candidates means unresolved, more than one means ambiguous and
// it is up to the caller to report it.
type TypeNameResolver interface {
	Lookup(n *name.Name) []*name.Name
}

// TypeNameResolverFunc adapts a function to TypeNameResolver.
type TypeNameResolverFunc func(n *name.Name) []*name.Name

func (f TypeNameResolverFunc) Lookup(n *name.Name) []*name.Name { return f(n) }

// TypeInfoResolver maps a canonical name to its declared metadata.
type TypeInfoResolver interface {
	Resolve(n *name.Name) (*TypeInfo, bool)
}

// TypeInfoResolverFunc adapts a function to TypeInfoResolver.
type TypeInfoResolverFunc func(n *name.Name) (*TypeInfo, bool)

func (f TypeInfoResolverFunc) Resolve(n *name.Name) (*TypeInfo, bool) { return f(n) }

// Canonicalizer answers structural questions about the type universe.
type Canonicalizer interface {
	// MemberType resolves identifier as a type declared in (or, for classes,
	// inherited into) container, which is a package or a class.
	MemberType(container *name.Name, identifier string) (*name.Name, bool)
	// PackageExists reports whether pkg is a known package.
	PackageExists(pkg *name.Name) bool
}

// Empty resolves nothing.
var Empty TypeNameResolver = TypeNameResolverFunc(func(*name.Name) []*name.Name { return nil })

// EitherOr consults a first and falls back to b only when a has no answer.
func EitherOr(a, b TypeNameResolver) TypeNameResolver {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return TypeNameResolverFunc(func(n *name.Name) []*name.Name {
		if got := a.Lookup(n); len(got) > 0 {
			return got
		}
		return b.Lookup(n)
	})
}

// EitherOrInfo is EitherOr for TypeInfoResolvers.
func EitherOrInfo(a, b TypeInfoResolver) TypeInfoResolver {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return TypeInfoResolverFunc(func(n *name.Name) (*TypeInfo, bool) {
		if ti, ok := a.Resolve(n); ok {
			return ti, true
		}
		return b.Resolve(n)
	})
}

// simpleIdentifier returns the identifier of a single-segment name.
func simpleIdentifier(n *name.Name) (string, bool) {
	if n == nil || n.Parent() != nil || !n.HasIdentifier() {
		return "", false
	}
	return n.Identifier(), true
}

// WildcardLookup answers simple names that are member types of any of the
// given packages or types.
func WildcardLookup(containers []*name.Name, canon Canonicalizer) TypeNameResolver {
	return TypeNameResolverFunc(func(n *name.Name) []*name.Name {
		id, ok := simpleIdentifier(n)
		if !ok {
			return nil
		}
		var out []*name.Name
		for _, c := range containers {
			if t, ok := canon.MemberType(c, id); ok {
				out = appendUnique(out, t)
			}
		}
		return out
	})
}

// UnqualifiedNameToQualified resolves simple names against an explicit list
// of canonical names. Two distinct candidates sharing an identifier are
// reported to sink as an import collision; lookups then return both.
func UnqualifiedNameToQualified(candidates []*name.Name, sink diag.Sink, pos diag.Position) TypeNameResolver {
	byID := make(map[string][]*name.Name)
	for _, c := range candidates {
		id := c.Identifier()
		before := len(byID[id])
		byID[id] = appendUnique(byID[id], c)
		if before > 0 && len(byID[id]) > before {
			diag.Reportf(sink, pos, diag.CategoryCollision,
				"%s is imported as both %s and %s", id, byID[id][0].ToDottedString(), c.ToDottedString())
		}
	}
	return TypeNameResolverFunc(func(n *name.Name) []*name.Name {
		id, ok := simpleIdentifier(n)
		if !ok {
			return nil
		}
		return byID[id]
	})
}

// Static resolves simple names from a fixed identifier table.
func Static(table map[string][]*name.Name) TypeNameResolver {
	return TypeNameResolverFunc(func(n *name.Name) []*name.Name {
		id, ok := simpleIdentifier(n)
		if !ok {
			return nil
		}
		return table[id]
	})
}

// Qualified resolves multi-segment chains. The first identifier goes
// through simple and the remaining ones are member types of the result.
// When that fails the longest known package prefix is tried, followed by
// member types; a chain that is exactly a known package resolves to it.
func Qualified(simple TypeNameResolver, canon Canonicalizer) TypeNameResolver {
	return TypeNameResolverFunc(func(n *name.Name) []*name.Name {
		ids := n.Identifiers()
		if len(ids) == 0 {
			return nil
		}
		var out []*name.Name
		if simple != nil {
			for _, head := range simple.Lookup(name.AmbiguousNamed(ids[0])) {
				if t, ok := walkMembers(canon, head, ids[1:]); ok {
					out = appendUnique(out, t)
				}
			}
		}
		if len(out) > 0 {
			return out
		}

		pkgs := make([]*name.Name, len(ids))
		pkg := name.DefaultPackage
		for i, id := range ids {
			pkg = pkg.MustChild(id, name.Package)
			pkgs[i] = pkg
		}
		for i := len(ids) - 1; i >= 0; i-- {
			if !canon.PackageExists(pkgs[i]) {
				continue
			}
			if i == len(ids)-1 {
				return []*name.Name{pkgs[i]}
			}
			if t, ok := walkMembers(canon, pkgs[i], ids[i+1:]); ok {
				return []*name.Name{t}
			}
		}
		return nil
	})
}

func walkMembers(canon Canonicalizer, start *name.Name, rest []string) (*name.Name, bool) {
	cur := start
	for _, id := range rest {
		if cur.Kind() != name.Package && cur.Kind() != name.Class {
			return nil, false
		}
		next, ok := canon.MemberType(cur, id)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func appendUnique(list []*name.Name, n *name.Name) []*name.Name {
	for _, e := range list {
		if e.Equal(n) {
			return list
		}
	}
	return append(list, n)
}
