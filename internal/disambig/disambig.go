// Package disambig rewrites ambiguous identifier chains into classified
// nodes: nested type names, package names, and expression seeds followed by
// field accesses.
package disambig

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"jresolve/internal/ast"
	"jresolve/internal/diag"
	"jresolve/internal/name"
	"jresolve/internal/resolver"
	"jresolve/internal/rewrite"
)

// Env is what the pass needs from declaration resolution.
type Env interface {
	FullyQualified() resolver.TypeNameResolver
	TypeInfoResolver() resolver.TypeInfoResolver
	ClauseResolver(decl *ast.Node) resolver.TypeNameResolver
}

// Pass is the disambiguation rewrite. Use a fresh Pass per batch.
type Pass struct {
	rewrite.BasePass
	env    Env
	infos  resolver.TypeInfoResolver
	sink   diag.Sink
	logger *log.Entry
	counts map[ast.NodeType]int
	failed int
}

func New(env Env, sink diag.Sink, logger *log.Entry) *Pass {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Pass{
		env:    env,
		infos:  env.TypeInfoResolver(),
		sink:   sink,
		logger: logger.WithField("pass", "disambig"),
		counts: make(map[ast.NodeType]int),
	}
}

// Run applies a fresh disambiguation pass to units.
func Run(units []*ast.Node, env Env, sink diag.Sink, logger *log.Entry) ([]*ast.Node, *Pass, error) {
	p := New(env, sink, logger)
	out, err := rewrite.Run(p, units)
	if err != nil {
		return nil, p, err
	}
	p.logger.WithFields(log.Fields{
		"rewritten": p.Rewritten(),
		"failed":    p.failed,
	}).Debug("disambiguation complete")
	return out, p, nil
}

// Counts returns how many nodes of each type the pass produced as the head
// of a rewritten name.
func (p *Pass) Counts() map[ast.NodeType]int { return p.counts }

// Rewritten is the number of names that were rewritten.
func (p *Pass) Rewritten() int {
	total := 0
	for _, c := range p.counts {
		total += c
	}
	return total
}

// Failed is the number of names left ambiguous.
func (p *Pass) Failed() int { return p.failed }

func (p *Pass) Postvisit(n *ast.Node, path *rewrite.Path, b *ast.Builder) rewrite.Status {
	if n.Type != ast.AmbiguousName {
		return rewrite.Continue()
	}
	if len(n.Idents) == 0 {
		rewrite.Violation(n, "ambiguous name without identifiers")
	}
	var st rewrite.Status
	switch n.Context {
	case ast.ContextExpression:
		st = p.expression(n, path)
	case ast.ContextType:
		st = p.typeName(n, path, b)
	case ast.ContextPackageOrType:
		st = p.packageOrType(n, path)
	default:
		rewrite.Violation(n, "unknown name context %d", n.Context)
	}
	if nodes, ok := st.Replacement(); ok && len(nodes) == 1 {
		p.counts[nodes[0].Type]++
	} else {
		p.failed++
	}
	return st
}

// expression classifies a chain in primary-expression position. A local or
// field named by the leading identifier wins over any type.
func (p *Pass) expression(n *ast.Node, path *rewrite.Path) rewrite.Status {
	ids := n.Idents
	if er := expressionResolverFor(path); er != nil {
		if res, ok := er.ResolveExpressionName(ids[0], n.Marker()); ok {
			var seed *ast.Node
			if res.Kind() == name.Local {
				seed = ast.NewLocalRef(ids[0], res)
			} else {
				seed = ast.NewFreeFieldRef(ids[0], res)
			}
			return rewrite.Replace(fieldChain(n, seed.At(n.Pos), ids[1:], nil))
		}
	}

	r := p.typeResolverFor(n, path)
	anchor, k, ok := p.munch(n, r, ids)
	if !ok {
		diag.Reportf(p.sink, n.Pos, diag.CategoryUnresolved, "cannot resolve %s", n.Dotted())
		return rewrite.Break()
	}
	if anchor.Kind() == name.Package {
		if k == len(ids) {
			diag.Reportf(p.sink, n.Pos, diag.CategoryUnresolved, "package %s used as an expression", n.Dotted())
		} else {
			diag.Reportf(p.sink, n.Pos, diag.CategoryUnresolved,
				"cannot resolve %s in package %s", ids[k], anchor.ToDottedString())
		}
		return rewrite.Break()
	}
	seed := ast.NewStaticMemberRef(strings.Join(ids[:k], "."), anchor).At(n.Pos)
	return rewrite.Replace(fieldChain(n, seed, ids[k:], anchor))
}

// fieldChain wraps seed in one field access per remaining identifier. The
// first access off a type is a static field of that type.
func fieldChain(orig, seed *ast.Node, rest []string, owner *name.Name) *ast.Node {
	cur := seed
	for i, id := range rest {
		fa := ast.NewFieldAccess(cur, id).At(orig.Pos)
		if i == 0 && owner != nil {
			if f, err := owner.Child(id, name.Field); err == nil {
				fa.Name = f
			}
		}
		cur = fa
	}
	cur.Role = orig.Role
	return cur
}

// munch finds the longest prefix of ids that names a type or package.
func (p *Pass) munch(n *ast.Node, r resolver.TypeNameResolver, ids []string) (*name.Name, int, bool) {
	for k := len(ids); k >= 1; k-- {
		cands := p.addressable(r.Lookup(name.AmbiguousNamed(ids[:k]...)), name.Class, name.Package)
		if len(cands) == 0 {
			continue
		}
		return p.pick(n, strings.Join(ids[:k], "."), cands), k, true
	}
	return nil, 0, false
}

// addressable keeps candidates of the given kinds that can be written in
// source, dropping anonymous classes.
func (p *Pass) addressable(cands []*name.Name, kinds ...name.Kind) []*name.Name {
	var out []*name.Name
	for _, c := range cands {
		if !hasKind(c, kinds) {
			continue
		}
		if c.Kind() == name.Class && p.infos != nil {
			if ti, ok := p.infos.Resolve(c); ok && ti.Anonymous {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func (p *Pass) pick(n *ast.Node, written string, cands []*name.Name) *name.Name {
	if len(cands) > 1 {
		parts := make([]string, len(cands))
		for i, c := range cands {
			parts[i] = c.ToDottedString()
		}
		diag.Reportf(p.sink, n.Pos, diag.CategoryAmbiguous, "%s is ambiguous: %s", written, strings.Join(parts, ", "))
	}
	return cands[0]
}

// typeName rewrites a chain in type position into nested ClassType nodes
// and hoists a diamond into the enclosing instantiation.
func (p *Pass) typeName(n *ast.Node, path *rewrite.Path, b *ast.Builder) rewrite.Status {
	r := p.typeResolverFor(n, path)
	cands := p.addressable(r.Lookup(name.AmbiguousNamed(n.Idents...)), name.Class, name.TypeParameter)
	if len(cands) == 0 {
		if !resolvedByDeclare(n, path) {
			diag.Reportf(p.sink, n.Pos, diag.CategoryUnresolved, "cannot resolve type %s", n.Dotted())
		}
		return rewrite.Break()
	}
	t := p.pick(n, n.Dotted(), cands)
	out := p.classType(n, r, t, b.Children())

	if n.Diamond {
		if path != nil && path.Parent.Type == ast.New && n.Role == ast.RoleType {
			path.Builder.SetDiamond(true)
		} else {
			diag.Reportf(p.sink, n.Pos, diag.CategoryMisplacedDiamond,
				"<> is only allowed on the instantiated type of a new expression")
		}
	}
	return rewrite.Replace(out)
}

// resolvedByDeclare reports whether n heads a supertype clause, a bound or
// the base of an anonymous class. Declaration resolution already reported
// those when they failed.
func resolvedByDeclare(n *ast.Node, path *rewrite.Path) bool {
	if path == nil {
		return false
	}
	parent := path.Parent
	switch {
	case parent.IsTypeDeclaration():
		return n.Role == ast.RoleSuperclass || n.Role == ast.RoleInterface
	case parent.Type == ast.TypeParameter:
		return n.Role == ast.RoleBound
	case parent.Type == ast.New && n.Role == ast.RoleType:
		for _, ch := range parent.Children() {
			if ch.Anonymous && ch.Role == ast.RoleBody {
				return true
			}
		}
	}
	return false
}

// classType builds the nested type node for the written chain: every
// written prefix becomes the qualifier of the next identifier.
func (p *Pass) classType(n *ast.Node, r resolver.TypeNameResolver, t *name.Name, args []*ast.Node) *ast.Node {
	ids := n.Idents
	var qual *ast.Node
	for i := 1; i < len(ids); i++ {
		prefix := p.addressable(r.Lookup(name.AmbiguousNamed(ids[:i]...)), name.Class, name.Package)
		if len(prefix) == 0 {
			qual = nil
			continue
		}
		if prefix[0].Kind() == name.Package {
			qual = ast.NewPackageNameRef(strings.Join(ids[:i], "."), prefix[0]).At(n.Pos)
			continue
		}
		qual = ast.NewClassTypeRef(ids[i-1], prefix[0], qual).At(n.Pos)
	}
	out := ast.NewClassTypeRef(ids[len(ids)-1], t, qual, args...).At(n.Pos)
	out.Role = n.Role
	return out
}

// packageOrType resolves import names against canonical names only.
func (p *Pass) packageOrType(n *ast.Node, path *rewrite.Path) rewrite.Status {
	fq := p.env.FullyQualified()
	ids := n.Idents
	if got := p.addressable(fq.Lookup(name.AmbiguousNamed(ids...)), name.Class, name.Package); len(got) > 0 {
		if got[0].Kind() == name.Package {
			out := ast.NewPackageNameRef(n.Dotted(), got[0]).At(n.Pos)
			out.Role = n.Role
			return rewrite.Replace(out)
		}
		return rewrite.Replace(p.classType(n, fq, got[0], nil))
	}

	imp := path.Parent
	if imp.Type == ast.ImportDecl && imp.Static && !imp.Wildcard && len(ids) > 1 {
		owner := p.addressable(fq.Lookup(name.AmbiguousNamed(ids[:len(ids)-1]...)), name.Class)
		if len(owner) > 0 {
			member := ids[len(ids)-1]
			path.Builder.Update(func(x *ast.Node) { x.Ident = member })
			trimmed := *n
			trimmed.Idents = ids[:len(ids)-1]
			return rewrite.Replace(p.classType(&trimmed, fq, owner[0], nil))
		}
	}
	// Unresolvable imports are reported while building import scopes.
	return rewrite.Break()
}

// typeResolverFor finds the type-name resolver that applies to a name:
// supertype clauses and bounds use the clause scope of their declaration,
// everything else the innermost type scope.
func (p *Pass) typeResolverFor(n *ast.Node, path *rewrite.Path) resolver.TypeNameResolver {
	for e := path; e != nil; e = e.Up {
		parent := e.Parent
		child := e.Builder.Child(e.Index)
		switch {
		case parent.Type == ast.TypeParameter:
			if e.Up == nil {
				rewrite.Violation(parent, "type parameter outside a declaration")
			}
			owner := e.Up.Parent
			if owner.IsCallable() {
				return owner.TypeNameResolver()
			}
			return p.env.ClauseResolver(owner)
		case parent.IsTypeDeclaration() && (child.Role == ast.RoleSuperclass || child.Role == ast.RoleInterface):
			return p.env.ClauseResolver(parent)
		case parent.TypeNameResolver() != nil:
			return parent.TypeNameResolver()
		}
	}
	rewrite.Violation(n, "name outside any type scope")
	return nil
}

func expressionResolverFor(path *rewrite.Path) resolver.ExpressionNameResolver {
	for e := path; e != nil; e = e.Up {
		if r := e.Parent.ExpressionNameResolver(); r != nil {
			return r
		}
	}
	return nil
}

func hasKind(n *name.Name, kinds []name.Kind) bool {
	for _, k := range kinds {
		if n.Kind() == k {
			return true
		}
	}
	return false
}
