package declare

import (
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"jresolve/internal/ast"
	"jresolve/internal/diag"
	"jresolve/internal/name"
	"jresolve/internal/resolver"
)

type scanCtx struct {
	unit  *ast.Node
	scope *ast.Node
	owner *Declaration
	pkg   *name.Name
}

// container is the name new type declarations are nested under.
func (c scanCtx) container() *name.Name {
	if c.owner != nil {
		return c.owner.Canonical
	}
	return c.pkg
}

// Scan registers every type declaration of units, numbers anonymous
// classes and method overloads, and installs optimistic TypeInfo records.
func (e *Env) Scan(units []*ast.Node) {
	for _, u := range units {
		e.units = append(e.units, u)
		pkg := name.DefaultPackage
		if pd := u.FirstChildWithRole(ast.RolePackage); pd != nil && len(pd.Idents) > 0 {
			pkg = name.PackageNamed(strings.Join(pd.Idents, "."))
		}
		e.unitPkg[u.ID()] = pkg
		e.addPackage(pkg)
		e.unitOf[u.ID()] = u
		e.scanChildren(u, scanCtx{unit: u, scope: u, pkg: pkg})
	}
	e.logger.WithFields(log.Fields{
		"units":        len(units),
		"declarations": len(e.decls),
	}).Debug("scan complete")
}

func (e *Env) addPackage(pkg *name.Name) {
	for p := pkg; p != nil && !p.IsDefaultPackage(); p = p.Parent() {
		e.packages[p.Key()] = p
	}
}

func (e *Env) scanChildren(n *ast.Node, c scanCtx) {
	for _, ch := range n.Children() {
		e.scanNode(ch, c)
	}
}

func (e *Env) scanNode(n *ast.Node, c scanCtx) {
	switch {
	case n.Type == ast.ClassDecl || n.Type == ast.InterfaceDecl || n.Type == ast.EnumDecl:
		e.scanType(n, c, nil)
		return
	case n.IsCallable():
		e.scanCallable(n, c)
		return
	case n.Type == ast.New:
		base := n.FirstChildWithRole(ast.RoleType)
		for _, ch := range n.Children() {
			if ch.Anonymous && ch.Role == ast.RoleBody {
				e.scanType(ch, c, func(d *Declaration) { d.anonBase = base })
				continue
			}
			e.scanNode(ch, c)
		}
		return
	case n.Type == ast.EnumConstant:
		enum := c.owner
		for _, ch := range n.Children() {
			if ch.Anonymous && ch.Role == ast.RoleBody {
				e.scanType(ch, c, func(d *Declaration) { d.enumOwner = enum })
				continue
			}
			e.scanNode(ch, c)
		}
		return
	}
	e.scanChildren(n, c)
}

// nextAnonymous numbers anonymous classes per container starting at 1.
// Local classes draw from their own sequence so they never shift it.
func (e *Env) nextAnonymous(container *name.Name, local bool) int {
	key := container.Key()
	if local {
		key += "#local"
	}
	e.anonCounters[key]++
	return e.anonCounters[key]
}

func (e *Env) declare(scope *ast.Node, identifier string, n *name.Name) {
	table := e.declared[scope.ID()]
	if table == nil {
		table = make(map[string][]*name.Name)
		e.declared[scope.ID()] = table
	}
	table[identifier] = append(table[identifier], n)
}

func (e *Env) scanType(n *ast.Node, c scanCtx, hook func(*Declaration)) {
	container := c.container()
	local := c.scope.IsCallable()

	var identifier string
	switch {
	case n.Anonymous:
		identifier = strconv.Itoa(e.nextAnonymous(container, false))
	case local:
		// Local classes are named like the JVM does: Outer$1Local.
		identifier = strconv.Itoa(e.nextAnonymous(container, true)) + n.Ident
	default:
		identifier = n.Ident
	}
	canonical, err := container.Child(identifier, name.Class)
	if err != nil {
		diag.Reportf(e.sink, n.Pos, diag.CategoryUnresolved, "invalid type declaration %q: %v", n.Ident, err)
		return
	}

	d := &Declaration{Node: n, Unit: c.unit, Scope: c.scope, Canonical: canonical, outer: c.owner}
	e.register(d)
	e.parentScope[n.ID()] = c.scope
	e.unitOf[n.ID()] = c.unit

	if !d.Duplicate {
		switch {
		case n.Anonymous:
			if c.owner != nil {
				c.owner.inner = append(c.owner.inner, canonical)
			}
		case local:
			e.declare(c.scope, n.Ident, canonical)
		case c.owner != nil:
			c.owner.inner = append(c.owner.inner, canonical)
			e.declare(c.owner.Node, n.Ident, canonical)
		}
	}
	if hook != nil {
		hook(d)
	}

	inner := scanCtx{unit: c.unit, scope: n, owner: d, pkg: c.pkg}
	for _, ch := range n.Children() {
		if ch.Type == ast.TypeParameter {
			e.scanTypeParameter(ch, n, c.unit)
			continue
		}
		e.scanNode(ch, inner)
	}

	d.members = e.collectMembers(d)
	n.SetTypeInfo(e.buildTypeInfo(d, nil, nil, false))
}

func (e *Env) register(d *Declaration) {
	e.decls = append(e.decls, d)
	e.byNode[d.Node.ID()] = d
	if d.IsTypeParameter() {
		return
	}
	key := d.Canonical.Key()
	if first, dup := e.byName[key]; dup {
		d.Duplicate = true
		diag.Reportf(e.sink, d.Node.Pos, diag.CategoryDuplicate,
			"duplicate type %s: declared at %s and %s",
			d.Canonical.ToDottedString(), first.Node.Pos, d.Node.Pos)
		return
	}
	e.byName[key] = d
}

func (e *Env) scanTypeParameter(tp, scope, unit *ast.Node) {
	var root *name.Name
	canonical, err := root.Child(tp.Ident, name.TypeParameter)
	if err != nil {
		diag.Reportf(e.sink, tp.Pos, diag.CategoryUnresolved, "invalid type parameter: %v", err)
		return
	}
	d := &Declaration{Node: tp, Unit: unit, Scope: scope, Canonical: canonical}
	e.register(d)
	e.typeParams[scope.ID()] = append(e.typeParams[scope.ID()], d)
	e.declare(scope, tp.Ident, canonical)
	tp.SetTypeInfo(&resolver.TypeInfo{CanonicalName: canonical})
}

func (e *Env) scanCallable(n *ast.Node, c scanCtx) {
	e.parentScope[n.ID()] = c.scope
	e.unitOf[n.ID()] = c.unit
	if n.Variant() == 0 && c.owner != nil {
		key := c.owner.Canonical.Key() + "#" + n.MethodName()
		e.variantCounters[key]++
		n.SetVariant(e.variantCounters[key])
	}

	inner := scanCtx{unit: c.unit, scope: n, owner: c.owner, pkg: c.pkg}
	for _, ch := range n.Children() {
		if ch.Type == ast.TypeParameter {
			e.scanTypeParameter(ch, n, c.unit)
			continue
		}
		e.scanNode(ch, inner)
	}
}

// collectMembers lists the fields and methods declared directly in d.
func (e *Env) collectMembers(d *Declaration) []resolver.Member {
	var out []resolver.Member
	iface := d.Node.Modifiers.Has(resolver.ModInterface)
	for _, ch := range d.Node.Children() {
		switch ch.Type {
		case ast.FieldDecl:
			mods := ch.Modifiers
			if iface {
				mods |= resolver.ModPublic | resolver.ModStatic | resolver.ModFinal
			}
			for _, v := range ch.ChildrenWithRole(ast.RoleDeclarator) {
				if f, err := d.Canonical.Child(v.Ident, name.Field); err == nil {
					out = append(out, resolver.Member{Name: f, Modifiers: mods})
				}
			}
		case ast.EnumConstant:
			if f, err := d.Canonical.Child(ch.Ident, name.Field); err == nil {
				out = append(out, resolver.Member{
					Name:      f,
					Modifiers: resolver.ModPublic | resolver.ModStatic | resolver.ModFinal,
				})
			}
		case ast.MethodDecl, ast.ConstructorDecl:
			mods := ch.Modifiers
			if iface && !mods.Has(resolver.ModPrivate) {
				mods |= resolver.ModPublic
			}
			if m, err := d.Canonical.ChildMethod(ch.MethodName(), ch.Variant()); err == nil {
				out = append(out, resolver.Member{Name: m, Modifiers: mods})
			}
		}
	}
	return out
}

func (e *Env) buildTypeInfo(d *Declaration, super *name.Name, ifaces []*name.Name, complete bool) *resolver.TypeInfo {
	ti := &resolver.TypeInfo{
		CanonicalName: d.Canonical,
		Modifiers:     d.Node.Modifiers,
		Anonymous:     d.Node.Anonymous,
		SuperType:     super,
		Interfaces:    ifaces,
		InnerTypes:    append([]*name.Name(nil), d.inner...),
		Members:       append([]resolver.Member(nil), d.members...),
		Complete:      complete,
	}
	if d.outer != nil {
		ti.OuterType = d.outer.Canonical
		if d.outer.Node.Modifiers.Has(resolver.ModInterface) {
			ti.Modifiers |= resolver.ModPublic | resolver.ModStatic
		}
	}
	if ti.Modifiers.Has(resolver.ModEnum) && d.outer != nil {
		ti.Modifiers |= resolver.ModStatic
	}
	return ti
}
