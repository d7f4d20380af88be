package declare

import (
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"jresolve/internal/ast"
	"jresolve/internal/diag"
	"jresolve/internal/name"
	"jresolve/internal/resolver"
)

var (
	javaLang   = name.PackageNamed("java.lang")
	javaObject = javaLang.MustChild("Object", name.Class)
	javaEnum   = javaLang.MustChild("Enum", name.Class)
)

// ResolveAll resolves every scanned declaration in scan order.
func (e *Env) ResolveAll() {
	for _, d := range e.decls {
		e.resolve(d)
	}
	counts := make(map[Stage]int)
	for _, d := range e.decls {
		counts[d.Stage]++
	}
	e.logger.WithFields(log.Fields{
		"resolved":     counts[Resolved],
		"unresolvable": counts[Unresolvable],
	}).Debug("declarations resolved")
}

// resolve drives the stage machine of one declaration. Re-entering a
// declaration that is in progress means its supertypes depend on it.
func (e *Env) resolve(d *Declaration) {
	if d.IsTypeParameter() {
		e.resolveTypeParameter(d)
		return
	}
	switch d.Stage {
	case Resolved, Unresolvable:
		return
	case InProgress:
		e.reportCycle(d)
		return
	}

	d.Stage = InProgress
	e.loop = append(e.loop, d)
	defer func() { e.loop = e.loop[:len(e.loop)-1] }()

	super, ifaces := e.resolveSupertypes(d)
	for _, s := range append([]*name.Name{super}, ifaces...) {
		if s == nil {
			continue
		}
		if sd, ok := e.byName[s.Key()]; ok {
			e.resolve(sd)
		}
	}

	d.Node.SetTypeInfo(e.buildTypeInfo(d, super, ifaces, true))
	if d.inCycle {
		d.Stage = Unresolvable
	} else {
		d.Stage = Resolved
	}
}

func (e *Env) reportCycle(d *Declaration) {
	start := -1
	for i, l := range e.loop {
		if l == d {
			start = i
			break
		}
	}
	if start < 0 {
		return
	}
	members := e.loop[start:]
	names := make([]string, len(members))
	keys := make([]string, len(members))
	for i, m := range members {
		m.inCycle = true
		m.Stage = Unresolvable
		names[i] = m.Canonical.ToDottedString()
		keys[i] = m.Canonical.Key()
	}
	sort.Strings(keys)
	if !e.reportedCycles.Insert(strings.Join(keys, ",")) {
		return
	}
	diag.Reportf(e.sink, d.Node.Pos, diag.CategoryCycle,
		"cyclic inheritance involving %s", strings.Join(names, ", "))
}

// resolveSupertypes resolves the superclass and interfaces of d, applying
// the implicit supertypes of classes, enums and anonymous classes.
func (e *Env) resolveSupertypes(d *Declaration) (*name.Name, []*name.Name) {
	n := d.Node
	switch {
	case d.anonBase != nil:
		base, ok := e.resolveTypeRef(d.anonBase, e.ResolverForScope(d.Scope))
		if !ok {
			return javaObject, nil
		}
		if ti, ok := e.TypeInfoResolver().Resolve(base); ok && ti.IsInterface() {
			return javaObject, []*name.Name{base}
		}
		return base, nil
	case d.enumOwner != nil:
		return d.enumOwner.Canonical, nil
	}

	clauses := e.clauseResolver(d.Node, d.Scope)
	var super *name.Name
	if ref := n.FirstChildWithRole(ast.RoleSuperclass); ref != nil {
		super, _ = e.resolveTypeRef(ref, clauses)
	}
	var ifaces []*name.Name
	for _, ref := range n.ChildrenWithRole(ast.RoleInterface) {
		if t, ok := e.resolveTypeRef(ref, clauses); ok {
			ifaces = append(ifaces, t)
		}
	}

	switch {
	case n.Modifiers.Has(resolver.ModInterface):
		super = nil
	case n.Modifiers.Has(resolver.ModEnum):
		super = javaEnum
	case super == nil && !d.Canonical.Equal(javaObject):
		super = javaObject
	}
	return super, ifaces
}

// resolveTypeRef resolves a supertype or bound reference to a class or
// type parameter name, reporting what it cannot resolve.
func (e *Env) resolveTypeRef(ref *ast.Node, r resolver.TypeNameResolver) (*name.Name, bool) {
	if ref.Name != nil {
		return ref.Name, true
	}
	ids := ref.Idents
	if len(ids) == 0 {
		return nil, false
	}
	var cands []*name.Name
	for _, c := range r.Lookup(name.AmbiguousNamed(ids...)) {
		if c.Kind() == name.Class || c.Kind() == name.TypeParameter {
			cands = append(cands, c)
		}
	}
	switch len(cands) {
	case 0:
		diag.Reportf(e.sink, ref.Pos, diag.CategoryUnresolved, "cannot resolve type %s", ref.Dotted())
		return nil, false
	case 1:
		return cands[0], true
	}
	diag.Reportf(e.sink, ref.Pos, diag.CategoryAmbiguous, "type %s is ambiguous: %s", ref.Dotted(), joinNames(cands))
	return cands[0], true
}

// resolveTypeParameter resolves the bounds of a type parameter. Bounds do
// not take part in cycle detection.
func (e *Env) resolveTypeParameter(d *Declaration) {
	if d.Stage != Unresolved {
		return
	}
	d.Stage = InProgress

	var r resolver.TypeNameResolver
	if d.Scope.IsCallable() {
		r = e.ResolverForScope(d.Scope)
	} else {
		r = e.clauseResolver(d.Scope, e.parentScope[d.Scope.ID()])
	}

	ti := &resolver.TypeInfo{CanonicalName: d.Canonical, Complete: true}
	for _, b := range d.Node.ChildrenWithRole(ast.RoleBound) {
		t, ok := e.resolveTypeRef(b, r)
		if !ok {
			continue
		}
		if ti.SuperType == nil && len(ti.Interfaces) == 0 && !e.isInterface(t) {
			ti.SuperType = t
			continue
		}
		ti.Interfaces = append(ti.Interfaces, t)
	}
	if ti.SuperType == nil {
		ti.SuperType = javaObject
	}
	d.Node.SetTypeInfo(ti)
	d.Stage = Resolved
}

func (e *Env) isInterface(t *name.Name) bool {
	if t.Kind() != name.Class {
		return false
	}
	ti, ok := e.TypeInfoResolver().Resolve(t)
	return ok && ti.IsInterface()
}

func joinNames(ns []*name.Name) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = n.ToDottedString()
	}
	return strings.Join(parts, ", ")
}
