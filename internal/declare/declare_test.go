package declare

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jresolve/internal/ast"
	"jresolve/internal/diag"
	"jresolve/internal/name"
	"jresolve/internal/resolver"
	"jresolve/internal/systemtypes"
)

func unit(pkg string, children ...*ast.Node) *ast.Node {
	var kids []*ast.Node
	if pkg != "" {
		kids = append(kids, ast.NewPackageDecl(strings.Split(pkg, ".")...))
	}
	kids = append(kids, children...)
	return ast.NewCompilationUnit(pkg+".java", kids...)
}

func extends(ids ...string) *ast.Node {
	return ast.NewTypeRef(ids).As(ast.RoleSuperclass)
}

func implements(ids ...string) *ast.Node {
	return ast.NewTypeRef(ids).As(ast.RoleInterface)
}

func run(t *testing.T, units ...*ast.Node) (*Env, *diag.Collector) {
	t.Helper()
	u, err := systemtypes.Default()
	require.NoError(t, err)
	sink := diag.NewCollector(nil)
	return Run(units, u, sink, nil), sink
}

func class(pkg, id string) *name.Name {
	return name.PackageNamed(pkg).MustChild(id, name.Class)
}

func lookup(env *Env, scope *ast.Node, ids ...string) []*name.Name {
	return env.ResolverForScope(scope).Lookup(name.AmbiguousNamed(ids...))
}

func TestResolve_SamePackageSupertype(t *testing.T) {
	a := ast.NewClass("A", extends("B"))
	b := ast.NewClass("B")
	env, sink := run(t, unit("p", a), unit("p", b))

	assert.Empty(t, sink.Items)
	require.NotNil(t, a.TypeInfo())
	assert.True(t, a.TypeInfo().Complete)
	assert.True(t, a.TypeInfo().SuperType.Equal(class("p", "B")))
	assert.True(t, b.TypeInfo().SuperType.Equal(class("java.lang", "Object")))

	da, ok := env.DeclarationOf(a)
	require.True(t, ok)
	assert.Equal(t, Resolved, da.Stage)
}

func TestResolve_CycleIsReportedOnce(t *testing.T) {
	a := ast.NewClass("A", extends("B"))
	b := ast.NewClass("B", extends("A"))
	env, sink := run(t, unit("p", a, b))

	cycles := sink.ByCategory(diag.CategoryCycle)
	require.Len(t, cycles, 1)
	assert.Contains(t, cycles[0].Message, "p.A")
	assert.Contains(t, cycles[0].Message, "p.B")

	for _, n := range []*ast.Node{a, b} {
		d, ok := env.DeclarationOf(n)
		require.True(t, ok)
		assert.Equal(t, Unresolvable, d.Stage)
		assert.True(t, n.TypeInfo().Complete)
	}
}

func TestResolve_DependentOfCycleStillResolves(t *testing.T) {
	a := ast.NewClass("A", extends("B"))
	b := ast.NewClass("B", extends("A"))
	c := ast.NewClass("C", extends("A"))
	env, sink := run(t, unit("p", c, a, b))

	require.Len(t, sink.ByCategory(diag.CategoryCycle), 1)
	dc, _ := env.DeclarationOf(c)
	assert.Equal(t, Resolved, dc.Stage)
	assert.NotContains(t, sink.ByCategory(diag.CategoryCycle)[0].Message, "p.C")
}

func TestResolve_SupertypeThroughOwnMemberIsACycle(t *testing.T) {
	inner := ast.NewClass("T").WithModifiers(resolver.ModStatic)
	s := ast.NewClass("S", extends("S", "T"), inner)
	env, sink := run(t, unit("p", s))

	require.Len(t, sink.ByCategory(diag.CategoryCycle), 1)
	ds, _ := env.DeclarationOf(s)
	dt, _ := env.DeclarationOf(inner)
	assert.Equal(t, Unresolvable, ds.Stage)
	assert.Equal(t, Unresolvable, dt.Stage)
}

func TestScan_DuplicateKeepsFirst(t *testing.T) {
	first := ast.NewClass("A")
	second := ast.NewClass("A")
	env, sink := run(t, unit("p", first), unit("p", second))

	dups := sink.ByCategory(diag.CategoryDuplicate)
	require.Len(t, dups, 1)
	d, ok := env.Lookup(class("p", "A"))
	require.True(t, ok)
	assert.Same(t, first, d.Node)

	d2, ok := env.DeclarationOf(second)
	require.True(t, ok)
	assert.True(t, d2.Duplicate)
}

func TestScan_AnonymousClassesAndVariants(t *testing.T) {
	runnable := ast.NewAnonymousClass()
	object := ast.NewAnonymousClass()
	body := ast.NewBlock(
		ast.NewExprStmt(ast.NewInstantiation(ast.NewTypeRef([]string{"Runnable"}), runnable)),
		ast.NewExprStmt(ast.NewInstantiation(ast.NewTypeRef([]string{"Object"}), object)),
	)
	m1 := ast.NewMethod("m", body)
	m2 := ast.NewMethod("m")
	n1 := ast.NewMethod("n")
	ctor := ast.NewConstructor("A")
	a := ast.NewClass("A", m1, m2, n1, ctor)
	_, sink := run(t, unit("p", a))
	assert.Empty(t, sink.Items)

	assert.Equal(t, 1, m1.Variant())
	assert.Equal(t, 2, m2.Variant())
	assert.Equal(t, 1, n1.Variant())
	assert.Equal(t, 1, ctor.Variant())

	ri := runnable.TypeInfo()
	require.NotNil(t, ri)
	assert.Equal(t, "/p/A$1", ri.CanonicalName.ToInternalNameString())
	assert.True(t, ri.Anonymous)
	assert.Equal(t, "java.lang.Object", ri.SuperType.ToDottedString())
	require.Len(t, ri.Interfaces, 1)
	assert.Equal(t, "java.lang.Runnable", ri.Interfaces[0].ToDottedString())

	oi := object.TypeInfo()
	assert.Equal(t, "/p/A$2", oi.CanonicalName.ToInternalNameString())
	assert.Equal(t, "java.lang.Object", oi.SuperType.ToDottedString())
	assert.Empty(t, oi.Interfaces)

	var members []string
	for _, m := range a.TypeInfo().Members {
		members = append(members, m.Name.ToInternalNameString())
	}
	assert.Equal(t, []string{"/p/A.m()#1", "/p/A.m()#2", "/p/A.n()#1", "/p/A.<init>()#1"}, members)
}

func TestScan_EnumConstantBody(t *testing.T) {
	body := ast.NewAnonymousClass()
	e := ast.NewTypeDecl(ast.EnumDecl, "E", ast.NewEnumConstant("X", body), ast.NewEnumConstant("Y"))
	_, sink := run(t, unit("p", e))
	assert.Empty(t, sink.Items)

	assert.Equal(t, "java.lang.Enum", e.TypeInfo().SuperType.ToDottedString())
	assert.Equal(t, "p.E.1", body.TypeInfo().CanonicalName.ToDottedString())
	assert.True(t, body.TypeInfo().SuperType.Equal(class("p", "E")))
	_, ok := e.TypeInfo().Field("Y")
	assert.True(t, ok)
}

func TestScope_WildcardImport(t *testing.T) {
	c := ast.NewClass("C")
	u := unit("", ast.NewImport(false, true, "java", "util"), c)
	env, sink := run(t, u)
	assert.Empty(t, sink.Items)

	got := lookup(env, c, "List")
	require.Len(t, got, 1)
	assert.Equal(t, "java.util.List", got[0].ToDottedString())

	got = lookup(env, c, "Map", "Entry")
	require.Len(t, got, 1)
	assert.Equal(t, "/java/util/Map$Entry", got[0].ToInternalNameString())

	got = lookup(env, c, "String")
	require.Len(t, got, 1)
	assert.Equal(t, "java.lang.String", got[0].ToDottedString())

	got = lookup(env, c, "java", "util")
	require.Len(t, got, 1)
	assert.Equal(t, name.Package, got[0].Kind())
}

func TestScope_ImportPriority(t *testing.T) {
	qList := ast.NewClass("List")
	pList := ast.NewClass("List")
	withImport := ast.NewClass("C")
	samePackage := ast.NewClass("D")
	env, sink := run(t,
		unit("q", qList),
		unit("p", ast.NewImport(false, false, "q", "List"), ast.NewImport(false, true, "java", "util"), withImport),
		unit("p", ast.NewImport(false, true, "java", "util"), samePackage, pList),
	)
	assert.Empty(t, sink.Items)

	got := lookup(env, withImport, "List")
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(class("q", "List")), "single-type import wins")

	got = lookup(env, samePackage, "List")
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(class("p", "List")), "same package beats wildcard imports")

	trace := env.UnitChain(env.UnitOf(withImport)).Trace(name.AmbiguousNamed("List"))
	require.Len(t, trace, 4)
	assert.Equal(t, "single-type imports", trace[0].Layer)
	assert.True(t, trace[0].Selected)
	assert.NotEmpty(t, trace[2].Candidates)
}

func TestScope_ImportCollisionAndUnresolvedImport(t *testing.T) {
	_, sink := run(t,
		unit("a", ast.NewClass("List")),
		unit("p",
			ast.NewImport(false, false, "a", "List"),
			ast.NewImport(false, false, "java", "util", "List"),
			ast.NewImport(false, false, "nope", "Missing"),
			ast.NewImport(true, false, "java", "lang", "Math", "PI"),
			ast.NewClass("C")),
	)
	assert.Len(t, sink.ByCategory(diag.CategoryCollision), 1)
	unresolved := sink.ByCategory(diag.CategoryUnresolved)
	require.Len(t, unresolved, 1)
	assert.Contains(t, unresolved[0].Message, "nope.Missing")
}

func TestScope_InheritedAndNestedTypes(t *testing.T) {
	node := ast.NewClass("Node").WithModifiers(resolver.ModStatic)
	base := ast.NewClass("Base", node)
	inner := ast.NewClass("Inner")
	derived := ast.NewClass("Derived", extends("Base"), inner)
	env, sink := run(t, unit("p", base, derived))
	assert.Empty(t, sink.Items)

	got := lookup(env, derived, "Node")
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(class("p", "Base").MustChild("Node", name.Class)))

	got = lookup(env, inner, "Node")
	require.Len(t, got, 1, "visible through the enclosing class")

	got = lookup(env, derived, "Derived", "Inner")
	require.Len(t, got, 1)
	assert.Equal(t, "/p/Derived$Inner", got[0].ToInternalNameString())
	assert.Equal(t, "p.Derived", inner.TypeInfo().OuterType.ToDottedString())

	assert.Empty(t, lookup(env, base, "Inner"))
}

func TestScope_TypeParameters(t *testing.T) {
	tp := ast.NewTypeParameter("T", ast.NewTypeRef([]string{"Comparable"}, ast.NewTypeRef([]string{"T"})))
	mtp := ast.NewTypeParameter("U", ast.NewTypeRef([]string{"Number"}))
	method := ast.NewMethod("m", mtp)
	box := ast.NewClass("Box", tp, method)
	env, sink := run(t, unit("p", box))
	assert.Empty(t, sink.Items)

	got := lookup(env, box, "T")
	require.Len(t, got, 1)
	assert.Equal(t, name.TypeParameter, got[0].Kind())

	ti := tp.TypeInfo()
	require.True(t, ti.Complete)
	require.Len(t, ti.Interfaces, 1)
	assert.Equal(t, "java.lang.Comparable", ti.Interfaces[0].ToDottedString())

	assert.Equal(t, "java.lang.Number", mtp.TypeInfo().SuperType.ToDottedString())
	assert.Len(t, lookup(env, method, "U"), 1)
	assert.Empty(t, lookup(env, box, "U"), "method type parameters stay in the method")
	assert.NotNil(t, method.TypeNameResolver())
}

func TestScope_LocalClass(t *testing.T) {
	local := ast.NewClass("Helper")
	method := ast.NewMethod("m", ast.NewBlock(local))
	a := ast.NewClass("A", method)
	env, sink := run(t, unit("p", a))
	assert.Empty(t, sink.Items)

	got := lookup(env, method, "Helper")
	require.Len(t, got, 1)
	assert.Equal(t, "/p/A$1Helper", got[0].ToInternalNameString())
	assert.Empty(t, lookup(env, a, "Helper"))
}

func TestScan_LocalClassDoesNotShiftAnonymousNumbers(t *testing.T) {
	local := ast.NewClass("L")
	anon := ast.NewAnonymousClass()
	second := ast.NewClass("M")
	method := ast.NewMethod("f", ast.NewBlock(
		local,
		ast.NewExprStmt(ast.NewInstantiation(ast.NewTypeRef([]string{"Object"}), anon)),
		second,
	))
	_, sink := run(t, unit("p", ast.NewClass("A", method)))
	assert.Empty(t, sink.Items)

	assert.Equal(t, "/p/A$1L", local.TypeInfo().CanonicalName.ToInternalNameString())
	assert.Equal(t, "/p/A$1", anon.TypeInfo().CanonicalName.ToInternalNameString())
	assert.Equal(t, "/p/A$2M", second.TypeInfo().CanonicalName.ToInternalNameString())
}

func TestResolve_UnresolvedSupertype(t *testing.T) {
	a := ast.NewClass("A", extends("Missing"), implements("Runnable"))
	_, sink := run(t, unit("p", a))

	require.Len(t, sink.ByCategory(diag.CategoryUnresolved), 1)
	ti := a.TypeInfo()
	assert.Equal(t, "java.lang.Object", ti.SuperType.ToDottedString())
	require.Len(t, ti.Interfaces, 1)
}
