package scoping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jresolve/internal/ast"
	"jresolve/internal/declare"
	"jresolve/internal/diag"
	"jresolve/internal/name"
	"jresolve/internal/resolver"
	"jresolve/internal/systemtypes"
)

func use(ids ...string) *ast.Node {
	return ast.NewExprStmt(ast.NewCall(nil, "use", ast.NewExprName(ids...)))
}

func localInt(id string, value *ast.Node) *ast.Node {
	return ast.NewLocalVar(ast.NewPrimitiveType("int"), ast.NewDeclarator(id, value))
}

func intField(id string) *ast.Node {
	return ast.NewField(ast.NewPrimitiveType("int"), ast.NewDeclarator(id, nil))
}

// resolveNames resolves the leading identifier of every expression name in
// preorder through the innermost expression scope.
func resolveNames(t *testing.T, units ...*ast.Node) []*name.Name {
	t.Helper()
	u, err := systemtypes.Default()
	require.NoError(t, err)
	env := declare.Run(units, u, diag.NewCollector(nil), nil)
	out, err := Run(units, env.TypeInfoResolver(), nil)
	require.NoError(t, err)

	var got []*name.Name
	var walk func(n *ast.Node, scopes []resolver.ExpressionNameResolver)
	walk = func(n *ast.Node, scopes []resolver.ExpressionNameResolver) {
		if r := n.ExpressionNameResolver(); r != nil {
			scopes = append(scopes, r)
		}
		if n.Type == ast.AmbiguousName && n.Context == ast.ContextExpression {
			require.NotEmpty(t, scopes)
			res, ok := scopes[len(scopes)-1].ResolveExpressionName(n.Idents[0], n.Marker())
			if !ok {
				res = nil
			}
			got = append(got, res)
		}
		for _, c := range n.Children() {
			walk(c, scopes)
		}
	}
	for _, u := range out {
		walk(u, nil)
	}
	return got
}

func kinds(ns []*name.Name) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		if n == nil {
			out[i] = "-"
			continue
		}
		out[i] = n.Kind().String()
	}
	return out
}

func TestShadowing_LocalAfterDeclarationPoint(t *testing.T) {
	a := ast.NewClass("A",
		intField("foo"),
		ast.NewMethod("m", ast.NewBlock(
			use("foo"),
			localInt("foo", ast.NewLiteral("1")),
			use("foo"),
		)),
		ast.NewMethod("n", ast.NewBlock(use("foo"))),
	)
	got := resolveNames(t, ast.NewCompilationUnit("A.java", ast.NewPackageDecl("p"), a))

	require.Len(t, got, 3)
	assert.Equal(t, []string{"field", "local", "field"}, kinds(got))
	assert.Equal(t, "p.A.foo", got[0].ToDottedString())
}

func TestLocals_OwnInitializerAndNestedBlocks(t *testing.T) {
	a := ast.NewClass("A",
		ast.NewMethod("m", ast.NewBlock(
			localInt("x", ast.NewBinary("+", ast.NewExprName("x"), ast.NewLiteral("1"))),
			ast.NewBlock(localInt("y", nil)),
			use("y"),
			use("x"),
		)),
	)
	got := resolveNames(t, ast.NewCompilationUnit("A.java", a))

	require.Len(t, got, 3)
	assert.Equal(t, []string{"local", "-", "local"}, kinds(got), "y is closed with its block")
}

func TestParametersAndInheritedFields(t *testing.T) {
	base := ast.NewClass("Base", intField("size"))
	derived := ast.NewClass("Derived", ast.NewTypeRef([]string{"Base"}).As(ast.RoleSuperclass),
		ast.NewMethod("m",
			ast.NewParam(ast.NewPrimitiveType("int"), "arg"),
			ast.NewBlock(use("arg"), use("size"), use("System", "out"), use("missing")),
		),
	)
	got := resolveNames(t, ast.NewCompilationUnit("A.java", ast.NewPackageDecl("p"), base, derived))

	require.Len(t, got, 4)
	assert.Equal(t, []string{"local", "field", "-", "-"}, kinds(got))
	assert.Equal(t, "p.Base.size", got[1].ToDottedString())
}

func TestLocalClassSeesLocalsDeclaredBeforeIt(t *testing.T) {
	local := ast.NewClass("L", ast.NewMethod("run", ast.NewBlock(use("before"), use("after"))))
	a := ast.NewClass("A",
		ast.NewMethod("m", ast.NewBlock(
			localInt("before", nil),
			local,
			localInt("after", nil),
		)),
	)
	got := resolveNames(t, ast.NewCompilationUnit("A.java", a))

	require.Len(t, got, 2)
	assert.Equal(t, []string{"local", "-"}, kinds(got))
}

func TestPassLeavesTreeUntouched(t *testing.T) {
	cu := ast.NewCompilationUnit("A.java", ast.NewClass("A", ast.NewMethod("m", ast.NewBlock(use("x")))))
	u, err := systemtypes.Default()
	require.NoError(t, err)
	env := declare.Run([]*ast.Node{cu}, u, nil, nil)

	out, err := Run([]*ast.Node{cu}, env.TypeInfoResolver(), nil)
	require.NoError(t, err)
	assert.Same(t, cu, out[0])
}
