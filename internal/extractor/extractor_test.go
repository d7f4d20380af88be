package extractor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/xxh3"

	"jresolve/internal/ast"
	"jresolve/internal/resolver"
)

func first(root *ast.Node, pred func(*ast.Node) bool) *ast.Node {
	var found *ast.Node
	ast.Walk(root, func(n *ast.Node) bool {
		if found != nil {
			return false
		}
		if pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

func declNamed(t ast.NodeType, ident string) func(*ast.Node) bool {
	return func(n *ast.Node) bool { return n.Type == t && n.Ident == ident }
}

func TestExtractor_ExtractFromFile(t *testing.T) {
	testFile := filepath.Join("testdata", "Sample.java")

	ext, err := NewExtractor("java")
	require.NoError(t, err)

	unit, err := ext.ExtractFromFile(context.Background(), testFile)
	require.NoError(t, err)
	root := unit.Root
	require.Equal(t, ast.CompilationUnit, root.Type)

	t.Run("Source Info", func(t *testing.T) {
		src, err := os.ReadFile(testFile)
		require.NoError(t, err)
		assert.Equal(t, "com.acme.shapes", unit.Package)
		assert.Equal(t, "java", unit.Language)
		assert.Equal(t, xxh3.Hash(src), unit.Digest)
		assert.Equal(t, testFile, root.Ident)
	})

	t.Run("Package And Imports", func(t *testing.T) {
		pkg := root.FirstChildWithRole(ast.RolePackage)
		require.NotNil(t, pkg)
		assert.Equal(t, []string{"com", "acme", "shapes"}, pkg.Idents)

		imports := root.ChildrenWithRole(ast.RoleImport)
		require.Len(t, imports, 3)
		assert.True(t, imports[0].Wildcard)
		assert.Equal(t, "(ImportDecl (AmbiguousName:package_or_type java.util))", ast.Format(imports[0]))
		assert.False(t, imports[1].Wildcard)
		assert.Equal(t, []string{"java", "util", "function", "Function"}, imports[1].Child(0).Idents)
		assert.True(t, imports[2].Static)
		assert.Equal(t, 5, imports[2].Pos.Line)
	})

	t.Run("Class Header", func(t *testing.T) {
		shape := first(root, declNamed(ast.ClassDecl, "Shape"))
		require.NotNil(t, shape)
		assert.True(t, shape.Modifiers.Has(resolver.ModPublic|resolver.ModAbstract))
		assert.Equal(t, 7, shape.Pos.Line)

		tps := shape.ChildrenWithRole(ast.RoleTypeParameter)
		require.Len(t, tps, 1)
		assert.Equal(t,
			"(TypeParameter T (AmbiguousName:type Comparable (TypeArguments (AmbiguousName:type T))))",
			ast.Format(tps[0]))

		super := shape.FirstChildWithRole(ast.RoleSuperclass)
		require.NotNil(t, super)
		assert.Equal(t, []string{"Base"}, super.Idents)

		var ifaces []string
		for _, i := range shape.ChildrenWithRole(ast.RoleInterface) {
			ifaces = append(ifaces, i.Dotted())
		}
		assert.Equal(t, []string{"Named", "Cloneable"}, ifaces)
	})

	t.Run("Fields", func(t *testing.T) {
		var fields []*ast.Node
		for _, m := range first(root, declNamed(ast.ClassDecl, "Shape")).ChildrenWithRole(ast.RoleMember) {
			if m.Type == ast.FieldDecl {
				fields = append(fields, m)
			}
		}
		require.Len(t, fields, 2)
		assert.True(t, fields[0].Modifiers.Has(resolver.ModStatic|resolver.ModFinal))
		assert.Equal(t, "(FieldDecl (PrimitiveType double) (VarDeclarator UNIT (Literal 1.0)))", ast.Format(fields[0]))
		assert.Equal(t,
			"(FieldDecl (AmbiguousName:type List (TypeArguments (AmbiguousName:type String))) "+
				"(VarDeclarator tags (New (AmbiguousName:type ArrayList <>))))",
			ast.Format(fields[1]))
	})

	t.Run("Constructor", func(t *testing.T) {
		ctor := first(root, declNamed(ast.ConstructorDecl, "Shape"))
		require.NotNil(t, ctor)
		assert.Equal(t,
			"(ConstructorDecl Shape (Param sides (PrimitiveType int)) "+
				"(Block (ExprStmt (Assign = (FieldAccess sides (This)) (AmbiguousName:expression sides)))))",
			ast.Format(ctor))
	})

	t.Run("Abstract Method", func(t *testing.T) {
		area := first(root, declNamed(ast.MethodDecl, "area"))
		require.NotNil(t, area)
		assert.Nil(t, area.FirstChildWithRole(ast.RoleBody))
		assert.Equal(t, "(MethodDecl area (PrimitiveType double))", ast.Format(area))
	})

	t.Run("Method Body", func(t *testing.T) {
		describe := first(root, declNamed(ast.MethodDecl, "describe"))
		require.NotNil(t, describe)
		body := describe.FirstChildWithRole(ast.RoleBody)
		require.NotNil(t, body)
		stmts := body.Children()
		require.Len(t, stmts, 4)

		assert.Equal(t,
			"(LocalVarDecl (PrimitiveType int) (VarDeclarator count (MethodCall size (AmbiguousName:expression tags))))",
			ast.Format(stmts[0]))
		assert.Equal(t,
			"(Block (ExprStmt (AmbiguousName:expression tags)) "+
				"(LocalVarDecl (AmbiguousName:type String) (VarDeclarator tag)) "+
				"(Block (ExprStmt (MethodCall println (AmbiguousName:expression System.out) "+
				"(Binary + (AmbiguousName:expression prefix) (AmbiguousName:expression tag))))))",
			ast.Format(stmts[1]))
		assert.Equal(t,
			"(ReturnStmt (Binary + (AmbiguousName:expression prefix) (AmbiguousName:expression Shape.UNIT)))",
			ast.Format(stmts[3]))
	})

	t.Run("Anonymous Class", func(t *testing.T) {
		anon := first(root, func(n *ast.Node) bool { return n.Type == ast.ClassDecl && n.Anonymous })
		require.NotNil(t, anon)
		assert.Equal(t, ast.RoleBody, anon.Role)
		assert.NotNil(t, first(anon, declNamed(ast.MethodDecl, "run")))

		creation := first(root, func(n *ast.Node) bool { return n.Type == ast.New && n.FirstChildWithRole(ast.RoleBody) != nil })
		require.NotNil(t, creation)
		assert.Equal(t, []string{"Runnable"}, creation.FirstChildWithRole(ast.RoleType).Idents)
	})

	t.Run("Enum Constants", func(t *testing.T) {
		kind := first(root, declNamed(ast.EnumDecl, "Kind"))
		require.NotNil(t, kind)
		round := first(kind, declNamed(ast.EnumConstant, "ROUND"))
		require.NotNil(t, round)
		body := round.FirstChildWithRole(ast.RoleBody)
		require.NotNil(t, body)
		assert.True(t, body.Anonymous)
		assert.NotNil(t, first(body, declNamed(ast.MethodDecl, "corners")))

		square := first(kind, declNamed(ast.EnumConstant, "SQUARE"))
		require.NotNil(t, square)
		assert.Zero(t, square.ChildCount())
	})

	t.Run("Nested Interface", func(t *testing.T) {
		visitor := first(root, declNamed(ast.InterfaceDecl, "Visitor"))
		require.NotNil(t, visitor)
		assert.True(t, visitor.Modifiers.Has(resolver.ModInterface))
		assert.Equal(t,
			"(MethodDecl visit (AmbiguousName:type R) (Param s (AmbiguousName:type Shape (TypeArguments (Opaque wildcard)))))",
			ast.Format(first(visitor, declNamed(ast.MethodDecl, "visit"))))
	})
}

func TestExtractor_SyntaxError(t *testing.T) {
	ext, err := NewExtractor("java")
	require.NoError(t, err)

	_, err = ext.ExtractFromSource(context.Background(), "Broken.java", []byte("class Broken {\n  void m( {\n}\n"))
	require.Error(t, err)
	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Broken.java", se.Filepath)
	assert.True(t, se.Pos.IsValid())
}

func TestExtractor_UnsupportedLanguage(t *testing.T) {
	_, err := NewExtractor("go")
	assert.Error(t, err)
}

func TestExtractor_LocalsInStatements(t *testing.T) {
	ext, err := NewExtractor("java")
	require.NoError(t, err)

	src := `class A {
  static { int seed = 1; }
  void m() {
    for (int i = 0; i < 3; i++) { use(i); }
    try (Reader in = open()) { in.read(); } catch (IOException e) { log(e); }
    switch (k) { case ONE: use(k); break; }
  }
}`
	unit, err := ext.ExtractFromSource(context.Background(), "A.java", []byte(src))
	require.NoError(t, err)

	var locals []string
	ast.Walk(unit.Root, func(n *ast.Node) bool {
		if n.Type == ast.LocalVarDecl {
			for _, d := range n.ChildrenWithRole(ast.RoleDeclarator) {
				locals = append(locals, d.Ident)
			}
		}
		return true
	})
	assert.Equal(t, []string{"seed", "i", "in", "e"}, locals)

	var names []string
	ast.Walk(unit.Root, func(n *ast.Node) bool {
		if n.Type == ast.AmbiguousName && n.Context == ast.ContextExpression {
			names = append(names, n.Dotted())
		}
		return true
	})
	assert.NotContains(t, names, "ONE", "case labels are not expression names")
}
