package ast

import (
	"strings"

	"jresolve/internal/diag"
	"jresolve/internal/name"
	"jresolve/internal/resolver"
)

// As sets the role of a node that is not yet part of a tree.
func (n *Node) As(r Role) *Node {
	n.Role = r
	return n
}

// At sets the position of a node that is not yet part of a tree.
func (n *Node) At(pos diag.Position) *Node {
	n.Pos = pos
	return n
}

// WithModifiers sets the modifiers of a node that is not yet part of a tree.
func (n *Node) WithModifiers(m resolver.Modifier) *Node {
	n.Modifiers = m
	return n
}

func NewCompilationUnit(file string, children ...*Node) *Node {
	n := NewNode(CompilationUnit, children...)
	n.Ident = file
	n.Pos = diag.Position{File: file}
	return n
}

func NewPackageDecl(ids ...string) *Node {
	n := NewNode(PackageDecl)
	n.Idents = ids
	n.Role = RolePackage
	return n
}

// NewImport builds an import; ids exclude the trailing '*' of wildcards.
func NewImport(static, wildcard bool, ids ...string) *Node {
	n := NewNode(ImportDecl, NewAmbiguousName(ContextPackageOrType, ids...).As(RoleQualifier))
	n.Static = static
	n.Wildcard = wildcard
	n.Role = RoleImport
	return n
}

// NewTypeDecl builds a class, interface or enum declaration.
func NewTypeDecl(t NodeType, ident string, children ...*Node) *Node {
	n := NewNode(t, children...)
	n.Ident = ident
	n.Role = RoleMember
	switch t {
	case InterfaceDecl:
		n.Modifiers |= resolver.ModInterface
	case EnumDecl:
		n.Modifiers |= resolver.ModEnum
	}
	return n
}

func NewClass(ident string, children ...*Node) *Node {
	return NewTypeDecl(ClassDecl, ident, children...)
}

// NewAnonymousClass builds the body of `new T() {...}` or of an enum constant.
func NewAnonymousClass(children ...*Node) *Node {
	n := NewNode(ClassDecl, children...)
	n.Anonymous = true
	n.Role = RoleBody
	return n
}

func NewEnumConstant(ident string, children ...*Node) *Node {
	n := NewNode(EnumConstant, children...)
	n.Ident = ident
	n.Role = RoleMember
	return n
}

func NewTypeParameter(ident string, bounds ...*Node) *Node {
	for _, b := range bounds {
		b.Role = RoleBound
	}
	n := NewNode(TypeParameter, bounds...)
	n.Ident = ident
	n.Role = RoleTypeParameter
	return n
}

// NewField builds a field declaration of typ with one declarator per name.
func NewField(typ *Node, declarators ...*Node) *Node {
	n := NewNode(FieldDecl, append([]*Node{typ.As(RoleType)}, declarators...)...)
	n.Role = RoleMember
	return n
}

func NewDeclarator(ident string, value *Node) *Node {
	n := NewNode(VarDeclarator)
	if value != nil {
		n.children = []*Node{value.As(RoleValue)}
	}
	n.Ident = ident
	n.Role = RoleDeclarator
	return n
}

// NewMethod builds a method; children carry their own roles (type
// parameters, RoleType result, parameters, RoleBody block).
func NewMethod(ident string, children ...*Node) *Node {
	n := NewNode(MethodDecl, children...)
	n.Ident = ident
	n.Role = RoleMember
	return n
}

func NewConstructor(ident string, children ...*Node) *Node {
	n := NewNode(ConstructorDecl, children...)
	n.Ident = ident
	n.Role = RoleMember
	return n
}

func NewParam(typ *Node, ident string) *Node {
	n := NewNode(Param, typ.As(RoleType))
	n.Ident = ident
	n.Role = RoleParameter
	return n
}

func NewBlock(statements ...*Node) *Node {
	for _, s := range statements {
		s.Role = RoleStatement
	}
	n := NewNode(Block, statements...)
	n.Role = RoleBody
	return n
}

func NewLocalVar(typ *Node, declarators ...*Node) *Node {
	n := NewNode(LocalVarDecl, append([]*Node{typ.As(RoleType)}, declarators...)...)
	n.Role = RoleStatement
	return n
}

func NewExprStmt(expr *Node) *Node {
	n := NewNode(ExprStmt, expr.As(RoleValue))
	n.Role = RoleStatement
	return n
}

func NewReturn(expr *Node) *Node {
	n := NewNode(ReturnStmt)
	if expr != nil {
		n.children = []*Node{expr.As(RoleValue)}
	}
	n.Role = RoleStatement
	return n
}

// NewAmbiguousName builds an unclassified identifier chain.
func NewAmbiguousName(ctx NameContext, ids ...string) *Node {
	n := NewNode(AmbiguousName)
	n.Idents = ids
	n.Context = ctx
	return n
}

// NewTypeRef builds a type reference; args become type arguments of the
// last identifier.
func NewTypeRef(ids []string, args ...*Node) *Node {
	n := NewAmbiguousName(ContextType, ids...)
	if len(args) > 0 {
		n.children = []*Node{NewTypeArguments(args...)}
	}
	return n
}

// NewDiamondTypeRef builds `T<>` as used by `new T<>()`.
func NewDiamondTypeRef(ids ...string) *Node {
	n := NewAmbiguousName(ContextType, ids...)
	n.Diamond = true
	return n
}

func NewTypeArguments(args ...*Node) *Node {
	for _, a := range args {
		a.Role = RoleTypeArgument
	}
	n := NewNode(TypeArguments, args...)
	n.Role = RoleTypeArgument
	return n
}

func NewPrimitiveType(keyword string) *Node {
	n := NewNode(PrimitiveType)
	n.Ident = keyword
	return n
}

func NewArrayType(elem *Node, dims int) *Node {
	n := NewNode(ArrayType, elem.As(RoleType))
	n.Ident = strings.Repeat("[]", dims)
	return n
}

// NewExprName builds an expression-context identifier chain.
func NewExprName(ids ...string) *Node {
	return NewAmbiguousName(ContextExpression, ids...)
}

// NewCall builds a method call; object may be nil.
func NewCall(object *Node, method string, args ...*Node) *Node {
	var children []*Node
	if object != nil {
		children = append(children, object.As(RoleObject))
	}
	for _, a := range args {
		children = append(children, a.As(RoleArgument))
	}
	n := NewNode(MethodCall, children...)
	n.Ident = method
	return n
}

// NewInstantiation builds `new T(args) body`; body may be nil.
func NewInstantiation(typ *Node, body *Node, args ...*Node) *Node {
	children := []*Node{typ.As(RoleType)}
	for _, a := range args {
		children = append(children, a.As(RoleArgument))
	}
	if body != nil {
		children = append(children, body.As(RoleBody))
	}
	return NewNode(New, children...)
}

func NewFieldAccess(object *Node, field string) *Node {
	n := NewNode(FieldAccess, object.As(RoleObject))
	n.Ident = field
	n.NameKind = name.Field
	return n
}

func NewLiteral(text string) *Node {
	n := NewNode(Literal)
	n.Ident = text
	return n
}

func NewBinary(op string, left, right *Node) *Node {
	n := NewNode(Binary, left.As(RoleLeft), right.As(RoleRight))
	n.Ident = op
	return n
}

func NewAssign(op string, left, right *Node) *Node {
	n := NewNode(Assign, left.As(RoleLeft), right.As(RoleRight))
	n.Ident = op
	return n
}

func NewThis() *Node {
	return NewNode(This)
}

// NewOpaque wraps the parts of an expression the passes do not model, so
// names inside it are still visited.
func NewOpaque(kind string, children ...*Node) *Node {
	n := NewNode(Opaque, children...)
	n.Ident = kind
	return n
}

// NewLocalRef is the disambiguated form of a local variable reference.
func NewLocalRef(ident string, n *name.Name) *Node {
	out := NewNode(Local)
	out.Ident = ident
	out.Name = n
	out.NameKind = name.Local
	return out
}

// NewFreeFieldRef is the disambiguated form of an unqualified field reference.
func NewFreeFieldRef(ident string, n *name.Name) *Node {
	out := NewNode(FreeField)
	out.Ident = ident
	out.Name = n
	out.NameKind = name.Field
	return out
}

// NewStaticMemberRef is a type used as the target of a static member access.
func NewStaticMemberRef(ident string, typ *name.Name) *Node {
	out := NewNode(StaticMember)
	out.Ident = ident
	out.Name = typ
	out.NameKind = name.Class
	return out
}

// NewClassTypeRef is a disambiguated type name; qualifier may be nil.
func NewClassTypeRef(ident string, n *name.Name, qualifier *Node, args ...*Node) *Node {
	var children []*Node
	if qualifier != nil {
		children = append(children, qualifier.As(RoleQualifier))
	}
	children = append(children, args...)
	out := NewNode(ClassType, children...)
	out.Ident = ident
	out.Name = n
	out.NameKind = name.Class
	if n != nil {
		out.NameKind = n.Kind()
	}
	return out
}

// NewPackageNameRef is a disambiguated package name.
func NewPackageNameRef(dotted string, n *name.Name) *Node {
	out := NewNode(PackageName)
	out.Ident = dotted
	out.Name = n
	out.NameKind = name.Package
	return out
}
