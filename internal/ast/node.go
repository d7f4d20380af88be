package ast

import (
	"strings"
	"sync/atomic"

	"jresolve/internal/diag"
	"jresolve/internal/name"
	"jresolve/internal/resolver"
)

// NodeID identifies a node across rebuilds: a node and every copy a
// Builder makes of it share one ID.
type NodeID int64

var lastID atomic.Int64

func nextID() NodeID {
	return NodeID(lastID.Add(1))
}

// NodeType tags the syntactic variant of a node.
type NodeType int

const (
	CompilationUnit NodeType = iota
	PackageDecl
	ImportDecl
	ClassDecl
	InterfaceDecl
	EnumDecl
	EnumConstant
	TypeParameter
	FieldDecl
	VarDeclarator
	MethodDecl
	ConstructorDecl
	Param
	Block
	LocalVarDecl
	ExprStmt
	ReturnStmt

	AmbiguousName
	ClassType
	PackageName
	PrimitiveType
	ArrayType
	TypeArguments

	Local
	FreeField
	StaticMember
	FieldAccess
	MethodCall
	New
	Literal
	Binary
	Assign
	This
	// Opaque stands for any other expression; Ident holds its syntax kind.
	Opaque
)

var nodeTypeNames = map[NodeType]string{
	CompilationUnit: "CompilationUnit",
	PackageDecl:     "PackageDecl",
	ImportDecl:      "ImportDecl",
	ClassDecl:       "ClassDecl",
	InterfaceDecl:   "InterfaceDecl",
	EnumDecl:        "EnumDecl",
	EnumConstant:    "EnumConstant",
	TypeParameter:   "TypeParameter",
	FieldDecl:       "FieldDecl",
	VarDeclarator:   "VarDeclarator",
	MethodDecl:      "MethodDecl",
	ConstructorDecl: "ConstructorDecl",
	Param:           "Param",
	Block:           "Block",
	LocalVarDecl:    "LocalVarDecl",
	ExprStmt:        "ExprStmt",
	ReturnStmt:      "ReturnStmt",
	AmbiguousName:   "AmbiguousName",
	ClassType:       "ClassType",
	PackageName:     "PackageName",
	PrimitiveType:   "PrimitiveType",
	ArrayType:       "ArrayType",
	TypeArguments:   "TypeArguments",
	Local:           "Local",
	FreeField:       "FreeField",
	StaticMember:    "StaticMember",
	FieldAccess:     "FieldAccess",
	MethodCall:      "MethodCall",
	New:             "New",
	Literal:         "Literal",
	Binary:          "Binary",
	Assign:          "Assign",
	This:            "This",
	Opaque:          "Opaque",
}

func (t NodeType) String() string {
	if s, ok := nodeTypeNames[t]; ok {
		return s
	}
	return "NodeType?"
}

// Role is the part a child plays in its parent.
type Role int

const (
	RoleNone Role = iota
	RolePackage
	RoleImport
	RoleMember
	RoleTypeParameter
	RoleSuperclass
	RoleInterface
	RoleBound
	RoleType
	RoleTypeArgument
	RoleQualifier
	RoleDeclarator
	RoleParameter
	RoleBody
	RoleStatement
	RoleValue
	RoleObject
	RoleArgument
	RoleLeft
	RoleRight
)

// NameContext is the syntactic position an ambiguous name was parsed in.
type NameContext int

const (
	// ContextExpression: a primary expression, such as a method call target.
	ContextExpression NameContext = iota
	// ContextType: a type reference.
	ContextType
	// ContextPackageOrType: import declarations.
	ContextPackageOrType
)

func (c NameContext) String() string {
	switch c {
	case ContextExpression:
		return "expression"
	case ContextType:
		return "type"
	case ContextPackageOrType:
		return "package_or_type"
	}
	return "context?"
}

// Node is one syntax tree node. The fields a node uses depend on Type.
// Nodes are treated as immutable once built except for the capability
// slots in attrs, which are shared by all copies of the node.
type Node struct {
	id   NodeID
	Type NodeType
	Role Role
	Pos  diag.Position

	// Ident is the declared identifier, member name, operator or literal text.
	Ident string
	// Idents is the identifier chain of an AmbiguousName.
	Idents  []string
	Context NameContext

	Modifiers resolver.Modifier
	Static    bool
	Wildcard  bool
	Anonymous bool
	Diamond   bool

	// Name is the resolved name of a disambiguated node.
	Name     *name.Name
	NameKind name.Kind

	children []*Node
	attrs    *attrs
}

// attrs holds capability payloads attached by passes.
type attrs struct {
	typeInfo     *resolver.TypeInfo
	typeResolver resolver.TypeNameResolver
	exprResolver resolver.ExpressionNameResolver
	marker       resolver.DeclarationPositionMarker
	variant      int
}

// NewNode creates a node with a fresh ID.
func NewNode(t NodeType, children ...*Node) *Node {
	return &Node{id: nextID(), Type: t, children: children, attrs: &attrs{}}
}

func (n *Node) ID() NodeID { return n.id }

func (n *Node) Children() []*Node { return n.children }

func (n *Node) ChildCount() int { return len(n.children) }

func (n *Node) Child(i int) *Node { return n.children[i] }

// ChildrenWithRole returns the children playing role r.
func (n *Node) ChildrenWithRole(r Role) []*Node {
	var out []*Node
	for _, c := range n.children {
		if c.Role == r {
			out = append(out, c)
		}
	}
	return out
}

// FirstChildWithRole returns the first child playing role r, or nil.
func (n *Node) FirstChildWithRole(r Role) *Node {
	for _, c := range n.children {
		if c.Role == r {
			return c
		}
	}
	return nil
}

// IsTypeDeclaration reports whether the node declares a type.
func (n *Node) IsTypeDeclaration() bool {
	switch n.Type {
	case ClassDecl, InterfaceDecl, EnumDecl, TypeParameter:
		return true
	}
	return false
}

// IsTypeScope reports whether the node binds visible type names.
func (n *Node) IsTypeScope() bool {
	switch n.Type {
	case CompilationUnit, ClassDecl, InterfaceDecl, EnumDecl, MethodDecl, ConstructorDecl:
		return true
	}
	return false
}

// IsCallable reports whether the node declares a method or constructor.
func (n *Node) IsCallable() bool {
	return n.Type == MethodDecl || n.Type == ConstructorDecl
}

// IsExpressionNameScope reports whether the node can carry an
// ExpressionNameResolver.
func (n *Node) IsExpressionNameScope() bool {
	switch n.Type {
	case ClassDecl, InterfaceDecl, EnumDecl, MethodDecl, ConstructorDecl, Block:
		return true
	}
	return false
}

func (n *Node) TypeInfo() *resolver.TypeInfo { return n.attrs.typeInfo }

func (n *Node) SetTypeInfo(ti *resolver.TypeInfo) { n.attrs.typeInfo = ti }

func (n *Node) TypeNameResolver() resolver.TypeNameResolver { return n.attrs.typeResolver }

func (n *Node) SetTypeNameResolver(r resolver.TypeNameResolver) { n.attrs.typeResolver = r }

func (n *Node) ExpressionNameResolver() resolver.ExpressionNameResolver {
	return n.attrs.exprResolver
}

func (n *Node) SetExpressionNameResolver(r resolver.ExpressionNameResolver) {
	n.attrs.exprResolver = r
}

func (n *Node) Marker() resolver.DeclarationPositionMarker { return n.attrs.marker }

func (n *Node) SetMarker(m resolver.DeclarationPositionMarker) { n.attrs.marker = m }

// Variant is the overload ordinal of a callable; 0 means not yet assigned.
func (n *Node) Variant() int { return n.attrs.variant }

func (n *Node) SetVariant(v int) { n.attrs.variant = v }

// MethodName is the name a callable is declared with; constructors use <init>.
func (n *Node) MethodName() string {
	if n.Type == ConstructorDecl {
		return "<init>"
	}
	return n.Ident
}

// Dotted joins the identifiers of an ambiguous name.
func (n *Node) Dotted() string {
	return strings.Join(n.Idents, ".")
}

// Walk calls fn for n and its descendants in depth-first order until fn
// returns false for a subtree.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.children {
		Walk(c, fn)
	}
}
