package name

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies what a Name refers to.
type Kind int

const (
	Package Kind = iota
	Class
	Field
	Method
	Local
	TypeParameter
	Ambiguous
)

// Kinds lists every Kind in declaration order.
var Kinds = []Kind{Package, Class, Field, Method, Local, TypeParameter, Ambiguous}

func (k Kind) String() string {
	switch k {
	case Package:
		return "package"
	case Class:
		return "class"
	case Field:
		return "field"
	case Method:
		return "method"
	case Local:
		return "local"
	case TypeParameter:
		return "type_parameter"
	case Ambiguous:
		return "ambiguous"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Name is an immutable qualified identifier. Names are built bottom-up from
// DefaultPackage (or a parentless root) with Child and never mutated.
type Name struct {
	parent     *Name
	identifier string
	hasIdent   bool
	kind       Kind
	variant    int
}

// DefaultPackage is the unnamed root package.
var DefaultPackage = &Name{kind: Package}

// InvalidNameShapeError reports a parent/kind combination Child refuses.
type InvalidNameShapeError struct {
	Parent     *Name
	Identifier string
	Kind       Kind
	Reason     string
}

func (e *InvalidNameShapeError) Error() string {
	parent := "<none>"
	if e.Parent != nil {
		parent = e.Parent.kind.String() + " " + e.Parent.ToInternalNameString()
	}
	return fmt.Sprintf("invalid name shape: %s %q under %s: %s", e.Kind, e.Identifier, parent, e.Reason)
}

// allowedParent reports whether a name of kind k may have parent p (nil = root).
func allowedParent(p *Name, k Kind) bool {
	if p == nil {
		switch k {
		case Package, Local, TypeParameter, Ambiguous:
			return true
		}
		return false
	}
	switch k {
	case Package:
		return p.kind == Package || p.kind == Ambiguous
	case Class:
		return p.kind == Package || p.kind == Class || p.kind == Ambiguous
	case Field, Method:
		return p.kind == Class || p.kind == Ambiguous
	case Ambiguous:
		return p.kind == Ambiguous
	}
	return false
}

func newName(parent *Name, identifier string, kind Kind, variant int) (*Name, error) {
	if kind < Package || kind > Ambiguous {
		return nil, &InvalidNameShapeError{Parent: parent, Identifier: identifier, Kind: kind, Reason: "unknown kind"}
	}
	if parent != nil && parent.kind == Method {
		return nil, &InvalidNameShapeError{Parent: parent, Identifier: identifier, Kind: kind, Reason: "method names cannot be extended"}
	}
	if !allowedParent(parent, kind) {
		return nil, &InvalidNameShapeError{Parent: parent, Identifier: identifier, Kind: kind, Reason: "parent kind not allowed"}
	}
	if identifier == "" && kind != Class {
		return nil, &InvalidNameShapeError{Parent: parent, Identifier: identifier, Kind: kind, Reason: "missing identifier"}
	}
	if variant < 0 {
		return nil, &InvalidNameShapeError{Parent: parent, Identifier: identifier, Kind: kind, Reason: "negative variant"}
	}
	return &Name{
		parent:     parent,
		identifier: identifier,
		hasIdent:   identifier != "",
		kind:       kind,
		variant:    variant,
	}, nil
}

// Child extends n with one segment. A nil receiver builds a root name.
// An empty identifier is only accepted for Class names (anonymous classes).
func (n *Name) Child(identifier string, kind Kind) (*Name, error) {
	return newName(n, identifier, kind, 0)
}

// MustChild is Child that panics on an invalid shape.
func (n *Name) MustChild(identifier string, kind Kind) *Name {
	c, err := n.Child(identifier, kind)
	if err != nil {
		panic(err)
	}
	return c
}

// ChildMethod builds a Method name carrying an overload variant ordinal.
func (n *Name) ChildMethod(identifier string, variant int) (*Name, error) {
	return newName(n, identifier, Method, variant)
}

// PackageNamed builds a package name from dotted form; "" is the default package.
func PackageNamed(dotted string) *Name {
	n := DefaultPackage
	if dotted == "" {
		return n
	}
	for _, id := range strings.Split(dotted, ".") {
		n = n.MustChild(id, Package)
	}
	return n
}

// AmbiguousNamed builds a parentless ambiguous chain.
func AmbiguousNamed(ids ...string) *Name {
	var n *Name
	for _, id := range ids {
		n = n.MustChild(id, Ambiguous)
	}
	return n
}

// LocalName builds a local-variable name.
func LocalName(id string) *Name {
	var root *Name
	return root.MustChild(id, Local)
}

// TypeParameterName builds a type-parameter name.
func TypeParameterName(id string) *Name {
	var root *Name
	return root.MustChild(id, TypeParameter)
}

func (n *Name) Parent() *Name       { return n.parent }
func (n *Name) Kind() Kind          { return n.kind }
func (n *Name) Identifier() string  { return n.identifier }
func (n *Name) HasIdentifier() bool { return n.hasIdent }
func (n *Name) Variant() int        { return n.variant }

// IsDefaultPackage reports whether n is the unnamed root package.
func (n *Name) IsDefaultPackage() bool {
	return n != nil && n.kind == Package && n.parent == nil && !n.hasIdent
}

// Identifiers returns the identifiers of the chain, outermost first.
// Segments without an identifier are skipped.
func (n *Name) Identifiers() []string {
	var out []string
	for c := n; c != nil; c = c.parent {
		if c.hasIdent {
			out = append(out, c.identifier)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Depth is the number of segments in the chain.
func (n *Name) Depth() int {
	d := 0
	for c := n; c != nil; c = c.parent {
		d++
	}
	return d
}

// Package returns the innermost enclosing package, or nil.
func (n *Name) Package() *Name {
	for c := n; c != nil; c = c.parent {
		if c.kind == Package {
			return c
		}
	}
	return nil
}

// Equal compares names structurally.
func (n *Name) Equal(o *Name) bool {
	for n != nil && o != nil {
		if n == o {
			return true
		}
		if n.kind != o.kind || n.identifier != o.identifier || n.hasIdent != o.hasIdent || n.variant != o.variant {
			return false
		}
		n, o = n.parent, o.parent
	}
	return n == nil && o == nil
}

// Key is a map key that is equal for structurally equal names.
func (n *Name) Key() string {
	if n == nil {
		return ""
	}
	return n.kind.String() + ":" + n.ToInternalNameString()
}

// ToDottedString joins identifiers with '.'.
func (n *Name) ToDottedString() string {
	if n == nil {
		return ""
	}
	return strings.Join(n.Identifiers(), ".")
}

func (n *Name) String() string {
	return n.ToDottedString()
}

// ToInternalNameString renders the chain with per-kind separators:
// '/' before packages, ambiguous segments and package-level classes,
// '$' between nested classes, '.' before fields and methods, '<id>' for
// type parameters. The default package renders as nothing, so a
// default-package class x is "/x" while a local x is "x".
func (n *Name) ToInternalNameString() string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	n.writeInternal(&sb)
	return sb.String()
}

func (n *Name) writeInternal(sb *strings.Builder) {
	if n.parent != nil {
		n.parent.writeInternal(sb)
	}
	switch n.kind {
	case Package:
		if n.hasIdent {
			sb.WriteByte('/')
			sb.WriteString(n.identifier)
		}
	case Ambiguous:
		sb.WriteByte('/')
		sb.WriteString(n.identifier)
	case Class:
		if n.parent != nil && n.parent.kind == Class {
			sb.WriteByte('$')
		} else {
			sb.WriteByte('/')
		}
		sb.WriteString(n.identifier)
	case Field:
		sb.WriteByte('.')
		sb.WriteString(n.identifier)
	case Method:
		sb.WriteByte('.')
		sb.WriteString(n.identifier)
		sb.WriteString("()")
		if n.variant > 0 {
			sb.WriteByte('#')
			sb.WriteString(strconv.Itoa(n.variant))
		}
	case Local:
		sb.WriteString(n.identifier)
	case TypeParameter:
		sb.WriteByte('<')
		sb.WriteString(n.identifier)
		sb.WriteByte('>')
	}
}
