package resolver

import "jresolve/internal/name"

// DeclarationPositionMarker says how far into the sequential local
// declarations of a callable body a program point can see. A local whose
// ordinal is below the marker is visible.
type DeclarationPositionMarker int

// ExpressionNameResolver resolves the leading identifier of an expression
// name to a local (name.Local) or a field (name.Field) when one is in scope.
type ExpressionNameResolver interface {
	ResolveExpressionName(identifier string, at DeclarationPositionMarker) (*name.Name, bool)
}
