package scoping

import (
	"github.com/hashicorp/go-set/v3"

	"jresolve/internal/name"
	"jresolve/internal/resolver"
)

type local struct {
	ordinal resolver.DeclarationPositionMarker
	name    *name.Name
}

// blockScope holds the locals declared directly in one block.
type blockScope struct {
	parent resolver.ExpressionNameResolver
	locals map[string][]local
}

func newBlockScope(parent resolver.ExpressionNameResolver) *blockScope {
	return &blockScope{parent: parent, locals: make(map[string][]local)}
}

func (s *blockScope) declare(identifier string, ordinal resolver.DeclarationPositionMarker) {
	s.locals[identifier] = append(s.locals[identifier], local{ordinal: ordinal, name: name.LocalName(identifier)})
}

// ResolveExpressionName returns the latest local declared before at.
func (s *blockScope) ResolveExpressionName(identifier string, at resolver.DeclarationPositionMarker) (*name.Name, bool) {
	ls := s.locals[identifier]
	for i := len(ls) - 1; i >= 0; i-- {
		if ls[i].ordinal < at {
			return ls[i].name, true
		}
	}
	if s.parent == nil {
		return nil, false
	}
	return s.parent.ResolveExpressionName(identifier, at)
}

// callableScope holds parameters, which are visible in the whole body.
type callableScope struct {
	parent resolver.ExpressionNameResolver
	params map[string]*name.Name
}

func (s *callableScope) ResolveExpressionName(identifier string, at resolver.DeclarationPositionMarker) (*name.Name, bool) {
	if p, ok := s.params[identifier]; ok {
		return p, true
	}
	if s.parent == nil {
		return nil, false
	}
	return s.parent.ResolveExpressionName(identifier, at)
}

// classScope resolves fields declared in or inherited by a type, then
// falls back to the scope the type was declared in, as seen from the
// point of declaration.
type classScope struct {
	info        func() *resolver.TypeInfo
	infos       resolver.TypeInfoResolver
	outer       resolver.ExpressionNameResolver
	outerMarker resolver.DeclarationPositionMarker
}

func (s *classScope) ResolveExpressionName(identifier string, _ resolver.DeclarationPositionMarker) (*name.Name, bool) {
	if f, ok := s.field(s.info(), identifier, set.New[string](4)); ok {
		return f, true
	}
	if s.outer == nil {
		return nil, false
	}
	return s.outer.ResolveExpressionName(identifier, s.outerMarker)
}

func (s *classScope) field(ti *resolver.TypeInfo, identifier string, seen *set.Set[string]) (*name.Name, bool) {
	if ti == nil || !seen.Insert(ti.CanonicalName.Key()) {
		return nil, false
	}
	if m, ok := ti.Field(identifier); ok {
		return m.Name, true
	}
	if s.infos == nil {
		return nil, false
	}
	for _, st := range ti.Supertypes() {
		sti, ok := s.infos.Resolve(st)
		if !ok {
			continue
		}
		if f, ok := s.field(sti, identifier, seen); ok {
			return f, true
		}
	}
	return nil, false
}
