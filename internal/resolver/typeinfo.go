package resolver

import (
	"strings"

	"jresolve/internal/name"
)

// Modifier is a bit set of declaration modifiers.
type Modifier uint32

const (
	ModPublic Modifier = 1 << iota
	ModProtected
	ModPrivate
	ModStatic
	ModFinal
	ModAbstract
	ModInterface
	ModEnum
	ModAnnotation
	ModDefault
)

var modifierNames = []struct {
	mod  Modifier
	name string
}{
	{ModPublic, "public"},
	{ModProtected, "protected"},
	{ModPrivate, "private"},
	{ModStatic, "static"},
	{ModFinal, "final"},
	{ModAbstract, "abstract"},
	{ModInterface, "interface"},
	{ModEnum, "enum"},
	{ModAnnotation, "@interface"},
	{ModDefault, "default"},
}

// ParseModifier maps a source keyword to its bit; unknown keywords map to 0.
func ParseModifier(keyword string) Modifier {
	for _, m := range modifierNames {
		if m.name == keyword {
			return m.mod
		}
	}
	return 0
}

func (m Modifier) Has(o Modifier) bool { return m&o == o }

func (m Modifier) String() string {
	var parts []string
	for _, mn := range modifierNames {
		if m.Has(mn.mod) {
			parts = append(parts, mn.name)
		}
	}
	return strings.Join(parts, " ")
}

// Member is a field or method declared directly in a type.
type Member struct {
	Name      *name.Name
	Modifiers Modifier
}

// TypeInfo is the canonical metadata of a declared type.
type TypeInfo struct {
	CanonicalName *name.Name
	Modifiers     Modifier
	Anonymous     bool
	SuperType     *name.Name
	Interfaces    []*name.Name
	OuterType     *name.Name
	InnerTypes    []*name.Name
	Members       []Member
	// Complete is false for the optimistic record created at scan time.
	Complete bool
}

// IsInterface reports whether the type was declared as an interface.
func (t *TypeInfo) IsInterface() bool {
	return t != nil && t.Modifiers.Has(ModInterface)
}

// Supertypes returns the superclass (if any) followed by the interfaces.
func (t *TypeInfo) Supertypes() []*name.Name {
	if t == nil {
		return nil
	}
	var out []*name.Name
	if t.SuperType != nil {
		out = append(out, t.SuperType)
	}
	return append(out, t.Interfaces...)
}

// InnerType finds a directly declared member type by identifier.
func (t *TypeInfo) InnerType(identifier string) (*name.Name, bool) {
	if t == nil {
		return nil, false
	}
	for _, in := range t.InnerTypes {
		if in.Identifier() == identifier {
			return in, true
		}
	}
	return nil, false
}

// Field finds a directly declared field by identifier.
func (t *TypeInfo) Field(identifier string) (Member, bool) {
	if t == nil {
		return Member{}, false
	}
	for _, m := range t.Members {
		if m.Name.Kind() == name.Field && m.Name.Identifier() == identifier {
			return m, true
		}
	}
	return Member{}, false
}

// Clone returns a shallow copy with its own slices.
func (t *TypeInfo) Clone() *TypeInfo {
	c := *t
	c.Interfaces = append([]*name.Name(nil), t.Interfaces...)
	c.InnerTypes = append([]*name.Name(nil), t.InnerTypes...)
	c.Members = append([]Member(nil), t.Members...)
	return &c
}
