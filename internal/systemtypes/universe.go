// Package systemtypes provides the library types every compilation unit
// can see without declaring them, loaded from YAML catalogs.
package systemtypes

import (
	_ "embed"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"jresolve/internal/name"
	"jresolve/internal/resolver"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the YAML document describing library packages.
type Catalog struct {
	Packages []PackageSpec `yaml:"packages"`
}

type PackageSpec struct {
	Name  string     `yaml:"name"`
	Types []TypeSpec `yaml:"types"`
}

// TypeSpec describes one library type. Supertypes are written as dotted
// canonical names.
type TypeSpec struct {
	Name       string     `yaml:"name"`
	Kind       string     `yaml:"kind"`
	Modifiers  []string   `yaml:"modifiers"`
	Extends    string     `yaml:"extends"`
	Interfaces []string   `yaml:"interfaces"`
	Fields     []string   `yaml:"fields"`
	Types      []TypeSpec `yaml:"types"`
	// Root marks the type without an implicit superclass (java.lang.Object).
	Root bool `yaml:"root"`
}

type entry struct {
	spec       *TypeSpec
	name       *name.Name
	outer      *name.Name
	inner      []*name.Name
	superType  *name.Name
	interfaces []*name.Name
}

// Universe answers TypeInfo and package queries for library types. It is
// immutable after construction and safe for concurrent use; built TypeInfo
// records are memoized.
type Universe struct {
	packages map[string]*name.Name
	types    map[string]*entry
	byPkg    map[string][]*name.Name

	cache sync.Map
	group singleflight.Group
}

var (
	defaultOnce     sync.Once
	defaultUniverse *Universe
	defaultErr      error
)

// Default returns the universe built from the embedded catalog.
func Default() (*Universe, error) {
	defaultOnce.Do(func() {
		defaultUniverse, defaultErr = Load(defaultCatalog)
	})
	return defaultUniverse, defaultErr
}

// Load builds a universe from one or more YAML catalogs. Later catalogs may
// add packages and types but not redeclare existing types.
func Load(docs ...[]byte) (*Universe, error) {
	u := &Universe{
		packages: make(map[string]*name.Name),
		types:    make(map[string]*entry),
		byPkg:    make(map[string][]*name.Name),
	}
	var specs []*entry
	for i, doc := range docs {
		var cat Catalog
		if err := yaml.Unmarshal(doc, &cat); err != nil {
			return nil, errors.Wrapf(err, "catalog %d", i)
		}
		for pi := range cat.Packages {
			p := &cat.Packages[pi]
			if p.Name == "" {
				return nil, errors.Errorf("catalog %d: package without a name", i)
			}
			pkg := name.PackageNamed(p.Name)
			u.addPackage(pkg)
			added, err := u.addTypes(pkg, nil, p.Types)
			if err != nil {
				return nil, errors.Wrapf(err, "catalog %d", i)
			}
			specs = append(specs, added...)
		}
	}
	for _, e := range specs {
		if err := u.link(e); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// LoadFiles builds a universe from the embedded catalog plus extra files.
func LoadFiles(paths ...string) (*Universe, error) {
	if len(paths) == 0 {
		return Default()
	}
	docs := [][]byte{defaultCatalog}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "read catalog %s", p)
		}
		docs = append(docs, data)
	}
	return Load(docs...)
}

func (u *Universe) addPackage(pkg *name.Name) {
	for p := pkg; p != nil && !p.IsDefaultPackage(); p = p.Parent() {
		u.packages[p.Key()] = p
	}
}

func (u *Universe) addTypes(container, outer *name.Name, specs []TypeSpec) ([]*entry, error) {
	var out []*entry
	for i := range specs {
		s := &specs[i]
		n, err := container.Child(s.Name, name.Class)
		if err != nil || s.Name == "" {
			return nil, errors.Errorf("invalid type %q in %s", s.Name, container.ToDottedString())
		}
		if _, dup := u.types[n.Key()]; dup {
			return nil, errors.Errorf("type %s declared twice", n.ToDottedString())
		}
		e := &entry{spec: s, name: n, outer: outer}
		u.types[n.Key()] = e
		if outer == nil {
			pkgKey := container.Key()
			u.byPkg[pkgKey] = append(u.byPkg[pkgKey], n)
		} else {
			u.types[outer.Key()].inner = append(u.types[outer.Key()].inner, n)
		}
		out = append(out, e)
		nested, err := u.addTypes(n, n, s.Types)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

func (u *Universe) link(e *entry) error {
	if e.spec.Extends != "" {
		t, ok := u.Canonical(e.spec.Extends)
		if !ok {
			return errors.Errorf("%s: unknown superclass %s", e.name.ToDottedString(), e.spec.Extends)
		}
		e.superType = t
	}
	for _, in := range e.spec.Interfaces {
		t, ok := u.Canonical(in)
		if !ok {
			return errors.Errorf("%s: unknown interface %s", e.name.ToDottedString(), in)
		}
		e.interfaces = append(e.interfaces, t)
	}
	return nil
}

// Canonical resolves a dotted library type name, such as java.util.Map.Entry.
func (u *Universe) Canonical(dotted string) (*name.Name, bool) {
	ids := strings.Split(dotted, ".")
	for i := len(ids) - 1; i >= 1; i-- {
		pkg := name.PackageNamed(strings.Join(ids[:i], "."))
		if !u.PackageExists(pkg) {
			continue
		}
		cur := pkg
		ok := true
		for _, id := range ids[i:] {
			if cur, ok = u.MemberType(cur, id); !ok {
				break
			}
		}
		if ok {
			return cur, true
		}
	}
	return nil, false
}

// Resolve returns the TypeInfo of a library type.
func (u *Universe) Resolve(n *name.Name) (*resolver.TypeInfo, bool) {
	if n == nil || n.Kind() != name.Class {
		return nil, false
	}
	key := n.Key()
	if ti, ok := u.cache.Load(key); ok {
		return ti.(*resolver.TypeInfo), true
	}
	e, ok := u.types[key]
	if !ok {
		return nil, false
	}
	v, _, _ := u.group.Do(key, func() (interface{}, error) {
		if ti, ok := u.cache.Load(key); ok {
			return ti, nil
		}
		ti := u.build(e)
		u.cache.Store(key, ti)
		return ti, nil
	})
	return v.(*resolver.TypeInfo), true
}

func (u *Universe) build(e *entry) *resolver.TypeInfo {
	ti := &resolver.TypeInfo{
		CanonicalName: e.name,
		OuterType:     e.outer,
		InnerTypes:    append([]*name.Name(nil), e.inner...),
		Interfaces:    append([]*name.Name(nil), e.interfaces...),
		SuperType:     e.superType,
		Complete:      true,
	}
	for _, m := range e.spec.Modifiers {
		ti.Modifiers |= resolver.ParseModifier(m)
	}
	switch e.spec.Kind {
	case "interface":
		ti.Modifiers |= resolver.ModInterface
	case "enum":
		ti.Modifiers |= resolver.ModEnum
	case "annotation":
		ti.Modifiers |= resolver.ModInterface | resolver.ModAnnotation
	}
	if ti.SuperType == nil && !e.spec.Root && !ti.IsInterface() {
		if ti.Modifiers.Has(resolver.ModEnum) {
			ti.SuperType = javaLang.MustChild("Enum", name.Class)
		} else {
			ti.SuperType = javaLang.MustChild("Object", name.Class)
		}
	}
	for _, f := range e.spec.Fields {
		ti.Members = append(ti.Members, resolver.Member{
			Name:      e.name.MustChild(f, name.Field),
			Modifiers: resolver.ModPublic | resolver.ModStatic,
		})
	}
	return ti
}

var javaLang = name.PackageNamed("java.lang")

// JavaLang is the implicitly imported package.
func JavaLang() *name.Name { return javaLang }

// MemberType finds identifier as a type of a package, or as a nested type of
// a library class or one of its supertypes.
func (u *Universe) MemberType(container *name.Name, identifier string) (*name.Name, bool) {
	if container == nil {
		return nil, false
	}
	switch container.Kind() {
	case name.Package:
		n, err := container.Child(identifier, name.Class)
		if err != nil {
			return nil, false
		}
		if _, ok := u.types[n.Key()]; ok {
			return n, true
		}
	case name.Class:
		return u.inheritedMember(container, identifier, make(map[string]bool))
	}
	return nil, false
}

func (u *Universe) inheritedMember(t *name.Name, identifier string, seen map[string]bool) (*name.Name, bool) {
	if seen[t.Key()] {
		return nil, false
	}
	seen[t.Key()] = true
	e, ok := u.types[t.Key()]
	if !ok {
		return nil, false
	}
	for _, in := range e.inner {
		if in.Identifier() == identifier {
			return in, true
		}
	}
	if e.superType != nil {
		if n, ok := u.inheritedMember(e.superType, identifier, seen); ok {
			return n, true
		}
	}
	for _, s := range e.interfaces {
		if n, ok := u.inheritedMember(s, identifier, seen); ok {
			return n, true
		}
	}
	return nil, false
}

// PackageExists reports whether pkg is a library package or a prefix of one.
func (u *Universe) PackageExists(pkg *name.Name) bool {
	if pkg == nil || pkg.Kind() != name.Package {
		return false
	}
	_, ok := u.packages[pkg.Key()]
	return ok
}

// Packages returns the library packages that declare types, sorted.
func (u *Universe) Packages() []*name.Name {
	var out []*name.Name
	for _, p := range u.packages {
		if len(u.byPkg[p.Key()]) > 0 {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ToDottedString() < out[j].ToDottedString() })
	return out
}

// TypesIn returns the top-level types of a package in catalog order.
func (u *Universe) TypesIn(pkg *name.Name) []*name.Name {
	return append([]*name.Name(nil), u.byPkg[pkg.Key()]...)
}

// Len is the number of library types, nested ones included.
func (u *Universe) Len() int { return len(u.types) }
