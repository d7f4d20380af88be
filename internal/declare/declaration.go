// Package declare assigns canonical names to every type declared in a batch
// of compilation units, resolves their supertypes lazily and builds the
// type-name resolver of every scope.
package declare

import (
	"github.com/hashicorp/go-set/v3"
	log "github.com/sirupsen/logrus"

	"jresolve/internal/ast"
	"jresolve/internal/diag"
	"jresolve/internal/name"
	"jresolve/internal/resolver"
)

// Stage is the resolution state of a declaration.
type Stage int

const (
	Unresolved Stage = iota
	InProgress
	Unresolvable
	Resolved
)

func (s Stage) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case InProgress:
		return "in_progress"
	case Unresolvable:
		return "unresolvable"
	case Resolved:
		return "resolved"
	}
	return "stage?"
}

// Declaration is a type declaration found by the scan, together with the
// scope it was declared in.
type Declaration struct {
	Node      *ast.Node
	Unit      *ast.Node
	Scope     *ast.Node
	Canonical *name.Name
	Stage     Stage
	// Duplicate is set when another declaration already owns Canonical.
	Duplicate bool

	outer     *Declaration
	inCycle   bool
	inner     []*name.Name
	members   []resolver.Member
	anonBase  *ast.Node    // type of `new T() {...}`
	enumOwner *Declaration // enum of a constant body
}

// IsTypeParameter reports whether the declaration is a type parameter.
func (d *Declaration) IsTypeParameter() bool {
	return d.Node.Type == ast.TypeParameter
}

// TypeInfo is the metadata currently installed on the declaration node.
func (d *Declaration) TypeInfo() *resolver.TypeInfo {
	return d.Node.TypeInfo()
}

// Universe is the ambient type universe consulted after in-batch types.
type Universe interface {
	resolver.TypeInfoResolver
	resolver.Canonicalizer
}

// Env holds the state of one batch. It is not safe for concurrent use and
// must not be reused for another batch.
type Env struct {
	universe Universe
	sink     diag.Sink
	logger   *log.Entry

	units  []*ast.Node
	decls  []*Declaration
	byNode map[ast.NodeID]*Declaration
	byName map[string]*Declaration

	// parentScope maps every scope node to its enclosing scope node.
	parentScope map[ast.NodeID]*ast.Node
	unitOf      map[ast.NodeID]*ast.Node
	// declared holds the simple names a scope node declares directly.
	declared   map[ast.NodeID]map[string][]*name.Name
	typeParams map[ast.NodeID][]*Declaration

	packages map[string]*name.Name
	unitPkg  map[ast.NodeID]*name.Name

	anonCounters    map[string]int
	variantCounters map[string]int

	simple         map[ast.NodeID]resolver.TypeNameResolver
	qualified      map[ast.NodeID]resolver.TypeNameResolver
	clauses        map[ast.NodeID]resolver.TypeNameResolver
	unitChains     map[ast.NodeID]*resolver.Chain
	fullyQualified resolver.TypeNameResolver
	// loop is the stack of declarations being resolved, outermost first.
	loop           []*Declaration
	reportedCycles *set.Set[string]
}

// New returns an empty environment for one batch.
func New(universe Universe, sink diag.Sink, logger *log.Entry) *Env {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Env{
		universe:        universe,
		sink:            sink,
		logger:          logger.WithField("pass", "declare"),
		byNode:          make(map[ast.NodeID]*Declaration),
		byName:          make(map[string]*Declaration),
		parentScope:     make(map[ast.NodeID]*ast.Node),
		unitOf:          make(map[ast.NodeID]*ast.Node),
		declared:        make(map[ast.NodeID]map[string][]*name.Name),
		typeParams:      make(map[ast.NodeID][]*Declaration),
		packages:        make(map[string]*name.Name),
		unitPkg:         make(map[ast.NodeID]*name.Name),
		anonCounters:    make(map[string]int),
		variantCounters: make(map[string]int),
		simple:          make(map[ast.NodeID]resolver.TypeNameResolver),
		qualified:       make(map[ast.NodeID]resolver.TypeNameResolver),
		clauses:         make(map[ast.NodeID]resolver.TypeNameResolver),
		unitChains:      make(map[ast.NodeID]*resolver.Chain),
		reportedCycles:  set.New[string](4),
	}
}

// Run scans units, resolves every declaration and installs the resolver of
// every scope.
func Run(units []*ast.Node, universe Universe, sink diag.Sink, logger *log.Entry) *Env {
	e := New(universe, sink, logger)
	e.Scan(units)
	e.ResolveAll()
	e.InstallScopeResolvers()
	return e
}

// Declarations returns the declarations in scan order, type parameters and
// duplicates included.
func (e *Env) Declarations() []*Declaration { return e.decls }

// Lookup finds the registered declaration of a canonical type name.
func (e *Env) Lookup(canonical *name.Name) (*Declaration, bool) {
	d, ok := e.byName[canonical.Key()]
	return d, ok
}

// DeclarationOf finds the declaration made by a node.
func (e *Env) DeclarationOf(n *ast.Node) (*Declaration, bool) {
	d, ok := e.byNode[n.ID()]
	return d, ok
}

// ParentScope returns the scope node enclosing a scope node.
func (e *Env) ParentScope(scope *ast.Node) *ast.Node {
	return e.parentScope[scope.ID()]
}

// UnitOf returns the compilation unit a scope node belongs to.
func (e *Env) UnitOf(scope *ast.Node) *ast.Node {
	return e.unitOf[scope.ID()]
}

// PackageOf returns the package declared by a compilation unit.
func (e *Env) PackageOf(unit *ast.Node) *name.Name {
	if p, ok := e.unitPkg[unit.ID()]; ok {
		return p
	}
	return name.DefaultPackage
}
