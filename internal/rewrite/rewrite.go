package rewrite

import (
	"fmt"

	"github.com/pkg/errors"

	"jresolve/internal/ast"
)

type statusKind int

const (
	kindContinue statusKind = iota
	kindBreak
	kindReplace
)

// Status is what a hook decides for the node it was called on.
type Status struct {
	kind  statusKind
	nodes []*ast.Node
}

// Continue visits the children (from previsit) or keeps the built node
// (from postvisit).
func Continue() Status { return Status{kind: kindContinue} }

// Break skips the children. Postvisit still runs.
func Break() Status { return Status{kind: kindBreak} }

// Replace substitutes the node with nodes. From previsit the replacement
// is final and neither the children nor postvisit are visited.
func Replace(nodes ...*ast.Node) Status {
	return Status{kind: kindReplace, nodes: nodes}
}

// Remove deletes the node from its parent.
func Remove() Status { return Status{kind: kindReplace, nodes: []*ast.Node{}} }

func (s Status) IsContinue() bool { return s.kind == kindContinue }

func (s Status) IsBreak() bool { return s.kind == kindBreak }

// Replacement returns the explicit replacement list, if any.
func (s Status) Replacement() ([]*ast.Node, bool) {
	return s.nodes, s.kind == kindReplace
}

func (s Status) String() string {
	switch s.kind {
	case kindContinue:
		return "continue"
	case kindBreak:
		return "break"
	}
	return fmt.Sprintf("replace(%d)", len(s.nodes))
}

// Path is the persistent chain of ancestors of the node being visited.
// Each entry holds the ancestor's original node, the builder collecting its
// new children and the index of the child being visited.
type Path struct {
	Index   int
	Parent  *ast.Node
	Builder *ast.Builder
	Up      *Path
}

// Push returns a path one level deeper. The receiver may be nil.
func (p *Path) Push(index int, parent *ast.Node, b *ast.Builder) *Path {
	return &Path{Index: index, Parent: parent, Builder: b, Up: p}
}

// Depth is the number of ancestors.
func (p *Path) Depth() int {
	d := 0
	for ; p != nil; p = p.Up {
		d++
	}
	return d
}

// Find returns the innermost entry whose parent satisfies pred.
func (p *Path) Find(pred func(*ast.Node) bool) *Path {
	for ; p != nil; p = p.Up {
		if pred(p.Parent) {
			return p
		}
	}
	return nil
}

// Pass is a rewrite over syntax trees. Both hooks receive the original
// node and the builder that will produce its replacement.
type Pass interface {
	Previsit(n *ast.Node, path *Path, b *ast.Builder) Status
	Postvisit(n *ast.Node, path *Path, b *ast.Builder) Status
}

// BasePass implements identity hooks. Embed it and override what you need.
type BasePass struct{}

func (BasePass) Previsit(*ast.Node, *Path, *ast.Builder) Status { return Continue() }

func (BasePass) Postvisit(*ast.Node, *Path, *ast.Builder) Status { return Continue() }

// InvariantError reports a traversal or pass bug. It is never caused by the
// input program and aborts the run.
type InvariantError struct {
	Node    *ast.Node
	Message string
}

func (e *InvariantError) Error() string {
	if e.Node == nil {
		return "rewrite invariant: " + e.Message
	}
	return fmt.Sprintf("rewrite invariant at %s %s: %s", e.Node.Type, e.Node.Pos, e.Message)
}

// Violation aborts the current Run. Passes call it when they observe a
// node shape they do not handle.
func Violation(n *ast.Node, format string, args ...interface{}) {
	panic(&InvariantError{Node: n, Message: fmt.Sprintf(format, args...)})
}

// Visit rewrites one subtree and returns its replacement list.
func Visit(pass Pass, n *ast.Node, path *Path) []*ast.Node {
	b := ast.NewBuilder(n)
	status := pass.Previsit(n, path, b)
	if nodes, ok := status.Replacement(); ok {
		return nodes
	}

	if status.IsContinue() {
		children := n.Children()
		j := 0
		for _, child := range children {
			if j >= b.ChildCount() || b.Child(j) != child {
				Violation(n, "child %d is not the visited node", j)
			}
			repl := Visit(pass, child, path.Push(j, n, b))
			b.Splice(j, repl)
			j += len(repl)
		}
	}

	status = pass.Postvisit(n, path, b)
	if nodes, ok := status.Replacement(); ok {
		return nodes
	}
	return []*ast.Node{b.Build()}
}

// Run applies pass to each compilation unit. Visit always produces an
// explicit replacement list; a root must be replaced by exactly one node.
func Run(pass Pass, units []*ast.Node) (out []*ast.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*InvariantError)
			if !ok {
				panic(r)
			}
			out, err = nil, errors.WithStack(ie)
		}
	}()

	out = make([]*ast.Node, 0, len(units))
	for _, u := range units {
		out = append(out, single(u, Visit(pass, u, nil)))
	}
	return out, nil
}

func single(root *ast.Node, nodes []*ast.Node) *ast.Node {
	if len(nodes) != 1 {
		Violation(root, "compilation unit replaced by %d nodes", len(nodes))
	}
	return nodes[0]
}
