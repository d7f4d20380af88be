package ast

// Builder is a copy-on-write editor for one node. Nothing is allocated
// until the node is actually changed; Build then returns the original node
// when untouched so unchanged subtrees stay shared.
type Builder struct {
	orig     *Node
	node     Node
	children []*Node
	changed  bool
}

func NewBuilder(n *Node) *Builder {
	return &Builder{orig: n, node: *n, children: n.children}
}

// Original is the node the builder was seeded from.
func (b *Builder) Original() *Node { return b.orig }

// Type is the node type of the node being built.
func (b *Builder) Type() NodeType { return b.node.Type }

func (b *Builder) Children() []*Node { return b.children }

func (b *Builder) ChildCount() int { return len(b.children) }

func (b *Builder) Child(i int) *Node { return b.children[i] }

// Changed reports whether Build will allocate a new node.
func (b *Builder) Changed() bool { return b.changed }

// Splice replaces the child at i with repl. An empty repl removes the
// child, a longer one expands it in place.
func (b *Builder) Splice(i int, repl []*Node) {
	if len(repl) == 1 && repl[0] == b.children[i] {
		return
	}
	next := make([]*Node, 0, len(b.children)-1+len(repl))
	next = append(next, b.children[:i]...)
	next = append(next, repl...)
	next = append(next, b.children[i+1:]...)
	b.children = next
	b.changed = true
}

// Append adds children at the end.
func (b *Builder) Append(children ...*Node) {
	if len(children) == 0 {
		return
	}
	next := make([]*Node, 0, len(b.children)+len(children))
	next = append(next, b.children...)
	b.children = append(next, children...)
	b.changed = true
}

// Update edits the scalar fields of the node being built.
func (b *Builder) Update(fn func(n *Node)) {
	fn(&b.node)
	b.changed = true
}

// SetDiamond marks or clears the empty type-argument marker.
func (b *Builder) SetDiamond(v bool) {
	if b.node.Diamond == v {
		return
	}
	b.Update(func(n *Node) { n.Diamond = v })
}

// Build returns the edited node, or the original one when nothing changed.
// The result keeps the original ID and capability slots.
func (b *Builder) Build() *Node {
	if !b.changed {
		return b.orig
	}
	n := b.node
	n.id = b.orig.id
	n.attrs = b.orig.attrs
	n.children = b.children
	return &n
}
