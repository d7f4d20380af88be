package ast

import "strings"

// Format renders a subtree as a compact s-expression, mostly for tests and
// the CLI dump command.
func Format(n *Node) string {
	var sb strings.Builder
	format(&sb, n)
	return sb.String()
}

func format(sb *strings.Builder, n *Node) {
	if n == nil {
		sb.WriteString("nil")
		return
	}
	sb.WriteByte('(')
	sb.WriteString(n.Type.String())
	switch n.Type {
	case AmbiguousName:
		sb.WriteString(":" + n.Context.String() + " " + n.Dotted())
	case PackageDecl:
		sb.WriteString(" " + strings.Join(n.Idents, "."))
	default:
		if n.Ident != "" {
			sb.WriteString(" " + n.Ident)
		}
	}
	if n.Name != nil {
		sb.WriteString(" =" + n.Name.ToDottedString())
	}
	if n.Diamond {
		sb.WriteString(" <>")
	}
	for _, c := range n.children {
		sb.WriteByte(' ')
		format(sb, c)
	}
	sb.WriteByte(')')
}
