// Package scoping attaches expression-name resolvers to classes, callables
// and blocks, and records on every expression name how many locals of the
// enclosing body precede it.
package scoping

import (
	log "github.com/sirupsen/logrus"

	"jresolve/internal/ast"
	"jresolve/internal/name"
	"jresolve/internal/resolver"
	"jresolve/internal/rewrite"
)

type frame struct {
	node     *ast.Node
	resolver resolver.ExpressionNameResolver
	block    *blockScope
	// counter is shared by all frames of one callable body; nil outside
	// callables.
	counter *resolver.DeclarationPositionMarker
}

// Pass is the scoping rewrite. It never changes the tree.
type Pass struct {
	rewrite.BasePass
	infos  resolver.TypeInfoResolver
	logger *log.Entry
	frames []frame
	names  int
	locals int
}

func New(infos resolver.TypeInfoResolver, logger *log.Entry) *Pass {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Pass{infos: infos, logger: logger.WithField("pass", "scoping")}
}

// Run applies a fresh scoping pass to units.
func Run(units []*ast.Node, infos resolver.TypeInfoResolver, logger *log.Entry) ([]*ast.Node, error) {
	p := New(infos, logger)
	out, err := rewrite.Run(p, units)
	if err != nil {
		return nil, err
	}
	p.logger.WithFields(log.Fields{"names": p.names, "locals": p.locals}).Debug("scoping complete")
	return out, nil
}

func (p *Pass) top() *frame {
	if len(p.frames) == 0 {
		return nil
	}
	return &p.frames[len(p.frames)-1]
}

func (p *Pass) current() resolver.ExpressionNameResolver {
	if f := p.top(); f != nil {
		return f.resolver
	}
	return nil
}

func (p *Pass) marker() resolver.DeclarationPositionMarker {
	if f := p.top(); f != nil && f.counter != nil {
		return *f.counter
	}
	return 0
}

func (p *Pass) push(f frame) {
	f.node.SetExpressionNameResolver(f.resolver)
	p.frames = append(p.frames, f)
}

func (p *Pass) Previsit(n *ast.Node, path *rewrite.Path, _ *ast.Builder) rewrite.Status {
	switch {
	case n.Type == ast.ClassDecl || n.Type == ast.InterfaceDecl || n.Type == ast.EnumDecl:
		p.push(frame{
			node: n,
			resolver: &classScope{
				info:        n.TypeInfo,
				infos:       p.infos,
				outer:       p.current(),
				outerMarker: p.marker(),
			},
		})
	case n.IsCallable():
		cs := &callableScope{parent: p.current(), params: make(map[string]*name.Name)}
		for _, param := range n.ChildrenWithRole(ast.RoleParameter) {
			cs.params[param.Ident] = name.LocalName(param.Ident)
		}
		var counter resolver.DeclarationPositionMarker
		p.push(frame{node: n, resolver: cs, counter: &counter})
	case n.Type == ast.Block:
		var counter *resolver.DeclarationPositionMarker
		if f := p.top(); f != nil {
			counter = f.counter
		}
		if counter == nil {
			// initializer block directly in a class body
			counter = new(resolver.DeclarationPositionMarker)
		}
		bs := newBlockScope(p.current())
		p.push(frame{node: n, resolver: bs, block: bs, counter: counter})
	case n.Type == ast.VarDeclarator:
		if path != nil && path.Parent.Type == ast.LocalVarDecl {
			p.declareLocal(n)
		}
	case n.Type == ast.AmbiguousName && n.Context == ast.ContextExpression:
		n.SetMarker(p.marker())
		p.names++
	}
	return rewrite.Continue()
}

func (p *Pass) declareLocal(n *ast.Node) {
	f := p.top()
	if f == nil || f.block == nil || f.counter == nil {
		return
	}
	f.block.declare(n.Ident, *f.counter)
	*f.counter++
	p.locals++
}

func (p *Pass) Postvisit(n *ast.Node, _ *rewrite.Path, _ *ast.Builder) rewrite.Status {
	if f := p.top(); f != nil && f.node == n {
		p.frames = p.frames[:len(p.frames)-1]
	}
	return rewrite.Continue()
}
