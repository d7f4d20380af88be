package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"jresolve/internal/ast"
	"jresolve/internal/diag"
	"jresolve/internal/resolver"
)

// JavaExtractor implements LanguageExtractor for Java.
type JavaExtractor struct{}

func (j *JavaExtractor) GetLanguage() *sitter.Language {
	return java.GetLanguage()
}

func (j *JavaExtractor) GetPackageQuery() string {
	return `(package_declaration [(identifier) (scoped_identifier)] @pkg)`
}

// Convert turns a program node into a compilation unit. Identifier chains
// become ambiguous names tagged with the position they were parsed in.
func (j *JavaExtractor) Convert(root *sitter.Node, sourceCode []byte, filepath string) *ast.Node {
	c := &converter{src: sourceCode, file: filepath}
	return c.unit(root)
}

type converter struct {
	src  []byte
	file string
}

func (c *converter) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(c.src)
}

func (c *converter) pos(n *sitter.Node) diag.Position {
	p := n.StartPoint()
	return diag.Position{File: c.file, Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

// named returns the named children of n without comments.
func (c *converter) named(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		if ch == nil || ch.Type() == "line_comment" || ch.Type() == "block_comment" {
			continue
		}
		out = append(out, ch)
	}
	return out
}

func (c *converter) namedOfType(n *sitter.Node, typ string) *sitter.Node {
	for _, ch := range c.named(n) {
		if ch.Type() == typ {
			return ch
		}
	}
	return nil
}

func (c *converter) unit(root *sitter.Node) *ast.Node {
	var children []*ast.Node
	for _, ch := range c.named(root) {
		switch ch.Type() {
		case "package_declaration":
			for _, id := range c.named(ch) {
				if ids, ok := c.chain(id); ok {
					children = append(children, ast.NewPackageDecl(ids...).At(c.pos(ch)))
					break
				}
			}
		case "import_declaration":
			children = append(children, c.importDecl(ch))
		default:
			if d := c.typeDecl(ch); d != nil {
				children = append(children, d)
			}
		}
	}
	return ast.NewCompilationUnit(c.file, children...)
}

// chain flattens a dotted identifier into its identifiers. It fails for
// anything but plain identifiers joined by dots.
func (c *converter) chain(n *sitter.Node) ([]string, bool) {
	if n == nil {
		return nil, false
	}
	switch n.Type() {
	case "identifier", "type_identifier":
		return []string{c.text(n)}, true
	case "scoped_identifier":
		scope, ok := c.chain(n.ChildByFieldName("scope"))
		if !ok {
			return nil, false
		}
		return append(scope, c.text(n.ChildByFieldName("name"))), true
	case "field_access":
		field := n.ChildByFieldName("field")
		if field == nil || field.Type() != "identifier" {
			return nil, false
		}
		object, ok := c.chain(n.ChildByFieldName("object"))
		if !ok {
			return nil, false
		}
		return append(object, c.text(field)), true
	}
	return nil, false
}

func (c *converter) importDecl(n *sitter.Node) *ast.Node {
	var static, wildcard bool
	var ids []string
	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		switch ch.Type() {
		case "static":
			static = true
		case "asterisk":
			wildcard = true
		case "identifier", "scoped_identifier":
			ids, _ = c.chain(ch)
		}
	}
	imp := ast.NewImport(static, wildcard, ids...).At(c.pos(n))
	imp.Child(0).At(c.pos(n))
	return imp
}

func (c *converter) modifiers(n *sitter.Node) resolver.Modifier {
	mods := c.namedOfType(n, "modifiers")
	if mods == nil {
		return 0
	}
	var m resolver.Modifier
	for i := 0; i < int(mods.ChildCount()); i++ {
		m |= resolver.ParseModifier(mods.Child(i).Type())
	}
	return m
}

func (c *converter) typeDecl(n *sitter.Node) *ast.Node {
	var t ast.NodeType
	var extra resolver.Modifier
	switch n.Type() {
	case "class_declaration", "record_declaration":
		t = ast.ClassDecl
	case "interface_declaration":
		t = ast.InterfaceDecl
	case "annotation_type_declaration":
		t = ast.InterfaceDecl
		extra = resolver.ModAnnotation
	case "enum_declaration":
		t = ast.EnumDecl
	default:
		return nil
	}

	children := c.typeParameters(n)
	for _, ch := range c.named(n) {
		switch ch.Type() {
		case "superclass":
			for _, st := range c.named(ch) {
				children = append(children, c.typ(st).As(ast.RoleSuperclass))
			}
		case "super_interfaces", "extends_interfaces":
			for _, it := range c.typeList(ch) {
				children = append(children, it.As(ast.RoleInterface))
			}
		}
	}
	if n.Type() == "record_declaration" {
		// record components are private final fields
		for _, p := range c.params(n.ChildByFieldName("parameters")) {
			f := ast.NewField(p.Child(0), ast.NewDeclarator(p.Ident, nil).At(p.Pos)).At(p.Pos)
			children = append(children, f.WithModifiers(resolver.ModPrivate|resolver.ModFinal))
		}
	}
	children = append(children, c.members(n.ChildByFieldName("body"))...)

	d := ast.NewTypeDecl(t, c.text(n.ChildByFieldName("name")), children...).At(c.pos(n))
	d.Modifiers |= c.modifiers(n) | extra
	return d
}

func (c *converter) typeList(n *sitter.Node) []*ast.Node {
	var out []*ast.Node
	for _, ch := range c.named(n) {
		if ch.Type() != "type_list" {
			continue
		}
		for _, t := range c.named(ch) {
			out = append(out, c.typ(t))
		}
	}
	return out
}

func (c *converter) typeParameters(n *sitter.Node) []*ast.Node {
	var out []*ast.Node
	for _, tp := range c.named(c.namedOfType(n, "type_parameters")) {
		if tp.Type() != "type_parameter" {
			continue
		}
		var ident string
		var bounds []*ast.Node
		for _, ch := range c.named(tp) {
			switch ch.Type() {
			case "type_identifier", "identifier":
				ident = c.text(ch)
			case "type_bound":
				for _, b := range c.named(ch) {
					bounds = append(bounds, c.typ(b))
				}
			}
		}
		out = append(out, ast.NewTypeParameter(ident, bounds...).At(c.pos(tp)))
	}
	return out
}

func (c *converter) members(body *sitter.Node) []*ast.Node {
	var out []*ast.Node
	for _, ch := range c.named(body) {
		switch ch.Type() {
		case "field_declaration", "constant_declaration":
			out = append(out, c.field(ch))
		case "method_declaration", "annotation_type_element_declaration":
			out = append(out, c.method(ch))
		case "constructor_declaration", "compact_constructor_declaration":
			out = append(out, c.constructor(ch))
		case "enum_constant":
			out = append(out, c.enumConstant(ch))
		case "enum_body_declarations":
			out = append(out, c.members(ch)...)
		case "block":
			out = append(out, c.block(ch).As(ast.RoleMember))
		case "static_initializer":
			if b := c.namedOfType(ch, "block"); b != nil {
				out = append(out, c.block(b).As(ast.RoleMember))
			}
		default:
			if d := c.typeDecl(ch); d != nil {
				out = append(out, d)
			}
		}
	}
	return out
}

func (c *converter) field(n *sitter.Node) *ast.Node {
	var decls []*ast.Node
	for _, ch := range c.named(n) {
		if ch.Type() == "variable_declarator" {
			decls = append(decls, c.declarator(ch))
		}
	}
	return ast.NewField(c.typ(n.ChildByFieldName("type")), decls...).
		At(c.pos(n)).
		WithModifiers(c.modifiers(n))
}

func (c *converter) declarator(n *sitter.Node) *ast.Node {
	var value *ast.Node
	if v := n.ChildByFieldName("value"); v != nil {
		value = c.expr(v)
	}
	return ast.NewDeclarator(c.text(n.ChildByFieldName("name")), value).At(c.pos(n))
}

func (c *converter) method(n *sitter.Node) *ast.Node {
	children := c.typeParameters(n)
	if t := n.ChildByFieldName("type"); t != nil {
		children = append(children, c.typ(t).As(ast.RoleType))
	}
	children = append(children, c.params(n.ChildByFieldName("parameters"))...)
	if b := n.ChildByFieldName("body"); b != nil {
		children = append(children, c.block(b))
	}
	return ast.NewMethod(c.text(n.ChildByFieldName("name")), children...).
		At(c.pos(n)).
		WithModifiers(c.modifiers(n))
}

func (c *converter) constructor(n *sitter.Node) *ast.Node {
	children := c.typeParameters(n)
	children = append(children, c.params(n.ChildByFieldName("parameters"))...)
	if b := n.ChildByFieldName("body"); b != nil {
		children = append(children, c.block(b))
	}
	return ast.NewConstructor(c.text(n.ChildByFieldName("name")), children...).
		At(c.pos(n)).
		WithModifiers(c.modifiers(n))
}

func (c *converter) params(n *sitter.Node) []*ast.Node {
	var out []*ast.Node
	for _, p := range c.named(n) {
		switch p.Type() {
		case "formal_parameter":
			out = append(out, ast.NewParam(c.typ(p.ChildByFieldName("type")), c.text(p.ChildByFieldName("name"))).At(c.pos(p)))
		case "spread_parameter":
			var typ *ast.Node
			var ident string
			for _, ch := range c.named(p) {
				switch {
				case ch.Type() == "variable_declarator":
					ident = c.text(ch.ChildByFieldName("name"))
				case isType(ch.Type()):
					typ = c.typ(ch)
				}
			}
			out = append(out, ast.NewParam(ast.NewArrayType(c.typOrMissing(typ), 1), ident).At(c.pos(p)))
		}
	}
	return out
}

func (c *converter) typOrMissing(t *ast.Node) *ast.Node {
	if t == nil {
		return ast.NewOpaque("missing_type")
	}
	return t
}

func (c *converter) enumConstant(n *sitter.Node) *ast.Node {
	var children []*ast.Node
	for _, a := range c.args(n.ChildByFieldName("arguments")) {
		children = append(children, a.As(ast.RoleArgument))
	}
	if body := n.ChildByFieldName("body"); body != nil {
		children = append(children, ast.NewAnonymousClass(c.members(body)...).At(c.pos(body)))
	}
	return ast.NewEnumConstant(c.text(n.ChildByFieldName("name")), children...).At(c.pos(n))
}

func (c *converter) block(n *sitter.Node) *ast.Node {
	var stmts []*ast.Node
	for _, ch := range c.named(n) {
		if s := c.stmt(ch); s != nil {
			stmts = append(stmts, s)
		}
	}
	return ast.NewBlock(stmts...).At(c.pos(n))
}

// stmt converts one statement. Statements without a node of their own keep
// their parts in a block, so locals declared in them stay scoped.
func (c *converter) stmt(n *sitter.Node) *ast.Node {
	pos := c.pos(n)
	switch n.Type() {
	case "block", "constructor_body":
		return c.block(n)
	case "local_variable_declaration":
		var decls []*ast.Node
		for _, ch := range c.named(n) {
			if ch.Type() == "variable_declarator" {
				decls = append(decls, c.declarator(ch))
			}
		}
		return ast.NewLocalVar(c.typ(n.ChildByFieldName("type")), decls...).At(pos)
	case "expression_statement":
		if e := c.named(n); len(e) > 0 {
			return ast.NewExprStmt(c.expr(e[0])).At(pos)
		}
		return nil
	case "return_statement":
		if e := c.named(n); len(e) > 0 {
			return ast.NewReturn(c.expr(e[0])).At(pos)
		}
		return ast.NewReturn(nil).At(pos)
	case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
		return c.typeDecl(n)
	case "enhanced_for_statement":
		parts := []*ast.Node{
			ast.NewExprStmt(c.expr(n.ChildByFieldName("value"))).At(pos),
			ast.NewLocalVar(c.typ(n.ChildByFieldName("type")),
				ast.NewDeclarator(c.text(n.ChildByFieldName("name")), nil).At(pos)).At(pos),
		}
		if body := n.ChildByFieldName("body"); body != nil {
			if s := c.stmt(body); s != nil {
				parts = append(parts, s)
			}
		}
		return ast.NewBlock(parts...).At(pos)
	case "catch_clause":
		var parts []*ast.Node
		if p := c.namedOfType(n, "catch_formal_parameter"); p != nil {
			var typ *ast.Node
			if ts := c.named(c.namedOfType(p, "catch_type")); len(ts) > 0 {
				typ = c.typ(ts[0])
			}
			decl := ast.NewDeclarator(c.text(p.ChildByFieldName("name")), nil).At(c.pos(p))
			parts = append(parts, ast.NewLocalVar(c.typOrMissing(typ), decl).At(c.pos(p)))
		}
		if body := n.ChildByFieldName("body"); body != nil {
			parts = append(parts, c.block(body))
		}
		return ast.NewBlock(parts...).At(pos)
	case "resource":
		if t := n.ChildByFieldName("type"); t != nil {
			decl := ast.NewDeclarator(c.text(n.ChildByFieldName("name")), c.exprOrNil(n.ChildByFieldName("value"))).At(pos)
			return ast.NewLocalVar(c.typ(t), decl).At(pos)
		}
		if e := c.named(n); len(e) > 0 {
			return ast.NewExprStmt(c.expr(e[0])).At(pos)
		}
		return nil
	case "labeled_statement":
		parts := c.named(n)
		if len(parts) == 0 {
			return nil
		}
		return c.stmt(parts[len(parts)-1])
	case "break_statement", "continue_statement", "switch_label", "empty_statement":
		return nil
	}
	if isExpression(n.Type()) {
		return ast.NewExprStmt(c.expr(n)).At(pos)
	}
	var parts []*ast.Node
	for _, ch := range c.named(n) {
		if s := c.stmt(ch); s != nil {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return ast.NewBlock(parts...).At(pos)
}

func (c *converter) exprOrNil(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}
	return c.expr(n)
}

func (c *converter) args(n *sitter.Node) []*ast.Node {
	var out []*ast.Node
	for _, a := range c.named(n) {
		out = append(out, c.expr(a))
	}
	return out
}

func (c *converter) expr(n *sitter.Node) *ast.Node {
	if n == nil {
		return ast.NewOpaque("missing")
	}
	pos := c.pos(n)
	switch n.Type() {
	case "identifier":
		return ast.NewExprName(c.text(n)).At(pos)
	case "field_access":
		if ids, ok := c.chain(n); ok {
			return ast.NewExprName(ids...).At(pos)
		}
		return ast.NewFieldAccess(c.expr(n.ChildByFieldName("object")), c.text(n.ChildByFieldName("field"))).At(pos)
	case "method_invocation":
		var object *ast.Node
		if o := n.ChildByFieldName("object"); o != nil {
			object = c.expr(o)
		}
		return ast.NewCall(object, c.text(n.ChildByFieldName("name")), c.args(n.ChildByFieldName("arguments"))...).At(pos)
	case "object_creation_expression":
		var body *ast.Node
		if b := c.namedOfType(n, "class_body"); b != nil {
			body = ast.NewAnonymousClass(c.members(b)...).At(c.pos(b))
		}
		return ast.NewInstantiation(c.typ(n.ChildByFieldName("type")), body, c.args(n.ChildByFieldName("arguments"))...).At(pos)
	case "binary_expression":
		return ast.NewBinary(c.text(n.ChildByFieldName("operator")),
			c.expr(n.ChildByFieldName("left")), c.expr(n.ChildByFieldName("right"))).At(pos)
	case "assignment_expression":
		return ast.NewAssign(c.text(n.ChildByFieldName("operator")),
			c.expr(n.ChildByFieldName("left")), c.expr(n.ChildByFieldName("right"))).At(pos)
	case "this":
		return ast.NewThis().At(pos)
	case "parenthesized_expression":
		if e := c.named(n); len(e) > 0 {
			return c.expr(e[0])
		}
	case "lambda_expression":
		// lambda parameters are not modeled; the body is left out
		return ast.NewOpaque(n.Type()).At(pos)
	case "method_reference":
		if parts := c.named(n); len(parts) > 0 {
			return ast.NewOpaque(n.Type(), c.exprOrType(parts[0])).At(pos)
		}
	case "instanceof_expression":
		return ast.NewOpaque(n.Type(),
			c.expr(n.ChildByFieldName("left")),
			c.exprOrType(n.ChildByFieldName("right")),
		).At(pos)
	}
	if isLiteral(n.Type()) {
		return ast.NewLiteral(c.text(n)).At(pos)
	}

	var children []*ast.Node
	for _, ch := range c.named(n) {
		switch {
		case isType(ch.Type()), isExpression(ch.Type()):
			children = append(children, c.exprOrType(ch))
		default:
			if s := c.stmt(ch); s != nil {
				children = append(children, s)
			}
		}
	}
	return ast.NewOpaque(n.Type(), children...).At(pos)
}

func (c *converter) exprOrType(n *sitter.Node) *ast.Node {
	if n != nil && isType(n.Type()) {
		return c.typ(n).As(ast.RoleType)
	}
	return c.expr(n)
}

func (c *converter) typ(n *sitter.Node) *ast.Node {
	if n == nil {
		return ast.NewOpaque("missing_type")
	}
	pos := c.pos(n)
	switch n.Type() {
	case "type_identifier":
		if c.text(n) == "var" {
			return ast.NewPrimitiveType("var").At(pos)
		}
		return ast.NewTypeRef([]string{c.text(n)}).At(pos)
	case "scoped_type_identifier":
		return ast.NewTypeRef(c.typeIdents(n)).At(pos)
	case "generic_type":
		var ids []string
		var targs *sitter.Node
		for _, ch := range c.named(n) {
			if ch.Type() == "type_arguments" {
				targs = ch
				continue
			}
			ids = append(ids, c.typeIdents(ch)...)
		}
		if targs != nil && len(c.named(targs)) == 0 {
			return ast.NewDiamondTypeRef(ids...).At(pos)
		}
		var args []*ast.Node
		for _, a := range c.named(targs) {
			args = append(args, c.typ(a))
		}
		return ast.NewTypeRef(ids, args...).At(pos)
	case "integral_type", "floating_point_type", "boolean_type", "void_type":
		return ast.NewPrimitiveType(c.text(n)).At(pos)
	case "array_type":
		dims := strings.Count(c.text(n.ChildByFieldName("dimensions")), "[")
		if dims == 0 {
			dims = 1
		}
		return ast.NewArrayType(c.typ(n.ChildByFieldName("element")), dims).At(pos)
	case "annotated_type":
		parts := c.named(n)
		for i := len(parts) - 1; i >= 0; i-- {
			if isType(parts[i].Type()) {
				return c.typ(parts[i])
			}
		}
	case "wildcard":
		var bounds []*ast.Node
		for _, ch := range c.named(n) {
			if isType(ch.Type()) {
				bounds = append(bounds, c.typ(ch).As(ast.RoleBound))
			}
		}
		return ast.NewOpaque(n.Type(), bounds...).At(pos)
	}
	return ast.NewOpaque(n.Type()).At(pos)
}

// typeIdents collects the identifiers of a possibly scoped type name,
// dropping annotations and the type arguments of outer segments.
func (c *converter) typeIdents(n *sitter.Node) []string {
	switch n.Type() {
	case "type_identifier", "identifier":
		return []string{c.text(n)}
	case "scoped_type_identifier", "generic_type":
		var ids []string
		for _, ch := range c.named(n) {
			ids = append(ids, c.typeIdents(ch)...)
		}
		return ids
	}
	return nil
}

var typeKinds = map[string]bool{
	"type_identifier":        true,
	"scoped_type_identifier": true,
	"generic_type":           true,
	"integral_type":          true,
	"floating_point_type":    true,
	"boolean_type":           true,
	"void_type":              true,
	"array_type":             true,
	"annotated_type":         true,
	"wildcard":               true,
}

func isType(kind string) bool { return typeKinds[kind] }

var expressionKinds = map[string]bool{
	"identifier":                 true,
	"field_access":               true,
	"method_invocation":          true,
	"object_creation_expression": true,
	"binary_expression":          true,
	"assignment_expression":      true,
	"this":                       true,
	"super":                      true,
	"parenthesized_expression":   true,
	"lambda_expression":          true,
	"method_reference":           true,
	"cast_expression":            true,
	"instanceof_expression":      true,
	"ternary_expression":         true,
	"unary_expression":           true,
	"update_expression":          true,
	"array_access":               true,
	"array_creation_expression":  true,
	"array_initializer":          true,
	"class_literal":              true,
	"dimensions_expr":            true,
}

func isExpression(kind string) bool {
	return expressionKinds[kind] || isLiteral(kind)
}

func isLiteral(kind string) bool {
	switch kind {
	case "true", "false", "text_block":
		return true
	}
	return strings.HasSuffix(kind, "_literal") && kind != "class_literal"
}
