package extractor

import (
	"bytes"
	"context"
	"os"

	"github.com/pkg/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/zeebo/xxh3"

	"jresolve/internal/diag"
)

// Extractor orchestrates parsing and conversion using a language-specific front end.
type Extractor struct {
	langExtractor LanguageExtractor
	langName      string
}

// NewExtractor creates a new extractor for a given language.
func NewExtractor(lang string) (*Extractor, error) {
	var langExt LanguageExtractor
	switch lang {
	case "java":
		langExt = &JavaExtractor{}
	default:
		return nil, errors.Errorf("unsupported language: %s", lang)
	}
	return &Extractor{langExtractor: langExt, langName: lang}, nil
}

// Language is the name the extractor was created for.
func (e *Extractor) Language() string { return e.langName }

// ExtractFromFile parses a single source file into a compilation unit.
func (e *Extractor) ExtractFromFile(ctx context.Context, filepath string) (*SourceUnit, error) {
	sourceCode, err := os.ReadFile(filepath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file %s", filepath)
	}
	return e.ExtractFromSource(ctx, filepath, sourceCode)
}

// ExtractFromSource parses sourceCode as if it was read from filepath.
func (e *Extractor) ExtractFromSource(ctx context.Context, filepath string, sourceCode []byte) (*SourceUnit, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(e.langExtractor.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, sourceCode)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse file %s", filepath)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(root, sourceCode, filepath)
	}

	return &SourceUnit{
		Filepath: filepath,
		Package:  e.detectPackageName(root, sourceCode),
		Language: e.langName,
		Digest:   xxh3.Hash(sourceCode),
		Lines:    bytes.Count(sourceCode, []byte("\n")) + 1,
		Root:     e.langExtractor.Convert(root, sourceCode, filepath),
	}, nil
}

func (e *Extractor) detectPackageName(root *sitter.Node, sourceCode []byte) string {
	pkgQuery, err := sitter.NewQuery([]byte(e.langExtractor.GetPackageQuery()), e.langExtractor.GetLanguage())
	if err != nil {
		return ""
	}
	pqc := sitter.NewQueryCursor()
	pqc.Exec(pkgQuery, root)
	if m, ok := pqc.NextMatch(); ok && len(m.Captures) > 0 {
		return m.Captures[0].Node.Content(sourceCode)
	}
	return ""
}

// syntaxError locates the first ERROR or missing node of a tree.
func syntaxError(root *sitter.Node, sourceCode []byte, filepath string) *SyntaxError {
	bad := root
	var find func(n *sitter.Node) bool
	find = func(n *sitter.Node) bool {
		if n.Type() == "ERROR" || n.IsMissing() {
			bad = n
			return true
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if ch := n.Child(i); ch != nil && ch.HasError() && find(ch) {
				return true
			}
		}
		return false
	}
	find(root)

	snippet := bad.Content(sourceCode)
	if len(snippet) > 40 {
		snippet = snippet[:40]
	}
	p := bad.StartPoint()
	return &SyntaxError{
		Filepath: filepath,
		Pos:      diag.Position{File: filepath, Line: int(p.Row) + 1, Column: int(p.Column) + 1},
		Snippet:  snippet,
	}
}
