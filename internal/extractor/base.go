package extractor

import (
	sitter "github.com/smacker/go-tree-sitter"

	"jresolve/internal/ast"
	"jresolve/internal/diag"
)

// SourceUnit is one parsed compilation unit together with what the rest of
// the toolchain needs to know about its source file.
type SourceUnit struct {
	Filepath string    `json:"filepath"`
	Package  string    `json:"package"`
	Language string    `json:"language"`
	Digest   uint64    `json:"digest"` // xxh3 of the file contents
	Lines    int       `json:"lines"`
	Root     *ast.Node `json:"-"`
}

// LanguageExtractor defines the interface that each language front end must implement.
type LanguageExtractor interface {
	GetLanguage() *sitter.Language
	// GetPackageQuery captures the declared package name as @pkg.
	GetPackageQuery() string
	Convert(root *sitter.Node, sourceCode []byte, filepath string) *ast.Node
}

// SyntaxError reports a source file tree-sitter could not parse cleanly.
type SyntaxError struct {
	Filepath string
	Pos      diag.Position
	Snippet  string
}

func (e *SyntaxError) Error() string {
	return "syntax error at " + e.Pos.String() + " near " + e.Snippet
}
