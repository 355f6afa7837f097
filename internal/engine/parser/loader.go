// # internal/engine/parser/loader.go
package parser

import (
	"dvamodel/internal/core/errors"
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// GrammarLoader owns one parser pool per dialect.
type GrammarLoader struct {
	pools map[Dialect]*ParserPool
}

func NewGrammarLoader() *GrammarLoader {
	languages := map[Dialect]*sitter.Language{
		DialectJavaScript: sitter.NewLanguage(tree_sitter_javascript.Language()),
		DialectTypeScript: sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
		DialectTSX:        sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
	}
	gl := &GrammarLoader{pools: make(map[Dialect]*ParserPool, len(languages))}
	for dialect, lang := range languages {
		gl.pools[dialect] = NewParserPool(lang)
	}
	return gl
}

// Parse builds a syntax tree for source. Unless tolerant is set, a tree that
// contains error or missing nodes is rejected with a CodeSyntax error.
// The caller owns the returned tree and must Close it.
func (gl *GrammarLoader) Parse(dialect Dialect, source []byte, tolerant bool) (*sitter.Tree, error) {
	pool, ok := gl.pools[dialect]
	if !ok {
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("unsupported dialect: %s", dialect))
	}

	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(source, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeInternal, "parse failed")
	}

	root := tree.RootNode()
	if !tolerant && root != nil && root.HasError() {
		err := syntaxError(root, source)
		tree.Close()
		return nil, err
	}
	return tree, nil
}

func syntaxError(root *sitter.Node, source []byte) error {
	bad := firstErrorNode(root)
	if bad == nil {
		return errors.New(errors.CodeSyntax, "syntax error")
	}
	pos := positionOf(source, bad.StartByte(), bad.StartPosition())
	msg := "unexpected token"
	if bad.IsMissing() {
		msg = fmt.Sprintf("missing %s", bad.Kind())
	}
	err := errors.New(errors.CodeSyntax, fmt.Sprintf("%s (%d:%d)", msg, pos.Line, pos.Column))
	err = errors.AddContext(err, errors.CtxLine, pos.Line)
	return errors.AddContext(err, errors.CtxColumn, pos.Column)
}

// firstErrorNode returns the first ERROR or MISSING node in document order.
func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		return node
	}
	if !node.HasError() {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if found := firstErrorNode(node.Child(i)); found != nil {
			return found
		}
	}
	return nil
}
