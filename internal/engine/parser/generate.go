package parser

import (
	"dvamodel/internal/core/errors"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Generator turns an AST node back into source text.
type Generator interface {
	Generate(node *sitter.Node, source []byte) (string, error)
}

// GeneratorFactory picks a Generator for a file's parser options.
type GeneratorFactory func(opts Options) Generator

const (
	CodegenSource  = "source"
	CodegenEsbuild = "esbuild"
)

// GeneratorFactoryFor maps a codegen mode name onto a factory. Unknown modes
// fall back to the source generator.
func GeneratorFactoryFor(mode string) GeneratorFactory {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case CodegenEsbuild:
		return func(opts Options) Generator { return EsbuildGenerator{Dialect: opts.Dialect()} }
	default:
		return func(Options) Generator { return SourceGenerator{} }
	}
}

// SourceGenerator returns the node's exact text from the original file.
type SourceGenerator struct{}

func (SourceGenerator) Generate(node *sitter.Node, source []byte) (string, error) {
	if node == nil {
		return "", errors.New(errors.CodeInternal, "nil node")
	}
	if node.HasError() {
		return "", errors.New(errors.CodeSyntax, fmt.Sprintf("%s contains syntax errors", node.Kind()))
	}
	text := nodeText(node, source)
	if text == "" {
		return "", errors.New(errors.CodeInternal, fmt.Sprintf("%s has no source text", node.Kind()))
	}
	return text, nil
}

// EsbuildGenerator re-prints an object entry through esbuild, which
// normalises formatting. TypeScript annotations are stripped in the process.
type EsbuildGenerator struct {
	Dialect Dialect
}

func (g EsbuildGenerator) Generate(node *sitter.Node, source []byte) (string, error) {
	text, err := SourceGenerator{}.Generate(node, source)
	if err != nil {
		return "", err
	}

	// The entry is only valid inside an object literal, so print it as one.
	result := api.Transform("({\n"+text+"\n});", api.TransformOptions{
		Loader:   g.loader(),
		LogLevel: api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		first := result.Errors[0]
		return "", errors.New(errors.CodeSyntax, fmt.Sprintf("esbuild: %s", first.Text))
	}
	return unwrapObjectEntry(string(result.Code))
}

func (g EsbuildGenerator) loader() api.Loader {
	switch g.Dialect {
	case DialectTSX:
		return api.LoaderTSX
	case DialectTypeScript:
		return api.LoaderTS
	default:
		return api.LoaderJSX
	}
}

// unwrapObjectEntry strips the "({ ... });" wrapper esbuild printed around
// the entry and removes the wrapper's indentation.
func unwrapObjectEntry(printed string) (string, error) {
	printed = strings.TrimSpace(printed)
	if !strings.HasPrefix(printed, "({") || !strings.HasSuffix(printed, "});") {
		return "", errors.New(errors.CodeInternal, "unexpected esbuild output")
	}
	body := strings.TrimSuffix(strings.TrimPrefix(printed, "({"), "});")
	body = strings.Trim(body, "\n")
	if !strings.Contains(body, "\n") {
		body = strings.TrimSpace(body)
	}

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, "  ")
	}
	out := strings.TrimSuffix(strings.TrimSpace(strings.Join(lines, "\n")), ",")
	if out == "" {
		return "", errors.New(errors.CodeInternal, "esbuild printed an empty entry")
	}
	return out, nil
}
