// # internal/engine/parser/parser.go
package parser

import (
	"context"
	"dvamodel/internal/core/errors"
	"dvamodel/internal/shared/observability"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SourceReader loads the text of a file.
type SourceReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// ConfigProvider returns the parser options for a path. ok is false when no
// configuration applies, in which case the file yields no models.
type ConfigProvider interface {
	ParserConfig(path string) (opts Options, ok bool)
}

// OSReader reads files from the local filesystem.
type OSReader struct{}

func (OSReader) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// ModelParserDeps are the collaborators of a ModelParser. Only Config is
// required.
type ModelParserDeps struct {
	Reader     SourceReader
	Config     ConfigProvider
	Grammars   *GrammarLoader
	Generators GeneratorFactory
}

// ModelParser runs read → parse → locate → extract for one file at a time.
// It holds no per-file state and is safe for concurrent use.
type ModelParser struct {
	reader     SourceReader
	config     ConfigProvider
	grammars   *GrammarLoader
	generators GeneratorFactory
}

func NewModelParser(deps ModelParserDeps) (*ModelParser, error) {
	if deps.Config == nil {
		return nil, errors.New(errors.CodeValidationError, "parser config provider is required")
	}
	p := &ModelParser{
		reader:     deps.Reader,
		config:     deps.Config,
		grammars:   deps.Grammars,
		generators: deps.Generators,
	}
	if p.reader == nil {
		p.reader = OSReader{}
	}
	if p.grammars == nil {
		p.grammars = NewGrammarLoader()
	}
	if p.generators == nil {
		p.generators = GeneratorFactoryFor(CodegenSource)
	}
	return p, nil
}

// ParseFile extracts every valid model from the file at path, in source
// order. Read failures return a CodeIO error and syntax failures a
// CodeSyntax error; a file without models, or without parser configuration,
// returns an empty slice.
func (p *ModelParser) ParseFile(ctx context.Context, path string) ([]Model, error) {
	ctx, span := observability.Tracer.Start(ctx, "ModelParser.ParseFile",
		trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	source, err := p.reader.ReadFile(ctx, path)
	if err != nil {
		observability.ParseFailuresTotal.WithLabelValues("io").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "read source"), errors.CtxPath, path)
	}

	opts, ok := p.config.ParserConfig(path)
	if !ok {
		span.SetAttributes(attribute.Bool("configured", false))
		return []Model{}, nil
	}

	models, err := p.ParseSource(ctx, path, source, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("models", len(models)))
	return models, nil
}

// ParseSource is ParseFile for text that is already in memory.
func (p *ModelParser) ParseSource(ctx context.Context, path string, source []byte, opts Options) ([]Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dialect := opts.Dialect()
	start := time.Now()
	tree, err := p.grammars.Parse(dialect, source, opts.ErrorRecovery)
	observability.ParsingDuration.WithLabelValues(string(dialect)).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.ParseFailuresTotal.WithLabelValues("syntax").Inc()
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	defer tree.Close()

	gen := p.generators(opts)
	models := make([]Model, 0)
	for _, candidate := range LocateCandidates(tree.RootNode()) {
		if m, ok := ExtractModel(candidate, source, gen); ok {
			models = append(models, *m)
		}
	}
	observability.ModelsExtractedTotal.Add(float64(len(models)))
	return models, nil
}
