package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/deepscan/internal/describe"
	"github.com/nao1215/deepscan/internal/media"
	"github.com/nao1215/deepscan/internal/model"
	"github.com/nao1215/deepscan/internal/provider"
)

// Analyzer builds the pipelines used by the server and the CLI.
type Analyzer struct {
	detectors *provider.Set
	describer describe.Describer
	store     Store
	cacheTTL  time.Duration
	save      bool
	logger    *slog.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithDescriber enables the description step.
func WithDescriber(d describe.Describer) AnalyzerOption {
	return func(a *Analyzer) {
		a.describer = d
	}
}

// WithStore enables persistence and the result cache.
// save controls whether new analyses are written; ttl controls result reuse.
func WithStore(store Store, save bool, ttl time.Duration) AnalyzerOption {
	return func(a *Analyzer) {
		a.store = store
		a.save = save
		a.cacheTTL = ttl
	}
}

// WithAnalyzerLogger sets the logger.
func WithAnalyzerLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAnalyzer creates an Analyzer over the registered detectors.
func NewAnalyzer(detectors *provider.Set, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		detectors: detectors,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Providers returns the registered provider names.
func (a *Analyzer) Providers() []string {
	return a.detectors.Names()
}

func (a *Analyzer) detectOptions() []DetectStepOption {
	opts := []DetectStepOption{WithDetectLogger(a.logger)}
	if a.store != nil && a.cacheTTL > 0 {
		opts = append(opts, WithCache(a.store, a.cacheTTL))
	}
	return opts
}

func (a *Analyzer) addSave(p *Pipeline) {
	if a.store != nil && a.save {
		p.AddStep(NewSaveStep(a.store))
	}
}

// Detect runs a single provider. Any provider error is returned unchanged
// in the error chain so callers can map it to a status code.
func (a *Analyzer) Detect(ctx context.Context, img *media.Image, source, name string) (*model.Result, *model.Analysis, error) {
	d, err := a.detectors.Get(name)
	if err != nil {
		return nil, nil, err
	}

	job := NewJob(img, source)
	p := New(WithLogger(a.logger))
	p.AddStep(NewMetadataStep())
	p.AddStep(NewDetectStep(d, a.detectOptions()...))
	a.addSave(p)

	if err := p.Execute(ctx, job); err != nil {
		return nil, job.Analysis, err
	}
	return job.Analysis.Result(name), job.Analysis, nil
}

// AnalyzeRequest selects what Analyze does.
type AnalyzeRequest struct {
	// Source names the input.
	Source string

	// Providers limits the vendors. Empty or "all" means every provider.
	Providers []string

	// Describe adds the Gemini description.
	Describe bool
}

// Analyze runs every selected provider concurrently, then the optional
// description, then persistence. Provider failures are recorded in the
// analysis; the error is non-nil only when no provider succeeded or the
// context ended.
func (a *Analyzer) Analyze(ctx context.Context, img *media.Image, req AnalyzeRequest) (*model.Analysis, error) {
	detectors, err := a.detectors.Select(req.Providers...)
	if err != nil {
		return nil, err
	}

	job := NewJob(img, req.Source)
	p := New(WithLogger(a.logger), WithContinueOnError(true))
	p.AddStep(NewMetadataStep())
	p.AddStep(NewEnsembleStep(detectors, a.logger, a.detectOptions()...))
	if req.Describe && a.describer != nil {
		p.AddStep(NewDescribeStep(a.describer))
	}
	a.addSave(p)

	if err := p.Execute(ctx, job); err != nil && ctx.Err() != nil {
		return job.Analysis, err
	}
	if len(job.Analysis.Providers()) == 0 {
		return job.Analysis, ErrAllProvidersFailed
	}
	return job.Analysis, nil
}

// Describe runs only the description step.
func (a *Analyzer) Describe(ctx context.Context, img *media.Image) (string, error) {
	if a.describer == nil {
		return "", describe.ErrDisabled
	}
	return a.describer.Describe(ctx, img)
}

// AnalyzeFile reads path with decoder and analyzes it.
func (a *Analyzer) AnalyzeFile(ctx context.Context, decoder *media.Decoder, path string, req AnalyzeRequest) (*model.Analysis, error) {
	img, err := decoder.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if req.Source == "" {
		req.Source = path
	}
	return a.Analyze(ctx, img, req)
}
