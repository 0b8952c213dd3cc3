package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/deepscan/internal/describe"
	"github.com/nao1215/deepscan/internal/media"
	"github.com/nao1215/deepscan/internal/model"
	"github.com/nao1215/deepscan/internal/provider"
)

// ErrAllProvidersFailed is returned by EnsembleStep when no vendor produced
// a result.
var ErrAllProvidersFailed = errors.New("all providers failed")

// describeErrorKey is the Analysis.Errors key for description failures.
const describeErrorKey = "describe"

// Store persists and looks up analyses. *database.HistoryDB implements it.
type Store interface {
	SaveAnalysis(ctx context.Context, a *model.Analysis) error
	GetLatestAnalysis(ctx context.Context, fingerprint, provider string) (*model.Analysis, error)
	HasRecentAnalysis(ctx context.Context, fingerprint, provider string, ttl time.Duration) (bool, error)
}

// MetadataStep extracts EXIF metadata.
type MetadataStep struct{}

// NewMetadataStep creates a MetadataStep.
func NewMetadataStep() *MetadataStep {
	return &MetadataStep{}
}

// Name returns the step name.
func (s *MetadataStep) Name() string {
	return "metadata"
}

// Do extracts metadata into the analysis. It never fails.
func (s *MetadataStep) Do(_ context.Context, job *Job) error {
	job.Analysis.Metadata = media.ExtractMetadata(job.Image)
	return nil
}

// DetectStep asks one vendor for a verdict, reusing a stored result when the
// same image was analyzed by the same vendor within the cache TTL.
type DetectStep struct {
	detector provider.Detector
	store    Store
	cacheTTL time.Duration
	logger   *slog.Logger
}

// DetectStepOption configures a DetectStep.
type DetectStepOption func(*DetectStep)

// WithCache enables result reuse from store for ttl.
func WithCache(store Store, ttl time.Duration) DetectStepOption {
	return func(s *DetectStep) {
		s.store = store
		s.cacheTTL = ttl
	}
}

// WithDetectLogger sets the logger.
func WithDetectLogger(logger *slog.Logger) DetectStepOption {
	return func(s *DetectStep) {
		s.logger = logger
	}
}

// NewDetectStep creates a detection step for d.
func NewDetectStep(d provider.Detector, opts ...DetectStepOption) *DetectStep {
	s := &DetectStep{
		detector: d,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns "detect_<provider>".
func (s *DetectStep) Name() string {
	return "detect_" + s.detector.Name()
}

// Do runs the detector. Failures are recorded under the provider name and
// returned.
func (s *DetectStep) Do(ctx context.Context, job *Job) error {
	name := s.detector.Name()

	if r := s.cached(ctx, job.Analysis.Fingerprint); r != nil {
		s.logger.Info("using cached result", "provider", name, "fingerprint", job.Analysis.Fingerprint)
		job.Analysis.SetResult(name, r)
		return nil
	}

	result, err := s.detector.Detect(ctx, job.Image)
	if err != nil {
		job.Analysis.SetError(name, err)
		return fmt.Errorf("%s: %w", name, err)
	}
	if result.Provider == "" {
		result.Provider = name
	}
	job.Analysis.SetResult(name, result)
	return nil
}

// cached returns a stored result, or nil on a miss. Lookup errors are
// treated as misses.
func (s *DetectStep) cached(ctx context.Context, fingerprint string) *model.Result {
	if s.store == nil || s.cacheTTL <= 0 {
		return nil
	}
	name := s.detector.Name()

	recent, err := s.store.HasRecentAnalysis(ctx, fingerprint, name, s.cacheTTL)
	if err != nil {
		s.logger.Warn("cache lookup failed", "provider", name, "error", err)
		return nil
	}
	if !recent {
		return nil
	}

	prev, err := s.store.GetLatestAnalysis(ctx, fingerprint, name)
	if err != nil {
		s.logger.Warn("cache read failed", "provider", name, "error", err)
		return nil
	}
	r := prev.Result(name)
	if r == nil {
		return nil
	}
	cp := *r
	cp.Cached = true
	return &cp
}

// EnsembleStep runs several detection steps concurrently.
type EnsembleStep struct {
	steps  []*DetectStep
	logger *slog.Logger
}

// NewEnsembleStep creates an EnsembleStep over detectors. opts apply to
// every underlying DetectStep.
func NewEnsembleStep(detectors []provider.Detector, logger *slog.Logger, opts ...DetectStepOption) *EnsembleStep {
	if logger == nil {
		logger = slog.Default()
	}
	steps := make([]*DetectStep, 0, len(detectors))
	for _, d := range detectors {
		steps = append(steps, NewDetectStep(d, append([]DetectStepOption{WithDetectLogger(logger)}, opts...)...))
	}
	return &EnsembleStep{steps: steps, logger: logger}
}

// Name returns the step name.
func (s *EnsembleStep) Name() string {
	return "ensemble"
}

// Do runs every detector. Individual failures are recorded in the analysis;
// the step fails only when every detector failed.
func (s *EnsembleStep) Do(ctx context.Context, job *Job) error {
	if len(s.steps) == 0 {
		return fmt.Errorf("%w: no providers configured", ErrAllProvidersFailed)
	}

	var g errgroup.Group
	for _, step := range s.steps {
		g.Go(func() error {
			if err := step.Do(ctx, job); err != nil {
				s.logger.Warn("provider failed", "provider", step.detector.Name(), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	if len(job.Analysis.Providers()) == 0 {
		return ErrAllProvidersFailed
	}
	return nil
}

// DescribeStep asks a Describer for a one-paragraph description.
type DescribeStep struct {
	describer describe.Describer
}

// NewDescribeStep creates a DescribeStep.
func NewDescribeStep(d describe.Describer) *DescribeStep {
	return &DescribeStep{describer: d}
}

// Name returns the step name.
func (s *DescribeStep) Name() string {
	return "describe"
}

// Do stores the description. A disabled describer is not an error.
func (s *DescribeStep) Do(ctx context.Context, job *Job) error {
	if s.describer == nil {
		return nil
	}
	text, err := s.describer.Describe(ctx, job.Image)
	if errors.Is(err, describe.ErrDisabled) {
		return nil
	}
	if err != nil {
		job.Analysis.SetError(describeErrorKey, err)
		return fmt.Errorf("describe: %w", err)
	}
	job.Analysis.Description = text
	return nil
}

// SaveStep stores the analysis.
type SaveStep struct {
	store Store
}

// NewSaveStep creates a SaveStep.
func NewSaveStep(store Store) *SaveStep {
	return &SaveStep{store: store}
}

// Name returns the step name.
func (s *SaveStep) Name() string {
	return "save"
}

// Do saves the analysis when at least one provider produced a result.
func (s *SaveStep) Do(ctx context.Context, job *Job) error {
	if len(job.Analysis.Providers()) == 0 {
		return nil
	}
	if err := s.store.SaveAnalysis(ctx, job.Analysis); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}
