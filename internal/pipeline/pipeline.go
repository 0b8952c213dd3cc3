package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/deepscan/internal/media"
	"github.com/nao1215/deepscan/internal/model"
)

// Job is one image moving through a pipeline.
type Job struct {
	// Image is the decoded input.
	Image *media.Image

	// Analysis collects the results of every step.
	Analysis *model.Analysis
}

// NewJob creates a Job with a fresh Analysis for img.
// source names the input (file path or "api").
func NewJob(img *media.Image, source string) *Job {
	return &Job{
		Image:    img,
		Analysis: model.NewAnalysis(source, img.Fingerprint(), img.MIMEType, img.Size()),
	}
}

// Step is one stage of an analysis. Steps run in sequence and each one
// sees the Analysis as left by the steps before it.
type Step interface {
	// Do executes the step. Steps record non-critical problems in the
	// analysis and return an error only when the step itself failed.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps executing later steps after a step fails.
// The default stops at the first failure.
//
// Design decision: /api/analyze enables this so that a failing vendor does
// not hide the verdict of the others, and the Save step still records the
// partial analysis. Single-vendor routes keep the default because there is
// nothing left to report once their only Detect step failed.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence.
//
// Cancellation is checked between steps; a cancelled pipeline marks the
// analysis as timed out. Returns the first step error unless
// continueOnError is set, in which case the last error is returned after
// all steps ran.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	var lastErr error

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			job.Analysis.TimedOut = true
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"analysis", job.Analysis.ID,
		)

		if err := step.Do(ctx, job); err != nil {
			p.logger.Warn("step failed",
				"step", step.Name(),
				"analysis", job.Analysis.ID,
				"error", err,
			)
			if !p.continueOnError {
				return err
			}
			lastErr = err
		}

		job.Analysis.AddStep(step.Name())
	}

	return lastErr
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
