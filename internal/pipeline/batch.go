package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/deepscan/internal/model"
)

// DefaultConcurrency is the number of files analyzed at once.
const DefaultConcurrency = 4

// AnalyzeFunc analyzes one input file.
type AnalyzeFunc func(ctx context.Context, path string) (*model.Analysis, error)

// BatchResult is the outcome for one input.
type BatchResult struct {
	// Path is the input file.
	Path string

	// Analysis is nil when the file could not be read.
	Analysis *model.Analysis

	// Err is the failure, if any. Analysis may be non-nil with Err set when
	// every provider failed.
	Err error
}

// BatchProcessor analyzes many files concurrently.
type BatchProcessor struct {
	analyze     AnalyzeFunc
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent analyses.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor that calls analyze per file.
func NewBatchProcessor(analyze AnalyzeFunc, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		analyze:     analyze,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch analyzes paths and returns one result per path, in input
// order. A failing file does not stop the others; the returned error is
// non-nil only when the context ended. Files skipped after cancellation
// report context.Canceled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, paths []string) ([]BatchResult, error) {
	results := make([]BatchResult, len(paths))
	for i, path := range paths {
		results[i] = BatchResult{Path: path, Err: context.Canceled}
	}
	err := bp.ProcessBatchWithCallback(ctx, paths, func(r BatchResult, i int) {
		results[i] = r
	})
	return results, err
}

// ProcessBatchWithCallback analyzes paths and calls callback as each one
// completes. callback runs on worker goroutines.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	paths []string,
	callback func(result BatchResult, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_files", len(paths),
		"concurrency", bp.concurrency,
	)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			a, err := bp.analyze(ctx, path)
			if err != nil {
				bp.logger.Warn("analysis failed", "path", path, "error", err)
			} else {
				bp.logger.Info("analysis completed", "path", path, "verdict", a.Verdict())
			}

			// Failures are reported per file, not to the errgroup.
			callback(BatchResult{Path: path, Analysis: a, Err: err}, i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_files", len(paths),
		"elapsed", time.Since(start),
	)
	return err
}
