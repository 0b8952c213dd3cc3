package report

import (
	"io"
	"strconv"

	"github.com/nao1215/deepscan/internal/model"
)

// Writer renders reports.
type Writer interface {
	// Write outputs one analysis.
	// Returns the number of bytes written and any error encountered.
	Write(a *model.Analysis) (int, error)

	// WriteHistory outputs a page of stored analyses.
	WriteHistory(h *model.History) (int, error)
}

// MultiWriter writes to multiple Writers.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the analysis to all Writers, stopping at the first error.
func (m *MultiWriter) Write(a *model.Analysis) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(a)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteHistory outputs the history to all Writers, stopping at the first error.
func (m *MultiWriter) WriteHistory(h *model.History) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteHistory(h)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// percent formats a 0..1 confidence as a percentage.
func percent(v float64) string {
	return formatFloat(v*100, 1) + "%"
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// shortFingerprint keeps the first 16 hex characters.
func shortFingerprint(fp string) string {
	if len(fp) <= 16 {
		return fp
	}
	return fp[:16]
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// statusCounts counts per-model statuses across all provider results,
// in a stable order for charts.
func statusCounts(a *model.Analysis) []statusCount {
	order := []model.ModelStatus{
		model.StatusManipulated,
		model.StatusSuspicious,
		model.StatusAuthentic,
		model.StatusNotApplicable,
		model.StatusUnknown,
	}
	counts := make(map[model.ModelStatus]int)
	for _, name := range a.Providers() {
		r := a.Result(name)
		for _, d := range r.Details {
			status := d.Status
			if status == "" {
				status = statusFromVerdict(d.Verdict)
			}
			counts[status]++
		}
	}

	out := make([]statusCount, 0, len(order))
	for _, s := range order {
		if counts[s] > 0 {
			out = append(out, statusCount{status: s, count: counts[s]})
		}
	}
	return out
}

type statusCount struct {
	status model.ModelStatus
	count  int
}

func statusFromVerdict(v model.Verdict) model.ModelStatus {
	switch v {
	case model.VerdictFake:
		return model.StatusManipulated
	case model.VerdictReal:
		return model.StatusAuthentic
	case model.VerdictSuspicious:
		return model.StatusSuspicious
	default:
		return model.StatusUnknown
	}
}
