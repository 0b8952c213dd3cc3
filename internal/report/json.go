package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/deepscan/internal/model"
)

// JSONWriter outputs reports in JSON format.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the analysis as JSON.
func (w *JSONWriter) Write(a *model.Analysis) (int, error) {
	return w.writeJSON(a)
}

// WriteHistory outputs the history as JSON.
func (w *JSONWriter) WriteHistory(h *model.History) (int, error) {
	return w.writeJSON(h)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}

// JSONReport wraps an analysis with the tool version and combined verdict.
type JSONReport struct {
	Version    string          `json:"version"`
	Verdict    model.Verdict   `json:"verdict"`
	Confidence float64         `json:"confidence"`
	Analysis   *model.Analysis `json:"analysis"`
}

// NewJSONReport creates a JSONReport.
func NewJSONReport(a *model.Analysis, version string) *JSONReport {
	return &JSONReport{
		Version:    version,
		Verdict:    a.Verdict(),
		Confidence: a.Confidence(),
		Analysis:   a,
	}
}

// FullJSONWriter outputs analyses wrapped in JSONReport.
type FullJSONWriter struct {
	*JSONWriter
	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the analysis wrapped with metadata.
func (w *FullJSONWriter) Write(a *model.Analysis) (int, error) {
	return w.writeJSON(NewJSONReport(a, w.version))
}
