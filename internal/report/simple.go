package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/nao1215/deepscan/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no content are shown.
	showEmpty bool

	// verbose adds per-model details and all EXIF tags.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the analysis in human-readable format.
func (w *SimpleWriter) Write(a *model.Analysis) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, a)
	w.writeVerdict(&sb, a)
	w.writeProviders(&sb, a)
	w.writeErrors(&sb, a)
	w.writeDescription(&sb, a)
	w.writeMetadata(&sb, a)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, a *model.Analysis) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      DEEPFAKE ANALYSIS REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Source:      %s\n", a.Source))
	sb.WriteString(fmt.Sprintf("Fingerprint: %s\n", shortFingerprint(a.Fingerprint)))
	sb.WriteString(fmt.Sprintf("Type:        %s (%d bytes)\n", a.MIMEType, a.Size))
	sb.WriteString(fmt.Sprintf("Analyzed:    %s\n", a.CreatedAt.Format("2006-01-02 15:04:05 MST")))

	switch {
	case a.TimedOut:
		sb.WriteString("Status:      TIMED OUT (partial results)\n")
	case a.HasErrors():
		sb.WriteString("Status:      Completed with errors\n")
	default:
		sb.WriteString("Status:      Complete\n")
	}

	sb.WriteString("\n")
}

func (w *SimpleWriter) writeVerdict(sb *strings.Builder, a *model.Analysis) {
	writeSection(sb, "VERDICT")

	v := a.Verdict()
	sb.WriteString(fmt.Sprintf("  [%s] %s\n", verdictIndicator(v), v.Classification()))
	sb.WriteString(fmt.Sprintf("  Confidence: %s\n", percent(a.Confidence())))
	if a.Metadata != nil && a.Metadata.EditingSoftware {
		sb.WriteString(fmt.Sprintf("  Note: EXIF names %s as the producing software\n", a.Metadata.Generator))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeProviders(sb *strings.Builder, a *model.Analysis) {
	providers := a.Providers()
	if len(providers) == 0 && !w.showEmpty {
		return
	}

	writeSection(sb, "PROVIDERS")

	if len(providers) == 0 {
		sb.WriteString("  No provider results\n\n")
		return
	}

	for _, name := range providers {
		r := a.Result(name)
		cached := ""
		if r.Cached {
			cached = " (cached)"
		}
		sb.WriteString(fmt.Sprintf("  [%s] %s: %s, %s%s\n",
			verdictIndicator(r.Overall.Verdict), name,
			r.Overall.Classification, percent(r.Overall.Confidence), cached))

		if r.Overall.TotalModelsUsed > 0 {
			sb.WriteString(fmt.Sprintf("      Models flagged: %d/%d\n",
				r.Overall.ManipulatedModelsCount, r.Overall.TotalModelsUsed))
		}
		if r.Summary != nil && r.Summary.DetectionLogic != "" {
			sb.WriteString(fmt.Sprintf("      Logic: %s\n", r.Summary.DetectionLogic))
		}

		if !w.verbose {
			continue
		}
		for _, d := range r.Details {
			label := d.Name
			if label == "" {
				label = "-"
			}
			status := string(d.Status)
			if status == "" {
				status = d.Verdict.String()
			}
			sb.WriteString(fmt.Sprintf("      * %-30s %-14s %s\n",
				truncateString(label, 30), status, percent(d.Confidence)))
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeErrors(sb *strings.Builder, a *model.Analysis) {
	if len(a.Errors) == 0 {
		return
	}

	writeSection(sb, "ERRORS")

	keys := make([]string, 0, len(a.Errors))
	for k := range a.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  [x] %s: %s\n", k, a.Errors[k]))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeDescription(sb *strings.Builder, a *model.Analysis) {
	if a.Description == "" {
		return
	}

	writeSection(sb, "DESCRIPTION")
	sb.WriteString("  ")
	sb.WriteString(a.Description)
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeMetadata(sb *strings.Builder, a *model.Analysis) {
	meta := a.Metadata
	if !meta.HasEXIF() {
		if w.showEmpty {
			writeSection(sb, "EXIF METADATA")
			sb.WriteString("  No EXIF metadata\n\n")
		}
		return
	}

	writeSection(sb, "EXIF METADATA")

	if camera := strings.TrimSpace(meta.CameraMake + " " + meta.CameraModel); camera != "" {
		sb.WriteString(fmt.Sprintf("  Camera:   %s\n", camera))
	}
	if meta.Software != "" {
		sb.WriteString(fmt.Sprintf("  Software: %s\n", meta.Software))
	}
	if meta.DateTaken != "" {
		sb.WriteString(fmt.Sprintf("  Taken:    %s\n", meta.DateTaken))
	}
	if meta.HasGPS {
		sb.WriteString("  GPS:      present\n")
	}

	if w.verbose {
		keys := make([]string, 0, len(meta.Tags))
		for k := range meta.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("    %s: %s\n", k, truncateString(meta.Tags[k], 60)))
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by deepscan\n")
	sb.WriteString("https://github.com/nao1215/deepscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// WriteHistory outputs stored analyses, newest first.
func (w *SimpleWriter) WriteHistory(h *model.History) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	writeSection(&sb, "ANALYSIS HISTORY")

	if len(h.Entries) == 0 {
		sb.WriteString("  No analyses stored yet\n\n")
		return w.output.Write([]byte(sb.String()))
	}

	for _, e := range h.Entries {
		sb.WriteString(fmt.Sprintf("  [%s] %s  %-10s %6s  %s\n",
			verdictIndicator(e.Verdict),
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Verdict.String(),
			percent(e.Confidence),
			truncateString(e.Source, 40)))
		sb.WriteString(fmt.Sprintf("      id=%s providers=%s\n", e.ID, strings.Join(e.Providers, ",")))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("  FAKE:       %d\n", h.Counts[model.VerdictFake]))
	sb.WriteString(fmt.Sprintf("  SUSPICIOUS: %d\n", h.Counts[model.VerdictSuspicious]))
	sb.WriteString(fmt.Sprintf("  REAL:       %d\n", h.Counts[model.VerdictReal]))
	sb.WriteString(fmt.Sprintf("  UNKNOWN:    %d\n", h.Counts[model.VerdictUnknown]))
	sb.WriteString(fmt.Sprintf("  TOTAL:      %d analyses\n\n", h.Total()))

	return w.output.Write([]byte(sb.String()))
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// verdictIndicator returns a short visual marker for the verdict.
func verdictIndicator(v model.Verdict) string {
	switch v {
	case model.VerdictFake:
		return "!!!"
	case model.VerdictSuspicious:
		return "!"
	case model.VerdictReal:
		return "ok"
	default:
		return "?"
	}
}
