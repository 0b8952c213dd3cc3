package report

import (
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/deepscan/internal/model"
)

// MarkdownWriter outputs reports in GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the analysis in Markdown format.
func (w *MarkdownWriter) Write(a *model.Analysis) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, a)
	w.writeAlert(md, a)
	w.writeProviders(md, a)
	w.writeModelDetails(md, a)
	w.writeErrors(md, a)
	w.writeDescription(md, a)
	w.writeMetadata(md, a)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, a *model.Analysis) {
	md.H1("Deepfake Analysis Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Source", "`" + a.Source + "`"},
			{"Fingerprint", "`" + shortFingerprint(a.Fingerprint) + "`"},
			{"Type", a.MIMEType},
			{"Size", strconv.Itoa(a.Size) + " bytes"},
			{"Analyzed", a.CreatedAt.Format("2006-01-02 15:04:05 MST")},
			{"Verdict", "**" + a.Verdict().String() + "**"},
			{"Confidence", percent(a.Confidence())},
			{"Status", w.getStatusText(a)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) getStatusText(a *model.Analysis) string {
	if a.TimedOut {
		return "⚠️ Timed Out (partial results)"
	}
	if a.HasErrors() {
		return "⚠️ Completed with errors"
	}
	return "✅ Complete"
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, a *model.Analysis) {
	switch a.Verdict() {
	case model.VerdictFake:
		md.Cautionf("This image is likely a deepfake or manipulated (confidence %s).", percent(a.Confidence()))
	case model.VerdictSuspicious:
		md.Warningf("This image shows signs of manipulation (confidence %s).", percent(a.Confidence()))
	case model.VerdictReal:
		md.Tip("No manipulation detected. The image appears authentic.")
	default:
		md.Importantf("No provider returned a verdict.")
	}
	md.PlainText("")

	if a.Metadata != nil && a.Metadata.EditingSoftware {
		md.Note("EXIF metadata names " + a.Metadata.Generator + " as the producing software.")
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeProviders(md *markdown.Markdown, a *model.Analysis) {
	md.H2("Provider Verdicts")
	md.PlainText("")

	providers := a.Providers()
	if len(providers) == 0 {
		md.PlainText("No provider results.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(providers))
	for _, name := range providers {
		r := a.Result(name)
		cached := "-"
		if r.Cached {
			cached = "yes"
		}
		rows = append(rows, []string{
			name,
			r.Overall.Verdict.Label(),
			r.Overall.Classification,
			percent(r.Overall.Confidence),
			strconv.Itoa(r.Overall.ManipulatedModelsCount) + "/" + strconv.Itoa(r.Overall.TotalModelsUsed),
			cached,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Provider", "Verdict", "Classification", "Confidence", "Models Flagged", "Cached"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeModelDetails(md *markdown.Markdown, a *model.Analysis) {
	counts := statusCounts(a)
	if len(counts) == 0 {
		return
	}

	md.H2("Model Results")
	md.PlainText("")

	w.writePieChart(md, counts)

	for _, name := range a.Providers() {
		r := a.Result(name)
		if len(r.Details) == 0 {
			continue
		}

		md.PlainText("### " + name)
		md.PlainText("")

		rows := make([][]string, 0, len(r.Details))
		for _, d := range r.Details {
			status := string(d.Status)
			if status == "" {
				status = "-"
			}
			label := d.Name
			if label == "" {
				label = "-"
			}
			rows = append(rows, []string{
				truncateString(label, 40),
				status,
				d.Verdict.Label(),
				percent(d.Confidence),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Model", "Status", "Verdict", "Score"},
			Rows:   rows,
		})
		md.PlainText("")

		if r.Summary != nil && r.Summary.DetectionLogic != "" {
			md.PlainTextf("*%s*", r.Summary.DetectionLogic)
			md.PlainText("")
		}
	}
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts []statusCount) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Model Status Distribution"),
		piechart.WithShowData(true),
	)
	for _, c := range counts {
		chart.LabelAndIntValue(string(c.status), uint64(c.count)) //nolint:gosec // counts are non-negative
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, a *model.Analysis) {
	if len(a.Errors) == 0 {
		return
	}

	md.H2("Errors")
	md.PlainText("")

	keys := make([]string, 0, len(a.Errors))
	for k := range a.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]string, 0, len(keys))
	for _, k := range keys {
		items = append(items, k+": "+a.Errors[k])
	}
	md.BulletList(items...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeDescription(md *markdown.Markdown, a *model.Analysis) {
	if a.Description == "" {
		return
	}
	md.H2("Description")
	md.PlainText("")
	md.PlainText(a.Description)
	md.PlainText("")
}

func (w *MarkdownWriter) writeMetadata(md *markdown.Markdown, a *model.Analysis) {
	meta := a.Metadata
	if !meta.HasEXIF() {
		return
	}

	md.H2("EXIF Metadata")
	md.PlainText("")

	gps := "no"
	if meta.HasGPS {
		gps = "yes"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"Camera", orDash(meta.CameraMake + " " + meta.CameraModel)},
			{"Software", orDash(meta.Software)},
			{"Date Taken", orDash(meta.DateTaken)},
			{"GPS", gps},
		},
	})
	md.PlainText("")

	keys := make([]string, 0, len(meta.Tags))
	for k := range meta.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var all string
	for _, k := range keys {
		all += k + ": " + truncateString(meta.Tags[k], 80) + "\n"
	}
	md.Details("All EXIF tags ("+strconv.Itoa(len(keys))+")", all)
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [deepscan](https://github.com/nao1215/deepscan)*")
}

// WriteHistory outputs stored analyses as a table with a verdict chart.
func (w *MarkdownWriter) WriteHistory(h *model.History) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Analysis History")
	md.PlainText("")

	if len(h.Entries) == 0 {
		md.PlainText("No analyses stored yet.")
		md.PlainText("")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(h.Entries))
	for _, e := range h.Entries {
		rows = append(rows, []string{
			e.Timestamp.Format("2006-01-02 15:04:05"),
			"`" + e.ID + "`",
			truncateString(e.Source, 40),
			e.Verdict.String(),
			percent(e.Confidence),
			orDash(joinProviders(e.Providers)),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Date", "ID", "Source", "Verdict", "Confidence", "Providers"},
		Rows:   rows,
	})
	md.PlainText("")

	if h.Total() > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Verdicts ("+strconv.Itoa(h.Total())+" analyses)"),
			piechart.WithShowData(true),
		)
		for _, v := range []model.Verdict{model.VerdictFake, model.VerdictSuspicious, model.VerdictReal, model.VerdictUnknown} {
			if n := h.Counts[v]; n > 0 {
				chart.LabelAndIntValue(v.Label(), uint64(n)) //nolint:gosec // counts are non-negative
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}

func orDash(s string) string {
	for _, r := range s {
		if r != ' ' {
			return s
		}
	}
	return "-"
}

func joinProviders(p []string) string {
	out := ""
	for i, s := range p {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
