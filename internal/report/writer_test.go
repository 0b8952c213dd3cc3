package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/deepscan/internal/model"
)

// createTestAnalysis creates an analysis with two provider results,
// one provider error, a description and EXIF metadata.
func createTestAnalysis() *model.Analysis {
	a := model.NewAnalysis("samples/face.jpg", strings.Repeat("ab", 32), "image/jpeg", 2048)
	a.CreatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a.SetResult("realitydefender", &model.Result{
		Provider: "realitydefender",
		Overall: model.Overall{
			Classification:         model.ClassificationManipulated,
			Verdict:                model.VerdictFake,
			Confidence:             0.93,
			ManipulatedModelsCount: 2,
			TotalModelsUsed:        3,
		},
		Details: []model.Detail{
			{Name: "rd-img-ensemble", Status: model.StatusManipulated, Verdict: model.VerdictFake, Confidence: 0.95},
			{Name: "rd-context", Status: model.StatusManipulated, Verdict: model.VerdictFake, Confidence: 0.9},
			{Name: "rd-pine", Status: model.StatusAuthentic, Verdict: model.VerdictReal, Confidence: 0.2},
		},
		Summary: model.NewSummary(nil, model.ThresholdLogic(2)),
	})
	a.SetResult("sightengine", &model.Result{
		Provider: "sightengine",
		Overall: model.Overall{
			Classification: model.ClassificationAuthentic,
			Verdict:        model.VerdictReal,
			Confidence:     0.7,
		},
		Details: []model.Detail{
			{Name: "deepfake", Verdict: model.VerdictReal, Confidence: 0.3},
		},
		Cached: true,
	})
	a.SetError("describe", errors.New("quota exceeded"))
	a.Description = "A portrait of a person in front of a window."
	a.Metadata = &model.ImageMetadata{
		Tags: map[string]string{
			"Make":     "Canon",
			"Model":    "EOS R5",
			"Software": "Adobe Photoshop 25.0",
		},
		CameraMake:      "Canon",
		CameraModel:     "EOS R5",
		Software:        "Adobe Photoshop 25.0",
		EditingSoftware: true,
		Generator:       "Adobe Photoshop",
	}
	return a
}

func createTestHistory() *model.History {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &model.History{
		Entries: []model.HistoryEntry{
			{
				ID:          "id-1",
				Source:      "a.jpg",
				Fingerprint: "aa",
				Verdict:     model.VerdictFake,
				Confidence:  0.9,
				Providers:   []string{"realitydefender", "sightengine"},
				Timestamp:   ts,
			},
			{
				ID:          "id-2",
				Source:      "b.png",
				Fingerprint: "bb",
				Verdict:     model.VerdictReal,
				Confidence:  0.8,
				Providers:   []string{"sightengine"},
				Timestamp:   ts.Add(-time.Hour),
			},
		},
		Counts: map[model.Verdict]int{
			model.VerdictFake: 1,
			model.VerdictReal: 1,
		},
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and verdict", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.Write(createTestAnalysis()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"DEEPFAKE ANALYSIS REPORT",
			"samples/face.jpg",
			"abababababababab",
			"Completed with errors",
			"[!!!] Deepfake/Manipulated Image",
			"Confidence: 93.0%",
			"Adobe Photoshop",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes providers and errors", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.Write(createTestAnalysis()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"PROVIDERS",
			"realitydefender",
			"Models flagged: 2/3",
			"sightengine",
			"(cached)",
			"ERRORS",
			"describe: quota exceeded",
			"DESCRIPTION",
			"EXIF METADATA",
			"Canon EOS R5",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("verbose lists models and tags", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))

		if _, err := w.Write(createTestAnalysis()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "rd-img-ensemble") {
			t.Error("expected verbose output to list models")
		}
		if !strings.Contains(output, "Software: Adobe Photoshop 25.0") {
			t.Error("expected verbose output to list EXIF tags")
		}
	})

	t.Run("empty analysis hides sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		a := model.NewAnalysis("empty.png", "ff", "image/png", 10)
		if _, err := w.Write(a); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if strings.Contains(output, "PROVIDERS") {
			t.Error("expected PROVIDERS section to be hidden")
		}
		if !strings.Contains(output, "[?] Unknown") {
			t.Error("expected unknown verdict")
		}
	})

	t.Run("show empty keeps sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithShowEmpty(true))

		a := model.NewAnalysis("empty.png", "ff", "image/png", 10)
		if _, err := w.Write(a); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "No provider results") {
			t.Error("expected empty providers section")
		}
		if !strings.Contains(output, "No EXIF metadata") {
			t.Error("expected empty metadata section")
		}
	})

	t.Run("timed out status", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		a := createTestAnalysis()
		a.TimedOut = true
		if _, err := w.Write(a); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "TIMED OUT") {
			t.Error("expected timed out status")
		}
	})

	t.Run("writes history", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.WriteHistory(createTestHistory()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"ANALYSIS HISTORY", "id=id-1", "a.jpg", "FAKE:       1", "TOTAL:      2 analyses"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes empty history", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.WriteHistory(&model.History{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No analyses stored yet") {
			t.Error("expected empty history message")
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		if _, err := w.Write(createTestAnalysis()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded["source"] != "samples/face.jpg" {
			t.Errorf("source = %v", decoded["source"])
		}
		if _, ok := decoded["results"].(map[string]any)["realitydefender"]; !ok {
			t.Error("expected realitydefender result")
		}
	})

	t.Run("pretty print indents", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())

		if _, err := w.Write(createTestAnalysis()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"source\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("writes history", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		if _, err := w.WriteHistory(createTestHistory()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.History
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if diff := cmp.Diff(createTestHistory().Counts, decoded.Counts); diff != "" {
			t.Errorf("counts mismatch (-want +got):\n%s", diff)
		}
		if len(decoded.Entries) != 2 {
			t.Errorf("entries = %d, want 2", len(decoded.Entries))
		}
	})
}

func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewFullJSONWriter(&buf, "1.2.3")

	if _, err := w.Write(createTestAnalysis()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded struct {
		Version    string        `json:"version"`
		Verdict    model.Verdict `json:"verdict"`
		Confidence float64       `json:"confidence"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	want := struct {
		Version    string        `json:"version"`
		Verdict    model.Verdict `json:"verdict"`
		Confidence float64       `json:"confidence"`
	}{Version: "1.2.3", Verdict: model.VerdictFake, Confidence: 0.93}
	if diff := cmp.Diff(want, decoded); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes analysis", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.Write(createTestAnalysis()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Deepfake Analysis Report",
			"## Provider Verdicts",
			"[!CAUTION]",
			"## Model Results",
			"```mermaid",
			"pie",
			"### realitydefender",
			"## Errors",
			"describe: quota exceeded",
			"## Description",
			"## EXIF Metadata",
			"<details>",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("authentic image uses tip", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		a := model.NewAnalysis("real.png", "cc", "image/png", 10)
		a.SetResult("sightengine", &model.Result{
			Overall: model.Overall{Verdict: model.VerdictReal, Classification: model.ClassificationAuthentic, Confidence: 0.8},
		})
		if _, err := w.Write(a); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!TIP]") {
			t.Error("expected tip alert")
		}
		if strings.Contains(output, "## Model Results") {
			t.Error("expected no model section without details")
		}
	})

	t.Run("writes history", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.WriteHistory(createTestHistory()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"# Analysis History", "`id-1`", "realitydefender, sightengine", "```mermaid"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var jsonBuf, textBuf bytes.Buffer
	w := NewMultiWriter(NewJSONWriter(&jsonBuf), NewSimpleWriter(&textBuf))

	n, err := w.Write(createTestAnalysis())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != jsonBuf.Len()+textBuf.Len() {
		t.Errorf("n = %d, want %d", n, jsonBuf.Len()+textBuf.Len())
	}
	if jsonBuf.Len() == 0 || textBuf.Len() == 0 {
		t.Error("expected both writers to receive output")
	}
}

func TestHelpers(t *testing.T) {
	t.Parallel()

	t.Run("truncateString", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			in   string
			max  int
			want string
		}{
			{"short", 10, "short"},
			{"exactly10!", 10, "exactly10!"},
			{"this is too long", 10, "this is..."},
			{"abc", 2, "ab"},
		}
		for _, tt := range tests {
			if got := truncateString(tt.in, tt.max); got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		}
	})

	t.Run("percent", func(t *testing.T) {
		t.Parallel()

		if got := percent(0.925); got != "92.5%" {
			t.Errorf("percent = %q", got)
		}
	})

	t.Run("statusCounts", func(t *testing.T) {
		t.Parallel()

		got := statusCounts(createTestAnalysis())
		want := []statusCount{
			{status: model.StatusManipulated, count: 2},
			{status: model.StatusAuthentic, count: 2},
		}
		if diff := cmp.Diff(want, got, cmp.AllowUnexported(statusCount{})); diff != "" {
			t.Errorf("statusCounts mismatch (-want +got):\n%s", diff)
		}
	})
}
