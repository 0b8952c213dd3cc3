package describe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nao1215/deepscan/internal/media"
)

func testImage() *media.Image {
	return &media.Image{Data: []byte("\x89PNG\r\n\x1a\nfake"), MIMEType: "image/png"}
}

func fakeGemini(t *testing.T, answer string, gotPath chan<- string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath <- r.URL.Path
		_, _ = io.Copy(io.Discard, r.Body)

		resp := map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"role":  "model",
						"parts": []any{map[string]any{"text": answer}},
					},
					"finishReason": "STOP",
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

// TestNewGemini_Disabled tests behavior without an API key.
func TestNewGemini_Disabled(t *testing.T) {
	t.Parallel()

	if _, err := NewGemini(context.Background(), ""); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}

	d, err := New(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := d.Describe(context.Background(), testImage()); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled from Disabled describer, got %v", err)
	}
}

// TestGemini_Describe tests a description round trip against a fake endpoint.
func TestGemini_Describe(t *testing.T) {
	t.Parallel()

	paths := make(chan string, 1)
	srv := fakeGemini(t, "  A portrait of a person in soft light.  ", paths)
	defer srv.Close()

	g, err := NewGemini(context.Background(), "test-key",
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithModel("gemini-test"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Model() != "gemini-test" {
		t.Errorf("expected model gemini-test, got %q", g.Model())
	}

	got, err := g.Describe(context.Background(), testImage())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "A portrait of a person in soft light." {
		t.Errorf("unexpected description %q", got)
	}

	if path := <-paths; !strings.Contains(path, "gemini-test:generateContent") {
		t.Errorf("unexpected request path %q", path)
	}
}

// TestGemini_EmptyDescription tests an empty model answer.
func TestGemini_EmptyDescription(t *testing.T) {
	t.Parallel()

	paths := make(chan string, 1)
	srv := fakeGemini(t, "   ", paths)
	defer srv.Close()

	g, err := NewGemini(context.Background(), "test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := g.Describe(context.Background(), testImage()); !errors.Is(err, ErrEmptyDescription) {
		t.Errorf("expected ErrEmptyDescription, got %v", err)
	}
}
