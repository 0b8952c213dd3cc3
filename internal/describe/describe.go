package describe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/nao1215/deepscan/internal/media"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// prompt asks for one paragraph, matching what the UI displays.
const prompt = "Provide a concise, one-paragraph description of the following image."

var (
	// ErrDisabled is returned when no Gemini API key is configured.
	ErrDisabled = errors.New("image description is disabled: no Gemini API key configured")

	// ErrEmptyDescription is returned when the model answers with no text.
	ErrEmptyDescription = errors.New("model returned an empty description")
)

// Describer describes an image in one paragraph.
type Describer interface {
	Describe(ctx context.Context, img *media.Image) (string, error)
}

// Gemini is a Describer backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

type options struct {
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures Gemini.
type Option func(*options)

// WithModel sets the Gemini model name.
func WithModel(m string) Option {
	return func(o *options) {
		if m != "" {
			o.model = m
		}
	}
}

// WithBaseURL overrides the Gemini API endpoint.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewGemini creates a Gemini describer. It returns ErrDisabled when apiKey
// is empty.
func NewGemini(ctx context.Context, apiKey string, opts ...Option) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrDisabled
	}

	o := &options{
		model:  DefaultModel,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.httpClient,
	}
	if o.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: o.baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini{client: client, model: o.model, logger: o.logger}, nil
}

// Model returns the configured model name.
func (g *Gemini) Model() string {
	return g.model
}

// Describe sends the image inline with the prompt and returns the answer.
func (g *Gemini) Describe(ctx context.Context, img *media.Image) (string, error) {
	if img == nil {
		return "", media.ErrNoMedia
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(img.Data, img.MIMEType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini describe failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyDescription
	}

	g.logger.Debug("image described", "model", g.model, "chars", len(text))
	return text, nil
}

// Disabled is a Describer that always returns ErrDisabled.
type Disabled struct{}

// Describe returns ErrDisabled.
func (Disabled) Describe(context.Context, *media.Image) (string, error) {
	return "", ErrDisabled
}

// New returns a Gemini describer, or Disabled when apiKey is empty.
func New(ctx context.Context, apiKey string, opts ...Option) (Describer, error) {
	g, err := NewGemini(ctx, apiKey, opts...)
	if errors.Is(err, ErrDisabled) {
		return Disabled{}, nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}
