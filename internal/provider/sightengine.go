package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/nao1215/deepscan/internal/media"
	"github.com/nao1215/deepscan/internal/model"
)

// DefaultSightengineURL is the Sightengine API base.
const DefaultSightengineURL = "https://api.sightengine.com"

// sightenginePath is the image check endpoint.
const sightenginePath = "/1.0/check.json"

// sightengineLogic is reported in Summary.DetectionLogic.
const sightengineLogic = "Using Sightengine overall status: MANIPULATED → FAKE; AUTHENTIC → REAL"

// defaultManipulatedScore is the confidence used when a MANIPULATED response
// carries no score.
const defaultManipulatedScore = 0.9

// Sightengine calls the Sightengine check API with the deepfake model.
type Sightengine struct {
	apiUser        string
	apiSecret      string
	baseURL        string
	scoreThreshold float64
	client         *http.Client
	logger         *slog.Logger
}

// SightengineOption configures Sightengine.
type SightengineOption func(*Sightengine)

// WithSightengineBaseURL overrides the API base URL.
func WithSightengineBaseURL(u string) SightengineOption {
	return func(s *Sightengine) {
		if u != "" {
			s.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithDeepfakeScoreThreshold sets the type.deepfake probability at or above
// which an image is FAKE when the response carries no status.
func WithDeepfakeScoreThreshold(v float64) SightengineOption {
	return func(s *Sightengine) {
		if v > 0 && v <= 1 {
			s.scoreThreshold = v
		}
	}
}

// WithSightengineClient sets the HTTP client.
func WithSightengineClient(c *http.Client) SightengineOption {
	return func(s *Sightengine) {
		if c != nil {
			s.client = c
		}
	}
}

// WithSightengineLogger sets the logger.
func WithSightengineLogger(l *slog.Logger) SightengineOption {
	return func(s *Sightengine) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSightengine creates a detector. Missing credentials are reported by
// Detect, not here.
func NewSightengine(apiUser, apiSecret string, opts ...SightengineOption) *Sightengine {
	s := &Sightengine{
		apiUser:        apiUser,
		apiSecret:      apiSecret,
		baseURL:        DefaultSightengineURL,
		scoreThreshold: 0.5,
		client:         &http.Client{Timeout: DefaultTimeout},
		logger:         discardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns "sightengine".
func (s *Sightengine) Name() string {
	return NameSightengine
}

// Detect uploads the image and normalizes the response.
func (s *Sightengine) Detect(ctx context.Context, img *media.Image) (*model.Result, error) {
	if s.apiUser == "" || s.apiSecret == "" {
		return nil, ErrMissingCredentials
	}
	if img == nil {
		return nil, media.ErrNoMedia
	}

	body, contentType, err := s.form(img)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+sightenginePath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	s.logger.Debug("calling vendor", "provider", s.Name(), "size", img.Size(), "api_user", s.apiUser)

	respBody, err := do(s.client, s.logger, s.Name(), req)
	if err != nil {
		return nil, err
	}

	result, err := ParseSightengine(respBody, s.scoreThreshold)
	if err != nil {
		return nil, err
	}

	s.logger.Info("detection complete",
		"provider", s.Name(),
		"verdict", result.Overall.Verdict,
		"confidence", result.Overall.Confidence,
	)
	return result, nil
}

// form builds the multipart body. API parameters precede the file part.
func (s *Sightengine) form(img *media.Image) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"api_user", s.apiUser},
		{"api_secret", s.apiSecret},
		{"models", "deepfake"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write form field: %w", err)
		}
	}

	part, err := w.CreateFormFile("media", img.FileName())
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

type sightengineResponse struct {
	Status string   `json:"status"`
	Score  *float64 `json:"score"`
	Error  *struct {
		Type    string `json:"type"`
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Type *struct {
		Deepfake *float64 `json:"deepfake"`
	} `json:"type"`
	Models []struct {
		Name   string   `json:"name"`
		Status string   `json:"status"`
		Score  *float64 `json:"score"`
	} `json:"models"`
}

// ParseSightengine normalizes a Sightengine response body.
// scoreThreshold applies to type.deepfake when the status is neither
// MANIPULATED nor AUTHENTIC.
func ParseSightengine(body []byte, scoreThreshold float64) (*model.Result, error) {
	var resp sightengineResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: Invalid JSON response from Sightengine: %s", ErrInvalidResponse, truncate(string(body), 200))
	}

	if resp.Status == "failure" {
		msg := "Unknown error"
		if resp.Error != nil && resp.Error.Message != "" {
			msg = resp.Error.Message
		}
		return nil, fmt.Errorf("%w: Sightengine API failure: %s", ErrVendorFailure, msg)
	}

	score := deref(resp.Score)
	overall := model.Overall{
		Classification: model.ClassificationAuthentic,
		Verdict:        model.VerdictReal,
		Confidence:     score,
	}

	switch model.ParseModelStatus(resp.Status) {
	case model.StatusManipulated:
		overall.Verdict = model.VerdictFake
		overall.Classification = model.ClassificationManipulated
		overall.Confidence = defaultManipulatedScore
		if resp.Score != nil && *resp.Score != 0 {
			overall.Confidence = *resp.Score
		}
	case model.StatusAuthentic:
		overall.Confidence = 1 - score
	default:
		if resp.Type != nil && resp.Type.Deepfake != nil {
			p := *resp.Type.Deepfake
			if p >= scoreThreshold {
				overall.Verdict = model.VerdictFake
				overall.Classification = model.ClassificationManipulated
				overall.Confidence = p
			} else {
				overall.Confidence = 1 - p
			}
		}
	}

	details := make([]model.Detail, 0, len(resp.Models))
	for _, m := range resp.Models {
		status := model.ParseModelStatus(m.Status)
		details = append(details, model.Detail{
			Name:       m.Name,
			Status:     status,
			Verdict:    verdictFromStatus(status),
			Confidence: deref(m.Score),
		})
	}

	summary := model.NewSummary(details, sightengineLogic)
	overall.ManipulatedModelsCount = summary.ManipulatedCount
	overall.TotalModelsUsed = summary.TotalModels

	return &model.Result{
		Provider:  NameSightengine,
		Overall:   overall,
		Details:   details,
		Summary:   summary,
		RawResult: json.RawMessage(body),
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
