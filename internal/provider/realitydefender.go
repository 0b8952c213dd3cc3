package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/nao1215/deepscan/internal/media"
	"github.com/nao1215/deepscan/internal/model"
)

// DefaultRealityDefenderURL is the Reality Defender API base.
const DefaultRealityDefenderURL = "https://api.realitydefender.com"

// realityDefenderPath is the synchronous detection endpoint.
const realityDefenderPath = "/v1/media/detect"

// RealityDefender calls the Reality Defender detection API.
type RealityDefender struct {
	apiKey    string
	baseURL   string
	threshold int
	client    *http.Client
	logger    *slog.Logger
}

// RealityDefenderOption configures RealityDefender.
type RealityDefenderOption func(*RealityDefender)

// WithRealityDefenderBaseURL overrides the API base URL.
func WithRealityDefenderBaseURL(u string) RealityDefenderOption {
	return func(r *RealityDefender) {
		if u != "" {
			r.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithManipulatedThreshold sets how many per-model MANIPULATED results are
// tolerated before the verdict becomes FAKE.
func WithManipulatedThreshold(n int) RealityDefenderOption {
	return func(r *RealityDefender) {
		if n >= 0 {
			r.threshold = n
		}
	}
}

// WithRealityDefenderClient sets the HTTP client.
func WithRealityDefenderClient(c *http.Client) RealityDefenderOption {
	return func(r *RealityDefender) {
		if c != nil {
			r.client = c
		}
	}
}

// WithRealityDefenderLogger sets the logger.
func WithRealityDefenderLogger(l *slog.Logger) RealityDefenderOption {
	return func(r *RealityDefender) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRealityDefender creates a detector. An empty apiKey is accepted so the
// server can start; Detect then fails with ErrMissingCredentials.
func NewRealityDefender(apiKey string, opts ...RealityDefenderOption) *RealityDefender {
	r := &RealityDefender{
		apiKey:    apiKey,
		baseURL:   DefaultRealityDefenderURL,
		threshold: 2,
		client:    &http.Client{Timeout: DefaultTimeout},
		logger:    discardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns "realitydefender".
func (r *RealityDefender) Name() string {
	return NameRealityDefender
}

type realityDefenderRequest struct {
	Media string `json:"media"`
	Async bool   `json:"async"`
}

// Detect posts the image as a data URI and normalizes the response.
func (r *RealityDefender) Detect(ctx context.Context, img *media.Image) (*model.Result, error) {
	if r.apiKey == "" {
		return nil, ErrMissingCredentials
	}
	if img == nil {
		return nil, media.ErrNoMedia
	}

	dataURI := img.DataURI()
	payload, err := json.Marshal(realityDefenderRequest{Media: dataURI, Async: false})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+realityDefenderPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	r.logger.Debug("calling vendor", "provider", r.Name(), "media", dataURI, "size", img.Size())

	body, err := do(r.client, r.logger, r.Name(), req)
	if err != nil {
		return nil, err
	}

	result, err := ParseRealityDefender(body, r.threshold)
	if err != nil {
		return nil, err
	}

	r.logger.Info("detection complete",
		"provider", r.Name(),
		"verdict", result.Overall.Verdict,
		"manipulated_models", result.Overall.ManipulatedModelsCount,
	)
	return result, nil
}

// rdEntry is a verdict triple as found in "overall", "results" and "details".
type rdEntry struct {
	Classification string   `json:"classification"`
	Verdict        string   `json:"verdict"`
	Confidence     *float64 `json:"confidence"`
	Status         string   `json:"status"`
	Score          *float64 `json:"score"`
	Name           string   `json:"name"`
}

// rdModel is one entry of the per-model "models" array.
type rdModel struct {
	Name   string   `json:"name"`
	Status string   `json:"status"`
	Score  *float64 `json:"score"`
}

type rdResponse struct {
	Overall   *rdEntry           `json:"overall"`
	Results   map[string]rdEntry `json:"results"`
	Details   json.RawMessage    `json:"details"`
	Models    []rdModel          `json:"models"`
	RawResult *struct {
		Score *float64 `json:"score"`
	} `json:"rawResult"`

	// Top-level scores of the per-model shape.
	Confidence *float64 `json:"confidence"`
	Score      *float64 `json:"score"`
}

// hasVendorOverall reports whether the body uses the REST contract, which
// carries its own overall verdict and per-model results. A "models" array
// always selects the threshold contract, even next to a "details" key.
func (r rdResponse) hasVendorOverall() bool {
	if len(r.Models) > 0 {
		return false
	}
	if r.Overall != nil || len(r.Results) > 0 {
		return true
	}
	return hasEntries(r.Details)
}

// hasEntries reports whether raw holds something other than null or an
// empty array or object.
func hasEntries(raw json.RawMessage) bool {
	switch strings.Join(strings.Fields(string(raw)), "") {
	case "", "null", "[]", "{}":
		return false
	default:
		return true
	}
}

// ParseRealityDefender normalizes a Reality Defender response body.
//
// Bodies in the REST contract keep the vendor's "overall" verdict, with
// details taken from "results" or "details". Every other body goes through
// the manipulated-model threshold, so a response without models is REAL.
func ParseRealityDefender(body []byte, threshold int) (*model.Result, error) {
	var resp rdResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: Reality Defender: %v", ErrInvalidResponse, err)
	}

	result := &model.Result{
		Provider:  NameRealityDefender,
		RawResult: json.RawMessage(body),
	}

	if !resp.hasVendorOverall() {
		result.Details = make([]model.Detail, 0, len(resp.Models))
		for _, m := range resp.Models {
			status := model.ParseModelStatus(m.Status)
			result.Details = append(result.Details, model.Detail{
				Name:       m.Name,
				Status:     status,
				Verdict:    verdictFromStatus(status),
				Confidence: deref(m.Score),
			})
		}

		// The top-level score is the manipulation probability, so it only
		// becomes the confidence of a FAKE verdict.
		result.Overall.Confidence = deref(resp.Confidence)

		fakeScore := 0.0
		if resp.RawResult != nil && resp.RawResult.Score != nil {
			fakeScore = *resp.RawResult.Score
		} else if resp.Score != nil {
			fakeScore = *resp.Score
		}
		result.ApplyThreshold(threshold, fakeScore)
		return result, nil
	}

	if resp.Overall != nil {
		result.Overall = overallFrom(*resp.Overall)
	}

	details, err := rdDetails(resp)
	if err != nil {
		return nil, err
	}
	result.Details = details

	manipulated := model.CountManipulated(details)
	result.Overall.ManipulatedModelsCount = manipulated
	result.Overall.TotalModelsUsed = len(details)
	result.Summary = model.NewSummary(details, "Vendor overall verdict")
	result.Metadata = &model.ResultMetadata{
		ManipulatedModelCount: manipulated,
		Threshold:             threshold,
	}
	return result, nil
}

// rdDetails collects details from "results" (object keyed by model) or
// "details" (object or array).
func rdDetails(resp rdResponse) ([]model.Detail, error) {
	entries := resp.Results
	if len(entries) == 0 && hasEntries(resp.Details) {
		var list []rdEntry
		if err := json.Unmarshal(resp.Details, &list); err == nil {
			return detailsFromEntries(list), nil
		}
		if err := json.Unmarshal(resp.Details, &entries); err != nil {
			return nil, fmt.Errorf("%w: Reality Defender details: %v", ErrInvalidResponse, err)
		}
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]rdEntry, 0, len(keys))
	for _, k := range keys {
		e := entries[k]
		if e.Name == "" {
			e.Name = k
		}
		list = append(list, e)
	}
	return detailsFromEntries(list), nil
}

func detailsFromEntries(entries []rdEntry) []model.Detail {
	details := make([]model.Detail, 0, len(entries))
	for _, e := range entries {
		d := model.Detail{
			Name:           e.Name,
			Classification: e.Classification,
			Verdict:        model.ParseVerdict(firstNonEmpty(e.Verdict, e.Classification, e.Status)),
			Confidence:     firstScore(e.Confidence, e.Score),
		}
		if e.Status != "" {
			d.Status = model.ParseModelStatus(e.Status)
		}
		details = append(details, d)
	}
	return details
}

func overallFrom(e rdEntry) model.Overall {
	verdict := model.ParseVerdict(firstNonEmpty(e.Verdict, e.Classification, e.Status))
	classification := e.Classification
	if classification == "" || model.ParseVerdict(classification) != model.VerdictUnknown {
		classification = verdict.Classification()
	}
	return model.Overall{
		Classification: classification,
		Verdict:        verdict,
		Confidence:     firstScore(e.Confidence, e.Score),
	}
}

func verdictFromStatus(s model.ModelStatus) model.Verdict {
	switch s {
	case model.StatusManipulated:
		return model.VerdictFake
	case model.StatusAuthentic:
		return model.VerdictReal
	case model.StatusSuspicious:
		return model.VerdictSuspicious
	default:
		return model.VerdictUnknown
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstScore(values ...*float64) float64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
