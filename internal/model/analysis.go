package model

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ImageMetadata holds EXIF information extracted from an image.
type ImageMetadata struct {
	// Tags maps EXIF tag names to their formatted values.
	Tags map[string]string `json:"tags,omitempty"`

	CameraMake  string `json:"cameraMake,omitempty"`
	CameraModel string `json:"cameraModel,omitempty"`
	Software    string `json:"software,omitempty"`
	DateTaken   string `json:"dateTaken,omitempty"`
	HasGPS      bool   `json:"hasGPS"`

	// EditingSoftware is true when Software names a known editor or image
	// generator. It is a hint, not a verdict.
	EditingSoftware bool `json:"editingSoftware"`

	// Generator is the matched editor or generator name.
	Generator string `json:"generator,omitempty"`
}

// HasEXIF reports whether any EXIF tag was found.
func (m *ImageMetadata) HasEXIF() bool {
	return m != nil && len(m.Tags) > 0
}

// Analysis is one image analyzed by one or more vendors.
// It is the unit stored in the history database and rendered in reports.
type Analysis struct {
	ID          string             `json:"id"`
	Source      string             `json:"source"`
	Fingerprint string             `json:"fingerprint"`
	MIMEType    string             `json:"mimeType"`
	Size        int                `json:"size"`
	Metadata    *ImageMetadata     `json:"metadata,omitempty"`
	Results     map[string]*Result `json:"results"`
	Errors      map[string]string  `json:"errors,omitempty"`
	Description string             `json:"description,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	TimedOut    bool               `json:"timedOut,omitempty"`
	Steps       []string           `json:"steps,omitempty"`

	// mu guards Results and Errors while vendors run concurrently.
	mu sync.Mutex
}

// NewAnalysis creates an empty Analysis for an image.
func NewAnalysis(source, fingerprint, mimeType string, size int) *Analysis {
	return &Analysis{
		ID:          uuid.NewString(),
		Source:      source,
		Fingerprint: fingerprint,
		MIMEType:    mimeType,
		Size:        size,
		Results:     make(map[string]*Result),
		Errors:      make(map[string]string),
		CreatedAt:   time.Now().UTC(),
	}
}

// SetResult stores the result for a provider and clears any earlier error.
func (a *Analysis) SetResult(provider string, r *Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Results == nil {
		a.Results = make(map[string]*Result)
	}
	a.Results[provider] = r
	delete(a.Errors, provider)
}

// SetError records a provider failure.
func (a *Analysis) SetError(provider string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Errors == nil {
		a.Errors = make(map[string]string)
	}
	a.Errors[provider] = err.Error()
}

// Result returns the result for a provider, or nil.
func (a *Analysis) Result(provider string) *Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Results[provider]
}

// AddStep records that a pipeline step ran.
func (a *Analysis) AddStep(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Steps = append(a.Steps, name)
}

// Providers returns the providers that produced a result, sorted.
func (a *Analysis) Providers() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, 0, len(a.Results))
	for name := range a.Results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Verdict combines all provider verdicts. The most alarming verdict wins:
// any FAKE makes the analysis FAKE, then SUSPICIOUS, then REAL.
func (a *Analysis) Verdict() Verdict {
	a.mu.Lock()
	defer a.mu.Unlock()

	best := VerdictUnknown
	for _, r := range a.Results {
		if r == nil {
			continue
		}
		if r.Overall.Verdict.rank() > best.rank() {
			best = r.Overall.Verdict
		}
	}
	return best
}

// Confidence returns the confidence of the result that decided Verdict.
// Ties keep the highest confidence.
func (a *Analysis) Confidence() float64 {
	verdict := a.Verdict()

	a.mu.Lock()
	defer a.mu.Unlock()

	conf := 0.0
	for _, r := range a.Results {
		if r != nil && r.Overall.Verdict == verdict && r.Overall.Confidence > conf {
			conf = r.Overall.Confidence
		}
	}
	return conf
}

// HasErrors reports whether any provider failed.
func (a *Analysis) HasErrors() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Errors) > 0
}
