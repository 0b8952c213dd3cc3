package model

import (
	"encoding/json"
	"fmt"
)

// Overall is the aggregate verdict for one vendor call.
type Overall struct {
	Classification string  `json:"classification"`
	Verdict        Verdict `json:"verdict"`
	Confidence     float64 `json:"confidence"`

	// ManipulatedModelsCount and TotalModelsUsed are set when the vendor
	// reports per-model results.
	ManipulatedModelsCount int `json:"manipulatedModelsCount"`
	TotalModelsUsed        int `json:"totalModelsUsed"`
}

// Detail is one per-model result. Vendors disagree on field names, so only
// the fields a vendor actually supplies are set.
type Detail struct {
	Name           string      `json:"name,omitempty"`
	Status         ModelStatus `json:"status,omitempty"`
	Classification string      `json:"classification,omitempty"`
	Verdict        Verdict     `json:"verdict,omitempty"`
	Confidence     float64     `json:"confidence"`
}

// IsManipulated reports whether the model flagged the image.
func (d Detail) IsManipulated() bool {
	if d.Status != "" {
		return d.Status == StatusManipulated
	}
	return d.Verdict == VerdictFake
}

// Summary counts per-model outcomes.
type Summary struct {
	TotalModels      int    `json:"totalModels"`
	ManipulatedCount int    `json:"manipulatedCount"`
	AuthenticCount   int    `json:"authenticCount"`
	DetectionLogic   string `json:"detectionLogic"`
}

// ResultMetadata carries debugging information about the verdict.
type ResultMetadata struct {
	ManipulatedModelCount int  `json:"manipulatedModelCount"`
	Threshold             int  `json:"threshold"`
	ThresholdApplied      bool `json:"thresholdApplied"`
}

// Result is the normalized response for one vendor.
type Result struct {
	Provider  string          `json:"provider"`
	Overall   Overall         `json:"overall"`
	Details   []Detail        `json:"details"`
	Summary   *Summary        `json:"summary,omitempty"`
	Metadata  *ResultMetadata `json:"_metadata,omitempty"` //nolint:tagliatelle // wire name kept for existing clients
	RawResult json.RawMessage `json:"rawResult,omitempty"`

	// Cached is true when the result came from the history database.
	Cached bool `json:"cached,omitempty"`
}

// CountManipulated returns how many details flagged the image.
func CountManipulated(details []Detail) int {
	n := 0
	for _, d := range details {
		if d.IsManipulated() {
			n++
		}
	}
	return n
}

// NewSummary builds a Summary from the details.
func NewSummary(details []Detail, logic string) *Summary {
	manipulated := CountManipulated(details)
	return &Summary{
		TotalModels:      len(details),
		ManipulatedCount: manipulated,
		AuthenticCount:   len(details) - manipulated,
		DetectionLogic:   logic,
	}
}

// ThresholdLogic describes the manipulated-model rule for a threshold.
func ThresholdLogic(threshold int) string {
	return fmt.Sprintf("More than %d models MANIPULATED → FAKE; otherwise REAL", threshold)
}

// ApplyThreshold overrides the overall verdict using the manipulated-model
// rule: more than threshold models flagged MANIPULATED means FAKE, anything
// else means REAL. fakeScore, when positive, replaces the confidence of a
// FAKE verdict.
func (r *Result) ApplyThreshold(threshold int, fakeScore float64) {
	count := CountManipulated(r.Details)

	if count > threshold {
		r.Overall.Verdict = VerdictFake
		r.Overall.Classification = ClassificationManipulated
		if fakeScore > 0 {
			r.Overall.Confidence = fakeScore
		}
	} else {
		r.Overall.Verdict = VerdictReal
		r.Overall.Classification = ClassificationAuthentic
	}

	r.Overall.ManipulatedModelsCount = count
	r.Overall.TotalModelsUsed = len(r.Details)
	r.Summary = NewSummary(r.Details, ThresholdLogic(threshold))
	r.Metadata = &ResultMetadata{
		ManipulatedModelCount: count,
		Threshold:             threshold,
		ThresholdApplied:      true,
	}
}
