package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Verdict is the overall classification surfaced to the caller.
type Verdict string

const (
	// VerdictReal means the image was judged authentic.
	VerdictReal Verdict = "REAL"

	// VerdictFake means the image was judged manipulated or generated.
	VerdictFake Verdict = "FAKE"

	// VerdictSuspicious means the vendor was not confident either way.
	VerdictSuspicious Verdict = "SUSPICIOUS"

	// VerdictUnknown means no verdict could be derived.
	VerdictUnknown Verdict = "UNKNOWN"
)

// Classification strings shown next to a verdict.
const (
	ClassificationAuthentic   = "Authentic Image"
	ClassificationManipulated = "Deepfake/Manipulated Image"
	ClassificationSuspicious  = "Suspicious Image"
	ClassificationUnknown     = "Unknown"
)

// verdictAliases maps vendor vocabulary onto verdicts.
var verdictAliases = map[string]Verdict{
	"real":        VerdictReal,
	"authentic":   VerdictReal,
	"genuine":     VerdictReal,
	"fake":        VerdictFake,
	"manipulated": VerdictFake,
	"deepfake":    VerdictFake,
	"suspicious":  VerdictSuspicious,
	"uncertain":   VerdictSuspicious,
}

// ParseVerdict maps a vendor label to a Verdict, case-insensitively.
// Unrecognized labels yield VerdictUnknown.
func ParseVerdict(s string) Verdict {
	if v, ok := verdictAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return v
	}
	return VerdictUnknown
}

// String returns the upper-case verdict.
func (v Verdict) String() string {
	if v == "" {
		return string(VerdictUnknown)
	}
	return string(v)
}

// Label returns the verdict in title case for human-readable output.
func (v Verdict) Label() string {
	return cases.Title(language.English).String(strings.ToLower(v.String()))
}

// Classification returns the default classification text for the verdict.
func (v Verdict) Classification() string {
	switch v {
	case VerdictReal:
		return ClassificationAuthentic
	case VerdictFake:
		return ClassificationManipulated
	case VerdictSuspicious:
		return ClassificationSuspicious
	default:
		return ClassificationUnknown
	}
}

// rank orders verdicts by how alarming they are.
func (v Verdict) rank() int {
	switch v {
	case VerdictFake:
		return 3
	case VerdictSuspicious:
		return 2
	case VerdictReal:
		return 1
	default:
		return 0
	}
}

// ModelStatus is the per-model status reported by a vendor.
type ModelStatus string

const (
	StatusAuthentic     ModelStatus = "AUTHENTIC"
	StatusManipulated   ModelStatus = "MANIPULATED"
	StatusSuspicious    ModelStatus = "SUSPICIOUS"
	StatusNotApplicable ModelStatus = "NOT_APPLICABLE"
	StatusUnknown       ModelStatus = "UNKNOWN"
)

// ParseModelStatus normalizes a vendor model status.
func ParseModelStatus(s string) ModelStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AUTHENTIC", "REAL":
		return StatusAuthentic
	case "MANIPULATED", "FAKE":
		return StatusManipulated
	case "SUSPICIOUS":
		return StatusSuspicious
	case "NOT_APPLICABLE", "NOT APPLICABLE", "N/A":
		return StatusNotApplicable
	default:
		return StatusUnknown
	}
}
