package model

import "testing"

// TestParseVerdict tests mapping vendor vocabulary to verdicts.
func TestParseVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Verdict
	}{
		{"REAL", VerdictReal},
		{"Real", VerdictReal},
		{"AUTHENTIC", VerdictReal},
		{"FAKE", VerdictFake},
		{"manipulated", VerdictFake},
		{" MANIPULATED ", VerdictFake},
		{"SUSPICIOUS", VerdictSuspicious},
		{"", VerdictUnknown},
		{"maybe", VerdictUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := ParseVerdict(tt.in); got != tt.want {
				t.Errorf("ParseVerdict(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestVerdictLabel tests title-case labels.
func TestVerdictLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		v    Verdict
		want string
	}{
		{VerdictReal, "Real"},
		{VerdictFake, "Fake"},
		{VerdictSuspicious, "Suspicious"},
		{Verdict(""), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.v.Label(); got != tt.want {
			t.Errorf("%q.Label() = %q, want %q", tt.v, got, tt.want)
		}
	}
}

// TestVerdictClassification tests default classification text.
func TestVerdictClassification(t *testing.T) {
	t.Parallel()

	if got := VerdictFake.Classification(); got != ClassificationManipulated {
		t.Errorf("expected %q, got %q", ClassificationManipulated, got)
	}
	if got := VerdictReal.Classification(); got != ClassificationAuthentic {
		t.Errorf("expected %q, got %q", ClassificationAuthentic, got)
	}
	if got := VerdictUnknown.Classification(); got != ClassificationUnknown {
		t.Errorf("expected %q, got %q", ClassificationUnknown, got)
	}
}

// TestParseModelStatus tests per-model status normalization.
func TestParseModelStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want ModelStatus
	}{
		{"MANIPULATED", StatusManipulated},
		{"manipulated", StatusManipulated},
		{"AUTHENTIC", StatusAuthentic},
		{"NOT_APPLICABLE", StatusNotApplicable},
		{"SUSPICIOUS", StatusSuspicious},
		{"", StatusUnknown},
		{"ANALYZING", StatusUnknown},
	}

	for _, tt := range tests {
		if got := ParseModelStatus(tt.in); got != tt.want {
			t.Errorf("ParseModelStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
