package model

import "time"

// HistoryEntry is one stored analysis in a history listing.
type HistoryEntry struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Fingerprint string    `json:"fingerprint"`
	Verdict     Verdict   `json:"verdict"`
	Confidence  float64   `json:"confidence"`
	Providers   []string  `json:"providers"`
	Timestamp   time.Time `json:"timestamp"`
}

// History is a page of stored analyses plus verdict totals over the whole
// database.
type History struct {
	Entries []HistoryEntry  `json:"entries"`
	Counts  map[Verdict]int `json:"counts"`
}

// Total returns the number of analyses counted in Counts.
func (h *History) Total() int {
	n := 0
	for _, c := range h.Counts {
		n += c
	}
	return n
}
