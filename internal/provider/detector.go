package provider

import (
	"context"
	"fmt"
	"sort"

	"github.com/nao1215/deepscan/internal/media"
	"github.com/nao1215/deepscan/internal/model"
)

// Provider names.
const (
	NameRealityDefender = "realitydefender"
	NameSightengine     = "sightengine"
)

// Detector sends one image to one vendor.
type Detector interface {
	// Name returns the provider name used in results and the history database.
	Name() string

	// Detect performs a single synchronous vendor call.
	Detect(ctx context.Context, img *media.Image) (*model.Result, error)
}

// Set holds the enabled detectors keyed by name.
type Set struct {
	detectors map[string]Detector
}

// NewSet creates a Set. Nil detectors are skipped and later entries replace
// earlier ones with the same name.
func NewSet(detectors ...Detector) *Set {
	s := &Set{detectors: make(map[string]Detector, len(detectors))}
	for _, d := range detectors {
		s.Add(d)
	}
	return s
}

// Add registers a detector.
func (s *Set) Add(d Detector) {
	if d == nil {
		return
	}
	s.detectors[d.Name()] = d
}

// Get returns the detector registered under name.
func (s *Set) Get(name string) (Detector, error) {
	d, ok := s.detectors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return d, nil
}

// Names returns the registered names, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.detectors))
	for name := range s.detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the detectors ordered by name.
func (s *Set) All() []Detector {
	names := s.Names()
	out := make([]Detector, 0, len(names))
	for _, name := range names {
		out = append(out, s.detectors[name])
	}
	return out
}

// Select returns the detectors for the given names. "all" or an empty list
// selects every detector.
func (s *Set) Select(names ...string) ([]Detector, error) {
	if len(names) == 0 || (len(names) == 1 && names[0] == "all") {
		return s.All(), nil
	}
	out := make([]Detector, 0, len(names))
	for _, name := range names {
		d, err := s.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Len returns the number of registered detectors.
func (s *Set) Len() int {
	return len(s.detectors)
}
