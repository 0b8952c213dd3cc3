package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nao1215/deepscan/internal/media"
	"github.com/nao1215/deepscan/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, job *Job) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, job *Job) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, job)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// fakeDetector implements provider.Detector.
type fakeDetector struct {
	name    string
	verdict model.Verdict
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (f *fakeDetector) Name() string { return f.name }

func (f *fakeDetector) Detect(ctx context.Context, _ *media.Image) (*model.Result, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &model.Result{
		Provider: f.name,
		Overall:  model.Overall{Verdict: f.verdict, Confidence: 0.9},
		Details:  []model.Detail{},
	}, nil
}

// memoryStore implements Store in memory.
type memoryStore struct {
	mu       sync.Mutex
	saved    []*model.Analysis
	results  map[string]*model.Analysis
	times    map[string]time.Time
	saveErr  error
	getCalls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		results: make(map[string]*model.Analysis),
		times:   make(map[string]time.Time),
	}
}

func (m *memoryStore) key(fingerprint, provider string) string {
	return fingerprint + "|" + provider
}

func (m *memoryStore) SaveAnalysis(_ context.Context, a *model.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, a)
	for _, p := range a.Providers() {
		m.results[m.key(a.Fingerprint, p)] = a
		m.times[m.key(a.Fingerprint, p)] = a.CreatedAt
	}
	return nil
}

func (m *memoryStore) GetLatestAnalysis(_ context.Context, fingerprint, provider string) (*model.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	a, ok := m.results[m.key(fingerprint, provider)]
	if !ok {
		return nil, errors.New("not found")
	}
	return a, nil
}

func (m *memoryStore) HasRecentAnalysis(_ context.Context, fingerprint, provider string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.times[m.key(fingerprint, provider)]
	return ok && time.Since(t) < ttl, nil
}

// fakeDescriber implements describe.Describer.
type fakeDescriber struct {
	text string
	err  error
}

func (f fakeDescriber) Describe(context.Context, *media.Image) (string, error) {
	return f.text, f.err
}

func testImage() *media.Image {
	return &media.Image{Data: []byte("\x89PNG\r\n\x1a\nimage"), MIMEType: "image/png"}
}
