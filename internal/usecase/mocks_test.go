package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/smartration/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu       sync.Mutex
	data     map[string][]byte
	getError error
	setError error
	sets     int
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string][]byte)}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// MockOCRClient is a mock implementation of domain.OCRClient
type MockOCRClient struct {
	result domain.OCRResult
	err    error
	calls  int
	images [][]byte
}

func (m *MockOCRClient) DetectText(ctx context.Context, image []byte) (domain.OCRResult, error) {
	m.calls++
	m.images = append(m.images, image)
	if m.err != nil {
		return domain.OCRResult{}, m.err
	}
	return m.result, nil
}

// MockPreprocessor is a mock implementation of domain.ImagePreprocessor
type MockPreprocessor struct {
	output []byte
	err    error
	calls  int
}

func (m *MockPreprocessor) Prepare(image []byte) ([]byte, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.output, nil
}

// MockLLMClient is a mock implementation of domain.LLMClient
type MockLLMClient struct {
	response string
	err      error
	prompts  []string
	opts     []domain.CompletionOptions
}

func (m *MockLLMClient) Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// fixedNow returns a clock frozen at the given date
func fixedNow(year int, month time.Month, day int) func() time.Time {
	return func() time.Time {
		return time.Date(year, month, day, 9, 30, 0, 0, time.UTC)
	}
}

// box returns an annotation whose bounding box starts at (x, y)
func box(text string, x, y, w, h float64) domain.TextAnnotation {
	return domain.TextAnnotation{
		Text: text,
		BoundingPoly: &domain.BoundingPoly{Vertices: []domain.Vertex{
			{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h},
		}},
	}
}

// receiptOCR lays each line's words out left to right, 40 pixels apart
// vertically, and prepends the full-text block like a Vision response.
func receiptOCR(lines ...string) domain.OCRResult {
	annotations := []domain.TextAnnotation{{Text: strings.Join(lines, "\n")}}
	for i, line := range lines {
		x := 10.0
		for _, word := range strings.Fields(line) {
			w := float64(len(word) * 8)
			annotations = append(annotations, box(word, x, float64(i*40), w, 12))
			x += w + 6
		}
	}
	return domain.NewOCRResult(annotations)
}
