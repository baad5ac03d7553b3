package testutils

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/lumihq/recall/pkg/vector"
)

// MockIndex is an in-memory vector.Index with real filter and distance
// semantics, so orchestration tests exercise ordering and scoping without a
// storage backend.
type MockIndex struct {
	mu      sync.Mutex
	records []vector.Record

	// FailUpsert / FailQuery / FailDelete / FailCount force the matching
	// operation to return an error.
	FailUpsert bool
	FailQuery  bool
	FailDelete bool
	FailCount  bool
}

func NewMockIndex() *MockIndex {
	return &MockIndex{}
}

func (m *MockIndex) Upsert(_ context.Context, records []vector.Record) ([]string, error) {
	if m.FailUpsert {
		return nil, fmt.Errorf("%w: mock upsert failure", vector.ErrConnection)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		ids = append(ids, rec.ID)
		m.records = append(m.records, rec)
	}
	return ids, nil
}

func (m *MockIndex) Query(_ context.Context, embedding []float32, topK int, filter vector.Filter) ([]vector.QueryResult, error) {
	if m.FailQuery {
		return nil, fmt.Errorf("%w: mock query failure", vector.ErrConnection)
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var results []vector.QueryResult
	for _, rec := range m.records {
		if !filter.Matches(rec.Metadata) {
			continue
		}
		results = append(results, vector.QueryResult{
			Record: rec,
			Score:  l2Distance(embedding, rec.Embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score < results[j].Score })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (m *MockIndex) DeleteWhere(_ context.Context, filter vector.Filter) (int, error) {
	if m.FailDelete {
		return 0, fmt.Errorf("%w: mock delete failure", vector.ErrConnection)
	}
	if err := filter.Validate(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	deleted := 0
	for _, rec := range m.records {
		if filter.Matches(rec.Metadata) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	m.records = kept
	return deleted, nil
}

func (m *MockIndex) Count(_ context.Context) (int, error) {
	if m.FailCount {
		return 0, fmt.Errorf("%w: mock count failure", vector.ErrConnection)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

func (m *MockIndex) Close() error {
	return nil
}

// Records returns a copy of the stored records for assertions.
func (m *MockIndex) Records() []vector.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]vector.Record, len(m.records))
	copy(out, m.records)
	return out
}

func l2Distance(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}

var _ vector.Index = (*MockIndex)(nil)
