package testutils

import (
	"context"
	"fmt"
)

// MockEmbedder is a test embedder that returns predictable embeddings.
type MockEmbedder struct {
	// Embeddings maps exact input text to its embedding.
	Embeddings map[string][]float32

	// Default is returned for any text without a mapped embedding.
	Default []float32

	// FailOn causes embedding to return an error when any input matches.
	FailOn string

	// FailAll causes every call to return an error.
	FailAll bool

	// DocumentCalls and QueryCalls count invocations.
	DocumentCalls int
	QueryCalls    int
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		Default:    []float32{0.1, 0.2, 0.3},
	}
}

func (m *MockEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	m.DocumentCalls++
	if m.FailAll {
		return nil, fmt.Errorf("mock embedding failure")
	}

	vecs := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := m.lookup(text)
		if err != nil {
			return nil, err
		}
		vecs = append(vecs, v)
	}
	return vecs, nil
}

func (m *MockEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	m.QueryCalls++
	if m.FailAll {
		return nil, fmt.Errorf("mock embedding failure")
	}
	return m.lookup(text)
}

func (m *MockEmbedder) lookup(text string) ([]float32, error) {
	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	return m.Default, nil
}

func (m *MockEmbedder) Close() error {
	return nil
}
