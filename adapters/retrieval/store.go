// Package retrieval grounds prompts in a small document corpus held in
// memory: passages are embedded once at startup and ranked by cosine
// similarity to the user's message.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/chatwidget/domain/repositories"
)

var _ repositories.Retriever = (*VectorStore)(nil)

// Passage is one embedded document of the corpus
type Passage struct {
	ID     string
	Text   string
	Vector []float32
}

// Match is a passage with its similarity to a query
type Match struct {
	Passage
	Score float64
}

// VectorStore is an in-memory, read-only index of embedded passages
type VectorStore struct {
	embedder repositories.Embedder
	passages []Passage
	logger   *zap.Logger
}

// NewVectorStore embeds documents and indexes them. Blank documents are
// skipped; the rest keep their position as ID ("doc_0", "doc_1", ...).
func NewVectorStore(ctx context.Context, embedder repositories.Embedder, documents []string, logger *zap.Logger) (*VectorStore, error) {
	var (
		texts []string
		ids   []string
	)
	for i, doc := range documents {
		doc = strings.TrimSpace(doc)
		if doc == "" {
			continue
		}
		texts = append(texts, doc)
		ids = append(ids, fmt.Sprintf("doc_%d", i))
	}

	store := &VectorStore{embedder: embedder, logger: logger}
	if len(texts) == 0 {
		return store, nil
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed corpus: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("failed to embed corpus: expected %d vectors, got %d", len(texts), len(vectors))
	}

	store.passages = make([]Passage, len(texts))
	for i := range texts {
		store.passages[i] = Passage{ID: ids[i], Text: texts[i], Vector: vectors[i]}
	}

	logger.Info("Corpus indexed",
		zap.Int("passages", len(store.passages)),
		zap.String("embedding_model", embedder.Model()))
	return store, nil
}

// Len returns the number of indexed passages
func (s *VectorStore) Len() int {
	return len(s.passages)
}

// Search returns up to k passages ranked by similarity to query, best first.
// Passages with no similarity at all are left out.
func (s *VectorStore) Search(ctx context.Context, query string, k int) ([]Match, error) {
	if k <= 0 || len(s.passages) == 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("failed to embed query: expected 1 vector, got %d", len(vectors))
	}

	matches := make([]Match, 0, len(s.passages))
	for _, p := range s.passages {
		score := cosine(vectors[0], p.Vector)
		if score <= 0 {
			continue
		}
		matches = append(matches, Match{Passage: p, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Retrieve implements repositories.Retriever
func (s *VectorStore) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	matches, err := s.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(matches))
	ids := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
		ids[i] = m.ID
	}
	s.logger.Debug("Retrieved context", zap.Strings("doc_ids", ids))
	return texts, nil
}

// cosine returns the cosine similarity of a and b, or 0 when they cannot be
// compared
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
