package repositories

import "context"

// Embedder turns texts into vectors, one per input, in input order
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Retriever finds the passages most relevant to a query
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}
