// Package vector defines the index gateway the advisor retrieves against.
// Two logical namespaces exist: the cocktail corpus and per-user preference
// memories. Backends live in subpackages and are selected at startup.
package vector

import "context"

// Match is a single retrieval hit: the stored metadata plus a cosine-type
// similarity score in [0,1]. Metadata is read-only to callers.
type Match struct {
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

// Record is a document to upsert into the cocktail namespace.
type Record struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// Index is the capability the core requires from the vector store.
type Index interface {
	// SearchCocktails returns the topK nearest cocktail records for the query vector.
	SearchCocktails(ctx context.Context, vec []float32, topK int) ([]Match, error)
	// UpsertCocktails inserts or replaces cocktail records.
	UpsertCocktails(ctx context.Context, records []Record) error
	// StoreMemory persists a preference memory under the given id. Metadata
	// must carry a filterable user_id field.
	StoreMemory(ctx context.Context, id string, vec []float32, metadata map[string]any) error
	// UserMemories returns up to topK memories whose user_id equals userID,
	// ranked against the seed vector.
	UserMemories(ctx context.Context, vec []float32, userID string, topK int) ([]Match, error)
	Close()
}
