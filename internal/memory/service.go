package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hautbar/barkeep/internal/bus"
	"github.com/hautbar/barkeep/internal/vector"
)

const memoryReadLimit = 10

// Generator is the text-generation capability the extractor needs.
type Generator interface {
	Generate(ctx context.Context, prompt, systemPrompt string) (string, error)
}

// Embedder turns text into a query/storage vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// MemoryIndex is the slice of the index gateway this service needs.
type MemoryIndex interface {
	StoreMemory(ctx context.Context, id string, vec []float32, metadata map[string]any) error
	UserMemories(ctx context.Context, vec []float32, userID string, topK int) ([]vector.Match, error)
}

// Service detects preferences in chat turns, persists them as memory events
// and aggregates them back into a single PreferenceSet on read.
type Service struct {
	llm      Generator
	embedder Embedder
	index    MemoryIndex
	events   *bus.Client // optional, best-effort
	logger   *slog.Logger
}

func NewService(llm Generator, embedder Embedder, index MemoryIndex, events *bus.Client, logger *slog.Logger) *Service {
	return &Service{
		llm:      llm,
		embedder: embedder,
		index:    index,
		events:   events,
		logger:   logger,
	}
}

// DetectPreferences asks the model for newly stated favorites in one user
// message. It never fails: invalid input, generation errors and unparseable
// output all degrade to the empty set.
func (s *Service) DetectPreferences(ctx context.Context, userMessage string) PreferenceSet {
	if strings.TrimSpace(userMessage) == "" {
		s.logger.Warn("preference detection skipped for empty message")
		return PreferenceSet{}
	}

	prompt := fmt.Sprintf(extractionPrompt, userMessage)
	raw, err := s.llm.Generate(ctx, prompt, extractionSystemPrompt)
	if err != nil {
		s.logger.Warn("preference detection call failed", "error", err)
		return PreferenceSet{}
	}

	prefs, ok := parsePreferences(raw)
	if !ok {
		s.logger.Warn("no usable JSON in preference response", "raw", raw)
		return PreferenceSet{}
	}

	s.logger.Info("detected preferences",
		"ingredients", len(prefs.FavoriteIngredients),
		"cocktails", len(prefs.FavoriteCocktails),
	)
	return prefs
}

// SavePreferences detects and persists preferences from a message. Returns
// whether a save occurred: false covers both nothing-detected and store
// failure, which callers cannot distinguish. Logs tell them apart.
func (s *Service) SavePreferences(ctx context.Context, userID, userMessage string) bool {
	prefs := s.DetectPreferences(ctx, userMessage)
	if prefs.IsEmpty() {
		s.logger.Info("no preferences detected", "user_id", userID)
		return false
	}

	event := map[string]any{
		"favorite_ingredients": toAnySlice(prefs.FavoriteIngredients),
		"favorite_cocktails":   toAnySlice(prefs.FavoriteCocktails),
		"timestamp":            time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to encode preference event", "error", err)
		return false
	}
	memoryText := fmt.Sprintf("User %s preferences: %s", userID, payload)

	vec, err := s.embedder.Embed(ctx, memoryText)
	if err != nil {
		s.logger.Error("failed to embed preference event", "user_id", userID, "error", err)
		return false
	}

	memoryID := uuid.NewString()
	metadata := map[string]any{
		"user_id": userID,
		"text":    memoryText,
	}
	for k, v := range event {
		metadata[k] = v
	}

	if err := s.index.StoreMemory(ctx, memoryID, vec, metadata); err != nil {
		s.logger.Error("failed to store preference event", "user_id", userID, "error", err)
		return false
	}

	s.logger.Info("stored preference event", "user_id", userID, "memory_id", memoryID)

	if s.events != nil {
		if err := s.events.Publish(bus.SubjectPreferenceStored, map[string]any{
			"user_id":   userID,
			"memory_id": memoryID,
		}); err != nil {
			s.logger.Warn("failed to publish preference event", "error", err)
		}
	}
	return true
}

// GetPreferences unions every stored preference event for the user into one
// deduplicated set. The read is a similarity query seeded with a canonical
// phrase; it tolerates false negatives but never invents data. Any failure
// degrades to the empty set.
func (s *Service) GetPreferences(ctx context.Context, userID string) PreferenceSet {
	seed := fmt.Sprintf("User %s preferences", userID)
	vec, err := s.embedder.Embed(ctx, seed)
	if err != nil {
		s.logger.Error("failed to embed preference seed", "user_id", userID, "error", err)
		return PreferenceSet{}
	}

	matches, err := s.index.UserMemories(ctx, vec, userID, memoryReadLimit)
	if err != nil {
		s.logger.Error("failed to read preference events", "user_id", userID, "error", err)
		return PreferenceSet{}
	}

	var prefs PreferenceSet
	for _, m := range matches {
		if m.Metadata == nil {
			s.logger.Warn("memory entry without metadata", "user_id", userID)
			continue
		}
		prefs.Union(PreferenceSet{
			FavoriteIngredients: metadataList(s.logger, m.Metadata, "favorite_ingredients"),
			FavoriteCocktails:   metadataList(s.logger, m.Metadata, "favorite_cocktails"),
		})
	}

	s.logger.Info("aggregated preferences",
		"user_id", userID,
		"events", len(matches),
		"ingredients", len(prefs.FavoriteIngredients),
		"cocktails", len(prefs.FavoriteCocktails),
	)
	return prefs
}

// metadataList reads a string list out of stored metadata. Entries that are
// not lists are skipped with a warning rather than failing the whole read.
func metadataList(logger *slog.Logger, metadata map[string]any, key string) []string {
	v, ok := metadata[key]
	if !ok || v == nil {
		return nil
	}
	switch items := v.(type) {
	case []any:
		return stringList(items)
	case []string:
		return items
	default:
		logger.Warn("unexpected preference list format", "key", key, "value", v)
		return nil
	}
}

func toAnySlice(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}
