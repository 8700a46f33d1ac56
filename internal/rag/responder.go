package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/hautbar/barkeep/internal/bus"
	"github.com/hautbar/barkeep/internal/memory"
	"github.com/hautbar/barkeep/internal/vector"
)

const (
	defaultLimit   = 5
	maxLimit       = 10
	retrieveLimit  = 10
	scoreThreshold = 0.19
)

// countPattern matches "<verb> [me] <n>" requests like "show me 3 cocktails".
var countPattern = regexp.MustCompile(`(?:show|give|get|list|display|recommend|suggest|find|want|need)\s+(?:me\s+)?(\d+)`)

// PreferenceStore is the preference side of the pipeline.
type PreferenceStore interface {
	SavePreferences(ctx context.Context, userID, userMessage string) bool
	GetPreferences(ctx context.Context, userID string) memory.PreferenceSet
}

// Generator is the text-generation capability.
type Generator interface {
	Generate(ctx context.Context, prompt, systemPrompt string) (string, error)
}

// Embedder turns the enhanced query into a search vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CocktailSearcher is the retrieval side of the index gateway.
type CocktailSearcher interface {
	SearchCocktails(ctx context.Context, vec []float32, topK int) ([]vector.Match, error)
}

// Responder orchestrates the retrieval-augmented answer pipeline.
type Responder struct {
	prefs       PreferenceStore
	embedder    Embedder
	index       CocktailSearcher
	llm         Generator
	events      *bus.Client // optional, best-effort
	legacyClamp bool
	logger      *slog.Logger
}

func NewResponder(prefs PreferenceStore, embedder Embedder, index CocktailSearcher, llm Generator, events *bus.Client, legacyClamp bool, logger *slog.Logger) *Responder {
	return &Responder{
		prefs:       prefs,
		embedder:    embedder,
		index:       index,
		llm:         llm,
		events:      events,
		legacyClamp: legacyClamp,
		logger:      logger,
	}
}

// ProcessQuery answers a single user query and returns the answer plus the
// retrieved sources. Every stage is best-effort: preference handling,
// retrieval and generation each degrade independently, and no failure
// escapes this boundary as a panic or raw error.
func (r *Responder) ProcessQuery(ctx context.Context, userID, query string) (answer string, sources []vector.Match) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("unhandled failure in query pipeline", "user_id", userID, "panic", rec)
			answer = genericApology
			sources = nil
		}
	}()

	// Preference persistence must never block answering.
	if saved := r.prefs.SavePreferences(ctx, userID, query); saved {
		r.logger.Info("preferences saved from query", "user_id", userID)
	}

	prefs := r.prefs.GetPreferences(ctx, userID)

	limit := r.requestedLimit(query)
	enhanced := EnhanceQuery(query, prefs)
	if enhanced != query {
		r.logger.Info("enhanced query", "original", query, "enhanced", enhanced)
	}

	var contextBlock string
	sources, contextBlock = r.retrieve(ctx, enhanced, limit)

	prompt := fmt.Sprintf(answerPrompt,
		query,
		joinOrPlaceholder(prefs.FavoriteIngredients),
		joinOrPlaceholder(prefs.FavoriteCocktails),
		contextBlock,
	)

	answer, err := r.llm.Generate(ctx, prompt, bartenderSystemPrompt)
	if err != nil {
		r.logger.Error("answer generation failed", "user_id", userID, "error", err)
		return generationApology, sources
	}

	if r.events != nil {
		if err := r.events.Publish(bus.SubjectChatProcessed, map[string]any{
			"user_id": userID,
			"sources": len(sources),
		}); err != nil {
			r.logger.Warn("failed to publish chat event", "error", err)
		}
	}

	return answer, sources
}

// requestedLimit resolves how many cocktails the user asked for. The default
// is 5. The historical clamp max(1, max(10, n)) forced any explicit count up
// to at least 10; the corrected clamp min(10, max(1, n)) is the default and
// the old behavior stays available behind LEGACY_COUNT_CLAMP.
func (r *Responder) requestedLimit(query string) int {
	m := countPattern.FindStringSubmatch(strings.ToLower(query))
	if m == nil {
		return defaultLimit
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return defaultLimit
	}

	if r.legacyClamp {
		if n < maxLimit {
			n = maxLimit
		}
		return n
	}

	if n < 1 {
		return 1
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

// retrieve embeds the enhanced query, searches the cocktail namespace and
// renders the context block. A failure leaves sources and context at
// whatever had been built; processing continues to generation regardless.
func (r *Responder) retrieve(ctx context.Context, enhanced string, limit int) ([]vector.Match, string) {
	vec, err := r.embedder.Embed(ctx, enhanced)
	if err != nil {
		r.logger.Error("failed to embed query", "error", err)
		return nil, ""
	}

	matches, err := r.index.SearchCocktails(ctx, vec, retrieveLimit)
	if err != nil {
		r.logger.Error("retrieval failed", "error", err)
		return nil, ""
	}

	kept := matches[:0:0]
	for _, m := range matches {
		if m.Score > scoreThreshold {
			kept = append(kept, m)
		}
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}

	r.logger.Info("retrieved cocktails", "matches", len(matches), "kept", len(kept))
	return kept, renderContext(limit, kept)
}

// renderContext formats the retrieval results as a numbered block. The
// header uses the requested count, not the kept count, matching the prompt
// instruction that fewer results than requested must be acknowledged.
func renderContext(limit int, matches []vector.Match) string {
	var b strings.Builder
	if limit == 1 {
		b.WriteString("Based on your query, here is a relevant cocktail:\n\n")
	} else {
		fmt.Fprintf(&b, "Based on your query, here are %d relevant cocktails:\n\n", limit)
	}
	for i, m := range matches {
		fmt.Fprintf(&b, "%d. %s\n\n", i+1, renderMetadata(m.Metadata))
	}
	return b.String()
}

// renderMetadata renders a match as text. Typed fields are preferred when
// present; otherwise the raw text payload; otherwise the whole metadata map.
func renderMetadata(md map[string]any) string {
	if len(md) == 0 {
		return "No information available"
	}

	if name, _ := md["name"].(string); name != "" {
		parts := []string{name}
		if category, _ := md["category"].(string); category != "" {
			parts = append(parts, "Category: "+category)
		}
		if alcoholic, _ := md["alcoholic"].(string); alcoholic != "" {
			parts = append(parts, "Type: "+alcoholic)
		}
		if ingredients := renderList(md["ingredients"]); ingredients != "" {
			parts = append(parts, "Ingredients: "+ingredients)
		}
		if instructions, _ := md["instructions"].(string); instructions != "" {
			parts = append(parts, "Instructions: "+instructions)
		}
		return strings.Join(parts, ". ")
	}

	if text, _ := md["text"].(string); text != "" {
		return text
	}

	raw, err := json.Marshal(md)
	if err != nil {
		return "No information available"
	}
	return string(raw)
}

func renderList(v any) string {
	switch items := v.(type) {
	case []string:
		return strings.Join(items, ", ")
	case []any:
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case string:
		return items
	default:
		return ""
	}
}

func joinOrPlaceholder(items []string) string {
	if len(items) == 0 {
		return noPreferences
	}
	return strings.Join(items, ", ")
}
