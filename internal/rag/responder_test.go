package rag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/hautbar/barkeep/internal/memory"
	"github.com/hautbar/barkeep/internal/vector"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubPrefs struct {
	prefs     memory.PreferenceSet
	saveCalls int
	panicking bool
}

func (s *stubPrefs) SavePreferences(context.Context, string, string) bool {
	if s.panicking {
		panic("preference store blew up")
	}
	s.saveCalls++
	return false
}

func (s *stubPrefs) GetPreferences(context.Context, string) memory.PreferenceSet {
	return s.prefs
}

type stubEmbedder struct {
	err  error
	last string
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.last = text
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.5}, nil
}

type stubSearcher struct {
	matches []vector.Match
	err     error
	topK    int
}

func (s *stubSearcher) SearchCocktails(_ context.Context, _ []float32, topK int) ([]vector.Match, error) {
	s.topK = topK
	return s.matches, s.err
}

type stubGenerator struct {
	answer string
	err    error
	prompt string
	system string
}

func (g *stubGenerator) Generate(_ context.Context, prompt, systemPrompt string) (string, error) {
	g.prompt = prompt
	g.system = systemPrompt
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func cocktailMatches(n int, score float64) []vector.Match {
	matches := make([]vector.Match, n)
	for i := range matches {
		matches[i] = vector.Match{
			Metadata: map[string]any{"name": fmt.Sprintf("Cocktail %d", i+1)},
			Score:    score,
		}
	}
	return matches
}

func newTestResponder(prefs *stubPrefs, emb *stubEmbedder, idx *stubSearcher, gen *stubGenerator, legacy bool) *Responder {
	return NewResponder(prefs, emb, idx, gen, nil, legacy, discardLogger())
}

func TestProcessQuery_Success(t *testing.T) {
	prefs := &stubPrefs{}
	emb := &stubEmbedder{}
	idx := &stubSearcher{matches: cocktailMatches(8, 0.8)}
	gen := &stubGenerator{answer: "Here are some cocktails!"}
	r := newTestResponder(prefs, emb, idx, gen, false)

	answer, sources := r.ProcessQuery(context.Background(), "alice", "show me 3 cocktails with rum")

	if answer != "Here are some cocktails!" {
		t.Errorf("unexpected answer: %q", answer)
	}
	// Fixed clamp: min(10, max(1, 3)) = 3.
	if len(sources) != 3 {
		t.Errorf("expected 3 sources, got %d", len(sources))
	}
	if prefs.saveCalls != 1 {
		t.Errorf("expected one save attempt, got %d", prefs.saveCalls)
	}
	if idx.topK != retrieveLimit {
		t.Errorf("expected retrieval topK %d, got %d", retrieveLimit, idx.topK)
	}
	if gen.system != bartenderSystemPrompt {
		t.Errorf("unexpected system prompt: %q", gen.system)
	}
}

func TestProcessQuery_LegacyClamp(t *testing.T) {
	idx := &stubSearcher{matches: cocktailMatches(10, 0.8)}
	r := newTestResponder(&stubPrefs{}, &stubEmbedder{}, idx, &stubGenerator{answer: "ok"}, true)

	// Historical clamp max(1, max(10, 3)) forces 3 up to 10.
	_, sources := r.ProcessQuery(context.Background(), "alice", "show me 3 cocktails")
	if len(sources) != 10 {
		t.Errorf("expected legacy clamp to keep 10 sources, got %d", len(sources))
	}
}

func TestRequestedLimit(t *testing.T) {
	fixed := newTestResponder(&stubPrefs{}, &stubEmbedder{}, &stubSearcher{}, &stubGenerator{}, false)
	legacy := newTestResponder(&stubPrefs{}, &stubEmbedder{}, &stubSearcher{}, &stubGenerator{}, true)

	cases := []struct {
		query  string
		fixed  int
		legacy int
	}{
		{"what pairs with rum?", 5, 5},    // no count: default
		{"show me 3 cocktails", 3, 10},    // legacy forces ≤10 up to 10
		{"give me 1 cocktail", 1, 10},     // legacy has no real floor of 1
		{"list 15 drinks", 10, 15},        // fixed caps at 10, legacy passes through
		{"find 0 drinks", 1, 10},          // fixed floors at 1
		{"recommend me 7 cocktails", 7, 10},
	}
	for _, tc := range cases {
		if got := fixed.requestedLimit(tc.query); got != tc.fixed {
			t.Errorf("fixed clamp for %q: expected %d, got %d", tc.query, tc.fixed, got)
		}
		if got := legacy.requestedLimit(tc.query); got != tc.legacy {
			t.Errorf("legacy clamp for %q: expected %d, got %d", tc.query, tc.legacy, got)
		}
	}
}

func TestProcessQuery_ScoreThreshold(t *testing.T) {
	matches := append(cocktailMatches(2, 0.8), cocktailMatches(3, 0.1)...)
	idx := &stubSearcher{matches: matches}
	r := newTestResponder(&stubPrefs{}, &stubEmbedder{}, idx, &stubGenerator{answer: "ok"}, false)

	_, sources := r.ProcessQuery(context.Background(), "alice", "what pairs with rum?")
	if len(sources) != 2 {
		t.Errorf("expected low-score matches dropped, got %d sources", len(sources))
	}
}

func TestProcessQuery_RetrievalFailure(t *testing.T) {
	idx := &stubSearcher{err: fmt.Errorf("index down")}
	gen := &stubGenerator{answer: "I don't have that information about that"}
	r := newTestResponder(&stubPrefs{}, &stubEmbedder{}, idx, gen, false)

	answer, sources := r.ProcessQuery(context.Background(), "alice", "what pairs with rum?")
	if answer == "" {
		t.Error("expected a non-empty answer despite retrieval failure")
	}
	if len(sources) != 0 {
		t.Errorf("expected no sources, got %d", len(sources))
	}
	// Generation still ran, with an empty context block.
	if gen.prompt == "" {
		t.Error("expected generation to be attempted")
	}
}

func TestProcessQuery_GenerationFailure(t *testing.T) {
	idx := &stubSearcher{matches: cocktailMatches(4, 0.8)}
	gen := &stubGenerator{err: fmt.Errorf("model unavailable")}
	r := newTestResponder(&stubPrefs{}, &stubEmbedder{}, idx, gen, false)

	answer, sources := r.ProcessQuery(context.Background(), "alice", "what pairs with rum?")
	if answer != generationApology {
		t.Errorf("expected fixed apology, got %q", answer)
	}
	if len(sources) != 4 {
		t.Errorf("expected gathered sources kept, got %d", len(sources))
	}
}

func TestProcessQuery_PanicRecovered(t *testing.T) {
	r := newTestResponder(&stubPrefs{panicking: true}, &stubEmbedder{}, &stubSearcher{}, &stubGenerator{}, false)

	answer, sources := r.ProcessQuery(context.Background(), "alice", "anything")
	if answer != genericApology {
		t.Errorf("expected generic apology, got %q", answer)
	}
	if len(sources) != 0 {
		t.Errorf("expected no sources, got %d", len(sources))
	}
}

func TestProcessQuery_PromptContents(t *testing.T) {
	prefs := &stubPrefs{prefs: memory.PreferenceSet{
		FavoriteIngredients: []string{"gin", "lime"},
		FavoriteCocktails:   []string{"Negroni"},
	}}
	emb := &stubEmbedder{}
	idx := &stubSearcher{matches: cocktailMatches(2, 0.8)}
	gen := &stubGenerator{answer: "ok"}
	r := newTestResponder(prefs, emb, idx, gen, false)

	r.ProcessQuery(context.Background(), "alice", "suggest a drink")

	if !strings.Contains(gen.prompt, "suggest a drink") {
		t.Error("expected literal query in prompt")
	}
	if !strings.Contains(gen.prompt, "gin, lime") {
		t.Error("expected ingredients in prompt")
	}
	if !strings.Contains(gen.prompt, "Negroni") {
		t.Error("expected cocktails in prompt")
	}
	if !strings.Contains(gen.prompt, "Cocktail 1") {
		t.Error("expected retrieved context in prompt")
	}
	// Retrieval ran against the preference-enhanced query.
	if !strings.Contains(emb.last, "with gin, lime") {
		t.Errorf("expected enhanced query embedded, got %q", emb.last)
	}
}

func TestProcessQuery_NoPreferencesPlaceholder(t *testing.T) {
	gen := &stubGenerator{answer: "ok"}
	r := newTestResponder(&stubPrefs{}, &stubEmbedder{}, &stubSearcher{}, gen, false)

	r.ProcessQuery(context.Background(), "alice", "what pairs with rum?")

	if strings.Count(gen.prompt, noPreferences) != 2 {
		t.Errorf("expected placeholder for both preference lists, prompt: %q", gen.prompt)
	}
}

func TestRenderContext_SingularHeader(t *testing.T) {
	ctx := renderContext(1, cocktailMatches(1, 0.8))
	if !strings.Contains(ctx, "here is a relevant cocktail") {
		t.Errorf("expected singular header, got %q", ctx)
	}

	ctx = renderContext(5, cocktailMatches(2, 0.8))
	if !strings.Contains(ctx, "here are 5 relevant cocktails") {
		t.Errorf("expected plural header with requested count, got %q", ctx)
	}
	if !strings.Contains(ctx, "1. Cocktail 1") || !strings.Contains(ctx, "2. Cocktail 2") {
		t.Errorf("expected numbered entries, got %q", ctx)
	}
}

func TestRenderMetadata(t *testing.T) {
	structured := renderMetadata(map[string]any{
		"name":         "Mojito",
		"category":     "Classic",
		"alcoholic":    "Alcoholic",
		"ingredients":  []any{"rum", "mint", "lime"},
		"instructions": "Muddle and serve.",
	})
	for _, want := range []string{"Mojito", "Category: Classic", "Ingredients: rum, mint, lime", "Instructions: Muddle and serve."} {
		if !strings.Contains(structured, want) {
			t.Errorf("expected %q in structured rendering, got %q", want, structured)
		}
	}

	if got := renderMetadata(map[string]any{"text": "raw record text"}); got != "raw record text" {
		t.Errorf("expected raw text fallback, got %q", got)
	}

	if got := renderMetadata(nil); got != "No information available" {
		t.Errorf("expected placeholder for empty metadata, got %q", got)
	}

	jsonish := renderMetadata(map[string]any{"garnish": "olive"})
	if !strings.Contains(jsonish, "olive") {
		t.Errorf("expected JSON fallback to include values, got %q", jsonish)
	}
}
