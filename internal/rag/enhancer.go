package rag

import (
	"strings"

	"github.com/hautbar/barkeep/internal/memory"
)

// informationalMarkers identify questions that must not be biased by
// personal taste.
var informationalMarkers = []string{"how to", "what is", "explain", "history", "define"}

// recommendationMarkers gate cocktail injection to recommendation intent.
var recommendationMarkers = []string{"recommend", "suggest", "like", "similar", "enjoy"}

// EnhanceQuery rewrites a raw query into a retrieval query biased by known
// preferences. Informational questions pass through untouched, as do queries
// that already mention a known favorite.
func EnhanceQuery(query string, prefs memory.PreferenceSet) string {
	lower := strings.ToLower(query)
	if containsAny(lower, informationalMarkers) {
		return query
	}
	if prefs.IsEmpty() {
		return query
	}

	enhanced := query

	if len(prefs.FavoriteIngredients) > 0 && !mentionsAny(lower, prefs.FavoriteIngredients) {
		// Top 3 only, to avoid diluting the query.
		enhanced += " with " + strings.Join(firstN(prefs.FavoriteIngredients, 3), ", ")
	}

	if len(prefs.FavoriteCocktails) > 0 && !mentionsAny(lower, prefs.FavoriteCocktails) &&
		containsAny(lower, recommendationMarkers) {
		enhanced += " similar to " + strings.Join(firstN(prefs.FavoriteCocktails, 2), ", ")
	}

	return enhanced
}

func containsAny(lower string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func mentionsAny(lower string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
