package memory

import (
	"encoding/json"
	"strings"
)

// PreferenceSet is the deduplicated aggregate of a user's stated favorite
// ingredients and cocktails. The zero value is the empty set.
type PreferenceSet struct {
	FavoriteIngredients []string `json:"favorite_ingredients"`
	FavoriteCocktails   []string `json:"favorite_cocktails"`
}

func (p PreferenceSet) IsEmpty() bool {
	return len(p.FavoriteIngredients) == 0 && len(p.FavoriteCocktails) == 0
}

// Union merges other into p with set semantics. Neither list ever shrinks.
func (p *PreferenceSet) Union(other PreferenceSet) {
	p.FavoriteIngredients = unionStrings(p.FavoriteIngredients, other.FavoriteIngredients)
	p.FavoriteCocktails = unionStrings(p.FavoriteCocktails, other.FavoriteCocktails)
}

func unionStrings(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, s := range base {
		seen[s] = struct{}{}
	}
	for _, s := range extra {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			base = append(base, s)
		}
	}
	return base
}

// parsePreferences recovers a PreferenceSet from raw model output. Model
// output is unreliable: the JSON object may be wrapped in prose, keys may be
// missing, and values may have the wrong shape. The second return reports
// whether a usable object was found; callers map failure to the empty set.
func parsePreferences(raw string) (PreferenceSet, bool) {
	// Greedy brace match: first '{' through last '}'.
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return PreferenceSet{}, false
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &decoded); err != nil {
		return PreferenceSet{}, false
	}

	return PreferenceSet{
		FavoriteIngredients: stringList(decoded["favorite_ingredients"]),
		FavoriteCocktails:   stringList(decoded["favorite_cocktails"]),
	}, true
}

// stringList coerces a decoded JSON value into a string slice. Missing keys
// and wrong-shaped values become empty; non-string elements are dropped.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
