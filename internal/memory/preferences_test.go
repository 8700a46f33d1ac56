package memory

import (
	"testing"
)

func TestParsePreferences_Valid(t *testing.T) {
	raw := `{"favorite_ingredients": ["mint", "rum"], "favorite_cocktails": ["Mojito"]}`

	prefs, ok := parsePreferences(raw)
	if !ok {
		t.Fatal("expected successful parse")
	}
	if len(prefs.FavoriteIngredients) != 2 || prefs.FavoriteIngredients[0] != "mint" {
		t.Errorf("unexpected ingredients: %v", prefs.FavoriteIngredients)
	}
	if len(prefs.FavoriteCocktails) != 1 || prefs.FavoriteCocktails[0] != "Mojito" {
		t.Errorf("unexpected cocktails: %v", prefs.FavoriteCocktails)
	}
}

func TestParsePreferences_EmbeddedInProse(t *testing.T) {
	raw := `Sure! Here is the extraction you asked for:
{"favorite_ingredients": ["mint"], "favorite_cocktails": []}
Let me know if you need anything else.`

	prefs, ok := parsePreferences(raw)
	if !ok {
		t.Fatal("expected successful parse")
	}
	if len(prefs.FavoriteIngredients) != 1 || prefs.FavoriteIngredients[0] != "mint" {
		t.Errorf("unexpected ingredients: %v", prefs.FavoriteIngredients)
	}
	if len(prefs.FavoriteCocktails) != 0 {
		t.Errorf("expected no cocktails, got %v", prefs.FavoriteCocktails)
	}
}

func TestParsePreferences_NoJSON(t *testing.T) {
	for _, raw := range []string{"", "no braces here", "}{", "just text with } before {"} {
		if _, ok := parsePreferences(raw); ok {
			t.Errorf("expected parse failure for %q", raw)
		}
	}
}

func TestParsePreferences_InvalidJSON(t *testing.T) {
	if _, ok := parsePreferences(`{not valid json}`); ok {
		t.Error("expected parse failure for invalid JSON")
	}
}

func TestParsePreferences_NotAMapping(t *testing.T) {
	// Greedy match grabs the whole array's inner object span only if braces
	// exist; a bare array has none, so this fails at the brace scan.
	if _, ok := parsePreferences(`["mint", "rum"]`); ok {
		t.Error("expected parse failure for non-object JSON")
	}
}

func TestParsePreferences_WrongShapes(t *testing.T) {
	raw := `{"favorite_ingredients": "mint", "favorite_cocktails": {"name": "Mojito"}}`

	prefs, ok := parsePreferences(raw)
	if !ok {
		t.Fatal("expected parse to succeed with coerced shapes")
	}
	if len(prefs.FavoriteIngredients) != 0 {
		t.Errorf("expected non-array ingredients coerced to empty, got %v", prefs.FavoriteIngredients)
	}
	if len(prefs.FavoriteCocktails) != 0 {
		t.Errorf("expected non-array cocktails coerced to empty, got %v", prefs.FavoriteCocktails)
	}
}

func TestParsePreferences_MissingKeys(t *testing.T) {
	prefs, ok := parsePreferences(`{"something_else": true}`)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if len(prefs.FavoriteIngredients) != 0 || len(prefs.FavoriteCocktails) != 0 {
		t.Errorf("expected empty set for missing keys, got %+v", prefs)
	}
}

func TestParsePreferences_NonStringEntriesDropped(t *testing.T) {
	raw := `{"favorite_ingredients": ["gin", 42, null, "lime"], "favorite_cocktails": []}`

	prefs, ok := parsePreferences(raw)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if len(prefs.FavoriteIngredients) != 2 {
		t.Fatalf("expected 2 string entries, got %v", prefs.FavoriteIngredients)
	}
	if prefs.FavoriteIngredients[0] != "gin" || prefs.FavoriteIngredients[1] != "lime" {
		t.Errorf("unexpected entries: %v", prefs.FavoriteIngredients)
	}
}

func TestUnion_Deduplicates(t *testing.T) {
	p := PreferenceSet{FavoriteIngredients: []string{"gin"}, FavoriteCocktails: []string{"Negroni"}}
	p.Union(PreferenceSet{FavoriteIngredients: []string{"gin", "lime"}, FavoriteCocktails: []string{"Negroni"}})

	if len(p.FavoriteIngredients) != 2 {
		t.Errorf("expected 2 ingredients after union, got %v", p.FavoriteIngredients)
	}
	if len(p.FavoriteCocktails) != 1 {
		t.Errorf("expected 1 cocktail after union, got %v", p.FavoriteCocktails)
	}
}

func TestIsEmpty(t *testing.T) {
	var p PreferenceSet
	if !p.IsEmpty() {
		t.Error("zero value should be empty")
	}
	p.Union(PreferenceSet{FavoriteCocktails: []string{"Daiquiri"}})
	if p.IsEmpty() {
		t.Error("set with a cocktail should not be empty")
	}
}
