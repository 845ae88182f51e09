// Package menu turns OCR text into cafeteria menus: it identifies which
// cafeteria and meal a story refers to, renders the dish list, and builds
// the canned placeholders shown when nothing could be read.
package menu

import (
	"strings"

	"github.com/vbonduro/mensabot/internal/domain"
)

// IdentifyCafeteria returns the cafeteria the text belongs to.
//
// The title line ("Mensa Castelfidardo") is tried first, then any alias
// anywhere in the text. As a last resort, text that looks like a menu is
// assigned to the first cafeteria not present in assigned. The second result
// is false when the text cannot be attributed.
func IdentifyCafeteria(text string, assigned map[domain.Cafeteria]bool) (domain.Cafeteria, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	lines := nonEmptyLines(text)
	if len(lines) > headerScanLines {
		lines = lines[:headerScanLines]
	}
	for _, line := range lines {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, headerToken) {
			continue
		}
		if c, ok := matchCafeteria(lower); ok {
			return c, true
		}
	}

	lower := strings.ToLower(text)
	if c, ok := matchCafeteria(lower); ok {
		return c, true
	}

	if !containsAny(lower, menuIndicators) {
		return "", false
	}
	for _, c := range domain.Cafeterias() {
		if !assigned[c] {
			return c, true
		}
	}
	return "", false
}

// IdentifyMealType returns the first meal whose keywords appear in the text,
// or domain.DefaultMealType.
func IdentifyMealType(text string) domain.MealType {
	lower := strings.ToLower(text)
	for _, m := range domain.MealTypes() {
		if containsAny(lower, mealKeywords[m]) {
			return m
		}
	}
	return domain.DefaultMealType
}

// LooksLikeMenu reports whether the text contains any generic menu keyword.
func LooksLikeMenu(text string) bool {
	return containsAny(strings.ToLower(text), menuIndicators)
}

func matchCafeteria(lower string) (domain.Cafeteria, bool) {
	for _, c := range domain.Cafeterias() {
		if containsAny(lower, cafeteriaKeywords[c]) {
			return c, true
		}
	}
	return "", false
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
