package menu

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/vbonduro/mensabot/internal/domain"
)

// minDishRunes drops OCR noise; shorter lines are never dishes.
const minDishRunes = 4

var parsedSections = []domain.Section{domain.Primi, domain.Secondi, domain.Contorni}

var dessertLines = []string{"Frutta fresca", "Dessert del giorno"}

// Format renders classified OCR text as a chat-ready menu for day.
//
// The cafeteria and meal are not printed (the chat layer shows them) but are
// accepted so callers pass the full classification. Dessert is never read
// from the source: the fixed dessert block is always appended.
func Format(raw string, _ domain.Cafeteria, _ domain.MealType, day time.Time) string {
	dishes := parseSections(raw)

	out := []string{"*" + day.Format("02/01/2006") + "*", ""}
	for _, s := range parsedSections {
		if len(dishes[s]) == 0 {
			continue
		}
		out = append(out, sectionHeader(s))
		for _, d := range dishes[s] {
			out = append(out, "• "+sentenceCase(d))
		}
		out = append(out, "")
	}

	out = append(out, sectionHeader(domain.Dessert))
	for _, d := range dessertLines {
		out = append(out, "• "+d)
	}
	return strings.Join(out, "\n")
}

// parseSections walks the lines with a small state machine. A header line
// switches the current section and is itself discarded.
func parseSections(raw string) map[domain.Section][]string {
	dishes := make(map[domain.Section][]string, len(parsedSections))
	var current domain.Section

	for _, line := range nonEmptyLines(raw) {
		lower := strings.ToLower(line)
		if containsAny(lower, boilerplate) {
			continue
		}
		if s, ok := matchSectionHeader(lower); ok {
			current = s
			continue
		}
		if !isParsed(current) || utf8.RuneCountInString(line) < minDishRunes {
			continue
		}
		dishes[current] = append(dishes[current], line)
	}
	return dishes
}

func matchSectionHeader(lower string) (domain.Section, bool) {
	for _, s := range domain.Sections() {
		if containsAny(lower, sectionHeaders[s]) {
			return s, true
		}
	}
	return "", false
}

func isParsed(s domain.Section) bool {
	for _, p := range parsedSections {
		if p == s {
			return true
		}
	}
	return false
}

func sectionHeader(s domain.Section) string {
	return s.Emoji() + " *" + s.Label() + "* " + s.Emoji()
}

func sentenceCase(s string) string {
	s = strings.ToLower(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
