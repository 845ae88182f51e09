package domain

import (
	"fmt"
	"strings"
)

// Cafeteria is the canonical name of one of the tracked dining halls.
type Cafeteria string

const (
	PrincipeAmedeo  Cafeteria = "Principe Amedeo"
	Castelfidardo   Cafeteria = "Castelfidardo"
	PaoloBorsellino Cafeteria = "Paolo Borsellino"
	Perrone         Cafeteria = "Perrone"
)

var cafeterias = []Cafeteria{PrincipeAmedeo, Castelfidardo, PaoloBorsellino, Perrone}

// legacyNames maps names used by older releases to their canonical cafeteria.
var legacyNames = map[string]Cafeteria{
	"Central":    PrincipeAmedeo,
	"Sobrero":    PaoloBorsellino,
	"Corso Duca": Perrone,
}

// Cafeterias returns the canonical cafeterias in enumeration order.
func Cafeterias() []Cafeteria {
	out := make([]Cafeteria, len(cafeterias))
	copy(out, cafeterias)
	return out
}

// LegacyNames returns a copy of the legacy name mapping.
func LegacyNames() map[string]Cafeteria {
	out := make(map[string]Cafeteria, len(legacyNames))
	for k, v := range legacyNames {
		out[k] = v
	}
	return out
}

// ResolveCafeteria maps a user-supplied name (canonical, legacy, or any
// casing of either) to its canonical cafeteria.
func ResolveCafeteria(name string) (Cafeteria, bool) {
	name = strings.TrimSpace(name)
	if c, ok := legacyNames[name]; ok {
		return c, true
	}
	for _, c := range cafeterias {
		if strings.EqualFold(string(c), name) {
			return c, true
		}
	}
	for legacy, c := range legacyNames {
		if strings.EqualFold(legacy, name) {
			return c, true
		}
	}
	return "", false
}

// DisplayName is the label shown on chat buttons.
func (c Cafeteria) DisplayName() string {
	if c == Perrone {
		return "Perrone (Novara)"
	}
	return string(c)
}

// MealType is either lunch (pranzo) or dinner (cena).
type MealType string

const (
	Pranzo MealType = "pranzo"
	Cena   MealType = "cena"
)

// DefaultMealType is used when no meal keyword is recognised.
const DefaultMealType = Pranzo

var mealTypes = []MealType{Pranzo, Cena}

// MealTypes returns the meal types in display order.
func MealTypes() []MealType {
	return []MealType{mealTypes[0], mealTypes[1]}
}

// ParseMealType accepts "pranzo" or "cena" in any case.
func ParseMealType(s string) (MealType, bool) {
	switch MealType(strings.ToLower(strings.TrimSpace(s))) {
	case Pranzo:
		return Pranzo, true
	case Cena:
		return Cena, true
	}
	return "", false
}

// Title returns "Pranzo" or "Cena".
func (m MealType) Title() string {
	if m == "" {
		return ""
	}
	return strings.ToUpper(string(m[:1])) + string(m[1:])
}

// Menu sentinels. Every cell of a MenuTable holds either a formatted menu,
// a placeholder, or one of these.
const (
	NoMenuToday      = "No menu posted today"
	MenuNotAvailable = "Menu not available for this cafeteria/meal"
)

// NotAvailable is the initial value of a cell before anything is fetched.
func NotAvailable(m MealType) string {
	return fmt.Sprintf("Menu %s not available", m)
}

// FetchError is the cell content used when the whole pipeline fails.
func FetchError(m MealType, err error) string {
	return fmt.Sprintf("Error fetching %s menu: %v", m, err)
}

// IsUnavailable reports whether a cell holds no real content.
func IsUnavailable(menu string) bool {
	return strings.Contains(menu, "not available") || strings.Contains(menu, "Error")
}

// MenuTable maps cafeteria then meal type to the menu text.
type MenuTable map[Cafeteria]map[MealType]string

// NewMenuTable builds a complete table, asking fill for each cell.
func NewMenuTable(fill func(Cafeteria, MealType) string) MenuTable {
	t := make(MenuTable, len(cafeterias))
	for _, c := range cafeterias {
		t[c] = make(map[MealType]string, len(mealTypes))
		for _, m := range mealTypes {
			t[c][m] = fill(c, m)
		}
	}
	return t
}

// Get returns a cell and whether it exists.
func (t MenuTable) Get(c Cafeteria, m MealType) (string, bool) {
	meals, ok := t[c]
	if !ok {
		return "", false
	}
	v, ok := meals[m]
	return v, ok
}

// Set writes a cell, creating the inner map when needed.
func (t MenuTable) Set(c Cafeteria, m MealType, menu string) {
	if t[c] == nil {
		t[c] = make(map[MealType]string, len(mealTypes))
	}
	t[c][m] = menu
}

// Clone returns a deep copy.
func (t MenuTable) Clone() MenuTable {
	out := make(MenuTable, len(t))
	for c, meals := range t {
		out[c] = make(map[MealType]string, len(meals))
		for m, v := range meals {
			out[c][m] = v
		}
	}
	return out
}

// Complete reports whether every canonical cafeteria has a non-empty value
// for both meal types.
func (t MenuTable) Complete() bool {
	for _, c := range cafeterias {
		for _, m := range mealTypes {
			if v, ok := t.Get(c, m); !ok || v == "" {
				return false
			}
		}
	}
	return true
}

// HasExtracted reports whether at least one cell holds real content.
func (t MenuTable) HasExtracted() bool {
	for _, meals := range t {
		for _, v := range meals {
			if v != "" && !IsUnavailable(v) {
				return true
			}
		}
	}
	return false
}

// ActiveMenus counts the cells that are not marked "not available".
func (t MenuTable) ActiveMenus() int {
	n := 0
	for _, meals := range t {
		for _, v := range meals {
			if v != "" && !strings.Contains(v, "not available") {
				n++
			}
		}
	}
	return n
}
