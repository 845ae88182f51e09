package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCafeteria(t *testing.T) {
	tests := []struct {
		in   string
		want Cafeteria
		ok   bool
	}{
		{"Principe Amedeo", PrincipeAmedeo, true},
		{"castelfidardo", Castelfidardo, true},
		{"  Perrone ", Perrone, true},
		{"Central", PrincipeAmedeo, true},
		{"sobrero", PaoloBorsellino, true},
		{"Corso Duca", Perrone, true},
		{"Mirafiori", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ResolveCafeteria(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCafeteriasOrderAndCopy(t *testing.T) {
	got := Cafeterias()
	require.Len(t, got, 4)
	assert.Equal(t, []Cafeteria{PrincipeAmedeo, Castelfidardo, PaoloBorsellino, Perrone}, got)

	got[0] = "mutated"
	assert.Equal(t, PrincipeAmedeo, Cafeterias()[0])
}

func TestMealType(t *testing.T) {
	assert.Equal(t, []MealType{Pranzo, Cena}, MealTypes())
	assert.Equal(t, "Pranzo", Pranzo.Title())
	assert.Equal(t, "Cena", Cena.Title())

	m, ok := ParseMealType("CENA")
	assert.True(t, ok)
	assert.Equal(t, Cena, m)

	_, ok = ParseMealType("colazione")
	assert.False(t, ok)
}

func TestMenuTableHelpers(t *testing.T) {
	table := NewMenuTable(func(_ Cafeteria, m MealType) string { return NotAvailable(m) })
	assert.True(t, table.Complete())
	assert.False(t, table.HasExtracted())
	assert.Equal(t, 0, table.ActiveMenus())

	v, ok := table.Get(Perrone, Cena)
	require.True(t, ok)
	assert.Equal(t, "Menu cena not available", v)

	clone := table.Clone()
	clone.Set(Perrone, Cena, "real menu")
	assert.True(t, clone.HasExtracted())
	assert.Equal(t, 1, clone.ActiveMenus())
	assert.False(t, table.HasExtracted(), "clone must not share cells")

	table.Set(Castelfidardo, Pranzo, FetchError(Pranzo, errors.New("boom")))
	assert.False(t, table.HasExtracted())
	assert.Equal(t, 1, table.ActiveMenus())

	delete(table, Perrone)
	assert.False(t, table.Complete())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Perrone (Novara)", Perrone.DisplayName())
	assert.Equal(t, "Castelfidardo", Castelfidardo.DisplayName())
}
