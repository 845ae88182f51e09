package story

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vbonduro/mensabot/internal/domain"
)

var rome = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		return time.FixedZone("CEST", 2*60*60)
	}
	return loc
}()

// now is 08:00 on 14 October 2026 in Rome.
var now = time.Date(2026, time.October, 14, 8, 0, 0, 0, rome)

func at(t time.Time) *time.Time { return &t }

func newTestFilter(texts map[string]string) (*Filter, *int) {
	calls := 0
	text := func(_ context.Context, s domain.Story) string {
		calls++
		return texts[s.ID]
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewFilter(text, func() time.Time { return now }, rome, logger), &calls
}

func ids(stories []domain.Story) []string {
	out := make([]string, 0, len(stories))
	for _, s := range stories {
		out = append(out, s.ID)
	}
	return out
}

func TestFilterCurrentDay(t *testing.T) {
	yesterdayEvening := time.Date(2026, time.October, 13, 21, 45, 0, 0, rome)
	texts := map[string]string{
		"y-dated":     "Mensa Perrone\nMenù pranzo 14/10/2026\nPrimi piatti\nGnocchi",
		"y-token":     "Primi piatti 14 - 10\nGnocchi",
		"y-month":     "Menù del 14 Ottobre\nPrimi piatti",
		"y-nodate":    "Mensa Perrone\nPrimi piatti\nGnocchi",
		"y-notmenu":   "Auguri 14/10/2026",
		"y-otherdate": "Menù pranzo 13/10/2026",
		"today-any":   "buongiorno",
	}
	stories := []domain.Story{
		{ID: "no-ts"},
		{ID: "today-any", TakenAt: at(time.Date(2026, time.October, 14, 0, 5, 0, 0, rome))},
		{ID: "y-dated", TakenAt: at(yesterdayEvening)},
		{ID: "y-token", TakenAt: at(yesterdayEvening)},
		{ID: "y-month", TakenAt: at(yesterdayEvening)},
		{ID: "y-nodate", TakenAt: at(yesterdayEvening)},
		{ID: "y-notmenu", TakenAt: at(yesterdayEvening)},
		{ID: "y-otherdate", TakenAt: at(yesterdayEvening)},
		{ID: "old", TakenAt: at(time.Date(2026, time.October, 12, 12, 0, 0, 0, rome))},
	}

	f, calls := newTestFilter(texts)
	got := f.FilterCurrentDay(context.Background(), stories)

	assert.Equal(t, []string{"no-ts", "today-any", "y-dated", "y-token", "y-month"}, ids(got))
	assert.Equal(t, 6, *calls, "only yesterday's stories are read eagerly")
}

func TestFilterUsesLocalDateNotUTC(t *testing.T) {
	// 23:30 UTC on the 13th is already the 14th in Rome.
	s := domain.Story{ID: "late", TakenAt: at(time.Date(2026, time.October, 13, 23, 30, 0, 0, time.UTC))}
	f, calls := newTestFilter(nil)

	got := f.FilterCurrentDay(context.Background(), []domain.Story{s})
	assert.Equal(t, []string{"late"}, ids(got))
	assert.Zero(t, *calls)
}

func TestFilterEmpty(t *testing.T) {
	f, _ := newTestFilter(nil)
	assert.Empty(t, f.FilterCurrentDay(context.Background(), nil))
}

func TestMentionsDate(t *testing.T) {
	day := time.Date(2026, time.October, 4, 0, 0, 0, 0, rome)
	tests := []struct {
		text string
		want bool
	}{
		{"menu del 04/10/2026", true},
		{"menu del 4/10/2026", true},
		{"menu del 04-10-2026", true},
		{"menu del 04.10.2026", true},
		{"menu del 4/10", true},
		{"4 ottobre", true},
		{"sabato 04 ottobre", true},
		{"14 ottobre", false},
		{"14/10/2026", false},
		{"nessuna data", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, MentionsDate(tt.text, day))
		})
	}
}
