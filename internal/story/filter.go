// Package story selects which of the fetched stories describe today's menu.
package story

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vbonduro/mensabot/internal/domain"
	"github.com/vbonduro/mensabot/internal/menu"
)

// TextFunc returns the OCR text of a story, or "" when none could be read.
type TextFunc func(ctx context.Context, s domain.Story) string

var italianMonths = [...]string{
	"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
	"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre",
}

var dateToken = regexp.MustCompile(`\b(\d{1,2})\s*[/.\-]\s*(\d{1,2})\b`)

// Filter keeps stories posted today, plus stories posted yesterday whose
// text shows they are really today's menu. Uploads often happen the evening
// before, so the upload timestamp alone is not enough.
type Filter struct {
	text   TextFunc
	now    func() time.Time
	loc    *time.Location
	logger *slog.Logger
}

// NewFilter builds a Filter. A nil loc means time.Local.
func NewFilter(text TextFunc, now func() time.Time, loc *time.Location, logger *slog.Logger) *Filter {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Filter{text: text, now: now, loc: loc, logger: logger}
}

// FilterCurrentDay returns the relevant stories in their original order.
// Stories without a timestamp are always kept.
func (f *Filter) FilterCurrentDay(ctx context.Context, stories []domain.Story) []domain.Story {
	today := f.now().In(f.loc)
	yesterday := today.AddDate(0, 0, -1)

	var kept []domain.Story
	for _, s := range stories {
		switch {
		case s.TakenAt == nil:
			f.logger.Debug("keeping story without timestamp", "story_id", s.ID)
			kept = append(kept, s)
		case sameDay(s.TakenAt.In(f.loc), today):
			kept = append(kept, s)
		case sameDay(s.TakenAt.In(f.loc), yesterday):
			if f.referencesToday(ctx, s, today) {
				f.logger.Info("keeping yesterday's story that references today", "story_id", s.ID)
				kept = append(kept, s)
			} else {
				f.logger.Debug("dropping yesterday's story", "story_id", s.ID)
			}
		default:
			f.logger.Debug("dropping old story", "story_id", s.ID, "taken_at", s.TakenAt)
		}
	}
	return kept
}

func (f *Filter) referencesToday(ctx context.Context, s domain.Story, today time.Time) bool {
	if f.text == nil {
		return false
	}
	text := strings.ToLower(f.text(ctx, s))
	if text == "" || !menu.LooksLikeMenu(text) {
		return false
	}
	return MentionsDate(text, today)
}

// MentionsDate reports whether text contains day in one of the usual Italian
// renderings, or any d/m token with the same day and month.
func MentionsDate(text string, day time.Time) bool {
	text = strings.ToLower(text)
	for _, v := range dateVariants(day) {
		if strings.Contains(text, v) {
			return true
		}
	}
	if monthDay(day).MatchString(text) {
		return true
	}
	for _, m := range dateToken.FindAllStringSubmatch(text, -1) {
		d, derr := strconv.Atoi(m[1])
		mo, merr := strconv.Atoi(m[2])
		if derr == nil && merr == nil && d == day.Day() && mo == int(day.Month()) {
			return true
		}
	}
	return false
}

// dateVariants are zero-padded so a shorter day never matches inside a
// longer one; unpadded forms are covered by dateToken.
func dateVariants(day time.Time) []string {
	d, m, y := day.Day(), int(day.Month()), day.Year()
	return []string{
		fmt.Sprintf("%02d/%02d/%d", d, m, y),
		fmt.Sprintf("%02d-%02d-%d", d, m, y),
		fmt.Sprintf("%02d.%02d.%d", d, m, y),
		fmt.Sprintf("%02d/%02d", d, m),
	}
}

// monthDay matches "14 ottobre", "4 ottobre" or "04 ottobre".
func monthDay(day time.Time) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(^|[^0-9])0?%d\s+%s`, day.Day(), italianMonths[day.Month()-1]))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
