package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vbonduro/mensabot/internal/domain"
	"github.com/vbonduro/mensabot/internal/instagram"
	"github.com/vbonduro/mensabot/internal/menu"
	"github.com/vbonduro/mensabot/internal/session"
	"github.com/vbonduro/mensabot/internal/story"
)

// photoClient is the subset of instagram.Client that FetchService requires.
type photoClient interface {
	ResolveUserID(ctx context.Context, username string) (string, error)
	ListStories(ctx context.Context, userID string) ([]domain.Story, error)
	ListStoriesDirect(ctx context.Context, userID string) ([]domain.Story, error)
	Download(ctx context.Context, mediaURL string) ([]byte, error)
}

// loginManager is the subset of session.Manager that FetchService requires.
type loginManager interface {
	Login(ctx context.Context) bool
}

// textExtractor is the subset of ocr.Extractor that FetchService requires.
type textExtractor interface {
	ExtractText(ctx context.Context, key string, image []byte) string
	LocalAvailable(ctx context.Context) bool
	Available(ctx context.Context) bool
}

// modeSource reports whether placeholders should be served without any
// network access.
type modeSource interface {
	DemoMode() bool
}

// BetterFunc reports whether candidate should replace current in a cell.
type BetterFunc func(candidate, current string) bool

// Longer prefers the longer formatted menu.
func Longer(candidate, current string) bool {
	return len(candidate) > len(current)
}

type FetchOptions struct {
	Account        string
	FallbackUserID string
	// RequireLocalOCR serves placeholders when tesseract is missing even if a
	// cloud engine is configured.
	RequireLocalOCR bool
	Location        *time.Location
	Better          BetterFunc
	Attempts        int
	Backoff         time.Duration
	Now             func() time.Time
	Sleep           session.SleepFunc
}

func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		Account:         "edisu_piemonte",
		RequireLocalOCR: true,
		Better:          Longer,
		Attempts:        3,
		Backoff:         2 * time.Second,
	}
}

type FetchService struct {
	client photoClient
	login  loginManager
	ocr    textExtractor
	mode   modeSource
	opts   FetchOptions
	logger *slog.Logger

	mu           sync.Mutex
	cachedUserID string
}

func NewFetchService(
	client photoClient,
	login loginManager,
	ocr textExtractor,
	mode modeSource,
	opts FetchOptions,
	logger *slog.Logger,
) *FetchService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Better == nil {
		opts.Better = Longer
	}
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = session.Sleep
	}
	return &FetchService{
		client: client,
		login:  login,
		ocr:    ocr,
		mode:   mode,
		opts:   opts,
		logger: logger,
	}
}

// CachedUserID is the account id resolved by the last successful cycle.
func (s *FetchService) CachedUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cachedUserID
}

// FetchMenus runs one pipeline pass and always returns a table with both
// meals for every cafeteria. Failures are reported through the cell text.
func (s *FetchService) FetchMenus(ctx context.Context) (table domain.MenuTable) {
	day := s.opts.Now().In(s.opts.Location)
	table = domain.NewMenuTable(func(_ domain.Cafeteria, m domain.MealType) string {
		return domain.NotAvailable(m)
	})

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("menu pipeline panicked", "panic", r)
			table = errorTable(fmt.Errorf("%v", r))
		}
	}()

	if s.mode != nil && s.mode.DemoMode() {
		s.logger.Info("demo mode, serving placeholder menus")
		return menu.PlaceholderTable(day, "")
	}

	if !s.login.Login(ctx) {
		s.logger.Warn("instagram login failed, serving placeholder menus")
		return menu.PlaceholderTable(day, menu.LoginFailedNote)
	}

	userID, ok := s.resolveUserID(ctx)
	if err := ctx.Err(); err != nil {
		return errorTable(err)
	}
	if !ok {
		s.logger.Error("could not determine account id", "account", s.opts.Account)
		return table
	}

	stories, listed := s.listStories(ctx, userID)
	if err := ctx.Err(); err != nil {
		return errorTable(err)
	}
	if !listed {
		s.logger.Warn("continuing without stories", "account", s.opts.Account)
	} else if len(stories) == 0 {
		s.logger.Info("no stories posted", "account", s.opts.Account)
		return domain.NewMenuTable(func(domain.Cafeteria, domain.MealType) string {
			return domain.NoMenuToday
		})
	}

	texts := make(map[string]string, len(stories))
	textOf := func(ctx context.Context, st domain.Story) string {
		return s.storyText(ctx, st, texts)
	}
	current := story.NewFilter(textOf, s.opts.Now, s.opts.Location, s.logger).FilterCurrentDay(ctx, stories)
	s.logger.Info("stories selected", "listed", len(stories), "current", len(current))

	if !s.ocrAvailable(ctx) {
		s.logger.Warn("local ocr unavailable, serving placeholder menus")
		return menu.PlaceholderTable(day, "")
	}

	filled := make(map[domain.Cafeteria]map[domain.MealType]bool)
	assigned := make(map[domain.Cafeteria]bool)
	for _, st := range current {
		if err := ctx.Err(); err != nil {
			return errorTable(err)
		}
		text := textOf(ctx, st)
		if strings.TrimSpace(text) == "" {
			continue
		}
		cafe, ok := menu.IdentifyCafeteria(text, assigned)
		if !ok {
			s.logger.Debug("story matched no cafeteria", "story_id", st.ID)
			continue
		}
		meal := menu.IdentifyMealType(text)
		formatted := menu.Format(text, cafe, meal, day)

		if filled[cafe] == nil {
			filled[cafe] = make(map[domain.MealType]bool)
		}
		existing, _ := table.Get(cafe, meal)
		if !filled[cafe][meal] || s.opts.Better(formatted, existing) {
			table.Set(cafe, meal, formatted)
			filled[cafe][meal] = true
			s.logger.Info("menu extracted", "story_id", st.ID, "cafeteria", cafe, "meal", meal)
		}
		assigned[cafe] = true
	}

	for _, c := range domain.Cafeterias() {
		for _, m := range domain.MealTypes() {
			if !filled[c][m] {
				table.Set(c, m, menu.Placeholder(c, m, day, ""))
			}
		}
	}
	return table
}

func (s *FetchService) ocrAvailable(ctx context.Context) bool {
	if s.opts.RequireLocalOCR {
		return s.ocr.LocalAvailable(ctx)
	}
	return s.ocr.Available(ctx)
}

// storyText downloads and reads a story once per cycle.
func (s *FetchService) storyText(ctx context.Context, st domain.Story, memo map[string]string) string {
	if text, ok := memo[st.ID]; ok {
		return text
	}
	if st.ImageURL == "" {
		s.logger.Debug("story has no image", "story_id", st.ID)
		memo[st.ID] = ""
		return ""
	}
	img, err := s.client.Download(ctx, st.ImageURL)
	if err != nil {
		s.logger.Warn("failed to download story image", "story_id", st.ID, "error", err)
		memo[st.ID] = ""
		return ""
	}
	text := s.ocr.ExtractText(ctx, st.ID, img)
	memo[st.ID] = text
	return text
}

func (s *FetchService) resolveUserID(ctx context.Context) (string, bool) {
	var id string
	err := s.retry(ctx, "resolve user id", func() error {
		var err error
		id, err = s.client.ResolveUserID(ctx, s.opts.Account)
		return err
	})
	if err == nil && id != "" {
		s.mu.Lock()
		s.cachedUserID = id
		s.mu.Unlock()
		return id, true
	}
	s.logger.Warn("failed to resolve account id", "account", s.opts.Account, "error", err)

	if cached := s.CachedUserID(); cached != "" {
		s.logger.Info("using cached account id", "user_id", cached)
		return cached, true
	}
	if s.opts.FallbackUserID != "" {
		s.logger.Info("using configured account id", "user_id", s.opts.FallbackUserID)
		return s.opts.FallbackUserID, true
	}
	return "", false
}

// listStories reports false when no listing could be obtained at all. The
// fetch then goes on with zero stories and ends in placeholders, while a
// listing with no stories in it means nothing was posted today.
func (s *FetchService) listStories(ctx context.Context, userID string) ([]domain.Story, bool) {
	var stories []domain.Story
	err := s.retry(ctx, "list stories", func() error {
		var err error
		stories, err = s.client.ListStories(ctx, userID)
		return err
	})
	if err == nil {
		return stories, true
	}
	s.logger.Warn("failed to list stories, trying reels media", "user_id", userID, "error", err)

	stories, err = s.client.ListStoriesDirect(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list stories", "user_id", userID, "error", err)
		return nil, false
	}
	return stories, true
}

// retry calls fn until it succeeds, fails with something other than a decode
// error, or runs out of attempts. Backoff doubles from opts.Backoff.
func (s *FetchService) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.opts.Attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !instagram.IsDecodeError(err) || attempt == s.opts.Attempts {
			return err
		}
		delay := s.opts.Backoff << (attempt - 1)
		s.logger.Info("retrying after decode error", "op", op, "attempt", attempt, "delay", delay, "error", err)
		if serr := s.opts.Sleep(ctx, delay); serr != nil {
			return serr
		}
	}
	return err
}

func errorTable(err error) domain.MenuTable {
	return domain.NewMenuTable(func(_ domain.Cafeteria, m domain.MealType) string {
		return domain.FetchError(m, err)
	})
}
