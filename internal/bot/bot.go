// Package bot serves the daily menus over the Telegram Bot API with inline
// keyboards.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vbonduro/mensabot/internal/domain"
)

// botAPI is the subset of tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// menuService is the subset of service.MenuCache the bot uses.
type menuService interface {
	GetMenu(ctx context.Context, name string, meal domain.MealType) string
	FetchDailyMenus(ctx context.Context) domain.MenuTable
}

type ocrProbe interface {
	LocalAvailable(ctx context.Context) bool
}

type runState interface {
	SetTelegramRunning(v bool)
}

type Bot struct {
	api    botAPI
	menus  menuService
	ocr    ocrProbe
	state  runState
	logger *slog.Logger
	// pause separates the messages of an "all menus" reply.
	pause time.Duration

	wg sync.WaitGroup
}

func New(api botAPI, menus menuService, ocr ocrProbe, state runState, logger *slog.Logger) *Bot {
	return &Bot{
		api:    api,
		menus:  menus,
		ocr:    ocr,
		state:  state,
		logger: logger,
		pause:  500 * time.Millisecond,
	}
}

// NewAPI connects to Telegram with token.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}
	return api, nil
}

// Run polls for updates until ctx is done. Slow work started by handlers is
// waited for before Run returns.
func (b *Bot) Run(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Avvia il bot e mostra il menu principale"},
		tgbotapi.BotCommand{Command: "help", Description: "Mostra informazioni di aiuto"},
	)); err != nil {
		b.logger.Warn("failed to register bot commands", "error", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	if b.state != nil {
		b.state.SetTelegramRunning(true)
		defer b.state.SetTelegramRunning(false)
	}
	b.logger.Info("telegram bot started")

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("telegram bot stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil && upd.Message.IsCommand():
		b.handleCommand(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	b.logger.Info("command received", "command", msg.Command(), "user_id", userID(msg.From))
	switch msg.Command() {
	case "start":
		kb := b.mainKeyboard(ctx)
		b.send(msg.Chat.ID, welcomeText, &kb, false)
	case "help":
		kb := b.mainKeyboard(ctx)
		b.send(msg.Chat.ID, helpText, &kb, true)
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	// Answer first so the client stops its loading animation.
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", "error", err)
	}
	if q.Message == nil {
		return
	}
	chatID, msgID := q.Message.Chat.ID, q.Message.MessageID
	data := q.Data
	b.logger.Info("button pressed", "data", data, "user_id", userID(q.From))

	switch {
	case data == cbAllMenus:
		b.edit(chatID, msgID, chooseAllMenuText, AllMenusKeyboard(), false)
	case data == cbUpdate:
		b.startUpdate(ctx, chatID, msgID)
	case data == cbHelp:
		b.edit(chatID, msgID, helpText, b.mainKeyboard(ctx), true)
	case data == cbBackToMain:
		b.edit(chatID, msgID, mainMenuText, b.mainKeyboard(ctx), false)
	case strings.HasPrefix(data, cbMeal):
		b.showCafeterias(ctx, chatID, msgID, strings.TrimPrefix(data, cbMeal))
	case strings.HasPrefix(data, cbAll):
		b.startAllMenus(ctx, chatID, msgID, strings.TrimPrefix(data, cbAll))
	case strings.HasPrefix(data, cbMenu):
		b.showMenu(ctx, chatID, msgID, strings.TrimPrefix(data, cbMenu))
	default:
		b.logger.Warn("unknown callback", "data", data)
		b.edit(chatID, msgID, unknownActionText, BackKeyboard(), false)
	}
}

func (b *Bot) showCafeterias(ctx context.Context, chatID int64, msgID int, meal string) {
	m, ok := domain.ParseMealType(meal)
	if !ok {
		m = domain.DefaultMealType
	}
	table := b.table(ctx)
	if len(AvailableCafeterias(table, m)) == 0 {
		b.edit(chatID, msgID, noMenuText(m), BackKeyboard(), true)
		return
	}
	b.edit(chatID, msgID, chooseCafeteriaText(m), CafeteriaKeyboard(table, m), true)
}

// showMenu handles "{meal}_{cafeteria}". Bare cafeteria names from older
// keyboards default to pranzo.
func (b *Bot) showMenu(ctx context.Context, chatID int64, msgID int, rest string) {
	m := domain.DefaultMealType
	name := rest
	if meal, cafe, found := strings.Cut(rest, "_"); found {
		if parsed, ok := domain.ParseMealType(meal); ok {
			m, name = parsed, cafe
		}
	}
	c, ok := domain.ResolveCafeteria(name)
	if !ok {
		b.edit(chatID, msgID, domain.MenuNotAvailable, BackKeyboard(), false)
		return
	}
	b.edit(chatID, msgID, menuText(c, m, b.menus.GetMenu(ctx, string(c), m)), BackKeyboard(), true)
}

func (b *Bot) startAllMenus(ctx context.Context, chatID int64, msgID int, meal string) {
	m, ok := domain.ParseMealType(meal)
	if !ok {
		m = domain.DefaultMealType
	}
	b.edit(chatID, msgID, allMenusText(m), BackKeyboard(), false)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for i, c := range domain.Cafeterias() {
			if i > 0 && !sleep(ctx, b.pause) {
				return
			}
			b.send(chatID, b.menus.GetMenu(ctx, string(c), m), nil, true)
		}
	}()
}

// startUpdate runs the fetch off the update loop and edits the message when
// it finishes.
func (b *Bot) startUpdate(ctx context.Context, chatID int64, msgID int) {
	b.editText(chatID, msgID, updatingText)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("menu update panicked", "panic", r)
				b.edit(chatID, msgID, updateErrorText, b.mainKeyboard(ctx), false)
			}
		}()

		table := b.menus.FetchDailyMenus(ctx)
		if len(table) == 0 {
			b.logger.Warn("menu update returned empty result")
			b.edit(chatID, msgID, updateFailedText, b.mainKeyboard(ctx), false)
			return
		}
		text := updatedText
		if b.ocr != nil && !b.ocr.LocalAvailable(ctx) {
			text += noLocalOCRNote
		}
		b.logger.Info("menus updated on user request")
		b.edit(chatID, msgID, text, MainKeyboard(table), true)
	}()
}

func (b *Bot) mainKeyboard(ctx context.Context) tgbotapi.InlineKeyboardMarkup {
	return MainKeyboard(b.table(ctx))
}

// table reads every cell through the menu service, so the first access of
// the day triggers a fetch.
func (b *Bot) table(ctx context.Context) domain.MenuTable {
	return domain.NewMenuTable(func(c domain.Cafeteria, m domain.MealType) string {
		return b.menus.GetMenu(ctx, string(c), m)
	})
}

func (b *Bot) send(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup, markdown bool) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	if markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if _, err := b.api.Send(msg); err != nil {
		if !markdown {
			b.logger.Error("failed to send message", "chat_id", chatID, "error", err)
			return
		}
		// OCR text can contain stray markdown characters.
		b.logger.Warn("markdown rejected, resending as plain text", "chat_id", chatID, "error", err)
		msg.ParseMode = ""
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error("failed to send message", "chat_id", chatID, "error", err)
		}
	}
}

func (b *Bot) edit(chatID int64, msgID int, text string, markup tgbotapi.InlineKeyboardMarkup, markdown bool) {
	cfg := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text, markup)
	if markdown {
		cfg.ParseMode = tgbotapi.ModeMarkdown
	}
	if _, err := b.api.Send(cfg); err != nil {
		if !markdown {
			b.logger.Error("failed to edit message", "chat_id", chatID, "error", err)
			return
		}
		b.logger.Warn("markdown rejected, editing as plain text", "chat_id", chatID, "error", err)
		cfg.ParseMode = ""
		if _, err := b.api.Send(cfg); err != nil {
			b.logger.Error("failed to edit message", "chat_id", chatID, "error", err)
		}
	}
}

func (b *Bot) editText(chatID int64, msgID int, text string) {
	if _, err := b.api.Send(tgbotapi.NewEditMessageText(chatID, msgID, text)); err != nil {
		b.logger.Error("failed to edit message", "chat_id", chatID, "error", err)
	}
}

func userID(u *tgbotapi.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
