package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vbonduro/mensabot/internal/domain"
)

// minMenuLength is the shortest text treated as a real menu.
const minMenuLength = 50

var unavailableMarkers = []string{"not available", "Error fetching"}

// MenuAvailable reports whether a cell is worth offering as a button.
func MenuAvailable(menu string) bool {
	for _, m := range unavailableMarkers {
		if strings.Contains(menu, m) {
			return false
		}
	}
	return len(strings.TrimSpace(menu)) >= minMenuLength
}

// MealAvailable reports whether any cafeteria has something for the meal.
func MealAvailable(t domain.MenuTable, m domain.MealType) bool {
	for _, c := range domain.Cafeterias() {
		menu, _ := t.Get(c, m)
		if menu != "" && !strings.Contains(menu, "not available") && !strings.Contains(menu, "Error fetching") {
			return true
		}
	}
	return false
}

// AvailableCafeterias lists, in enumeration order, the cafeterias that have a
// real menu for the meal.
func AvailableCafeterias(t domain.MenuTable, m domain.MealType) []domain.Cafeteria {
	var out []domain.Cafeteria
	for _, c := range domain.Cafeterias() {
		menu, _ := t.Get(c, m)
		if MenuAvailable(menu) {
			out = append(out, c)
		}
	}
	return out
}

func MainKeyboard(t domain.MenuTable) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	var meals []tgbotapi.InlineKeyboardButton
	if MealAvailable(t, domain.Pranzo) {
		meals = append(meals, tgbotapi.NewInlineKeyboardButtonData("🥄 Menù Pranzo", cbMeal+string(domain.Pranzo)))
	}
	if MealAvailable(t, domain.Cena) {
		meals = append(meals, tgbotapi.NewInlineKeyboardButtonData("🍽️ Menù Cena", cbMeal+string(domain.Cena)))
	}
	if len(meals) > 0 {
		rows = append(rows, meals)
	}

	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Tutti i menù", cbAllMenus),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Aggiorna menù", cbUpdate),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❓ Aiuto", cbHelp),
		),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// CafeteriaKeyboard lays out the available cafeterias two per row.
func CafeteriaKeyboard(t domain.MenuTable, m domain.MealType) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range AvailableCafeterias(t, m) {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(c.DisplayName(), cbMenu+string(m)+"_"+string(c)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, backRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func AllMenusKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🥄 Tutti i menù pranzo", cbAll+string(domain.Pranzo)),
			tgbotapi.NewInlineKeyboardButtonData("🍽️ Tutti i menù cena", cbAll+string(domain.Cena)),
		),
		backRow(),
	)
}

func BackKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(backRow())
}

func backRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("« Torna al menu principale", cbBackToMain),
	)
}
