package menu

import (
	"strings"
	"time"

	"github.com/vbonduro/mensabot/internal/domain"
)

// LoginFailedNote is appended to placeholders produced when the photo
// service could not be reached with valid credentials.
const LoginFailedNote = "⚠️ _Accesso a Instagram non riuscito: menù generico_"

const placeholderPrefix = "🍽️ *MENSA "

// placeholderDishes are the canned "primo/secondo/contorno" pairs shown when
// no real menu is available.
var placeholderDishes = map[domain.Cafeteria]map[domain.MealType][]string{
	domain.PrincipeAmedeo: {
		domain.Pranzo: {"Pasta al pomodoro/Minestra di verdure", "Petto di pollo/Frittata alle verdure", "Insalata mista/Patate al forno"},
		domain.Cena:   {"Risotto ai funghi/Pasta all'arrabbiata", "Filetto di merluzzo/Formaggio", "Verdure grigliate/Insalata"},
	},
	domain.Castelfidardo: {
		domain.Pranzo: {"Risotto con funghi/Pasta al pesto", "Pollo arrosto/Frittata di verdure", "Insalata verde/Patate arrosto"},
		domain.Cena:   {"Pasta alla carbonara/Zuppa di verdure", "Pesce grigliato/Pollo alla griglia", "Verdure al vapore/Insalata mista"},
	},
	domain.PaoloBorsellino: {
		domain.Pranzo: {"Lasagna al forno/Minestrone", "Tacchino arrosto/Polpette di carne", "Spinaci saltati/Patate fritte"},
		domain.Cena:   {"Pasta al ragù/Risotto alla milanese", "Bistecca di manzo/Formaggio misto", "Verdure grigliate/Insalata di pomodori"},
	},
	domain.Perrone: {
		domain.Pranzo: {"Penne al sugo/Riso con verdure", "Spezzatino di manzo/Frittata di patate", "Insalata mista/Carote al vapore"},
		domain.Cena:   {"Pasta al pesto/Zuppa di legumi", "Pollo alla griglia/Filetto di pesce", "Verdure al forno/Insalata verde"},
	},
}

// Placeholder renders the generic menu for a cafeteria and meal. A non-empty
// note is appended after a blank line.
func Placeholder(c domain.Cafeteria, m domain.MealType, day time.Time, note string) string {
	items, ok := placeholderDishes[c][m]
	if !ok {
		label := strings.ToUpper(string(m))
		items = []string{
			"Primo piatto (" + label + ")",
			"Secondo piatto (" + label + ")",
			"Contorno (" + label + ")",
		}
	}

	var b strings.Builder
	b.WriteString(placeholderPrefix + strings.ToUpper(string(c)) + "* 🍽️\n")
	b.WriteString("*Menù " + m.Title() + " - " + day.Format("2006-01-02") + "*\n\n")
	for _, it := range items {
		b.WriteString("• " + it + "\n")
	}
	b.WriteString("• Frutta fresca/Dessert del giorno")
	if note != "" {
		b.WriteString("\n\n" + note)
	}
	return b.String()
}

// IsPlaceholder reports whether a cell was rendered by Placeholder.
func IsPlaceholder(text string) bool {
	return strings.HasPrefix(text, placeholderPrefix)
}

// HasStoryMenus reports whether any cell holds a menu read from a story, as
// opposed to placeholders, notices and errors.
func HasStoryMenus(t domain.MenuTable) bool {
	for _, meals := range t {
		for _, v := range meals {
			if v == "" || v == domain.NoMenuToday || domain.IsUnavailable(v) || IsPlaceholder(v) {
				continue
			}
			return true
		}
	}
	return false
}

// PlaceholderTable fills every cell with its placeholder.
func PlaceholderTable(day time.Time, note string) domain.MenuTable {
	return domain.NewMenuTable(func(c domain.Cafeteria, m domain.MealType) string {
		return Placeholder(c, m, day, note)
	})
}
