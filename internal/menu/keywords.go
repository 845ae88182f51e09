package menu

import "github.com/vbonduro/mensabot/internal/domain"

// cafeteriaKeywords are lower-case substrings that identify a cafeteria in
// OCR text. Matching walks domain.Cafeterias() so the first cafeteria in
// enumeration order wins.
var cafeteriaKeywords = map[domain.Cafeteria][]string{
	domain.PrincipeAmedeo:  {"principe amedeo", "central", "centro", "via principe"},
	domain.Castelfidardo:   {"castelfidardo", "castel", "politecnico", "politecnico castelfidardo"},
	domain.PaoloBorsellino: {"borsellino", "sobrero", "paolo borsellino"},
	domain.Perrone:         {"perrone", "novara", "corso duca", "corso"},
}

var mealKeywords = map[domain.MealType][]string{
	domain.Pranzo: {"pranzo", "lunch", "mezzogiorno"},
	domain.Cena:   {"cena", "dinner", "sera"},
}

// sectionHeaders detect section boundaries. Order matters: primi is tried
// before secondi so "primo" never shadows a secondi header.
var sectionHeaders = map[domain.Section][]string{
	domain.Primi:    {"primi piatti", "primi", "primo piatto", "primo"},
	domain.Secondi:  {"secondi piatti", "secondi", "secondo piatto", "secondo"},
	domain.Contorni: {"contorni", "contorno"},
	domain.Dessert:  {"dessert", "dolci", "frutta", "dolce"},
}

// foodVocabulary lists dishes commonly seen in each section. Parsing does not
// use it; it is kept so the keyword tables describe the whole menu domain.
var foodVocabulary = map[domain.Section][]string{
	domain.Primi: {
		"pasta", "risotto", "zuppa", "minestra", "gnocchi", "lasagne", "cannelloni",
		"spaghetti", "gazpacho", "riso", "ravioli",
	},
	domain.Secondi: {
		"pollo", "tacchino", "manzo", "maiale", "vitello", "pesce", "tonno",
		"merluzzo", "brie", "formaggio", "uova", "frittata", "arrosto", "spezzatino",
	},
	domain.Contorni: {
		"insalata", "patate", "verdure", "carote", "zucchine", "broccoli",
		"spinaci", "bietole", "zucca", "fagiolini",
	},
	domain.Dessert: {
		"torta", "gelato", "budino", "yogurt", "crostata", "frutta", "mela",
		"pera", "arancia", "banana", "cioccolato",
	},
}

// menuIndicators mark text that is a menu even when no cafeteria is named.
var menuIndicators = []string{"primi piatti", "secondi piatti", "contorni", "menù", "pranzo", "cena"}

// headerToken marks the "Mensa X" title line of a story.
const headerToken = "mensa"

// headerScanLines bounds how far down the text the title line is searched.
const headerScanLines = 3

// boilerplate lines never carry a dish.
var boilerplate = []string{"mensa", "menù", "menu", "data", "edisu", "piemonte"}

// CafeteriaKeywords returns the alias keywords for c.
func CafeteriaKeywords(c domain.Cafeteria) []string {
	return append([]string(nil), cafeteriaKeywords[c]...)
}

// Vocabulary returns the reference dish words for s.
func Vocabulary(s domain.Section) []string {
	return append([]string(nil), foodVocabulary[s]...)
}

// MenuIndicators returns the generic menu keywords.
func MenuIndicators() []string {
	return append([]string(nil), menuIndicators...)
}
