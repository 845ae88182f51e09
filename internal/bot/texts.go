package bot

import (
	"fmt"

	"github.com/vbonduro/mensabot/internal/domain"
)

const (
	welcomeText = "Benvenuto nel Bot Mensa Polito!\n\n" +
		"Questo bot ti permette di consultare i menù delle mense " +
		"universitarie di Polito. Seleziona un'opzione:"

	helpText = "Usa i pulsanti qui sotto per interagire con il bot:\n\n" +
		"• *Menù Pranzo* - Visualizza i menù di pranzo\n" +
		"• *Menù Cena* - Visualizza i menù di cena\n" +
		"• *Tutti i menù* - Visualizza tutti i menù disponibili\n" +
		"• *Aggiorna menù* - Forza l'aggiornamento dei menù odierni\n\n" +
		"Dopo aver scelto pranzo o cena, potrai selezionare la mensa specifica."

	mainMenuText      = "Menu principale del Bot Mensa Polito.\nSeleziona un'opzione:"
	chooseAllMenuText = "Seleziona quale tipo di menù vuoi visualizzare:"

	updatingText      = "Aggiornamento dei menù in corso... Attendere prego."
	updatedText       = "I menù sono stati aggiornati con successo!"
	noLocalOCRNote    = "\n\n⚠️ *Nota*: Tesseract OCR non è installato, quindi vengono mostrati menù generici. Per estrarre i menù reali, installa Tesseract OCR."
	updateFailedText  = "Aggiornamento non riuscito. Riprova più tardi."
	updateErrorText   = "Si è verificato un errore durante l'aggiornamento dei menù. Riprova più tardi."
	unknownActionText = "Azione non riconosciuta."
)

// Callback data.
const (
	cbMeal       = "meal_"
	cbMenu       = "menu_"
	cbAll        = "all_"
	cbAllMenus   = "all_menus"
	cbUpdate     = "update_menus"
	cbHelp       = "help"
	cbBackToMain = "back_to_main"
)

func chooseCafeteriaText(m domain.MealType) string {
	return fmt.Sprintf("Seleziona una mensa per visualizzare il menù di *%s*:", m.Title())
}

func noMenuText(m domain.MealType) string {
	return fmt.Sprintf("*Nessun menù di %s disponibile oggi.*\n\nRiprova più tardi o aggiorna i menù.", m.Title())
}

func menuText(c domain.Cafeteria, m domain.MealType, menu string) string {
	return fmt.Sprintf("*Menù %s - %s*\n\n%s", m.Title(), c, menu)
}

func allMenusText(m domain.MealType) string {
	return fmt.Sprintf("Ecco i menù di %s per tutte le mense:", m.Title())
}
