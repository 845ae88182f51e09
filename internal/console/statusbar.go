package console

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func renderStatusBar(active int, loggedIn, paused bool, spin string, width int) string {
	login := errorStyle.Render("offline")
	if loggedIn {
		login = okStyle.Render("online")
	}
	left := fmt.Sprintf(" instagram %s · %d menus", login, active)
	if paused {
		left += " · paused"
	}
	if spin != "" {
		left += " " + spin + " updating"
	}

	right := " help  status  update  quit "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(width).Render(bar)
}
