package console

import "github.com/vbonduro/mensabot/internal/domain"

type fetchDoneMsg struct {
	active int
	table  domain.MenuTable
}

type historyMsg struct {
	snapshots []*domain.Snapshot
	err       error
}

// outputMsg appends lines produced off the update loop.
type outputMsg struct {
	lines []string
}
