package domain

import "time"

// MediaType distinguishes still images from videos.
type MediaType int

const (
	MediaUnknown MediaType = 0
	MediaPhoto   MediaType = 1
	MediaVideo   MediaType = 2
)

// Story is a single story item, normalized when it is read from the photo
// service. TakenAt is nil when the service did not report a timestamp.
type Story struct {
	ID        string
	TakenAt   *time.Time
	ImageURL  string
	MediaType MediaType
}

// Section is one block of a printed menu.
type Section string

const (
	Primi    Section = "primi"
	Secondi  Section = "secondi"
	Contorni Section = "contorni"
	Dessert  Section = "dessert"
)

// Sections returns the sections in display order.
func Sections() []Section {
	return []Section{Primi, Secondi, Contorni, Dessert}
}

// Emoji returns the decoration used around the section header.
func (s Section) Emoji() string {
	switch s {
	case Primi:
		return "🍝"
	case Secondi:
		return "🍗"
	case Contorni:
		return "🥗"
	case Dessert:
		return "🍰"
	default:
		return "🍽️"
	}
}

// Label is the upper-case header text.
func (s Section) Label() string {
	switch s {
	case Primi:
		return "PRIMI"
	case Secondi:
		return "SECONDI"
	case Contorni:
		return "CONTORNI"
	case Dessert:
		return "DESSERT"
	default:
		return ""
	}
}

// Snapshot is a persisted copy of a fetched table. Degraded marks a table
// that holds no menu read from a story, only placeholders or notices.
type Snapshot struct {
	RunID     string
	FetchedAt time.Time
	Menus     MenuTable
	Degraded  bool
}
