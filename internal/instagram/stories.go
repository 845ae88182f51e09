package instagram

import (
	"time"

	"github.com/vbonduro/mensabot/internal/domain"
)

type imageCandidate struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type storyItem struct {
	PK             flexID  `json:"pk"`
	ID             string  `json:"id"`
	TakenAt        float64 `json:"taken_at"`
	MediaType      int     `json:"media_type"`
	ImageVersions2 *struct {
		Candidates []imageCandidate `json:"candidates"`
	} `json:"image_versions2"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func normalize(items []storyItem) []domain.Story {
	stories := make([]domain.Story, 0, len(items))
	for _, it := range items {
		stories = append(stories, it.story())
	}
	return stories
}

func (it storyItem) story() domain.Story {
	s := domain.Story{
		ID:       string(it.PK),
		ImageURL: it.bestImage(),
	}
	if s.ID == "" {
		s.ID = it.ID
	}
	if it.TakenAt > 0 {
		t := time.Unix(int64(it.TakenAt), 0).UTC()
		s.TakenAt = &t
	}
	switch it.MediaType {
	case 1:
		s.MediaType = domain.MediaPhoto
	case 2:
		s.MediaType = domain.MediaVideo
	default:
		s.MediaType = domain.MediaUnknown
	}
	return s
}

// bestImage picks the widest candidate. Video stories carry a cover frame in
// the same list.
func (it storyItem) bestImage() string {
	best := imageCandidate{}
	if it.ImageVersions2 != nil {
		for _, c := range it.ImageVersions2.Candidates {
			if c.URL != "" && (best.URL == "" || c.Width > best.Width) {
				best = c
			}
		}
	}
	if best.URL != "" {
		return best.URL
	}
	return it.ThumbnailURL
}
