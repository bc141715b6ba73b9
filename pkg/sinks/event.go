package sinks

import (
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/samvad-news-narrator/internal/domain"
)

// Event is a single interaction signal delivered downstream.
type Event struct {
	ID         string          `json:"id"`
	Category   domain.Category `json:"category"`
	Weight     int             `json:"weight"`
	ItemURL    string          `json:"item_url,omitempty"`
	ItemTitle  string          `json:"item_title,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewEvent constructs an Event for the given interaction. item may be nil for
// category-only signals (e.g. spoken filter commands).
func NewEvent(cat domain.Category, weight int, item *domain.NewsItem) Event {
	evt := Event{
		ID:         uuid.NewString(),
		Category:   cat,
		Weight:     weight,
		OccurredAt: time.Now().UTC(),
	}
	if item != nil {
		evt.ItemURL = item.URL
		evt.ItemTitle = item.Title
	}
	return evt
}
