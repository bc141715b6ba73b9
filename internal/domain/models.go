package domain

import "strings"

// Domain contains core models shared across the narrator.

// Category labels a news item. The zero value is treated as general.
type Category string

const (
	CategoryIndia   Category = "india"
	CategoryTech    Category = "tech"
	CategorySports  Category = "sports"
	CategoryWorld   Category = "world"
	CategoryGeneral Category = "general"
)

// CanonicalCategories is the fixed tie-break order used when ranking categories
// with equal preference weight. Categories outside this list rank after it in
// first-seen order.
var CanonicalCategories = []Category{CategoryIndia, CategoryTech, CategorySports, CategoryWorld}

// NewsItem is a single article. Identity is the URL; items are immutable once
// fetched.
type NewsItem struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Category    Category `json:"category"`
	Summary     string   `json:"summary,omitempty"`
	Content     string   `json:"content,omitempty"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"image,omitempty"`
	Source      string   `json:"source,omitempty"`
	Date        string   `json:"date,omitempty"`
}

// Narrative returns the best available text for speaking or explaining an item.
func (n NewsItem) Narrative() string {
	for _, s := range []string{n.Summary, n.Content, n.Description, n.Title} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// Edition is the bounded, ranked personalized article list for a session.
type Edition []NewsItem

// EditionSize caps the number of items in an Edition.
const EditionSize = 12
