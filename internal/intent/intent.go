package intent

import (
	"strings"

	"github.com/samvad-hq/samvad-news-narrator/internal/domain"
)

// Package intent maps a free-form command string (typed or transcribed) to a
// single action. Rules live in a fixed, ordered table evaluated top to bottom;
// the first match wins, so an utterance like "stop and explain" resolves to
// the more specific Explain rather than firing several actions at once.

// Kind enumerates the closed set of command intents.
type Kind int

const (
	Unknown Kind = iota
	ReadHeadlines
	ReadNewspaper
	Stop
	Pause
	Resume
	FilterCategory
	Explain
)

func (k Kind) String() string {
	switch k {
	case ReadHeadlines:
		return "read_headlines"
	case ReadNewspaper:
		return "read_newspaper"
	case Stop:
		return "stop"
	case Pause:
		return "pause"
	case Resume:
		return "resume"
	case FilterCategory:
		return "filter_category"
	case Explain:
		return "explain"
	default:
		return "unknown"
	}
}

// Intent is the classified action. Category is set only for FilterCategory.
type Intent struct {
	Kind     Kind
	Category domain.Category
}

// rule matches when any of its keywords is a substring of the utterance.
type rule struct {
	kind     Kind
	keywords []string
	category domain.Category
}

// Rule order is load-bearing: explain beats stop/read even when both keywords
// appear, and category filters sit last because their keywords are the most
// generic substrings.
var rules = []rule{
	{kind: Explain, keywords: []string{"explain"}},
	{kind: ReadNewspaper, keywords: []string{"read newspaper"}},
	{kind: Pause, keywords: []string{"pause"}},
	{kind: Resume, keywords: []string{"resume", "continue", "play"}},
	{kind: Stop, keywords: []string{"stop"}},
	{kind: ReadHeadlines, keywords: []string{"read", "start", "headlines"}},
	{kind: FilterCategory, keywords: []string{"tech"}, category: domain.CategoryTech},
	{kind: FilterCategory, keywords: []string{"sports"}, category: domain.CategorySports},
	{kind: FilterCategory, keywords: []string{"india"}, category: domain.CategoryIndia},
	{kind: FilterCategory, keywords: []string{"world"}, category: domain.CategoryWorld},
}

// Classify resolves text to exactly one Intent.
func Classify(text string) Intent {
	cmd := strings.ToLower(strings.TrimSpace(text))
	if cmd == "" {
		return Intent{Kind: Unknown}
	}

	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(cmd, kw) {
				return Intent{Kind: r.kind, Category: r.category}
			}
		}
	}
	return Intent{Kind: Unknown}
}
