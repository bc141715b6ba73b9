package ranking

import (
	"sort"

	"github.com/samvad-hq/samvad-news-narrator/internal/domain"
)

// Package ranking builds the bounded personalized edition. BuildEdition is a
// pure function: callers decide whether to invoke it eagerly (on preference
// change) or lazily (on demand); identical inputs always yield the same output.

// Quota is the maximum number of items a single ranked category contributes
// before fallback fill.
const Quota = 3

// BuildEdition assembles an edition from the feed, the stored favorites, and
// the preference vector. Favorites are the strongest signal and always come
// first in stored order; preference-ranked categories then contribute up to
// Quota items each; any remaining room is filled in feed order. The result
// never exceeds domain.EditionSize and never repeats a URL.
func BuildEdition(feed []domain.NewsItem, favorites []domain.NewsItem, prefs *domain.PreferenceVector) domain.Edition {
	picked := make(domain.Edition, 0, domain.EditionSize)
	seen := make(map[string]struct{}, domain.EditionSize)

	appendItem := func(item domain.NewsItem) bool {
		if len(picked) >= domain.EditionSize {
			return false
		}
		if item.URL == "" {
			return true
		}
		if _, dup := seen[item.URL]; dup {
			return true
		}
		seen[item.URL] = struct{}{}
		picked = append(picked, item)
		return len(picked) < domain.EditionSize
	}

	for _, fav := range favorites {
		if !appendItem(fav) {
			return picked
		}
	}

	for _, cat := range rankCategories(prefs) {
		taken := 0
		for _, item := range feed {
			if item.Category != cat {
				continue
			}
			if _, dup := seen[item.URL]; !dup {
				taken++
			}
			if !appendItem(item) {
				return picked
			}
			if taken >= Quota {
				break
			}
		}
	}

	for _, item := range feed {
		if !appendItem(item) {
			break
		}
	}

	return picked
}

// rankCategories orders categories by descending weight. Equal weights fall
// back to the vector's iteration order, which puts the canonical categories
// first and any others in first-seen order.
func rankCategories(prefs *domain.PreferenceVector) []domain.Category {
	if prefs == nil {
		prefs = domain.NewPreferenceVector()
	}
	cats := prefs.Categories()
	sort.SliceStable(cats, func(i, j int) bool {
		return prefs.Weight(cats[i]) > prefs.Weight(cats[j])
	})
	return cats
}
