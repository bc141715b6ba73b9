package ranking

import (
	"fmt"
	"testing"

	"github.com/samvad-hq/samvad-news-narrator/internal/domain"
)

func items(cat domain.Category, n int) []domain.NewsItem {
	out := make([]domain.NewsItem, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.NewsItem{
			URL:      fmt.Sprintf("https://news.example/%s/%d", cat, i),
			Title:    fmt.Sprintf("%s story %d", cat, i),
			Category: cat,
		})
	}
	return out
}

func TestBuildEditionCapAndDedup(t *testing.T) {
	feed := append(items(domain.CategoryIndia, 10), items(domain.CategoryTech, 10)...)
	// Duplicate the whole feed to force URL collisions.
	feed = append(feed, feed...)

	edition := BuildEdition(feed, nil, domain.NewPreferenceVector())

	if len(edition) > domain.EditionSize {
		t.Fatalf("edition has %d items, cap is %d", len(edition), domain.EditionSize)
	}
	seen := map[string]bool{}
	for _, item := range edition {
		if seen[item.URL] {
			t.Fatalf("duplicate url %s in edition", item.URL)
		}
		seen[item.URL] = true
	}
}

func TestBuildEditionFavoritesDominate(t *testing.T) {
	favorites := items(domain.CategoryWorld, 15)
	feed := items(domain.CategoryTech, 20)

	edition := BuildEdition(feed, favorites, domain.NewPreferenceVector())

	if len(edition) != domain.EditionSize {
		t.Fatalf("edition has %d items, want %d", len(edition), domain.EditionSize)
	}
	for i, item := range edition {
		if item.URL != favorites[i].URL {
			t.Fatalf("position %d: got %s, want favorite %s", i, item.URL, favorites[i].URL)
		}
	}
}

func TestBuildEditionPreferenceScenario(t *testing.T) {
	india := items(domain.CategoryIndia, 5)
	tech := items(domain.CategoryTech, 5)
	feed := append(append([]domain.NewsItem{}, india...), tech...)

	prefs := domain.NewPreferenceVector()
	prefs.Add(domain.CategoryIndia, 2)
	prefs.Add(domain.CategoryTech, 5)

	favorites := []domain.NewsItem{tech[3]}

	edition := BuildEdition(feed, favorites, prefs)

	if edition[0].URL != tech[3].URL {
		t.Fatalf("edition must start with the favorite, got %s", edition[0].URL)
	}
	// Next come up to three unseen tech items, then up to three india items.
	wantNext := []string{tech[0].URL, tech[1].URL, tech[2].URL, india[0].URL, india[1].URL, india[2].URL}
	for i, want := range wantNext {
		if edition[i+1].URL != want {
			t.Fatalf("position %d: got %s, want %s", i+1, edition[i+1].URL, want)
		}
	}
	// Fallback fill completes the edition in feed order.
	if len(edition) != 10 {
		t.Fatalf("edition has %d items, want 10 (feed exhausted)", len(edition))
	}
	if edition[7].URL != india[3].URL || edition[8].URL != india[4].URL || edition[9].URL != tech[4].URL {
		t.Fatalf("fallback fill out of feed order: %v", edition[7:])
	}
}

func TestRankCategoriesTieBreakIsCanonical(t *testing.T) {
	for run := 0; run < 20; run++ {
		prefs := domain.NewPreferenceVector()
		prefs.Add(domain.CategoryWorld, 4)
		prefs.Add(domain.CategorySports, 4)
		prefs.Add(domain.CategoryTech, 4)
		prefs.Add(domain.CategoryIndia, 4)
		prefs.Add(domain.Category("science"), 4)
		prefs.Add(domain.Category("business"), 4)

		got := rankCategories(prefs)
		want := []domain.Category{
			domain.CategoryIndia, domain.CategoryTech, domain.CategorySports,
			domain.CategoryWorld, "science", "business",
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("run %d: position %d = %s, want %s", run, i, got[i], want[i])
			}
		}
	}
}

func TestBuildEditionIsIdempotent(t *testing.T) {
	feed := append(items(domain.CategorySports, 8), items(domain.CategoryWorld, 8)...)
	prefs := domain.NewPreferenceVector()
	prefs.Add(domain.CategorySports, 7)

	first := BuildEdition(feed, nil, prefs)
	second := BuildEdition(feed, nil, prefs)

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].URL != second[i].URL {
			t.Fatalf("position %d differs: %s vs %s", i, first[i].URL, second[i].URL)
		}
	}
}
