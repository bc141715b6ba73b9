package intent

import (
	"testing"

	"github.com/samvad-hq/samvad-news-narrator/internal/domain"
)

func TestClassifySingleIntentPerUtterance(t *testing.T) {
	cases := []struct {
		text string
		want Kind
		cat  domain.Category
	}{
		{"read the headlines", ReadHeadlines, ""},
		{"START", ReadHeadlines, ""},
		{"read newspaper", ReadNewspaper, ""},
		{"please stop", Stop, ""},
		{"pause for a second", Pause, ""},
		{"continue", Resume, ""},
		{"show me tech", FilterCategory, domain.CategoryTech},
		{"sports please", FilterCategory, domain.CategorySports},
		{"india news", FilterCategory, domain.CategoryIndia},
		{"world coverage", FilterCategory, domain.CategoryWorld},
		{"explain this article", Explain, ""},
		{"make me a sandwich", Unknown, ""},
		{"", Unknown, ""},
	}

	for _, tc := range cases {
		got := Classify(tc.text)
		if got.Kind != tc.want {
			t.Fatalf("Classify(%q).Kind = %s, want %s", tc.text, got.Kind, tc.want)
		}
		if got.Category != tc.cat {
			t.Fatalf("Classify(%q).Category = %s, want %s", tc.text, got.Category, tc.cat)
		}
	}
}

// The ordered table deliberately replaces the old independent checks that
// could fire several actions for one utterance.
func TestClassifyPriorityOrder(t *testing.T) {
	if got := Classify("explain and stop"); got.Kind != Explain {
		t.Fatalf("explain must beat stop, got %s", got.Kind)
	}
	if got := Classify("stop and explain this"); got.Kind != Explain {
		t.Fatalf("explain must beat stop regardless of word order, got %s", got.Kind)
	}
	if got := Classify("play tech news"); got.Kind != Resume {
		t.Fatalf("resume must beat the tech category match, got %s", got.Kind)
	}
	if got := Classify("read newspaper now"); got.Kind != ReadNewspaper {
		t.Fatalf("read newspaper must beat the generic read rule, got %s", got.Kind)
	}
	if got := Classify("pause and resume"); got.Kind != Pause {
		t.Fatalf("pause sits above resume in the table, got %s", got.Kind)
	}
}
