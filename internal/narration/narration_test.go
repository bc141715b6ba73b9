package narration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-news-narrator/internal/domain"
	"github.com/samvad-hq/samvad-news-narrator/internal/newsclient"
	"github.com/samvad-hq/samvad-news-narrator/pkg/speech"
)

// fakeEngine records enqueued utterances and lets tests drive the
// start/end events by hand.
type fakeEngine struct {
	mu      sync.Mutex
	queue   []speech.Utterance
	cancels int
	pauses  int
	resumes int
}

func (f *fakeEngine) Speak(u speech.Utterance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, u)
	return nil
}

func (f *fakeEngine) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = nil
	f.cancels++
}

func (f *fakeEngine) Pause()           { f.mu.Lock(); f.pauses++; f.mu.Unlock() }
func (f *fakeEngine) Resume()          { f.mu.Lock(); f.resumes++; f.mu.Unlock() }
func (f *fakeEngine) IsSpeaking() bool { return false }
func (f *fakeEngine) IsPaused() bool   { return false }
func (f *fakeEngine) Close() error     { return nil }

func (f *fakeEngine) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.queue))
	for i, u := range f.queue {
		out[i] = u.Text
	}
	return out
}

// next pops the head of the queue.
func (f *fakeEngine) next(t *testing.T) speech.Utterance {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		t.Fatalf("engine queue is empty")
	}
	u := f.queue[0]
	f.queue = f.queue[1:]
	return u
}

// play pops the head and runs it to completion.
func (f *fakeEngine) play(t *testing.T) speech.Utterance {
	t.Helper()
	u := f.next(t)
	if u.OnStart != nil {
		u.OnStart()
	}
	if u.OnEnd != nil {
		u.OnEnd()
	}
	return u
}

func (f *fakeEngine) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

type fakeExplainer struct {
	text string
	err  error
}

func (f *fakeExplainer) Explain(context.Context, string, newsclient.ExplainMode) (string, error) {
	return f.text, f.err
}

func feedOf(n int) []domain.NewsItem {
	out := make([]domain.NewsItem, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.NewsItem{
			URL:     fmt.Sprintf("https://news.example/%d", i),
			Title:   fmt.Sprintf("Story %d", i),
			Summary: fmt.Sprintf("Summary for story %d with enough text", i),
		})
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestScheduler(t *testing.T, engine speech.Engine, explainer Explainer) *Scheduler {
	t.Helper()
	s, err := NewScheduler(engine, explainer, nil, Options{
		ExplainDebounce: 5 * time.Millisecond,
		ExplainTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return s
}

func TestStartHeadlinesQueuesIntroAndNumberedTitles(t *testing.T) {
	engine := &fakeEngine{}
	s := newTestScheduler(t, engine, &fakeExplainer{text: "insight"})

	s.StartHeadlines(feedOf(3), 0)

	texts := engine.texts()
	want := []string{
		introUtterance,
		"Headline 1. Story 0",
		"Headline 2. Story 1",
		"Headline 3. Story 2",
	}
	if len(texts) != len(want) {
		t.Fatalf("queued %d utterances, want %d: %v", len(texts), len(want), texts)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Fatalf("utterance %d = %q, want %q", i, texts[i], want[i])
		}
	}

	engine.play(t) // intro
	engine.play(t) // headline 1
	snap := s.Snapshot()
	if snap.Mode != ModeReadingHeadlines {
		t.Fatalf("mode = %s, want reading_headlines", snap.Mode)
	}
	engine.play(t)
	snap = s.Snapshot()
	if snap.HeadlineIndex != 1 || snap.Current == nil || snap.Current.Title != "Story 1" {
		t.Fatalf("session did not track utterance starts: %+v", snap)
	}
}

func TestStartHeadlinesMidFeedSkipsIntro(t *testing.T) {
	engine := &fakeEngine{}
	s := newTestScheduler(t, engine, nil)

	s.StartHeadlines(feedOf(4), 2)

	texts := engine.texts()
	want := []string{
		"Headline 3. Story 2",
		"Headline 4. Story 3",
	}
	if len(texts) != len(want) {
		t.Fatalf("queued %d utterances, want %d: %v", len(texts), len(want), texts)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Fatalf("utterance %d = %q, want %q", i, texts[i], want[i])
		}
	}
}

func TestStartHeadlinesCapsHeadlineSet(t *testing.T) {
	engine := &fakeEngine{}
	s := newTestScheduler(t, engine, nil)

	s.StartHeadlines(feedOf(25), 0)

	// Intro plus the first ten items only.
	if got := len(engine.texts()); got != DefaultHeadlineCount+1 {
		t.Fatalf("queued %d utterances, want %d", got, DefaultHeadlineCount+1)
	}
}

func TestExplainInterruptResumesAtNextHeadline(t *testing.T) {
	engine := &fakeEngine{}
	s := newTestScheduler(t, engine, &fakeExplainer{text: "a longer explanation"})

	s.StartHeadlines(feedOf(5), 0)
	engine.play(t) // intro
	h0 := engine.next(t)
	h0.OnStart()

	cancelsBefore := engine.cancelCount()
	s.RequestExplain()
	if engine.cancelCount() != cancelsBefore+1 {
		t.Fatalf("explain interrupt must cancel queued speech")
	}

	snap := s.Snapshot()
	if !snap.ResumeAfterExplain {
		t.Fatalf("resumeAfterExplain not set on interrupt")
	}

	// Debounce fires, the explanation is fetched and queued.
	waitFor(t, "explanation utterance", func() bool {
		for _, text := range engine.texts() {
			if text == "a longer explanation" {
				return true
			}
		}
		return false
	})
	if got := s.Snapshot().Mode; got != ModeExplaining {
		t.Fatalf("mode = %s, want explaining", got)
	}

	engine.play(t) // ack
	engine.play(t) // explanation; OnEnd resumes headline playback

	snap = s.Snapshot()
	if snap.Mode != ModeReadingHeadlines {
		t.Fatalf("mode after explanation = %s, want reading_headlines", snap.Mode)
	}
	texts := engine.texts()
	if len(texts) == 0 || texts[0] != "Headline 2. Story 1" {
		t.Fatalf("playback must resume at the next headline, queue: %v", texts)
	}
	for _, text := range texts {
		if text == "Headline 1. Story 0" {
			t.Fatalf("interrupted headline was requeued: %v", texts)
		}
	}
}

func TestExplainFailureSpeaksApologyAndStillResumes(t *testing.T) {
	engine := &fakeEngine{}
	s := newTestScheduler(t, engine, &fakeExplainer{err: errors.New("backend down")})

	s.StartHeadlines(feedOf(3), 0)
	engine.play(t) // intro
	h0 := engine.next(t)
	h0.OnStart()

	s.RequestExplain()
	waitFor(t, "apology utterance", func() bool {
		for _, text := range engine.texts() {
			if text == apologyUtterance {
				return true
			}
		}
		return false
	})

	engine.play(t) // ack
	engine.play(t) // apology; same end-of-utterance transition applies

	if got := s.Snapshot().Mode; got != ModeReadingHeadlines {
		t.Fatalf("session stalled after failed explanation, mode = %s", got)
	}
}

func TestExplainOnLastHeadlineEndsIdle(t *testing.T) {
	engine := &fakeEngine{}
	s := newTestScheduler(t, engine, &fakeExplainer{text: "the final word"})

	s.StartHeadlines(feedOf(1), 0)
	engine.play(t) // intro
	h0 := engine.next(t)
	h0.OnStart()

	s.RequestExplain()
	waitFor(t, "explanation utterance", func() bool {
		return len(engine.texts()) == 2
	})
	engine.play(t) // ack
	engine.play(t) // explanation

	snap := s.Snapshot()
	if snap.Mode != ModeIdle || snap.ResumeAfterExplain {
		t.Fatalf("expected idle after explaining the last headline, got %+v", snap)
	}
}

func TestStopCancelsOnceAndResetsSession(t *testing.T) {
	engine := &fakeEngine{}
	s := newTestScheduler(t, engine, nil)

	s.StartHeadlines(feedOf(4), 0)
	engine.play(t) // intro
	h0 := engine.next(t)
	h0.OnStart()

	before := engine.cancelCount()
	s.Stop()
	if engine.cancelCount() != before+1 {
		t.Fatalf("stop must cancel the engine exactly once")
	}

	snap := s.Snapshot()
	if snap.Mode != ModeIdle || snap.Current != nil || snap.ResumeAfterExplain || snap.PendingInterrupt {
		t.Fatalf("session not reset: %+v", snap)
	}

	// A stale end event from the cancelled run must not revive the session.
	if h0.OnEnd != nil {
		h0.OnEnd()
	}
	if got := s.Snapshot().Mode; got != ModeIdle {
		t.Fatalf("stale callback changed mode to %s", got)
	}
}

func TestSecondStartSupersedesFirstRun(t *testing.T) {
	engine := &fakeEngine{}
	s := newTestScheduler(t, engine, nil)

	s.StartHeadlines(feedOf(3), 0)
	engine.play(t) // intro
	stale := engine.next(t)
	stale.OnStart()

	second := []domain.NewsItem{{URL: "https://news.example/fresh", Title: "Fresh story"}}
	s.StartHeadlines(second, 0)

	texts := engine.texts()
	if len(texts) != 2 || !strings.Contains(texts[1], "Fresh story") {
		t.Fatalf("second run must replace the queue, got %v", texts)
	}

	// Callbacks from the superseded run are inert.
	stale.OnStart()
	if snap := s.Snapshot(); snap.Current != nil && snap.Current.Title != "Fresh story" {
		if snap.Current.Title == "Story 0" {
			t.Fatalf("stale callback mutated the new session: %+v", snap)
		}
	}
}

func TestRequestExplainWithoutCurrentIsNoop(t *testing.T) {
	engine := &fakeEngine{}
	s := newTestScheduler(t, engine, &fakeExplainer{text: "unused"})

	s.RequestExplain()
	time.Sleep(20 * time.Millisecond)

	if got := len(engine.texts()); got != 0 {
		t.Fatalf("expected no utterances, got %d", got)
	}
	if got := s.Snapshot().Mode; got != ModeIdle {
		t.Fatalf("mode = %s, want idle", got)
	}
}
