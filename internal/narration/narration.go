// Package narration drives the spoken playback session: a small state machine
// layered over the speech engine. All transitions run under one mutex and are
// triggered by discrete events (intent dispatch, utterance start/end, explain
// completion), so each handler observes a consistent session.
package narration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-news-narrator/internal/domain"
	"github.com/samvad-hq/samvad-news-narrator/internal/logger"
	"github.com/samvad-hq/samvad-news-narrator/internal/newsclient"
	"github.com/samvad-hq/samvad-news-narrator/pkg/speech"
)

// Mode is the narration session state.
type Mode int

const (
	ModeIdle Mode = iota
	ModeReadingHeadlines
	ModeExplaining
)

func (m Mode) String() string {
	switch m {
	case ModeReadingHeadlines:
		return "reading_headlines"
	case ModeExplaining:
		return "explaining"
	default:
		return "idle"
	}
}

const (
	introUtterance      = "Here are today's top headlines."
	explainAckUtterance = "Explaining this article."
	apologyUtterance    = "Sorry, I could not explain this article."

	// DefaultHeadlineCount caps the spoken headline set.
	DefaultHeadlineCount = 10
)

// Session is a snapshot of the live narration state.
type Session struct {
	Mode               Mode
	HeadlineIndex      int
	ResumeAfterExplain bool
	PendingInterrupt   bool
	Current            *domain.NewsItem
}

// Explainer fetches an explanation for article text.
type Explainer interface {
	Explain(ctx context.Context, text string, mode newsclient.ExplainMode) (string, error)
}

// Options tunes the scheduler.
type Options struct {
	HeadlineCount   int
	ExplainDebounce time.Duration
	ExplainTimeout  time.Duration
}

// Scheduler owns the narration session. One instance per client; callers
// interact through intents, the speech engine reports utterance events back.
type Scheduler struct {
	engine    speech.Engine
	explainer Explainer
	log       logger.Logger

	headlineCount   int
	explainDebounce time.Duration
	explainTimeout  time.Duration

	mu        sync.Mutex
	session   Session
	headlines []domain.NewsItem
	// gen invalidates callbacks from superseded runs: every transition that
	// abandons in-flight speech bumps it, and stale callbacks are dropped.
	gen uint64
}

// NewScheduler builds an idle scheduler over the given engine and explainer.
func NewScheduler(engine speech.Engine, explainer Explainer, log logger.Logger, opts Options) (*Scheduler, error) {
	if engine == nil {
		return nil, fmt.Errorf("speech engine must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if opts.HeadlineCount <= 0 {
		opts.HeadlineCount = DefaultHeadlineCount
	}
	if opts.ExplainDebounce <= 0 {
		opts.ExplainDebounce = 150 * time.Millisecond
	}
	if opts.ExplainTimeout <= 0 {
		opts.ExplainTimeout = 30 * time.Second
	}

	return &Scheduler{
		engine:          engine,
		explainer:       explainer,
		log:             log,
		headlineCount:   opts.HeadlineCount,
		explainDebounce: opts.ExplainDebounce,
		explainTimeout:  opts.ExplainTimeout,
	}, nil
}

// Snapshot returns a copy of the current session state.
func (s *Scheduler) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// StartHeadlines begins (or restarts) spoken headline playback over the first
// headlineCount items of the feed, starting at startIndex. The intro line is
// spoken only for a fresh run (startIndex 0). A start while a previous run is
// in flight supersedes it: the old run's utterances are cancelled and their
// callbacks invalidated.
func (s *Scheduler) StartHeadlines(feed []domain.NewsItem, startIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	headlines := feed
	if len(headlines) > s.headlineCount {
		headlines = headlines[:s.headlineCount]
	}
	if len(headlines) == 0 {
		s.log.WarnObj("no headlines to read", "narration_state", s.session.Mode.String())
		return
	}
	if startIndex < 0 || startIndex >= len(headlines) {
		startIndex = 0
	}

	s.gen++
	s.engine.Cancel()
	s.headlines = make([]domain.NewsItem, len(headlines))
	copy(s.headlines, headlines)
	s.session = Session{Mode: ModeReadingHeadlines, HeadlineIndex: startIndex}

	if startIndex == 0 {
		if err := s.engine.Speak(speech.Utterance{Text: introUtterance}); err != nil {
			s.abortLocked("intro enqueue failed", err)
			return
		}
	}
	s.enqueueHeadlinesLocked(startIndex)
}

// enqueueHeadlinesLocked queues headline utterances from startIndex onward.
// Caller holds s.mu and has already set ModeReadingHeadlines.
func (s *Scheduler) enqueueHeadlinesLocked(startIndex int) {
	g := s.gen
	for i := startIndex; i < len(s.headlines); i++ {
		// Another actor may have changed the session between enqueues;
		// stop queuing the moment this run is no longer current.
		if s.session.Mode != ModeReadingHeadlines || s.gen != g {
			return
		}
		i := i
		item := s.headlines[i]
		err := s.engine.Speak(speech.Utterance{
			Text:    fmt.Sprintf("Headline %d. %s", i+1, item.Title),
			OnStart: func() { s.headlineStarted(g, i, item) },
			OnEnd:   func() { s.headlineEnded(g, item) },
		})
		if err != nil {
			s.abortLocked("headline enqueue failed", err)
			return
		}
	}
}

func (s *Scheduler) headlineStarted(gen uint64, index int, item domain.NewsItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.session.Mode != ModeReadingHeadlines {
		return
	}
	s.session.HeadlineIndex = index
	s.session.Current = &item
}

func (s *Scheduler) headlineEnded(gen uint64, item domain.NewsItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.session.Mode != ModeReadingHeadlines {
		return
	}
	// An explain request can land between this utterance's end and the
	// engine cancellation; honor it here instead of letting the queue run on.
	if s.session.PendingInterrupt {
		s.session.PendingInterrupt = false
		s.beginExplainLocked(item, true)
	}
}

// RequestExplain interrupts headline playback to explain the current item, or
// explains it directly when no headline run is active.
func (s *Scheduler) RequestExplain() {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.session.Current
	if current == nil {
		s.log.WarnObj("explain requested with no current article", "narration_state", s.session.Mode.String())
		return
	}

	if s.session.Mode == ModeReadingHeadlines {
		item := *current
		s.session.ResumeAfterExplain = true
		s.session.PendingInterrupt = true
		s.engine.Cancel()
		// Let the cancellation settle before speaking the explanation.
		time.AfterFunc(s.explainDebounce, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if !s.session.PendingInterrupt {
				return
			}
			s.session.PendingInterrupt = false
			s.beginExplainLocked(item, true)
		})
		return
	}

	s.beginExplainLocked(*current, false)
}

// beginExplainLocked transitions to ModeExplaining and kicks off the explain
// fetch. resume indicates the session should re-enter headline playback when
// the explanation finishes; it is only ever true when the interrupt came from
// ModeReadingHeadlines.
func (s *Scheduler) beginExplainLocked(item domain.NewsItem, resume bool) {
	s.gen++
	s.session.Mode = ModeExplaining
	s.session.ResumeAfterExplain = resume
	s.session.Current = &item

	if err := s.engine.Speak(speech.Utterance{Text: explainAckUtterance}); err != nil {
		s.abortLocked("explain ack enqueue failed", err)
		return
	}
	go s.runExplain(item, s.gen)
}

// runExplain fetches and speaks the explanation. Failures degrade to a spoken
// apology; either way the end-of-utterance transition runs so the session
// never stalls on a failed call.
func (s *Scheduler) runExplain(item domain.NewsItem, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.explainTimeout)
	defer cancel()

	utterance := apologyUtterance
	if s.explainer == nil {
		s.log.WarnObj("no explainer configured", "article_url", item.URL)
	} else if text, err := s.explainer.Explain(ctx, item.Narrative(), newsclient.ModeLong); err != nil {
		s.log.WarnObj("explanation fetch failed", "explain_error", map[string]any{
			"article_url": item.URL,
			"error":       err.Error(),
		})
	} else {
		utterance = text
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.session.Mode != ModeExplaining {
		return
	}
	err := s.engine.Speak(speech.Utterance{
		Text:  utterance,
		OnEnd: func() { s.explainEnded(gen) },
	})
	if err != nil {
		s.abortLocked("explanation enqueue failed", err)
	}
}

func (s *Scheduler) explainEnded(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.session.Mode != ModeExplaining {
		return
	}

	if s.session.ResumeAfterExplain {
		s.session.ResumeAfterExplain = false
		next := s.session.HeadlineIndex + 1
		if next >= len(s.headlines) {
			// The interrupted item was the last headline; nothing to resume.
			s.session.Mode = ModeIdle
			return
		}
		s.session.Mode = ModeReadingHeadlines
		s.gen++
		s.enqueueHeadlinesLocked(next)
		return
	}
	s.session.Mode = ModeIdle
}

// Stop cancels all speech and resets the session.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.engine.Cancel()
	s.session = Session{}
	s.headlines = nil
}

// Pause forwards to the engine; a no-op unless something is playing.
func (s *Scheduler) Pause() { s.engine.Pause() }

// Resume forwards to the engine; a no-op unless playback is paused.
func (s *Scheduler) Resume() { s.engine.Resume() }

// abortLocked drops the session back to idle after an engine failure.
func (s *Scheduler) abortLocked(msg string, err error) {
	s.log.ErrorObj(msg, "narration_error", err.Error())
	s.gen++
	s.session = Session{}
}
