// Package orchestrator ties the session together: it classifies spoken
// commands, drives the narration scheduler, keeps the ranked edition fresh
// and records interactions into the preference store and event sinks.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-news-narrator/internal/domain"
	"github.com/samvad-hq/samvad-news-narrator/internal/intent"
	"github.com/samvad-hq/samvad-news-narrator/internal/logger"
	"github.com/samvad-hq/samvad-news-narrator/internal/narration"
	"github.com/samvad-hq/samvad-news-narrator/internal/prefs"
	"github.com/samvad-hq/samvad-news-narrator/internal/ranking"
	"github.com/samvad-hq/samvad-news-narrator/pkg/sinks"
	"github.com/samvad-hq/samvad-news-narrator/pkg/speech"
)

// ErrFeedNotReady reports that the summarized feed did not become available
// within the configured polling budget. Callers treat it as a notification,
// not a fatal condition.
var ErrFeedNotReady = errors.New("summarized feed not ready")

// NewsSource is the slice of the news client the orchestrator depends on.
type NewsSource interface {
	RequestFetch(ctx context.Context) error
	RequestSummarize(ctx context.Context) error
	Articles(ctx context.Context, limit int) ([]domain.NewsItem, error)
	ArticlesByCategory(ctx context.Context, cat domain.Category) ([]domain.NewsItem, error)
	Ready(ctx context.Context) ([]domain.NewsItem, error)
	Track(ctx context.Context, cat domain.Category, weight int) error
}

// Enricher backfills missing article metadata before ranking.
type Enricher interface {
	Enrich(ctx context.Context, items []domain.NewsItem) []domain.NewsItem
}

// Options configures the orchestrator's feed polling and sizing.
type Options struct {
	// PollInterval is the base delay between readiness probes.
	PollInterval time.Duration
	// PollMaxAttempts bounds the number of readiness probes.
	PollMaxAttempts int
	// PollBackoffFactor multiplies the delay after each failed probe.
	PollBackoffFactor float64
	// FeedLimit caps how many articles a feed refresh requests.
	FeedLimit int
	// Enricher, when set, runs over every freshly loaded feed.
	Enricher Enricher
}

const (
	defaultPollInterval    = 2 * time.Second
	defaultPollMaxAttempts = 30
	defaultBackoffFactor   = 1.5
	defaultFeedLimit       = 50
)

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.PollMaxAttempts <= 0 {
		o.PollMaxAttempts = defaultPollMaxAttempts
	}
	if o.PollBackoffFactor < 1 {
		o.PollBackoffFactor = defaultBackoffFactor
	}
	if o.FeedLimit <= 0 {
		o.FeedLimit = defaultFeedLimit
	}
	return o
}

// Orchestrator owns the session state shared between voice commands.
type Orchestrator struct {
	news   NewsSource
	sched  *narration.Scheduler
	engine speech.Engine
	store  prefs.Store
	fanout *sinks.Fanout
	log    logger.Logger
	opts   Options

	mu      sync.Mutex
	feed    []domain.NewsItem
	edition domain.Edition
}

// New builds an orchestrator. fanout may be nil when no sinks are configured.
func New(news NewsSource, sched *narration.Scheduler, engine speech.Engine, store prefs.Store, fanout *sinks.Fanout, log logger.Logger, opts Options) (*Orchestrator, error) {
	if news == nil {
		return nil, errors.New("orchestrator requires a news source")
	}
	if sched == nil {
		return nil, errors.New("orchestrator requires a narration scheduler")
	}
	if engine == nil {
		return nil, errors.New("orchestrator requires a speech engine")
	}
	if store == nil {
		return nil, errors.New("orchestrator requires a preference store")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Orchestrator{
		news:   news,
		sched:  sched,
		engine: engine,
		store:  store,
		fanout: fanout,
		log:    log,
		opts:   opts.withDefaults(),
	}, nil
}

// Edition returns the current ranked edition.
func (o *Orchestrator) Edition() domain.Edition {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(domain.Edition, len(o.edition))
	copy(out, o.edition)
	return out
}

// HandleCommand classifies a spoken command and dispatches it.
func (o *Orchestrator) HandleCommand(ctx context.Context, text string) error {
	in := intent.Classify(text)
	o.log.DebugObj("voice command classified", "command_intent", map[string]any{
		"text":   text,
		"intent": in.Kind.String(),
	})

	switch in.Kind {
	case intent.ReadHeadlines:
		o.sched.StartHeadlines(o.Edition(), 0)
	case intent.ReadNewspaper:
		o.readNewspaper()
	case intent.Explain:
		o.sched.RequestExplain()
	case intent.Stop:
		o.sched.Stop()
	case intent.Pause:
		o.sched.Pause()
	case intent.Resume:
		o.sched.Resume()
	case intent.FilterCategory:
		return o.filterCategory(ctx, in.Category)
	default:
		o.log.InfoObj("unrecognized command ignored", "command_text", text)
	}
	return nil
}

// readNewspaper cancels any narration in flight and reads the full edition
// as numbered articles.
func (o *Orchestrator) readNewspaper() {
	edition := o.Edition()
	if len(edition) == 0 {
		o.log.WarnObj("read newspaper with empty edition", "edition_size", 0)
		return
	}

	o.sched.Stop()
	for i, item := range edition {
		err := o.engine.Speak(speech.Utterance{
			Text: fmt.Sprintf("Article %d. %s", i+1, item.Title),
		})
		if err != nil {
			o.log.ErrorObj("newspaper read aborted", "speech_error", err.Error())
			return
		}
	}
}

// filterCategory fetches articles for the category, records the interaction
// and restarts narration over the filtered set.
func (o *Orchestrator) filterCategory(ctx context.Context, cat domain.Category) error {
	items, err := o.news.ArticlesByCategory(ctx, cat)
	if err != nil {
		return fmt.Errorf("fetch %s articles: %w", cat, err)
	}

	o.RecordInteraction(ctx, cat, 1, nil)

	o.mu.Lock()
	o.feed = items
	o.rerankLocked()
	edition := make(domain.Edition, len(o.edition))
	copy(edition, o.edition)
	o.mu.Unlock()

	o.sched.StartHeadlines(edition, 0)
	return nil
}

// RefreshFeed asks the backend to fetch fresh articles.
func (o *Orchestrator) RefreshFeed(ctx context.Context) error {
	if err := o.news.RequestFetch(ctx); err != nil {
		return fmt.Errorf("request fetch: %w", err)
	}
	return nil
}

// Summarize triggers summarization and polls until the summarized feed is
// ready, with exponential backoff between probes. On success the feed is
// swapped in and the edition re-ranked. After the attempt budget is spent it
// returns ErrFeedNotReady.
func (o *Orchestrator) Summarize(ctx context.Context) error {
	if err := o.news.RequestSummarize(ctx); err != nil {
		return fmt.Errorf("request summarize: %w", err)
	}

	delay := o.opts.PollInterval
	for attempt := 1; attempt <= o.opts.PollMaxAttempts; attempt++ {
		items, err := o.news.Ready(ctx)
		if err == nil && len(items) > 0 {
			o.setFeed(o.enrich(ctx, items))
			o.log.InfoObj("summarized feed ready", "feed_size", len(items))
			return nil
		}
		if err != nil {
			o.log.DebugObj("summarized feed probe failed", "poll_attempt", map[string]any{
				"attempt": attempt,
				"error":   err.Error(),
			})
		}
		if attempt == o.opts.PollMaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * o.opts.PollBackoffFactor)
	}
	return ErrFeedNotReady
}

// LoadFeed pulls the current article set without the summarize round trip.
func (o *Orchestrator) LoadFeed(ctx context.Context) error {
	items, err := o.news.Articles(ctx, o.opts.FeedLimit)
	if err != nil {
		return fmt.Errorf("load feed: %w", err)
	}
	o.setFeed(o.enrich(ctx, items))
	return nil
}

func (o *Orchestrator) enrich(ctx context.Context, items []domain.NewsItem) []domain.NewsItem {
	if o.opts.Enricher == nil {
		return items
	}
	return o.opts.Enricher.Enrich(ctx, items)
}

func (o *Orchestrator) setFeed(items []domain.NewsItem) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.feed = items
	o.rerankLocked()
}

// RecordInteraction weighs a category signal into the preference store, fans
// the event out to sinks and re-ranks the edition. Sink and tracking failures
// are logged, never surfaced: the session keeps moving.
func (o *Orchestrator) RecordInteraction(ctx context.Context, cat domain.Category, weight int, item *domain.NewsItem) {
	o.store.RecordInteraction(cat, weight)

	if err := o.news.Track(ctx, cat, weight); err != nil {
		o.log.WarnObj("interaction tracking failed", "track_error", err.Error())
	}
	if o.fanout != nil && o.fanout.Size() > 0 {
		evt := sinks.NewEvent(cat, weight, item)
		if _, err := o.fanout.Publish(ctx, evt); err != nil {
			o.log.WarnObj("interaction fanout incomplete", "sink_error", err.Error())
		}
	}

	o.mu.Lock()
	o.rerankLocked()
	o.mu.Unlock()
}

// ToggleFavorite flips the favorite flag for the item and re-ranks.
// It reports whether the item is now a favorite.
func (o *Orchestrator) ToggleFavorite(ctx context.Context, item domain.NewsItem) bool {
	nowFav := o.store.ToggleFavorite(item)
	if nowFav {
		o.RecordInteraction(ctx, item.Category, 2, &item)
	} else {
		o.mu.Lock()
		o.rerankLocked()
		o.mu.Unlock()
	}
	return nowFav
}

// rerankLocked rebuilds the edition from the current feed, favorites and
// preference weights. Caller holds o.mu.
func (o *Orchestrator) rerankLocked() {
	o.edition = ranking.BuildEdition(o.feed, o.store.Favorites(), o.store.Preferences())
}
