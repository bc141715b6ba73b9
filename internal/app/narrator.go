package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samvad-hq/samvad-news-narrator/internal/config"
	"github.com/samvad-hq/samvad-news-narrator/internal/enrich"
	"github.com/samvad-hq/samvad-news-narrator/internal/logger"
	"github.com/samvad-hq/samvad-news-narrator/internal/narration"
	"github.com/samvad-hq/samvad-news-narrator/internal/newsclient"
	"github.com/samvad-hq/samvad-news-narrator/internal/orchestrator"
	"github.com/samvad-hq/samvad-news-narrator/internal/prefs"
	"github.com/samvad-hq/samvad-news-narrator/pkg/backends"
	"github.com/samvad-hq/samvad-news-narrator/pkg/httpclient"
	"github.com/samvad-hq/samvad-news-narrator/pkg/sinks"
	"github.com/samvad-hq/samvad-news-narrator/pkg/speech"
)

// Narrator represents the news narrator runtime. It wires backends, sinks,
// the preference store, the speech engine and the narration scheduler into a
// session orchestrator, then serves voice commands until shutdown.
type Narrator struct {
	cfg    *config.Config
	orch   *orchestrator.Orchestrator
	engine speech.Engine
	store  prefs.Store
	log    logger.Logger
	input  io.Reader
}

// NewNarrator builds a narrator runtime from config files. input carries the
// transcribed voice commands, one per line; nil defaults to stdin.
func NewNarrator(ctx context.Context, cfg *config.Config, log logger.Logger, input io.Reader) (*Narrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if input == nil {
		input = os.Stdin
	}

	backendReg, err := backends.LoadRegistry(cfg.BackendsFile)
	if err != nil {
		return nil, fmt.Errorf("load backends registry: %w", err)
	}
	newsBackend, ok := backendReg.ByType(backends.TypeNewsAPI)
	if !ok {
		return nil, fmt.Errorf("no news_api backend configured")
	}
	backendList := backendReg.All()
	backendIDs := make([]string, 0, len(backendList))
	for _, b := range backendList {
		backendIDs = append(backendIDs, b.ID)
	}
	log.InfoObj("backends registry loaded", "backends_meta", map[string]any{
		"count": len(backendIDs),
		"ids":   backendIDs,
	})

	fanout, err := buildSinks(ctx, cfg.SinksFile, log)
	if err != nil {
		return nil, err
	}

	store, err := prefs.NewStore(cfg.StorageType, cfg.BBoltPath, log)
	if err != nil {
		return nil, fmt.Errorf("init preference store: %w", err)
	}
	log.InfoObj("preference store initialized", "storage_config", map[string]any{
		"type": cfg.StorageType,
		"path": cfg.BBoltPath,
	})

	httpClient := httpclient.NewRestyClient(cfg.RequestTimeout)

	var explainer *backends.Backend
	if b, ok := backendReg.ByType(backends.TypeExplainer); ok {
		explainer = &b
	}
	news := newsclient.New(newsBackend, explainer, httpClient)

	var voice speech.Voice = speech.ConsoleVoice{Out: os.Stdout}
	if tts, ok := backendReg.ByType(backends.TypeTTS); ok {
		voice = speech.NewHTTPVoice(tts, httpClient)
	}
	engine := speech.NewQueue(voice)

	sched, err := narration.NewScheduler(engine, news, log, narration.Options{
		HeadlineCount:   cfg.HeadlineCount,
		ExplainDebounce: cfg.ExplainDebounce,
		ExplainTimeout:  cfg.ExplainTimeout,
	})
	if err != nil {
		engine.Close()
		store.Close()
		return nil, fmt.Errorf("init narration scheduler: %w", err)
	}

	orch, err := orchestrator.New(news, sched, engine, store, fanout, log, orchestrator.Options{
		PollInterval:      cfg.PollInterval,
		PollMaxAttempts:   cfg.PollMaxAttempts,
		PollBackoffFactor: cfg.PollBackoffFactor,
		FeedLimit:         cfg.EditionSize * 4,
		Enricher:          enrich.NewEnricher(httpClient, 0, log),
	})
	if err != nil {
		engine.Close()
		store.Close()
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}

	return &Narrator{
		cfg:    cfg,
		orch:   orch,
		engine: engine,
		store:  store,
		log:    log,
		input:  input,
	}, nil
}

// buildSinks wires the interaction-event fanout. A missing sinks file means
// no sinks; the session runs without downstream delivery.
func buildSinks(ctx context.Context, path string, log logger.Logger) (*sinks.Fanout, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}

	sinkReg, err := sinks.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load sinks registry: %w", err)
	}
	enabled := sinkReg.Enabled()
	if len(enabled) == 0 {
		log.WarnObj("sinks file has no enabled sinks", "sinks_file", path)
		return nil, nil
	}

	built, err := sinks.BuildAll(ctx, sinks.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build sinks: %w", err)
	}
	sinkSummaries := make([]map[string]string, 0, len(enabled))
	for _, sinkCfg := range enabled {
		sinkSummaries = append(sinkSummaries, map[string]string{
			"id":   sinkCfg.ID,
			"type": sinkCfg.Type,
		})
	}
	log.InfoObj("sinks registry loaded", "sinks_meta", map[string]any{
		"count": len(sinkSummaries),
		"sinks": sinkSummaries,
	})
	return sinks.NewFanout(built), nil
}

// Run refreshes the feed, then serves voice commands until the context is
// cancelled or the command input closes.
func (n *Narrator) Run(ctx context.Context) error {
	if n == nil || n.orch == nil {
		return fmt.Errorf("narrator is not initialized")
	}
	defer n.close()

	n.prepareFeed(ctx)

	n.log.InfoObj("narrator session starting", "narrator_state", map[string]any{
		"edition_size": len(n.orch.Edition()),
	})

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(n.input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			n.log.InfoObj("narrator session exiting", "reason", ctx.Err())
			return nil
		case line, ok := <-lines:
			if !ok {
				n.log.InfoObj("command input closed", "narrator_state", "done")
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := n.orch.HandleCommand(ctx, line); err != nil {
				n.log.ErrorObj("command handling failed", "command_error", map[string]any{
					"command": line,
					"error":   err.Error(),
				})
			}
		}
	}
}

// prepareFeed performs the initial fetch, summarize and readiness poll. A
// feed that never becomes ready degrades to the unsummarized article list.
func (n *Narrator) prepareFeed(ctx context.Context) {
	if err := n.orch.RefreshFeed(ctx); err != nil {
		n.log.WarnObj("initial fetch failed", "feed_error", err.Error())
	}

	err := n.orch.Summarize(ctx)
	if err == nil {
		return
	}
	if errors.Is(err, orchestrator.ErrFeedNotReady) {
		n.log.WarnObj("summarized feed not ready, falling back to raw articles", "feed_error", err.Error())
	} else {
		n.log.ErrorObj("summarize failed", "feed_error", err.Error())
	}

	if err := n.orch.LoadFeed(ctx); err != nil {
		n.log.ErrorObj("feed load failed", "feed_error", err.Error())
	}
}

// close shuts the speech engine and preference store down, logging errors.
func (n *Narrator) close() {
	if n.engine != nil {
		if err := n.engine.Close(); err != nil {
			n.log.ErrorObj("speech engine close failed", "error", err)
		}
	}
	if n.store != nil {
		if err := n.store.Close(); err != nil {
			n.log.ErrorObj("preference store close failed", "error", err)
		}
	}
}
