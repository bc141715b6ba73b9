// Package enrich backfills article metadata (description, preview image)
// from the article pages' Open Graph tags. Summarizer output often lacks
// both, and narration uses the description as a fallback narrative.
package enrich

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/samvad-news-narrator/internal/domain"
	"github.com/samvad-hq/samvad-news-narrator/internal/logger"
	"github.com/samvad-hq/samvad-news-narrator/pkg/httpclient"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB

	defaultTimeout = 10 * time.Second
)

// Enricher fetches article pages and merges OG metadata into items that
// are missing it.
type Enricher struct {
	client httpclient.Client
	delay  time.Duration
	log    logger.Logger
}

// NewEnricher constructs an enricher. delay throttles consecutive page
// fetches; zero disables throttling.
func NewEnricher(client httpclient.Client, delay time.Duration, log logger.Logger) *Enricher {
	if client == nil {
		client = httpclient.NewRestyClient(defaultTimeout)
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Enricher{client: client, delay: delay, log: log}
}

// Enrich iterates items, fetching each page (with throttling) that lacks a
// description or image and merging the scraped metadata. Items already
// complete are passed through untouched. On context cancellation the slice
// processed so far is returned.
func (e *Enricher) Enrich(ctx context.Context, items []domain.NewsItem) []domain.NewsItem {
	out := append([]domain.NewsItem(nil), items...)

	for i, item := range items {
		select {
		case <-ctx.Done():
			return out[:i]
		default:
		}

		if item.Description != "" && item.ImageURL != "" {
			continue
		}

		enriched, err := e.fetchAndParse(ctx, item)
		if err != nil {
			e.log.WarnObj("article metadata scrape failed", "metadata_error", map[string]any{
				"url":   item.URL,
				"error": err.Error(),
			})
		} else {
			out[i] = enriched
		}

		if e.delay > 0 && i < len(items)-1 {
			timer := time.NewTimer(e.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return out[:i+1]
			case <-timer.C:
			}
		}
	}

	return out
}

func (e *Enricher) fetchAndParse(ctx context.Context, item domain.NewsItem) (domain.NewsItem, error) {
	resp, err := e.client.Get(ctx, item.URL, nil)
	if err != nil {
		return item, fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != 200 {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return item, fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return item, err
	}
	updated := item
	if updated.Title == "" && meta.Title != "" {
		updated.Title = meta.Title
	}
	if updated.Description == "" && meta.Description != "" {
		updated.Description = meta.Description
	}
	if updated.ImageURL == "" && meta.ImageURL != "" {
		updated.ImageURL = meta.ImageURL
	}

	return updated, nil
}

func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	pm := pageMeta{}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	pm.Title = firstNonEmpty(
		extract(`meta[property="og:title"]`),
		strings.TrimSpace(doc.Find("title").First().Text()),
	)
	pm.Description = firstNonEmpty(
		extract(`meta[property="og:description"]`),
		extract(`meta[name="description"]`),
	)
	pm.ImageURL = extract(`meta[property="og:image"]`)

	return pm, nil
}

type pageMeta struct {
	Title       string
	Description string
	ImageURL    string
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
