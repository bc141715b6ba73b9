// Package newsclient talks to the summarizer backend: the collaborator that
// fetches raw sources, summarizes them, and serves the materialized feed.
package newsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/samvad-hq/samvad-news-narrator/internal/domain"
	"github.com/samvad-hq/samvad-news-narrator/pkg/backends"
	"github.com/samvad-hq/samvad-news-narrator/pkg/httpclient"
)

// ExplainMode selects the explanation register.
type ExplainMode string

const (
	ModeKid      ExplainMode = "kid"
	ModeHinglish ExplainMode = "hinglish"
	ModeBullets  ExplainMode = "bullets"
	ModeLong     ExplainMode = "long"
)

// minExplainChars guards against asking the explainer about nothing.
const minExplainChars = 10

var (
	// ErrEmptyExplanation signals the explainer produced no usable text.
	ErrEmptyExplanation = errors.New("explanation is empty")
	// ErrNotEnoughContent signals the article has too little text to explain.
	ErrNotEnoughContent = errors.New("not enough content to explain")
)

// Client is the HTTP client for the summarizer backend.
type Client struct {
	backend   backends.Backend
	explainer backends.Backend
	client    httpclient.Client
}

// New builds a client for the news backend; the explainer may live on a
// different backend entry, or fall back to the news backend itself.
func New(news backends.Backend, explainer *backends.Backend, client httpclient.Client) *Client {
	if client == nil {
		client = httpclient.NewRestyClient(news.Timeout())
	}
	c := &Client{backend: news, explainer: news, client: client}
	if explainer != nil {
		c.explainer = *explainer
	}
	return c
}

// RequestFetch asks the backend to pull fresh articles from its sources.
func (c *Client) RequestFetch(ctx context.Context) error {
	resp, err := c.client.Post(ctx, c.backend.Endpoint("/fetch"), c.backend.Headers, nil)
	if err != nil {
		return fmt.Errorf("request fetch: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("request fetch status %d", resp.StatusCode())
	}
	return nil
}

// RequestSummarize kicks off background summarization on the backend.
func (c *Client) RequestSummarize(ctx context.Context) error {
	resp, err := c.client.Post(ctx, c.backend.Endpoint("/summarize"), c.backend.Headers, nil)
	if err != nil {
		return fmt.Errorf("request summarize: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("request summarize status %d", resp.StatusCode())
	}
	return nil
}

// Articles returns the summarized feed, up to limit items.
func (c *Client) Articles(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	endpoint := c.backend.Endpoint("/news")
	if limit > 0 {
		endpoint += fmt.Sprintf("?limit=%d", limit)
	}
	return c.getItems(ctx, endpoint)
}

// ArticlesByCategory returns the summarized feed filtered to one category.
func (c *Client) ArticlesByCategory(ctx context.Context, cat domain.Category) ([]domain.NewsItem, error) {
	endpoint := c.backend.Endpoint("/news/category") + "?category=" + url.QueryEscape(string(cat))
	return c.getItems(ctx, endpoint)
}

// Ready probes whether summarized articles are available yet. An empty result
// is not an error; it means the summarization job has not finished.
func (c *Client) Ready(ctx context.Context) ([]domain.NewsItem, error) {
	return c.Articles(ctx, 200)
}

func (c *Client) getItems(ctx context.Context, endpoint string) ([]domain.NewsItem, error) {
	resp, err := c.client.Get(ctx, endpoint, c.backend.Headers)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch feed status %d", resp.StatusCode())
	}

	var items []domain.NewsItem
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return items, nil
}

type explainRequest struct {
	Text string `json:"text"`
}

type explainResponse struct {
	Result string `json:"result"`
}

// Explain fetches an explanation of the given text from the explainer.
func (c *Client) Explain(ctx context.Context, text string, mode ExplainMode) (string, error) {
	if len(strings.TrimSpace(text)) < minExplainChars {
		return "", ErrNotEnoughContent
	}
	if mode == "" {
		mode = ModeLong
	}

	endpoint := c.explainer.Endpoint("/explain") + "?mode=" + url.QueryEscape(string(mode))
	resp, err := c.client.Post(ctx, endpoint, c.explainer.Headers, explainRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("explain request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("explain status %d", resp.StatusCode())
	}

	var out explainResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("decode explanation: %w", err)
	}
	if strings.TrimSpace(out.Result) == "" {
		return "", ErrEmptyExplanation
	}
	return out.Result, nil
}

// Track reports an interaction with a category. Failures are returned for
// logging only; callers treat the write as fire-and-forget.
func (c *Client) Track(ctx context.Context, cat domain.Category, weight int) error {
	endpoint := c.backend.Endpoint("/track") +
		"?category=" + url.QueryEscape(string(cat)) +
		fmt.Sprintf("&weight=%d", weight)
	resp, err := c.client.Post(ctx, endpoint, c.backend.Headers, nil)
	if err != nil {
		return fmt.Errorf("track interaction: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("track status %d", resp.StatusCode())
	}
	return nil
}
