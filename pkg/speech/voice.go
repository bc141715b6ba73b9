package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/samvad-hq/samvad-news-narrator/pkg/backends"
	"github.com/samvad-hq/samvad-news-narrator/pkg/httpclient"
)

// HTTPVoice speaks through a TTS sidecar. POST /speak blocks until the
// sidecar finished playing the utterance; pause and resume are fire-and-forget
// control calls.
type HTTPVoice struct {
	backend backends.Backend
	client  httpclient.Client
}

// NewHTTPVoice builds a voice for the given TTS backend entry.
func NewHTTPVoice(backend backends.Backend, client httpclient.Client) *HTTPVoice {
	if client == nil {
		client = httpclient.NewRestyClient(backend.Timeout())
	}
	return &HTTPVoice{backend: backend, client: client}
}

type speakRequest struct {
	Text string `json:"text"`
}

// Say sends the utterance and waits for playback to complete.
func (v *HTTPVoice) Say(ctx context.Context, text string) error {
	resp, err := v.client.Post(ctx, v.backend.Endpoint("/speak"), v.backend.Headers, speakRequest{Text: text})
	if err != nil {
		return fmt.Errorf("tts speak: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("tts speak status %d", resp.StatusCode())
	}
	return nil
}

// Pause asks the sidecar to pause playback.
func (v *HTTPVoice) Pause() {
	_, _ = v.client.Post(context.Background(), v.backend.Endpoint("/pause"), v.backend.Headers, nil)
}

// Resume asks the sidecar to resume playback.
func (v *HTTPVoice) Resume() {
	_, _ = v.client.Post(context.Background(), v.backend.Endpoint("/resume"), v.backend.Headers, nil)
}

// ConsoleVoice writes utterances to a writer. Used when no TTS backend is
// configured, and in examples.
type ConsoleVoice struct {
	Out io.Writer
}

func (c ConsoleVoice) Say(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.Out == nil {
		return nil
	}
	_, err := fmt.Fprintf(c.Out, "[voice] %s\n", text)
	return err
}

func (ConsoleVoice) Pause()  {}
func (ConsoleVoice) Resume() {}
