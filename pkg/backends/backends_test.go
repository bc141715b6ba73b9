package backends

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRegistryYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "backends.yaml")
	content := `
backends:
  - id: newsroom
    type: news_api
    base_url: http://localhost:8000
    timeout_seconds: 20
  - id: voice
    type: tts
    base_url: http://localhost:5002/
    headers:
      X-Api-Key: secret
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write backends file: %v", err)
	}

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry returned error: %v", err)
	}

	if len(reg.All()) != 2 {
		t.Fatalf("expected 2 backends, got %d", len(reg.All()))
	}

	b, ok := reg.ByID("newsroom")
	if !ok {
		t.Fatalf("expected backend id newsroom to be loaded")
	}
	if b.Timeout() != 20*time.Second {
		t.Fatalf("unexpected timeout: %v", b.Timeout())
	}
	if got := b.Endpoint("/news"); got != "http://localhost:8000/news" {
		t.Fatalf("unexpected endpoint: %s", got)
	}

	voice, ok := reg.ByType(TypeTTS)
	if !ok {
		t.Fatalf("expected a tts backend")
	}
	if got := voice.Endpoint("speak"); got != "http://localhost:5002/speak" {
		t.Fatalf("unexpected endpoint: %s", got)
	}
	if voice.Headers["X-Api-Key"] != "secret" {
		t.Fatalf("headers not preserved: %v", voice.Headers)
	}
}

func TestLoadRegistryDuplicateID(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "backends.yaml")
	content := `
backends:
  - id: duplicate
    type: news_api
    base_url: http://a.example
  - id: duplicate
    type: tts
    base_url: http://b.example
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write backends file: %v", err)
	}

	if _, err := LoadRegistry(file); err == nil {
		t.Fatalf("expected duplicate backend error, got nil")
	}
}

func TestLoadRegistryRejectsMissingBaseURL(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "backends.yaml")
	content := `
backends:
  - id: broken
    type: news_api
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write backends file: %v", err)
	}

	if _, err := LoadRegistry(file); err == nil {
		t.Fatalf("expected validation error, got nil")
	}
}
