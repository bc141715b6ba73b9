package backends

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Package backends holds the registry of collaborator endpoints the narrator
// talks to: the summarizer backend serving the feed, the explanation service,
// and the TTS voice. Entries are declared in YAML/JSON config files.

const (
	// Known backend types.
	TypeNewsAPI   = "news_api"
	TypeExplainer = "explainer"
	TypeTTS       = "tts"

	defaultTimeoutSeconds = 15
)

// Backend is a single collaborator endpoint entry.
type Backend struct {
	ID             string            `json:"id" yaml:"id"`
	Type           string            `json:"type" yaml:"type"`
	BaseURL        string            `json:"base_url" yaml:"base_url"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
}

// Timeout returns the per-request timeout for the backend.
func (b Backend) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return defaultTimeoutSeconds * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// Endpoint joins the base URL with a path.
func (b Backend) Endpoint(path string) string {
	return strings.TrimRight(b.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

type configFile struct {
	Backends []Backend `json:"backends" yaml:"backends"`
}

// Registry materializes backend definitions loaded from config files.
type Registry struct {
	mu       sync.RWMutex
	backends []Backend
	idx      map[string]Backend
}

// LoadRegistry loads the backend registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("backends file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open backends file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read backends file: %w", err)
	}

	parsed, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(parsed.Backends) == 0 {
		return nil, errors.New("backends file contains no backends entries")
	}

	reg := &Registry{
		backends: make([]Backend, len(parsed.Backends)),
		idx:      make(map[string]Backend, len(parsed.Backends)),
	}
	for i := range parsed.Backends {
		b := sanitizeBackend(parsed.Backends[i])
		if err := validateBackend(b); err != nil {
			return nil, fmt.Errorf("backends[%d]: %w", i, err)
		}
		if _, exists := reg.idx[b.ID]; exists {
			return nil, fmt.Errorf("duplicate backend id %q", b.ID)
		}
		reg.backends[i] = b
		reg.idx[b.ID] = b
	}

	return reg, nil
}

// parseRegistry attempts to decode the backends file content.
func parseRegistry(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var parsed configFile
		if err := d.fn(data, &parsed); err == nil {
			return parsed, nil
		}
	}

	return configFile{}, errors.New("backends file format not recognized (expected YAML or JSON)")
}

func sanitizeBackend(b Backend) Backend {
	b.ID = strings.TrimSpace(b.ID)
	b.Type = strings.ToLower(strings.TrimSpace(b.Type))
	b.BaseURL = strings.TrimSpace(b.BaseURL)
	if b.TimeoutSeconds <= 0 {
		b.TimeoutSeconds = defaultTimeoutSeconds
	}
	if len(b.Headers) > 0 {
		out := make(map[string]string, len(b.Headers))
		for k, v := range b.Headers {
			key := strings.TrimSpace(k)
			val := strings.TrimSpace(v)
			if key == "" || val == "" {
				continue
			}
			out[key] = val
		}
		if len(out) == 0 {
			out = nil
		}
		b.Headers = out
	}
	return b
}

func validateBackend(b Backend) error {
	if b.ID == "" {
		return errors.New("id is required")
	}
	if b.Type == "" {
		return fmt.Errorf("type is required for backend %q", b.ID)
	}
	if b.BaseURL == "" {
		return fmt.Errorf("base_url is required for backend %q", b.ID)
	}
	return nil
}

// ByID returns the backend entry by id.
func (r *Registry) ByID(id string) (Backend, bool) {
	if r == nil {
		return Backend{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return Backend{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.idx[id]
	return b, ok
}

// ByType returns the first backend entry of the given type.
func (r *Registry) ByType(typ string) (Backend, bool) {
	if r == nil {
		return Backend{}, false
	}

	typ = strings.ToLower(strings.TrimSpace(typ))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.backends {
		if b.Type == typ {
			return b, true
		}
	}
	return Backend{}, false
}

// All returns all configured backends.
func (r *Registry) All() []Backend {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Backend, len(r.backends))
	copy(out, r.backends)
	return out
}
