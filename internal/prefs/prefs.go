package prefs

import (
	"fmt"
	"strings"
	"sync"

	"github.com/samvad-hq/samvad-news-narrator/internal/domain"
	"github.com/samvad-hq/samvad-news-narrator/internal/logger"
)

// Package prefs owns the per-user personalization signals: category affinity
// weights and the ordered favorites set. Writes are fire-and-forget: the
// in-memory view is updated synchronously and persistence failures are logged,
// so the next ranking pass always sees the latest values.

// Store exposes preference and favorites state to the core.
type Store interface {
	Close() error
	Preferences() *domain.PreferenceVector
	RecordInteraction(cat domain.Category, weight int)
	Favorites() []domain.NewsItem
	IsFavorite(url string) bool
	ToggleFavorite(item domain.NewsItem) bool
}

// NewStore creates the configured storage backend.
func NewStore(typ, path string, log logger.Logger) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	if log == nil {
		log = &logger.NopLogger{}
	}

	switch typ {
	case "", "none", "memory":
		return NewMemoryStore(), nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, log)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// memoryStore keeps preference state in process only. Used for tests and for
// deployments that do not want persistence.
type memoryStore struct {
	mu        sync.RWMutex
	prefs     *domain.PreferenceVector
	favorites []domain.NewsItem
	favIdx    map[string]int
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		prefs:  domain.NewPreferenceVector(),
		favIdx: make(map[string]int),
	}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) Preferences() *domain.PreferenceVector {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefs.Clone()
}

func (m *memoryStore) RecordInteraction(cat domain.Category, weight int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs.Add(cat, weight)
}

func (m *memoryStore) Favorites() []domain.NewsItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.NewsItem, len(m.favorites))
	copy(out, m.favorites)
	return out
}

func (m *memoryStore) IsFavorite(url string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.favIdx[url]
	return ok
}

func (m *memoryStore) ToggleFavorite(item domain.NewsItem) bool {
	if strings.TrimSpace(item.URL) == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if idx, ok := m.favIdx[item.URL]; ok {
		m.favorites = append(m.favorites[:idx], m.favorites[idx+1:]...)
		delete(m.favIdx, item.URL)
		for i := idx; i < len(m.favorites); i++ {
			m.favIdx[m.favorites[i].URL] = i
		}
		return false
	}

	m.favIdx[item.URL] = len(m.favorites)
	m.favorites = append(m.favorites, item)
	return true
}
