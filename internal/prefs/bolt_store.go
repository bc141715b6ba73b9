package prefs

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/samvad-hq/samvad-news-narrator/internal/domain"
	"github.com/samvad-hq/samvad-news-narrator/internal/logger"
)

const (
	weightBucket   = "preferences"
	favoriteBucket = "favorites"
	weightBytes    = 8
)

// boltStore persists preference state in BoltDB while serving all reads from an
// in-memory mirror loaded at open time.
type boltStore struct {
	db  *bolt.DB
	log logger.Logger

	mu        sync.RWMutex
	prefs     *domain.PreferenceVector
	favorites []domain.NewsItem
	favSeq    map[string]uint64
}

// openBolt initializes a BoltDB-backed Store and loads the existing state.
func openBolt(path string, log logger.Logger) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{weightBucket, favoriteBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	store := &boltStore{
		db:     db,
		log:    log,
		prefs:  domain.NewPreferenceVector(),
		favSeq: make(map[string]uint64),
	}
	if err := store.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load preference state: %w", err)
	}
	return store, nil
}

// load materializes stored weights and favorites into the in-memory mirror.
func (b *boltStore) load() error {
	return b.db.View(func(tx *bolt.Tx) error {
		weights := tx.Bucket([]byte(weightBucket))
		if weights == nil {
			return fmt.Errorf("weight bucket missing")
		}
		if err := weights.ForEach(func(k, v []byte) error {
			if len(v) != weightBytes {
				return nil
			}
			b.prefs.Add(domain.Category(k), int(binary.BigEndian.Uint64(v)))
			return nil
		}); err != nil {
			return err
		}

		favorites := tx.Bucket([]byte(favoriteBucket))
		if favorites == nil {
			return fmt.Errorf("favorite bucket missing")
		}
		// Keys are monotonically assigned sequence numbers; cursor order is
		// insertion order.
		cursor := favorites.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			if len(k) != 8 {
				continue
			}
			var item domain.NewsItem
			if err := json.Unmarshal(v, &item); err != nil || item.URL == "" {
				continue
			}
			b.favSeq[item.URL] = binary.BigEndian.Uint64(k)
			b.favorites = append(b.favorites, item)
		}
		return nil
	})
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *boltStore) Preferences() *domain.PreferenceVector {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.prefs.Clone()
}

// RecordInteraction accumulates weight in memory and persists the new total.
// Persistence errors are logged, never surfaced: the interaction contract is
// fire-and-forget.
func (b *boltStore) RecordInteraction(cat domain.Category, weight int) {
	if cat == "" || weight < 0 {
		return
	}

	b.mu.Lock()
	b.prefs.Add(cat, weight)
	total := b.prefs.Weight(cat)
	b.mu.Unlock()

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(weightBucket))
		if bucket == nil {
			return fmt.Errorf("weight bucket missing")
		}
		buf := make([]byte, weightBytes)
		binary.BigEndian.PutUint64(buf, uint64(total))
		return bucket.Put([]byte(cat), buf)
	})
	if err != nil {
		b.log.WarnObj("interaction persist failed", "prefs_error", map[string]any{
			"category": string(cat),
			"error":    err.Error(),
		})
	}
}

func (b *boltStore) Favorites() []domain.NewsItem {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.NewsItem, len(b.favorites))
	copy(out, b.favorites)
	return out
}

func (b *boltStore) IsFavorite(url string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.favSeq[url]
	return ok
}

// ToggleFavorite adds or removes the item and reports whether it is now a
// favorite. The mirror mutates first; the write follows fire-and-forget.
func (b *boltStore) ToggleFavorite(item domain.NewsItem) bool {
	if item.URL == "" {
		return false
	}

	b.mu.Lock()
	seq, existed := b.favSeq[item.URL]
	if existed {
		delete(b.favSeq, item.URL)
		for i := range b.favorites {
			if b.favorites[i].URL == item.URL {
				b.favorites = append(b.favorites[:i], b.favorites[i+1:]...)
				break
			}
		}
	}
	b.mu.Unlock()

	if existed {
		b.persistRemove(item.URL, seq)
		return false
	}

	newSeq, err := b.persistAdd(item)
	b.mu.Lock()
	b.favSeq[item.URL] = newSeq
	b.favorites = append(b.favorites, item)
	b.mu.Unlock()
	if err != nil {
		b.log.WarnObj("favorite persist failed", "prefs_error", map[string]any{
			"url":   item.URL,
			"error": err.Error(),
		})
	}
	return true
}

func (b *boltStore) persistAdd(item domain.NewsItem) (uint64, error) {
	var seq uint64
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(favoriteBucket))
		if bucket == nil {
			return fmt.Errorf("favorite bucket missing")
		}
		var err error
		if seq, err = bucket.NextSequence(); err != nil {
			return err
		}
		payload, err := json.Marshal(item)
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return bucket.Put(key, payload)
	})
	return seq, err
}

func (b *boltStore) persistRemove(url string, seq uint64) {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(favoriteBucket))
		if bucket == nil {
			return fmt.Errorf("favorite bucket missing")
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return bucket.Delete(key)
	})
	if err != nil {
		b.log.WarnObj("favorite removal persist failed", "prefs_error", map[string]any{
			"url":   url,
			"error": err.Error(),
		})
	}
}
