package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/cleanscan/internal/waste"
)

const locationsBucket = "locations"

// Cache stores resolved locations by rounded coordinates
type Cache interface {
	// Get returns the cached location and whether it was present
	Get(c Coordinates) (waste.Location, bool, error)
	// Put stores a resolved location
	Put(c Coordinates, loc waste.Location) error
	// Close releases the cache
	Close() error
}

// cacheKey rounds to 3 decimals, about 110m, which is well inside one city
func cacheKey(c Coordinates) []byte {
	return []byte(fmt.Sprintf("%.3f,%.3f", c.Lat, c.Lon))
}

// BoltCache implements Cache using BoltDB
type BoltCache struct {
	db *bbolt.DB
}

type cachedLocation struct {
	waste.Location
	ResolvedAt time.Time `json:"resolvedAt"`
}

// NewBoltCache opens or creates the cache file at path
func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(locationsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltCache{db: db}, nil
}

// Get returns the cached location for c
func (b *BoltCache) Get(c Coordinates) (waste.Location, bool, error) {
	var entry *cachedLocation
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(locationsBucket)).Get(cacheKey(c))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return waste.Location{}, false, fmt.Errorf("reading cached location: %w", err)
	}
	if entry == nil {
		return waste.Location{}, false, nil
	}
	return entry.Location, true, nil
}

// Put stores loc under the rounded coordinates of c
func (b *BoltCache) Put(c Coordinates, loc waste.Location) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(cachedLocation{Location: loc, ResolvedAt: time.Now().UTC()})
		if err != nil {
			return fmt.Errorf("marshaling location: %w", err)
		}
		return tx.Bucket([]byte(locationsBucket)).Put(cacheKey(c), data)
	})
}

// Close closes the database
func (b *BoltCache) Close() error {
	return b.db.Close()
}

// Cached wraps a Locator with a Cache. Cache failures are logged and never
// fail a lookup.
type Cached struct {
	next  Locator
	cache Cache
}

// NewCached creates a caching Locator
func NewCached(next Locator, cache Cache) *Cached {
	return &Cached{next: next, cache: cache}
}

// Locate serves from the cache when possible and stores fresh resolutions
func (c *Cached) Locate(ctx context.Context, coords Coordinates) (waste.Location, error) {
	loc, ok, err := c.cache.Get(coords)
	if err != nil {
		slog.Warn("Geocode cache read failed", "error", err)
	}
	if ok {
		return loc, nil
	}

	loc, err = c.next.Locate(ctx, coords)
	if err != nil {
		return waste.Location{}, err
	}

	if err := c.cache.Put(coords, loc); err != nil {
		slog.Warn("Geocode cache write failed", "error", err)
	}
	return loc, nil
}
