// Package cache keeps search result sets in sqlite so that the HTML and JSON
// storefronts can page through a search without issuing it again.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"budgetbite/pkg/models"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("result set not found")

type Entry struct {
	ID       string               `json:"search_id"`
	Input    models.SearchInput   `json:"input"`
	Request  models.SearchRequest `json:"request"`
	Listings []models.Listing     `json:"listings"`
	StoredAt time.Time            `json:"stored_at"`
}

type Cache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func New(dbPath string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS result_sets (
			search_id TEXT NOT NULL PRIMARY KEY,
			input TEXT NOT NULL,
			request TEXT NOT NULL,
			listings TEXT NOT NULL,
			stored_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

// Get returns the result set stored under searchID, or ErrNotFound when it is
// unknown or older than the TTL.
func (c *Cache) Get(searchID string) (*Entry, error) {
	var input, request, listings string
	var storedAt time.Time

	err := c.db.QueryRow(
		`SELECT input, request, listings, stored_at FROM result_sets WHERE search_id = ?`,
		searchID,
	).Scan(&input, &request, &listings, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load result set %s: %w", searchID, err)
	}

	if c.now().Sub(storedAt) > c.ttl {
		return nil, ErrNotFound
	}

	entry := &Entry{ID: searchID, StoredAt: storedAt}
	if err := json.Unmarshal([]byte(input), &entry.Input); err != nil {
		return nil, fmt.Errorf("decode input of %s: %w", searchID, err)
	}
	if err := json.Unmarshal([]byte(request), &entry.Request); err != nil {
		return nil, fmt.Errorf("decode request of %s: %w", searchID, err)
	}
	if err := json.Unmarshal([]byte(listings), &entry.Listings); err != nil {
		return nil, fmt.Errorf("decode listings of %s: %w", searchID, err)
	}
	return entry, nil
}

// Put stores a result set, replacing any set already stored under the same id.
func (c *Cache) Put(entry *Entry) error {
	input, err := json.Marshal(entry.Input)
	if err != nil {
		return err
	}
	request, err := json.Marshal(entry.Request)
	if err != nil {
		return err
	}
	if entry.Listings == nil {
		entry.Listings = []models.Listing{}
	}
	listings, err := json.Marshal(entry.Listings)
	if err != nil {
		return err
	}
	if entry.StoredAt.IsZero() {
		entry.StoredAt = c.now()
	}
	entry.StoredAt = entry.StoredAt.UTC()

	_, err = c.db.Exec(
		`INSERT INTO result_sets (search_id, input, request, listings, stored_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(search_id)
		 DO UPDATE SET input = excluded.input, request = excluded.request,
		               listings = excluded.listings, stored_at = excluded.stored_at`,
		entry.ID, string(input), string(request), string(listings), entry.StoredAt,
	)
	if err != nil {
		return fmt.Errorf("store result set %s: %w", entry.ID, err)
	}
	return nil
}

// Purge drops every result set older than the TTL and reports how many went.
func (c *Cache) Purge() (int64, error) {
	res, err := c.db.Exec(`DELETE FROM result_sets WHERE stored_at < ?`, c.now().UTC().Add(-c.ttl))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Debug().Int64("purged", n).Msg("Cache: purged expired result sets")
	}
	return n, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}
