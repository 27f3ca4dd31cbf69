// Package store caches engine results outside the engine. Entries are keyed
// by deal.Fingerprint, so identical inputs share one entry across processes.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"deal_underwriting/pkg/core/deal"
	"deal_underwriting/pkg/core/engine"
)

// ErrCacheMiss is returned by Get when no entry exists for the key.
var ErrCacheMiss = errors.New("cache miss")

// Entry is one cached run. Results holds the encoded engine output so every
// backend stores the same bytes the API serves.
type Entry struct {
	ID        string          `json:"id"`
	Key       string          `json:"key"`
	Mode      deal.Mode       `json:"mode"`
	CreatedAt time.Time       `json:"created_at"`
	Results   json.RawMessage `json:"results"`
}

// NewEntry encodes res under key.
func NewEntry(key string, mode deal.Mode, res *engine.Results) (*Entry, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}
	return &Entry{
		ID:        uuid.NewString(),
		Key:       key,
		Mode:      mode,
		CreatedAt: time.Now().UTC(),
		Results:   data,
	}, nil
}

// Decode unpacks the cached results.
func (e *Entry) Decode() (*engine.Results, error) {
	var res engine.Results
	if err := json.Unmarshal(e.Results, &res); err != nil {
		return nil, fmt.Errorf("decode cached results %s: %w", e.Key, err)
	}
	return &res, nil
}

// ResultCache is implemented by every backend.
type ResultCache interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, e *Entry) error
}

// Cached returns the entry for (d, mode), running the engine on a miss.
// The bool reports a hit. A failing cache read is treated as a miss and a
// failing write is returned alongside the fresh entry.
func Cached(ctx context.Context, c ResultCache, d deal.Assumptions, mode deal.Mode, opts ...engine.Option) (*Entry, bool, error) {
	key := deal.Fingerprint(d, mode)
	if e, err := c.Get(ctx, key); err == nil {
		return e, true, nil
	}

	res, err := engine.Run(d, mode, opts...)
	if err != nil {
		return nil, false, err
	}
	e, err := NewEntry(key, mode, res)
	if err != nil {
		return nil, false, err
	}
	if err := c.Set(ctx, e); err != nil {
		return e, false, fmt.Errorf("cache write: %w", err)
	}
	return e, false, nil
}
