// Package store persists named, append-only collections of JSON items.
package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrCorruptCollection is returned when a persisted collection cannot be
	// decoded and the corruption policy does not allow recovering from it.
	ErrCorruptCollection = eris.New("store: corrupt collection")

	// ErrInvalidName is returned for collection names that cannot be stored.
	ErrInvalidName = eris.New("store: invalid collection name")
)

// CollectionInfo summarizes a named collection.
type CollectionInfo struct {
	Name  string `json:"name" yaml:"name"`
	Items int    `json:"items" yaml:"items"`
}

// Store defines the persistence interface for the harvesting pipeline.
// Collections have no identity beyond position; appends never deduplicate.
type Store interface {
	// Append adds items to the end of the named collection, creating it if needed.
	Append(ctx context.Context, name string, items []json.RawMessage) error

	// Read returns every item of the named collection in append order.
	// A collection that was never written reads as empty.
	Read(ctx context.Context, name string) ([]json.RawMessage, error)

	// Stat returns the size of the named collection.
	Stat(ctx context.Context, name string) (CollectionInfo, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// ValidateName rejects names that are empty or would escape the store.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return eris.Wrap(ErrInvalidName, "empty name")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." || strings.ContainsRune(name, 0) {
		return eris.Wrapf(ErrInvalidName, "%q", name)
	}
	return nil
}

// AppendItems encodes items and appends them to the named collection.
func AppendItems[T any](ctx context.Context, s Store, name string, items ...T) error {
	raw := make([]json.RawMessage, 0, len(items))
	for i, item := range items {
		b, err := json.Marshal(item)
		if err != nil {
			return eris.Wrapf(err, "store: encode item %d of %s", i, name)
		}
		raw = append(raw, b)
	}
	return s.Append(ctx, name, raw)
}

// ReadItems reads the named collection and decodes every item as T.
func ReadItems[T any](ctx context.Context, s Store, name string) ([]T, error) {
	raw, err := s.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			return nil, eris.Wrapf(err, "store: decode item %d of %s", i, name)
		}
		out = append(out, item)
	}
	return out, nil
}

func cloneItems(items []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, len(items))
	for i, it := range items {
		out[i] = append(json.RawMessage(nil), it...)
	}
	return out
}
