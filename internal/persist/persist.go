// Package persist is the single storage abstraction for records that live in the
// backend when it accepts them and on the device otherwise.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/eddielimmm/my-agile-plus/internal/localcache"
)

var ErrNotFound = errors.New("record not found")

// Key addresses a record as {user}_{purpose}_{qualifier}.
type Key struct {
	UserID    string
	Purpose   string
	Qualifier string
}

func (k Key) String() string {
	return k.UserID + "_" + k.Purpose + "_" + k.Qualifier
}

// Backend stores values of one record type.
type Backend[T any] interface {
	Put(ctx context.Context, key Key, value T) error
	Get(ctx context.Context, key Key) (T, error)
}

// Source tells where a value was read from or written to.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Local keeps JSON-encoded values in the device-local cache.
type Local[T any] struct {
	cache *localcache.Cache
}

func NewLocal[T any](cache *localcache.Cache) *Local[T] {
	return &Local[T]{cache: cache}
}

func (l *Local[T]) Put(ctx context.Context, key Key, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return l.cache.Set(ctx, key.String(), string(data))
}

func (l *Local[T]) Get(ctx context.Context, key Key) (T, error) {
	var v T
	raw, err := l.cache.Get(ctx, key.String())
	if errors.Is(err, localcache.ErrMissing) {
		return v, ErrNotFound
	}
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

// Delete forgets the value stored under key.
func (l *Local[T]) Delete(ctx context.Context, key Key) error {
	return l.cache.Delete(ctx, key.String())
}

// List returns every value stored for a user and purpose, keyed by qualifier.
func (l *Local[T]) List(ctx context.Context, userID, purpose string) (map[string]T, error) {
	prefix := Key{UserID: userID, Purpose: purpose}.String()
	entries, err := l.cache.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make(map[string]T, len(entries))
	for _, e := range entries {
		var v T
		if err := json.Unmarshal([]byte(e.Value), &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Key, err)
		}
		out[strings.TrimPrefix(e.Key, prefix)] = v
	}
	return out, nil
}

// Deleter is implemented by backends that can forget a record.
type Deleter interface {
	Delete(ctx context.Context, key Key) error
}

// Funcs adapts a pair of functions to Backend.
type Funcs[T any] struct {
	PutFunc func(ctx context.Context, key Key, value T) error
	GetFunc func(ctx context.Context, key Key) (T, error)
}

func (f Funcs[T]) Put(ctx context.Context, key Key, value T) error { return f.PutFunc(ctx, key, value) }

func (f Funcs[T]) Get(ctx context.Context, key Key) (T, error) { return f.GetFunc(ctx, key) }

// Fallback writes to Remote and falls back to Local when the remote write fails.
// A successful remote write drops the local copy when Local is a Deleter.
// Reads prefer Remote and fall back to Local on any remote error, including not found.
type Fallback[T any] struct {
	Remote Backend[T]
	Local  Backend[T]
	Log    *slog.Logger

	// Newer, when set, makes reads consult both backends and return the value
	// for which Newer(candidate, other) holds.
	Newer func(a, b T) bool
}

func (f *Fallback[T]) logger() *slog.Logger {
	if f.Log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return f.Log
}

func (f *Fallback[T]) Put(ctx context.Context, key Key, value T) error {
	_, err := f.PutFrom(ctx, key, value)
	return err
}

// PutFrom is Put that also reports which backend accepted the value.
func (f *Fallback[T]) PutFrom(ctx context.Context, key Key, value T) (Source, error) {
	remoteErr := f.Remote.Put(ctx, key, value)
	if remoteErr == nil {
		if d, ok := f.Local.(Deleter); ok {
			if err := d.Delete(ctx, key); err != nil {
				f.logger().Warn("drop local copy", "key", key.String(), "error", err)
			}
		}
		return SourceRemote, nil
	}
	f.logger().Warn("remote write failed, storing locally", "key", key.String(), "error", remoteErr)

	if err := f.Local.Put(ctx, key, value); err != nil {
		return "", errors.Join(remoteErr, fmt.Errorf("local write: %w", err))
	}
	return SourceLocal, nil
}

func (f *Fallback[T]) Get(ctx context.Context, key Key) (T, error) {
	v, _, err := f.GetFrom(ctx, key)
	return v, err
}

// GetFrom is Get that also reports which backend served the value.
func (f *Fallback[T]) GetFrom(ctx context.Context, key Key) (T, Source, error) {
	v, err := f.Remote.Get(ctx, key)
	if err == nil {
		if f.Newer == nil {
			return v, SourceRemote, nil
		}
		lv, lerr := f.Local.Get(ctx, key)
		switch {
		case lerr == nil && f.Newer(lv, v):
			return lv, SourceLocal, nil
		case lerr != nil && !errors.Is(lerr, ErrNotFound):
			f.logger().Warn("local read failed, using remote copy", "key", key.String(), "error", lerr)
		}
		return v, SourceRemote, nil
	}
	if !errors.Is(err, ErrNotFound) {
		f.logger().Warn("remote read failed, using local copy", "key", key.String(), "error", err)
	}

	v, lerr := f.Local.Get(ctx, key)
	if lerr != nil {
		return v, "", lerr
	}
	return v, SourceLocal, nil
}
