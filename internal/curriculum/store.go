package curriculum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// ErrNotLoaded is returned by Current before the first successful load.
var ErrNotLoaded = errors.New("catalogue not loaded")

// Store holds the current Catalogue snapshot. Readers always see one
// consistent snapshot; Reload swaps in a new one atomically.
type Store struct {
	source  Source
	strict  bool
	current atomic.Pointer[Catalogue]
	group   singleflight.Group
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStrictValidation rejects loads that fail Validate instead of logging.
func WithStrictValidation(strict bool) StoreOption {
	return func(s *Store) { s.strict = strict }
}

// NewStore creates a store and performs the initial load.
func NewStore(ctx context.Context, source Source, opts ...StoreOption) (*Store, error) {
	s := &Store{source: source}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := s.Reload(ctx); err != nil {
		return nil, fmt.Errorf("loading catalogue: %w", err)
	}
	return s, nil
}

// NewStaticStore wraps a fixed topic list. It never reloads from anywhere
// else and is mainly useful in tests.
func NewStaticStore(topics []Topic) *Store {
	s := &Store{source: staticSource(topics)}
	s.current.Store(NewCatalogue(topics))
	return s
}

// Current returns the active snapshot.
func (s *Store) Current() (*Catalogue, error) {
	c := s.current.Load()
	if c == nil {
		return nil, ErrNotLoaded
	}
	return c, nil
}

// Reload loads, validates and swaps in a fresh snapshot. Concurrent calls
// share one load. On failure the previous snapshot stays active.
func (s *Store) Reload(ctx context.Context) (*Catalogue, error) {
	v, err, _ := s.group.Do("reload", func() (any, error) {
		topics, err := s.source.Load(ctx)
		if err != nil {
			return nil, err
		}
		if err := Validate(topics); err != nil {
			if s.strict {
				return nil, err
			}
			var verr *ValidationError
			if errors.As(err, &verr) {
				for _, p := range verr.Problems {
					slog.Warn("catalogue problem", "topic_id", p.TopicID, "problem", p.Message)
				}
			}
		}
		c := NewCatalogue(topics)
		s.current.Store(c)
		slog.Info("catalogue loaded", "topics", c.Len(), "version", c.Version())
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Catalogue), nil
}

type staticSource []Topic

func (s staticSource) Load(context.Context) ([]Topic, error) {
	return []Topic(s), nil
}
