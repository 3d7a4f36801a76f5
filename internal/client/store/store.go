// Package store provides APIStore, an observable cache over a list fetched
// from the speech provider. Stores are invalidated whenever the API key
// changes and emptied while the key is not usable.
package store

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/saywhat/internal/logging"
	"github.com/dmitrijs2005/saywhat/internal/models"
	"github.com/dmitrijs2005/saywhat/internal/pubsub"
)

// KeySource supplies the current credential and reports when it changes.
// The settings engine implements it.
type KeySource interface {
	Settings() models.Settings
	SubscribeKeyChange(fn func()) (unsubscribe func())
}

// FetchFunc loads the full list of items.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

type APIStore[T any] struct {
	name    string
	source  KeySource
	fetch   FetchFunc[T]
	logger  logging.Logger
	baseCtx context.Context

	mu          sync.Mutex
	cache       []T
	subscribers int
	keyUnsub    func()

	changes pubsub.Topic
	wg      sync.WaitGroup
}

type Option func(*storeOptions)

type storeOptions struct {
	baseCtx context.Context
}

// WithBaseContext sets the context background refreshes run with.
func WithBaseContext(ctx context.Context) Option {
	return func(o *storeOptions) { o.baseCtx = ctx }
}

func NewAPIStore[T any](name string, source KeySource, fetch FetchFunc[T], logger logging.Logger, opts ...Option) *APIStore[T] {
	o := storeOptions{baseCtx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}
	return &APIStore[T]{
		name:    name,
		source:  source,
		fetch:   fetch,
		logger:  logger.With("module", "store", "store", name),
		baseCtx: o.baseCtx,
	}
}

// Subscribe registers fn for changes of the cached list. While the store
// has subscribers it follows API key changes. An empty cache is filled in
// the background when the key is usable.
func (s *APIStore[T]) Subscribe(fn func()) (unsubscribe func()) {

	unsub := s.changes.Subscribe(fn)

	s.mu.Lock()
	s.subscribers++
	if s.keyUnsub == nil {
		s.keyUnsub = s.source.SubscribeKeyChange(s.onKeyChange)
	}
	needFetch := len(s.cache) == 0 && s.source.Settings().HasValidKey()
	s.mu.Unlock()

	if needFetch {
		s.logger.Debug(s.baseCtx, "empty cache on subscribe, fetching")
		s.goRefresh()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unsub()
			s.mu.Lock()
			s.subscribers--
			var keyUnsub func()
			if s.subscribers == 0 {
				keyUnsub, s.keyUnsub = s.keyUnsub, nil
			}
			s.mu.Unlock()
			if keyUnsub != nil {
				keyUnsub()
			}
		})
	}
}

// Snapshot returns the cached list without doing I/O. The same slice is
// returned until the content changes; callers must not modify it.
func (s *APIStore[T]) Snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache
}

// onKeyChange empties the cache at once for an unusable key so no
// subscriber sees items fetched with the previous key.
func (s *APIStore[T]) onKeyChange() {
	if !s.source.Settings().HasValidKey() {
		s.clear()
		return
	}
	s.goRefresh()
}

// Refresh reloads the list. With an unusable key the cache is emptied
// instead. Fetch failures keep the previous content and are only logged.
func (s *APIStore[T]) Refresh(ctx context.Context) {

	settings := s.source.Settings()
	if !settings.HasValidKey() {
		s.clear()
		return
	}

	items, err := s.fetch(ctx)
	if err != nil {
		s.logger.Warn(ctx, "fetch failed, keeping cached items", "error", err)
		return
	}

	// the key changed while fetching; the newer refresh wins
	if s.source.Settings().APIKey != settings.APIKey {
		s.logger.Debug(ctx, "dropping items fetched with a stale key")
		return
	}

	s.mu.Lock()
	s.cache = items
	s.mu.Unlock()

	s.logger.Debug(ctx, "cache refreshed", "items", len(items))
	s.changes.Notify()
}

func (s *APIStore[T]) clear() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
	s.changes.Notify()
}

func (s *APIStore[T]) goRefresh() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Refresh(s.baseCtx)
	}()
}

// Wait blocks until background refreshes have finished.
func (s *APIStore[T]) Wait() {
	s.wg.Wait()
}
