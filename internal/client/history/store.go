// Package history keeps the list of generated speech items, newest first,
// persisted in the local store. Audio payloads live only in the session
// blob registry; items restored from the local store get their audio
// fetched again from the speech provider.
package history

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/dmitrijs2005/saywhat/internal/client/models"
	"github.com/dmitrijs2005/saywhat/internal/client/repositories/records"
	"github.com/dmitrijs2005/saywhat/internal/client/speech"
	"github.com/dmitrijs2005/saywhat/internal/client/store"
	"github.com/dmitrijs2005/saywhat/internal/logging"
	"github.com/dmitrijs2005/saywhat/internal/pubsub"
)

type AudioFetcher interface {
	HistoryItemAudio(ctx context.Context, id string) (*speech.Audio, error)
}

// Blobs mints and releases session-local audio handles.
type Blobs interface {
	Mint(data []byte, contentType string) string
	Revoke(handle string)
}

type Store struct {
	source  store.KeySource
	fetcher AudioFetcher
	blobs   Blobs
	repo    records.Repository
	logger  logging.Logger
	baseCtx context.Context

	mu          sync.Mutex
	items       []*models.GeneratedItem
	hydrated    bool
	backfilling bool
	subscribers int
	keyUnsub    func()

	persistMu sync.Mutex

	changes pubsub.Topic
	wg      sync.WaitGroup
}

func NewStore(source store.KeySource, fetcher AudioFetcher, blobs Blobs, repo records.Repository, logger logging.Logger) *Store {
	return &Store{
		source:  source,
		fetcher: fetcher,
		blobs:   blobs,
		repo:    repo,
		logger:  logger.With("module", "history"),
		baseCtx: context.Background(),
	}
}

// Subscribe registers fn for changes of the list. While the store has
// subscribers an API key change fetches missing audio.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {

	unsub := s.changes.Subscribe(fn)

	s.mu.Lock()
	s.subscribers++
	if s.keyUnsub == nil {
		s.keyUnsub = s.source.SubscribeKeyChange(s.goBackfill)
	}
	s.mu.Unlock()

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

// Snapshot returns the items, newest first. The first call restores the
// persisted list and starts fetching its audio. A new slice is returned
// after every change.
func (s *Store) Snapshot() []*models.GeneratedItem {
	if s.hydrate(s.baseCtx) {
		s.goBackfill()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items
}

// hydrate loads the persisted list once. It reports whether any item was
// restored.
func (s *Store) hydrate(ctx context.Context) bool {

	s.mu.Lock()
	if s.hydrated {
		s.mu.Unlock()
		return false
	}
	s.hydrated = true
	s.mu.Unlock()

	data, err := s.repo.Get(ctx, records.KeyHistory)
	if err != nil {
		s.logger.Error(ctx, "cannot read history", "error", err)
		return false
	}
	if len(data) == 0 {
		return false
	}
	var loaded []*models.GeneratedItem
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Warn(ctx, "discarding unreadable history", "error", err)
		return false
	}
	if len(loaded) == 0 {
		return false
	}
	for _, item := range loaded {
		item.BlobURL = ""
	}

	s.mu.Lock()
	s.items = append(s.items, loaded...)
	s.mu.Unlock()

	s.logger.Debug(ctx, "history restored", "items", len(loaded))
	return true
}

// AddToHistory puts item first, persists the list and notifies.
func (s *Store) AddToHistory(item *models.GeneratedItem) {
	s.hydrate(s.baseCtx)

	s.mu.Lock()
	items := make([]*models.GeneratedItem, 0, len(s.items)+1)
	s.items = append(append(items, item), s.items...)
	s.mu.Unlock()

	s.persist(s.baseCtx)
	s.changes.Notify()
}

// RemoveFromHistory drops item, compared by identity, and releases its
// audio handle.
func (s *Store) RemoveFromHistory(item *models.GeneratedItem) {

	s.mu.Lock()
	items := make([]*models.GeneratedItem, 0, len(s.items))
	for _, it := range s.items {
		if it != item {
			items = append(items, it)
		}
	}
	removed := len(items) != len(s.items)
	s.items = items
	handle := item.BlobURL
	s.mu.Unlock()

	if removed && handle != "" {
		s.blobs.Revoke(handle)
	}
	s.persist(s.baseCtx)
	s.changes.Notify()
}

// SetFavorite marks or unmarks item and notifies.
func (s *Store) SetFavorite(item *models.GeneratedItem, favorite bool) {
	s.mu.Lock()
	item.Favorite = favorite
	s.mu.Unlock()
	s.UpdateFavorites()
}

// UpdateFavorites publishes favorite flags changed on shared items.
func (s *Store) UpdateFavorites() {
	s.rewrap()
}

// UpdateAudio publishes audio handles filled in on shared items.
func (s *Store) UpdateAudio() {
	s.rewrap()
}

func (s *Store) rewrap() {
	s.mu.Lock()
	s.items = append([]*models.GeneratedItem(nil), s.items...)
	s.mu.Unlock()

	s.persist(s.baseCtx)
	s.changes.Notify()
}

func (s *Store) goBackfill() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Backfill(s.baseCtx)
	}()
}

// Backfill fetches, one at a time, the audio of items that have no
// handle yet. It does nothing without a usable API key or while another
// backfill runs. Failed items are skipped and retried on the next call.
func (s *Store) Backfill(ctx context.Context) {

	s.mu.Lock()
	if s.backfilling {
		s.mu.Unlock()
		return
	}
	var missing []*models.GeneratedItem
	for _, it := range s.items {
		if it.BlobURL == "" {
			missing = append(missing, it)
		}
	}
	if len(missing) == 0 || !s.source.Settings().HasValidKey() {
		s.mu.Unlock()
		return
	}
	s.backfilling = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.backfilling = false
		s.mu.Unlock()
	}()

	filled := 0
	for _, it := range missing {
		audio, err := s.fetcher.HistoryItemAudio(ctx, it.HistoryItemID)
		if err != nil {
			s.logger.Warn(ctx, "cannot fetch history audio", "history_item_id", it.HistoryItemID, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		handle := s.blobs.Mint(audio.Data, audio.ContentType)

		s.mu.Lock()
		stale := it.BlobURL != "" || !slices.Contains(s.items, it)
		if !stale {
			it.BlobURL = handle
			filled++
		}
		s.mu.Unlock()

		if stale {
			s.blobs.Revoke(handle)
		}
	}

	s.logger.Debug(ctx, "history audio backfilled", "missing", len(missing), "filled", filled)
	if filled > 0 {
		s.UpdateAudio()
	}
}

// Wait blocks until background backfills have finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) persist(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	stripped := make([]models.GeneratedItem, len(s.items))
	for i, it := range s.items {
		stripped[i] = *it
		stripped[i].BlobURL = ""
	}
	s.mu.Unlock()

	data, err := json.Marshal(stripped)
	if err == nil {
		err = s.repo.Set(ctx, records.KeyHistory, data)
	}
	if err != nil {
		s.logger.Error(ctx, "cannot persist history", "error", err)
	}
}
