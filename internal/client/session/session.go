// Package session assembles the client components that live for the
// duration of one run: the settings engine, the option stores for voices,
// models and pronunciation dictionaries, the history store, the speech
// client and the audio blob registry.
package session

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/dmitrijs2005/saywhat/internal/client/blobs"
	"github.com/dmitrijs2005/saywhat/internal/client/client"
	"github.com/dmitrijs2005/saywhat/internal/client/history"
	clientmodels "github.com/dmitrijs2005/saywhat/internal/client/models"
	"github.com/dmitrijs2005/saywhat/internal/client/repositories/records"
	"github.com/dmitrijs2005/saywhat/internal/client/settings"
	"github.com/dmitrijs2005/saywhat/internal/client/speech"
	"github.com/dmitrijs2005/saywhat/internal/client/store"
	"github.com/dmitrijs2005/saywhat/internal/logging"
)

type Options struct {
	// RequestTimeout bounds each call to the profile backend. Zero means
	// no timeout.
	RequestTimeout time.Duration

	// SpeechRPS throttles calls to the speech provider. Zero disables it.
	SpeechRPS float64

	// SpeechHTTPClient replaces the default client used for the speech
	// provider.
	SpeechHTTPClient *http.Client
}

type Session struct {
	Engine       *settings.Engine
	Speech       *speech.Client
	Blobs        *blobs.Registry
	Voices       *store.APIStore[clientmodels.Option]
	Models       *store.APIStore[clientmodels.Option]
	Dictionaries *store.APIStore[clientmodels.Option]
	History      *history.Store

	logger logging.Logger
	now    func() time.Time
}

// New wires the components and restores the persisted settings, profile
// and history.
func New(ctx context.Context, profiles client.Client, repo records.Repository, logger logging.Logger, opts Options) (*Session, error) {

	engine := settings.NewEngine(profiles, repo, logger, settings.WithRequestTimeout(opts.RequestTimeout))

	speechOpts := []speech.Option{speech.WithRateLimit(opts.SpeechRPS)}
	if opts.SpeechHTTPClient != nil {
		speechOpts = append(speechOpts, speech.WithHTTPClient(opts.SpeechHTTPClient))
	}
	sc := speech.NewClient(engine, logger, speechOpts...)
	reg := blobs.NewRegistry()

	s := &Session{
		Engine:       engine,
		Speech:       sc,
		Blobs:        reg,
		Voices:       store.NewAPIStore("voices", engine, sc.VoiceOptions, logger),
		Models:       store.NewAPIStore("models", engine, sc.ModelOptions, logger),
		Dictionaries: store.NewAPIStore("dictionaries", engine, sc.DictionaryOptions, logger),
		History:      history.NewStore(engine, sc, reg, repo, logger),
		logger:       logger.With("module", "session"),
		now:          time.Now,
	}

	if err := engine.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	s.History.Snapshot()

	return s, nil
}

// GenerateSpeech synthesizes text with the current generation settings and
// records the result in the history.
func (s *Session) GenerateSpeech(ctx context.Context, text string) (*clientmodels.GeneratedItem, error) {

	gs := s.Engine.Settings().GenerationSettings
	start := s.now()

	audio, err := s.Speech.Synthesize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("generating speech: %w", err)
	}
	elapsed := s.now().Sub(start)

	item := &clientmodels.GeneratedItem{
		HistoryItemID: audio.HistoryItemID,
		Text:          text,
		Settings:      gs,
		GenMS:         int64(math.Ceil(float64(elapsed) / float64(time.Millisecond))),
		GenDate:       s.now().UnixMilli(),
		KBBlobSize:    int64((len(audio.Data) + 1023) / 1024),
		BlobURL:       s.Blobs.Mint(audio.Data, audio.ContentType),
	}
	s.History.AddToHistory(item)

	s.logger.Info(ctx, "speech generated", "history_item_id", item.HistoryItemID,
		"gen_ms", item.GenMS, "kb", item.KBBlobSize)
	return item, nil
}

// RestoreSettings makes the generation settings of item current. It
// reports false when they already were.
func (s *Session) RestoreSettings(item *clientmodels.GeneratedItem) bool {
	if item.SettingsMatch(s.Engine.Settings().GenerationSettings) {
		return false
	}
	s.Engine.UpdateLocalGenerationSettings(item.Settings)
	return true
}

// Close waits for background downloads, uploads, refreshes and backfills.
func (s *Session) Close() {
	s.Engine.Wait()
	s.Voices.Wait()
	s.Models.Wait()
	s.Dictionaries.Wait()
	s.History.Wait()
}
