package agent

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/saywhat/internal/client/client"
	"github.com/dmitrijs2005/saywhat/internal/client/config"
	clientmodels "github.com/dmitrijs2005/saywhat/internal/client/models"
	"github.com/dmitrijs2005/saywhat/internal/client/repositories/records"
	"github.com/dmitrijs2005/saywhat/internal/client/session"
	"github.com/dmitrijs2005/saywhat/internal/client/storage"
	"github.com/dmitrijs2005/saywhat/internal/cryptox"
	"github.com/dmitrijs2005/saywhat/internal/filex"
	"github.com/dmitrijs2005/saywhat/internal/logging"
	"golang.org/x/term"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	session *session.Session
	db      *sql.DB

	mu    sync.Mutex
	state clientmodels.SyncState

	wg sync.WaitGroup
}

// historyReportLimit caps how many provider history items are counted.
const historyReportLimit = 100

// NewApp opens the local database (when configured), wires the session and
// asks for the profile password if it is needed and not configured.
func NewApp(ctx context.Context, c *config.Config, stdout io.Writer) (*App, error) {

	logger := logging.New(stdout, c.LogFormat, c.LogLevel)

	var (
		repo records.Repository = records.NewNoopRepository()
		db   *sql.DB
	)
	if c.LocalDBPath != "" {
		if _, err := filex.EnsureParentDir(c.LocalDBPath); err != nil {
			return nil, fmt.Errorf("error preparing database directory: %w", err)
		}
		var err error
		db, err = storage.InitDatabase(ctx, c.LocalDBPath, logger.With("module", "storage"))
		if err != nil {
			return nil, fmt.Errorf("error initializing database: %w", err)
		}
		repo = records.NewSQLiteRepository(db)
	}

	profiles := client.NewHTTPClient(c.ProfileServerURL, c.RequestTimeout)
	s, err := session.New(ctx, profiles, repo, logger, session.Options{
		RequestTimeout: c.RequestTimeout,
		SpeechRPS:      c.SpeechRPS,
	})
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}

	if needsPassword(c, s.Engine.Snapshot().Profile) && term.IsTerminal(int(os.Stdin.Fd())) {
		pw, err := GetPassword(stdout)
		if err != nil {
			s.Close()
			if db != nil {
				_ = db.Close()
			}
			return nil, fmt.Errorf("reading password: %w", err)
		}
		c.ProfilePassword = string(pw)
		cryptox.WipeByteArray(pw)
	}

	return &App{config: c, logger: logger, session: s, db: db, state: s.Engine.State()}, nil
}

// needsPassword reports whether the configured profile has no password,
// neither configured nor stored from an earlier run.
func needsPassword(c *config.Config, stored clientmodels.Profile) bool {
	if c.ProfileID == "" || c.ProfilePassword != "" {
		return false
	}
	return stored.ID != c.ProfileID || stored.Password == ""
}

// applyProfile switches the engine to the configured profile. An id
// given without a password keeps the credential stored for that id.
func (a *App) applyProfile() {
	id, password := a.config.ProfileID, a.config.ProfilePassword
	if id == "" {
		return
	}
	stored := a.session.Engine.Snapshot().Profile
	if password == "" && stored.ID == id {
		a.logger.Debug(context.Background(), "using stored profile credentials", "profile_id", id)
		return
	}
	a.session.Engine.UpdateLocalProfile(id, password)
}

func (a *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// setState logs transitions of the sync state.
func (a *App) setState(ctx context.Context, state clientmodels.SyncState) {
	a.mu.Lock()
	changed := a.state != state
	a.state = state
	a.mu.Unlock()

	if changed {
		a.logger.Info(ctx, "profile sync state changed", "state", state.String())
	}
}

// Run blocks until ctx is cancelled or a termination signal arrives.
func (a *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	a.logger.Info(ctx, "Starting agent...", "profile_server", a.config.ProfileServerURL)
	a.initSignalHandler(cancelFunc)

	s := a.session
	unsubs := []func(){
		s.Engine.Subscribe(func() { a.setState(ctx, s.Engine.State()) }),
		s.Voices.Subscribe(func() { a.logCount(ctx, "voices", len(s.Voices.Snapshot())) }),
		s.Models.Subscribe(func() { a.logCount(ctx, "models", len(s.Models.Snapshot())) }),
		s.Dictionaries.Subscribe(func() { a.logCount(ctx, "dictionaries", len(s.Dictionaries.Snapshot())) }),
		s.History.Subscribe(func() { a.logCount(ctx, "history", len(s.History.Snapshot())) }),
		s.Engine.SubscribeProfileChange(func() { a.logProfile(ctx) }),
		s.Engine.SubscribeKeyChange(func() { a.goReportProviderHistory(ctx) }),
	}

	a.applyProfile()
	a.goReportProviderHistory(ctx)

	a.StartReconcileWatcher(ctx, a.config.ReconcileInterval)

	for _, u := range unsubs {
		u()
	}
	a.wg.Wait()
	a.Close()
	a.logger.Info(context.Background(), "agent stopped")
}

func (a *App) logCount(ctx context.Context, what string, n int) {
	a.logger.Info(ctx, "cache updated", "cache", what, "items", n)
}

func (a *App) logProfile(ctx context.Context) {
	p := a.session.Engine.Snapshot().Profile
	if p.ID != "" && p.Password == "" {
		a.logger.Warn(ctx, "profile has no password, sync is paused", "profile_id", p.ID)
		return
	}
	a.logger.Info(ctx, "profile changed", "profile_id", p.ID)
}

func (a *App) goReportProviderHistory(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.reportProviderHistory(ctx)
	}()
}

// reportProviderHistory logs how many recent generations the speech
// provider holds for the current API key.
func (a *App) reportProviderHistory(ctx context.Context) {
	if !a.session.Engine.Settings().HasValidKey() {
		return
	}
	items, err := a.session.Speech.HistoryItems(ctx, historyReportLimit)
	if err != nil {
		a.logger.Warn(ctx, "cannot list provider history", "error", err)
		return
	}
	a.logger.Info(ctx, "provider history", "items", len(items), "limit", historyReportLimit)
}

// StartReconcileWatcher downloads the profile every interval until ctx is
// done. Each round also gives a pending local change a chance to upload
// through the 404 and 412 paths of the download.
func (a *App) StartReconcileWatcher(ctx context.Context, interval time.Duration) {

	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.session.Engine.DownloadProfile(ctx)
			a.setState(ctx, a.session.Engine.State())
		case <-ctx.Done():
			return
		}
	}
}

// Close waits for background work and closes the local database.
func (a *App) Close() {
	a.session.Close()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error(context.Background(), "closing database", "error", err)
		}
	}
}
