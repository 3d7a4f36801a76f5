package settings

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/saywhat/internal/client/client"
	clientmodels "github.com/dmitrijs2005/saywhat/internal/client/models"
	"github.com/dmitrijs2005/saywhat/internal/client/repositories/records"
	"github.com/dmitrijs2005/saywhat/internal/fingerprint"
	"github.com/dmitrijs2005/saywhat/internal/logging"
	"github.com/dmitrijs2005/saywhat/internal/models"
	"github.com/dmitrijs2005/saywhat/internal/pubsub"
)

type Engine struct {
	client  client.Client
	repo    records.Repository
	logger  logging.Logger
	timeout time.Duration
	baseCtx context.Context

	mu       sync.Mutex
	profile  clientmodels.Profile
	settings models.Settings
	eTag     string
	state    clientmodels.SyncState
	inflight int

	// serializes writes to repo so the last write carries the latest state
	persistMu sync.Mutex

	changes        pubsub.Topic
	keyChanges     pubsub.Topic
	profileChanges pubsub.Topic

	wg sync.WaitGroup
}

type Option func(*Engine)

// WithRequestTimeout bounds every call to the profile backend.
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithBaseContext sets the context background downloads and uploads run
// with. Cancelling it aborts them.
func WithBaseContext(ctx context.Context) Option {
	return func(e *Engine) { e.baseCtx = ctx }
}

// NewEngine returns an engine holding default settings and an empty
// profile. Call Load to restore persisted state.
func NewEngine(c client.Client, repo records.Repository, logger logging.Logger, opts ...Option) *Engine {
	defaults := models.DefaultSettings()
	e := &Engine{
		client:   c,
		repo:     repo,
		logger:   logger.With("module", "settings"),
		baseCtx:  context.Background(),
		settings: defaults,
		eTag:     fingerprint.Settings(defaults),
		state:    clientmodels.StateNoProfile,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// DerivePassword returns the bearer credential for password: its SHA-1
// digest in lowercase hex.
func DerivePassword(password string) string {
	sum := sha1.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Load restores settings and profile from the local store, falling back to
// defaults for absent or unreadable records. A stored profile starts a
// background download.
func (e *Engine) Load(ctx context.Context) error {

	s := models.DefaultSettings()
	found, err := e.readRecord(ctx, records.KeySettings, &s)
	if err != nil {
		return err
	}
	if !found {
		s = models.DefaultSettings()
	}

	var p clientmodels.Profile
	hasProfile, err := e.readRecord(ctx, records.KeyProfile, &p)
	if err != nil {
		return err
	}
	if !hasProfile {
		p = clientmodels.Profile{}
	}

	e.mu.Lock()
	e.settings = s
	e.eTag = fingerprint.Settings(s)
	e.profile = p
	e.state = stateFor(p)
	e.mu.Unlock()

	e.logger.Debug(ctx, "settings loaded", "stored_settings", found, "profile_id", p.ID)

	if hasProfile {
		e.goDownload()
	}
	return nil
}

// readRecord decodes the record at key into v. A missing or corrupt record
// reports false; only repository failures are returned as errors.
func (e *Engine) readRecord(ctx context.Context, key string, v any) (bool, error) {

	data, err := e.repo.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		e.logger.Warn(ctx, "discarding unreadable record", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

func stateFor(p clientmodels.Profile) clientmodels.SyncState {
	if p.ID == "" {
		return clientmodels.StateNoProfile
	}
	return clientmodels.StateLocalOnly
}

// Snapshot returns the current profile and settings.
func (e *Engine) Snapshot() clientmodels.Cached {
	e.mu.Lock()
	defer e.mu.Unlock()
	return clientmodels.Cached{Profile: e.profile, Settings: e.settings}
}

// Settings returns the current settings.
func (e *Engine) Settings() models.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// Fingerprint returns the fingerprint of the current settings.
func (e *Engine) Fingerprint() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eTag
}

func (e *Engine) State() clientmodels.SyncState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Subscribe registers fn for every change of the snapshot.
func (e *Engine) Subscribe(fn func()) (unsubscribe func()) {
	return e.changes.Subscribe(fn)
}

// SubscribeKeyChange registers fn for changes of the API key value. It
// runs before the general change notification.
func (e *Engine) SubscribeKeyChange(fn func()) (unsubscribe func()) {
	return e.keyChanges.Subscribe(fn)
}

// SubscribeProfileChange registers fn for changes of the profile id or
// password, including the wipe after an authentication failure.
func (e *Engine) SubscribeProfileChange(fn func()) (unsubscribe func()) {
	return e.profileChanges.Subscribe(fn)
}

// Wait blocks until background downloads and uploads have finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// UpdateLocalProfile switches to another profile or password. All state
// confirmed by the backend is discarded and a download is started.
func (e *Engine) UpdateLocalProfile(id, password string) {

	e.mu.Lock()
	if e.profile.ID == id && e.profile.Password == password {
		e.mu.Unlock()
		return
	}
	e.profile = clientmodels.Profile{ID: id, Password: password}
	if e.inflight > 0 {
		e.state = clientmodels.StateSyncing
	} else {
		e.state = stateFor(e.profile)
	}
	e.mu.Unlock()

	e.logger.Info(e.baseCtx, "local profile changed", "profile_id", id)
	e.persistProfile(e.baseCtx)
	e.profileChanges.Notify()
	e.changes.Notify()
	e.goDownload()
}

// UpdateLocalSettings replaces the API key and generation settings,
// keeping the API root, and uploads the result if it was accepted.
func (e *Engine) UpdateLocalSettings(apiKey, outputFormat, latency, voiceID, modelID string,
	similarityBoost, stability float64, useSpeakerBoost bool, dictionary string) {

	gs := models.GenerationSettings{
		OutputFormat:             outputFormat,
		OptimizeStreamingLatency: latency,
		VoiceID:                  voiceID,
		ModelID:                  modelID,
		VoiceSettings: models.VoiceSettings{
			SimilarityBoost: similarityBoost,
			Stability:       stability,
			UseSpeakerBoost: useSpeakerBoost,
		},
		PronunciationDictionary: dictionary,
	}
	cur := e.Settings()
	e.updateAndUpload(models.Settings{APIKey: apiKey, APIRoot: cur.APIRoot, GenerationSettings: gs})
}

// UpdateLocalGenerationSettings replaces the generation settings only.
func (e *Engine) UpdateLocalGenerationSettings(gs models.GenerationSettings) {
	cur := e.Settings()
	e.updateAndUpload(models.Settings{APIKey: cur.APIKey, APIRoot: cur.APIRoot, GenerationSettings: gs})
}

func (e *Engine) updateAndUpload(s models.Settings) {
	if e.UpdateSettings(s) {
		e.goUpload()
	}
}

// UpdateSettings replaces the settings when any field differs from the
// current ones, persists them and notifies subscribers. Key subscribers
// are notified first when the API key changed. It reports whether the
// settings were replaced.
func (e *Engine) UpdateSettings(data models.Settings) bool {

	e.mu.Lock()
	cur := e.settings
	keyChanged := data.APIKey != cur.APIKey
	changed := keyChanged || data.APIRoot != cur.APIRoot ||
		!data.GenerationSettings.Equal(cur.GenerationSettings)
	if !changed {
		e.mu.Unlock()
		return false
	}
	e.settings = data
	e.eTag = fingerprint.Settings(data)
	if e.state == clientmodels.StateSynced && e.profile.ServerETag != e.eTag {
		e.state = clientmodels.StateLocalOnly
	}
	e.mu.Unlock()

	e.persistSettings(e.baseCtx)
	if keyChanged {
		e.keyChanges.Notify()
	}
	e.changes.Notify()
	return true
}

// DownloadProfile fetches the backend copy of the profile settings unless
// it matches the last confirmed fingerprint. Remote settings replace the
// local ones. A profile unknown to the backend is uploaded.
func (e *Engine) DownloadProfile(ctx context.Context) {

	e.mu.Lock()
	p := e.profile
	if p.ID == "" || p.Password == "" {
		e.mu.Unlock()
		return
	}
	derived := p.ServerPassword == ""
	if derived {
		p.ServerPassword = DerivePassword(p.Password)
		e.profile.ServerPassword = p.ServerPassword
	}
	e.beginSync()
	e.mu.Unlock()
	defer e.endSync()

	if derived {
		e.persistProfile(ctx)
	}

	resp := e.call(ctx, http.MethodGet, p.ID, func(ctx context.Context) (*client.Response, error) {
		return e.client.GetSettings(ctx, p.ID, p.ServerPassword, p.ServerETag)
	})

	switch resp.Status {
	case http.StatusNotFound:
		if !e.setServerETag(p, "") {
			return
		}
		e.logger.Info(ctx, "profile not on server, creating it", "profile_id", p.ID)
		e.UploadProfile(ctx)
	case http.StatusForbidden:
		e.logger.Error(ctx, "incorrect password on profile download", "profile_id", p.ID)
		e.authFailed(ctx, p)
	case http.StatusNotModified, http.StatusPreconditionFailed:
		e.logger.Debug(ctx, "profile settings up to date", "profile_id", p.ID)
	case http.StatusOK:
		var remote models.Settings
		if err := json.Unmarshal(resp.Body, &remote); err != nil {
			e.logger.Error(ctx, "cannot decode profile settings", "profile_id", p.ID, "error", err)
			return
		}
		if !e.setServerETag(p, fingerprint.Settings(remote)) {
			return
		}
		e.UpdateSettings(remote)
	default:
		e.logger.Error(ctx, "unexpected status on profile GET", "profile_id", p.ID, "status", resp.Status)
	}
}

// UploadProfile writes the local settings to the backend. Without a
// confirmed fingerprint the profile is created with an unauthenticated
// POST, otherwise it is replaced with a conditional PUT.
func (e *Engine) UploadProfile(ctx context.Context) {

	e.mu.Lock()
	p := e.profile
	s := e.settings
	eTag := e.eTag
	if p.ID == "" || p.ServerPassword == "" {
		e.mu.Unlock()
		return
	}
	e.beginSync()
	e.mu.Unlock()
	defer e.endSync()

	body, err := json.Marshal(s)
	if err != nil {
		e.logger.Error(ctx, "cannot encode settings", "error", err)
		return
	}

	method := http.MethodPut
	if p.ServerETag == "" {
		method = http.MethodPost
	}
	resp := e.call(ctx, method, p.ID, func(ctx context.Context) (*client.Response, error) {
		if method == http.MethodPost {
			return e.client.PostSettings(ctx, p.ID, body)
		}
		return e.client.PutSettings(ctx, p.ID, p.ServerPassword, eTag, body)
	})

	switch resp.Status {
	case http.StatusForbidden:
		e.logger.Error(ctx, "incorrect password on profile upload", "profile_id", p.ID)
		e.authFailed(ctx, p)
	case http.StatusNotModified, http.StatusPreconditionFailed:
		e.logger.Debug(ctx, "profile already matches local settings", "profile_id", p.ID)
		e.setServerETag(p, eTag)
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		confirmed := unquoteETag(resp.ETag)
		if confirmed == "" {
			e.logger.Warn(ctx, "no etag on profile upload", "profile_id", p.ID, "method", method)
			confirmed = eTag
		}
		e.setServerETag(p, confirmed)
	default:
		e.logger.Error(ctx, "unexpected status on profile upload", "profile_id", p.ID,
			"method", method, "status", resp.Status)
	}
}

// unquoteETag returns the opaque part of an ETag header value. Weak
// validators and unquoted values are accepted.
func unquoteETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}

// call runs one backend request. Transport failures are reported as a
// 500 response so they take the unexpected-status path.
func (e *Engine) call(ctx context.Context, method, id string, fn func(context.Context) (*client.Response, error)) *client.Response {

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := fn(ctx)
	if err != nil {
		e.logger.Error(ctx, "network error on profile request", "profile_id", id, "method", method, "error", err)
		return &client.Response{Status: http.StatusInternalServerError}
	}
	return resp
}

// sameProfile reports whether the current profile is still the one a
// request was issued for. Must be called with mu held.
func (e *Engine) sameProfile(p clientmodels.Profile) bool {
	return e.profile.ID == p.ID && e.profile.Password == p.Password
}

// setServerETag records the fingerprint confirmed by the backend. It is
// dropped when the profile changed while the request was in flight.
func (e *Engine) setServerETag(p clientmodels.Profile, eTag string) bool {

	e.mu.Lock()
	if !e.sameProfile(p) {
		e.mu.Unlock()
		return false
	}
	e.profile.ServerETag = eTag
	e.mu.Unlock()

	e.persistProfile(e.baseCtx)
	return true
}

func (e *Engine) authFailed(ctx context.Context, p clientmodels.Profile) {

	e.mu.Lock()
	if !e.sameProfile(p) {
		e.mu.Unlock()
		return
	}
	e.profile = clientmodels.Profile{ID: p.ID}
	e.state = clientmodels.StateAuthFailed
	e.mu.Unlock()

	e.persistProfile(ctx)
	e.profileChanges.Notify()
	e.changes.Notify()
}

// beginSync and endSync bracket a backend request. Must be called with mu
// held and without it, respectively.
func (e *Engine) beginSync() {
	e.inflight++
	if e.state != clientmodels.StateAuthFailed {
		e.state = clientmodels.StateSyncing
	}
}

func (e *Engine) endSync() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.inflight--
	if e.inflight > 0 || e.state == clientmodels.StateAuthFailed {
		return
	}
	switch {
	case e.profile.ID == "":
		e.state = clientmodels.StateNoProfile
	case e.profile.ServerETag != "" && e.profile.ServerETag == e.eTag:
		e.state = clientmodels.StateSynced
	default:
		e.state = clientmodels.StateLocalOnly
	}
}

func (e *Engine) goDownload() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.DownloadProfile(e.baseCtx)
	}()
}

func (e *Engine) goUpload() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.UploadProfile(e.baseCtx)
	}()
}

func (e *Engine) persistSettings(ctx context.Context) {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()
	e.writeRecord(ctx, records.KeySettings, e.Settings())
}

func (e *Engine) persistProfile(ctx context.Context) {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()
	e.writeRecord(ctx, records.KeyProfile, e.Snapshot().Profile)
}

func (e *Engine) writeRecord(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err == nil {
		err = e.repo.Set(ctx, key, data)
	}
	if err != nil {
		e.logger.Error(ctx, "cannot persist record", "key", key, "error", err)
	}
}
