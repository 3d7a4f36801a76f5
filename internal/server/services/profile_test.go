package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/saywhat/internal/common"
	"github.com/dmitrijs2005/saywhat/internal/fingerprint"
	shared "github.com/dmitrijs2005/saywhat/internal/models"
	"github.com/dmitrijs2005/saywhat/internal/server/models"
	"github.com/dmitrijs2005/saywhat/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/saywhat/internal/server/repositories/repomanager"
)

const bearer = "a9993e364706816aba3e25717850c26c9cd0d89d"

func newService(t *testing.T) (*ProfileService, *repomanager.InMemoryRepositoryManager) {
	t.Helper()
	m := repomanager.NewInMemoryRepositoryManager()
	return NewProfileService(m, bcrypt.MinCost), m
}

func settingsWithKey(key string) shared.Settings {
	s := shared.DefaultSettings()
	s.APIKey = key
	return s
}

func TestCreate_FillsMissingAndRejectsDuplicates(t *testing.T) {
	svc, m := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "kitchen", shared.Settings{APIKey: "k"})
	require.NoError(t, err)
	assert.False(t, p.Claimed())

	stored, err := m.Profiles().Get(ctx, "kitchen")
	require.NoError(t, err)
	want := settingsWithKey("k")
	want.GenerationSettings.VoiceSettings.UseSpeakerBoost = false
	assert.Equal(t, want, stored.Settings)
	assert.Equal(t, fingerprint.Settings(want), p.ETag())

	_, err = svc.Create(ctx, "kitchen", settingsWithKey("other"))
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestGet_UnknownProfile(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Get(context.Background(), "ghost", bearer, "")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGet_FirstBearerClaims(t *testing.T) {
	svc, m := newService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, "kitchen", settingsWithKey("k"))
	require.NoError(t, err)

	p, err := svc.Get(ctx, "kitchen", bearer, "")
	require.NoError(t, err)
	assert.Equal(t, "k", p.Settings.APIKey)

	stored, err := m.Profiles().Get(ctx, "kitchen")
	require.NoError(t, err)
	assert.True(t, stored.Claimed())

	_, err = svc.Get(ctx, "kitchen", "someone-else", "")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = svc.Get(ctx, "kitchen", bearer, "")
	assert.NoError(t, err)
}

func TestGet_EmptyBearerNeverClaims(t *testing.T) {
	svc, m := newService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, "kitchen", settingsWithKey("k"))
	require.NoError(t, err)

	_, err = svc.Get(ctx, "kitchen", "", "")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	stored, err := m.Profiles().Get(ctx, "kitchen")
	require.NoError(t, err)
	assert.False(t, stored.Claimed())
}

func TestGet_NotModified(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, "kitchen", settingsWithKey("k"))
	require.NoError(t, err)

	p, err := svc.Get(ctx, "kitchen", bearer, created.ETag())
	assert.ErrorIs(t, err, common.ErrNotModified)
	require.NotNil(t, p)
	assert.Equal(t, created.ETag(), p.ETag())

	_, err = svc.Get(ctx, "kitchen", bearer, "00000000")
	assert.NoError(t, err)
}

func TestGet_NotModifiedStillClaims(t *testing.T) {
	svc, m := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, "kitchen", settingsWithKey("k"))
	require.NoError(t, err)

	_, err = svc.Get(ctx, "kitchen", bearer, created.ETag())
	require.ErrorIs(t, err, common.ErrNotModified)

	stored, err := m.Profiles().Get(ctx, "kitchen")
	require.NoError(t, err)
	assert.True(t, stored.Claimed())
}

func TestReplace_UpdatesSettings(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, "kitchen", settingsWithKey("k"))
	require.NoError(t, err)

	next := settingsWithKey("k2")
	p, err := svc.Replace(ctx, "kitchen", bearer, fingerprint.Settings(next), next)
	require.NoError(t, err)
	assert.Equal(t, fingerprint.Settings(next), p.ETag())

	got, err := svc.Get(ctx, "kitchen", bearer, "")
	require.NoError(t, err)
	assert.Equal(t, "k2", got.Settings.APIKey)
}

func TestReplace_PreconditionFailedWhenUnchanged(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, "kitchen", settingsWithKey("k"))
	require.NoError(t, err)

	p, err := svc.Replace(ctx, "kitchen", bearer, created.ETag(), settingsWithKey("ignored"))
	assert.ErrorIs(t, err, common.ErrPreconditionFailed)
	require.NotNil(t, p)
	assert.Equal(t, "k", p.Settings.APIKey)
}

func TestReplace_WrongBearer(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, "kitchen", settingsWithKey("k"))
	require.NoError(t, err)
	_, err = svc.Get(ctx, "kitchen", bearer, "")
	require.NoError(t, err)

	_, err = svc.Replace(ctx, "kitchen", "intruder", "", settingsWithKey("evil"))
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	got, err := svc.Get(ctx, "kitchen", bearer, "")
	require.NoError(t, err)
	assert.Equal(t, "k", got.Settings.APIKey)
}

func TestReplace_UnknownProfile(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Replace(context.Background(), "ghost", bearer, "", settingsWithKey("k"))
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

type brokenManager struct {
	repomanager.InMemoryRepositoryManager
}

func (*brokenManager) WithTx(ctx context.Context, fn func(ctx context.Context, repo profiles.Repository) error) error {
	return fn(ctx, brokenRepo{})
}

type brokenRepo struct{}

func (brokenRepo) Get(ctx context.Context, id string) (*models.Profile, error) {
	return nil, errors.New("db down")
}
func (brokenRepo) GetForUpdate(ctx context.Context, id string) (*models.Profile, error) {
	return nil, errors.New("db down")
}
func (brokenRepo) Create(ctx context.Context, p *models.Profile) error { return errors.New("db down") }
func (brokenRepo) Update(ctx context.Context, p *models.Profile) error { return errors.New("db down") }

func TestGet_RepositoryError(t *testing.T) {
	svc := NewProfileService(&brokenManager{}, 0)

	_, err := svc.Get(context.Background(), "kitchen", bearer, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
	assert.Contains(t, err.Error(), "db down")
}
