package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/saywhat/internal/common"
	shared "github.com/dmitrijs2005/saywhat/internal/models"
	"github.com/dmitrijs2005/saywhat/internal/server/models"
)

const (
	selectRe    = `(?s)^SELECT\s+id,\s*settings,\s*credential_hash,\s*created_at,\s*updated_at\s+FROM\s+profiles\s+WHERE\s+id\s*=\s*\$1\s*$`
	selectForRe = `(?s)^SELECT\s+id,\s*settings,\s*credential_hash,\s*created_at,\s*updated_at\s+FROM\s+profiles\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE\s*$`
	insertRe    = `(?s)^INSERT\s+INTO\s+profiles\s*\(id,\s*settings,\s*credential_hash\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*ON\s+CONFLICT\s*\(id\)\s*DO\s+NOTHING\s+RETURNING\s+created_at,\s*updated_at\s*$`
	updateRe    = `(?s)^UPDATE\s+profiles\s+SET\s+settings\s*=\s*\$2,\s*credential_hash\s*=\s*\$3,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+RETURNING\s+updated_at\s*$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func sampleSettings() shared.Settings {
	s := shared.DefaultSettings()
	s.APIKey = "0123456789abcdef0123456789abcdef"
	return s
}

func settingsJSON(t *testing.T, s shared.Settings) []byte {
	t.Helper()
	b, err := json.Marshal(s)
	require.NoError(t, err)
	return b
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "settings", "credential_hash", "created_at", "updated_at"}).
		AddRow("kitchen", settingsJSON(t, sampleSettings()), []byte("hash"), created, created)
	mock.ExpectQuery(selectRe).WithArgs("kitchen").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "kitchen")
	require.NoError(t, err)
	assert.Equal(t, "kitchen", got.ID)
	assert.Equal(t, sampleSettings(), got.Settings)
	assert.Equal(t, []byte("hash"), got.CredentialHash)
	assert.Equal(t, created, got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NullCredential(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "settings", "credential_hash", "created_at", "updated_at"}).
		AddRow("kitchen", settingsJSON(t, sampleSettings()), nil, now, now)
	mock.ExpectQuery(selectRe).WithArgs("kitchen").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "kitchen")
	require.NoError(t, err)
	assert.False(t, got.Claimed())
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectRe).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGet_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectRe).WithArgs("kitchen").WillReturnError(errors.New("db down"))

	_, err := repo.Get(context.Background(), "kitchen")
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGet_CorruptSettings(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "settings", "credential_hash", "created_at", "updated_at"}).
		AddRow("kitchen", []byte(`{not json`), nil, now, now)
	mock.ExpectQuery(selectRe).WithArgs("kitchen").WillReturnRows(rows)

	_, err := repo.Get(context.Background(), "kitchen")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding settings of kitchen")
}

func TestGetForUpdate_LocksRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "settings", "credential_hash", "created_at", "updated_at"}).
		AddRow("kitchen", settingsJSON(t, sampleSettings()), nil, now, now)
	mock.ExpectQuery(selectForRe).WithArgs("kitchen").WillReturnRows(rows)

	_, err := repo.GetForUpdate(context.Background(), "kitchen")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(insertRe).
		WithArgs("kitchen", settingsJSON(t, sampleSettings()), nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	p := &models.Profile{ID: "kitchen", Settings: sampleSettings()}
	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, now, p.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_Conflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertRe).
		WithArgs("kitchen", settingsJSON(t, sampleSettings()), nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}))

	err := repo.Create(context.Background(), &models.Profile{ID: "kitchen", Settings: sampleSettings()})
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("want common.ErrConflict, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertRe).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.Profile{ID: "kitchen", Settings: sampleSettings()})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUpdate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(updateRe).
		WithArgs("kitchen", settingsJSON(t, sampleSettings()), []byte("hash")).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))

	p := &models.Profile{ID: "kitchen", Settings: sampleSettings(), CredentialHash: []byte("hash")}
	require.NoError(t, repo.Update(context.Background(), p))
	assert.Equal(t, now, p.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(updateRe).
		WithArgs("ghost", settingsJSON(t, sampleSettings()), nil).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	err := repo.Update(context.Background(), &models.Profile{ID: "ghost", Settings: sampleSettings()})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
