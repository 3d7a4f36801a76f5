package storage

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/saywhat/internal/client/repositories/records"
	"github.com/dmitrijs2005/saywhat/internal/logging"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestInitDatabase_CreatesRecordsTable(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "saywhat.db")

	db, err := InitDatabase(ctx, dsn, logging.NewNop())
	require.NoError(t, err)
	defer db.Close()

	require.True(t, tableExists(t, db, "goose_db_version"))
	require.True(t, tableExists(t, db, "records"))
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "saywhat.db")

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db, logging.NewNop()))
	require.NoError(t, RunMigrations(ctx, db, logging.NewNop()))
	require.True(t, tableExists(t, db, "records"))
}

func TestInitDatabase_RecordsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "saywhat.db")

	db, err := InitDatabase(ctx, dsn, logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, records.NewSQLiteRepository(db).Set(ctx, records.KeyProfile, []byte(`{"id":"p1"}`)))
	require.NoError(t, db.Close())

	db, err = InitDatabase(ctx, dsn, logging.NewNop())
	require.NoError(t, err)
	defer db.Close()

	v, err := records.NewSQLiteRepository(db).Get(ctx, records.KeyProfile)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"p1"}`, string(v))
}

func TestRunMigrations_ReportsThroughLogger(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "saywhat.db")
	var buf bytes.Buffer
	logger := logging.New(&buf, "json", "info")

	db, err := InitDatabase(ctx, dsn, logger)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(ctx, db, logger))
	require.NoError(t, db.Close())

	out := buf.String()
	assert.Contains(t, out, `"level":"INFO"`)
	assert.Contains(t, out, "no migrations to run")
}
