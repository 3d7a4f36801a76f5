package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/saywhat/internal/common"
	"github.com/dmitrijs2005/saywhat/internal/dbx"
	"github.com/dmitrijs2005/saywhat/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectProfile = `SELECT id, settings, credential_hash, created_at, updated_at FROM profiles
		 WHERE id = $1`

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Profile, error) {
	return r.get(ctx, selectProfile, id)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.Profile, error) {
	return r.get(ctx, selectProfile+`
		 FOR UPDATE`, id)
}

func (r *PostgresRepository) get(ctx context.Context, query, id string) (*models.Profile, error) {
	var (
		p        models.Profile
		settings []byte
	)
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &settings, &p.CredentialHash, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(settings, &p.Settings); err != nil {
		return nil, fmt.Errorf("decoding settings of %s: %w", id, err)
	}
	return &p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Profile) error {
	settings, err := json.Marshal(p.Settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	query :=
		`INSERT INTO profiles (id, settings, credential_hash)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING
		 RETURNING created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query, p.ID, settings, nullBytes(p.CredentialHash)).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Profile) error {
	settings, err := json.Marshal(p.Settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	query :=
		`UPDATE profiles SET settings = $2, credential_hash = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`

	err = r.db.QueryRowContext(ctx, query, p.ID, settings, nullBytes(p.CredentialHash)).
		Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// nullBytes stores an empty credential as NULL.
func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
