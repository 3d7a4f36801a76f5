// Package profiles stores profile settings and credentials for the
// profile server.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/saywhat/internal/server/models"
)

// Repository persists profiles. Get and GetForUpdate return
// common.ErrorNotFound for an unknown id, Create returns common.ErrConflict
// when the id is taken and Update returns common.ErrorNotFound when it is
// not.
type Repository interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
	// GetForUpdate is Get that also locks the row until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Profile, error)
	Create(ctx context.Context, p *models.Profile) error
	Update(ctx context.Context, p *models.Profile) error
}
