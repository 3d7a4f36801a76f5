package profiles

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/saywhat/internal/common"
	"github.com/dmitrijs2005/saywhat/internal/server/models"
)

// InMemoryRepository keeps profiles in a map. Stored values are copied in
// and out, so callers never share state with the repository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
	now      func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{profiles: make(map[string]models.Profile), now: time.Now}
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*models.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(p), nil
}

// GetForUpdate is Get; the in-memory manager serializes transactions.
func (r *InMemoryRepository) GetForUpdate(ctx context.Context, id string) (*models.Profile, error) {
	return r.Get(ctx, id)
}

func (r *InMemoryRepository) Create(ctx context.Context, p *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[p.ID]; ok {
		return common.ErrConflict
	}
	now := r.now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.profiles[p.ID] = *clone(*p)
	return nil
}

func (r *InMemoryRepository) Update(ctx context.Context, p *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.profiles[p.ID]
	if !ok {
		return common.ErrorNotFound
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = r.now()
	r.profiles[p.ID] = *clone(*p)
	return nil
}

func clone(p models.Profile) *models.Profile {
	if p.CredentialHash != nil {
		p.CredentialHash = append([]byte(nil), p.CredentialHash...)
	}
	return &p
}
