package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/saywhat/internal/server/repositories/profiles"
)

// InMemoryRepositoryManager keeps profiles for the life of the process.
// Transactions are serialized; a failed transaction does not roll back
// writes it already made.
type InMemoryRepositoryManager struct {
	txMu     sync.Mutex
	profiles *profiles.InMemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{profiles: profiles.NewInMemoryRepository()}
}

func (m *InMemoryRepositoryManager) Profiles() profiles.Repository {
	return m.profiles
}

func (m *InMemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repo profiles.Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx, m.profiles)
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) Close() error {
	return nil
}
