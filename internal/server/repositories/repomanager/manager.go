// Package repomanager opens the profile store and hands out repositories,
// optionally bound to a transaction.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/saywhat/internal/server/repositories/profiles"
)

type RepositoryManager interface {
	// Profiles returns a repository outside of any transaction.
	Profiles() profiles.Repository
	// WithTx runs fn with a repository bound to one transaction. The
	// transaction commits when fn returns nil.
	WithTx(ctx context.Context, fn func(ctx context.Context, repo profiles.Repository) error) error
	RunMigrations(ctx context.Context) error
	Close() error
}
