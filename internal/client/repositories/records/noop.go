package records

import "context"

type NoopRepository struct{}

func NewNoopRepository() NoopRepository {
	return NoopRepository{}
}

func (NoopRepository) Get(ctx context.Context, key string) ([]byte, error) { return nil, nil }

func (NoopRepository) Set(ctx context.Context, key string, value []byte) error { return nil }

func (NoopRepository) Delete(ctx context.Context, key string) error { return nil }
