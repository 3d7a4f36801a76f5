// Package services contains the profile server's business logic:
// credential checks, conditional reads and writes of profile settings.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/saywhat/internal/common"
	"github.com/dmitrijs2005/saywhat/internal/cryptox"
	shared "github.com/dmitrijs2005/saywhat/internal/models"
	"github.com/dmitrijs2005/saywhat/internal/server/models"
	"github.com/dmitrijs2005/saywhat/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/saywhat/internal/server/repositories/repomanager"
)

// ProfileService reads and writes profile settings.
//
// Profiles created by Create carry no credential. The first authenticated
// Get or Replace claims the profile by storing a hash of its bearer; later
// requests must present the same bearer.
type ProfileService struct {
	repomanager repomanager.RepositoryManager
	hashCost    int
}

// NewProfileService builds a service over m. hashCost is the bcrypt cost of
// stored credentials; zero selects the default.
func NewProfileService(m repomanager.RepositoryManager, hashCost int) *ProfileService {
	if hashCost == 0 {
		hashCost = cryptox.DefaultCost
	}
	return &ProfileService{repomanager: m, hashCost: hashCost}
}

// Get returns the profile with the given id. When ifNoneMatch equals the
// current ETag it returns the profile together with common.ErrNotModified.
func (s *ProfileService) Get(ctx context.Context, id, bearer, ifNoneMatch string) (*models.Profile, error) {
	var p *models.Profile
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, repo profiles.Repository) error {
		var err error
		p, err = s.authorize(ctx, repo, id, bearer)
		return err
	})
	if err != nil {
		return nil, err
	}

	if ifNoneMatch != "" && ifNoneMatch == p.ETag() {
		return p, common.ErrNotModified
	}
	return p, nil
}

// Create stores settings for a new, unclaimed profile. Missing fields are
// filled with defaults. An existing id yields common.ErrConflict.
func (s *ProfileService) Create(ctx context.Context, id string, settings shared.Settings) (*models.Profile, error) {
	settings.FillMissing()
	p := &models.Profile{ID: id, Settings: settings}

	if err := s.repomanager.Profiles().Create(ctx, p); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating profile: %w", err)
	}
	return p, nil
}

// Replace overwrites the settings of an existing profile. When ifNoneMatch
// equals the current ETag nothing is written and the stored profile is
// returned together with common.ErrPreconditionFailed.
func (s *ProfileService) Replace(ctx context.Context, id, bearer, ifNoneMatch string, settings shared.Settings) (*models.Profile, error) {
	settings.FillMissing()

	var (
		p         *models.Profile
		unchanged bool
	)
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, repo profiles.Repository) error {
		var err error
		if p, err = s.authorize(ctx, repo, id, bearer); err != nil {
			return err
		}
		if ifNoneMatch != "" && ifNoneMatch == p.ETag() {
			unchanged = true
			return nil
		}

		p.Settings = settings
		if err := repo.Update(ctx, p); err != nil {
			return fmt.Errorf("error updating profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if unchanged {
		return p, common.ErrPreconditionFailed
	}
	return p, nil
}

// authorize loads the profile for update and checks bearer against it,
// claiming an unclaimed profile.
func (s *ProfileService) authorize(ctx context.Context, repo profiles.Repository, id, bearer string) (*models.Profile, error) {
	p, err := repo.GetForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error loading profile: %w", err)
	}

	if bearer == "" {
		return nil, common.ErrorUnauthorized
	}

	if p.Claimed() {
		if !cryptox.CheckCredential(p.CredentialHash, []byte(bearer)) {
			return nil, common.ErrorUnauthorized
		}
		return p, nil
	}

	hash, err := cryptox.HashCredential([]byte(bearer), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing credential: %w", err)
	}
	p.CredentialHash = hash
	if err := repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("error claiming profile: %w", err)
	}
	return p, nil
}
