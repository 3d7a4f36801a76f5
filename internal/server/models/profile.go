// Package models holds the records stored by the profile server.
package models

import (
	"time"

	"github.com/dmitrijs2005/saywhat/internal/fingerprint"
	shared "github.com/dmitrijs2005/saywhat/internal/models"
)

// Profile is a named settings record shared between clients. A profile
// created without credentials is unclaimed until the first authenticated
// request stores the hash of its bearer.
type Profile struct {
	ID             string
	Settings       shared.Settings
	CredentialHash []byte
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Claimed reports whether a credential has been stored for the profile.
func (p *Profile) Claimed() bool {
	return len(p.CredentialHash) > 0
}

// ETag is the fingerprint of the stored settings, unquoted.
func (p *Profile) ETag() string {
	return fingerprint.Settings(p.Settings)
}
