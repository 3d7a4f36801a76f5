// Package models defines client-side data models used by the Say What client.
package models

import "github.com/dmitrijs2005/saywhat/internal/models"

// Profile links local settings to a profile on the sharing backend.
type Profile struct {
	// ID is the profile identifier on the backend.
	ID string `json:"id"`

	// Password is the secret entered by the user.
	Password string `json:"password"`

	// ServerPassword is the derived bearer credential (hex SHA-1 of Password).
	ServerPassword string `json:"serverPassword"`

	// ServerETag is the last fingerprint confirmed present on the backend.
	ServerETag string `json:"serverETag"`
}

// Cached is the snapshot handed to subscribers of the settings engine.
type Cached struct {
	Profile  Profile
	Settings models.Settings
}

// SyncState is the synchronization status of the local profile.
type SyncState int

const (
	// StateNoProfile means no profile id has been entered.
	StateNoProfile SyncState = iota
	// StateLocalOnly means local settings are not confirmed on the backend.
	StateLocalOnly
	// StateSyncing means a download or upload is in flight.
	StateSyncing
	// StateSynced means the backend confirmed the current local fingerprint.
	StateSynced
	// StateAuthFailed means the backend rejected the credential and the
	// password must be entered again.
	StateAuthFailed
)

func (s SyncState) String() string {
	switch s {
	case StateNoProfile:
		return "no-profile"
	case StateLocalOnly:
		return "local-only"
	case StateSyncing:
		return "syncing"
	case StateSynced:
		return "synced"
	case StateAuthFailed:
		return "auth-failed"
	default:
		return "unknown"
	}
}
