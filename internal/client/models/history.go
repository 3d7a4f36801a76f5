package models

import "github.com/dmitrijs2005/saywhat/internal/models"

// GeneratedItem is one entry of the local generation history.
type GeneratedItem struct {
	// HistoryItemID is the durable identity of the audio on the speech provider.
	HistoryItemID string `json:"history_item_id"`

	Text string `json:"text"`

	// Settings is a copy of the generation settings used for this item.
	Settings models.GenerationSettings `json:"settings"`

	// GenMS is the synthesis round-trip time in milliseconds.
	GenMS int64 `json:"gen_ms"`

	// GenDate is the creation time in Unix milliseconds.
	GenDate int64 `json:"gen_date"`

	KBBlobSize int64 `json:"kb_blob_size"`

	// BlobURL is a session-local handle to the audio; empty means the
	// payload has not been fetched in this session.
	BlobURL string `json:"blob_url"`

	Favorite bool `json:"favorite"`
}

// SettingsMatch reports whether the item was generated with gs.
func (g *GeneratedItem) SettingsMatch(gs models.GenerationSettings) bool {
	return g.Settings.Equal(gs)
}
