// Package speech is the client of the third-party speech provider API:
// voice, model and pronunciation-dictionary listings, generation history,
// history audio retrieval and speech synthesis. Every request is
// authenticated with the API key of the current settings.
package speech

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/saywhat/internal/models"
)

// SettingsSource supplies the settings to use for a request. The settings
// engine implements it.
type SettingsSource interface {
	Settings() models.Settings
}

type Voice struct {
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
}

type voicePage struct {
	Voices []Voice `json:"voices"`
}

type Language struct {
	LanguageID string `json:"language_id"`
	Name       string `json:"name"`
}

type Model struct {
	ModelID                            string     `json:"model_id"`
	Name                               string     `json:"name"`
	Description                        string     `json:"description"`
	CanBeFinetuned                     bool       `json:"can_be_finetuned"`
	CanDoTextToSpeech                  bool       `json:"can_do_text_to_speech"`
	CanDoVoiceConversion               bool       `json:"can_do_voice_conversion"`
	CanUseSpeakerBoost                 bool       `json:"can_use_speaker_boost"`
	CanUseStyle                        bool       `json:"can_use_style"`
	Languages                          []Language `json:"languages"`
	MaxCharactersRequestFreeUser       int        `json:"max_characters_request_free_user"`
	MaxCharactersRequestSubscribedUser int        `json:"max_characters_request_subscribed_user"`
	RequiresAlphaAccess                bool       `json:"requires_alpha_access"`
	ServesProVoices                    bool       `json:"serves_pro_voices"`
	TokenCostFactor                    float64    `json:"token_cost_factor"`
}

// DictionaryMetadata describes one pronunciation dictionary.
type DictionaryMetadata struct {
	ID               string `json:"id"`
	LatestVersionID  string `json:"latest_version_id"`
	Name             string `json:"name"`
	CreationTimeUnix int64  `json:"creation_time_unix"`
	Description      string `json:"description"`
}

type dictionaryPage struct {
	PronunciationDictionaries []DictionaryMetadata `json:"pronunciation_dictionaries"`
}

// DictionaryLocator pins a dictionary version for synthesis.
type DictionaryLocator struct {
	PronunciationDictionaryID string `json:"pronunciation_dictionary_id"`
	VersionID                 string `json:"version_id"`
}

// ParseDictionaryLocator splits the "id|version" form stored in settings.
// ok is false for the empty value and for malformed input.
func ParseDictionaryLocator(s string) (DictionaryLocator, bool) {
	parts := strings.Split(s, "|")
	if len(parts) != 2 {
		return DictionaryLocator{}, false
	}
	return DictionaryLocator{PronunciationDictionaryID: parts[0], VersionID: parts[1]}, true
}

// String is the inverse of ParseDictionaryLocator.
func (l DictionaryLocator) String() string {
	return l.PronunciationDictionaryID + "|" + l.VersionID
}

// HistoryItem is one generation recorded by the provider.
type HistoryItem struct {
	HistoryItemID string               `json:"history_item_id"`
	RequestID     string               `json:"request_id"`
	VoiceID       string               `json:"voice_id"`
	ModelID       string               `json:"model_id"`
	VoiceName     string               `json:"voice_name"`
	VoiceCategory string               `json:"voice_category"`
	Text          string               `json:"text"`
	DateUnix      int64                `json:"date_unix"`
	ContentType   string               `json:"content_type"`
	State         string               `json:"state"`
	Settings      models.VoiceSettings `json:"settings"`
}

type historyPage struct {
	History           []HistoryItem `json:"history"`
	LastHistoryItemID string        `json:"last_history_item_id"`
	HasMore           bool          `json:"has_more"`
}

// Audio is a binary payload returned by the provider.
type Audio struct {
	Data        []byte
	ContentType string
	// HistoryItemID is set for synthesis results.
	HistoryItemID string
}

type synthesisRequest struct {
	ModelID                         string               `json:"model_id"`
	Text                            string               `json:"text"`
	VoiceSettings                   models.VoiceSettings `json:"voice_settings"`
	PronunciationDictionaryLocators []DictionaryLocator  `json:"pronunciation_dictionary_locators,omitempty"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	URL    string
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s got (%d): %s", e.URL, e.Status, e.Detail)
}
