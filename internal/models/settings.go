// Package models defines the settings records shared by the Say What client
// and the profile backend. The JSON shape is the wire format of the
// /settings/{id} endpoint and of the locally persisted settings record.
package models

// MinAPIKeyLength is the shortest API key that is considered usable for
// calls to the speech provider. Shorter keys are treated as absent.
const MinAPIKeyLength = 32

const (
	DefaultAPIRoot      = "https://api.elevenlabs.io/v1"
	DefaultOutputFormat = "mp3_44100_128"
	DefaultLatency      = "0"
	DefaultVoiceID      = "pNInz6obpgDQGcFmaJgB" // Adam
	DefaultModelID      = "eleven_turbo_v2"
)

// Settings is the full set of user settings synchronized with the backend.
type Settings struct {
	APIKey             string             `json:"api_key"`
	APIRoot            string             `json:"api_root"`
	GenerationSettings GenerationSettings `json:"generation_settings"`
}

// GenerationSettings holds the voice, model and output parameters used
// for speech synthesis.
type GenerationSettings struct {
	OutputFormat             string        `json:"output_format"`
	OptimizeStreamingLatency string        `json:"optimize_streaming_latency"`
	VoiceID                  string        `json:"voice_id"`
	ModelID                  string        `json:"model_id"`
	VoiceSettings            VoiceSettings `json:"voice_settings"`
	PronunciationDictionary  string        `json:"pronunciation_dictionary"`
}

type VoiceSettings struct {
	SimilarityBoost float64 `json:"similarity_boost"`
	Stability       float64 `json:"stability"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// DefaultSettings returns the settings used before anything was stored.
func DefaultSettings() Settings {
	return Settings{
		APIRoot: DefaultAPIRoot,
		GenerationSettings: GenerationSettings{
			OutputFormat:             DefaultOutputFormat,
			OptimizeStreamingLatency: DefaultLatency,
			VoiceID:                  DefaultVoiceID,
			ModelID:                  DefaultModelID,
			VoiceSettings: VoiceSettings{
				SimilarityBoost: 0.5,
				Stability:       0.5,
				UseSpeakerBoost: true,
			},
		},
	}
}

// HasValidKey reports whether the API key is long enough to be used.
func (s Settings) HasValidKey() bool {
	return len(s.APIKey) >= MinAPIKeyLength
}

// Equal compares all generation parameters field by field.
func (g GenerationSettings) Equal(o GenerationSettings) bool {
	return g == o
}

// FillMissing replaces empty fields with their defaults. Used by the backend
// before storing settings received from a client.
func (s *Settings) FillMissing() {
	d := DefaultSettings()
	setIfMissing(&s.APIRoot, d.APIRoot)
	g := &s.GenerationSettings
	setIfMissing(&g.OutputFormat, d.GenerationSettings.OutputFormat)
	setIfMissing(&g.OptimizeStreamingLatency, d.GenerationSettings.OptimizeStreamingLatency)
	setIfMissing(&g.VoiceID, d.GenerationSettings.VoiceID)
	setIfMissing(&g.ModelID, d.GenerationSettings.ModelID)
	setIfMissing(&g.VoiceSettings.SimilarityBoost, d.GenerationSettings.VoiceSettings.SimilarityBoost)
	setIfMissing(&g.VoiceSettings.Stability, d.GenerationSettings.VoiceSettings.Stability)
}

func setIfMissing[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
