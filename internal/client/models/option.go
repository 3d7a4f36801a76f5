package models

// Option is a selectable value offered by the voice, model and
// pronunciation-dictionary stores.
type Option struct {
	Label string `json:"label"`
	ID    string `json:"id"`
}
