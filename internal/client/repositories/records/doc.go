// Package records provides the client-side persistence of opaque records:
// the serialized settings, the serialized profile and the serialized
// generation history, each stored under a fixed key.
//
// # Implementations
//
//   - SQLiteRepository: persistent store over dbx.DBTX (table "records").
//   - NoopRepository: used when the client runs without a local database;
//     writes are dropped and reads report "absent". This is not an error.
//
// Get follows the (nil, nil) contract for missing keys.
package records

// Fixed record keys.
const (
	KeySettings = "say_what_settings"
	KeyProfile  = "say_what_profileInfo"
	KeyHistory  = "say_what_history"
)
