// Package settings keeps the local settings and profile of a Say What
// client and reconciles them with the profile-sharing backend.
//
// Local edits are persisted at once and uploaded in the background with a
// conditional PUT (If-None-Match carrying the local fingerprint), or with a
// POST when the backend has never confirmed the profile. Downloads use a
// conditional GET carrying the last fingerprint confirmed by the backend.
// A 403 from either direction wipes everything but the profile id.
package settings
