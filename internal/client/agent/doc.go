// Package agent runs the headless Say What client: it restores the local
// settings, signs in to the configured profile, keeps the provider option
// caches and the history audio warm, and reconciles the profile with the
// backend on a fixed interval until it receives a termination signal.
package agent
