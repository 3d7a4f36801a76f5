// Package config loads the settings of the Say What sync agent.
//
// Values are applied in this order, later sources winning:
//
//  1. Built-in defaults ((*Config).LoadDefaults).
//  2. A JSON file named with -c or -config.
//  3. Command-line flags.
//
// Flags
//
//	-s string   base URL of the profile-sharing backend
//	-d string   path of the local SQLite database ("" keeps nothing on disk)
//	-p string   profile id
//	-i int      reconcile interval (seconds)
//	-t int      profile request timeout (seconds)
//	-r float    speech provider requests per second (0 = unlimited)
//	-l string   log level (debug, info, warn, error)
//	-f string   log format (text, json)
//
// The profile password is read from the JSON file or prompted for; it is
// never taken from the command line.
//
// # JSON schema
//
// Durations may be strings such as "30s" or integer nanoseconds:
//
//	{
//	  "profile_server_url": "http://localhost:8080/api/say-what/v1",
//	  "local_db_path": "saywhat.db",
//	  "profile_id": "kitchen",
//	  "profile_password": "secret",
//	  "reconcile_interval": "1m",
//	  "request_timeout": "10s",
//	  "speech_rps": 2,
//	  "log_level": "info",
//	  "log_format": "text"
//	}
package config
