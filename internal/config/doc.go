// Package config loads patchbay configuration from CUE files.
//
// The schema (schema.cue, embedded) supplies defaults and constraints; a
// config file only names the fields it changes:
//
//	sample_rate: 44100
//	block_size:  256
//	journal:     "session.db"
//
// Values set elsewhere (command-line flags) are checked against the same
// schema with Validate.
package config
