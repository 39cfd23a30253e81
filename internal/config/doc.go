// Package config loads, normalizes, and validates epub2audio configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// EPUB2AUDIO_BASE_DIR and EPUB2AUDIO_TTS_COMMAND. The Config type centralizes
// every knob the CLI stages need, from the book storage root to the
// reconciliation policy and the ffmpeg binaries used for assembly.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical extensions, and clear validation errors.
package config
