// Package services defines shared utilities consumed by the pipeline stages and
// their external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp book stems, stage names, and run identifiers
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent registry statuses (failed vs review).
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
