// Package services defines shared utilities consumed by the identification and
// organizer packages.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, source files, and stage names for
//     logging.
//   - Structured error markers plus the Wrap helper so callers can tell a
//     batch-fatal configuration problem from a per-file failure.
package services
