// Package fileutil moves media files without ever overwriting a target and
// discovers video files to organize.
//
// Move prefers an atomic no-replace rename and falls back to a hash-verified
// copy when source and destination live on different filesystems. Failures are
// tagged with ErrSourceMissing, ErrDestinationExists, or ErrPermission so
// callers can report them per file.
package fileutil
