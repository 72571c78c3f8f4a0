// Package repositories implements SQLite persistence for the downloader.
//
// Key Implementations:
//   - [ResolutionRepository] : track id to media locator cache consulted before searching
//   - [RunRepository] : download history, one row per run plus one row per track outcome
//
// Runs carry a UUID and a sequence number from [NextSequence]; the sequence gives a stable,
// human-readable ordering for the history command (run #12).
package repositories
