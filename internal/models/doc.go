// Package models defines the domain entities of the playlist downloader.
//
// The package contains two categories of types:
//
// 1. Pipeline values: immutable or short-lived structs passed between stages
//   - [Track] : normalized metadata of one playlist entry
//   - [Candidate] : one remote search result, discarded after resolution
//   - [Resolution] : a media locator (or none) for a track
//   - [Outcome] : the single terminal result of a track in a run
//
// 2. Persistent Entities: database-backed models
//   - [Run] : one playlist download job with counters and outcomes
//
// Persistent entities implement the Model interface; the Repository[T] interface defines standard CRUD operations.
package models
