// Package tasks downloads playlists with real-time progress reporting.
//
// # Pipeline
//
// [Engine.Download] fetches a playlist's tracks and hands them to a [Pipeline], a bounded pool of
// workers that runs the per-track chain:
//
//  1. Skip-existing: a file already at the canonical path succeeds as skipped.
//  2. [Resolver] (smart search only): resolution cache, then scored search, then the duration-closest
//     index search, for each of the [Queries] in turn.
//  3. [Fetcher]: the resolved locator gets 2 attempts, each raw query 3, with exponential backoff
//     from a [shared.Policy].
//  4. [Finalizer]: rename to "NN - Artist - Title.mp3" and embed ID3 tags.
//
// Every track ends with exactly one [models.Outcome]. Panics inside a worker become "crashed: ..."
// failures and cancellation records unfinished tracks as "cancelled".
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
//
// Stage updates use select with default and are dropped when the reader falls behind. [TrackDone] and
// [WriteReports] updates wait for the reader until the run's context is done, so a display always sees
// every finished track.
//
// # Artifacts
//
// Each run writes playlist.m3u, download_report.json and metrics.prom into the target directory, also
// when the run was cancelled.
package tasks
