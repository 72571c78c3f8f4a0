// Package ui implements a terminal progress display for downloads using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [DownloadView] : progress bar, spinner and the most recent track results
//  2. [ResultView] : run summary and a browsable list of failed tracks
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the tasks engine; the caller closes the channel when the
// engine returns and reports the result with [Finished].
//
// ctrl+c while downloading cancels the run; q quits once it has finished.
package ui
