package tasks

import (
	"fmt"

	"github.com/desertthunder/tapedeck/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylist Phase = iota
	StartTrack
	ResolveTrack
	FetchTrack
	FinalizeTrack
	TrackDone
	WriteReports
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylist:
		return "fetch_playlist"
	case StartTrack:
		return "start_track"
	case ResolveTrack:
		return "resolve_track"
	case FetchTrack:
		return "fetch_track"
	case FinalizeTrack:
		return "finalize_track"
	case TrackDone:
		return "track_done"
	case WriteReports:
		return "write_reports"
	default:
		return ""
	}
}

func fetchingPlaylistUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist %s from Spotify...", playlistID),
	}
}

func foundPlaylistUpdate(total int, targetDir string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d tracks, writing to %s", total, targetDir),
		Data:    total,
	}
}

func trackStageUpdate(phase Phase, index, total int, track models.Track) ProgressUpdate {
	var verb string
	switch phase {
	case StartTrack:
		verb = "Starting"
	case ResolveTrack:
		verb = "Resolving"
	case FetchTrack:
		verb = "Downloading"
	case FinalizeTrack:
		verb = "Tagging"
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    index,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s", index, total, verb, track),
	}
}

// trackDoneUpdate reports a terminal outcome; Step counts completed tracks.
func trackDoneUpdate(completed, total int, o models.Outcome) ProgressUpdate {
	var msg string
	switch {
	case o.OK() && o.Skipped:
		msg = fmt.Sprintf("[%d/%d] - %s (exists)", completed, total, o.Track)
	case o.OK():
		msg = fmt.Sprintf("[%d/%d] ✓ %s", completed, total, o.Track)
	default:
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %s", completed, total, o.Track, o.Reason)
	}
	return ProgressUpdate{
		Phase:   TrackDone,
		Step:    completed,
		Total:   total,
		Message: msg,
		Data:    o,
	}
}

func writingReportsUpdate(targetDir string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteReports,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing playlist and report to %s", targetDir),
	}
}
