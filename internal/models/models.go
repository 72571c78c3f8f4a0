// package models defines the data model for the playlist downloader
package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Model defines the base interface for persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Track is the normalized metadata of one playlist entry.
//
// Tracks are passed by value and never modified after [NewTrack]; Genres is never nil.
type Track struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album,omitempty"`
	DurationMS  int      `json:"duration_ms"`
	CoverURL    string   `json:"cover_url,omitempty"`
	Year        string   `json:"year,omitempty"`
	TotalTracks int      `json:"total_tracks,omitempty"`
	Genres      []string `json:"genres"`
}

// NewTrack builds a Track, copying slices and clamping a negative duration to zero.
func NewTrack(id, title string, artists []string, album string, durationMS int, coverURL, year string, totalTracks int, genres []string) Track {
	if durationMS < 0 {
		durationMS = 0
	}
	if genres == nil {
		genres = []string{}
	}
	return Track{
		ID:          id,
		Title:       title,
		Artists:     slices.Clone(artists),
		Album:       album,
		DurationMS:  durationMS,
		CoverURL:    coverURL,
		Year:        year,
		TotalTracks: totalTracks,
		Genres:      slices.Clone(genres),
	}
}

// WithGenres returns a copy of t carrying genres.
func (t Track) WithGenres(genres []string) Track {
	return NewTrack(t.ID, t.Title, t.Artists, t.Album, t.DurationMS, t.CoverURL, t.Year, t.TotalTracks, genres)
}

// ArtistString joins the artists with ", ".
func (t Track) ArtistString() string {
	return strings.Join(t.Artists, ", ")
}

// PrimaryArtist returns the first credited artist, or "" when there is none.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// DurationSeconds returns the duration rounded down to whole seconds; zero means unknown.
func (t Track) DurationSeconds() int {
	return t.DurationMS / 1000
}

func (t Track) String() string {
	return fmt.Sprintf("%s - %s", t.ArtistString(), t.Title)
}

// Candidate is one remote search result considered for a track.
type Candidate struct {
	Title    string
	Channel  string
	Duration int // seconds, 0 when unknown
	Locator  string
}

// ResolutionSource names the stage that produced a locator.
type ResolutionSource string

const (
	SourceAPI   ResolutionSource = "api"
	SourceIndex ResolutionSource = "index"
	SourceCache ResolutionSource = "cache"
)

// Resolution is the result of resolving a track: a locator, or empty when unresolved.
type Resolution struct {
	Track   Track
	Locator string
	Source  ResolutionSource
	Score   int
	Query   string
}

// Resolved reports whether a locator was found.
func (r Resolution) Resolved() bool {
	return r.Locator != ""
}

// Status is the terminal state of a track in a run.
//
// In-flight stages are reported as progress phases, not statuses; the zero value is unset.
type Status int

const (
	Succeeded Status = iota + 1
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// Failure reasons recorded on failed outcomes.
const (
	ReasonNotFound       = "not found"
	ReasonCancelled      = "cancelled"
	ReasonFinalizePrefix = "finalize error: "
	ReasonCrashPrefix    = "crashed: "
)

// Outcome is the single per-track result of a run.
type Outcome struct {
	Index   int
	Track   Track
	Status  Status
	Path    string
	Skipped bool
	Reason  string
}

// Succeed builds a successful outcome for the file at path.
func Succeed(index int, track Track, path string, skipped bool) Outcome {
	return Outcome{Index: index, Track: track, Status: Succeeded, Path: path, Skipped: skipped}
}

// Fail builds a failed outcome carrying reason.
func Fail(index int, track Track, reason string) Outcome {
	return Outcome{Index: index, Track: track, Status: Failed, Reason: reason}
}

// OK reports whether the outcome succeeded.
func (o Outcome) OK() bool {
	return o.Status == Succeeded
}

// SortOutcomes orders outcomes by track index in place.
func SortOutcomes(outcomes []Outcome) {
	slices.SortStableFunc(outcomes, func(a, b Outcome) int { return a.Index - b.Index })
}
