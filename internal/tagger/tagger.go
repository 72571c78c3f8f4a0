// package tagger embeds ID3v2 metadata and cover art into downloaded files
package tagger

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/shared"
)

const (
	maxGenres        = 3
	coverMimeType    = "image/jpeg"
	coverDescription = "Cover"
)

// Tagger writes track metadata into the file at path.
type Tagger interface {
	Tag(ctx context.Context, path string, track models.Track, index int) error
}

// ID3Tagger writes ID3v2.4 frames with UTF-8 text encoding.
//
// Covers is optional; without it no APIC frame is written.
type ID3Tagger struct {
	Covers *CoverFetcher
	logger *log.Logger
}

// NewID3Tagger creates a tagger that embeds covers fetched through covers.
func NewID3Tagger(covers *CoverFetcher, logger *log.Logger) *ID3Tagger {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ID3Tagger{Covers: covers, logger: logger}
}

// Tag sets title, artist, album, year, genre, track number and front cover.
//
// A cover download failure is logged and the remaining frames are still written.
func (t *ID3Tagger) Tag(ctx context.Context, path string, track models.Track, index int) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open tag: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(track.Title)
	tag.SetArtist(track.ArtistString())
	if track.Album != "" {
		tag.SetAlbum(track.Album)
	}
	if track.Year != "" {
		tag.SetYear(track.Year)
	}
	if genre := GenreString(track.Genres); genre != "" {
		tag.SetGenre(genre)
	}

	trck := tag.CommonID("Track number/Position in set")
	tag.DeleteFrames(trck)
	tag.AddTextFrame(trck, tag.DefaultEncoding(), TrackNumber(index, track.TotalTracks))

	if t.Covers != nil && track.CoverURL != "" {
		if data, err := t.Covers.Fetch(ctx, track.CoverURL); err != nil {
			t.logger.Debug("cover art unavailable", "track", track.ID, "error", err)
		} else {
			tag.DeleteFrames(tag.CommonID("Attached picture"))
			tag.AddAttachedPicture(id3v2.PictureFrame{
				Encoding:    id3v2.EncodingUTF8,
				MimeType:    coverMimeType,
				PictureType: id3v2.PTFrontCover,
				Description: coverDescription,
				Picture:     data,
			})
		}
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tag: %w", err)
	}
	return nil
}

// GenreString joins the first three genres with ", ".
func GenreString(genres []string) string {
	if len(genres) > maxGenres {
		genres = genres[:maxGenres]
	}
	return strings.Join(genres, ", ")
}

// TrackNumber formats a TRCK value, "index/total" when the total is known.
func TrackNumber(index, total int) string {
	if total > 0 {
		return strconv.Itoa(index) + "/" + strconv.Itoa(total)
	}
	return strconv.Itoa(index)
}
