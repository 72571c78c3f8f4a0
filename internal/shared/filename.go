package shared

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxNameLength is the rune limit for a single sanitized filename component.
const MaxNameLength = 120

const untitled = "untitled"

var playlistPattern = regexp.MustCompile(`playlist[/:]([A-Za-z0-9]+)`)

// SafeFilename turns an arbitrary title or artist string into a filesystem-safe path component.
//
// Control characters and <>:"/\|?* are removed, Unicode whitespace runs collapse to one space and the result
// is cut to [MaxNameLength] runes at the last space. Sanitizing an already sanitized name is a no-op.
func SafeFilename(name string) string {
	name = norm.NFC.String(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(`<>:"/\|?*`, r) {
			return -1
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), " ")

	if runes := []rune(name); len(runes) > MaxNameLength {
		cut := string(runes[:MaxNameLength])
		if i := strings.LastIndex(cut, " "); i > 0 {
			cut = cut[:i]
		}
		name = strings.TrimSpace(cut)
	}

	if name == "" {
		return untitled
	}
	return name
}

// TrackFilename returns the canonical "NN - Artist - Title.mp3" name for a track at index.
func TrackFilename(index int, artist, title string) string {
	return fmt.Sprintf("%02d - %s - %s.mp3", index, SafeFilename(artist), SafeFilename(title))
}

// ParsePlaylistID extracts a playlist id from a share URL, a spotify:playlist: URI or a bare id.
func ParsePlaylistID(ref string) string {
	s := strings.TrimSpace(ref)
	if strings.Contains(s, "playlist") {
		if m := playlistPattern.FindStringSubmatch(s); m != nil {
			return m[1]
		}
	}
	if strings.HasPrefix(s, "spotify:playlist:") {
		parts := strings.Split(s, ":")
		return parts[len(parts)-1]
	}
	return s
}
