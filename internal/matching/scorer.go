// package matching ranks remote search results against a track's metadata
package matching

import (
	"regexp"
	"slices"
	"strings"

	"github.com/desertthunder/tapedeck/internal/models"
)

// AcceptThreshold is the minimum score a candidate needs to be chosen without falling back.
const AcceptThreshold = 50

const (
	artistInChannelBonus = 12
	verifiedChannelBonus = 18
	officialBonus        = 10
	tokenBonus           = 2
	maxTokenOverlap      = 15
	closeDurationBonus   = 30
	nearDurationBonus    = 16
	maxDurationPenalty   = 20
	livePenalty          = 15
	coverPenalty         = 10
	remixPenalty         = 8

	verifiedChannelMarker = "vevo"

	// unknownDurationDiff stands in for a missing duration when picking the closest entry.
	unknownDurationDiff = 9999
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Scored pairs a candidate with its score.
type Scored struct {
	Candidate models.Candidate
	Score     int
}

// Score rates how well c matches a track with the given title, artist string and duration in seconds.
//
// A zero duration on either side disables the duration term.
func Score(c models.Candidate, title, artist string, targetSeconds int) int {
	t := strings.ToLower(c.Title)
	ch := strings.ToLower(c.Channel)
	a := strings.ToLower(artist)
	target := strings.ToLower(title)

	s := 0
	if a != "" && strings.Contains(ch, a) {
		s += artistInChannelBonus
	}
	if strings.Contains(ch, verifiedChannelMarker) {
		s += verifiedChannelBonus
	}
	if strings.Contains(ch, "official") || strings.Contains(t, "official") {
		s += officialBonus
	}

	s += tokenBonus * min(overlap(tokens(t), tokens(target+" "+a)), maxTokenOverlap)

	if c.Duration > 0 && targetSeconds > 0 {
		diff := abs(c.Duration - targetSeconds)
		switch {
		case diff <= 5:
			s += closeDurationBonus
		case diff <= 10:
			s += nearDurationBonus
		default:
			s -= min(diff/2, maxDurationPenalty)
		}
	}

	for _, p := range []struct {
		word    string
		penalty int
	}{{"live", livePenalty}, {"cover", coverPenalty}, {"remix", remixPenalty}} {
		if strings.Contains(t, p.word) && !strings.Contains(target, p.word) {
			s -= p.penalty
		}
	}
	return s
}

// Rank scores every candidate and sorts them by descending score; equal scores keep their input order.
func Rank(candidates []models.Candidate, title, artist string, targetSeconds int) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, Scored{Candidate: c, Score: Score(c, title, artist, targetSeconds)})
	}
	slices.SortStableFunc(scored, func(x, y Scored) int { return y.Score - x.Score })
	return scored
}

// Best returns the top ranked candidate when it clears [AcceptThreshold].
func Best(candidates []models.Candidate, title, artist string, targetSeconds int) (Scored, bool) {
	ranked := Rank(candidates, title, artist, targetSeconds)
	if len(ranked) == 0 || ranked[0].Score < AcceptThreshold {
		return Scored{}, false
	}
	return ranked[0], true
}

// Closest picks the candidate whose duration is nearest to targetSeconds.
//
// Unknown durations (on either side) count as a 9999 second difference, so such entries only win when
// nothing better exists. The first entry wins ties. ok is false only for an empty slice.
func Closest(candidates []models.Candidate, targetSeconds int) (models.Candidate, bool) {
	var best models.Candidate
	bestDiff, found := int(1e9), false
	for _, c := range candidates {
		diff := unknownDurationDiff
		if targetSeconds > 0 && c.Duration > 0 {
			diff = abs(c.Duration - targetSeconds)
		}
		if diff < bestDiff {
			best, bestDiff, found = c, diff, true
		}
	}
	return best, found
}

func tokens(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(s, -1) {
		set[w] = struct{}{}
	}
	return set
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
