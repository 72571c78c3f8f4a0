// package formatter renders run artifacts (playlist, report) and track listings
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/shared"
)

const (
	M3UFilename    = "playlist.m3u"
	ReportFilename = "download_report.json"
)

// ReportSuccess is one successful entry of download_report.json.
type ReportSuccess struct {
	Index   int      `json:"index"`
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
	Album   *string  `json:"album"`
	File    *string  `json:"file"`
	Year    *string  `json:"year"`
	Genres  []string `json:"genres"`
}

// ReportFailure is one failed entry of download_report.json.
type ReportFailure struct {
	Index   int      `json:"index"`
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
	Album   *string  `json:"album"`
	Reason  string   `json:"reason"`
}

// Report is the JSON document summarising a run.
type Report struct {
	Success []ReportSuccess `json:"success"`
	Failed  []ReportFailure `json:"failed"`
}

// sorted returns a copy of outcomes ordered by index.
func sorted(outcomes []models.Outcome) []models.Outcome {
	out := slices.Clone(outcomes)
	models.SortOutcomes(out)
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// BuildReport splits outcomes into success and failure entries, both in index order.
func BuildReport(outcomes []models.Outcome) Report {
	report := Report{Success: []ReportSuccess{}, Failed: []ReportFailure{}}
	for _, o := range sorted(outcomes) {
		t := o.Track
		if o.OK() {
			report.Success = append(report.Success, ReportSuccess{
				Index:   o.Index,
				Title:   t.Title,
				Artists: nonNil(t.Artists),
				Album:   optional(t.Album),
				File:    optional(o.Path),
				Year:    optional(t.Year),
				Genres:  nonNil(t.Genres),
			})
			continue
		}
		report.Failed = append(report.Failed, ReportFailure{
			Index:   o.Index,
			Title:   t.Title,
			Artists: nonNil(t.Artists),
			Album:   optional(t.Album),
			Reason:  o.Reason,
		})
	}
	return report
}

// ToReportJSON renders the report with two-space indentation and unescaped non-ASCII text.
func ToReportJSON(outcomes []models.Outcome) ([]byte, error) {
	return shared.MarshalJSON(BuildReport(outcomes), true)
}

// ToM3U lists the basenames of successful files, one per line, in index order.
func ToM3U(outcomes []models.Outcome) []byte {
	var buf bytes.Buffer
	for _, o := range sorted(outcomes) {
		if o.OK() && o.Path != "" {
			buf.WriteString(filepath.Base(o.Path))
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

// WriteM3U writes playlist.m3u into dir and returns its path.
func WriteM3U(dir string, outcomes []models.Outcome) (string, error) {
	path := filepath.Join(dir, M3UFilename)
	if err := os.WriteFile(path, ToM3U(outcomes), 0644); err != nil {
		return "", fmt.Errorf("failed to write playlist: %w", err)
	}
	return path, nil
}

// WriteReport writes download_report.json into dir and returns its path.
func WriteReport(dir string, outcomes []models.Outcome) (string, error) {
	data, err := ToReportJSON(outcomes)
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	path := filepath.Join(dir, ReportFilename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// ExportToCSV converts a track listing to CSV with a header row.
func ExportToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Index", "ID", "Title", "Artists", "Album", "Duration", "Year", "Genres"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range tracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.ID,
			track.Title,
			track.ArtistString(),
			track.Album,
			strconv.Itoa(track.DurationSeconds()),
			track.Year,
			strings.Join(track.Genres, "; "),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToText formats a track listing as numbered "artists - title (m:ss)" lines.
func ExportToText(tracks []models.Track) []byte {
	var buf bytes.Buffer
	for i, track := range tracks {
		secs := track.DurationSeconds()
		fmt.Fprintf(&buf, "%d. %s - %s (%d:%02d)\n", i+1, track.ArtistString(), track.Title, secs/60, secs%60)
	}
	return buf.Bytes()
}
