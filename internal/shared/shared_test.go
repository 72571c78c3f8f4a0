package shared

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSafeFilename(t *testing.T) {
	tc := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "Song Title", want: "Song Title"},
		{name: "reserved characters", input: `AC/DC: "Back" <in> Black?*|`, want: "ACDC Back in Black"},
		{name: "control characters", input: "Line\x00One\x1fTwo", want: "LineOneTwo"},
		{name: "whitespace runs", input: "  a \t\n  b  ", want: "a b"},
		{name: "unicode whitespace runs", input: "Song\u00a0\u00a0\u3000Title\u2003", want: "Song Title"},
		{name: "trailing space after removal", input: "Title ?", want: "Title"},
		{name: "empty", input: "", want: "untitled"},
		{name: "only reserved", input: `///???`, want: "untitled"},
		{name: "unicode kept", input: "Sigur Rós – Hoppípolla", want: "Sigur Rós – Hoppípolla"},
		{name: "decomposed is composed", input: "Ro\u0301s", want: "R\u00f3s"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeFilename(tt.input); got != tt.want {
				t.Errorf("SafeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	t.Run("truncates at word boundary", func(t *testing.T) {
		input := strings.Repeat("word ", 40)
		got := SafeFilename(input)
		if utf8.RuneCountInString(got) > MaxNameLength {
			t.Errorf("expected at most %d runes, got %d", MaxNameLength, utf8.RuneCountInString(got))
		}
		if strings.HasSuffix(got, " ") || !strings.HasSuffix(got, "word") {
			t.Errorf("expected cut at word boundary, got %q", got)
		}
	})

	t.Run("hard cut without spaces", func(t *testing.T) {
		got := SafeFilename(strings.Repeat("é", 200))
		if n := utf8.RuneCountInString(got); n != MaxNameLength {
			t.Errorf("expected %d runes, got %d", MaxNameLength, n)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		inputs := []string{
			"Title ?",
			" <x> y ",
			strings.Repeat("ab ", 60) + "?",
			strings.Repeat("x", 130),
			"Björk / Jóga",
			"\t",
			"a\u00a0\u3000b",
		}
		for _, in := range inputs {
			once := SafeFilename(in)
			if twice := SafeFilename(once); twice != once {
				t.Errorf("not idempotent for %q: %q -> %q", in, once, twice)
			}
		}
	})
}

func TestTrackFilename(t *testing.T) {
	got := TrackFilename(3, "Band X, Guest", "Song: A")
	if want := "03 - Band X, Guest - Song A.mp3"; got != want {
		t.Errorf("TrackFilename() = %q, want %q", got, want)
	}

	if got := TrackFilename(112, "", ""); got != "112 - untitled - untitled.mp3" {
		t.Errorf("unexpected name for empty metadata: %q", got)
	}
}

func TestParsePlaylistID(t *testing.T) {
	tc := []struct {
		name  string
		input string
		want  string
	}{
		{name: "share url", input: "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc", want: "37i9dQZF1DXcBWIGoYBM5M"},
		{name: "uri", input: "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M", want: "37i9dQZF1DXcBWIGoYBM5M"},
		{name: "user uri", input: "spotify:user:someone:playlist:abc123", want: "abc123"},
		{name: "bare id", input: "  37i9dQZF1DXcBWIGoYBM5M ", want: "37i9dQZF1DXcBWIGoYBM5M"},
		{name: "literal", input: "not a url", want: "not a url"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParsePlaylistID(tt.input); got != tt.want {
				t.Errorf("ParsePlaylistID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedact(t *testing.T) {
	tc := []struct {
		name    string
		input   string
		want    string
		missing string
	}{
		{name: "client secret", input: "client_secret=hunter2 ok", want: "client_secret=***REDACTED*** ok", missing: "hunter2"},
		{name: "api key with colon", input: "YOUTUBE_API_KEY: abc", want: "YOUTUBE_API_KEY=***REDACTED***", missing: "abc"},
		{name: "long token", input: "token " + strings.Repeat("a", 40), want: "token ***REDACTED***"},
		{name: "short token kept", input: "id " + strings.Repeat("a", 20), want: "id " + strings.Repeat("a", 20)},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := string(Redact([]byte(tt.input)))
			if got != tt.want {
				t.Errorf("Redact() = %q, want %q", got, tt.want)
			}
			if tt.missing != "" && strings.Contains(got, tt.missing) {
				t.Errorf("expected %q to be removed from %q", tt.missing, got)
			}
		})
	}

	t.Run("logger output is redacted", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		logger.Info("loaded", "client_id", "supersecretvalue")

		if strings.Contains(buf.String(), "supersecretvalue") {
			t.Errorf("expected secret to be redacted, got %q", buf.String())
		}
	})
}

func TestMarshalJSON(t *testing.T) {
	v := map[string]any{"title": "Rock & <Roll>"}

	t.Run("compact", func(t *testing.T) {
		got, err := MarshalJSON(v, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(got) != "{\"title\":\"Rock & <Roll>\"}\n" {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("pretty", func(t *testing.T) {
		got, err := MarshalJSON(v, true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(got) != "{\n  \"title\": \"Rock & <Roll>\"\n}\n" {
			t.Errorf("unexpected output %q", got)
		}
	})
}
