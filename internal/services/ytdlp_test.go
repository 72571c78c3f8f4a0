package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseSearchEntries(t *testing.T) {
	t.Run("decodes flat entries in order", func(t *testing.T) {
		dump := `{
			"_type": "playlist",
			"entries": [
				{"id": "abc", "title": "Song A (Official Audio)", "channel": "Band X", "duration": 200.0, "url": "https://www.youtube.com/watch?v=abc"},
				{"id": "def", "title": "Song A live", "uploader": "fan", "duration": null, "url": "def"},
				{"id": "ghi", "title": "Song A cover", "webpage_url": "https://www.youtube.com/watch?v=ghi", "duration": 181.6},
				{"title": "no id at all"}
			]
		}`

		got := ParseSearchEntries(dump)
		if len(got) != 3 {
			t.Fatalf("expected 3 candidates, got %d", len(got))
		}

		if got[0].Locator != "https://www.youtube.com/watch?v=abc" || got[0].Channel != "Band X" || got[0].Duration != 200 {
			t.Errorf("unexpected first candidate %+v", got[0])
		}
		if got[1].Channel != "fan" {
			t.Errorf("expected uploader fallback, got %q", got[1].Channel)
		}
		if got[1].Duration != 0 {
			t.Errorf("expected unknown duration, got %d", got[1].Duration)
		}
		if got[1].Locator != "https://www.youtube.com/watch?v=def" {
			t.Errorf("expected id based locator, got %s", got[1].Locator)
		}
		if got[2].Locator != "https://www.youtube.com/watch?v=ghi" || got[2].Duration != 181 {
			t.Errorf("unexpected third candidate %+v", got[2])
		}
	})

	t.Run("invalid or empty output", func(t *testing.T) {
		for _, dump := range []string{"", "not json", `{"entries": []}`, `{}`} {
			if got := ParseSearchEntries(dump); len(got) != 0 {
				t.Errorf("expected no candidates for %q, got %d", dump, len(got))
			}
		}
	})
}

func TestOutputTemplate(t *testing.T) {
	got := OutputTemplate("out", "01 - A - 100% Pure")
	want := filepath.Join("out", "01 - A - 100%% Pure") + ".%(ext)s"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFindOutput(t *testing.T) {
	touch := func(t *testing.T, path string, mod time.Time) {
		t.Helper()
		if err := os.WriteFile(path, []byte("id3"), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("failed to set times: %v", err)
		}
	}

	t.Run("exact match", func(t *testing.T) {
		dir := t.TempDir()
		exact := filepath.Join(dir, "song.mp3")
		touch(t, exact, time.Now())
		touch(t, filepath.Join(dir, "song.f251.mp3"), time.Now().Add(time.Hour))

		got, ok := FindOutput(OutputTemplate(dir, "song"))
		if !ok || got != exact {
			t.Errorf("expected %s, got %s (ok=%v)", exact, got, ok)
		}
	})

	t.Run("newest prefixed file", func(t *testing.T) {
		dir := t.TempDir()
		now := time.Now()
		touch(t, filepath.Join(dir, "song.a.mp3"), now.Add(-time.Hour))
		touch(t, filepath.Join(dir, "song.b.mp3"), now)
		touch(t, filepath.Join(dir, "other.mp3"), now.Add(time.Hour))
		touch(t, filepath.Join(dir, "song.c.webm"), now.Add(time.Hour))

		got, ok := FindOutput(OutputTemplate(dir, "song"))
		if !ok || filepath.Base(got) != "song.b.mp3" {
			t.Errorf("expected song.b.mp3, got %s (ok=%v)", got, ok)
		}
	})

	t.Run("percent in stem", func(t *testing.T) {
		dir := t.TempDir()
		exact := filepath.Join(dir, "100% Pure.mp3")
		touch(t, exact, time.Now())

		got, ok := FindOutput(OutputTemplate(dir, "100% Pure"))
		if !ok || got != exact {
			t.Errorf("expected %s, got %s", exact, got)
		}
	})

	t.Run("nothing produced", func(t *testing.T) {
		if _, ok := FindOutput(OutputTemplate(t.TempDir(), "song")); ok {
			t.Error("expected no output")
		}
		if _, ok := FindOutput(OutputTemplate(filepath.Join(t.TempDir(), "missing"), "song")); ok {
			t.Error("expected no output for a missing directory")
		}
	})
}
