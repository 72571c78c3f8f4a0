package shared

import (
	"io"
	"regexp"
)

const redacted = "***REDACTED***"

var (
	secretKeyPattern = regexp.MustCompile(`(?i)(client_(?:id|secret)|youtube_api_key)\s*[:=]\s*([^\s,'"]+)`)
	longTokenPattern = regexp.MustCompile(`[A-Za-z0-9_-]{32,}`)
)

// RedactWriter masks credential assignments and long opaque tokens before they reach the underlying writer.
type RedactWriter struct {
	w io.Writer
}

// NewRedactWriter wraps w in a [RedactWriter]
func NewRedactWriter(w io.Writer) *RedactWriter {
	if rw, ok := w.(*RedactWriter); ok {
		return rw
	}
	return &RedactWriter{w: w}
}

// Write redacts p and forwards it. The returned count refers to p so callers never see a short write.
func (r *RedactWriter) Write(p []byte) (int, error) {
	if _, err := r.w.Write(Redact(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Redact applies the secret and token masks to b.
func Redact(b []byte) []byte {
	b = secretKeyPattern.ReplaceAll(b, []byte("${1}="+redacted))
	return longTokenPattern.ReplaceAll(b, []byte(redacted))
}
