package domain

import "context"

// Synthesizer turns text into speech. language is a short code ("en",
// "ko"); voice is an engine-specific identifier.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language, voice string) (Audio, error)
}

// Sink plays audio. Play blocks until playback completes.
type Sink interface {
	Play(ctx context.Context, audio Audio) error
}

// ArtifactStore is content-addressed storage for rendered audio. Get
// returns ErrCacheMiss when the key is absent.
type ArtifactStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// ErrorReporter receives non-fatal failures that the user should see,
// such as a synthesis error that was covered by fallback audio.
type ErrorReporter interface {
	ReportError(message string)
}

// ErrorReporterFunc adapts a function to ErrorReporter.
type ErrorReporterFunc func(message string)

// ReportError calls f(message).
func (f ErrorReporterFunc) ReportError(message string) { f(message) }
