// Package speech turns announcements into sound: synthesis, caching of
// rendered audio, and one-at-a-time playback.
package speech

import (
	"context"
	"time"

	"github.com/hammamikhairi/gridvoice/internal/domain"
	"github.com/hammamikhairi/gridvoice/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.Synthesizer = (*NoOpSynth)(nil)
	_ domain.Sink        = (*NoOpSink)(nil)
)

// NoOpSynth is used when no TTS credentials are configured. Every call
// fails, so the queue plays its fallback tone instead.
type NoOpSynth struct {
	log *logger.Logger
}

// NewNoOpSynth creates a synthesizer that never produces speech.
func NewNoOpSynth(log *logger.Logger) *NoOpSynth {
	return &NoOpSynth{log: log}
}

// Synthesize returns domain.ErrNotImplemented.
func (n *NoOpSynth) Synthesize(ctx context.Context, text, language, voice string) (domain.Audio, error) {
	n.log.Debug("synth no-op: would say %q (%s, %s)", text, language, voice)
	return domain.Audio{}, domain.ErrNotImplemented
}

// NoOpSink stands in for the audio device when it is unavailable. It
// takes as long as the clip would, so queue timing stays realistic.
type NoOpSink struct {
	log *logger.Logger
}

// NewNoOpSink creates a silent sink.
func NewNoOpSink(log *logger.Logger) *NoOpSink {
	return &NoOpSink{log: log}
}

// Play waits for the clip's duration or until ctx is done.
func (n *NoOpSink) Play(ctx context.Context, audio domain.Audio) error {
	d := audio.Duration()
	n.log.Debug("sink no-op: %s of audio", d)
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
