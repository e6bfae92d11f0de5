package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/gridvoice/internal/domain"
	"github.com/hammamikhairi/gridvoice/internal/logger"
)

// mockSynth renders a short tone per call and records the texts.
type mockSynth struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (m *mockSynth) Synthesize(_ context.Context, text, _, _ string) (domain.Audio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, text)
	if m.err != nil {
		return domain.Audio{}, m.err
	}
	return domain.Audio{Samples: []int16{1, 2, 3, int16(len(text))}, SampleRate: SampleRate}, nil
}

func (m *mockSynth) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// gatedSink blocks each Play until release is signalled.
type gatedSink struct {
	mu      sync.Mutex
	played  []domain.Audio
	started chan struct{}
	release chan struct{}
	err     error
}

func newGatedSink() *gatedSink {
	return &gatedSink{
		started: make(chan struct{}, 16),
		release: make(chan struct{}, 16),
	}
}

func (s *gatedSink) Play(_ context.Context, a domain.Audio) error {
	s.started <- struct{}{}
	<-s.release
	s.mu.Lock()
	s.played = append(s.played, a)
	s.mu.Unlock()
	return s.err
}

func (s *gatedSink) playedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.played)
}

// recordingReporter collects reported errors.
type recordingReporter struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingReporter) ReportError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func waitStarted(t *testing.T, s *gatedSink) {
	t.Helper()
	select {
	case <-s.started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for playback to start")
	}
}

func waitIdle(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("queue did not go idle: %v", err)
	}
}

func TestQueueLatestWins(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	synth := &mockSynth{}
	sink := newGatedSink()
	q := NewQueue(synth, sink, log)

	q.Enqueue(domain.NewAnnouncement("A", "v", "en"))
	waitStarted(t, sink)

	// B and C arrive while A plays; only C should follow.
	q.Enqueue(domain.NewAnnouncement("B", "v", "en"))
	q.Enqueue(domain.NewAnnouncement("C", "v", "en"))

	if p, ok := q.Pending(); !ok || p.Text != "C" {
		t.Fatalf("expected C pending, got %q (%v)", p.Text, ok)
	}

	sink.release <- struct{}{}
	waitStarted(t, sink)
	sink.release <- struct{}{}
	waitIdle(t, q)

	synth.mu.Lock()
	calls := append([]string(nil), synth.calls...)
	synth.mu.Unlock()
	if len(calls) != 2 || calls[0] != "A" || calls[1] != "C" {
		t.Fatalf("expected synth calls [A C], got %v", calls)
	}

	played, dropped := q.Stats()
	if played != 2 || dropped != 1 {
		t.Fatalf("expected played=2 dropped=1, got %d/%d", played, dropped)
	}
	if q.IsSpeaking() {
		t.Fatal("queue should be idle")
	}
}

func TestQueueFallbackOnSynthError(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	synth := &mockSynth{err: errors.New("boom")}
	sink := newGatedSink()
	rep := &recordingReporter{}
	fallback := Tone(FallbackFrequency, 10*time.Millisecond, 8000)
	q := NewQueue(synth, sink, log, WithErrorReporter(rep), WithFallback(fallback))

	q.Enqueue(domain.NewAnnouncement("A", "v", "en"))
	waitStarted(t, sink)
	sink.release <- struct{}{}
	waitIdle(t, q)

	if rep.count() != 1 {
		t.Fatalf("expected 1 reported error, got %d", rep.count())
	}
	sink.mu.Lock()
	got := sink.played[0]
	sink.mu.Unlock()
	if len(got.Samples) != len(fallback.Samples) || got.SampleRate != 8000 {
		t.Fatalf("expected fallback clip to play, got %d samples @%d", len(got.Samples), got.SampleRate)
	}
}

func TestQueueContinuesAfterPlaybackError(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	synth := &mockSynth{}
	sink := newGatedSink()
	sink.err = errors.New("device gone")
	q := NewQueue(synth, sink, log)

	q.Enqueue(domain.NewAnnouncement("A", "v", "en"))
	waitStarted(t, sink)
	q.Enqueue(domain.NewAnnouncement("B", "v", "en"))
	sink.release <- struct{}{}
	waitStarted(t, sink)
	sink.release <- struct{}{}
	waitIdle(t, q)

	if sink.playedCount() != 2 {
		t.Fatalf("expected 2 plays, got %d", sink.playedCount())
	}
}

func TestQueueCacheSkipsSynth(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	synth := &mockSynth{}
	sink := newGatedSink()
	q := NewQueue(synth, sink, log, WithCache(NewAudioCache(nil, log)))

	for i := 0; i < 3; i++ {
		q.Enqueue(domain.NewAnnouncement("same text", "v", "en"))
		waitStarted(t, sink)
		sink.release <- struct{}{}
		waitIdle(t, q)
	}

	if synth.callCount() != 1 {
		t.Fatalf("expected 1 synth call, got %d", synth.callCount())
	}
	if q.Cache().Len() != 1 {
		t.Fatalf("expected 1 cache entry, got %d", q.Cache().Len())
	}
}

func TestQueueTestAnnouncementsBypassCache(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	synth := &mockSynth{}
	sink := newGatedSink()
	q := NewQueue(synth, sink, log, WithCache(NewAudioCache(nil, log)))

	for i := 0; i < 2; i++ {
		q.Enqueue(domain.NewTestAnnouncement("hello", "v", "en"))
		waitStarted(t, sink)
		sink.release <- struct{}{}
		waitIdle(t, q)
	}

	if synth.callCount() != 2 {
		t.Fatalf("expected 2 synth calls, got %d", synth.callCount())
	}
	if q.Cache().Len() != 0 {
		t.Fatalf("test announcements must not be cached, got %d entries", q.Cache().Len())
	}
}

func TestQueuePrerenderedAudio(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	synth := &mockSynth{}
	sink := newGatedSink()
	q := NewQueue(synth, sink, log)

	chime := Tone(ChimeFrequency, ChimeDuration, SampleRate)
	q.Enqueue(domain.NewToneAnnouncement("chime", chime))
	waitStarted(t, sink)
	sink.release <- struct{}{}
	waitIdle(t, q)

	if synth.callCount() != 0 {
		t.Fatalf("tone announcements must not be synthesized, got %d calls", synth.callCount())
	}
}

func TestQueueClose(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	synth := &mockSynth{}
	sink := newGatedSink()
	q := NewQueue(synth, sink, log)

	q.Enqueue(domain.NewAnnouncement("A", "v", "en"))
	waitStarted(t, sink)
	q.Enqueue(domain.NewAnnouncement("B", "v", "en"))
	q.Close()

	if q.Enqueue(domain.NewAnnouncement("C", "v", "en")) {
		t.Fatal("Enqueue after Close should return false")
	}
	sink.release <- struct{}{}
	waitIdle(t, q)

	if synth.callCount() != 1 {
		t.Fatalf("pending item should be dropped on Close, got %d synth calls", synth.callCount())
	}
}
