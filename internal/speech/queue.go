package speech

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hammamikhairi/gridvoice/internal/domain"
	"github.com/hammamikhairi/gridvoice/internal/logger"
)

// QueueOption configures the Queue.
type QueueOption func(*Queue)

// WithCache enables content-keyed caching of rendered audio.
func WithCache(c *AudioCache) QueueOption {
	return func(q *Queue) {
		q.cache = c
	}
}

// WithErrorReporter sets who is told about synthesis failures.
func WithErrorReporter(r domain.ErrorReporter) QueueOption {
	return func(q *Queue) {
		q.reporter = r
	}
}

// WithFallback replaces the clip played when synthesis fails.
func WithFallback(a domain.Audio) QueueOption {
	return func(q *Queue) {
		q.fallback = a
	}
}

// WithSynthTimeout bounds a single synthesis call.
func WithSynthTimeout(d time.Duration) QueueOption {
	return func(q *Queue) {
		q.synthTimeout = d
	}
}

// Queue plays announcements one at a time with a single pending slot.
//
// Enqueue never blocks. When nothing is in flight it starts a background
// render+play sequence; otherwise the announcement replaces whatever was
// pending, so after the current item finishes only the most recent
// request is spoken. Intermediate requests are dropped on purpose: a stale
// price is worse than a skipped one.
//
// The mutex guards only the busy flag and the pending slot. Synthesis and
// playback run outside it so new arrivals are never held up.
type Queue struct {
	synth        domain.Synthesizer
	sink         domain.Sink
	cache        *AudioCache
	reporter     domain.ErrorReporter
	log          *logger.Logger
	fallback     domain.Audio
	synthTimeout time.Duration

	mu      sync.Mutex
	busy    bool
	pending *domain.Announcement
	idle    chan struct{} // closed when the current sequence ends
	closed  bool
	played  int64
	dropped int64
}

// NewQueue creates an announcement queue over a synthesizer and a sink.
func NewQueue(synth domain.Synthesizer, sink domain.Sink, log *logger.Logger, opts ...QueueOption) *Queue {
	q := &Queue{
		synth:        synth,
		sink:         sink,
		log:          log,
		fallback:     Tone(FallbackFrequency, FallbackDuration, SampleRate),
		synthTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue schedules an announcement. Returns false if the queue is closed.
func (q *Queue) Enqueue(a domain.Announcement) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.log.Debug("queue: closed, ignoring %q", truncate(a.Text, 60))
		return false
	}
	if q.busy {
		if q.pending != nil {
			q.dropped++
			q.log.Debug("queue: superseded pending %q", truncate(q.pending.Text, 60))
		}
		q.pending = &a
		q.mu.Unlock()
		q.log.Debug("queue: pending (override): %s", truncate(a.Text, 60))
		return true
	}
	q.busy = true
	q.idle = make(chan struct{})
	q.mu.Unlock()

	go q.run(a)
	return true
}

// run renders and plays a, then keeps going while something is pending.
func (q *Queue) run(a domain.Announcement) {
	for {
		q.process(a)

		q.mu.Lock()
		q.played++
		if q.pending != nil {
			a = *q.pending
			q.pending = nil
			q.mu.Unlock()
			q.log.Debug("queue: playing pending: %s", truncate(a.Text, 60))
			continue
		}
		q.busy = false
		close(q.idle)
		q.mu.Unlock()
		return
	}
}

// process renders one announcement and plays it. Failures never stop the
// queue: a render error plays the fallback clip, a playback error just
// ends the item.
func (q *Queue) process(a domain.Announcement) {
	ctx := context.Background()
	waited := time.Since(a.CreatedAt).Round(time.Millisecond)
	q.log.Debug("queue: speaking (waited=%s, cache=%t): %s", waited, a.Cacheable, truncate(a.Text, 60))

	audio, err := q.render(ctx, a)
	if err != nil {
		q.log.Error("queue: synthesis failed for %q: %v", truncate(a.Text, 60), err)
		q.report("TTS failed, using fallback audio: " + err.Error())
		audio = q.fallback
	}

	if err := q.sink.Play(ctx, audio); err != nil {
		q.log.Error("queue: playback failed: %v", err)
	}
}

// render returns the audio for a, from the prerendered clip, the cache, or
// the synthesizer.
func (q *Queue) render(ctx context.Context, a domain.Announcement) (domain.Audio, error) {
	if a.Audio != nil {
		return *a.Audio, nil
	}
	if a.Text == "" {
		return domain.Audio{}, domain.ErrEmptyText
	}

	useCache := a.Cacheable && q.cache != nil
	var key string
	if useCache {
		key = CacheKey(a.Text, a.Voice, a.Language)
		if data, ok := q.cache.Get(ctx, key); ok {
			audio, err := DecodeWAV(data)
			if err == nil {
				return audio, nil
			}
			q.log.Warn("queue: cached audio %s unreadable, regenerating: %v", shortKey(key), err)
		}
	}

	sctx, cancel := context.WithTimeout(ctx, q.synthTimeout)
	defer cancel()

	audio, err := q.synth.Synthesize(sctx, a.Text, a.Language, a.Voice)
	if err != nil {
		return domain.Audio{}, err
	}
	if audio.Empty() {
		return domain.Audio{}, errors.New("synthesizer returned no audio")
	}

	if useCache {
		q.cache.Put(ctx, key, EncodeWAV(audio))
	}
	return audio, nil
}

func (q *Queue) report(msg string) {
	if q.reporter != nil {
		q.reporter.ReportError(msg)
	}
}

// IsSpeaking returns true while a render+play sequence is running.
func (q *Queue) IsSpeaking() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.busy
}

// Pending returns the announcement waiting in the slot, if any.
func (q *Queue) Pending() (domain.Announcement, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == nil {
		return domain.Announcement{}, false
	}
	return *q.pending, true
}

// Stats returns how many items were played and how many were superseded.
func (q *Queue) Stats() (played, dropped int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.played, q.dropped
}

// Wait blocks until the queue is idle or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	for {
		q.mu.Lock()
		if !q.busy {
			q.mu.Unlock()
			return nil
		}
		idle := q.idle
		q.mu.Unlock()

		select {
		case <-idle:
			// A new sequence may have started right after; check again.
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops accepting announcements and discards the pending one. The
// item in flight is allowed to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.pending = nil
	q.mu.Unlock()
	q.log.Info("queue closed")
}

// Cache returns the audio cache, or nil when caching is disabled.
func (q *Queue) Cache() *AudioCache { return q.cache }
