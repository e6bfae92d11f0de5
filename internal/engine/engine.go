// Package engine wires the price feed, the boundary tracker and the
// announcement queue together and owns the state the view renders.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hammamikhairi/gridvoice/internal/domain"
	"github.com/hammamikhairi/gridvoice/internal/grid"
	"github.com/hammamikhairi/gridvoice/internal/logger"
	"github.com/hammamikhairi/gridvoice/internal/phrase"
	"github.com/hammamikhairi/gridvoice/internal/settings"
	"github.com/hammamikhairi/gridvoice/internal/speech"
)

// PriceFeed delivers trade prices and connection state.
type PriceFeed interface {
	Prices() <-chan float64
	Status() <-chan bool
}

// Announcer accepts announcements without blocking.
type Announcer interface {
	Enqueue(a domain.Announcement) bool
}

// SettingsStore reads and persists user preferences.
type SettingsStore interface {
	Get() settings.Settings
	Set(key string, value any) error
}

// Compile-time interface check.
var _ domain.ErrorReporter = (*Engine)(nil)

// Option configures the engine.
type Option func(*Engine)

// WithChime replaces the clip played on the hour in ticker mode.
func WithChime(a domain.Audio) Option {
	return func(e *Engine) {
		e.chime = a
	}
}

// Snapshot is a consistent copy of everything the view shows.
type Snapshot struct {
	Price     float64
	PrevPrice float64
	Baseline  float64 // first price seen this run
	HasPrice  bool
	ChangePct float64 // Price vs Baseline
	Trend     int     // +1 after a rise, -1 after a fall, kept on equal prices

	Connected    bool
	LastCrossing *domain.CrossingEvent
	CrossingAt   time.Time
	LastError    string // cleared on the next connection change

	Interval    float64
	Language    string
	Voice       string
	Muted       bool
	TickerMode  bool
	AlwaysOnTop bool

	Announced int64
}

// Engine is the orchestrator. Run consumes the feed on one goroutine; the
// setters may be called from any goroutine.
type Engine struct {
	feed     PriceFeed
	queue    Announcer
	settings SettingsStore
	log      *logger.Logger
	chime    domain.Audio

	trackerMu sync.Mutex
	tracker   *grid.Tracker

	mu      sync.Mutex
	state   Snapshot
	updates chan struct{}
}

// New creates an engine. The tracker's interval is taken as current; the
// remaining preferences come from the settings store.
func New(feed PriceFeed, tracker *grid.Tracker, queue Announcer, store SettingsStore, log *logger.Logger, opts ...Option) *Engine {
	s := store.Get()
	e := &Engine{
		feed:     feed,
		queue:    queue,
		settings: store,
		log:      log,
		chime:    speech.Tone(speech.ChimeFrequency, speech.ChimeDuration, speech.SampleRate),
		tracker:  tracker,
		updates:  make(chan struct{}, 1),
		state: Snapshot{
			Interval:    tracker.Interval(),
			Language:    s.Language,
			Voice:       s.Voice,
			Muted:       s.Muted,
			TickerMode:  s.TickerMode,
			AlwaysOnTop: s.AlwaysOnTop,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run consumes prices and status changes until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine running (interval=%v, language=%s)", e.tracker.Interval(), e.Snapshot().Language)

	prices, status := e.feed.Prices(), e.feed.Status()
	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine stopped")
			return nil
		case p, ok := <-prices:
			if !ok {
				prices = nil
				continue
			}
			e.handlePrice(p)
		case s, ok := <-status:
			if !ok {
				status = nil
				continue
			}
			e.handleStatus(s)
		}
	}
}

func (e *Engine) handlePrice(p float64) {
	e.trackerMu.Lock()
	events := e.tracker.ProcessPrice(p)
	e.trackerMu.Unlock()

	e.mu.Lock()
	st := &e.state
	if st.HasPrice {
		st.PrevPrice = st.Price
		switch {
		case p > st.Price:
			st.Trend = 1
		case p < st.Price:
			st.Trend = -1
		}
	} else {
		st.Baseline = p
		st.PrevPrice = p
		st.HasPrice = true
	}
	st.Price = p
	if st.Baseline != 0 {
		st.ChangePct = (p - st.Baseline) / st.Baseline * 100
	}
	var toSpeak []domain.Announcement
	for _, ev := range events {
		st.LastCrossing = &ev
		st.CrossingAt = time.Now()
		e.log.Info("crossing: %s", ev)
		if st.Muted {
			continue
		}
		toSpeak = append(toSpeak, e.announcementLocked(phrase.Crossing(st.Language, ev.Boundary, ev.Direction), false))
	}
	e.mu.Unlock()

	for _, a := range toSpeak {
		e.enqueue(a)
	}
	e.notify()
}

func (e *Engine) handleStatus(connected bool) {
	e.mu.Lock()
	changed := e.state.Connected != connected
	e.state.Connected = connected
	if changed {
		e.state.LastError = ""
	}
	e.mu.Unlock()

	if changed {
		e.log.Info("feed connected=%t", connected)
	}
	e.notify()
}

// announcementLocked builds an announcement in the current language and
// voice. Must be called with e.mu held.
func (e *Engine) announcementLocked(text string, test bool) domain.Announcement {
	code, err := phrase.Code(e.state.Language)
	if err != nil {
		code = "en"
	}
	if test {
		return domain.NewTestAnnouncement(text, e.state.Voice, code)
	}
	return domain.NewAnnouncement(text, e.state.Voice, code)
}

func (e *Engine) enqueue(a domain.Announcement) {
	if !e.queue.Enqueue(a) {
		e.log.Warn("engine: queue rejected %q", a.Text)
		return
	}
	e.mu.Lock()
	e.state.Announced++
	e.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state
	if s.LastCrossing != nil {
		ev := *s.LastCrossing
		s.LastCrossing = &ev
	}
	return s
}

// Updates signals that the snapshot changed. Signals are coalesced.
func (e *Engine) Updates() <-chan struct{} { return e.updates }

func (e *Engine) notify() {
	select {
	case e.updates <- struct{}{}:
	default:
	}
}

// ReportError records a non-fatal failure for display.
func (e *Engine) ReportError(message string) {
	e.log.Warn("reported: %s", message)
	e.mu.Lock()
	e.state.LastError = message
	e.mu.Unlock()
	e.notify()
}

// SetMuted turns announcements off or on. Mute suppresses crossing
// announcements and the chime, never the voice test.
func (e *Engine) SetMuted(muted bool) {
	e.mu.Lock()
	e.state.Muted = muted
	e.mu.Unlock()

	e.mutedChanged(muted)
}

// ToggleMute flips mute and returns the new value.
func (e *Engine) ToggleMute() bool {
	e.mu.Lock()
	e.state.Muted = !e.state.Muted
	muted := e.state.Muted
	e.mu.Unlock()

	e.mutedChanged(muted)
	return muted
}

func (e *Engine) mutedChanged(muted bool) {
	e.persist(settings.KeyMuted, muted)
	e.log.Info("muted=%t", muted)
	e.notify()
}

// SetInterval changes the grid spacing. The tracker forgets every boundary
// and the next price re-anchors it. Invalid values are rejected and the
// current interval is kept.
func (e *Engine) SetInterval(interval float64) error {
	e.trackerMu.Lock()
	err := e.tracker.SetInterval(interval)
	e.trackerMu.Unlock()
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.state.Interval = interval
	e.mu.Unlock()

	e.persist(settings.KeyInterval, interval)
	e.log.Info("interval set to %v", interval)
	e.notify()
	return nil
}

// SetVoice changes the synthesis voice.
func (e *Engine) SetVoice(voice string) error {
	if voice == "" {
		return errors.New("voice must not be empty")
	}
	e.mu.Lock()
	e.state.Voice = voice
	e.mu.Unlock()

	e.persist(settings.KeyVoice, voice)
	e.notify()
	return nil
}

// SetLanguage changes the announcement language by display name.
func (e *Engine) SetLanguage(name string) error {
	if _, err := phrase.Code(name); err != nil {
		return err
	}
	e.mu.Lock()
	e.state.Language = name
	e.mu.Unlock()

	e.persist(settings.KeyLanguage, name)
	e.notify()
	return nil
}

// SetTickerMode turns the compact ticker view and the hourly chime on or off.
func (e *Engine) SetTickerMode(on bool) {
	e.mu.Lock()
	e.state.TickerMode = on
	e.mu.Unlock()

	e.persist(settings.KeyTickerMode, on)
	e.notify()
}

// SetAlwaysOnTop records the window preference. It has no effect on a
// terminal; it is kept so the settings file round-trips.
func (e *Engine) SetAlwaysOnTop(on bool) {
	e.mu.Lock()
	e.state.AlwaysOnTop = on
	e.mu.Unlock()

	e.persist(settings.KeyAlwaysOnTop, on)
	e.notify()
}

// TestVoice speaks the current price with the given voice, or the current
// voice when empty. It ignores mute and is never cached.
func (e *Engine) TestVoice(voice string) {
	e.mu.Lock()
	text := phrase.CurrentPrice(e.state.Language, e.state.Price, e.state.HasPrice)
	a := e.announcementLocked(text, true)
	e.mu.Unlock()

	if voice != "" {
		a.Voice = voice
	}
	e.log.Info("voice test with %s", a.Voice)
	e.enqueue(a)
}

// OnHour is the clock callback. It plays the chime in ticker mode.
func (e *Engine) OnHour(t time.Time) {
	e.mu.Lock()
	play := e.state.TickerMode && !e.state.Muted
	e.mu.Unlock()

	if !play {
		return
	}
	e.log.Debug("hourly chime at %s", t.Format("15:04"))
	e.enqueue(domain.NewToneAnnouncement("hourly chime", e.chime))
}

// persist writes one setting. Failures are logged and never undo the
// in-memory change.
func (e *Engine) persist(key string, value any) {
	if err := e.settings.Set(key, value); err != nil {
		e.log.Error("engine: saving %s: %v", key, err)
	}
}
