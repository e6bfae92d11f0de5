// Package grid detects price movements through the boundaries of a fixed
// interval grid.
//
// For interval I every price p sits between floor(p/I)*I and that value
// plus I. On each observation the Tracker evaluates the two boundaries
// around the new price and the two around the previous price. A boundary
// is crossed when the side the price is on (above or below) differs from
// the side it was on before. A price landing exactly on a boundary is on
// neither side: it never emits and never overwrites the remembered side,
// so jitter around a boundary value does not re-trigger.
package grid

import (
	"math"
	"sort"

	"github.com/hammamikhairi/gridvoice/internal/domain"
)

// side is a price's position relative to one boundary.
type side int8

const (
	equal side = iota
	above
	below
)

func classify(price, boundary float64) side {
	switch {
	case price > boundary:
		return above
	case price < boundary:
		return below
	default:
		return equal
	}
}

// Tracker holds per-boundary crossing state. It does no locking: callers
// that share a Tracker across goroutines must serialize access.
type Tracker struct {
	interval  float64
	states    map[float64]side // last non-equal side seen per boundary
	lastPrice float64
	hasPrice  bool
	anchored  bool // false until the first price on the current grid
}

// NewTracker creates a tracker for the given interval.
func NewTracker(interval float64) (*Tracker, error) {
	if !validInterval(interval) {
		return nil, domain.ErrInvalidInterval
	}
	return &Tracker{
		interval: interval,
		states:   make(map[float64]side),
	}, nil
}

// Interval returns the current grid spacing.
func (t *Tracker) Interval() float64 { return t.interval }

// LastPrice returns the most recent price seen, and false before the first.
func (t *Tracker) LastPrice() (float64, bool) { return t.lastPrice, t.hasPrice }

// SetInterval replaces the grid spacing and forgets every boundary state.
// The next price re-anchors the grid and emits nothing. An invalid
// interval is rejected and the current one is kept.
func (t *Tracker) SetInterval(interval float64) error {
	if !validInterval(interval) {
		return domain.ErrInvalidInterval
	}
	t.interval = interval
	t.states = make(map[float64]side)
	t.anchored = false
	return nil
}

// ProcessPrice feeds one observation and returns the crossings it caused,
// in the order the move passed through them. The first observation on a
// grid only records the price.
func (t *Tracker) ProcessPrice(price float64) []domain.CrossingEvent {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return nil
	}
	if !t.anchored {
		t.lastPrice = price
		t.hasPrice = true
		t.anchored = true
		return nil
	}

	var events []domain.CrossingEvent
	for _, boundary := range t.candidates(t.lastPrice, price) {
		if ev, ok := t.observe(t.lastPrice, price, boundary); ok {
			events = append(events, ev)
		}
	}
	t.passOver(t.lastPrice, price)

	t.lastPrice = price
	return events
}

// candidates returns the boundaries around prev and cur, deduplicated and
// ordered in the direction of travel.
func (t *Tracker) candidates(prev, cur float64) []float64 {
	curLow := t.floor(cur)
	prevLow := t.floor(prev)

	out := []float64{curLow, curLow + t.interval}
	for _, b := range [2]float64{prevLow, prevLow + t.interval} {
		if b != out[0] && b != out[1] {
			out = append(out, b)
		}
	}

	if cur >= prev {
		sort.Float64s(out)
	} else {
		sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	}
	return out
}

func (t *Tracker) floor(price float64) float64 {
	return math.Floor(price/t.interval) * t.interval
}

// observe updates one boundary and reports whether it was crossed. The
// side before this observation is the previous price's side; when the
// previous price sat exactly on the boundary, the remembered side is used.
func (t *Tracker) observe(prev, cur, boundary float64) (domain.CrossingEvent, bool) {
	current := classify(cur, boundary)
	if current == equal {
		return domain.CrossingEvent{}, false
	}

	before := classify(prev, boundary)
	if before == equal {
		stored, seen := t.states[boundary]
		if !seen {
			// Priming: first non-equal observation of this boundary.
			t.states[boundary] = current
			return domain.CrossingEvent{}, false
		}
		before = stored
	}

	t.states[boundary] = current
	if before == current {
		return domain.CrossingEvent{}, false
	}

	dir := domain.Up
	if current == below {
		dir = domain.Down
	}
	return domain.CrossingEvent{Boundary: boundary, Direction: dir}, true
}

// passOver refreshes the remembered side of every stored boundary strictly
// between prev and cur. A jump moves past boundaries that are not evaluated
// and their sides would otherwise go stale.
func (t *Tracker) passOver(prev, cur float64) {
	lo, hi := math.Min(prev, cur), math.Max(prev, cur)
	for boundary := range t.states {
		if boundary > lo && boundary < hi {
			t.states[boundary] = classify(cur, boundary)
		}
	}
}

// Primed reports whether the boundary has a remembered side.
func (t *Tracker) Primed(boundary float64) bool {
	_, ok := t.states[boundary]
	return ok
}

func validInterval(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
