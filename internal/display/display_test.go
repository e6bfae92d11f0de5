package display

import (
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hammamikhairi/gridvoice/internal/domain"
	"github.com/hammamikhairi/gridvoice/internal/engine"
	"github.com/hammamikhairi/gridvoice/internal/phrase"
)

// fakeController records what the view asked for.
type fakeController struct {
	mu      sync.Mutex
	snap    engine.Snapshot
	updates chan struct{}
	tests   []string
}

func newFakeController() *fakeController {
	return &fakeController{
		snap: engine.Snapshot{
			Interval: 50,
			Language: "Korean",
			Voice:    "en-US-AvaMultilingualNeural",
		},
		updates: make(chan struct{}, 1),
	}
}

func (f *fakeController) Snapshot() engine.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeController) Updates() <-chan struct{} { return f.updates }

func (f *fakeController) ToggleMute() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Muted = !f.snap.Muted
	return f.snap.Muted
}

func (f *fakeController) SetInterval(v float64) error {
	if v <= 0 {
		return domain.ErrInvalidInterval
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Interval = v
	return nil
}

func (f *fakeController) SetVoice(v string) error {
	if v == "" {
		return errors.New("voice must not be empty")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Voice = v
	return nil
}

func (f *fakeController) SetLanguage(name string) error {
	if _, err := phrase.Code(name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Language = name
	return nil
}

func (f *fakeController) SetTickerMode(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.TickerMode = on
}

func (f *fakeController) TestVoice(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tests = append(f.tests, v)
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func press(t *testing.T, m model, msgs ...tea.Msg) model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(model)
	}
	return m
}

func TestKeys(t *testing.T) {
	ctrl := newFakeController()
	m := newModel(ctrl)

	m = press(t, m, key('m'))
	if !ctrl.Snapshot().Muted || m.notice != "muted" {
		t.Fatalf("m should mute, notice=%q", m.notice)
	}

	m = press(t, m, key('+'))
	if ctrl.Snapshot().Interval != 100 {
		t.Fatalf("+ should double the interval, got %v", ctrl.Snapshot().Interval)
	}
	m = press(t, m, key('-'), key('-'))
	if ctrl.Snapshot().Interval != 25 {
		t.Fatalf("- should halve the interval, got %v", ctrl.Snapshot().Interval)
	}

	m = press(t, m, key('l'))
	if ctrl.Snapshot().Language != "English" {
		t.Fatalf("l should cycle to English, got %s", ctrl.Snapshot().Language)
	}

	m = press(t, m, key('k'))
	if !ctrl.Snapshot().TickerMode {
		t.Fatal("k should enable ticker mode")
	}

	press(t, m, key('t'))
	if len(ctrl.tests) != 1 {
		t.Fatalf("t should run one voice test, got %d", len(ctrl.tests))
	}
}

func TestQuitKeys(t *testing.T) {
	m := newModel(newFakeController())
	for _, msg := range []tea.Msg{key('q'), tea.KeyMsg{Type: tea.KeyCtrlC}} {
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatalf("%v should quit", msg)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%v should produce tea.QuitMsg", msg)
		}
	}
}

func TestCommandLine(t *testing.T) {
	ctrl := newFakeController()
	m := newModel(ctrl)

	m = press(t, m, key(':'))
	if !m.editing {
		t.Fatal(": should open the command line")
	}
	for _, r := range "interval 12.5" {
		m = press(t, m, key(r))
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.editing {
		t.Fatal("enter should close the command line")
	}
	if ctrl.Snapshot().Interval != 12.5 {
		t.Fatalf("expected interval 12.5, got %v", ctrl.Snapshot().Interval)
	}
	if m.notice != "interval 12.5" {
		t.Fatalf("unexpected notice %q", m.notice)
	}
}

func TestRunCommand(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"interval 0", domain.ErrInvalidInterval.Error()},
		{"interval abc", `bad interval "abc"`},
		{"voice ko-KR-SunHiNeural", "voice ko-KR-SunHiNeural"},
		{"lang french", "language French"},
		{"mute", "muted"},
		{"test", "testing voice"},
		{"dance", `unknown command "dance"`},
		{"ticker", "ticker mode on"},
		{"help", commandHelp},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := runCommand(newFakeController(), tt.line); got != tt.want {
				t.Fatalf("runCommand(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}

	if got := runCommand(newFakeController(), "lang klingon"); !strings.Contains(got, "Korean") {
		t.Fatalf("unknown language should list the choices, got %q", got)
	}
}

func TestView(t *testing.T) {
	ctrl := newFakeController()
	m := newModel(ctrl)
	if !strings.Contains(m.View(), "waiting for price") {
		t.Fatal("expected waiting message before the first price")
	}

	next, _ := m.Update(snapshotMsg(engine.Snapshot{
		Price:        95450.5,
		HasPrice:     true,
		Trend:        1,
		ChangePct:    1.25,
		Connected:    true,
		LastCrossing: &domain.CrossingEvent{Boundary: 95450, Direction: domain.Up},
		LastError:    "TTS failed",
		Interval:     50,
		Language:     "Korean",
		Voice:        "v",
	}))
	view := next.(model).View()

	for _, want := range []string{"$95,450.50", "▲", "+1.25%", "TTS Error", "UP $95,450.00"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
}

func TestRenderBanner(t *testing.T) {
	out := renderBanner(200, "BTCUSDT")
	if !strings.Contains(out, "BTCUSDT") {
		t.Fatal("banner should include the subtitle")
	}
	if !strings.HasPrefix(out, " ") {
		t.Fatal("banner should be centred on a wide terminal")
	}
}
