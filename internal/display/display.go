// Package display provides the terminal UI using Bubble Tea.
//
// The [UI] renders the live price, its direction and change since start,
// the feed status and the current announcer settings. Single keys drive
// the common actions; ":" opens a command line for the rest. Log lines
// and notices are printed above the rendered area via Program.Println so
// concurrent writes never garble the display.
package display

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hammamikhairi/gridvoice/internal/domain"
	"github.com/hammamikhairi/gridvoice/internal/engine"
	"github.com/hammamikhairi/gridvoice/internal/phrase"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	priceStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#f4f4f5"))

	upStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#00E676"))

	downStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5252"))

	flatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	// BannerStyle is the muted slate used for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	urgentOutputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fca5a5"))
)

var usd = message.NewPrinter(language.English)

// ── UI ───────────────────────────────────────────────────────────

// Controller is the part of the engine the view drives.
type Controller interface {
	Snapshot() engine.Snapshot
	Updates() <-chan struct{}
	ToggleMute() bool
	SetInterval(interval float64) error
	SetVoice(voice string) error
	SetLanguage(name string) error
	SetTickerMode(on bool)
	TestVoice(voice string)
}

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking). Other goroutines may safely call
// [UI.Println] and [UI.Printf] at any time.
type UI struct {
	program *tea.Program
	ctrl    Controller
	quitCh  chan struct{}
	done    atomic.Bool
}

// NewUI creates the display. Call Run() to start.
func NewUI(ctrl Controller) *UI {
	return &UI{
		ctrl:   ctrl,
		quitCh: make(chan struct{}),
	}
}

// Println prints a line above the view. Thread-safe. Falls back to
// fmt.Println when the program is not running.
func (u *UI) Println(a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Println(a...)
	} else {
		fmt.Println(a...)
	}
}

// Printf prints formatted text above the view. Thread-safe.
func (u *UI) Printf(format string, a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Printf(format, a...)
	} else {
		fmt.Printf(format+"\n", a...)
	}
}

// PrintNotice prints an informational line.
func (u *UI) PrintNotice(text string) {
	u.Println(noticeStyle.Render("  " + text))
}

// PrintUrgent prints an error line.
func (u *UI) PrintUrgent(text string) {
	u.Println(urgentOutputStyle.Render("  " + text))
}

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run() error {
	u.program = tea.NewProgram(newModel(u.ctrl))
	_, err := u.program.Run()
	u.done.Store(true)
	close(u.quitCh)
	return err
}

// ── Bubble Tea model ─────────────────────────────────────────────

type model struct {
	ctrl    Controller
	snap    engine.Snapshot
	input   textinput.Model
	editing bool   // command line open
	notice  string // result of the last action
	now     time.Time
	width   int
}

func newModel(ctrl Controller) model {
	ti := textinput.New()
	// Plain-text prompt so the textinput width math stays correct.
	ti.Prompt = ":"
	ti.PromptStyle = promptStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	ti.CharLimit = 120
	ti.Width = 60

	return model{
		ctrl:  ctrl,
		snap:  ctrl.Snapshot(),
		input: ti,
		now:   time.Now(),
	}
}

// Messages.
type (
	tickMsg     time.Time
	snapshotMsg engine.Snapshot
)

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitForUpdate(m.ctrl))
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForUpdate blocks on the engine's update signal and turns it into a
// snapshot message.
func waitForUpdate(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		<-ctrl.Updates()
		return snapshotMsg(ctrl.Snapshot())
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > 2 {
			m.input.Width = msg.Width - 2
		}
		return m, nil

	case snapshotMsg:
		m.snap = engine.Snapshot(msg)
		return m, tea.Batch(waitForUpdate(m.ctrl), tea.SetWindowTitle(m.titleStr()))

	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()
	}

	if m.editing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
		return m, nil
	}

	switch msg.Runes[0] {
	case 'q':
		return m, tea.Quit
	case 'm':
		if m.ctrl.ToggleMute() {
			m.notice = "muted"
		} else {
			m.notice = "unmuted"
		}
	case 't':
		m.ctrl.TestVoice("")
		m.notice = "testing voice " + m.snap.Voice
	case '+':
		m.notice = m.setInterval(m.snap.Interval * 2)
	case '-':
		m.notice = m.setInterval(m.snap.Interval / 2)
	case 'l':
		next := phrase.Next(m.snap.Language)
		if err := m.ctrl.SetLanguage(next); err != nil {
			m.notice = err.Error()
		} else {
			m.notice = "language " + next
		}
	case 'k':
		m.ctrl.SetTickerMode(!m.snap.TickerMode)
		m.notice = ""
	case ':':
		m.editing = true
		m.input.Reset()
		cmd := m.input.Focus()
		return m, cmd
	}
	m.snap = m.ctrl.Snapshot()
	return m, nil
}

func (m model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		line := m.input.Value()
		m.editing = false
		m.input.Blur()
		m.input.Reset()
		if ParseCommand(line).Type == CmdQuit {
			return m, tea.Quit
		}
		m.notice = runCommand(m.ctrl, line)
		m.snap = m.ctrl.Snapshot()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) setInterval(v float64) string {
	if err := m.ctrl.SetInterval(v); err != nil {
		return err.Error()
	}
	return "interval " + formatInterval(v)
}

// runCommand executes one command line and returns the notice to show.
func runCommand(ctrl Controller, line string) string {
	cmd := ParseCommand(line)

	switch cmd.Type {
	case CmdInterval:
		v, err := strconv.ParseFloat(cmd.Arg, 64)
		if err != nil {
			return fmt.Sprintf("bad interval %q", cmd.Arg)
		}
		if err := ctrl.SetInterval(v); err != nil {
			return err.Error()
		}
		return "interval " + formatInterval(v)
	case CmdVoice:
		if err := ctrl.SetVoice(cmd.Arg); err != nil {
			return err.Error()
		}
		return "voice " + cmd.Arg
	case CmdLanguage:
		name := titleCase(cmd.Arg)
		if err := ctrl.SetLanguage(name); err != nil {
			return fmt.Sprintf("%v (have %s)", err, strings.Join(phrase.Languages, ", "))
		}
		return "language " + name
	case CmdMute:
		if ctrl.ToggleMute() {
			return "muted"
		}
		return "unmuted"
	case CmdTest:
		ctrl.TestVoice(cmd.Arg)
		return "testing voice"
	case CmdTicker:
		on := !ctrl.Snapshot().TickerMode
		ctrl.SetTickerMode(on)
		if on {
			return "ticker mode on"
		}
		return "ticker mode off"
	case CmdHelp:
		return commandHelp
	default:
		if cmd.Arg == "" {
			return ""
		}
		return fmt.Sprintf("unknown command %q", cmd.Arg)
	}
}

func (m model) titleStr() string {
	if !m.snap.HasPrice {
		return "GridVoice"
	}
	return "GridVoice " + formatPrice(m.snap.Price)
}

func (m model) View() string {
	var b strings.Builder

	if m.snap.TickerMode {
		b.WriteString(m.renderTicker())
	} else {
		b.WriteString(m.renderFull())
	}
	b.WriteByte('\n')
	b.WriteString(m.renderBar())
	b.WriteByte('\n')

	if m.editing {
		b.WriteString(m.input.View())
	} else {
		hint := "m mute  t test  +/- interval  l language  k ticker  : command  q quit"
		if m.notice != "" {
			hint = m.notice
		}
		b.WriteString(secondaryStyle.Render(hint))
	}
	return b.String()
}

func (m model) renderFull() string {
	var b strings.Builder
	b.WriteString("\n  ")
	b.WriteString(m.renderPrice())
	b.WriteString("\n\n  ")

	if c := m.snap.LastCrossing; c != nil {
		b.WriteString(labelStyle.Render("last crossing: "))
		style := upStyle
		if c.Direction == domain.Down {
			style = downStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("%s %s", c.Direction, formatPrice(c.Boundary))))
		b.WriteString(secondaryStyle.Render(" at " + m.snap.CrossingAt.Format("15:04:05")))
	} else {
		b.WriteString(secondaryStyle.Render("no crossing yet"))
	}
	b.WriteByte('\n')
	return b.String()
}

// renderTicker is the compact layout with a clock.
func (m model) renderTicker() string {
	return "  " + labelStyle.Render(m.now.Format("03:04:05 PM Mon, Jan 02")) +
		sepStyle.Render("  │  ") + m.renderPrice()
}

func (m model) renderPrice() string {
	if !m.snap.HasPrice {
		return secondaryStyle.Render("waiting for price...")
	}

	var arrow string
	switch m.snap.Trend {
	case 1:
		arrow = upStyle.Render("▲")
	case -1:
		arrow = downStyle.Render("▼")
	default:
		arrow = " "
	}

	pct := m.snap.ChangePct
	sign, style := "", flatStyle
	switch {
	case pct > 0:
		sign, style = "+", upStyle
	case pct < 0:
		style = downStyle
	}
	return priceStyle.Render(formatPrice(m.snap.Price)) + " " + arrow + "  " +
		style.Render(fmt.Sprintf("%s%.2f%%", sign, pct))
}

func (m model) renderBar() string {
	status := upStyle.Render("Connected")
	if !m.snap.Connected {
		status = downStyle.Render("Disconnected")
	}
	if m.snap.LastError != "" {
		status = downStyle.Render("TTS Error")
	}

	sound := "🔊"
	if m.snap.Muted {
		sound = "🔇"
	}

	parts := []string{
		status,
		labelStyle.Render("grid ") + formatInterval(m.snap.Interval),
		labelStyle.Render(m.snap.Language),
		labelStyle.Render(m.snap.Voice),
		sound,
	}
	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "

	w := m.width
	if w <= 0 {
		w = 80
	}
	return barBg.Width(w).Render(content)
}

// ── Helpers ──────────────────────────────────────────────────────

// formatPrice renders dollars with thousands separators: $95,450.12.
func formatPrice(p float64) string {
	return usd.Sprintf("$%.2f", p)
}

func formatInterval(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
