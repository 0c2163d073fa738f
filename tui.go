package main

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"prompter/engine"
	"prompter/hotkey"
	"prompter/script"
	"prompter/wpm"
)

// TUI message types
type tickMsg time.Time
type hotkeyMsg hotkey.Action

const (
	frameInterval = 16 * time.Millisecond
	notesWidth    = 32
	footerRows    = 3
)

type tuiModel struct {
	s             *session
	snap          engine.Snapshot
	last          time.Time
	width, height int
	showNotes     bool
	device        string // microphone name, empty without one
	hotkey        string // global hotkey label, empty when unavailable
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

var (
	focusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	lineStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	wordStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("16")).Background(lipgloss.Color("226")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	markerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	greyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldHelp      = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	countStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	notesPanel = lipgloss.NewStyle().
			Width(notesWidth - 1).
			PaddingLeft(1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(lipgloss.Color("238"))

	// indexed by wpm.Band
	bandStyles = [...]lipgloss.Style{
		wpm.BandNone:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		wpm.BandSlow:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		wpm.BandOnPace: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		wpm.BandFast:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
)

func NewTUIProgram(s *session, device, hotkeyLabel string) *tea.Program {
	m := tuiModel{
		s:         s,
		snap:      s.eng.Snapshot(),
		showNotes: len(s.eng.Script().Notes()) > 0,
		device:    device,
		hotkey:    hotkeyLabel,
	}
	return tea.NewProgram(m, tea.WithAltScreen())
}

// tuiSend delivers msg to the running program, if any. Safe from any
// goroutine except the program's own Update.
func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func tuiTick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.s.fitWidth(m.wrapCols())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "space", "enter":
			m.s.toggle()
		case "up":
			m.s.adjustSpeed(speedStep)
		case "down":
			m.s.adjustSpeed(-speedStep)
		case "left":
			m.s.seek(-seekLines)
		case "right":
			m.s.seek(seekLines)
		case "r", "esc":
			m.s.reset()
		case "m":
			m.s.setAuto(!m.s.eng.AutoSpeed())
		case "n":
			m.showNotes = !m.showNotes
			m.s.fitWidth(m.wrapCols())
		case "c":
			if err := m.s.copyNote(); err != nil {
				m.s.notify(err.Error())
			} else {
				m.s.notify("note copied")
			}
		case "l":
			if err := m.s.reload(); err != nil {
				m.s.notify(err.Error())
			}
		}

	case hotkeyMsg:
		switch hotkey.Action(msg) {
		case hotkey.ActionToggle:
			m.s.toggle()
		case hotkey.ActionHoldStart:
			m.s.holdStart()
		case hotkey.ActionHoldEnd:
			m.s.pause()
		}

	case tickMsg:
		now := time.Time(msg)
		var dt float64
		if !m.last.IsZero() {
			dt = now.Sub(m.last).Seconds()
		}
		m.last = now
		m.snap = m.s.step(dt)
		return m, tuiTick()
	}
	m.snap = m.s.eng.Snapshot()
	return m, nil
}

func (m tuiModel) textWidth() int {
	w := m.width
	if m.showNotes {
		w -= notesWidth
	}
	return max(w, 10)
}

// wrapCols is the layout width: the text column minus the focus gutter.
func (m tuiModel) wrapCols() int { return m.textWidth() - 2 }

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	bodyH := max(m.height-footerRows, 1)

	body := m.renderScript(bodyH)
	if m.showNotes {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.renderNotes(bodyH))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		body,
		m.renderProgress(),
		m.renderStatus(),
		m.renderHelp(),
	)
}

func (m tuiModel) renderScript(height int) string {
	w := m.textWidth()
	sc := m.s.eng.Script()
	lines := sc.Lines()
	cur := sc.LineAt(m.snap.ScrollOffset)
	focus := height / 3

	rows := make([]string, height)
	if cur < 0 {
		rows[focus] = greyStyle.Render("  (empty script)")
	}
	for r := range rows {
		i := cur + r - focus
		if cur < 0 || i < 0 || i >= len(lines) {
			continue
		}
		rows[r] = m.renderLine(sc, lines[i], i == cur, w)
	}
	if m.snap.State == engine.Countdown && focus > 0 {
		n := int(math.Ceil(m.snap.CountdownRemaining))
		rows[focus-1] = countStyle.Render(fmt.Sprintf("  starting in %d…", n))
	}

	return lipgloss.NewStyle().
		Width(w).
		Height(height).
		MaxHeight(height).
		Render(strings.Join(rows, "\n"))
}

func (m tuiModel) renderLine(sc *script.Script, ln script.Line, focused bool, w int) string {
	prefix := "  "
	if focused {
		prefix = focusStyle.Render("▶ ")
	}
	switch {
	case ln.Marker:
		return prefix + markerStyle.Render("── PAUSE ──")
	case ln.NumWords == 0:
		return prefix
	case !focused:
		return prefix + dimStyle.Render(runewidth.Truncate(ln.Text, w-2, "…"))
	}

	words := sc.Words()[ln.FirstWord : ln.FirstWord+ln.NumWords]
	parts := make([]string, len(words))
	for j, wd := range words {
		st := lineStyle
		if ln.FirstWord+j == m.snap.CurrentWord {
			st = wordStyle
		}
		parts[j] = st.Render(wd.Text)
	}
	return prefix + strings.Join(parts, " ")
}

func (m tuiModel) renderNotes(height int) string {
	var b strings.Builder
	b.WriteString(boldHelp.Render("Notes") + "\n\n")

	wrapWidth := notesWidth - 3
	if m.snap.Note != "" {
		for _, line := range wrapText(m.snap.Note, wrapWidth) {
			b.WriteString(noticeStyle.Render(line) + "\n")
		}
	} else {
		b.WriteString(greyStyle.Render("no note here") + "\n")
	}

	if next, ok := nextNote(m.s.eng.Script(), m.snap.ScrollOffset); ok {
		b.WriteString("\n" + greyStyle.Render("next:") + "\n")
		for _, line := range wrapText(next.Text, wrapWidth) {
			b.WriteString(dimStyle.Render(line) + "\n")
		}
	}
	return notesPanel.Height(height).MaxHeight(height).Render(b.String())
}

func nextNote(sc *script.Script, offset float64) (script.Note, bool) {
	for _, n := range sc.Notes() {
		if n.At > offset {
			return n, true
		}
	}
	return script.Note{}, false
}

func (m tuiModel) renderProgress() string {
	w := max(m.width, 1)
	filled := int(math.Round(m.snap.Progress * float64(w)))
	filled = min(max(filled, 0), w)
	return progressStyle.Render(strings.Repeat("━", filled)) +
		greyStyle.Render(strings.Repeat("─", w-filled))
}

func (m tuiModel) renderStatus() string {
	snap := m.snap
	var parts []string

	switch snap.State {
	case engine.Playing:
		parts = append(parts, bandStyles[wpm.BandOnPace].Render("▶ PLAY"))
	case engine.Paused:
		parts = append(parts, markerStyle.Render("❚❚ PAUSED"))
	case engine.Countdown:
		parts = append(parts, countStyle.Render(fmt.Sprintf("◷ %d", int(math.Ceil(snap.CountdownRemaining)))))
	default:
		parts = append(parts, greyStyle.Render("■ STOPPED"))
	}

	parts = append(parts, fmt.Sprintf("%.2f lines/s", m.s.speed()))
	parts = append(parts, bandStyles[snap.Band].Render(fmt.Sprintf("%3.0f wpm", snap.WPM))+
		greyStyle.Render(fmt.Sprintf(" / %.0f", m.s.eng.TargetWPM())))

	if m.s.eng.AutoSpeed() {
		auto := "auto"
		if m.s.gate != nil {
			auto += " " + levelMeter(m.s.gate.Level(), m.s.gate.Config().Threshold)
		}
		if snap.Multiplier == 0 {
			auto += " hold"
		}
		parts = append(parts, auto)
	}

	parts = append(parts, greyStyle.Render(fmt.Sprintf("%3.0f%%  %s left", snap.Progress*100, formatClock(snap.Remaining))))

	if m.s.rec != nil && m.s.rec.Recording() {
		parts = append(parts, warnStyle.Render("● REC"))
	}
	if m.s.warn {
		parts = append(parts, warnStyle.Render("⚠ no voice detected"))
	}
	if n := m.s.currentNotice(); n != "" {
		parts = append(parts, noticeStyle.Render(n))
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(" " + strings.Join(parts, "  "))
}

func (m tuiModel) renderHelp() string {
	help := helpStyle.Render(" space play/pause  ↑↓ speed  ←→ seek  r reset  m auto  n notes  c copy note  l reload  q quit")
	if m.hotkey != "" {
		help += "  " + boldHelp.Render(m.hotkey) + helpStyle.Render(" anywhere")
	}
	if m.device != "" {
		help += helpStyle.Render("  mic: " + m.device)
	}
	return help
}

func levelMeter(level, threshold float64) string {
	const cells = 8
	full := threshold * 4
	if full <= 0 {
		full = 0.1
	}
	n := int(math.Min(level/full, 1) * cells)
	st := greyStyle
	if level > threshold {
		st = bandStyles[wpm.BandOnPace]
	}
	return st.Render(strings.Repeat("▮", n)) + greyStyle.Render(strings.Repeat("▯", cells-n))
}

// formatClock renders seconds as m:ss.
func formatClock(sec float64) string {
	if !(sec > 0) || math.IsInf(sec, 0) {
		sec = 0
	}
	total := int(math.Round(sec))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for runewidth.StringWidth(text) > width {
		cut := runewidth.Truncate(text, width, "")
		splitAt := strings.LastIndexByte(cut, ' ')
		if splitAt <= 0 {
			splitAt = len(cut)
		}
		if splitAt == 0 {
			// a single rune wider than the column
			_, splitAt = utf8.DecodeRuneInString(text)
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
