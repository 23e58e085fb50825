package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"cpuload-view/internal/source"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// treeMsg carries a freshly built tree.
type treeMsg struct{ Tree }

// stateMsg reports a source state transition.
type stateMsg struct {
	strategy string
	state    source.State
}

// errMsg carries the last update failure.
type errMsg struct{ err error }

type setToggleMsg struct{ fn func() }

const (
	coreColumn  = 8
	labelColumn = 16
	minBarWidth = 10
	chromeLines = 3
)

var (
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	stateStyle = map[source.State]lipgloss.Style{
		source.Connecting: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		source.Open:       lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		source.Closed:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		source.Errored:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
)

// TUISink renders trees in a full-screen bubbletea program.
type TUISink struct {
	program teaProgram
	done    chan struct{}
}

// NewTUISink starts a bubbletea program and returns a TUISink.
func NewTUISink(origin string) *TUISink {
	s := &TUISink{done: make(chan struct{})}
	p := tea.NewProgram(newTUIModel(origin), tea.WithAltScreen())
	s.program = p
	go func() {
		_, _ = p.Run()
		close(s.done)
	}()
	return s
}

// Render implements Sink.
func (s *TUISink) Render(t Tree) error {
	s.program.Send(treeMsg{t})
	return nil
}

// SetState implements StateSink.
func (s *TUISink) SetState(strategy string, st source.State) {
	s.program.Send(stateMsg{strategy: strategy, state: st})
}

// SetError implements ErrorSink.
func (s *TUISink) SetError(err error) {
	s.program.Send(errMsg{err: err})
}

// SetToggle registers the callback bound to the mode switch key.
func (s *TUISink) SetToggle(fn func()) {
	s.program.Send(setToggleMsg{fn: fn})
}

// Done is closed once the user quits the program.
func (s *TUISink) Done() <-chan struct{} { return s.done }

// Close shuts down the TUI program and waits for cleanup.
func (s *TUISink) Close() error {
	if s.program != nil {
		s.program.Send(tea.Quit())
	}
	if s.done != nil {
		<-s.done
	}
	return nil
}

type tuiModel struct {
	origin   string
	tree     Tree
	haveTree bool
	updated  time.Time
	strategy string
	state    source.State
	lastErr  string
	toggle   func()
	help     bool
	vp       viewport.Model
	width    int
	height   int
}

func newTUIModel(origin string) tuiModel {
	return tuiModel{
		origin: origin,
		tree:   Tree{Title: Title},
		state:  source.Closed,
		vp:     viewport.New(0, 0),
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = msg.Width
		m.resize()
		m.refresh()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
			case "q", "ctrl+c":
				return m, tea.Quit
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "m":
			if m.toggle != nil {
				go m.toggle()
			}
			return m, nil
		case "h", "?":
			m.help = true
			return m, nil
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	case treeMsg:
		m.tree = msg.Tree
		m.haveTree = true
		m.updated = time.Now()
		m.lastErr = ""
		m.resize()
		m.refresh()
	case stateMsg:
		m.strategy = msg.strategy
		m.state = msg.state
	case errMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		}
		m.resize()
	case setToggleMsg:
		m.toggle = msg.fn
	}
	return m, nil
}

// resize gives the viewport whatever the header and footer leave over.
func (m *tuiModel) resize() {
	h := m.height - chromeLines - lipgloss.Height(m.renderFooter())
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
}

func (m *tuiModel) refresh() {
	m.vp.SetContent(renderBars(m.tree, m.width))
}

func renderBars(t Tree, width int) string {
	barWidth := width - coreColumn - labelColumn
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}
	lines := make([]string, 0, len(t.Bars))
	for _, b := range t.Bars {
		fill := fillCells(b.Value, barWidth)
		bar := loadStyle(b.Value).Render(strings.Repeat("█", fill)) +
			trackStyle.Render(strings.Repeat("░", barWidth-fill))
		lines = append(lines, fmt.Sprintf("cpu%-3d  %s %s", b.Core, bar, b.Label))
	}
	return strings.Join(lines, "\n")
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.width)
	sections := []string{
		m.renderHeader(),
		divider,
		m.vp.View(),
		divider,
		m.renderFooter(),
	}
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	mode := m.strategy
	if mode == "" {
		mode = "-"
	}
	st := stateStyle[m.state].Render("● " + m.state.String())
	updated := "never"
	if m.haveTree {
		updated = m.updated.Format("15:04:05")
	}
	return fmt.Sprintf("%s  %s  mode=%s  cores=%d  updated=%s  %s",
		titleStyle.Render(m.tree.Title), st, mode, len(m.tree.Bars), updated, hintStyle.Render(m.origin))
}

func (m tuiModel) renderFooter() string {
	hints := hintStyle.Render("q quit | m toggle poll/push | h help")
	if m.lastErr == "" {
		return hints
	}
	msg := m.lastErr
	if m.width > 0 {
		msg = wordwrap.String(msg, m.width)
	}
	return errStyle.Render(msg) + "\n" + hints
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q      quit",
		" m      switch between polling and streaming",
		" h/?    toggle this help view",
		" ↑/↓    scroll bars when they do not fit",
	}
	return strings.Join(lines, "\n")
}
