package view

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

const (
	clearScreen     = "\x1b[H\x1b[2J"
	defaultBarWidth = 40
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	lowStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	midStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	highStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	trackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TextSink prints one frame per tree. With clear enabled each frame replaces
// the previous one on an ANSI terminal.
type TextSink struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	clear    bool
	width    int
}

// NewTextSink creates a TextSink writing to os.Stdout.
func NewTextSink(colorize, clear bool, barWidth int) *TextSink {
	if barWidth <= 0 {
		barWidth = defaultBarWidth
	}
	return &TextSink{out: os.Stdout, colorize: colorize, clear: clear, width: barWidth}
}

// Render implements Sink.
func (s *TextSink) Render(t Tree) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	if s.clear {
		b.WriteString(clearScreen)
	}
	if s.colorize {
		b.WriteString(titleStyle.Render(t.Title))
	} else {
		b.WriteString(t.Title)
	}
	b.WriteString("\n")
	for _, bar := range t.Bars {
		fmt.Fprintf(&b, "cpu%-3d %s %s\n", bar.Core, s.renderBar(bar.Value), bar.Label)
	}
	_, err := io.WriteString(s.out, b.String())
	return err
}

func (s *TextSink) renderBar(v float64) string {
	fill := fillCells(v, s.width)
	if !s.colorize {
		return "[" + strings.Repeat("#", fill) + strings.Repeat(".", s.width-fill) + "]"
	}
	return loadStyle(v).Render(strings.Repeat("█", fill)) + trackStyle.Render(strings.Repeat("░", s.width-fill))
}

// fillCells maps a percentage onto width cells. Out of range values are shown
// as empty or full bars; the label keeps the real value.
func fillCells(v float64, width int) int {
	n := int(math.Round(v / 100 * float64(width)))
	if n < 0 {
		return 0
	}
	if n > width {
		return width
	}
	return n
}

func loadStyle(v float64) lipgloss.Style {
	switch {
	case v >= 80:
		return highStyle
	case v >= 50:
		return midStyle
	default:
		return lowStyle
	}
}
