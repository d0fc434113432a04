package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tcompa/Laughlin-Metropolis/internal/mc"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const (
	barWidth   = 40
	historyLen = 40
)

type progressMsg mc.Progress

type doneMsg struct{ err error }

type progressModel struct {
	title    string
	total    int
	progress mc.Progress
	history  []float64
	started  time.Time
	cancel   context.CancelFunc
	stopping bool
	finished bool
	err      error
}

func newProgressModel(title string, total int, cancel context.CancelFunc) progressModel {
	return progressModel{
		title:   title,
		total:   total,
		history: make([]float64, 0, historyLen),
		started: time.Now(),
		cancel:  cancel,
	}
}

func (m progressModel) Init() tea.Cmd { return nil }

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.stopping && m.cancel != nil {
				m.cancel()
			}
			m.stopping = true
		}
		return m, nil

	case progressMsg:
		prev := m.progress
		m.progress = mc.Progress(msg)
		if moves := m.progress.Done - prev.Done; moves > 0 {
			rate := float64(m.progress.Accepted-prev.Accepted) / float64(moves)
			if len(m.history) == historyLen {
				m.history = m.history[1:]
			}
			m.history = append(m.history, rate)
		}
		return m, nil

	case doneMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) fraction() float64 {
	if m.total <= 0 {
		return 1
	}
	f := float64(m.progress.Done) / float64(m.total)
	if f > 1 {
		f = 1
	}
	return f
}

func (m progressModel) View() string {
	var b strings.Builder

	b.WriteString(cyan.Bold(true).Render(m.title))
	b.WriteString("\n\n")

	filled := int(m.fraction() * barWidth)
	b.WriteString(green.Render(strings.Repeat("█", filled)))
	b.WriteString(dimmer.Render(strings.Repeat("░", barWidth-filled)))
	b.WriteString(white.Render(fmt.Sprintf(" %5.1f%%", 100*m.fraction())))
	b.WriteString("\n\n")

	elapsed := time.Since(m.started)
	speed := 0.0
	if s := elapsed.Seconds(); s > 0 {
		speed = float64(m.progress.Done) / s
	}
	acc := 0.0
	if m.progress.Done > 0 {
		acc = float64(m.progress.Accepted) / float64(m.progress.Done)
	}

	b.WriteString(dim.Render("  moves      "))
	b.WriteString(white.Render(fmt.Sprintf("%d / %d", m.progress.Done, m.total)))
	b.WriteString("\n")
	b.WriteString(dim.Render("  acceptance "))
	b.WriteString(white.Render(fmt.Sprintf("%.4f", acc)))
	b.WriteString(" ")
	b.WriteString(yellow.Render(sparkline(m.history)))
	b.WriteString("\n")
	b.WriteString(dim.Render("  speed      "))
	b.WriteString(white.Render(fmt.Sprintf("%.3g moves/s", speed)))
	b.WriteString("\n")
	if speed > 0 && m.progress.Done < m.total {
		eta := time.Duration(float64(m.total-m.progress.Done) / speed * float64(time.Second))
		b.WriteString(dim.Render("  eta        "))
		b.WriteString(white.Render(eta.Round(time.Second).String()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.finished && m.err != nil:
		b.WriteString(red.Render("  failed: " + m.err.Error()))
	case m.finished:
		b.WriteString(green.Render("  done"))
	case m.stopping:
		b.WriteString(yellow.Render("  stopping, saving state..."))
	default:
		b.WriteString(dimmer.Render("  q to stop and save"))
	}
	b.WriteString("\n")
	return b.String()
}

var sparkChars = []rune("▁▂▃▄▅▆▇█")

// sparkline maps values in [0, 1] to block characters.
func sparkline(values []float64) string {
	out := make([]rune, len(values))
	for i, v := range values {
		k := int(v * float64(len(sparkChars)))
		if k < 0 {
			k = 0
		}
		if k >= len(sparkChars) {
			k = len(sparkChars) - 1
		}
		out[i] = sparkChars[k]
	}
	return string(out)
}

type programObserver struct {
	p *tea.Program
}

func (o programObserver) OnProgress(p mc.Progress) {
	o.p.Send(progressMsg(p))
}

// RunWithProgress runs work while rendering a live progress view. work gets
// an observer to register with the chain and a context that is cancelled
// when the user asks to stop; the error returned is work's own.
func RunWithProgress(ctx context.Context, title string, total int, work func(ctx context.Context, obs mc.Observer) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(title, total, cancel))

	errc := make(chan error, 1)
	go func() {
		err := work(ctx, programObserver{p: p})
		errc <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errc
		return err
	}
	return <-errc
}
