// Package kiosk is the full-screen operator display. It drives a
// scanner.Session from the bubbletea update loop.
package kiosk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"job-scanner/scanner"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaGreen      = "#50FA7B"
	draculaOrange     = "#FFB86C"
	draculaPink       = "#FF79C6"
	draculaPurple     = "#BD93F9"
	draculaRed        = "#FF5555"
	draculaYellow     = "#F1FA8C"
	draculaComment    = "#6272A4"
)

const (
	successPopupDuration = 1500 * time.Millisecond
	errorPopupDuration   = 2 * time.Second
	clockFormat          = "01/02/2006 03:04 PM"
	inputWidth           = 24
	inputCharLimit       = 64
)

type styles struct {
	title, label, value, location, warn, error, info, help, bar, app lipgloss.Style
	popupOK, popupErr                                                lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPink)).
			Bold(true),
		label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaYellow)),
		value: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaForeground)).
			Bold(true),
		location: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaCyan)).
			Bold(true),
		warn: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaOrange)),
		error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
		info: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		bar: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(lipgloss.Color(draculaPurple)),
		app: lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color(draculaCyan)).
			Foreground(lipgloss.Color(draculaForeground)),
		popupOK: lipgloss.NewStyle().
			Padding(1, 4).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(draculaGreen)).
			Foreground(lipgloss.Color(draculaGreen)).
			Bold(true),
		popupErr: lipgloss.NewStyle().
			Padding(1, 4).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(draculaRed)).
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
	}
}

// Options are the static values shown in the bottom bar plus the refresh period.
type Options struct {
	Hostname        string
	IP              string
	Version         string
	RefreshInterval time.Duration
	Now             func() time.Time
}

type completionMsg struct{ c scanner.Completion }

type refreshMsg struct{}

type clockMsg time.Time

type popupExpiredMsg struct{ seq int }

type popup struct {
	title, body string
	isError     bool
	seq         int
}

// Model is the bubbletea model. All Session calls happen inside Update.
type Model struct {
	ctx     context.Context
	session *scanner.Session
	opts    Options
	input   textinput.Model
	styles  styles

	popup    *popup
	popupSeq int
	now      time.Time
	width    int
	height   int
}

// New builds the model. Background tasks get a context detached from
// ctx's cancellation so an in-flight insert finishes after quit.
func New(ctx context.Context, session *scanner.Session, opts Options) *Model {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = scanner.DefaultRefreshInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ti := textinput.New()
	ti.Placeholder = "Scan or type job number"
	ti.CharLimit = inputCharLimit
	ti.Width = inputWidth
	ti.Prompt = "› "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaCyan))
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaForeground))
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaComment))
	ti.Focus()

	return &Model{
		ctx:     context.WithoutCancel(ctx),
		session: session,
		opts:    opts,
		input:   ti,
		styles:  newStyles(),
		now:     opts.Now(),
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.run(m.session.Refresh()),
		m.scheduleRefresh(),
		m.tickClock(),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case completionMsg:
		m.session.Apply(msg.c)
		return m, nil
	case refreshMsg:
		return m, tea.Batch(m.run(m.session.Refresh()), m.scheduleRefresh())
	case clockMsg:
		m.now = time.Time(msg)
		return m, m.tickClock()
	case popupExpiredMsg:
		if m.popup != nil && m.popup.seq == msg.seq {
			m.popup = nil
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	//nolint:exhaustive // Default case handles all unlisted keys
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		return m.handleEnter()
	case tea.KeyEsc:
		m.input.Reset()
		m.popup = nil
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m *Model) handleEnter() (tea.Model, tea.Cmd) {
	out, task := m.session.Submit(m.input.Value())
	m.input.Reset()

	switch {
	case out.Ignored:
		return m, nil
	case out.Rejection != nil:
		return m, m.showPopup("Invalid Job Number", out.Rejection.Reason.Message(), true)
	default:
		return m, tea.Batch(
			m.run(task),
			m.showPopup("✓ Scan Successful", fmt.Sprintf("Job %s accepted", out.JobNumber), false),
		)
	}
}

// run turns a session Task into a Cmd; bubbletea executes it off the
// update loop and feeds the completion back as a message.
func (m *Model) run(task scanner.Task) tea.Cmd {
	if task == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		return completionMsg{c: task(ctx)}
	}
}

func (m *Model) showPopup(title, body string, isError bool) tea.Cmd {
	m.popupSeq++
	seq := m.popupSeq
	m.popup = &popup{title: title, body: body, isError: isError, seq: seq}

	d := successPopupDuration
	if isError {
		d = errorPopupDuration
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return popupExpiredMsg{seq: seq} })
}

func (m *Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.opts.RefreshInterval, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m *Model) tickClock() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg { return clockMsg(t) })
}

func (m *Model) View() string {
	st := m.session.State()
	s := m.styles
	var content strings.Builder

	content.WriteString(s.title.Render("JOB SCANNER") + "\n\n")

	content.WriteString(s.label.Render("Location: ") + s.location.Render(st.Location) + "\n")
	if st.StatusDetail != "" {
		content.WriteString(s.warn.Render(st.StatusDetail) + "\n")
	}
	content.WriteString("\n")

	content.WriteString(s.label.Render("Job Number:") + "\n")
	content.WriteString(m.input.View() + "\n\n")

	scanned := st.LastAccepted
	if scanned == "" {
		scanned = "-"
	}
	content.WriteString(s.label.Render("Scanned: ") + s.value.Render(scanned) + "\n")
	content.WriteString(m.statusStyle(st).Render(st.StatusLine) + "\n")

	if m.popup != nil {
		content.WriteString("\n" + m.renderPopup() + "\n")
	}

	content.WriteString("\n" + s.help.Render("Enter → submit | Esc → clear | Ctrl+C → quit") + "\n")
	content.WriteString(m.renderBar())

	body := s.app.Align(lipgloss.Left).Render(content.String())
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
	}
	return body
}

func (m *Model) statusStyle(st scanner.State) lipgloss.Style {
	switch st.StatusLevel {
	case scanner.LevelError:
		return m.styles.error
	case scanner.LevelWarn:
		return m.styles.warn
	default:
		return m.styles.info
	}
}

func (m *Model) renderPopup() string {
	style := m.styles.popupOK
	if m.popup.isError {
		style = m.styles.popupErr
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Center, m.popup.title, m.popup.body))
}

func (m *Model) renderBar() string {
	ip := m.opts.IP
	if ip == "" {
		ip = scanner.NullIP
	}
	parts := []string{
		m.now.Format(clockFormat),
		m.opts.Hostname,
		ip,
	}
	if m.opts.Version != "" {
		parts = append(parts, "v"+m.opts.Version)
	}
	return m.styles.bar.Render(strings.Join(parts, "  |  "))
}
