package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gamepal/governor"
	"gamepal/voice"
)

// TUI message types
type statusMsg struct {
	Text  string
	State governor.State
}
type responseMsg struct{ Text string }
type clearResponseMsg struct{}
type controlsMsg struct{ SizeKB float64 }
type hideControlsMsg struct{}
type playbackMsg struct{ Playing bool }
type footerMsg struct{ Text string }
type visibleMsg struct{ Shown bool }
type tickMsg time.Time

// tuiActions are the handlers keys are bound to. They run as commands, off
// the update loop.
type tuiActions struct {
	ask        func(string)
	screenshot func()
	record     func()
	play       func()
	send       func()
	remove     func()
	clear      func()
	copyLast   func()
	overlay    func()
}

type tuiModel struct {
	actions       tuiActions
	width, height int
	frame         int
	status        string
	state         governor.State
	response      string
	input         []rune
	controls      bool
	sizeKB        float64
	playing       bool
	footer        string
	hidden        bool
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

var (
	statusStyles = map[governor.State]lipgloss.Style{
		governor.StateProcessing: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		governor.StateReady:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		governor.StateError:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
	answerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	keyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	controlsStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	inputStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			PaddingLeft(1)
)

func newTUIModel(a tuiActions) tuiModel {
	return tuiModel{actions: a, status: "Ready", state: governor.StateReady}
}

func NewTUIProgram(a tuiActions) *tea.Program {
	return tea.NewProgram(newTUIModel(a), tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func act(fn func()) tea.Cmd {
	if fn == nil {
		return nil
	}
	return func() tea.Msg {
		fn()
		return nil
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case statusMsg:
		m.status = msg.Text
		m.state = msg.State

	case responseMsg:
		m.response = msg.Text

	case clearResponseMsg:
		m.response = ""

	case controlsMsg:
		m.controls = true
		m.sizeKB = msg.SizeKB
		m.playing = false

	case hideControlsMsg:
		m.controls = false
		m.playing = false

	case playbackMsg:
		m.playing = msg.Playing

	case footerMsg:
		m.footer = msg.Text

	case visibleMsg:
		m.hidden = !msg.Shown
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter":
		text := string(m.input)
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.input = nil
		if m.actions.ask == nil {
			return m, nil
		}
		return m, func() tea.Msg {
			m.actions.ask(text)
			return nil
		}
	case "backspace":
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
		return m, nil
	case "ctrl+u":
		m.input = nil
		return m, nil
	case "ctrl+s":
		return m, act(m.actions.screenshot)
	case "ctrl+r":
		return m, act(m.actions.record)
	case "ctrl+l":
		return m, act(m.actions.clear)
	case "ctrl+y":
		return m, act(m.actions.copyLast)
	case "ctrl+g":
		return m, act(m.actions.overlay)
	case "ctrl+p":
		if m.controls {
			return m, act(m.actions.play)
		}
		return m, nil
	case "ctrl+t":
		if m.controls {
			return m, act(m.actions.send)
		}
		return m, nil
	case "ctrl+d":
		if m.controls {
			return m, act(m.actions.remove)
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyRunes:
		m.input = append(m.input, msg.Runes...)
	case tea.KeySpace:
		m.input = append(m.input, ' ')
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if m.hidden {
		return dimStyle.Render("gamepal hidden ") + keyStyle.Render("ctrl+g") + dimStyle.Render(" to show")
	}

	width := m.width - 2
	if width < 20 {
		width = 20
	}

	var b strings.Builder

	style, ok := statusStyles[m.state]
	if !ok {
		style = dimStyle
	}
	marker := "○"
	if m.state == governor.StateProcessing && m.frame%2 == 0 {
		marker = "●"
	}
	b.WriteString(style.Render(marker+" "+m.status) + "\n\n")

	if m.response != "" {
		for _, line := range wrapText(m.response, width) {
			b.WriteString(answerStyle.Render(line) + "\n")
		}
	} else {
		b.WriteString(dimStyle.Render("Ask about the game on screen, or press ctrl+s for a screenshot.") + "\n")
	}
	b.WriteString("\n")

	if m.controls {
		play := "play"
		if m.playing {
			play = "pause"
		}
		b.WriteString(controlsStyle.Render(fmt.Sprintf("recording %.1f KB", m.sizeKB)) + "  ")
		b.WriteString(keyStyle.Render("ctrl+p") + helpStyle.Render(" "+play+"  "))
		b.WriteString(keyStyle.Render("ctrl+t") + helpStyle.Render(" send  "))
		b.WriteString(keyStyle.Render("ctrl+d") + helpStyle.Render(" delete") + "\n\n")
	}

	b.WriteString(inputStyle.Width(width).Render("> "+string(m.input)+"█") + "\n")

	if m.footer != "" {
		b.WriteString(dimStyle.Render(m.footer) + "\n")
	}

	help := []string{
		keyStyle.Render("enter") + helpStyle.Render(" ask"),
		keyStyle.Render("ctrl+r") + helpStyle.Render(" record"),
		keyStyle.Render("ctrl+s") + helpStyle.Render(" screenshot"),
		keyStyle.Render("ctrl+l") + helpStyle.Render(" clear"),
		keyStyle.Render("ctrl+y") + helpStyle.Render(" copy"),
		keyStyle.Render("ctrl+g") + helpStyle.Render(" hide"),
	}
	b.WriteString(strings.Join(help, helpStyle.Render("  ")) + "\n")
	b.WriteString(helpStyle.Render("gamepal " + version))

	return lipgloss.NewStyle().Width(m.width).Height(m.height).PaddingLeft(1).Render(b.String())
}

// tuiSink delivers display events to the running program.
type tuiSink struct{}

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (tuiSink) Status(text string, st governor.State) { tuiSend(statusMsg{Text: text, State: st}) }
func (tuiSink) Response(text string)                  { tuiSend(responseMsg{Text: text}) }
func (tuiSink) ClearResponse()                        { tuiSend(clearResponseMsg{}) }
func (tuiSink) HideAudioControls()                    { tuiSend(hideControlsMsg{}) }
func (tuiSink) PlaybackChanged(playing bool)          { tuiSend(playbackMsg{Playing: playing}) }
func (tuiSink) SetVisible(shown bool)                 { tuiSend(visibleMsg{Shown: shown}) }
func (tuiSink) Footer(text string)                    { tuiSend(footerMsg{Text: text}) }

func (tuiSink) ShowAudioControls(sizeKB float64, _ voice.Controls) {
	tuiSend(controlsMsg{SizeKB: sizeKB})
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		r := []rune(para)
		if len(r) == 0 {
			lines = append(lines, "")
			continue
		}
		for len(r) > width {
			// Find last space within width
			splitAt := width
			for i := width; i > 0; i-- {
				if r[i] == ' ' {
					splitAt = i
					break
				}
			}
			lines = append(lines, string(r[:splitAt]))
			r = []rune(strings.TrimLeft(string(r[splitAt:]), " "))
		}
		if len(r) > 0 {
			lines = append(lines, string(r))
		}
	}
	return lines
}
