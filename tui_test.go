package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"gamepal/governor"
)

func typeText(m tuiModel, s string) tuiModel {
	for _, r := range s {
		var msg tea.KeyMsg
		if r == ' ' {
			msg = tea.KeyMsg{Type: tea.KeySpace}
		} else {
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
		}
		next, _ := m.Update(msg)
		m = next.(tuiModel)
	}
	return m
}

func TestTUIEnterSubmitsInput(t *testing.T) {
	var asked string
	m := newTUIModel(tuiActions{ask: func(s string) { asked = s }})
	m = typeText(m, "boss weak point")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(tuiModel)
	if cmd == nil {
		t.Fatal("enter produced no command")
	}
	cmd()
	if asked != "boss weak point" {
		t.Errorf("asked %q", asked)
	}
	if len(m.input) != 0 {
		t.Errorf("input not cleared: %q", string(m.input))
	}
}

func TestTUIBlankEnterIsIgnored(t *testing.T) {
	m := newTUIModel(tuiActions{ask: func(string) { t.Error("blank input submitted") }})
	m = typeText(m, "  ")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		cmd()
	}
}

func TestTUIAudioKeysNeedControls(t *testing.T) {
	plays := 0
	m := newTUIModel(tuiActions{play: func() { plays++ }})

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlP}); cmd != nil {
		t.Fatal("ctrl+p without controls returned a command")
	}

	next, _ := m.Update(controlsMsg{SizeKB: 12.5})
	m = next.(tuiModel)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	if cmd == nil {
		t.Fatal("ctrl+p with controls returned no command")
	}
	cmd()
	if plays != 1 {
		t.Errorf("plays = %d", plays)
	}
}

func TestTUIView(t *testing.T) {
	m := newTUIModel(tuiActions{})
	for _, msg := range []tea.Msg{
		tea.WindowSizeMsg{Width: 80, Height: 24},
		statusMsg{Text: "Ready", State: governor.StateReady},
		responseMsg{Text: "Use the dash to cross the gap"},
		controlsMsg{SizeKB: 4.2},
		playbackMsg{Playing: true},
		footerMsg{Text: "backend: healthy"},
	} {
		next, _ := m.Update(msg)
		m = next.(tuiModel)
	}

	view := m.View()
	for _, want := range []string{"Ready", "Use the dash to cross the gap", "4.2 KB", "pause", "backend: healthy"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	next, _ := m.Update(visibleMsg{Shown: false})
	if view := next.(tuiModel).View(); !strings.Contains(view, "hidden") {
		t.Errorf("hidden view = %q", view)
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  []string
	}{
		{"", 10, []string{""}},
		{"short", 10, []string{"short"}},
		{"jump over the spikes", 10, []string{"jump over", "the spikes"}},
		{"line one\nline two", 20, []string{"line one", "line two"}},
		{"abcdefghijkl", 5, []string{"abcde", "fghij", "kl"}},
	}
	for _, tt := range tests {
		got := wrapText(tt.text, tt.width)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
		}
	}
}
