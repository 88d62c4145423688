package main

import (
	"gamepal/governor"
	"gamepal/tray"
	"gamepal/voice"
)

// Display abstracts the surface answers are rendered on so the Bubble Tea
// TUI, the Fyne overlay and the headless test driver receive the same
// status, response and audio-control events.
type Display interface {
	voice.Sink
	SetVisible(shown bool)
	Footer(text string)
}

// shell forwards display events and mirrors the busy state into the tray.
type shell struct {
	Display
}

func (s shell) Status(text string, st governor.State) {
	s.Display.Status(text, st)
	tray.SetBusy(st == governor.StateProcessing)
	if st == governor.StateError {
		tray.SetError(text)
	}
}
