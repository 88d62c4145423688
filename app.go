package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"gamepal/backend"
	"gamepal/clipboard"
	"gamepal/governor"
	"gamepal/log"
	"gamepal/settings"
	"gamepal/sound"
	"gamepal/tray"
	"gamepal/voice"
)

const statusTimeout = 5 * time.Second

// app routes user actions from hotkeys, the tray and the display to the
// governor and the voice controller.
type app struct {
	ctx     context.Context
	client  *backend.Client
	store   *settings.Store
	gov     *governor.Governor
	voice   *voice.Controller
	display Display

	visible atomic.Bool
	asked   atomic.Int64
}

func newApp(ctx context.Context, client *backend.Client, store *settings.Store, dev voice.Device, d Display, sched governor.Scheduler) *app {
	a := &app{ctx: ctx, client: client, store: store, display: d}
	sink := shell{d}

	var gopts []governor.Option
	vopts := []voice.Option{voice.WithPlayer(openPlayer)}
	if sched != nil {
		gopts = append(gopts, governor.WithScheduler(sched))
		vopts = append(vopts, voice.WithScheduler(sched))
	}
	a.gov = governor.New(client, sink, sink, store, gopts...)
	a.voice = voice.New(dev, client, counter{a.gov, &a.asked}, sink, vopts...)
	a.visible.Store(true)
	return a
}

func openPlayer(data []byte, mimeType string, onEnd func()) (voice.Player, error) {
	clip, err := sound.OpenClip(data, mimeType, onEnd)
	if err != nil {
		return nil, err
	}
	return clip, nil
}

// counter tallies accepted questions for the session summary.
type counter struct {
	*governor.Governor
	n *atomic.Int64
}

func (c counter) SubmitQuery(ctx context.Context, text string) error {
	err := c.Governor.SubmitQuery(ctx, text)
	if err == nil {
		c.n.Add(1)
		tray.SetHasAnswer(c.Governor.LastAnswer() != "")
	}
	return err
}

func (a *app) ask(text string) {
	err := counter{a.gov, &a.asked}.SubmitQuery(a.ctx, text)
	switch {
	case err == nil:
	case errors.Is(err, governor.ErrEmptyQuery):
	case errors.Is(err, governor.ErrBusy):
		log.Info("ask ignored: request in flight")
	default:
		log.Errorf("ask: %v", err)
	}
}

func (a *app) screenshot() {
	err := a.gov.TakeScreenshot(a.ctx)
	if errors.Is(err, governor.ErrBusy) {
		log.Info("screenshot ignored: request in flight")
	} else if err != nil {
		log.Errorf("screenshot: %v", err)
	}
}

// toggleRecording flips capture and plays the matching cue.
func (a *app) toggleRecording() {
	before := a.voice.State()
	err := a.voice.ToggleRecording(a.ctx)
	after := a.voice.State()

	switch {
	case errors.Is(err, governor.ErrBusy):
		log.Info("record ignored: microphone or transcription busy")
		return
	case after == voice.StateRecording:
		sound.PlayStart()
		tray.SetRecording(true)
		return
	}
	tray.SetRecording(false)
	if before != voice.StateRecording {
		if err != nil {
			sound.PlayError()
		}
		return
	}
	if err != nil {
		sound.PlayError()
		log.Warnf("capture: %v", err)
		return
	}
	sound.PlayEnd()
}

// startRecording and stopRecording serve push-to-talk, where the key edge
// says which way to go.
func (a *app) startRecording() {
	if a.voice.State() != voice.StateRecording {
		a.toggleRecording()
	}
}

func (a *app) stopRecording() {
	if a.voice.State() == voice.StateRecording {
		a.toggleRecording()
	}
}

func (a *app) play() {
	if err := a.voice.Play(); err != nil && !errors.Is(err, voice.ErrNoRecording) {
		log.Warnf("playback: %v", err)
	}
}

func (a *app) send() {
	err := a.voice.Send(a.ctx)
	switch {
	case err == nil, errors.Is(err, voice.ErrNoRecording), errors.Is(err, governor.ErrBusy):
	case errors.Is(err, voice.ErrNoSpeech):
		log.Info("no speech in recording")
	default:
		log.Warnf("transcription: %v", err)
	}
}

func (a *app) deleteRecording() {
	if err := a.voice.Delete(); err != nil && !errors.Is(err, voice.ErrNoRecording) {
		log.Warnf("delete: %v", err)
	}
}

func (a *app) clear() {
	a.display.ClearResponse()
}

func (a *app) toggleOverlay() {
	shown := !a.visible.Load()
	a.visible.Store(shown)
	a.display.SetVisible(shown)
	tray.SetOverlayVisible(shown)
}

func (a *app) copyLast() {
	text := a.gov.LastAnswer()
	if text == "" {
		return
	}
	if err := clipboard.Copy(text); err != nil {
		log.Warnf("clipboard: %v", err)
		a.display.Status("Copy failed", governor.StateError)
		return
	}
	a.display.Status("Copied to clipboard", governor.StateReady)
}

// refreshFooter shows backend health and capture stats under the answer.
func (a *app) refreshFooter() {
	ctx, cancel := context.WithTimeout(a.ctx, statusTimeout)
	defer cancel()
	a.display.Footer(footerText(ctx, a.client))
}

func footerText(ctx context.Context, c *backend.Client) string {
	h, err := c.Health(ctx)
	if err != nil {
		if backend.Reachable(err) {
			return "backend: " + err.Error()
		}
		return "backend: offline (" + c.BaseURL() + ")"
	}
	llm := "llm off"
	if h.LLMEnabled {
		llm = "llm on"
	}
	st, err := c.Status(ctx)
	if err != nil {
		return fmt.Sprintf("backend: %s, %s", h.Status, llm)
	}
	line := fmt.Sprintf("backend: %s, %s, %d screenshots", h.Status, llm, st.ScreenshotCount)
	if st.CurrentGame != "" {
		line += ", playing " + st.CurrentGame
	}
	return line
}

func (a *app) watchFooter(every time.Duration) {
	a.refreshFooter()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.refreshFooter()
		}
	}
}

// autoCapture takes a screenshot every settings interval. Ticks that land
// while another request runs are skipped.
func (a *app) autoCapture() {
	interval := time.Duration(a.store.Get().ScreenshotIntervalMs) * time.Millisecond
	log.Infof("auto capture every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			if a.gov.Busy() || a.voice.State() == voice.StateRecording {
				continue
			}
			a.screenshot()
		}
	}
}

func (a *app) trayHandlers() tray.Handlers {
	return tray.Handlers{
		ToggleOverlay: a.toggleOverlay,
		Screenshot:    func() { go a.screenshot() },
		Record:        a.toggleRecording,
		CopyLast:      a.copyLast,
	}
}

func (a *app) close() int {
	a.voice.Close()
	a.gov.Close()
	return int(a.asked.Load())
}

func (a *app) tuiActions() tuiActions {
	return tuiActions{
		ask:        a.ask,
		screenshot: a.screenshot,
		record:     a.toggleRecording,
		play:       a.play,
		send:       a.send,
		remove:     a.deleteRecording,
		clear:      a.clear,
		copyLast:   a.copyLast,
		overlay:    a.toggleOverlay,
	}
}
