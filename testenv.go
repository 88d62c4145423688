package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gamepal/audio"
	"gamepal/backend"
	"gamepal/governor"
	"gamepal/hotkey"
	"gamepal/log"
	"gamepal/settings"
	"gamepal/sound"
	"gamepal/voice"
)

// lineDisplay prints every display event as one line, for headless runs.
type lineDisplay struct {
	mu sync.Mutex
	w  io.Writer
}

func (d *lineDisplay) printf(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.w, format+"\n", args...)
}

func (d *lineDisplay) Status(text string, st governor.State) { d.printf("STATUS %s %s", st, text) }
func (d *lineDisplay) Response(text string)                  { d.printf("RESPONSE %s", oneLine(text)) }
func (d *lineDisplay) ClearResponse()                        { d.printf("CLEAR") }
func (d *lineDisplay) HideAudioControls()                    { d.printf("CONTROLS hidden") }
func (d *lineDisplay) PlaybackChanged(playing bool)          { d.printf("PLAYBACK %t", playing) }
func (d *lineDisplay) SetVisible(shown bool)                 { d.printf("VISIBLE %t", shown) }
func (d *lineDisplay) Footer(text string)                    { d.printf("FOOTER %s", text) }

func (d *lineDisplay) ShowAudioControls(sizeKB float64, _ voice.Controls) {
	d.printf("CONTROLS %.1fKB", sizeKB)
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}

// settle is how long the app must stay quiet before WAIT returns; it covers
// the delayed auto-submit and auto-analysis.
const settle = governor.AnalysisDelay + 250*time.Millisecond

func (a *app) waitIdle(ctx context.Context) {
	quietSince := time.Now()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if a.gov.Busy() || a.voice.State() == voice.StateSending {
			quietSince = time.Now()
			continue
		}
		if time.Since(quietSince) >= settle {
			return
		}
	}
}

// runTestMode drives the app from stdin with a WAV file standing in for the
// microphone. Commands: KEYDOWN, KEYUP, RECORD, PLAY, SEND, DELETE,
// SCREENSHOT, CLEAR, ASK <text>, WAIT, SLEEP <ms>, QUIT.
func runTestMode(wavPath string, client *backend.Client, store *settings.Store, longPress time.Duration) {
	sound.Disable()

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()
	log.SessionStart(client.BaseURL(), settings.APIKeyConfigured())

	fakeCtx, err := audio.NewFakeContextFromWAV(wavPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := &lineDisplay{w: os.Stdout}
	a := newApp(ctx, client, store, voice.FromSource(audio.NewSource(fakeCtx, nil)), d, nil)

	hk := hotkey.NewFake()
	hy := hotkey.NewHybrid(hk, longPress)
	defer hy.Close()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hy.Start():
				a.startRecording()
			case <-hy.StopChan():
				a.stopRecording()
			}
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch {
		case cmd == "KEYDOWN":
			hk.SimKeydown()
		case cmd == "KEYUP":
			hk.SimKeyup()
		case cmd == "RECORD":
			a.toggleRecording()
		case cmd == "PLAY":
			a.play()
		case cmd == "SEND":
			a.send()
		case cmd == "DELETE":
			a.deleteRecording()
		case cmd == "SCREENSHOT":
			a.screenshot()
		case cmd == "CLEAR":
			a.clear()
		case strings.HasPrefix(cmd, "ASK "):
			a.ask(cmd[4:])
		case cmd == "WAIT":
			a.waitIdle(ctx)
		case strings.HasPrefix(cmd, "SLEEP "):
			if ms, err := strconv.Atoi(cmd[6:]); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		case cmd == "QUIT":
			log.SessionEnd(a.close())
			return
		}
	}
	log.SessionEnd(a.close())
}
