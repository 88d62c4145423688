package doctor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gamepal/audio"
	"gamepal/backend"
	"gamepal/clipboard"
	"gamepal/hotkey"
)

const (
	recordFor    = 3 * time.Second
	hotkeyWait   = 10 * time.Second
	probeTimeout = 5 * time.Second
)

// Config selects what the checks talk to.
type Config struct {
	Backend *backend.Client
	Device  *audio.DeviceInfo
}

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(cfg Config) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("gamepal doctor - interactive system diagnostics")
	fmt.Println("===============================================")

	out := os.Stdout
	allPass := true

	if !checkBackend(context.Background(), out, cfg.Backend) {
		allPass = false
	}
	if !checkHotkey(out) {
		allPass = false
	}
	// Transcription needs the backend; skip it when that already failed.
	if allPass && !checkMicAndTranscription(out, cfg) {
		allPass = false
	}
	if !checkClipboard(out) {
		allPass = false
	}

	fmt.Fprintln(out)
	if allPass {
		fmt.Fprintln(out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(out, "Some checks failed. See details above.")
	return 1
}

func checkBackend(ctx context.Context, w io.Writer, c *backend.Client) bool {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "[1/4] Backend at %s\n", c.BaseURL())

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	h, err := c.Health(ctx)
	if err != nil {
		fmt.Fprintf(w, "  FAIL: %v\n", err)
		if !backend.Reachable(err) {
			fmt.Fprintln(w, "  Is the backend running? Set GAMEPAL_BACKEND_URL or pass -backend.")
		}
		return false
	}
	fmt.Fprintf(w, "  health: %s\n", h.Status)
	if !h.LLMEnabled {
		fmt.Fprintln(w, "  Warning: LLM disabled on the backend, questions will fail")
	}

	st, err := c.Status(ctx)
	if err != nil {
		fmt.Fprintf(w, "  FAIL: status: %v\n", err)
		return false
	}
	game := st.CurrentGame
	if game == "" {
		game = "(none detected)"
	}
	fmt.Fprintf(w, "  screenshots: %d, game: %s, auto-capture: %v\n", st.ScreenshotCount, game, st.Capturing)
	fmt.Fprintln(w, "  PASS: backend reachable")
	return true
}

func checkHotkey(w io.Writer) bool {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "[2/4] Hotkey detection")

	if msg, err := hotkey.Diagnose(); err != nil {
		fmt.Fprintf(w, "  FAIL: %v\n", err)
		return false
	} else if msg != "" {
		fmt.Fprintf(w, "  %s\n", msg)
	}

	b := hotkey.Voice
	fmt.Fprintf(w, "Press %s...\n", b)

	hk := hotkey.New(b)
	if err := hk.Register(); err != nil {
		fmt.Fprintf(w, "  FAIL: could not register hotkey: %v\n", err)
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		fmt.Fprintln(w, "  PASS: hotkey detected")
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		// evdev grabs can leave the terminal in raw mode
		resetTerminal()
		return true
	case <-time.After(hotkeyWait):
		fmt.Fprintln(w, "  FAIL: timeout waiting for hotkey")
		return false
	}
}

func checkMicAndTranscription(w io.Writer, cfg Config) bool {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "[3/4] Microphone and transcription")

	actx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(w, "  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer actx.Close()

	fmt.Fprint(w, "Press Enter and ask a question for 3 seconds...")
	bufio.NewReader(os.Stdin).ReadString('\n')

	src := audio.NewSource(actx, cfg.Device)
	data, name, err := record(w, src, recordFor)
	if err != nil {
		fmt.Fprintf(w, "  FAIL: %v\n", err)
		return false
	}
	if len(data) == 0 {
		fmt.Fprintln(w, "  FAIL: no audio captured")
		return false
	}
	fmt.Fprintf(w, "  Recorded %.1f KB from %s, transcribing...\n", float64(len(data))/1024, name)

	ctx, cancel := context.WithTimeout(context.Background(), backend.DefaultTimeout)
	defer cancel()
	text, err := cfg.Backend.Transcribe(ctx, data, src.MimeType())
	if err != nil {
		fmt.Fprintf(w, "  FAIL: transcription error: %v\n", err)
		return false
	}
	if text == "" {
		text = "(no speech detected)"
	}
	fmt.Fprintf(w, "\n  Transcribed text: %s\n\n", text)

	fmt.Fprint(w, "Is this correct? [y/n]: ")
	if !confirm(bufio.NewReader(os.Stdin)) {
		fmt.Fprintln(w, "  FAIL: transcription not confirmed")
		return false
	}
	fmt.Fprintln(w, "  PASS: transcription verified by user")
	return true
}

func record(w io.Writer, src *audio.Source, d time.Duration) ([]byte, string, error) {
	var buf bytes.Buffer
	st, err := src.Acquire(audio.VoiceConstraints, func(b []byte) { buf.Write(b) })
	if err != nil {
		return nil, "", err
	}

	fmt.Fprint(w, "  Recording")
	ticker := time.NewTicker(500 * time.Millisecond)
	deadline := time.After(d)
loop:
	for {
		select {
		case <-ticker.C:
			fmt.Fprint(w, ".")
		case <-deadline:
			break loop
		}
	}
	ticker.Stop()
	fmt.Fprintln(w, " done")

	name := st.DeviceName()
	if err := st.Release(); err != nil {
		return nil, name, err
	}
	return buf.Bytes(), name, nil
}

func checkClipboard(w io.Writer) bool {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "[4/4] Clipboard")

	prev, _ := clipboard.Read()
	defer clipboard.Copy(prev)

	want := "gamepal-doctor-test"
	if err := clipboard.Copy(want); err != nil {
		fmt.Fprintf(w, "  FAIL: clipboard copy failed: %v\n", err)
		return false
	}
	got, err := clipboard.Read()
	if err != nil {
		fmt.Fprintf(w, "  FAIL: clipboard read failed: %v\n", err)
		return false
	}
	if got != want {
		fmt.Fprintf(w, "  FAIL: clipboard returned %q, want %q\n", got, want)
		return false
	}
	fmt.Fprintln(w, "  PASS: clipboard round trip")
	return true
}

func confirm(r *bufio.Reader) bool {
	line, _ := r.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}
