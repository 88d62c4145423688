//go:build integration

package test_test

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

var (
	testBinary string
	toneWAV    string
)

func TestMain(m *testing.M) {
	testBinary = os.Getenv("GAMEPAL_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "GAMEPAL_TEST_BIN not set; run: go build -o gamepal . && GAMEPAL_TEST_BIN=$PWD/gamepal go test -tags integration ./test")
		os.Exit(1)
	}

	dir, err := os.MkdirTemp("", "gamepal-it")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	toneWAV = filepath.Join(dir, "tone.wav")
	if err := generateToneWAV(toneWAV, 16000, 1.0); err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate tone.wav: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func generateToneWAV(path string, sampleRate int, durationS float64) error {
	const headerSize = 44
	numSamples := int(float64(sampleRate) * durationS)
	dataSize := numSamples * 2

	buf := make([]byte, headerSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i := 0; i < numSamples; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		binary.LittleEndian.PutUint16(buf[headerSize+i*2:], uint16(v))
	}
	return os.WriteFile(path, buf, 0644)
}

// fakeBackend answers the overlay endpoints and counts requests.
type fakeBackend struct {
	*httptest.Server
	mu     sync.Mutex
	hits   map[string]int
	routes map[string]string
}

func newBackend(t *testing.T, routes map[string]string) *fakeBackend {
	t.Helper()
	b := &fakeBackend{hits: map[string]int{}, routes: routes}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits[r.URL.Path]++
		body, ok := b.routes[r.URL.Path]
		b.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(b.Close)
	return b
}

func (b *fakeBackend) calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

func runGamepal(t *testing.T, b *fakeBackend, stdin string, args ...string) (out, logDir string) {
	t.Helper()
	logDir = t.TempDir()
	cmdArgs := append([]string{
		"-logpath", logDir,
		"-backend", b.URL,
		"-settings", filepath.Join(logDir, "settings.yaml"),
	}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = append(os.Environ(), "OPENAI_API_KEY=")

	data, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("gamepal exited with error: %v\noutput: %s", err, data)
	}
	return string(data), logDir
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func requireLines(t *testing.T, out string, lines ...string) {
	t.Helper()
	for _, want := range lines {
		if !strings.Contains(out, want+"\n") {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestVoiceQuestion(t *testing.T) {
	b := newBackend(t, map[string]string{
		"/transcribe": `{"success":true,"text":"how do I beat this boss"}`,
		"/query":      `{"response":"Dodge left, then strike twice."}`,
	})
	out, logDir := runGamepal(t, b, cmds("RECORD", "RECORD", "SEND", "WAIT", "QUIT"), "-test", toneWAV)

	requireLines(t, out,
		"STATUS ready Recording ready",
		"RESPONSE how do I beat this boss",
		"RESPONSE Dodge left, then strike twice.",
	)
	if n := b.calls("/query"); n != 1 {
		t.Errorf("query calls = %d, want 1", n)
	}
	if answers := readLog(t, logDir, "answers_log.txt"); !strings.Contains(answers, "Dodge left") {
		t.Errorf("answers_log.txt missing answer:\n%s", answers)
	}
	if diag := readLog(t, logDir, "diagnostics_log.txt"); !strings.Contains(diag, "session_end") {
		t.Error("expected session_end in diagnostics")
	}
}

func TestPushToTalk(t *testing.T) {
	b := newBackend(t, map[string]string{"/transcribe": `{"text":""}`})
	out, _ := runGamepal(t, b, cmds("KEYDOWN", "SLEEP 500", "KEYUP", "SLEEP 100", "SEND", "WAIT", "QUIT"), "-test", toneWAV)

	requireLines(t, out,
		"STATUS ready Recording ready",
		"RESPONSE No speech detected. Please try again.",
	)
	if n := b.calls("/query"); n != 0 {
		t.Errorf("empty transcription reached /query %d times", n)
	}
}

func TestDeleteThenSend(t *testing.T) {
	b := newBackend(t, map[string]string{"/transcribe": `{"text":"unused"}`})
	out, _ := runGamepal(t, b, cmds("RECORD", "RECORD", "DELETE", "SEND", "QUIT"), "-test", toneWAV)

	requireLines(t, out, "CONTROLS hidden", "STATUS ready Ready")
	if n := b.calls("/transcribe"); n != 0 {
		t.Errorf("transcribe calls = %d after delete", n)
	}
}

func TestScreenshotAndAsk(t *testing.T) {
	b := newBackend(t, map[string]string{
		"/screenshot": `{"error":"capture disabled"}`,
		"/query":      `{"message":"queued"}`,
	})
	out, _ := runGamepal(t, b, cmds("SCREENSHOT", "ASK where am I", "ASK   ", "QUIT"), "-test", toneWAV)

	requireLines(t, out,
		"RESPONSE Screenshot failed: capture disabled",
		"STATUS error Screenshot failed",
		"RESPONSE queued",
	)
	if n := b.calls("/query"); n != 1 {
		t.Errorf("query calls = %d, want 1", n)
	}
}
