package doctor

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gamepal/audio"
	"gamepal/backend"
)

func TestCheckBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			io.WriteString(w, `{"status":"healthy","llm_enabled":false}`)
		case "/status":
			io.WriteString(w, `{"screenshot_count":2,"current_game":"Hades"}`)
		}
	}))
	defer srv.Close()

	var out bytes.Buffer
	if !checkBackend(context.Background(), &out, backend.New(srv.URL)) {
		t.Fatalf("check failed:\n%s", out.String())
	}
	for _, want := range []string{"LLM disabled", "game: Hades", "PASS"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestCheckBackendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var out bytes.Buffer
	if checkBackend(context.Background(), &out, backend.New(url)) {
		t.Fatal("expected failure")
	}
	if !strings.Contains(out.String(), "GAMEPAL_BACKEND_URL") {
		t.Errorf("missing hint:\n%s", out.String())
	}
}

func TestRecordUsesSource(t *testing.T) {
	pcm := make([]byte, 16000)
	for i := range pcm {
		pcm[i] = byte(i * 7)
	}
	src := audio.NewSource(audio.NewFakeContext(pcm), nil)

	var out bytes.Buffer
	data, name, err := record(&out, src, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("no data recorded")
	}
	if name != "system default" {
		t.Errorf("device = %q", name)
	}
}

func TestConfirm(t *testing.T) {
	for in, want := range map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "": false} {
		if got := confirm(bufio.NewReader(strings.NewReader(in))); got != want {
			t.Errorf("confirm(%q) = %v", in, got)
		}
	}
}
