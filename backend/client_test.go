package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestQueryFieldPreference(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"response", `{"response":"It's Elden Ring","message":"ignored"}`, "It's Elden Ring"},
		{"message fallback", `{"message":"queued"}`, "queued"},
		{"empty response falls back", `{"response":"","message":"queued"}`, "queued"},
		{"neither", `{}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			})
			got, err := c.Query(context.Background(), "what game")
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuerySendsJSON(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/query" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-Request-ID"); got != "req-1" {
			t.Errorf("X-Request-ID = %q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		if body["query"] != "where is the boss" {
			t.Errorf("query = %q", body["query"])
		}
		io.WriteString(w, `{"response":"north"}`)
	})
	ctx := WithRequestID(context.Background(), "req-1")
	if _, err := c.Query(ctx, "where is the boss"); err != nil {
		t.Fatal(err)
	}
}

func TestBackendErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error field on 200", 200, `{"error":"LLM not configured"}`, "LLM not configured"},
		{"error field on 500", 500, `{"error":"boom"}`, "boom"},
		{"status only", 502, `bad gateway`, "HTTP 502"},
		{"garbage on 200", 200, `<html>`, "invalid response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			_, err := c.Query(context.Background(), "q")
			var be *BackendError
			if !errors.As(err, &be) {
				t.Fatalf("err = %v, want *BackendError", err)
			}
			if len(be.Message) < len(tt.want) || be.Message[:len(tt.want)] != tt.want {
				t.Errorf("message = %q, want prefix %q", be.Message, tt.want)
			}
			if !Reachable(err) {
				t.Error("backend error should count as reachable")
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Screenshot(context.Background())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
	if te.Op != "screenshot" {
		t.Errorf("op = %q", te.Op)
	}
	if Reachable(err) {
		t.Error("transport error should not count as reachable")
	}
}

func TestScreenshot(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/screenshot" {
			t.Errorf("path = %s", r.URL.Path)
		}
		io.WriteString(w, `{"message":"saved","path":"/tmp/shot.png"}`)
	})
	got, err := c.Screenshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != "saved" {
		t.Errorf("got %q", got)
	}
}

func TestTranscribeMultipart(t *testing.T) {
	audio := []byte("fLaC-fake-bytes")
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			t.Errorf("path = %s", r.URL.Path)
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer f.Close()
		if hdr.Filename != "recording.flac" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		if ct := hdr.Header.Get("Content-Type"); ct != "audio/flac" {
			t.Errorf("part content type = %q", ct)
		}
		got, _ := io.ReadAll(f)
		if string(got) != string(audio) {
			t.Errorf("body = %q", got)
		}
		io.WriteString(w, `{"success":true,"text":" hello ","transcription":"ignored"}`)
	})

	text, err := c.Transcribe(context.Background(), audio, "audio/flac")
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello" {
		t.Errorf("text = %q, want hello", text)
	}
}

func TestTranscribeFieldFallback(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"transcription":"jump"}`, "jump"},
		{`{"text":"","transcription":""}`, ""},
		{`{"success":true}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			})
			got, err := c.Transcribe(context.Background(), []byte{1}, "audio/webm;codecs=opus")
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHealthAndStatus(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			io.WriteString(w, `{"status":"healthy","llm_enabled":true}`)
		case "/status":
			io.WriteString(w, `{"screenshot_count":4,"llm_enabled":true,"current_game":"Celeste","capturing":false}`)
		default:
			http.NotFound(w, r)
		}
	})

	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != "healthy" || !h.LLMEnabled {
		t.Errorf("health = %+v", h)
	}

	s, err := c.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s.ScreenshotCount != 4 || s.CurrentGame != "Celeste" || s.Capturing {
		t.Errorf("status = %+v", s)
	}
}

func TestResolveURL(t *testing.T) {
	t.Setenv("GAMEPAL_BACKEND_URL", "")
	if got := ResolveURL(""); got != DefaultURL {
		t.Errorf("default = %q", got)
	}
	t.Setenv("GAMEPAL_BACKEND_URL", "http://10.0.0.2:9000")
	if got := ResolveURL(""); got != "http://10.0.0.2:9000" {
		t.Errorf("env = %q", got)
	}
	if got := ResolveURL("http://flag"); got != "http://flag" {
		t.Errorf("flag = %q", got)
	}
}
