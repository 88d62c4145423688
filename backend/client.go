// Package backend talks to the local inference service that answers
// questions, grabs screenshots and transcribes voice recordings.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"gamepal/encoder"
	"gamepal/log"
)

const (
	DefaultURL     = "http://127.0.0.1:8080"
	DefaultTimeout = 90 * time.Second
)

type Client struct {
	baseURL string
	http    *TracedClient
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    NewTracedClient(DefaultTimeout),
	}
}

// ResolveURL picks the backend address: flag, then GAMEPAL_BACKEND_URL,
// then DefaultURL.
func ResolveURL(flagURL string) string {
	if flagURL != "" {
		return flagURL
	}
	if env := os.Getenv("GAMEPAL_BACKEND_URL"); env != "" {
		return env
	}
	return DefaultURL
}

func (c *Client) BaseURL() string { return c.baseURL }

// reply is the union of every shape the service answers with.
type reply struct {
	Response      string          `json:"response"`
	Message       string          `json:"message"`
	Text          string          `json:"text"`
	Transcription string          `json:"transcription"`
	Error         json.RawMessage `json:"error"`
}

// firstNonEmpty returns the first non-empty value in preference order.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "false" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

type requestIDKey struct{}

// WithRequestID tags outgoing requests and their metrics with id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body []byte) (*reply, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	id := requestID(ctx)
	if id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	m := resp.Metrics
	log.RequestMetrics(log.Metrics{
		Op:          op,
		ID:          id,
		Status:      resp.StatusCode,
		DNSTimeMs:   float64(m.DNS.Microseconds()) / 1000,
		TLSTimeMs:   float64(m.TLS.Microseconds()) / 1000,
		TTFBMs:      float64(m.TTFB.Microseconds()) / 1000,
		TotalTimeMs: float64(m.Total.Microseconds()) / 1000,
		ConnReused:  m.ConnReused,
		BodyKB:      float64(len(body)) / 1024,
	})

	var r reply
	decodeErr := json.Unmarshal(resp.Body, &r)
	if msg := errorText(r.Error); decodeErr == nil && msg != "" {
		return nil, &BackendError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &BackendError{Op: op, StatusCode: resp.StatusCode, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	if decodeErr != nil {
		return nil, &BackendError{Op: op, StatusCode: resp.StatusCode, Message: fmt.Sprintf("invalid response: %v", decodeErr)}
	}
	return &r, nil
}

// Query asks a question. The answer prefers the response field over
// message; an empty string means the backend sent neither.
func (c *Client) Query(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(map[string]string{"query": text})
	if err != nil {
		return "", err
	}
	r, err := c.do(ctx, "query", http.MethodPost, "/query", "application/json", body)
	if err != nil {
		return "", err
	}
	return firstNonEmpty(r.Response, r.Message), nil
}

// Screenshot asks the backend to grab the screen.
func (c *Client) Screenshot(ctx context.Context) (string, error) {
	r, err := c.do(ctx, "screenshot", http.MethodPost, "/screenshot", "application/json", []byte("{}"))
	if err != nil {
		return "", err
	}
	return r.Message, nil
}

// Transcribe uploads a recording as multipart field "audio" and returns the
// transcribed text, preferring text over transcription.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename="recording.%s"`, encoder.Extension(mimeType)))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	r, err := c.do(ctx, "transcribe", http.MethodPost, "/transcribe", writer.FormDataContentType(), body.Bytes())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(firstNonEmpty(r.Text, r.Transcription)), nil
}

type Health struct {
	Status     string `json:"status"`
	LLMEnabled bool   `json:"llm_enabled"`
}

type Status struct {
	ScreenshotCount int    `json:"screenshot_count"`
	LLMEnabled      bool   `json:"llm_enabled"`
	CurrentGame     string `json:"current_game"`
	Capturing       bool   `json:"capturing"`
}

func (c *Client) getJSON(ctx context.Context, op, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &BackendError{Op: op, StatusCode: resp.StatusCode, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return &BackendError{Op: op, StatusCode: resp.StatusCode, Message: fmt.Sprintf("invalid response: %v", err)}
	}
	return nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.getJSON(ctx, "health", "/health", &h)
	return h, err
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	var s Status
	err := c.getJSON(ctx, "status", "/status", &s)
	return s, err
}

// Reachable reports whether err came back from the service itself rather
// than from the network.
func Reachable(err error) bool {
	var be *BackendError
	return err == nil || errors.As(err, &be)
}
