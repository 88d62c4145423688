// Package governor serializes the user-triggered backend operations: asking
// a question, taking a screenshot and sending a recording for transcription.
// At most one runs at a time.
package governor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gamepal/backend"
	"gamepal/log"
	"gamepal/settings"
)

var (
	ErrBusy       = errors.New("another request is in progress")
	ErrEmptyQuery = errors.New("empty query")
)

type State int

const (
	StateProcessing State = iota
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateProcessing:
		return "processing"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return "unknown"
}

type StatusSink interface {
	Status(text string, state State)
}

type ResponseSink interface {
	Response(text string)
	ClearResponse()
}

type Backend interface {
	Query(ctx context.Context, text string) (string, error)
	Screenshot(ctx context.Context) (string, error)
}

type SettingsSource interface {
	Get() settings.Settings
}

type Op int

const (
	OpNone Op = iota
	OpAsk
	OpScreenshot
	OpTranscribe
)

func (o Op) String() string {
	switch o {
	case OpAsk:
		return "ask"
	case OpScreenshot:
		return "screenshot"
	case OpTranscribe:
		return "transcribe"
	}
	return "none"
}

const (
	AnalysisPrompt = "What game is this and what am I currently doing?"
	AnalysisDelay  = time.Second

	msgThinking         = "Thinking..."
	msgNoResponse       = "No response received"
	msgQueryFailed      = "Failed to process your request. Please try again."
	msgScreenshotOK     = "Screenshot captured successfully!"
	msgScreenshotFailed = "Failed to take screenshot. Please try again."
)

type Governor struct {
	backend  Backend
	status   StatusSink
	response ResponseSink
	settings SettingsSource
	sched    Scheduler

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	op         Op
	closed     bool
	analysis   Task
	lastAnswer string
}

type Option func(*Governor)

func WithScheduler(s Scheduler) Option {
	return func(g *Governor) { g.sched = s }
}

func New(b Backend, status StatusSink, response ResponseSink, s SettingsSource, opts ...Option) *Governor {
	ctx, cancel := context.WithCancel(context.Background())
	g := &Governor{
		backend:  b,
		status:   status,
		response: response,
		settings: s,
		sched:    TimerScheduler{},
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// acquire takes the single request slot. The returned release must run on
// every exit path.
func (g *Governor) acquire(op Op) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.op != OpNone {
		return nil, false
	}
	g.op = op
	return func() {
		g.mu.Lock()
		g.op = OpNone
		g.mu.Unlock()
	}, true
}

func (g *Governor) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.op != OpNone
}

// Current reports the operation holding the slot.
func (g *Governor) Current() Op {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.op
}

func (g *Governor) LastAnswer() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastAnswer
}

func (g *Governor) cancelAnalysis() {
	g.mu.Lock()
	t := g.analysis
	g.analysis = nil
	g.mu.Unlock()
	if t != nil && t.Cancel() {
		log.Info("pending screenshot analysis cancelled")
	}
}

func (g *Governor) scheduleAnalysis() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.analysis = g.sched.AfterFunc(AnalysisDelay, func() {
		if err := g.SubmitQuery(g.ctx, AnalysisPrompt); err != nil {
			log.Warnf("screenshot analysis skipped: %v", err)
		}
	})
}

// SubmitQuery asks the backend a question. Blank text and a busy governor
// are rejected with ErrEmptyQuery and ErrBusy without touching the sinks.
// Backend failures are reported through the sinks and return nil.
func (g *Governor) SubmitQuery(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyQuery
	}
	release, ok := g.acquire(OpAsk)
	if !ok {
		log.Warn("query rejected: busy")
		return ErrBusy
	}
	defer release()
	g.cancelAnalysis()

	id := uuid.NewString()
	start := time.Now()
	g.status.Status("Processing...", StateProcessing)
	g.response.Response(msgThinking)

	answer, err := g.backend.Query(backend.WithRequestID(ctx, id), text)

	var be *backend.BackendError
	switch {
	case errors.As(err, &be):
		g.response.Response("Error: " + be.Message)
		g.status.Status("Error", StateError)
		log.Operation(OpAsk.String(), id, "error", time.Since(start))
	case err != nil:
		log.Errorf("query failed: %v", err)
		g.response.Response(msgQueryFailed)
		g.status.Status("Error", StateError)
		log.Operation(OpAsk.String(), id, "failed", time.Since(start))
	default:
		if answer == "" {
			answer = msgNoResponse
		} else {
			g.mu.Lock()
			g.lastAnswer = answer
			g.mu.Unlock()
		}
		g.response.Response(answer)
		g.status.Status("Ready", StateReady)
		log.Answer(text, answer)
		log.Operation(OpAsk.String(), id, "ready", time.Since(start))
	}
	return nil
}

// TakeScreenshot asks the backend to capture the screen. With an API key
// configured, a successful capture schedules an automatic analysis query.
func (g *Governor) TakeScreenshot(ctx context.Context) error {
	release, ok := g.acquire(OpScreenshot)
	if !ok {
		log.Warn("screenshot rejected: busy")
		return ErrBusy
	}
	defer release()
	g.cancelAnalysis()

	id := uuid.NewString()
	start := time.Now()
	g.status.Status("Taking screenshot...", StateProcessing)

	msg, err := g.backend.Screenshot(backend.WithRequestID(ctx, id))

	var be *backend.BackendError
	switch {
	case errors.As(err, &be):
		g.response.Response("Screenshot failed: " + be.Message)
		g.status.Status("Screenshot failed", StateError)
		log.Operation(OpScreenshot.String(), id, "error", time.Since(start))
	case err != nil:
		log.Errorf("screenshot failed: %v", err)
		g.response.Response(msgScreenshotFailed)
		g.status.Status("Screenshot failed", StateError)
		log.Operation(OpScreenshot.String(), id, "failed", time.Since(start))
	default:
		if msg != "" {
			log.Infof("screenshot: %s", msg)
		}
		g.response.Response(msgScreenshotOK)
		g.status.Status("Screenshot captured", StateReady)
		log.Operation(OpScreenshot.String(), id, "ready", time.Since(start))
		if g.settings != nil && g.settings.Get().APIKeyConfigured {
			g.scheduleAnalysis()
		}
	}
	return nil
}

// Run executes fn while holding the request slot.
func (g *Governor) Run(ctx context.Context, op Op, fn func(context.Context) error) error {
	release, ok := g.acquire(op)
	if !ok {
		return ErrBusy
	}
	defer release()

	id := uuid.NewString()
	start := time.Now()
	err := fn(backend.WithRequestID(ctx, id))
	outcome := "ready"
	if err != nil {
		outcome = "error"
	}
	log.Operation(op.String(), id, outcome, time.Since(start))
	return err
}

// Close cancels pending scheduled work and rejects further operations.
func (g *Governor) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.cancelAnalysis()
	g.cancel()
}
