// Package voice owns the lifecycle of a single voice question: record, hold,
// play back, send for transcription and hand the text to the governor.
package voice

import (
	"context"
	"errors"
	"sync"
	"time"

	"gamepal/audio"
	"gamepal/backend"
	"gamepal/governor"
	"gamepal/log"
)

var (
	ErrEmptyCapture = errors.New("no audio captured")
	ErrNoSpeech     = errors.New("no speech detected")
	ErrNoRecording  = errors.New("no recording")
	ErrClosed       = errors.New("voice controller closed")
)

type State int

const (
	StateIdle State = iota
	StateRecording
	StateCaptured
	StateSending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateCaptured:
		return "captured"
	case StateSending:
		return "sending"
	}
	return "unknown"
}

// SubmitDelay is the pause between a successful transcription and the
// automatic question.
const SubmitDelay = 500 * time.Millisecond

const (
	msgRecording       = "Recording..."
	msgDenied          = "Microphone access denied. Check your permissions."
	msgNoMicrophone    = "No microphone found."
	msgEmptyCapture    = "No audio captured. Please try again."
	msgCaptureFailed   = "Recording failed. Please try again."
	msgReady           = "Recording ready"
	msgTranscribing    = "Transcribing..."
	msgNoSpeech        = "No speech detected. Please try again."
	msgTransportFailed = "Failed to transcribe audio. Check your connection."
)

type Player interface {
	// Toggle starts, pauses or resumes playback and reports whether audio
	// is now playing.
	Toggle() (bool, error)
	Release()
}

// PlayerFactory opens a playback handle. onEnd runs when the clip plays to
// its end.
type PlayerFactory func(data []byte, mimeType string, onEnd func()) (Player, error)

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type Submitter interface {
	SubmitQuery(ctx context.Context, text string) error
	Run(ctx context.Context, op governor.Op, fn func(context.Context) error) error
}

// Controls are the actions offered while a recording is held.
type Controls struct {
	Play   func() error
	Send   func(context.Context) error
	Delete func() error
}

type Sink interface {
	governor.StatusSink
	governor.ResponseSink
	ShowAudioControls(sizeKB float64, c Controls)
	HideAudioControls()
	PlaybackChanged(playing bool)
}

type Controller struct {
	device     Device
	transcribe Transcriber
	gov        Submitter
	sink       Sink
	newPlayer  PlayerFactory
	sched      governor.Scheduler

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	sess      *session
	captureID uint64 // bumped when a pending acquisition is abandoned
	stopping  bool
	rec       *Recording
	player    Player
	playerGen uint64
	pending   governor.Task
	closed    bool
}

type Option func(*Controller)

func WithScheduler(s governor.Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

func WithPlayer(f PlayerFactory) Option {
	return func(c *Controller) { c.newPlayer = f }
}

func New(d Device, t Transcriber, gov Submitter, sink Sink, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		device:     d,
		transcribe: t,
		gov:        gov,
		sink:       sink,
		sched:      governor.TimerScheduler{},
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Recording returns a copy of the held recording.
func (c *Controller) Recording() (Recording, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rec == nil {
		return Recording{}, false
	}
	return Recording{
		Samples:  append([]byte(nil), c.rec.Samples...),
		MimeType: c.rec.MimeType,
	}, true
}

func (c *Controller) controls() Controls {
	return Controls{Play: c.Play, Send: c.Send, Delete: c.Delete}
}

// ToggleRecording starts a capture from Idle or Captured and stops a running
// one. It is ignored while a recording is being sent or released. The device
// is opened and released without holding the controller lock; a stop that
// arrives while the device is still opening abandons that capture.
func (c *Controller) ToggleRecording(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.state == StateSending:
		c.mu.Unlock()
		log.Warn("record toggle ignored while sending")
		return governor.ErrBusy
	case c.stopping:
		c.mu.Unlock()
		log.Warn("record toggle ignored while releasing microphone")
		return governor.ErrBusy
	case c.state == StateRecording && c.sess == nil:
		return c.abandonLocked()
	case c.state == StateRecording:
		return c.stopLocked()
	default:
		return c.startLocked()
	}
}

// startLocked is called with c.mu held and releases it.
func (c *Controller) startLocked() error {
	if c.pending != nil {
		c.pending.Cancel()
		c.pending = nil
	}
	c.destroyLocked()
	c.captureID++
	id := c.captureID
	c.state = StateRecording
	c.mu.Unlock()

	s := &session{mime: c.device.MimeType()}
	stream, err := c.device.Acquire(audio.VoiceConstraints, s.add)

	c.mu.Lock()
	if c.closed || c.captureID != id {
		closed := c.closed
		c.mu.Unlock()
		if err == nil {
			if relErr := stream.Release(); relErr != nil {
				log.Warnf("releasing abandoned microphone: %v", relErr)
			}
		}
		if closed {
			return ErrClosed
		}
		return nil
	}
	if err != nil {
		c.state = StateIdle
		c.mu.Unlock()
		log.Errorf("microphone: %v", err)
		c.sink.HideAudioControls()
		if errors.Is(err, audio.ErrNotFound) {
			c.sink.Response(msgNoMicrophone)
		} else {
			c.sink.Response(msgDenied)
		}
		c.sink.Status("Microphone error", governor.StateError)
		return err
	}
	s.stream = stream
	c.sess = s
	c.mu.Unlock()

	c.sink.HideAudioControls()
	c.sink.ClearResponse()
	c.sink.Status(msgRecording, governor.StateProcessing)
	return nil
}

// abandonLocked stops a capture whose device is still opening. It is called
// with c.mu held and releases it. The opener releases the stream on return.
func (c *Controller) abandonLocked() error {
	c.captureID++
	c.state = StateIdle
	c.mu.Unlock()

	c.sink.Response(msgEmptyCapture)
	c.sink.Status("Recording failed", governor.StateError)
	return ErrEmptyCapture
}

// stopLocked is called with c.mu held and releases it.
func (c *Controller) stopLocked() error {
	s := c.sess
	c.sess = nil
	c.stopping = true
	c.mu.Unlock()

	relErr := s.stream.Release()
	data := s.bytes()

	c.mu.Lock()
	c.stopping = false
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.state = StateIdle

	if relErr != nil {
		c.mu.Unlock()
		log.Errorf("finishing recording: %v", relErr)
		c.sink.Response(msgCaptureFailed)
		c.sink.Status("Recording failed", governor.StateError)
		return relErr
	}
	if len(data) == 0 {
		c.mu.Unlock()
		c.sink.Response(msgEmptyCapture)
		c.sink.Status("Recording failed", governor.StateError)
		return ErrEmptyCapture
	}

	rec := &Recording{Samples: data, MimeType: s.mime}
	c.rec = rec
	c.state = StateCaptured
	c.mu.Unlock()

	log.Recording(rec.SizeKB(), rec.MimeType)
	c.sink.ShowAudioControls(rec.SizeKB(), c.controls())
	c.sink.Status(msgReady, governor.StateReady)
	return nil
}

// destroyLocked drops the held recording and its playback handle.
func (c *Controller) destroyLocked() {
	if c.player != nil {
		c.player.Release()
		c.player = nil
	}
	c.playerGen++
	c.rec = nil
}

// Play toggles playback of the held recording.
func (c *Controller) Play() error {
	c.mu.Lock()
	if c.state != StateCaptured || c.rec == nil {
		c.mu.Unlock()
		return ErrNoRecording
	}
	if c.player == nil {
		if c.newPlayer == nil {
			c.mu.Unlock()
			return errors.New("playback unavailable")
		}
		gen := c.playerGen
		p, err := c.newPlayer(c.rec.Samples, c.rec.MimeType, func() { c.playbackEnded(gen) })
		if err != nil {
			c.mu.Unlock()
			log.Errorf("playback: %v", err)
			return err
		}
		c.player = p
	}
	playing, err := c.player.Toggle()
	c.mu.Unlock()

	if err != nil {
		log.Errorf("playback: %v", err)
		return err
	}
	c.sink.PlaybackChanged(playing)
	return nil
}

func (c *Controller) playbackEnded(gen uint64) {
	c.mu.Lock()
	current := c.player != nil && c.playerGen == gen
	c.mu.Unlock()
	if current {
		c.sink.PlaybackChanged(false)
	}
}

// Delete discards the held recording.
func (c *Controller) Delete() error {
	c.mu.Lock()
	if c.state != StateCaptured || c.rec == nil {
		c.mu.Unlock()
		return ErrNoRecording
	}
	c.destroyLocked()
	c.state = StateIdle
	c.mu.Unlock()

	c.sink.HideAudioControls()
	c.sink.ClearResponse()
	c.sink.Status("Ready", governor.StateReady)
	return nil
}

// Send uploads the held recording for transcription under the governor's
// request slot. A busy governor rejects it with governor.ErrBusy and no
// visible change.
func (c *Controller) Send(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateCaptured || c.rec == nil {
		c.mu.Unlock()
		return ErrNoRecording
	}
	rec := c.rec
	c.mu.Unlock()

	return c.gov.Run(ctx, governor.OpTranscribe, func(ctx context.Context) error {
		c.mu.Lock()
		if c.state != StateCaptured || c.rec != rec {
			c.mu.Unlock()
			return ErrNoRecording
		}
		c.state = StateSending
		c.mu.Unlock()

		c.sink.Status(msgTranscribing, governor.StateProcessing)
		text, err := c.transcribe.Transcribe(ctx, rec.Samples, rec.MimeType)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrClosed
		}
		if err != nil || text == "" {
			c.state = StateCaptured
			c.mu.Unlock()
			return c.sendFailed(err)
		}

		c.destroyLocked()
		c.state = StateIdle
		c.pending = c.sched.AfterFunc(SubmitDelay, func() {
			if err := c.gov.SubmitQuery(c.ctx, text); err != nil {
				log.Warnf("voice question not submitted: %v", err)
			}
		})
		c.mu.Unlock()

		c.sink.HideAudioControls()
		c.sink.Response(text)
		c.sink.Status("Transcribed", governor.StateReady)
		return nil
	})
}

func (c *Controller) sendFailed(err error) error {
	var be *backend.BackendError
	switch {
	case err == nil:
		c.sink.Response(msgNoSpeech)
		c.sink.Status("No speech detected", governor.StateError)
		return ErrNoSpeech
	case errors.As(err, &be):
		c.sink.Response("Transcription failed: " + be.Message)
	default:
		log.Errorf("transcribe: %v", err)
		c.sink.Response(msgTransportFailed)
	}
	c.sink.Status("Transcription failed", governor.StateError)
	return err
}

// Close releases the device, the recording and any pending auto-submit.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.captureID++
	if c.pending != nil {
		c.pending.Cancel()
		c.pending = nil
	}
	sess := c.sess
	c.sess = nil
	c.destroyLocked()
	c.state = StateIdle
	c.cancel()
	c.mu.Unlock()

	if sess != nil {
		if err := sess.stream.Release(); err != nil {
			log.Warnf("releasing microphone: %v", err)
		}
	}
}
