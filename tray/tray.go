package tray

import (
	"sync"
	"time"
)

// Handlers are the menu actions. Nil handlers leave their item disabled.
type Handlers struct {
	ToggleOverlay func()
	Screenshot    func()
	Record        func()
	CopyLast      func()
}

var (
	quitCh    = make(chan struct{})
	closeOnce sync.Once

	mu        sync.Mutex
	handlers  Handlers
	recording bool
	busy      bool
	visible   = true
	hasAnswer bool
)

func SetHandlers(h Handlers) {
	mu.Lock()
	handlers = h
	mu.Unlock()
}

func call(pick func(Handlers) func()) {
	mu.Lock()
	fn := pick(handlers)
	mu.Unlock()
	if fn != nil {
		fn()
	}
}

func recordTitle(rec bool) string {
	if rec {
		return "Stop Recording"
	}
	return "Record Question"
}

func overlayTitle(shown bool) string {
	if shown {
		return "Hide Overlay"
	}
	return "Show Overlay"
}

func SetRecording(rec bool) {
	mu.Lock()
	recording = rec
	mu.Unlock()
	updateRecording(rec)
}

// SetBusy greys out actions that need the request slot.
func SetBusy(b bool) {
	mu.Lock()
	busy = b
	mu.Unlock()
	updateBusy(b)
}

func SetOverlayVisible(shown bool) {
	mu.Lock()
	visible = shown
	mu.Unlock()
	updateOverlay(shown)
}

func SetHasAnswer(ok bool) {
	mu.Lock()
	hasAnswer = ok
	mu.Unlock()
	updateCopy(ok)
}

func SetError(msg string) {
	updateTooltip("gamepal – " + msg)
	go func() {
		time.Sleep(10 * time.Second)
		updateTooltip("gamepal")
	}()
}

func Quit() {
	closeOnce.Do(func() { close(quitCh) })
}
