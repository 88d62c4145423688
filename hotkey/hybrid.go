package hotkey

import (
	"sync/atomic"
	"time"
)

// Hybrid turns one key into both push-to-talk and tap-to-toggle. A press
// always starts; holding past the threshold stops on release, a short tap
// keeps going until the next press.
type Hybrid struct {
	startCh chan struct{}
	stopCh  chan struct{}
	done    chan struct{}
	toggle  atomic.Bool
}

func NewHybrid(hk Hotkey, longPress time.Duration) *Hybrid {
	h := &Hybrid{
		startCh: make(chan struct{}, 1),
		stopCh:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go h.run(hk, longPress)
	return h
}

func (h *Hybrid) Start() <-chan struct{} { return h.startCh }

func (h *Hybrid) StopChan() <-chan struct{} { return h.stopCh }

// IsToggle reports whether the current press was a short tap.
func (h *Hybrid) IsToggle() bool { return h.toggle.Load() }

func (h *Hybrid) Close() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

func (h *Hybrid) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (h *Hybrid) wait(ch <-chan struct{}) bool {
	select {
	case <-ch:
	case <-h.done:
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *Hybrid) run(hk Hotkey, longPress time.Duration) {
	for {
		if !h.wait(hk.Keydown()) {
			return
		}
		h.toggle.Store(false)
		h.signal(h.startCh)

		timer := time.NewTimer(longPress)
		select {
		case <-h.done:
			timer.Stop()
			return
		case <-timer.C:
			if !h.wait(hk.Keyup()) {
				return
			}
		case <-hk.Keyup():
			timer.Stop()
			h.toggle.Store(true)
			if !h.wait(hk.Keydown()) || !h.wait(hk.Keyup()) {
				return
			}
		}
		h.signal(h.stopCh)
	}
}
