package hotkey

import (
	"testing"
	"time"
)

func waitStart(t *testing.T, hy *Hybrid) {
	t.Helper()
	select {
	case <-hy.Start():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for start")
	}
}

func waitStop(t *testing.T, hy *Hybrid) {
	t.Helper()
	select {
	case <-hy.StopChan():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for stop")
	}
}

func TestHybridLongPress(t *testing.T) {
	fk := NewFake()
	threshold := 50 * time.Millisecond
	hy := NewHybrid(fk, threshold)
	defer hy.Close()

	fk.SimKeydown()
	waitStart(t, hy)

	time.Sleep(threshold + 20*time.Millisecond)
	if hy.IsToggle() {
		t.Error("expected PTT (not toggle) after long press")
	}
	fk.SimKeyup()
	waitStop(t, hy)
}

func TestHybridShortTap(t *testing.T) {
	fk := NewFake()
	threshold := 200 * time.Millisecond
	hy := NewHybrid(fk, threshold)
	defer hy.Close()

	fk.SimKeydown()
	waitStart(t, hy)
	fk.SimKeyup()
	time.Sleep(10 * time.Millisecond)
	if !hy.IsToggle() {
		t.Error("expected toggle mode after short tap")
	}

	select {
	case <-hy.StopChan():
		t.Fatal("short tap stopped recording")
	case <-time.After(50 * time.Millisecond):
	}

	fk.SimKeydown()
	fk.SimKeyup()
	waitStop(t, hy)
}

func TestHybridMultipleCycles(t *testing.T) {
	fk := NewFake()
	threshold := 50 * time.Millisecond
	hy := NewHybrid(fk, threshold)
	defer hy.Close()

	fk.SimKeydown()
	waitStart(t, hy)
	time.Sleep(threshold + 20*time.Millisecond)
	fk.SimKeyup()
	waitStop(t, hy)

	fk.SimKeydown()
	waitStart(t, hy)
	fk.SimKeyup()
	time.Sleep(20 * time.Millisecond)
	fk.SimKeydown()
	fk.SimKeyup()
	waitStop(t, hy)

	fk.SimKeydown()
	waitStart(t, hy)
	time.Sleep(threshold + 20*time.Millisecond)
	fk.SimKeyup()
	waitStop(t, hy)
}

func TestHybridCloseStopsLoop(t *testing.T) {
	fk := NewFake()
	hy := NewHybrid(fk, 50*time.Millisecond)
	hy.Close()
	hy.Close()

	fk.SimKeydown()
	select {
	case <-hy.Start():
		t.Error("closed hybrid still emits start")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBindingNames(t *testing.T) {
	want := map[Binding]string{
		Screenshot: "Ctrl+Shift+S",
		Overlay:    "Ctrl+Shift+G",
		Voice:      "Ctrl+Shift+Space",
	}
	for _, b := range Bindings {
		if b.String() != want[b] {
			t.Errorf("%d: got %q, want %q", b, b.String(), want[b])
		}
	}
}
