package sound

import (
	"errors"
	"sync"
	"testing"
)

func TestGenerateTick(t *testing.T) {
	samples := generateTick(cueRate, startFreq, 0.05, startVolume, startDecay)
	if want := int(cueRate * 0.05); len(samples) != want {
		t.Fatalf("len = %d, want %d", len(samples), want)
	}
	if samples[0] != 0 {
		t.Errorf("first sample = %d, want 0", samples[0])
	}
	var peak int16
	for _, s := range samples {
		if s > peak {
			peak = s
		}
	}
	if peak <= 0 || float64(peak) > 32767*startVolume {
		t.Errorf("peak %d outside (0, %v]", peak, 32767*startVolume)
	}
}

func TestGenerateDoubleBeep(t *testing.T) {
	beep := generateTick(cueRate, errorFreq, 0.08, errorVolume, errorDecay)
	double := generateDoubleBeep(cueRate, errorFreq, 0.08, 0.05, errorVolume, errorDecay)
	gap := int(cueRate * 0.05)
	if len(double) != 2*len(beep)+gap {
		t.Fatalf("len = %d, want %d", len(double), 2*len(beep)+gap)
	}
	for i := len(beep); i < len(beep)+gap; i++ {
		if double[i] != 0 {
			t.Fatalf("gap sample %d = %d, want 0", i, double[i])
		}
	}
}

func TestOpenClipRejectsUnsupported(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		mime string
	}{
		{"webm", []byte{1, 2, 3}, "audio/webm;codecs=opus"},
		{"empty mime", []byte{1, 2, 3}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := OpenClip(tt.data, tt.mime, nil); !errors.Is(err, ErrUnsupported) {
				t.Errorf("err = %v, want ErrUnsupported", err)
			}
		})
	}
}

func TestOpenClipRejectsCorruptFLAC(t *testing.T) {
	if _, err := OpenClip([]byte("fLaC but not really"), "audio/flac", nil); err == nil {
		t.Error("expected decode error")
	}
}

func TestDisabledCueIsNoop(t *testing.T) {
	Disable()
	t.Cleanup(func() { disabled.Store(false) })
	playCue([]int16{1, 2, 3})
}

func TestDisableWhileCuesPlay(t *testing.T) {
	Disable()
	t.Cleanup(func() { disabled.Store(false) })

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			playCue([]int16{1, 2, 3})
		}()
		go func() {
			defer wg.Done()
			Disable()
		}()
	}
	wg.Wait()
}
