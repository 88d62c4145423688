// Package sound plays short interface cues and recorded voice clips.
package sound

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gamepal/encoder"
	"gamepal/log"
)

var ErrUnsupported = errors.New("unsupported audio format")

var disabled atomic.Bool

// Disable silences cues for the rest of the process.
func Disable() { disabled.Store(true) }

const (
	cueRate    = 44100
	cueTimeout = 2 * time.Second

	// Start cue: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End cue: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Error cue: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

var (
	startSamples []int16
	endSamples   []int16
	errorSamples []int16
	cueOnce      sync.Once
)

func initCues() {
	startSamples = generateTick(cueRate, startFreq, 0.05, startVolume, startDecay)
	endSamples = generateTick(cueRate, endFreq, 0.08, endVolume, endDecay)
	errorSamples = generateDoubleBeep(cueRate, errorFreq, 0.08, 0.05, errorVolume, errorDecay)
}

func generateTick(sampleRate int, freq, duration, volume, decay float64) []int16 {
	n := int(float64(sampleRate) * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func generateDoubleBeep(sampleRate int, freq, beepDur, gapDur, volume, decay float64) []int16 {
	beep := generateTick(sampleRate, freq, beepDur, volume, decay)
	gap := make([]int16, int(float64(sampleRate)*gapDur))
	result := make([]int16, 0, len(beep)*2+len(gap))
	result = append(result, beep...)
	result = append(result, gap...)
	result = append(result, beep...)
	return result
}

func playCue(samples []int16) {
	if disabled.Load() || len(samples) == 0 {
		return
	}
	done := make(chan struct{}, 1)
	clip, err := openPCM(samples, cueRate, func() { done <- struct{}{} })
	if err != nil {
		log.Warnf("cue playback: %v", err)
		return
	}
	defer clip.Release()
	if _, err := clip.Toggle(); err != nil {
		log.Warnf("cue playback: %v", err)
		return
	}
	select {
	case <-done:
	case <-time.After(cueTimeout):
	}
}

// Init prepares the cue waveforms.
func Init() {
	cueOnce.Do(initCues)
}

func PlayStart() {
	cueOnce.Do(initCues)
	go playCue(startSamples)
}

func PlayEnd() {
	cueOnce.Do(initCues)
	go playCue(endSamples)
}

func PlayError() {
	cueOnce.Do(initCues)
	go playCue(errorSamples)
}

// OpenClip prepares an encoded recording for playback. onEnd runs once each
// time the clip plays to completion; it is not called after Release.
func OpenClip(data []byte, mimeType string, onEnd func()) (*Clip, error) {
	if !strings.HasPrefix(strings.ToLower(mimeType), encoder.MimeFLAC) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
	}
	samples, rate, err := encoder.DecodeFLAC(data)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: empty clip", ErrUnsupported)
	}
	return openPCM(samples, rate, onEnd)
}
