//go:build !linux

package sound

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// Clip is a mono recording bound to its own playback device.
type Clip struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	pcm    []byte
	onEnd  func()

	mu       sync.Mutex
	pos      int
	playing  bool
	ended    bool
	released bool
}

func openPCM(samples []int16, rate int, onEnd func()) (*Clip, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo: %w", err)
	}

	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	c := &Clip{ctx: ctx, pcm: pcm, onEnd: onEnd}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = uint32(rate)

	c.device, err = malgo.InitDevice(ctx.Context, config, malgo.DeviceCallbacks{Data: c.data})
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("malgo playback: %w", err)
	}
	return c, nil
}

func (c *Clip) data(out, _ []byte, frameCount uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	want := int(frameCount) * 2
	if want > len(out) {
		want = len(out)
	}
	n := 0
	if c.playing {
		n = copy(out[:want], c.pcm[c.pos:])
		c.pos += n
	}
	clear(out[n:])

	if c.playing && c.pos >= len(c.pcm) && !c.ended {
		c.ended = true
		// Stop cannot be called from the data callback.
		go c.finish()
	}
}

func (c *Clip) finish() {
	c.device.Stop()

	c.mu.Lock()
	c.playing = false
	notify := !c.released && c.onEnd != nil
	c.mu.Unlock()

	if notify {
		c.onEnd()
	}
}

// Toggle starts, pauses or resumes playback and reports whether the clip is
// now playing. A clip that played to the end restarts from the beginning.
func (c *Clip) Toggle() (bool, error) {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return false, fmt.Errorf("clip released")
	}
	if c.playing {
		c.playing = false
		c.mu.Unlock()
		c.device.Stop()
		return false, nil
	}
	if c.ended || c.pos >= len(c.pcm) {
		c.pos = 0
		c.ended = false
	}
	c.playing = true
	c.mu.Unlock()

	if err := c.device.Start(); err != nil {
		c.mu.Lock()
		c.playing = false
		c.mu.Unlock()
		return false, fmt.Errorf("malgo start: %w", err)
	}
	return true, nil
}

func (c *Clip) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Release stops playback and frees the output device.
func (c *Clip) Release() {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	c.playing = false
	c.mu.Unlock()

	c.device.Uninit()
	c.ctx.Uninit()
	c.ctx.Free()
}
