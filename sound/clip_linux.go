//go:build linux

package sound

import (
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

// Clip is a mono recording bound to its own playback stream.
type Clip struct {
	client  *pulse.Client
	samples []int16
	rate    int
	onEnd   func()

	mu       sync.Mutex
	stream   *pulse.PlaybackStream
	pos      int
	playing  bool
	released bool
}

func openPCM(samples []int16, rate int, onEnd func()) (*Clip, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("gamepal"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &Clip{client: c, samples: samples, rate: rate, onEnd: onEnd}, nil
}

// read fills buf from the current position. While paused it feeds silence
// so the stream stays open and resumes where it stopped.
func (c *Clip) read(buf []int16) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		clear(buf)
		return len(buf), nil
	}
	if c.pos >= len(c.samples) {
		return 0, pulse.EndOfData
	}
	n := copy(buf, c.samples[c.pos:])
	c.pos += n
	return n, nil
}

// Toggle starts, pauses or resumes playback and reports whether the clip is
// now playing. A clip that played to the end restarts from the beginning.
func (c *Clip) Toggle() (bool, error) {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return false, fmt.Errorf("clip released")
	}
	if c.stream != nil {
		c.playing = !c.playing
		playing := c.playing
		c.mu.Unlock()
		return playing, nil
	}
	c.pos = 0
	c.playing = true
	c.mu.Unlock()

	// The reader runs on the client goroutine and takes c.mu, so the stream
	// is created without holding it.
	stream, err := c.client.NewPlayback(pulse.Int16Reader(c.read),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(c.rate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		c.mu.Lock()
		c.playing = false
		c.mu.Unlock()
		return false, fmt.Errorf("pulse playback: %w", err)
	}

	c.mu.Lock()
	c.stream = stream
	c.mu.Unlock()
	stream.Start()
	go c.finish(stream)
	return true, nil
}

func (c *Clip) finish(stream *pulse.PlaybackStream) {
	stream.Drain()

	c.mu.Lock()
	if c.stream != stream {
		c.mu.Unlock()
		return
	}
	c.stream = nil
	c.playing = false
	notify := !c.released && c.onEnd != nil
	c.mu.Unlock()

	stream.Stop()
	stream.Close()
	if notify {
		c.onEnd()
	}
}

func (c *Clip) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Release stops playback and frees the output stream.
func (c *Clip) Release() {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	c.playing = false
	stream := c.stream
	c.stream = nil
	c.mu.Unlock()

	if stream != nil {
		stream.Stop()
		stream.Close()
	}
	c.client.Close()
}
