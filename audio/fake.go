package audio

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// FakeContext replays canned PCM instead of opening hardware. Each capture
// delivers the whole buffer synchronously from Start.
type FakeContext struct {
	PCM        []byte
	DeviceList []DeviceInfo
	OpenErr    error
	StartErr   error
	ChunkBytes int

	mu       sync.Mutex
	captures []*FakeCapture
}

func NewFakeContext(pcm []byte) *FakeContext {
	return &FakeContext{
		PCM:        pcm,
		DeviceList: []DeviceInfo{{ID: "fake", Name: "Fake Microphone"}},
		ChunkBytes: 3200,
	}
}

// NewFakeContextFromWAV loads a 16 kHz mono 16-bit WAV file.
func NewFakeContextFromWAV(path string) (*FakeContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < WAVHeaderSize || string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%s: not a WAV file", path)
	}
	return NewFakeContext(data[WAVHeaderSize:]), nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return f.DeviceList, nil
}

func (f *FakeContext) NewCapture(device *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	name := "system default"
	if device != nil {
		name = device.Name
	}
	c := &FakeCapture{ctx: f, name: name}
	f.mu.Lock()
	f.captures = append(f.captures, c)
	f.mu.Unlock()
	return c, nil
}

func (f *FakeContext) Close() {}

// Captures returns every capture device opened so far.
func (f *FakeContext) Captures() []*FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeCapture(nil), f.captures...)
}

type FakeCapture struct {
	ctx  *FakeContext
	name string

	mu      sync.Mutex
	cb      DataCallback
	started bool
	closed  bool
}

func (c *FakeCapture) Start() error {
	if c.ctx.StartErr != nil {
		return c.ctx.StartErr
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("capture closed")
	}
	c.started = true
	cb := c.cb
	c.mu.Unlock()

	if cb == nil {
		return nil
	}
	step := c.ctx.ChunkBytes
	if step <= 0 {
		step = len(c.ctx.PCM)
	}
	for off := 0; off < len(c.ctx.PCM); off += step {
		end := min(off+step, len(c.ctx.PCM))
		cb(c.ctx.PCM[off:end], uint32((end-off)/2))
	}
	return nil
}

func (c *FakeCapture) Stop() {
	c.mu.Lock()
	c.started = false
	c.mu.Unlock()
}

func (c *FakeCapture) Close() {
	c.mu.Lock()
	c.closed = true
	c.started = false
	c.mu.Unlock()
}

func (c *FakeCapture) SetCallback(cb DataCallback) {
	c.mu.Lock()
	c.cb = cb
	c.mu.Unlock()
}

func (c *FakeCapture) ClearCallback() {
	c.mu.Lock()
	c.cb = nil
	c.mu.Unlock()
}

func (c *FakeCapture) DeviceName() string { return c.name }

// Closed reports whether the device was released.
func (c *FakeCapture) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
