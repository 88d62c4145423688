package audio

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"gamepal/encoder"
)

// Source opens encoded capture streams on a fixed device.
type Source struct {
	ctx        Context
	device     *DeviceInfo
	newEncoder func() encoder.Encoder
}

func NewSource(ctx Context, device *DeviceInfo) *Source {
	return &Source{
		ctx:        ctx,
		device:     device,
		newEncoder: func() encoder.Encoder { return encoder.NewFlac() },
	}
}

// MimeType reports the container streams from this source produce.
func (s *Source) MimeType() string {
	return s.newEncoder().MimeType()
}

// Acquire starts a capture stream. Encoded bytes are delivered to onChunk
// as they become available, in order, from the capture goroutine. The
// returned Stream owns the device until Release.
func (s *Source) Acquire(c Constraints, onChunk func([]byte)) (*Stream, error) {
	if s.ctx == nil {
		return nil, ErrNotFound
	}
	device, err := s.pick(c)
	if err != nil {
		return nil, err
	}

	capture, err := s.ctx.NewCapture(device, CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	st := &Stream{
		capture: capture,
		enc:     s.newEncoder(),
		cond:    newConditioner(c),
		onChunk: onChunk,
	}
	capture.SetCallback(st.feed)
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return st, nil
}

func (s *Source) pick(c Constraints) (*DeviceInfo, error) {
	devices, err := s.ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if len(devices) == 0 {
		return nil, ErrNotFound
	}
	if s.device != nil {
		for i := range devices {
			if devices[i].ID == s.device.ID {
				return &devices[i], nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.device.Name)
	}
	if c.EchoCancellation {
		for i := range devices {
			if isEchoCancelled(devices[i]) {
				return &devices[i], nil
			}
		}
	}
	return nil, nil
}

func isEchoCancelled(d DeviceInfo) bool {
	n := strings.ToLower(d.ID + " " + d.Name)
	return strings.Contains(n, "echo-cancel") || strings.Contains(n, "echo cancel")
}

// Stream is one live capture. Release must be called exactly once per
// successful Acquire; extra calls are no-ops.
type Stream struct {
	capture CaptureDevice
	enc     encoder.Encoder
	cond    *conditioner
	onChunk func([]byte)

	mu      sync.Mutex
	pending []int16
	err     error
	once    sync.Once
}

func (st *Stream) DeviceName() string {
	return st.capture.DeviceName()
}

func (st *Stream) feed(data []byte, _ uint32) {
	buf := make([]byte, len(data)&^1)
	copy(buf, data)
	st.cond.process(buf)

	st.mu.Lock()
	defer st.mu.Unlock()
	for i := 0; i+1 < len(buf); i += 2 {
		st.pending = append(st.pending, int16(binary.LittleEndian.Uint16(buf[i:])))
	}
	for len(st.pending) >= encoder.BlockSize {
		st.encode(st.pending[:encoder.BlockSize])
		st.pending = st.pending[encoder.BlockSize:]
	}
	st.emit()
}

func (st *Stream) encode(block []int16) {
	if st.err != nil {
		return
	}
	if err := st.enc.EncodeBlock(block); err != nil {
		st.err = err
	}
}

func (st *Stream) emit() {
	if chunk := st.enc.Drain(); len(chunk) > 0 && st.onChunk != nil {
		st.onChunk(chunk)
	}
}

// Release stops the device, flushes the final partial block and closes the
// encoder. The device is released even when encoding failed.
func (st *Stream) Release() error {
	var err error
	st.once.Do(func() {
		st.capture.Stop()
		st.capture.ClearCallback()
		st.capture.Close()

		st.mu.Lock()
		defer st.mu.Unlock()
		if len(st.pending) > 0 {
			st.encode(st.pending)
			st.pending = nil
		}
		if cerr := st.enc.Close(); cerr != nil && st.err == nil {
			st.err = cerr
		}
		st.emit()
		err = st.err
	})
	return err
}
