package encoder

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

const MimeFLAC = "audio/flac"

// FlacEncoder writes verbatim FLAC frames. The stream header is only emitted
// together with the first block, so an encoder that never saw audio produces
// no bytes at all.
type FlacEncoder struct {
	buf         bytes.Buffer
	enc         *flac.Encoder
	totalFrames uint64
	closed      bool
	mu          sync.Mutex
}

func NewFlac() *FlacEncoder {
	return &FlacEncoder{}
}

func (e *FlacEncoder) start() error {
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
	}
	enc, err := flac.NewEncoder(&e.buf, info)
	if err != nil {
		return fmt.Errorf("creating flac encoder: %w", err)
	}
	e.enc = enc
	return nil
}

func (e *FlacEncoder) EncodeBlock(block []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("flac encoder closed")
	}
	if len(block) == 0 {
		return nil
	}
	if e.enc == nil {
		if err := e.start(); err != nil {
			return err
		}
	}

	samples32 := make([]int32, len(block))
	for i, s := range block {
		samples32[i] = int32(s)
	}

	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   samples32,
			NSamples:  len(block),
		}},
	}

	if err := e.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	e.totalFrames += uint64(len(block))
	return nil
}

func (e *FlacEncoder) Drain() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.buf.Len() == 0 {
		return nil
	}
	out := make([]byte, e.buf.Len())
	copy(out, e.buf.Bytes())
	e.buf.Reset()
	return out
}

func (e *FlacEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.enc == nil {
		return nil
	}
	return e.enc.Close()
}

func (e *FlacEncoder) TotalFrames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalFrames
}

func (e *FlacEncoder) MimeType() string { return MimeFLAC }

// DecodeFLAC decodes a FLAC stream to mono 16-bit samples. Multi-channel
// input is downmixed by averaging.
func DecodeFLAC(data []byte) ([]int16, int, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("parsing flac stream: %w", err)
	}
	defer stream.Close()

	shift := int(stream.Info.BitsPerSample) - 16
	var out []int16
	for {
		f, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("parsing flac frame: %w", err)
		}
		n := len(f.Subframes)
		if n == 0 {
			continue
		}
		for i := 0; i < f.Subframes[0].NSamples; i++ {
			var sum int64
			for _, sf := range f.Subframes {
				sum += int64(sf.Samples[i])
			}
			v := sum / int64(n)
			if shift > 0 {
				v >>= shift
			} else if shift < 0 {
				v <<= -shift
			}
			out = append(out, int16(v))
		}
	}
	return out, int(stream.Info.SampleRate), nil
}
