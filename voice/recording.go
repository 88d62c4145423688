package voice

import (
	"sync"

	"gamepal/audio"
)

// Recording is one finished clip. Samples is owned by the controller and
// never shared with a sink.
type Recording struct {
	Samples  []byte
	MimeType string
}

func (r Recording) SizeBytes() int { return len(r.Samples) }

func (r Recording) SizeKB() float64 { return float64(len(r.Samples)) / 1024 }

// Stream is a live capture that must be released exactly once.
type Stream interface {
	Release() error
}

// Device opens capture streams that deliver encoded chunks to onChunk.
type Device interface {
	Acquire(c audio.Constraints, onChunk func([]byte)) (Stream, error)
	MimeType() string
}

type audioDevice struct {
	src *audio.Source
}

// FromSource adapts an audio source to a Device.
func FromSource(src *audio.Source) Device {
	return audioDevice{src: src}
}

func (d audioDevice) Acquire(c audio.Constraints, onChunk func([]byte)) (Stream, error) {
	st, err := d.src.Acquire(c, onChunk)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (d audioDevice) MimeType() string { return d.src.MimeType() }

// session collects chunks between start and stop.
type session struct {
	stream Stream
	mime   string

	mu     sync.Mutex
	chunks [][]byte
}

func (s *session) add(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	s.mu.Lock()
	s.chunks = append(s.chunks, chunk)
	s.mu.Unlock()
}

func (s *session) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.chunks {
		n += len(c)
	}
	if n == 0 {
		return nil
	}
	out := make([]byte, 0, n)
	for _, c := range s.chunks {
		out = append(out, c...)
	}
	s.chunks = nil
	return out
}
