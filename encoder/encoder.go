package encoder

import "strings"

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// Encoder turns PCM blocks into an encoded byte stream. Drain returns the
// bytes produced since the previous call so callers can forward them as
// chunks while recording is still in progress.
type Encoder interface {
	EncodeBlock(block []int16) error
	Drain() []byte
	Close() error
	TotalFrames() uint64
	MimeType() string
}

var extensions = map[string]string{
	"audio/flac":   "flac",
	"audio/x-flac": "flac",
	"audio/wav":    "wav",
	"audio/wave":   "wav",
	"audio/x-wav":  "wav",
	"audio/webm":   "webm",
	"audio/ogg":    "ogg",
	"audio/mpeg":   "mp3",
	"audio/mp4":    "m4a",
}

// Extension maps a MIME type (parameters allowed) to a file extension.
func Extension(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	if ext, ok := extensions[strings.ToLower(strings.TrimSpace(base))]; ok {
		return ext
	}
	return "bin"
}
