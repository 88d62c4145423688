package audio

import "errors"

const WAVHeaderSize = 44

var (
	// ErrPermissionDenied reports that the capture device refused to open.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrNotFound reports that no usable capture device exists.
	ErrNotFound = errors.New("no microphone found")
)

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

// Constraints mirror the processing switches a capture stream is opened with.
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// VoiceConstraints enables all voice processing.
var VoiceConstraints = Constraints{
	EchoCancellation: true,
	NoiseSuppression: true,
	AutoGainControl:  true,
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}
