package audio

import (
	"encoding/binary"
	"math"
)

const (
	gateThreshold = 160    // |sample| below this is treated as background noise
	agcTarget     = 12000  // desired block peak
	agcMaxGain    = 8.0    // matches the fixed boost pulse capture used to apply
	agcSmoothing  = 0.2    // weight of the newest block's gain estimate
	agcMinPeak    = 1.0e-9 // avoids division by zero on digital silence
)

// conditioner applies the software side of Constraints to little-endian
// 16-bit PCM in place. Echo cancellation is handled by source selection.
type conditioner struct {
	c    Constraints
	gain float64
}

func newConditioner(c Constraints) *conditioner {
	return &conditioner{c: c, gain: 1}
}

func (p *conditioner) process(pcm []byte) {
	if !p.c.NoiseSuppression && !p.c.AutoGainControl {
		return
	}
	n := len(pcm) / 2

	if p.c.NoiseSuppression {
		for i := 0; i < n; i++ {
			s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
			if s > -gateThreshold && s < gateThreshold {
				binary.LittleEndian.PutUint16(pcm[i*2:], 0)
			}
		}
	}

	if !p.c.AutoGainControl || n == 0 {
		return
	}

	var peak float64
	for i := 0; i < n; i++ {
		s := math.Abs(float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))))
		if s > peak {
			peak = s
		}
	}
	want := agcMaxGain
	if peak > agcMinPeak {
		want = math.Min(agcMaxGain, math.Max(1, agcTarget/peak))
	}
	p.gain = p.gain*(1-agcSmoothing) + want*agcSmoothing

	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) * p.gain
		if s > math.MaxInt16 {
			s = math.MaxInt16
		} else if s < math.MinInt16 {
			s = math.MinInt16
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(s)))
	}
}
