package tts

import (
	"io"

	"github.com/gopxl/beep/v2"
)

// SampleRate is the voice connection's PCM rate.
var SampleRate = beep.SampleRate(48000)

// frameSamples is 20ms per channel at the voice rate.
const frameSamples = 960

// StreamProvider drains a beep streamer into interleaved 20ms PCM frames.
// The final partial frame is padded with silence; after that every call
// returns io.EOF.
type StreamProvider struct {
	streamer beep.Streamer
	closer   interface{ Close() error }
	buf      [][2]float64
	eof      bool
}

// NewStreamProvider wraps streamer, which must already produce samples at
// SampleRate. closer, when non-nil, is closed once the stream is done.
func NewStreamProvider(streamer beep.Streamer, closer interface{ Close() error }) *StreamProvider {
	return &StreamProvider{
		streamer: streamer,
		closer:   closer,
		buf:      make([][2]float64, frameSamples),
	}
}

func (p *StreamProvider) ProvidePCMFrame() ([]int16, error) {
	if p.eof {
		return nil, io.EOF
	}

	n, ok := p.streamer.Stream(p.buf)
	if n == 0 && !ok {
		p.finish()
		return nil, io.EOF
	}
	if n < len(p.buf) {
		// Pad the tail frame and end on the next call.
		for i := n; i < len(p.buf); i++ {
			p.buf[i] = [2]float64{}
		}
		p.finish()
	}

	frame := make([]int16, len(p.buf)*2)
	for i, sample := range p.buf {
		frame[i*2] = floatToInt16(sample[0])
		frame[i*2+1] = floatToInt16(sample[1])
	}
	return frame, nil
}

func (p *StreamProvider) Close() {
	p.finish()
}

func (p *StreamProvider) finish() {
	if p.eof {
		return
	}
	p.eof = true
	if p.closer != nil {
		_ = p.closer.Close()
	}
}

func floatToInt16(v float64) int16 {
	v *= 32767
	switch {
	case v > 32767:
		v = 32767
	case v < -32768:
		v = -32768
	}
	return int16(v)
}
