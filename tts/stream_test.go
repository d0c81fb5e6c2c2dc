package tts

import (
	"errors"
	"io"
	"testing"

	"github.com/gopxl/beep/v2"
)

// constStreamer yields total samples of a fixed value.
type constStreamer struct {
	value float64
	total int
	pos   int
}

func (c *constStreamer) Stream(samples [][2]float64) (int, bool) {
	if c.pos >= c.total {
		return 0, false
	}
	n := 0
	for n < len(samples) && c.pos < c.total {
		samples[n] = [2]float64{c.value, -c.value}
		n++
		c.pos++
	}
	return n, true
}

func (c *constStreamer) Err() error { return nil }

type recordingCloser struct {
	closes int
}

func (r *recordingCloser) Close() error {
	r.closes++
	return nil
}

func TestStreamProviderFullFrames(t *testing.T) {
	closer := &recordingCloser{}
	p := NewStreamProvider(&constStreamer{value: 0.5, total: frameSamples * 2}, closer)

	for i := 0; i < 2; i++ {
		frame, err := p.ProvidePCMFrame()
		if err != nil {
			t.Fatalf("ProvidePCMFrame() #%d returned error: %v", i+1, err)
		}
		if len(frame) != frameSamples*2 {
			t.Fatalf("frame has %d samples, expected %d", len(frame), frameSamples*2)
		}
		if frame[0] != 16383 {
			t.Errorf("left sample = %d, expected 16383", frame[0])
		}
		if frame[1] != -16383 {
			t.Errorf("right sample = %d, expected -16383", frame[1])
		}
	}

	if _, err := p.ProvidePCMFrame(); !errors.Is(err, io.EOF) {
		t.Fatalf("ProvidePCMFrame() after end = %v, expected io.EOF", err)
	}
	if closer.closes != 1 {
		t.Errorf("closer closed %d times, expected once", closer.closes)
	}
}

func TestStreamProviderPadsTailFrame(t *testing.T) {
	p := NewStreamProvider(&constStreamer{value: 1, total: 10}, nil)

	frame, err := p.ProvidePCMFrame()
	if err != nil {
		t.Fatalf("ProvidePCMFrame() returned error: %v", err)
	}
	if len(frame) != frameSamples*2 {
		t.Fatalf("frame has %d samples, expected a padded full frame", len(frame))
	}
	if frame[0] != 32767 {
		t.Errorf("first sample = %d, expected full scale 32767", frame[0])
	}
	if frame[20] != 0 || frame[21] != 0 {
		t.Errorf("padding = (%d, %d), expected silence", frame[20], frame[21])
	}

	if _, err = p.ProvidePCMFrame(); !errors.Is(err, io.EOF) {
		t.Fatalf("ProvidePCMFrame() after tail = %v, expected io.EOF", err)
	}
}

func TestStreamProviderCloseStopsStream(t *testing.T) {
	closer := &recordingCloser{}
	p := NewStreamProvider(&constStreamer{value: 0.1, total: frameSamples * 10}, closer)

	p.Close()
	p.Close()

	if _, err := p.ProvidePCMFrame(); !errors.Is(err, io.EOF) {
		t.Fatalf("ProvidePCMFrame() after Close = %v, expected io.EOF", err)
	}
	if closer.closes != 1 {
		t.Errorf("closer closed %d times, expected once", closer.closes)
	}
}

func TestFloatToInt16Clamps(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected int16
	}{
		{name: "zero", input: 0, expected: 0},
		{name: "half", input: 0.5, expected: 16383},
		{name: "full scale", input: 1, expected: 32767},
		{name: "over range", input: 1.5, expected: 32767},
		{name: "under range", input: -1.5, expected: -32768},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := floatToInt16(tt.input); got != tt.expected {
				t.Errorf("floatToInt16(%v) = %d, expected %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResampledProviderPassthrough(t *testing.T) {
	// Same-rate sources must not be wrapped in a resampler.
	p := newResampledProvider(&constStreamer{value: 0.25, total: frameSamples}, nil, SampleRate)
	frame, err := p.ProvidePCMFrame()
	if err != nil {
		t.Fatalf("ProvidePCMFrame() returned error: %v", err)
	}
	if frame[0] != 8191 {
		t.Errorf("sample = %d, expected 8191 without resampling", frame[0])
	}
}

var _ beep.Streamer = (*constStreamer)(nil)
