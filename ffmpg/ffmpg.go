// Package ffmpg decodes remote media streams into raw PCM by piping them
// through an ffmpeg child process.
package ffmpg

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/disgoorg/ffmpeg-audio"
)

// Channels and SampleRate are fixed to what the Discord voice gateway
// expects from an Opus encoder.
const (
	Channels   = 2
	SampleRate = 48000
)

// frameBytes is one 20ms frame: 960 samples per channel, 2 bytes each.
const frameBytes = 960 * Channels * 2

// New starts an ffmpeg process decoding input, usually an HTTP stream URL,
// into raw PCM on its stdout. Cancelling ctx kills the process.
func New(ctx context.Context, input string, opts ...ffmpeg.ConfigOpt) (*AudioProvider, error) {
	cfg := ffmpeg.DefaultConfig()
	cfg.Apply(opts)

	cmd := exec.CommandContext(ctx, cfg.Exec,
		// Ride out transient network drops instead of ending the track.
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", input,
		"-vn",
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-loglevel", "warning",
		"pipe:1",
	)
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err = cmd.Start(); err != nil {
		return nil, err
	}

	done, doneFunc := context.WithCancel(context.Background())
	return &AudioProvider{
		cmd:      cmd,
		pipe:     pipe,
		reader:   bufio.NewReaderSize(pipe, cfg.BufferSize),
		done:     done,
		doneFunc: doneFunc,
	}, nil
}

// AudioProvider reads the ffmpeg PCM output one 20ms frame at a time.
type AudioProvider struct {
	cmd      *exec.Cmd
	pipe     io.Closer
	reader   *bufio.Reader
	done     context.Context
	doneFunc context.CancelFunc
}

// ProvidePCMFrame returns the next frame of interleaved samples. Once the
// stream ends it returns io.EOF, folding a truncated tail frame and a closed
// pipe into the same clean stop.
func (p *AudioProvider) ProvidePCMFrame() ([]int16, error) {
	buf := make([]byte, frameBytes)
	if _, err := io.ReadFull(p.reader, buf); err != nil {
		// Any terminal read releases Wait, not just a clean EOF.
		p.doneFunc()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, os.ErrClosed) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("error reading PCM data: %w", err)
	}

	samples := make([]int16, frameBytes/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}
	return samples, nil
}

// Close stops the stream. The next read observes the closed pipe and ends
// with io.EOF.
func (p *AudioProvider) Close() {
	_ = p.pipe.Close()
	p.doneFunc()
}

// Wait blocks until reading has finished, reaps the process, and returns
// its exit error. Call it at most once, after the final read or Close.
func (p *AudioProvider) Wait() error {
	<-p.done.Done()
	return p.cmd.Wait()
}
