// Package device holds the pieces that talk to real sound hardware through
// cgo. Everything else in fillvox only sees audio.Clip and audio.Player.
package device

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/gordonklaus/portaudio"

	"fillvox/internal/audio"
)

// Recorder captures fixed-length mono clips from the default input device.
type Recorder struct {
	frameSize int
}

func NewRecorder() *Recorder { return &Recorder{frameSize: 1024} }

func (r *Recorder) Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	if _, err := portaudio.DefaultInputDevice(); err != nil {
		portaudio.Terminate()
		return fmt.Errorf("no input device: %w", err)
	}
	return nil
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Record captures exactly d of audio. It does not stop on silence. The
// context is checked between frames.
func (r *Recorder) Record(ctx context.Context, d time.Duration) (audio.Clip, error) {
	if d <= 0 {
		d = 5 * time.Second
	}

	buf := make([]float32, r.frameSize)

	stream, err := portaudio.OpenDefaultStream(
		1, // in
		0, // no out
		float64(audio.SampleRate),
		len(buf),
		buf,
	)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return audio.Clip{}, fmt.Errorf("start stream: %w", err)
	}
	defer stream.Stop()

	total := int(float64(audio.SampleRate) * d.Seconds())
	out := make([]float32, 0, total)

	for len(out) < total {
		select {
		case <-ctx.Done():
			return audio.Clip{}, ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			return audio.Clip{}, fmt.Errorf("read stream: %w", err)
		}
		out = append(out, buf...)
	}
	out = out[:total]

	if len(out) == 0 {
		return audio.Clip{}, errors.New("no audio recorded")
	}

	log.Debug("Recorded", "samples", len(out), "duration", d)
	return audio.EncodeWAV(out, audio.SampleRate)
}
