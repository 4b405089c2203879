package device

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	beepwav "github.com/faiface/beep/wav"

	"fillvox/internal/audio"
)

// SpeakerPlayer plays through the default output with beep.
type SpeakerPlayer struct {
	rate beep.SampleRate

	once    sync.Once
	initErr error
}

func NewSpeakerPlayer() *SpeakerPlayer {
	return &SpeakerPlayer{rate: beep.SampleRate(44100)}
}

func (p *SpeakerPlayer) Init() error {
	p.once.Do(func() {
		p.initErr = speaker.Init(p.rate, p.rate.N(time.Second/10))
	})
	if p.initErr != nil {
		return fmt.Errorf("speaker init: %w", p.initErr)
	}
	return nil
}

func (p *SpeakerPlayer) Close() {
	speaker.Close()
}

func (p *SpeakerPlayer) Play(ctx context.Context, clip audio.Clip) error {
	if clip.Empty() {
		return nil
	}
	if err := p.Init(); err != nil {
		return err
	}

	rc := io.NopCloser(bytes.NewReader(clip.Data))

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch clip.Format {
	case "mp3":
		streamer, format, err = mp3.Decode(rc)
	case "wav", "":
		streamer, format, err = beepwav.Decode(rc)
	default:
		return fmt.Errorf("unsupported clip format %q", clip.Format)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", clip.Format, err)
	}
	defer streamer.Close()

	var s beep.Streamer = streamer
	if format.SampleRate != p.rate {
		s = beep.Resample(4, format.SampleRate, p.rate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
