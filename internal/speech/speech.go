// Package speech turns clips into text and text into audible speech.
package speech

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"fillvox/internal/audio"
)

// ErrTransport marks failures talking to a speech backend, as opposed to a
// backend that answered with nothing.
var ErrTransport = errors.New("speech transport")

type Transcriber interface {
	// Transcribe returns "" when no speech was detected.
	Transcribe(ctx context.Context, clip audio.Clip, language string) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (audio.Clip, error)
}

// Voice says text out loud and returns once it has been heard.
type Voice interface {
	Say(ctx context.Context, text string) error
}

// SynthVoice synthesizes with Synth and plays with Player. When the player
// is detached it sleeps for the estimated length of the utterance instead.
type SynthVoice struct {
	Synth  Synthesizer
	Player audio.Player

	// sleep is replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

func NewSynthVoice(s Synthesizer, p audio.Player) *SynthVoice {
	return &SynthVoice{Synth: s, Player: p, sleep: sleepCtx}
}

func (v *SynthVoice) Say(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	clip, err := v.Synth.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	start := time.Now()
	if err := v.Player.Play(ctx, clip); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	if audio.IsDetached(v.Player) {
		wait := clip.Duration()
		if wait == 0 {
			wait = EstimateDuration(text)
		}
		wait -= time.Since(start)
		if wait > 0 {
			log.Debug("Waiting out detached playback", "for", wait)
			sleep := v.sleep
			if sleep == nil {
				sleep = sleepCtx
			}
			return sleep(ctx, wait)
		}
	}
	return nil
}

// SilentVoice is used when speech output is off. The engine prints every
// prompt anyway.
type SilentVoice struct{}

func (SilentVoice) Say(context.Context, string) error { return nil }

const (
	wordsPerMinute = 150
	speechPadding  = 500 * time.Millisecond
)

// EstimateDuration guesses how long text takes to say at a normal pace.
func EstimateDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	d := time.Duration(words) * time.Minute / wordsPerMinute

	// long numbers and spelled out addresses read slower than their word count
	if chars := utf8.RuneCountInString(text); chars/words > 8 {
		d += d / 4
	}
	return d + speechPadding
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
