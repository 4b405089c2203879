// Package notify tells the user the microphone is open: a short cue sound
// and, where available, a desktop notification. Nothing here ever fails an
// interview.
package notify

import (
	"context"
	"fmt"
	log "log/slog"
	"math"
	"os"
	"os/exec"
	"time"

	"fillvox/internal/audio"
	"fillvox/internal/interview"
)

type Notifier struct {
	player  audio.Player
	cue     audio.Clip
	desktop bool

	// run executes notify-send; replaced in tests
	run func(ctx context.Context, args ...string) error
}

// New loads the cue from cuePath, or synthesizes a beep when it is empty.
// A nil player disables the cue.
func New(player audio.Player, cuePath string, desktop bool) (*Notifier, error) {
	n := &Notifier{player: player, desktop: desktop, run: notifySend}

	if cuePath == "" {
		clip, err := Tone(880, 150*time.Millisecond)
		if err != nil {
			return nil, err
		}
		n.cue = clip
		return n, nil
	}

	data, err := os.ReadFile(cuePath)
	if err != nil {
		return nil, fmt.Errorf("read cue: %w", err)
	}
	n.cue = audio.Clip{Data: data, Format: audio.FormatOf(cuePath)}
	return n, nil
}

// Listening plays the cue and shows a notification.
func (n *Notifier) Listening(ctx context.Context) {
	n.Desktop(ctx, "fillvox", "Listening...")

	if n.player == nil || n.cue.Empty() {
		return
	}
	if err := n.player.Play(ctx, n.cue); err != nil {
		log.Warn("Failed to play cue", "err", err)
	}
}

// Observe announces the end of an interview on the desktop.
func (n *Notifier) Observe(note interview.Notice) {
	switch note.To {
	case interview.Completed:
		n.Desktop(context.Background(), "fillvox", "Form complete")
	case interview.Cancelled:
		n.Desktop(context.Background(), "fillvox", "Form filling stopped")
	}
}

func (n *Notifier) Desktop(ctx context.Context, title, body string) {
	if !n.desktop {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := n.run(ctx, "-a", "fillvox", "-t", "3000", title, body); err != nil {
		log.Debug("Desktop notification failed", "err", err)
	}
}

func notifySend(ctx context.Context, args ...string) error {
	return exec.CommandContext(ctx, "notify-send", args...).Run()
}

// Tone renders a sine beep with short fades so it does not click.
func Tone(freq float64, d time.Duration) (audio.Clip, error) {
	n := int(d * audio.SampleRate / time.Second)
	fade := audio.SampleRate / 100
	pcm := make([]float32, n)
	for i := range pcm {
		gain := 0.4
		if i < fade {
			gain *= float64(i) / float64(fade)
		} else if n-i < fade {
			gain *= float64(n-i) / float64(fade)
		}
		pcm[i] = float32(gain * math.Sin(2*math.Pi*freq*float64(i)/audio.SampleRate))
	}
	return audio.EncodeWAV(pcm, audio.SampleRate)
}
