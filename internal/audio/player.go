package audio

import (
	"bytes"
	"context"
	"fmt"
	log "log/slog"
	"os"
	"os/exec"
)

// Player plays a clip. Play must not return before the audio has been heard,
// unless the player is Detached.
type Player interface {
	Play(ctx context.Context, clip Clip) error
}

// Detached is implemented by players that hand the clip to something else
// and return straight away. Callers wait out the clip themselves.
type Detached interface {
	Detached() bool
}

// IsDetached reports whether p returns before output finishes.
func IsDetached(p Player) bool {
	d, ok := p.(Detached)
	return ok && d.Detached()
}

// CommandPlayer hands the clip to an external program such as afplay, paplay
// or ffplay. The temporary file it writes is removed on every path.
type CommandPlayer struct {
	Command string
	Args    []string

	// Detach starts the program and returns without waiting for it.
	Detach bool
}

func (p *CommandPlayer) Detached() bool { return p.Detach }

func (p *CommandPlayer) Play(ctx context.Context, clip Clip) error {
	if clip.Empty() {
		return nil
	}

	f, err := os.CreateTemp("", clip.Filename("fillvox-speech-*"))
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	path := f.Name()
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn("Failed to remove speech file", "path", path, "err", err)
		}
	}

	_, werr := f.Write(clip.Data)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		cleanup()
		return fmt.Errorf("write speech file: %w", firstErr(werr, cerr))
	}

	args := append(append([]string(nil), p.Args...), path)

	if p.Detach {
		cmd := exec.Command(p.Command, args...)
		if err := cmd.Start(); err != nil {
			cleanup()
			return fmt.Errorf("%s: %w", p.Command, err)
		}
		go func() {
			_ = cmd.Wait()
			cleanup()
		}()
		return nil
	}

	defer cleanup()
	if out, err := exec.CommandContext(ctx, p.Command, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w (%s)", p.Command, err, bytes.TrimSpace(out))
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
