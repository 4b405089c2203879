package audio

import (
	"context"
	"fmt"
	log "log/slog"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type sinkInput struct {
	ID      int
	Volume  int
	AppName string
}

type volumeStep struct {
	id   int
	from int
	to   int
}

// Ducker turns other applications down through PulseAudio while the gate is
// held, so music playing in the background neither drowns out a question
// nor leaks into a recorded answer. Streams whose application.name is in
// selfNames are left alone.
type Ducker struct {
	mu       sync.Mutex
	ducked   bool
	selfApps []string
	saved    map[int]int // sink input -> volume before ducking
	factor   float64
	floor    int
	fade     time.Duration

	// run executes pactl; replaced in tests
	run func(ctx context.Context, args ...string) ([]byte, error)
}

func NewDucker(selfApps []string, factor float64, floor int, fade time.Duration) *Ducker {
	return &Ducker{
		selfApps: append([]string(nil), selfApps...),
		saved:    make(map[int]int),
		factor:   math.Max(0, math.Min(1, factor)),
		floor:    clampVolume(floor),
		fade:     fade,
		run:      pactl,
	}
}

func (d *Ducker) Acquired(ctx context.Context, _ Activity) {
	if err := d.Duck(ctx); err != nil {
		log.Warn("Failed to duck other streams", "err", err)
	}
}

func (d *Ducker) Released(ctx context.Context, _ Activity) {
	if err := d.Restore(ctx); err != nil {
		log.Warn("Failed to restore other streams", "err", err)
	}
}

// Duck fades every foreign stream to volume*factor, never below the floor.
func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ducked {
		return nil
	}

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	d.saved = make(map[int]int)
	var steps []volumeStep
	for _, in := range inputs {
		if d.isSelf(in) {
			continue
		}
		to := int(math.Round(float64(in.Volume) * d.factor))
		if to < d.floor {
			to = d.floor
		}
		d.saved[in.ID] = in.Volume
		steps = append(steps, volumeStep{id: in.ID, from: in.Volume, to: clampVolume(to)})
	}

	if err := d.fadeTo(ctx, steps); err != nil {
		return err
	}
	d.ducked = true
	return nil
}

// Restore fades ducked streams back. Streams that appeared after Duck are
// not touched.
func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ducked {
		return nil
	}

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	var steps []volumeStep
	for _, in := range inputs {
		orig, ok := d.saved[in.ID]
		if !ok || d.isSelf(in) {
			continue
		}
		steps = append(steps, volumeStep{id: in.ID, from: in.Volume, to: orig})
	}

	if err := d.fadeTo(ctx, steps); err != nil {
		return err
	}
	d.saved = make(map[int]int)
	d.ducked = false
	return nil
}

func (d *Ducker) isSelf(in sinkInput) bool {
	for _, name := range d.selfApps {
		if in.AppName == name {
			return true
		}
	}
	return false
}

func (d *Ducker) fadeTo(ctx context.Context, steps []volumeStep) error {
	if len(steps) == 0 {
		return nil
	}

	const tick = 10 * time.Millisecond
	n := int(d.fade / tick)
	if n < 1 {
		n = 1
	}

	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		frac := float64(i) / float64(n)
		for _, s := range steps {
			v := int(math.Round(float64(s.from) + float64(s.to-s.from)*frac))
			if _, err := d.run(ctx, "set-sink-input-volume", strconv.Itoa(s.id), fmt.Sprintf("%d%%", clampVolume(v))); err != nil {
				return fmt.Errorf("set volume of %d: %w", s.id, err)
			}
		}
		if i < n {
			time.Sleep(d.fade / time.Duration(n))
		}
	}
	return nil
}

func (d *Ducker) list(ctx context.Context) ([]sinkInput, error) {
	out, err := d.run(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

func parseSinkInputs(text string) []sinkInput {
	blocks := strings.Split(text, "Sink Input #")
	var res []sinkInput

	for _, block := range blocks[1:] {
		header, body, ok := strings.Cut(block, "\n")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(header))
		if err != nil {
			continue
		}

		in := sinkInput{ID: id}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "Volume:") && in.Volume == 0 {
				if m := percentRe.FindStringSubmatch(line); m != nil {
					in.Volume, _ = strconv.Atoi(m[1])
				}
			}
			if rest, ok := strings.CutPrefix(line, "application.name ="); ok && in.AppName == "" {
				in.AppName = strings.Trim(strings.TrimSpace(rest), `"`)
			}
		}

		if in.Volume == 0 && in.AppName == "" {
			continue
		}
		res = append(res, in)
	}
	return res
}

func pactl(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "pactl", args...).Output()
}

func clampVolume(v int) int {
	return max(0, min(150, v))
}
