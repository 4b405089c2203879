package audio

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"time"
)

// Activity is what currently holds the audio device.
type Activity int

const (
	Idle Activity = iota
	Speaking
	Recording
)

func (a Activity) String() string {
	switch a {
	case Speaking:
		return "speaking"
	case Recording:
		return "recording"
	default:
		return "idle"
	}
}

// GateEvent is emitted on every acquisition and release.
type GateEvent struct {
	Activity Activity
	Acquired bool
	At       time.Time
}

// Hook runs while the gate is held, right after acquisition and right
// before release.
type Hook interface {
	Acquired(ctx context.Context, a Activity)
	Released(ctx context.Context, a Activity)
}

// Gate lets exactly one of speaking or recording use the device at a time.
// A caller blocks until the device is free or its context ends.
type Gate struct {
	sem chan struct{}

	mu      sync.Mutex
	active  Activity
	observe func(GateEvent)
	hooks   []Hook
}

type GateOption func(*Gate)

// WithObserver receives every acquisition and release in order.
func WithObserver(f func(GateEvent)) GateOption {
	return func(g *Gate) { g.observe = f }
}

func WithHook(h Hook) GateOption {
	return func(g *Gate) { g.hooks = append(g.hooks, h) }
}

func NewGate(opts ...GateOption) *Gate {
	g := &Gate{sem: make(chan struct{}, 1)}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Speak holds the gate as Speaking for the duration of fn. fn must not
// return before playback has finished.
func (g *Gate) Speak(ctx context.Context, fn func(context.Context) error) error {
	return g.hold(ctx, Speaking, fn)
}

// Record holds the gate as Recording for the duration of fn.
func (g *Gate) Record(ctx context.Context, fn func(context.Context) error) error {
	return g.hold(ctx, Recording, fn)
}

// Active reports the current holder.
func (g *Gate) Active() Activity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

func (g *Gate) hold(ctx context.Context, a Activity, fn func(context.Context) error) (err error) {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", a, r)
		}
		g.transition(context.WithoutCancel(ctx), a, false)
		<-g.sem
	}()

	g.transition(ctx, a, true)
	return fn(ctx)
}

func (g *Gate) transition(ctx context.Context, a Activity, acquired bool) {
	g.mu.Lock()
	if acquired {
		g.active = a
	} else {
		g.active = Idle
	}
	observe := g.observe
	g.mu.Unlock()

	log.Debug("Audio gate", "activity", a, "acquired", acquired)

	if observe != nil {
		observe(GateEvent{Activity: a, Acquired: acquired, At: time.Now()})
	}

	for _, h := range g.hooks {
		if acquired {
			h.Acquired(ctx, a)
		} else {
			h.Released(ctx, a)
		}
	}
}
