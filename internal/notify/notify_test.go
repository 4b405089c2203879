package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fillvox/internal/audio"
	"fillvox/internal/interview"
)

type fakePlayer struct {
	played []audio.Clip
	err    error
}

func (p *fakePlayer) Play(_ context.Context, c audio.Clip) error {
	p.played = append(p.played, c)
	return p.err
}

func TestListening_PlaysToneAndNotifies(t *testing.T) {
	p := &fakePlayer{}
	n, err := New(p, "", true)
	require.NoError(t, err)

	var calls [][]string
	n.run = func(_ context.Context, args ...string) error {
		calls = append(calls, args)
		return errors.New("notify-send: not found")
	}

	n.Listening(context.Background())

	require.Len(t, p.played, 1)
	assert.Equal(t, "wav", p.played[0].Format)
	assert.Equal(t, 150*time.Millisecond, p.played[0].Duration())
	require.Len(t, calls, 1)
	assert.Equal(t, "Listening...", calls[0][len(calls[0])-1])
}

func TestListening_CueFromFileAndFailingPlayer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cue.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3"), 0o644))

	p := &fakePlayer{err: errors.New("device busy")}
	n, err := New(p, path, false)
	require.NoError(t, err)
	n.run = func(context.Context, ...string) error {
		t.Fatal("desktop notification while disabled")
		return nil
	}

	n.Listening(context.Background())
	require.Len(t, p.played, 1)
	assert.Equal(t, audio.Clip{Data: []byte("ID3"), Format: "mp3"}, p.played[0])
}

func TestNew_MissingCue(t *testing.T) {
	_, err := New(nil, filepath.Join(t.TempDir(), "gone.wav"), false)
	assert.Error(t, err)
}

func TestObserve_AnnouncesTheEnd(t *testing.T) {
	n, err := New(nil, "", true)
	require.NoError(t, err)

	var bodies []string
	n.run = func(_ context.Context, args ...string) error {
		bodies = append(bodies, args[len(args)-1])
		return nil
	}

	n.Observe(interview.Notice{To: interview.Recording})
	n.Observe(interview.Notice{To: interview.Completed})
	n.Observe(interview.Notice{To: interview.Cancelled})
	assert.Equal(t, []string{"Form complete", "Form filling stopped"}, bodies)

	// no player: nothing to play, no panic
	n.Listening(context.Background())
}
