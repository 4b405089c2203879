package speech

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fillvox/internal/audio"
)

type fakeSynth struct {
	said []string
	clip audio.Clip
	err  error
}

func (f *fakeSynth) Synthesize(_ context.Context, text string) (audio.Clip, error) {
	f.said = append(f.said, text)
	if f.err != nil {
		return audio.Clip{}, f.err
	}
	return f.clip, nil
}

type fakePlayer struct {
	played   []audio.Clip
	detached bool
}

func (p *fakePlayer) Play(_ context.Context, c audio.Clip) error {
	p.played = append(p.played, c)
	return nil
}

func (p *fakePlayer) Detached() bool { return p.detached }

func TestSynthVoice_BlockingPlayer(t *testing.T) {
	synth := &fakeSynth{clip: audio.Clip{Data: []byte("mp3"), Format: "mp3"}}
	player := &fakePlayer{}
	v := NewSynthVoice(synth, player)
	v.sleep = func(context.Context, time.Duration) error {
		t.Fatal("slept for a blocking player")
		return nil
	}

	require.NoError(t, v.Say(context.Background(), "  What is your email?  "))
	require.NoError(t, v.Say(context.Background(), "   "))

	assert.Equal(t, []string{"What is your email?"}, synth.said)
	assert.Len(t, player.played, 1)
}

func TestSynthVoice_DetachedPlayerWaits(t *testing.T) {
	synth := &fakeSynth{clip: audio.Clip{Data: []byte("mp3"), Format: "mp3"}}
	player := &fakePlayer{detached: true}
	v := NewSynthVoice(synth, player)

	var waited time.Duration
	v.sleep = func(_ context.Context, d time.Duration) error {
		waited = d
		return nil
	}

	text := "What city do you live in?"
	require.NoError(t, v.Say(context.Background(), text))
	assert.Greater(t, waited, EstimateDuration(text)-100*time.Millisecond)
	assert.LessOrEqual(t, waited, EstimateDuration(text))
}

func TestSynthVoice_DetachedUsesKnownDuration(t *testing.T) {
	pcm := make([]float32, audio.SampleRate*3)
	clip, err := audio.EncodeWAV(pcm, audio.SampleRate)
	require.NoError(t, err)

	v := NewSynthVoice(&fakeSynth{clip: clip}, &fakePlayer{detached: true})
	var waited time.Duration
	v.sleep = func(_ context.Context, d time.Duration) error {
		waited = d
		return nil
	}

	require.NoError(t, v.Say(context.Background(), "Hi"))
	assert.InDelta(t, float64(3*time.Second), float64(waited), float64(100*time.Millisecond))
}

func TestSynthVoice_SynthesisError(t *testing.T) {
	player := &fakePlayer{}
	v := NewSynthVoice(&fakeSynth{err: ErrTransport}, player)

	err := v.Say(context.Background(), "Hello")
	assert.ErrorIs(t, err, ErrTransport)
	assert.Empty(t, player.played)
}

func TestSleepCtx_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sleepCtx(ctx, time.Hour)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEstimateDuration(t *testing.T) {
	assert.Zero(t, EstimateDuration("   "))

	short := EstimateDuration("What is your name?")
	long := EstimateDuration("Hello! I'll help you fill out this form. I need to ask you 3 questions. Let's begin!")
	assert.Greater(t, long, short)
	assert.Equal(t, 4*time.Minute/wordsPerMinute+speechPadding, short)

	// same word count, longer words
	assert.Greater(t, EstimateDuration("internationalization telecommunications"), EstimateDuration("my cat"))
}

func TestSilentVoice(t *testing.T) {
	assert.NoError(t, SilentVoice{}.Say(context.Background(), "anything"))
}
