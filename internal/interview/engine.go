// Package interview fills a form schema by asking for one field at a time,
// listening for the answer and normalizing what was heard.
//
// One Engine runs one interview at a time on a single goroutine. The audio
// gate guarantees the engine never listens while it is talking.
package interview

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"fillvox/internal/audio"
	"fillvox/internal/form"
	"fillvox/internal/normalize"
	"fillvox/internal/speech"
)

const (
	DefaultRecordSeconds = 5
	stopTimeout          = 15 * time.Second
)

// Config picks between the interview variants: spoken or typed answers,
// spoken or printed prompts.
type Config struct {
	// SpeechEnabled records and transcribes answers. When false, answers
	// are read line by line from Deps.Input.
	SpeechEnabled bool
	// TTSEnabled speaks prompts as well as printing them.
	TTSEnabled bool
	// RecordSeconds is the fixed length of every recording.
	RecordSeconds int
	// Language is passed to the transcriber as a hint.
	Language string

	LegacyNumberRouting bool
	PhraseQuestions     bool
}

func (c Config) recordDuration() time.Duration {
	if c.RecordSeconds <= 0 {
		return DefaultRecordSeconds * time.Second
	}
	return time.Duration(c.RecordSeconds) * time.Second
}

type Microphone interface {
	Record(ctx context.Context, d time.Duration) (audio.Clip, error)
}

type Phraser interface {
	Phrase(ctx context.Context, f form.Field, fallback string) string
}

// Cue signals that the microphone is about to open.
type Cue interface {
	Listening(ctx context.Context)
}

// Device is opened before the greeting. A failure aborts the interview with
// ErrDeviceUnavailable.
type Device interface {
	Init() error
}

type Deps struct {
	Microphone  Microphone
	Transcriber speech.Transcriber
	Voice       speech.Voice
	Gate        *audio.Gate
	Phraser     Phraser
	Cue         Cue
	Devices     []Device
	Observers   []Observer

	Input  io.Reader // typed answers
	Output io.Writer // printed prompts, os.Stdout when nil

	Now func() time.Time
}

type Engine struct {
	cfg  Config
	deps Deps
	norm *normalize.Normalizer
	gate *audio.Gate
	out  io.Writer
	now  func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	snap    SessionState

	lines *lineReader
}

func New(cfg Config, deps Deps) (*Engine, error) {
	if cfg.SpeechEnabled && (deps.Microphone == nil || deps.Transcriber == nil) {
		return nil, errors.New("speech mode needs a microphone and a transcriber")
	}
	if !cfg.SpeechEnabled && deps.Input == nil {
		return nil, errors.New("text mode needs an input")
	}
	if cfg.TTSEnabled && deps.Voice == nil {
		return nil, errors.New("tts needs a voice")
	}

	e := &Engine{
		cfg:  cfg,
		deps: deps,
		norm: normalize.New(normalize.Options{LegacyNumberRouting: cfg.LegacyNumberRouting}),
		gate: deps.Gate,
		out:  deps.Output,
		now:  deps.Now,
	}
	if e.gate == nil {
		e.gate = audio.NewGate()
	}
	if e.out == nil {
		e.out = os.Stdout
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Result is what an interview produced. A cancelled interview still has a
// result holding whatever was captured.
type Result struct {
	Outcome  State
	Schema   *form.Schema
	Required form.RequiredSet
	Answers  map[string]CapturedAnswer
	Skipped  []*FieldError
	Summary  string
}

// Err is ErrCancelled for a cancelled interview and nil otherwise.
func (r *Result) Err() error {
	if r.Outcome == Cancelled {
		return ErrCancelled
	}
	return nil
}

// session is private to the goroutine running the interview.
type session struct {
	step    step
	fields  []form.Field
	answers map[string]CapturedAnswer
	skipped []*FieldError

	clip      audio.Clip
	text      string
	recordErr error
}

// Run interviews for the required fields of schema and returns the filled
// schema in its original layout. A nil schema means extraction failed and
// nothing is asked. Cancelling ctx, or calling Cancel, ends the interview
// at the next state boundary with a partial result and a nil error.
func (e *Engine) Run(ctx context.Context, schema *form.Schema) (*Result, error) {
	if schema == nil {
		return nil, ErrExtractionFailure
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !e.begin(cancel) {
		return nil, errors.New("interview already running")
	}
	defer e.end()

	rs := schema.Required()
	if dups := rs.DuplicateLabels(); len(dups) > 0 {
		log.Warn("Duplicate field labels, later answers win", "labels", dups)
	}

	closeDevices, err := e.openDevices()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	defer closeDevices()

	if !e.cfg.SpeechEnabled {
		e.lines = newLineReader(e.deps.Input)
		defer e.lines.stop()
	}

	s := &session{fields: rs.Fields, answers: make(map[string]CapturedAnswer)}
	e.publish(s)

	log.Info("Starting interview", "questions", len(s.fields), "fallback", rs.Fallback,
		"speech", e.cfg.SpeechEnabled, "tts", e.cfg.TTSEnabled)

	ev := Event{Kind: EventStart}
	for {
		if ctx.Err() != nil {
			ev = Event{Kind: EventCancel}
		}

		next, err := transition(s.step, ev, len(s.fields))
		if err != nil {
			return nil, fmt.Errorf("interview: %w", err)
		}
		from := s.step
		s.step = next
		e.notify(s, from, ev)

		if next.State.Terminal() {
			break
		}
		ev = e.act(ctx, s)
	}

	if s.step.State == Cancelled {
		sctx, scancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		_ = e.say(sctx, stopMessage)
		scancel()
	}

	res := &Result{
		Outcome:  s.step.State,
		Schema:   Materialize(schema, s.answers),
		Required: rs,
		Answers:  s.answers,
		Skipped:  s.skipped,
		Summary:  Summary(s.fields, s.answers, s.step.State),
	}
	fmt.Fprint(e.out, "\n"+res.Summary)

	log.Info("Interview finished", "outcome", res.Outcome, "filled", len(s.answers),
		"skipped", len(s.skipped), "total", len(s.fields))
	return res, nil
}

// act performs the work of the state just entered and reports how it went.
func (e *Engine) act(ctx context.Context, s *session) Event {
	i := s.step.Index

	switch s.step.State {
	case Greeting:
		if e.say(ctx, welcomeMessage(len(s.fields))) != nil {
			return Event{Kind: EventCancel}
		}
		return Event{Kind: EventGreeted}

	case AskQuestion:
		f := s.fields[i]
		q := Question(f)
		if e.cfg.PhraseQuestions && e.deps.Phraser != nil {
			q = e.deps.Phraser.Phrase(ctx, f, q)
		}
		fmt.Fprintf(e.out, "\nQuestion %d of %d (%s)\n", i+1, len(s.fields), f.Label)
		if e.say(ctx, q) != nil {
			return Event{Kind: EventCancel}
		}
		return Event{Kind: EventAsked}

	case Recording:
		return e.capture(ctx, s)

	case Transcribing:
		return e.transcribe(ctx, s)

	case Normalizing:
		f := s.fields[i]
		value := e.norm.Normalize(s.text, f)
		s.answers[f.Label] = CapturedAnswer{
			FieldLabel:      f.Label,
			RawTranscript:   s.text,
			NormalizedValue: value,
			CapturedAt:      e.now(),
		}
		log.Info("Captured", "field", f.Label, "value", value)
		return Event{Kind: EventNormalized, Text: value}

	case Confirming:
		f := s.fields[i]
		a := s.answers[f.Label]
		if e.say(ctx, confirmMessage(a.RawTranscript, a.NormalizedValue, i == len(s.fields)-1)) != nil {
			return Event{Kind: EventCancel}
		}
		return Event{Kind: EventConfirmed}
	}

	return Event{Kind: EventCancel}
}

func (e *Engine) capture(ctx context.Context, s *session) Event {
	s.clip, s.text, s.recordErr = audio.Clip{}, "", nil

	if !e.cfg.SpeechEnabled {
		fmt.Fprint(e.out, "> ")
		line, err := e.lines.next(ctx)
		if ctx.Err() != nil {
			return Event{Kind: EventCancel}
		}
		if errors.Is(err, io.EOF) {
			err = ErrNoSpeechDetected
		}
		s.text, s.recordErr = line, err
		return Event{Kind: EventRecorded, Text: line, Err: err}
	}

	if e.deps.Cue != nil {
		_ = e.gate.Speak(ctx, func(ctx context.Context) error {
			e.deps.Cue.Listening(ctx)
			return nil
		})
	}

	fmt.Fprintf(e.out, "Listening for %s...\n", e.cfg.recordDuration())
	err := e.gate.Record(ctx, func(ctx context.Context) error {
		clip, err := e.deps.Microphone.Record(ctx, e.cfg.recordDuration())
		s.clip = clip
		return err
	})
	if ctx.Err() != nil {
		return Event{Kind: EventCancel}
	}
	if err != nil {
		s.recordErr = fmt.Errorf("record: %w", err)
	}
	return Event{Kind: EventRecorded, Clip: s.clip, Err: s.recordErr}
}

func (e *Engine) transcribe(ctx context.Context, s *session) Event {
	i := s.step.Index
	f := s.fields[i]

	text, cause := strings.TrimSpace(s.text), s.recordErr
	if cause == nil && e.cfg.SpeechEnabled {
		t, err := e.deps.Transcriber.Transcribe(ctx, s.clip, e.cfg.Language)
		if ctx.Err() != nil {
			return Event{Kind: EventCancel}
		}
		if err != nil {
			cause = fmt.Errorf("%w: %w", ErrTranscriptionTransport, err)
		}
		text = strings.TrimSpace(t)
	}
	s.clip = audio.Clip{}

	if cause == nil && text == "" {
		cause = ErrNoSpeechDetected
	}
	if cause != nil {
		fe := &FieldError{Index: i, Label: f.Label, Err: cause}
		s.skipped = append(s.skipped, fe)
		log.Warn("Skipping field", "field", f.Label, "err", cause)

		if e.say(ctx, skipMessage(i == len(s.fields)-1)) != nil {
			return Event{Kind: EventCancel}
		}
		return Event{Kind: EventSkipped, Err: fe}
	}

	s.text = text
	fmt.Fprintf(e.out, "Heard: %s\n", text)
	return Event{Kind: EventTranscribed, Text: text}
}

// say prints text and, with TTS on, speaks it through the gate. Only
// cancellation is reported; a voice that fails is logged and the printed
// prompt stands.
func (e *Engine) say(ctx context.Context, text string) error {
	fmt.Fprintln(e.out, text)
	if !e.cfg.TTSEnabled {
		return ctx.Err()
	}

	err := e.gate.Speak(ctx, func(ctx context.Context) error {
		return e.deps.Voice.Say(ctx, text)
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		log.Warn("Failed to speak", "err", err)
	}
	return nil
}

func (e *Engine) openDevices() (func(), error) {
	var opened []Device
	closeAll := func() {
		for i := len(opened) - 1; i >= 0; i-- {
			switch d := opened[i].(type) {
			case interface{ Close() error }:
				_ = d.Close()
			case interface{ Close() }:
				d.Close()
			}
		}
	}

	for _, d := range e.deps.Devices {
		if err := d.Init(); err != nil {
			closeAll()
			return nil, err
		}
		opened = append(opened, d)
	}
	return closeAll, nil
}

// Cancel stops the running interview at the next state boundary. It reports
// whether an interview was running.
func (e *Engine) Cancel() bool {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()

	if cancel == nil {
		return false
	}
	log.Info("Cancelling interview")
	cancel()
	return true
}

// Snapshot returns a copy of the current session state. It is safe to call
// from any goroutine.
func (e *Engine) Snapshot() SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := e.snap
	out.Answers = make(map[string]CapturedAnswer, len(e.snap.Answers))
	for k, v := range e.snap.Answers {
		out.Answers[k] = v
	}
	return out
}

func (e *Engine) begin(cancel context.CancelFunc) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return false
	}
	e.running = true
	e.cancel = cancel
	e.snap = SessionState{}
	return true
}

func (e *Engine) end() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	e.cancel = nil
}

func (e *Engine) publish(s *session) {
	e.mu.Lock()
	defer e.mu.Unlock()

	answers := make(map[string]CapturedAnswer, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	e.snap = SessionState{
		State:    s.step.State,
		Index:    s.step.Index,
		Total:    len(s.fields),
		Answers:  answers,
		Terminal: s.step.State.Terminal(),
	}
}

func (e *Engine) notify(s *session, from step, ev Event) {
	e.publish(s)

	n := Notice{
		From:  from.State,
		To:    s.step.State,
		Event: ev.Kind,
		Index: s.step.Index,
		Total: len(s.fields),
		Err:   ev.Err,
		At:    e.now(),
	}
	if ev.Kind == EventNormalized {
		n.Value = ev.Text
	}
	if s.step.Index < len(s.fields) && s.step.State != Greeting {
		n.Label = s.fields[s.step.Index].Label
	}

	log.Debug("Transition", "from", n.From, "to", n.To, "event", n.Event, "index", n.Index)
	for _, o := range e.deps.Observers {
		o.Observe(n)
	}
}

// Materialize writes captured values into a copy of schema.
func Materialize(schema *form.Schema, answers map[string]CapturedAnswer) *form.Schema {
	values := make(map[string]string, len(answers))
	for label, a := range answers {
		values[label] = a.NormalizedValue
	}
	return form.Materialize(schema, values)
}
