package interview

import (
	"fmt"
	"time"

	"fillvox/internal/audio"
)

type State int

const (
	Idle State = iota
	Greeting
	AskQuestion
	Recording
	Transcribing
	Normalizing
	Confirming
	Completed
	Cancelled
)

var stateNames = [...]string{
	Idle:         "idle",
	Greeting:     "greeting",
	AskQuestion:  "ask_question",
	Recording:    "recording",
	Transcribing: "transcribing",
	Normalizing:  "normalizing",
	Confirming:   "confirming",
	Completed:    "completed",
	Cancelled:    "cancelled",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

func (s State) Terminal() bool { return s == Completed || s == Cancelled }

// EventKind is what the action of a state reports back to the machine.
type EventKind int

const (
	EventStart EventKind = iota
	EventGreeted
	EventAsked
	EventRecorded
	EventTranscribed
	EventSkipped
	EventNormalized
	EventConfirmed
	EventCancel
)

var eventNames = [...]string{
	EventStart:       "start",
	EventGreeted:     "greeted",
	EventAsked:       "asked",
	EventRecorded:    "recorded",
	EventTranscribed: "transcribed",
	EventSkipped:     "skipped",
	EventNormalized:  "normalized",
	EventConfirmed:   "confirmed",
	EventCancel:      "cancel",
}

func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *EventKind) UnmarshalText(b []byte) error {
	for i, name := range eventNames {
		if name == string(b) {
			*k = EventKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown event %q", b)
}

func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("event(%d)", int(k))
}

type Event struct {
	Kind EventKind

	Clip audio.Clip // EventRecorded in speech mode
	Text string     // transcript or typed answer
	Err  error      // why a field was skipped
}

// step is a position in the machine: a state and the question it concerns.
type step struct {
	State State
	Index int
}

// transition is the whole machine. It is pure: total is the number of
// questions and the returned step says what to do next.
func transition(cur step, ev Event, total int) (step, error) {
	if cur.State.Terminal() {
		return cur, fmt.Errorf("%s is terminal", cur.State)
	}
	if ev.Kind == EventCancel {
		return step{State: Cancelled, Index: cur.Index}, nil
	}

	next := func() step {
		if cur.Index+1 >= total {
			return step{State: Completed, Index: total}
		}
		return step{State: AskQuestion, Index: cur.Index + 1}
	}

	switch {
	case cur.State == Idle && ev.Kind == EventStart:
		return step{State: Greeting}, nil
	case cur.State == Greeting && ev.Kind == EventGreeted:
		if total == 0 {
			return step{State: Completed}, nil
		}
		return step{State: AskQuestion}, nil
	case cur.State == AskQuestion && ev.Kind == EventAsked:
		return step{State: Recording, Index: cur.Index}, nil
	case cur.State == Recording && ev.Kind == EventRecorded:
		return step{State: Transcribing, Index: cur.Index}, nil
	case cur.State == Transcribing && ev.Kind == EventTranscribed:
		return step{State: Normalizing, Index: cur.Index}, nil
	case cur.State == Transcribing && ev.Kind == EventSkipped:
		return next(), nil
	case cur.State == Normalizing && ev.Kind == EventNormalized:
		return step{State: Confirming, Index: cur.Index}, nil
	case cur.State == Confirming && ev.Kind == EventConfirmed:
		return next(), nil
	}
	return cur, fmt.Errorf("no transition from %s on %s", cur.State, ev.Kind)
}

// CapturedAnswer is one captured field value.
type CapturedAnswer struct {
	FieldLabel      string    `json:"fieldLabel"`
	RawTranscript   string    `json:"rawTranscript"`
	NormalizedValue string    `json:"normalizedValue"`
	CapturedAt      time.Time `json:"capturedAt"`
}

// SessionState is a snapshot of a running interview.
type SessionState struct {
	State    State                     `json:"state"`
	Index    int                       `json:"index"`
	Total    int                       `json:"total"`
	Answers  map[string]CapturedAnswer `json:"answers"`
	Terminal bool                      `json:"terminal"`
}

// Notice is sent to observers on every transition.
type Notice struct {
	From  State
	To    State
	Event EventKind
	Index int
	Total int
	Label string // field at Index, if any
	Value string // normalized value on EventNormalized
	Err   error  // *FieldError on EventSkipped
	At    time.Time
}

type Observer interface {
	Observe(n Notice)
}

type ObserverFunc func(Notice)

func (f ObserverFunc) Observe(n Notice) { f(n) }
