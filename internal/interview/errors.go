package interview

import (
	"errors"
	"fmt"
)

var (
	// ErrExtractionFailure: there is no schema to interview for.
	ErrExtractionFailure = errors.New("schema extraction failed")
	// ErrDeviceUnavailable: microphone or speaker could not be opened.
	ErrDeviceUnavailable = errors.New("audio device unavailable")

	ErrNoSpeechDetected       = errors.New("no speech detected")
	ErrTranscriptionTransport = errors.New("transcription transport error")
	ErrCancelled              = errors.New("interview cancelled")
)

// FieldError describes a field that was skipped. It is recorded in the
// result and reported to observers, never returned from Run.
type FieldError struct {
	Index int
	Label string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %d (%s): %v", e.Index, e.Label, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }
