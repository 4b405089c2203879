// Package espeak speaks through libespeak-ng. Synthesis and playback happen
// inside the library and Say blocks until the utterance is finished, so it
// needs no separate player.
package espeak

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

static int
fillvox_say(const char *text, const char *lang, int rate)
{
	if (!text)
	{ return -1; }

	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -2; }

	espeak_VOICE specs = { .languages = lang };
	espeak_SetVoiceByProperties(&specs);
	if (rate > 0)
	{ espeak_SetParameter(espeakRATE, rate, 0); }

	espeak_Synth(text, 500, 0, 0, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unsafe"
)

// Voice implements speech.Voice.
type Voice struct {
	Language string // "en" when empty
	Rate     int    // words per minute, library default when zero

	mu sync.Mutex
}

func (v *Voice) Say(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	lang := v.Language
	if lang == "" || lang == "auto" {
		lang = "en"
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	clang := C.CString(lang)
	defer C.free(unsafe.Pointer(clang))

	if rc := C.fillvox_say(ctext, clang, C.int(v.Rate)); rc != 0 {
		return fmt.Errorf("espeak: rc %d", int(rc))
	}
	return nil
}
