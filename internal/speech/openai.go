package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"fillvox/internal/audio"
)

var contentTypes = map[string]string{
	"wav": "audio/wav",
	"mp3": "audio/mpeg",
	"ogg": "audio/ogg",
}

// OpenAITranscriber sends clips to the hosted whisper model.
type OpenAITranscriber struct {
	client openai.Client
	model  string
}

func NewOpenAITranscriber(client openai.Client, model string) *OpenAITranscriber {
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}
	return &OpenAITranscriber{client: client, model: model}
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, clip audio.Clip, language string) (string, error) {
	if clip.Empty() {
		return "", nil
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(clip.Data), clip.Filename("answer"), contentTypes[clip.Format]),
		Model: openai.AudioModel(t.model),
	}
	if language != "" && language != "auto" {
		params.Language = openai.String(language)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: transcription: %w", ErrTransport, err)
	}

	text := strings.TrimSpace(resp.Text)
	log.Debug("Transcribed", "model", t.model, "text", text)
	return text, nil
}

// OpenAISynthesizer produces mp3 speech.
type OpenAISynthesizer struct {
	client openai.Client
	model  string
	voice  string
}

func NewOpenAISynthesizer(client openai.Client, model, voice string) *OpenAISynthesizer {
	if model == "" {
		model = "tts-1"
	}
	if voice == "" {
		voice = "alloy"
	}
	return &OpenAISynthesizer{client: client, model: model, voice: voice}
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string) (audio.Clip, error) {
	resp, err := s.client.Audio.Speech.New(ctx,
		openai.AudioSpeechNewParams{
			Input: text,
			Model: openai.SpeechModel(s.model),
		},
		option.WithJSONSet("voice", s.voice),
		option.WithJSONSet("response_format", "mp3"),
	)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("%w: speech: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return audio.Clip{}, fmt.Errorf("%w: speech: status %s", ErrTransport, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("%w: read speech: %w", ErrTransport, err)
	}

	log.Debug("Synthesized", "voice", s.voice, "bytes", len(data))
	return audio.Clip{Data: data, Format: "mp3"}, nil
}
