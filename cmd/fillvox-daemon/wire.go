package main

import (
	"fmt"
	"io"
	log "log/slog"
	"os"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"fillvox/internal/audio"
	"fillvox/internal/audio/device"
	"fillvox/internal/config"
	"fillvox/internal/interview"
	"fillvox/internal/llm"
	"fillvox/internal/notify"
	"fillvox/internal/proxy"
	"fillvox/internal/speech"
	"fillvox/internal/speech/espeak"
	"fillvox/internal/speech/whisper"
)

// components holds everything the engine and workflow are built from.
type components struct {
	gate        *audio.Gate
	mic         interview.Microphone
	transcriber speech.Transcriber
	voice       speech.Voice
	phraser     interview.Phraser
	cue         interview.Cue
	devices     []interview.Device
	observers   []interview.Observer
	extractor   *llm.Extractor

	closers []io.Closer
}

func wire(cfg *config.Config) (*components, error) {
	c := &components{}

	httpClient, err := proxy.NewClient(cfg.Proxy, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	client := openai.NewClient(
		option.WithAPIKey(cfg.OpenAIKey),
		option.WithHTTPClient(httpClient),
	)
	log.Debug("Loaded API client", "proxy", cfg.Proxy != "")

	var gateOpts []audio.GateOption
	if cfg.Duck {
		gateOpts = append(gateOpts, audio.WithHook(audio.NewDucker([]string{"fillvox"}, 0.25, 5, 300*time.Millisecond)))
	}
	c.gate = audio.NewGate(gateOpts...)

	var player audio.Player
	switch cfg.Player {
	case config.PlayerSpeaker:
		sp := device.NewSpeakerPlayer()
		if cfg.Speech || cfg.TTS == config.TTSOpenAI {
			c.devices = append(c.devices, sp)
		}
		player = sp
	case config.PlayerCommand:
		player = &audio.CommandPlayer{Command: cfg.PlayerCommand}
	}

	if cfg.Speech {
		if err := c.wireListening(cfg, client, player); err != nil {
			c.close()
			return nil, err
		}
	}

	switch cfg.TTS {
	case config.TTSOpenAI:
		c.voice = speech.NewSynthVoice(speech.NewOpenAISynthesizer(client, cfg.TTSModel, cfg.Voice), player)
	case config.TTSEspeak:
		lang := cfg.Language
		if lang == "auto" {
			lang = ""
		}
		c.voice = &espeak.Voice{Language: lang}
	}

	if cfg.Phrase {
		c.phraser = llm.NewPhraser(client, cfg.ChatModel)
	}
	c.extractor = llm.NewExtractor(client, cfg.ChatModel)

	return c, nil
}

func (c *components) wireListening(cfg *config.Config, client openai.Client, player audio.Player) error {
	if cfg.ReplayDir != "" {
		mic, err := audio.NewReplayMicrophone(cfg.ReplayDir)
		if err != nil {
			return err
		}
		log.Info("Replaying recorded answers", "dir", cfg.ReplayDir, "clips", mic.Remaining())
		c.mic = mic
	} else {
		rec := device.NewRecorder()
		c.devices = append(c.devices, rec)
		c.mic = rec
	}

	switch cfg.STT {
	case config.STTOpenAI:
		c.transcriber = speech.NewOpenAITranscriber(client, "")
	case config.STTWhisper:
		w, err := whisper.New(cfg.WhisperModel, whisper.Options{})
		if err != nil {
			return fmt.Errorf("whisper: %w", err)
		}
		c.closers = append(c.closers, w)
		c.transcriber = w
		log.Debug("Loaded whisper", "model", cfg.WhisperModel)
	}

	n, err := notify.New(player, cfg.CuePath, cfg.Desktop)
	if err != nil {
		log.Warn("No listening cue", "err", err)
		return nil
	}
	c.cue = n
	c.observers = append(c.observers, n)
	return nil
}

func (c *components) engine(cfg *config.Config) (*interview.Engine, error) {
	deps := interview.Deps{
		Microphone:  c.mic,
		Transcriber: c.transcriber,
		Voice:       c.voice,
		Gate:        c.gate,
		Phraser:     c.phraser,
		Cue:         c.cue,
		Devices:     c.devices,
		Observers:   c.observers,
		Input:       os.Stdin,
		Output:      os.Stdout,
	}
	return interview.New(cfg.Interview(), deps)
}

func (c *components) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			log.Warn("Close failed", "err", err)
		}
	}
}
