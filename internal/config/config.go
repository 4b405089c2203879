// Package config gathers the daemon's settings from a .env file, the
// environment and command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"fillvox/internal/interview"
	"fillvox/internal/ipc"
)

const (
	STTOpenAI  = "openai"
	STTWhisper = "whisper"

	TTSOpenAI = "openai"
	TTSEspeak = "espeak"
	TTSNone   = "none"

	PlayerSpeaker = "speaker"
	PlayerCommand = "command"
)

type Config struct {
	EnvFile  string
	LogLevel string

	OpenAIKey string
	Proxy     string
	Timeout   time.Duration

	STT          string
	WhisperModel string
	TTS          string
	Voice        string
	TTSModel     string
	ChatModel    string

	Player        string
	PlayerCommand string
	Duck          bool

	Speech        bool
	RecordSeconds int
	Language      string
	Phrase        bool
	LegacyRouting bool
	ReplayDir     string

	CuePath string
	Desktop bool

	BusURL   string
	BusShard string
	Socket   string

	Document    string
	Schema      string
	Output      string
	Coordinates string
	ImageOutDir string
}

// envNames maps flags to the variables that may set them.
var envNames = map[string]string{
	"openai-key":     "OPENAI_API_KEY",
	"proxy":          "FILLVOX_PROXY",
	"stt":            "FILLVOX_STT",
	"whisper-model":  "FILLVOX_WHISPER_MODEL",
	"tts":            "FILLVOX_TTS",
	"voice":          "FILLVOX_VOICE",
	"tts-model":      "FILLVOX_TTS_MODEL",
	"chat-model":     "FILLVOX_CHAT_MODEL",
	"player":         "FILLVOX_PLAYER",
	"player-command": "FILLVOX_PLAYER_COMMAND",
	"record-seconds": "FILLVOX_RECORD_SECONDS",
	"language":       "FILLVOX_LANGUAGE",
	"cue":            "FILLVOX_CUE",
	"bus":            "FILLVOX_BUS_URL",
	"socket":         "FILLVOX_SOCKET",
	"log":            "FILLVOX_LOG",
}

func flags(c *Config) *cli.FlagSet {
	fs := cli.NewFlagSet("fillvox-daemon", cli.ContinueOnError)

	fs.StringVarP(&c.EnvFile, "env", "e", ".env", "Env file path")
	fs.StringVarP(&c.LogLevel, "log", "l", "info", "Log level")

	fs.StringVar(&c.OpenAIKey, "openai-key", "", "OpenAI API key")
	fs.StringVarP(&c.Proxy, "proxy", "p", "", "Socks proxy address for cloud calls")
	fs.DurationVar(&c.Timeout, "timeout", 120*time.Second, "Timeout of a single cloud call")

	fs.StringVar(&c.STT, "stt", STTOpenAI, "Speech to text backend (openai|whisper)")
	fs.StringVar(&c.WhisperModel, "whisper-model", "third_party/whisper.cpp/models/ggml-base.en.bin", "Local whisper model")
	fs.StringVar(&c.TTS, "tts", TTSOpenAI, "Text to speech backend (openai|espeak|none)")
	fs.StringVar(&c.Voice, "voice", "alloy", "Voice for synthesized prompts")
	fs.StringVar(&c.TTSModel, "tts-model", "tts-1", "Speech synthesis model")
	fs.StringVar(&c.ChatModel, "chat-model", "gpt-4o-mini", "Model for extraction and phrasing")

	fs.StringVar(&c.Player, "player", PlayerSpeaker, "Audio output (speaker|command)")
	fs.StringVar(&c.PlayerCommand, "player-command", "paplay", "Program used by the command player")
	fs.BoolVar(&c.Duck, "duck", false, "Lower other applications while talking or listening")

	fs.BoolVar(&c.Speech, "speech", true, "Listen for answers; read them from stdin when false")
	fs.IntVarP(&c.RecordSeconds, "record-seconds", "r", interview.DefaultRecordSeconds, "Length of every recording")
	fs.StringVar(&c.Language, "language", "en", "Answer language, or auto")
	fs.BoolVar(&c.Phrase, "phrase", false, "Let the model reword each question")
	fs.BoolVar(&c.LegacyRouting, "legacy-number-routing", false, "Route every label containing number to the phone formatter")
	fs.StringVar(&c.ReplayDir, "replay", "", "Answer with recorded clips from this directory instead of the microphone")

	fs.StringVar(&c.CuePath, "cue", "", "Sound played before listening (wav or mp3)")
	fs.BoolVar(&c.Desktop, "notify", true, "Show desktop notifications")

	fs.StringVarP(&c.BusURL, "bus", "u", "", "Websocket hub to publish progress to")
	fs.StringVar(&c.BusShard, "shard", "fillvox", "Name on the hub")
	fs.StringVar(&c.Socket, "socket", ipc.DefaultSocketPath, "Control socket path")

	fs.StringVarP(&c.Document, "document", "d", "", "Form to fill (pdf, image or json)")
	fs.StringVarP(&c.Schema, "schema", "s", "", "Field schema to fill, skipping extraction")
	fs.StringVarP(&c.Output, "output", "o", "completed_voice_schema.json", "Where to write the filled schema")
	fs.StringVar(&c.Coordinates, "coordinates", "field_coordinates.json", "Field positions for annotating an image form")
	fs.StringVar(&c.ImageOutDir, "image-out", "", "Directory for the annotated image, next to the form when empty")

	return fs
}

// Load parses args (without the program name). Variables from the env file
// never override ones already in the environment, and explicit flags win
// over both.
func Load(args []string) (*Config, error) {
	c := &Config{}
	fs := flags(c)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := godotenv.Load(c.EnvFile); err != nil && !(errors.Is(err, os.ErrNotExist) && !fs.Changed("env")) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	for name, env := range envNames {
		if fs.Changed(name) {
			continue
		}
		v, ok := os.LookupEnv(env)
		if !ok || v == "" {
			continue
		}
		if err := fs.Set(name, v); err != nil {
			return nil, fmt.Errorf("%s: %w", env, err)
		}
	}

	if fs.NArg() > 0 && c.Document == "" && c.Schema == "" {
		c.Document = fs.Arg(0)
	}
	if c.Schema == "" && strings.EqualFold(filepath.Ext(c.Document), ".json") {
		c.Schema, c.Document = c.Document, ""
	}

	return c, c.Validate()
}

func (c *Config) Validate() error {
	if c.Document == "" && c.Schema == "" {
		return errors.New("nothing to fill: pass --document or --schema")
	}
	if err := oneOf("stt", c.STT, STTOpenAI, STTWhisper); err != nil {
		return err
	}
	if err := oneOf("tts", c.TTS, TTSOpenAI, TTSEspeak, TTSNone); err != nil {
		return err
	}
	if err := oneOf("player", c.Player, PlayerSpeaker, PlayerCommand); err != nil {
		return err
	}
	if c.RecordSeconds <= 0 {
		return fmt.Errorf("record-seconds must be positive, got %d", c.RecordSeconds)
	}
	if c.Player == PlayerCommand && c.PlayerCommand == "" {
		return errors.New("command player needs --player-command")
	}
	if c.Speech && c.STT == STTWhisper && c.WhisperModel == "" {
		return errors.New("whisper backend needs --whisper-model")
	}
	if c.NeedsOpenAI() && c.OpenAIKey == "" {
		return errors.New("OPENAI_API_KEY not set")
	}
	return nil
}

// NeedsOpenAI reports whether any configured component calls the API.
func (c *Config) NeedsOpenAI() bool {
	return c.Document != "" ||
		c.Phrase ||
		(c.Speech && c.STT == STTOpenAI) ||
		c.TTS == TTSOpenAI
}

func (c *Config) TTSEnabled() bool { return c.TTS != TTSNone }

func (c *Config) Interview() interview.Config {
	return interview.Config{
		SpeechEnabled:       c.Speech,
		TTSEnabled:          c.TTSEnabled(),
		RecordSeconds:       c.RecordSeconds,
		Language:            c.Language,
		LegacyNumberRouting: c.LegacyRouting,
		PhraseQuestions:     c.Phrase,
	}
}

func oneOf(name, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("unknown %s %q (want %s)", name, v, strings.Join(allowed, "|"))
}
