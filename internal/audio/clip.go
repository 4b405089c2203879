package audio

import (
	"errors"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const SampleRate = 16000

// Clip is an encoded piece of audio: a recorded answer or synthesized speech.
type Clip struct {
	Data       []byte
	Format     string // "wav", "mp3", "ogg"
	SampleRate int
	Samples    int // mono PCM samples when known
}

func (c Clip) Empty() bool { return len(c.Data) == 0 }

// Duration is known only for clips encoded from PCM.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Samples <= 0 {
		return 0
	}
	return time.Duration(c.Samples) * time.Second / time.Duration(c.SampleRate)
}

// Filename is a name with the right extension for uploads and players.
func (c Clip) Filename(base string) string {
	f := c.Format
	if f == "" {
		f = "wav"
	}
	return base + "." + f
}

// FormatOf maps a file extension to a clip format.
func FormatOf(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "oga", "opus":
		return "ogg"
	default:
		return ext
	}
}

// EncodeWAV encodes mono float32 PCM in [-1, 1] as 16-bit WAV.
func EncodeWAV(pcm []float32, sampleRate int) (Clip, error) {
	if len(pcm) == 0 {
		return Clip{}, errors.New("no samples")
	}

	data := make([]int, len(pcm))
	for i, x := range pcm {
		v := math.Max(-1, math.Min(1, float64(x)))
		data[i] = int(math.Round(v * 32767))
	}

	var mf memFile
	enc := wav.NewEncoder(&mf, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return Clip{}, err
	}
	if err := enc.Close(); err != nil {
		return Clip{}, err
	}

	return Clip{
		Data:       mf.buf,
		Format:     "wav",
		SampleRate: sampleRate,
		Samples:    len(pcm),
	}, nil
}

// memFile is the io.WriteSeeker the wav encoder needs to patch its header.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = len(m.buf)
	default:
		return 0, errors.New("invalid whence")
	}
	p := base + int(offset)
	if p < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = p
	return int64(p), nil
}
