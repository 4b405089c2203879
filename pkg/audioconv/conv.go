// Package audioconv turns encoded audio (wav, mp3, ogg vorbis or opus) into
// mono float32 PCM at a fixed rate, which is what local speech models eat.
package audioconv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

const DefaultRate = 16000

var ErrUnsupported = errors.New("unsupported audio format")

type Options struct {
	// Rate of the output. Zero means DefaultRate.
	Rate int
	// MaxSamples truncates the output when positive.
	MaxSamples int
}

func (o Options) rate() int {
	if o.Rate > 0 {
		return o.Rate
	}
	return DefaultRate
}

// raw is decoder output before downmixing and resampling.
type raw struct {
	pcm      []float32 // interleaved
	rate     int
	channels int
}

type decodeFunc func(io.ReadSeeker) (raw, error)

// ConvertFile decodes the file at path, picking the decoder by extension and
// falling back to sniffing the header.
func ConvertFile(ctx context.Context, path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return Convert(ctx, f, format, opt)
}

// ConvertBytes is Convert over an in-memory clip.
func ConvertBytes(ctx context.Context, data []byte, format string, opt Options) ([]float32, error) {
	return Convert(ctx, bytes.NewReader(data), format, opt)
}

// Convert decodes r as format ("wav", "mp3", "ogg", "oga", "opus"). An
// unknown or empty format is sniffed from the first bytes.
func Convert(ctx context.Context, r io.ReadSeeker, format string, opt Options) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decoders, err := decodersFor(r, format)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, dec := range decoders {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		out, err := dec(r)
		if err == nil {
			return finish(out, opt), nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("decode %s: %w", format, errors.Join(errs...))
}

func decodersFor(r io.ReadSeeker, format string) ([]decodeFunc, error) {
	switch strings.ToLower(format) {
	case "wav":
		return []decodeFunc{decodeWAV}, nil
	case "mp3":
		return []decodeFunc{decodeMP3}, nil
	case "ogg", "oga":
		return []decodeFunc{decodeVorbis, decodeOpus}, nil
	case "opus":
		return []decodeFunc{decodeOpus}, nil
	}

	magic, _ := bufio.NewReader(r).Peek(4)
	switch {
	case string(magic) == "RIFF":
		return []decodeFunc{decodeWAV}, nil
	case string(magic) == "OggS":
		return []decodeFunc{decodeVorbis, decodeOpus}, nil
	case len(magic) >= 3 && (string(magic[:3]) == "ID3" || magic[0] == 0xFF && magic[1]&0xE0 == 0xE0):
		return []decodeFunc{decodeMP3}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, format)
}

func finish(in raw, opt Options) []float32 {
	x := downmix(in.pcm, in.channels)
	x = resample(x, in.rate, opt.rate())
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}
	return x
}

func decodeWAV(r io.ReadSeeker) (raw, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return raw{}, errors.New("invalid wav")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return raw{}, err
	}
	if buf == nil || len(buf.Data) == 0 {
		return raw{}, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	out := raw{pcm: intsToFloat(buf.Data, depth), rate: 44100, channels: 1}
	if buf.Format != nil {
		out.rate = orDefault(buf.Format.SampleRate, out.rate)
		out.channels = orDefault(buf.Format.NumChannels, 1)
	}
	return out, nil
}

func decodeMP3(r io.ReadSeeker) (raw, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return raw{}, err
	}
	var b bytes.Buffer
	if _, err := io.Copy(&b, dec); err != nil {
		return raw{}, err
	}
	ints := make([]int16, b.Len()/2)
	if err := binary.Read(&b, binary.LittleEndian, &ints); err != nil {
		return raw{}, err
	}
	// go-mp3 always yields 16-bit stereo
	return raw{pcm: int16sToFloat(ints), rate: orDefault(dec.SampleRate(), 44100), channels: 2}, nil
}

func decodeVorbis(r io.ReadSeeker) (raw, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return raw{}, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return raw{}, errors.New("invalid ogg/vorbis stream")
	}
	return raw{pcm: pcm, rate: format.SampleRate, channels: format.Channels}, nil
}

func decodeOpus(r io.ReadSeeker) (raw, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return raw{}, err
	}
	defer dec.Destroy()

	ch := orDefault(dec.ChannelCount(), 1)

	var (
		pcm []float32
		buf = make([]int16, 48_000*ch/2)
	)
	for {
		n, err := dec.Read(buf) // samples per channel
		if n > 0 {
			pcm = append(pcm, int16sToFloat(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw{}, err
		}
	}
	if len(pcm) == 0 {
		return raw{}, errors.New("empty opus stream")
	}
	return raw{pcm: pcm, rate: 48000, channels: ch}, nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
