// Package audiofile reads PCM WAV and FLAC files and writes PCM WAV files.
// Audio is held as de-interleaved float32 channels scaled to [-1, 1).
package audiofile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const pcmFormat = 1

var (
	ErrInvalidFile = errors.New("audiofile: not a valid audio file")
	ErrUnsupported = errors.New("audiofile: unsupported format")
)

// Audio is a de-interleaved clip.
type Audio struct {
	SampleRate int
	BitDepth   int
	Channels   [][]float32
}

// Frames returns the length of the longest channel.
func (a *Audio) Frames() int {
	n := 0
	for _, ch := range a.Channels {
		n = max(n, len(ch))
	}

	return n
}

func fullScale(bitDepth int) (float64, error) {
	switch bitDepth {
	case 16, 24, 32:
		return float64(int64(1) << (bitDepth - 1)), nil
	default:
		return 0, fmt.Errorf("%w: %d-bit", ErrUnsupported, bitDepth)
	}
}

// Read decodes a WAV stream of 16, 24 or 32-bit integer PCM.
func Read(r io.ReadSeeker) (*Audio, error) {
	d := wav.NewDecoder(r)
	d.ReadInfo()

	if !d.IsValidFile() {
		return nil, ErrInvalidFile
	}

	if d.WavAudioFormat != pcmFormat {
		return nil, fmt.Errorf("%w: audio format %d", ErrUnsupported, d.WavAudioFormat)
	}

	scale, err := fullScale(int(d.BitDepth))
	if err != nil {
		return nil, err
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audiofile: decode: %w", err)
	}

	nch := int(d.NumChans)
	frames := len(buf.Data) / nch
	a := deinterleave(int(d.SampleRate), int(d.BitDepth), nch, frames)

	for i, v := range buf.Data[:frames*nch] {
		a.Channels[i%nch][i/nch] = float32(float64(v) / scale)
	}

	return a, nil
}

// ReadFile reads the file at path. Files ending in .flac are decoded as
// FLAC, everything else as WAV.
func ReadFile(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".flac") {
		return ReadFLAC(f)
	}

	return Read(f)
}

// deinterleave allocates a clip of frames samples per channel.
func deinterleave(sampleRate, bitDepth, nch, frames int) *Audio {
	a := &Audio{
		SampleRate: sampleRate,
		BitDepth:   bitDepth,
		Channels:   make([][]float32, nch),
	}

	for ch := range a.Channels {
		a.Channels[ch] = make([]float32, frames)
	}

	return a
}

// Write encodes a as integer PCM at a.BitDepth. Samples are clipped to
// full scale; short channels are padded with silence.
func Write(w io.WriteSeeker, a *Audio) error {
	scale, err := fullScale(a.BitDepth)
	if err != nil {
		return err
	}

	nch := len(a.Channels)
	if nch == 0 {
		return fmt.Errorf("%w: no channels", ErrUnsupported)
	}

	frames := a.Frames()
	data := make([]int, frames*nch)
	hi := scale - 1

	for ch, samples := range a.Channels {
		for i, x := range samples {
			v := min(max(float64(x)*scale, -scale), hi)
			data[i*nch+ch] = int(v)
		}
	}

	enc := wav.NewEncoder(w, a.SampleRate, a.BitDepth, nch, pcmFormat)

	err = enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: nch, SampleRate: a.SampleRate},
		SourceBitDepth: a.BitDepth,
	})
	if err != nil {
		return errors.Join(fmt.Errorf("audiofile: encode: %w", err), enc.Close())
	}

	return enc.Close()
}

// WriteFile writes a to path, replacing any existing file.
func WriteFile(path string, a *Audio) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, f.Close())
	}()

	return Write(f, a)
}
