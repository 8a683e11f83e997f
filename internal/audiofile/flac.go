package audiofile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/tphakala/flac"
)

// ReadFLAC decodes a FLAC stream of 16, 24 or 32-bit samples.
func ReadFLAC(r io.Reader) (*Audio, error) {
	d, err := flac.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	scale, err := fullScale(d.BitsPerSample)
	if err != nil {
		return nil, err
	}

	nch := d.NChannels
	if nch <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidFile, nch)
	}

	width := d.BitsPerSample / 8
	stride := width * nch
	a := deinterleave(d.SampleRate, d.BitsPerSample, nch, 0)

	for ch := range a.Channels {
		a.Channels[ch] = make([]float32, 0, max(int(d.TotalSamples), 0))
	}

	for {
		frame, err := d.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("audiofile: flac decode: %w", err)
		}

		for i := 0; i+stride <= len(frame); i += stride {
			for ch := range nch {
				v := pcmSample(frame[i+ch*width:], width)
				a.Channels[ch] = append(a.Channels[ch], float32(float64(v)/scale))
			}
		}
	}

	return a, nil
}

// pcmSample reads one little-endian signed sample of width bytes.
func pcmSample(b []byte, width int) int32 {
	switch width {
	case 2:
		return int32(int16(binary.LittleEndian.Uint16(b)))
	case 3:
		return int32(uint32(b[0])|uint32(b[1])<<8|uint32(b[2])<<16) << 8 >> 8
	default:
		return int32(binary.LittleEndian.Uint32(b))
	}
}
