package plugin

import (
	"encoding/binary"
	"math"
)

// StateWriter appends little-endian float32 fields.
type StateWriter struct {
	buf []byte
}

// NewStateWriter returns a writer with room for n fields.
func NewStateWriter(n int) *StateWriter {
	return &StateWriter{buf: make([]byte, 0, 4*max(n, 0))}
}

// Float appends one field.
func (w *StateWriter) Float(v float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
}

// Bool appends a switch as 0 or 1.
func (w *StateWriter) Bool(v bool) {
	if v {
		w.Float(1)
		return
	}

	w.Float(0)
}

// Bytes returns the encoded state.
func (w *StateWriter) Bytes() []byte {
	return w.buf
}

// StateReader reads little-endian float32 fields and tolerates short input.
type StateReader struct {
	data []byte
	off  int
}

// NewStateReader returns a reader over data.
func NewStateReader(data []byte) *StateReader {
	return &StateReader{data: data}
}

// Next returns the next field, or def when fewer than four bytes remain.
// Non-finite stored values also yield def.
func (r *StateReader) Next(def float32) float32 {
	if len(r.data)-r.off < 4 {
		return def
	}

	v := math.Float32frombits(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4

	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return def
	}

	return v
}

// NextBool returns the next field as a switch, or def.
func (r *StateReader) NextBool(def bool) bool {
	d := float32(0)
	if def {
		d = 1
	}

	return r.Next(d) >= 0.5
}

// Remaining returns the number of complete fields left.
func (r *StateReader) Remaining() int {
	return (len(r.data) - r.off) / 4
}
