package plugin

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-hotmic/dsp/core"
)

// Param is a plain-valued plugin parameter. Set may be called from any
// goroutine; the audio goroutine reads with Get. A write may become
// visible one block late.
type Param struct {
	Name    string
	Unit    string
	Min     float32
	Max     float32
	Default float32

	bits atomic.Uint32
}

// NewParam returns a parameter initialized to def.
func NewParam(name, unit string, lo, hi, def float32) *Param {
	p := &Param{Name: name, Unit: unit, Min: lo, Max: hi, Default: def}
	p.Reset()

	return p
}

// Get returns the current value.
func (p *Param) Get() float32 {
	return math.Float32frombits(p.bits.Load())
}

// Set stores v clamped to [Min, Max]. NaN is ignored.
func (p *Param) Set(v float32) {
	if math.IsNaN(float64(v)) {
		return
	}

	if p.Max > p.Min {
		v = core.Clamp(v, p.Min, p.Max)
	}

	p.bits.Store(math.Float32bits(v))
}

// Bool reports whether the value is at least 0.5, for switch parameters.
func (p *Param) Bool() bool {
	return p.Get() >= 0.5
}

// Reset restores the default value.
func (p *Param) Reset() {
	p.Set(p.Default)
}

// ParamSet is an indexed list of parameters. It implements the parameter
// and state methods of [Plugin]; the state is every parameter value in
// index order.
type ParamSet struct {
	params  []*Param
	version atomic.Uint64
}

// NewParamSet returns a set holding params in index order.
func NewParamSet(params ...*Param) *ParamSet {
	return &ParamSet{params: params}
}

// Len returns the number of parameters.
func (s *ParamSet) Len() int {
	return len(s.params)
}

// At returns parameter i, or nil when out of range.
func (s *ParamSet) At(i int) *Param {
	if i < 0 || i >= len(s.params) {
		return nil
	}

	return s.params[i]
}

// Index returns the index of the parameter called name, or -1.
func (s *ParamSet) Index(name string) int {
	for i, p := range s.params {
		if p.Name == name {
			return i
		}
	}

	return -1
}

// SetParameter sets parameter index. Unknown indices are ignored.
func (s *ParamSet) SetParameter(index int, value float32) {
	p := s.At(index)
	if p == nil {
		return
	}

	p.Set(value)
	s.version.Add(1)
}

// Changed reports whether any parameter was set since the version seen,
// and returns the current version. The audio goroutine uses it to refresh
// derived coefficients only when needed.
func (s *ParamSet) Changed(seen uint64) (uint64, bool) {
	v := s.version.Load()
	return v, v != seen
}

// State encodes all parameter values.
func (s *ParamSet) State() []byte {
	w := NewStateWriter(len(s.params))
	for _, p := range s.params {
		w.Float(p.Get())
	}

	return w.Bytes()
}

// SetState applies the values present in data. Missing trailing fields
// keep their current value.
func (s *ParamSet) SetState(data []byte) {
	r := NewStateReader(data)
	for _, p := range s.params {
		p.Set(r.Next(p.Get()))
	}

	s.version.Add(1)
}

// Base carries the name and parameters shared by most plugins. Embedding
// it provides Name, SetParameter, State, SetState and Close.
type Base struct {
	*ParamSet

	name string
}

// NewBase returns a Base with the given parameters.
func NewBase(name string, params ...*Param) Base {
	return Base{ParamSet: NewParamSet(params...), name: name}
}

// Name returns the plugin name.
func (b Base) Name() string {
	return b.name
}

// Close releases nothing.
func (b Base) Close() error {
	return nil
}
