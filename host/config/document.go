// Package config loads YAML channel topologies and builds engines from them.
//
//	sample_rate: 48000
//	block_size: 480
//	channels:
//	  - request: [speech-presence]
//	    plugins:
//	      - type: speech-detector
//	      - type: speech-gate
//	        params: {threshold: 0.5}
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/host/analysis"
)

var ErrInvalidDocument = errors.New("config: invalid document")

// Document is a channel topology.
type Document struct {
	SampleRate float64   `yaml:"sample_rate"`
	BlockSize  int       `yaml:"block_size"`
	Channels   []Channel `yaml:"channels"`
}

// Channel lists the plugin chain of one channel.
type Channel struct {
	// Request names signals produced even without a consumer.
	Request []string `yaml:"request,omitempty"`
	Plugins []Plugin `yaml:"plugins"`
}

// Plugin describes one slot.
type Plugin struct {
	Type string `yaml:"type"`
	// Params are set by parameter name after construction.
	Params map[string]float64 `yaml:"params,omitempty"`
	// Options are passed to the factory, e.g. a send target.
	Options Options `yaml:"options,omitempty"`
	// State holds persisted float fields in state order. It is applied
	// after Params.
	State []float32 `yaml:"state,omitempty"`
}

// Options holds construction options of one plugin.
type Options map[string]string

// String returns option key, or def when missing.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		return v
	}

	return def
}

// Int returns option key as an integer, or def when missing.
func (o Options) Int(key string, def int) (int, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("config: option %s=%q: %w", key, v, err)
	}

	return n, nil
}

// Float returns option key as a float, or def when missing or not finite.
func (o Options) Float(key string, def float64) (float64, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def, fmt.Errorf("config: option %s=%q: %w", key, v, err)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def, nil
	}

	return f, nil
}

// Mask parses option key as signal names separated by "|" or ",".
func (o Options) Mask(key string, def analysis.Mask) (analysis.Mask, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}

	names := strings.FieldsFunc(v, func(r rune) bool { return r == '|' || r == ',' })

	m, err := analysis.ParseMask(names...)
	if err != nil {
		return def, fmt.Errorf("config: option %s: %w", key, err)
	}

	return m, nil
}

// Load decodes a document from r. Unknown fields are rejected.
func Load(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	return &doc, nil
}

// LoadFile reads a document from path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Validate checks the document without building it. Missing sample rate
// and block size take the processing defaults.
func (d *Document) Validate() error {
	def := core.DefaultProcessorConfig()

	if d.SampleRate == 0 {
		d.SampleRate = def.SampleRate
	}

	if d.BlockSize == 0 {
		d.BlockSize = def.BlockSize
	}

	if d.SampleRate < 0 || math.IsNaN(d.SampleRate) || math.IsInf(d.SampleRate, 0) {
		return fmt.Errorf("%w: sample_rate %g", ErrInvalidDocument, d.SampleRate)
	}

	if d.BlockSize < 0 {
		return fmt.Errorf("%w: block_size %d", ErrInvalidDocument, d.BlockSize)
	}

	if len(d.Channels) == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidDocument)
	}

	for i, ch := range d.Channels {
		if _, err := analysis.ParseMask(ch.Request...); err != nil {
			return fmt.Errorf("%w: channel %d request: %w", ErrInvalidDocument, i, err)
		}

		for j, p := range ch.Plugins {
			if p.Type == "" {
				return fmt.Errorf("%w: channel %d plugin %d has no type", ErrInvalidDocument, i, j)
			}
		}
	}

	return nil
}

// ProcessorConfig returns the processing settings of the document.
func (d *Document) ProcessorConfig() core.ProcessorConfig {
	return core.ApplyProcessorOptions(
		core.WithSampleRate(d.SampleRate),
		core.WithBlockSize(d.BlockSize),
		core.WithChannels(len(d.Channels)),
	)
}
