// Package engine runs per-channel plugin chains block by block. It orders
// channels so copy-bus senders run before their receivers, computes which
// analysis signals each channel must produce, reconciles producer
// attribution after every slot and demotes failing plugins to forced bypass.
package engine

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-hotmic/dsp/core"
	"github.com/cwbudde/algo-hotmic/host/analysis"
	"github.com/cwbudde/algo-hotmic/host/copybus"
	"github.com/cwbudde/algo-hotmic/host/meter"
	"github.com/cwbudde/algo-hotmic/host/plugin"
	"github.com/cwbudde/algo-hotmic/internal/logging"
)

var (
	ErrInvalidConfig  = errors.New("engine: invalid config")
	ErrInvalidChannel = errors.New("engine: invalid channel")
	ErrInvalidSlot    = errors.New("engine: invalid slot")
	ErrNilPlugin      = errors.New("engine: nil plugin")
	ErrPrepared       = errors.New("engine: already prepared")
	ErrInvalidRoute   = errors.New("engine: copy-bus target out of range")
	ErrCyclicRouting  = errors.New("engine: cyclic copy-bus routing")
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMeterBank registers channel and plugin meters in bank.
func WithMeterBank(bank *meter.Bank) Option {
	return func(e *Engine) {
		if bank != nil {
			e.bank = bank
		}
	}
}

// WithCapture attaches a visualization sink to every plugin context.
func WithCapture(sink plugin.CaptureSink) Option {
	return func(e *Engine) {
		e.capture = sink
	}
}

// Engine owns the channels, their plugin chains and the copy buses.
// ProcessBlock must be called from a single goroutine. SetParameter,
// SetState, Attribution, Status and the meters may be used concurrently
// with it.
type Engine struct {
	id      uuid.UUID
	cfg     core.ProcessorConfig
	log     *slog.Logger
	bank    *meter.Bank
	capture plugin.CaptureSink
	router  *copybus.Router

	channels []*channel
	order    []int

	clock      uint64
	sampleTime int64
	prepared   bool
}

type channel struct {
	index int
	slots []*slot

	store     *analysis.Store
	attr      analysis.Attribution
	extra     analysis.Mask
	requested analysis.Mask

	input   []float32
	scratch []float32
	dry     []float32

	published []analysis.ProducerTable
	snapshots *meter.ArrayBuffer[analysis.ProducerTable]

	latency atomic.Int64
	output  *meter.Peak
}

type slot struct {
	id     uuid.UUID
	index  int
	plugin plugin.Plugin
	caps   plugin.Capabilities
	writer *analysis.Writer
	ctx    plugin.Context

	bypass  atomic.Bool
	reason  atomic.Pointer[string]
	pending atomic.Pointer[[]byte]

	available analysis.Mask
	notified  bool
}

// New returns an engine for cfg.
func New(cfg core.ProcessorConfig, opts ...Option) (*Engine, error) {
	if cfg.SampleRate <= 0 || cfg.BlockSize <= 0 || cfg.Channels <= 0 {
		return nil, fmt.Errorf("%w: sampleRate=%g blockSize=%d channels=%d",
			ErrInvalidConfig, cfg.SampleRate, cfg.BlockSize, cfg.Channels)
	}

	e := &Engine{
		id:     uuid.New(),
		cfg:    cfg,
		log:    logging.Discard(),
		bank:   meter.NewBank(),
		router: copybus.NewRouter(cfg.Channels, cfg.BlockSize),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	e.log = logging.Module(e.log, "engine").With(slog.String("engine_id", e.id.String()))

	e.channels = make([]*channel, cfg.Channels)
	for i := range e.channels {
		ch := &channel{
			index:     i,
			store:     analysis.NewStore(cfg.BlockSize),
			input:     make([]float32, cfg.BlockSize),
			scratch:   make([]float32, cfg.BlockSize),
			dry:       make([]float32, cfg.BlockSize),
			published: make([]analysis.ProducerTable, 1),
			snapshots: meter.NewArrayBuffer[analysis.ProducerTable](1),
			output:    &meter.Peak{},
		}
		e.bank.AddPeak(fmt.Sprintf("ch%d/output", i), ch.output)
		e.channels[i] = ch
	}

	return e, nil
}

// ID identifies the engine instance in logs and metrics.
func (e *Engine) ID() uuid.UUID {
	return e.id
}

// Config returns the processing configuration.
func (e *Engine) Config() core.ProcessorConfig {
	return e.cfg
}

// Bank returns the meter bank.
func (e *Engine) Bank() *meter.Bank {
	return e.bank
}

// Router returns the copy-bus router shared by all plugin contexts.
func (e *Engine) Router() *copybus.Router {
	return e.router
}

// AddPlugin appends p to the chain of channel ch and returns its slot
// index. Capabilities are resolved here, once.
func (e *Engine) AddPlugin(ch int, p plugin.Plugin) (int, error) {
	if e.prepared {
		return 0, ErrPrepared
	}

	if p == nil {
		return 0, ErrNilPlugin
	}

	c, err := e.channel(ch)
	if err != nil {
		return 0, err
	}

	s := &slot{
		id:     uuid.New(),
		index:  len(c.slots),
		plugin: p,
		caps:   plugin.Inspect(p),
	}
	s.writer = analysis.NewWriter(c.store, s.index)
	s.ctx = plugin.Context{
		Channel:    ch,
		Slot:       s.index,
		SampleRate: e.cfg.SampleRate,
		Routing:    e.router,
		Writer:     s.writer,
		Capture:    e.capture,
	}

	prefix := fmt.Sprintf("ch%d/%02d-%s/", ch, s.index, p.Name())
	for name, m := range s.caps.Meters.Peaks {
		e.bank.AddPeak(prefix+name, m)
	}

	for name, m := range s.caps.Meters.Levels {
		e.bank.AddLevel(prefix+name, m)
	}

	c.slots = append(c.slots, s)

	e.log.Debug("plugin added",
		slog.Int("channel", ch),
		slog.Int("slot", s.index),
		slog.String("plugin", p.Name()),
		slog.String("slot_id", s.id.String()),
		slog.String("capabilities", s.caps.Flags.String()))

	return s.index, nil
}

// Request adds signals to the requested set of channel ch even if no
// consumer in the graph needs them, for example for display.
func (e *Engine) Request(ch int, mask analysis.Mask) error {
	if e.prepared {
		return ErrPrepared
	}

	c, err := e.channel(ch)
	if err != nil {
		return err
	}

	c.extra |= mask & analysis.All

	return nil
}

// Prepare validates routing, computes the channel order and requested
// signals, and initializes every plugin. A plugin whose Initialize fails is
// put into forced bypass; the rest of the graph still runs.
func (e *Engine) Prepare() error {
	if e.prepared {
		return ErrPrepared
	}

	order, err := e.schedule()
	if err != nil {
		return err
	}

	e.order = order
	e.computeRequested()
	e.warnRouting()

	for _, c := range e.channels {
		for _, s := range c.slots {
			e.initialize(c, s)
			e.applyPendingState(c, s)
		}
	}

	e.prepared = true

	e.log.Info("engine prepared",
		slog.Int("channels", len(e.channels)),
		slog.Float64("sample_rate", e.cfg.SampleRate),
		slog.Int("block_size", e.cfg.BlockSize),
		slog.Any("order", e.order))

	for _, c := range e.channels {
		e.log.Debug("channel prepared",
			slog.Int("channel", c.index),
			slog.Int("slots", len(c.slots)),
			slog.String("requested", c.requested.String()))
	}

	return nil
}

func (e *Engine) initialize(c *channel, s *slot) {
	defer func() {
		if r := recover(); r != nil {
			e.demote(c, s, fmt.Sprintf("initialize panicked: %v", r))
		}
	}()

	if err := s.plugin.Initialize(e.cfg.SampleRate, e.cfg.BlockSize); err != nil {
		e.demote(c, s, fmt.Sprintf("initialize failed: %v", err))
	}
}

// demote puts s into forced bypass. It runs at most once per slot.
func (e *Engine) demote(c *channel, s *slot, reason string) {
	if s.bypass.Swap(true) {
		return
	}

	s.reason.Store(&reason)

	e.log.Warn("plugin forced to bypass",
		slog.Int("channel", c.index),
		slog.Int("slot", s.index),
		slog.String("plugin", s.plugin.Name()),
		slog.String("slot_id", s.id.String()),
		slog.String("reason", reason))
}

// Order returns the channel processing order computed by Prepare.
func (e *Engine) Order() []int {
	return append([]int(nil), e.order...)
}

// Requested returns the signals channel ch must produce.
func (e *Engine) Requested(ch int) analysis.Mask {
	c, err := e.channel(ch)
	if err != nil {
		return analysis.None
	}

	return c.requested
}

// Latency returns the total latency of channel ch in the last block.
func (e *Engine) Latency(ch int) int {
	c, err := e.channel(ch)
	if err != nil {
		return 0
	}

	return int(c.latency.Load())
}

// Attribution returns the producer table of channel ch as reconciled at
// the end of the last block.
func (e *Engine) Attribution(ch int) (analysis.ProducerTable, error) {
	c, err := e.channel(ch)
	if err != nil {
		return analysis.ProducerTable{}, err
	}

	var dst [1]analysis.ProducerTable
	c.snapshots.Snapshot(dst[:])

	return dst[0], nil
}

// SetParameter forwards a parameter change. It may race with the audio
// goroutine; plugins store parameters atomically.
func (e *Engine) SetParameter(ch, slotIndex, index int, value float32) error {
	_, s, err := e.slot(ch, slotIndex)
	if err != nil {
		return err
	}

	s.plugin.SetParameter(index, value)

	return nil
}

// SetState queues data for the plugin. The audio goroutine applies it at
// the next block boundary, so it never overlaps Process. A newer call
// before that replaces the queued data.
func (e *Engine) SetState(ch, slotIndex int, data []byte) error {
	_, s, err := e.slot(ch, slotIndex)
	if err != nil {
		return err
	}

	cp := bytes.Clone(data)
	s.pending.Store(&cp)

	return nil
}

// State returns the persisted state of a plugin.
func (e *Engine) State(ch, slotIndex int) ([]byte, error) {
	_, s, err := e.slot(ch, slotIndex)
	if err != nil {
		return nil, err
	}

	if p := s.pending.Load(); p != nil {
		return bytes.Clone(*p), nil
	}

	return s.plugin.State(), nil
}

// SlotInfo describes one plugin slot.
type SlotInfo struct {
	Channel      int
	Slot         int
	ID           uuid.UUID
	Name         string
	Capabilities plugin.Capability
	Bypassed     bool
	Status       string
}

// Slots describes the chain of channel ch.
func (e *Engine) Slots(ch int) []SlotInfo {
	c, err := e.channel(ch)
	if err != nil {
		return nil
	}

	out := make([]SlotInfo, 0, len(c.slots))
	for _, s := range c.slots {
		out = append(out, SlotInfo{
			Channel:      ch,
			Slot:         s.index,
			ID:           s.id,
			Name:         s.plugin.Name(),
			Capabilities: s.caps.Flags,
			Bypassed:     s.bypass.Load(),
			Status:       s.status(),
		})
	}

	return out
}

// Status returns the degraded-state message of a slot, or "".
func (e *Engine) Status(ch, slotIndex int) (string, error) {
	_, s, err := e.slot(ch, slotIndex)
	if err != nil {
		return "", err
	}

	return s.status(), nil
}

func (s *slot) status() string {
	if r := s.reason.Load(); r != nil {
		return *r
	}

	if s.caps.Status != nil {
		return s.caps.Status.Status()
	}

	return ""
}

// Close closes every plugin and joins their errors.
func (e *Engine) Close() error {
	var errs []error

	for _, c := range e.channels {
		for _, s := range c.slots {
			if err := s.plugin.Close(); err != nil {
				errs = append(errs, fmt.Errorf("engine: close %s (channel %d slot %d): %w", s.plugin.Name(), c.index, s.index, err))
			}
		}
	}

	return errors.Join(errs...)
}

func (e *Engine) channel(ch int) (*channel, error) {
	if ch < 0 || ch >= len(e.channels) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannel, ch)
	}

	return e.channels[ch], nil
}

func (e *Engine) slot(ch, slotIndex int) (*channel, *slot, error) {
	c, err := e.channel(ch)
	if err != nil {
		return nil, nil, err
	}

	if slotIndex < 0 || slotIndex >= len(c.slots) {
		return nil, nil, fmt.Errorf("%w: channel %d slot %d", ErrInvalidSlot, ch, slotIndex)
	}

	return c, c.slots[slotIndex], nil
}
