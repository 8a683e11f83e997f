package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/cwbudde/algo-hotmic/host/meter"
	"github.com/cwbudde/algo-hotmic/internal/logging"
)

var ErrInvalidInterval = errors.New("telemetry: poll interval must be positive")

// Poller drains the peak meters of a bank on a fixed interval and keeps
// the results for scraping.
type Poller struct {
	bank     *meter.Bank
	interval time.Duration
	log      *slog.Logger

	mu     sync.RWMutex
	values map[string]float64
	polls  uint64
}

// NewPoller returns a poller for bank. A nil logger discards.
func NewPoller(bank *meter.Bank, interval time.Duration, logger *slog.Logger) (*Poller, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}

	if logger == nil {
		logger = logging.Discard()
	}

	return &Poller{
		bank:     bank,
		interval: interval,
		log:      logging.Module(logger, "telemetry"),
		values:   make(map[string]float64),
	}, nil
}

// Run polls until ctx is done. It returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Debug("meter poller started", slog.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			p.log.Debug("meter poller stopped", slog.Uint64("polls", p.Polls()))
			return ctx.Err()
		case <-ticker.C:
			p.Poll()
		}
	}
}

// Poll drains every peak meter once.
func (p *Poller) Poll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bank.EachPeak(func(name string, m *meter.Peak) {
		p.values[name] = m.Poll()
	})
	p.polls++
}

// Values returns a copy of the last polled peaks.
func (p *Poller) Values() map[string]float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return maps.Clone(p.values)
}

// Polls returns the number of completed polls.
func (p *Poller) Polls() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.polls
}
