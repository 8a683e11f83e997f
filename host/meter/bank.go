package meter

import (
	"slices"
	"sync"
)

// Bank is a named registry of meters. Meters are created at setup time and
// then written lock-free; the registry lock only guards creation and
// enumeration.
type Bank struct {
	mu     sync.RWMutex
	peaks  map[string]*Peak
	levels map[string]*Level
}

// NewBank returns an empty bank.
func NewBank() *Bank {
	return &Bank{
		peaks:  make(map[string]*Peak),
		levels: make(map[string]*Level),
	}
}

// Peak returns the peak meter registered under name, creating it on first use.
func (b *Bank) Peak(name string) *Peak {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.peaks[name]
	if !ok {
		p = &Peak{}
		b.peaks[name] = p
	}

	return p
}

// Level returns the level meter registered under name, creating it on first use.
func (b *Bank) Level(name string) *Level {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.levels[name]
	if !ok {
		l = &Level{}
		b.levels[name] = l
	}

	return l
}

// AddPeak registers an existing peak meter under name, replacing any
// previous registration.
func (b *Bank) AddPeak(name string, p *Peak) {
	b.mu.Lock()
	b.peaks[name] = p
	b.mu.Unlock()
}

// AddLevel registers an existing level meter under name, replacing any
// previous registration.
func (b *Bank) AddLevel(name string, l *Level) {
	b.mu.Lock()
	b.levels[name] = l
	b.mu.Unlock()
}

// EachPeak calls fn for every peak meter in name order.
func (b *Bank) EachPeak(fn func(name string, p *Peak)) {
	b.mu.RLock()
	names := sortedKeys(b.peaks)
	b.mu.RUnlock()

	for _, name := range names {
		b.mu.RLock()
		p := b.peaks[name]
		b.mu.RUnlock()

		fn(name, p)
	}
}

// EachLevel calls fn for every level meter in name order.
func (b *Bank) EachLevel(fn func(name string, l *Level)) {
	b.mu.RLock()
	names := sortedKeys(b.levels)
	b.mu.RUnlock()

	for _, name := range names {
		b.mu.RLock()
		l := b.levels[name]
		b.mu.RUnlock()

		fn(name, l)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
