package analysis

import (
	"iter"
	"math/bits"
	"strings"
)

// Mask is a set of signal ids. The zero value is the empty set.
type Mask uint16

const (
	// None is the empty mask.
	None Mask = 0
	// All contains every declared signal and nothing else.
	All Mask = 1<<SignalCount - 1
)

// MaskOf returns the mask containing ids. Invalid ids are ignored.
func MaskOf(ids ...SignalID) Mask {
	var m Mask
	for _, id := range ids {
		m |= id.Bit()
	}

	return m
}

// Has reports whether id is in m.
func (m Mask) Has(id SignalID) bool {
	return m&id.Bit() != 0
}

// Union returns m | o.
func (m Mask) Union(o Mask) Mask { return m | o }

// Intersect returns m & o.
func (m Mask) Intersect(o Mask) Mask { return m & o }

// Without returns m with the ids of o removed.
func (m Mask) Without(o Mask) Mask { return m &^ o }

// IsEmpty reports whether m contains no signal.
func (m Mask) IsEmpty() bool { return m&All == 0 }

// Len returns the number of signals in m.
func (m Mask) Len() int { return bits.OnesCount16(uint16(m & All)) }

// IDs iterates the signals of m in bit order.
func (m Mask) IDs() iter.Seq[SignalID] {
	return func(yield func(SignalID) bool) {
		for rest := m & All; rest != 0; rest &= rest - 1 {
			if !yield(SignalID(bits.TrailingZeros16(uint16(rest)))) {
				return
			}
		}
	}
}

// String lists the signal names joined by "|", or "none" / "all".
func (m Mask) String() string {
	switch m & All {
	case None:
		return "none"
	case All:
		return "all"
	}

	var sb strings.Builder
	for id := range m.IDs() {
		if sb.Len() > 0 {
			sb.WriteByte('|')
		}

		sb.WriteString(id.String())
	}

	return sb.String()
}

// ParseMask resolves signal names into a mask. The names "all" and "none"
// are accepted, and a single name may hold several ids separated by "|".
func ParseMask(names ...string) (Mask, error) {
	var m Mask

	for _, field := range names {
		for name := range strings.SplitSeq(field, "|") {
			name = strings.ToLower(strings.TrimSpace(name))

			switch name {
			case "", "none":
				continue
			case "all":
				m |= All
				continue
			}

			id, err := ParseSignalID(name)
			if err != nil {
				return None, err
			}

			m |= id.Bit()
		}
	}

	return m, nil
}
