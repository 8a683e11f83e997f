package analysis

// NoProducer is the slot reported for signals without an owner.
const NoProducer = -1

// ProducerTable maps each signal to the slot that owns it. The zero value
// has no producers. Copying the value takes a snapshot.
type ProducerTable struct {
	// owners stores slot+1 so the zero value means "no producer".
	owners [SignalCount]int16
}

// NewProducerTable returns a table without producers.
func NewProducerTable() ProducerTable {
	return ProducerTable{}
}

// Owner returns the slot attributed to id.
func (t *ProducerTable) Owner(id SignalID) (slot int, ok bool) {
	if !id.Valid() || t.owners[id] == 0 {
		return NoProducer, false
	}

	return int(t.owners[id]) - 1, true
}

// Stamp attributes every signal of mask to slot. Negative slots clear the
// entries, like Suppress.
func (t *ProducerTable) Stamp(slot int, mask Mask) {
	v := int16(0)
	if slot >= 0 {
		v = int16(slot + 1)
	}

	for id := range mask.IDs() {
		t.owners[id] = v
	}
}

// Suppress clears the attribution of every signal in mask.
func (t *ProducerTable) Suppress(mask Mask) {
	for id := range mask.IDs() {
		t.owners[id] = 0
	}
}

// Release clears every signal attributed to slot.
func (t *ProducerTable) Release(slot int) {
	if slot < 0 {
		return
	}

	v := int16(slot + 1)
	for i, o := range t.owners {
		if o == v {
			t.owners[i] = 0
		}
	}
}

// Attributed returns the signals that have a producer.
func (t *ProducerTable) Attributed() Mask {
	var m Mask

	for i, v := range t.owners {
		if v != 0 {
			m |= 1 << i
		}
	}

	return m
}

// Equal reports whether both tables attribute the same slots.
func (t *ProducerTable) Equal(o *ProducerTable) bool {
	return t.owners == o.owners
}

// Reset clears all attributions.
func (t *ProducerTable) Reset() {
	clear(t.owners[:])
}

// Attribution reconciles one channel's producer table slot by slot within
// a block. Blocked signals accumulate over the block and are suppressed
// after every slot, so a blocker wins over a producer of the same signal
// whichever of the two runs first.
type Attribution struct {
	table   ProducerTable
	blocked Mask
}

// BeginBlock starts a block. The table carries over from the previous block.
func (a *Attribution) BeginBlock() {
	a.blocked = None
}

// Reconcile applies one slot's outcome: stamp generated ∩ requested, add
// blocked to the block's cumulative blocked set, then suppress that set.
func (a *Attribution) Reconcile(slot int, generated, requested, blocked Mask) {
	a.table.Stamp(slot, generated&requested)
	a.blocked |= blocked & All
	a.table.Suppress(a.blocked)
}

// Release drops the attributions of a slot that no longer runs.
func (a *Attribution) Release(slot int) {
	a.table.Release(slot)
}

// Blocked returns the cumulative blocked set of the current block.
func (a *Attribution) Blocked() Mask {
	return a.blocked
}

// Table returns the live table. It must only be used on the audio goroutine.
func (a *Attribution) Table() *ProducerTable {
	return &a.table
}

// Snapshot returns a copy of the live table.
func (a *Attribution) Snapshot() ProducerTable {
	return a.table
}

// Reset clears the table and the blocked set.
func (a *Attribution) Reset() {
	a.table.Reset()
	a.blocked = None
}
