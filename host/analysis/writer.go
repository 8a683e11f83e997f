package analysis

// Writer is the write handle of one slot for the current block. The zero
// value is disabled and drops every write.
type Writer struct {
	store    *Store
	slot     int
	allowed  Mask
	produced Mask
}

// NewWriter binds a writer to store for slot. Call Begin before each block.
func NewWriter(store *Store, slot int) *Writer {
	return &Writer{store: store, slot: slot}
}

// Begin resets the produced mask and sets the signals the slot may write
// this block.
func (w *Writer) Begin(allowed Mask) {
	w.allowed = allowed & All
	w.produced = None
}

// Slot returns the slot index the writer belongs to.
func (w *Writer) Slot() int {
	return w.slot
}

// IsEnabled reports whether any signal may be written this block.
func (w *Writer) IsEnabled() bool {
	return w != nil && w.store != nil && w.allowed != None
}

// AllowedSignals returns the signals the slot may write this block.
// Producers should skip computing anything outside this mask.
func (w *Writer) AllowedSignals() Mask {
	if w == nil || w.store == nil {
		return None
	}

	return w.allowed
}

// Wants reports whether id may be written this block.
func (w *Writer) Wants(id SignalID) bool {
	return w.AllowedSignals().Has(id)
}

// WriteBlock stores values as the samples of id starting at startTime.
// Samples outside the block window are dropped; later overlapping writes
// overwrite earlier ones. Writing a signal that is not allowed is a no-op.
// It returns the number of samples stored.
func (w *Writer) WriteBlock(id SignalID, startTime int64, values []float32) int {
	if !w.Wants(id) {
		return 0
	}

	n := w.store.write(id, startTime, values)
	if n > 0 {
		w.produced |= id.Bit()
	}

	return n
}

// WriteSample stores a single sample of id at t.
func (w *Writer) WriteSample(id SignalID, t int64, v float32) {
	var one [1]float32
	one[0] = v
	w.WriteBlock(id, t, one[:])
}

// Fill sets id to v for the whole block window.
func (w *Writer) Fill(id SignalID, v float32) {
	if !w.Wants(id) {
		return
	}

	w.store.fill(id, v)

	if w.store.length > 0 {
		w.produced |= id.Bit()
	}
}

// Produced returns the signals written through w since Begin.
func (w *Writer) Produced() Mask {
	if w == nil {
		return None
	}

	return w.produced
}
