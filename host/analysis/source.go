package analysis

// Source is a read handle for one signal of one channel in the current
// block. The zero value reads 0 everywhere.
type Source struct {
	store *Store
	id    SignalID
	valid bool
}

// ID returns the signal the source reads.
func (s Source) ID() SignalID {
	return s.id
}

// Valid reports whether a producer was attributed when the source was bound.
func (s Source) Valid() bool {
	return s.valid
}

// ReadSample returns the value at sample time t. Reads outside the current
// block window, of unwritten samples, or through an invalid source return 0.
func (s Source) ReadSample(t int64) float32 {
	if !s.valid {
		return 0
	}

	return s.store.ReadSample(s.id, t)
}

// Reader is the consumer view of a channel's signals: the track store
// combined with the attribution reconciled so far in the block.
type Reader struct {
	store *Store
	table *ProducerTable
}

// Available returns the signals that currently have a producer.
func (r Reader) Available() Mask {
	if r.table == nil {
		return None
	}

	return r.table.Attributed()
}

// Source binds a source for id.
func (r Reader) Source(id SignalID) Source {
	if r.store == nil {
		return Source{}
	}

	return r.store.Source(id, r.table)
}

// ReadSample reads id at t, returning 0 when id has no producer.
func (r Reader) ReadSample(id SignalID, t int64) float32 {
	return r.Source(id).ReadSample(t)
}

// Owner returns the slot attributed to id.
func (r Reader) Owner(id SignalID) (int, bool) {
	if r.table == nil {
		return NoProducer, false
	}

	return r.table.Owner(id)
}

// Track returns the current block values of id when id has a producer, or
// nil. Reader satisfies the track source of the copy bus.
func (r Reader) Track(id SignalID) []float32 {
	if r.store == nil || !r.Available().Has(id) {
		return nil
	}

	return r.store.Track(id)
}

// Window returns the current block window.
func (r Reader) Window() (start int64, length int) {
	if r.store == nil {
		return 0, 0
	}

	return r.store.Window()
}
