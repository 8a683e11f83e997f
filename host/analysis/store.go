package analysis

// Store owns the signal tracks of one channel. Each track holds one value
// per sample of the current block; tracks are preallocated to the maximum
// block size and cleared lazily at the start of the next block.
type Store struct {
	tracks  [SignalCount][]float32
	written Mask
	start   int64
	length  int
	maxLen  int
}

// NewStore returns a store for blocks of up to maxBlockSize samples.
func NewStore(maxBlockSize int) *Store {
	maxBlockSize = max(maxBlockSize, 1)

	s := &Store{maxLen: maxBlockSize}

	backing := make([]float32, SignalCount*maxBlockSize)
	for i := range s.tracks {
		s.tracks[i] = backing[i*maxBlockSize : (i+1)*maxBlockSize : (i+1)*maxBlockSize]
	}

	return s
}

// MaxBlockSize returns the track capacity.
func (s *Store) MaxBlockSize() int {
	return s.maxLen
}

// BeginBlock clears the tracks written during the previous block and moves
// the window to [sampleTime, sampleTime+length). length is clamped to the
// track capacity.
func (s *Store) BeginBlock(sampleTime int64, length int) {
	for id := range s.written.IDs() {
		clear(s.tracks[id][:s.length])
	}

	s.written = None
	s.start = sampleTime
	s.length = min(max(length, 0), s.maxLen)
}

// Window returns the current block window.
func (s *Store) Window() (start int64, length int) {
	return s.start, s.length
}

// Contains reports whether t lies in the current window.
func (s *Store) Contains(t int64) bool {
	return t >= s.start && t < s.start+int64(s.length)
}

// Written reports which tracks hold data in the current block.
func (s *Store) Written() Mask {
	return s.written
}

// Track returns the current block values of id. The slice aliases the
// store and is valid until the next BeginBlock.
func (s *Store) Track(id SignalID) []float32 {
	if !id.Valid() {
		return nil
	}

	return s.tracks[id][:s.length]
}

// ReadSample returns the value of id at sample time t, or 0 outside the
// window, for invalid ids and for samples nobody wrote.
func (s *Store) ReadSample(id SignalID, t int64) float32 {
	if s == nil || !id.Valid() || !s.Contains(t) {
		return 0
	}

	return s.tracks[id][t-s.start]
}

// write copies the part of values that falls inside the window, starting
// at sample time startTime. It returns the number of samples stored.
func (s *Store) write(id SignalID, startTime int64, values []float32) int {
	end := startTime + int64(len(values))
	winEnd := s.start + int64(s.length)

	lo := max(startTime, s.start)
	hi := min(end, winEnd)

	if lo >= hi {
		return 0
	}

	n := copy(s.tracks[id][lo-s.start:hi-s.start], values[lo-startTime:hi-startTime])
	s.written |= id.Bit()

	return n
}

func (s *Store) fill(id SignalID, v float32) {
	track := s.tracks[id][:s.length]
	for i := range track {
		track[i] = v
	}

	if s.length > 0 {
		s.written |= id.Bit()
	}
}

// Writer returns a writer for slot gated by allowed.
func (s *Store) Writer(slot int, allowed Mask) *Writer {
	w := NewWriter(s, slot)
	w.Begin(allowed)

	return w
}

// Source returns a source for id. The source is valid when table
// attributes id to a producer; a nil table yields an invalid source.
func (s *Store) Source(id SignalID, table *ProducerTable) Source {
	if table == nil || !id.Valid() {
		return Source{}
	}

	_, ok := table.Owner(id)

	return Source{store: s, id: id, valid: ok}
}

// Reader returns the consumer view of s under table.
func (s *Store) Reader(table *ProducerTable) Reader {
	return Reader{store: s, table: table}
}
