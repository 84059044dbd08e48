package radar

// RangeHistory is a circular buffer of recent ranges.
type RangeHistory struct {
	buf   []float64
	pos   int
	count int
}

// NewRangeHistory creates a new circular buffer with the given capacity.
func NewRangeHistory(capacity int) *RangeHistory {
	if capacity < 1 {
		capacity = 1
	}
	return &RangeHistory{
		buf: make([]float64, capacity),
	}
}

// Push adds a value to the ring buffer.
func (r *RangeHistory) Push(val float64) {
	r.buf[r.pos] = val
	r.pos = (r.pos + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Values returns all stored values in chronological order.
func (r *RangeHistory) Values() []float64 {
	if r.count == 0 {
		return nil
	}
	result := make([]float64, r.count)
	if r.count < len(r.buf) {
		copy(result, r.buf[:r.count])
	} else {
		n := copy(result, r.buf[r.pos:])
		copy(result[n:], r.buf[:r.pos])
	}
	return result
}

// Last returns the most recent value, or 0 if empty.
func (r *RangeHistory) Last() float64 {
	if r.count == 0 {
		return 0
	}
	return r.buf[(r.pos-1+len(r.buf))%len(r.buf)]
}

// Len returns the number of stored values.
func (r *RangeHistory) Len() int {
	return r.count
}

// Reset empties the buffer.
func (r *RangeHistory) Reset() {
	r.pos = 0
	r.count = 0
}
