package intraday

// TurnoverRing is a fixed-capacity ring of cumulative turnover samples.
// Once full, each push evicts the oldest sample.
type TurnoverRing struct {
	buf   []float64
	start int
	size  int
}

// NewTurnoverRing allocates a ring holding at most capacity samples.
func NewTurnoverRing(capacity int) *TurnoverRing {
	if capacity < 1 {
		capacity = 1
	}
	return &TurnoverRing{buf: make([]float64, capacity)}
}

// Push appends v, evicting the oldest sample when full.
func (r *TurnoverRing) Push(v float64) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Len returns the number of samples held.
func (r *TurnoverRing) Len() int { return r.size }

// Last returns the newest sample.
func (r *TurnoverRing) Last() (float64, bool) {
	if r.size == 0 {
		return 0, false
	}
	return r.buf[(r.start+r.size-1)%len(r.buf)], true
}

// Values returns the samples oldest first.
func (r *TurnoverRing) Values() []float64 {
	out := make([]float64, r.size)
	for i := range out {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Reset drops every sample.
func (r *TurnoverRing) Reset() {
	r.start, r.size = 0, 0
}

// Increments returns the differences between consecutive samples.
func (r *TurnoverRing) Increments() []float64 {
	vals := r.Values()
	if len(vals) < 2 {
		return nil
	}
	out := make([]float64, len(vals)-1)
	for i := 1; i < len(vals); i++ {
		out[i-1] = vals[i] - vals[i-1]
	}
	return out
}
