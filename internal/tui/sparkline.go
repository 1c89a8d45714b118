package tui

// sparklineChars maps levels 0..7 to Unicode block elements ▁▂▃▄▅▆▇█.
var sparklineChars = [8]rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RingBuffer is a fixed-capacity circular buffer for float64 samples.
type RingBuffer struct {
	data  []float64
	head  int
	count int
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{data: make([]float64, max(capacity, 1))}
}

// Push adds a sample, overwriting the oldest if full.
func (r *RingBuffer) Push(v float64) {
	r.data[r.head] = v
	r.head = (r.head + 1) % len(r.data)
	r.count = min(r.count+1, len(r.data))
}

// Len returns the number of valid samples.
func (r *RingBuffer) Len() int { return r.count }

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int { return len(r.data) }

// Last returns the most recent sample, or 0 if empty.
func (r *RingBuffer) Last() float64 {
	if r.count == 0 {
		return 0
	}
	return r.data[(r.head-1+len(r.data))%len(r.data)]
}

// Max returns the largest sample, or 0 if empty.
func (r *RingBuffer) Max() float64 {
	var m float64
	for _, v := range r.Slice() {
		m = max(m, v)
	}
	return m
}

// Slice returns samples in chronological order (oldest first).
func (r *RingBuffer) Slice() []float64 {
	if r.count == 0 {
		return nil
	}
	out := make([]float64, r.count)
	start := (r.head - r.count + len(r.data)) % len(r.data)
	for i := range out {
		out[i] = r.data[(start+i)%len(r.data)]
	}
	return out
}

// Resize changes the capacity, keeping the most recent samples that fit.
func (r *RingBuffer) Resize(capacity int) {
	capacity = max(capacity, 1)
	if capacity == len(r.data) {
		return
	}
	old := r.Slice()
	if len(old) > capacity {
		old = old[len(old)-capacity:]
	}
	r.data = make([]float64, capacity)
	r.head, r.count = 0, 0
	for _, v := range old {
		r.Push(v)
	}
}

// Reset clears all samples.
func (r *RingBuffer) Reset() {
	r.head = 0
	r.count = 0
}

// RenderSparkline draws values as block elements scaled to peak. Values
// at or above peak use the full block; a non-positive peak draws the
// lowest level everywhere.
func RenderSparkline(values []float64, peak float64) string {
	if len(values) == 0 {
		return ""
	}
	runes := make([]rune, len(values))
	for i, v := range values {
		level := 0
		if peak > 0 && v > 0 {
			level = min(int(v/peak*7+0.5), 7)
		}
		runes[i] = sparklineChars[level]
	}
	return string(runes)
}
