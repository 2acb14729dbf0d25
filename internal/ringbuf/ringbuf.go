// Package ringbuf provides a fixed-capacity sliding window of float64 values.
// Pushing into a full window evicts the oldest value. It backs the rolling
// statistics used by the indicator and factor packages.
package ringbuf

import "math"

// Window is a sliding window over the last size pushed values.
// Not safe for concurrent use; each series owns its own windows.
type Window struct {
	buf  []float64
	mask uint64
	size int // logical capacity, ≤ len(buf)

	head uint64 // total values pushed
	sum  float64
}

// New creates a window holding the last size values. Minimum size is 1.
func New(size int) *Window {
	if size < 1 {
		size = 1
	}
	n := nextPow2(size)
	return &Window{
		buf:  make([]float64, n),
		mask: uint64(n - 1),
		size: size,
	}
}

// Push appends v, evicting the oldest value when the window is full.
// Returns the evicted value and true when an eviction happened.
func (w *Window) Push(v float64) (float64, bool) {
	var old float64
	full := w.Full()
	if full {
		old = w.buf[(w.head-uint64(w.size))&w.mask]
		w.sum -= old
	}
	w.buf[w.head&w.mask] = v
	w.head++
	w.sum += v
	return old, full
}

// Len returns the number of values currently held.
func (w *Window) Len() int {
	if w.head < uint64(w.size) {
		return int(w.head)
	}
	return w.size
}

// Full reports whether the window holds size values.
func (w *Window) Full() bool { return w.head >= uint64(w.size) }

// At returns the i-th held value, 0 being the oldest.
func (w *Window) At(i int) float64 {
	start := w.head - uint64(w.Len())
	return w.buf[(start+uint64(i))&w.mask]
}

// Sum returns the running sum of held values.
func (w *Window) Sum() float64 { return w.sum }

// Mean returns Sum()/Len(), or NaN when empty.
func (w *Window) Mean() float64 {
	n := w.Len()
	if n == 0 {
		return math.NaN()
	}
	return w.sum / float64(n)
}

// Min returns the smallest held value, or NaN when empty.
func (w *Window) Min() float64 {
	n := w.Len()
	if n == 0 {
		return math.NaN()
	}
	m := w.At(0)
	for i := 1; i < n; i++ {
		if v := w.At(i); v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest held value, or NaN when empty.
func (w *Window) Max() float64 {
	n := w.Len()
	if n == 0 {
		return math.NaN()
	}
	m := w.At(0)
	for i := 1; i < n; i++ {
		if v := w.At(i); v > m {
			m = v
		}
	}
	return m
}

// Values copies the held values oldest first.
func (w *Window) Values() []float64 {
	n := w.Len()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = w.At(i)
	}
	return out
}

// Reset empties the window for reuse.
func (w *Window) Reset() {
	w.head = 0
	w.sum = 0
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
