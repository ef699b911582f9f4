package utils

import (
	"usage-watch/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of window samples.
// Appending to a full buffer overwrites the oldest sample.
// -----------------------------------------------------------------------------

type RingBuffer struct {
	data     []models.MWindowSample
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity. A zero capacity
// buffer accepts appends and retains nothing.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 0 {
		capacity = 0
	}

	return &RingBuffer{
		data:     make([]models.MWindowSample, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// NewRingBufferFrom creates a buffer and replays samples into it, oldest first.
func NewRingBufferFrom(capacity int, samples []models.MWindowSample) *RingBuffer {
	rb := NewRingBuffer(capacity)
	for _, s := range samples {
		rb.Append(s)
	}
	return rb
}

// -----------------------------------------------------------------------------

// Append adds a sample, evicting the oldest when full
func (rb *RingBuffer) Append(sample models.MWindowSample) {
	if rb.capacity == 0 {
		return
	}

	rb.data[rb.index] = sample
	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns the n newest samples, oldest first
func (rb *RingBuffer) GetLatest(n int) []models.MWindowSample {
	if rb.size == 0 || n <= 0 {
		return []models.MWindowSample{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MWindowSample, count)

	// Latest data is at index-1
	startIdx := (rb.index - count + rb.capacity) % rb.capacity
	for i := 0; i < count; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all samples in insertion order (oldest to newest)
func (rb *RingBuffer) GetAll() []models.MWindowSample {
	return rb.GetLatest(rb.size)
}

// -----------------------------------------------------------------------------

// Quantities returns the quantities of all samples, oldest first
func (rb *RingBuffer) Quantities() []float64 {
	all := rb.GetAll()
	out := make([]float64, len(all))
	for i, s := range all {
		out[i] = s.Quantity
	}
	return out
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	return rb.size
}
