package audio

// RingBuffer keeps the most recent bytes written to it. Older bytes are
// overwritten once the buffer is full. It is not safe for concurrent use.
type RingBuffer struct {
	buffer []byte
	start  int
	length int
}

// NewRingBuffer creates a ring buffer holding up to size bytes
func NewRingBuffer(size int) *RingBuffer {
	if size < 0 {
		size = 0
	}
	return &RingBuffer{buffer: make([]byte, size)}
}

// Write appends data, discarding the oldest bytes when full
func (rb *RingBuffer) Write(data []byte) {
	size := len(rb.buffer)
	if size == 0 {
		return
	}
	if len(data) >= size {
		copy(rb.buffer, data[len(data)-size:])
		rb.start = 0
		rb.length = size
		return
	}

	for _, b := range data {
		end := (rb.start + rb.length) % size
		rb.buffer[end] = b
		if rb.length < size {
			rb.length++
		} else {
			rb.start = (rb.start + 1) % size
		}
	}
}

// Drain returns the buffered bytes in write order and empties the buffer
func (rb *RingBuffer) Drain() []byte {
	out := make([]byte, rb.length)
	for i := range out {
		out[i] = rb.buffer[(rb.start+i)%len(rb.buffer)]
	}
	rb.Clear()
	return out
}

// Len returns the number of buffered bytes
func (rb *RingBuffer) Len() int {
	return rb.length
}

// Clear empties the buffer
func (rb *RingBuffer) Clear() {
	rb.start = 0
	rb.length = 0
}
