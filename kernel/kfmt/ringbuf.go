package kfmt

import "io"

// earlyBufferSize is large enough to hold a full 80x25 text screen. It must
// be a power of 2 so that index wrap-around can use a mask.
const earlyBufferSize = 2048

// ringBuffer captures Printf output until an output sink is attached. When
// full, new writes overwrite the oldest unread bytes.
type ringBuffer struct {
	buffer         [earlyBufferSize]byte
	rIndex, wIndex int
}

// Len returns the number of unread bytes.
func (rb *ringBuffer) Len() int {
	return (rb.wIndex - rb.rIndex) & (earlyBufferSize - 1)
}

// Reset discards any unread bytes.
func (rb *ringBuffer) Reset() {
	rb.rIndex, rb.wIndex = 0, 0
}

// Write stores p in the buffer. It never fails.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.buffer[rb.wIndex] = b
		rb.wIndex = (rb.wIndex + 1) & (earlyBufferSize - 1)
		if rb.wIndex == rb.rIndex {
			// drop oldest byte
			rb.rIndex = (rb.rIndex + 1) & (earlyBufferSize - 1)
		}
	}

	return len(p), nil
}

// Read copies up to len(p) unread bytes into p. It returns io.EOF once the
// buffer is drained. A single call never reads across the wrap-around point.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	if rb.rIndex == rb.wIndex {
		return 0, io.EOF
	}

	end := rb.wIndex
	if rb.rIndex > rb.wIndex {
		end = earlyBufferSize
	}

	n := copy(p, rb.buffer[rb.rIndex:end])
	rb.rIndex = (rb.rIndex + n) & (earlyBufferSize - 1)
	return n, nil
}
