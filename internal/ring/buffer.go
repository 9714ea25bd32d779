// Package ring implements the lock-free circular sample buffer that
// bridges a real-time audio callback (the single producer) to any
// number of cooperative reader tasks.
package ring

import (
	"fmt"
	"log"
	"sync/atomic"
)

// Buffer is a fixed-capacity ring of int16 samples with a single
// writer and any number of readers. The writer must never allocate,
// lock, or block: WriteSample does none of those things.
//
// Capacity and every per-sample operation are safe for concurrent use
// by exactly one writer and arbitrarily many readers, each with its
// own read position.
type Buffer struct {
	samples      []int32 // stored widened so atomic.LoadInt32/StoreInt32 can be used per-slot
	capacity     uint64
	totalWritten atomic.Uint64
}

// New constructs a Buffer sized for sampleRate*channels*historySeconds
// samples. All three arguments must be positive.
func New(sampleRate, channels, historySeconds int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("ring: sample rate must be positive, got %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("ring: channel count must be positive, got %d", channels)
	}
	if historySeconds <= 0 {
		return nil, fmt.Errorf("ring: history seconds must be positive, got %d", historySeconds)
	}
	capacity := uint64(sampleRate) * uint64(channels) * uint64(historySeconds)
	return &Buffer{
		samples:  make([]int32, capacity),
		capacity: capacity,
	}, nil
}

// Capacity returns the fixed number of int16 samples the buffer holds.
func (b *Buffer) Capacity() uint64 { return b.capacity }

// WriteSample writes one sample at the next slot and publishes it.
// Called exactly once per sample received by the real-time producer
// callback; never fails, never allocates, never blocks.
func (b *Buffer) WriteSample(s int16) {
	idx := b.totalWritten.Load() % b.capacity
	atomic.StoreInt32(&b.samples[idx], int32(s))
	b.totalWritten.Add(1) // release: readers acquire-load totalWritten before trusting slots
}

// WriteSamples writes a contiguous run via repeated WriteSample calls;
// a convenience for non-real-time callers (tests, playback) that don't
// need per-sample granularity.
func (b *Buffer) WriteSamples(s []int16) {
	for _, v := range s {
		b.WriteSample(v)
	}
}

// WritePosition returns the total number of samples written so far.
func (b *Buffer) WritePosition() uint64 {
	return b.totalWritten.Load()
}

// ReadSamples copies up to len(out) samples starting at *readPos into
// out, advances *readPos by the number copied, and returns that count.
//
//   - If *readPos is beyond the current write position (a future
//     read), it returns 0 and leaves *readPos unchanged.
//   - If the reader has fallen more than Capacity() samples behind,
//     *readPos is advanced to the oldest available sample and the
//     overrun is logged (never returned as an error).
func (b *Buffer) ReadSamples(out []int16, readPos *uint64) int {
	w := b.totalWritten.Load() // acquire: synchronizes with every WriteSample whose effect is reflected in w
	if *readPos > w {
		return 0
	}
	if w-*readPos > b.capacity {
		lost := (w - b.capacity) - *readPos
		log.Printf("ring: audio buffer overrun, lost %d samples", lost)
		*readPos = w - b.capacity
	}
	k := w - *readPos
	if uint64(len(out)) < k {
		k = uint64(len(out))
	}
	for i := uint64(0); i < k; i++ {
		idx := (*readPos + i) % b.capacity
		out[i] = int16(atomic.LoadInt32(&b.samples[idx]))
	}
	*readPos += k
	return int(k)
}

// Clear resets the buffer to its just-constructed state. Intended for
// tests only; the real-time producer never calls this.
func (b *Buffer) Clear() {
	b.totalWritten.Store(0)
	for i := range b.samples {
		atomic.StoreInt32(&b.samples[i], 0)
	}
}
