// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history provides bounded in-memory windows over recent events.
package history

// RingBuffer is a fixed-size circular buffer.
//
// # Description
//
// Provides O(1) push and bounded memory usage. When full, the oldest item
// is overwritten. The research agent uses it as the rolling window of
// recent action signatures.
//
// # Thread Safety
//
// NOT safe for concurrent use; caller must synchronize.
type RingBuffer[T any] struct {
	data  []T
	head  int // next write position
	count int
}

// NewRingBuffer creates a ring buffer holding at most capacity items.
//
// # Inputs
//
//   - capacity: Maximum number of elements. Values below 1 are raised to 1.
//
// # Outputs
//
//   - *RingBuffer[T]: Empty buffer.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer[T]{data: make([]T, capacity)}
}

// Push appends an item, overwriting the oldest one when the buffer is full.
func (r *RingBuffer[T]) Push(item T) {
	r.data[r.head] = item
	r.head = (r.head + 1) % len(r.data)
	if r.count < len(r.data) {
		r.count++
	}
}

// Len returns the number of items currently held.
func (r *RingBuffer[T]) Len() int {
	return r.count
}

// Cap returns the fixed capacity.
func (r *RingBuffer[T]) Cap() int {
	return len(r.data)
}

// IsFull reports whether the buffer holds Cap() items.
func (r *RingBuffer[T]) IsFull() bool {
	return r.count == len(r.data)
}

// Items returns the held items ordered oldest first.
//
// # Outputs
//
//   - []T: A fresh slice; mutating it does not affect the buffer.
func (r *RingBuffer[T]) Items() []T {
	out := make([]T, 0, r.count)
	start := (r.head - r.count + len(r.data)) % len(r.data)
	for i := 0; i < r.count; i++ {
		out = append(out, r.data[(start+i)%len(r.data)])
	}
	return out
}

// Clear drops all items without releasing the backing storage.
func (r *RingBuffer[T]) Clear() {
	var zero T
	for i := range r.data {
		r.data[i] = zero
	}
	r.head = 0
	r.count = 0
}
