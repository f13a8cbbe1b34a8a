// Package state decouples the single-threaded control loop from the display
// flusher: the loop publishes each rendered frame, the flusher snapshots the
// latest one at its own cadence.
package state

import (
	"sync"

	"github.com/alschwalm/piso/internal/bitmap"
)

// Frame is one published display frame.
type Frame struct {
	Bitmap bitmap.Bitmap
	// Seq increments on every publish so the flusher can skip frames it
	// has already written.
	Seq uint64
}

// Store coordinates concurrent access to the latest frame.
type Store struct {
	mu    sync.RWMutex
	frame Frame
}

// Publish replaces the stored frame.
func (s *Store) Publish(b bitmap.Bitmap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame.Bitmap = b
	s.frame.Seq++
}

// Snapshot returns the current frame. Bitmaps are never mutated after
// publishing, so sharing the pixel data is safe.
func (s *Store) Snapshot() Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}
