package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/alschwalm/piso/internal/bitmap"
	"github.com/alschwalm/piso/internal/state"
)

const defaultFlushInterval = 50 * time.Millisecond

// Flusher receives rendered frames; implemented by display.Device and faked
// in tests.
type Flusher interface {
	Flush(frame bitmap.Bitmap) error
}

// StartFlusher launches a background goroutine that writes newly published
// frames to the display at a fixed cadence. It returns immediately.
func StartFlusher(ctx context.Context, store *state.Store, dev Flusher, interval time.Duration) {
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var lastSeq uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			snap := store.Snapshot()
			if snap.Seq == lastSeq {
				continue
			}
			if err := dev.Flush(snap.Bitmap); err != nil {
				slog.Warn("display flush failed", "error", err)
				continue
			}
			lastSeq = snap.Seq
		}
	}()
}
