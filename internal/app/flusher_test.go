package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alschwalm/piso/internal/bitmap"
	"github.com/alschwalm/piso/internal/state"
)

type recordingFlusher struct {
	mu     sync.Mutex
	frames int
}

func (f *recordingFlusher) Flush(bitmap.Bitmap) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames++
	return nil
}

func (f *recordingFlusher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames
}

func TestFlusherWritesOncePerPublish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &state.Store{}
	sink := &recordingFlusher{}
	StartFlusher(ctx, store, sink, time.Millisecond)

	// Nothing published yet: the flusher must stay quiet.
	time.Sleep(20 * time.Millisecond)
	if got := sink.count(); got != 0 {
		t.Fatalf("flushed %d frames before any publish, want 0", got)
	}

	store.Publish(bitmap.New(4, 4))
	deadline := time.Now().Add(time.Second)
	for sink.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := sink.count(); got != 1 {
		t.Fatalf("flushed %d frames after one publish, want 1", got)
	}

	// An unchanged frame is not re-written.
	time.Sleep(20 * time.Millisecond)
	if got := sink.count(); got != 1 {
		t.Fatalf("flushed %d frames with no new publish, want 1", got)
	}
}
