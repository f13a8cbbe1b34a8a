// Package buttons turns the gpio-keys event device into the three-event
// input protocol the menu understands.
package buttons

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alschwalm/piso/internal/menu"
)

// inputEvent mirrors the kernel's struct input_event on 64-bit platforms.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

const (
	evKey    = 0x01
	keyPress = 1

	// gpio-keys codes wired on the board.
	keyEnter = 28  // select button
	keyUp    = 103 // previous button
	keyDown  = 108 // next button
)

// Reader delivers button presses from one event device.
type Reader struct {
	f   *os.File
	log *slog.Logger
}

// Open prepares the event device for reading.
func Open(path string, log *slog.Logger) (*Reader, error) {
	if log == nil {
		log = slog.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open buttons %s: %w", path, err)
	}
	return &Reader{f: f, log: log}, nil
}

// Events starts a reader goroutine and returns its channel. The channel
// closes when the context is cancelled or the device goes away. Release
// and repeat events are dropped; only presses navigate.
func (r *Reader) Events(ctx context.Context) <-chan menu.Event {
	out := make(chan menu.Event)

	go func() {
		// Unblock the blocking read below on cancellation.
		<-ctx.Done()
		_ = r.f.Close()
	}()

	go func() {
		defer close(out)
		for {
			var ev inputEvent
			if err := binary.Read(r.f, binary.LittleEndian, &ev); err != nil {
				if ctx.Err() == nil && !errors.Is(err, io.EOF) {
					r.log.Error("buttons read failed", "error", err)
				}
				return
			}
			if ev.Type != evKey || ev.Value != keyPress {
				continue
			}
			var mapped menu.Event
			switch ev.Code {
			case keyEnter:
				mapped = menu.EventSelect
			case keyDown:
				mapped = menu.EventNext
			case keyUp:
				mapped = menu.EventPrev
			default:
				continue
			}
			select {
			case out <- mapped:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
