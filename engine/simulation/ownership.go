package simulation

import (
	"fmt"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

type Window uint8

const (
	WINDOW_NONE Window = iota
	WINDOW_WRITE
	WINDOW_READ
)

func (w Window) String() string {
	switch w {
	case WINDOW_WRITE:
		return "write"
	case WINDOW_READ:
		return "read"
	}
	return "none"
}

// OwnershipLedger tracks the access windows opened on graphics visible
// buffers. Writes by compute and reads by graphics must strictly alternate.
type OwnershipLedger struct {
	last   map[metadata.BufferHandle]Window
	counts map[metadata.BufferHandle]uint64
}

func NewOwnershipLedger() *OwnershipLedger {
	return &OwnershipLedger{
		last:   make(map[metadata.BufferHandle]Window),
		counts: make(map[metadata.BufferHandle]uint64),
	}
}

// Open records a new window on buffer. The first window of a buffer may be
// of either kind.
func (l *OwnershipLedger) Open(buffer metadata.BufferHandle, w Window) error {
	if prev := l.last[buffer]; prev == w {
		return fmt.Errorf("%w: buffer %d got two consecutive %s windows", core.ErrOwnershipViolation, buffer, w)
	}
	l.last[buffer] = w
	l.counts[buffer]++
	return nil
}

// Last is the kind of the most recent window of buffer.
func (l *OwnershipLedger) Last(buffer metadata.BufferHandle) Window {
	return l.last[buffer]
}

// Windows is the number of windows opened on buffer.
func (l *OwnershipLedger) Windows(buffer metadata.BufferHandle) uint64 {
	return l.counts[buffer]
}
