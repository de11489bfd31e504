package ioboard

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrFrameTooLarge is returned by Frame.Encode when the data segment
	// exceeds MaxDataSize. No bytes are written to the wire.
	ErrFrameTooLarge = errors.New("ioboard: frame data exceeds maximum size")

	// ErrChecksum is reported by the Decoder for a structurally complete
	// frame whose trailing LRC does not match. The frame bytes are consumed;
	// the caller's pending request, if any, keeps waiting for its timeout.
	ErrChecksum = errors.New("ioboard: LRC checksum mismatch")

	// ErrLinkClosed is returned to callers whose Execute was outstanding or
	// queued when the link closed, and to every Execute after closure.
	ErrLinkClosed = errors.New("ioboard: link closed")
)

// TimeoutError is returned by Execute after the full attempt budget elapsed
// without a matching response.
type TimeoutError struct {
	Command    Command
	SubCommand SubCommand
	Attempts   int
	Timeout    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("ioboard: command %s-%s timed out after %d attempt(s) of %s",
		e.Command, e.SubCommand, e.Attempts, e.Timeout)
}

// TransportError wraps an OS-level serial I/O failure. It is fatal to the
// connection: every pending and future call fails until a new Open.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("ioboard: serial %s: %v", e.Op, e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }
