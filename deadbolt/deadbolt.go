// Package deadbolt controls the door lock actuator through the board's
// MC-DC and RQ-ID commands. It depends only on the ioboard.Executor
// contract and never touches framing or retry internals.
package deadbolt

import (
	"fmt"

	"go.uber.org/zap"

	ioboard "github.com/luhtfiimanal/go-ioboard"
)

// DoorStatus is the physical door position reported by the board.
type DoorStatus string

const (
	DoorOpened  DoorStatus = "OPENED"
	DoorClosed  DoorStatus = "CLOSED"
	DoorUnknown DoorStatus = "UNKNOWN"
)

// LockStatus is the deadbolt position reported by the board.
type LockStatus string

const (
	Locked      LockStatus = "LOCK"
	Unlocked    LockStatus = "UNLOCK"
	LockUnknown LockStatus = "UNKNOWN"
)

// Status response layout: door byte at DATA[0], lock byte at DATA[6].
const minStatusResponse = 7

// DeadBolt drives the lock actuator over an open board link.
type DeadBolt struct {
	exec ioboard.Executor
	log  *zap.Logger
}

// New returns a DeadBolt using exec for command execution. A nil logger
// disables logging.
func New(exec ioboard.Executor, log *zap.Logger) *DeadBolt {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeadBolt{exec: exec, log: log}
}

// Open retracts the deadbolt (MC-DC 'O').
func (d *DeadBolt) Open() error {
	if _, err := d.exec.Execute(ioboard.CmdControl, ioboard.SubDoorControl, []byte{'O'}); err != nil {
		return fmt.Errorf("deadbolt open: %w", err)
	}
	d.log.Info("deadbolt opened")
	return nil
}

// Close extends the deadbolt (MC-DC 'C').
func (d *DeadBolt) Close() error {
	if _, err := d.exec.Execute(ioboard.CmdControl, ioboard.SubDoorControl, []byte{'C'}); err != nil {
		return fmt.Errorf("deadbolt close: %w", err)
	}
	d.log.Info("deadbolt closed")
	return nil
}

// Status queries the door and lock state (RQ-ID). Bytes the board reports
// outside the documented set map to DoorUnknown/LockUnknown rather than an
// error.
func (d *DeadBolt) Status() (DoorStatus, LockStatus, error) {
	fr, err := d.exec.Execute(ioboard.CmdRequest, ioboard.SubDoorStatus, nil)
	if err != nil {
		return DoorUnknown, LockUnknown, fmt.Errorf("door status: %w", err)
	}
	if len(fr.Data) < minStatusResponse {
		return DoorUnknown, LockUnknown, fmt.Errorf("door status: short response (%d bytes)", len(fr.Data))
	}

	door := DoorUnknown
	switch fr.Data[0] {
	case 'O':
		door = DoorOpened
	case 'C':
		door = DoorClosed
	default:
		d.log.Warn("unknown door byte", zap.Uint8("byte", fr.Data[0]))
	}

	lock := LockUnknown
	switch fr.Data[6] {
	case 'L':
		lock = Locked
	case 'U':
		lock = Unlocked
	default:
		d.log.Warn("unknown lock byte", zap.Uint8("byte", fr.Data[6]))
	}

	return door, lock, nil
}

// IsOpen reports whether the door is physically open.
func (d *DeadBolt) IsOpen() (bool, error) {
	door, _, err := d.Status()
	return door == DoorOpened, err
}

// IsLocked reports whether the deadbolt is extended.
func (d *DeadBolt) IsLocked() (bool, error) {
	_, lock, err := d.Status()
	return lock == Locked, err
}
