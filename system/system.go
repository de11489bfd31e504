// Package system exposes the board's management registers: production
// number, error history, and the reset commands.
package system

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	ioboard "github.com/luhtfiimanal/go-ioboard"
)

const (
	// ProductionNumberLen is the width of the RQ-MI response field and the
	// maximum accepted by MC-WP.
	ProductionNumberLen = 11
	// ErrorHistoryCount is the number of RQ-ER entries the board retains.
	ErrorHistoryCount = 4
	// ErrorEntrySize is the width of one RQ-ER entry in ASCII characters.
	ErrorEntrySize = 4
)

// Info is the RQ-MI response.
type Info struct {
	ProductionNumber string
	Raw              []byte
}

// ErrorEntry is one slot of the board's error history.
type ErrorEntry struct {
	Index int // 1-based slot number
	Code  string
}

func (e ErrorEntry) String() string { return fmt.Sprintf("Error %d: %s", e.Index, e.Code) }

// Manager drives the system registers over an open board link.
type Manager struct {
	exec ioboard.Executor
	log  *zap.Logger
}

// New returns a Manager using exec for command execution. A nil logger
// disables logging.
func New(exec ioboard.Executor, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{exec: exec, log: log}
}

// Info queries the production number (RQ-MI).
func (m *Manager) Info() (Info, error) {
	fr, err := m.exec.Execute(ioboard.CmdRequest, ioboard.SubMachineInfo, nil)
	if err != nil {
		return Info{}, fmt.Errorf("machine info: %w", err)
	}
	data := fr.Data
	if len(data) > ProductionNumberLen {
		data = data[:ProductionNumberLen]
	}
	return Info{
		ProductionNumber: strings.TrimSpace(string(data)),
		Raw:              append([]byte(nil), fr.Data...),
	}, nil
}

// SetProductionNumber writes a new production number (MC-WP). The number
// must be non-empty ASCII of at most ProductionNumberLen characters.
func (m *Manager) SetProductionNumber(number string) error {
	if number == "" {
		return fmt.Errorf("set production number: empty")
	}
	if len(number) > ProductionNumberLen {
		return fmt.Errorf("set production number: %q exceeds %d characters", number, ProductionNumberLen)
	}
	for i := 0; i < len(number); i++ {
		if number[i] > 0x7F {
			return fmt.Errorf("set production number: %q is not ASCII", number)
		}
	}
	if _, err := m.exec.Execute(ioboard.CmdControl, ioboard.SubWriteProduction, []byte(number)); err != nil {
		return fmt.Errorf("set production number: %w", err)
	}
	m.log.Info("production number set", zap.String("number", number))
	return nil
}

// ErrorHistory queries the board's retained error codes (RQ-ER): 4 entries
// of 4 ASCII characters. Empty slots yield entries with an empty Code.
func (m *Manager) ErrorHistory() ([]ErrorEntry, error) {
	fr, err := m.exec.Execute(ioboard.CmdRequest, ioboard.SubErrorHistory, nil)
	if err != nil {
		return nil, fmt.Errorf("error history: %w", err)
	}
	data := fr.Data

	entries := make([]ErrorEntry, 0, ErrorHistoryCount)
	for i := 0; i < ErrorHistoryCount; i++ {
		start := i * ErrorEntrySize
		end := start + ErrorEntrySize
		code := ""
		if start < len(data) {
			if end > len(data) {
				end = len(data)
			}
			code = strings.TrimSpace(string(data[start:end]))
		}
		entries = append(entries, ErrorEntry{Index: i + 1, Code: code})
	}
	return entries, nil
}

// ClearErrorHistory resets the error history (MC-EZ).
func (m *Manager) ClearErrorHistory() error {
	if _, err := m.exec.Execute(ioboard.CmdControl, ioboard.SubErrorZero, nil); err != nil {
		return fmt.Errorf("clear error history: %w", err)
	}
	m.log.Info("error history cleared")
	return nil
}

// FactoryReset restores factory defaults (MC-PD). All board settings,
// including the production number and calibration, are cleared.
func (m *Manager) FactoryReset() error {
	m.log.Warn("executing factory reset")
	if _, err := m.exec.Execute(ioboard.CmdControl, ioboard.SubFactoryDefault, nil); err != nil {
		return fmt.Errorf("factory reset: %w", err)
	}
	return nil
}

// Reset restarts the board firmware (MC-RT).
func (m *Manager) Reset() error {
	if _, err := m.exec.Execute(ioboard.CmdControl, ioboard.SubReset, nil); err != nil {
		return fmt.Errorf("system reset: %w", err)
	}
	m.log.Info("system reset completed")
	return nil
}
