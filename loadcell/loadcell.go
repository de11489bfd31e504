// Package loadcell reads the board's 10-channel weight sensor (RQ-IW) and
// drives its zero calibration (MC-LZ).
package loadcell

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	ioboard "github.com/luhtfiimanal/go-ioboard"
)

const (
	// NumChannels is fixed by the board hardware.
	NumChannels = 10
	// BytesPerChannel is the width of one channel's ASCII field in the
	// RQ-IW response.
	BytesPerChannel = 6

	totalDataBytes = NumChannels * BytesPerChannel
)

// Reading is one channel's measurement. Raw keeps the unparsed ASCII field
// ("-00123", "+00456", "   125", ...).
type Reading struct {
	Channel int
	Value   float64
	Raw     string
}

func (r Reading) String() string {
	return fmt.Sprintf("LC%d: %g (raw: %q)", r.Channel, r.Value, r.Raw)
}

// LoadCell reads the weight sensor over an open board link.
type LoadCell struct {
	exec ioboard.Executor
	log  *zap.Logger

	mu   sync.Mutex
	last []Reading
}

// New returns a LoadCell using exec for command execution. A nil logger
// disables logging.
func New(exec ioboard.Executor, log *zap.Logger) *LoadCell {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoadCell{exec: exec, log: log}
}

// ReadAll queries every channel (RQ-IW). The response carries 10 fields of
// 6 ASCII characters each; blank or non-numeric fields decode to 0 with a
// logged warning rather than failing the whole read.
func (l *LoadCell) ReadAll() ([]Reading, error) {
	fr, err := l.exec.Execute(ioboard.CmdRequest, ioboard.SubWeight, nil)
	if err != nil {
		return nil, fmt.Errorf("weight query: %w", err)
	}
	data := fr.Data
	if len(data) < totalDataBytes {
		l.log.Warn("incomplete weight response",
			zap.Int("expected", totalDataBytes), zap.Int("got", len(data)))
	}

	readings := make([]Reading, 0, NumChannels)
	for ch := 0; ch < NumChannels; ch++ {
		start := ch * BytesPerChannel
		end := start + BytesPerChannel
		if start >= len(data) {
			readings = append(readings, Reading{Channel: ch + 1})
			continue
		}
		if end > len(data) {
			end = len(data)
		}
		raw := strings.TrimSpace(string(data[start:end]))
		if raw == "" {
			readings = append(readings, Reading{Channel: ch + 1})
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			l.log.Warn("invalid channel value", zap.Int("channel", ch+1), zap.String("raw", raw))
			value = 0
		}
		readings = append(readings, Reading{Channel: ch + 1, Value: value, Raw: raw})
	}

	l.mu.Lock()
	l.last = readings
	l.mu.Unlock()
	return readings, nil
}

// ReadChannel queries one channel (1-based). The board has no per-channel
// command, so this is a full read with selection.
func (l *LoadCell) ReadChannel(channel int) (Reading, error) {
	if channel < 1 || channel > NumChannels {
		return Reading{}, fmt.Errorf("invalid channel %d (valid: 1-%d)", channel, NumChannels)
	}
	readings, err := l.ReadAll()
	if err != nil {
		return Reading{}, err
	}
	return readings[channel-1], nil
}

// LastReadings returns the result of the most recent ReadAll without
// issuing a new query, or nil if none has completed yet.
func (l *LoadCell) LastReadings() []Reading {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// TotalWeight reads all channels and sums them.
func (l *LoadCell) TotalWeight() (float64, error) {
	readings, err := l.ReadAll()
	if err != nil {
		return 0, err
	}
	var total float64
	for _, r := range readings {
		total += r.Value
	}
	return total, nil
}

// Zero performs the zero-point calibration (MC-LZ).
func (l *LoadCell) Zero() error {
	if _, err := l.exec.Execute(ioboard.CmdControl, ioboard.SubLoadZero, nil); err != nil {
		return fmt.Errorf("zero calibration: %w", err)
	}
	l.log.Info("load cell zero calibration completed")
	return nil
}
