package ioboard

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the protocol engine's Prometheus instrumentation. It is
// optional: a nil *Metrics on Config disables collection entirely.
type Metrics struct {
	FramesDecoded   prometheus.Counter
	ChecksumErrors  prometheus.Counter
	BytesDiscarded  prometheus.Counter
	StaleFrames     prometheus.Counter
	CommandsWritten prometheus.Counter
	CommandRetries  prometheus.Counter
	CommandTimeouts prometheus.Counter
}

// NewMetrics registers the engine's counters with reg and returns them.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ioboard_frames_decoded_total",
			Help: "Frames decoded with a valid checksum.",
		}),
		ChecksumErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ioboard_checksum_errors_total",
			Help: "Frames discarded due to LRC mismatch.",
		}),
		BytesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ioboard_bytes_discarded_total",
			Help: "Garbage bytes skipped during resynchronization.",
		}),
		StaleFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ioboard_stale_frames_total",
			Help: "Valid frames that matched no outstanding request.",
		}),
		CommandsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ioboard_commands_written_total",
			Help: "Command frames written to the wire, retries included.",
		}),
		CommandRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ioboard_command_retries_total",
			Help: "Command attempts re-issued after a response timeout.",
		}),
		CommandTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ioboard_command_timeouts_total",
			Help: "Commands that failed after exhausting their attempt budget.",
		}),
	}
	reg.MustRegister(
		m.FramesDecoded, m.ChecksumErrors, m.BytesDiscarded, m.StaleFrames,
		m.CommandsWritten, m.CommandRetries, m.CommandTimeouts,
	)
	return m
}
