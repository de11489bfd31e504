package ioboard

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// pollInterval bounds how long the reader loop blocks in a single
// Port.Read, so link closure is observed promptly.
const pollInterval = 50 * time.Millisecond

// Config holds the parameters for opening a link to the board.
type Config struct {
	Device      string
	BaudRate    int           // default 38400
	Timeout     time.Duration // per-attempt response timeout, default 1s
	MaxAttempts int           // default 3
	RetryDelay  time.Duration // pause between attempts, default 100ms
	Logger      *zap.Logger   // default zap.NewNop()
	Metrics     *Metrics      // optional
}

func (c *Config) applyDefaults() {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	} else if c.RetryDelay == 0 {
		c.RetryDelay = 100 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

type result struct {
	frame Frame
	err   error
}

// pendingRequest is the single in-flight record awaiting a response. The
// done channel is buffered so the fulfilling side never blocks; removal
// from Conn.pending under the mutex guarantees exactly one fulfillment.
type pendingRequest struct {
	cmd       Command
	sub       SubCommand
	submitted time.Time
	done      chan result
}

// Conn is one open link to the board. It is safe for concurrent use by
// multiple goroutines; calls are serviced strictly in arrival order with at
// most one frame in flight on the wire.
type Conn struct {
	cfg  Config
	port *Port
	log  *zap.Logger
	met  *Metrics

	mu      sync.Mutex
	pending *pendingRequest
	busy    bool            // a caller holds the wire
	turns   []chan struct{} // FIFO queue of waiting callers
	closed  bool

	readerDone chan struct{}
}

// Open opens the serial device and starts the background reader.
func Open(cfg Config) (*Conn, error) {
	cfg.applyDefaults()
	port, err := OpenPort(cfg.Device, cfg.BaudRate)
	if err != nil {
		return nil, err
	}
	c := &Conn{
		cfg:        cfg,
		port:       port,
		log:        cfg.Logger,
		met:        cfg.Metrics,
		readerDone: make(chan struct{}),
	}
	go c.readLoop()
	c.log.Info("link opened", zap.String("device", cfg.Device), zap.Int("baud", cfg.BaudRate))
	return c, nil
}

// Execute sends one command and blocks until its response, using the
// configured timeout and attempt budget.
func (c *Conn) Execute(cmd Command, sub SubCommand, data []byte) (Frame, error) {
	return c.ExecuteWith(cmd, sub, data, c.cfg.Timeout, c.cfg.MaxAttempts)
}

// errAttemptTimeout distinguishes a retryable per-attempt timeout from the
// fatal failures inside an attempt.
var errAttemptTimeout = errors.New("attempt timed out")

// ExecuteWith sends one command with an explicit per-attempt timeout and
// attempt budget. On timeout the identical encoded frame is re-submitted;
// after maxAttempts the call fails with *TimeoutError. Checksum failures on
// the wire are not separate failures: they count against the running
// attempt's timeout window.
func (c *Conn) ExecuteWith(cmd Command, sub SubCommand, data []byte, timeout time.Duration, maxAttempts int) (Frame, error) {
	wire, err := (Frame{Command: cmd, SubCommand: sub, Data: data}).Encode()
	if err != nil {
		return Frame{}, err
	}
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.attempt(cmd, sub, wire, timeout)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, errAttemptTimeout) {
			return Frame{}, err
		}
		c.log.Warn("no response, retrying",
			zap.Stringer("cmd", cmd), zap.Stringer("sub", sub),
			zap.Int("attempt", attempt), zap.Int("max", maxAttempts))
		if attempt < maxAttempts {
			if c.met != nil {
				c.met.CommandRetries.Inc()
			}
			if c.cfg.RetryDelay > 0 {
				time.Sleep(c.cfg.RetryDelay)
			}
		}
	}
	if c.met != nil {
		c.met.CommandTimeouts.Inc()
	}
	return Frame{}, &TimeoutError{Command: cmd, SubCommand: sub, Attempts: maxAttempts, Timeout: timeout}
}

// attempt performs one full submit/await cycle while holding the wire turn.
func (c *Conn) attempt(cmd Command, sub SubCommand, wire []byte, timeout time.Duration) (Frame, error) {
	if err := c.acquire(); err != nil {
		return Frame{}, err
	}
	defer c.release()

	p := &pendingRequest{cmd: cmd, sub: sub, submitted: time.Now(), done: make(chan result, 1)}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Frame{}, ErrLinkClosed
	}
	c.pending = p
	c.mu.Unlock()

	if _, err := c.port.Write(wire); err != nil {
		c.remove(p)
		if errors.Is(err, ErrLinkClosed) {
			return Frame{}, ErrLinkClosed
		}
		// A failed or partial write is fatal to the link.
		c.log.Error("write failed, closing link", zap.Error(err))
		c.shutdown()
		return Frame{}, err
	}
	if c.met != nil {
		c.met.CommandsWritten.Inc()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-p.done:
		return res.frame, res.err
	case <-timer.C:
		c.mu.Lock()
		if c.pending == p {
			// Remove the registration before the next caller writes, so a
			// late response cannot leak into an unrelated call.
			c.pending = nil
			c.mu.Unlock()
			return Frame{}, errAttemptTimeout
		}
		c.mu.Unlock()
		// Fulfilled between timer expiry and lock acquisition.
		res := <-p.done
		return res.frame, res.err
	}
}

// acquire blocks until the caller owns the wire, strictly FIFO.
func (c *Conn) acquire() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrLinkClosed
	}
	if !c.busy {
		c.busy = true
		c.mu.Unlock()
		return nil
	}
	turn := make(chan struct{})
	c.turns = append(c.turns, turn)
	c.mu.Unlock()

	<-turn
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrLinkClosed
	}
	return nil
}

// release hands the wire to the next queued caller, or marks it idle.
func (c *Conn) release() {
	c.mu.Lock()
	if len(c.turns) > 0 {
		turn := c.turns[0]
		c.turns = c.turns[1:]
		c.mu.Unlock()
		close(turn) // ownership transfers, busy stays true
		return
	}
	c.busy = false
	c.mu.Unlock()
}

// remove clears p's registration if it is still the outstanding request.
func (c *Conn) remove(p *pendingRequest) {
	c.mu.Lock()
	if c.pending == p {
		c.pending = nil
	}
	c.mu.Unlock()
}

// readLoop is the background execution unit owning the accumulation buffer.
func (c *Conn) readLoop() {
	defer close(c.readerDone)
	dec := NewDecoder()
	buf := make([]byte, MaxFrameSize)
	for {
		n, err := c.port.Read(buf, pollInterval)
		if err != nil {
			if !errors.Is(err, ErrLinkClosed) {
				c.log.Error("transport failure, closing link", zap.Error(err))
			}
			c.shutdown()
			return
		}
		if n == 0 {
			continue
		}
		dec.Feed(buf[:n])
		for {
			fr, derr := dec.Next()
			if derr != nil {
				c.log.Warn("discarding frame with bad checksum")
				if c.met != nil {
					c.met.ChecksumErrors.Inc()
				}
				continue
			}
			if fr == nil {
				break
			}
			if c.met != nil {
				c.met.FramesDecoded.Inc()
			}
			c.deliver(*fr)
		}
		if skipped := dec.TakeDiscarded(); skipped > 0 {
			c.log.Warn("skipped garbage bytes", zap.Int("count", skipped))
			if c.met != nil {
				c.met.BytesDiscarded.Add(float64(skipped))
			}
		}
	}
}

// deliver routes a decoded frame to the outstanding request, if it matches.
func (c *Conn) deliver(fr Frame) {
	c.mu.Lock()
	p := c.pending
	if p != nil && p.cmd == fr.Command && p.sub == fr.SubCommand {
		c.pending = nil
		c.mu.Unlock()
		p.done <- result{frame: fr}
		return
	}
	c.mu.Unlock()
	c.log.Warn("discarding stale frame",
		zap.Stringer("cmd", fr.Command), zap.Stringer("sub", fr.SubCommand))
	if c.met != nil {
		c.met.StaleFrames.Inc()
	}
}

// shutdown transitions to Closed exactly once, releasing the pending
// request and every queued caller with ErrLinkClosed.
func (c *Conn) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	p := c.pending
	c.pending = nil
	turns := c.turns
	c.turns = nil
	c.mu.Unlock()

	if p != nil {
		p.done <- result{err: ErrLinkClosed}
	}
	for _, turn := range turns {
		close(turn)
	}
	c.port.Close()
}

// Close tears the link down: the reader loop stops, the port is released,
// and every pending or queued Execute observes ErrLinkClosed.
// Safe to call multiple times.
func (c *Conn) Close() error {
	c.shutdown()
	<-c.readerDone
	c.log.Info("link closed", zap.String("device", c.cfg.Device))
	return nil
}
