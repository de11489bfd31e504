package ioboard

import (
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultBaudRate is fixed by the board firmware: 38400 baud, 8 data bits,
// no parity, 1 stop bit.
const DefaultBaudRate = 38400

// Port owns one physical or virtual serial device. Reads are bounded by a
// poll timeout and unblocked by Close through a self-pipe; writes are
// serialized so a frame is never interleaved with another writer's bytes.
type Port struct {
	fd        int
	file      *os.File
	device    string
	done      chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex
	pipeR     int // self-pipe read fd
	pipeW     int // self-pipe write fd
}

// OpenPort opens the serial device in raw mode. baud 0 selects
// DefaultBaudRate; other rates must be in the supported termios set.
func OpenPort(device string, baud int) (*Port, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	speed, err := baudToUnix(baud)
	if err != nil {
		return nil, err
	}

	fd, err := syscall.Open(device, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0666)
	if err != nil {
		return nil, &TransportError{Op: "open", Err: err}
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		syscall.Close(fd)
		return nil, &TransportError{Op: "get termios", Err: err}
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN

	// 8N1
	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= speed

	// VMIN=1, VTIME=0 for immediate, non-blocking reads
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		syscall.Close(fd)
		return nil, &TransportError{Op: "set termios", Err: err}
	}

	// Turn back into blocking mode now that config is done
	syscall.SetNonblock(fd, false)

	// Create self-pipe so Close can wake a blocked poll
	pipeFds := make([]int, 2)
	if err := unix.Pipe(pipeFds); err != nil {
		syscall.Close(fd)
		return nil, &TransportError{Op: "pipe", Err: err}
	}

	return &Port{
		fd:     fd,
		file:   os.NewFile(uintptr(fd), device),
		device: device,
		done:   make(chan struct{}),
		pipeR:  pipeFds[0],
		pipeW:  pipeFds[1],
	}, nil
}

// Read waits up to timeout for incoming bytes and reads at most len(p) of
// them. A poll timeout returns (0, nil). Close unblocks a pending Read with
// ErrLinkClosed; any OS-level failure is a *TransportError.
func (p *Port) Read(buf []byte, timeout time.Duration) (int, error) {
	for {
		pfd := []unix.PollFd{
			{Fd: int32(p.fd), Events: unix.POLLIN},
			{Fd: int32(p.pipeR), Events: unix.POLLIN},
		}
		n, err := unix.Poll(pfd, int(timeout.Milliseconds()))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, &TransportError{Op: "poll", Err: err}
		}
		if n == 0 {
			return 0, nil
		}
		select {
		case <-p.done:
			return 0, ErrLinkClosed
		default:
		}
		if pfd[1].Revents&unix.POLLIN != 0 {
			// Drain pipe
			var b [1]byte
			unix.Read(p.pipeR, b[:])
			return 0, ErrLinkClosed
		}
		if pfd[0].Revents != 0 {
			// POLLHUP/POLLERR surface as a read error below.
			rn, rerr := p.file.Read(buf)
			if rerr != nil {
				return 0, &TransportError{Op: "read", Err: rerr}
			}
			return rn, nil
		}
	}
}

// Write sends the whole buffer. Concurrent writers are serialized; a short
// write is an error, never retried here.
func (p *Port) Write(data []byte) (int, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	select {
	case <-p.done:
		return 0, ErrLinkClosed
	default:
	}

	n, err := p.file.Write(data)
	if err != nil {
		return n, &TransportError{Op: "write", Err: err}
	}
	if n != len(data) {
		return n, &TransportError{Op: "write", Err: io.ErrShortWrite}
	}
	return n, nil
}

// Device returns the device path this port was opened with.
func (p *Port) Device() string { return p.device }

// Close releases the device and unblocks any pending Read.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		// Wake up poll using self-pipe
		if p.pipeW > 0 {
			unix.Write(p.pipeW, []byte{1})
		}
		if p.file != nil {
			err = p.file.Close()
		}
		if p.pipeR > 0 {
			unix.Close(p.pipeR)
		}
		if p.pipeW > 0 {
			unix.Close(p.pipeW)
		}
	})
	return err
}

func baudToUnix(baud int) (uint32, error) {
	switch baud {
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	default:
		return 0, fmt.Errorf("ioboard: unsupported baud rate %d", baud)
	}
}
