// Package ioboard implements the serial protocol spoken by the IO control
// board used in unattended locker/collection machines (deadbolt actuator,
// 10-channel load cell, system management registers).
//
// The board is driven over a point-to-point serial link at 38400 baud, 8N1,
// with a simple delimited frame format:
//
//	STX(0x02) | CMD(2B) | SUBCMD(2B) | DATA(0..nB) | ETX(0x03) | LRC(1B)
//
// where LRC is the XOR of every byte from CMD through ETX inclusive.
//
// The package owns exactly one serial link per Conn and multiplexes it
// across any number of goroutines: a background reader extracts frames from
// the byte stream, a correlator matches each response to the single
// outstanding request, and Execute blocks the caller until delivery,
// timeout, or link closure. Concurrent callers are serviced strictly in
// arrival order with at most one frame in flight on the wire.
//
// Features:
//   - Raw syscall-based serial I/O on Linux, no buffering delays
//   - Incremental frame decoding with garbage resynchronization
//   - Blocking request/response with per-call timeout and retry
//   - Safe for concurrent usage; Close unblocks every waiting caller
//   - PTY-based tests for reliability
//
// This package does **not** support Windows.
//
// Example usage:
//
//	conn, err := ioboard.Open(ioboard.Config{Device: "/dev/ttyUSB0"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	// Unlock the deadbolt (MC-DC, payload 'O')
//	resp, err := conn.Execute(ioboard.CmdControl, ioboard.SubDoorControl, []byte{'O'})
//	if err != nil {
//	    log.Println("Command failed:", err)
//	} else {
//	    fmt.Printf("ack %s-%s\n", resp.Command, resp.SubCommand)
//	}
//
// Device-specific helpers live in the deadbolt, loadcell and system
// subpackages; they depend only on the Executor contract and never touch
// framing or retry internals.
package ioboard
