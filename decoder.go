package ioboard

import "bytes"

// Decoder extracts frames from an accumulated byte stream. It never consumes
// bytes it cannot fully resolve: an incomplete tail stays buffered until more
// input arrives. Garbage before a start marker is skipped and counted.
//
// DATA is delimited purely by the position of ETX; the board's payloads are
// ASCII, so 0x03 cannot occur inside the data segment.
type Decoder struct {
	buf       []byte
	discarded int
}

// NewDecoder returns an empty stream decoder.
func NewDecoder() *Decoder { return &Decoder{} }

// Feed appends raw bytes read from the transport.
func (d *Decoder) Feed(p []byte) { d.buf = append(d.buf, p...) }

// Next resolves the next frame from the buffer.
//
//	frame, nil  — one complete, LRC-valid frame (Data is a copy)
//	nil, nil    — need more bytes; buffer retained
//	nil, ErrChecksum — a frame-shaped sequence failed validation and was
//	                   consumed; call Next again for the following bytes
func (d *Decoder) Next() (*Frame, error) {
	for {
		// Resynchronize: drop everything before the next STX.
		i := bytes.IndexByte(d.buf, STX)
		if i < 0 {
			d.discarded += len(d.buf)
			d.buf = d.buf[:0]
			return nil, nil
		}
		if i > 0 {
			d.discarded += i
			d.buf = d.buf[i:]
		}
		if len(d.buf) < frameOverhead {
			return nil, nil
		}

		j := bytes.IndexByte(d.buf[headerSize:], ETX)
		if j < 0 {
			if len(d.buf) > MaxFrameSize {
				// No terminator within the maximum frame size: this STX
				// cannot start a valid frame. Drop it and rescan.
				d.discarded++
				d.buf = d.buf[1:]
				continue
			}
			return nil, nil
		}
		etx := headerSize + j
		if len(d.buf) < etx+2 {
			// ETX seen but the LRC byte is still in flight.
			return nil, nil
		}

		raw := d.buf[:etx+2]
		if LRC(raw[1:etx+1]) != raw[etx+1] {
			d.buf = d.buf[etx+2:]
			return nil, ErrChecksum
		}

		fr := &Frame{
			Command:    Command{raw[1], raw[2]},
			SubCommand: SubCommand{raw[3], raw[4]},
			Data:       append([]byte(nil), raw[headerSize:etx]...),
		}
		d.buf = d.buf[etx+2:]
		return fr, nil
	}
}

// TakeDiscarded returns the number of garbage bytes skipped since the last
// call and resets the counter.
func (d *Decoder) TakeDiscarded() int {
	n := d.discarded
	d.discarded = 0
	return n
}
