package ioboard

// Protocol constants shared by the codec and the transport. MaxFrameSize
// mirrors the 500-byte receive buffer of the board firmware.
const (
	STX = 0x02
	ETX = 0x03

	headerSize    = 5 // STX + CMD(2) + SUBCMD(2)
	frameOverhead = 7 // STX + CMD(2) + SUBCMD(2) + ETX + LRC

	MaxFrameSize = 500
	MaxDataSize  = MaxFrameSize - frameOverhead
)

// Command is the 2-byte ASCII command class ("MC" control, "RQ" request).
type Command [2]byte

func (c Command) String() string { return string(c[:]) }

// SubCommand is the 2-byte ASCII operation selector.
type SubCommand [2]byte

func (s SubCommand) String() string { return string(s[:]) }

// Frame is the unit of exchange with the board. Frames are value objects;
// Data is treated as opaque bytes by the protocol engine.
type Frame struct {
	Command    Command
	SubCommand SubCommand
	Data       []byte
}

// Encode serializes the frame into its wire form, appending the LRC byte.
// Frames whose data exceeds MaxDataSize are rejected before any I/O.
func (f Frame) Encode() ([]byte, error) {
	if len(f.Data) > MaxDataSize {
		return nil, ErrFrameTooLarge
	}
	out := make([]byte, 0, len(f.Data)+frameOverhead)
	out = append(out, STX)
	out = append(out, f.Command[:]...)
	out = append(out, f.SubCommand[:]...)
	out = append(out, f.Data...)
	out = append(out, ETX)
	out = append(out, LRC(out[1:]))
	return out, nil
}

// LRC computes the longitudinal redundancy check: the bytewise XOR over p.
// The firmware computes it over CMD through ETX inclusive, STX excluded, so
// callers pass frame[1:etx+1].
func LRC(p []byte) byte {
	var lrc byte
	for _, b := range p {
		lrc ^= b
	}
	return lrc
}
