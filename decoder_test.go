package ioboard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustEncode(t *testing.T, f Frame) []byte {
	t.Helper()
	wire, err := f.Encode()
	require.NoError(t, err)
	return wire
}

func TestDecoder_NeedMoreBytes(t *testing.T) {
	wire := mustEncode(t, Frame{Command: CmdRequest, SubCommand: SubDoorStatus})

	dec := NewDecoder()
	for i := 0; i < len(wire)-1; i++ {
		dec.Feed(wire[i : i+1])
		fr, err := dec.Next()
		require.NoError(t, err)
		require.Nil(t, fr, "frame resolved before final byte arrived")
	}
	dec.Feed(wire[len(wire)-1:])
	fr, err := dec.Next()
	require.NoError(t, err)
	require.NotNil(t, fr)
	require.Equal(t, CmdRequest, fr.Command)
	require.Equal(t, SubDoorStatus, fr.SubCommand)
}

func TestDecoder_ResyncAroundGarbage(t *testing.T) {
	first := mustEncode(t, Frame{Command: CmdControl, SubCommand: SubDoorControl, Data: []byte{'O'}})
	second := mustEncode(t, Frame{Command: CmdRequest, SubCommand: SubWeight, Data: []byte("000100")})

	var stream []byte
	stream = append(stream, 0xFF, 0x00, 0x7E)
	stream = append(stream, first...)
	stream = append(stream, 0xAA, 0x55, 0x01)
	stream = append(stream, second...)

	// Feed in 3-byte chunks to simulate arbitrary chunk boundaries.
	dec := NewDecoder()
	var frames []Frame
	for i := 0; i < len(stream); i += 3 {
		end := i + 3
		if end > len(stream) {
			end = len(stream)
		}
		dec.Feed(stream[i:end])
		for {
			fr, err := dec.Next()
			require.NoError(t, err)
			if fr == nil {
				break
			}
			frames = append(frames, *fr)
		}
	}

	require.Len(t, frames, 2)
	require.Equal(t, SubDoorControl, frames[0].SubCommand)
	require.Equal(t, []byte{'O'}, frames[0].Data)
	require.Equal(t, SubWeight, frames[1].SubCommand)
	require.Equal(t, []byte("000100"), frames[1].Data)
	require.Positive(t, dec.TakeDiscarded())
}

func TestDecoder_ChecksumMismatchConsumesFrame(t *testing.T) {
	bad := mustEncode(t, Frame{Command: CmdControl, SubCommand: SubLoadZero})
	bad[len(bad)-1] ^= 0xFF
	good := mustEncode(t, Frame{Command: CmdControl, SubCommand: SubLoadZero})

	dec := NewDecoder()
	dec.Feed(bad)
	dec.Feed(good)

	fr, err := dec.Next()
	require.ErrorIs(t, err, ErrChecksum)
	require.Nil(t, fr)

	fr, err = dec.Next()
	require.NoError(t, err)
	require.NotNil(t, fr)
	require.Equal(t, SubLoadZero, fr.SubCommand)
}

func TestDecoder_AbandonsUnterminatedPrefix(t *testing.T) {
	dec := NewDecoder()
	// An STX followed by more than a full frame's worth of bytes that never
	// contain ETX must not wedge the decoder.
	junk := make([]byte, MaxFrameSize+10)
	junk[0] = STX
	for i := 1; i < len(junk); i++ {
		junk[i] = 'A'
	}
	dec.Feed(junk)
	fr, err := dec.Next()
	require.NoError(t, err)
	require.Nil(t, fr)

	// A valid frame behind the junk is still recovered.
	wire := mustEncode(t, Frame{Command: CmdRequest, SubCommand: SubMachineInfo})
	dec.Feed(wire)
	fr, err = dec.Next()
	require.NoError(t, err)
	require.NotNil(t, fr)
	require.Equal(t, SubMachineInfo, fr.SubCommand)
}

func TestDecoder_DataIsCopied(t *testing.T) {
	wire := mustEncode(t, Frame{Command: CmdRequest, SubCommand: SubMachineInfo, Data: []byte("PROD1234567")})

	dec := NewDecoder()
	dec.Feed(wire)
	fr, err := dec.Next()
	require.NoError(t, err)
	require.NotNil(t, fr)

	// Later feeds must not clobber an already delivered frame.
	dec.Feed(mustEncode(t, Frame{Command: CmdRequest, SubCommand: SubErrorHistory, Data: []byte("E001E002E003")}))
	_, _ = dec.Next()
	require.Equal(t, "PROD1234567", string(fr.Data))
}
