package ioboard

// Command classes understood by the board.
var (
	CmdControl = Command{'M', 'C'} // machine control
	CmdRequest = Command{'R', 'Q'} // status/data request
)

// Subcommands. The protocol engine never interprets these; they are listed
// for the device subsystems layered on top.
var (
	SubDoorControl     = SubCommand{'D', 'C'} // deadbolt open/close
	SubDoorStatus      = SubCommand{'I', 'D'} // door/lock status
	SubWeight          = SubCommand{'I', 'W'} // load cell weights
	SubLoadZero        = SubCommand{'L', 'Z'} // load cell zero calibration
	SubMachineInfo     = SubCommand{'M', 'I'} // production number
	SubErrorHistory    = SubCommand{'E', 'R'} // error history
	SubErrorZero       = SubCommand{'E', 'Z'} // clear error history
	SubWriteProduction = SubCommand{'W', 'P'} // write production number
	SubFactoryDefault  = SubCommand{'P', 'D'} // factory reset
	SubReset           = SubCommand{'R', 'T'} // system reset
)

// Executor is the contract the device subsystems (deadbolt, loadcell,
// system) program against. *Conn implements it.
type Executor interface {
	Execute(cmd Command, sub SubCommand, data []byte) (Frame, error)
}
