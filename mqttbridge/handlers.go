package mqttbridge

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/luhtfiimanal/go-ioboard/deadbolt"
	"github.com/luhtfiimanal/go-ioboard/loadcell"
)

// DoorController is the slice of the deadbolt API the bridge drives.
type DoorController interface {
	Open() error
	Close() error
	Status() (deadbolt.DoorStatus, deadbolt.LockStatus, error)
}

// Weigher is the slice of the load cell API the bridge drives.
type Weigher interface {
	ReadAll() ([]loadcell.Reading, error)
}

// Rebooter restarts the board firmware.
type Rebooter interface {
	Reset() error
}

// Handlers maps platform commands onto the device subsystems. Any
// subsystem may be nil; the corresponding commands then report failure
// and health reports the device as not installed.
type Handlers struct {
	deviceIdx   string
	divisionIdx string

	door  DoorController
	scale Weigher
	sys   Rebooter
	log   *zap.Logger
}

// NewHandlers wires the subsystems to the command set for one device.
func NewHandlers(deviceIdx, divisionIdx string, door DoorController, scale Weigher, sys Rebooter, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{
		deviceIdx:   deviceIdx,
		divisionIdx: divisionIdx,
		door:        door,
		scale:       scale,
		sys:         sys,
		log:         log,
	}
}

// Handle routes a received command to its handler. ok is false when the
// interface ID has no inbound handler.
func (h *Handlers) Handle(msg Message) (resp Message, ok bool) {
	switch msg.Header.IFID {
	case IFReboot:
		return h.Reboot(msg), true
	case IFDoorManual:
		return h.DoorManual(msg), true
	case IFDoorCollect:
		return h.DoorCollect(msg), true
	case IFCollectProcess:
		return h.CollectProcess(msg), true
	}
	return Message{}, false
}

func (h *Handlers) response(ifID, sysID, resultCd, resultMsg string, extra map[string]any) Message {
	data := map[string]any{
		"device_idx":   h.deviceIdx,
		"division_idx": h.divisionIdx,
		"result_cd":    resultCd,
		"result_msg":   resultMsg,
	}
	for k, v := range extra {
		data[k] = v
	}
	return NewMessage(ifID, sysID, data)
}

// Reboot handles IF_01: restart the board firmware.
func (h *Handlers) Reboot(msg Message) Message {
	h.log.Info("reboot command received")

	resultCd, resultMsg := ResultSuccess, ""
	if h.sys == nil {
		h.log.Warn("no system manager wired, skipping reboot")
	} else if err := h.sys.Reset(); err != nil {
		resultCd, resultMsg = ResultFailure, err.Error()
		h.log.Error("reboot failed", zap.Error(err))
	}
	return h.response(IFReboot, msg.Header.IFSysID, resultCd, resultMsg, nil)
}

// Health builds the IF_02 status snapshot. Subsystems that are not wired
// report StatusNotInstalled; wired subsystems that fail their probe report
// StatusError.
func (h *Handlers) Health() Message {
	doorStatus := StatusNotInstalled
	if h.door != nil {
		doorStatus = StatusNormal
		door, lock, err := h.door.Status()
		if err != nil || door == deadbolt.DoorUnknown || lock == deadbolt.LockUnknown {
			doorStatus = StatusError
			if err != nil {
				h.log.Error("deadbolt health probe failed", zap.Error(err))
			}
		}
	}

	scaleStatus := StatusNotInstalled
	if h.scale != nil {
		scaleStatus = StatusNormal
		readings, err := h.scale.ReadAll()
		if err != nil || len(readings) == 0 {
			scaleStatus = StatusError
			if err != nil {
				h.log.Error("loadcell health probe failed", zap.Error(err))
			}
		}
	}

	return NewMessage(IFHealth, "", map[string]any{
		"device_idx":           h.deviceIdx,
		"division_idx":         h.divisionIdx,
		"camera_status":        StatusNotInstalled,
		"deadbolt_status":      doorStatus,
		"loadcell_status":      scaleStatus,
		"card_terminal_status": StatusNotInstalled,
	})
}

// DoorManual handles IF_03: open or close the door on operator request.
func (h *Handlers) DoorManual(msg Message) Message {
	doorState := stringField(msg.Data, "door_state")
	h.log.Info("door manual command received", zap.String("door_state", doorState))

	resultCd, resultMsg := ResultSuccess, ""
	if err := h.driveDoor(doorState); err != nil {
		resultCd, resultMsg = ResultFailure, err.Error()
		h.log.Error("door manual failed", zap.Error(err))
	}
	return h.response(IFDoorManual, msg.Header.IFSysID, resultCd, resultMsg,
		map[string]any{"door_state": doorState})
}

// DoorCollect handles IF_04: like DoorManual, but the acknowledgement also
// carries device status codes.
func (h *Handlers) DoorCollect(msg Message) Message {
	doorState := stringField(msg.Data, "door_state")
	h.log.Info("door collect command received", zap.String("door_state", doorState))

	resultCd, resultMsg := ResultSuccess, ""
	doorStatus := StatusNormal
	if err := h.driveDoor(doorState); err != nil {
		resultCd, resultMsg = ResultFailure, err.Error()
		doorStatus = StatusError
		h.log.Error("door collect failed", zap.Error(err))
	}
	if h.door == nil {
		doorStatus = StatusNotInstalled
	}

	scaleStatus := StatusNotInstalled
	if h.scale != nil {
		if readings, err := h.scale.ReadAll(); err == nil && len(readings) > 0 {
			scaleStatus = StatusNormal
		} else {
			scaleStatus = StatusError
		}
	}

	return h.response(IFDoorCollect, msg.Header.IFSysID, resultCd, resultMsg, map[string]any{
		"door_state":      doorState,
		"camera_status":   StatusNotInstalled,
		"deadbolt_status": doorStatus,
		"loadcell_status": scaleStatus,
	})
}

// CollectProcess handles IF_06. START opens the door for collection; END
// closes it and reports the total and per-channel weights.
func (h *Handlers) CollectProcess(msg Message) Message {
	collectState := stringField(msg.Data, "collect_state")
	h.log.Info("collect command received", zap.String("collect_state", collectState))

	resultCd, resultMsg := ResultSuccess, ""
	extra := map[string]any{"collect_state": collectState}

	switch collectState {
	case CollectStart:
		if h.door != nil {
			if err := h.door.Open(); err != nil {
				resultCd = ResultFailure
				resultMsg = fmt.Sprintf("open door for collection: %v", err)
				h.log.Error("collect start failed", zap.Error(err))
			}
		}

	case CollectEnd:
		if h.door != nil {
			if err := h.door.Close(); err != nil {
				h.log.Error("closing door after collection failed", zap.Error(err))
			}
		}
		if h.scale != nil {
			readings, err := h.scale.ReadAll()
			if err != nil {
				resultMsg = fmt.Sprintf("weight read: %v", err)
				h.log.Error("collect end weight read failed", zap.Error(err))
			} else {
				var total float64
				channels := make(map[string]float64, len(readings))
				for _, r := range readings {
					total += r.Value
					channels[fmt.Sprintf("lc%d", r.Channel)] = r.Value
				}
				extra["total_weight"] = total
				extra["channel_weights"] = channels
			}
		}

	default:
		resultCd = ResultFailure
		resultMsg = fmt.Sprintf("invalid collect_state: %q", collectState)
	}

	return h.response(IFCollectProcess, msg.Header.IFSysID, resultCd, resultMsg, extra)
}

func (h *Handlers) driveDoor(doorState string) error {
	if h.door == nil {
		return fmt.Errorf("deadbolt not available")
	}
	switch doorState {
	case DoorOpen:
		return h.door.Open()
	case DoorClose:
		return h.door.Close()
	}
	return fmt.Errorf("invalid door_state: %q", doorState)
}
