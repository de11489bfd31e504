package mqttbridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luhtfiimanal/go-ioboard/deadbolt"
	"github.com/luhtfiimanal/go-ioboard/loadcell"
)

type fakeDoor struct {
	openErr, closeErr error
	door              deadbolt.DoorStatus
	lock              deadbolt.LockStatus
	statusErr         error
	opened, closed    int
}

func (f *fakeDoor) Open() error {
	f.opened++
	return f.openErr
}

func (f *fakeDoor) Close() error {
	f.closed++
	return f.closeErr
}

func (f *fakeDoor) Status() (deadbolt.DoorStatus, deadbolt.LockStatus, error) {
	return f.door, f.lock, f.statusErr
}

type fakeScale struct {
	readings []loadcell.Reading
	err      error
}

func (f *fakeScale) ReadAll() ([]loadcell.Reading, error) { return f.readings, f.err }

type fakeSystem struct {
	err   error
	calls int
}

func (f *fakeSystem) Reset() error {
	f.calls++
	return f.err
}

func command(ifID, sysID string, data map[string]any) Message {
	return Message{
		Header: Header{IFID: ifID, IFSysID: sysID, IFHost: "PLATFORM", IFDate: "20260826120000"},
		Data:   data,
	}
}

func TestRebootSuccess(t *testing.T) {
	sys := &fakeSystem{}
	h := NewHandlers("DE0001", "DI0001", nil, nil, sys, nil)

	resp := h.Reboot(command(IFReboot, "sys-1", nil))
	require.Equal(t, IFReboot, resp.Header.IFID)
	require.Equal(t, "sys-1", resp.Header.IFSysID, "ack must echo the request IF_SYSID")
	require.Equal(t, ResultSuccess, resp.Data["result_cd"])
	require.Equal(t, "DE0001", resp.Data["device_idx"])
	require.Equal(t, "DI0001", resp.Data["division_idx"])
	require.Equal(t, 1, sys.calls)
}

func TestRebootFailure(t *testing.T) {
	sys := &fakeSystem{err: errors.New("board busy")}
	h := NewHandlers("DE0001", "", nil, nil, sys, nil)

	resp := h.Reboot(command(IFReboot, "sys-2", nil))
	require.Equal(t, ResultFailure, resp.Data["result_cd"])
	require.Contains(t, resp.Data["result_msg"], "board busy")
}

func TestHealthAllNormal(t *testing.T) {
	door := &fakeDoor{door: deadbolt.DoorClosed, lock: deadbolt.Locked}
	scale := &fakeScale{readings: []loadcell.Reading{{Channel: 1, Value: 100}}}
	h := NewHandlers("DE0001", "", door, scale, nil, nil)

	resp := h.Health()
	require.Equal(t, IFHealth, resp.Header.IFID)
	require.Equal(t, StatusNormal, resp.Data["deadbolt_status"])
	require.Equal(t, StatusNormal, resp.Data["loadcell_status"])
	require.Equal(t, StatusNotInstalled, resp.Data["camera_status"])
	require.Equal(t, StatusNotInstalled, resp.Data["card_terminal_status"])
}

func TestHealthReportsErrors(t *testing.T) {
	door := &fakeDoor{door: deadbolt.DoorUnknown, lock: deadbolt.LockUnknown}
	scale := &fakeScale{err: errors.New("timeout")}
	h := NewHandlers("DE0001", "", door, scale, nil, nil)

	resp := h.Health()
	require.Equal(t, StatusError, resp.Data["deadbolt_status"])
	require.Equal(t, StatusError, resp.Data["loadcell_status"])
}

func TestHealthNotInstalled(t *testing.T) {
	h := NewHandlers("DE0001", "", nil, nil, nil, nil)

	resp := h.Health()
	require.Equal(t, StatusNotInstalled, resp.Data["deadbolt_status"])
	require.Equal(t, StatusNotInstalled, resp.Data["loadcell_status"])
}

func TestDoorManualOpen(t *testing.T) {
	door := &fakeDoor{}
	h := NewHandlers("DE0001", "", door, nil, nil, nil)

	resp := h.DoorManual(command(IFDoorManual, "sys-3", map[string]any{"door_state": DoorOpen}))
	require.Equal(t, ResultSuccess, resp.Data["result_cd"])
	require.Equal(t, DoorOpen, resp.Data["door_state"])
	require.Equal(t, 1, door.opened)
	require.Zero(t, door.closed)
}

func TestDoorManualInvalidState(t *testing.T) {
	door := &fakeDoor{}
	h := NewHandlers("DE0001", "", door, nil, nil, nil)

	resp := h.DoorManual(command(IFDoorManual, "", map[string]any{"door_state": "AJAR"}))
	require.Equal(t, ResultFailure, resp.Data["result_cd"])
	require.Contains(t, resp.Data["result_msg"], "AJAR")
	require.Zero(t, door.opened)
	require.Zero(t, door.closed)
}

func TestDoorManualNoDoor(t *testing.T) {
	h := NewHandlers("DE0001", "", nil, nil, nil, nil)

	resp := h.DoorManual(command(IFDoorManual, "", map[string]any{"door_state": DoorOpen}))
	require.Equal(t, ResultFailure, resp.Data["result_cd"])
}

func TestDoorCollectCarriesDeviceStatuses(t *testing.T) {
	door := &fakeDoor{}
	scale := &fakeScale{readings: []loadcell.Reading{{Channel: 1, Value: 5}}}
	h := NewHandlers("DE0001", "", door, scale, nil, nil)

	resp := h.DoorCollect(command(IFDoorCollect, "sys-4", map[string]any{"door_state": DoorClose}))
	require.Equal(t, ResultSuccess, resp.Data["result_cd"])
	require.Equal(t, StatusNormal, resp.Data["deadbolt_status"])
	require.Equal(t, StatusNormal, resp.Data["loadcell_status"])
	require.Equal(t, StatusNotInstalled, resp.Data["camera_status"])
	require.Equal(t, 1, door.closed)
}

func TestDoorCollectOpenFailure(t *testing.T) {
	door := &fakeDoor{openErr: errors.New("jammed")}
	h := NewHandlers("DE0001", "", door, nil, nil, nil)

	resp := h.DoorCollect(command(IFDoorCollect, "", map[string]any{"door_state": DoorOpen}))
	require.Equal(t, ResultFailure, resp.Data["result_cd"])
	require.Equal(t, StatusError, resp.Data["deadbolt_status"])
	require.Equal(t, StatusNotInstalled, resp.Data["loadcell_status"])
}

func TestCollectProcessStart(t *testing.T) {
	door := &fakeDoor{}
	h := NewHandlers("DE0001", "", door, nil, nil, nil)

	resp := h.CollectProcess(command(IFCollectProcess, "sys-5", map[string]any{"collect_state": CollectStart}))
	require.Equal(t, ResultSuccess, resp.Data["result_cd"])
	require.Equal(t, CollectStart, resp.Data["collect_state"])
	require.Equal(t, 1, door.opened)
}

func TestCollectProcessEndReportsWeights(t *testing.T) {
	door := &fakeDoor{}
	scale := &fakeScale{readings: []loadcell.Reading{
		{Channel: 1, Value: 100},
		{Channel: 2, Value: 250.5},
	}}
	h := NewHandlers("DE0001", "", door, scale, nil, nil)

	resp := h.CollectProcess(command(IFCollectProcess, "sys-6", map[string]any{"collect_state": CollectEnd}))
	require.Equal(t, ResultSuccess, resp.Data["result_cd"])
	require.Equal(t, 1, door.closed)
	require.Equal(t, 350.5, resp.Data["total_weight"])

	channels, ok := resp.Data["channel_weights"].(map[string]float64)
	require.True(t, ok)
	require.Equal(t, 100.0, channels["lc1"])
	require.Equal(t, 250.5, channels["lc2"])
}

func TestCollectProcessInvalidState(t *testing.T) {
	h := NewHandlers("DE0001", "", nil, nil, nil, nil)

	resp := h.CollectProcess(command(IFCollectProcess, "", map[string]any{"collect_state": "PAUSE"}))
	require.Equal(t, ResultFailure, resp.Data["result_cd"])
}

func TestHandleRoutesByInterfaceID(t *testing.T) {
	sys := &fakeSystem{}
	h := NewHandlers("DE0001", "", &fakeDoor{}, nil, sys, nil)

	resp, ok := h.Handle(command(IFReboot, "r1", nil))
	require.True(t, ok)
	require.Equal(t, IFReboot, resp.Header.IFID)
	require.Equal(t, 1, sys.calls)

	_, ok = h.Handle(command("IF_99", "", nil))
	require.False(t, ok)
}
