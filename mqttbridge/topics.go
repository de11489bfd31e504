package mqttbridge

// Interface IDs carried in the message HEADER.
const (
	IFReboot         = "IF_01"
	IFHealth         = "IF_02"
	IFDoorManual     = "IF_03"
	IFDoorCollect    = "IF_04"
	IFCollectProcess = "IF_06"
)

// Device status codes reported in health and door-collect responses.
const (
	StatusNormal       = "0"
	StatusError        = "1"
	StatusNotInstalled = "9"
)

// Result codes carried in command acknowledgements.
const (
	ResultSuccess = "0000"
	ResultFailure = "9999"
)

// Door states accepted by the door commands.
const (
	DoorOpen  = "OPEN"
	DoorClose = "CLOSE"
)

// Collect process phases.
const (
	CollectStart = "START"
	CollectEnd   = "END"
)

// DefaultQoS applies to every subscription and publication.
const DefaultQoS = 1

// Topics builds the topic tree for one device, rooted at
// chai/device/<deviceIdx>.
type Topics struct {
	base string
}

// NewTopics returns the topic set for deviceIdx (e.g. "DE0001").
func NewTopics(deviceIdx string) Topics {
	return Topics{base: "chai/device/" + deviceIdx}
}

func (t Topics) Base() string { return t.base }

func (t Topics) RebootCmd() string     { return t.base + "/cmd/reboot" }
func (t Topics) RebootAck() string     { return t.base + "/ack/reboot" }
func (t Topics) Health() string        { return t.base + "/health" }
func (t Topics) DoorManualCmd() string { return t.base + "/cmd/door/manual" }
func (t Topics) DoorManualAck() string { return t.base + "/ack/door/manual" }

func (t Topics) DoorCollectCmd() string { return t.base + "/cmd/door/collect" }
func (t Topics) DoorCollectAck() string { return t.base + "/ack/door/collect" }
func (t Topics) CollectCmd() string     { return t.base + "/cmd/collect" }
func (t Topics) CollectAck() string     { return t.base + "/ack/collect" }

// SubscribeTopics maps each inbound command topic to its interface ID.
func (t Topics) SubscribeTopics() map[string]string {
	return map[string]string{
		t.RebootCmd():      IFReboot,
		t.DoorManualCmd():  IFDoorManual,
		t.DoorCollectCmd(): IFDoorCollect,
		t.CollectCmd():     IFCollectProcess,
	}
}

// AckTopic returns the response topic for an interface ID, or "" when the
// interface has no acknowledgement topic.
func (t Topics) AckTopic(ifID string) string {
	switch ifID {
	case IFReboot:
		return t.RebootAck()
	case IFHealth:
		return t.Health()
	case IFDoorManual:
		return t.DoorManualAck()
	case IFDoorCollect:
		return t.DoorCollectAck()
	case IFCollectProcess:
		return t.CollectAck()
	}
	return ""
}
