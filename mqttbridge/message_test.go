package mqttbridge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewMessageHeader(t *testing.T) {
	msg := NewMessage(IFHealth, "", map[string]any{"device_idx": "DE0001"})

	require.Equal(t, IFHealth, msg.Header.IFID)
	require.Equal(t, "CRKPNTCHAI", msg.Header.IFHost)

	_, err := uuid.Parse(msg.Header.IFSysID)
	require.NoError(t, err, "generated IF_SYSID must be a UUID")

	stamp, err := time.ParseInLocation(dateLayout, msg.Header.IFDate, time.Local)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), stamp, time.Minute)
}

func TestNewMessageEchoesSysID(t *testing.T) {
	msg := NewMessage(IFReboot, "req-sysid-42", nil)
	require.Equal(t, "req-sysid-42", msg.Header.IFSysID)
}

func TestMessageEncodeShape(t *testing.T) {
	msg := NewMessage(IFDoorManual, "abc", map[string]any{"door_state": DoorOpen})

	payload, err := msg.Encode()
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &raw))
	require.Contains(t, raw, "HEADER")
	require.Contains(t, raw, "DATA")

	var header map[string]string
	require.NoError(t, json.Unmarshal(raw["HEADER"], &header))
	require.Equal(t, "IF_03", header["IF_ID"])
	require.Equal(t, "abc", header["IF_SYSID"])
}

func TestDecodeMessageRoundTrip(t *testing.T) {
	payload := []byte(`{
		"HEADER": {"IF_ID": "IF_06", "IF_SYSID": "s1", "IF_HOST": "PLATFORM", "IF_DATE": "20260826120000"},
		"DATA": {"device_idx": "DE0001", "collect_state": "START"}
	}`)

	msg, err := DecodeMessage(payload)
	require.NoError(t, err)
	require.Equal(t, IFCollectProcess, msg.Header.IFID)
	require.Equal(t, "s1", msg.Header.IFSysID)
	require.Equal(t, "START", stringField(msg.Data, "collect_state"))
}

func TestDecodeMessageRejectsGarbage(t *testing.T) {
	_, err := DecodeMessage([]byte("not json"))
	require.Error(t, err)
}

func TestTopicTree(t *testing.T) {
	topics := NewTopics("DE0001")

	require.Equal(t, "chai/device/DE0001", topics.Base())
	require.Equal(t, "chai/device/DE0001/cmd/reboot", topics.RebootCmd())
	require.Equal(t, "chai/device/DE0001/health", topics.Health())
	require.Equal(t, "chai/device/DE0001/ack/door/collect", topics.DoorCollectAck())

	subs := topics.SubscribeTopics()
	require.Len(t, subs, 4)
	require.Equal(t, IFCollectProcess, subs["chai/device/DE0001/cmd/collect"])

	require.Equal(t, topics.RebootAck(), topics.AckTopic(IFReboot))
	require.Equal(t, topics.Health(), topics.AckTopic(IFHealth))
	require.Empty(t, topics.AckTopic("IF_99"))
}
