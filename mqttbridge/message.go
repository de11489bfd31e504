package mqttbridge

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// hostID identifies this edge device in every HEADER.
const hostID = "CRKPNTCHAI"

const dateLayout = "20060102150405"

// Header is the HEADER section of every message.
type Header struct {
	IFID    string `json:"IF_ID"`
	IFSysID string `json:"IF_SYSID"`
	IFHost  string `json:"IF_HOST"`
	IFDate  string `json:"IF_DATE"`
}

// Message is the JSON envelope exchanged with the platform:
//
//	{"HEADER": {"IF_ID", "IF_SYSID", "IF_HOST", "IF_DATE"}, "DATA": {...}}
type Message struct {
	Header Header         `json:"HEADER"`
	Data   map[string]any `json:"DATA"`
}

// NewMessage builds an outbound message with a fresh IF_SYSID. Responses
// to a received command must echo that command's IF_SYSID instead; pass it
// via sysID, or "" to generate one.
func NewMessage(ifID, sysID string, data map[string]any) Message {
	if sysID == "" {
		sysID = uuid.NewString()
	}
	return Message{
		Header: Header{
			IFID:    ifID,
			IFSysID: sysID,
			IFHost:  hostID,
			IFDate:  time.Now().Format(dateLayout),
		},
		Data: data,
	}
}

// Encode serializes the message for publication.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage parses an inbound payload.
func DecodeMessage(payload []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// stringField reads a string value from a DATA section, tolerating a
// missing key or a non-string value.
func stringField(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	s, _ := data[key].(string)
	return s
}
