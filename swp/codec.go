package swp

import (
	"encoding/json"

	"github.com/gobwas/ws"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec defines frame serialization plus the WebSocket opcode frames of
// that encoding travel on: text for JSON, binary for msgpack.
type Codec interface {
	// Encode serializes a frame to bytes.
	Encode(frame *Frame) ([]byte, error)

	// Decode deserializes bytes into a frame.
	Decode(data []byte) (*Frame, error)

	// Name returns the codec identifier used in format negotiation.
	Name() string

	// Op returns the WebSocket opcode for frames of this encoding.
	Op() ws.OpCode
}

// CodecName constants for format negotiation.
const (
	CodecNameJSON    = "json"
	CodecNameMsgpack = "msgpack"
)

// GetCodec returns a codec by name. Defaults to JSON.
func GetCodec(name string) Codec {
	switch name {
	case CodecNameMsgpack:
		return &MsgpackCodec{}
	default:
		return &JSONCodec{}
	}
}

var (
	_ Codec = (*JSONCodec)(nil)
	_ Codec = (*MsgpackCodec)(nil)
)

// JSONCodec is the default, human-readable encoding. The auth handshake
// always uses it regardless of the negotiated format.
type JSONCodec struct{}

func (c *JSONCodec) Encode(frame *Frame) ([]byte, error) {
	return json.Marshal(frame)
}

func (c *JSONCodec) Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *JSONCodec) Name() string { return CodecNameJSON }

func (c *JSONCodec) Op() ws.OpCode { return ws.OpText }

// MsgpackCodec is the compact binary encoding, negotiated by clients
// that stream high-volume placement events.
type MsgpackCodec struct{}

func (c *MsgpackCodec) Encode(frame *Frame) ([]byte, error) {
	return msgpack.Marshal(frame)
}

func (c *MsgpackCodec) Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *MsgpackCodec) Name() string { return CodecNameMsgpack }

func (c *MsgpackCodec) Op() ws.OpCode { return ws.OpBinary }
