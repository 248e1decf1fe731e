package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// HeaderContentType carries the payload encoding on every published message
const HeaderContentType = "Content-Type"

// Codec encodes message payloads. Both encodings are self-describing, so a
// consumer decodes by the header rather than by configuration.
type Codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) ContentType() string                { return "application/json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) ContentType() string                { return "application/msgpack" }
func (msgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

var (
	JSON    Codec = jsonCodec{}
	MsgPack Codec = msgpackCodec{}
)

// CodecByName resolves the MESSAGE_CODEC setting
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return MsgPack, nil
	default:
		return nil, fmt.Errorf("unknown message codec %q", name)
	}
}

// codecForContentType picks the decoder for a received message; messages
// without the header are treated as JSON.
func codecForContentType(ct string) Codec {
	if ct == MsgPack.ContentType() {
		return MsgPack
	}
	return JSON
}
