package codec

import (
	"encoding/json"
	"errors"
)

var (
	ErrUnsupportedCodec = errors.New("unsupported codec")
)

// Codec encodes and decodes request and response bodies for one media type.
type Codec interface {
	// Encode encodes a value to bytes
	Encode(v any) ([]byte, error)

	// Decode decodes bytes to a value
	Decode(data []byte, v any) error

	// ContentType is the exact media type this codec accepts and produces
	ContentType() string

	Name() string
}

// Media types understood by the built-in codecs.
const (
	ContentTypeJSON     = "application/json"
	ContentTypeMsgPack  = "application/msgpack"
	ContentTypeProtobuf = "application/x-protobuf"
)

var (
	JSON     Codec = &JSONCodec{}
	MsgPack  Codec = &MsgPackCodec{}
	Protobuf Codec = &ProtobufCodec{}
)

// ForContentType returns the codec whose media type equals contentType
// exactly. Parameters such as "; charset=utf-8" are not stripped.
func ForContentType(contentType string) (Codec, error) {
	switch contentType {
	case ContentTypeJSON:
		return JSON, nil
	case ContentTypeMsgPack:
		return MsgPack, nil
	case ContentTypeProtobuf:
		return Protobuf, nil
	default:
		return nil, ErrUnsupportedCodec
	}
}

// JSONCodec implements JSON encoding/decoding
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (c *JSONCodec) ContentType() string {
	return ContentTypeJSON
}

func (c *JSONCodec) Name() string {
	return "json"
}
