package rpcapi

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// jsonCodec implements encoding.Codec, marshaling the plain request/
// response structs in this package as JSON instead of protobuf wire
// format. No .proto file exists for this service — transport is real
// gRPC (framing, HTTP/2, TLS, streaming, status codes), only the message
// encoding is substituted.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpcapi: marshal: %w", err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpcapi: unmarshal: %w", err)
	}
	return nil
}

// Name registers this codec under the wire name grpc-go's client and
// server negotiate by default ("proto"), so standard grpc.Dial/grpc.NewServer
// callers need no special content-subtype configuration.
func (jsonCodec) Name() string { return "proto" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
