package service

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSONCodec marshals plain Go structs with encoding/json. It replaces
// Connect's default protobuf JSON codec, which only accepts generated
// messages.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(msg); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
