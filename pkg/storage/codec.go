package storage

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Codec turns records into bytes and back.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON writes indented JSON, readable when staff open the data directory.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Marshal(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }

func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// encMode uses Core Deterministic Encoding so identical records produce identical bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("storage: CBOR encoder initialization failed: " + err.Error())
	}
}

// CBOR is the compact binary codec.
type CBOR struct{}

func (CBOR) Name() string { return "cbor" }

func (CBOR) Marshal(v any) ([]byte, error) { return encMode.Marshal(v) }

func (CBOR) Unmarshal(data []byte, v any) error { return cbor.Unmarshal(data, v) }

// CodecByName resolves the --codec flag.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "cbor":
		return CBOR{}, nil
	default:
		return nil, fmt.Errorf("unsupported codec %q", name)
	}
}
