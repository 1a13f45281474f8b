package provider

import (
	"errors"
	"fmt"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

type StreamEvent interface {
	streamEvent()
}

type Delim struct {
	RunID uuid.UUID `json:"run_id"`
	Delim string    `json:"delim"`
}

func (Delim) streamEvent() {}

type Chunk struct {
	RunID     uuid.UUID       `json:"run_id"`
	Content   string          `json:"content"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Chunk) streamEvent() {}

type Response struct {
	RunID        uuid.UUID       `json:"run_id"`
	Model        string          `json:"model,omitempty"`
	Content      string          `json:"content"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Timestamp    strfmt.DateTime `json:"timestamp,omitempty"`
	Meta         gjson.Result    `json:"-"`
}

func (Response) streamEvent() {}

type Error struct {
	RunID     uuid.UUID       `json:"run_id"`
	Err       error           `json:"-"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Error) streamEvent() {}

func (e Error) Error() string {
	return fmt.Sprintf("run_id: %s, timestamp: %s, error: %v", e.RunID, e.Timestamp, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

func (d Delim) MarshalJSON() ([]byte, error) {
	type plain Delim
	return withType("delim", plain(d))
}

func (c Chunk) MarshalJSON() ([]byte, error) {
	type plain Chunk
	return withType("chunk", plain(c))
}

func (r Response) MarshalJSON() ([]byte, error) {
	type plain Response
	result, err := withType("response", plain(r))
	if err != nil {
		return nil, err
	}
	if r.Meta.Exists() {
		return sjson.SetRawBytes(result, "meta", []byte(r.Meta.Raw))
	}
	return result, nil
}

func (e Error) MarshalJSON() ([]byte, error) {
	type plain Error
	result, err := withType("error", plain(e))
	if err != nil {
		return nil, err
	}
	if e.Err != nil {
		return sjson.SetBytes(result, "error", e.Err.Error())
	}
	return result, nil
}

func withType(kind string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(body, "type", kind)
}

// FromJSON decodes a stream event written by one of the MarshalJSON methods.
func FromJSON(data []byte) (StreamEvent, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json: %s", data)
	}

	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() {
		return nil, fmt.Errorf("missing required field 'type'")
	}

	switch msgType.String() {
	case "delim":
		type plain Delim
		var d plain
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return Delim(d), nil
	case "chunk":
		type plain Chunk
		var c plain
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		return Chunk(c), nil
	case "response":
		type plain Response
		var r plain
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		if meta := gjson.GetBytes(data, "meta"); meta.Exists() {
			r.Meta = meta
		}
		return Response(r), nil
	case "error":
		type plain Error
		var e plain
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		if msg := gjson.GetBytes(data, "error"); msg.Exists() {
			e.Err = errors.New(msg.String())
		}
		return Error(e), nil
	default:
		return nil, fmt.Errorf("unknown stream event type %q", msgType.String())
	}
}
