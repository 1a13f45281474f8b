package messages

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Envelope wraps a Turn so it can be encoded and decoded as JSON without
// knowing the variant up front.
type Envelope struct {
	Turn Turn
}

// MarshalJSON writes the turn's fields plus a "role" marker.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Turn == nil {
		return []byte(`null`), nil
	}
	body, err := json.Marshal(e.Turn)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s turn: %w", e.Turn.Role(), err)
	}
	return sjson.SetBytes(body, "role", e.Turn.Role().String())
}

// UnmarshalJSON decodes a turn using its "role" marker.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}
	if gjson.ParseBytes(data).Type == gjson.Null {
		e.Turn = nil
		return nil
	}

	marker := gjson.GetBytes(data, "role")
	if !marker.Exists() {
		return fmt.Errorf("missing required field 'role'")
	}
	role, err := ParseRole(marker.String())
	if err != nil {
		return err
	}

	switch role {
	case RoleUser:
		var t User
		err = json.Unmarshal(data, &t)
		e.Turn = t
	case RoleAssistant:
		var t Assistant
		err = json.Unmarshal(data, &t)
		e.Turn = t
	case RoleCritique:
		var t Critique
		err = json.Unmarshal(data, &t)
		e.Turn = t
	case RoleTool:
		var t ToolResult
		err = json.Unmarshal(data, &t)
		e.Turn = t
	}
	if err != nil {
		return fmt.Errorf("invalid %s turn: %w", role, err)
	}
	return nil
}

// Turns is an ordered list of turns that knows how to serialize itself.
type Turns []Turn

func (ts Turns) MarshalJSON() ([]byte, error) {
	envelopes := make([]Envelope, len(ts))
	for i, t := range ts {
		envelopes[i] = Envelope{Turn: t}
	}
	return json.Marshal(envelopes)
}

func (ts *Turns) UnmarshalJSON(data []byte) error {
	var envelopes []Envelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return err
	}
	out := make(Turns, len(envelopes))
	for i, e := range envelopes {
		if e.Turn == nil {
			return fmt.Errorf("turn %d is null", i)
		}
		out[i] = e.Turn
	}
	*ts = out
	return nil
}
