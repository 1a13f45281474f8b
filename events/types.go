package events

import (
	"errors"
	"fmt"

	"github.com/casualjim/ruminate/messages"
	"github.com/casualjim/ruminate/pkg/uuidx"
	"github.com/casualjim/ruminate/thread"
	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	stepJSON    = []byte(`{"type":"step"}`)
	turnJSON    = []byte(`{"type":"turn"}`)
	failureJSON = []byte(`{"type":"failure"}`)
	endJSON     = []byte(`{"type":"end"}`)
)

// Event is one of Step, TurnAdded, Failure or End.
type Event interface {
	event()
}

// Step is published when the loop starts running a node.
type Step struct {
	SessionID uuid.UUID       `json:"session_id"`
	Node      thread.Node     `json:"node"`
	Round     int             `json:"round"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

func (Step) event() {}

// TurnAdded is published after a node appended a turn.
type TurnAdded struct {
	SessionID uuid.UUID       `json:"session_id"`
	Node      thread.Node     `json:"node"`
	Round     int             `json:"round"`
	Turn      messages.Turn   `json:"turn"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

func (TurnAdded) event() {}

// Failure is published when a model call did not return usable content.
// Reset is true when the failure discarded the conversation.
type Failure struct {
	SessionID uuid.UUID       `json:"session_id"`
	Node      thread.Node     `json:"node"`
	Round     int             `json:"round"`
	Err       error           `json:"error"`
	Reset     bool            `json:"reset"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

func (Failure) event() {}

func (f Failure) Error() string {
	return fmt.Sprintf("session: %s, node: %s, round: %d, error: %v", f.SessionID, f.Node, f.Round, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// End is published when the loop terminates. Rounds is the number of
// generate passes that ran, Correction the adjustment applied to bring the
// round counter back to zero.
type End struct {
	SessionID  uuid.UUID       `json:"session_id"`
	Rounds     int             `json:"rounds"`
	Correction int             `json:"correction"`
	Final      messages.Turn   `json:"final,omitempty"`
	Timestamp  strfmt.DateTime `json:"timestamp"`
}

func (End) event() {}

func setCommon(result []byte, sessionID uuid.UUID, ts strfmt.DateTime) ([]byte, error) {
	result, err := sjson.SetBytes(result, "session_id", sessionID.String())
	if err != nil {
		return nil, err
	}
	if !ts.IsZero() {
		result, err = sjson.SetBytes(result, "timestamp", ts.String())
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func setNodeRound(result []byte, node thread.Node, round int) ([]byte, error) {
	result, err := sjson.SetBytes(result, "node", node.String())
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(result, "round", round)
}

func setTurn(result []byte, key string, turn messages.Turn) ([]byte, error) {
	b, err := json.Marshal(messages.Envelope{Turn: turn})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return sjson.SetRawBytes(result, key, b)
}

func checkType(data []byte, want string) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}
	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != want {
		return fmt.Errorf("missing or invalid type, expected '%s'", want)
	}
	return nil
}

func getCommon(data []byte, sessionID *uuid.UUID, ts *strfmt.DateTime) error {
	sid := gjson.GetBytes(data, "session_id")
	if !sid.Exists() {
		return errors.New("missing required field 'session_id'")
	}
	id, err := uuidx.Parse(sid.String())
	if err != nil {
		return fmt.Errorf("invalid session_id: %w", err)
	}
	*sessionID = id
	if timestamp := gjson.GetBytes(data, "timestamp"); timestamp.Exists() {
		if err := ts.UnmarshalText([]byte(timestamp.String())); err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
	}
	return nil
}

func getNodeRound(data []byte, node *thread.Node, round *int) error {
	n := gjson.GetBytes(data, "node")
	if !n.Exists() {
		return errors.New("missing required field 'node'")
	}
	if err := node.UnmarshalText([]byte(n.String())); err != nil {
		return err
	}
	*round = int(gjson.GetBytes(data, "round").Int())
	return nil
}

func getTurn(data []byte, key string) (messages.Turn, error) {
	raw := gjson.GetBytes(data, key)
	if !raw.Exists() {
		return nil, nil
	}
	var env messages.Envelope
	if err := json.Unmarshal([]byte(raw.Raw), &env); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return env.Turn, nil
}

// MarshalJSON implements custom JSON marshaling for Step
func (s Step) MarshalJSON() ([]byte, error) {
	result, err := setCommon(stepJSON, s.SessionID, s.Timestamp)
	if err != nil {
		return nil, err
	}
	return setNodeRound(result, s.Node, s.Round)
}

// UnmarshalJSON implements custom JSON unmarshaling for Step
func (s *Step) UnmarshalJSON(data []byte) error {
	if err := checkType(data, "step"); err != nil {
		return err
	}
	if err := getCommon(data, &s.SessionID, &s.Timestamp); err != nil {
		return err
	}
	return getNodeRound(data, &s.Node, &s.Round)
}

// MarshalJSON implements custom JSON marshaling for TurnAdded
func (t TurnAdded) MarshalJSON() ([]byte, error) {
	result, err := setCommon(turnJSON, t.SessionID, t.Timestamp)
	if err != nil {
		return nil, err
	}
	if result, err = setNodeRound(result, t.Node, t.Round); err != nil {
		return nil, err
	}
	return setTurn(result, "turn", t.Turn)
}

// UnmarshalJSON implements custom JSON unmarshaling for TurnAdded
func (t *TurnAdded) UnmarshalJSON(data []byte) error {
	if err := checkType(data, "turn"); err != nil {
		return err
	}
	if err := getCommon(data, &t.SessionID, &t.Timestamp); err != nil {
		return err
	}
	if err := getNodeRound(data, &t.Node, &t.Round); err != nil {
		return err
	}
	turn, err := getTurn(data, "turn")
	if err != nil {
		return err
	}
	if turn == nil {
		return errors.New("missing required field 'turn'")
	}
	t.Turn = turn
	return nil
}

// MarshalJSON implements custom JSON marshaling for Failure
func (f Failure) MarshalJSON() ([]byte, error) {
	result, err := setCommon(failureJSON, f.SessionID, f.Timestamp)
	if err != nil {
		return nil, err
	}
	if result, err = setNodeRound(result, f.Node, f.Round); err != nil {
		return nil, err
	}
	if f.Err != nil {
		if result, err = sjson.SetBytes(result, "error", f.Err.Error()); err != nil {
			return nil, err
		}
	}
	return sjson.SetBytes(result, "reset", f.Reset)
}

// UnmarshalJSON implements custom JSON unmarshaling for Failure
func (f *Failure) UnmarshalJSON(data []byte) error {
	if err := checkType(data, "failure"); err != nil {
		return err
	}
	if err := getCommon(data, &f.SessionID, &f.Timestamp); err != nil {
		return err
	}
	if err := getNodeRound(data, &f.Node, &f.Round); err != nil {
		return err
	}
	errMsg := gjson.GetBytes(data, "error")
	if !errMsg.Exists() {
		return errors.New("missing required field 'error'")
	}
	f.Err = errors.New(errMsg.String())
	f.Reset = gjson.GetBytes(data, "reset").Bool()
	return nil
}

// MarshalJSON implements custom JSON marshaling for End
func (e End) MarshalJSON() ([]byte, error) {
	result, err := setCommon(endJSON, e.SessionID, e.Timestamp)
	if err != nil {
		return nil, err
	}
	if result, err = sjson.SetBytes(result, "rounds", e.Rounds); err != nil {
		return nil, err
	}
	if result, err = sjson.SetBytes(result, "correction", e.Correction); err != nil {
		return nil, err
	}
	if e.Final != nil {
		return setTurn(result, "final", e.Final)
	}
	return result, nil
}

// UnmarshalJSON implements custom JSON unmarshaling for End
func (e *End) UnmarshalJSON(data []byte) error {
	if err := checkType(data, "end"); err != nil {
		return err
	}
	if err := getCommon(data, &e.SessionID, &e.Timestamp); err != nil {
		return err
	}
	e.Rounds = int(gjson.GetBytes(data, "rounds").Int())
	e.Correction = int(gjson.GetBytes(data, "correction").Int())
	final, err := getTurn(data, "final")
	if err != nil {
		return err
	}
	e.Final = final
	return nil
}

// ToJSON encodes an event.
func ToJSON(event Event) ([]byte, error) {
	if event == nil {
		return nil, errors.New("event is nil")
	}
	return json.Marshal(event)
}

// FromJSON decodes an event using its "type" marker.
func FromJSON(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json: %s", data)
	}
	switch tpe := gjson.GetBytes(data, "type").String(); tpe {
	case "step":
		var e Step
		if err := e.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return e, nil
	case "turn":
		var e TurnAdded
		if err := e.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return e, nil
	case "failure":
		var e Failure
		if err := e.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return e, nil
	case "end":
		var e End
		if err := e.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", tpe)
	}
}
