package messages

import (
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
)

// Role tags the variant of a Turn.
type Role uint8

const (
	RoleUser Role = iota + 1
	RoleAssistant
	RoleCritique
	RoleTool
)

var roleNames = map[Role]string{
	RoleUser:      "user",
	RoleAssistant: "assistant",
	RoleCritique:  "critique",
	RoleTool:      "tool",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

func (r Role) MarshalText() ([]byte, error) {
	name, ok := roleNames[r]
	if !ok {
		return nil, fmt.Errorf("unknown role %d", uint8(r))
	}
	return []byte(name), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// ParseRole returns the role with the given name.
func ParseRole(name string) (Role, error) {
	for role, n := range roleNames {
		if n == name {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", name)
}

// Turn is one message in a conversation.
type Turn interface {
	Role() Role
	Text() string
	turn()
}

// User is input from the person driving the conversation.
type User struct {
	Content   string          `json:"content"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

func (User) turn()          {}
func (User) Role() Role     { return RoleUser }
func (u User) Text() string { return u.Content }

// Assistant is a draft answer produced by the generator.
type Assistant struct {
	Content   string          `json:"content"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

func (Assistant) turn()          {}
func (Assistant) Role() Role     { return RoleAssistant }
func (a Assistant) Text() string { return a.Content }

// Critique is feedback on a draft, fed back to the generator as new input.
type Critique struct {
	Content   string          `json:"content"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

func (Critique) turn()          {}
func (Critique) Role() Role     { return RoleCritique }
func (c Critique) Text() string { return c.Content }

// ToolResult carries the output of a tool call.
type ToolResult struct {
	ToolCallID string          `json:"tool_call_id"`
	ToolName   string          `json:"tool_name"`
	Content    string          `json:"content"`
	Timestamp  strfmt.DateTime `json:"timestamp"`
}

func (ToolResult) turn()          {}
func (ToolResult) Role() Role     { return RoleTool }
func (t ToolResult) Text() string { return t.Content }

func now() strfmt.DateTime {
	return strfmt.DateTime(time.Now().UTC())
}

func NewUser(content string) User {
	return User{Content: content, Timestamp: now()}
}

func NewAssistant(content string) Assistant {
	return Assistant{Content: content, Timestamp: now()}
}

func NewCritique(content string) Critique {
	return Critique{Content: content, Timestamp: now()}
}

func NewToolResult(callID, name, content string) ToolResult {
	return ToolResult{ToolCallID: callID, ToolName: name, Content: content, Timestamp: now()}
}

// Swap relabels a turn for the reflect step. Drafts are presented to the critic
// as critique input and earlier critiques as assistant output; user input past
// the opening request reads as assistant output too. Tool results keep their
// role. Swapping twice returns assistant and critique turns to their original
// variant, which is what keeps the framing stable across rounds.
func Swap(t Turn) Turn {
	switch t := t.(type) {
	case User:
		return Assistant{Content: t.Content, Sender: t.Sender, Timestamp: t.Timestamp}
	case Assistant:
		return Critique{Content: t.Content, Sender: t.Sender, Timestamp: t.Timestamp}
	case Critique:
		return Assistant{Content: t.Content, Sender: t.Sender, Timestamp: t.Timestamp}
	case ToolResult:
		return t
	default:
		panic(fmt.Sprintf("unknown turn type %T", t))
	}
}
