package thread

import "fmt"

// Node names a state of the reflection loop.
type Node uint8

const (
	// Generate produces or revises an answer.
	Generate Node = iota
	// Reflect critiques the latest answer.
	Reflect
	// End is terminal.
	End
)

var nodeNames = [...]string{
	Generate: "generate",
	Reflect:  "reflect",
	End:      "end",
}

func (n Node) String() string {
	if int(n) < len(nodeNames) {
		return nodeNames[n]
	}
	return fmt.Sprintf("node(%d)", uint8(n))
}

func (n Node) MarshalText() ([]byte, error) {
	if int(n) >= len(nodeNames) {
		return nil, fmt.Errorf("unknown node %d", uint8(n))
	}
	return []byte(nodeNames[n]), nil
}

func (n *Node) UnmarshalText(text []byte) error {
	for i, name := range nodeNames {
		if name == string(text) {
			*n = Node(i)
			return nil
		}
	}
	return fmt.Errorf("unknown node %q", text)
}
