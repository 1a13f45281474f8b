// Package messages defines the turns that make up a reflection conversation.
//
// A Turn is a closed tagged union over four variants:
//
//   - User: the original request, or later human input
//   - Assistant: a draft produced by the generate step
//   - Critique: feedback produced by the reflect step
//   - ToolResult: output of a tool invocation
//
// The set is sealed by an unexported method, so code that switches over the
// variants can rely on handling every case. Swap is the total relabeling used
// to frame a conversation for the critic: drafts become submissions to
// critique, earlier critiques become the critic's own prior output.
//
// Turns serialize to JSON with a "role" marker so they can cross process
// boundaries (Temporal activities, NATS events) and be decoded back into the
// right variant:
//
//	b, _ := json.Marshal(messages.Envelope{Turn: messages.NewAssistant("draft")})
//	// {"role":"assistant","content":"draft","timestamp":"..."}
package messages
