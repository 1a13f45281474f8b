// Package executor runs a reflection loop for a session to completion.
//
// Two executors share the Executor contract:
//
//   - Local drives the loop in-process with the agent registered under the
//     command's agent name.
//   - Remote starts a Temporal workflow. The workflow replays the loop
//     deterministically while every model call runs as an activity:
//
//     Workflow (ruminate.reflection)
//     ├── Activity ruminate.generate  -> assistant turn
//     ├── Activity ruminate.critique  -> critique turn
//     └── Activity ruminate.publish   -> event forwarded to the broker
//
// The workflow returns a checkpoint that Remote merges into the caller's
// state, so both executors leave the state in the same shape. Loop events
// reach the caller's hook through the broker subject of the session.
package executor
