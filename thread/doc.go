// Package thread holds the state of one reflection conversation.
//
// A State is owned by a single session: it is created with the user's
// request, mutated in place by each loop step and dropped (or checkpointed)
// once terminated. Nothing in this package is safe for concurrent use; the
// session owner must make sure only one step touches a State at a time.
//
// Checkpoints are immutable snapshots of a State. They serialize to JSON and
// are how a conversation crosses process boundaries, for example when the
// loop runs inside a Temporal workflow.
package thread
