// Package reflection implements the round-bounded reflection loop.
//
// The loop is a three-node state machine driven one step at a time:
//
//	GENERATE --(rounds > max)--> END
//	    |  ^                      ^
//	    v  |                      |
//	   REFLECT ------(reset)------+
//
// GENERATE asks a Generator for a new or revised answer and counts a round.
// REFLECT frames the conversation for a Critic (see Frame) and appends its
// critique, which the next GENERATE treats as feedback. END reports the
// number of rounds, applies the negated count so the counter returns to
// zero, and terminates the state.
//
// The bound is strict: with WithMaxRounds(n) the generator runs n+1 times.
//
// Model failures never escape a step. A failed generate still counts its
// round so a backend that keeps failing cannot stall the loop. A failed
// critique discards the conversation; the failure is logged and handed to
// the Hook, which is the only way a caller learns about it.
//
// REFLECT normally goes back to GENERATE. After a reset it goes to END
// instead: a failed critique, or a REFLECT on an empty conversation, leaves
// the state with no turns and no rounds, and generating from there would send
// the model an empty prompt. Callers that want another attempt start a new
// session with the original request.
//
// A Loop holds configuration only and can drive any number of sessions
// concurrently, as long as each thread.State sees one step at a time.
package reflection
