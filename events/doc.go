// Package events reports the progress of reflection loops.
//
// Every step of a loop produces events: a Step when a node starts, a
// TurnAdded when a turn is appended, a Failure when a model call did not
// return usable content and an End when the loop terminates. Hooks receive
// these synchronously from the loop; brokers carry them to other goroutines
// or processes.
//
// Design decisions:
//   - Failures never abort a loop, so a Hook is the side channel through which
//     callers learn that a round failed or that a session was reset
//   - Every event carries the session id and the round it happened in
//   - Events marshal to JSON with a "type" marker so FromJSON can restore the
//     concrete type on the other side of a broker
//
// Example usage:
//
//	hook := events.Multi(events.Logging(slog.Default()), myHook)
//	loop, _ := reflection.New(reflection.WithHook(hook), ...)
//
//	// On a subscriber
//	event, err := events.FromJSON(data)
//	events.Dispatch(ctx, hook, event)
package events
