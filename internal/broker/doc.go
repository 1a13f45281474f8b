// Package broker distributes loop events over named topics so observers
// outside the process driving a session can follow it.
//
// Two implementations share the same contract:
//   - Local: in-process fan-out over buffered channels. A subscriber that
//     cannot take an event within the slow subscriber timeout is dropped.
//   - NATS: events are published as JSON on a subject of the same name.
//
// Publisher adapts a topic to events.Hook so it can be handed straight to a
// reflection loop:
//
//	topic := broker.Local().Topic(ctx, broker.SessionSubject(state.ID()))
//	sub, err := topic.Subscribe(ctx, events.Logging(slog.Default()))
//	if err != nil {
//	    return err
//	}
//	defer sub.Unsubscribe()
//
//	loop, err := reflection.New(..., reflection.WithHook(broker.Publisher(topic)))
package broker
