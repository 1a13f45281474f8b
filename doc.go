/*
Package ruminate answers prompts by letting a model draft, critique and
redraft its own work for a bounded number of rounds.

An Engine pairs one agent with one pattern. A pattern names the generate and
critique instructions and the round bound; the agent performs both roles
against its model:

	eng, err := ruminate.New(
		ruminate.Agent(agent.New(agent.Model(openai.GPT4o()))),
		ruminate.Pattern("reflection"),
		ruminate.MaxRounds(2),
	)
	if err != nil {
		return err
	}
	res, err := eng.Ask(ctx, "Write an essay on the history of the transistor")
	fmt.Println(res.Answer.Text())

# Sessions

Every prompt lives in its own session. Start creates one, Step advances it
by a single node, Run drives it to the end and Abandon drops it. Session
returns a checkpoint that Resume accepts again, also on another engine.
A session is processed by one caller at a time; a second concurrent caller
gets ErrSessionBusy. Different sessions share nothing and run concurrently,
which AskAll uses to answer a batch of prompts.

# Execution

Run uses an in-process executor by default. With the Executor option a
session runs as a Temporal workflow instead, where every model call is an
activity and loop events travel back over a broker.

# Events

Hooks receive a Step event for every node, TurnAdded for every turn,
Failure for model calls that produced nothing usable and End when the loop
terminates.
*/
package ruminate
