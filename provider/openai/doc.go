/*
Package openai implements the provider.Provider interface for OpenAI's chat models.

# Available Models

  - GPT4oMini(): smaller, faster GPT-4 model
  - GPT4o(): full GPT-4 model with latest capabilities

Any other chat model can be used through Model():

	model := openai.Model("gpt-4.1-mini",
		option.WithAPIKey("your-key"),
	)

Models are cached by name, so calling Model twice with the same name returns
the same value and the options of the first call win. A model creates its
provider on first use.

# Turn Mapping

Conversation turns become chat messages as follows:

  - instructions: system message (omitted when empty)
  - user, critique: user message
  - assistant: assistant message
  - tool result: tool message

The sender of the latest user turn is forwarded as the OpenAI "user" field.

# Streaming

With CompletionParams.Stream set the provider emits a start delimiter, one
Chunk per content delta, an end delimiter and the accumulated Response.
Otherwise it emits a single Response. Failures and context cancellation are
reported as a provider.Error event before the channel closes.
*/
package openai
