package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/casualjim/ruminate/messages"
	"github.com/casualjim/ruminate/provider"
	"github.com/go-openapi/strfmt"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"
)

type Provider struct {
	client *openai.Client
}

func New(options ...option.RequestOption) *Provider {
	client := openai.NewClient(options...)
	return &Provider{
		client: client,
	}
}

func (p *Provider) buildRequest(_ context.Context, params *provider.CompletionParams) (openai.ChatCompletionNewParams, error) {
	if params.Model == nil {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("model is required")
	}
	if len(params.Turns) == 0 {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("at least one turn is required")
	}

	result, user := turnsToOpenAI(params.Instructions, params.Turns)
	oaiParams := openai.ChatCompletionNewParams{
		Messages:    openai.F(result),
		Model:       openai.F(params.Model.Name()),
		N:           openai.Int(1),
		Temperature: openai.Float(0.1),
	}
	if strings.TrimSpace(user) != "" {
		oaiParams.User = openai.String(user)
	}
	return oaiParams, nil
}

func (p *Provider) ChatCompletion(ctx context.Context, params provider.CompletionParams) (<-chan provider.StreamEvent, error) {
	chatParams, err := p.buildRequest(ctx, &params)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	events := make(chan provider.StreamEvent, 10)
	go func() {
		defer close(events)
		if params.Stream {
			p.runStream(ctx, chatParams, &params, events)
		} else {
			p.runOnce(ctx, chatParams, &params, events)
		}
	}()
	return events, nil
}

func (p *Provider) runStream(ctx context.Context, params openai.ChatCompletionNewParams, command *provider.CompletionParams, events chan<- provider.StreamEvent) {
	strm := p.client.Chat.Completions.NewStreaming(ctx, params)

	if strm.Err() != nil {
		events <- errorEvent(command, strm.Err())
		strm.Close()
		return
	}

	defer func() {
		strm.Close()
		if err := ctx.Err(); err != nil {
			events <- errorEvent(command, err)
		}
	}()

	var started bool
	var acc openai.ChatCompletionAccumulator

	for strm.Next() {
		if err := ctx.Err(); err != nil {
			return
		}

		if !started {
			started = true
			events <- provider.Delim{RunID: command.RunID, Delim: "start"}
		}

		chunk := strm.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		events <- provider.Chunk{
			RunID:     command.RunID,
			Content:   chunk.Choices[0].Delta.Content,
			Timestamp: strfmt.DateTime(time.Now()),
		}
	}

	if err := strm.Err(); err != nil {
		if ctx.Err() == nil {
			events <- errorEvent(command, err)
		}
		return
	}

	if started && ctx.Err() == nil {
		events <- provider.Delim{RunID: command.RunID, Delim: "end"}
		events <- completionToStreamEvent(&acc.ChatCompletion, command)
	}
}

func (p *Provider) runOnce(ctx context.Context, params openai.ChatCompletionNewParams, command *provider.CompletionParams, events chan<- provider.StreamEvent) {
	chat, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		events <- errorEvent(command, err)
		return
	}

	events <- completionToStreamEvent(chat, command)
}

func turnsToOpenAI(instructions string, turns []messages.Turn) ([]openai.ChatCompletionMessageParamUnion, string) {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if strings.TrimSpace(instructions) != "" {
		result = append(result, openai.SystemMessage(instructions))
	}

	var user string
	for _, turn := range turns {
		switch t := turn.(type) {
		case messages.User:
			if t.Sender != "" {
				user = t.Sender
			}
			result = append(result, openai.UserMessage(t.Content))
		case messages.Critique:
			result = append(result, openai.UserMessage(t.Content))
		case messages.Assistant:
			result = append(result, openai.AssistantMessage(t.Content))
		case messages.ToolResult:
			result = append(result, openai.ToolMessage(t.ToolCallID, t.Content))
		}
	}
	return result, user
}

func completionToStreamEvent(chat *openai.ChatCompletion, command *provider.CompletionParams) provider.StreamEvent {
	if len(chat.Choices) == 0 {
		return provider.Delim{RunID: command.RunID, Delim: "empty"}
	}

	choice := chat.Choices[0]
	resp := provider.Response{
		RunID:        command.RunID,
		Model:        chat.Model,
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Timestamp:    strfmt.DateTime(time.Now()),
	}
	if chat.Usage.TotalTokens > 0 {
		resp.Meta = gjson.Parse(fmt.Sprintf(
			`{"usage":{"prompt_tokens":%d,"completion_tokens":%d,"total_tokens":%d}}`,
			chat.Usage.PromptTokens, chat.Usage.CompletionTokens, chat.Usage.TotalTokens,
		))
	}
	return resp
}

func errorEvent(command *provider.CompletionParams, err error) provider.Error {
	return provider.Error{
		RunID:     command.RunID,
		Err:       err,
		Timestamp: strfmt.DateTime(time.Now()),
	}
}
