package providers

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/nexuscore/gateway/internal/agent"
	"github.com/nexuscore/gateway/internal/agent/toolconv"
	"github.com/nexuscore/gateway/pkg/models"
	openai "github.com/sashabaranov/go-openai"
)

// contains is a thin strings.Contains wrapper kept so the per-vendor
// isRetryableError implementations in this package read the same way they
// always have; the earlier hand-rolled substring scan it replaced was dead
// weight next to the standard library.
func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

// openai.go, azure.go, openrouter.go, and copilot_proxy.go all talk to the
// same OpenAI-compatible chat-completions wire format through
// github.com/sashabaranov/go-openai, differing only in how they construct
// the client (base URL, auth) and in provider-name error wrapping. This
// file holds that shared request/response plumbing so the four vendor
// files reduce to "build a client" plus a thin Complete method.

// buildOpenAICompatRequest assembles a streaming ChatCompletionRequest from
// the vendor-neutral CompletionRequest, including temperature, tool_choice,
// and response_format — fields every OpenAI-compatible vendor in this
// package previously dropped on the floor.
func buildOpenAICompatRequest(model string, req *agent.CompletionRequest) (openai.ChatCompletionRequest, error) {
	messages, err := convertOpenAICompatMessages(req.Messages, req.System)
	if err != nil {
		return openai.ChatCompletionRequest{}, err
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	}

	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		chatReq.Temperature = float32(req.Temperature)
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = toolconv.ToOpenAITools(req.Tools)
	}
	if choice := openAICompatToolChoice(req.ToolChoice); choice != nil {
		chatReq.ToolChoice = choice
	}
	if req.ResponseFormat != nil && req.ResponseFormat.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	return chatReq, nil
}

// openAICompatToolChoice maps the gateway's ToolChoice string onto the
// go-openai request field, which accepts either one of the three mode
// strings or a {type, function} object naming a specific tool.
func openAICompatToolChoice(choice string) any {
	switch choice {
	case "":
		return nil
	case "auto", "required", "none":
		return choice
	default:
		return openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: choice},
		}
	}
}

// convertOpenAICompatMessages converts internal messages (plus a separate
// system prompt) into the OpenAI message list: vision attachments become
// multi-content parts, assistant tool calls become ToolCalls, and tool
// results become one role="tool" message per result.
func convertOpenAICompatMessages(messages []agent.CompletionMessage, system string) ([]openai.ChatCompletionMessage, error) {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)

	if system != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{Role: msg.Role}

		switch msg.Role {
		case "user", "system":
			hasImages := false
			for _, att := range msg.Attachments {
				if att.Type == "image" {
					hasImages = true
					break
				}
			}

			if hasImages {
				contentParts := make([]openai.ChatMessagePart, 0)
				if msg.Content != "" {
					contentParts = append(contentParts, openai.ChatMessagePart{
						Type: openai.ChatMessagePartTypeText,
						Text: msg.Content,
					})
				}
				for _, att := range msg.Attachments {
					if att.Type == "image" {
						contentParts = append(contentParts, openai.ChatMessagePart{
							Type: openai.ChatMessagePartTypeImageURL,
							ImageURL: &openai.ChatMessageImageURL{
								URL:    att.URL,
								Detail: openai.ImageURLDetailAuto,
							},
						})
					}
				}
				oaiMsg.MultiContent = contentParts
			} else {
				oaiMsg.Content = msg.Content
			}

		case "assistant":
			oaiMsg.Content = msg.Content
			if len(msg.ToolCalls) > 0 {
				oaiMsg.ToolCalls = make([]openai.ToolCall, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					oaiMsg.ToolCalls[i] = openai.ToolCall{
						ID:   tc.ID,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      tc.Name,
							Arguments: string(tc.Input),
						},
					}
				}
			}

		case "tool":
			if len(msg.ToolResults) > 0 {
				for _, tr := range msg.ToolResults {
					result = append(result, openai.ChatCompletionMessage{
						Role:       openai.ChatMessageRoleTool,
						Content:    tr.Content,
						ToolCallID: tr.ToolCallID,
					})
				}
				continue
			}
		}

		result = append(result, oaiMsg)
	}

	return result, nil
}

// streamOpenAICompat drains an OpenAI-compatible chat-completion stream,
// emitting a Text chunk per content delta and assembling ToolCall chunks
// across the index-keyed delta fragments vendors split function arguments
// into. wrapErr lets each caller attach its own provider name/status to a
// terminal stream error.
func streamOpenAICompat(ctx context.Context, stream *openai.ChatCompletionStream, chunks chan<- *agent.CompletionChunk, wrapErr func(error) error) {
	defer close(chunks)
	defer stream.Close()

	toolCalls := make(map[int]*models.ToolCall)
	flushToolCalls := func() {
		for _, tc := range toolCalls {
			if tc.ID != "" && tc.Name != "" {
				chunks <- &agent.CompletionChunk{ToolCall: tc}
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			chunks <- &agent.CompletionChunk{Error: ctx.Err(), Done: true}
			return
		default:
		}

		response, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				flushToolCalls()
				chunks <- &agent.CompletionChunk{Done: true}
				return
			}
			chunks <- &agent.CompletionChunk{Error: wrapErr(err), Done: true}
			return
		}

		if len(response.Choices) == 0 {
			continue
		}

		delta := response.Choices[0].Delta

		if delta.Content != "" {
			chunks <- &agent.CompletionChunk{Text: delta.Content}
		}

		for _, tc := range delta.ToolCalls {
			index := 0
			if tc.Index != nil {
				index = *tc.Index
			}
			if toolCalls[index] == nil {
				toolCalls[index] = &models.ToolCall{}
			}
			if tc.ID != "" {
				toolCalls[index].ID = tc.ID
			}
			if tc.Function.Name != "" {
				toolCalls[index].Name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				var currentArgs string
				if toolCalls[index].Input != nil {
					currentArgs = string(toolCalls[index].Input)
				}
				currentArgs += tc.Function.Arguments
				toolCalls[index].Input = json.RawMessage(currentArgs)
			}
		}

		if response.Choices[0].FinishReason == "tool_calls" {
			flushToolCalls()
			toolCalls = make(map[int]*models.ToolCall)
		}
	}
}

// isOpenAICompatRetryable classifies rate-limit, 5xx, and timeout failures
// as retryable for any OpenAI-compatible vendor, preferring a classified
// ProviderError when one is already attached to err.
func isOpenAICompatRetryable(err error) bool {
	if err == nil {
		return false
	}
	if providerErr, ok := GetProviderError(err); ok {
		return providerErr.Reason.IsRetryable()
	}

	errMsg := err.Error()
	for _, s := range []string{"rate limit", "429", "500", "502", "503", "504", "timeout", "deadline exceeded", "throttl"} {
		if contains(errMsg, s) {
			return true
		}
	}
	return false
}
