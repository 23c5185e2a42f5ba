package llm

import (
	"context"
	"encoding/json"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/shellicar/claude-cli/errors"
	"github.com/shellicar/claude-cli/logging"
	"github.com/shellicar/claude-cli/session"
	"github.com/shellicar/claude-cli/tools"
)

// OpenAIClient is a client for the OpenAI Chat Completion API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates an OpenAIClient. It requires the
// OPENAI_API_KEY environment variable, and honors OPENAI_BASE_URL for
// custom endpoints.
func NewOpenAIClient(ctx context.Context, modelName string) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	options := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	c := openai.NewClient(options...)
	return &OpenAIClient{client: &c, model: modelName}, nil
}

func (o *OpenAIClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: toOpenAIMessages(messages),
		Tools:    toOpenAITools(availableTools),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to OpenAI")
	}
	return fromOpenAIResponse(resp)
}

func fromOpenAIResponse(resp *openai.ChatCompletion) (*session.Message, error) {
	if len(resp.Choices) == 0 {
		return &session.Message{Role: "assistant"}, nil
	}
	choice := resp.Choices[0].Message

	if len(choice.ToolCalls) > 0 {
		var toolCalls []session.ToolCall
		for _, tc := range choice.ToolCalls {
			var args map[string]interface{}
			// Arguments arrive as a JSON string holding a flat map.
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, errors.Wrapf(err, "failed to unmarshal function call arguments from OpenAI")
			}
			toolCalls = append(toolCalls, session.ToolCall{
				ToolCallID: tc.ID,
				Name:       tc.Function.Name,
				Args:       args,
			})
		}
		return &session.Message{Role: "assistant", Content: choice.Content, ToolCalls: toolCalls}, nil
	}
	return &session.Message{Role: "assistant", Content: choice.Content}, nil
}

func toOpenAIMessages(messages []session.Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			out = append(out, openai.SystemMessage(msg.Content))
		case "assistant":
			assistant := openai.ChatCompletionMessage{
				Role:    "assistant",
				Content: msg.Content,
			}
			for _, tc := range msg.ToolCalls {
				argsBytes, err := json.Marshal(tc.Args)
				if err != nil {
					logging.Infof("could not marshal tool call arguments for %s: %v, skipping", tc.Name, err)
					continue
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnion{
					ID:   tc.ToolCallID,
					Type: "function",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{
						Name:      tc.Name,
						Arguments: string(argsBytes),
					},
				})
			}
			out = append(out, assistant.ToParam())
		case "tool":
			if len(msg.ToolCalls) != 1 {
				logging.Infof("malformed tool message: expected exactly one tool call, found %d, skipping", len(msg.ToolCalls))
				continue
			}
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCalls[0].ToolCallID))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func toOpenAITools(ts []tools.Tool) []openai.ChatCompletionToolUnionParam {
	if len(ts) == 0 {
		return nil
	}
	var out []openai.ChatCompletionToolUnionParam
	for _, t := range ts {
		// A generic object schema; the model infers arguments from the
		// tool description.
		params := openai.FunctionParameters{
			"type":       "object",
			"properties": map[string]any{},
		}
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name(),
			Description: openai.String(t.Description()),
			Parameters:  params,
		}))
	}
	return out
}
