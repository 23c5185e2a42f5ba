package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/shellicar/claude-cli/session"
	"github.com/shellicar/claude-cli/tools"
)

// Client is the interface for interacting with a chat model.
type Client interface {
	Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error)
}

// ScriptClient replays a fixed sequence of responses. It backs the
// "stub" provider and the agent tests; once the script runs out it
// echoes the last user message.
type ScriptClient struct {
	mu        sync.Mutex
	responses []*session.Message
	idx       int
}

func NewScriptClient(responses ...*session.Message) *ScriptClient {
	return &ScriptClient{responses: responses}
}

func (s *ScriptClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx < len(s.responses) {
		resp := s.responses[s.idx]
		s.idx++
		return resp, nil
	}
	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return &session.Message{
		Role:    "assistant",
		Content: fmt.Sprintf("echo: %s", last),
	}, nil
}
