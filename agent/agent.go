// Package agent contains the turn-processing core and the interactive
// session orchestrator. The Agent type runs the LLM/tool loop for one
// user message; the App type (app.go) wires it to the terminal.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shellicar/claude-cli/approval"
	"github.com/shellicar/claude-cli/config"
	"github.com/shellicar/claude-cli/errors"
	"github.com/shellicar/claude-cli/llm"
	"github.com/shellicar/claude-cli/logging"
	"github.com/shellicar/claude-cli/session"
	"github.com/shellicar/claude-cli/tools"
)

// AskUserToolName is the virtual tool through which the model asks the
// user multiple-choice questions. It is advertised like any other tool
// but routed to the question prompt instead of the registry.
const AskUserToolName = "ask_user"

// ProcessCallbacks connects a turn in progress to the interaction mode
// driving it. All callbacks run on the turn goroutine.
type ProcessCallbacks struct {
	// OnAssistantMessage delivers each assistant text response.
	OnAssistantMessage func(text string)
	// PrepareToolCalls announces a whole response's tool calls before
	// any of them executes, so concurrent approvals can be queued
	// together.
	PrepareToolCalls func(tcs []session.ToolCall)
	// OnToolCall announces a tool call before the approval decision.
	OnToolCall func(tc session.ToolCall)
	// OnToolResult delivers a tool's output or failure.
	OnToolResult func(tc session.ToolCall, result string, err error)
	// ShouldExecuteTool gates every registry tool call. It may block
	// until the user decides; ctx cancellation resolves it.
	ShouldExecuteTool func(ctx context.Context, tc session.ToolCall) approval.Outcome
	// AskUser runs the multi-question prompt flow for the ask_user
	// tool and returns the accumulated answers.
	AskUser func(ctx context.Context, questions []approval.Question) (approval.Answers, error)
}

// Agent owns one conversation: the transcript, the model client, and
// the tool registry.
type Agent struct {
	Config   *config.Config
	Session  *session.Session
	Client   llm.Client
	Registry *tools.Registry
}

func New(cfg *config.Config, sess *session.Session, client llm.Client) *Agent {
	return &Agent{
		Config:   cfg,
		Session:  sess,
		Client:   client,
		Registry: tools.NewRegistry(cfg),
	}
}

// availableTools is the registry plus the virtual ask_user tool.
func (a *Agent) availableTools() []tools.Tool {
	return append(a.Registry.All(), askUserTool{})
}

// ProcessUserInput runs one full turn: the user message goes to the
// model, tool calls are gated through the callbacks and executed, and
// the loop continues until the model answers without requesting tools.
func (a *Agent) ProcessUserInput(ctx context.Context, userInput string, cb ProcessCallbacks) error {
	a.Session.AddMessage(session.Message{Role: "user", Content: userInput})

	for {
		resp, err := a.Client.Chat(ctx, a.Session.Messages, a.availableTools())
		if err != nil {
			return errors.Wrapf(err, "chat request failed")
		}
		a.Session.AddMessage(*resp)

		if resp.Content != "" && cb.OnAssistantMessage != nil {
			cb.OnAssistantMessage(resp.Content)
		}

		if len(resp.ToolCalls) == 0 {
			a.save()
			return nil
		}

		if cb.PrepareToolCalls != nil {
			cb.PrepareToolCalls(resp.ToolCalls)
		}
		for _, tc := range resp.ToolCalls {
			if cb.OnToolCall != nil {
				cb.OnToolCall(tc)
			}
			result, err := a.runTool(ctx, tc, cb)
			if err != nil {
				result = fmt.Sprintf("Error: %v", err)
			}
			a.Session.AddMessage(session.Message{
				Role:      "tool",
				Content:   result,
				ToolCalls: []session.ToolCall{tc},
			})
			if cb.OnToolResult != nil {
				cb.OnToolResult(tc, result, err)
			}
			if ctx.Err() != nil {
				a.save()
				return errors.Wrapf(ctx.Err(), "turn cancelled")
			}
		}
		a.save()
	}
}

// runTool resolves approval and executes a single tool call.
func (a *Agent) runTool(ctx context.Context, tc session.ToolCall, cb ProcessCallbacks) (string, error) {
	if tc.Name == AskUserToolName {
		return a.runAskUser(ctx, tc, cb)
	}

	tool, ok := a.Registry.Get(tc.Name)
	if !ok {
		return "", errors.New("unknown tool '%s'", tc.Name)
	}

	outcome := approval.OutcomeAllowed
	if cb.ShouldExecuteTool != nil {
		outcome = cb.ShouldExecuteTool(ctx, tc)
	}
	if !outcome.Allowed() {
		return fmt.Sprintf("Tool execution not permitted: %s.", outcome), nil
	}
	return tool.Execute(ctx, tc.Args)
}

func (a *Agent) runAskUser(ctx context.Context, tc session.ToolCall, cb ProcessCallbacks) (string, error) {
	if cb.AskUser == nil {
		return "", errors.New("ask_user is not available in this mode")
	}
	questions, err := parseQuestions(tc.Args)
	if err != nil {
		return "", err
	}
	answers, err := cb.AskUser(ctx, questions)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return "", errors.Wrapf(err, "failed to serialize answers")
	}
	return string(data), nil
}

func (a *Agent) save() {
	if err := a.Session.Save(); err != nil {
		logging.Infof("failed to save session: %v", err)
	}
}

// parseQuestions decodes the ask_user arguments: a "questions" list of
// {text, options} objects.
func parseQuestions(args map[string]interface{}) ([]approval.Question, error) {
	raw, ok := args["questions"].([]interface{})
	if !ok || len(raw) == 0 {
		return nil, errors.New("ask_user requires a non-empty 'questions' list")
	}
	var out []approval.Question
	for _, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, errors.New("each question must be an object with 'text' and 'options'")
		}
		text, _ := obj["text"].(string)
		if text == "" {
			return nil, errors.New("question is missing its 'text'")
		}
		q := approval.Question{Text: text}
		if opts, ok := obj["options"].([]interface{}); ok {
			for _, o := range opts {
				if s, ok := o.(string); ok {
					q.Options = append(q.Options, s)
				}
			}
		}
		out = append(out, q)
	}
	return out, nil
}

// askUserTool is the advertised definition of the virtual question
// tool. Execute is never reached; the agent intercepts the call.
type askUserTool struct{}

func (askUserTool) Name() string { return AskUserToolName }
func (askUserTool) Description() string {
	return "Asks the user one or more multiple-choice questions and returns their answers. " +
		"Args: questions (list of {text: string, options: [string]})."
}
func (askUserTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	return "", errors.New("ask_user must be handled by the session")
}
