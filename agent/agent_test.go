package agent

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/shellicar/claude-cli/approval"
	"github.com/shellicar/claude-cli/config"
	"github.com/shellicar/claude-cli/errors"
	"github.com/shellicar/claude-cli/llm"
	"github.com/shellicar/claude-cli/session"
)

func newTestAgent(t *testing.T, responses ...*session.Message) *Agent {
	t.Helper()
	t.Chdir(t.TempDir())
	sess, err := session.New("test")
	if err != nil {
		t.Fatal(err)
	}
	return New(config.Default(), sess, llm.NewScriptClient(responses...))
}

func TestTextOnlyTurn(t *testing.T) {
	a := newTestAgent(t, &session.Message{Role: "assistant", Content: "hello there"})

	var got []string
	cb := ProcessCallbacks{
		OnAssistantMessage: func(text string) { got = append(got, text) },
	}
	if err := a.ProcessUserInput(context.Background(), "hi", cb); err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if len(got) != 1 || got[0] != "hello there" {
		t.Errorf("unexpected assistant messages %v", got)
	}
	if len(a.Session.Messages) != 2 {
		t.Errorf("expected user+assistant in transcript, got %d messages", len(a.Session.Messages))
	}
}

func TestToolCallApprovedAndExecuted(t *testing.T) {
	a := newTestAgent(t,
		&session.Message{
			Role: "assistant",
			ToolCalls: []session.ToolCall{{
				ToolCallID: "tc1",
				Name:       "write_file",
				Args:       map[string]interface{}{"path": "out.txt", "content": "done"},
			}},
		},
		&session.Message{Role: "assistant", Content: "written"},
	)

	var results []string
	cb := ProcessCallbacks{
		ShouldExecuteTool: func(ctx context.Context, tc session.ToolCall) approval.Outcome {
			return approval.OutcomeAllowed
		},
		OnToolResult: func(tc session.ToolCall, result string, err error) {
			if err != nil {
				t.Errorf("tool failed: %v", err)
			}
			results = append(results, result)
		},
	}
	if err := a.ProcessUserInput(context.Background(), "write it", cb); err != nil {
		t.Fatalf("turn failed: %v", err)
	}

	data, err := os.ReadFile("out.txt")
	if err != nil || string(data) != "done" {
		t.Errorf("tool did not write the file: %v, %q", err, data)
	}
	if len(results) != 1 {
		t.Fatalf("expected one tool result, got %d", len(results))
	}
	// The turn loops back to the model after the tool result.
	last := a.Session.Messages[len(a.Session.Messages)-1]
	if last.Role != "assistant" || last.Content != "written" {
		t.Errorf("unexpected final message %+v", last)
	}
}

func TestToolCallDenied(t *testing.T) {
	a := newTestAgent(t,
		&session.Message{
			Role: "assistant",
			ToolCalls: []session.ToolCall{{
				ToolCallID: "tc1",
				Name:       "write_file",
				Args:       map[string]interface{}{"path": "out.txt", "content": "nope"},
			}},
		},
		&session.Message{Role: "assistant", Content: "understood"},
	)

	cb := ProcessCallbacks{
		ShouldExecuteTool: func(ctx context.Context, tc session.ToolCall) approval.Outcome {
			return approval.OutcomeDenied
		},
	}
	if err := a.ProcessUserInput(context.Background(), "write it", cb); err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if _, err := os.Stat("out.txt"); !os.IsNotExist(err) {
		t.Error("denied tool still executed")
	}

	var toolMsg *session.Message
	for i := range a.Session.Messages {
		if a.Session.Messages[i].Role == "tool" {
			toolMsg = &a.Session.Messages[i]
		}
	}
	if toolMsg == nil || !strings.Contains(toolMsg.Content, "not permitted") {
		t.Errorf("expected a denial tool result, got %+v", toolMsg)
	}
}

func TestTimedOutReadsAsDenial(t *testing.T) {
	a := newTestAgent(t,
		&session.Message{
			Role: "assistant",
			ToolCalls: []session.ToolCall{{
				ToolCallID: "tc1",
				Name:       "read_file",
				Args:       map[string]interface{}{"path": "x"},
			}},
		},
		&session.Message{Role: "assistant", Content: "ok"},
	)

	cb := ProcessCallbacks{
		ShouldExecuteTool: func(ctx context.Context, tc session.ToolCall) approval.Outcome {
			return approval.OutcomeTimedOut
		},
	}
	if err := a.ProcessUserInput(context.Background(), "go", cb); err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	for _, msg := range a.Session.Messages {
		if msg.Role == "tool" && !strings.Contains(msg.Content, "timed out") {
			t.Errorf("timeout outcome not visible to the model: %q", msg.Content)
		}
	}
}

func TestUnknownToolReported(t *testing.T) {
	a := newTestAgent(t,
		&session.Message{
			Role: "assistant",
			ToolCalls: []session.ToolCall{{
				ToolCallID: "tc1",
				Name:       "launch_rockets",
			}},
		},
		&session.Message{Role: "assistant", Content: "sorry"},
	)

	var result string
	cb := ProcessCallbacks{
		OnToolResult: func(tc session.ToolCall, r string, err error) { result = r },
	}
	if err := a.ProcessUserInput(context.Background(), "go", cb); err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if !strings.Contains(result, "unknown tool") {
		t.Errorf("expected unknown-tool result, got %q", result)
	}
}

func TestAskUserRoutedToPrompt(t *testing.T) {
	a := newTestAgent(t,
		&session.Message{
			Role: "assistant",
			ToolCalls: []session.ToolCall{{
				ToolCallID: "q1",
				Name:       AskUserToolName,
				Args: map[string]interface{}{
					"questions": []interface{}{
						map[string]interface{}{
							"text":    "Which port?",
							"options": []interface{}{"8080", "3000"},
						},
					},
				},
			}},
		},
		&session.Message{Role: "assistant", Content: "using 3000"},
	)

	cb := ProcessCallbacks{
		ShouldExecuteTool: func(ctx context.Context, tc session.ToolCall) approval.Outcome {
			t.Error("ask_user must not go through the approval hook")
			return approval.OutcomeDenied
		},
		AskUser: func(ctx context.Context, questions []approval.Question) (approval.Answers, error) {
			if len(questions) != 1 || questions[0].Text != "Which port?" {
				t.Errorf("unexpected questions %+v", questions)
			}
			return approval.Answers{"Which port?": "3000"}, nil
		},
	}
	if err := a.ProcessUserInput(context.Background(), "pick a port", cb); err != nil {
		t.Fatalf("turn failed: %v", err)
	}

	var toolMsg string
	for _, msg := range a.Session.Messages {
		if msg.Role == "tool" {
			toolMsg = msg.Content
		}
	}
	var answers map[string]string
	if err := json.Unmarshal([]byte(toolMsg), &answers); err != nil {
		t.Fatalf("answers are not JSON: %q", toolMsg)
	}
	if answers["Which port?"] != "3000" {
		t.Errorf("unexpected answers %v", answers)
	}
}

func TestPrepareToolCallsSeesWholeBatch(t *testing.T) {
	a := newTestAgent(t,
		&session.Message{
			Role: "assistant",
			ToolCalls: []session.ToolCall{
				{ToolCallID: "a", Name: "read_file", Args: map[string]interface{}{"path": "x"}},
				{ToolCallID: "b", Name: "read_file", Args: map[string]interface{}{"path": "y"}},
			},
		},
		&session.Message{Role: "assistant", Content: "done"},
	)

	var batch []string
	cb := ProcessCallbacks{
		PrepareToolCalls: func(tcs []session.ToolCall) {
			for _, tc := range tcs {
				batch = append(batch, tc.ToolCallID)
			}
		},
		ShouldExecuteTool: func(ctx context.Context, tc session.ToolCall) approval.Outcome {
			return approval.OutcomeDenied
		},
	}
	if err := a.ProcessUserInput(context.Background(), "go", cb); err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if len(batch) != 2 || batch[0] != "a" || batch[1] != "b" {
		t.Errorf("expected both calls announced up front, got %v", batch)
	}
}

func TestTurnCancelledMidTools(t *testing.T) {
	a := newTestAgent(t,
		&session.Message{
			Role: "assistant",
			ToolCalls: []session.ToolCall{
				{ToolCallID: "a", Name: "read_file", Args: map[string]interface{}{"path": "x"}},
				{ToolCallID: "b", Name: "read_file", Args: map[string]interface{}{"path": "y"}},
			},
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	var asked int
	cb := ProcessCallbacks{
		ShouldExecuteTool: func(ctx context.Context, tc session.ToolCall) approval.Outcome {
			asked++
			cancel()
			return approval.OutcomeCancelled
		},
	}
	err := a.ProcessUserInput(ctx, "go", cb)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation error, got %v", err)
	}
	if asked != 1 {
		t.Errorf("expected the second tool skipped after cancellation, asked %d", asked)
	}
}

func TestParseQuestions(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]interface{}
		wantErr bool
	}{
		{"missing list", map[string]interface{}{}, true},
		{"empty list", map[string]interface{}{"questions": []interface{}{}}, true},
		{"not objects", map[string]interface{}{"questions": []interface{}{"just a string"}}, true},
		{"missing text", map[string]interface{}{"questions": []interface{}{map[string]interface{}{"options": []interface{}{"a"}}}}, true},
		{"valid", map[string]interface{}{"questions": []interface{}{map[string]interface{}{"text": "q", "options": []interface{}{"a", "b"}}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs, err := parseQuestions(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(qs) != 1 || qs[0].Text != "q" || len(qs[0].Options) != 2 {
				t.Errorf("unexpected questions %+v", qs)
			}
		})
	}
}
