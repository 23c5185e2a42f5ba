package session

import (
	"testing"
)

func TestNewSessionHasIdentifier(t *testing.T) {
	t.Chdir(t.TempDir())
	s, err := New("alpha")
	if err != nil {
		t.Fatal(err)
	}
	if s.ID == "" {
		t.Error("expected a generated session id")
	}
	if s.Name != "alpha" {
		t.Errorf("name = %q, want alpha", s.Name)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())
	s, err := New("alpha")
	if err != nil {
		t.Fatal(err)
	}
	s.AddMessage(Message{Role: "user", Content: "hello"})
	s.AddMessage(Message{
		Role: "assistant",
		ToolCalls: []ToolCall{{
			ToolCallID: "tc1",
			Name:       "read_file",
			Args:       map[string]interface{}{"path": "main.go"},
		}},
	})
	if err := s.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load("alpha")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.ID != s.ID {
		t.Errorf("id changed across save/load: %s vs %s", loaded.ID, s.ID)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(loaded.Messages))
	}
	tc := loaded.Messages[1].ToolCalls[0]
	if tc.Name != "read_file" || tc.Args["path"] != "main.go" {
		t.Errorf("tool call not preserved: %+v", tc)
	}
}

func TestLoadMissingSession(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load("nope"); err == nil {
		t.Error("expected an error for a missing session")
	}
}

func TestLoadAssignsIDWhenAbsent(t *testing.T) {
	t.Chdir(t.TempDir())
	s, err := New("legacy")
	if err != nil {
		t.Fatal(err)
	}
	s.ID = ""
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load("legacy")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ID == "" {
		t.Error("expected a fresh id for a legacy session file")
	}
}
