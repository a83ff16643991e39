package chat

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chatterbox/server/internal/model"
)

func mkMsg(sender model.Sender, content string) model.Message {
	return model.Message{
		ID:        uuid.New(),
		Content:   content,
		Sender:    sender,
		CreatedAt: time.Now(),
	}
}

func TestBuildContext_RoleSequence(t *testing.T) {
	u1 := mkMsg(model.SenderUser, "u1")
	b1 := mkMsg(model.SenderBot, "b1")
	u2 := mkMsg(model.SenderUser, "u2")
	u3 := mkMsg(model.SenderUser, "u3")

	// History fetch already includes the inbound message
	window := buildContext([]model.Message{u1, b1, u2, u3}, u3)

	want := []ChatMessage{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: "u1"},
		{Role: RoleAssistant, Content: "b1"},
		{Role: RoleUser, Content: "u2"},
		{Role: RoleUser, Content: "u3"},
	}
	if len(window) != len(want) {
		t.Fatalf("window length: got %d want %d", len(window), len(want))
	}
	for i := range want {
		if window[i] != want[i] {
			t.Errorf("window[%d]: got %+v want %+v", i, window[i], want[i])
		}
	}
}

func TestBuildContext_AppendsInboundWhenMissing(t *testing.T) {
	u1 := mkMsg(model.SenderUser, "u1")
	u2 := mkMsg(model.SenderUser, "u2")

	window := buildContext([]model.Message{u1}, u2)

	if len(window) != 3 {
		t.Fatalf("window length: got %d want 3", len(window))
	}
	last := window[len(window)-1]
	if last.Role != RoleUser || last.Content != "u2" {
		t.Errorf("inbound message must be appended last, got %+v", last)
	}
}

func TestBuildContext_EmptyHistory(t *testing.T) {
	u1 := mkMsg(model.SenderUser, "hello")

	window := buildContext(nil, u1)

	if len(window) != 2 {
		t.Fatalf("window length: got %d want 2", len(window))
	}
	if window[0].Role != RoleSystem {
		t.Errorf("first entry must be the system instruction, got %+v", window[0])
	}
	if window[1].Role != RoleUser || window[1].Content != "hello" {
		t.Errorf("second entry must be the inbound message, got %+v", window[1])
	}
}
