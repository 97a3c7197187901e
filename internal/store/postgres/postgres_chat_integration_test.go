package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"innsight/backend/internal/domain"
)

func TestAppendChatMessageAssignsSequentialSeq(t *testing.T) {
	databaseURL := os.Getenv("INNSIGHT_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set INNSIGHT_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	conversationID := fmt.Sprintf("guest-chat-it-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE conversation_id = $1`, conversationID)
	})

	first, err := s.AppendChatMessage(ctx, domain.ChatMessage{
		ConversationID: conversationID,
		SenderUsername: conversationID,
		SenderRole:     domain.RoleGuest,
		Body:           "could we get extra towels?",
	})
	if err != nil {
		t.Fatalf("append first message: %v", err)
	}
	if first.Seq != 1 {
		t.Fatalf("expected first seq 1, got %d", first.Seq)
	}

	second, err := s.AppendChatMessage(ctx, domain.ChatMessage{
		ConversationID: conversationID,
		SenderUsername: "admin",
		SenderRole:     domain.RoleAdmin,
		Body:           "on the way",
	})
	if err != nil {
		t.Fatalf("append second message: %v", err)
	}
	if second.Seq != 2 {
		t.Fatalf("expected second seq 2, got %d", second.Seq)
	}

	messages, err := s.ListChatMessages(ctx, conversationID, first.Seq, 10)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message after cursor %d, got %d", first.Seq, len(messages))
	}
	if messages[0].Body != "on the way" {
		t.Fatalf("unexpected message body %q", messages[0].Body)
	}
}
