package transform

import (
	"context"
	"testing"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
	"github.com/dependable-call-exchange/skypeetl/handlers"
)

func newTestContext(t *testing.T, chunkSize, maxWorkers int, parallel bool) *skypeetl.Context {
	t.Helper()
	return skypeetl.NewContext(skypeetl.Config{
		OutputDir:          t.TempDir(),
		ChunkSize:          chunkSize,
		MaxWorkers:         maxWorkers,
		ParallelProcessing: parallel,
	})
}

func sampleRawExport(messageCount int) *skypeetl.RawExport {
	messages := make([]skypeetl.RawMessage, messageCount)
	for i := 0; i < messageCount; i++ {
		messages[i] = skypeetl.RawMessage{
			ID:          itoa(i),
			Timestamp:   "2024-01-01T10:00:00Z",
			SenderID:    "8:alice",
			MessageType: "Text",
			Content:     "hello",
		}
	}
	return &skypeetl.RawExport{
		UserID:     "8:alice",
		ExportDate: "2024-01-01T00:00:00Z",
		Conversations: []skypeetl.RawConversation{
			{ID: "conv-1", DisplayName: "Team", Type: "Group", MessageList: messages},
		},
	}
}

func itoa(i int) string {
	digits := "0123456789"
	if i == 0 {
		return "0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{digits[i%10]}, b...)
		i /= 10
	}
	return string(b)
}

func TestTransformSequential(t *testing.T) {
	runCtx := newTestContext(t, 10, 1, false)
	tr := New(runCtx, handlers.NewFactory())

	out, err := tr.Transform(context.Background(), sampleRawExport(25))
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	conv := out.Conversations["conv-1"]
	if conv == nil || len(conv.Messages) != 25 {
		t.Fatalf("expected 25 messages, got %+v", conv)
	}
	if out.Metadata.MessageCount != 25 {
		t.Fatalf("expected metadata message count 25, got %d", out.Metadata.MessageCount)
	}
}

func TestTransformParallelChunksDeterministicOrder(t *testing.T) {
	runCtx := newTestContext(t, 5, 4, true)
	tr := New(runCtx, handlers.NewFactory())

	out, err := tr.Transform(context.Background(), sampleRawExport(37))
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	conv := out.Conversations["conv-1"]
	if len(conv.Messages) != 37 {
		t.Fatalf("expected 37 messages, got %d", len(conv.Messages))
	}
	for i := 1; i < len(conv.Messages); i++ {
		if conv.Messages[i].Timestamp < conv.Messages[i-1].Timestamp {
			t.Fatalf("messages not sorted ascending at index %d", i)
		}
	}
}

func TestTransformEmptyConversation(t *testing.T) {
	runCtx := newTestContext(t, 10, 1, false)
	tr := New(runCtx, handlers.NewFactory())

	raw := &skypeetl.RawExport{
		UserID:     "8:alice",
		ExportDate: "2024-01-01T00:00:00Z",
		Conversations: []skypeetl.RawConversation{
			{ID: "empty-conv", DisplayName: "Empty", Type: "Group"},
		},
	}
	out, err := tr.Transform(context.Background(), raw)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	conv := out.Conversations["empty-conv"]
	if conv == nil || len(conv.Messages) != 0 {
		t.Fatalf("expected empty message list, got %+v", conv)
	}
}

func TestTransformRespectsCancellation(t *testing.T) {
	runCtx := newTestContext(t, 5, 2, true)
	tr := New(runCtx, handlers.NewFactory())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Transform(ctx, sampleRawExport(50))
	if err == nil {
		t.Fatal("expected an error from a pre-cancelled context")
	}
}

func TestTransformStampsConversationIDAndSelfParticipant(t *testing.T) {
	runCtx := newTestContext(t, 10, 1, false)
	tr := New(runCtx, handlers.NewFactory())

	raw := sampleRawExport(3)
	raw.Conversations[0].MessageList[1].SenderID = "8:bob"
	out, err := tr.Transform(context.Background(), raw)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	conv := out.Conversations["conv-1"]
	for _, m := range conv.Messages {
		if m.ConversationID != "conv-1" {
			t.Fatalf("expected conversation_id conv-1, got %q", m.ConversationID)
		}
	}

	byUser := make(map[string]bool)
	for _, p := range conv.Participants {
		byUser[p.UserID] = p.IsSelf
	}
	if !byUser["8:alice"] {
		t.Fatalf("expected exporting user 8:alice marked is_self, got %+v", conv.Participants)
	}
	if byUser["8:bob"] {
		t.Fatalf("expected correspondent 8:bob not marked is_self, got %+v", conv.Participants)
	}
}

func TestTransformUserDisplayNameFallsBackToUserID(t *testing.T) {
	runCtx := newTestContext(t, 10, 1, false)
	tr := New(runCtx, handlers.NewFactory())

	out, err := tr.Transform(context.Background(), sampleRawExport(1))
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if out.User.DisplayName != "8:alice" {
		t.Fatalf("expected display name to fall back to user id, got %q", out.User.DisplayName)
	}

	raw := sampleRawExport(1)
	raw.UserDisplayName = "Alice Example"
	out, err = tr.Transform(context.Background(), raw)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if out.User.DisplayName != "Alice Example" {
		t.Fatalf("expected carried-through display name, got %q", out.User.DisplayName)
	}
}

func TestParseTimestampFallback(t *testing.T) {
	_, source := parseTimestamp("not a timestamp")
	if source != "ingest_fallback" {
		t.Fatalf("expected ingest_fallback, got %s", source)
	}
	_, source = parseTimestamp("2024-01-01T10:00:00Z")
	if source != "parsed" {
		t.Fatalf("expected parsed, got %s", source)
	}
}
