package extract

import (
	"archive/tar"
	"os"
	"path/filepath"
	"testing"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

const sampleDoc = `{
  "userId": "8:alice",
  "exportDate": "2024-01-01T00:00:00Z",
  "conversations": [
    {
      "id": "19:abc@thread.skype",
      "displayName": "Team chat",
      "type": "Group",
      "MessageList": [
        {"id": "1", "originalarrivaltime": "2024-01-01T10:00:00Z", "from": "8:alice", "messagetype": "Text", "content": "hi", "edited": false}
      ]
    }
  ]
}`

func newTestContext(t *testing.T) *skypeetl.Context {
	t.Helper()
	return skypeetl.NewContext(skypeetl.Config{OutputDir: t.TempDir()})
}

func TestExtractJSONSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.json")
	if err := os.WriteFile(path, []byte(sampleDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := newTestContext(t)
	e := New(ctx)
	export, err := e.Extract(path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if export.UserID != "8:alice" || export.ExportDate != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected export metadata: %+v", export)
	}
	if len(export.Conversations) != 1 || len(export.Conversations[0].MessageList) != 1 {
		t.Fatalf("unexpected conversations: %+v", export.Conversations)
	}
}

func TestExtractSourceNotFound(t *testing.T) {
	ctx := newTestContext(t)
	e := New(ctx)
	_, err := e.Extract(filepath.Join(t.TempDir(), "missing.json"))
	if err != ErrSourceNotFound {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.txt")
	os.WriteFile(path, []byte("hello"), 0o644)

	ctx := newTestContext(t)
	e := New(ctx)
	_, err := e.Extract(path)
	if err != ErrUnsupportedFormat {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.json")
	os.WriteFile(path, []byte("{not valid json"), 0o644)

	ctx := newTestContext(t)
	e := New(ctx)
	_, err := e.Extract(path)
	if err == nil {
		t.Fatal("expected an error for invalid json")
	}
}

func TestExtractTarSource(t *testing.T) {
	dir := t.TempDir()
	tarPath := filepath.Join(dir, "export.tar")
	f, err := os.Create(tarPath)
	if err != nil {
		t.Fatal(err)
	}
	tw := tar.NewWriter(f)
	content := []byte(sampleDoc)
	if err := tw.WriteHeader(&tar.Header{Name: "messages.json", Size: int64(len(content)), Mode: 0o644}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatal(err)
	}
	tw.Close()
	f.Close()

	ctx := newTestContext(t)
	e := New(ctx)
	export, err := e.Extract(tarPath)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if export.UserID != "8:alice" {
		t.Fatalf("unexpected user id: %s", export.UserID)
	}
}

func TestExtractMissingMetadataFallsBackToFirstMessage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.json")
	doc := `{
      "conversations": [
        {"id": "1", "MessageList": [{"id": "1", "originalarrivaltime": "2024-01-01T10:00:00Z", "from": "8:bob", "messagetype": "Text", "content": "hi"}]}
      ]
    }`
	os.WriteFile(path, []byte(doc), 0o644)

	ctx := newTestContext(t)
	e := New(ctx)
	export, err := e.Extract(path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if export.UserID != "8:bob" {
		t.Fatalf("expected fallback user id 8:bob, got %s", export.UserID)
	}
}

func TestExtractMissingMetadataErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.json")
	os.WriteFile(path, []byte(`{"conversations": []}`), 0o644)

	ctx := newTestContext(t)
	e := New(ctx)
	_, err := e.Extract(path)
	if err != ErrMissingMetadata {
		t.Fatalf("expected ErrMissingMetadata, got %v", err)
	}
}

func TestExtractUnwrapsNestedMessagesVariant(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.json")
	doc := `{
      "messages": [
        {
          "userId": "8:alice",
          "exportDate": "2024-01-01T00:00:00Z",
          "conversations": [
            {"id": "19:abc@thread.skype", "displayName": "Team chat", "type": "Group",
             "MessageList": [{"id": "1", "originalarrivaltime": "2024-01-01T10:00:00Z", "from": "8:alice", "messagetype": "Text", "content": "hi"}]}
          ]
        }
      ]
    }`
	os.WriteFile(path, []byte(doc), 0o644)

	ctx := newTestContext(t)
	e := New(ctx)
	export, err := e.Extract(path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if export.UserID != "8:alice" || export.ExportDate != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected export metadata: %+v", export)
	}
	if len(export.Conversations) != 1 || len(export.Conversations[0].MessageList) != 1 {
		t.Fatalf("unexpected conversations: %+v", export.Conversations)
	}
}

func TestExtractUserDisplayNameFallsBackToConfigThenMe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.json")
	os.WriteFile(path, []byte(sampleDoc), 0o644)

	ctx := newTestContext(t)
	if _, err := New(ctx).Extract(path); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if _, displayName, _ := ctx.UserMetadata(); displayName != "Me" {
		t.Fatalf("expected default display name %q, got %q", "Me", displayName)
	}

	ctx2 := skypeetl.NewContext(skypeetl.Config{OutputDir: t.TempDir(), UserDisplayName: "Configured Name"})
	if _, err := New(ctx2).Extract(path); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if _, displayName, _ := ctx2.UserMetadata(); displayName != "Configured Name" {
		t.Fatalf("expected configured display name, got %q", displayName)
	}
}
