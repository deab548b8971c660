package skypeetl

import "encoding/json"

// --- Domain types (relational entities landed by the Loader) ---

// Export is the Archive row for one pipeline run.
type Export struct {
	ExportID        int64             `json:"export_id,omitempty"`
	TaskID          string            `json:"task_id"`
	UserID          string            `json:"user_id"`
	UserDisplayName string            `json:"user_display_name"`
	ExportDate      string            `json:"export_date"`
	FileSource      string            `json:"file_source"`
	FileSize        int64             `json:"file_size"`
	CreatedAt       int64             `json:"created_at"`
	Properties      map[string]string `json:"properties,omitempty"`
}

// User is a participant identity, keyed by Skype MRI.
type User struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	IsSelf      bool           `json:"is_self"`
	Properties  map[string]any `json:"properties,omitempty"`
}

// ConversationType enumerates the kinds of threads the Loader recognizes.
type ConversationType string

const (
	ConversationOneToOne ConversationType = "one_to_one"
	ConversationGroup    ConversationType = "group"
	ConversationUnknown  ConversationType = "unknown"
)

// Conversation is a thread belonging to one Export.
type Conversation struct {
	ID                string           `json:"id"`
	DisplayName       string           `json:"display_name"`
	Type              ConversationType `json:"type"`
	ExportID          int64            `json:"export_id,omitempty"`
	FirstMessageTime  int64            `json:"first_message_time"`
	LastMessageTime   int64            `json:"last_message_time"`
	MessageCount      int              `json:"message_count"`
	ParticipantCount  int              `json:"participant_count"`
	Participants      []Participant    `json:"participants"`
	Messages          []Message        `json:"messages"`
}

// Participant is a (conversation, user) membership.
type Participant struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	IsSelf         bool   `json:"is_self"`
}

// Message is one chat event within a conversation.
type Message struct {
	ID              string          `json:"id"`
	ConversationID  string          `json:"conversation_id"`
	SenderID        string          `json:"sender_id"`
	SenderName      string          `json:"sender_name"`
	Timestamp       int64           `json:"timestamp"` // unix seconds, UTC
	TimestampSource string          `json:"timestamp_source,omitempty"` // "parsed" or "ingest_fallback"
	MessageType     string          `json:"message_type"`
	ContentHTML     string          `json:"content_html"`
	ContentText     string          `json:"content_text"`
	IsEdited        bool            `json:"is_edited"`
	StructuredData  json.RawMessage `json:"structured_data,omitempty"`
	Attachments     []Attachment    `json:"attachments,omitempty"`
}

// Attachment belongs to one Message.
type Attachment struct {
	MessageID       string         `json:"message_id"`
	Type            string         `json:"type"`
	Name            string         `json:"name"`
	URL             string         `json:"url"`
	ContentType     string         `json:"content_type"`
	Size            int64          `json:"size"`
	LocalPath       string         `json:"local_path,omitempty"`
	ThumbnailPath   string         `json:"thumbnail_path,omitempty"`
	ImageMetadata   map[string]any `json:"image_metadata,omitempty"`
}

// RawExport is the result of the Extract phase: run-level metadata plus
// every raw conversation object of the source, fully materialized in one
// slice.
type RawExport struct {
	UserID          string
	UserDisplayName string
	ExportDate      string
	Conversations   []RawConversation
}

// RawConversation is an unprocessed conversation as it appears in the
// source document, before Transform normalizes it.
type RawConversation struct {
	ID          string
	DisplayName string
	Type        string
	MessageList []RawMessage
}

// RawMessage is an unprocessed message as it appears in the source document.
type RawMessage struct {
	ID          string
	Timestamp   string // verbatim source timestamp, parsed by the Transformer
	SenderID    string
	SenderName  string
	MessageType string
	Content     string // verbatim HTML
	IsEdited    bool
}

// TransformedExport is the in-memory structure produced by the Transformer,
// consumed by the Loader.
type TransformedExport struct {
	User          User
	Conversations map[string]*Conversation
	Metadata      TransformMetadata
}

// TransformMetadata summarizes a completed transform pass.
type TransformMetadata struct {
	TransformedAt      int64
	ConversationCount  int
	MessageCount       int
	MessageTypeCounts  map[string]int
}
