package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

// tableSpec names a target table, its insertion column order, and the
// natural key an upsert conflicts on. Shared by BulkStrategy and
// IndividualStrategy so both strategies agree on column order and upsert
// semantics.
type tableSpec struct {
	name        string
	columns     []string
	conflictKey []string
}

// tableRows is a flattened, column-ordered view of one table's worth of
// rows, ready for pgx.CopyFromRows or individual parameterized INSERTs.
type tableRows struct {
	rows [][]any
}

var userTable = tableSpec{
	name:        "users",
	columns:     []string{"id", "display_name", "is_self", "properties"},
	conflictKey: []string{"id"},
}

var conversationTable = tableSpec{
	name: "conversations",
	columns: []string{
		"id", "export_id", "display_name", "type",
		"first_message_time", "last_message_time",
		"message_count", "participant_count",
	},
	conflictKey: []string{"id"},
}

var participantTable = tableSpec{
	name:        "participants",
	columns:     []string{"conversation_id", "user_id", "is_self"},
	conflictKey: []string{"conversation_id", "user_id"},
}

var messageTable = tableSpec{
	name: "messages",
	columns: []string{
		"id", "conversation_id", "sender_id", "sender_name",
		"timestamp", "timestamp_source", "message_type",
		"content_html", "content_text", "is_edited", "structured_data",
	},
	conflictKey: []string{"id"},
}

var attachmentTable = tableSpec{
	name: "attachments",
	columns: []string{
		"message_id", "type", "name", "url", "content_type", "size",
		"local_path", "thumbnail_path", "image_metadata",
	},
	conflictKey: []string{"message_id", "name"},
}

func unixToTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// userRows collects every distinct user the transformed export references:
// the exporting User plus every distinct sender/participant identity seen
// across conversations, so foreign keys from messages/participants always
// resolve even for correspondents who never appear in a Properties blob.
func userRows(data *skypeetl.TransformedExport) (tableRows, error) {
	seen := map[string]skypeetl.User{data.User.ID: data.User}

	for _, conv := range data.Conversations {
		for _, p := range conv.Participants {
			if _, ok := seen[p.UserID]; !ok {
				seen[p.UserID] = skypeetl.User{ID: p.UserID, IsSelf: p.IsSelf}
			}
		}
		for _, m := range conv.Messages {
			if _, ok := seen[m.SenderID]; !ok && m.SenderID != "" {
				seen[m.SenderID] = skypeetl.User{ID: m.SenderID, DisplayName: m.SenderName}
			}
		}
	}

	rows := make([][]any, 0, len(seen))
	for _, u := range seen {
		props, err := marshalJSONB(u.Properties)
		if err != nil {
			return tableRows{}, fmt.Errorf("postgres: marshal user properties for %q: %w", u.ID, err)
		}
		rows = append(rows, []any{u.ID, u.DisplayName, u.IsSelf, props})
	}
	return tableRows{rows: rows}, nil
}

// conversationRows flattens every Conversation plus its Participants,
// computing first/last message time and counts when not already populated
// (the Loader's aggregate-from-transformed-data fallback).
func conversationRows(exportID int64, data *skypeetl.TransformedExport) (tableRows, tableRows, error) {
	convRows := make([][]any, 0, len(data.Conversations))
	var participantRows [][]any

	for _, conv := range data.Conversations {
		first, last, count := conversationAggregates(conv)
		convRows = append(convRows, []any{
			conv.ID, exportID, conv.DisplayName, string(conv.Type),
			unixToTime(first), unixToTime(last), count, len(conv.Participants),
		})
		for _, p := range conv.Participants {
			participantRows = append(participantRows, []any{p.ConversationID, p.UserID, p.IsSelf})
		}
	}
	return tableRows{rows: convRows}, tableRows{rows: participantRows}, nil
}

// conversationAggregates computes first_message_time/last_message_time/
// message_count from a Conversation's Messages when the Transformer hasn't
// already populated them, per the Loader's aggregate-fallback contract.
func conversationAggregates(conv *skypeetl.Conversation) (first, last int64, count int) {
	if conv.FirstMessageTime != 0 || conv.LastMessageTime != 0 || conv.MessageCount != 0 {
		return conv.FirstMessageTime, conv.LastMessageTime, conv.MessageCount
	}
	count = len(conv.Messages)
	for i, m := range conv.Messages {
		if i == 0 || m.Timestamp < first {
			first = m.Timestamp
		}
		if m.Timestamp > last {
			last = m.Timestamp
		}
	}
	return first, last, count
}

// messageRows flattens every Message plus its Attachments across all
// conversations in the transformed export.
func messageRows(data *skypeetl.TransformedExport) (tableRows, tableRows, error) {
	var msgRows, attachRows [][]any

	for _, conv := range data.Conversations {
		for _, m := range conv.Messages {
			structured := []byte(m.StructuredData)
			if len(structured) == 0 {
				structured = nil
			}
			msgRows = append(msgRows, []any{
				m.ID, m.ConversationID, m.SenderID, m.SenderName,
				unixToTime(m.Timestamp), orDefault(m.TimestampSource, "parsed"),
				m.MessageType, m.ContentHTML, m.ContentText, m.IsEdited, structured,
			})
			for _, a := range m.Attachments {
				meta, err := marshalJSONB(a.ImageMetadata)
				if err != nil {
					return tableRows{}, tableRows{}, fmt.Errorf("postgres: marshal attachment metadata for %q: %w", a.Name, err)
				}
				attachRows = append(attachRows, []any{
					a.MessageID, a.Type, a.Name, a.URL, a.ContentType, a.Size,
					nullableString(a.LocalPath), nullableString(a.ThumbnailPath), meta,
				})
			}
		}
	}
	return tableRows{rows: msgRows}, tableRows{rows: attachRows}, nil
}

func marshalJSONB(v map[string]any) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return json.Marshal(v)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
