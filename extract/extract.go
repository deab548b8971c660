// Package extract turns a tar or JSON Skype export source into run metadata
// plus the full list of raw conversations, held in memory together. Large
// documents are decoded token by token instead of being read into one
// buffer first, but every decoded conversation is kept until Extract returns.
package extract

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

// Sentinel errors the Orchestrator maps onto skypeetl.KindInput PipelineErrors.
var (
	ErrSourceNotFound    = errors.New("extract: source not found")
	ErrUnsupportedFormat = errors.New("extract: unsupported source format (want .json or .tar)")
	ErrInvalidJSON       = errors.New("extract: invalid json")
	ErrMissingMetadata   = errors.New("extract: no userId/exportDate discoverable in source")
)

// wholeDocumentThreshold is the file-size cutoff below which Extract buffers
// the entire document rather than streaming it token-by-token; small inputs
// don't justify the bookkeeping of incremental decode.
const wholeDocumentThreshold = 8 << 20 // 8 MiB

// defaultUserDisplayName is used when neither the source document nor the
// run config supplies one, matching the original parser's own "Me" default
// for an unattributed export.
const defaultUserDisplayName = "Me"

// rawDocument mirrors the top-level shape of a Skype export JSON document.
// A newer export variant nests userId/exportDate/conversations under a
// top-level "messages" array whose first element carries them; Messages
// captures that shape so unwrapNestedVariant can recover it.
type rawDocument struct {
	UserID          string            `json:"userId"`
	UserDisplayName string            `json:"user_display_name"`
	ExportDate      string            `json:"exportDate"`
	Conversations   []rawConversation `json:"conversations"`
	Messages        []rawDocument     `json:"messages"`
}

type rawConversation struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"displayName"`
	Type        string       `json:"type"`
	MessageList []rawMessage `json:"MessageList"`
}

type rawMessage struct {
	ID          string `json:"id"`
	OriginalArrivalTime string `json:"originalarrivaltime"`
	FromRaw     string `json:"from"`
	MessageType string `json:"messagetype"`
	Content     string `json:"content"`
	Edited      bool   `json:"edited"`
}

// Extractor validates a source path and turns it into a skypeetl.RawExport.
// It records conversation/message counts on the Context before returning so
// the ProgressTracker and PhaseManager have totals up front.
type Extractor struct {
	ctx *skypeetl.Context
}

// New creates an Extractor bound to a run Context.
func New(ctx *skypeetl.Context) *Extractor {
	return &Extractor{ctx: ctx}
}

// Extract reads sourcePath (a .tar archive containing a `*messages.json`
// entry, or a standalone .json document) and returns the run's metadata and
// full conversation list. The raw export is held in memory by the
// Transformer/Loader; streaming here only bounds the decode, not the
// lifetime of the result.
func (e *Extractor) Extract(sourcePath string) (*skypeetl.RawExport, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSourceNotFound
		}
		return nil, fmt.Errorf("extract: stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, ErrSourceNotFound
	}

	var doc *rawDocument
	switch {
	case strings.HasSuffix(sourcePath, ".tar"):
		doc, err = e.readTar(sourcePath)
	case strings.HasSuffix(sourcePath, ".json"):
		doc, err = e.readJSONFile(sourcePath, info.Size())
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	doc = unwrapNestedVariant(doc)

	userID, exportDate, err := resolveMetadata(doc)
	if err != nil {
		return nil, err
	}
	userDisplayName := doc.UserDisplayName
	if userDisplayName == "" {
		userDisplayName = e.ctx.Config.UserDisplayName
	}
	if userDisplayName == "" {
		userDisplayName = defaultUserDisplayName
	}
	e.ctx.SetUserMetadata(userID, userDisplayName, exportDate)

	conversations := make([]skypeetl.RawConversation, len(doc.Conversations))
	messageCount := 0
	for i, rc := range doc.Conversations {
		conversations[i] = toRawConversation(rc)
		messageCount += len(rc.MessageList)
	}
	e.ctx.Phases.UpdateMetric("extract", "conversation_count", len(conversations))
	e.ctx.Phases.UpdateMetric("extract", "message_count", messageCount)

	return &skypeetl.RawExport{
		UserID:          userID,
		UserDisplayName: userDisplayName,
		ExportDate:      exportDate,
		Conversations:   conversations,
	}, nil
}

// unwrapNestedVariant adapts the newer export shape that nests userId,
// exportDate, and conversations under a top-level "messages" array whose
// first element carries them. doc is returned unchanged once it already
// carries its own conversations, or once there is nothing left to unwrap.
func unwrapNestedVariant(doc *rawDocument) *rawDocument {
	if len(doc.Conversations) > 0 || len(doc.Messages) == 0 {
		return doc
	}
	return unwrapNestedVariant(&doc.Messages[0])
}

// readJSONFile decodes a standalone .json source, streaming the
// conversations array with json.Decoder's token API once the file is large
// enough to be worth it, and falling back to a whole-document Unmarshal for
// small inputs.
func (e *Extractor) readJSONFile(path string, size int64) (*rawDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extract: open source: %w", err)
	}
	defer f.Close()

	if size < wholeDocumentThreshold {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("extract: read source: %w", err)
		}
		return unmarshalWhole(data)
	}
	return streamConversations(f)
}

// readTar scans a (optionally gzip-compressed) tar archive for the first
// entry whose name ends in "messages.json" and decodes it as the export
// document.
func (e *Extractor) readTar(path string) (*rawDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extract: open source: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if gz, err := maybeGzip(f); err == nil && gz != nil {
		defer gz.Close()
		r = gz
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: no messages.json entry in archive", ErrInvalidJSON)
		}
		if err != nil {
			return nil, fmt.Errorf("extract: read tar: %w", err)
		}
		if !strings.HasSuffix(hdr.Name, "messages.json") {
			continue
		}
		if hdr.Size < wholeDocumentThreshold {
			data, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("extract: read tar entry: %w", err)
			}
			return unmarshalWhole(data)
		}
		return streamConversations(tr)
	}
}

// maybeGzip sniffs the gzip magic header and, if present, returns a
// *gzip.Reader positioned at the start; otherwise it rewinds f and returns
// (nil, nil) so the caller reads the raw stream.
func maybeGzip(f *os.File) (*gzip.Reader, error) {
	magic := make([]byte, 2)
	if _, err := io.ReadFull(f, magic); err != nil {
		f.Seek(0, io.SeekStart)
		return nil, nil
	}
	f.Seek(0, io.SeekStart)
	if magic[0] != 0x1f || magic[1] != 0x8b {
		return nil, nil
	}
	return gzip.NewReader(f)
}

func unmarshalWhole(data []byte) (*rawDocument, error) {
	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return &doc, nil
}

// streamConversations walks the document with json.Decoder's token API,
// reading top-level scalar fields normally and decoding each element of the
// conversations array one at a time so the whole array is never held as a
// single []byte.
func streamConversations(r io.Reader) (*rawDocument, error) {
	dec := json.NewDecoder(r)
	doc := &rawDocument{}

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: expected top-level object", ErrInvalidJSON)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		key, _ := keyTok.(string)

		switch key {
		case "conversations":
			arrTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
			}
			if delim, ok := arrTok.(json.Delim); !ok || delim != '[' {
				return nil, fmt.Errorf("%w: expected conversations array", ErrInvalidJSON)
			}
			for dec.More() {
				var rc rawConversation
				if err := dec.Decode(&rc); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
				}
				doc.Conversations = append(doc.Conversations, rc)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
			}
		case "userId":
			if err := dec.Decode(&doc.UserID); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
			}
		case "exportDate":
			if err := dec.Decode(&doc.ExportDate); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
			}
		case "user_display_name":
			if err := dec.Decode(&doc.UserDisplayName); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
			}
		case "messages":
			arrTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
			}
			if delim, ok := arrTok.(json.Delim); !ok || delim != '[' {
				return nil, fmt.Errorf("%w: expected messages array", ErrInvalidJSON)
			}
			for dec.More() {
				var nested rawDocument
				if err := dec.Decode(&nested); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
				}
				doc.Messages = append(doc.Messages, nested)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
			}
		default:
			var discard any
			if err := dec.Decode(&discard); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
			}
		}
	}
	return doc, nil
}

// resolveMetadata reads userId/exportDate off the document's top level and,
// when absent, falls back to the first message of the first conversation
// (Skype exports occasionally omit the top-level fields but always carry a
// sender MRI and arrival time on every message).
func resolveMetadata(doc *rawDocument) (userID, exportDate string, err error) {
	userID, exportDate = doc.UserID, doc.ExportDate
	if userID != "" && exportDate != "" {
		return userID, exportDate, nil
	}
	for _, conv := range doc.Conversations {
		if len(conv.MessageList) == 0 {
			continue
		}
		first := conv.MessageList[0]
		if userID == "" {
			userID = first.FromRaw
		}
		if exportDate == "" {
			exportDate = first.OriginalArrivalTime
		}
		break
	}
	if userID == "" || exportDate == "" {
		return "", "", ErrMissingMetadata
	}
	return userID, exportDate, nil
}

func toRawConversation(rc rawConversation) skypeetl.RawConversation {
	messages := make([]skypeetl.RawMessage, len(rc.MessageList))
	for i, m := range rc.MessageList {
		messages[i] = skypeetl.RawMessage{
			ID:          m.ID,
			Timestamp:   m.OriginalArrivalTime,
			SenderID:    m.FromRaw,
			MessageType: m.MessageType,
			Content:     m.Content,
			IsEdited:    m.Edited,
		}
	}
	return skypeetl.RawConversation{
		ID:          rc.ID,
		DisplayName: rc.DisplayName,
		Type:        rc.Type,
		MessageList: messages,
	}
}
