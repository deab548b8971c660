package transform

import (
	"context"
	"sort"
	"sync"

	"github.com/araddon/dateparse"
	"golang.org/x/sync/errgroup"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
	"github.com/dependable-call-exchange/skypeetl/handlers"
)

// DefaultChunkSize is used when Config.ChunkSize is unset.
const DefaultChunkSize = 1000

// Transformer normalizes a RawExport into a TransformedExport: per-message
// content cleaning, structured-data dispatch, and chunked parallel
// processing with a deterministic final ordering.
type Transformer struct {
	runCtx   *skypeetl.Context
	handlers *handlers.Factory
}

// New creates a Transformer bound to a run Context and handler Factory.
func New(runCtx *skypeetl.Context, factory *handlers.Factory) *Transformer {
	if factory == nil {
		factory = handlers.NewFactory()
	}
	return &Transformer{runCtx: runCtx, handlers: factory}
}

// Transform consumes raw and produces the normalized structure the Loader
// persists. ctx governs cancellation: a caller-driven cancel propagates into
// the worker pool and stops further chunk submission.
func (t *Transformer) Transform(ctx context.Context, raw *skypeetl.RawExport) (*skypeetl.TransformedExport, error) {
	cfg := t.runCtx.Config
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	totalMessages := 0
	for _, rc := range raw.Conversations {
		totalMessages += len(rc.MessageList)
	}
	t.runCtx.Progress.Reset("transform", int64(totalMessages))

	displayName := raw.UserDisplayName
	if displayName == "" {
		displayName = raw.UserID
	}
	out := &skypeetl.TransformedExport{
		User:          skypeetl.User{ID: raw.UserID, DisplayName: displayName, IsSelf: true},
		Conversations: make(map[string]*skypeetl.Conversation, len(raw.Conversations)),
	}

	typeCounts := make(map[string]int)
	var typeCountsMu sync.Mutex

	for _, rc := range raw.Conversations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		conv, err := t.transformConversation(ctx, rc, raw.UserID, chunkSize, maxWorkers, cfg.ParallelProcessing, typeCounts, &typeCountsMu)
		if err != nil {
			return nil, err
		}
		out.Conversations[conv.ID] = conv
		t.runCtx.Memory.Poll()
	}

	out.Metadata = skypeetl.TransformMetadata{
		TransformedAt:     skypeetl.NowUnix(),
		ConversationCount: len(out.Conversations),
		MessageCount:      totalMessages,
		MessageTypeCounts: typeCounts,
	}
	t.runCtx.Phases.UpdateMetric("transform", "conversation_count", out.Metadata.ConversationCount)
	t.runCtx.Phases.UpdateMetric("transform", "message_count", out.Metadata.MessageCount)
	return out, nil
}

func (t *Transformer) transformConversation(
	ctx context.Context,
	rc skypeetl.RawConversation,
	selfID string,
	chunkSize, maxWorkers int,
	parallel bool,
	typeCounts map[string]int,
	typeCountsMu *sync.Mutex,
) (*skypeetl.Conversation, error) {
	chunks := chunkMessages(rc.MessageList, chunkSize)
	results := make([][]skypeetl.Message, len(chunks))

	processChunk := func(i int) {
		results[i] = t.processChunk(chunks[i], rc.ID, typeCounts, typeCountsMu)
	}

	if !parallel || len(chunks) <= 1 {
		for i := range chunks {
			processChunk(i)
		}
	} else {
		if err := t.runChunksConcurrently(ctx, len(chunks), maxWorkers, processChunk); err != nil {
			return nil, err
		}
	}

	var messages []skypeetl.Message
	for _, r := range results {
		messages = append(messages, r...)
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].Timestamp < messages[j].Timestamp })

	participants := participantsOf(messages, rc, selfID)

	conv := &skypeetl.Conversation{
		ID:               rc.ID,
		DisplayName:      rc.DisplayName,
		Type:             conversationTypeOf(rc.Type),
		Participants:      participants,
		ParticipantCount: len(participants),
		MessageCount:     len(messages),
		Messages:         messages,
	}
	if len(messages) > 0 {
		conv.FirstMessageTime = messages[0].Timestamp
		conv.LastMessageTime = messages[len(messages)-1].Timestamp
	}
	return conv, nil
}

// runChunksConcurrently runs fn(i) for i in [0, n) using a bounded worker
// pool of size maxWorkers. Per-message failures are swallowed inside fn, so
// the only failure this ever sees is ctx cancellation; errgroup still gives
// the pool its bounded-concurrency (SetLimit) and group-wait semantics
// instead of a hand-rolled semaphore.
func (t *Transformer) runChunksConcurrently(ctx context.Context, n, maxWorkers int, fn func(i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i := 0; i < n; i++ {
		idx := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			fn(idx)
			return nil
		})
	}
	return g.Wait()
}

func (t *Transformer) processChunk(chunk []skypeetl.RawMessage, conversationID string, typeCounts map[string]int, typeCountsMu *sync.Mutex) []skypeetl.Message {
	out := make([]skypeetl.Message, 0, len(chunk))
	for _, rm := range chunk {
		msg, err := t.transformMessage(rm, conversationID)
		if err != nil {
			t.runCtx.RecordError("transform", skypeetl.KindContent, "failed to transform message", map[string]any{"message_id": rm.ID}, false, err)
			continue
		}
		out = append(out, msg)

		typeCountsMu.Lock()
		typeCounts[msg.MessageType]++
		typeCountsMu.Unlock()

		t.runCtx.Progress.Add(1)
	}
	return out
}

func (t *Transformer) transformMessage(rm skypeetl.RawMessage, conversationID string) (skypeetl.Message, error) {
	timestamp, source := parseTimestamp(rm.Timestamp)

	variant, handlerErr := t.handlers.Dispatch(rm)
	if handlerErr != nil {
		t.runCtx.RecordError("transform", skypeetl.KindContent, "handler degraded to base fields", map[string]any{"message_id": rm.ID, "message_type": rm.MessageType}, false, handlerErr)
	}
	variant.Timestamp = timestamp

	structuredData, err := marshalVariant(variant)
	if err != nil {
		return skypeetl.Message{}, err
	}

	msg := skypeetl.Message{
		ID:              rm.ID,
		ConversationID:  conversationID,
		SenderID:        rm.SenderID,
		SenderName:      senderDisplayName(rm),
		Timestamp:       timestamp,
		TimestampSource: source,
		MessageType:     rm.MessageType,
		ContentHTML:     rm.Content,
		ContentText:     StripHTML(rm.Content),
		IsEdited:        rm.IsEdited,
		StructuredData:  structuredData,
	}
	for _, att := range variant.Attachments {
		msg.Attachments = append(msg.Attachments, skypeetl.Attachment{
			MessageID:   rm.ID,
			Type:        att.Type,
			Name:        att.Name,
			URL:         att.URL,
			ContentType: att.ContentType,
			Size:        att.Size,
		})
	}
	return msg, nil
}

// senderDisplayName falls back to the sender's MRI when no separate display
// name is carried on the raw message (the common case for Skype exports,
// which resolve display names through a separate user registry the core
// does not always have at transform time).
func senderDisplayName(rm skypeetl.RawMessage) string {
	if rm.SenderName != "" {
		return rm.SenderName
	}
	return rm.SenderID
}

// parseTimestamp parses a verbatim Skype timestamp (normally RFC 3339, but
// legacy exports carry other layouts) using araddon/dateparse's
// format-sniffing parser, falling back to ingest time when it cannot be
// parsed at all so no message is silently dropped for a bad timestamp.
func parseTimestamp(raw string) (unixSeconds int64, source string) {
	if raw == "" {
		return skypeetl.NowUnix(), "ingest_fallback"
	}
	ts, err := dateparse.ParseAny(raw)
	if err != nil {
		return skypeetl.NowUnix(), "ingest_fallback"
	}
	return ts.Unix(), "parsed"
}

func chunkMessages(messages []skypeetl.RawMessage, size int) [][]skypeetl.RawMessage {
	if len(messages) == 0 {
		return nil
	}
	var chunks [][]skypeetl.RawMessage
	for i := 0; i < len(messages); i += size {
		end := i + size
		if end > len(messages) {
			end = len(messages)
		}
		chunks = append(chunks, messages[i:end])
	}
	return chunks
}

func conversationTypeOf(raw string) skypeetl.ConversationType {
	switch raw {
	case "Group":
		return skypeetl.ConversationGroup
	case "OneToOne", "1:1":
		return skypeetl.ConversationOneToOne
	default:
		return skypeetl.ConversationUnknown
	}
}

func participantsOf(messages []skypeetl.Message, rc skypeetl.RawConversation, selfID string) []skypeetl.Participant {
	seen := make(map[string]bool)
	var participants []skypeetl.Participant
	for _, m := range messages {
		if m.SenderID == "" || seen[m.SenderID] {
			continue
		}
		seen[m.SenderID] = true
		participants = append(participants, skypeetl.Participant{
			ConversationID: rc.ID,
			UserID:         m.SenderID,
			IsSelf:         m.SenderID == selfID,
		})
	}
	return participants
}
