package handlers

import (
	"unicode/utf8"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

// catalogEntry names a known messagetype token this build recognizes but
// does not give a bespoke structured-data schema to. It still gets a
// meaningful Kind (instead of falling through to "unknown") plus a raw
// content snippet in Extras, enough for downstream reporting and for a
// future handler to be grafted in without touching the dispatch order.
type catalogEntry struct {
	messageType string
	kind        string
}

// catalogTable enumerates message types the original Skype export format is
// known to emit beyond the representative set implemented in full above.
// This is intentionally data-driven rather than one bespoke Go type per
// variant: the exhaustive per-type HTML/XML parsing rules for this tail are
// out of scope, but silently swallowing them into UnknownHandler would lose
// the message_type distinction entirely.
var catalogTable = []catalogEntry{
	{"PopCard", "pop_card"},
	{"Translation", "translation"},
	{"Notice", "notice"},
	{"RichText/SMS", "sms"},
	{"RichText/Animation", "animation"},
	{"RichText/UriObject_Photo", "photo"},
	{"Event/ConversationUpdate", "conversation_update"},
	{"Event/ContactChanged", "contact_changed"},
	{"Control/ClearTyping", "typing_control"},
	{"Control/Typing", "typing_control"},
}

type catalogHandler struct {
	entry catalogEntry
}

func (h catalogHandler) CanHandle(messageType string) bool {
	return messageType == h.entry.messageType
}

func (h catalogHandler) Extract(msg skypeetl.RawMessage) Variant {
	v := baseFields(msg, h.entry.kind)
	if msg.Content != "" {
		snippet := msg.Content
		const maxSnippet = 500
		if len(snippet) > maxSnippet {
			snippet = truncateValidUTF8(snippet, maxSnippet)
		}
		v.Extras = map[string]any{"raw_content_snippet": snippet}
	}
	return v
}

// truncateValidUTF8 cuts s to at most n bytes without splitting a multi-byte
// rune, backing off byte-by-byte from n until the boundary lands clean.
func truncateValidUTF8(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// catalogHandlers builds one Handler per catalogTable entry, in table order.
func catalogHandlers() []Handler {
	out := make([]Handler, 0, len(catalogTable))
	for _, entry := range catalogTable {
		out = append(out, catalogHandler{entry: entry})
	}
	return out
}
