package handlers

import (
	"strconv"
	"strings"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
	"github.com/dependable-call-exchange/skypeetl/transform"
)

// callHandler handles Event/Call messages. Content carries a <duration>
// in seconds and a <partlist> of <part identity="...">.
type callHandler struct{}

func (callHandler) CanHandle(messageType string) bool {
	return messageType == "Event/Call"
}

func (callHandler) Extract(msg skypeetl.RawMessage) Variant {
	v := baseFields(msg, "call")

	durStr := extractTagText(msg.Content, "duration")
	dur, _ := strconv.ParseInt(strings.TrimSpace(durStr), 10, 64)
	v.CallDuration = dur
	v.CallParticipants = extractCallParticipants(msg.Content)
	return v
}

func extractCallParticipants(content string) []CallParticipant {
	var parts []CallParticipant
	rest := content
	for {
		idx := strings.Index(rest, "<part ")
		if idx < 0 {
			idx = strings.Index(rest, "<part>")
			if idx < 0 {
				break
			}
		}
		rest = rest[idx:]
		closeOpen := strings.Index(rest, ">")
		if closeOpen < 0 {
			break
		}
		tagSrc := rest[:closeOpen+1]
		identity := transform.ExtractAttr(tagSrc, "part", "identity")

		body := rest[closeOpen+1:]
		endIdx := strings.Index(body, "</part>")
		scoped := body
		if endIdx >= 0 {
			scoped = body[:endIdx]
			rest = body[endIdx+len("</part>"):]
		} else {
			rest = body
		}
		name := extractTagText(scoped, "name")

		if identity != "" {
			parts = append(parts, CallParticipant{ID: identity, Name: name})
		}
	}
	return parts
}
