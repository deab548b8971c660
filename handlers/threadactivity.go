package handlers

import (
	"strings"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

// threadActivityHandler handles ThreadActivity/* messages: membership and
// metadata changes on a group conversation (AddMember, DeleteMember,
// TopicUpdate, PictureUpdate, and so on).
type threadActivityHandler struct{}

func (threadActivityHandler) CanHandle(messageType string) bool {
	return strings.HasPrefix(messageType, "ThreadActivity/")
}

func (threadActivityHandler) Extract(msg skypeetl.RawMessage) Variant {
	v := baseFields(msg, "thread_activity")

	v.ActivityType = canonicalActivityType(msg.MessageType)
	v.ActivityInitiator = strings.TrimSpace(extractTagText(msg.Content, "initiator"))
	v.ActivityValue = strings.TrimSpace(extractTagText(msg.Content, "value"))

	var members []string
	rest := msg.Content
	for _, tag := range []string{"target", "member"} {
		for {
			text := extractTagText(rest, tag)
			if text == "" {
				break
			}
			members = append(members, strings.TrimSpace(text))
			idx := strings.Index(rest, "</"+tag+">")
			if idx < 0 {
				break
			}
			rest = rest[idx+len("</"+tag+">"):]
		}
	}
	v.ActivityMembers = members
	return v
}

// canonicalActivityType turns "ThreadActivity/AddMember" into "add_member"
// so the activity_type is stable regardless of source casing drift.
func canonicalActivityType(messageType string) string {
	suffix := strings.TrimPrefix(messageType, "ThreadActivity/")
	var out strings.Builder
	for i, r := range suffix {
		if i > 0 && r >= 'A' && r <= 'Z' {
			out.WriteByte('_')
		}
		out.WriteRune(r)
	}
	return strings.ToLower(out.String())
}
