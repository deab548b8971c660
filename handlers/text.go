package handlers

import (
	"strings"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

// textHandler handles Text and RichText messages, the overwhelming
// majority of a Skype export, surfacing only whether the message carries
// an @mention or an emoticon shortcode.
type textHandler struct{}

func (textHandler) CanHandle(messageType string) bool {
	switch messageType {
	case "Text", "RichText":
		return true
	}
	return false
}

func (textHandler) Extract(msg skypeetl.RawMessage) Variant {
	v := baseFields(msg, "text")
	v.HasMentions = strings.Contains(msg.Content, "<at ") || strings.Contains(msg.Content, "<mention")
	v.HasEmotions = strings.Contains(msg.Content, "<ss ") || strings.Contains(msg.Content, "(emoticon")
	return v
}
