package handlers

import (
	"strings"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
	"github.com/dependable-call-exchange/skypeetl/transform"
)

// contactsHandler handles RichText/Contacts messages, a <contacts> element
// wrapping one <c> entry per shared contact card.
type contactsHandler struct{}

func (contactsHandler) CanHandle(messageType string) bool {
	return messageType == "RichText/Contacts"
}

func (contactsHandler) Extract(msg skypeetl.RawMessage) Variant {
	v := baseFields(msg, "contacts")
	v.Contacts = extractContacts(msg.Content)
	return v
}

func extractContacts(content string) []Contact {
	var contacts []Contact
	rest := content
	for {
		idx := strings.Index(rest, "<c ")
		if idx < 0 {
			break
		}
		rest = rest[idx:]
		closeOpen := strings.Index(rest, ">")
		if closeOpen < 0 {
			break
		}
		tagSrc := rest[:closeOpen+1]
		contacts = append(contacts, Contact{
			Name:  transform.ExtractAttr(tagSrc, "c", "n"),
			Phone: transform.ExtractAttr(tagSrc, "c", "p"),
			Email: transform.ExtractAttr(tagSrc, "c", "e"),
			MRI:   transform.ExtractAttr(tagSrc, "c", "s"),
		})
		rest = rest[closeOpen+1:]
	}
	return contacts
}
