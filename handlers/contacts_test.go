package handlers

import (
	"testing"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

func TestContactsHandlerExtractsEntries(t *testing.T) {
	h := contactsHandler{}
	msg := skypeetl.RawMessage{
		ID:          "30",
		MessageType: "RichText/Contacts",
		Content:     `<contacts><c n="Alice" p="+15551234567" e="alice@example.com" s="8:alice"/></contacts>`,
	}
	v := h.Extract(msg)
	if len(v.Contacts) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(v.Contacts))
	}
	c := v.Contacts[0]
	if c.Name != "Alice" || c.Phone != "+15551234567" || c.Email != "alice@example.com" || c.MRI != "8:alice" {
		t.Fatalf("unexpected contact: %+v", c)
	}
}
