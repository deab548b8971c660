package handlers

import (
	"testing"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

func TestCallHandlerExtractsDurationAndParticipants(t *testing.T) {
	h := callHandler{}
	msg := skypeetl.RawMessage{
		ID:          "12",
		MessageType: "Event/Call",
		Content: `<duration>125</duration><partlist>` +
			`<part identity="8:alice"><name>Alice</name></part>` +
			`<part identity="8:bob"><name>Bob</name></part>` +
			`</partlist>`,
	}
	v := h.Extract(msg)
	if v.CallDuration != 125 {
		t.Fatalf("expected duration 125, got %d", v.CallDuration)
	}
	if len(v.CallParticipants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(v.CallParticipants))
	}
	if v.CallParticipants[0].ID != "8:alice" || v.CallParticipants[0].Name != "Alice" {
		t.Fatalf("unexpected participant: %+v", v.CallParticipants[0])
	}
	if v.CallParticipants[1].Name != "Bob" {
		t.Fatalf("unexpected second participant name: %s", v.CallParticipants[1].Name)
	}
}
