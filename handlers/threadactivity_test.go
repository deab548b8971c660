package handlers

import (
	"testing"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

func TestThreadActivityHandlerAddMember(t *testing.T) {
	h := threadActivityHandler{}
	msg := skypeetl.RawMessage{
		ID:          "50",
		MessageType: "ThreadActivity/AddMember",
		Content:     `<addmember><initiator>8:alice</initiator><target>8:bob</target><target>8:carol</target></addmember>`,
	}
	v := h.Extract(msg)
	if v.ActivityType != "add_member" {
		t.Fatalf("expected add_member, got %s", v.ActivityType)
	}
	if v.ActivityInitiator != "8:alice" {
		t.Fatalf("expected initiator 8:alice, got %s", v.ActivityInitiator)
	}
	if len(v.ActivityMembers) != 2 {
		t.Fatalf("expected 2 members, got %d: %+v", len(v.ActivityMembers), v.ActivityMembers)
	}
}

func TestThreadActivityHandlerTopicUpdate(t *testing.T) {
	h := threadActivityHandler{}
	msg := skypeetl.RawMessage{
		ID:          "51",
		MessageType: "ThreadActivity/TopicUpdate",
		Content:     `<topicupdate><initiator>8:alice</initiator><value>Q1 Planning</value></topicupdate>`,
	}
	v := h.Extract(msg)
	if v.ActivityType != "topic_update" {
		t.Fatalf("expected topic_update, got %s", v.ActivityType)
	}
	if v.ActivityValue != "Q1 Planning" {
		t.Fatalf("expected value Q1 Planning, got %s", v.ActivityValue)
	}
}

func TestThreadActivityCanHandle(t *testing.T) {
	h := threadActivityHandler{}
	if !h.CanHandle("ThreadActivity/MemberLeft") {
		t.Fatal("expected ThreadActivity/* to match")
	}
	if h.CanHandle("Text") {
		t.Fatal("did not expect Text to match")
	}
}
