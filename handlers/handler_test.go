package handlers

import (
	"testing"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

func TestFactoryDispatchesToTextHandler(t *testing.T) {
	f := NewFactory()
	v, err := f.Dispatch(skypeetl.RawMessage{ID: "1", MessageType: "Text", Content: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != "text" {
		t.Fatalf("expected text, got %s", v.Kind)
	}
}

func TestFactoryDispatchesToCatalogEntry(t *testing.T) {
	f := NewFactory()
	v, err := f.Dispatch(skypeetl.RawMessage{ID: "2", MessageType: "PopCard", Content: "<popcard/>"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != "pop_card" {
		t.Fatalf("expected pop_card, got %s", v.Kind)
	}
}

func TestFactoryFallsBackToUnknown(t *testing.T) {
	f := NewFactory()
	v, err := f.Dispatch(skypeetl.RawMessage{ID: "3", MessageType: "SomeBrandNewType"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != "unknown" {
		t.Fatalf("expected unknown, got %s", v.Kind)
	}
}

type panickyHandler struct{}

func (panickyHandler) CanHandle(messageType string) bool { return messageType == "Explode" }
func (panickyHandler) Extract(msg skypeetl.RawMessage) Variant {
	panic("malformed content")
}

func TestFactoryRecoversFromPanickingHandler(t *testing.T) {
	f := NewFactory()
	f.Register(panickyHandler{})

	v, err := f.Dispatch(skypeetl.RawMessage{ID: "4", MessageType: "Explode"})
	if err == nil {
		t.Fatal("expected a non-nil error after handler panic")
	}
	if v.Kind != "unknown" {
		t.Fatalf("expected degraded unknown variant, got %s", v.Kind)
	}
	if v.ID != "4" {
		t.Fatalf("expected base fields preserved, got %+v", v)
	}
}

func TestFactoryRegisterExtendsOrder(t *testing.T) {
	f := NewFactory()
	f.Register(panickyHandler{})
	// panickyHandler only matches "Explode"; built-ins still take priority
	// for everything else.
	v, err := f.Dispatch(skypeetl.RawMessage{ID: "5", MessageType: "RichText"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != "text" {
		t.Fatalf("expected text handler to still win, got %s", v.Kind)
	}
}
