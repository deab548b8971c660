package handlers

import (
	"testing"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

func TestLocationHandlerExtractsCoordinates(t *testing.T) {
	h := locationHandler{}
	msg := skypeetl.RawMessage{
		ID:          "20",
		MessageType: "RichText/Location",
		Content:     `<location latitude="37.7749" longitude="-122.4194" address="San Francisco, CA"/>`,
	}
	v := h.Extract(msg)
	if v.LocationLatitude != 37.7749 || v.LocationLongitude != -122.4194 {
		t.Fatalf("unexpected coordinates: %v %v", v.LocationLatitude, v.LocationLongitude)
	}
	if v.LocationAddress != "San Francisco, CA" {
		t.Fatalf("unexpected address: %s", v.LocationAddress)
	}
}
