package handlers

import (
	"strconv"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
	"github.com/dependable-call-exchange/skypeetl/transform"
)

// locationHandler handles RichText/Location messages, whose payload is a
// <location latitude="..." longitude="..." address="..."/> element.
type locationHandler struct{}

func (locationHandler) CanHandle(messageType string) bool {
	return messageType == "RichText/Location"
}

func (locationHandler) Extract(msg skypeetl.RawMessage) Variant {
	v := baseFields(msg, "location")

	lat, _ := strconv.ParseFloat(transform.ExtractAttr(msg.Content, "location", "latitude"), 64)
	lon, _ := strconv.ParseFloat(transform.ExtractAttr(msg.Content, "location", "longitude"), 64)
	v.LocationLatitude = lat
	v.LocationLongitude = lon
	v.LocationAddress = transform.ExtractAttr(msg.Content, "location", "address")
	return v
}
