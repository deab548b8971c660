package transform

import (
	"encoding/json"

	"github.com/dependable-call-exchange/skypeetl/handlers"
)

// marshalVariant serializes a structured-data Variant for storage in
// Message.StructuredData.
func marshalVariant(v handlers.Variant) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
