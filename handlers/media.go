package handlers

import (
	"strconv"
	"strings"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
	"github.com/dependable-call-exchange/skypeetl/transform"
)

// mediaHandler handles RichText/Media_* and RichText/UriObject messages,
// whose payload is a <URIObject> element carrying the attachment's URL,
// filename, and size as attributes or child elements.
type mediaHandler struct{}

func (mediaHandler) CanHandle(messageType string) bool {
	return strings.HasPrefix(messageType, "RichText/Media_") || messageType == "RichText/UriObject"
}

func (mediaHandler) Extract(msg skypeetl.RawMessage) Variant {
	v := baseFields(msg, "media")

	url := transform.ExtractAttr(msg.Content, "URIObject", "uri")
	if url == "" {
		url = transform.ExtractAttr(msg.Content, "a", "href")
	}
	name := extractElementAttr(msg.Content, "OriginalName", "v")
	if name == "" {
		name = transform.ExtractAttr(msg.Content, "URIObject", "uri_thumbnail")
	}
	sizeStr := extractElementAttr(msg.Content, "FileSize", "v")
	size, _ := strconv.ParseInt(sizeStr, 10, 64)
	contentType := transform.ExtractAttr(msg.Content, "URIObject", "type")

	mediaType := strings.TrimPrefix(msg.MessageType, "RichText/Media_")
	v.MediaType = mediaType
	v.MediaFilename = name
	v.MediaURL = url
	v.Attachments = []AttachmentRef{{
		Type:        mediaType,
		Name:        name,
		URL:         url,
		ContentType: contentType,
		Size:        size,
	}}
	return v
}

// extractElementAttr pulls an attribute value off the first self-closing
// child element named tag (Skype's media XML nests attributes this way
// instead of on the outer URIObject, e.g. <OriginalName v="file.pdf"/>).
func extractElementAttr(content, tag, attr string) string {
	return transform.ExtractAttr(content, tag, attr)
}
