package handlers

import (
	"strconv"
	"strings"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
	"github.com/dependable-call-exchange/skypeetl/transform"
)

// pollHandler handles Poll messages, whose content is a small XML-like
// fragment: a question followed by one <Option> element per answer choice.
type pollHandler struct{}

func (pollHandler) CanHandle(messageType string) bool {
	return messageType == "Poll"
}

func (pollHandler) Extract(msg skypeetl.RawMessage) Variant {
	v := baseFields(msg, "poll")

	v.PollQuestion = strings.TrimSpace(extractTagText(msg.Content, "Question"))
	v.PollOptions = extractPollOptions(msg.Content)

	totalVotes := 0
	for _, opt := range v.PollOptions {
		totalVotes += opt.VoteCount
	}
	v.PollMetadata = &PollMetadata{
		Status:         transform.ExtractAttr(msg.Content, "Poll", "status"),
		VoteVisibility: transform.ExtractAttr(msg.Content, "Poll", "votevisibility"),
		Creator:        transform.ExtractAttr(msg.Content, "Poll", "creator"),
		TotalVotes:     totalVotes,
	}
	return v
}

func extractTagText(content, tag string) string {
	open := "<" + tag
	idx := strings.Index(content, open)
	if idx < 0 {
		return ""
	}
	closeOpen := strings.Index(content[idx:], ">")
	if closeOpen < 0 {
		return ""
	}
	start := idx + closeOpen + 1
	end := strings.Index(content[start:], "</"+tag+">")
	if end < 0 {
		return ""
	}
	return content[start : start+end]
}

func extractPollOptions(content string) []PollOption {
	var opts []PollOption
	rest := content
	for {
		idx := strings.Index(rest, "<Option")
		if idx < 0 {
			break
		}
		rest = rest[idx:]
		closeOpen := strings.Index(rest, ">")
		if closeOpen < 0 {
			break
		}
		tagSrc := rest[:closeOpen+1]
		end := strings.Index(rest, "</Option>")
		text := ""
		if end >= 0 {
			text = strings.TrimSpace(rest[closeOpen+1 : end])
			rest = rest[end+len("</Option>"):]
		} else {
			rest = rest[closeOpen+1:]
		}
		voteCount, _ := strconv.Atoi(transform.ExtractAttr(tagSrc, "Option", "votecount"))
		selected := transform.ExtractAttr(tagSrc, "Option", "selected") == "true"
		opts = append(opts, PollOption{Text: text, VoteCount: voteCount, IsSelected: selected})
	}
	return opts
}
