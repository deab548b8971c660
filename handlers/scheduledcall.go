package handlers

import (
	"strconv"
	"strings"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
	"github.com/dependable-call-exchange/skypeetl/transform"
)

// scheduledCallInviteHandler handles RichText/ScheduledCallInvite messages,
// a small XML fragment describing a scheduled meeting.
type scheduledCallInviteHandler struct{}

func (scheduledCallInviteHandler) CanHandle(messageType string) bool {
	return messageType == "RichText/ScheduledCallInvite"
}

func (scheduledCallInviteHandler) Extract(msg skypeetl.RawMessage) Variant {
	v := baseFields(msg, "scheduled_call")

	start := extractTagText(msg.Content, "starttime")
	end := extractTagText(msg.Content, "endtime")
	durMin, _ := strconv.Atoi(extractTagText(msg.Content, "durationminutes"))

	var participants []string
	for _, p := range strings.Split(extractTagText(msg.Content, "participants"), ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			participants = append(participants, p)
		}
	}

	v.ScheduledCall = &ScheduledCall{
		Title:           extractTagText(msg.Content, "title"),
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: durMin,
		Organizer:       extractTagText(msg.Content, "organizer"),
		Participants:    participants,
		Description:     extractTagText(msg.Content, "description"),
		MeetingLink:     transform.ExtractAttr(msg.Content, "meetinglink", "href"),
		CallID:          transform.ExtractAttr(msg.Content, "scheduledcall", "callid"),
	}
	return v
}
