// Package handlers dispatches a raw Skype message to a typed structured-data
// extractor by messagetype, per an ordered, first-match handler registry
// terminating in an UnknownHandler.
package handlers

// Variant is the tagged-union structured-data record produced by a Handler.
// Kind discriminates which of the type-specific field groups below is
// populated; fields outside that group are left zero. Extras carries any
// additional detail a handler recovered from the raw content that doesn't
// have a dedicated field, so the catalogue can grow without breaking callers
// that only read Kind and the base fields.
type Variant struct {
	Kind string `json:"kind"`

	// Base fields, produced by every handler including UnknownHandler.
	ID          string `json:"id"`
	Timestamp   int64  `json:"timestamp"`
	SenderID    string `json:"sender_id"`
	SenderName  string `json:"sender_name"`
	MessageType string `json:"message_type"`
	IsEdited    bool   `json:"is_edited"`

	// Text / RichText
	HasMentions bool `json:"has_mentions,omitempty"`
	HasEmotions bool `json:"has_emotions,omitempty"`

	// Media (RichText/Media_*)
	Attachments   []AttachmentRef `json:"attachments,omitempty"`
	MediaType     string          `json:"media_type,omitempty"`
	MediaFilename string          `json:"media_filename,omitempty"`
	MediaURL      string          `json:"media_url,omitempty"`

	// Poll
	PollQuestion string        `json:"poll_question,omitempty"`
	PollOptions  []PollOption  `json:"poll_options,omitempty"`
	PollMetadata *PollMetadata `json:"poll_metadata,omitempty"`

	// Call (Event/Call)
	CallDuration     int64             `json:"call_duration,omitempty"`
	CallParticipants []CallParticipant `json:"call_participants,omitempty"`

	// Location
	LocationLatitude  float64 `json:"location_latitude,omitempty"`
	LocationLongitude float64 `json:"location_longitude,omitempty"`
	LocationAddress   string  `json:"location_address,omitempty"`

	// Contacts
	Contacts []Contact `json:"contacts,omitempty"`

	// ThreadActivity/*
	ActivityType      string   `json:"activity_type,omitempty"`
	ActivityMembers   []string `json:"activity_members,omitempty"`
	ActivityInitiator string   `json:"activity_initiator,omitempty"`
	ActivityValue     string   `json:"activity_value,omitempty"`

	// RichText/ScheduledCallInvite
	ScheduledCall *ScheduledCall `json:"scheduled_call,omitempty"`

	Extras map[string]any `json:"extras,omitempty"`
}

// AttachmentRef is one attachment surfaced by a Media handler.
type AttachmentRef struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// PollOption is one answer choice within a Poll.
type PollOption struct {
	Text       string `json:"text"`
	VoteCount  int    `json:"vote_count"`
	IsSelected bool   `json:"is_selected"`
}

// PollMetadata carries poll-level bookkeeping.
type PollMetadata struct {
	Status         string `json:"status"`
	VoteVisibility string `json:"vote_visibility"`
	Creator        string `json:"creator"`
	TotalVotes     int    `json:"total_votes"`
}

// CallParticipant is one party recorded on a Call event.
type CallParticipant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Contact is one vCard-like entry shared via a Contacts message.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	MRI   string `json:"mri"`
}

// ScheduledCall describes a RichText/ScheduledCallInvite payload.
type ScheduledCall struct {
	Title           string   `json:"title"`
	StartTime       string   `json:"start_time"`
	EndTime         string   `json:"end_time"`
	DurationMinutes int      `json:"duration_minutes"`
	Organizer       string   `json:"organizer"`
	Participants    []string `json:"participants"`
	Description     string   `json:"description"`
	MeetingLink     string   `json:"meeting_link"`
	CallID          string   `json:"call_id"`
}
