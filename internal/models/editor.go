package models

// AttachmentRef points at a part of an already-stored message. Drafts carry
// attachment references, not copies of the content.
type AttachmentRef struct {
	MessageID   string `json:"message_id"`
	PartID      string `json:"part_id"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// Editor is an in-progress composition. Exactly one editor exists per active
// composition id. Text holds the plain and HTML renderings of the body so the
// composer can toggle formats without losing content.
type Editor struct {
	ID         string `json:"id"`
	OriginalID string `json:"original_id,omitempty"`
	// DID is the id of the draft persisted by the mail service, set on the
	// first successful save and refreshed on every subsequent one.
	DID string `json:"did,omitempty"`
	// OldID remembers the message id an edit-as-draft session started from,
	// so the original can be superseded when the draft is saved under a new id.
	OldID string `json:"old_id,omitempty"`
	// ReplyType is "r" for replies and "w" for forwards, so the mail service
	// can flag the original message on send.
	ReplyType string `json:"reply_type,omitempty"`

	To      []Participant `json:"to"`
	CC      []Participant `json:"cc"`
	BCC     []Participant `json:"bcc"`
	Subject string        `json:"subject"`
	// Text is the body pair: index 0 plain text, index 1 HTML.
	Text        [2]string       `json:"text"`
	Attachments []AttachmentRef `json:"attachments,omitempty"`
	// UploadedIDs are service-side ids of attachments uploaded during this
	// composition, referenced by the final draft instead of re-uploading.
	UploadedIDs []string `json:"uploaded_ids,omitempty"`
	Urgent      bool     `json:"urgent"`
	RichText    bool     `json:"rich_text"`
}
