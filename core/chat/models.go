package chat

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/GrupoTcc462/StudyMate/core"
)

// Chat is a pairwise conversation, created lazily on first contact.
// Identity is the unordered user pair; the starter is whoever opened it.
type Chat struct {
	ID          string    `json:"id"`
	StarterID   string    `json:"starter_id"`
	RecipientID string    `json:"recipient_id"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// OtherUser returns the chat participant that is not userID.
func (c *Chat) OtherUser(userID string) string {
	if c.StarterID == userID {
		return c.RecipientID
	}
	return c.StarterID
}

func (c *Chat) HasParticipant(userID string) bool {
	return c.StarterID == userID || c.RecipientID == userID
}

type Message struct {
	ID             string     `json:"id"`
	ChatID         string     `json:"chat_id"`
	SenderID       string     `json:"sender_id"`
	Body           string     `json:"body"`
	Attachment     string     `json:"attachment,omitempty"`      // stored filename
	AttachmentName string     `json:"attachment_name,omitempty"` // original filename
	SentAt         time.Time  `json:"sent_at"`                   // UTC
	Read           bool       `json:"read"`
	ReadAt         *time.Time `json:"read_at,omitempty"` // UTC
}

// Summary is one row of a user's chat list.
type Summary struct {
	Chat        Chat      `json:"chat"`
	OtherUserID string    `json:"other_user_id"`
	OtherName   string    `json:"other_name"`
	LastMessage *Message  `json:"last_message,omitempty"`
	UnreadCount int       `json:"unread_count"`
	LastAt      time.Time `json:"last_at"`
}

type NewMessage struct {
	Body           string `json:"body" validate:"required_without=Attachment"`
	Attachment     string `json:"-"`
	AttachmentName string `json:"-"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Body = core.CleanString(nm.Body)
	return validate.Struct(nm)
}

type Draft struct {
	Text    string    `json:"text"`
	SavedAt time.Time `json:"saved_at"`
}
