package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core"
)

var (
	// errors
	ErrNotFound       = errors.New("chat not found")
	ErrChatExists     = errors.New("chat already exists")
	ErrNotParticipant = errors.New("you are not part of this chat")
)

// draftExpiry caps how long an unsent draft survives; checked on read,
// enforced by the store's TTL.
const draftExpiry = 30 * time.Minute

type (
	Repository interface {
		GetChat(ctx context.Context, id string) (Chat, error)
		// FindChatByUsers looks the pair up in both orderings; the unique
		// constraint is directional, the chat identity is not.
		FindChatByUsers(ctx context.Context, userA, userB string) (Chat, error)
		// CreateChat fails with ErrChatExists on a concurrent duplicate insert.
		CreateChat(ctx context.Context, c Chat) (Chat, error)
		QuerySummaries(ctx context.Context, userID string) ([]Summary, error)

		GetMessage(ctx context.Context, id string) (Message, error)
		// QueryMessages excludes messages the viewer soft-deleted.
		QueryMessages(ctx context.Context, chatID, viewerID string) ([]Message, error)
		CreateMessage(ctx context.Context, m Message) (Message, error)
		// MarkChatRead flags all unread messages sent to viewerID in the chat.
		MarkChatRead(ctx context.Context, chatID, viewerID string, at time.Time) (int, error)
		MarkMessageRead(ctx context.Context, messageID string, at time.Time) error
		// SoftDeleteMessages records per-viewer tombstones; duplicates are no-ops.
		SoftDeleteMessages(ctx context.Context, viewerID string, messageIDs ...string) (int, error)
	}

	Service struct {
		repo     Repository
		sessions core.SessionStore
	}
)

func NewService(repo Repository, sessions core.SessionStore) *Service {
	return &Service{repo: repo, sessions: sessions}
}

// Open returns the chat between the two users, creating it on first contact.
// A concurrent duplicate create is resolved by re-looking the pair up.
func (svc *Service) Open(ctx context.Context, userID, otherID string) (Chat, error) {
	if userID == otherID {
		return Chat{}, core.NewValidationError(errors.New("cannot start a chat with yourself"))
	}
	c, err := svc.repo.FindChatByUsers(ctx, userID, otherID)
	if err == nil {
		return c, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Chat{}, errors.Wrap(err, "finding chat")
	}

	c, err = svc.repo.CreateChat(ctx, Chat{
		StarterID:   userID,
		RecipientID: otherID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrChatExists {
			return svc.repo.FindChatByUsers(ctx, userID, otherID)
		}
		return Chat{}, errors.Wrap(err, "creating chat")
	}
	return c, nil
}

func (svc *Service) Get(ctx context.Context, chatID, viewerID string) (Chat, error) {
	c, err := svc.repo.GetChat(ctx, chatID)
	if err != nil {
		return Chat{}, err
	}
	if !c.HasParticipant(viewerID) {
		return Chat{}, ErrNotParticipant
	}
	return c, nil
}

// List returns the user's chats ordered by last activity, with unread counts.
func (svc *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]Summary, error) {
	summaries, err := svc.repo.QuerySummaries(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !unreadOnly {
		return summaries, nil
	}
	filtered := make([]Summary, 0, len(summaries))
	for _, s := range summaries {
		if s.UnreadCount > 0 {
			filtered = append(filtered, s)
		}
	}
	return filtered, nil
}

// Conversation returns the viewer's view of the chat and marks the messages
// addressed to them as read.
func (svc *Service) Conversation(ctx context.Context, chatID, viewerID string) ([]Message, error) {
	c, err := svc.Get(ctx, chatID, viewerID)
	if err != nil {
		return nil, err
	}
	msgs, err := svc.repo.QueryMessages(ctx, c.ID, viewerID)
	if err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	if _, err = svc.repo.MarkChatRead(ctx, c.ID, viewerID, time.Now().UTC()); err != nil {
		return nil, errors.Wrap(err, "marking chat read")
	}
	return msgs, nil
}

// Post persists a message; the body is profanity-redacted, never rejected.
func (svc *Service) Post(ctx context.Context, chatID, senderID string, nm NewMessage) (Message, error) {
	c, err := svc.Get(ctx, chatID, senderID)
	if err != nil {
		return Message{}, err
	}

	msg, err := svc.repo.CreateMessage(ctx, Message{
		ChatID:         c.ID,
		SenderID:       senderID,
		Body:           Redact(nm.Body),
		Attachment:     nm.Attachment,
		AttachmentName: nm.AttachmentName,
		SentAt:         time.Now().UTC(),
	})
	if err != nil {
		return Message{}, errors.Wrap(err, "creating message")
	}
	_ = svc.ClearDraft(ctx, chatID, senderID)
	return msg, nil
}

// MarkRead is idempotent: the read flag and timestamp are set once.
// Only the receiving participant may mark a message read.
func (svc *Service) MarkRead(ctx context.Context, messageID, viewerID string) error {
	msg, err := svc.repo.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	c, err := svc.Get(ctx, msg.ChatID, viewerID)
	if err != nil {
		return err
	}
	if msg.SenderID != c.OtherUser(viewerID) {
		return ErrNotParticipant
	}
	if msg.Read {
		return nil
	}
	return svc.repo.MarkMessageRead(ctx, messageID, time.Now().UTC())
}

// DeleteMessages tombstones the given messages for the viewer only;
// the other participant's view and the underlying rows are untouched.
func (svc *Service) DeleteMessages(ctx context.Context, viewerID string, messageIDs ...string) (int, error) {
	valid := make([]string, 0, len(messageIDs))
	for _, id := range messageIDs {
		msg, err := svc.repo.GetMessage(ctx, id)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				continue
			}
			return 0, err
		}
		if c, err := svc.repo.GetChat(ctx, msg.ChatID); err == nil && c.HasParticipant(viewerID) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, core.NewValidationError(errors.New("no messages selected"))
	}
	return svc.repo.SoftDeleteMessages(ctx, viewerID, valid...)
}

// GetAttachment returns the message if the viewer may download its attachment.
func (svc *Service) GetAttachment(ctx context.Context, messageID, viewerID string) (Message, error) {
	msg, err := svc.repo.GetMessage(ctx, messageID)
	if err != nil {
		return Message{}, err
	}
	if _, err = svc.Get(ctx, msg.ChatID, viewerID); err != nil {
		return Message{}, err
	}
	if msg.Attachment == "" {
		return Message{}, ErrNotFound
	}
	return msg, nil
}

// Drafts

func draftKey(chatID, userID string) string { return "chatdraft:" + chatID + ":" + userID }

func (svc *Service) SaveDraft(ctx context.Context, chatID, userID, text string) error {
	raw, err := json.Marshal(Draft{Text: text, SavedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return svc.sessions.Set(ctx, draftKey(chatID, userID), raw, draftExpiry)
}

// GetDraft returns the saved draft text, or "" when none survives.
// Expiry is checked opportunistically on read as well as by the store's TTL.
func (svc *Service) GetDraft(ctx context.Context, chatID, userID string) (string, error) {
	raw, err := svc.sessions.Get(ctx, draftKey(chatID, userID))
	if err != nil {
		if errors.Cause(err) == core.ErrKeyNotFound {
			return "", nil
		}
		return "", err
	}
	var d Draft
	if err = json.Unmarshal(raw, &d); err != nil {
		return "", err
	}
	if time.Since(d.SavedAt) > draftExpiry {
		_ = svc.sessions.Delete(ctx, draftKey(chatID, userID))
		return "", nil
	}
	return d.Text, nil
}

func (svc *Service) ClearDraft(ctx context.Context, chatID, userID string) error {
	return svc.sessions.Delete(ctx, draftKey(chatID, userID))
}
