package sqlxrepos

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core/chat"
)

type chatRow struct {
	ID          string    `db:"id"`
	StarterID   string    `db:"starter_id"`
	RecipientID string    `db:"recipient_id"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r chatRow) model() chat.Chat {
	return chat.Chat{ID: r.ID, StarterID: r.StarterID, RecipientID: r.RecipientID, CreatedAt: r.CreatedAt}
}

type messageRow struct {
	ID             string       `db:"id"`
	ChatID         string       `db:"chat_id"`
	SenderID       string       `db:"sender_id"`
	Body           string       `db:"body"`
	Attachment     string       `db:"attachment"`
	AttachmentName string       `db:"attachment_name"`
	SentAt         time.Time    `db:"sent_at"`
	Read           bool         `db:"read"`
	ReadAt         sql.NullTime `db:"read_at"`
}

func (r messageRow) model() chat.Message {
	m := chat.Message{
		ID:             r.ID,
		ChatID:         r.ChatID,
		SenderID:       r.SenderID,
		Body:           r.Body,
		Attachment:     r.Attachment,
		AttachmentName: r.AttachmentName,
		SentAt:         r.SentAt,
		Read:           r.Read,
	}
	if r.ReadAt.Valid {
		t := r.ReadAt.Time
		m.ReadAt = &t
	}
	return m
}

type chatRepository struct {
	db *sqlx.DB
}

var _ chat.Repository = (*chatRepository)(nil) // interface compliance check

func NewChatRepository(db *sqlx.DB) *chatRepository {
	return &chatRepository{db: db}
}

func (repo *chatRepository) GetChat(ctx context.Context, id string) (chat.Chat, error) {
	var r chatRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM chat WHERE id = $1`, id); err != nil {
		return chat.Chat{}, trapNoRows(err, chat.ErrNotFound, "getting chat")
	}
	return r.model(), nil
}

func (repo *chatRepository) FindChatByUsers(ctx context.Context, userA, userB string) (chat.Chat, error) {
	// the unique constraint is on (starter, recipient); check both orderings
	q := `
SELECT * FROM chat
WHERE (starter_id = $1 AND recipient_id = $2) OR (starter_id = $2 AND recipient_id = $1)`
	var r chatRow
	if err := repo.db.GetContext(ctx, &r, q, userA, userB); err != nil {
		return chat.Chat{}, trapNoRows(err, chat.ErrNotFound, "finding chat")
	}
	return r.model(), nil
}

func (repo *chatRepository) CreateChat(ctx context.Context, c chat.Chat) (chat.Chat, error) {
	c.ID = uuid.New().String()
	q := `INSERT INTO chat (id, starter_id, recipient_id, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := repo.db.ExecContext(ctx, q, c.ID, c.StarterID, c.RecipientID, c.CreatedAt.UTC()); err != nil {
		if isUniqueViolation(err, "chat_starter_id_recipient_id_key") {
			return chat.Chat{}, chat.ErrChatExists
		}
		return chat.Chat{}, errors.Wrap(err, "inserting chat")
	}
	return c, nil
}

func (repo *chatRepository) QuerySummaries(ctx context.Context, userID string) ([]chat.Summary, error) {
	// one row per chat: the other participant, the last visible message and
	// the unread count addressed to the viewer
	q := `
SELECT c.id, c.starter_id, c.recipient_id, c.created_at,
       other.id AS other_user_id, other.name AS other_name,
       (SELECT COUNT(*) FROM message m
        WHERE m.chat_id = c.id AND m.sender_id <> $1 AND NOT m.read
          AND NOT EXISTS (SELECT 1 FROM message_deletion d WHERE d.message_id = m.id AND d.viewer_id = $1)
       ) AS unread_count
FROM chat c
JOIN "user" other ON other.id = CASE WHEN c.starter_id = $1 THEN c.recipient_id ELSE c.starter_id END
WHERE c.starter_id = $1 OR c.recipient_id = $1`

	var rows []struct {
		chatRow
		OtherUserID string `db:"other_user_id"`
		OtherName   string `db:"other_name"`
		UnreadCount int    `db:"unread_count"`
	}
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying chat summaries")
	}

	summaries := make([]chat.Summary, 0, len(rows))
	for _, r := range rows {
		s := chat.Summary{
			Chat:        r.chatRow.model(),
			OtherUserID: r.OtherUserID,
			OtherName:   r.OtherName,
			UnreadCount: r.UnreadCount,
			LastAt:      r.CreatedAt,
		}
		last, err := repo.lastVisibleMessage(ctx, r.ID, userID)
		if err != nil {
			return nil, err
		}
		if last != nil {
			s.LastMessage = last
			s.LastAt = last.SentAt
		}
		summaries = append(summaries, s)
	}
	// newest activity first
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].LastAt.After(summaries[j].LastAt) })
	return summaries, nil
}

func (repo *chatRepository) lastVisibleMessage(ctx context.Context, chatID, viewerID string) (*chat.Message, error) {
	q := `
SELECT * FROM message m
WHERE m.chat_id = $1
  AND NOT EXISTS (SELECT 1 FROM message_deletion d WHERE d.message_id = m.id AND d.viewer_id = $2)
ORDER BY m.sent_at DESC
LIMIT 1`
	var r messageRow
	if err := repo.db.GetContext(ctx, &r, q, chatID, viewerID); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "getting last message")
	}
	m := r.model()
	return &m, nil
}

func (repo *chatRepository) GetMessage(ctx context.Context, id string) (chat.Message, error) {
	var r messageRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM message WHERE id = $1`, id); err != nil {
		return chat.Message{}, trapNoRows(err, chat.ErrNotFound, "getting message")
	}
	return r.model(), nil
}

func (repo *chatRepository) QueryMessages(ctx context.Context, chatID, viewerID string) ([]chat.Message, error) {
	q := `
SELECT * FROM message m
WHERE m.chat_id = $1
  AND NOT EXISTS (SELECT 1 FROM message_deletion d WHERE d.message_id = m.id AND d.viewer_id = $2)
ORDER BY m.sent_at`
	var rows []messageRow
	if err := repo.db.SelectContext(ctx, &rows, q, chatID, viewerID); err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	msgs := make([]chat.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, r.model())
	}
	return msgs, nil
}

func (repo *chatRepository) CreateMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	m.ID = uuid.New().String()
	q := `
INSERT INTO message (id, chat_id, sender_id, body, attachment, attachment_name, sent_at, read)
VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)`
	_, err := repo.db.ExecContext(ctx, q, m.ID, m.ChatID, m.SenderID, m.Body, m.Attachment, m.AttachmentName, m.SentAt.UTC())
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "inserting message")
	}
	return m, nil
}

func (repo *chatRepository) MarkChatRead(ctx context.Context, chatID, viewerID string, at time.Time) (int, error) {
	q := `UPDATE message SET read = TRUE, read_at = $3 WHERE chat_id = $1 AND sender_id <> $2 AND NOT read`
	res, err := repo.db.ExecContext(ctx, q, chatID, viewerID, at.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "marking chat read")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (repo *chatRepository) MarkMessageRead(ctx context.Context, messageID string, at time.Time) error {
	q := `UPDATE message SET read = TRUE, read_at = $2 WHERE id = $1 AND NOT read`
	if _, err := repo.db.ExecContext(ctx, q, messageID, at.UTC()); err != nil {
		return errors.Wrap(err, "marking message read")
	}
	return nil
}

func (repo *chatRepository) SoftDeleteMessages(ctx context.Context, viewerID string, messageIDs ...string) (int, error) {
	q := `
INSERT INTO message_deletion (message_id, viewer_id, deleted_at)
VALUES ($1, $2, $3)
ON CONFLICT (message_id, viewer_id) DO NOTHING`
	now := time.Now().UTC()
	var n int
	for _, id := range messageIDs {
		res, err := repo.db.ExecContext(ctx, q, id, viewerID, now)
		if err != nil {
			return n, errors.Wrap(err, "inserting message tombstone")
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			n++
		}
	}
	return n, nil
}
