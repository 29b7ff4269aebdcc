package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/GrupoTcc462/StudyMate/core/chat"
)

type chatRepository struct {
	db *DB
}

var _ chat.Repository = (*chatRepository)(nil) // interface compliance check

func NewChatRepository(db *DB) *chatRepository {
	return &chatRepository{db: db}
}

func (repo *chatRepository) GetChat(_ context.Context, id string) (chat.Chat, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.chats[id]; ok {
		return *c, nil
	}
	return chat.Chat{}, chat.ErrNotFound
}

func (repo *chatRepository) FindChatByUsers(_ context.Context, userA, userB string) (chat.Chat, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, c := range repo.db.chats {
		if (c.StarterID == userA && c.RecipientID == userB) || (c.StarterID == userB && c.RecipientID == userA) {
			return *c, nil
		}
	}
	return chat.Chat{}, chat.ErrNotFound
}

func (repo *chatRepository) CreateChat(_ context.Context, c chat.Chat) (chat.Chat, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.chats {
		if existing.StarterID == c.StarterID && existing.RecipientID == c.RecipientID {
			return chat.Chat{}, chat.ErrChatExists
		}
	}
	c.ID = newID()
	repo.db.chats[c.ID] = &c
	return c, nil
}

func (repo *chatRepository) QuerySummaries(_ context.Context, userID string) ([]chat.Summary, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var summaries []chat.Summary
	for _, c := range repo.db.chats {
		if !c.HasParticipant(userID) {
			continue
		}
		s := chat.Summary{Chat: *c, OtherUserID: c.OtherUser(userID), LastAt: c.CreatedAt}
		if other, ok := repo.db.users[s.OtherUserID]; ok {
			s.OtherName = other.Name
		}
		for _, m := range repo.chatMessages(c.ID, userID) {
			msg := m
			s.LastMessage = &msg
			s.LastAt = m.SentAt
		}
		for _, m := range repo.db.messages {
			if m.ChatID == c.ID && m.SenderID != userID && !m.Read &&
				!repo.db.messageDeletions[pair{m.ID, userID}] {
				s.UnreadCount++
			}
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].LastAt.After(summaries[j].LastAt) })
	return summaries, nil
}

// chatMessages returns the viewer's visible messages, oldest first.
// Callers must hold the read lock.
func (repo *chatRepository) chatMessages(chatID, viewerID string) []chat.Message {
	var msgs []chat.Message
	for _, m := range repo.db.messages {
		if m.ChatID == chatID && !repo.db.messageDeletions[pair{m.ID, viewerID}] {
			msgs = append(msgs, *m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].SentAt.Before(msgs[j].SentAt) })
	return msgs
}

func (repo *chatRepository) GetMessage(_ context.Context, id string) (chat.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if m, ok := repo.db.messages[id]; ok {
		return *m, nil
	}
	return chat.Message{}, chat.ErrNotFound
}

func (repo *chatRepository) QueryMessages(_ context.Context, chatID, viewerID string) ([]chat.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.chatMessages(chatID, viewerID), nil
}

func (repo *chatRepository) CreateMessage(_ context.Context, m chat.Message) (chat.Message, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	m.ID = newID()
	repo.db.messages[m.ID] = &m
	return m, nil
}

func (repo *chatRepository) MarkChatRead(_ context.Context, chatID, viewerID string, at time.Time) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, m := range repo.db.messages {
		if m.ChatID == chatID && m.SenderID != viewerID && !m.Read {
			t := at
			m.Read, m.ReadAt = true, &t
			n++
		}
	}
	return n, nil
}

func (repo *chatRepository) MarkMessageRead(_ context.Context, messageID string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if m, ok := repo.db.messages[messageID]; ok && !m.Read {
		t := at
		m.Read, m.ReadAt = true, &t
	}
	return nil
}

func (repo *chatRepository) SoftDeleteMessages(_ context.Context, viewerID string, messageIDs ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range messageIDs {
		key := pair{id, viewerID}
		if _, ok := repo.db.messages[id]; ok && !repo.db.messageDeletions[key] {
			repo.db.messageDeletions[key] = true
			n++
		}
	}
	return n, nil
}
