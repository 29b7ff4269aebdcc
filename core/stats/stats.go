package stats

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core"
	"github.com/GrupoTcc462/StudyMate/core/user"
)

// presenceTTL is how long a ping marks a student online.
const presenceTTL = 5 * time.Minute

const presencePrefix = "presence:"

type (
	// Overview is what the dashboard shows.
	Overview struct {
		Subjects       int      `json:"subjects"`
		Notes          int      `json:"notes"`
		OnlineStudents []string `json:"online_students"` // usernames
	}

	// Repository provides the aggregate counts.
	Repository interface {
		CountSubjects(ctx context.Context) (int, error)
		CountNotes(ctx context.Context) (int, error)
	}

	presenceEntry struct {
		Username string    `json:"username"`
		Role     user.Role `json:"role"`
		SeenAt   time.Time `json:"seen_at"`
	}

	Service struct {
		repo     Repository
		sessions core.SessionStore
	}
)

func NewService(repo Repository, sessions core.SessionStore) *Service {
	return &Service{repo: repo, sessions: sessions}
}

// Ping marks the user online for the next five minutes.
func (svc *Service) Ping(ctx context.Context, usr user.User) error {
	entry, err := json.Marshal(presenceEntry{Username: usr.Username, Role: usr.Role, SeenAt: time.Now().UTC()})
	if err != nil {
		return errors.Wrap(err, "marshalling presence")
	}
	return svc.sessions.Set(ctx, presencePrefix+usr.ID, entry, presenceTTL)
}

// Overview aggregates the dashboard counts and the online student list.
func (svc *Service) Overview(ctx context.Context) (Overview, error) {
	var ov Overview
	var err error

	if ov.Subjects, err = svc.repo.CountSubjects(ctx); err != nil {
		return Overview{}, errors.Wrap(err, "counting subjects")
	}
	if ov.Notes, err = svc.repo.CountNotes(ctx); err != nil {
		return Overview{}, errors.Wrap(err, "counting notes")
	}
	if ov.OnlineStudents, err = svc.onlineStudents(ctx); err != nil {
		return Overview{}, err
	}
	return ov, nil
}

// onlineStudents lists the usernames of students whose presence key has not
// expired. Expiry is the store's TTL; no extra timestamp math needed here.
func (svc *Service) onlineStudents(ctx context.Context) ([]string, error) {
	keys, err := svc.sessions.Keys(ctx, presencePrefix)
	if err != nil {
		return nil, errors.Wrap(err, "listing presence keys")
	}

	online := make([]string, 0, len(keys))
	for _, key := range keys {
		raw, err := svc.sessions.Get(ctx, key)
		if errors.Is(err, core.ErrKeyNotFound) {
			continue // expired between Keys and Get
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading presence key")
		}
		var entry presenceEntry
		if err = json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if entry.Role != user.RoleStudent {
			continue
		}
		online = append(online, entry.Username)
	}
	sort.Slice(online, func(i, j int) bool { return strings.ToLower(online[i]) < strings.ToLower(online[j]) })
	return online, nil
}
