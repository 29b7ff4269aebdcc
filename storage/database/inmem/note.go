package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core/note"
)

type noteRepository struct {
	db *DB
}

var _ note.Repository = (*noteRepository)(nil) // interface compliance check

func NewNoteRepository(db *DB) *noteRepository {
	return &noteRepository{db: db}
}

func (repo *noteRepository) GetNote(_ context.Context, id string) (note.Note, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if n, ok := repo.db.notes[id]; ok {
		return *n, nil
	}
	return note.Note{}, note.ErrNotFound
}

func (repo *noteRepository) QueryNotes(_ context.Context, filter note.QueryFilter) ([]note.Note, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var notes []note.Note
	for _, n := range repo.db.notes {
		if filter.FileType != "" && n.FileType != filter.FileType {
			continue
		}
		if filter.RecommendedOnly && !n.IsRecommended {
			continue
		}
		if filter.SubjectSlug != "" {
			s, ok := repo.db.subjects[n.SubjectID]
			if !ok || s.Slug != filter.SubjectSlug {
				continue
			}
		}
		notes = append(notes, *n)
	}

	sort.Slice(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		switch filter.Order {
		case note.OrderLikes:
			if a.Likes != b.Likes {
				return a.Likes > b.Likes
			}
		case note.OrderViews:
			if a.Views != b.Views {
				return a.Views > b.Views
			}
		case note.OrderDownloads:
			if a.Downloads != b.Downloads {
				return a.Downloads > b.Downloads
			}
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	total := len(notes)
	start := (filter.Page - 1) * filter.PageSize
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return notes[start:end], total, nil
}

func (repo *noteRepository) CreateNote(_ context.Context, n note.Note) (note.Note, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n.ID = newID()
	if author, ok := repo.db.users[n.AuthorID]; ok {
		n.AuthorName = author.Name
	}
	if s, ok := repo.db.subjects[n.SubjectID]; ok {
		n.SubjectName = s.Name
	}
	repo.db.notes[n.ID] = &n
	return n, nil
}

func (repo *noteRepository) SetRecommended(_ context.Context, noteID string, recommended bool) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n, ok := repo.db.notes[noteID]
	if !ok {
		return note.ErrNotFound
	}
	n.IsRecommended = recommended
	return nil
}

func (repo *noteRepository) InsertView(_ context.Context, noteID, userID string, _ time.Time) (bool, error) {
	return repo.insertPair(repo.db.noteViews, noteID, userID)
}

func (repo *noteRepository) InsertLike(_ context.Context, noteID, userID string, _ time.Time) (bool, error) {
	return repo.insertPair(repo.db.noteLikes, noteID, userID)
}

func (repo *noteRepository) insertPair(table map[pair]bool, noteID, userID string) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.notes[noteID]; !ok {
		return false, note.ErrNotFound
	}
	key := pair{noteID, userID}
	if table[key] {
		return false, nil
	}
	table[key] = true
	return true, nil
}

func (repo *noteRepository) DeleteLike(_ context.Context, noteID, userID string) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := pair{noteID, userID}
	if !repo.db.noteLikes[key] {
		return false, nil
	}
	delete(repo.db.noteLikes, key)
	return true, nil
}

func (repo *noteRepository) HasLike(_ context.Context, noteID, userID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.noteLikes[pair{noteID, userID}], nil
}

func (repo *noteRepository) IncrementCounter(_ context.Context, noteID, counter string, delta int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n, ok := repo.db.notes[noteID]
	if !ok {
		return 0, note.ErrNotFound
	}
	bump := func(val *int) int {
		*val += delta
		if *val < 0 {
			*val = 0
		}
		return *val
	}
	switch counter {
	case "views":
		return bump(&n.Views), nil
	case "likes":
		return bump(&n.Likes), nil
	case "downloads":
		return bump(&n.Downloads), nil
	}
	return 0, errors.Errorf("unknown counter %q", counter)
}

func (repo *noteRepository) InsertRecommendation(_ context.Context, rec note.Recommendation) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := pair{rec.NoteID, rec.TeacherID}
	if _, ok := repo.db.noteRecommendations[key]; ok {
		return false, nil
	}
	rec.ID = newID()
	if teacher, ok := repo.db.users[rec.TeacherID]; ok {
		rec.TeacherName = teacher.Name
	}
	repo.db.noteRecommendations[key] = &rec
	return true, nil
}

func (repo *noteRepository) DeleteRecommendation(_ context.Context, noteID, teacherID string) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := pair{noteID, teacherID}
	if _, ok := repo.db.noteRecommendations[key]; !ok {
		return false, nil
	}
	delete(repo.db.noteRecommendations, key)
	return true, nil
}

func (repo *noteRepository) QueryRecommendations(_ context.Context, noteID string) ([]note.Recommendation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var recs []note.Recommendation
	for key, rec := range repo.db.noteRecommendations {
		if key.a == noteID {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
	return recs, nil
}

func (repo *noteRepository) CreateComment(_ context.Context, c note.Comment) (note.Comment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c.ID = newID()
	if author, ok := repo.db.users[c.AuthorID]; ok {
		c.AuthorName = author.Name
	}
	repo.db.noteComments[c.ID] = &c
	return c, nil
}

func (repo *noteRepository) QueryComments(_ context.Context, noteID string) ([]note.Comment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var comments []note.Comment
	for _, c := range repo.db.noteComments {
		if c.NoteID == noteID {
			comments = append(comments, *c)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	return comments, nil
}
