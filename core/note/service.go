package note

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core/user"
)

var (
	// errors
	ErrNotFound    = errors.New("note not found")
	ErrNoFile      = errors.New("note has no downloadable file")
	ErrTeacherOnly = errors.New("only teachers can recommend notes")
)

type (
	Page struct {
		Notes    []Note `json:"notes"`
		Total    int    `json:"total"`
		Page     int    `json:"page"`
		PageSize int    `json:"page_size"`
	}

	Repository interface {
		GetNote(ctx context.Context, id string) (Note, error)
		QueryNotes(ctx context.Context, filter QueryFilter) ([]Note, int, error)
		CreateNote(ctx context.Context, n Note) (Note, error)
		SetRecommended(ctx context.Context, noteID string, recommended bool) error

		// InsertView records one view per (user, note); reports whether the
		// row was created. The counter is only bumped on first insert.
		InsertView(ctx context.Context, noteID, userID string, at time.Time) (bool, error)
		// InsertLike / DeleteLike toggle the (note, user) row and report
		// whether anything changed.
		InsertLike(ctx context.Context, noteID, userID string, at time.Time) (bool, error)
		DeleteLike(ctx context.Context, noteID, userID string) (bool, error)
		HasLike(ctx context.Context, noteID, userID string) (bool, error)
		// IncrementCounter atomically adds delta to the named counter column
		// and returns the new value.
		IncrementCounter(ctx context.Context, noteID, counter string, delta int) (int, error)

		InsertRecommendation(ctx context.Context, rec Recommendation) (bool, error)
		DeleteRecommendation(ctx context.Context, noteID, teacherID string) (bool, error)
		QueryRecommendations(ctx context.Context, noteID string) ([]Recommendation, error)

		CreateComment(ctx context.Context, c Comment) (Comment, error)
		QueryComments(ctx context.Context, noteID string) ([]Comment, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) List(ctx context.Context, filter QueryFilter) (Page, error) {
	if err := filter.Clean(); err != nil {
		return Page{}, err
	}
	notes, total, err := svc.repo.QueryNotes(ctx, filter)
	if err != nil {
		return Page{}, errors.Wrap(err, "querying notes")
	}
	if notes == nil {
		notes = []Note{}
	}
	return Page{Notes: notes, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Note, error) {
	return svc.repo.GetNote(ctx, id)
}

func (svc *Service) Create(ctx context.Context, authorID string, nn NewNote, authorIsTeacher bool) (Note, error) {
	n := Note{
		AuthorID:    authorID,
		Title:       nn.Title,
		Description: nn.Description,
		FileType:    nn.FileType,
		File:        nn.File,
		FileName:    nn.FileName,
		Link:        nn.Link,
		SubjectID:   nn.SubjectID,
		CreatedAt:   time.Now().UTC(),
	}
	if authorIsTeacher {
		n.IsRecommended = nn.IsRecommended
	}
	return svc.repo.CreateNote(ctx, n)
}

// RecordView counts one view per user: the counter moves only when the
// (user, note) row is first inserted. Returns the (possibly updated) view count.
func (svc *Service) RecordView(ctx context.Context, noteID, userID string) (int, bool, error) {
	n, err := svc.repo.GetNote(ctx, noteID)
	if err != nil {
		return 0, false, err
	}
	created, err := svc.repo.InsertView(ctx, noteID, userID, time.Now().UTC())
	if err != nil {
		return 0, false, errors.Wrap(err, "recording view")
	}
	if !created {
		return n.Views, false, nil
	}
	views, err := svc.repo.IncrementCounter(ctx, noteID, "views", 1)
	if err != nil {
		return 0, false, errors.Wrap(err, "incrementing views")
	}
	svc.maybeAutoRecommend(ctx, noteID)
	return views, true, nil
}

// RecordAnonymousView bumps the counter without per-user dedup; the HTTP
// layer dedups anonymous visitors with a client cookie as a weaker fallback.
func (svc *Service) RecordAnonymousView(ctx context.Context, noteID string) (int, error) {
	views, err := svc.repo.IncrementCounter(ctx, noteID, "views", 1)
	if err != nil {
		return 0, errors.Wrap(err, "incrementing views")
	}
	svc.maybeAutoRecommend(ctx, noteID)
	return views, nil
}

// ToggleLike likes the note, or unlikes it when already liked.
// Like-then-unlike always returns the counter to its original value.
func (svc *Service) ToggleLike(ctx context.Context, noteID, userID string) (likes int, liked bool, err error) {
	if _, err = svc.repo.GetNote(ctx, noteID); err != nil {
		return 0, false, err
	}

	created, err := svc.repo.InsertLike(ctx, noteID, userID, time.Now().UTC())
	if err != nil {
		return 0, false, errors.Wrap(err, "inserting like")
	}
	if created {
		likes, err = svc.repo.IncrementCounter(ctx, noteID, "likes", 1)
		if err != nil {
			return 0, false, errors.Wrap(err, "incrementing likes")
		}
		svc.maybeAutoRecommend(ctx, noteID)
		return likes, true, nil
	}

	deleted, err := svc.repo.DeleteLike(ctx, noteID, userID)
	if err != nil {
		return 0, false, errors.Wrap(err, "deleting like")
	}
	if deleted {
		likes, err = svc.repo.IncrementCounter(ctx, noteID, "likes", -1)
		if err != nil {
			return 0, false, errors.Wrap(err, "decrementing likes")
		}
	}
	return likes, false, nil
}

func (svc *Service) HasLiked(ctx context.Context, noteID, userID string) (bool, error) {
	return svc.repo.HasLike(ctx, noteID, userID)
}

// Download bumps the download counter (not deduplicated) and returns the note
// for serving. Fails when the note carries no file.
func (svc *Service) Download(ctx context.Context, noteID string) (Note, error) {
	n, err := svc.repo.GetNote(ctx, noteID)
	if err != nil {
		return Note{}, err
	}
	if n.File == "" {
		return Note{}, ErrNoFile
	}
	if n.Downloads, err = svc.repo.IncrementCounter(ctx, noteID, "downloads", 1); err != nil {
		return Note{}, errors.Wrap(err, "incrementing downloads")
	}
	svc.maybeAutoRecommend(ctx, noteID)
	return n, nil
}

// ToggleRecommendation adds or removes the teacher's recommendation.
// Removing the last manual recommendation clears the recommended flag only
// when the engagement thresholds do not hold on their own.
func (svc *Service) ToggleRecommendation(ctx context.Context, noteID string, teacher user.User) (added bool, total int, err error) {
	if !teacher.CanRecommend() {
		return false, 0, ErrTeacherOnly
	}
	n, err := svc.repo.GetNote(ctx, noteID)
	if err != nil {
		return false, 0, err
	}

	created, err := svc.repo.InsertRecommendation(ctx, Recommendation{
		NoteID:    noteID,
		TeacherID: teacher.ID,
		SubjectID: n.SubjectID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return false, 0, errors.Wrap(err, "inserting recommendation")
	}

	if created {
		if !n.IsRecommended {
			if err = svc.repo.SetRecommended(ctx, noteID, true); err != nil {
				return false, 0, errors.Wrap(err, "setting recommended flag")
			}
		}
	} else {
		if _, err = svc.repo.DeleteRecommendation(ctx, noteID, teacher.ID); err != nil {
			return false, 0, errors.Wrap(err, "deleting recommendation")
		}
	}

	recs, err := svc.repo.QueryRecommendations(ctx, noteID)
	if err != nil {
		return false, 0, errors.Wrap(err, "querying recommendations")
	}
	if !created && len(recs) == 0 && !n.MeetsAutoRecommendThresholds() {
		if err = svc.repo.SetRecommended(ctx, noteID, false); err != nil {
			return false, 0, errors.Wrap(err, "clearing recommended flag")
		}
	}
	return created, len(recs), nil
}

func (svc *Service) Recommendations(ctx context.Context, noteID string) ([]Recommendation, error) {
	recs, err := svc.repo.QueryRecommendations(ctx, noteID)
	if recs == nil {
		recs = []Recommendation{}
	}
	return recs, err
}

func (svc *Service) AddComment(ctx context.Context, noteID, authorID string, nc NewComment) (Comment, error) {
	if _, err := svc.repo.GetNote(ctx, noteID); err != nil {
		return Comment{}, err
	}
	return svc.repo.CreateComment(ctx, Comment{
		NoteID:    noteID,
		AuthorID:  authorID,
		Text:      nc.Text,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) Comments(ctx context.Context, noteID string) ([]Comment, error) {
	comments, err := svc.repo.QueryComments(ctx, noteID)
	if comments == nil {
		comments = []Comment{}
	}
	return comments, err
}

// maybeAutoRecommend flips the recommended flag once engagement crosses a
// threshold. Failures are swallowed: the counters are already committed and
// the next mutation re-checks.
func (svc *Service) maybeAutoRecommend(ctx context.Context, noteID string) {
	n, err := svc.repo.GetNote(ctx, noteID)
	if err != nil || n.IsRecommended {
		return
	}
	if n.MeetsAutoRecommendThresholds() {
		_ = svc.repo.SetRecommended(ctx, noteID, true)
	}
}
