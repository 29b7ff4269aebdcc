package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core/note"
)

type noteRow struct {
	ID            string         `db:"id"`
	AuthorID      string         `db:"author_id"`
	AuthorName    string         `db:"author_name"`
	Title         string         `db:"title"`
	Description   string         `db:"description"`
	FileType      string         `db:"file_type"`
	File          string         `db:"file"`
	FileName      string         `db:"file_name"`
	Link          string         `db:"link"`
	SubjectID     sql.NullString `db:"subject_id"`
	SubjectName   sql.NullString `db:"subject_name"`
	IsRecommended bool           `db:"is_recommended"`
	Views         int            `db:"views"`
	Likes         int            `db:"likes"`
	Downloads     int            `db:"downloads"`
	CreatedAt     time.Time      `db:"created_at"`
}

func (r noteRow) model() note.Note {
	return note.Note{
		ID:            r.ID,
		AuthorID:      r.AuthorID,
		AuthorName:    r.AuthorName,
		Title:         r.Title,
		Description:   r.Description,
		FileType:      note.FileType(r.FileType),
		File:          r.File,
		FileName:      r.FileName,
		Link:          r.Link,
		SubjectID:     r.SubjectID.String,
		SubjectName:   r.SubjectName.String,
		IsRecommended: r.IsRecommended,
		Views:         r.Views,
		Likes:         r.Likes,
		Downloads:     r.Downloads,
		CreatedAt:     r.CreatedAt,
	}
}

const noteSelect = `
SELECT n.id, n.author_id, u.name AS author_name, n.title, n.description, n.file_type,
       n.file, n.file_name, n.link, n.subject_id, s.name AS subject_name,
       n.is_recommended, n.views, n.likes, n.downloads, n.created_at
FROM note n
JOIN "user" u ON u.id = n.author_id
LEFT JOIN subject s ON s.id = n.subject_id`

type noteRepository struct {
	db *sqlx.DB
}

var _ note.Repository = (*noteRepository)(nil) // interface compliance check

func NewNoteRepository(db *sqlx.DB) *noteRepository {
	return &noteRepository{db: db}
}

func (repo *noteRepository) GetNote(ctx context.Context, id string) (note.Note, error) {
	var r noteRow
	if err := repo.db.GetContext(ctx, &r, noteSelect+" WHERE n.id = $1", id); err != nil {
		return note.Note{}, trapNoRows(err, note.ErrNotFound, "getting note")
	}
	return r.model(), nil
}

func (repo *noteRepository) QueryNotes(ctx context.Context, filter note.QueryFilter) ([]note.Note, int, error) {
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.SubjectSlug != "" {
		conds = append(conds, "s.slug = "+arg(filter.SubjectSlug))
	}
	if filter.FileType != "" {
		conds = append(conds, "n.file_type = "+arg(string(filter.FileType)))
	}
	if filter.RecommendedOnly {
		conds = append(conds, "n.is_recommended")
	}
	var where string
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	countQ := `SELECT COUNT(*) FROM note n LEFT JOIN subject s ON s.id = n.subject_id` + where
	var total int
	if err := repo.db.GetContext(ctx, &total, countQ, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting notes")
	}

	var order string
	switch filter.Order {
	case note.OrderLikes:
		order = "n.likes DESC, n.created_at DESC"
	case note.OrderViews:
		order = "n.views DESC, n.created_at DESC"
	case note.OrderDownloads:
		order = "n.downloads DESC, n.created_at DESC"
	default:
		order = "n.created_at DESC"
	}
	q := fmt.Sprintf("%s%s ORDER BY %s LIMIT %s OFFSET %s",
		noteSelect, where, order, arg(filter.PageSize), arg((filter.Page-1)*filter.PageSize))

	var rows []noteRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying notes")
	}
	notes := make([]note.Note, 0, len(rows))
	for _, r := range rows {
		notes = append(notes, r.model())
	}
	return notes, total, nil
}

func (repo *noteRepository) CreateNote(ctx context.Context, n note.Note) (note.Note, error) {
	n.ID = uuid.New().String()
	q := `
INSERT INTO note (id, author_id, title, description, file_type, file, file_name, link, subject_id, is_recommended, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	var subjectID interface{}
	if n.SubjectID != "" {
		subjectID = n.SubjectID
	}
	_, err := repo.db.ExecContext(ctx, q,
		n.ID, n.AuthorID, n.Title, n.Description, string(n.FileType),
		n.File, n.FileName, n.Link, subjectID, n.IsRecommended, n.CreatedAt.UTC())
	if err != nil {
		return note.Note{}, errors.Wrap(err, "inserting note")
	}
	return repo.GetNote(ctx, n.ID)
}

func (repo *noteRepository) SetRecommended(ctx context.Context, noteID string, recommended bool) error {
	if _, err := repo.db.ExecContext(ctx, `UPDATE note SET is_recommended = $2 WHERE id = $1`, noteID, recommended); err != nil {
		return errors.Wrap(err, "setting recommended flag")
	}
	return nil
}

func (repo *noteRepository) InsertView(ctx context.Context, noteID, userID string, at time.Time) (bool, error) {
	q := `INSERT INTO note_view (note_id, user_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	res, err := repo.db.ExecContext(ctx, q, noteID, userID, at.UTC())
	if err != nil {
		return false, errors.Wrap(err, "inserting note view")
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (repo *noteRepository) InsertLike(ctx context.Context, noteID, userID string, at time.Time) (bool, error) {
	q := `INSERT INTO note_like (note_id, user_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	res, err := repo.db.ExecContext(ctx, q, noteID, userID, at.UTC())
	if err != nil {
		return false, errors.Wrap(err, "inserting like")
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (repo *noteRepository) DeleteLike(ctx context.Context, noteID, userID string) (bool, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM note_like WHERE note_id = $1 AND user_id = $2`, noteID, userID)
	if err != nil {
		return false, errors.Wrap(err, "deleting like")
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (repo *noteRepository) HasLike(ctx context.Context, noteID, userID string) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM note_like WHERE note_id = $1 AND user_id = $2)`
	if err := repo.db.GetContext(ctx, &exists, q, noteID, userID); err != nil {
		return false, errors.Wrap(err, "checking like")
	}
	return exists, nil
}

// counter columns whitelist; IncrementCounter interpolates the column name.
var noteCounters = map[string]bool{"views": true, "likes": true, "downloads": true}

func (repo *noteRepository) IncrementCounter(ctx context.Context, noteID, counter string, delta int) (int, error) {
	if !noteCounters[counter] {
		return 0, errors.Errorf("unknown counter %q", counter)
	}
	// atomic column increment; GREATEST keeps a racing decrement from going negative
	q := fmt.Sprintf(`UPDATE note SET %[1]s = GREATEST(%[1]s + $2, 0) WHERE id = $1 RETURNING %[1]s`, counter)
	var val int
	if err := repo.db.GetContext(ctx, &val, q, noteID, delta); err != nil {
		return 0, trapNoRows(err, note.ErrNotFound, "incrementing counter")
	}
	return val, nil
}

func (repo *noteRepository) InsertRecommendation(ctx context.Context, rec note.Recommendation) (bool, error) {
	var subjectID interface{}
	if rec.SubjectID != "" {
		subjectID = rec.SubjectID
	}
	q := `
INSERT INTO note_recommendation (id, note_id, teacher_id, subject_id, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (note_id, teacher_id) DO NOTHING`
	res, err := repo.db.ExecContext(ctx, q, uuid.New().String(), rec.NoteID, rec.TeacherID, subjectID, rec.CreatedAt.UTC())
	if err != nil {
		return false, errors.Wrap(err, "inserting recommendation")
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (repo *noteRepository) DeleteRecommendation(ctx context.Context, noteID, teacherID string) (bool, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM note_recommendation WHERE note_id = $1 AND teacher_id = $2`, noteID, teacherID)
	if err != nil {
		return false, errors.Wrap(err, "deleting recommendation")
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (repo *noteRepository) QueryRecommendations(ctx context.Context, noteID string) ([]note.Recommendation, error) {
	q := `
SELECT r.id, r.note_id, r.teacher_id, u.name AS teacher_name, r.subject_id, r.created_at
FROM note_recommendation r
JOIN "user" u ON u.id = r.teacher_id
WHERE r.note_id = $1
ORDER BY r.created_at`
	var rows []struct {
		ID          string         `db:"id"`
		NoteID      string         `db:"note_id"`
		TeacherID   string         `db:"teacher_id"`
		TeacherName string         `db:"teacher_name"`
		SubjectID   sql.NullString `db:"subject_id"`
		CreatedAt   time.Time      `db:"created_at"`
	}
	if err := repo.db.SelectContext(ctx, &rows, q, noteID); err != nil {
		return nil, errors.Wrap(err, "querying recommendations")
	}
	recs := make([]note.Recommendation, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, note.Recommendation{
			ID:          r.ID,
			NoteID:      r.NoteID,
			TeacherID:   r.TeacherID,
			TeacherName: r.TeacherName,
			SubjectID:   r.SubjectID.String,
			CreatedAt:   r.CreatedAt,
		})
	}
	return recs, nil
}

func (repo *noteRepository) CreateComment(ctx context.Context, c note.Comment) (note.Comment, error) {
	c.ID = uuid.New().String()
	q := `INSERT INTO note_comment (id, note_id, author_id, text, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := repo.db.ExecContext(ctx, q, c.ID, c.NoteID, c.AuthorID, c.Text, c.CreatedAt.UTC()); err != nil {
		return note.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return c, nil
}

func (repo *noteRepository) QueryComments(ctx context.Context, noteID string) ([]note.Comment, error) {
	q := `
SELECT c.id, c.note_id, c.author_id, u.name AS author_name, c.text, c.created_at
FROM note_comment c
JOIN "user" u ON u.id = c.author_id
WHERE c.note_id = $1
ORDER BY c.created_at`
	var rows []struct {
		ID         string    `db:"id"`
		NoteID     string    `db:"note_id"`
		AuthorID   string    `db:"author_id"`
		AuthorName string    `db:"author_name"`
		Text       string    `db:"text"`
		CreatedAt  time.Time `db:"created_at"`
	}
	if err := repo.db.SelectContext(ctx, &rows, q, noteID); err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	comments := make([]note.Comment, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, note.Comment{
			ID:         r.ID,
			NoteID:     r.NoteID,
			AuthorID:   r.AuthorID,
			AuthorName: r.AuthorName,
			Text:       r.Text,
			CreatedAt:  r.CreatedAt,
		})
	}
	return comments, nil
}
