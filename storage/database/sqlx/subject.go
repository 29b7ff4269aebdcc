package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core/subject"
)

type subjectRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Slug        string    `db:"slug"`
	Description string    `db:"description"`
	Icon        string    `db:"icon"`
	IsActive    bool      `db:"is_active"`
	NoteCount   int       `db:"note_count"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r subjectRow) model() subject.Subject {
	return subject.Subject{
		ID:          r.ID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		Icon:        r.Icon,
		IsActive:    r.IsActive,
		NoteCount:   r.NoteCount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

const subjectSelect = `
SELECT s.id, s.name, s.slug, s.description, s.icon, s.is_active, s.created_at, s.updated_at,
       (SELECT COUNT(*) FROM note n WHERE n.subject_id = s.id) AS note_count
FROM subject s`

type subjectRepository struct {
	db *sqlx.DB
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *sqlx.DB) *subjectRepository {
	return &subjectRepository{db: db}
}

func (repo *subjectRepository) GetSubject(ctx context.Context, id string) (subject.Subject, error) {
	var r subjectRow
	if err := repo.db.GetContext(ctx, &r, subjectSelect+" WHERE s.id = $1", id); err != nil {
		return subject.Subject{}, trapNoRows(err, subject.ErrNotFound, "getting subject")
	}
	return r.model(), nil
}

func (repo *subjectRepository) GetSubjectBySlug(ctx context.Context, slug string) (subject.Subject, error) {
	var r subjectRow
	if err := repo.db.GetContext(ctx, &r, subjectSelect+" WHERE s.slug = $1", slug); err != nil {
		return subject.Subject{}, trapNoRows(err, subject.ErrNotFound, "getting subject")
	}
	return r.model(), nil
}

func (repo *subjectRepository) QuerySubjects(ctx context.Context) ([]subject.Subject, error) {
	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, subjectSelect+" ORDER BY s.name"); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]subject.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, r.model())
	}
	return subjects, nil
}

func (repo *subjectRepository) CreateSubject(ctx context.Context, s subject.Subject) (subject.Subject, error) {
	s.ID = uuid.New().String()
	q := `INSERT INTO subject (id, name, slug, description, icon, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := repo.db.ExecContext(ctx, q, s.ID, s.Name, s.Slug, s.Description, s.Icon, s.IsActive, s.CreatedAt.UTC(), s.UpdatedAt.UTC()); err != nil {
		if isUniqueViolation(err, "subject_slug_key") {
			return subject.Subject{}, subject.ErrSlugExists
		}
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return s, nil
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, s subject.Subject) error {
	q := `UPDATE subject SET name = $2, slug = $3, description = $4, icon = $5, is_active = $6, updated_at = $7 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, s.ID, s.Name, s.Slug, s.Description, s.Icon, s.IsActive, s.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err, "subject_slug_key") {
			return subject.ErrSlugExists
		}
		return errors.Wrap(err, "updating subject")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return subject.ErrNotFound
	}
	return nil
}

func (repo *subjectRepository) DeleteSubject(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM subject WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return subject.ErrNotFound
	}
	return nil
}

func (repo *subjectRepository) QueryLinks(ctx context.Context, subjectID string) ([]subject.ExternalLink, error) {
	q := `SELECT id, subject_id, title, url, added_by, created_at FROM subject_link WHERE subject_id = $1 ORDER BY created_at`
	var rows []struct {
		ID        string    `db:"id"`
		SubjectID string    `db:"subject_id"`
		Title     string    `db:"title"`
		URL       string    `db:"url"`
		AddedBy   string    `db:"added_by"`
		CreatedAt time.Time `db:"created_at"`
	}
	if err := repo.db.SelectContext(ctx, &rows, q, subjectID); err != nil {
		return nil, errors.Wrap(err, "querying subject links")
	}
	links := make([]subject.ExternalLink, 0, len(rows))
	for _, r := range rows {
		links = append(links, subject.ExternalLink{
			ID:        r.ID,
			SubjectID: r.SubjectID,
			Title:     r.Title,
			URL:       r.URL,
			AddedBy:   r.AddedBy,
			CreatedAt: r.CreatedAt,
		})
	}
	return links, nil
}

func (repo *subjectRepository) CreateLink(ctx context.Context, link subject.ExternalLink) (subject.ExternalLink, error) {
	link.ID = uuid.New().String()
	q := `INSERT INTO subject_link (id, subject_id, title, url, added_by, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := repo.db.ExecContext(ctx, q, link.ID, link.SubjectID, link.Title, link.URL, link.AddedBy, link.CreatedAt.UTC()); err != nil {
		return subject.ExternalLink{}, errors.Wrap(err, "inserting subject link")
	}
	return link, nil
}

func (repo *subjectRepository) DeleteLink(ctx context.Context, subjectID, linkID string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM subject_link WHERE id = $1 AND subject_id = $2`, linkID, subjectID)
	if err != nil {
		return errors.Wrap(err, "deleting subject link")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return subject.ErrNotFound
	}
	return nil
}
