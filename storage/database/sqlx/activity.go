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

	"github.com/GrupoTcc462/StudyMate/core/activity"
)

type activityRow struct {
	ID               string       `db:"id"`
	AuthorID         string       `db:"author_id"`
	AuthorName       string       `db:"author_name"`
	Title            string       `db:"title"`
	Description      string       `db:"description"`
	Kind             string       `db:"kind"`
	Year1            bool         `db:"year1"`
	Year2            bool         `db:"year2"`
	Year3            bool         `db:"year3"`
	AllYears         bool         `db:"all_years"`
	Deadline         sql.NullTime `db:"deadline"`
	AllowsSubmission bool         `db:"allows_submission"`
	Attachment       string       `db:"attachment"`
	AttachmentName   string       `db:"attachment_name"`
	Views            int          `db:"views"`
	CreatedAt        time.Time    `db:"created_at"`
}

func (r activityRow) model() activity.Activity {
	a := activity.Activity{
		ID:          r.ID,
		AuthorID:    r.AuthorID,
		AuthorName:  r.AuthorName,
		Title:       r.Title,
		Description: r.Description,
		Kind:        activity.Kind(r.Kind),
		Audience: activity.Audience{
			Year1: r.Year1,
			Year2: r.Year2,
			Year3: r.Year3,
			All:   r.AllYears,
		},
		AllowsSubmission: r.AllowsSubmission,
		Attachment:       r.Attachment,
		AttachmentName:   r.AttachmentName,
		Views:            r.Views,
		CreatedAt:        r.CreatedAt,
	}
	if r.Deadline.Valid {
		t := r.Deadline.Time
		a.Deadline = &t
	}
	return a
}

type submissionRow struct {
	ID          string          `db:"id"`
	ActivityID  string          `db:"activity_id"`
	StudentID   string          `db:"student_id"`
	StudentName string          `db:"student_name"`
	File        string          `db:"file"`
	FileName    string          `db:"file_name"`
	Comment     string          `db:"comment"`
	Status      string          `db:"status"`
	Grade       sql.NullFloat64 `db:"grade"`
	Feedback    string          `db:"feedback"`
	SubmittedAt time.Time       `db:"submitted_at"`
	GradedAt    sql.NullTime    `db:"graded_at"`
}

func (r submissionRow) model() activity.Submission {
	s := activity.Submission{
		ID:          r.ID,
		ActivityID:  r.ActivityID,
		StudentID:   r.StudentID,
		StudentName: r.StudentName,
		File:        r.File,
		FileName:    r.FileName,
		Comment:     r.Comment,
		Status:      activity.SubmissionStatus(r.Status),
		Feedback:    r.Feedback,
		SubmittedAt: r.SubmittedAt,
	}
	if r.Grade.Valid {
		g := r.Grade.Float64
		s.Grade = &g
	}
	if r.GradedAt.Valid {
		t := r.GradedAt.Time
		s.GradedAt = &t
	}
	return s
}

const activitySelect = `
SELECT a.id, a.author_id, u.name AS author_name, a.title, a.description, a.kind,
       a.year1, a.year2, a.year3, a.all_years, a.deadline, a.allows_submission,
       a.attachment, a.attachment_name, a.views, a.created_at
FROM activity a
JOIN "user" u ON u.id = a.author_id`

const submissionSelect = `
SELECT s.id, s.activity_id, s.student_id, u.name AS student_name, s.file, s.file_name,
       s.comment, s.status, s.grade, s.feedback, s.submitted_at, s.graded_at
FROM activity_submission s
JOIN "user" u ON u.id = s.student_id`

type activityRepository struct {
	db *sqlx.DB
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *sqlx.DB) *activityRepository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) GetActivity(ctx context.Context, id string) (activity.Activity, error) {
	var r activityRow
	if err := repo.db.GetContext(ctx, &r, activitySelect+" WHERE a.id = $1", id); err != nil {
		return activity.Activity{}, trapNoRows(err, activity.ErrNotFound, "getting activity")
	}
	return r.model(), nil
}

func (repo *activityRepository) QueryActivities(ctx context.Context, filter activity.QueryFilter, year int) ([]activity.Activity, error) {
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Kind != "" {
		conds = append(conds, "a.kind = "+arg(string(filter.Kind)))
	}
	switch year {
	case 1:
		conds = append(conds, "(a.all_years OR a.year1)")
	case 2:
		conds = append(conds, "(a.all_years OR a.year2)")
	case 3:
		conds = append(conds, "(a.all_years OR a.year3)")
	}

	q := activitySelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY a.created_at DESC"

	var rows []activityRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying activities")
	}
	acts := make([]activity.Activity, 0, len(rows))
	for _, r := range rows {
		acts = append(acts, r.model())
	}
	return acts, nil
}

func (repo *activityRepository) QueryActivitiesByAuthor(ctx context.Context, authorID string) ([]activity.TeacherSummary, error) {
	q := `
SELECT a.id, a.author_id, u.name AS author_name, a.title, a.description, a.kind,
       a.year1, a.year2, a.year3, a.all_years, a.deadline, a.allows_submission,
       a.attachment, a.attachment_name, a.views, a.created_at,
       (SELECT COUNT(*) FROM activity_submission s WHERE s.activity_id = a.id) AS submission_count
FROM activity a
JOIN "user" u ON u.id = a.author_id
WHERE a.author_id = $1
ORDER BY a.created_at DESC`

	var rows []struct {
		activityRow
		SubmissionCount int `db:"submission_count"`
	}
	if err := repo.db.SelectContext(ctx, &rows, q, authorID); err != nil {
		return nil, errors.Wrap(err, "querying teacher activities")
	}
	sums := make([]activity.TeacherSummary, 0, len(rows))
	for _, r := range rows {
		sums = append(sums, activity.TeacherSummary{Activity: r.activityRow.model(), SubmissionCount: r.SubmissionCount})
	}
	return sums, nil
}

func (repo *activityRepository) CreateActivity(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	a.ID = uuid.New().String()
	q := `
INSERT INTO activity (id, author_id, title, description, kind, year1, year2, year3, all_years,
                      deadline, allows_submission, attachment, attachment_name, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	var deadline interface{}
	if a.Deadline != nil {
		deadline = a.Deadline.UTC()
	}
	_, err := repo.db.ExecContext(ctx, q,
		a.ID, a.AuthorID, a.Title, a.Description, string(a.Kind),
		a.Year1, a.Year2, a.Year3, a.All,
		deadline, a.AllowsSubmission, a.Attachment, a.AttachmentName, a.CreatedAt.UTC())
	if err != nil {
		return activity.Activity{}, errors.Wrap(err, "inserting activity")
	}
	return a, nil
}

func (repo *activityRepository) DeleteActivity(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM activity WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting activity")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return activity.ErrNotFound
	}
	return nil
}

func (repo *activityRepository) InsertActivityView(ctx context.Context, activityID, studentID string, at time.Time) (bool, error) {
	q := `INSERT INTO activity_view (activity_id, student_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	res, err := repo.db.ExecContext(ctx, q, activityID, studentID, at.UTC())
	if err != nil {
		return false, errors.Wrap(err, "inserting activity view")
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (repo *activityRepository) IncrementViews(ctx context.Context, activityID string) (int, error) {
	var views int
	q := `UPDATE activity SET views = views + 1 WHERE id = $1 RETURNING views`
	if err := repo.db.GetContext(ctx, &views, q, activityID); err != nil {
		return 0, trapNoRows(err, activity.ErrNotFound, "incrementing views")
	}
	return views, nil
}

func (repo *activityRepository) QueryViewedIDs(ctx context.Context, studentID string) (map[string]bool, error) {
	var ids []string
	if err := repo.db.SelectContext(ctx, &ids, `SELECT activity_id FROM activity_view WHERE student_id = $1`, studentID); err != nil {
		return nil, errors.Wrap(err, "querying viewed activities")
	}
	return idSet(ids), nil
}

func (repo *activityRepository) GetSubmission(ctx context.Context, activityID, studentID string) (activity.Submission, error) {
	var r submissionRow
	q := submissionSelect + " WHERE s.activity_id = $1 AND s.student_id = $2"
	if err := repo.db.GetContext(ctx, &r, q, activityID, studentID); err != nil {
		return activity.Submission{}, trapNoRows(err, activity.ErrSubmissionMissing, "getting submission")
	}
	return r.model(), nil
}

func (repo *activityRepository) GetSubmissionByID(ctx context.Context, id string) (activity.Submission, error) {
	var r submissionRow
	if err := repo.db.GetContext(ctx, &r, submissionSelect+" WHERE s.id = $1", id); err != nil {
		return activity.Submission{}, trapNoRows(err, activity.ErrSubmissionMissing, "getting submission")
	}
	return r.model(), nil
}

func (repo *activityRepository) QuerySubmissions(ctx context.Context, activityID string) ([]activity.Submission, error) {
	var rows []submissionRow
	q := submissionSelect + " WHERE s.activity_id = $1 ORDER BY s.submitted_at"
	if err := repo.db.SelectContext(ctx, &rows, q, activityID); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]activity.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.model())
	}
	return subs, nil
}

func (repo *activityRepository) QuerySubmissionsByStudent(ctx context.Context, studentID string) (map[string]activity.Submission, error) {
	var rows []submissionRow
	q := submissionSelect + " WHERE s.student_id = $1"
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student submissions")
	}
	subs := make(map[string]activity.Submission, len(rows))
	for _, r := range rows {
		subs[r.ActivityID] = r.model()
	}
	return subs, nil
}

func (repo *activityRepository) CreateSubmission(ctx context.Context, s activity.Submission) (activity.Submission, error) {
	s.ID = uuid.New().String()
	q := `
INSERT INTO activity_submission (id, activity_id, student_id, file, file_name, comment, status, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.db.ExecContext(ctx, q, s.ID, s.ActivityID, s.StudentID, s.File, s.FileName, s.Comment, string(s.Status), s.SubmittedAt.UTC())
	if err != nil {
		if isUniqueViolation(err, "activity_submission_activity_id_student_id_key") {
			return activity.Submission{}, activity.ErrAlreadySubmitted
		}
		return activity.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return s, nil
}

func (repo *activityRepository) UpdateSubmissionGrade(ctx context.Context, s activity.Submission) error {
	q := `UPDATE activity_submission SET grade = $2, feedback = $3, status = $4, graded_at = $5 WHERE id = $1`
	var gradedAt interface{}
	if s.GradedAt != nil {
		gradedAt = s.GradedAt.UTC()
	}
	res, err := repo.db.ExecContext(ctx, q, s.ID, s.Grade, s.Feedback, string(s.Status), gradedAt)
	if err != nil {
		return errors.Wrap(err, "updating submission grade")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return activity.ErrSubmissionMissing
	}
	return nil
}

func (repo *activityRepository) InsertSave(ctx context.Context, activityID, studentID string, at time.Time) (bool, error) {
	q := `INSERT INTO activity_saved (activity_id, student_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	res, err := repo.db.ExecContext(ctx, q, activityID, studentID, at.UTC())
	if err != nil {
		return false, errors.Wrap(err, "inserting bookmark")
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (repo *activityRepository) DeleteSave(ctx context.Context, activityID, studentID string) (bool, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM activity_saved WHERE activity_id = $1 AND student_id = $2`, activityID, studentID)
	if err != nil {
		return false, errors.Wrap(err, "deleting bookmark")
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (repo *activityRepository) QuerySavedIDs(ctx context.Context, studentID string) (map[string]bool, error) {
	var ids []string
	if err := repo.db.SelectContext(ctx, &ids, `SELECT activity_id FROM activity_saved WHERE student_id = $1`, studentID); err != nil {
		return nil, errors.Wrap(err, "querying bookmarks")
	}
	return idSet(ids), nil
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
