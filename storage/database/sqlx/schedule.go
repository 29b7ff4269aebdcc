package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core/schedule"
)

type scheduleRow struct {
	ID           string    `db:"id"`
	UploaderID   string    `db:"uploader_id"`
	UploaderName string    `db:"uploader_name"`
	File         string    `db:"file"`
	FileName     string    `db:"file_name"`
	Kind         string    `db:"kind"`
	Active       bool      `db:"active"`
	ImportedAt   time.Time `db:"imported_at"`
}

func (r scheduleRow) model() schedule.Schedule {
	return schedule.Schedule{
		ID:           r.ID,
		UploaderID:   r.UploaderID,
		UploaderName: r.UploaderName,
		File:         r.File,
		FileName:     r.FileName,
		Kind:         schedule.FileKind(r.Kind),
		Active:       r.Active,
		ImportedAt:   r.ImportedAt,
	}
}

const scheduleSelect = `
SELECT s.id, s.uploader_id, u.name AS uploader_name, s.file, s.file_name, s.kind, s.active, s.imported_at
FROM schedule s
JOIN "user" u ON u.id = s.uploader_id`

type scheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *sqlx.DB) *scheduleRepository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) GetSchedule(ctx context.Context, id string) (schedule.Schedule, error) {
	var r scheduleRow
	if err := repo.db.GetContext(ctx, &r, scheduleSelect+" WHERE s.id = $1", id); err != nil {
		return schedule.Schedule{}, trapNoRows(err, schedule.ErrNotFound, "getting schedule")
	}
	return r.model(), nil
}

func (repo *scheduleRepository) GetActiveSchedule(ctx context.Context) (schedule.Schedule, error) {
	var r scheduleRow
	if err := repo.db.GetContext(ctx, &r, scheduleSelect+" WHERE s.active"); err != nil {
		return schedule.Schedule{}, trapNoRows(err, schedule.ErrNoActive, "getting active schedule")
	}
	return r.model(), nil
}

func (repo *scheduleRepository) QuerySchedules(ctx context.Context) ([]schedule.Schedule, error) {
	var rows []scheduleRow
	if err := repo.db.SelectContext(ctx, &rows, scheduleSelect+" ORDER BY s.imported_at DESC"); err != nil {
		return nil, errors.Wrap(err, "querying schedules")
	}
	scheds := make([]schedule.Schedule, 0, len(rows))
	for _, r := range rows {
		scheds = append(scheds, r.model())
	}
	return scheds, nil
}

// CreateSchedule deactivates every other version and inserts the new one as
// active in a single transaction, so exactly one row stays active.
func (repo *scheduleRepository) CreateSchedule(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	s.ID = uuid.New().String()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `UPDATE schedule SET active = FALSE WHERE active`); err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "deactivating schedules")
	}
	q := `INSERT INTO schedule (id, uploader_id, file, file_name, kind, active, imported_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err = tx.ExecContext(ctx, q, s.ID, s.UploaderID, s.File, s.FileName, string(s.Kind), s.Active, s.ImportedAt.UTC()); err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "inserting schedule")
	}
	if err = tx.Commit(); err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "committing tx")
	}
	return s, nil
}
