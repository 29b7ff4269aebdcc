package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core/profile"
)

type profileRow struct {
	UserID         string       `db:"user_id"`
	Bio            string       `db:"bio"`
	Avatar         string       `db:"avatar"`
	LastNameChange sql.NullTime `db:"last_name_change"`
	LoginStreak    int          `db:"login_streak"`
	LastStreakDay  string       `db:"last_streak_day"`
	UpdatedAt      time.Time    `db:"updated_at"`
}

func (r profileRow) model() profile.Profile {
	p := profile.Profile{
		UserID:        r.UserID,
		Bio:           r.Bio,
		Avatar:        r.Avatar,
		LoginStreak:   r.LoginStreak,
		LastStreakDay: r.LastStreakDay,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.LastNameChange.Valid {
		t := r.LastNameChange.Time
		p.LastNameChange = &t
	}
	return p
}

type profileRepository struct {
	db *sqlx.DB
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *sqlx.DB) *profileRepository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) GetProfile(ctx context.Context, userID string) (profile.Profile, error) {
	var r profileRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM profile WHERE user_id = $1`, userID); err != nil {
		return profile.Profile{}, trapNoRows(err, profile.ErrNotFound, "getting profile")
	}
	return r.model(), nil
}

func (repo *profileRepository) UpsertProfile(ctx context.Context, p profile.Profile) error {
	q := `
INSERT INTO profile (user_id, bio, avatar, last_name_change, login_streak, last_streak_day, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id) DO UPDATE
SET bio = EXCLUDED.bio, avatar = EXCLUDED.avatar, last_name_change = EXCLUDED.last_name_change,
    login_streak = EXCLUDED.login_streak, last_streak_day = EXCLUDED.last_streak_day,
    updated_at = EXCLUDED.updated_at`
	var lastNameChange interface{}
	if p.LastNameChange != nil {
		lastNameChange = p.LastNameChange.UTC()
	}
	_, err := repo.db.ExecContext(ctx, q, p.UserID, p.Bio, p.Avatar, lastNameChange, p.LoginStreak, p.LastStreakDay, p.UpdatedAt.UTC())
	return errors.Wrap(err, "upserting profile")
}
