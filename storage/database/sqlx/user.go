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

	"github.com/GrupoTcc462/StudyMate/core"
	"github.com/GrupoTcc462/StudyMate/core/user"
)

type userRow struct {
	ID           string       `db:"id"`
	Name         string       `db:"name"`
	Username     string       `db:"username"`
	Email        string       `db:"email"`
	Phone        string       `db:"phone"`
	Enrollment   string       `db:"enrollment"`
	Year         int          `db:"year"`
	Role         string       `db:"role"`
	IsActive     bool         `db:"is_active"`
	FirstLogin   bool         `db:"first_login"`
	PasswordHash []byte       `db:"password_hash"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
	LastLogin    sql.NullTime `db:"last_login"`
}

func (r userRow) model() user.User {
	isActive := r.IsActive
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		Phone:        r.Phone,
		Enrollment:   r.Enrollment,
		Year:         r.Year,
		Role:         user.Role(r.Role),
		IsActive:     &isActive,
		FirstLogin:   r.FirstLogin,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

func newUserRow(usr user.User) userRow {
	r := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		Phone:        usr.Phone,
		Enrollment:   usr.Enrollment,
		Year:         usr.Year,
		Role:         string(usr.Role),
		IsActive:     usr.IsActive == nil || *usr.IsActive,
		FirstLogin:   usr.FirstLogin,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
	}
	if !usr.LastLogin.IsZero() {
		r.LastLogin = sql.NullTime{Time: usr.LastLogin.UTC(), Valid: true}
	}
	return r
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// uniquenessQuery builds the duplicate check, expanding the optional id
// exclusion list. The expanded form uses ? bindvars throughout so sqlx.In
// can consume every argument; the caller must Rebind it.
func uniquenessQuery(username, email string, excludedIDs []string) (string, []interface{}, error) {
	if len(excludedIDs) == 0 {
		q := `SELECT username, email FROM "user" WHERE (username = $1 OR email = $2)`
		return q, []interface{}{username, email}, nil
	}
	return sqlx.In(`SELECT username, email FROM "user" WHERE (username = ? OR email = ?) AND id NOT IN (?)`, username, email, excludedIDs)
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	ids := make([]string, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		ids = append(ids, u.ID)
	}
	q, args, err := uniquenessQuery(username, email, ids)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}
	if len(ids) > 0 {
		q = repo.db.Rebind(q)
	}

	var rows []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, r := range rows {
		if r.Username == username {
			return user.ErrUsernameExists
		}
		if r.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	r := newUserRow(usr)
	q := `
INSERT INTO "user" (id, name, username, email, phone, enrollment, year, role, is_active, first_login, password_hash, created_at, updated_at)
VALUES (:id, :name, :username, :email, :phone, :enrollment, :year, :role, :is_active, :first_login, :password_hash, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, r); err != nil {
		switch {
		case isUniqueViolation(err, "user_username_key"):
			return user.User{}, user.ErrUsernameExists
		case isUniqueViolation(err, "user_email_key"):
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return r.model(), nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var where string
	var args []interface{}
	switch {
	case filter.ID != "":
		where, args = "id = $1", []interface{}{filter.ID}
	case filter.Username != "":
		where, args = "username = $1", []interface{}{filter.Username}
	case filter.Email != "":
		where, args = "LOWER(email) = LOWER($1)", []interface{}{filter.Email}
	case filter.UsernameOrEmail != "":
		where, args = "(username = $1 OR LOWER(email) = LOWER($1))", []interface{}{filter.UsernameOrEmail}
	default:
		return user.User{}, user.ErrNotFound
	}

	var r userRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM "user" WHERE `+where, args...); err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "getting user")
	}
	return r.model(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	q := `SELECT * FROM "user"`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf("(name ILIKE %[1]s OR username ILIKE %[1]s OR email ILIKE %[1]s)", p))
		}
		if filter.Role != "" {
			conds = append(conds, "role = "+arg(string(filter.Role)))
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = "+arg(*filter.IsActive))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, "created_at >= "+arg(filter.CreatedFrom.UTC()))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, "created_at <= "+arg(filter.CreatedTo.UTC()))
		}
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		ords := make([]string, 0, len(ordering))
		for _, o := range ordering {
			ords = append(ords, o.String())
		}
		q += " ORDER BY " + strings.Join(ords, ", ")
	} else {
		q += " ORDER BY created_at DESC"
	}
	if filter != nil && filter.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.model())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	if isActive != nil {
		usr.IsActive = isActive
	}
	usr.UpdatedAt = time.Now().UTC()
	r := newUserRow(usr)
	q := `
UPDATE "user"
SET name = :name, username = :username, email = :email, phone = :phone, enrollment = :enrollment,
    year = :year, role = :role, is_active = :is_active, first_login = :first_login,
    password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, r)
	if err != nil {
		switch {
		case isUniqueViolation(err, "user_username_key"):
			return user.User{}, user.ErrUsernameExists
		case isUniqueViolation(err, "user_email_key"):
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return r.model(), nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
