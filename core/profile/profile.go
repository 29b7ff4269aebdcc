package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core"
	"github.com/GrupoTcc462/StudyMate/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("profile not found")
)

// NameChangeCooldown is how long a user waits between display-name changes.
const NameChangeCooldown = 7 * 24 * time.Hour

// NowFunc returns the current time; tests may swap it out.
var NowFunc = time.Now

type (
	// Profile carries the per-user editable fields and engagement counters
	// that do not belong on the account record itself.
	Profile struct {
		UserID         string     `json:"user_id"`
		Bio            string     `json:"bio,omitempty"`
		Avatar         string     `json:"avatar,omitempty"` // stored filename
		LastNameChange *time.Time `json:"last_name_change,omitempty"` // UTC
		LoginStreak    int        `json:"login_streak"`
		LastStreakDay  string     `json:"-"` // YYYY-MM-DD in the school timezone
		UpdatedAt      time.Time  `json:"updated_at"` // UTC
	}

	UpdateProfile struct {
		Name   string `json:"name" validate:"omitempty,min=2,max=100"`
		Phone  string `json:"phone" validate:"omitempty,max=20"`
		Bio    string `json:"bio" validate:"max=300"`
		Avatar string `json:"-"`
	}

	Repository interface {
		GetProfile(ctx context.Context, userID string) (Profile, error)
		// UpsertProfile creates the row on first write.
		UpsertProfile(ctx context.Context, p Profile) error
	}

	Service struct {
		repo    Repository
		userSvc user.ServiceInterface
		conf    *core.Config
	}
)

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.Name = core.CleanString(up.Name)
	up.Phone = core.CleanString(up.Phone)
	up.Bio = core.CleanString(up.Bio)
	return validate.Struct(up)
}

func NewService(repo Repository, userSvc user.ServiceInterface, conf *core.Config) *Service {
	return &Service{repo: repo, userSvc: userSvc, conf: conf}
}

// CanChangeName reports whether the cooldown since the last name change
// has elapsed.
func (p *Profile) CanChangeName() bool {
	return p.LastNameChange == nil || NowFunc().UTC().Sub(*p.LastNameChange) >= NameChangeCooldown
}

// DaysUntilNameChange returns how many whole days remain before the name
// can change again; 0 when allowed now.
func (p *Profile) DaysUntilNameChange() int {
	if p.LastNameChange == nil {
		return 0
	}
	remaining := NameChangeCooldown - NowFunc().UTC().Sub(*p.LastNameChange)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// Get returns the user's profile, creating an empty one on first access.
func (svc *Service) Get(ctx context.Context, userID string) (Profile, error) {
	p, err := svc.repo.GetProfile(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		p = Profile{UserID: userID, UpdatedAt: NowFunc().UTC()}
		if err = svc.repo.UpsertProfile(ctx, p); err != nil {
			return Profile{}, err
		}
		return p, nil
	}
	return p, err
}

// Update applies the edits, enforcing the name-change cooldown.
func (svc *Service) Update(ctx context.Context, usr user.User, up UpdateProfile) (Profile, user.User, error) {
	p, err := svc.Get(ctx, usr.ID)
	if err != nil {
		return Profile{}, usr, err
	}

	now := NowFunc().UTC()
	if up.Name != "" && up.Name != usr.Name {
		if !p.CanChangeName() {
			return Profile{}, usr, core.NewFieldError("name",
				fmt.Sprintf("you can change your name again in %d day(s)", p.DaysUntilNameChange()))
		}
		usr.Name = up.Name
		p.LastNameChange = &now
	}
	if up.Phone != "" {
		usr.Phone = up.Phone
	}
	if up.Bio != "" {
		p.Bio = up.Bio
	}
	if up.Avatar != "" {
		p.Avatar = up.Avatar
	}

	if usr, err = svc.userSvc.Update(ctx, usr.ID, user.UpdateUser{Name: usr.Name, Phone: usr.Phone}); err != nil {
		return Profile{}, usr, err
	}
	p.UpdatedAt = now
	if err = svc.repo.UpsertProfile(ctx, p); err != nil {
		return Profile{}, usr, err
	}
	return p, usr, nil
}

// TouchLogin advances the login streak once per calendar day in the school
// timezone: consecutive days increment, gaps reset to 1, same day is a no-op.
// Also stamps the account's last login and clears the first-login flag.
func (svc *Service) TouchLogin(ctx context.Context, usr user.User) (Profile, error) {
	p, err := svc.Get(ctx, usr.ID)
	if err != nil {
		return Profile{}, err
	}

	now := NowFunc().In(svc.conf.TimeZone)
	today := now.Format("2006-01-02")
	switch p.LastStreakDay {
	case today:
		// already counted today
	case now.AddDate(0, 0, -1).Format("2006-01-02"):
		p.LoginStreak++
		p.LastStreakDay = today
	default:
		p.LoginStreak = 1
		p.LastStreakDay = today
	}
	p.UpdatedAt = now.UTC()
	if err = svc.repo.UpsertProfile(ctx, p); err != nil {
		return Profile{}, err
	}

	if _, err = svc.userSvc.SetLastLogin(ctx, usr); err != nil {
		return Profile{}, err
	}
	return p, nil
}
