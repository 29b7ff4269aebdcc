package user

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

type (
	GetFilter struct {
		ID              string
		Username        string
		Email           string
		UsernameOrEmail string
	}

	Repository interface {
		// CheckUniqueness fails with ErrUsernameExists/ErrEmailExists when another
		// user already holds the given username or email.
		CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Name, Username or Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) (int, error)
	}

	ServiceInterface interface {
		CheckUniqueness(uname, email string, exclUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsername(ctx context.Context, uname string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, ids ...string) error

		SendRegistrationCode(ctx context.Context, data RegistrationRequest) error
		VerifyRegistrationCode(ctx context.Context, data VerifyCode) error
		CompleteRegistration(ctx context.Context, data CompleteRegistration) (User, error)
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		sessions core.SessionStore
		conf     *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, sessions core.SessionStore, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		mailSvc:  mailSvc,
		sessions: sessions,
		conf:     conf,
	}
}

func (svc *Service) CheckUniqueness(uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUniqueness(context.Background(), uname, email, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	isActive := true
	usr := User{
		Name:       nu.Name,
		Username:   nu.Username,
		Email:      nu.Email,
		Phone:      nu.Phone,
		Enrollment: nu.Enrollment,
		Year:       nu.Year,
		Role:       nu.Role,
		IsActive:   &isActive,
		FirstLogin: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if usr.Username == "" {
		uname, err := svc.deriveUsername(ctx, usr.Email)
		if err != nil {
			return User{}, err
		}
		usr.Username = uname
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Bem-vindo(a) ao StudyMate!",
		TemplateName: "welcome",
		TemplateData: struct{ Username string }{usr.Username},
	})
	return usr, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Username: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

// Update applies the non-zero fields of uu on top of the stored user.
func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return User{}, err
	}
	if uu.Name != "" {
		usr.Name = uu.Name
	}
	if uu.Username != "" {
		usr.Username = uu.Username
	}
	if uu.Email != "" {
		usr.Email = uu.Email
	}
	if uu.Phone != "" {
		usr.Phone = uu.Phone
	}
	if uu.Enrollment != "" {
		usr.Enrollment = uu.Enrollment
	}
	if uu.Year != 0 {
		usr.Year = uu.Year
	}
	if uu.Role != "" {
		usr.Role = uu.Role
	}
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, uu.IsActive)
}

// SetLastLogin stamps a successful login and clears the first-login flag.
func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	usr.FirstLogin = false
	usr.UpdatedAt = usr.LastLogin
	return svc.repo.UpdateUser(ctx, usr, nil)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteUsersByID(ctx, ids...)
	return err
}

var unameCleanRegex = regexp.MustCompile(`[^a-z0-9_]`)

// deriveUsername builds a username from the email local-part,
// disambiguating collisions with a numeric suffix (joao, joao2, joao3...).
func (svc *Service) deriveUsername(ctx context.Context, email string) (string, error) {
	base := unameCleanRegex.ReplaceAllString(strings.SplitN(email, "@", 2)[0], "")
	if base == "" {
		base = "user"
	}
	uname := base
	for i := 2; ; i++ {
		err := svc.repo.CheckUniqueness(ctx, uname, "")
		if err == nil {
			return uname, nil
		}
		if errors.Cause(err) != ErrUsernameExists {
			return "", errors.Wrap(err, "checking username uniqueness")
		}
		uname = fmt.Sprintf("%s%d", base, i)
	}
}
