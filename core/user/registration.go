package user

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core"
)

// Registration is a three-step flow backed by the session store:
// send a verification code to an institutional email, confirm the code,
// then create the account. Each step is a full HTTP round trip; the state
// lives server-side under the email's session key and expires with the code.

var (
	ErrSessionExpired  = errors.New("registration session expired, request a new code")
	ErrCodeExpired     = errors.New("verification code expired, request a new code")
	ErrCodeMismatch    = errors.New("incorrect verification code")
	ErrTooManyAttempts = errors.New("too many attempts, request a new code")
	ErrEmailDomain     = errors.New("email must belong to the institution")
	ErrNotVerified     = errors.New("email not verified")

	salt    = []byte("studymate.core.user.registration")
	NowFunc = time.Now // mockable
)

type registrationStep int

const (
	stepNone registrationStep = iota
	stepEmailSent
	stepCodeVerified
)

// registrationState is the session-backed payload for one in-flight registration.
// All fields must be present and unexpired before a step may advance.
type registrationState struct {
	Email     string           `json:"email"`
	Role      Role             `json:"role"`
	CodeHash  string           `json:"code_hash"`
	ExpiresAt time.Time        `json:"expires_at"`
	Attempts  int              `json:"attempts"`
	Step      registrationStep `json:"step"`
}

type (
	RegistrationRequest struct {
		Email string `json:"email" validate:"required,email"`
		Role  Role   `json:"role" validate:"required,role"`
	}

	VerifyCode struct {
		Email string `json:"email" validate:"required,email"`
		Code  string `json:"code" validate:"required,len=6,numeric"`
	}

	CompleteRegistration struct {
		Email           string `json:"email" validate:"required,email"`
		Password        string `json:"password" validate:"required"`
		PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
		Enrollment      string `json:"enrollment" validate:"omitempty,max=20"`
		Year            int    `json:"year" validate:"omitempty,min=1,max=3"`
	}
)

func (rr *RegistrationRequest) Validate(validate *validator.Validate) error {
	rr.Email = core.CleanString(rr.Email, true /* lower */)
	return validate.Struct(rr)
}

func (vc *VerifyCode) Validate(validate *validator.Validate) error {
	vc.Email = core.CleanString(vc.Email, true /* lower */)
	vc.Code = core.CleanString(vc.Code)
	return validate.Struct(vc)
}

func (cr *CompleteRegistration) Validate(validate *validator.Validate) error {
	cr.Email = core.CleanString(cr.Email, true /* lower */)
	return validate.Struct(cr)
}

func regSessionKey(email string) string { return "regsession:" + email }

// SendRegistrationCode starts (or restarts) a registration: any prior state
// for the email is overwritten.
func (svc *Service) SendRegistrationCode(ctx context.Context, data RegistrationRequest) error {
	if !strings.HasSuffix(data.Email, "@"+svc.conf.Registration.EmailDomain) {
		return core.NewValidationError(ErrEmailDomain, core.FieldError{Field: "email", Error: ErrEmailDomain.Error()})
	}
	if _, err := svc.GetByEmail(ctx, data.Email); err == nil {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return errors.Wrap(err, "checking email")
	}

	code, err := generateCode()
	if err != nil {
		return errors.Wrap(err, "generating code")
	}

	state := registrationState{
		Email:     data.Email,
		Role:      data.Role,
		CodeHash:  svc.hashCode(data.Email, code),
		ExpiresAt: NowFunc().UTC().Add(svc.conf.Registration.CodeExpiry),
		Step:      stepEmailSent,
	}
	if err = svc.saveRegState(ctx, state); err != nil {
		return err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: data.Email}},
		Subject:      "Seu código de verificação",
		TemplateName: "verification-code",
		TemplateData: struct {
			Code          string
			ExpiryMinutes int
		}{code, int(svc.conf.Registration.CodeExpiry.Minutes())},
	})
	return nil
}

// VerifyRegistrationCode advances the flow to the code-verified step.
// The 5th wrong code invalidates the session: a later correct code still fails.
func (svc *Service) VerifyRegistrationCode(ctx context.Context, data VerifyCode) error {
	state, err := svc.loadRegState(ctx, data.Email)
	if err != nil {
		return err
	}
	if state.Step < stepEmailSent {
		return core.NewValidationError(ErrSessionExpired)
	}
	if NowFunc().UTC().After(state.ExpiresAt) {
		_ = svc.sessions.Delete(ctx, regSessionKey(data.Email))
		return core.NewValidationError(ErrCodeExpired)
	}

	if !svc.codeMatches(state, data.Code) {
		state.Attempts++
		if state.Attempts >= svc.conf.Registration.MaxAttempts {
			_ = svc.sessions.Delete(ctx, regSessionKey(data.Email))
			return core.NewValidationError(ErrTooManyAttempts)
		}
		if err = svc.saveRegState(ctx, state); err != nil {
			return err
		}
		return core.NewValidationError(ErrCodeMismatch)
	}

	state.Step = stepCodeVerified
	return svc.saveRegState(ctx, state)
}

// CompleteRegistration creates the account for a code-verified email and
// clears the registration session.
func (svc *Service) CompleteRegistration(ctx context.Context, data CompleteRegistration) (User, error) {
	state, err := svc.loadRegState(ctx, data.Email)
	if err != nil {
		return User{}, err
	}
	if state.Step != stepCodeVerified {
		return User{}, core.NewValidationError(ErrNotVerified)
	}

	usr, err := svc.Create(ctx, NewUser{
		Name:            usernameFromEmail(data.Email),
		Email:           data.Email,
		Enrollment:      data.Enrollment,
		Year:            data.Year,
		Role:            state.Role,
		Password:        data.Password,
		PasswordConfirm: data.PasswordConfirm,
	})
	if err != nil {
		return User{}, err
	}

	_ = svc.sessions.Delete(ctx, regSessionKey(data.Email))
	return usr, nil
}

func (svc *Service) loadRegState(ctx context.Context, email string) (registrationState, error) {
	raw, err := svc.sessions.Get(ctx, regSessionKey(email))
	if err != nil {
		if errors.Cause(err) == core.ErrKeyNotFound {
			return registrationState{}, core.NewValidationError(ErrSessionExpired)
		}
		return registrationState{}, errors.Wrap(err, "loading registration session")
	}
	var state registrationState
	if err = json.Unmarshal(raw, &state); err != nil {
		return registrationState{}, errors.Wrap(err, "decoding registration session")
	}
	if state.Email != email {
		return registrationState{}, core.NewValidationError(ErrSessionExpired)
	}
	return state, nil
}

func (svc *Service) saveRegState(ctx context.Context, state registrationState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "encoding registration session")
	}
	ttl := state.ExpiresAt.Sub(NowFunc().UTC())
	if err = svc.sessions.Set(ctx, regSessionKey(state.Email), raw, ttl); err != nil {
		return errors.Wrap(err, "saving registration session")
	}
	return nil
}

// hashCode signs the code with the app secret so the stored session never
// holds the plain code.
func (svc *Service) hashCode(email, code string) string {
	key := sha256.Sum256(append(salt, svc.conf.SecretKey...))
	h := hmac.New(sha256.New, key[:])
	h.Write([]byte(email + ":" + code))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (svc *Service) codeMatches(state registrationState, code string) bool {
	expected := svc.hashCode(state.Email, code)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(state.CodeHash)) == 1
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func usernameFromEmail(email string) string {
	return strings.SplitN(email, "@", 2)[0]
}
