package user_test

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/GrupoTcc462/StudyMate/core"
	"github.com/GrupoTcc462/StudyMate/core/user"
	inmemdb "github.com/GrupoTcc462/StudyMate/storage/database/inmem"
	"github.com/GrupoTcc462/StudyMate/storage/session"
)

type mailRecorder struct {
	messages []*core.EmailMessage
}

func (r *mailRecorder) SendMessages(messages ...*core.EmailMessage) {
	r.messages = append(r.messages, messages...)
}

func (r *mailRecorder) lastCode(t *testing.T) string {
	t.Helper()
	if len(r.messages) == 0 {
		t.Fatal("no email sent")
	}
	data, ok := r.messages[len(r.messages)-1].TemplateData.(struct {
		Code          string
		ExpiryMinutes int
	})
	if !ok {
		t.Fatalf("unexpected template data %T", r.messages[len(r.messages)-1].TemplateData)
	}
	return data.Code
}

func testConfig() *core.Config {
	return &core.Config{
		AppName:          "StudyMate",
		SecretKey:        "test-secret",
		TestMode:         true,
		TimeZone:         time.UTC,
		DefaultFromEmail: mail.Address{Name: "StudyMate", Address: "noreply@test.test"},
		Registration: core.RegistrationConfig{
			EmailDomain: "etec.sp.gov.br",
			CodeExpiry:  30 * time.Minute,
			MaxAttempts: 5,
		},
	}
}

func newRegTestService() (*user.Service, *mailRecorder, *session.InmemStore) {
	mailRec := new(mailRecorder)
	sessions := session.NewInmemStore()
	svc := user.NewService(inmemdb.NewUserRepository(inmemdb.NewDB()), mailRec, sessions, testConfig())
	return svc, mailRec, sessions
}

func TestSendRegistrationCode(t *testing.T) {
	svc, mailRec, _ := newRegTestService()
	ctx := context.Background()

	if err := svc.SendRegistrationCode(ctx, user.RegistrationRequest{Email: "ana@gmail.com", Role: user.RoleStudent}); err == nil {
		t.Error("SendRegistrationCode() accepted a non-institutional email")
	}

	if err := svc.SendRegistrationCode(ctx, user.RegistrationRequest{Email: "ana@etec.sp.gov.br", Role: user.RoleStudent}); err != nil {
		t.Fatalf("SendRegistrationCode() error = %v", err)
	}
	code := mailRec.lastCode(t)
	if len(code) != 6 {
		t.Errorf("code = %q; want 6 digits", code)
	}

	// a registered email cannot start a new registration
	if err := svc.VerifyRegistrationCode(ctx, user.VerifyCode{Email: "ana@etec.sp.gov.br", Code: code}); err != nil {
		t.Fatalf("VerifyRegistrationCode() error = %v", err)
	}
	if _, err := svc.CompleteRegistration(ctx, user.CompleteRegistration{
		Email: "ana@etec.sp.gov.br", Password: "Sup3r$ecret!", PasswordConfirm: "Sup3r$ecret!",
	}); err != nil {
		t.Fatalf("CompleteRegistration() error = %v", err)
	}
	err := svc.SendRegistrationCode(ctx, user.RegistrationRequest{Email: "ana@etec.sp.gov.br", Role: user.RoleStudent})
	if err == nil || err.Error() != user.ErrEmailExists.Error() {
		t.Errorf("SendRegistrationCode() error = %v; want %v", err, user.ErrEmailExists)
	}
}

func TestVerifyRegistrationCode_attempts(t *testing.T) {
	svc, mailRec, _ := newRegTestService()
	ctx := context.Background()
	email := "bruno@etec.sp.gov.br"

	if err := svc.SendRegistrationCode(ctx, user.RegistrationRequest{Email: email, Role: user.RoleStudent}); err != nil {
		t.Fatalf("SendRegistrationCode() error = %v", err)
	}
	code := mailRec.lastCode(t)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	// four wrong attempts keep the session alive
	for i := 0; i < 4; i++ {
		err := svc.VerifyRegistrationCode(ctx, user.VerifyCode{Email: email, Code: wrong})
		if err == nil || err.Error() != user.ErrCodeMismatch.Error() {
			t.Fatalf("attempt %d: error = %v; want %v", i+1, err, user.ErrCodeMismatch)
		}
	}

	// the fifth kills it
	err := svc.VerifyRegistrationCode(ctx, user.VerifyCode{Email: email, Code: wrong})
	if err == nil || err.Error() != user.ErrTooManyAttempts.Error() {
		t.Fatalf("attempt 5: error = %v; want %v", err, user.ErrTooManyAttempts)
	}

	// even the correct code fails now; a new one must be requested
	err = svc.VerifyRegistrationCode(ctx, user.VerifyCode{Email: email, Code: code})
	if err == nil || err.Error() != user.ErrSessionExpired.Error() {
		t.Errorf("after lockout: error = %v; want %v", err, user.ErrSessionExpired)
	}
}

func TestVerifyRegistrationCode_expiry(t *testing.T) {
	svc, mailRec, _ := newRegTestService()
	ctx := context.Background()
	email := "carla@etec.sp.gov.br"

	if err := svc.SendRegistrationCode(ctx, user.RegistrationRequest{Email: email, Role: user.RoleTeacher}); err != nil {
		t.Fatalf("SendRegistrationCode() error = %v", err)
	}
	code := mailRec.lastCode(t)

	user.NowFunc = func() time.Time { return time.Now().Add(31 * time.Minute) }
	defer func() { user.NowFunc = time.Now }()

	err := svc.VerifyRegistrationCode(ctx, user.VerifyCode{Email: email, Code: code})
	if err == nil || err.Error() != user.ErrCodeExpired.Error() {
		t.Errorf("error = %v; want %v", err, user.ErrCodeExpired)
	}
}

func TestCompleteRegistration(t *testing.T) {
	svc, mailRec, _ := newRegTestService()
	ctx := context.Background()
	email := "diego.santos@etec.sp.gov.br"

	// completing before verifying fails
	if err := svc.SendRegistrationCode(ctx, user.RegistrationRequest{Email: email, Role: user.RoleStudent}); err != nil {
		t.Fatalf("SendRegistrationCode() error = %v", err)
	}
	_, err := svc.CompleteRegistration(ctx, user.CompleteRegistration{
		Email: email, Password: "Sup3r$ecret!", PasswordConfirm: "Sup3r$ecret!",
	})
	if err == nil || err.Error() != user.ErrNotVerified.Error() {
		t.Fatalf("error = %v; want %v", err, user.ErrNotVerified)
	}

	code := mailRec.lastCode(t)
	if err := svc.VerifyRegistrationCode(ctx, user.VerifyCode{Email: email, Code: code}); err != nil {
		t.Fatalf("VerifyRegistrationCode() error = %v", err)
	}

	usr, err := svc.CompleteRegistration(ctx, user.CompleteRegistration{
		Email: email, Password: "Sup3r$ecret!", PasswordConfirm: "Sup3r$ecret!", Year: 2,
	})
	if err != nil {
		t.Fatalf("CompleteRegistration() error = %v", err)
	}
	if usr.Username != "diegosantos" {
		t.Errorf("Username = %q; want %q", usr.Username, "diegosantos")
	}
	if usr.Role != user.RoleStudent {
		t.Errorf("Role = %q; want %q", usr.Role, user.RoleStudent)
	}
	if usr.Year != 2 {
		t.Errorf("Year = %d; want 2", usr.Year)
	}
	if !usr.FirstLogin {
		t.Error("FirstLogin = false; want true")
	}

	// the session is gone; a second completion cannot reuse it
	_, err = svc.CompleteRegistration(ctx, user.CompleteRegistration{
		Email: email, Password: "Sup3r$ecret!", PasswordConfirm: "Sup3r$ecret!",
	})
	if err == nil || err.Error() != user.ErrSessionExpired.Error() {
		t.Errorf("error = %v; want %v", err, user.ErrSessionExpired)
	}
}
