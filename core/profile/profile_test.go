package profile_test

import (
	"context"
	"testing"
	"time"

	"github.com/GrupoTcc462/StudyMate/core"
	"github.com/GrupoTcc462/StudyMate/core/profile"
	"github.com/GrupoTcc462/StudyMate/core/user"
	inmemdb "github.com/GrupoTcc462/StudyMate/storage/database/inmem"
	"github.com/GrupoTcc462/StudyMate/storage/session"
)

type noopMailer struct{}

func (noopMailer) SendMessages(...*core.EmailMessage) {}

func newProfileTestService(t *testing.T) (*profile.Service, user.User) {
	t.Helper()
	db := inmemdb.NewDB()
	conf := &core.Config{TimeZone: time.UTC}
	userSvc := user.NewService(inmemdb.NewUserRepository(db), noopMailer{}, session.NewInmemStore(), conf)

	usr, err := userSvc.Create(context.Background(), user.NewUser{
		Name:     "Ana Souza",
		Email:    "ana.souza@etec.sp.gov.br",
		Password: "s3nh4-f0rte",
		Role:     user.RoleStudent,
		Year:     2,
	})
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	return profile.NewService(inmemdb.NewProfileRepository(db), userSvc, conf), usr
}

func at(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

func TestGet_createsOnFirstAccess(t *testing.T) {
	svc, usr := newProfileTestService(t)

	p, err := svc.Get(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.UserID != usr.ID {
		t.Errorf("UserID = %s; want %s", p.UserID, usr.ID)
	}
	if p.LoginStreak != 0 {
		t.Errorf("LoginStreak = %d; want 0", p.LoginStreak)
	}
}

func TestDaysUntilNameChange(t *testing.T) {
	now := at(2026, 3, 10, 12)
	profile.NowFunc = func() time.Time { return now }
	defer func() { profile.NowFunc = time.Now }()

	tests := []struct {
		name       string
		lastChange time.Time
		canChange  bool
		days       int
	}{
		{name: "changed an hour ago", lastChange: now.Add(-time.Hour), canChange: false, days: 7},
		{name: "three days ago", lastChange: now.AddDate(0, 0, -3), canChange: false, days: 4},
		{name: "six and a half days ago", lastChange: now.Add(-156 * time.Hour), canChange: false, days: 1},
		{name: "exactly seven days ago", lastChange: now.AddDate(0, 0, -7), canChange: true, days: 0},
		{name: "long ago", lastChange: now.AddDate(0, -2, 0), canChange: true, days: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := tt.lastChange
			p := profile.Profile{LastNameChange: &lc}
			if got := p.CanChangeName(); got != tt.canChange {
				t.Errorf("CanChangeName() = %v; want %v", got, tt.canChange)
			}
			if got := p.DaysUntilNameChange(); got != tt.days {
				t.Errorf("DaysUntilNameChange() = %d; want %d", got, tt.days)
			}
		})
	}

	p := profile.Profile{}
	if !p.CanChangeName() || p.DaysUntilNameChange() != 0 {
		t.Error("a profile that never changed names must be allowed to")
	}
}

func TestUpdate_nameChangeCooldown(t *testing.T) {
	now := at(2026, 3, 10, 12)
	profile.NowFunc = func() time.Time { return now }
	defer func() { profile.NowFunc = time.Now }()

	svc, usr := newProfileTestService(t)
	ctx := context.Background()

	p, updated, err := svc.Update(ctx, usr, profile.UpdateProfile{Name: "Ana S. Lima"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "Ana S. Lima" {
		t.Errorf("Name = %q; want %q", updated.Name, "Ana S. Lima")
	}
	if p.LastNameChange == nil || !p.LastNameChange.Equal(now) {
		t.Errorf("LastNameChange = %v; want %v", p.LastNameChange, now)
	}

	// another rename inside the cooldown is rejected
	if _, _, err = svc.Update(ctx, updated, profile.UpdateProfile{Name: "Ana Lima"}); err == nil {
		t.Fatal("Update() accepted a rename inside the cooldown")
	}

	// same name and other fields still go through
	p, _, err = svc.Update(ctx, updated, profile.UpdateProfile{Name: "Ana S. Lima", Bio: "3º DS", Phone: "11 99999-0000"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if p.Bio != "3º DS" {
		t.Errorf("Bio = %q; want %q", p.Bio, "3º DS")
	}

	// after the cooldown the rename succeeds
	profile.NowFunc = func() time.Time { return now.AddDate(0, 0, 7) }
	if _, updated, err = svc.Update(ctx, updated, profile.UpdateProfile{Name: "Ana Lima"}); err != nil {
		t.Fatalf("Update() after cooldown error = %v", err)
	}
	if updated.Name != "Ana Lima" {
		t.Errorf("Name = %q; want %q", updated.Name, "Ana Lima")
	}
}

func TestTouchLogin_streak(t *testing.T) {
	defer func() { profile.NowFunc = time.Now }()

	svc, usr := newProfileTestService(t)
	ctx := context.Background()

	touch := func(t *testing.T, day time.Time, wantStreak int) {
		t.Helper()
		profile.NowFunc = func() time.Time { return day }
		p, err := svc.TouchLogin(ctx, usr)
		if err != nil {
			t.Fatalf("TouchLogin() error = %v", err)
		}
		if p.LoginStreak != wantStreak {
			t.Errorf("LoginStreak = %d; want %d", p.LoginStreak, wantStreak)
		}
	}

	touch(t, at(2026, 3, 10, 8), 1)
	// later the same day is a no-op
	touch(t, at(2026, 3, 10, 22), 1)
	// consecutive days increment
	touch(t, at(2026, 3, 11, 7), 2)
	touch(t, at(2026, 3, 12, 23), 3)
	// a gap resets to 1
	touch(t, at(2026, 3, 15, 9), 1)
}

func TestTouchLogin_calendarDayNotWindow(t *testing.T) {
	defer func() { profile.NowFunc = time.Now }()

	svc, usr := newProfileTestService(t)
	ctx := context.Background()

	// 23:50 and 00:10 are 20 minutes apart but on consecutive calendar days
	profile.NowFunc = func() time.Time { return at(2026, 3, 10, 23).Add(50 * time.Minute) }
	if _, err := svc.TouchLogin(ctx, usr); err != nil {
		t.Fatalf("TouchLogin() error = %v", err)
	}
	profile.NowFunc = func() time.Time { return at(2026, 3, 11, 0).Add(10 * time.Minute) }
	p, err := svc.TouchLogin(ctx, usr)
	if err != nil {
		t.Fatalf("TouchLogin() error = %v", err)
	}
	if p.LoginStreak != 2 {
		t.Errorf("LoginStreak = %d; want 2", p.LoginStreak)
	}
}
