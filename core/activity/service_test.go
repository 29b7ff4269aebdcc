package activity_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/GrupoTcc462/StudyMate/core/activity"
	"github.com/GrupoTcc462/StudyMate/core/user"
	inmemdb "github.com/GrupoTcc462/StudyMate/storage/database/inmem"
)

var (
	teacher = user.User{ID: "prof", Name: "Prof. Carlos", Role: user.RoleTeacher}
	year2   = user.User{ID: "stu2", Name: "Ana", Role: user.RoleStudent, Year: 2}
)

func newActivityTestService(t *testing.T) *activity.Service {
	t.Helper()
	return activity.NewService(inmemdb.NewActivityRepository(inmemdb.NewDB()))
}

func mustCreate(t *testing.T, svc *activity.Service, na activity.NewActivity) activity.Activity {
	t.Helper()
	a, err := svc.Create(context.Background(), teacher, na)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return a
}

func TestCreate_noticesRejectSubmissions(t *testing.T) {
	svc := newActivityTestService(t)

	for _, kind := range []activity.Kind{activity.KindExamNotice, activity.KindSimpleNotice} {
		a := mustCreate(t, svc, activity.NewActivity{
			Title:            "Aviso",
			Kind:             kind,
			Audience:         activity.Audience{All: true},
			AllowsSubmission: true,
		})
		if a.AllowsSubmission {
			t.Errorf("%s: AllowsSubmission = true; notices never accept submissions", kind)
		}
	}

	a := mustCreate(t, svc, activity.NewActivity{
		Title:            "Trabalho",
		Kind:             activity.KindAssignment,
		Audience:         activity.Audience{All: true},
		AllowsSubmission: true,
	})
	if !a.AllowsSubmission {
		t.Error("assignment lost AllowsSubmission")
	}
}

func TestListForStudent_audience(t *testing.T) {
	svc := newActivityTestService(t)
	ctx := context.Background()

	mustCreate(t, svc, activity.NewActivity{Title: "Todos", Kind: activity.KindSimpleNotice, Audience: activity.Audience{All: true}})
	mustCreate(t, svc, activity.NewActivity{Title: "Só 1º ano", Kind: activity.KindSimpleNotice, Audience: activity.Audience{Year1: true}})
	mustCreate(t, svc, activity.NewActivity{Title: "2º e 3º", Kind: activity.KindSimpleNotice, Audience: activity.Audience{Year2: true, Year3: true}})

	tests := []struct {
		name    string
		student user.User
		want    int
	}{
		{name: "second year", student: year2, want: 2},
		{name: "first year", student: user.User{ID: "s1", Role: user.RoleStudent, Year: 1}, want: 2},
		{name: "unknown year sees everything", student: user.User{ID: "s0", Role: user.RoleStudent}, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acts, err := svc.ListForStudent(ctx, tt.student, activity.QueryFilter{})
			if err != nil {
				t.Fatalf("ListForStudent() error = %v", err)
			}
			if len(acts) != tt.want {
				t.Errorf("len = %d; want %d", len(acts), tt.want)
			}
		})
	}
}

func TestListForStudent_statusFilters(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	activity.NowFunc = func() time.Time { return now }
	defer func() { activity.NowFunc = time.Now }()

	svc := newActivityTestService(t)
	ctx := context.Background()

	ahead := now.Add(48 * time.Hour)
	behind := now.Add(-time.Hour)

	open := mustCreate(t, svc, activity.NewActivity{Title: "Aberta", Kind: activity.KindAssignment, Audience: activity.Audience{All: true}, AllowsSubmission: true, Deadline: &ahead})
	done := mustCreate(t, svc, activity.NewActivity{Title: "Enviada", Kind: activity.KindAssignment, Audience: activity.Audience{All: true}, AllowsSubmission: true, Deadline: &ahead})
	mustCreate(t, svc, activity.NewActivity{Title: "Encerrada", Kind: activity.KindAssignment, Audience: activity.Audience{All: true}, AllowsSubmission: true, Deadline: &behind})

	if _, err := svc.Submit(ctx, done.ID, year2, activity.NewSubmission{File: "t.pdf", FileName: "trabalho.pdf"}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	tests := []struct {
		status activity.StatusFilter
		want   []string
	}{
		{status: activity.FilterOpen, want: []string{open.ID}},
		{status: activity.FilterSubmitted, want: []string{done.ID}},
		{status: activity.FilterPending, want: []string{open.ID}},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			acts, err := svc.ListForStudent(ctx, year2, activity.QueryFilter{Status: tt.status})
			if err != nil {
				t.Fatalf("ListForStudent() error = %v", err)
			}
			if len(acts) != len(tt.want) {
				t.Fatalf("len = %d; want %d", len(acts), len(tt.want))
			}
			for i, id := range tt.want {
				if acts[i].ID != id {
					t.Errorf("acts[%d].ID = %s; want %s", i, acts[i].ID, id)
				}
			}
		})
	}

	if _, err := svc.ListForStudent(ctx, year2, activity.QueryFilter{Status: "bogus"}); err == nil {
		t.Error("ListForStudent() accepted an invalid status filter")
	}
}

func TestRecordView_oncePerStudent(t *testing.T) {
	svc := newActivityTestService(t)
	ctx := context.Background()
	a := mustCreate(t, svc, activity.NewActivity{Title: "Aviso", Kind: activity.KindSimpleNotice, Audience: activity.Audience{All: true}})

	if views, err := svc.RecordView(ctx, a.ID, year2.ID); err != nil || views != 1 {
		t.Errorf("RecordView() = %d, %v; want 1, nil", views, err)
	}
	if views, err := svc.RecordView(ctx, a.ID, year2.ID); err != nil || views != 1 {
		t.Errorf("repeat RecordView() = %d, %v; want 1, nil", views, err)
	}
	if views, err := svc.RecordView(ctx, a.ID, "stu3"); err != nil || views != 2 {
		t.Errorf("RecordView() = %d, %v; want 2, nil", views, err)
	}
}

func TestSubmit(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	activity.NowFunc = func() time.Time { return now }
	defer func() { activity.NowFunc = time.Now }()

	svc := newActivityTestService(t)
	ctx := context.Background()
	deadline := now.Add(24 * time.Hour)
	a := mustCreate(t, svc, activity.NewActivity{Title: "Trabalho", Kind: activity.KindAssignment, Audience: activity.Audience{All: true}, AllowsSubmission: true, Deadline: &deadline})

	notice := mustCreate(t, svc, activity.NewActivity{Title: "Aviso", Kind: activity.KindSimpleNotice, Audience: activity.Audience{All: true}})
	if _, err := svc.Submit(ctx, notice.ID, year2, activity.NewSubmission{File: "t.pdf"}); err != activity.ErrNoSubmissions {
		t.Errorf("Submit() error = %v; want %v", err, activity.ErrNoSubmissions)
	}

	sub, err := svc.Submit(ctx, a.ID, year2, activity.NewSubmission{File: "t.pdf", FileName: "trabalho.pdf", Comment: "segue anexo"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if sub.Status != activity.StatusSubmitted {
		t.Errorf("Status = %s; want %s", sub.Status, activity.StatusSubmitted)
	}
	if !sub.SubmittedAt.Equal(now) {
		t.Errorf("SubmittedAt = %v; want %v", sub.SubmittedAt, now)
	}

	if _, err = svc.Submit(ctx, a.ID, year2, activity.NewSubmission{File: "t2.pdf"}); err != activity.ErrAlreadySubmitted {
		t.Errorf("Submit() error = %v; want %v", err, activity.ErrAlreadySubmitted)
	}

	// past the deadline
	activity.NowFunc = func() time.Time { return deadline.Add(time.Minute) }
	other := user.User{ID: "stu3", Role: user.RoleStudent, Year: 2}
	if _, err = svc.Submit(ctx, a.ID, other, activity.NewSubmission{File: "t.pdf"}); err != activity.ErrDeadlinePassed {
		t.Errorf("Submit() error = %v; want %v", err, activity.ErrDeadlinePassed)
	}
}

func TestGrade(t *testing.T) {
	svc := newActivityTestService(t)
	ctx := context.Background()
	a := mustCreate(t, svc, activity.NewActivity{Title: "Trabalho", Kind: activity.KindAssignment, Audience: activity.Audience{All: true}, AllowsSubmission: true})
	sub, err := svc.Submit(ctx, a.ID, year2, activity.NewSubmission{File: "t.pdf"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	other := user.User{ID: "prof2", Role: user.RoleTeacher}
	if _, err = svc.Grade(ctx, sub.ID, other, activity.GradeSubmission{Grade: 8}); err != activity.ErrNotAuthor {
		t.Errorf("Grade() error = %v; want %v", err, activity.ErrNotAuthor)
	}

	graded, err := svc.Grade(ctx, sub.ID, teacher, activity.GradeSubmission{Grade: 8.5, Feedback: "bom trabalho"})
	if err != nil {
		t.Fatalf("Grade() error = %v", err)
	}
	if graded.Status != activity.StatusGraded {
		t.Errorf("Status = %s; want %s", graded.Status, activity.StatusGraded)
	}
	if graded.Grade == nil || *graded.Grade != 8.5 {
		t.Errorf("Grade = %v; want 8.5", graded.Grade)
	}
	if graded.GradedAt == nil {
		t.Error("GradedAt is nil")
	}

	// admins may grade anyone's activity
	admin := user.User{ID: "adm", Role: user.RoleAdmin}
	if _, err = svc.Grade(ctx, sub.ID, admin, activity.GradeSubmission{Grade: 9}); err != nil {
		t.Errorf("Grade() as admin error = %v", err)
	}
}

func TestGetSubmission_authorization(t *testing.T) {
	svc := newActivityTestService(t)
	ctx := context.Background()
	a := mustCreate(t, svc, activity.NewActivity{Title: "Trabalho", Kind: activity.KindAssignment, Audience: activity.Audience{All: true}, AllowsSubmission: true})
	sub, err := svc.Submit(ctx, a.ID, year2, activity.NewSubmission{File: "t.pdf"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	tests := []struct {
		name   string
		viewer user.User
		want   error
	}{
		{name: "owner", viewer: year2, want: nil},
		{name: "author", viewer: teacher, want: nil},
		{name: "admin", viewer: user.User{ID: "adm", Role: user.RoleAdmin}, want: nil},
		{name: "other student", viewer: user.User{ID: "stu3", Role: user.RoleStudent}, want: activity.ErrNotAuthor},
		{name: "other teacher", viewer: user.User{ID: "prof2", Role: user.RoleTeacher}, want: activity.ErrNotAuthor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.GetSubmission(ctx, sub.ID, tt.viewer); err != tt.want {
				t.Errorf("GetSubmission() error = %v; want %v", err, tt.want)
			}
		})
	}
}

func TestToggleSave(t *testing.T) {
	svc := newActivityTestService(t)
	ctx := context.Background()
	a := mustCreate(t, svc, activity.NewActivity{Title: "Aviso", Kind: activity.KindSimpleNotice, Audience: activity.Audience{All: true}})

	if saved, err := svc.ToggleSave(ctx, a.ID, year2.ID); err != nil || !saved {
		t.Errorf("ToggleSave() = %v, %v; want true, nil", saved, err)
	}
	if saved, err := svc.ToggleSave(ctx, a.ID, year2.ID); err != nil || saved {
		t.Errorf("ToggleSave() = %v, %v; want false, nil", saved, err)
	}
	if _, err := svc.ToggleSave(ctx, "missing", year2.ID); err != activity.ErrNotFound {
		t.Errorf("ToggleSave() error = %v; want %v", err, activity.ErrNotFound)
	}
}

func TestDelete(t *testing.T) {
	svc := newActivityTestService(t)
	ctx := context.Background()
	a := mustCreate(t, svc, activity.NewActivity{Title: "Aviso", Kind: activity.KindSimpleNotice, Audience: activity.Audience{All: true}})

	if err := svc.Delete(ctx, a.ID, user.User{ID: "prof2", Role: user.RoleTeacher}); err != activity.ErrNotAuthor {
		t.Errorf("Delete() error = %v; want %v", err, activity.ErrNotAuthor)
	}
	if err := svc.Delete(ctx, a.ID, teacher); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, a.ID); err != activity.ErrNotFound {
		t.Errorf("Get() after delete error = %v; want %v", err, activity.ErrNotFound)
	}
}

func TestExportICS(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	activity.NowFunc = func() time.Time { return now }
	defer func() { activity.NowFunc = time.Now }()

	deadline := time.Date(2026, 3, 20, 23, 59, 0, 0, time.UTC)
	a := activity.Activity{
		ID:          "abc",
		Title:       "Prova de Física; cap. 3",
		Description: "Trazer calculadora,\nlápis e borracha",
		Deadline:    &deadline,
	}

	out, err := activity.ExportICS(a)
	if err != nil {
		t.Fatalf("ExportICS() error = %v", err)
	}

	want := "BEGIN:VCALENDAR\r\n" +
		"VERSION:2.0\r\n" +
		"PRODID:-//StudyMate//Atividades//PT-BR\r\n" +
		"CALSCALE:GREGORIAN\r\n" +
		"METHOD:PUBLISH\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:abc@studymate\r\n" +
		"DTSTAMP:20260310T120000Z\r\n" +
		"DTSTART:20260320T235900Z\r\n" +
		"DTEND:20260321T005900Z\r\n" +
		"SUMMARY:Prova de Física\\; cap. 3\r\n" +
		"DESCRIPTION:Trazer calculadora\\,\\nlápis e borracha\r\n" +
		"LOCATION:ETEC\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	if !bytes.Equal(out, []byte(want)) {
		t.Errorf("ExportICS() =\n%q\nwant\n%q", out, want)
	}

	if _, err = activity.ExportICS(activity.Activity{ID: "x"}); err != activity.ErrNoDeadline {
		t.Errorf("ExportICS() error = %v; want %v", err, activity.ErrNoDeadline)
	}
}
