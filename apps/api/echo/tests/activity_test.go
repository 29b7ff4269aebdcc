package tests

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/GrupoTcc462/StudyMate/core/activity"
	"github.com/GrupoTcc462/StudyMate/core/user"
)

func createActivity(t *testing.T, token string, form url.Values) activity.Activity {
	t.Helper()
	req, rec := newFormRequest(http.MethodPost, "/api/activities", token, form)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create activity: %v %s", rec.Code, rec.Body.String())
	}
	var a activity.Activity
	decodeBody(t, rec, &a)
	return a
}

func Test_activityApi_create(t *testing.T) {
	teacher := createTestUser(t, "Prof. Atividades", uniqueEmail("prof.atividades"), "Estud@r2026!", user.RoleTeacher, 0)
	student := createTestUser(t, "Aluno Atividades", uniqueEmail("aluno.atividades"), "Estud@r2026!", user.RoleStudent, 1)

	t.Run("students cannot create", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}
		req, rec := newFormRequest(http.MethodPost, "/api/activities", getToken(t, student), url.Values{
			"title": {"Invasão"},
			"kind":  {"atividade"},
			"all":   {"true"},
		})
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("bad deadline", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"deadline": "invalid deadline, use RFC 3339"}`),
		}
		req, rec := newFormRequest(http.MethodPost, "/api/activities", getToken(t, teacher), url.Values{
			"title":    {"Trabalho de campo"},
			"kind":     {"atividade"},
			"all":      {"true"},
			"deadline": {"amanhã"},
		})
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("teacher creates an assignment", func(t *testing.T) {
		a := createActivity(t, getToken(t, teacher), url.Values{
			"title":             {"Relatório de laboratório"},
			"description":       {"Entregar em PDF"},
			"kind":              {"atividade"},
			"all":               {"true"},
			"allows_submission": {"true"},
			"deadline":          {"2027-06-30T23:59:00Z"},
		})
		if a.Kind != activity.KindAssignment {
			t.Errorf("Kind = %v; want %v", a.Kind, activity.KindAssignment)
		}
		if !a.AllowsSubmission {
			t.Errorf("AllowsSubmission = false; want true")
		}
		if a.AuthorID != teacher.ID {
			t.Errorf("AuthorID = %v; want %v", a.AuthorID, teacher.ID)
		}
	})
}

func Test_activityApi_audience(t *testing.T) {
	teacher := createTestUser(t, "Prof. Séries", uniqueEmail("prof.series"), "Estud@r2026!", user.RoleTeacher, 0)
	year1 := createTestUser(t, "Aluno Primeiro", uniqueEmail("aluno.primeiro"), "Estud@r2026!", user.RoleStudent, 1)
	year3 := createTestUser(t, "Aluno Terceiro", uniqueEmail("aluno.terceiro"), "Estud@r2026!", user.RoleStudent, 3)

	only1 := createActivity(t, getToken(t, teacher), url.Values{
		"title": {"Prova só do primeiro ano"},
		"kind":  {"aviso_prova"},
		"year1": {"true"},
	})

	sees := func(t *testing.T, token, activityID string) bool {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, "/api/activities", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("list: %v %s", rec.Code, rec.Body.String())
		}
		var items []activity.Annotated
		decodeBody(t, rec, &items)
		for _, item := range items {
			if item.ID == activityID {
				return true
			}
		}
		return false
	}

	if !sees(t, getToken(t, year1), only1.ID) {
		t.Errorf("year 1 student does not see a year-1 activity")
	}
	if sees(t, getToken(t, year3), only1.ID) {
		t.Errorf("year 3 student sees a year-1 activity")
	}
}

func Test_activityApi_submissions(t *testing.T) {
	teacher := createTestUser(t, "Prof. Entregas", uniqueEmail("prof.entregas"), "Estud@r2026!", user.RoleTeacher, 0)
	other := createTestUser(t, "Prof. Alheio", uniqueEmail("prof.alheio"), "Estud@r2026!", user.RoleTeacher, 0)
	student := createTestUser(t, "Aluno Entrega", uniqueEmail("aluno.entrega"), "Estud@r2026!", user.RoleStudent, 2)
	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	a := createActivity(t, teacherToken, url.Values{
		"title":             {"Resenha crítica"},
		"kind":              {"atividade"},
		"all":               {"true"},
		"allows_submission": {"true"},
		"deadline":          {"2027-03-15T23:59:00Z"},
	})
	notice := createActivity(t, teacherToken, url.Values{
		"title": {"Aviso de prova"},
		"kind":  {"aviso_prova"},
		"all":   {"true"},
	})

	t.Run("teachers cannot submit", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}
		req, rec := newMultipartRequest(t, http.MethodPost, "/api/activities/"+a.ID+"/submit", teacherToken,
			nil, "file", "resenha.pdf", []byte("%PDF-1.4"))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("file is required", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"file": "a file is required"}`),
		}
		req, rec := newFormRequest(http.MethodPost, "/api/activities/"+a.ID+"/submit", studentToken,
			url.Values{"comment": {"segue sem anexo"}})
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("notices reject submissions", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "this activity does not accept submissions"}),
		}
		req, rec := newMultipartRequest(t, http.MethodPost, "/api/activities/"+notice.ID+"/submit", studentToken,
			nil, "file", "resenha.pdf", []byte("%PDF-1.4"))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	var sub activity.Submission

	t.Run("submit", func(t *testing.T) {
		req, rec := newMultipartRequest(t, http.MethodPost, "/api/activities/"+a.ID+"/submit", studentToken,
			map[string]string{"comment": "segue a resenha"}, "file", "resenha.pdf", []byte("%PDF-1.4"))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("submit: %v %s", rec.Code, rec.Body.String())
		}
		decodeBody(t, rec, &sub)
		if sub.Status != activity.StatusSubmitted {
			t.Errorf("Status = %v; want %v", sub.Status, activity.StatusSubmitted)
		}
		if sub.StudentID != student.ID {
			t.Errorf("StudentID = %v; want %v", sub.StudentID, student.ID)
		}
	})

	t.Run("double submit", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "you already submitted this activity"}),
		}
		req, rec := newMultipartRequest(t, http.MethodPost, "/api/activities/"+a.ID+"/submit", studentToken,
			nil, "file", "resenha2.pdf", []byte("%PDF-1.4"))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("only the author grades", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/api/submissions/"+sub.ID+"/grade", getToken(t, other),
			[]byte(`{"grade": 9.0}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("grade out of range", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/submissions/"+sub.ID+"/grade", teacherToken,
			[]byte(`{"grade": 11}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("grade", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/submissions/"+sub.ID+"/grade", teacherToken,
			[]byte(`{"grade": 8.5, "feedback": "Boa análise"}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("grade: %v %s", rec.Code, rec.Body.String())
		}
		var graded activity.Submission
		decodeBody(t, rec, &graded)
		if graded.Grade == nil || *graded.Grade != 8.5 {
			t.Errorf("Grade = %v; want 8.5", graded.Grade)
		}
		if graded.Feedback != "Boa análise" {
			t.Errorf("Feedback = %q", graded.Feedback)
		}
		if graded.GradedAt == nil {
			t.Errorf("GradedAt is nil")
		}
	})

	t.Run("author lists submissions", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/activities/"+a.ID+"/submissions", teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("submissions: %v %s", rec.Code, rec.Body.String())
		}
		var subs []activity.Submission
		decodeBody(t, rec, &subs)
		if len(subs) != 1 {
			t.Errorf("len(subs) = %v; want 1", len(subs))
		}
	})
}

func Test_activityApi_exportICS(t *testing.T) {
	teacher := createTestUser(t, "Prof. Agenda", uniqueEmail("prof.agenda"), "Estud@r2026!", user.RoleTeacher, 0)
	student := createTestUser(t, "Aluno Agenda", uniqueEmail("aluno.agenda"), "Estud@r2026!", user.RoleStudent, 1)

	withDeadline := createActivity(t, getToken(t, teacher), url.Values{
		"title":    {"Prova bimestral"},
		"kind":     {"aviso_prova"},
		"all":      {"true"},
		"deadline": {"2027-09-10T12:00:00Z"},
	})
	noDeadline := createActivity(t, getToken(t, teacher), url.Values{
		"title": {"Aviso sem data"},
		"kind":  {"aviso_simples"},
		"all":   {"true"},
	})

	t.Run("calendar file", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/activities/"+withDeadline.ID+"/calendar.ics", getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		body := rec.Body.String()
		for _, want := range []string{"BEGIN:VCALENDAR", "SUMMARY:Prova bimestral", "DTSTART:20270910T120000Z", "END:VCALENDAR"} {
			if !strings.Contains(body, want) {
				t.Errorf("calendar missing %q", want)
			}
		}
	})

	t.Run("no deadline no event", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/api/activities/"+noDeadline.ID+"/calendar.ics", getToken(t, student))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}
