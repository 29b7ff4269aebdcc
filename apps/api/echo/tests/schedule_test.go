package tests

import (
	"net/http"
	"testing"

	"github.com/GrupoTcc462/StudyMate/core/schedule"
	"github.com/GrupoTcc462/StudyMate/core/user"
)

// jpegStub is enough of a JPEG for the upload path; the server never decodes it.
var jpegStub = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func Test_scheduleApi(t *testing.T) {
	admin := createTestUser(t, "Sec. Horários", uniqueEmail("sec.horarios"), "Estud@r2026!", user.RoleAdmin, 0)
	student := createTestUser(t, "Aluno Horário", uniqueEmail("aluno.horario"), "Estud@r2026!", user.RoleStudent, 1)
	adminToken := getToken(t, admin)
	studentToken := getToken(t, student)

	t.Run("no active schedule yet", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/api/schedule", studentToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("students cannot upload", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}
		req, rec := newMultipartRequest(t, http.MethodPost, "/api/schedule", studentToken,
			nil, "file", "horario.jpg", jpegStub)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"file": "only .jpg, .jpeg, .png, .xlsx and .xls files are accepted"}`),
		}
		req, rec := newMultipartRequest(t, http.MethodPost, "/api/schedule", adminToken,
			nil, "file", "horario.pdf", []byte("%PDF-1.4"))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	var first schedule.Schedule

	t.Run("upload image schedule", func(t *testing.T) {
		req, rec := newMultipartRequest(t, http.MethodPost, "/api/schedule", adminToken,
			nil, "file", "horario-1sem.jpg", jpegStub)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("upload: %v %s", rec.Code, rec.Body.String())
		}
		decodeBody(t, rec, &first)
		if first.Kind != schedule.KindImage {
			t.Errorf("Kind = %v; want %v", first.Kind, schedule.KindImage)
		}
		if !first.Active {
			t.Errorf("Active = false; want true")
		}
	})

	t.Run("new upload replaces the active one", func(t *testing.T) {
		req, rec := newMultipartRequest(t, http.MethodPost, "/api/schedule", adminToken,
			nil, "file", "horario-2sem.xlsx", []byte("PK\x03\x04"))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("upload: %v %s", rec.Code, rec.Body.String())
		}
		var second schedule.Schedule
		decodeBody(t, rec, &second)
		if second.Kind != schedule.KindExcel {
			t.Errorf("Kind = %v; want %v", second.Kind, schedule.KindExcel)
		}

		var active schedule.Schedule
		req, rec = newAuthRequest(http.MethodGet, "/api/schedule", studentToken)
		app.ServeHTTP(rec, req)
		decodeBody(t, rec, &active)
		if active.ID != second.ID {
			t.Errorf("active ID = %v; want %v", active.ID, second.ID)
		}
	})

	t.Run("history keeps replaced versions", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/schedule/history", adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("history: %v %s", rec.Code, rec.Body.String())
		}
		var hist []schedule.Schedule
		decodeBody(t, rec, &hist)
		if len(hist) != 2 {
			t.Fatalf("len(hist) = %v; want 2", len(hist))
		}
		if hist[0].Active == hist[1].Active {
			t.Errorf("exactly one version should be active")
		}
		if hist[1].ID != first.ID {
			t.Errorf("oldest entry ID = %v; want %v", hist[1].ID, first.ID)
		}
	})

	t.Run("history is staff only", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/api/schedule/history", studentToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}
