package tests

import (
	"context"
	"net/http"
	"testing"

	. "github.com/GrupoTcc462/StudyMate/apps/api/echo"
	"github.com/GrupoTcc462/StudyMate/core/stats"
	"github.com/GrupoTcc462/StudyMate/core/user"
)

func overview(t *testing.T) stats.Overview {
	t.Helper()
	req, rec := newRequest(http.MethodGet, "/api/stats")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: %v %s", rec.Code, rec.Body.String())
	}
	var ov stats.Overview
	decodeBody(t, rec, &ov)
	return ov
}

func Test_statsApi(t *testing.T) {
	student := createTestUser(t, "Aluno Online", uniqueEmail("aluno.online"), "Estud@r2026!", user.RoleStudent, 2)
	teacher := createTestUser(t, "Prof. Online", uniqueEmail("prof.online"), "Estud@r2026!", user.RoleTeacher, 0)

	t.Run("ping requires auth", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		}
		req, rec := newRequest(http.MethodPost, "/api/ping")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("ping puts a student online", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: true}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/api/ping", getToken(t, student))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		found := false
		for _, uname := range overview(t).OnlineStudents {
			if uname == student.Username {
				found = true
			}
		}
		if !found {
			t.Errorf("%v not listed online", student.Username)
		}
	})

	t.Run("ping stamps last login", func(t *testing.T) {
		before, err := usrSvc.GetByID(context.Background(), student.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		req, rec := newAuthRequest(http.MethodPost, "/api/ping", getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("ping: %v %s", rec.Code, rec.Body.String())
		}
		after, err := usrSvc.GetByID(context.Background(), student.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if !after.LastLogin.After(before.LastLogin) {
			t.Errorf("LastLogin = %v; want later than %v", after.LastLogin, before.LastLogin)
		}
	})

	t.Run("teachers are not listed online", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/ping", getToken(t, teacher))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("ping: %v %s", rec.Code, rec.Body.String())
		}

		for _, uname := range overview(t).OnlineStudents {
			if uname == teacher.Username {
				t.Errorf("teacher %v listed among online students", teacher.Username)
			}
		}
	})

	t.Run("presence expires", func(t *testing.T) {
		sessions.Expire("presence:" + student.ID)

		for _, uname := range overview(t).OnlineStudents {
			if uname == student.Username {
				t.Errorf("%v still online after presence expiry", student.Username)
			}
		}
	})
}
