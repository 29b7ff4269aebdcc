package tests

import (
	"net/http"
	"testing"

	. "github.com/GrupoTcc462/StudyMate/apps/api/echo"
	"github.com/GrupoTcc462/StudyMate/core/user"
)

func Test_profileApi(t *testing.T) {
	ana := createTestUser(t, "Ana Perfil", uniqueEmail("ana.perfil"), "Estud@r2026!", user.RoleStudent, 2)
	token := getToken(t, ana)

	t.Run("anon", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		}
		req, rec := newRequest(http.MethodGet, "/api/profile")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("first access creates an empty profile", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/profile", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp ProfileResponse
		decodeBody(t, rec, &resp)
		if resp.Profile.UserID != ana.ID {
			t.Errorf("UserID = %v; want %v", resp.Profile.UserID, ana.ID)
		}
		if !resp.CanChangeName {
			t.Errorf("CanChangeName = false; want true")
		}
		if resp.Profile.LoginStreak != 0 {
			t.Errorf("LoginStreak = %v; want 0", resp.Profile.LoginStreak)
		}
	})

	t.Run("rename", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/profile", token,
			[]byte(`{"name": "Ana Renomeada", "bio": "Estudante de redes"}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp ProfileResponse
		decodeBody(t, rec, &resp)
		if resp.User.Name != "Ana Renomeada" {
			t.Errorf("Name = %q; want %q", resp.User.Name, "Ana Renomeada")
		}
		if resp.Profile.Bio != "Estudante de redes" {
			t.Errorf("Bio = %q", resp.Profile.Bio)
		}
		if resp.CanChangeName {
			t.Errorf("CanChangeName = true right after a rename")
		}
	})

	t.Run("rename is on cooldown", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "you can change your name again in 7 day(s)"}`),
		}
		req, rec := newAuthRequest(http.MethodPut, "/api/profile", token,
			[]byte(`{"name": "Ana Apressada"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("same name and other fields pass during cooldown", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/profile", token,
			[]byte(`{"name": "Ana Renomeada", "phone": "11987654321"}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp ProfileResponse
		decodeBody(t, rec, &resp)
		if resp.User.Phone != "11987654321" {
			t.Errorf("Phone = %q", resp.User.Phone)
		}
	})

	t.Run("avatar extension not allowed", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"avatar": "file extension not allowed"}`),
		}
		req, rec := newMultipartRequest(t, http.MethodPut, "/api/profile", token,
			nil, "avatar", "foto.gif", []byte("GIF89a"))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("no avatar yet", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/api/profile/avatar", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}
