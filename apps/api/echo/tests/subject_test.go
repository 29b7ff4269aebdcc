package tests

import (
	"net/http"
	"testing"

	"github.com/GrupoTcc462/StudyMate/core/subject"
	"github.com/GrupoTcc462/StudyMate/core/user"
)

func Test_subjectApi(t *testing.T) {
	admin := createTestUser(t, "Coord. Matérias", uniqueEmail("coord.materias"), "Estud@r2026!", user.RoleAdmin, 0)
	teacher := createTestUser(t, "Prof. Links", uniqueEmail("prof.links"), "Estud@r2026!", user.RoleTeacher, 0)
	student := createTestUser(t, "Aluno Matérias", uniqueEmail("aluno.materias"), "Estud@r2026!", user.RoleStudent, 1)
	adminToken := getToken(t, admin)

	t.Run("create is admin only", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/api/subjects", getToken(t, teacher),
			[]byte(`{"name": "Intrusa"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	var s subject.Subject

	t.Run("create slugs accented names", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/subjects", adminToken,
			[]byte(`{"name": "Educação Física", "description": "Práticas esportivas"}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create: %v %s", rec.Code, rec.Body.String())
		}
		decodeBody(t, rec, &s)
		if s.Slug != "educacao-fisica" {
			t.Errorf("Slug = %q; want %q", s.Slug, "educacao-fisica")
		}
	})

	t.Run("slug collision", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "a subject with this name already exists"}`),
		}
		req, rec := newAuthRequest(http.MethodPost, "/api/subjects", adminToken,
			[]byte(`{"name": "EDUCAÇÃO FÍSICA"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("public retrieve by slug", func(t *testing.T) {
		var got subject.Subject
		req, rec := newRequest(http.MethodGet, "/api/subjects/educacao-fisica")
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("retrieve: %v %s", rec.Code, rec.Body.String())
		}
		decodeBody(t, rec, &got)
		if got.ID != s.ID {
			t.Errorf("ID = %v; want %v", got.ID, s.ID)
		}
	})

	t.Run("staff curate links, capped at five", func(t *testing.T) {
		teacherToken := getToken(t, teacher)

		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/api/subjects/"+s.ID+"/links", getToken(t, student),
			[]byte(`{"title": "Apostila", "url": "https://example.com/0"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		urls := []string{
			"https://example.com/1", "https://example.com/2", "https://example.com/3",
			"https://example.com/4", "https://example.com/5",
		}
		for _, u := range urls {
			req, rec := newAuthRequest(http.MethodPost, "/api/subjects/"+s.ID+"/links", teacherToken,
				[]byte(`{"title": "Material de apoio", "url": "`+u+`"}`))
			app.ServeHTTP(rec, req)
			if rec.Code != http.StatusCreated {
				t.Fatalf("add link %s: %v %s", u, rec.Code, rec.Body.String())
			}
		}

		tt = httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"url": "a subject can have at most 5 external links"}`),
		}
		req, rec = newAuthRequest(http.MethodPost, "/api/subjects/"+s.ID+"/links", teacherToken,
			[]byte(`{"title": "Um a mais", "url": "https://example.com/6"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		var links []subject.ExternalLink
		req, rec = newRequest(http.MethodGet, "/api/subjects/"+s.ID+"/links")
		app.ServeHTTP(rec, req)
		decodeBody(t, rec, &links)
		if len(links) != subject.MaxExternalLinks {
			t.Errorf("len(links) = %v; want %v", len(links), subject.MaxExternalLinks)
		}
	})
}
