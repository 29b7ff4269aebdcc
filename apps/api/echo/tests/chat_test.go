package tests

import (
	"net/http"
	"net/url"
	"testing"

	. "github.com/GrupoTcc462/StudyMate/apps/api/echo"
	"github.com/GrupoTcc462/StudyMate/core/chat"
	"github.com/GrupoTcc462/StudyMate/core/user"
)

func openChat(t *testing.T, token, otherID string) chat.Chat {
	t.Helper()
	req, rec := newAuthRequest(http.MethodPost, "/api/chats/open", token,
		[]byte(`{"user_id": "`+otherID+`"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("open chat: %v %s", rec.Code, rec.Body.String())
	}
	var c chat.Chat
	decodeBody(t, rec, &c)
	return c
}

func postMessage(t *testing.T, token, chatID, body string) chat.Message {
	t.Helper()
	req, rec := newFormRequest(http.MethodPost, "/api/chats/"+chatID+"/messages", token,
		url.Values{"body": {body}})
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("post message: %v %s", rec.Code, rec.Body.String())
	}
	var msg chat.Message
	decodeBody(t, rec, &msg)
	return msg
}

func Test_chatApi_open(t *testing.T) {
	ana := createTestUser(t, "Ana Papo", uniqueEmail("ana.papo"), "Estud@r2026!", user.RoleStudent, 1)
	beto := createTestUser(t, "Beto Papo", uniqueEmail("beto.papo"), "Estud@r2026!", user.RoleStudent, 1)
	anaToken := getToken(t, ana)
	betoToken := getToken(t, beto)

	t.Run("anon", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		}
		req, rec := newRequest(http.MethodPost, "/api/chats/open", []byte(`{"user_id": "`+beto.ID+`"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("missing user_id", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"user_id": "this field is required"}`),
		}
		req, rec := newAuthRequest(http.MethodPost, "/api/chats/open", anaToken, []byte(`{}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unknown user", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/api/chats/open", anaToken, []byte(`{"user_id": "nope"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("with yourself", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "cannot start a chat with yourself"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/api/chats/open", anaToken, []byte(`{"user_id": "`+ana.ID+`"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("open is idempotent across both sides", func(t *testing.T) {
		c1 := openChat(t, anaToken, beto.ID)
		c2 := openChat(t, betoToken, ana.ID)
		if c1.ID != c2.ID {
			t.Errorf("chat IDs differ: %v vs %v", c1.ID, c2.ID)
		}
	})
}

func Test_chatApi_messages(t *testing.T) {
	ana := createTestUser(t, "Ana Conversa", uniqueEmail("ana.conversa"), "Estud@r2026!", user.RoleStudent, 2)
	beto := createTestUser(t, "Beto Conversa", uniqueEmail("beto.conversa"), "Estud@r2026!", user.RoleStudent, 2)
	carla := createTestUser(t, "Carla Curiosa", uniqueEmail("carla.curiosa"), "Estud@r2026!", user.RoleStudent, 2)
	anaToken := getToken(t, ana)
	betoToken := getToken(t, beto)

	c := openChat(t, anaToken, beto.ID)

	t.Run("profanity is redacted, never rejected", func(t *testing.T) {
		msg := postMessage(t, anaToken, c.ID, "Deixa de ser burro, a prova é amanhã")
		if want := "Deixa de ser *****, a prova é amanhã"; msg.Body != want {
			t.Errorf("Body = %q; want %q", msg.Body, want)
		}
		if msg.SenderID != ana.ID {
			t.Errorf("SenderID = %v; want %v", msg.SenderID, ana.ID)
		}
	})

	t.Run("attachment extension not allowed", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"file": "file extension not allowed"}`),
		}
		req, rec := newMultipartRequest(t, http.MethodPost, "/api/chats/"+c.ID+"/messages", anaToken,
			map[string]string{"body": "segue o instalador"}, "file", "instalador.exe", []byte("MZ"))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("outsider cannot read the conversation", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/api/chats/"+c.ID+"/messages", getToken(t, carla))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("reading marks messages read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/chats/"+c.ID+"/messages", betoToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var msgs []chat.Message
		decodeBody(t, rec, &msgs)
		if len(msgs) != 1 {
			t.Fatalf("len(msgs) = %v; want 1", len(msgs))
		}

		// the sender's next read sees it flagged
		req, rec = newAuthRequest(http.MethodGet, "/api/chats/"+c.ID+"/messages", anaToken)
		app.ServeHTTP(rec, req)
		decodeBody(t, rec, &msgs)
		if !msgs[0].Read {
			t.Errorf("Read = false; want true")
		}
	})

	t.Run("soft delete hides for the deleter only", func(t *testing.T) {
		msg := postMessage(t, betoToken, c.ID, "Apaga essa depois")

		req, rec := newAuthRequest(http.MethodPost, "/api/messages/delete", anaToken,
			[]byte(`{"ids": ["`+msg.ID+`"]}`))
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, DeleteMessagesResponse{Success: true, Deleted: 1}),
		}
		checkCodeAndData(t, tt, rec)

		var msgs []chat.Message
		req, rec = newAuthRequest(http.MethodGet, "/api/chats/"+c.ID+"/messages", anaToken)
		app.ServeHTTP(rec, req)
		decodeBody(t, rec, &msgs)
		for _, m := range msgs {
			if m.ID == msg.ID {
				t.Errorf("deleted message still visible to deleter")
			}
		}

		req, rec = newAuthRequest(http.MethodGet, "/api/chats/"+c.ID+"/messages", betoToken)
		app.ServeHTTP(rec, req)
		decodeBody(t, rec, &msgs)
		found := false
		for _, m := range msgs {
			if m.ID == msg.ID {
				found = true
			}
		}
		if !found {
			t.Errorf("message vanished for the other participant")
		}
	})

	t.Run("unread-only chat list", func(t *testing.T) {
		postMessage(t, anaToken, c.ID, "Você viu o edital?")

		var summaries []chat.Summary
		req, rec := newAuthRequest(http.MethodGet, "/api/chats?unread=true", betoToken)
		app.ServeHTTP(rec, req)
		decodeBody(t, rec, &summaries)
		if len(summaries) != 1 {
			t.Fatalf("len(summaries) = %v; want 1", len(summaries))
		}
		if summaries[0].UnreadCount < 1 {
			t.Errorf("UnreadCount = %v; want >= 1", summaries[0].UnreadCount)
		}
		if summaries[0].OtherUserID != ana.ID {
			t.Errorf("OtherUserID = %v; want %v", summaries[0].OtherUserID, ana.ID)
		}

		// ana sent the last message, nothing unread on her side
		req, rec = newAuthRequest(http.MethodGet, "/api/chats?unread=true", anaToken)
		app.ServeHTTP(rec, req)
		decodeBody(t, rec, &summaries)
		if len(summaries) != 0 {
			t.Errorf("len(summaries) = %v; want 0", len(summaries))
		}
	})
}

func Test_chatApi_drafts(t *testing.T) {
	ana := createTestUser(t, "Ana Rascunho", uniqueEmail("ana.rascunho"), "Estud@r2026!", user.RoleStudent, 3)
	beto := createTestUser(t, "Beto Rascunho", uniqueEmail("beto.rascunho"), "Estud@r2026!", user.RoleStudent, 3)
	anaToken := getToken(t, ana)
	betoToken := getToken(t, beto)

	c := openChat(t, anaToken, beto.ID)

	t.Run("save and read back", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/chats/"+c.ID+"/draft", anaToken,
			[]byte(`{"text": "ainda escrevendo..."}`))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, SuccessResponse{Success: true})}
		checkCodeAndData(t, tt, rec)

		req, rec = newAuthRequest(http.MethodGet, "/api/chats/"+c.ID+"/draft", anaToken)
		app.ServeHTTP(rec, req)
		tt = httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, DraftResponse{Text: "ainda escrevendo..."})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("drafts are private to their author", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/chats/"+c.ID+"/draft", betoToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, DraftResponse{Text: ""})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("sending clears the draft", func(t *testing.T) {
		postMessage(t, anaToken, c.ID, "pronto, enviei")

		req, rec := newAuthRequest(http.MethodGet, "/api/chats/"+c.ID+"/draft", anaToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, DraftResponse{Text: ""})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("expired draft reads back empty", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/chats/"+c.ID+"/draft", anaToken,
			[]byte(`{"text": "vou esquecer disso"}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("save draft: %v %s", rec.Code, rec.Body.String())
		}
		sessions.Expire("chatdraft:" + c.ID + ":" + ana.ID)

		req, rec = newAuthRequest(http.MethodGet, "/api/chats/"+c.ID+"/draft", anaToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, DraftResponse{Text: ""})}
		checkCodeAndData(t, tt, rec)
	})
}
