package http_test

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/spec-kit/tracker-service/internal/testutil"
)

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func TestAnonymousAccessIsRefused(t *testing.T) {
	t.Parallel()

	app := testutil.NewApp(t)

	for _, path := range []string{"/api/tasks/", "/api/posts/", "/api/comments/", "/api/users/", "/tasks/1/history/"} {
		resp := app.Request(t, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want %d", path, resp.StatusCode, http.StatusUnauthorized)
		}
		var envelope errorEnvelope
		testutil.DecodeJSON(t, resp, &envelope)
		if envelope.Error.Code != "UNAUTHENTICATED" {
			t.Errorf("GET %s error code = %q, want UNAUTHENTICATED", path, envelope.Error.Code)
		}
	}
}

func TestRegisterAndLoginFlow(t *testing.T) {
	t.Parallel()

	app := testutil.NewApp(t)

	t.Run("password mismatch keeps legacy message", func(t *testing.T) {
		resp := app.Request(t, http.MethodPost, "/api/register/", "", map[string]any{
			"username":  "jkowalski",
			"password":  "haslo123",
			"password2": "haslo321",
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
		var envelope errorEnvelope
		testutil.DecodeJSON(t, resp, &envelope)
		if envelope.Error.Message != "Hasła nie są takie same." {
			t.Fatalf("message = %q, want %q", envelope.Error.Message, "Hasła nie są takie same.")
		}
	})

	t.Run("register then login then me", func(t *testing.T) {
		resp := app.Request(t, http.MethodPost, "/api/register/", "", map[string]any{
			"username":  "anowak",
			"email":     "an@example.com",
			"password":  "haslo123",
			"password2": "haslo123",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("register status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}
		var registered struct {
			ID    int64  `json:"id"`
			Token string `json:"token"`
		}
		testutil.DecodeJSON(t, resp, &registered)
		if registered.ID == 0 || registered.Token == "" {
			t.Fatalf("register body = %+v, want id and token", registered)
		}

		resp = app.Request(t, http.MethodPost, "/api/login/", "", map[string]any{
			"username": "anowak",
			"password": "haslo123",
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("login status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var session struct {
			Token string `json:"token"`
		}
		testutil.DecodeJSON(t, resp, &session)

		resp = app.Request(t, http.MethodGet, "/api/users/me/", session.Token, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("me status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var me struct {
			Username string `json:"username"`
		}
		testutil.DecodeJSON(t, resp, &me)
		if me.Username != "anowak" {
			t.Fatalf("username = %q, want anowak", me.Username)
		}
	})
}

func TestLogoutRevokesToken(t *testing.T) {
	t.Parallel()

	app := testutil.NewApp(t)
	user := app.CreateUser(t, "jkowalski", false, false)
	token := app.Token(t, user)

	resp := app.Request(t, http.MethodPost, "/api/logout/", token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	resp = app.Request(t, http.MethodGet, "/api/users/me/", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status after logout = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestTaskLifecycleWithHistory(t *testing.T) {
	t.Parallel()

	app := testutil.NewApp(t)
	owner := app.CreateUser(t, "jkowalski", false, false)
	stranger := app.CreateUser(t, "anowak", false, false)
	ownerToken := app.Token(t, owner)
	strangerToken := app.Token(t, stranger)

	resp := app.Request(t, http.MethodPost, "/api/tasks/", ownerToken, map[string]any{
		"nazwa": "Awaria drukarki",
		"opis":  "Drukarka na 2 piętrze nie drukuje",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var created struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	testutil.DecodeJSON(t, resp, &created)
	if created.Status != "Nowy" {
		t.Fatalf("status = %q, want Nowy", created.Status)
	}

	taskPath := "/api/tasks/" + itoa(created.ID) + "/"

	t.Run("stranger cannot see the task", func(t *testing.T) {
		resp := app.Request(t, http.MethodGet, taskPath, strangerToken, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
		}
		resp = app.Request(t, http.MethodGet, "/api/tasks/", strangerToken, nil)
		var listed []map[string]any
		testutil.DecodeJSON(t, resp, &listed)
		if len(listed) != 0 {
			t.Fatalf("stranger list = %v, want empty", listed)
		}
	})

	t.Run("owner resolves the task", func(t *testing.T) {
		resp := app.Request(t, http.MethodPut, taskPath, ownerToken, map[string]any{
			"nazwa":  "Awaria drukarki",
			"status": "Rozwiązany",
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("put status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var updated struct {
			Status string `json:"status"`
		}
		testutil.DecodeJSON(t, resp, &updated)
		if updated.Status != "Rozwiązany" {
			t.Fatalf("status = %q, want Rozwiązany", updated.Status)
		}
	})

	t.Run("history records the transition", func(t *testing.T) {
		resp := app.Request(t, http.MethodGet, "/tasks/"+itoa(created.ID)+"/history/", ownerToken, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("history status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var entries []map[string]any
		testutil.DecodeJSON(t, resp, &entries)
		if len(entries) != 2 {
			t.Fatalf("len = %d, want 2", len(entries))
		}
		if entries[0]["history_type"] != "created" || entries[1]["history_type"] != "updated" {
			t.Fatalf("history kinds = %v, %v", entries[0]["history_type"], entries[1]["history_type"])
		}
		if entries[1]["status"] != "Rozwiązany" {
			t.Fatalf("latest snapshot status = %v, want Rozwiązany", entries[1]["status"])
		}
	})

	t.Run("both prefixes serve the same record", func(t *testing.T) {
		for _, path := range []string{taskPath, "/api/posts/" + itoa(created.ID) + "/"} {
			resp := app.Request(t, http.MethodGet, path, ownerToken, nil)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("GET %s = %d, want %d", path, resp.StatusCode, http.StatusOK)
			}
			var got struct {
				ID int64 `json:"id"`
			}
			testutil.DecodeJSON(t, resp, &got)
			if got.ID != created.ID {
				t.Fatalf("GET %s id = %d, want %d", path, got.ID, created.ID)
			}
		}
	})

	t.Run("delete keeps the trail readable", func(t *testing.T) {
		resp := app.Request(t, http.MethodDelete, taskPath, ownerToken, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("delete status = %d, want %d", resp.StatusCode, http.StatusNoContent)
		}
		resp = app.Request(t, http.MethodGet, "/tasks/"+itoa(created.ID)+"/history/", ownerToken, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("history status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var entries []map[string]any
		testutil.DecodeJSON(t, resp, &entries)
		if len(entries) != 3 || entries[2]["history_type"] != "deleted" {
			t.Fatalf("entries after delete = %d, last = %v", len(entries), entries[len(entries)-1]["history_type"])
		}
	})
}

func TestCommentPermissions(t *testing.T) {
	t.Parallel()

	app := testutil.NewApp(t)
	staff := app.CreateUser(t, "moderator", true, false)
	author := app.CreateUser(t, "jkowalski", false, false)
	admin := app.CreateUser(t, "root", false, true)
	staffToken := app.Token(t, staff)
	authorToken := app.Token(t, author)
	adminToken := app.Token(t, admin)

	resp := app.Request(t, http.MethodPost, "/api/posts/", staffToken, map[string]any{
		"nazwa":                    "Ogłoszenie",
		"przypisany_uzytkownik_id": author.ID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create post status = %d", resp.StatusCode)
	}
	var post struct {
		ID int64 `json:"id"`
	}
	testutil.DecodeJSON(t, resp, &post)

	resp = app.Request(t, http.MethodPost, "/api/comments/", authorToken, map[string]any{
		"post":    post.ID,
		"content": "pierwszy komentarz",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create comment status = %d", resp.StatusCode)
	}
	var comment struct {
		ID int64 `json:"id"`
	}
	testutil.DecodeJSON(t, resp, &comment)

	commentPath := "/api/comments/" + itoa(comment.ID) + "/"

	t.Run("author edits own comment", func(t *testing.T) {
		resp := app.Request(t, http.MethodPatch, commentPath, authorToken, map[string]any{"content": "poprawiony"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("staff non-author gets forbidden", func(t *testing.T) {
		resp := app.Request(t, http.MethodPatch, commentPath, staffToken, map[string]any{"content": "przejęty"})
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
		}
	})

	t.Run("superuser deletes any comment", func(t *testing.T) {
		resp := app.Request(t, http.MethodDelete, commentPath, adminToken, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
		}
	})
}
