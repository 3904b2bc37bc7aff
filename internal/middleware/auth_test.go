package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/praneethkvs/Memento/internal/auth"
	"github.com/praneethkvs/Memento/internal/database"
	"github.com/praneethkvs/Memento/internal/store"
)

func setupAuthMiddlewareDB(t *testing.T) (*store.SessionStore, *store.UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewSessionStore(db), store.NewUserStore(db)
}

func assertUnauthorized(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected error message in body")
	}
}

func TestRequireAuthNoCookie(t *testing.T) {
	ss, _ := setupAuthMiddlewareDB(t)

	handler := RequireAuth(ss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/api/events", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assertUnauthorized(t, rec)
}

func TestRequireAuthInvalidToken(t *testing.T) {
	ss, _ := setupAuthMiddlewareDB(t)

	handler := RequireAuth(ss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/api/events", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: "invalid-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assertUnauthorized(t, rec)
}

func TestRequireAuthValidSession(t *testing.T) {
	ss, us := setupAuthMiddlewareDB(t)

	u, err := us.Create("alice@example.com", "Alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	sess, err := ss.Create(u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	var gotAC auth.AuthContext
	handler := RequireAuth(ss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("expected AuthContext in request context")
		}
		gotAC = ac
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/events", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: sess.Token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotAC.UserID != u.ID {
		t.Errorf("UserID = %d, want %d", gotAC.UserID, u.ID)
	}
	if gotAC.SessionID != sess.ID {
		t.Errorf("SessionID = %d, want %d", gotAC.SessionID, sess.ID)
	}
}

func TestRequireAuthDeletedSession(t *testing.T) {
	ss, us := setupAuthMiddlewareDB(t)

	u, _ := us.Create("bob@example.com", "Bob", "hash")
	sess, _ := ss.Create(u.ID)
	if err := ss.Delete(sess.Token); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	handler := RequireAuth(ss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: sess.Token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assertUnauthorized(t, rec)
}
