package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestManager() *Manager {
	return NewManager("test-secret", time.Hour, "test_session", false)
}

func TestSignParseRoundtrip(t *testing.T) {
	m := newTestManager()

	token, err := m.Sign(42)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("uid = %d, want 42", claims.UserID)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := newTestManager().Sign(1)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	other := NewManager("different-secret", time.Hour, "test_session", false)
	if _, err := other.Parse(token); err == nil {
		t.Error("token signed with another secret must not parse")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	m := NewManager("test-secret", -time.Minute, "test_session", false)
	token, err := m.Sign(1)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if _, err := m.Parse(token); err == nil {
		t.Error("expired token must not parse")
	}
}

func TestMiddleware(t *testing.T) {
	m := newTestManager()

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserID(r.Context())
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if id != 7 {
			t.Errorf("uid = %d, want 7", id)
		}
		w.WriteHeader(http.StatusOK)
	}))

	token, err := m.Sign(7)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	t.Run("Cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "test_session", Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("BearerHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("NoToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("GarbageToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "test_session", Value: "not-a-jwt"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestCookieLifecycle(t *testing.T) {
	m := newTestManager()
	rec := httptest.NewRecorder()
	m.SetCookie(rec, "tok")

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "test_session" || c.Value != "tok" {
		t.Errorf("unexpected cookie %v", c)
	}
	if !c.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	rec = httptest.NewRecorder()
	m.ClearCookie(rec)
	c = rec.Result().Cookies()[0]
	if c.MaxAge != -1 || c.Value != "" {
		t.Errorf("clear cookie should expire the session, got %v", c)
	}
}
