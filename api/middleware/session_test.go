package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestAnonymousSessionMintsCookieForNewVisitor(t *testing.T) {
	var seen string
	handler := AnonymousSession()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	if seen == "" {
		t.Fatal("expected a session id in context")
	}
	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("minted session id is not a uuid: %q", seen)
	}
	if resp.Header().Get("X-Session-Id") != seen {
		t.Fatal("response header must echo the session id")
	}

	var cookie *http.Cookie
	for _, c := range resp.Result().Cookies() {
		if c.Name == SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected session cookie to be set")
	}
	if cookie.Value != seen || !cookie.HttpOnly {
		t.Fatalf("unexpected cookie %+v", cookie)
	}
}

func TestAnonymousSessionReusesCookie(t *testing.T) {
	var seen string
	handler := AnonymousSession()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-123"})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if seen != "sess-123" {
		t.Fatalf("expected stored session to be reused, got %q", seen)
	}
	for _, c := range resp.Result().Cookies() {
		if c.Name == SessionCookieName {
			t.Fatal("cookie should not be re-set when already present")
		}
	}
}

func TestAnonymousSessionAcceptsHeader(t *testing.T) {
	var seen string
	handler := AnonymousSession()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("X-Session-Id", "sess-from-header")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "sess-from-header" {
		t.Fatalf("expected header session id, got %q", seen)
	}
}
