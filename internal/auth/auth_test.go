package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsAdmin(t *testing.T) {
	if IsAdmin(nil) {
		t.Error("nil user must not be admin")
	}
	if IsAdmin(&User{Groups: []string{"users"}}) {
		t.Error("non-admin group must not be admin")
	}
	if !IsAdmin(&User{Groups: []string{"users", AdminGroup}}) {
		t.Error("admin group member should be admin")
	}
}

func TestMockAuthLoginFlow(t *testing.T) {
	m := NewMockAuth()

	login := httptest.NewRecorder()
	m.LoginHandler(login, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	if login.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d, want 303", login.Code)
	}
	cookies := login.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login should set a session cookie")
	}

	// The session makes it through the middleware with an admin dev user.
	var got *User
	protected := m.Middleware(func(w http.ResponseWriter, r *http.Request) {
		got = GetUser(r)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	protected(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("middleware should attach the user")
	}
	if !IsAdmin(got) {
		t.Error("dev user should be an admin")
	}
}

func TestMockAuthMiddlewareRedirectsWithoutSession(t *testing.T) {
	m := NewMockAuth()

	called := false
	protected := m.Middleware(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	rec := httptest.NewRecorder()
	protected(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if called {
		t.Error("handler must not run without a session")
	}
	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want redirect to login", rec.Code)
	}
}

func TestMockAuthLogoutDropsSession(t *testing.T) {
	m := NewMockAuth()

	login := httptest.NewRecorder()
	m.LoginHandler(login, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	cookies := login.Result().Cookies()

	logout := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	m.LogoutHandler(logout, req)

	// The old cookie no longer passes the middleware.
	called := false
	protected := m.Middleware(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	protected(httptest.NewRecorder(), req)

	if called {
		t.Error("session should be invalid after logout")
	}
}
