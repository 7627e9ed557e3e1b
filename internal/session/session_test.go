package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, authStatus string, delay time.Duration) (*httptest.Server, *map[string]string) {
	t.Helper()
	seen := map[string]string{}

	mux := http.NewServeMux()
	mux.HandleFunc("/login/init", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		seen["username"] = r.FormValue("username")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"challenge_id":"ch-1"}`))
	})
	mux.HandleFunc("/login/authenticate", func(w http.ResponseWriter, r *http.Request) {
		seen["challenge_id"] = r.FormValue("challenge_id")
		seen["password"] = r.FormValue("password")
		seen["code"] = r.FormValue("code")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"` + authStatus + `"}`))
	})
	mux.HandleFunc("/account", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestLogin_Authenticated(t *testing.T) {
	srv, seen := newTestServer(t, "ok", 0)
	c := New(Options{Username: "user", Password: "pass", BaseURL: srv.URL})
	defer c.Close()

	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login() = %v, want nil", err)
	}
	if (*seen)["username"] != "user" || (*seen)["password"] != "pass" {
		t.Errorf("credentials not sent: %v", *seen)
	}
	if (*seen)["challenge_id"] != "ch-1" {
		t.Errorf("challenge_id = %q, want ch-1", (*seen)["challenge_id"])
	}

	if err := c.Cookies(context.Background()); err != nil {
		t.Errorf("Cookies() = %v, want nil", err)
	}
}

func TestLogin_SendsTOTPCodeWhenSecretPresent(t *testing.T) {
	srv, seen := newTestServer(t, "ok", 0)
	c := New(Options{
		Username:     "user",
		Password:     "pass",
		SharedSecret: "JBSWY3DPEHPK3PXP",
		BaseURL:      srv.URL,
	})
	defer c.Close()

	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login() = %v, want nil", err)
	}
	if (*seen)["code"] == "" {
		t.Error("no one-time code was sent despite a shared secret")
	}
}

func TestLogin_ActionRequiredIsFailure(t *testing.T) {
	srv, _ := newTestServer(t, "action_required", 0)
	c := New(Options{Username: "user", Password: "pass", BaseURL: srv.URL})
	defer c.Close()

	err := c.Login(context.Background())
	if !errors.Is(err, ErrActionRequired) {
		t.Errorf("Login() = %v, want ErrActionRequired", err)
	}
}

func TestLogin_TimeoutCeiling(t *testing.T) {
	srv, _ := newTestServer(t, "ok", 300*time.Millisecond)
	c := New(Options{Username: "user", Password: "pass", BaseURL: srv.URL, Timeout: 30 * time.Millisecond})
	defer c.Close()

	err := c.Login(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Login() = %v, want ErrTimeout", err)
	}
}

func TestCookies_RequiresAuthentication(t *testing.T) {
	srv, _ := newTestServer(t, "ok", 0)
	c := New(Options{Username: "user", Password: "pass", BaseURL: srv.URL})
	defer c.Close()

	if err := c.Cookies(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Cookies() before login = %v, want ErrNotAuthenticated", err)
	}
}

func TestClose_SafeToRepeat(t *testing.T) {
	c := New(Options{Username: "user", Password: "pass", BaseURL: "http://127.0.0.1:0"})
	c.Close()
	c.Close()
}
