package main

import (
	"errors"
	"net/http"

	"github.com/learnhub/learnhub/src/internal/platform/apierr"
)

func (f *frontend) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	f.render(w, "login.html", map[string]interface{}{
		"Session":   sessionViewOf(f.app.Session.State()),
		"Federated": f.app.Federated != nil,
		"Error":     r.URL.Query().Get("error"),
	})
}

func (f *frontend) handlePasswordLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad form", http.StatusBadRequest)
		return
	}
	_, err := f.app.Accounts.PasswordLogin(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		f.log.Warn("Password sign-in failed", "username", r.PostForm.Get("username"), "error", err)
		http.Redirect(w, r, "/login?error="+loginErrorCode(err), http.StatusFound)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func loginErrorCode(err error) string {
	var rejected *apierr.ServerRejectedError
	if errors.As(err, &rejected) && rejected.Status < 500 {
		return "credentials"
	}
	return "unavailable"
}

func (f *frontend) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if f.app.Federated == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	authURL, _ := f.app.Federated.AuthCodeURL("")
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (f *frontend) handleCallback(w http.ResponseWriter, r *http.Request) {
	if f.app.Federated == nil {
		http.Error(w, "Federated sign-in disabled", http.StatusBadRequest)
		return
	}
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		f.log.Warn("Provider refused sign-in", "error", e)
		http.Redirect(w, r, "/login?error=provider", http.StatusFound)
		return
	}
	if _, err := f.app.Federated.Complete(r.Context(), q.Get("state"), q.Get("code")); err != nil {
		f.log.Warn("Federated sign-in failed", "error", err)
		http.Redirect(w, r, "/login?error=provider", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (f *frontend) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := f.app.Accounts.Logout(r.Context()); err != nil {
		f.log.Error("Logout failed", "error", err)
		http.Error(w, "Logout failed", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// withBearer injects the session token for requests proxied to the backend.
func (f *frontend) withBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del("Authorization")
		if token, ok := f.app.Session.Token(); ok {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		next.ServeHTTP(w, r)
	})
}
