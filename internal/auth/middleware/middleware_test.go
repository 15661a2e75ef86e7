package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	auth "github.com/mind-engage/coursegrades/internal/auth/middleware"
	"github.com/mind-engage/coursegrades/internal/rbac"
)

func staticChecker(t *testing.T) auth.CredentialChecker {
	t.Helper()
	return func(username, password string) (string, bool) {
		if username == "alice" && password == "s3cret" {
			return "instructor", true
		}
		return "", false
	}
}

func TestLoginAndJWTRoundTrip(t *testing.T) {
	svc := auth.NewAuthService("test-secret")

	loginReq := httptest.NewRequest("POST", "/auth/login",
		strings.NewReader(`{"username":"alice","password":"s3cret"}`))
	loginRec := httptest.NewRecorder()
	auth.LoginHandler(svc, staticChecker(t))(loginRec, loginReq)
	if loginRec.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", loginRec.Code, loginRec.Body.String())
	}
	var resp map[string]string
	if err := json.NewDecoder(loginRec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	token := resp["access_token"]
	if token == "" {
		t.Fatalf("no access token issued")
	}

	var gotSub, gotRole string
	protected := auth.JWTMiddleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = auth.SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("protected status %d", rec.Code)
	}
	if gotSub != "alice" || gotRole != "instructor" {
		t.Fatalf("context carried sub=%q role=%q", gotSub, gotRole)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	svc := auth.NewAuthService("test-secret")
	req := httptest.NewRequest("POST", "/auth/login",
		strings.NewReader(`{"username":"alice","password":"wrong"}`))
	rec := httptest.NewRecorder()
	auth.LoginHandler(svc, staticChecker(t))(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d; want 401", rec.Code)
	}
}

func TestJWTMiddleware_Rejections(t *testing.T) {
	svc := auth.NewAuthService("test-secret")
	protected := auth.JWTMiddleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	}))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status %d; want 401", rec.Code)
		}
	})

	t.Run("token signed with another key", func(t *testing.T) {
		other := auth.NewAuthService("different-secret")
		token, err := other.IssueJWT("alice", "instructor")
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status %d; want 401", rec.Code)
		}
	})
}
