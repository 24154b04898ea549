package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/oauth2"

	"remesas/internal/authz"
	"remesas/internal/models"
)

type googleStub struct {
	profile   map[string]any
	tokenCode int
}

func (g *googleStub) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if g.tokenCode != 0 {
			w.WriteHeader(g.tokenCode)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(g.profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestOAuth(env *testEnv, srvURL string) OAuthService {
	return NewOAuthService(GoogleOAuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://remesas.test/api/auth/google/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: srvURL + "/auth", TokenURL: srvURL + "/token"},
		UserInfoURL:  srvURL + "/userinfo",
	}, fakeUserRepo{env.db}, fakeKYCRepo{env.db})
}

func TestOAuthAuthCodeURL(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestOAuth(env, "https://accounts.test")
	if !svc.Enabled() {
		t.Fatal("configured service reports disabled")
	}
	u, err := url.Parse(svc.AuthCodeURL("state-xyz"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "state-xyz" || q.Get("client_id") != "client-id" || q.Get("scope") != "openid email profile" {
		t.Fatalf("query = %v", q)
	}

	disabled := NewOAuthService(GoogleOAuthConfig{}, fakeUserRepo{env.db}, fakeKYCRepo{env.db})
	if disabled.Enabled() {
		t.Fatal("empty config reports enabled")
	}
}

func TestOAuthSignIn_GivenNewEmail_ThenCreatesVerifiedClient(t *testing.T) {
	env := newTestEnv(t)
	stub := &googleStub{profile: map[string]any{"email": "New.User@Gmail.test", "verified_email": true, "name": "New User"}}
	svc := newTestOAuth(env, stub.server(t).URL)

	u, err := svc.SignIn(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if u.Email != "new.user@gmail.test" || u.Role != authz.RoleClient || !u.Verified || u.PasswordHash != "" {
		t.Fatalf("user = %+v", u)
	}
	if u.KYCID == nil || env.db.kycs[*u.KYCID].Status != models.VerificationDraft {
		t.Fatal("draft kyc not created")
	}

	again, err := svc.SignIn(context.Background(), "auth-code")
	if err != nil || again.ID != u.ID {
		t.Fatalf("second SignIn = %v, %v", again, err)
	}
	if env.db.userCreates != 1 {
		t.Fatalf("user creates = %d", env.db.userCreates)
	}
}

func TestOAuthSignIn_GivenExistingUnverified_ThenMarksVerified(t *testing.T) {
	env := newTestEnv(t)
	existing := env.addUser(t, authz.RoleClient)
	stub := &googleStub{profile: map[string]any{"email": existing.Email, "verified_email": true}}
	svc := newTestOAuth(env, stub.server(t).URL)

	u, err := svc.SignIn(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if u.ID != existing.ID || !env.user(t, existing).Verified {
		t.Fatalf("user = %+v", u)
	}
}

func TestOAuthSignInFailures(t *testing.T) {
	tests := []struct {
		name string
		stub *googleStub
		code string
		want string
	}{
		{name: "no code", stub: &googleStub{}, code: "", want: OAuthMissingCode},
		{name: "exchange rejected", stub: &googleStub{tokenCode: http.StatusBadRequest}, code: "x", want: OAuthTokenExchange},
		{name: "unverified email", stub: &googleStub{profile: map[string]any{"email": "a@b.test", "verified_email": false}}, code: "x", want: OAuthEmailMissing},
		{name: "no email", stub: &googleStub{profile: map[string]any{"verified_email": true}}, code: "x", want: OAuthEmailMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			svc := newTestOAuth(env, tt.stub.server(t).URL)
			_, err := svc.SignIn(context.Background(), tt.code)
			if got := OAuthCode(err); got != tt.want {
				t.Fatalf("code = %q (%v), want %q", got, err, tt.want)
			}
			if env.db.userCreates != 0 {
				t.Fatal("failed sign-in created a user")
			}
		})
	}
}
