package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"remesas/internal/authz"
)

func newTestResets(env *testEnv) *passwordResetService {
	svc := NewPasswordResetService(fakeUserRepo{env.db}, fakeResetRepo{env.db}, env.emails, env.auth, "https://remesas.test/").(*passwordResetService)
	svc.now = func() time.Time { return env.now }
	return svc
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link %q: %v", link, err)
	}
	if u.Path != "/reset-password" {
		t.Fatalf("link path = %q", u.Path)
	}
	return u.Query().Get("token")
}

func TestRequestReset_GivenUnknownEmail_ThenSilentSuccess(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestResets(env)
	if err := svc.RequestReset(context.Background(), "ghost@example.test"); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}
	if len(env.emails.resets) != 0 || len(env.db.resets) != 0 {
		t.Fatal("unknown email produced a reset")
	}
}

func TestRequestReset_StoresOnlyHash(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestResets(env)
	u := env.addUser(t, authz.RoleClient)

	if err := svc.RequestReset(context.Background(), strings.ToUpper(u.Email)); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}
	link := env.emails.resets[u.Email]
	if !strings.HasPrefix(link, "https://remesas.test/reset-password?token=") {
		t.Fatalf("link = %q", link)
	}
	token := tokenFromLink(t, link)
	stored := env.db.resets[u.ID]
	if stored == nil || stored.TokenHash == token || len(stored.TokenHash) != 64 {
		t.Fatalf("stored = %+v", stored)
	}
	if !stored.ExpiresAt.Equal(env.now.Add(time.Hour)) {
		t.Fatalf("expires = %s", stored.ExpiresAt)
	}
}

func TestResetPassword_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newTestResets(env)
	if _, err := env.users.Register(ctx, registerRequest("reset@example.test")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_ = svc.RequestReset(ctx, "reset@example.test")
	first := tokenFromLink(t, env.emails.resets["reset@example.test"])
	_ = svc.RequestReset(ctx, "reset@example.test")
	second := tokenFromLink(t, env.emails.resets["reset@example.test"])

	// a newer request replaces the older token
	if err := svc.ResetPassword(ctx, first, "another-pass-1"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("stale token err = %v", err)
	}
	if err := svc.ResetPassword(ctx, second, "another-pass-1"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if len(env.db.resets) != 0 {
		t.Fatal("reset rows survived a successful reset")
	}
	if _, err := env.users.Login(ctx, "reset@example.test", "another-pass-1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if err := svc.ResetPassword(ctx, second, "yet-another-2"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("reused token err = %v", err)
	}
}

func TestResetPassword_GivenExpiredToken_ThenInvalid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newTestResets(env)
	u := env.addUser(t, authz.RoleClient)
	_ = svc.RequestReset(ctx, u.Email)
	token := tokenFromLink(t, env.emails.resets[u.Email])

	env.now = env.now.Add(time.Hour)
	if err := svc.ResetPassword(ctx, token, "another-pass-1"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("err = %v", err)
	}
}

func TestResetPasswordValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestResets(env)
	if err := svc.ResetPassword(context.Background(), " ", "another-pass-1"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("empty token err = %v", err)
	}
	if err := svc.ResetPassword(context.Background(), "abc", "short"); KindOf(err) != KindValidation {
		t.Fatalf("short password err = %v", err)
	}
}
