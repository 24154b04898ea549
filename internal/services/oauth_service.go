package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"remesas/internal/authz"
	"remesas/internal/logger"
	"remesas/internal/models"
	"remesas/internal/repositories"
)

// Redirect error codes for /login?error=...
const (
	OAuthDenied         = "oauth_denied"
	OAuthMissingCode    = "missing_code"
	OAuthInvalidState   = "invalid_state"
	OAuthTokenExchange  = "token_exchange_failed"
	OAuthUserInfo       = "userinfo_failed"
	OAuthEmailMissing   = "email_unavailable"
	OAuthDatabaseError  = "database_error"
	OAuthSessionError   = "session_error"
	googleUserInfoURL   = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleDefaultScopes = "openid email profile"
)

type OAuthError struct {
	Code string
	Err  error
}

func (e *OAuthError) Error() string { return fmt.Sprintf("oauth %s: %v", e.Code, e.Err) }
func (e *OAuthError) Unwrap() error { return e.Err }

// OAuthCode extracts the redirect code from err, database_error otherwise.
func OAuthCode(err error) string {
	var oe *OAuthError
	if errors.As(err, &oe) {
		return oe.Code
	}
	return OAuthDatabaseError
}

type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

type googleProfile struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

type OAuthService interface {
	Enabled() bool
	AuthCodeURL(state string) string
	// SignIn exchanges the code and returns the local account, creating it
	// on first login. Failures are *OAuthError.
	SignIn(ctx context.Context, code string) (*models.User, error)
}

type oauthService struct {
	cfg         *oauth2.Config
	userInfoURL string
	users       repositories.UserRepository
	kyc         repositories.KYCRepository
}

func NewOAuthService(c GoogleOAuthConfig, users repositories.UserRepository, kyc repositories.KYCRepository) OAuthService {
	ep := c.Endpoint
	if ep.AuthURL == "" {
		ep = google.Endpoint
	}
	info := c.UserInfoURL
	if info == "" {
		info = googleUserInfoURL
	}
	return &oauthService{
		cfg: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURL,
			Endpoint:     ep,
			Scopes:       strings.Fields(googleDefaultScopes),
		},
		userInfoURL: info,
		users:       users,
		kyc:         kyc,
	}
}

func (s *oauthService) Enabled() bool {
	return s.cfg.ClientID != "" && s.cfg.ClientSecret != ""
}

func (s *oauthService) AuthCodeURL(state string) string {
	return s.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (s *oauthService) SignIn(ctx context.Context, code string) (*models.User, error) {
	if code == "" {
		return nil, &OAuthError{Code: OAuthMissingCode, Err: errors.New("empty code")}
	}
	tok, err := s.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, &OAuthError{Code: OAuthTokenExchange, Err: err}
	}

	profile, err := s.fetchProfile(ctx, tok)
	if err != nil {
		return nil, &OAuthError{Code: OAuthUserInfo, Err: err}
	}
	email := normalizeEmail(profile.Email)
	if email == "" || !profile.VerifiedEmail {
		return nil, &OAuthError{Code: OAuthEmailMissing, Err: errors.New("google email missing or unverified")}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, &OAuthError{Code: OAuthDatabaseError, Err: err}
	}
	if user != nil {
		if !user.Verified {
			if err := s.users.MarkVerified(ctx, user.ID); err != nil {
				return nil, &OAuthError{Code: OAuthDatabaseError, Err: err}
			}
			user.Verified = true
		}
		return user, nil
	}

	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	user = &models.User{
		Email:     email,
		Name:      name,
		Role:      authz.RoleClient,
		Verified:  true,
		KYCStatus: models.KYCStatusNone,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, &OAuthError{Code: OAuthDatabaseError, Err: err}
	}
	logger.Info("[auth][google] user created", logger.String("user_id", user.ID.String()))

	k := &models.KYCVerification{UserID: user.ID, FirstName: name, Status: models.VerificationDraft}
	if err := s.kyc.Create(ctx, k); err != nil {
		logger.Warn("[auth][google] draft kyc not created", logger.Err(err))
	} else {
		user.KYCID = &k.ID
	}
	return user, nil
}

func (s *oauthService) fetchProfile(ctx context.Context, tok *oauth2.Token) (*googleProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	var p googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &p, nil
}
