package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const CookieName = "session_token"

var ErrInvalidCookie = errors.New("invalid session cookie")

// Payload is what the cookie carries. The sessions table stays authoritative.
type Payload struct {
	Token     string
	UserID    uuid.UUID
	ExpiresAt time.Time
}

type claims struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Codec signs and verifies cookie payloads with HMAC-SHA256.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

func (c *Codec) Sign(p Payload) (string, error) {
	if p.Token == "" || p.UserID == uuid.Nil {
		return "", errors.New("session payload is incomplete")
	}
	cl := claims{
		Token:  p.Token,
		UserID: p.UserID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(c.now()),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return s, nil
}

// Parse verifies the signature and expiry of a cookie value.
func (c *Codec) Parse(value string) (*Payload, error) {
	return c.parse(value, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
}

// ParseExpired verifies only the signature, so a cookie past its expiry still
// names the session row it was issued for.
func (c *Codec) ParseExpired(value string) (*Payload, error) {
	return c.parse(value, jwt.WithoutClaimsValidation())
}

func (c *Codec) parse(value string, opts ...jwt.ParserOption) (*Payload, error) {
	if value == "" {
		return nil, ErrInvalidCookie
	}
	cl := &claims{}
	_, err := jwt.ParseWithClaims(value, cl, func(t *jwt.Token) (interface{}, error) {
		// принимаем только HMAC
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}
	uid, err := uuid.Parse(cl.UserID)
	if err != nil || cl.Token == "" || cl.ExpiresAt == nil {
		return nil, ErrInvalidCookie
	}
	return &Payload{Token: cl.Token, UserID: uid, ExpiresAt: cl.ExpiresAt.Time}, nil
}

// Cookie builds the http cookie for a signed value.
func Cookie(value string, expiresAt time.Time, secure bool) *http.Cookie {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie expires the session cookie in the browser.
func ClearCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
