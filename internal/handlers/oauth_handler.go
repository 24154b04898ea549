package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"remesas/internal/logger"
	"remesas/internal/services"
	"remesas/internal/session"
	"remesas/internal/utils"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 10 * 60
	oauthCookiePath  = "/api/auth/google"
)

type OAuthHandler struct {
	oauth     services.OAuthService
	sessions  services.SessionService
	publicURL string
	secure    bool
}

func NewOAuthHandler(oauth services.OAuthService, sessions services.SessionService, publicURL string, secureCookies bool) *OAuthHandler {
	return &OAuthHandler{oauth: oauth, sessions: sessions, publicURL: publicURL, secure: secureCookies}
}

func (h *OAuthHandler) fail(c *gin.Context, code string, err error) {
	logger.Warn("[auth][google] sign-in failed", logger.String("code", code), logger.Err(err))
	c.Redirect(http.StatusFound, h.publicURL+"/login?error="+url.QueryEscape(code))
}

func (h *OAuthHandler) setState(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    value,
		Path:     oauthCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// @Summary      Iniciar sesión con Google
// @Tags         Auth
// @Success      302
// @Router       /api/auth/google [get]
func (h *OAuthHandler) Start(c *gin.Context) {
	if !h.oauth.Enabled() {
		respondError(c, "[auth][google]", services.ErrOAuthNotConfigured)
		return
	}
	state, err := utils.NewToken(16)
	if err != nil {
		respondError(c, "[auth][google] state", err)
		return
	}
	h.setState(c, state, oauthStateMaxAge)
	c.Redirect(http.StatusFound, h.oauth.AuthCodeURL(state))
}

// @Summary      Callback de Google
// @Description  Redirige a /dashboard o a /login?error=<código>
// @Tags         Auth
// @Param        code   query  string  false  "Código de autorización"
// @Param        state  query  string  false  "Estado"
// @Param        error  query  string  false  "Error devuelto por Google"
// @Success      302
// @Router       /api/auth/google/callback [get]
func (h *OAuthHandler) Callback(c *gin.Context) {
	expected, _ := c.Cookie(oauthStateCookie)
	h.setState(c, "", -1)

	if e := c.Query("error"); e != "" {
		h.fail(c, services.OAuthDenied, nil)
		return
	}
	code := c.Query("code")
	if code == "" {
		h.fail(c, services.OAuthMissingCode, nil)
		return
	}
	if expected == "" || c.Query("state") != expected {
		h.fail(c, services.OAuthInvalidState, nil)
		return
	}

	user, err := h.oauth.SignIn(c.Request.Context(), code)
	if err != nil {
		h.fail(c, services.OAuthCode(err), err)
		return
	}
	value, expiresAt, err := h.sessions.Create(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, services.OAuthSessionError, err)
		return
	}
	http.SetCookie(c.Writer, session.Cookie(value, expiresAt, h.secure))
	logger.Info("[auth][google] signed in", logger.String("user_id", user.ID.String()))
	c.Redirect(http.StatusFound, h.publicURL+"/dashboard")
}
