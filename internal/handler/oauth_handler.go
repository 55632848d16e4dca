package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"jobtracker/internal/config"
	"jobtracker/internal/errors"
	"jobtracker/internal/service"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	oauthStateCookie  = "oauth_state"
)

// GoogleUser is the part of the userinfo document sign-in needs.
type GoogleUser struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// GoogleProfileFetcher exchanges an authorization code for the Google profile.
type GoogleProfileFetcher interface {
	AuthCodeURL(state string) string
	Fetch(ctx context.Context, code string) (*GoogleUser, error)
}

type googleOAuth struct {
	cfg *oauth2.Config
}

// NewGoogleOAuth builds the Google OAuth client from configuration.
func NewGoogleOAuth(cfg config.GoogleConfig) GoogleProfileFetcher {
	return &googleOAuth{cfg: &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     endpoints.Google,
	}}
}

func (g *googleOAuth) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state)
}

func (g *googleOAuth) Fetch(ctx context.Context, code string) (*GoogleUser, error) {
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	resp, err := g.cfg.Client(ctx, tok).Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status code: %d", resp.StatusCode)
	}

	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &user, nil
}

// OAuthHandler handles Google sign-in.
type OAuthHandler struct {
	authService service.AuthService
	google      GoogleProfileFetcher
}

// NewOAuthHandler creates a new OAuth handler. A nil fetcher disables Google sign-in.
func NewOAuthHandler(authService service.AuthService, google GoogleProfileFetcher) *OAuthHandler {
	return &OAuthHandler{authService: authService, google: google}
}

// GoogleLogin godoc
// @Summary Start Google sign-in
// @Tags auth
// @Success 307
// @Failure 404 {object} errors.ErrorResponse
// @Router /auth/google-login [get]
func (h *OAuthHandler) GoogleLogin(c echo.Context) error {
	if h.google == nil {
		return googleDisabled()
	}

	state := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   c.IsTLS(),
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusTemporaryRedirect, h.google.AuthCodeURL(state))
}

// GoogleResponse godoc
// @Summary Complete Google sign-in
// @Description Exchanges the authorization code, signs the user in and returns a token.
// @Tags auth
// @Produce json
// @Param code query string true "Authorization code"
// @Param state query string true "State"
// @Success 200 {object} service.AuthResult
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/google-response [get]
func (h *OAuthHandler) GoogleResponse(c echo.Context) error {
	if h.google == nil {
		return googleDisabled()
	}

	cookie, err := c.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != c.QueryParam("state") {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid oauth state",
			Code:  "INVALID_STATE",
		})
	}
	c.SetCookie(&http.Cookie{Name: oauthStateCookie, Path: "/", MaxAge: -1})

	profile, err := h.google.Fetch(c.Request().Context(), c.QueryParam("code"))
	if err != nil {
		logger.Warnf("google sign-in: %v", err)
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "google authentication failed",
			Code:  "EXTERNAL_AUTH_FAILED",
		})
	}
	if profile.Email == "" || !profile.EmailVerified {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "google account has no verified e-mail address",
			Code:  "EXTERNAL_AUTH_FAILED",
		})
	}

	result, err := h.authService.ExternalLogin(c.Request().Context(), profile.Email, profile.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func googleDisabled() error {
	return echo.NewHTTPError(http.StatusNotFound, errors.ErrorResponse{
		Error: "google sign-in is not configured",
		Code:  "EXTERNAL_AUTH_DISABLED",
	})
}
