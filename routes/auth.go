package routes

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mcjars/registry/apimiddleware"
	"github.com/mcjars/registry/apiresponse"
	"github.com/mcjars/registry/models"
)

const oauthStateCookie = "mcjars_oauth_state"
const sessionCookie = "mcjars_session"

// GithubAuthorize handles GET /api/github: issues a CSRF state nonce in
// a short-lived cookie and redirects to GitHub's authorize page.
func (d *Deps) GithubAuthorize(c echo.Context) error {
	state, err := randomState()
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		Domain:   d.AppCookieDomain,
		MaxAge:   600,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.Redirect(http.StatusTemporaryRedirect, d.Github.AuthorizeURL(state))
}

// GithubCallback handles GET /api/github/callback: validates the state
// nonce, exchanges the code, upserts the user, opens a session, and
// redirects the browser back to the frontend with the session cookie
// set.
func (d *Deps) GithubCallback(c echo.Context) error {
	ctx := c.Request().Context()

	cookie, err := c.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != c.QueryParam("state") {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid oauth state")
	}
	c.SetCookie(&http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", Domain: d.AppCookieDomain, MaxAge: -1})

	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing code")
	}

	ghUser, email, err := d.Github.Exchange(ctx, code)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "github exchange failed")
	}

	user, err := models.NewUser(ctx, d.Pool.Write(), ghUser.ID, ghUser.Name, email, ghUser.Login)
	if err != nil {
		return err
	}

	ip, _ := apimiddleware.ClientIP(c)
	_, secret, err := models.NewUserSession(ctx, d.Pool.Write(), user.ID, ip, c.Request().UserAgent())
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    secret,
		Path:     "/",
		Domain:   d.AppCookieDomain,
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.Redirect(http.StatusTemporaryRedirect, d.AppFrontendURL)
}

// Me handles GET /api/me: the signed-in user's public profile,
// resolved from the session cookie apimiddleware.Base parsed.
func (d *Deps) Me(c echo.Context) (apiresponse.Response, error) {
	session, ok := apimiddleware.SessionCookie(c)
	if !ok {
		return apiresponse.Response{}, apiresponse.Unauthorized("not signed in")
	}

	user, _, err := models.UserBySession(c.Request().Context(), d.Pool.Read(), session)
	if err != nil {
		return apiresponse.Response{}, err
	}
	if user == nil {
		return apiresponse.Response{}, apiresponse.Unauthorized("session expired")
	}

	return apiresponse.JSON(user.ToAPI(false)), nil
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
