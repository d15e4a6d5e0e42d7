package middlewares

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"

	"github.com/mbolis/event-registration/httpx"
	"github.com/mbolis/event-registration/log"
)

// Admin middleware to check for the 'admin' role in an OAuth token.
func Admin(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(oauth.Authorize(secret, nil), admin).Handler(next)
	}
}

func admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)

		isAdmin := false
		if rolesClaim, ok := claims["roles"]; ok {
			for _, role := range strings.Split(rolesClaim, ",") {
				if role == httpx.RoleAdmin {
					isAdmin = true
					break
				}
			}
		}

		if !isAdmin {
			httpx.LogStatus(w, r, http.StatusForbidden, log.DebugLevel, "auth.admin_role")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CookieAuth lets browsers authenticate GET requests with the access_token
// cookie, refreshing it through refresh_token when it has expired. Requests
// that already carry an Authorization header pass through untouched.
// Without usable cookies the client is redirected to loginPath, or, when
// loginPath is empty, the request goes on and is rejected downstream.
func CookieAuth(bearerServer *oauth.BearerServer, loginPath string) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || r.Header.Get("authorization") != "" {
				h.ServeHTTP(w, r)
				return
			}

			token, err := r.Cookie("access_token")
			if err != nil && !errors.Is(err, http.ErrNoCookie) {
				httpx.LogStatus(w, r, http.StatusInternalServerError, log.ErrorLevel, "auth.cookie.access_token")
				return
			}
			if err == nil {
				r.Header.Set("authorization", "Bearer "+token.Value)
				buf := httpx.NewResponseBuffer()
				h.ServeHTTP(buf, r)
				if buf.Status() != http.StatusUnauthorized {
					buf.Flush(w)
					return
				}
				r.Header.Del("authorization")
			}

			unauthorized := func() {
				if loginPath == "" {
					h.ServeHTTP(w, r)
					return
				}
				w.Header().Set("location", loginPath+"?goto="+url.QueryEscape(r.RequestURI))
				w.WriteHeader(http.StatusTemporaryRedirect)
			}

			// token was empty or unauthorized
			refreshToken, err := r.Cookie("refresh_token")
			if err != nil {
				if !errors.Is(err, http.ErrNoCookie) {
					httpx.LogStatus(w, r, http.StatusInternalServerError, log.ErrorLevel, "auth.cookie.refresh_token")
					return
				}
				unauthorized()
				return
			}

			resp, err := Refresh(bearerServer, refreshToken.Value)
			if err != nil {
				httpx.LogInternalError(w, r, "auth.refresh", err)
				return
			}
			if resp.Status() == http.StatusUnauthorized {
				http.SetCookie(w, &http.Cookie{
					Path:     "/",
					Name:     "refresh_token",
					Value:    "",
					MaxAge:   -1,
					SameSite: http.SameSiteStrictMode,
				})
				unauthorized()
				return
			}
			if resp.Status() != http.StatusOK {
				httpx.LogStatus(w, r, resp.Status(), log.WarnLevel, "auth.refresh.status")
				return
			}

			var tokens struct {
				AccessToken  string  `json:"access_token"`
				RefreshToken string  `json:"refresh_token"`
				ExpiresIn    float64 `json:"expires_in"`
			}
			if err = json.Unmarshal(resp.Body(), &tokens); err != nil {
				httpx.LogInternalError(w, r, "auth.refresh.parse", err)
				return
			}

			http.SetCookie(w, &http.Cookie{
				Path:     "/",
				Name:     "access_token",
				Value:    tokens.AccessToken,
				MaxAge:   int(tokens.ExpiresIn),
				HttpOnly: true,
				SameSite: http.SameSiteStrictMode,
			})
			http.SetCookie(w, &http.Cookie{
				Path:     "/",
				Name:     "refresh_token",
				Value:    tokens.RefreshToken,
				MaxAge:   int(httpx.RefreshTTL.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteStrictMode,
			})

			r.Header.Set("authorization", "Bearer "+tokens.AccessToken)
			h.ServeHTTP(w, r)
		})
	}
}

// Refresh runs the refresh_token grant against the bearer server in memory.
func Refresh(bearerServer *oauth.BearerServer, refreshToken string) (httpx.ResponseBuffer, error) {
	body := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}.Encode()
	req, err := http.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("content-length", strconv.Itoa(len(body)))

	resp := httpx.NewResponseBuffer()
	bearerServer.UserCredentials(resp, req)
	return resp, nil
}

