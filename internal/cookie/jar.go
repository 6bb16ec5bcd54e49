// Package cookie owns the three session cookies the gateway issues.
package cookie

import (
	"net/http"
	"time"

	"github.com/sing3demons/authgateway/internal/config"
)

type Values struct {
	AuthToken    string
	RefreshToken string
	Email        string
}

type Jar struct {
	cfg config.CookieConfig
	now func() time.Time
}

func NewJar(cfg config.CookieConfig) *Jar {
	return &Jar{cfg: cfg, now: time.Now}
}

func (j *Jar) AuthTokenName() string {
	return j.cfg.AuthTokenName
}

// SetSession writes the auth token (the ID token), the refresh token when the
// provider returned one, and the email used to re-derive the secret hash.
func (j *Jar) SetSession(w http.ResponseWriter, idToken, refreshToken, email string) {
	http.SetCookie(w, j.cookie(j.cfg.AuthTokenName, idToken, j.cfg.AuthTokenTTL))
	if refreshToken != "" {
		http.SetCookie(w, j.cookie(j.cfg.RefreshTokenName, refreshToken, j.cfg.RefreshTokenTTL))
	}
	if email != "" {
		http.SetCookie(w, j.cookie(j.cfg.EmailName, email, j.cfg.RefreshTokenTTL))
	}
}

// Clear expires all three cookies.
func (j *Jar) Clear(w http.ResponseWriter) {
	for _, name := range []string{j.cfg.AuthTokenName, j.cfg.RefreshTokenName, j.cfg.EmailName} {
		c := j.cookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func (j *Jar) Read(r *http.Request) Values {
	return Values{
		AuthToken:    value(r, j.cfg.AuthTokenName),
		RefreshToken: value(r, j.cfg.RefreshTokenName),
		Email:        value(r, j.cfg.EmailName),
	}
}

func (j *Jar) cookie(name, val string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    val,
		Path:     j.cfg.Path,
		HttpOnly: true,
		Secure:   j.cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
		c.Expires = j.now().Add(ttl)
	}
	return c
}

func value(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
