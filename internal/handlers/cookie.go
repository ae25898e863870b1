package handlers

import (
	"net/http"
	"strings"
	"time"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session_id"

// cookieValue returns the value of the named cookie from the raw Cookie
// headers. Each pair is trimmed and matched on its bare name; the first
// match wins. Pairs without '=' are skipped.
func cookieValue(r *http.Request, name string) string {
	for _, line := range r.Header.Values("Cookie") {
		for _, pair := range strings.Split(line, ";") {
			key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok || strings.TrimSpace(key) != name {
				continue
			}
			return strings.Trim(strings.TrimSpace(value), `"`)
		}
	}
	return ""
}

func setSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:   SessionCookieName,
		Value:  token,
		Path:   "/",
		Secure: secure,
	})
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:    SessionCookieName,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
		Secure:  secure,
	})
}
