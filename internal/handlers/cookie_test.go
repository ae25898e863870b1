package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCookieValue(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   string
	}{
		{"single", []string{"session_id=abc"}, "abc"},
		{"leading space pair", []string{"theme=dark; session_id=abc"}, "abc"},
		{"surrounding whitespace", []string{"  session_id = abc ;theme=dark"}, "abc"},
		{"quoted", []string{`session_id="abc"`}, "abc"},
		{"prefix name", []string{"xsession_id=nope; session_id=abc"}, "abc"},
		{"first wins", []string{"session_id=one; session_id=two"}, "one"},
		{"multiple headers", []string{"a=1", "session_id=abc"}, "abc"},
		{"missing", []string{"theme=dark"}, ""},
		{"no equals", []string{"session_id"}, ""},
		{"none", nil, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for _, h := range tc.header {
				req.Header.Add("Cookie", h)
			}
			assert.Equal(t, tc.want, cookieValue(req, SessionCookieName))
		})
	}
}

func TestSecureCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	setSessionCookie(rec, "tok", true)
	assert.Equal(t, "session_id=tok; Path=/; Secure", rec.Header().Get("Set-Cookie"))
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	Healthz(pingerFunc(func(context.Context) error { return nil }))(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	Healthz(pingerFunc(func(context.Context) error { return errors.New("down") }))(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
