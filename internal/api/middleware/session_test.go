package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionHandler(seen *string) http.Handler {
	return Session(time.Hour, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = SessionID(r.Context())
	}))
}

func TestSession_IssuesCookie(t *testing.T) {
	var seen string
	rec := httptest.NewRecorder()

	sessionHandler(&seen).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, cookies[0].Value, seen)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSession_ReusesExistingCookie(t *testing.T) {
	var seen string
	existing := "8a6e0804-2bd0-4672-b79d-d97027f9071a"
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: existing})
	rec := httptest.NewRecorder()

	sessionHandler(&seen).ServeHTTP(rec, req)

	assert.Equal(t, existing, seen)
	assert.Empty(t, rec.Result().Cookies())
}

func TestSession_ReplacesMalformedCookie(t *testing.T) {
	var seen string
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cart:*"})
	rec := httptest.NewRecorder()

	sessionHandler(&seen).ServeHTTP(rec, req)

	assert.NotEqual(t, "cart:*", seen)
	assert.Len(t, rec.Result().Cookies(), 1)
}
