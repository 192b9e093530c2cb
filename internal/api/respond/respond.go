// Package respond writes handler results in the two shapes the storefront
// serves: JSON for programmatic callers and 303 redirects carrying a message
// for browser form posts.
package respond

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/example/ec-storefront/internal/apperr"
)

// LoginPath is where unauthenticated browser requests are sent.
const LoginPath = "/users/login"

// JSON writes data as a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

// WantsJSON reports whether the caller is a programmatic client rather than a
// browser. Reads default to JSON unless the client asks for HTML.
func WantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		return true
	}
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		return false
	}
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

// Message maps err to the text shown to the caller. Errors without a known kind
// are logged and hidden behind a generic message.
func Message(err error) string {
	if apperr.IsKnown(err) {
		return err.Error()
	}
	log.Printf("[API] Internal error: %v", err)
	return "internal server error"
}

// Error writes err for the caller. JSON callers get {"error": ...} with the
// mapped status; browsers are redirected to back with ?error=, or to the login
// page when the request was unauthenticated.
func Error(w http.ResponseWriter, r *http.Request, err error, back string) {
	msg := Message(err)
	if WantsJSON(r) {
		JSON(w, apperr.HTTPStatus(err), map[string]string{"error": msg})
		return
	}
	if errors.Is(err, apperr.ErrUnauthenticated) {
		back = LoginPath
	}
	Redirect(w, r, back, "error", msg)
}

// Done writes a successful mutation. JSON callers get data with status;
// browsers are redirected to next with ?success=.
func Done(w http.ResponseWriter, r *http.Request, status int, data any, next, message string) {
	if WantsJSON(r) {
		JSON(w, status, data)
		return
	}
	Redirect(w, r, next, "success", message)
}

// Redirect sends a 303 to target with key=message appended to its query.
func Redirect(w http.ResponseWriter, r *http.Request, target, key, message string) {
	u, err := url.Parse(target)
	if err != nil || target == "" {
		u = &url.URL{Path: "/"}
	}
	if message != "" {
		q := u.Query()
		q.Set(key, message)
		u.RawQuery = q.Encode()
	}
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}
