package handlers

import (
	"net/http"
	"strings"

	"github.com/webserv/sessionauth/internal/form"
)

// User-facing form messages. None of them include submitted input.
const (
	msgFieldsRequired     = "Both fields are required"
	msgUsernameTaken      = "Username already exists"
	msgInvalidCredentials = "Invalid username or password"
	msgPasswordTooLong    = "Password is too long"
)

// isSubmission reports whether r carries a form submission.
func isSubmission(r *http.Request) bool {
	return r.Method == http.MethodPost
}

// credentials extracts the username and password fields. ok is false when
// either is empty.
func credentials(r *http.Request) (username, password string, ok bool) {
	values := form.Parse(r)
	username = strings.TrimSpace(values.Get("username"))
	password = values.Get("password")
	return username, password, username != "" && password != ""
}

func redirect(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusFound)
}

// writeServerError answers with a bare 500 and no page content.
func writeServerError(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
