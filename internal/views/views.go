// Package views renders the HTML pages served by the auth handlers.
package views

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names.
const (
	PageRegister    = "register"
	PageLogin       = "login"
	PageProfile     = "profile"
	PagePleaseLogin = "please_login"
)

var titles = map[string]string{
	PageRegister:    "Register",
	PageLogin:       "Login",
	PageProfile:     "Profile",
	PagePleaseLogin: "Profile",
}

// Data is the view model shared by every page. Username and Error are
// escaped on output.
type Data struct {
	Title    string
	Username string
	Error    string
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	pages := make(map[string]*template.Template, len(titles))
	for name := range titles {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// Must is like New but panics on a template error.
func Must() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Render writes page with the given status. Output is buffered so a template
// failure yields a bare 500 instead of a truncated page.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data Data) {
	tmpl, ok := r.pages[page]
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if data.Title == "" {
		data.Title = titles[page]
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
