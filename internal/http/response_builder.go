package http

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

type errorPage struct {
	Status  int
	Message string
}

// templateFuncs exposes the display formatters to templates, bound to the
// ledger time zone.
func templateFuncs(loc *time.Location) template.FuncMap {
	return template.FuncMap{
		"amount":    core.FormatAmount,
		"magnitude": core.MagnitudeInput,
		"datetime":  func(t time.Time) string { return core.FormatDisplayDatetime(t, loc) },
		"inputTime": func(t time.Time) string { return core.FormatForInput(t, loc) },
		"negative":  func(m core.Money) bool { return m.Cents < 0 },
	}
}

// statusFor maps a service error to a response status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidInput), errors.Is(err, core.ErrInvalidReference):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// render executes name into a buffer first so that a template failure
// still produces a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			"template", name,
			applog.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderError logs err once and renders the error page with its status.
// Internal errors are not echoed to the client.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := applog.FromContext(r.Context())

	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
		msg = "Something went wrong. Please try again."
	} else {
		logger.InfoContext(r.Context(), "Request rejected",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, status,
			applog.FieldError, err)
	}

	s.render(w, r, status, "error.html", errorPage{Status: status, Message: msg})
}

// redirect answers a successful form post.
func redirect(w http.ResponseWriter, r *http.Request, format string, args ...any) {
	http.Redirect(w, r, fmt.Sprintf(format, args...), http.StatusSeeOther)
}
