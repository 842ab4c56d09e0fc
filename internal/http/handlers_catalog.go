package http

import (
	"context"
	"net/http"
)

type namePage struct {
	Title  string
	Action string
	Label  string
}

var (
	accountForm = namePage{Title: "New account", Action: "/accounts/new", Label: "Account name"}
	tagForm     = namePage{Title: "New tag", Action: "/tags/new", Label: "Tag name"}
)

func (s *Server) handleNewAccount(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "name_form.html", accountForm)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	s.createNamed(w, r, s.ledger.Catalog.CreateAccount, "/accounts/%d")
}

func (s *Server) handleNewTag(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "name_form.html", tagForm)
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	s.createNamed(w, r, s.ledger.Catalog.CreateTag, "/tags/%d")
}

// createNamed handles the single field account and tag forms and redirects
// to the new entity's page.
func (s *Server) createNamed(w http.ResponseWriter, r *http.Request, create func(context.Context, string) (int64, error), location string) {
	if err := parseForm(r); err != nil {
		s.renderError(w, r, err)
		return
	}
	id, err := create(r.Context(), parseName(r.PostForm))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	redirect(w, r, location, id)
}
