package http

import (
	"net/http"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

// ledgerPage backs index.html, account.html and tag.html.
type ledgerPage struct {
	Title    string
	Path     string
	Account  core.Account
	Tag      core.Tag
	Accounts []core.Account
	Tags     []core.Tag
	View     core.LedgerView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := ledgerPage{Title: "Ledger", Path: "/"}

	var err error
	if page.Accounts, err = s.ledger.Catalog.ListAccounts(ctx); err != nil {
		s.renderError(w, r, err)
		return
	}
	if page.Tags, err = s.ledger.Catalog.ListTags(ctx); err != nil {
		s.renderError(w, r, err)
		return
	}
	s.renderLedger(w, r, core.AllScope(), "index.html", page)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	account, err := s.ledger.Catalog.GetAccount(r.Context(), id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	page := ledgerPage{Title: account.Name, Path: r.URL.Path, Account: account}
	s.renderLedger(w, r, core.ByAccount(id), "account.html", page)
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	tag, err := s.ledger.Catalog.GetTag(r.Context(), id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	page := ledgerPage{Title: tag.Name, Path: r.URL.Path, Tag: tag}
	s.renderLedger(w, r, core.ByTag(id), "tag.html", page)
}

// renderLedger resolves the requested range, loads the view of scope and
// renders it with page.
func (s *Server) renderLedger(w http.ResponseWriter, r *http.Request, scope core.Scope, name string, page ledgerPage) {
	ctx := r.Context()
	q := r.URL.Query()

	rng, err := s.ledger.Queries.ResolveRange(q.Get(fieldStartDate), q.Get(fieldEndDate))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	view, err := s.ledger.Queries.View(ctx, scope, rng)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	page.View = view

	applog.FromContext(ctx).DebugContext(ctx, "Ledger view loaded",
		applog.FieldScope, scope.Key(),
		applog.FieldRangeStart, rng.StartDate(),
		applog.FieldRangeEnd, rng.EndDate(),
		"rows", len(view.Rows))

	s.render(w, r, http.StatusOK, name, page)
}
