package http

import (
	"net/http"

	"ledger/internal/core"
)

type transferPage struct {
	Title       string
	Accounts    []core.Account
	FromAccount int64
}

func (s *Server) handleNewTransfer(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.Catalog.ListAccounts(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "transfer_form.html", transferPage{
		Title:       "New transfer",
		Accounts:    accounts,
		FromAccount: parseOptionalID(r.URL.Query(), fieldFromAccount),
	})
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		s.renderError(w, r, err)
		return
	}
	t, err := parseTransferForm(r.PostForm, s.ledger.Queries.Location())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if _, err := s.ledger.Transfers.Transfer(r.Context(), t); err != nil {
		s.renderError(w, r, err)
		return
	}
	redirect(w, r, "/accounts/%d", t.FromAccountID)
}
