package http

import (
	"net/http"

	"ledger/internal/core"
)

// transactionPage backs transaction_form.html for both new and edit.
type transactionPage struct {
	Title     string
	Action    string
	IsNew     bool
	Form      core.TransactionForm
	Direction core.Direction
}

func (s *Server) handleNewTransaction(w http.ResponseWriter, r *http.Request) {
	accountID := parseOptionalID(r.URL.Query(), fieldAccountID)
	form, err := s.ledger.Queries.NewTransactionForm(r.Context(), accountID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "transaction_form.html", transactionPage{
		Title:     "New transaction",
		Action:    "/transactions/new",
		IsNew:     true,
		Form:      form,
		Direction: core.Expense,
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		s.renderError(w, r, err)
		return
	}
	in, err := parseTransactionForm(r.PostForm, s.ledger.Queries.Location())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if _, err := s.ledger.Transactions.Create(r.Context(), in.create()); err != nil {
		s.renderError(w, r, err)
		return
	}
	redirect(w, r, "/accounts/%d", in.AccountID)
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	form, err := s.ledger.Queries.GetTransaction(r.Context(), id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "transaction_form.html", transactionPage{
		Title:     "Edit transaction",
		Action:    r.URL.Path,
		Form:      form,
		Direction: form.Transaction.Amount.Direction(),
	})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if err := parseForm(r); err != nil {
		s.renderError(w, r, err)
		return
	}
	in, err := parseTransactionForm(r.PostForm, s.ledger.Queries.Location())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if err := s.ledger.Transactions.Update(r.Context(), id, in.update()); err != nil {
		s.renderError(w, r, err)
		return
	}
	redirect(w, r, "/transactions/%d", id)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	accountID, err := s.ledger.Transactions.Delete(r.Context(), id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	redirect(w, r, "/accounts/%d", accountID)
}
