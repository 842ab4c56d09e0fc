package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"ledger/internal/core"
	"ledger/internal/services"
)

// Form field names shared with the templates.
const (
	fieldDirection   = "type"
	fieldAmount      = "amount"
	fieldDescription = "description"
	fieldAccountID   = "account_id"
	fieldNotes       = "notes"
	fieldTimestamp   = "timestamp"
	fieldTags        = "tags"
	// fieldTagsPresent marks a form that rendered the tag selector, so an
	// empty selection means "clear" rather than "leave alone".
	fieldTagsPresent = "tags_present"
	fieldName        = "name"
	fieldFromAccount = "from_account_id"
	fieldToAccount   = "to_account_id"
	fieldStartDate   = "startDate"
	fieldEndDate     = "endDate"
)

// transactionInput is a normalised transaction form.
type transactionInput struct {
	Amount      core.Money
	Description string
	AccountID   int64
	Notes       string
	Timestamp   *time.Time
	TagIDs      []int64
	TagsPresent bool
}

// pathID reads the {id} route variable.
func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", core.ErrInvalidInput, raw)
	}
	return id, nil
}

// parseID parses a required positive id field.
func parseID(form url.Values, field string) (int64, error) {
	raw := strings.TrimSpace(form.Get(field))
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", core.ErrInvalidInput, field)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", core.ErrInvalidInput, field, raw)
	}
	return id, nil
}

// parseOptionalID returns 0 when field is absent or not a positive integer.
func parseOptionalID(form url.Values, field string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(form.Get(field)), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// parseTagIDs normalises the tag selector into a set of ids. The field may
// arrive once or many times, and each value may hold a comma separated
// list.
func parseTagIDs(form url.Values) ([]int64, error) {
	var ids []int64
	for _, v := range form[fieldTags] {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("%w: invalid tag id %q", core.ErrInvalidInput, part)
			}
			ids = append(ids, id)
		}
	}
	return core.DedupeIDs(ids), nil
}

// parseTransactionForm reads a new or edit transaction form. A blank
// timestamp yields nil.
func parseTransactionForm(form url.Values, loc *time.Location) (transactionInput, error) {
	amount, err := core.SignedAmount(form.Get(fieldDirection), form.Get(fieldAmount))
	if err != nil {
		return transactionInput{}, err
	}
	accountID, err := parseID(form, fieldAccountID)
	if err != nil {
		return transactionInput{}, err
	}
	tagIDs, err := parseTagIDs(form)
	if err != nil {
		return transactionInput{}, err
	}

	in := transactionInput{
		Amount:      amount,
		Description: sanitizeInput(form.Get(fieldDescription)),
		AccountID:   accountID,
		Notes:       sanitizeInput(form.Get(fieldNotes)),
		TagIDs:      tagIDs,
		TagsPresent: form.Has(fieldTagsPresent) || len(tagIDs) > 0,
	}
	if raw := strings.TrimSpace(form.Get(fieldTimestamp)); raw != "" {
		ts, err := core.ParseFormInput(raw, loc)
		if err != nil {
			return transactionInput{}, err
		}
		in.Timestamp = &ts
	}
	return in, nil
}

func (in transactionInput) create() services.NewTransaction {
	nt := services.NewTransaction{
		Amount:      in.Amount,
		Description: in.Description,
		AccountID:   in.AccountID,
		Notes:       in.Notes,
		TagIDs:      in.TagIDs,
	}
	if in.Timestamp != nil {
		nt.Timestamp = *in.Timestamp
	}
	return nt
}

func (in transactionInput) update() services.TransactionUpdate {
	return services.TransactionUpdate{
		Amount:      in.Amount,
		Description: in.Description,
		AccountID:   in.AccountID,
		Notes:       in.Notes,
		Timestamp:   in.Timestamp,
		TagIDs:      in.TagIDs,
		ReplaceTags: in.TagsPresent,
	}
}

func parseTransferForm(form url.Values, loc *time.Location) (services.Transfer, error) {
	from, err := parseID(form, fieldFromAccount)
	if err != nil {
		return services.Transfer{}, err
	}
	to, err := parseID(form, fieldToAccount)
	if err != nil {
		return services.Transfer{}, err
	}
	magnitude, err := core.ParseMagnitude(form.Get(fieldAmount))
	if err != nil {
		return services.Transfer{}, err
	}

	t := services.Transfer{FromAccountID: from, ToAccountID: to, Magnitude: magnitude}
	if raw := strings.TrimSpace(form.Get(fieldTimestamp)); raw != "" {
		if t.Timestamp, err = core.ParseFormInput(raw, loc); err != nil {
			return services.Transfer{}, err
		}
	}
	return t, nil
}

// parseName reads the name field of the account and tag forms.
func parseName(form url.Values) string {
	return sanitizeInput(form.Get(fieldName))
}

func parseForm(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: malformed form: %v", core.ErrInvalidInput, err)
	}
	return nil
}
