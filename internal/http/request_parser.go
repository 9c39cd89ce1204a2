// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// year query parameters, budget keys taken from the path, JSON bodies and
// amounts sent either as strings or as numbers.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wishbudget/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// errBadRequest marks malformed input: unreadable JSON, non-numeric query
// parameters, unknown budget types in the path.
var errBadRequest = errors.New("bad request")

func badRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// ParseYear reads the "year" query parameter, defaulting to the year of now.
func ParseYear(query url.Values, now time.Time) (int, error) {
	v := strings.TrimSpace(query.Get("year"))
	if v == "" {
		return now.Year(), nil
	}
	year, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequestf("year %q is not a number", v)
	}
	return year, nil
}

// ParseBudgetType resolves a path segment to a budget type. "custom" is
// accepted as an ASCII alias of the custom type.
func ParseBudgetType(s string) (core.BudgetType, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "custom") {
		return core.BudgetCustom, nil
	}
	t, err := core.ParseBudgetType(s)
	if err != nil {
		return "", badRequestf("unknown budget type %q", s)
	}
	return t, nil
}

// ParseGoalKey builds the key addressed by a /budgets/{type} route: user
// and type from the path, year and name from the query.
func ParseGoalKey(r *http.Request, now time.Time) (core.GoalKey, error) {
	budgetType, err := ParseBudgetType(r.PathValue("type"))
	if err != nil {
		return core.GoalKey{}, err
	}
	year, err := ParseYear(r.URL.Query(), now)
	if err != nil {
		return core.GoalKey{}, err
	}
	return core.GoalKey{
		UserID: sanitizeInput(r.PathValue("user")),
		Type:   budgetType,
		Year:   year,
		Name:   sanitizeInput(r.URL.Query().Get("name")),
	}, nil
}

// DecodeJSON reads a bounded JSON body into dst, rejecting unknown fields
// and trailing data.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequestf("empty request body")
		}
		return badRequestf("invalid JSON body: %v", err)
	}
	if dec.More() {
		return badRequestf("request body must hold a single JSON object")
	}
	return nil
}

// Amount is a money value as sent by clients: a decimal string ("12,50",
// "12.50 €"), a JSON number (12.5), or null. An empty string is the same
// as null.
type Amount struct {
	raw json.RawMessage
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	a.raw = append(a.raw[:0], data...)
	return nil
}

// Set reports whether the field was present in the body, null included.
func (a Amount) Set() bool {
	return len(a.raw) > 0
}

// Money parses the amount. nil means "no amount".
func (a Amount) Money() (*core.Money, error) {
	raw := bytes.TrimSpace(a.raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, core.ErrInvalidAmount
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, core.ErrInvalidAmount
		}
		s = n.String()
	}
	return core.ParseOptionalAmount(s)
}

// limitRequest is the body of PUT /budgets/{type}/limit.
type limitRequest struct {
	Limit Amount `json:"limit"`
}

// customGoalRequest is the body of POST /budgets/custom.
type customGoalRequest struct {
	Name        string `json:"name"`
	Year        int    `json:"year"`
	Limit       Amount `json:"limit"`
	RecipientID string `json:"recipient_id"`
	ListSlug    string `json:"list_slug"`
}

// toGoal builds the goal owned by userID. A zero year means the current one.
func (req customGoalRequest) toGoal(userID string, now time.Time) (core.BudgetGoal, error) {
	limit, err := req.Limit.Money()
	if err != nil {
		return core.BudgetGoal{}, err
	}
	year := req.Year
	if year == 0 {
		year = now.Year()
	}
	return core.BudgetGoal{
		Key: core.GoalKey{
			UserID: userID,
			Type:   core.BudgetCustom,
			Year:   year,
			Name:   sanitizeInput(req.Name),
		},
		Limit:       limit,
		RecipientID: sanitizeInput(req.RecipientID),
		ListSlug:    sanitizeInput(req.ListSlug),
	}, nil
}

// paidAmountRequest is the body of PATCH /claims/{id}/paid-amount.
type paidAmountRequest struct {
	PaidAmount Amount `json:"paid_amount"`
}

// externalGiftRequest is the body of POST /external-gifts.
type externalGiftRequest struct {
	Title         string `json:"title"`
	RecipientID   string `json:"recipient_id"`
	RecipientName string `json:"recipient_name"`
	PaidAmount    Amount `json:"paid_amount"`
	Theme         string `json:"theme"`
	PurchaseDate  string `json:"purchase_date"`
}

// toRow builds the gift logged by userID. A missing purchase date means
// today; a missing amount means zero.
func (req externalGiftRequest) toRow(userID string, now time.Time) (core.ExternalGiftRow, error) {
	paid, err := req.PaidAmount.Money()
	if err != nil {
		return core.ExternalGiftRow{}, err
	}

	date := core.DateOf(now)
	if s := strings.TrimSpace(req.PurchaseDate); s != "" {
		if date, err = core.ParseDate(s); err != nil {
			return core.ExternalGiftRow{}, err
		}
	}

	row := core.ExternalGiftRow{
		UserID:        userID,
		Title:         sanitizeInput(req.Title),
		RecipientName: sanitizeInput(req.RecipientName),
		PaidAmount:    core.ValueOr(paid, core.Money{}),
		Theme:         core.ParseTheme(req.Theme),
		PurchaseDate:  date,
	}
	if id := sanitizeInput(req.RecipientID); id != "" {
		row.Recipient = &core.Profile{ID: id, DisplayName: row.RecipientName}
	}
	return row, nil
}
