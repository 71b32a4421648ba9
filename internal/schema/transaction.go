package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"conti/internal/core"
)

// Wire shapes as produced by the ledger backend. Pointers distinguish an
// absent or null field from a zero value.
type (
	wireAccountRef struct {
		ID          *int64       `json:"id"`
		Description *string      `json:"description"`
		Amount      *json.Number `json:"amount,omitempty"`
		CanDelete   *bool        `json:"canDelete,omitempty"`
	}

	wireTransaction struct {
		ID                    *int64          `json:"id"`
		Type                  *string         `json:"type"`
		Amount                *json.Number    `json:"amount"`
		Description           *string         `json:"description"`
		AdditionalNotes       *string         `json:"additionalNotes"`
		Date                  *string         `json:"date"`
		Bill                  *wireAccountRef `json:"bill"`
		BillFromWhichWithdraw *wireAccountRef `json:"billFromWhichWithdraw"`
	}

	wirePage struct {
		Transactions []json.RawMessage `json:"transactions"`
		TotalCount   *int              `json:"totalCount"`
		PageIndex    *int              `json:"pageIndex"`
		PageSize     *int              `json:"pageSize"`
	}
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseTransaction decodes a stored transaction; the id is required.
func ParseTransaction(data []byte) (core.Transaction, error) {
	var w wireTransaction
	c := &collector{}
	if !decode(data, &w, c) {
		return core.Transaction{}, c.err()
	}
	tx := transactionFromWire(w, true, c)
	if err := c.err(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// ParseNewTransaction decodes a transaction that has not been stored yet.
// An id, if present, is kept so the same shape serves updates.
func ParseNewTransaction(data []byte) (core.Transaction, error) {
	var w wireTransaction
	c := &collector{}
	if !decode(data, &w, c) {
		return core.Transaction{}, c.err()
	}
	tx := transactionFromWire(w, false, c)
	if err := c.err(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// ParseTransactions decodes a JSON array of stored transactions.
func ParseTransactions(data []byte) ([]core.Transaction, error) {
	var raw []json.RawMessage
	c := &collector{}
	if !decode(data, &raw, c) {
		return nil, c.err()
	}
	txs := parseRawTransactions(raw, c)
	if err := c.err(); err != nil {
		return nil, err
	}
	return txs, nil
}

// ParsePage decodes one page of the paginated listing.
func ParsePage(data []byte) (core.Page, error) {
	var w wirePage
	c := &collector{}
	if !decode(data, &w, c) {
		return core.Page{}, c.err()
	}
	if w.Transactions == nil {
		c.add("transactions", "is required", nil)
	}
	p := core.Page{
		Transactions: parseRawTransactions(w.Transactions, c.sub("transactions")),
		TotalCount:   requireNonNegative(w.TotalCount, "totalCount", c),
		PageIndex:    requireNonNegative(w.PageIndex, "pageIndex", c),
		PageSize:     requireNonNegative(w.PageSize, "pageSize", c),
	}
	if err := c.err(); err != nil {
		return core.Page{}, err
	}
	return p, nil
}

// ParseDeleteItems decodes a batch delete request: an array of
// {id, type, amount, bill:{id}, billFromWhichWithdraw?:{id}} objects.
func ParseDeleteItems(data []byte) ([]core.Transaction, error) {
	var raw []json.RawMessage
	c := &collector{}
	if !decode(data, &raw, c) {
		return nil, c.err()
	}
	items := make([]core.Transaction, 0, len(raw))
	for i, item := range raw {
		ic := c.sub(indexed(i))
		var w wireTransaction
		if !decode(item, &w, ic) {
			continue
		}
		items = append(items, deleteItemFromWire(w, ic))
	}
	if err := c.err(); err != nil {
		return nil, err
	}
	return items, nil
}

func deleteItemFromWire(w wireTransaction, c *collector) core.Transaction {
	var tx core.Transaction
	if w.ID == nil || *w.ID <= 0 {
		c.add("id", "is required", nil)
	} else {
		tx.ID = *w.ID
	}
	if w.Type == nil {
		c.add("type", "is required", core.ErrInvalidType)
	} else if typ, err := core.ParseOperationType(*w.Type); err != nil {
		c.add("type", "unknown operation type "+quote(*w.Type), err)
	} else {
		tx.Type = typ
	}
	if w.Amount == nil {
		c.add("amount", "is required", core.ErrInvalidAmount)
	} else if m, err := parseAmount(string(*w.Amount)); err != nil {
		c.add("amount", err.Error(), core.ErrInvalidAmount)
	} else {
		tx.Amount = m
	}
	if w.Bill == nil || w.Bill.ID == nil || *w.Bill.ID <= 0 {
		c.add("bill.id", "is required", core.ErrMissingAccount)
	} else {
		tx.Account = accountRefFromWire(*w.Bill)
	}
	if tx.Type == core.Withdrawal {
		if w.BillFromWhichWithdraw == nil || w.BillFromWhichWithdraw.ID == nil || *w.BillFromWhichWithdraw.ID <= 0 {
			c.add("billFromWhichWithdraw.id", "is required for withdrawals", core.ErrMissingSourceAccount)
		} else {
			ref := accountRefFromWire(*w.BillFromWhichWithdraw)
			tx.SourceAccount = &ref
		}
	}
	return tx
}

func parseRawTransactions(raw []json.RawMessage, c *collector) []core.Transaction {
	txs := make([]core.Transaction, 0, len(raw))
	for i, item := range raw {
		ic := c.sub(indexed(i))
		var w wireTransaction
		if !decode(item, &w, ic) {
			continue
		}
		txs = append(txs, transactionFromWire(w, true, ic))
	}
	return txs
}

func transactionFromWire(w wireTransaction, requireID bool, c *collector) core.Transaction {
	var tx core.Transaction

	switch {
	case w.ID != nil && *w.ID <= 0:
		c.add("id", "must be positive", nil)
	case w.ID != nil:
		tx.ID = *w.ID
	case requireID:
		c.add("id", "is required", nil)
	}

	if w.Type == nil {
		c.add("type", "is required", core.ErrInvalidType)
	} else if typ, err := core.ParseOperationType(*w.Type); err != nil {
		c.add("type", "unknown operation type "+quote(*w.Type), err)
	} else {
		tx.Type = typ
	}

	if w.Amount == nil {
		c.add("amount", "is required", core.ErrInvalidAmount)
	} else if m, err := parseAmount(string(*w.Amount)); err != nil {
		c.add("amount", err.Error(), core.ErrInvalidAmount)
	} else {
		tx.Amount = m
	}

	if w.Date == nil || strings.TrimSpace(*w.Date) == "" {
		c.add("date", "is required", core.ErrInvalidDate)
	} else if d, err := ParseDate(*w.Date); err != nil {
		c.add("date", "unrecognized date "+quote(*w.Date), core.ErrInvalidDate)
	} else {
		tx.Date = d
	}

	if w.Bill == nil || w.Bill.ID == nil || *w.Bill.ID <= 0 {
		c.add("bill.id", "is required", core.ErrMissingAccount)
	} else {
		tx.Account = accountRefFromWire(*w.Bill)
	}

	source := w.BillFromWhichWithdraw
	hasSource := source != nil && source.ID != nil
	switch tx.Type {
	case core.Withdrawal:
		if !hasSource || *source.ID <= 0 {
			c.add("billFromWhichWithdraw.id", "is required for withdrawals", core.ErrMissingSourceAccount)
		} else {
			ref := accountRefFromWire(*source)
			tx.SourceAccount = &ref
		}
	case core.Income, core.Expense:
		if hasSource {
			c.add("billFromWhichWithdraw", "only withdrawals have a source account", core.ErrUnexpectedSourceAccount)
		}
		if w.Description != nil {
			tx.Description = *w.Description
		}
	}

	if w.AdditionalNotes != nil {
		tx.AdditionalNotes = *w.AdditionalNotes
	}
	return tx
}

func accountRefFromWire(w wireAccountRef) core.AccountRef {
	ref := core.AccountRef{ID: *w.ID}
	if w.Description != nil {
		ref.Name = *w.Description
	}
	return ref
}

// ParseDate accepts a calendar date or a timestamp; only the calendar part in
// the value's own offset is kept.
func ParseDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.NewDate(t.Year(), int(t.Month()), t.Day()), nil
		}
	}
	return core.Date{}, core.ErrInvalidDate
}

func parseAmount(s string) (core.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Money{}, errors.New("not a number")
	}
	if d.IsNegative() {
		return core.Money{}, errors.New("must not be negative")
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return core.Money{}, errors.New("more than two decimal places")
	}
	return core.MoneyFromDecimal(d)
}

func requireNonNegative(v *int, field string, c *collector) int {
	if v == nil {
		c.add(field, "is required", nil)
		return 0
	}
	if *v < 0 {
		c.add(field, "must not be negative", nil)
		return 0
	}
	return *v
}

// decode unmarshals and records JSON level failures. Numbers are kept as
// json.Number so amounts never go through float64.
func decode(data []byte, v any, c *collector) bool {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			c.add(typeErr.Field, "expected "+typeErr.Type.String()+", got JSON "+typeErr.Value, ErrInvalidPayload)
			return false
		}
		c.add("", "malformed JSON: "+err.Error(), ErrInvalidPayload)
		return false
	}
	if dec.More() {
		c.add("", "trailing data after JSON value", ErrInvalidPayload)
		return false
	}
	return true
}

func quote(s string) string {
	return `"` + s + `"`
}
