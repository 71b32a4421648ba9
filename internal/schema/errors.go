// Package schema turns ledger backend payloads into validated core types.
//
// Every response body crosses this boundary before the rest of the program
// sees it. Decoding fails closed: a missing required field, a value of the
// wrong JSON type or a value outside its domain rejects the whole payload.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError describes one offending field. Field uses a dotted path
// with indexes for arrays, e.g. "transactions[3].amount".
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e ValidationError) Unwrap() error { return e.Err }

// ValidationErrors is the full list of problems found in a payload.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

// ErrInvalidPayload is matched by errors returned for undecodable bodies.
var ErrInvalidPayload = errors.New("invalid payload")

// Fields returns the offending field paths, handy for HTTP error bodies.
func Fields(err error) []ValidationError {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	var one ValidationError
	if errors.As(err, &one) {
		return []ValidationError{one}
	}
	return nil
}

// collector accumulates errors for one payload. Sub-collectors prefix field
// paths and report into the same root.
type collector struct {
	prefix string
	root   *collector
	errs   ValidationErrors
}

func (c *collector) add(field, reason string, err error) {
	r := c.top()
	r.errs = append(r.errs, ValidationError{Field: c.path(field), Reason: reason, Err: err})
}

func (c *collector) top() *collector {
	if c.root != nil {
		return c.root
	}
	return c
}

func (c *collector) path(field string) string {
	switch {
	case c.prefix == "":
		return field
	case field == "":
		return c.prefix
	case strings.HasPrefix(field, "["):
		return c.prefix + field
	}
	return c.prefix + "." + field
}

func (c *collector) sub(prefix string) *collector {
	return &collector{prefix: c.path(prefix), root: c.top()}
}

func (c *collector) err() error {
	r := c.top()
	if len(r.errs) == 0 {
		return nil
	}
	return r.errs
}

func indexed(i int) string {
	return fmt.Sprintf("[%d]", i)
}
