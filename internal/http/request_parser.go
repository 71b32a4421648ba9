package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"conti/internal/core"
)

var errBadRequest = errors.New("bad request")

// queryList reads a parameter given either repeated or comma separated.
func queryList(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseInts(q url.Values, key string, lo, hi int) ([]int, error) {
	var out []int
	for _, s := range queryList(q, key) {
		n, err := strconv.Atoi(s)
		if err != nil || n < lo || n > hi {
			return nil, fmt.Errorf("%w: invalid %s value %q", errBadRequest, key, s)
		}
		out = append(out, n)
	}
	return out, nil
}

// ParseFilter builds a transaction filter from the report query string:
// years, months, types, descriptions and accounts.
func ParseFilter(q url.Values) (core.TransactionFilter, error) {
	var (
		f   core.TransactionFilter
		err error
	)
	if f.Years, err = parseInts(q, "years", 1, 9999); err != nil {
		return core.TransactionFilter{}, err
	}
	if f.Months, err = parseInts(q, "months", 1, 12); err != nil {
		return core.TransactionFilter{}, err
	}
	for _, s := range queryList(q, "types") {
		t, err := core.ParseOperationType(s)
		if err != nil {
			return core.TransactionFilter{}, fmt.Errorf("%w: invalid types value %q", errBadRequest, s)
		}
		f.Types = append(f.Types, t)
	}
	f.Descriptions = queryList(q, "descriptions")
	for _, s := range queryList(q, "accounts") {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return core.TransactionFilter{}, fmt.Errorf("%w: invalid accounts value %q", errBadRequest, s)
		}
		f.AccountIDs = append(f.AccountIDs, id)
	}
	return f, nil
}

// ParsePageParams defaults to the first page of defaultSize items.
func ParsePageParams(q url.Values, defaultSize, maxSize int) (pageIndex, pageSize int, err error) {
	pageSize = defaultSize
	if v := strings.TrimSpace(q.Get("pageIndex")); v != "" {
		if pageIndex, err = strconv.Atoi(v); err != nil || pageIndex < 0 {
			return 0, 0, fmt.Errorf("%w: invalid pageIndex %q", errBadRequest, v)
		}
	}
	if v := strings.TrimSpace(q.Get("pageSize")); v != "" {
		if pageSize, err = strconv.Atoi(v); err != nil || pageSize < 1 || pageSize > maxSize {
			return 0, 0, fmt.Errorf("%w: pageSize must be between 1 and %d", errBadRequest, maxSize)
		}
	}
	return pageIndex, pageSize, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, s)
	}
	return id, nil
}

func parseYear(s string) (int, error) {
	y, err := strconv.Atoi(s)
	if err != nil || y < 1 || y > 9999 {
		return 0, fmt.Errorf("%w: invalid year %q", errBadRequest, s)
	}
	return y, nil
}
