package schema

import (
	"encoding/json"
	"strconv"
	"strings"

	"conti/internal/core"
)

// Descriptions is the backend's split list of category labels.
type Descriptions struct {
	Earnings []core.Description `json:"earningDescription"`
	Expenses []core.Description `json:"expenseDescription"`
}

// All returns earnings followed by expenses.
func (d Descriptions) All() []core.Description {
	out := make([]core.Description, 0, len(d.Earnings)+len(d.Expenses))
	out = append(out, d.Earnings...)
	return append(out, d.Expenses...)
}

type (
	wireDescription struct {
		ID          *int64  `json:"id"`
		Type        *string `json:"type"`
		Description *string `json:"description"`
		Occurrences *int    `json:"occurrences"`
	}

	wireDescriptions struct {
		Earning []json.RawMessage `json:"earningDescription"`
		Expense []json.RawMessage `json:"expenseDescription"`
	}

	wireLogin struct {
		Token *string `json:"token"`
	}

	wireUserInfo struct {
		PersonID *int64  `json:"person_id"`
		Email    *string `json:"email"`
		Username *string `json:"username"`
		Role     *string `json:"role"`
		Provider *string `json:"provider"`
	}
)

// ParseAccounts decodes the GET /totals response.
func ParseAccounts(data []byte) ([]core.Account, error) {
	return parseAccounts(data, true)
}

// ParseAccountUpdates decodes an update-totals request. Accounts without an
// id are new.
func ParseAccountUpdates(data []byte) ([]core.Account, error) {
	return parseAccounts(data, false)
}

func parseAccounts(data []byte, requireID bool) ([]core.Account, error) {
	var raw []json.RawMessage
	c := &collector{}
	if !decode(data, &raw, c) {
		return nil, c.err()
	}
	accounts := make([]core.Account, 0, len(raw))
	for i, item := range raw {
		ic := c.sub(indexed(i))
		var w wireAccountRef
		if decode(item, &w, ic) {
			accounts = append(accounts, accountFromWire(w, requireID, ic))
		}
	}
	if err := c.err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

func accountFromWire(w wireAccountRef, requireID bool, c *collector) core.Account {
	var a core.Account
	switch {
	case w.ID != nil && *w.ID > 0:
		a.ID = *w.ID
	case w.ID != nil && *w.ID < 0, requireID:
		c.add("id", "is required", core.ErrMissingAccount)
	}
	if w.Description == nil || strings.TrimSpace(*w.Description) == "" {
		c.add("description", "is required", nil)
	} else {
		a.Name = *w.Description
	}
	if w.Amount == nil {
		c.add("amount", "is required", core.ErrInvalidAmount)
	} else if m, err := core.MoneyFromString(string(*w.Amount)); err != nil {
		c.add("amount", "not a number", core.ErrInvalidAmount)
	} else {
		// Balances may be negative.
		a.Balance = m
	}
	if w.CanDelete != nil {
		a.CanDelete = *w.CanDelete
	}
	return a
}

// ParseDescriptions decodes the GET /description-list response.
func ParseDescriptions(data []byte) (Descriptions, error) {
	var w wireDescriptions
	c := &collector{}
	if !decode(data, &w, c) {
		return Descriptions{}, c.err()
	}
	out := Descriptions{
		Earnings: parseDescriptionList(w.Earning, core.Income, c.sub("earningDescription")),
		Expenses: parseDescriptionList(w.Expense, core.Expense, c.sub("expenseDescription")),
	}
	if err := c.err(); err != nil {
		return Descriptions{}, err
	}
	return out, nil
}

func parseDescriptionList(raw []json.RawMessage, want core.OperationType, c *collector) []core.Description {
	out := make([]core.Description, 0, len(raw))
	for i, item := range raw {
		ic := c.sub(indexed(i))
		var w wireDescription
		if decode(item, &w, ic) {
			d := descriptionFromWire(w, ic)
			if d.Type != "" && d.Type != want {
				ic.add("type", "expected "+string(want), core.ErrInvalidType)
			}
			out = append(out, d)
		}
	}
	return out
}

// ParseDescription decodes a single description, as returned by
// POST /update-description.
func ParseDescription(data []byte) (core.Description, error) {
	var w wireDescription
	c := &collector{}
	if !decode(data, &w, c) {
		return core.Description{}, c.err()
	}
	d := descriptionFromWire(w, c)
	if err := c.err(); err != nil {
		return core.Description{}, err
	}
	return d, nil
}

func descriptionFromWire(w wireDescription, c *collector) core.Description {
	var d core.Description
	if w.ID == nil || *w.ID <= 0 {
		c.add("id", "is required", nil)
	} else {
		d.ID = *w.ID
	}
	if w.Type == nil {
		c.add("type", "is required", core.ErrInvalidType)
	} else if typ, err := core.ParseOperationType(*w.Type); err != nil || typ == core.Withdrawal {
		c.add("type", "unknown description type "+quote(*w.Type), core.ErrInvalidType)
	} else {
		d.Type = typ
	}
	if w.Description == nil || strings.TrimSpace(*w.Description) == "" {
		c.add("description", "is required", core.ErrEmptyDescription)
	} else {
		d.Text = *w.Description
	}
	if w.Occurrences != nil {
		if *w.Occurrences < 0 {
			c.add("occurrences", "must not be negative", nil)
		} else {
			d.Occurrences = *w.Occurrences
		}
	}
	return d
}

// ParseYears decodes GET /transaction/years. The backend sends years as
// strings; plain numbers are accepted too.
func ParseYears(data []byte) ([]int, error) {
	var raw []json.RawMessage
	c := &collector{}
	if !decode(data, &raw, c) {
		return nil, c.err()
	}
	years := make([]int, 0, len(raw))
	for i, item := range raw {
		s := strings.Trim(strings.TrimSpace(string(item)), `"`)
		y, err := strconv.Atoi(s)
		if err != nil || y < 1 || y > 9999 {
			c.add(indexed(i), "not a year: "+string(item), nil)
			continue
		}
		years = append(years, y)
	}
	if err := c.err(); err != nil {
		return nil, err
	}
	return years, nil
}

// ParseLoginResponse extracts the bearer token from POST /auth.
func ParseLoginResponse(data []byte) (string, error) {
	var w wireLogin
	c := &collector{}
	if !decode(data, &w, c) {
		return "", c.err()
	}
	if w.Token == nil || strings.TrimSpace(*w.Token) == "" {
		c.add("token", "is required", nil)
		return "", c.err()
	}
	return *w.Token, nil
}

// ParseUserInfo decodes GET /user-info.
func ParseUserInfo(data []byte) (core.User, error) {
	var w wireUserInfo
	c := &collector{}
	if !decode(data, &w, c) {
		return core.User{}, c.err()
	}
	var u core.User
	if w.PersonID == nil || *w.PersonID <= 0 {
		c.add("person_id", "is required", nil)
	} else {
		u.PersonID = *w.PersonID
	}
	if w.Username == nil || strings.TrimSpace(*w.Username) == "" {
		c.add("username", "is required", nil)
	} else {
		u.Username = *w.Username
	}
	if w.Email != nil {
		u.Email = *w.Email
	}
	if w.Role != nil {
		u.Role = *w.Role
	}
	if w.Provider != nil {
		u.Provider = *w.Provider
	}
	if err := c.err(); err != nil {
		return core.User{}, err
	}
	return u, nil
}
