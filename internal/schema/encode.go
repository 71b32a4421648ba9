package schema

import (
	"encoding/json"

	"conti/internal/core"
)

type (
	outAccountRef struct {
		ID          int64  `json:"id"`
		Description string `json:"description,omitempty"`
	}

	outTransaction struct {
		ID                    *int64         `json:"id,omitempty"`
		Type                  string         `json:"type"`
		Amount                json.Number    `json:"amount"`
		Description           string         `json:"description,omitempty"`
		AdditionalNotes       string         `json:"additionalNotes,omitempty"`
		Date                  string         `json:"date"`
		Bill                  outAccountRef  `json:"bill"`
		BillFromWhichWithdraw *outAccountRef `json:"billFromWhichWithdraw,omitempty"`
	}

	outAccount struct {
		ID          *int64      `json:"id"`
		Amount      json.Number `json:"amount"`
		Description string      `json:"description"`
		CanDelete   bool        `json:"canDelete"`
	}

	outDescription struct {
		ID          int64  `json:"id,omitempty"`
		Type        string `json:"type"`
		Description string `json:"description"`
	}

	outIDRef struct {
		ID int64 `json:"id"`
	}

	outDeleteItem struct {
		ID                    int64       `json:"id"`
		Type                  string      `json:"type"`
		Amount                json.Number `json:"amount"`
		Bill                  outIDRef    `json:"bill"`
		BillFromWhichWithdraw *outIDRef   `json:"billFromWhichWithdraw,omitempty"`
	}

	outLogin struct {
		UsernameOrEmail string `json:"usernameOrEmail"`
		Password        string `json:"password"`
	}
)

// EncodeTransaction renders the add/update request body. A zero ID is
// omitted so the backend assigns one.
func EncodeTransaction(tx core.Transaction) ([]byte, error) {
	out := outTransaction{
		Type:            string(tx.Type),
		Amount:          json.Number(tx.Amount.String()),
		AdditionalNotes: tx.AdditionalNotes,
		Date:            tx.Date.String(),
		Bill:            outAccountRef{ID: tx.Account.ID, Description: tx.Account.Name},
	}
	if tx.ID > 0 {
		id := tx.ID
		out.ID = &id
	}
	if tx.Type == core.Withdrawal {
		if tx.SourceAccount != nil {
			out.BillFromWhichWithdraw = &outAccountRef{ID: tx.SourceAccount.ID, Description: tx.SourceAccount.Name}
		}
	} else {
		out.Description = tx.Description
	}
	return json.Marshal(out)
}

// EncodeDeleteItems renders the POST /transaction/delete-transaction-list
// body: one object per transaction carrying its id, type, amount and account
// ids. Items without an id are rejected before anything is sent.
func EncodeDeleteItems(txs []core.Transaction) ([]byte, error) {
	c := &collector{}
	out := make([]outDeleteItem, len(txs))
	for i, tx := range txs {
		if tx.ID <= 0 {
			c.sub(indexed(i)).add("id", "is required", nil)
			continue
		}
		out[i] = outDeleteItem{
			ID:     tx.ID,
			Type:   string(tx.Type),
			Amount: json.Number(tx.Amount.String()),
			Bill:   outIDRef{ID: tx.Account.ID},
		}
		if tx.Type == core.Withdrawal && tx.SourceAccount != nil {
			out[i].BillFromWhichWithdraw = &outIDRef{ID: tx.SourceAccount.ID}
		}
	}
	if err := c.err(); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// EncodeAccounts renders the POST /update-totals body. Accounts without an
// ID are created by the backend.
func EncodeAccounts(accounts []core.Account) ([]byte, error) {
	out := make([]outAccount, len(accounts))
	for i, a := range accounts {
		out[i] = outAccount{
			Amount:      json.Number(a.Balance.String()),
			Description: a.Name,
			CanDelete:   a.CanDelete,
		}
		if a.ID > 0 {
			id := a.ID
			out[i].ID = &id
		}
	}
	return json.Marshal(out)
}

func EncodeDescription(d core.Description) ([]byte, error) {
	return json.Marshal(outDescription{ID: d.ID, Type: string(d.Type), Description: d.Text})
}

func EncodeLogin(user, password string) ([]byte, error) {
	return json.Marshal(outLogin{UsernameOrEmail: user, Password: password})
}
