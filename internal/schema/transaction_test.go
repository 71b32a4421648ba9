package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conti/internal/core"
)

func TestParseTransaction(t *testing.T) {
	tx, err := ParseTransaction([]byte(`{
		"id": 7,
		"type": "USCITA",
		"amount": 40.5,
		"description": "Groceries",
		"additionalNotes": "market",
		"date": "2024-03-20",
		"bill": {"id": 1, "description": "Checking", "amount": 900, "canDelete": false}
	}`))
	require.NoError(t, err)

	assert.Equal(t, int64(7), tx.ID)
	assert.Equal(t, core.Expense, tx.Type)
	assert.Equal(t, core.Money{Cents: 4050}, tx.Amount)
	assert.Equal(t, "Groceries", tx.Description)
	assert.Equal(t, "market", tx.AdditionalNotes)
	assert.Equal(t, core.NewDate(2024, 3, 20), tx.Date)
	assert.Equal(t, core.AccountRef{ID: 1, Name: "Checking"}, tx.Account)
	assert.Nil(t, tx.SourceAccount)
}

func TestParseTransactionWithdrawal(t *testing.T) {
	tx, err := ParseTransaction([]byte(`{
		"id": 3, "type": "PRELIEVO", "amount": "50.00", "description": "ignored",
		"date": "2024-03-21T10:00:00+01:00",
		"bill": {"id": 2, "description": "Cash"},
		"billFromWhichWithdraw": {"id": 1, "description": "Checking"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, core.Withdrawal, tx.Type)
	assert.Empty(t, tx.Description)
	require.NotNil(t, tx.SourceAccount)
	assert.Equal(t, int64(1), tx.SourceAccount.ID)
	assert.Equal(t, core.NewDate(2024, 3, 21), tx.Date)
}

func TestParseTransactionRejects(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		field   string
		matches error
	}{
		{"missing id", `{"type":"ENTRATA","amount":1,"date":"2024-01-01","bill":{"id":1}}`, "id", nil},
		{"unknown type", `{"id":1,"type":"BONUS","amount":1,"date":"2024-01-01","bill":{"id":1}}`, "type", core.ErrInvalidType},
		{"negative amount", `{"id":1,"type":"ENTRATA","amount":-1,"date":"2024-01-01","bill":{"id":1}}`, "amount", core.ErrInvalidAmount},
		{"amount not a number", `{"id":1,"type":"ENTRATA","amount":"ten","date":"2024-01-01","bill":{"id":1}}`, "amount", core.ErrInvalidAmount},
		{"sub cent amount", `{"id":1,"type":"ENTRATA","amount":1.005,"date":"2024-01-01","bill":{"id":1}}`, "amount", core.ErrInvalidAmount},
		{"bad date", `{"id":1,"type":"ENTRATA","amount":1,"date":"01/02/2024","bill":{"id":1}}`, "date", core.ErrInvalidDate},
		{"missing bill", `{"id":1,"type":"ENTRATA","amount":1,"date":"2024-01-01"}`, "bill.id", core.ErrMissingAccount},
		{"withdrawal without source", `{"id":1,"type":"PRELIEVO","amount":1,"date":"2024-01-01","bill":{"id":1}}`, "billFromWhichWithdraw.id", core.ErrMissingSourceAccount},
		{"expense with source", `{"id":1,"type":"USCITA","amount":1,"date":"2024-01-01","bill":{"id":1},"billFromWhichWithdraw":{"id":2}}`, "billFromWhichWithdraw", core.ErrUnexpectedSourceAccount},
		{"wrong json type", `{"id":"one","type":"ENTRATA","amount":1,"date":"2024-01-01","bill":{"id":1}}`, "id", ErrInvalidPayload},
		{"malformed", `{"id":1,`, "", ErrInvalidPayload},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTransaction([]byte(tc.body))
			require.Error(t, err)

			fields := Fields(err)
			require.NotEmpty(t, fields)
			assert.Equal(t, tc.field, fields[0].Field)
			if tc.matches != nil {
				assert.True(t, errors.Is(err, tc.matches), "expected %v in %v", tc.matches, err)
			}
		})
	}
}

func TestParseNewTransactionAllowsMissingID(t *testing.T) {
	tx, err := ParseNewTransaction([]byte(`{"type":"ENTRATA","amount":"100","description":"Salary","date":"2024-03-15","bill":{"id":1}}`))
	require.NoError(t, err)
	assert.Zero(t, tx.ID)
	assert.Equal(t, core.Money{Cents: 10000}, tx.Amount)
}

func TestParseTransactionsReportsIndexedPaths(t *testing.T) {
	_, err := ParseTransactions([]byte(`[
		{"id":1,"type":"ENTRATA","amount":1,"date":"2024-01-01","bill":{"id":1}},
		{"id":2,"type":"ENTRATA","amount":1,"date":"2024-01-01","bill":{"id":1}},
		{"id":3,"type":"ENTRATA","amount":1,"date":"nope","bill":{"id":1}}
	]`))
	require.Error(t, err)
	fields := Fields(err)
	require.Len(t, fields, 1)
	assert.Equal(t, "[2].date", fields[0].Field)
}

func TestParsePage(t *testing.T) {
	p, err := ParsePage([]byte(`{
		"transactions": [{"id":1,"type":"ENTRATA","amount":1,"date":"2024-01-01","bill":{"id":1}}],
		"totalCount": 31, "pageIndex": 0, "pageSize": 30
	}`))
	require.NoError(t, err)
	assert.Len(t, p.Transactions, 1)
	assert.Equal(t, 31, p.TotalCount)
	assert.Equal(t, 30, p.PageSize)

	_, err = ParsePage([]byte(`{"transactions":[{"id":1,"type":"ENTRATA","amount":1,"date":"x","bill":{"id":1}}],"totalCount":1,"pageIndex":0}`))
	require.Error(t, err)
	var paths []string
	for _, f := range Fields(err) {
		paths = append(paths, f.Field)
	}
	assert.ElementsMatch(t, []string{"transactions[0].date", "pageSize"}, paths)
}

func TestEncodeTransactionRoundTrip(t *testing.T) {
	src := &core.AccountRef{ID: 1, Name: "Checking"}
	in := core.Transaction{
		Type:          core.Withdrawal,
		Amount:        core.Money{Cents: 5000},
		Description:   "dropped",
		Date:          core.NewDate(2024, 3, 21),
		Account:       core.AccountRef{ID: 2, Name: "Cash"},
		SourceAccount: src,
	}
	body, err := EncodeTransaction(in)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.NotContains(t, raw, "id")
	assert.NotContains(t, raw, "description")
	assert.Equal(t, "PRELIEVO", raw["type"])
	assert.Equal(t, "2024-03-21", raw["date"])

	out, err := ParseNewTransaction(body)
	require.NoError(t, err)
	in.Description = ""
	assert.Equal(t, in, out)
}

func TestEncodeDeleteItems(t *testing.T) {
	body, err := EncodeDeleteItems([]core.Transaction{
		{ID: 1, Type: core.Expense, Amount: core.Money{Cents: 4000}, Description: "Groceries", Account: core.AccountRef{ID: 1, Name: "Checking"}},
		{ID: 3, Type: core.Withdrawal, Amount: core.Money{Cents: 5000}, Account: core.AccountRef{ID: 2}, SourceAccount: &core.AccountRef{ID: 1}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"id":1,"type":"USCITA","amount":40.00,"bill":{"id":1}},
		{"id":3,"type":"PRELIEVO","amount":50.00,"bill":{"id":2},"billFromWhichWithdraw":{"id":1}}
	]`, string(body))

	_, err = EncodeDeleteItems([]core.Transaction{{Type: core.Expense}})
	require.Error(t, err)
	assert.Equal(t, "[0].id", Fields(err)[0].Field)
}

func TestParseDeleteItems(t *testing.T) {
	items, err := ParseDeleteItems([]byte(`[
		{"id":1,"type":"USCITA","amount":40,"bill":{"id":1}},
		{"id":3,"type":"PRELIEVO","amount":50,"bill":{"id":2},"billFromWhichWithdraw":{"id":1}}
	]`))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, core.Money{Cents: 4000}, items[0].Amount)
	require.NotNil(t, items[1].SourceAccount)
	assert.Equal(t, int64(1), items[1].SourceAccount.ID)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"bare ids", `[1,2]`, "[0]"},
		{"missing id", `[{"type":"USCITA","amount":1,"bill":{"id":1}}]`, "[0].id"},
		{"missing bill", `[{"id":1,"type":"USCITA","amount":1}]`, "[0].bill.id"},
		{"withdrawal without source", `[{"id":1,"type":"PRELIEVO","amount":1,"bill":{"id":1}}]`, "[0].billFromWhichWithdraw.id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDeleteItems([]byte(tt.body))
			require.Error(t, err)
			assert.Equal(t, tt.field, Fields(err)[0].Field)
		})
	}
}
