package repl

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"temple-vouchers/internal/app"
	"temple-vouchers/internal/backend"
	"temple-vouchers/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	submitted int
}

func (b *fakeBackend) Funds(context.Context) ([]core.Fund, error) {
	return []core.Fund{{ID: 1, Name: "General Fund"}}, nil
}

func (b *fakeBackend) Ledgers(_ context.Context, f core.LedgerFilter) ([]core.LedgerAccount, error) {
	switch f {
	case core.FilterBankAccounts:
		return []core.LedgerAccount{{ID: 101, Name: "Cash", LeftCode: "10"}, {ID: 102, Name: "Bank"}}, nil
	case core.FilterInventory:
		return []core.LedgerAccount{{ID: 501, Name: "Rice"}}, nil
	}
	return []core.LedgerAccount{{ID: 601, Name: "Kitchen Expense"}}, nil
}

func (b *fakeBackend) Entry(context.Context, int64) (*core.Entry, error) {
	return nil, errors.New("not found")
}

func (b *fakeBackend) InventoryBalance(context.Context, int64) (core.StockBalance, error) {
	return core.StockBalance{Quantity: decimal.NewFromInt(10), Value: decimal.NewFromInt(50)}, nil
}

func (b *fakeBackend) GenerateEntryCode(_ context.Context, prefix string, _ core.EntryType, _ string) (string, error) {
	return prefix + "-0042", nil
}

func (b *fakeBackend) SubmitEntry(context.Context, string, any) (*backend.Submitted, error) {
	b.submitted++
	return &backend.Submitted{EntryID: 42, EntryCode: "CON-0042"}, nil
}

func runScript(t *testing.T, b *fakeBackend, kind string, lines ...string) (string, error) {
	t.Helper()
	svc := app.NewAppService(b, time.Hour)
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	err := Run(context.Background(), svc, app.OpenSessionRequest{Kind: kind}, in, &out)
	return out.String(), err
}

func TestRun_ContraSubmit(t *testing.T) {
	b := &fakeBackend{}
	out, err := runScript(t, b, "contra",
		"header", "", "1", "cash deposit",
		"account 1 101",
		"/amount 1 D 500",
		"account 2 102",
		"amount 2 C 200+300",
		"check",
		"submit",
		"show",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Cash [10]")
	assert.Contains(t, out, "cash deposit")
	assert.Contains(t, out, "Voucher is valid.")
	assert.Contains(t, out, "Submitted CON-0042 (entry 42).")
	assert.Equal(t, 1, b.submitted)
}

func TestRun_ErrorsKeepTheLoopGoing(t *testing.T) {
	out, err := runScript(t, &fakeBackend{}, "contra",
		"add bogus",
		"amount 1 X 5",
		"rm",
		"stock 1 out 2",
		"frobnicate",
		"account 1 101",
		"account 2 101",
		"submit",
		"exit",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Error: \"bogus\": "+app.ErrUnknownLedger.Error())
	assert.Contains(t, out, "unknown side")
	assert.Contains(t, out, "usage: rm [ledger] <row>")
	assert.Contains(t, out, "Unknown command: frobnicate")
	assert.Contains(t, out, core.ErrDuplicateAccount.Error())
	assert.Contains(t, out, "Draft discarded.")
	assert.NotContains(t, out, "Submitted")
}

func TestRun_InventoryAutoBalance(t *testing.T) {
	out, err := runScript(t, &fakeBackend{}, "inventory-journal",
		"header", "", "1", "",
		"account inventory 1 501",
		"stock 1 out 4 5",
		"account 1 601",
		"balance",
		"check",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "(on hand 10)")
	assert.Contains(t, out, "DR        20.00   CR        20.00")
	assert.Contains(t, out, "Voucher is valid.")
}

func TestRun_StockGuardShown(t *testing.T) {
	out, err := runScript(t, &fakeBackend{}, "inventory-journal",
		"account inventory 1 501",
		"stock 1 out 15 5",
	)
	require.NoError(t, err)
	assert.Contains(t, out, core.ErrInsufficientStock.Error())
}

func TestRun_PaymentHeaderAsksPaidFrom(t *testing.T) {
	out, err := runScript(t, &fakeBackend{}, "payment",
		"header", "", "1", "temple repairs", "102",
		"show",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Paid from (account id) [-]")
	assert.Contains(t, out, "Paid from: Bank")
}

func TestRun_HeaderAbandonedAtEndOfInput(t *testing.T) {
	out, err := runScript(t, &fakeBackend{}, "contra",
		"header", "2026-01-05", "1",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Header unchanged.")
	assert.NotContains(t, out, "2026-01-05")
}

func TestRun_UnknownVoucher(t *testing.T) {
	_, err := runScript(t, &fakeBackend{}, "receipt")
	assert.ErrorIs(t, err, core.ErrUnknownVoucher)
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"42.5", "42.5"},
		{"1200/3", "400"},
		{"100/3", "33.33"},
		{"2*(10+2.5)", "25"},
	}
	for _, tt := range tests {
		got, err := parseMoney(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "%s = %s", tt.in, got)
	}

	_, err := parseMoney("ten")
	assert.Error(t, err)
}
