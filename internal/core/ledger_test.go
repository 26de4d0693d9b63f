package core_test

import (
	"testing"

	"temple-vouchers/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	cash int64 = 101
	bank int64 = 102
	hall int64 = 103
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func contraPolicy() core.Policy {
	v, _ := core.LookupVoucher(string(core.Contra))
	return v.Policy
}

func TestLedger_SetAmountClearsOppositeSide(t *testing.T) {
	l := core.NewLedger(contraPolicy())
	row := l.AddRow()

	require.NoError(t, l.SetAmount(row, core.Credit, dec("40")))
	require.NoError(t, l.SetAmount(row, core.Debit, dec("125.50")))

	got, ok := l.Row(row)
	require.True(t, ok)
	assert.True(t, got.Debit.Equal(dec("125.50")))
	assert.True(t, got.Credit.IsZero())

	require.NoError(t, l.SetAmount(row, core.Credit, dec("10")))
	got, _ = l.Row(row)
	assert.True(t, got.Debit.IsZero())
	assert.True(t, got.Credit.Equal(dec("10")))
}

func TestLedger_SetAmountClampsAndRounds(t *testing.T) {
	l := core.NewLedger(contraPolicy())
	row := l.AddRow()

	require.NoError(t, l.SetAmount(row, core.Debit, dec("-5")))
	got, _ := l.Row(row)
	assert.True(t, got.Debit.IsZero())

	require.NoError(t, l.SetAmount(row, core.Debit, dec("10.456")))
	got, _ = l.Row(row)
	assert.Equal(t, "10.46", got.Debit.StringFixed(2))
}

func TestBalanced_Tolerance(t *testing.T) {
	tests := []struct {
		name   string
		debit  string
		credit string
		want   bool
	}{
		{"exact", "100.00", "100.00", true},
		{"half cent residue", "100.00", "99.995", true},
		{"two cents short", "100.00", "99.98", false},
		{"one cent is not within tolerance", "100.00", "99.99", false},
		{"credit heavy", "50.00", "50.004", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.Balanced(dec(tt.debit), dec(tt.credit)))
		})
	}
}

func TestLedger_DuplicateAccountRejected(t *testing.T) {
	l := core.NewLedger(contraPolicy())
	r1, r2 := l.AddRow(), l.AddRow()

	require.NoError(t, l.SetAccount(r1, cash))
	require.NoError(t, l.SetAccount(r2, bank))

	err := l.SetAccount(r2, cash)
	require.ErrorIs(t, err, core.ErrDuplicateAccount)

	var rowErr *core.RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, r2, rowErr.RowID)

	got, _ := l.Row(r2)
	assert.Nil(t, got.AccountID)
}

func TestLedger_DuplicateAllowedWithoutUniquePolicy(t *testing.T) {
	l := core.NewLedger(core.Policy{MinRows: 1})
	r1, r2 := l.AddRow(), l.AddRow()

	require.NoError(t, l.SetAccount(r1, hall))
	require.NoError(t, l.SetAccount(r2, hall))

	got, _ := l.Row(r2)
	require.NotNil(t, got.AccountID)
	assert.Equal(t, hall, *got.AccountID)
}

func TestLedger_RemoveRowFloor(t *testing.T) {
	l := core.NewLedger(core.Policy{MinRows: 1})
	r1, r2 := l.AddRow(), l.AddRow()

	require.NoError(t, l.RemoveRow(r1))
	assert.Equal(t, 1, l.Len())

	err := l.RemoveRow(r2)
	require.ErrorIs(t, err, core.ErrMinimumRows)
	assert.True(t, l.Has(r2))

	assert.ErrorIs(t, l.RemoveRow(999), core.ErrRowNotFound)
}

func TestLedger_RowIDsNeverReused(t *testing.T) {
	l := core.NewLedger(core.Policy{})
	r1 := l.AddRow()
	l.AddRow()
	require.NoError(t, l.RemoveRow(r1))
	r3 := l.AddRow()
	assert.Equal(t, 3, r3)
}

func TestLedger_ResequenceKeepsRowState(t *testing.T) {
	l := core.NewLedger(core.Policy{MinRows: 1})
	r1, r2, r3 := l.AddRow(), l.AddRow(), l.AddRow()
	require.NoError(t, l.SetAccount(r2, cash))
	require.NoError(t, l.SetAmount(r2, core.Debit, dec("70")))
	require.NoError(t, l.SetAccount(r3, bank))
	require.NoError(t, l.SetAmount(r3, core.Credit, dec("70")))

	before2, _ := l.Row(r2)
	before3, _ := l.Row(r3)

	require.NoError(t, l.RemoveRow(r1))

	rows := l.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Number)
	assert.Equal(t, 2, rows[1].Number)
	assert.Equal(t, before2, rows[0].LineItem)
	assert.Equal(t, before3, rows[1].LineItem)
}

func TestLedger_TotalsSkipPartialRows(t *testing.T) {
	l := core.NewLedger(core.Policy{})
	r1, r2, r3 := l.AddRow(), l.AddRow(), l.AddRow()

	require.NoError(t, l.SetAccount(r1, cash))
	require.NoError(t, l.SetAmount(r1, core.Debit, dec("300")))
	// amount without account
	require.NoError(t, l.SetAmount(r2, core.Credit, dec("300")))
	// account without amount
	require.NoError(t, l.SetAccount(r3, bank))

	tot := l.Totals()
	assert.True(t, tot.Debit.Equal(dec("300")))
	assert.True(t, tot.Credit.IsZero())
	assert.Len(t, l.Committed(), 1)
}

func TestLedger_Validate(t *testing.T) {
	t.Run("no valid items", func(t *testing.T) {
		l := core.NewLedger(contraPolicy())
		l.AddRow()
		l.AddRow()
		assert.ErrorIs(t, l.Validate(), core.ErrNoValidItems)
	})

	t.Run("amount rounding to zero is not a posting", func(t *testing.T) {
		l := core.NewLedger(contraPolicy())
		r1, r2 := l.AddRow(), l.AddRow()
		require.NoError(t, l.SetAccount(r1, cash))
		require.NoError(t, l.SetAmount(r1, core.Debit, dec("0.004")))
		require.NoError(t, l.SetAccount(r2, bank))
		assert.ErrorIs(t, l.Validate(), core.ErrNoValidItems)
	})

	t.Run("single side skips balance", func(t *testing.T) {
		l := core.NewLedger(core.Policy{MinRows: 1, SingleSide: core.Debit})
		r := l.AddRow()
		require.NoError(t, l.SetAccount(r, hall))
		require.NoError(t, l.SetAmount(r, core.Debit, dec("250")))
		assert.NoError(t, l.Validate())
		assert.ErrorIs(t, l.SetAmount(r, core.Credit, dec("1")), core.ErrSideNotAllowed)
	})
}

func TestLedger_ContraScenario(t *testing.T) {
	l := core.NewLedger(contraPolicy())
	r1, r2 := l.AddRow(), l.AddRow()

	require.NoError(t, l.SetAccount(r1, cash))
	require.NoError(t, l.SetAmount(r1, core.Debit, dec("500")))
	require.NoError(t, l.SetAccount(r2, bank))
	require.NoError(t, l.SetAmount(r2, core.Credit, dec("500")))

	require.NoError(t, l.Validate())
	tot := l.Totals()
	assert.Equal(t, "500.00", tot.Debit.StringFixed(2))
	assert.Equal(t, "500.00", tot.Credit.StringFixed(2))

	require.NoError(t, l.SetAmount(r2, core.Credit, dec("400")))
	assert.False(t, l.IsBalanced())
	assert.ErrorIs(t, l.Validate(), core.ErrUnbalanced)
}

func TestLedger_ContraRequiresBothSides(t *testing.T) {
	l := core.NewLedger(contraPolicy())
	r1, r2 := l.AddRow(), l.AddRow()

	require.NoError(t, l.SetAccount(r1, cash))
	require.NoError(t, l.SetAmount(r1, core.Debit, dec("500")))
	require.NoError(t, l.SetAccount(r2, bank))
	require.NoError(t, l.SetAmount(r2, core.Debit, dec("500")))

	assert.ErrorIs(t, l.Validate(), core.ErrMissingSide)
}

func TestLedger_OneSidedCreditNoteIsUnbalanced(t *testing.T) {
	v, err := core.LookupVoucher(string(core.CreditNote))
	require.NoError(t, err)
	l := core.NewLedger(v.Policy)
	r1, r2 := l.AddRow(), l.AddRow()

	require.NoError(t, l.SetAccount(r1, hall))
	require.NoError(t, l.SetAmount(r1, core.Debit, dec("80")))
	require.NoError(t, l.SetAccount(r2, hall))

	assert.ErrorIs(t, l.Validate(), core.ErrUnbalanced)
}
