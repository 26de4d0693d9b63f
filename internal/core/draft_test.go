package core_test

import (
	"encoding/json"
	"testing"

	"temple-vouchers/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func voucher(t *testing.T, kind core.VoucherKind) core.Voucher {
	t.Helper()
	v, err := core.LookupVoucher(string(kind))
	require.NoError(t, err)
	return v
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestNewDraft_FillsMinimumRows(t *testing.T) {
	tests := []struct {
		kind core.VoucherKind
		rows int
	}{
		{core.Contra, 2},
		{core.CreditNote, 2},
		{core.Payment, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			d := core.NewDraft(voucher(t, tt.kind))
			require.NotNil(t, d.Items)
			assert.Nil(t, d.Valuation)
			assert.Equal(t, tt.rows, d.Items.Len())
		})
	}

	t.Run("inventory journal", func(t *testing.T) {
		d := core.NewDraft(voucher(t, core.InventoryJournal))
		require.NotNil(t, d.Valuation)
		assert.Equal(t, 1, d.Valuation.Inventory.Len())
		assert.Equal(t, 1, d.Valuation.Accounting.Len())
	})
}

func TestSeedDraft_EntryTypeMismatch(t *testing.T) {
	e := &core.Entry{ID: 7, EntryTypeID: core.EntryPayment}
	_, err := core.SeedDraft(voucher(t, core.Contra), e, core.SeedCopy)
	assert.ErrorIs(t, err, core.ErrEntryTypeMismatch)
}

func TestSeedDraft_ContraCopyAndEdit(t *testing.T) {
	e := &core.Entry{
		ID:          40,
		EntryTypeID: core.EntryContra,
		EntryCode:   "CON-0040",
		Date:        "2026-03-01",
		FundID:      3,
		Narration:   "cash deposit",
		Items: []core.EntryItem{
			{LedgerID: bank, DC: "D", Amount: dec("1200")},
			{LedgerID: cash, DC: "C", Amount: dec("1200")},
		},
	}

	copied, err := core.SeedDraft(voucher(t, core.Contra), e, core.SeedCopy)
	require.NoError(t, err)
	assert.Zero(t, copied.Header.EntryID)
	assert.Empty(t, copied.Header.EntryCode)
	assert.Empty(t, copied.Header.Date)
	assert.Equal(t, int64(3), copied.Header.FundID)
	assert.Equal(t, "cash deposit", copied.Header.Narration)

	rows := copied.Items.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, bank, *rows[0].AccountID)
	assert.Equal(t, "1200.00", rows[0].Debit.StringFixed(2))
	assert.Equal(t, core.Credit, rows[1].Side())
	assert.NoError(t, copied.ValidateItems())

	edited, err := core.SeedDraft(voucher(t, core.Contra), e, core.SeedEdit)
	require.NoError(t, err)
	assert.Equal(t, int64(40), edited.Header.EntryID)
	assert.Equal(t, "CON-0040", edited.Header.EntryCode)
	assert.Equal(t, "2026-03-01", edited.Header.Date)
	assert.NoError(t, edited.Validate())
}

func TestSeedDraft_PaymentSplitsPaidFrom(t *testing.T) {
	e := &core.Entry{
		ID:          9,
		EntryTypeID: core.EntryPayment,
		FundID:      1,
		Items: []core.EntryItem{
			{LedgerID: hall, DC: "D", Amount: dec("300")},
			{LedgerID: cash, DC: "D", Amount: dec("200")},
			{LedgerID: bank, DC: "C", Amount: dec("500")},
		},
	}

	d, err := core.SeedDraft(voucher(t, core.Payment), e, core.SeedCopy)
	require.NoError(t, err)
	require.NotNil(t, d.Header.PaidFrom)
	assert.Equal(t, bank, *d.Header.PaidFrom)
	assert.Equal(t, 2, d.Items.Len())
	assert.Equal(t, "500.00", d.Totals().Debit.StringFixed(2))
	assert.True(t, d.IsBalanced())
}

func TestSeedDraft_PaymentWithTwoCreditLinesRejected(t *testing.T) {
	e := &core.Entry{
		EntryTypeID: core.EntryPayment,
		Items: []core.EntryItem{
			{LedgerID: hall, DC: "D", Amount: dec("10")},
			{LedgerID: bank, DC: "C", Amount: dec("5")},
			{LedgerID: cash, DC: "C", Amount: dec("5")},
		},
	}
	_, err := core.SeedDraft(voucher(t, core.Payment), e, core.SeedCopy)
	assert.Error(t, err)
}

func TestSeedDraft_InventoryJournalCopyConsolidates(t *testing.T) {
	e := &core.Entry{
		ID:          12,
		EntryTypeID: core.EntryInventoryJournal,
		FundID:      2,
		Items: []core.EntryItem{
			{LedgerID: rice, DC: "D", Amount: dec("20"), Quantity: decPtr("10"), UnitPrice: decPtr("2")},
			{LedgerID: rice, DC: "D", Amount: dec("25"), Quantity: decPtr("5")},
			{LedgerID: payab, DC: "C", Amount: dec("45")},
		},
	}

	d, err := core.SeedDraft(voucher(t, core.InventoryJournal), e, core.SeedCopy)
	require.NoError(t, err)
	require.NotNil(t, d.Valuation)

	inv := d.Valuation.Inventory.Rows()
	require.Len(t, inv, 1)
	assert.True(t, inv[0].Quantity.Equal(dec("15")))
	assert.True(t, inv[0].UnitPrice.Equal(dec("3")))
	assert.Equal(t, core.StockIn, inv[0].TransactionType)
	assert.Equal(t, 1, d.Valuation.Accounting.Len())
	assert.True(t, d.IsBalanced())

	// seeded rows still need their stock snapshot
	pending := d.Valuation.Inventory.PendingStock()
	require.Len(t, pending, 1)
	assert.Equal(t, rice, pending[0].AccountID)
}

func TestSeedDraft_InventoryJournalEditKeepsRows(t *testing.T) {
	e := &core.Entry{
		ID:          12,
		EntryTypeID: core.EntryInventoryJournal,
		Items: []core.EntryItem{
			{LedgerID: rice, DC: "D", Amount: dec("20"), Quantity: decPtr("10"), UnitPrice: decPtr("2")},
			{LedgerID: rice, DC: "D", Amount: dec("25"), Quantity: decPtr("5"), UnitPrice: decPtr("5")},
		},
	}
	d, err := core.SeedDraft(voucher(t, core.InventoryJournal), e, core.SeedEdit)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Valuation.Inventory.Len())
}

func TestDraft_ValidateHeader(t *testing.T) {
	d := core.NewDraft(voucher(t, core.Payment))
	row := d.Items.Rows()[0].RowID
	require.NoError(t, d.Items.SetAccount(row, hall))
	require.NoError(t, d.Items.SetAmount(row, core.Debit, dec("90")))

	assert.ErrorIs(t, d.Validate(), core.ErrMissingFund)

	d.Header.FundID = 1
	d.Header.Date = "01/02/2026"
	assert.ErrorIs(t, d.Validate(), core.ErrInvalidDate)

	d.Header.Date = "2026-02-01"
	assert.ErrorIs(t, d.Validate(), core.ErrMissingPaidFrom)

	paidFrom := bank
	d.Header.PaidFrom = &paidFrom
	assert.NoError(t, d.Validate())
}

func TestDraft_PayloadPayment(t *testing.T) {
	d := core.NewDraft(voucher(t, core.Payment))
	d.Header = core.Header{EntryCode: "PAY-0001", Date: "2026-02-01", FundID: 1, Narration: "flowers"}
	paidFrom := bank
	d.Header.PaidFrom = &paidFrom

	row := d.Items.Rows()[0].RowID
	require.NoError(t, d.Items.SetAccount(row, hall))
	require.NoError(t, d.Items.SetAmount(row, core.Debit, dec("90.5")))
	// a half-filled row is not posted
	d.Items.AddRow()

	p, err := d.Payload()
	require.NoError(t, err)
	pay, ok := p.(core.PaymentPayload)
	require.True(t, ok)
	assert.Equal(t, core.EntryPayment, pay.EntryTypeID)
	assert.Equal(t, bank, pay.PaidFrom)
	assert.Equal(t, "90.50", pay.TotalAmount)
	require.Len(t, pay.Items, 1)
	assert.Equal(t, "90.50", pay.Items[0].DebitAmount)
	assert.Equal(t, "0.00", pay.Items[0].CreditAmount)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"paid_from":102`)
	assert.NotContains(t, string(raw), `"entry_id"`)
}

func TestDraft_PayloadInventoryJournal(t *testing.T) {
	d := core.NewDraft(voucher(t, core.InventoryJournal))
	d.Header = core.Header{EntryID: 77, Date: "2026-02-01", FundID: 2}

	inv := d.Valuation.Inventory.Rows()[0].RowID
	acc := d.Valuation.Accounting.Rows()[0].RowID
	selectWithStock(t, d.Valuation.Inventory, inv, oil, "0", "0")
	require.NoError(t, d.Valuation.Inventory.SetQuantity(inv, dec("4")))
	require.NoError(t, d.Valuation.Inventory.SetUnitPrice(inv, dec("25")))
	require.NoError(t, d.Valuation.Accounting.SetAccount(acc, payab))
	require.NoError(t, d.Valuation.Accounting.SetAmount(acc, core.Credit, dec("100")))

	p, err := d.Payload()
	require.NoError(t, err)
	journal, ok := p.(core.InventoryJournalPayload)
	require.True(t, ok)
	assert.Equal(t, int64(77), journal.EntryID)
	assert.Equal(t, "100.00", journal.TotalAmount)
	require.Len(t, journal.InventoryItems, 1)
	assert.Equal(t, core.StockIn, journal.InventoryItems[0].TransactionType)
	assert.Equal(t, "4", journal.InventoryItems[0].Quantity)
	require.Len(t, journal.AccountingEntries, 1)
	assert.Equal(t, "100.00", journal.AccountingEntries[0].CrAmount)
}

func TestDraft_PayloadRefusesInvalidDraft(t *testing.T) {
	d := core.NewDraft(voucher(t, core.Contra))
	d.Header = core.Header{Date: "2026-02-01", FundID: 1}
	_, err := d.Payload()
	assert.ErrorIs(t, err, core.ErrNoValidItems)
}

func TestPayloadSchema(t *testing.T) {
	for _, v := range core.Vouchers() {
		t.Run(string(v.Kind), func(t *testing.T) {
			s, err := core.PayloadSchema(v.Kind)
			require.NoError(t, err)
			raw, err := json.Marshal(s)
			require.NoError(t, err)
			assert.Contains(t, string(raw), "entrytype_id")
		})
	}

	_, err := core.PayloadSchema("receipt")
	assert.ErrorIs(t, err, core.ErrUnknownVoucher)
}
