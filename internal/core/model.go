package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Side is the column a line item amount is posted to.
type Side string

const (
	Debit  Side = "D"
	Credit Side = "C"
)

// ParseSide accepts the backend's 'D'/'C' markers as well as the long names.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "D", "DR", "DEBIT":
		return Debit, nil
	case "C", "CR", "CREDIT":
		return Credit, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// TransactionType is the direction of an inventory movement.
type TransactionType string

const (
	StockIn  TransactionType = "stock_in"
	StockOut TransactionType = "stock_out"
)

// Side returns the column an inventory movement lands in: receipts are debits, issues credits.
func (t TransactionType) Side() Side {
	if t == StockOut {
		return Credit
	}
	return Debit
}

// ParseTransactionType accepts either the movement name or the equivalent D/C marker.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stock_in", "in", "d":
		return StockIn, nil
	case "stock_out", "out", "c":
		return StockOut, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// LedgerAccount is master data from the backend. Read-only to the editor.
type LedgerAccount struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	LeftCode  string `json:"left_code"`
	RightCode string `json:"right_code"`
	GroupName string `json:"group,omitempty"`
}

// DisplayCode joins the left/right code pair the way the voucher pages print it.
func (a LedgerAccount) DisplayCode() string {
	left := strings.TrimSpace(a.LeftCode)
	right := strings.TrimSpace(a.RightCode)
	switch {
	case left != "" && right != "":
		return left + "/" + right
	case left != "":
		return left
	default:
		return right
	}
}

type Fund struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// StockBalance is the running inventory balance of a ledger as reported by the backend.
type StockBalance struct {
	Quantity decimal.Decimal `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
}

// Entry is a posted voucher as returned by GET entry(id).
type Entry struct {
	ID          int64       `json:"id"`
	EntryTypeID EntryType   `json:"entrytype_id"`
	EntryCode   string      `json:"entry_code"`
	Date        string      `json:"date"`
	FundID      int64       `json:"fund_id"`
	Narration   string      `json:"narration"`
	Items       []EntryItem `json:"entry_items"`
}

// EntryItem is one posting of an Entry. Quantity and UnitPrice are only set on
// inventory movements.
type EntryItem struct {
	LedgerID  int64            `json:"ledger_id"`
	DC        string           `json:"dc"`
	Amount    decimal.Decimal  `json:"amount"`
	Quantity  *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Details   string           `json:"details,omitempty"`
}

// IsInventory reports whether the item carries a stock movement.
func (i EntryItem) IsInventory() bool {
	return i.Quantity != nil
}

// CheckType rejects an entry whose discriminator is not the one the caller expects.
func (e *Entry) CheckType(expected EntryType) error {
	if e.EntryTypeID != expected {
		return fmt.Errorf("entry %d has type %d, want %d: %w", e.ID, e.EntryTypeID, expected, ErrEntryTypeMismatch)
	}
	return nil
}
