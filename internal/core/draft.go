package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingFund     = errors.New("fund is required")
	ErrMissingPaidFrom = errors.New("paid-from account is required")
	ErrInvalidDate     = errors.New("date must be in YYYY-MM-DD format")
)

// SeedMode says how an existing entry initialises a draft.
type SeedMode int

const (
	// SeedCopy starts a new entry from an old one: new code, merged stock rows.
	SeedCopy SeedMode = iota
	// SeedEdit reopens the entry itself, keeping its id, code and date.
	SeedEdit
)

// Header carries the voucher fields outside the line items.
type Header struct {
	EntryID   int64  `json:"entry_id,omitempty"`
	EntryCode string `json:"entry_code"`
	Date      string `json:"date"`
	FundID    int64  `json:"fund_id"`
	Narration string `json:"narration"`
	// PaidFrom is the bank account a payment is drawn on; payments only.
	PaidFrom *int64 `json:"paid_from,omitempty"`
}

// Draft is one voucher being edited. Plain vouchers use Items; inventory
// journals use Valuation.
type Draft struct {
	Voucher   Voucher
	Header    Header
	Items     *Ledger
	Valuation *Valuation
}

// NewDraft starts an empty voucher with the minimum number of rows.
func NewDraft(v Voucher) *Draft {
	d := &Draft{Voucher: v}
	if v.IsInventory() {
		d.Valuation = NewValuation()
		return d
	}
	d.Items = NewLedger(v.Policy)
	d.Items.fill()
	return d
}

// SeedDraft builds a draft from a posted entry after checking its discriminator.
func SeedDraft(v Voucher, e *Entry, mode SeedMode) (*Draft, error) {
	if err := e.CheckType(v.EntryType); err != nil {
		return nil, err
	}

	d := &Draft{Voucher: v}
	d.Header = Header{FundID: e.FundID, Narration: e.Narration}
	if mode == SeedEdit {
		d.Header.EntryID = e.ID
		d.Header.EntryCode = e.EntryCode
		d.Header.Date = e.Date
	}

	switch {
	case v.IsInventory():
		d.Valuation = &Valuation{
			Inventory:  NewInventoryLedger(1),
			Accounting: NewLedger(v.Policy),
		}
		var stock []InventoryLineItem
		var postings []LineItem
		for _, it := range e.Items {
			if it.IsInventory() {
				row, err := inventoryItem(it)
				if err != nil {
					return nil, fmt.Errorf("entry %d: %w", e.ID, err)
				}
				stock = append(stock, row)
				continue
			}
			row, err := lineItem(it)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", e.ID, err)
			}
			postings = append(postings, row)
		}
		if mode == SeedCopy {
			stock = Consolidate(stock)
		}
		d.Valuation.Inventory.Seed(stock)
		d.Valuation.Accounting.Seed(postings)
		d.Valuation.Inventory.fill()
		d.Valuation.Accounting.fill()

	case v.Policy.SingleSide != "":
		d.Items = NewLedger(v.Policy)
		var rows []LineItem
		for _, it := range e.Items {
			row, err := lineItem(it)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", e.ID, err)
			}
			if row.Side() == v.Policy.SingleSide {
				rows = append(rows, row)
				continue
			}
			if d.Header.PaidFrom != nil {
				return nil, fmt.Errorf("entry %d has more than one %s line for the header account", e.ID, row.Side())
			}
			acc := it.LedgerID
			d.Header.PaidFrom = &acc
		}
		d.Items.Seed(rows)
		d.Items.fill()

	default:
		d.Items = NewLedger(v.Policy)
		var rows []LineItem
		for _, it := range e.Items {
			row, err := lineItem(it)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", e.ID, err)
			}
			rows = append(rows, row)
		}
		d.Items.Seed(rows)
		d.Items.fill()
	}
	return d, nil
}

// Totals is the single-ledger total, or the joint total of an inventory journal.
func (d *Draft) Totals() Totals {
	if d.Valuation != nil {
		return d.Valuation.JointTotals()
	}
	return d.Items.Totals()
}

func (d *Draft) IsBalanced() bool {
	if d.Items != nil && d.Items.Policy().SingleSide != "" {
		return true
	}
	return d.Totals().IsBalanced()
}

// ValidateItems runs the line-item rules only. It never looks at the header,
// so it can be evaluated after every edit.
func (d *Draft) ValidateItems() error {
	if d.Valuation != nil {
		return d.Valuation.Validate()
	}
	return d.Items.Validate()
}

// Validate is the save-time check: header fields, then line items.
func (d *Draft) Validate() error {
	if d.Header.FundID <= 0 {
		return ErrMissingFund
	}
	if _, err := time.Parse("2006-01-02", strings.TrimSpace(d.Header.Date)); err != nil {
		return fmt.Errorf("%q: %w", d.Header.Date, ErrInvalidDate)
	}
	if d.Voucher.Policy.SingleSide != "" && d.Header.PaidFrom == nil {
		return ErrMissingPaidFrom
	}
	return d.ValidateItems()
}

func lineItem(it EntryItem) (LineItem, error) {
	side, err := ParseSide(it.DC)
	if err != nil {
		return LineItem{}, err
	}
	acc := it.LedgerID
	row := LineItem{AccountID: &acc, Details: it.Details}
	if side == Debit {
		row.Debit = it.Amount
	} else {
		row.Credit = it.Amount
	}
	return row, nil
}

func inventoryItem(it EntryItem) (InventoryLineItem, error) {
	side, err := ParseSide(it.DC)
	if err != nil {
		return InventoryLineItem{}, err
	}
	txType := StockIn
	if side == Credit {
		txType = StockOut
	}
	acc := it.LedgerID
	row := InventoryLineItem{
		AccountID:       &acc,
		TransactionType: txType,
		Quantity:        *it.Quantity,
		Details:         it.Details,
	}
	switch {
	case it.UnitPrice != nil:
		row.UnitPrice = *it.UnitPrice
	case it.Quantity.IsPositive():
		row.UnitPrice = it.Amount.Div(*it.Quantity).Round(4)
	default:
		row.UnitPrice = decimal.Zero
	}
	return row, nil
}
