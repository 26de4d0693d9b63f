package app

import (
	"temple-vouchers/internal/core"

	"github.com/shopspring/decimal"
)

// SessionMode selects how OpenSession initialises a draft.
type SessionMode string

const (
	ModeNew  SessionMode = "new"
	ModeCopy SessionMode = "copy"
	ModeEdit SessionMode = "edit"
)

// LedgerName addresses one row list inside a session.
type LedgerName string

const (
	// LedgerItems is the single list of contra, credit note and payment vouchers.
	LedgerItems LedgerName = "items"
	// LedgerInventory and LedgerAccounting are the two halves of an inventory journal.
	LedgerInventory  LedgerName = "inventory"
	LedgerAccounting LedgerName = "accounting"
)

// OpenSessionRequest is the input for OpenSession. EntryID is required for
// copy and edit. Date defaults to today for new and copied entries.
type OpenSessionRequest struct {
	Kind    string
	Mode    SessionMode
	EntryID int64
	Date    string
}

// HeaderRequest updates the voucher header. Nil fields are left unchanged.
type HeaderRequest struct {
	Date      *string
	FundID    *int64
	Narration *string
	PaidFrom  *int64
}

// StockLineRequest updates an inventory row. Nil fields are left unchanged.
type StockLineRequest struct {
	TransactionType *core.TransactionType
	Quantity        *decimal.Decimal
	UnitPrice       *decimal.Decimal
}
