package app

import (
	"temple-vouchers/internal/core"

	"github.com/shopspring/decimal"
)

// ReferenceResult is returned by LoadReferenceData.
type ReferenceResult struct {
	Voucher  core.Voucher                               `json:"voucher"`
	Funds    []core.Fund                                `json:"funds"`
	Ledgers  map[core.LedgerFilter][]core.LedgerAccount `json:"ledgers"`
	Warnings []string                                   `json:"warnings,omitempty"`
}

// SessionResult is the full state of an editing session.
type SessionResult struct {
	ID             string                  `json:"id"`
	Kind           core.VoucherKind        `json:"kind"`
	Header         core.Header             `json:"header"`
	Rows           []core.RowView          `json:"rows,omitempty"`
	InventoryRows  []core.InventoryRowView `json:"inventory_rows,omitempty"`
	AccountingRows []core.RowView          `json:"accounting_rows,omitempty"`
	Totals         core.Totals             `json:"totals"`
	Difference     decimal.Decimal         `json:"difference"`
	Balanced       bool                    `json:"balanced"`
	// ItemsError is the current line-item validation failure, if any.
	ItemsError string   `json:"items_error,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// ValidationResult is returned by Validate.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	RowID   int    `json:"row_id,omitempty"`
}

// SubmitResult is returned by Submit.
type SubmitResult struct {
	EntryID   int64  `json:"entry_id"`
	EntryCode string `json:"entry_code"`
}
