package app

import (
	"context"

	"temple-vouchers/internal/backend"
	"temple-vouchers/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
)

// Backend is the temple REST API as the application sees it.
// *backend.Client satisfies it.
type Backend interface {
	Funds(ctx context.Context) ([]core.Fund, error)
	Ledgers(ctx context.Context, filter core.LedgerFilter) ([]core.LedgerAccount, error)
	Entry(ctx context.Context, id int64) (*core.Entry, error)
	InventoryBalance(ctx context.Context, ledgerID int64) (core.StockBalance, error)
	GenerateEntryCode(ctx context.Context, prefix string, typeID core.EntryType, date string) (string, error)
	SubmitEntry(ctx context.Context, path string, payload any) (*backend.Submitted, error)
}

// ApplicationService is the single interface the UI adapters (CLI, Web) call.
// Every session method returns the full session view after the change so the
// page can re-render from it.
type ApplicationService interface {
	// LoadReferenceData fetches the funds and ledger lists a voucher page needs.
	// A list that fails to load comes back empty with a warning.
	LoadReferenceData(ctx context.Context, kind string) (*ReferenceResult, error)

	// OpenSession starts an editing session: empty, copied from an entry, or
	// editing an entry in place.
	OpenSession(ctx context.Context, req OpenSessionRequest) (*SessionResult, error)

	GetSession(ctx context.Context, id string) (*SessionResult, error)

	// CloseSession discards a session; unsaved edits are lost.
	CloseSession(ctx context.Context, id string) error

	UpdateHeader(ctx context.Context, id string, req HeaderRequest) (*SessionResult, error)

	AddRow(ctx context.Context, id string, ledger LedgerName) (*SessionResult, error)
	RemoveRow(ctx context.Context, id string, ledger LedgerName, rowID int) (*SessionResult, error)

	// SetAccount binds (or with nil clears) a row's account. On the inventory
	// ledger it also fetches the account's stock balance.
	SetAccount(ctx context.Context, id string, ledger LedgerName, rowID int, accountID *int64) (*SessionResult, error)

	SetAmount(ctx context.Context, id string, ledger LedgerName, rowID int, side core.Side, amount decimal.Decimal) (*SessionResult, error)
	SetDetails(ctx context.Context, id string, ledger LedgerName, rowID int, details string) (*SessionResult, error)

	// UpdateStockLine edits the movement fields of an inventory row.
	UpdateStockLine(ctx context.Context, id string, rowID int, req StockLineRequest) (*SessionResult, error)

	// AutoBalance posts an inventory journal's difference to its single
	// empty accounting row.
	AutoBalance(ctx context.Context, id string) (*SessionResult, error)

	// Validate runs the save-time checks without submitting.
	Validate(ctx context.Context, id string) (*ValidationResult, error)

	// Submit validates, posts the entry once and discards the session on
	// success. On failure the session stays editable.
	Submit(ctx context.Context, id string) (*SubmitResult, error)

	// PayloadSchema describes the submit body of a voucher kind.
	PayloadSchema(kind string) (*jsonschema.Schema, error)
}
