package app

import (
	"errors"

	"temple-vouchers/internal/core"
)

var (
	ErrSessionNotFound  = errors.New("session not found or expired")
	ErrUnknownLedger    = errors.New("ledger does not exist in this session")
	ErrInvalidMode      = errors.New("invalid session mode")
	ErrSubmitInProgress = errors.New("entry is already being submitted")
	ErrNotInventory     = errors.New("operation requires an inventory journal")
	ErrBackend          = errors.New("temple backend request failed")
	ErrMissingEntryID   = errors.New("entry id is required to copy or edit")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{core.ErrDuplicateAccount, "DUPLICATE_ACCOUNT"},
	{core.ErrMinimumRows, "MINIMUM_ROWS"},
	{core.ErrInsufficientStock, "INSUFFICIENT_STOCK"},
	{core.ErrNoValidItems, "NO_VALID_ITEMS"},
	{core.ErrMissingSide, "MISSING_SIDE"},
	{core.ErrUnbalanced, "UNBALANCED"},
	{core.ErrNoBalancingTarget, "NO_BALANCING_TARGET"},
	{core.ErrRowNotFound, "ROW_NOT_FOUND"},
	{core.ErrSideNotAllowed, "SIDE_NOT_ALLOWED"},
	{core.ErrEntryTypeMismatch, "ENTRY_TYPE_MISMATCH"},
	{core.ErrUnknownVoucher, "UNKNOWN_VOUCHER"},
	{core.ErrMissingFund, "MISSING_FUND"},
	{core.ErrMissingPaidFrom, "MISSING_PAID_FROM"},
	{core.ErrInvalidDate, "INVALID_DATE"},
	{ErrSessionNotFound, "SESSION_NOT_FOUND"},
	{ErrUnknownLedger, "UNKNOWN_LEDGER"},
	{ErrInvalidMode, "INVALID_MODE"},
	{ErrSubmitInProgress, "SUBMIT_IN_PROGRESS"},
	{ErrNotInventory, "NOT_INVENTORY"},
	{ErrMissingEntryID, "MISSING_ENTRY_ID"},
	{ErrBackend, "BACKEND_ERROR"},
}

// ErrorCode maps an error to the stable code the pages switch on.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "INTERNAL_ERROR"
}

// ErrorRow returns the row an error refers to, or 0.
func ErrorRow(err error) int {
	var re *core.RowError
	if errors.As(err, &re) {
		return re.RowID
	}
	return 0
}
