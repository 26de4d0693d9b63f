package core

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateAccount  = errors.New("account already used in another row")
	ErrMinimumRows       = errors.New("cannot remove row: minimum number of rows reached")
	ErrInsufficientStock = errors.New("stock out quantity exceeds available quantity")
	ErrNoValidItems      = errors.New("entry has no rows with both an account and an amount")
	ErrMissingSide       = errors.New("entry needs at least one debit and one credit")
	ErrUnbalanced        = errors.New("total debits do not equal total credits")
	ErrNoBalancingTarget = errors.New("select an account on an empty row first")

	ErrRowNotFound       = errors.New("row not found")
	ErrSideNotAllowed    = errors.New("amount side not allowed for this entry")
	ErrEntryTypeMismatch = errors.New("entry type mismatch")
	ErrUnknownVoucher    = errors.New("unknown voucher type")
)

// RowError attaches the offending row to a validation failure so the page can
// flag the right input.
type RowError struct {
	RowID int
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.RowID, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

func rowErr(rowID int, err error) error {
	return &RowError{RowID: rowID, Err: err}
}
