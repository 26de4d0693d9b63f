package core

import "github.com/shopspring/decimal"

// InventoryLineItem is a stock movement row of an inventory journal. Amount is
// always Quantity × UnitPrice and is never edited directly.
type InventoryLineItem struct {
	RowID           int             `json:"row_id"`
	AccountID       *int64          `json:"account_id"`
	TransactionType TransactionType `json:"transaction_type"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Amount          decimal.Decimal `json:"amount"`
	Details         string          `json:"details,omitempty"`

	// Snapshot of stock on hand taken when the account was selected. Used for
	// validation only and never submitted.
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	AverageCost       decimal.Decimal `json:"average_cost"`
	StockLoaded       bool            `json:"stock_loaded"`
	StockError        string          `json:"stock_error,omitempty"`

	seq          int
	stockErr     error
	priceAdopted bool
}

// Committed reports whether the movement will be posted.
func (it InventoryLineItem) Committed() bool {
	return it.AccountID != nil && it.Amount.IsPositive()
}

// Err returns the row's stock validation failure, if any.
func (it InventoryLineItem) Err() error {
	return it.stockErr
}

func (it *InventoryLineItem) derive() {
	it.Amount = it.Quantity.Mul(it.UnitPrice).Round(2)
}

// InventoryRowView is an inventory row as rendered, numbered 1..N.
type InventoryRowView struct {
	Number int `json:"number"`
	InventoryLineItem
}

// StockRequest tags an inventory balance fetch with the row and selection it
// was issued for, so late responses can be recognised and dropped.
type StockRequest struct {
	RowID     int
	AccountID int64
	Seq       int
}
