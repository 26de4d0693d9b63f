package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// InventoryLedger holds the stock movement rows of an inventory journal.
// Accounts are unique per session. Not safe for concurrent use.
type InventoryLedger struct {
	minRows int
	rows    []*InventoryLineItem
	nextID  int
}

func NewInventoryLedger(minRows int) *InventoryLedger {
	return &InventoryLedger{minRows: minRows}
}

// AddRow appends an empty StockIn row.
func (l *InventoryLedger) AddRow() int {
	l.nextID++
	l.rows = append(l.rows, &InventoryLineItem{RowID: l.nextID, TransactionType: StockIn})
	return l.nextID
}

func (l *InventoryLedger) RemoveRow(rowID int) error {
	idx := l.index(rowID)
	if idx < 0 {
		return rowErr(rowID, ErrRowNotFound)
	}
	if len(l.rows) <= l.minRows {
		return fmt.Errorf("%w (minimum %d)", ErrMinimumRows, l.minRows)
	}
	l.rows = append(l.rows[:idx], l.rows[idx+1:]...)
	return nil
}

func (l *InventoryLedger) Len() int {
	return len(l.rows)
}

func (l *InventoryLedger) Has(rowID int) bool {
	return l.index(rowID) >= 0
}

func (l *InventoryLedger) Row(rowID int) (InventoryLineItem, bool) {
	idx := l.index(rowID)
	if idx < 0 {
		return InventoryLineItem{}, false
	}
	return *l.rows[idx], true
}

func (l *InventoryLedger) Rows() []InventoryRowView {
	out := make([]InventoryRowView, len(l.rows))
	for i, r := range l.rows {
		out[i] = InventoryRowView{Number: i + 1, InventoryLineItem: *r}
	}
	return out
}

// Committed returns the movements that will be posted.
func (l *InventoryLedger) Committed() []InventoryLineItem {
	var out []InventoryLineItem
	for _, r := range l.rows {
		if r.Committed() {
			out = append(out, *r)
		}
	}
	return out
}

// Totals puts StockIn amounts on the debit side and StockOut on the credit side.
func (l *InventoryLedger) Totals() Totals {
	t := Totals{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, r := range l.rows {
		if r.Committed() {
			t = t.add(r.TransactionType.Side(), r.Amount)
		}
	}
	return t
}

// SelectAccount binds an account to a row, clears the previous stock snapshot
// and returns the request the caller must resolve with ApplyStock.
func (l *InventoryLedger) SelectAccount(rowID int, accountID int64) (StockRequest, error) {
	row := l.get(rowID)
	if row == nil {
		return StockRequest{}, rowErr(rowID, ErrRowNotFound)
	}
	for _, other := range l.rows {
		if other.RowID != rowID && other.AccountID != nil && *other.AccountID == accountID {
			row.AccountID = nil
			l.resetStock(row)
			return StockRequest{}, rowErr(rowID, fmt.Errorf("account %d is on row %d: %w", accountID, other.RowID, ErrDuplicateAccount))
		}
	}
	id := accountID
	row.AccountID = &id
	l.resetStock(row)
	return StockRequest{RowID: rowID, AccountID: accountID, Seq: row.seq}, nil
}

// ClearAccount unbinds the row's account. Any in-flight stock request for the
// row becomes stale.
func (l *InventoryLedger) ClearAccount(rowID int) error {
	row := l.get(rowID)
	if row == nil {
		return rowErr(rowID, ErrRowNotFound)
	}
	row.AccountID = nil
	l.resetStock(row)
	return nil
}

// ApplyStock stores a fetched balance on the row the request was issued for.
// It reports false when the response is stale: the row was deleted or another
// account was selected since. A fetch error leaves the available quantity at
// zero, which blocks any StockOut until the balance is loaded.
func (l *InventoryLedger) ApplyStock(req StockRequest, bal StockBalance, fetchErr error) bool {
	row := l.get(req.RowID)
	if row == nil || row.seq != req.Seq {
		return false
	}
	if fetchErr != nil {
		row.AvailableQuantity = decimal.Zero
		row.AverageCost = decimal.Zero
		row.StockLoaded = false
		l.checkStock(row)
		return true
	}
	row.AvailableQuantity = bal.Quantity
	row.AverageCost = averageCost(bal)
	row.StockLoaded = true
	if row.TransactionType == StockOut && row.UnitPrice.IsZero() && row.AverageCost.IsPositive() {
		row.UnitPrice = row.AverageCost.Round(2)
		row.priceAdopted = true
		row.derive()
	}
	l.checkStock(row)
	return true
}

func (l *InventoryLedger) SetTransactionType(rowID int, t TransactionType) error {
	row := l.get(rowID)
	if row == nil {
		return rowErr(rowID, ErrRowNotFound)
	}
	if t != StockIn && t != StockOut {
		return rowErr(rowID, fmt.Errorf("unknown transaction type %q", t))
	}
	row.TransactionType = t
	row.derive()
	l.checkStock(row)
	return nil
}

// SetQuantity re-derives the amount and re-runs the stock check. An
// over-issue is kept but flagged on the row.
func (l *InventoryLedger) SetQuantity(rowID int, qty decimal.Decimal) error {
	row := l.get(rowID)
	if row == nil {
		return rowErr(rowID, ErrRowNotFound)
	}
	row.Quantity = clampQuantity(qty)
	row.derive()
	l.checkStock(row)
	return nil
}

func (l *InventoryLedger) SetUnitPrice(rowID int, price decimal.Decimal) error {
	row := l.get(rowID)
	if row == nil {
		return rowErr(rowID, ErrRowNotFound)
	}
	row.UnitPrice = clampQuantity(price)
	row.priceAdopted = false
	row.derive()
	l.checkStock(row)
	return nil
}

func (l *InventoryLedger) SetDetails(rowID int, details string) error {
	row := l.get(rowID)
	if row == nil {
		return rowErr(rowID, ErrRowNotFound)
	}
	row.Details = details
	return nil
}

// ValidateStock reports whether the row's movement is covered by available stock.
// StockIn rows are always valid.
func (l *InventoryLedger) ValidateStock(rowID int) bool {
	row := l.get(rowID)
	if row == nil {
		return false
	}
	return l.checkStock(row) == nil
}

// Seed appends already-posted movements with fresh row ids. No duplicate check
// and no stock check against a snapshot that has not been fetched yet.
func (l *InventoryLedger) Seed(items []InventoryLineItem) []int {
	ids := make([]int, 0, len(items))
	for _, it := range items {
		id := l.AddRow()
		row := l.get(id)
		if it.AccountID != nil {
			acc := *it.AccountID
			row.AccountID = &acc
		}
		if it.TransactionType != "" {
			row.TransactionType = it.TransactionType
		}
		row.Quantity = clampQuantity(it.Quantity)
		row.UnitPrice = clampQuantity(it.UnitPrice)
		row.Details = it.Details
		row.derive()
		ids = append(ids, id)
	}
	return ids
}

// PendingStock returns fetch requests for every row with an account whose
// balance has not been loaded, used after seeding.
func (l *InventoryLedger) PendingStock() []StockRequest {
	var out []StockRequest
	for _, r := range l.rows {
		if r.AccountID != nil && !r.StockLoaded {
			r.seq++
			out = append(out, StockRequest{RowID: r.RowID, AccountID: *r.AccountID, Seq: r.seq})
		}
	}
	return out
}

func (l *InventoryLedger) fill() {
	for len(l.rows) < l.minRows {
		l.AddRow()
	}
}

// resetStock drops the row's snapshot, along with a unit price taken from it,
// and makes any in-flight fetch for the row stale.
func (l *InventoryLedger) resetStock(row *InventoryLineItem) {
	row.seq++
	row.AvailableQuantity = decimal.Zero
	row.AverageCost = decimal.Zero
	row.StockLoaded = false
	if row.priceAdopted {
		row.UnitPrice = decimal.Zero
		row.priceAdopted = false
		row.derive()
	}
	l.checkStock(row)
}

func (l *InventoryLedger) checkStock(row *InventoryLineItem) error {
	row.stockErr = nil
	row.StockError = ""
	if row.TransactionType != StockOut {
		return nil
	}
	if row.Quantity.GreaterThan(row.AvailableQuantity) {
		row.stockErr = rowErr(row.RowID, fmt.Errorf("quantity %s, available %s: %w",
			row.Quantity.String(), row.AvailableQuantity.String(), ErrInsufficientStock))
		row.StockError = row.stockErr.Error()
	}
	return row.stockErr
}

func (l *InventoryLedger) firstStockError() error {
	for _, r := range l.rows {
		if r.AccountID == nil {
			continue
		}
		if err := l.checkStock(r); err != nil {
			return err
		}
	}
	return nil
}

func (l *InventoryLedger) index(rowID int) int {
	for i, r := range l.rows {
		if r.RowID == rowID {
			return i
		}
	}
	return -1
}

func (l *InventoryLedger) get(rowID int) *InventoryLineItem {
	if idx := l.index(rowID); idx >= 0 {
		return l.rows[idx]
	}
	return nil
}

// Valuation pairs the stock movements of an inventory journal with its
// accounting postings. Balance and validity are judged on the two together.
type Valuation struct {
	Inventory  *InventoryLedger
	Accounting *Ledger
}

// NewValuation builds an inventory journal with one empty row on each side.
func NewValuation() *Valuation {
	v := &Valuation{
		Inventory:  NewInventoryLedger(1),
		Accounting: NewLedger(Policy{MinRows: 1}),
	}
	v.Inventory.fill()
	v.Accounting.fill()
	return v
}

// JointTotals sums the derived inventory amounts and the accounting postings.
func (v *Valuation) JointTotals() Totals {
	return v.Inventory.Totals().Add(v.Accounting.Totals())
}

func (v *Valuation) IsBalanced() bool {
	return v.JointTotals().IsBalanced()
}

// Validate checks the combined journal: something to post, no over-issued
// stock, and joint balance.
func (v *Valuation) Validate() error {
	if v.committed() == 0 {
		return ErrNoValidItems
	}
	if err := v.Inventory.firstStockError(); err != nil {
		return err
	}
	return v.ValidateBalance()
}

// ValidateBalance is Validate without the stock check, for journals whose
// stock snapshot cannot be taken.
func (v *Valuation) ValidateBalance() error {
	return validateTotals(Policy{}, v.committed(), v.JointTotals())
}

func (v *Valuation) committed() int {
	return len(v.Inventory.Committed()) + len(v.Accounting.Committed())
}

// AutoBalance posts the joint difference to the single accounting row that has
// an account but no amount. It never adds rows and never touches inventory rows.
func (v *Valuation) AutoBalance() error {
	var target *LineItem
	for _, r := range v.Accounting.rows {
		if r.AccountID == nil || r.Amount().IsPositive() {
			continue
		}
		if target != nil {
			return fmt.Errorf("more than one empty row with an account: %w", ErrNoBalancingTarget)
		}
		target = r
	}
	if target == nil {
		return ErrNoBalancingTarget
	}
	diff := v.JointTotals().Difference()
	if diff.IsZero() {
		return nil
	}
	if diff.IsPositive() {
		return v.Accounting.SetAmount(target.RowID, Credit, diff)
	}
	return v.Accounting.SetAmount(target.RowID, Debit, diff.Abs())
}

// IsStockError reports whether err came from a failed stock check.
func IsStockError(err error) bool {
	return errors.Is(err, ErrInsufficientStock)
}

func averageCost(bal StockBalance) decimal.Decimal {
	if bal.Quantity.IsZero() {
		return decimal.Zero
	}
	return bal.Value.Div(bal.Quantity)
}

func clampQuantity(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
