package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BalanceTolerance is the largest debit/credit difference still treated as balanced.
// Repeated decimal arithmetic on the pages leaves sub-cent residue, so equality is
// never tested exactly.
var BalanceTolerance = decimal.New(1, -2)

// Balanced is the balance rule shared by entry validation and payment approval.
func Balanced(debit, credit decimal.Decimal) bool {
	return debit.Sub(credit).Abs().LessThan(BalanceTolerance)
}

// Policy configures a Ledger for one entry type.
type Policy struct {
	// MinRows is the floor RemoveRow refuses to go below.
	MinRows int
	// UniqueAccounts rejects selecting an account already used by another row.
	UniqueAccounts bool
	// RequireBothSides fails validation unless both a debit and a credit leg exist.
	RequireBothSides bool
	// SingleSide restricts rows to one column. The counter leg is then the
	// voucher's header account and balance is implied.
	SingleSide Side
}

// Totals are debit and credit sums over committed rows.
type Totals struct {
	Debit  decimal.Decimal `json:"debit_total"`
	Credit decimal.Decimal `json:"credit_total"`
}

func (t Totals) Add(o Totals) Totals {
	return Totals{Debit: t.Debit.Add(o.Debit), Credit: t.Credit.Add(o.Credit)}
}

// Difference is debit minus credit.
func (t Totals) Difference() decimal.Decimal {
	return t.Debit.Sub(t.Credit)
}

func (t Totals) IsBalanced() bool {
	return Balanced(t.Debit, t.Credit)
}

func (t Totals) add(side Side, amount decimal.Decimal) Totals {
	if side == Debit {
		t.Debit = t.Debit.Add(amount)
	} else {
		t.Credit = t.Credit.Add(amount)
	}
	return t
}

// LineItem is one row of a ledger editing session. At most one of Debit and
// Credit is nonzero.
type LineItem struct {
	RowID     int             `json:"row_id"`
	AccountID *int64          `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Details   string          `json:"details,omitempty"`
}

// Side returns the column holding the row's amount; Debit when both are zero.
func (li LineItem) Side() Side {
	if li.Credit.IsPositive() {
		return Credit
	}
	return Debit
}

func (li LineItem) Amount() decimal.Decimal {
	if li.Credit.IsPositive() {
		return li.Credit
	}
	return li.Debit
}

// Committed reports whether the row is a real posting: an account and a positive amount.
// Half-filled rows are ignored by totals and validation.
func (li LineItem) Committed() bool {
	return li.AccountID != nil && li.Amount().IsPositive()
}

// RowView is a row as the page renders it: Number is the visible 1..N position.
type RowView struct {
	Number int `json:"number"`
	LineItem
}

// Ledger is a single line-item editing session. It is the source of truth for
// the page; not safe for concurrent use.
type Ledger struct {
	policy Policy
	rows   []*LineItem
	nextID int
}

func NewLedger(policy Policy) *Ledger {
	return &Ledger{policy: policy}
}

func (l *Ledger) Policy() Policy {
	return l.policy
}

// AddRow appends an empty row and returns its row id. Row ids are never reused.
func (l *Ledger) AddRow() int {
	l.nextID++
	l.rows = append(l.rows, &LineItem{RowID: l.nextID})
	return l.nextID
}

// RemoveRow deletes a row unless that would drop the session below its floor.
func (l *Ledger) RemoveRow(rowID int) error {
	idx := l.index(rowID)
	if idx < 0 {
		return rowErr(rowID, ErrRowNotFound)
	}
	if len(l.rows) <= l.policy.MinRows {
		return fmt.Errorf("%w (minimum %d)", ErrMinimumRows, l.policy.MinRows)
	}
	l.rows = append(l.rows[:idx], l.rows[idx+1:]...)
	return nil
}

func (l *Ledger) Len() int {
	return len(l.rows)
}

// Has reports whether rowID still exists. Async completions must check it before writing.
func (l *Ledger) Has(rowID int) bool {
	return l.index(rowID) >= 0
}

func (l *Ledger) Row(rowID int) (LineItem, bool) {
	idx := l.index(rowID)
	if idx < 0 {
		return LineItem{}, false
	}
	return *l.rows[idx], true
}

// Rows returns a copy of the rows in insertion order, numbered 1..N.
func (l *Ledger) Rows() []RowView {
	out := make([]RowView, len(l.rows))
	for i, r := range l.rows {
		out[i] = RowView{Number: i + 1, LineItem: *r}
	}
	return out
}

// SetAccount binds an account to a row. Under a unique-account policy a
// duplicate is refused and the row's account is left unset.
func (l *Ledger) SetAccount(rowID int, accountID int64) error {
	row := l.get(rowID)
	if row == nil {
		return rowErr(rowID, ErrRowNotFound)
	}
	if l.policy.UniqueAccounts {
		for _, other := range l.rows {
			if other.RowID != rowID && other.AccountID != nil && *other.AccountID == accountID {
				row.AccountID = nil
				return rowErr(rowID, fmt.Errorf("account %d is on row %d: %w", accountID, other.RowID, ErrDuplicateAccount))
			}
		}
	}
	id := accountID
	row.AccountID = &id
	return nil
}

func (l *Ledger) ClearAccount(rowID int) error {
	row := l.get(rowID)
	if row == nil {
		return rowErr(rowID, ErrRowNotFound)
	}
	row.AccountID = nil
	return nil
}

// SetAmount writes amount (clamped to >= 0, 2 dp) to the given side and zeroes
// the opposite side of the same row.
func (l *Ledger) SetAmount(rowID int, side Side, amount decimal.Decimal) error {
	row := l.get(rowID)
	if row == nil {
		return rowErr(rowID, ErrRowNotFound)
	}
	if l.policy.SingleSide != "" && side != l.policy.SingleSide {
		return rowErr(rowID, ErrSideNotAllowed)
	}
	amount = clampAmount(amount)
	if side == Debit {
		row.Debit, row.Credit = amount, decimal.Zero
	} else {
		row.Debit, row.Credit = decimal.Zero, amount
	}
	return nil
}

func (l *Ledger) SetDetails(rowID int, details string) error {
	row := l.get(rowID)
	if row == nil {
		return rowErr(rowID, ErrRowNotFound)
	}
	row.Details = details
	return nil
}

// Totals sums committed rows only.
func (l *Ledger) Totals() Totals {
	t := Totals{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, r := range l.rows {
		if r.Committed() {
			t = t.add(r.Side(), r.Amount())
		}
	}
	return t
}

func (l *Ledger) IsBalanced() bool {
	return l.Totals().IsBalanced()
}

// Validate decides whether the session can be saved. It is a pure function of
// the current rows.
func (l *Ledger) Validate() error {
	return validateTotals(l.policy, len(l.Committed()), l.Totals())
}

// Committed returns the rows that will be posted.
func (l *Ledger) Committed() []LineItem {
	var out []LineItem
	for _, r := range l.rows {
		if r.Committed() {
			out = append(out, *r)
		}
	}
	return out
}

// Seed appends rows loaded from an existing entry, issuing fresh row ids.
// The duplicate-account check does not apply: the source entry was already posted.
func (l *Ledger) Seed(items []LineItem) []int {
	ids := make([]int, 0, len(items))
	for _, it := range items {
		id := l.AddRow()
		row := l.get(id)
		if it.AccountID != nil {
			acc := *it.AccountID
			row.AccountID = &acc
		}
		row.Details = it.Details
		if it.Credit.IsPositive() {
			row.Credit = clampAmount(it.Credit)
			row.Debit = decimal.Zero
		} else {
			row.Debit = clampAmount(it.Debit)
			row.Credit = decimal.Zero
		}
		ids = append(ids, id)
	}
	return ids
}

// fill pads the session with empty rows up to its floor.
func (l *Ledger) fill() {
	for len(l.rows) < l.policy.MinRows {
		l.AddRow()
	}
}

func (l *Ledger) index(rowID int) int {
	for i, r := range l.rows {
		if r.RowID == rowID {
			return i
		}
	}
	return -1
}

func (l *Ledger) get(rowID int) *LineItem {
	if idx := l.index(rowID); idx >= 0 {
		return l.rows[idx]
	}
	return nil
}

func validateTotals(policy Policy, committed int, t Totals) error {
	if committed == 0 {
		return ErrNoValidItems
	}
	if policy.RequireBothSides && (t.Debit.IsZero() || t.Credit.IsZero()) {
		return ErrMissingSide
	}
	if policy.SingleSide == "" && !t.IsBalanced() {
		return fmt.Errorf("debits %s, credits %s: %w", t.Debit.StringFixed(2), t.Credit.StringFixed(2), ErrUnbalanced)
	}
	return nil
}

func clampAmount(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}
