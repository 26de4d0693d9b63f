package core

import "github.com/shopspring/decimal"

// Consolidate merges movements that share an (account, transaction type) pair
// into one row. Quantities add up and the unit price becomes the
// quantity-weighted average of the merged prices:
//
//	p = (q1·p1 + q2·p2) / (q1 + q2)
//
// It runs once when an entry is copied; first-occurrence order is kept and rows
// without an account pass through untouched.
func Consolidate(items []InventoryLineItem) []InventoryLineItem {
	type key struct {
		account int64
		txType  TransactionType
	}
	type acc struct {
		pos   int
		qty   decimal.Decimal
		value decimal.Decimal
	}

	out := make([]InventoryLineItem, 0, len(items))
	seen := make(map[key]*acc)

	for _, it := range items {
		if it.AccountID == nil {
			out = append(out, it)
			continue
		}
		k := key{account: *it.AccountID, txType: it.TransactionType}
		a, ok := seen[k]
		if !ok {
			seen[k] = &acc{pos: len(out), qty: it.Quantity, value: it.Quantity.Mul(it.UnitPrice)}
			out = append(out, it)
			continue
		}
		a.qty = a.qty.Add(it.Quantity)
		a.value = a.value.Add(it.Quantity.Mul(it.UnitPrice))

		merged := &out[a.pos]
		merged.Quantity = a.qty
		if a.qty.IsPositive() {
			merged.UnitPrice = a.value.Div(a.qty).Round(4)
		}
		if merged.Details == "" {
			merged.Details = it.Details
		}
	}

	for i := range out {
		out[i].derive()
	}
	return out
}
