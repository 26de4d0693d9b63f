package core

import (
	"fmt"
	"sort"
)

// EntryType is the backend's entrytype_id discriminator.
type EntryType int

const (
	EntryReceipt          EntryType = 1
	EntryPayment          EntryType = 2
	EntryContra           EntryType = 3
	EntryJournal          EntryType = 4
	EntryCreditNote       EntryType = 5
	EntryInventoryJournal EntryType = 6
)

type VoucherKind string

const (
	Contra           VoucherKind = "contra"
	CreditNote       VoucherKind = "credit-note"
	Payment          VoucherKind = "payment"
	InventoryJournal VoucherKind = "inventory-journal"
)

// LedgerFilter selects a reference ledger list from the backend.
type LedgerFilter string

const (
	FilterBankAccounts LedgerFilter = "bank-accounts"
	FilterNormal       LedgerFilter = "normal"
	FilterInventory    LedgerFilter = "inventory"
	FilterCredit       LedgerFilter = "credit"
)

// Voucher describes one entry page: its discriminator, code prefix, the
// ledger lists it offers and the rules its line items follow.
type Voucher struct {
	Kind       VoucherKind    `json:"kind"`
	EntryType  EntryType      `json:"entrytype_id"`
	Prefix     string         `json:"prefix"`
	SubmitPath string         `json:"-"`
	Filters    []LedgerFilter `json:"ledger_filters"`
	Policy     Policy         `json:"-"`
}

// IsInventory reports whether the voucher is a paired inventory journal.
func (v Voucher) IsInventory() bool {
	return v.Kind == InventoryJournal
}

var vouchers = map[VoucherKind]Voucher{
	Contra: {
		Kind:       Contra,
		EntryType:  EntryContra,
		Prefix:     "CON",
		SubmitPath: "/accounts/entries/contra",
		Filters:    []LedgerFilter{FilterBankAccounts},
		Policy:     Policy{MinRows: 2, UniqueAccounts: true, RequireBothSides: true},
	},
	CreditNote: {
		Kind:       CreditNote,
		EntryType:  EntryCreditNote,
		Prefix:     "CN",
		SubmitPath: "/accounts/entries/credit-note",
		Filters:    []LedgerFilter{FilterNormal, FilterCredit},
		Policy:     Policy{MinRows: 2},
	},
	Payment: {
		Kind:       Payment,
		EntryType:  EntryPayment,
		Prefix:     "PAY",
		SubmitPath: "/accounts/entries/payment",
		Filters:    []LedgerFilter{FilterBankAccounts, FilterNormal},
		Policy:     Policy{MinRows: 1, SingleSide: Debit},
	},
	InventoryJournal: {
		Kind:       InventoryJournal,
		EntryType:  EntryInventoryJournal,
		Prefix:     "INV",
		SubmitPath: "/accounts/entries/inventory-journal",
		Filters:    []LedgerFilter{FilterInventory, FilterNormal},
		Policy:     Policy{MinRows: 1},
	},
}

// LookupVoucher resolves a page's voucher kind.
func LookupVoucher(kind string) (Voucher, error) {
	v, ok := vouchers[VoucherKind(kind)]
	if !ok {
		return Voucher{}, fmt.Errorf("%q: %w", kind, ErrUnknownVoucher)
	}
	return v, nil
}

// Vouchers lists every supported voucher kind, sorted by kind.
func Vouchers() []Voucher {
	out := make([]Voucher, 0, len(vouchers))
	for _, v := range vouchers {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
