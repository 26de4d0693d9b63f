package core

import (
	"fmt"

	"github.com/invopop/jsonschema"
)

// EntryPayload is the header common to every submit-entry body.
type EntryPayload struct {
	EntryID     int64     `json:"entry_id,omitempty" jsonschema_description:"Set when an existing entry is being updated"`
	EntryTypeID EntryType `json:"entrytype_id" jsonschema_description:"Backend entry type discriminator"`
	EntryCode   string    `json:"entry_code"`
	Date        string    `json:"date" jsonschema_description:"Entry date in YYYY-MM-DD format"`
	FundID      int64     `json:"fund_id"`
	Narration   string    `json:"narration"`
	TotalAmount string    `json:"total_amount" jsonschema_description:"Debit total, 2 decimal places"`
}

// LinePayload is a debit/credit posting of a contra, credit note or the
// accounting side of an inventory journal.
type LinePayload struct {
	LedgerID int64  `json:"ledger_id"`
	DrAmount string `json:"dr_amount"`
	CrAmount string `json:"cr_amount"`
	Details  string `json:"details,omitempty"`
}

// PaymentItemPayload is a payment line. Payments post items to the debit column only.
type PaymentItemPayload struct {
	LedgerID     int64  `json:"ledger_id"`
	DebitAmount  string `json:"debit_amount"`
	CreditAmount string `json:"credit_amount"`
	Details      string `json:"details,omitempty"`
}

// InventoryItemPayload is a stock movement; the backend derives its amount.
type InventoryItemPayload struct {
	LedgerID        int64           `json:"ledger_id"`
	TransactionType TransactionType `json:"transaction_type" jsonschema:"enum=stock_in,enum=stock_out"`
	Quantity        string          `json:"quantity"`
	UnitPrice       string          `json:"unit_price"`
	Details         string          `json:"details,omitempty"`
}

type JournalPayload struct {
	EntryPayload
	Items []LinePayload `json:"entry_items"`
}

type PaymentPayload struct {
	EntryPayload
	PaidFrom int64                `json:"paid_from"`
	Items    []PaymentItemPayload `json:"items"`
}

type InventoryJournalPayload struct {
	EntryPayload
	InventoryItems    []InventoryItemPayload `json:"inventory_items"`
	AccountingEntries []LinePayload          `json:"accounting_entries"`
}

// Payload validates the draft and builds the submit-entry body for its voucher.
func (d *Draft) Payload() (any, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	header := EntryPayload{
		EntryID:     d.Header.EntryID,
		EntryTypeID: d.Voucher.EntryType,
		EntryCode:   d.Header.EntryCode,
		Date:        d.Header.Date,
		FundID:      d.Header.FundID,
		Narration:   d.Header.Narration,
		TotalAmount: d.Totals().Debit.StringFixed(2),
	}

	switch {
	case d.Valuation != nil:
		p := InventoryJournalPayload{EntryPayload: header}
		for _, it := range d.Valuation.Inventory.Committed() {
			p.InventoryItems = append(p.InventoryItems, InventoryItemPayload{
				LedgerID:        *it.AccountID,
				TransactionType: it.TransactionType,
				Quantity:        it.Quantity.String(),
				UnitPrice:       it.UnitPrice.String(),
				Details:         it.Details,
			})
		}
		p.AccountingEntries = linePayloads(d.Valuation.Accounting.Committed())
		return p, nil

	case d.Voucher.Policy.SingleSide != "":
		p := PaymentPayload{EntryPayload: header, PaidFrom: *d.Header.PaidFrom}
		for _, it := range d.Items.Committed() {
			p.Items = append(p.Items, PaymentItemPayload{
				LedgerID:     *it.AccountID,
				DebitAmount:  it.Debit.StringFixed(2),
				CreditAmount: it.Credit.StringFixed(2),
				Details:      it.Details,
			})
		}
		return p, nil

	default:
		return JournalPayload{EntryPayload: header, Items: linePayloads(d.Items.Committed())}, nil
	}
}

func linePayloads(items []LineItem) []LinePayload {
	out := make([]LinePayload, 0, len(items))
	for _, it := range items {
		out = append(out, LinePayload{
			LedgerID: *it.AccountID,
			DrAmount: it.Debit.StringFixed(2),
			CrAmount: it.Credit.StringFixed(2),
			Details:  it.Details,
		})
	}
	return out
}

// PayloadSchema returns the JSON schema of the submit body for a voucher kind.
func PayloadSchema(kind VoucherKind) (*jsonschema.Schema, error) {
	r := &jsonschema.Reflector{ExpandedStruct: true}
	switch kind {
	case Contra, CreditNote:
		return r.Reflect(&JournalPayload{}), nil
	case Payment:
		return r.Reflect(&PaymentPayload{}), nil
	case InventoryJournal:
		return r.Reflect(&InventoryJournalPayload{}), nil
	}
	return nil, fmt.Errorf("%q: %w", kind, ErrUnknownVoucher)
}
