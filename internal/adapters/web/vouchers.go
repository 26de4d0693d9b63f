package web

import (
	"net/http"

	"temple-vouchers/internal/app"
	"temple-vouchers/internal/core"

	"github.com/shopspring/decimal"
)

type openSessionBody struct {
	Mode    string `json:"mode" validate:"omitempty,oneof=new copy edit"`
	EntryID int64  `json:"entry_id" validate:"gte=0"`
	Date    string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type headerBody struct {
	Date      *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	FundID    *int64  `json:"fund_id" validate:"omitempty,gt=0"`
	Narration *string `json:"narration" validate:"omitempty,max=500"`
	PaidFrom  *int64  `json:"paid_from" validate:"omitempty,gt=0"`
}

// accountBody binds an account; a null account_id clears the row.
type accountBody struct {
	AccountID *int64 `json:"account_id" validate:"omitempty,gt=0"`
}

type amountBody struct {
	Side   string          `json:"side" validate:"required,oneof=D C"`
	Amount decimal.Decimal `json:"amount"`
}

type detailsBody struct {
	Details string `json:"details" validate:"max=500"`
}

type stockBody struct {
	TransactionType *string          `json:"transaction_type" validate:"omitempty,oneof=stock_in stock_out"`
	Quantity        *decimal.Decimal `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
}

// referenceData handles GET /api/vouchers/{type}/reference.
func (h *Handler) referenceData(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.LoadReferenceData(r.Context(), voucherType(r))
	respond(w, r, res, err)
}

// payloadSchema handles GET /api/vouchers/{type}/schema.
func (h *Handler) payloadSchema(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.PayloadSchema(voucherType(r))
	respond(w, r, res, err)
}

// openSession handles POST /api/vouchers/{type}/sessions.
func (h *Handler) openSession(w http.ResponseWriter, r *http.Request) {
	var body openSessionBody
	// an empty body opens a blank voucher
	if r.ContentLength != 0 && !h.decodeJSON(w, r, &body) {
		return
	}
	res, err := h.svc.OpenSession(r.Context(), app.OpenSessionRequest{
		Kind:    voucherType(r),
		Mode:    app.SessionMode(body.Mode),
		EntryID: body.EntryID,
		Date:    body.Date,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, res)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetSession(r.Context(), sessionID(r))
	respond(w, r, res, err)
}

// closeSession handles DELETE /api/sessions/{id}, sent when the page is left.
func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseSession(r.Context(), sessionID(r)); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateHeader(w http.ResponseWriter, r *http.Request) {
	var body headerBody
	if !h.decodeJSON(w, r, &body) {
		return
	}
	res, err := h.svc.UpdateHeader(r.Context(), sessionID(r), app.HeaderRequest{
		Date:      body.Date,
		FundID:    body.FundID,
		Narration: body.Narration,
		PaidFrom:  body.PaidFrom,
	})
	respond(w, r, res, err)
}

func (h *Handler) addRow(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.AddRow(r.Context(), sessionID(r), ledgerName(r))
	respond(w, r, res, err)
}

func (h *Handler) removeRow(w http.ResponseWriter, r *http.Request) {
	row, ok := rowID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.RemoveRow(r.Context(), sessionID(r), ledgerName(r), row)
	respond(w, r, res, err)
}

func (h *Handler) setAccount(w http.ResponseWriter, r *http.Request) {
	row, ok := rowID(w, r)
	if !ok {
		return
	}
	var body accountBody
	if !h.decodeJSON(w, r, &body) {
		return
	}
	res, err := h.svc.SetAccount(r.Context(), sessionID(r), ledgerName(r), row, body.AccountID)
	respond(w, r, res, err)
}

func (h *Handler) setAmount(w http.ResponseWriter, r *http.Request) {
	row, ok := rowID(w, r)
	if !ok {
		return
	}
	var body amountBody
	if !h.decodeJSON(w, r, &body) {
		return
	}
	res, err := h.svc.SetAmount(r.Context(), sessionID(r), ledgerName(r), row, core.Side(body.Side), body.Amount)
	respond(w, r, res, err)
}

func (h *Handler) setDetails(w http.ResponseWriter, r *http.Request) {
	row, ok := rowID(w, r)
	if !ok {
		return
	}
	var body detailsBody
	if !h.decodeJSON(w, r, &body) {
		return
	}
	res, err := h.svc.SetDetails(r.Context(), sessionID(r), ledgerName(r), row, body.Details)
	respond(w, r, res, err)
}

// updateStockLine handles PUT /api/sessions/{id}/inventory/rows/{row}/stock.
func (h *Handler) updateStockLine(w http.ResponseWriter, r *http.Request) {
	if ledgerName(r) != app.LedgerInventory {
		writeAppError(w, r, app.ErrUnknownLedger)
		return
	}
	row, ok := rowID(w, r)
	if !ok {
		return
	}
	var body stockBody
	if !h.decodeJSON(w, r, &body) {
		return
	}
	req := app.StockLineRequest{Quantity: body.Quantity, UnitPrice: body.UnitPrice}
	if body.TransactionType != nil {
		tt := core.TransactionType(*body.TransactionType)
		req.TransactionType = &tt
	}
	res, err := h.svc.UpdateStockLine(r.Context(), sessionID(r), row, req)
	respond(w, r, res, err)
}

func (h *Handler) autoBalance(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.AutoBalance(r.Context(), sessionID(r))
	respond(w, r, res, err)
}

// validateSession always answers 200 for a live session; the verdict is in the body.
func (h *Handler) validateSession(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Validate(r.Context(), sessionID(r))
	respond(w, r, res, err)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Submit(r.Context(), sessionID(r))
	respond(w, r, res, err)
}
