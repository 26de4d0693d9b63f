package repl

import (
	"fmt"
	"strconv"
	"strings"

	"temple-vouchers/internal/app"
)

// editHeader prompts for each header field. A blank answer keeps the current
// value; "cancel" abandons the edit.
func (e *editor) editHeader() (*app.SessionResult, error) {
	cur, err := e.svc.GetSession(e.ctx, e.id)
	if err != nil {
		return nil, err
	}
	h := cur.Header
	var req app.HeaderRequest

	date, ok := e.prompt("Date (YYYY-MM-DD)", h.Date)
	if !ok {
		return cur, nil
	}
	if date != "" {
		req.Date = &date
	}

	fund, ok := e.prompt("Fund id", strconv.FormatInt(h.FundID, 10))
	if !ok {
		return cur, nil
	}
	if fund != "" {
		id, err := strconv.ParseInt(fund, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("fund id %q: %w", fund, err)
		}
		req.FundID = &id
	}

	narration, ok := e.prompt("Narration", h.Narration)
	if !ok {
		return cur, nil
	}
	if narration != "" {
		req.Narration = &narration
	}

	if e.ref.Voucher.Policy.SingleSide != "" {
		paid, ok := e.prompt("Paid from (account id)", e.names.label(h.PaidFrom))
		if !ok {
			return cur, nil
		}
		if paid != "" {
			id, err := strconv.ParseInt(paid, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("account id %q: %w", paid, err)
			}
			req.PaidFrom = &id
		}
	}

	return e.svc.UpdateHeader(e.ctx, e.id, req)
}

func (e *editor) prompt(label, current string) (string, bool) {
	fmt.Fprintf(e.out, "  %s [%s]: ", label, current)
	raw, err := e.reader.ReadString('\n')
	raw = strings.TrimSpace(raw)
	if err != nil || strings.EqualFold(raw, "cancel") {
		fmt.Fprintln(e.out, "  Header unchanged.")
		return "", false
	}
	return raw, true
}
