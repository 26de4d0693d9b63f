package repl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"temple-vouchers/internal/app"
	"temple-vouchers/internal/core"
)

// names resolves account ids to display labels from the reference lists.
type names map[int64]string

func newNames(ref *app.ReferenceResult) names {
	n := names{}
	for _, list := range ref.Ledgers {
		for _, a := range list {
			n[a.ID] = a.Name
			if code := a.DisplayCode(); code != "" {
				n[a.ID] = a.Name + " [" + code + "]"
			}
		}
	}
	return n
}

func (n names) label(id *int64) string {
	if id == nil {
		return "-"
	}
	if name, ok := n[*id]; ok {
		return name
	}
	return "#" + strconv.FormatInt(*id, 10)
}

func printReference(out io.Writer, ref *app.ReferenceResult) {
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %s (prefix %s)\n", strings.ToUpper(string(ref.Voucher.Kind)), ref.Voucher.Prefix)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintln(out, "  FUNDS")
	for _, f := range ref.Funds {
		fmt.Fprintf(out, "    %-6d %s\n", f.ID, f.Name)
	}
	for _, filter := range ref.Voucher.Filters {
		fmt.Fprintf(out, "  LEDGERS (%s): %d\n", filter, len(ref.Ledgers[filter]))
	}
	for _, w := range ref.Warnings {
		fmt.Fprintf(out, "  WARNING: %s\n", w)
	}
}

func printLedger(out io.Writer, filter core.LedgerFilter, accounts []core.LedgerAccount) {
	fmt.Fprintf(out, "  %-8s %-30s %s\n", "ID", "NAME", "CODE")
	fmt.Fprintln(out, strings.Repeat("-", 62))
	if len(accounts) == 0 {
		fmt.Fprintf(out, "  No %s ledgers.\n", filter)
		return
	}
	for _, a := range accounts {
		fmt.Fprintf(out, "  %-8d %-30s %s\n", a.ID, a.Name, a.DisplayCode())
	}
}

func printSession(out io.Writer, n names, s *app.SessionResult) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s  %s  date %s  fund %d\n", strings.ToUpper(string(s.Kind)), s.Header.EntryCode, s.Header.Date, s.Header.FundID)
	if s.Header.Narration != "" {
		fmt.Fprintf(out, "  %s\n", s.Header.Narration)
	}
	if s.Header.PaidFrom != nil {
		fmt.Fprintf(out, "  Paid from: %s\n", n.label(s.Header.PaidFrom))
	}
	fmt.Fprintln(out, strings.Repeat("-", 62))

	if len(s.InventoryRows) > 0 {
		fmt.Fprintln(out, "  INVENTORY")
		for _, r := range s.InventoryRows {
			fmt.Fprintf(out, "  %3d %-24s %-9s %8s x %10s = %12s",
				r.Number, n.label(r.AccountID), r.TransactionType,
				r.Quantity.String(), r.UnitPrice.StringFixed(2), r.Amount.StringFixed(2))
			if r.StockLoaded {
				fmt.Fprintf(out, "  (on hand %s)", r.AvailableQuantity.String())
			}
			fmt.Fprintln(out)
			if r.StockError != "" {
				fmt.Fprintf(out, "      ! %s\n", r.StockError)
			}
		}
		fmt.Fprintln(out, "  ACCOUNTING")
		printRows(out, n, s.AccountingRows)
	} else {
		printRows(out, n, s.Rows)
	}

	fmt.Fprintln(out, strings.Repeat("-", 62))
	fmt.Fprintf(out, "  DR %12s   CR %12s   DIFF %s\n",
		s.Totals.Debit.StringFixed(2), s.Totals.Credit.StringFixed(2), s.Difference.StringFixed(2))
	if s.ItemsError != "" {
		fmt.Fprintf(out, "  ! %s\n", s.ItemsError)
	}
	for _, w := range s.Warnings {
		fmt.Fprintf(out, "  WARNING: %s\n", w)
	}
}

func printRows(out io.Writer, n names, rows []core.RowView) {
	for _, r := range rows {
		dr, cr := "", ""
		if r.Debit.IsPositive() {
			dr = r.Debit.StringFixed(2)
		}
		if r.Credit.IsPositive() {
			cr = r.Credit.StringFixed(2)
		}
		fmt.Fprintf(out, "  %3d %-30s %12s %12s  %s\n", r.Number, n.label(r.AccountID), dr, cr, r.Details)
	}
}

func printHelp(out io.Writer, inventory bool) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands (a leading / is optional):")
	fmt.Fprintln(out, "  show                                   print the voucher")
	fmt.Fprintln(out, "  ledgers <filter>                       list reference ledgers")
	fmt.Fprintln(out, "  header                                 edit date, fund, narration")
	fmt.Fprintln(out, "  add [ledger]                           append a row")
	fmt.Fprintln(out, "  rm [ledger] <row>                      remove a row")
	fmt.Fprintln(out, "  account [ledger] <row> <id|->          select or clear an account")
	fmt.Fprintln(out, "  amount [ledger] <row> <D|C> <amount>   set a row amount")
	fmt.Fprintln(out, "  details [ledger] <row> <text>          set row details")
	if inventory {
		fmt.Fprintln(out, "  stock <row> <in|out> <qty> [price]     set a stock movement")
		fmt.Fprintln(out, "  balance                                post the difference to the empty accounting row")
		fmt.Fprintln(out, "  ledger is inventory or accounting (default accounting)")
	}
	fmt.Fprintln(out, "  check                                  validate the voucher")
	fmt.Fprintln(out, "  submit                                 save the voucher")
	fmt.Fprintln(out, "  exit                                   discard and quit")
}
