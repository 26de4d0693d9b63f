package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"temple-vouchers/internal/adapters/repl"
	"temple-vouchers/internal/app"
	"temple-vouchers/internal/core"

	"github.com/spf13/cobra"
)

// ServiceFactory builds the application service on demand, so commands that
// stay offline never need backend configuration.
type ServiceFactory func() (app.ApplicationService, error)

// NewRootCommand wires the one-shot commands.
func NewRootCommand(newService ServiceFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "vouchers",
		Short:         "Temple voucher tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		listCommand(),
		schemaCommand(),
		validateCommand(),
		copyCommand(newService),
		editCommand(newService),
	)
	return root
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List voucher types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-20s %-8s %-6s %s\n", "KIND", "PREFIX", "TYPE", "LEDGERS")
			for _, v := range core.Vouchers() {
				filters := make([]string, len(v.Filters))
				for i, f := range v.Filters {
					filters[i] = string(f)
				}
				fmt.Fprintf(out, "%-20s %-8s %-6d %s\n", v.Kind, v.Prefix, v.EntryType, strings.Join(filters, ","))
			}
			return nil
		},
	}
}

func schemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <voucher>",
		Short: "Print the JSON schema of a voucher's submit payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := core.PayloadSchema(core.VoucherKind(args[0]))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), schema)
		},
	}
}

// validateCommand checks a posted entry offline. Stock levels are not known
// without the backend, so inventory journals are checked for balance only.
func validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <voucher> [file|-]",
		Short: "Validate an entry read from a file or stdin",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := core.LookupVoucher(args[0])
			if err != nil {
				return err
			}
			in := cmd.InOrStdin()
			if len(args) == 2 && args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			var entry core.Entry
			if err := json.NewDecoder(in).Decode(&entry); err != nil {
				return fmt.Errorf("invalid entry JSON: %w", err)
			}
			d, err := core.SeedDraft(v, &entry, core.SeedEdit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printTotals(out, d.Totals())
			err = d.Validate()
			if d.Valuation != nil && core.IsStockError(err) {
				fmt.Fprintln(out, "stock levels not checked offline")
				err = d.Valuation.ValidateBalance()
			}
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			fmt.Fprintln(out, "Entry is valid.")
			return nil
		},
	}
}

// copyCommand opens a copy session against the backend, reports what a copy
// would look like and discards the session.
func copyCommand(newService ServiceFactory) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "copy <voucher> <entry-id>",
		Short: "Preview a copy of a posted entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entryID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("entry id %q: %w", args[1], err)
			}
			svc, err := newService()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			sess, err := svc.OpenSession(ctx, app.OpenSessionRequest{
				Kind:    args[0],
				Mode:    app.ModeCopy,
				EntryID: entryID,
				Date:    date,
			})
			if err != nil {
				return err
			}
			defer func() {
				if err := svc.CloseSession(ctx, sess.ID); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: close session %s: %v\n", sess.ID, err)
				}
			}()

			out := cmd.OutOrStdout()
			printSession(out, sess)
			res, err := svc.Validate(ctx, sess.ID)
			if err != nil {
				return err
			}
			if !res.Valid {
				fmt.Fprintf(out, "INVALID [%s]: %s\n", res.Code, res.Message)
				return nil
			}
			fmt.Fprintln(out, "Copy is valid.")
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "entry date for the copy (YYYY-MM-DD, default today)")
	return cmd
}

// editCommand runs the interactive editor on a new, copied or reopened voucher.
func editCommand(newService ServiceFactory) *cobra.Command {
	var (
		copyID int64
		editID int64
		date   string
	)
	cmd := &cobra.Command{
		Use:   "edit <voucher>",
		Short: "Edit a voucher interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := app.OpenSessionRequest{Kind: args[0], Mode: app.ModeNew, Date: date}
			switch {
			case copyID != 0 && editID != 0:
				return errors.New("--copy and --edit are exclusive")
			case copyID != 0:
				req.Mode, req.EntryID = app.ModeCopy, copyID
			case editID != 0:
				req.Mode, req.EntryID = app.ModeEdit, editID
			}
			svc, err := newService()
			if err != nil {
				return err
			}
			return repl.Run(cmd.Context(), svc, req, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().Int64Var(&copyID, "copy", 0, "start from a copy of this entry")
	cmd.Flags().Int64Var(&editID, "edit", 0, "reopen this entry")
	cmd.Flags().StringVar(&date, "date", "", "entry date (YYYY-MM-DD, default today)")
	return cmd
}

func printSession(out io.Writer, s *app.SessionResult) {
	fmt.Fprintf(out, "%s %s  date %s  fund %d\n", s.Kind, s.Header.EntryCode, s.Header.Date, s.Header.FundID)
	for _, w := range s.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	for _, r := range s.Rows {
		printLine(out, r.Number, r.AccountID, r.Side(), r.Amount().StringFixed(2))
	}
	for _, r := range s.InventoryRows {
		fmt.Fprintf(out, "  %3d %-10s %-9s %10s x %10s = %12s\n",
			r.Number, account(r.AccountID), r.TransactionType,
			r.Quantity.String(), r.UnitPrice.StringFixed(2), r.Amount.StringFixed(2))
	}
	for _, r := range s.AccountingRows {
		printLine(out, r.Number, r.AccountID, r.Side(), r.Amount().StringFixed(2))
	}
	printTotals(out, s.Totals)
}

func printLine(out io.Writer, n int, accountID *int64, side core.Side, amount string) {
	fmt.Fprintf(out, "  %3d %-10s %s %12s\n", n, account(accountID), side, amount)
}

func printTotals(out io.Writer, t core.Totals) {
	fmt.Fprintln(out, strings.Repeat("-", 40))
	fmt.Fprintf(out, "  DR %12s  CR %12s  DIFF %s\n",
		t.Debit.StringFixed(2), t.Credit.StringFixed(2), t.Difference().StringFixed(2))
}

func account(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
