package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"temple-vouchers/internal/app"
	"temple-vouchers/internal/core"

	"github.com/alfredxing/calc/compute"
	"github.com/shopspring/decimal"
)

var (
	errExit      = errors.New("exit")
	errSubmitted = errors.New("submitted")
)

// editor is one interactive session over a voucher draft.
type editor struct {
	ctx       context.Context
	svc       app.ApplicationService
	reader    *bufio.Reader
	out       io.Writer
	ref       *app.ReferenceResult
	names     names
	id        string
	inventory bool
}

// Run loads the voucher's reference data, opens a session and reads commands
// until the voucher is submitted or the user quits. Quitting discards the
// session.
func Run(ctx context.Context, svc app.ApplicationService, req app.OpenSessionRequest, in io.Reader, out io.Writer) error {
	ref, err := svc.LoadReferenceData(ctx, req.Kind)
	if err != nil {
		return err
	}
	sess, err := svc.OpenSession(ctx, req)
	if err != nil {
		return err
	}

	e := &editor{
		ctx:       ctx,
		svc:       svc,
		reader:    bufio.NewReader(in),
		out:       out,
		ref:       ref,
		names:     newNames(ref),
		id:        sess.ID,
		inventory: ref.Voucher.IsInventory(),
	}
	printReference(out, ref)
	printSession(out, e.names, sess)
	fmt.Fprintln(out, "Type help for commands.")

	for {
		fmt.Fprint(out, "\n> ")
		input, readErr := e.reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input != "" {
			err := e.dispatch(input)
			switch {
			case errors.Is(err, errExit):
				return svc.CloseSession(ctx, e.id)
			case errors.Is(err, errSubmitted):
				return nil
			case err != nil:
				fmt.Fprintf(out, "Error: %v\n", err)
			}
		}
		if readErr != nil {
			// end of input discards the draft like exit
			fmt.Fprintln(out)
			return svc.CloseSession(ctx, e.id)
		}
	}
}

func (e *editor) dispatch(input string) error {
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	cmd := strings.ToLower(tokens[0])
	args := tokens[1:]

	var (
		res *app.SessionResult
		err error
	)
	switch cmd {
	case "show", "s":
		res, err = e.svc.GetSession(e.ctx, e.id)

	case "ledgers":
		if len(args) < 1 {
			return usage("ledgers <filter>")
		}
		filter := core.LedgerFilter(args[0])
		printLedger(e.out, filter, e.ref.Ledgers[filter])
		return nil

	case "header":
		res, err = e.editHeader()

	case "add":
		ledger := e.defaultLedger()
		if len(args) > 0 {
			if ledger, err = parseLedger(args[0]); err != nil {
				return err
			}
		}
		res, err = e.svc.AddRow(e.ctx, e.id, ledger)

	case "rm":
		ledger, row, _, perr := e.rowRef(args, 0)
		if perr != nil {
			return usageErr("rm [ledger] <row>", perr)
		}
		res, err = e.svc.RemoveRow(e.ctx, e.id, ledger, row)

	case "account", "acc":
		ledger, row, rest, perr := e.rowRef(args, 1)
		if perr != nil {
			return usageErr("account [ledger] <row> <id|->", perr)
		}
		var accountID *int64
		if rest[0] != "-" {
			id, perr := strconv.ParseInt(rest[0], 10, 64)
			if perr != nil {
				return fmt.Errorf("account id %q: %w", rest[0], perr)
			}
			accountID = &id
		}
		res, err = e.svc.SetAccount(e.ctx, e.id, ledger, row, accountID)

	case "amount", "amt":
		ledger, row, rest, perr := e.rowRef(args, 2)
		if perr != nil {
			return usageErr("amount [ledger] <row> <D|C> <amount>", perr)
		}
		side, perr := core.ParseSide(rest[0])
		if perr != nil {
			return perr
		}
		amount, perr := parseMoney(rest[1])
		if perr != nil {
			return fmt.Errorf("amount %q: %w", rest[1], perr)
		}
		res, err = e.svc.SetAmount(e.ctx, e.id, ledger, row, side, amount)

	case "details":
		ledger, row, rest, perr := e.rowRef(args, 0)
		if perr != nil {
			return usageErr("details [ledger] <row> <text>", perr)
		}
		res, err = e.svc.SetDetails(e.ctx, e.id, ledger, row, strings.Join(rest, " "))

	case "stock":
		res, err = e.stockLine(args)

	case "balance", "bal":
		res, err = e.svc.AutoBalance(e.ctx, e.id)

	case "check":
		v, verr := e.svc.Validate(e.ctx, e.id)
		if verr != nil {
			return verr
		}
		if v.Valid {
			fmt.Fprintln(e.out, "Voucher is valid.")
		} else {
			fmt.Fprintf(e.out, "INVALID [%s]: %s\n", v.Code, v.Message)
		}
		return nil

	case "submit":
		sub, serr := e.svc.Submit(e.ctx, e.id)
		if serr != nil {
			return serr
		}
		fmt.Fprintf(e.out, "Submitted %s (entry %d).\n", sub.EntryCode, sub.EntryID)
		return errSubmitted

	case "help", "h":
		printHelp(e.out, e.inventory)
		return nil

	case "exit", "quit", "q":
		fmt.Fprintln(e.out, "Draft discarded.")
		return errExit

	default:
		fmt.Fprintf(e.out, "Unknown command: %s  (type help for all commands)\n", cmd)
		return nil
	}

	if err != nil {
		return err
	}
	printSession(e.out, e.names, res)
	return nil
}

func (e *editor) stockLine(args []string) (*app.SessionResult, error) {
	if !e.inventory {
		return nil, app.ErrNotInventory
	}
	if len(args) < 3 {
		return nil, usage("stock <row> <in|out> <qty> [price]")
	}
	row, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("row %q: %w", args[0], err)
	}
	tt, err := core.ParseTransactionType(args[1])
	if err != nil {
		return nil, err
	}
	qty, err := decimal.NewFromString(args[2])
	if err != nil {
		return nil, fmt.Errorf("quantity %q: %w", args[2], err)
	}
	req := app.StockLineRequest{TransactionType: &tt, Quantity: &qty}
	if len(args) > 3 {
		price, err := parseMoney(args[3])
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", args[3], err)
		}
		req.UnitPrice = &price
	}
	return e.svc.UpdateStockLine(e.ctx, e.id, row, req)
}

func (e *editor) defaultLedger() app.LedgerName {
	if e.inventory {
		return app.LedgerAccounting
	}
	return app.LedgerItems
}

// rowRef parses "[ledger] <row>" and requires at least want further args.
func (e *editor) rowRef(args []string, want int) (app.LedgerName, int, []string, error) {
	ledger := e.defaultLedger()
	if len(args) > 0 {
		if l, err := parseLedger(args[0]); err == nil {
			ledger = l
			args = args[1:]
		}
	}
	if len(args) < 1+want {
		return "", 0, nil, errors.New("missing arguments")
	}
	row, err := strconv.Atoi(args[0])
	if err != nil {
		return "", 0, nil, fmt.Errorf("row %q: %w", args[0], err)
	}
	return ledger, row, args[1:], nil
}

func parseLedger(s string) (app.LedgerName, error) {
	switch strings.ToLower(s) {
	case "items", "i":
		return app.LedgerItems, nil
	case "inventory", "inv":
		return app.LedgerInventory, nil
	case "accounting", "acc":
		return app.LedgerAccounting, nil
	}
	return "", fmt.Errorf("%q: %w", s, app.ErrUnknownLedger)
}

// parseMoney reads a plain decimal, or falls back to evaluating an arithmetic
// expression such as 1200/3 rounded to 2 places.
func parseMoney(s string) (decimal.Decimal, error) {
	if d, err := decimal.NewFromString(s); err == nil {
		return d, nil
	}
	v, err := compute.Evaluate(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromFloat(v).Round(2), nil
}

func usage(u string) error {
	return fmt.Errorf("usage: %s", u)
}

func usageErr(u string, err error) error {
	return fmt.Errorf("%w (usage: %s)", err, u)
}
