package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"temple-vouchers/internal/core"
	"temple-vouchers/internal/logging"

	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const dateLayout = "2006-01-02"

// stockFetchLimit caps concurrent balance lookups when a seeded journal is opened.
const stockFetchLimit = 4

type appService struct {
	backend  Backend
	sessions *sessionStore
	now      func() time.Time
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(b Backend, sessionTTL time.Duration) ApplicationService {
	return &appService{
		backend:  b,
		sessions: newSessionStore(sessionTTL),
		now:      time.Now,
	}
}

// LoadReferenceData fetches funds and every ledger list of the voucher in
// parallel and returns once all of them have settled.
func (s *appService) LoadReferenceData(ctx context.Context, kind string) (*ReferenceResult, error) {
	v, err := core.LookupVoucher(kind)
	if err != nil {
		return nil, err
	}
	log := logging.FromContext(ctx).WithField("voucher", v.Kind)

	res := &ReferenceResult{
		Voucher: v,
		Funds:   []core.Fund{},
		Ledgers: make(map[core.LedgerFilter][]core.LedgerAccount, len(v.Filters)),
	}
	lists := make([][]core.LedgerAccount, len(v.Filters))
	listErrs := make([]error, len(v.Filters))
	var fundsErr error

	var g errgroup.Group
	g.Go(func() error {
		res.Funds, fundsErr = s.backend.Funds(ctx)
		return nil
	})
	for i, f := range v.Filters {
		i, f := i, f
		g.Go(func() error {
			lists[i], listErrs[i] = s.backend.Ledgers(ctx, f)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fundsErr != nil || res.Funds == nil {
		if fundsErr != nil {
			log.WithError(fundsErr).Warn("funds unavailable")
			res.Warnings = append(res.Warnings, "funds could not be loaded")
		}
		res.Funds = []core.Fund{}
	}
	for i, f := range v.Filters {
		if listErrs[i] != nil {
			log.WithError(listErrs[i]).WithField("filter", f).Warn("ledger list unavailable")
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s ledgers could not be loaded", f))
		}
		if lists[i] == nil {
			lists[i] = []core.LedgerAccount{}
		}
		res.Ledgers[f] = lists[i]
	}
	return res, nil
}

func (s *appService) OpenSession(ctx context.Context, req OpenSessionRequest) (*SessionResult, error) {
	v, err := core.LookupVoucher(req.Kind)
	if err != nil {
		return nil, err
	}
	log := logging.FromContext(ctx).WithFields(logrus.Fields{"voucher": v.Kind, "mode": req.Mode})

	var d *core.Draft
	switch req.Mode {
	case ModeNew, "":
		d = core.NewDraft(v)
	case ModeCopy, ModeEdit:
		if req.EntryID <= 0 {
			return nil, ErrMissingEntryID
		}
		entry, err := s.backend.Entry(ctx, req.EntryID)
		if err != nil {
			return nil, backendErr("load entry", err)
		}
		mode := core.SeedCopy
		if req.Mode == ModeEdit {
			mode = core.SeedEdit
		}
		if d, err = core.SeedDraft(v, entry, mode); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%q: %w", req.Mode, ErrInvalidMode)
	}

	var warnings []string
	if req.Mode != ModeEdit {
		d.Header.Date = req.Date
		if d.Header.Date == "" {
			d.Header.Date = s.now().Format(dateLayout)
		}
		code, err := s.backend.GenerateEntryCode(ctx, v.Prefix, v.EntryType, d.Header.Date)
		if err != nil {
			log.WithError(err).Warn("entry code generation failed")
			warnings = append(warnings, "entry code could not be generated")
		}
		d.Header.EntryCode = code
	}

	if d.Valuation != nil {
		warnings = append(warnings, s.loadPendingStock(ctx, d.Valuation.Inventory)...)
	}

	sess := s.sessions.create(d)
	log.WithField("session", sess.id).Info("session opened")

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(warnings...), nil
}

// loadPendingStock fetches the balances of seeded inventory rows. It runs
// before the session is published, so no lock is needed.
func (s *appService) loadPendingStock(ctx context.Context, inv *core.InventoryLedger) []string {
	reqs := inv.PendingStock()
	if len(reqs) == 0 {
		return nil
	}
	bals := make([]core.StockBalance, len(reqs))
	errs := make([]error, len(reqs))

	var g errgroup.Group
	g.SetLimit(stockFetchLimit)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			bals[i], errs[i] = s.backend.InventoryBalance(ctx, req.AccountID)
			return nil
		})
	}
	_ = g.Wait()

	var warnings []string
	for i, req := range reqs {
		inv.ApplyStock(req, bals[i], errs[i])
		if errs[i] != nil {
			logging.FromContext(ctx).WithError(errs[i]).WithField("ledger_id", req.AccountID).Warn("stock balance unavailable")
			warnings = append(warnings, stockWarning(req))
		}
	}
	return warnings
}

func (s *appService) GetSession(ctx context.Context, id string) (*SessionResult, error) {
	return s.mutate(id, func(*core.Draft) error { return nil })
}

func (s *appService) CloseSession(ctx context.Context, id string) error {
	if _, err := s.sessions.get(id); err != nil {
		return err
	}
	s.sessions.delete(id)
	logging.FromContext(ctx).WithField("session", id).Info("session closed")
	return nil
}

// UpdateHeader applies header edits. Changing the date of an entry that has
// not been posted yet fetches a fresh entry code for the new date.
func (s *appService) UpdateHeader(ctx context.Context, id string, req HeaderRequest) (*SessionResult, error) {
	sess, err := s.sessions.get(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	d := sess.draft
	if req.Date != nil && *req.Date != d.Header.Date {
		if _, err := time.Parse(dateLayout, *req.Date); err != nil {
			sess.mu.Unlock()
			return nil, fmt.Errorf("%q: %w", *req.Date, core.ErrInvalidDate)
		}
	}
	if req.PaidFrom != nil && d.Voucher.Policy.SingleSide == "" {
		sess.mu.Unlock()
		return nil, fmt.Errorf("paid_from on %s: %w", d.Voucher.Kind, core.ErrSideNotAllowed)
	}
	if req.FundID != nil {
		d.Header.FundID = *req.FundID
	}
	if req.Narration != nil {
		d.Header.Narration = *req.Narration
	}
	if req.PaidFrom != nil {
		acc := *req.PaidFrom
		d.Header.PaidFrom = &acc
	}
	regenerate := req.Date != nil && *req.Date != d.Header.Date && d.Header.EntryID == 0
	if req.Date != nil {
		d.Header.Date = *req.Date
	}
	v := d.Voucher
	date := d.Header.Date
	sess.mu.Unlock()

	var warnings []string
	if regenerate {
		code, err := s.backend.GenerateEntryCode(ctx, v.Prefix, v.EntryType, date)
		if err != nil {
			logging.FromContext(ctx).WithError(err).Warn("entry code generation failed")
			warnings = append(warnings, "entry code could not be generated")
		}
		sess.mu.Lock()
		// a later date change owns the code
		if err == nil && sess.draft.Header.Date == date {
			sess.draft.Header.EntryCode = code
		}
		sess.mu.Unlock()
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(warnings...), nil
}

func (s *appService) AddRow(ctx context.Context, id string, ledger LedgerName) (*SessionResult, error) {
	return s.mutate(id, func(d *core.Draft) error {
		if ledger == LedgerInventory {
			inv, err := inventoryLedger(d)
			if err != nil {
				return err
			}
			inv.AddRow()
			return nil
		}
		l, err := lineLedger(d, ledger)
		if err != nil {
			return err
		}
		l.AddRow()
		return nil
	})
}

func (s *appService) RemoveRow(ctx context.Context, id string, ledger LedgerName, rowID int) (*SessionResult, error) {
	return s.mutate(id, func(d *core.Draft) error {
		if ledger == LedgerInventory {
			inv, err := inventoryLedger(d)
			if err != nil {
				return err
			}
			return inv.RemoveRow(rowID)
		}
		l, err := lineLedger(d, ledger)
		if err != nil {
			return err
		}
		return l.RemoveRow(rowID)
	})
}

func (s *appService) SetAccount(ctx context.Context, id string, ledger LedgerName, rowID int, accountID *int64) (*SessionResult, error) {
	if ledger == LedgerInventory && accountID != nil {
		return s.selectInventoryAccount(ctx, id, rowID, *accountID)
	}
	return s.mutate(id, func(d *core.Draft) error {
		if ledger == LedgerInventory {
			inv, err := inventoryLedger(d)
			if err != nil {
				return err
			}
			return inv.ClearAccount(rowID)
		}
		l, err := lineLedger(d, ledger)
		if err != nil {
			return err
		}
		if accountID == nil {
			return l.ClearAccount(rowID)
		}
		return l.SetAccount(rowID, *accountID)
	})
}

// selectInventoryAccount binds the account, fetches its balance without
// holding the session lock, and applies the result unless the row was
// deleted or reselected in the meantime.
func (s *appService) selectInventoryAccount(ctx context.Context, id string, rowID int, accountID int64) (*SessionResult, error) {
	sess, err := s.sessions.get(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	inv, err := inventoryLedger(sess.draft)
	if err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	req, err := inv.SelectAccount(rowID, accountID)
	sess.mu.Unlock()
	if err != nil {
		return nil, err
	}

	bal, fetchErr := s.backend.InventoryBalance(ctx, accountID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	var warnings []string
	applied := inv.ApplyStock(req, bal, fetchErr)
	switch {
	case !applied:
		logging.FromContext(ctx).WithFields(logrus.Fields{"row": rowID, "ledger_id": accountID}).Debug("stale stock balance dropped")
	case fetchErr != nil:
		logging.FromContext(ctx).WithError(fetchErr).WithField("ledger_id", accountID).Warn("stock balance unavailable")
		warnings = append(warnings, stockWarning(req))
	}
	return sess.view(warnings...), nil
}

func (s *appService) SetAmount(ctx context.Context, id string, ledger LedgerName, rowID int, side core.Side, amount decimal.Decimal) (*SessionResult, error) {
	return s.mutate(id, func(d *core.Draft) error {
		l, err := lineLedger(d, ledger)
		if err != nil {
			return err
		}
		return l.SetAmount(rowID, side, amount)
	})
}

func (s *appService) SetDetails(ctx context.Context, id string, ledger LedgerName, rowID int, details string) (*SessionResult, error) {
	return s.mutate(id, func(d *core.Draft) error {
		if ledger == LedgerInventory {
			inv, err := inventoryLedger(d)
			if err != nil {
				return err
			}
			return inv.SetDetails(rowID, details)
		}
		l, err := lineLedger(d, ledger)
		if err != nil {
			return err
		}
		return l.SetDetails(rowID, details)
	})
}

func (s *appService) UpdateStockLine(ctx context.Context, id string, rowID int, req StockLineRequest) (*SessionResult, error) {
	return s.mutate(id, func(d *core.Draft) error {
		inv, err := inventoryLedger(d)
		if err != nil {
			return err
		}
		if !inv.Has(rowID) {
			return &core.RowError{RowID: rowID, Err: core.ErrRowNotFound}
		}
		if req.TransactionType != nil {
			if err := inv.SetTransactionType(rowID, *req.TransactionType); err != nil {
				return err
			}
		}
		if req.Quantity != nil {
			if err := inv.SetQuantity(rowID, *req.Quantity); err != nil {
				return err
			}
		}
		if req.UnitPrice != nil {
			if err := inv.SetUnitPrice(rowID, *req.UnitPrice); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *appService) AutoBalance(ctx context.Context, id string) (*SessionResult, error) {
	return s.mutate(id, func(d *core.Draft) error {
		if d.Valuation == nil {
			return ErrNotInventory
		}
		return d.Valuation.AutoBalance()
	})
}

func (s *appService) Validate(ctx context.Context, id string) (*ValidationResult, error) {
	sess, err := s.sessions.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	err = sess.draft.Validate()
	sess.mu.Unlock()

	if err != nil {
		return &ValidationResult{
			Code:    ErrorCode(err),
			Message: err.Error(),
			RowID:   ErrorRow(err),
		}, nil
	}
	return &ValidationResult{Valid: true}, nil
}

// Submit builds the payload under the session lock and posts it without the
// lock. The backend is called at most once per Submit.
func (s *appService) Submit(ctx context.Context, id string) (*SubmitResult, error) {
	sess, err := s.sessions.get(id)
	if err != nil {
		return nil, err
	}
	log := logging.FromContext(ctx).WithField("session", id)

	sess.mu.Lock()
	if sess.submitting {
		sess.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	payload, err := sess.draft.Payload()
	if err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	path := sess.draft.Voucher.SubmitPath
	sess.submitting = true
	sess.mu.Unlock()

	out, err := s.backend.SubmitEntry(ctx, path, payload)

	sess.mu.Lock()
	sess.submitting = false
	sess.mu.Unlock()

	if err != nil {
		log.WithError(err).Error("submit failed")
		return nil, backendErr("submit entry", err)
	}

	s.sessions.delete(id)
	log.WithFields(logrus.Fields{"entry_id": out.EntryID, "entry_code": out.EntryCode}).Info("entry submitted")
	return &SubmitResult{EntryID: out.EntryID, EntryCode: out.EntryCode}, nil
}

func (s *appService) PayloadSchema(kind string) (*jsonschema.Schema, error) {
	v, err := core.LookupVoucher(kind)
	if err != nil {
		return nil, err
	}
	return core.PayloadSchema(v.Kind)
}

// mutate runs fn on the session's draft under its lock and returns the new view.
func (s *appService) mutate(id string, fn func(d *core.Draft) error) (*SessionResult, error) {
	sess, err := s.sessions.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := fn(sess.draft); err != nil {
		return nil, err
	}
	return sess.view(), nil
}

func lineLedger(d *core.Draft, name LedgerName) (*core.Ledger, error) {
	switch {
	case name == LedgerItems && d.Items != nil:
		return d.Items, nil
	case name == LedgerAccounting && d.Valuation != nil:
		return d.Valuation.Accounting, nil
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownLedger)
}

func inventoryLedger(d *core.Draft) (*core.InventoryLedger, error) {
	if d.Valuation == nil {
		return nil, fmt.Errorf("%q: %w", LedgerInventory, ErrUnknownLedger)
	}
	return d.Valuation.Inventory, nil
}

func backendErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrBackend, err)
}

func stockWarning(req core.StockRequest) string {
	return fmt.Sprintf("stock balance for ledger %d could not be loaded; stock out is blocked on row %d", req.AccountID, req.RowID)
}
