// Package transfer drives the three-stage protocol behind every
// fund-affecting loan operation: external transfer, internal mutation,
// unconditional unlock and terminal report.
package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	loanDomain "p2plend-backend/internal/domain/loan"
	settingDomain "p2plend-backend/internal/domain/setting"
	tokenDomain "p2plend-backend/internal/domain/token"
	transferDomain "p2plend-backend/internal/domain/transfer"
	"p2plend-backend/internal/domain/uow"
	"p2plend-backend/internal/infrastructure/metrics"
	loanUC "p2plend-backend/internal/usecase/loan"
	"p2plend-backend/pkg/id"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrEscrowNotConfigured = errors.New("escrow is not configured")

const pendingTermNanos = 7 * 24 * int64(time.Hour)

type Orchestrator struct {
	uow    uow.UnitOfWork
	escrow transferDomain.EscrowRelay
	ledger transferDomain.TokenLedger

	now      func() time.Time
	schedule func(fn func())
}

func NewOrchestrator(u uow.UnitOfWork, escrow transferDomain.EscrowRelay, ledger transferDomain.TokenLedger) *Orchestrator {
	return &Orchestrator{
		uow:      u,
		escrow:   escrow,
		ledger:   ledger,
		now:      func() time.Time { return time.Now().UTC() },
		schedule: func(fn func()) { go fn() },
	}
}

// WithNow overrides the clock, for tests.
func (o *Orchestrator) WithNow(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// WithScheduler overrides how protocol stages are dispatched; tests run them
// synchronously.
func (o *Orchestrator) WithScheduler(schedule func(fn func())) *Orchestrator {
	o.schedule = schedule
	return o
}

func (o *Orchestrator) GetTransfer(ctx context.Context, transferID string) (*ReportDTO, error) {
	var rec *transferDomain.Record
	err := o.uow.WithinTx(ctx, func(r uow.Repos) error {
		var e error
		rec, e = r.Transfers.GetByTransferID(ctx, transferID)
		return e
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, transferDomain.ErrNotFound
		}
		return nil, err
	}
	return reportOf(rec), nil
}

// HandleIncoming is the single inbound deposit hook. It validates the
// tagged payload, runs the synchronous precondition checks, persists the
// lock and the saga record, and schedules the stages. The caller gets the
// transfer id back before the protocol completes.
func (o *Orchestrator) HandleIncoming(ctx context.Context, sender, amount, msg string) (*ReportDTO, error) {
	amt, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}

	var payload IncomingPayload
	if err := json.Unmarshal([]byte(msg), &payload); err != nil {
		return nil, transferDomain.ErrUnknownOperation
	}

	switch payload.Operation {
	case transferDomain.OpCreateLoan:
		var p CreateLoanParams
		if err := json.Unmarshal(payload.Params, &p); err != nil {
			return nil, transferDomain.ErrUnknownOperation
		}
		return o.startCreate(ctx, sender, amt, msg, p)
	case transferDomain.OpAcceptLoan:
		var p AcceptLoanParams
		if err := json.Unmarshal(payload.Params, &p); err != nil {
			return nil, transferDomain.ErrUnknownOperation
		}
		return o.startAccept(ctx, sender, amt, msg, p)
	case transferDomain.OpIncreaseLoanDeposit:
		var p IncreaseDepositParams
		if err := json.Unmarshal(payload.Params, &p); err != nil {
			return nil, transferDomain.ErrUnknownOperation
		}
		return o.startIncreaseDeposit(ctx, sender, amt, msg, p)
	default:
		return nil, transferDomain.ErrUnknownOperation
	}
}

func (o *Orchestrator) startCreate(ctx context.Context, sender string, amt decimal.Decimal, msg string, p CreateLoanParams) (*ReportDTO, error) {
	if p.Currency == "" || !p.Capital.IsInteger() || p.Capital.LessThanOrEqual(decimal.Zero) ||
		p.Rate < 0 || p.Duration <= 0 {
		return nil, loanDomain.ErrInvalidArgument
	}
	if !amt.Equal(p.Capital) {
		return nil, loanDomain.ErrAmountMismatch
	}

	now := o.now()
	newLoan := &loanDomain.Loan{
		LoanID:      id.NewLoanID(now),
		Mode:        loanDomain.ModeBorrow,
		Type:        loanDomain.TypeAmortized,
		Currency:    p.Currency,
		Capital:     p.Capital,
		Rate:        p.Rate,
		Duration:    p.Duration,
		Frequency:   p.Frequency,
		CreatedAtNs: now.UnixNano(),
		ExpiredAtNs: now.UnixNano() + pendingTermNanos,
		Status:      loanDomain.StatusPending,
		Title:       p.Title,
		Description: p.Description,
		Link:        p.Link,
		Borrower:    sender,
		Guarantor:   sender,
		Collected:   decimal.Zero,
		Deposit:     decimal.Zero,
	}

	rec := newRecord(transferDomain.OpCreateLoan, newLoan.LoanID, sender, amt)
	var tokenAccount, escrowAddr string
	err := o.uow.WithinTx(ctx, func(r uow.Repos) error {
		tok, err := r.Tokens.GetBySymbol(ctx, p.Currency)
		if err != nil {
			return mapTokenErr(err)
		}
		tokenAccount = tok.Account
		if escrowAddr, err = escrowAddress(ctx, r); err != nil {
			return err
		}
		return r.Transfers.Create(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	metrics.TransfersStarted.WithLabelValues(string(rec.Operation)).Inc()
	o.schedule(func() {
		o.runSaga(rec,
			func(ctx context.Context) error {
				// Stage A: forward the received capital into escrow
				return o.ledger.Transfer(ctx, tokenAccount, escrowAddr, rec.Amount, msg)
			},
			func(ctx context.Context, r uow.Repos) error {
				// Stage B: the loan comes into existence here, pre-locked
				l := *newLoan
				l.LockState = loanDomain.LockAwaitingMutation
				if err := r.Loans.Create(ctx, &l); err != nil {
					return err
				}
				return r.Loans.AppendIndex(ctx, loanDomain.RoleBorrower, l.Borrower, l.LoanID)
			})
	})
	return reportOf(rec), nil
}

func (o *Orchestrator) startAccept(ctx context.Context, sender string, amt decimal.Decimal, msg string, p AcceptLoanParams) (*ReportDTO, error) {
	lender := sender
	rec := newRecord(transferDomain.OpAcceptLoan, p.ID, sender, amt)
	var tokenAccount, borrower string
	err := o.uow.WithinLoanTx(ctx, p.ID, func(r uow.Repos, l *loanDomain.Loan) error {
		if l.Locked() {
			metrics.LockConflicts.Inc()
			return loanDomain.ErrLocked
		}
		if l.Status != loanDomain.StatusPending {
			return loanDomain.ErrNotPending
		}
		if !amt.Equal(l.Capital) {
			return loanDomain.ErrAmountMismatch
		}
		tok, err := r.Tokens.GetBySymbol(ctx, l.Currency)
		if err != nil {
			return mapTokenErr(err)
		}
		tokenAccount = tok.Account
		borrower = l.Borrower

		l.LockState = loanDomain.LockAwaitingTransfer
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		return r.Transfers.Create(ctx, rec)
	})
	if err != nil {
		return nil, mapLoanErr(err)
	}

	metrics.TransfersStarted.WithLabelValues(string(rec.Operation)).Inc()
	o.schedule(func() {
		o.runSaga(rec,
			func(ctx context.Context) error {
				// Stage A: the lender's capital goes straight to the borrower
				return o.ledger.Transfer(ctx, tokenAccount, borrower, rec.Amount, msg)
			},
			func(ctx context.Context, r uow.Repos) error {
				// Stage B re-validates against current state
				l, err := r.Loans.GetByLoanID(ctx, rec.LoanID)
				if err != nil {
					return mapLoanErr(err)
				}
				if l.Status != loanDomain.StatusPending {
					return loanDomain.ErrNotPending
				}
				l.Status = loanDomain.StatusActive
				l.Lender = lender
				l.AcceptedAtNs = o.now().UnixNano()
				if err := r.Loans.Save(ctx, l); err != nil {
					return err
				}
				return r.Loans.AppendIndex(ctx, loanDomain.RoleLender, lender, l.LoanID)
			})
	})
	return reportOf(rec), nil
}

func (o *Orchestrator) startIncreaseDeposit(ctx context.Context, sender string, amt decimal.Decimal, msg string, p IncreaseDepositParams) (*ReportDTO, error) {
	rec := newRecord(transferDomain.OpIncreaseLoanDeposit, p.ID, sender, amt)
	var tokenAccount, escrowAddr string
	err := o.uow.WithinLoanTx(ctx, p.ID, func(r uow.Repos, l *loanDomain.Loan) error {
		if l.Locked() {
			metrics.LockConflicts.Inc()
			return loanDomain.ErrLocked
		}
		if err := checkDepositRoom(l, amt); err != nil {
			return err
		}
		tok, err := r.Tokens.GetBySymbol(ctx, l.Currency)
		if err != nil {
			return mapTokenErr(err)
		}
		tokenAccount = tok.Account
		if escrowAddr, err = escrowAddress(ctx, r); err != nil {
			return err
		}

		l.LockState = loanDomain.LockAwaitingTransfer
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		return r.Transfers.Create(ctx, rec)
	})
	if err != nil {
		return nil, mapLoanErr(err)
	}

	metrics.TransfersStarted.WithLabelValues(string(rec.Operation)).Inc()
	o.schedule(func() {
		o.runSaga(rec,
			func(ctx context.Context) error {
				// Stage A: pre-paid interest moves into escrow
				return o.ledger.Transfer(ctx, tokenAccount, escrowAddr, rec.Amount, msg)
			},
			func(ctx context.Context, r uow.Repos) error {
				l, err := r.Loans.GetByLoanID(ctx, rec.LoanID)
				if err != nil {
					return mapLoanErr(err)
				}
				if err := checkDepositRoom(l, rec.Amount); err != nil {
					return err
				}
				l.Deposit = l.Deposit.Add(rec.Amount)
				return r.Loans.Save(ctx, l)
			})
	})
	return reportOf(rec), nil
}

// Cancel refunds a pending loan's capital to the party that funded it and
// removes the loan. Public entry; only the loan's borrower or lender may
// call it.
func (o *Orchestrator) Cancel(ctx context.Context, caller, loanID string) (*ReportDTO, error) {
	var rec *transferDomain.Record
	var tokenAccount, receiver string
	var role loanDomain.Role
	err := o.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loanDomain.Loan) error {
		if l.Locked() {
			metrics.LockConflicts.Inc()
			return loanDomain.ErrLocked
		}
		if caller != l.Borrower && (l.Lender == "" || caller != l.Lender) {
			return loanDomain.ErrNotCounterparty
		}
		if l.Status != loanDomain.StatusPending {
			return loanDomain.ErrNotPending
		}
		tok, err := r.Tokens.GetBySymbol(ctx, l.Currency)
		if err != nil {
			return mapTokenErr(err)
		}
		tokenAccount = tok.Account

		// capital goes back to whoever funded the escrow
		receiver, role = l.Borrower, loanDomain.RoleBorrower
		if l.Mode == loanDomain.ModeLend {
			receiver, role = l.Lender, loanDomain.RoleLender
		}

		l.LockState = loanDomain.LockAwaitingTransfer
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		rec = newRecord(transferDomain.OpCancelLoan, loanID, caller, l.Capital)
		return r.Transfers.Create(ctx, rec)
	})
	if err != nil {
		return nil, mapLoanErr(err)
	}

	metrics.TransfersStarted.WithLabelValues(string(rec.Operation)).Inc()
	o.schedule(func() { o.runCancel(rec, tokenAccount, receiver, role) })
	return reportOf(rec), nil
}

func (o *Orchestrator) runCancel(rec *transferDomain.Record, tokenAccount, receiver string, role loanDomain.Role) {
	ctx := context.Background()
	ok, err := o.escrow.RequestTransfer(ctx, tokenAccount, receiver, rec.Amount)
	success := err == nil && ok

	_ = o.uow.WithinTx(ctx, func(r uow.Repos) error {
		// unlock before anything else in the terminal stage
		l, lerr := r.Loans.GetByLoanID(ctx, rec.LoanID)
		if lerr == nil {
			l.LockState = loanDomain.LockUnlocked
			if serr := r.Loans.Save(ctx, l); serr != nil {
				return serr
			}
		}

		if success && lerr == nil {
			if derr := r.Loans.RemoveIndex(ctx, role, receiver, rec.LoanID); derr != nil {
				return derr
			}
			if derr := r.Loans.Delete(ctx, rec.LoanID); derr != nil {
				return derr
			}
			log.Printf("loan %s successfully cancelled", rec.LoanID)
		}

		finalize(rec, success, err)
		if !success && rec.Error == "" {
			rec.Error = "loan cancellation failed"
		}
		return r.Transfers.Save(ctx, rec)
	})
	o.count(rec, success)
}

// Collect pays the currently collectable interest out to the lender.
// Public entry; only the loan's lender may call it.
func (o *Orchestrator) Collect(ctx context.Context, caller, loanID string) (*ReportDTO, error) {
	var rec *transferDomain.Record
	var tokenAccount, lender string
	err := o.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loanDomain.Loan) error {
		if l.Locked() {
			metrics.LockConflicts.Inc()
			return loanDomain.ErrLocked
		}
		if caller != l.Lender {
			return loanDomain.ErrNotLender
		}
		collectable, err := loanUC.Collectable(l, o.now())
		if err != nil {
			return err
		}
		if collectable.LessThanOrEqual(decimal.Zero) {
			return loanDomain.ErrNothingToCollect
		}
		tok, err := r.Tokens.GetBySymbol(ctx, l.Currency)
		if err != nil {
			return mapTokenErr(err)
		}
		tokenAccount = tok.Account
		lender = l.Lender

		l.LockState = loanDomain.LockAwaitingTransfer
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		rec = newRecord(transferDomain.OpCollectLoanInterest, loanID, caller, collectable)
		return r.Transfers.Create(ctx, rec)
	})
	if err != nil {
		return nil, mapLoanErr(err)
	}

	metrics.TransfersStarted.WithLabelValues(string(rec.Operation)).Inc()
	o.schedule(func() { o.runCollect(rec, tokenAccount, lender) })
	return reportOf(rec), nil
}

func (o *Orchestrator) runCollect(rec *transferDomain.Record, tokenAccount, lender string) {
	ctx := context.Background()
	ok, err := o.escrow.RequestTransfer(ctx, tokenAccount, lender, rec.Amount)
	success := err == nil && ok

	_ = o.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, lerr := r.Loans.GetByLoanID(ctx, rec.LoanID)
		if lerr == nil {
			l.LockState = loanDomain.LockUnlocked
			if serr := r.Loans.Save(ctx, l); serr != nil {
				return serr
			}
		}

		if success && lerr == nil {
			l.Collected = l.Collected.Add(rec.Amount)
			if serr := r.Loans.Save(ctx, l); serr != nil {
				return serr
			}
			log.Printf("interest on loan %s successfully collected", rec.LoanID)
		}

		finalize(rec, success, err)
		if !success && rec.Error == "" {
			rec.Error = "interest collection failed"
		}
		return r.Transfers.Save(ctx, rec)
	})
	o.count(rec, success)
}

// runSaga executes the generic inbound pipeline. Stage B is scheduled
// regardless of Stage A's outcome; only the terminal stage inspects the
// transfer result, and only to pick the unconsumed amount. The unlock in
// the terminal stage is unconditional.
func (o *Orchestrator) runSaga(rec *transferDomain.Record, stageA func(ctx context.Context) error, stageB func(ctx context.Context, r uow.Repos) error) {
	ctx := context.Background()

	errA := stageA(ctx)
	transferOK := errA == nil
	_ = o.uow.WithinTx(ctx, func(r uow.Repos) error {
		if l, err := r.Loans.GetByLoanID(ctx, rec.LoanID); err == nil {
			l.LockState = loanDomain.LockAwaitingMutation
			if serr := r.Loans.Save(ctx, l); serr != nil {
				return serr
			}
		}
		rec.State = transferDomain.StateAwaitingMutation
		rec.Success = transferOK
		if errA != nil {
			rec.Error = errA.Error()
		}
		return r.Transfers.Save(ctx, rec)
	})

	errB := o.uow.WithinTx(ctx, func(r uow.Repos) error { return stageB(ctx, r) })

	success := transferOK && errB == nil
	_ = o.uow.WithinTx(ctx, func(r uow.Repos) error {
		if l, err := r.Loans.GetByLoanID(ctx, rec.LoanID); err == nil {
			l.LockState = loanDomain.LockUnlocked
			if serr := r.Loans.Save(ctx, l); serr != nil {
				return serr
			}
		}
		finalize(rec, success, errB)
		return r.Transfers.Save(ctx, rec)
	})
	o.count(rec, success)
}

func (o *Orchestrator) count(rec *transferDomain.Record, success bool) {
	if success {
		metrics.TransfersSucceeded.WithLabelValues(string(rec.Operation)).Inc()
	} else {
		metrics.TransfersFailed.WithLabelValues(string(rec.Operation)).Inc()
	}
}

func finalize(rec *transferDomain.Record, success bool, cause error) {
	rec.State = transferDomain.StateDone
	rec.Success = success
	if success {
		rec.Unconsumed = decimal.Zero
		log.Printf("ft transfer %s succeeded", rec.TransferID)
		return
	}
	rec.Unconsumed = rec.Amount
	if cause != nil && rec.Error == "" {
		rec.Error = cause.Error()
	}
	log.Printf("ft transfer %s failed", rec.TransferID)
}

func newRecord(op transferDomain.Operation, loanID, sender string, amount decimal.Decimal) *transferDomain.Record {
	return &transferDomain.Record{
		TransferID: uuid.NewString(),
		LoanID:     loanID,
		Operation:  op,
		Sender:     sender,
		Amount:     amount,
		State:      transferDomain.StateAwaitingTransfer,
		Unconsumed: decimal.Zero,
	}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amt, err := decimal.NewFromString(raw)
	if err != nil || !amt.IsInteger() || amt.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, transferDomain.ErrBadAmount
	}
	return amt, nil
}

func checkDepositRoom(l *loanDomain.Loan, amt decimal.Decimal) error {
	newDeposit := l.Deposit.Add(amt)
	if newDeposit.GreaterThan(l.Capital.Sub(l.Collected)) {
		return loanDomain.ErrDepositExceedsRemaining
	}
	return nil
}

func escrowAddress(ctx context.Context, r uow.Repos) (string, error) {
	escrowAddr, err := r.Settings.Get(ctx, settingDomain.KeyEscrow)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrEscrowNotConfigured
		}
		return "", err
	}
	if escrowAddr == "" {
		return "", ErrEscrowNotConfigured
	}
	return escrowAddr, nil
}

func mapLoanErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return loanDomain.ErrNotFound
	}
	return err
}

func mapTokenErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tokenDomain.ErrUnsupported
	}
	return err
}
