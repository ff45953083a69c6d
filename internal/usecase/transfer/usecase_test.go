package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mysqlrepo "p2plend-backend/internal/adapter/repository/mysql"
	loanDomain "p2plend-backend/internal/domain/loan"
	settingDomain "p2plend-backend/internal/domain/setting"
	tokenDomain "p2plend-backend/internal/domain/token"
	transferDomain "p2plend-backend/internal/domain/transfer"
	"p2plend-backend/internal/domain/uow"
	"p2plend-backend/internal/testutil/gatewaymock"
	"p2plend-backend/internal/testutil/testdb"
	"p2plend-backend/internal/testutil/uowmock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	testStart  = time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	escrowAddr = "escrow.p2plend.near"
)

type harness struct {
	orch   *Orchestrator
	db     *gorm.DB
	escrow *gatewaymock.Escrow
	ledger *gatewaymock.Ledger
	clock  *time.Time
}

// newHarness wires the orchestrator against an in-memory database with a
// synchronous scheduler, so every protocol stage has completed by the time
// an entry method returns.
func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testdb.Open(t)
	ctx := context.Background()

	if err := mysqlrepo.NewTokenRepository(db).Upsert(ctx, &tokenDomain.Token{Symbol: "USDT", Account: "usdt.token.near"}); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	if err := mysqlrepo.NewSettingRepository(db).Set(ctx, settingDomain.KeyEscrow, escrowAddr); err != nil {
		t.Fatalf("seed escrow: %v", err)
	}

	clock := testStart
	h := &harness{
		db:     db,
		escrow: &gatewaymock.Escrow{},
		ledger: &gatewaymock.Ledger{},
		clock:  &clock,
	}
	h.orch = NewOrchestrator(mysqlrepo.NewGormUoW(db), h.escrow, h.ledger).
		WithNow(func() time.Time { return *h.clock }).
		WithScheduler(func(fn func()) { fn() })
	return h
}

func (h *harness) loan(t *testing.T, loanID string) *loanDomain.Loan {
	t.Helper()
	l, err := mysqlrepo.NewLoanRepository(h.db).GetByLoanID(context.Background(), loanID)
	if err != nil {
		t.Fatalf("load loan %s: %v", loanID, err)
	}
	return l
}

func (h *harness) seedLoan(t *testing.T, l *loanDomain.Loan) {
	t.Helper()
	repo := mysqlrepo.NewLoanRepository(h.db)
	if err := repo.Create(context.Background(), l); err != nil {
		t.Fatalf("seed loan: %v", err)
	}
	if err := repo.AppendIndex(context.Background(), loanDomain.RoleBorrower, l.Borrower, l.LoanID); err != nil {
		t.Fatalf("seed index: %v", err)
	}
}

func pendingLoan(loanID string) *loanDomain.Loan {
	return &loanDomain.Loan{
		LoanID:      loanID,
		Mode:        loanDomain.ModeBorrow,
		Type:        loanDomain.TypeAmortized,
		Currency:    "USDT",
		Capital:     decimal.NewFromInt(1000),
		Rate:        10,
		Duration:    10,
		Frequency:   86400,
		CreatedAtNs: testStart.UnixNano(),
		Status:      loanDomain.StatusPending,
		Borrower:    "alice.near",
		Guarantor:   "alice.near",
		Collected:   decimal.Zero,
		Deposit:     decimal.Zero,
		LockState:   loanDomain.LockUnlocked,
	}
}

func createMsg(t *testing.T, capital int64) string {
	t.Helper()
	return opMsg(t, transferDomain.OpCreateLoan, map[string]any{
		"currency": "USDT",
		"capital":  decimal.NewFromInt(capital),
		"rate":     10,
		"duration": 10,
		"title":    "seed capital",
	})
}

func opMsg(t *testing.T, op transferDomain.Operation, params any) string {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	msg, err := json.Marshal(IncomingPayload{Operation: op, Params: raw})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return string(msg)
}

func TestHandleIncoming_CreateLoan(t *testing.T) {
	h := newHarness(t)

	rep, err := h.orch.HandleIncoming(context.Background(), "alice.near", "1000", createMsg(t, 1000))
	if err != nil {
		t.Fatalf("HandleIncoming: %v", err)
	}
	if rep.State != string(transferDomain.StateDone) || !rep.Success || rep.Unconsumed != "0" {
		t.Fatalf("report = %+v, want done/success/unconsumed 0", rep)
	}
	if rep.LoanID == "" {
		t.Fatal("report has no loan id")
	}

	l := h.loan(t, rep.LoanID)
	if l.Status != loanDomain.StatusPending || l.Borrower != "alice.near" {
		t.Fatalf("loan = %+v, want pending borrowed by alice", l)
	}
	if l.Locked() {
		t.Fatalf("loan still locked after protocol: %q", l.LockState)
	}
	if l.ExpiredAtNs != testStart.UnixNano()+7*24*int64(time.Hour) {
		t.Fatalf("expiredAt = %d, want creation + 7 days", l.ExpiredAtNs)
	}

	ids, err := mysqlrepo.NewLoanRepository(h.db).IndexFor(context.Background(), loanDomain.RoleBorrower, "alice.near")
	if err != nil {
		t.Fatalf("IndexFor: %v", err)
	}
	if len(ids) != 1 || ids[0] != rep.LoanID {
		t.Fatalf("borrower index = %v, want [%s]", ids, rep.LoanID)
	}

	// capital was forwarded into escrow on the token ledger
	if len(h.ledger.Calls) != 1 {
		t.Fatalf("ledger calls = %d, want 1", len(h.ledger.Calls))
	}
	call := h.ledger.Calls[0]
	if call.TokenAccount != "usdt.token.near" || call.Receiver != escrowAddr || call.Amount.String() != "1000" {
		t.Fatalf("ledger call = %+v", call)
	}
}

// The internal mutation is not conditioned on the transfer outcome: a failed
// escrow forward still creates the loan, and the whole amount is reported
// unconsumed.
func TestHandleIncoming_CreateLoanTransferFails(t *testing.T) {
	h := newHarness(t)
	h.ledger.TransferFn = func(ctx context.Context, tokenAccount, receiver string, amount decimal.Decimal, memo string) error {
		return errors.New("ledger unavailable")
	}

	rep, err := h.orch.HandleIncoming(context.Background(), "alice.near", "1000", createMsg(t, 1000))
	if err != nil {
		t.Fatalf("HandleIncoming: %v", err)
	}
	if rep.Success || rep.Unconsumed != "1000" || rep.State != string(transferDomain.StateDone) {
		t.Fatalf("report = %+v, want done/failed/unconsumed 1000", rep)
	}
	if rep.Error == "" {
		t.Fatal("report has no error")
	}

	l := h.loan(t, rep.LoanID)
	if l.Status != loanDomain.StatusPending {
		t.Fatalf("loan status = %q, want PENDING despite failed transfer", l.Status)
	}
	if l.Locked() {
		t.Fatalf("loan still locked: %q", l.LockState)
	}
}

func TestHandleIncoming_CreateLoanRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.orch.HandleIncoming(ctx, "alice.near", "999", createMsg(t, 1000)); !errors.Is(err, loanDomain.ErrAmountMismatch) {
		t.Fatalf("amount mismatch: err = %v", err)
	}
	if _, err := h.orch.HandleIncoming(ctx, "alice.near", "0", createMsg(t, 1000)); !errors.Is(err, transferDomain.ErrBadAmount) {
		t.Fatalf("zero amount: err = %v", err)
	}
	if _, err := h.orch.HandleIncoming(ctx, "alice.near", "10.5", createMsg(t, 1000)); !errors.Is(err, transferDomain.ErrBadAmount) {
		t.Fatalf("fractional amount: err = %v", err)
	}

	msg := opMsg(t, transferDomain.OpCreateLoan, map[string]any{
		"currency": "DOGE", "capital": decimal.NewFromInt(1000), "rate": 10, "duration": 10,
	})
	if _, err := h.orch.HandleIncoming(ctx, "alice.near", "1000", msg); !errors.Is(err, tokenDomain.ErrUnsupported) {
		t.Fatalf("unsupported currency: err = %v", err)
	}

	if _, err := h.orch.HandleIncoming(ctx, "alice.near", "1000", `{"operation":"liquidate_loan","params":{}}`); !errors.Is(err, transferDomain.ErrUnknownOperation) {
		t.Fatalf("unknown op: err = %v", err)
	}
	if _, err := h.orch.HandleIncoming(ctx, "alice.near", "1000", "not json"); !errors.Is(err, transferDomain.ErrUnknownOperation) {
		t.Fatalf("malformed msg: err = %v", err)
	}

	// rejections must not leave side effects behind
	if len(h.ledger.Calls) != 0 || len(h.escrow.Calls) != 0 {
		t.Fatalf("gateway calls after rejections: ledger=%d escrow=%d", len(h.ledger.Calls), len(h.escrow.Calls))
	}
	loans, err := mysqlrepo.NewLoanRepository(h.db).ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(loans) != 0 {
		t.Fatalf("loans after rejections: %+v", loans)
	}
}

func TestHandleIncoming_AcceptLoan(t *testing.T) {
	h := newHarness(t)
	h.seedLoan(t, pendingLoan("1-1"))
	*h.clock = testStart.Add(time.Hour)

	rep, err := h.orch.HandleIncoming(context.Background(), "bob.near", "1000",
		opMsg(t, transferDomain.OpAcceptLoan, AcceptLoanParams{ID: "1-1"}))
	if err != nil {
		t.Fatalf("HandleIncoming: %v", err)
	}
	if !rep.Success || rep.Unconsumed != "0" {
		t.Fatalf("report = %+v, want success", rep)
	}

	l := h.loan(t, "1-1")
	if l.Status != loanDomain.StatusActive || l.Lender != "bob.near" {
		t.Fatalf("loan = %+v, want active with lender bob", l)
	}
	if l.AcceptedAtNs != h.clock.UnixNano() {
		t.Fatalf("acceptedAt = %d, want %d", l.AcceptedAtNs, h.clock.UnixNano())
	}
	if l.Locked() {
		t.Fatalf("loan still locked: %q", l.LockState)
	}

	ids, err := mysqlrepo.NewLoanRepository(h.db).IndexFor(context.Background(), loanDomain.RoleLender, "bob.near")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "1-1" {
		t.Fatalf("lender index = %v, want [1-1]", ids)
	}

	// the lender's capital goes straight to the borrower
	if len(h.ledger.Calls) != 1 || h.ledger.Calls[0].Receiver != "alice.near" {
		t.Fatalf("ledger calls = %+v, want one transfer to alice.near", h.ledger.Calls)
	}
}

func TestHandleIncoming_AcceptLoanRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	locked := pendingLoan("1-1")
	locked.LockState = loanDomain.LockAwaitingTransfer
	h.seedLoan(t, locked)

	active := pendingLoan("2-1")
	active.Status = loanDomain.StatusActive
	active.Lender = "bob.near"
	h.seedLoan(t, active)

	h.seedLoan(t, pendingLoan("3-1"))

	accept := func(id string, amount string) error {
		_, err := h.orch.HandleIncoming(ctx, "bob.near", amount, opMsg(t, transferDomain.OpAcceptLoan, AcceptLoanParams{ID: id}))
		return err
	}

	if err := accept("1-1", "1000"); !errors.Is(err, loanDomain.ErrLocked) {
		t.Fatalf("locked loan: err = %v", err)
	}
	if err := accept("2-1", "1000"); !errors.Is(err, loanDomain.ErrNotPending) {
		t.Fatalf("active loan: err = %v", err)
	}
	if err := accept("3-1", "500"); !errors.Is(err, loanDomain.ErrAmountMismatch) {
		t.Fatalf("wrong amount: err = %v", err)
	}
	if err := accept("404-1", "1000"); !errors.Is(err, loanDomain.ErrNotFound) {
		t.Fatalf("unknown loan: err = %v", err)
	}

	// no stage ever ran
	if len(h.ledger.Calls) != 0 {
		t.Fatalf("ledger calls = %+v, want none", h.ledger.Calls)
	}
	if l := h.loan(t, "3-1"); l.Locked() {
		t.Fatalf("rejected loan left locked: %q", l.LockState)
	}
}

func TestHandleIncoming_IncreaseDeposit(t *testing.T) {
	h := newHarness(t)
	active := pendingLoan("1-1")
	active.Status = loanDomain.StatusActive
	active.Lender = "bob.near"
	h.seedLoan(t, active)

	rep, err := h.orch.HandleIncoming(context.Background(), "alice.near", "400",
		opMsg(t, transferDomain.OpIncreaseLoanDeposit, IncreaseDepositParams{ID: "1-1"}))
	if err != nil {
		t.Fatalf("HandleIncoming: %v", err)
	}
	if !rep.Success || rep.Unconsumed != "0" {
		t.Fatalf("report = %+v, want success", rep)
	}

	l := h.loan(t, "1-1")
	if l.Deposit.String() != "400" {
		t.Fatalf("deposit = %s, want 400", l.Deposit)
	}
	if l.Locked() {
		t.Fatalf("loan still locked: %q", l.LockState)
	}

	// deposit moves into escrow
	if len(h.ledger.Calls) != 1 || h.ledger.Calls[0].Receiver != escrowAddr {
		t.Fatalf("ledger calls = %+v, want one transfer to escrow", h.ledger.Calls)
	}
}

func TestHandleIncoming_IncreaseDepositExceedsRemaining(t *testing.T) {
	h := newHarness(t)
	active := pendingLoan("1-1")
	active.Status = loanDomain.StatusActive
	active.Lender = "bob.near"
	active.Collected = decimal.NewFromInt(200)
	h.seedLoan(t, active)

	// remaining = capital - collected = 800; 801 is over the line
	_, err := h.orch.HandleIncoming(context.Background(), "alice.near", "801",
		opMsg(t, transferDomain.OpIncreaseLoanDeposit, IncreaseDepositParams{ID: "1-1"}))
	if !errors.Is(err, loanDomain.ErrDepositExceedsRemaining) {
		t.Fatalf("err = %v, want ErrDepositExceedsRemaining", err)
	}
	if l := h.loan(t, "1-1"); !l.Deposit.IsZero() || l.Locked() {
		t.Fatalf("loan mutated by rejected deposit: %+v", l)
	}
}

func TestCancel(t *testing.T) {
	h := newHarness(t)
	h.seedLoan(t, pendingLoan("1-1"))

	rep, err := h.orch.Cancel(context.Background(), "alice.near", "1-1")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !rep.Success || rep.Unconsumed != "0" || rep.Amount != "1000" {
		t.Fatalf("report = %+v, want success refunding 1000", rep)
	}

	// loan and its index row are gone
	repo := mysqlrepo.NewLoanRepository(h.db)
	if _, err := repo.GetByLoanID(context.Background(), "1-1"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("loan err = %v, want record not found", err)
	}
	ids, err := repo.IndexFor(context.Background(), loanDomain.RoleBorrower, "alice.near")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Fatalf("borrower index = %v, want empty", ids)
	}

	// refund went through the escrow back to the borrower
	if len(h.escrow.Calls) != 1 {
		t.Fatalf("escrow calls = %d, want 1", len(h.escrow.Calls))
	}
	call := h.escrow.Calls[0]
	if call.TokenAccount != "usdt.token.near" || call.Recipient != "alice.near" || call.Amount.String() != "1000" {
		t.Fatalf("escrow call = %+v", call)
	}
}

func TestCancel_EscrowRefusal(t *testing.T) {
	h := newHarness(t)
	h.seedLoan(t, pendingLoan("1-1"))
	h.escrow.RequestTransferFn = func(ctx context.Context, tokenAccount, recipient string, amount decimal.Decimal) (bool, error) {
		return false, nil
	}

	rep, err := h.orch.Cancel(context.Background(), "alice.near", "1-1")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if rep.Success || rep.Unconsumed != "1000" || rep.Error == "" {
		t.Fatalf("report = %+v, want failed with error", rep)
	}

	// the loan survives a failed refund, and the lock is released anyway
	l := h.loan(t, "1-1")
	if l.Status != loanDomain.StatusPending {
		t.Fatalf("loan status = %q, want PENDING", l.Status)
	}
	if l.Locked() {
		t.Fatalf("loan still locked: %q", l.LockState)
	}
}

func TestCancel_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.seedLoan(t, pendingLoan("1-1"))
	active := pendingLoan("2-1")
	active.Status = loanDomain.StatusActive
	active.Lender = "bob.near"
	h.seedLoan(t, active)

	if _, err := h.orch.Cancel(ctx, "mallory.near", "1-1"); !errors.Is(err, loanDomain.ErrNotCounterparty) {
		t.Fatalf("stranger: err = %v", err)
	}
	if _, err := h.orch.Cancel(ctx, "alice.near", "2-1"); !errors.Is(err, loanDomain.ErrNotPending) {
		t.Fatalf("active loan: err = %v", err)
	}
	if _, err := h.orch.Cancel(ctx, "alice.near", "404-1"); !errors.Is(err, loanDomain.ErrNotFound) {
		t.Fatalf("unknown loan: err = %v", err)
	}
	if len(h.escrow.Calls) != 0 {
		t.Fatalf("escrow calls = %+v, want none", h.escrow.Calls)
	}
}

func TestCollect(t *testing.T) {
	h := newHarness(t)
	active := pendingLoan("1-1")
	active.Status = loanDomain.StatusActive
	active.Lender = "bob.near"
	h.seedLoan(t, active)
	*h.clock = testStart.Add(5 * 24 * time.Hour)

	rep, err := h.orch.Collect(context.Background(), "bob.near", "1-1")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	// floor(0.5 * 1100) = 550
	if !rep.Success || rep.Amount != "550" || rep.Unconsumed != "0" {
		t.Fatalf("report = %+v, want success for 550", rep)
	}

	l := h.loan(t, "1-1")
	if l.Collected.String() != "550" {
		t.Fatalf("collected = %s, want 550", l.Collected)
	}
	if l.Locked() {
		t.Fatalf("loan still locked: %q", l.LockState)
	}
	if l.Collected.GreaterThan(l.TotalCost()) {
		t.Fatalf("collected %s exceeds total cost %s", l.Collected, l.TotalCost())
	}

	if len(h.escrow.Calls) != 1 || h.escrow.Calls[0].Recipient != "bob.near" {
		t.Fatalf("escrow calls = %+v, want payout to bob.near", h.escrow.Calls)
	}

	// a second collect right away has nothing left
	if _, err := h.orch.Collect(context.Background(), "bob.near", "1-1"); !errors.Is(err, loanDomain.ErrNothingToCollect) {
		t.Fatalf("second collect: err = %v", err)
	}
}

func TestCollect_EscrowFailure(t *testing.T) {
	h := newHarness(t)
	active := pendingLoan("1-1")
	active.Status = loanDomain.StatusActive
	active.Lender = "bob.near"
	h.seedLoan(t, active)
	*h.clock = testStart.Add(5 * 24 * time.Hour)
	h.escrow.RequestTransferFn = func(ctx context.Context, tokenAccount, recipient string, amount decimal.Decimal) (bool, error) {
		return false, errors.New("escrow unavailable")
	}

	rep, err := h.orch.Collect(context.Background(), "bob.near", "1-1")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if rep.Success || rep.Unconsumed != "550" {
		t.Fatalf("report = %+v, want failed with 550 unconsumed", rep)
	}

	l := h.loan(t, "1-1")
	if !l.Collected.IsZero() {
		t.Fatalf("collected = %s, want 0 after failed payout", l.Collected)
	}
	if l.Locked() {
		t.Fatalf("loan still locked: %q", l.LockState)
	}
}

func TestCollect_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	active := pendingLoan("1-1")
	active.Status = loanDomain.StatusActive
	active.Lender = "bob.near"
	h.seedLoan(t, active)
	h.seedLoan(t, pendingLoan("2-1"))

	if _, err := h.orch.Collect(ctx, "alice.near", "1-1"); !errors.Is(err, loanDomain.ErrNotLender) {
		t.Fatalf("borrower collects: err = %v", err)
	}
	// nothing accrued yet at the creation instant
	if _, err := h.orch.Collect(ctx, "bob.near", "1-1"); !errors.Is(err, loanDomain.ErrNothingToCollect) {
		t.Fatalf("zero accrual: err = %v", err)
	}
	if _, err := h.orch.Collect(ctx, "bob.near", "2-1"); !errors.Is(err, loanDomain.ErrNotLender) {
		t.Fatalf("pending loan without lender: err = %v", err)
	}
	if len(h.escrow.Calls) != 0 {
		t.Fatalf("escrow calls = %+v, want none", h.escrow.Calls)
	}
}

func TestGetTransfer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rep, err := h.orch.HandleIncoming(ctx, "alice.near", "1000", createMsg(t, 1000))
	if err != nil {
		t.Fatalf("HandleIncoming: %v", err)
	}

	got, err := h.orch.GetTransfer(ctx, rep.TransferID)
	if err != nil {
		t.Fatalf("GetTransfer: %v", err)
	}
	if got.State != string(transferDomain.StateDone) || !got.Success || got.LoanID != rep.LoanID {
		t.Fatalf("report = %+v", got)
	}

	if _, err := h.orch.GetTransfer(ctx, uuid.NewString()); !errors.Is(err, transferDomain.ErrNotFound) {
		t.Fatalf("unknown id: err = %v", err)
	}
}

func TestGetTransfer_StoreFailure(t *testing.T) {
	boom := errors.New("connection lost")
	u := uowmock.New()
	u.WithinTxFn = func(ctx context.Context, fn func(r uow.Repos) error) error {
		return boom
	}
	orch := NewOrchestrator(u, &gatewaymock.Escrow{}, &gatewaymock.Ledger{})

	if _, err := orch.GetTransfer(context.Background(), uuid.NewString()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the store error passed through", err)
	}
}
