package transfer

import (
	"encoding/json"

	transferDomain "p2plend-backend/internal/domain/transfer"

	"github.com/shopspring/decimal"
)

// IncomingPayload is the envelope carried in an inbound transfer's msg.
// Params stays raw until the operation tag selects the typed variant.
type IncomingPayload struct {
	Operation transferDomain.Operation `json:"operation"`
	Params    json.RawMessage          `json:"params"`
}

type CreateLoanParams struct {
	Currency    string          `json:"currency"`
	Capital     decimal.Decimal `json:"capital"`
	Rate        int64           `json:"rate"`
	Duration    int64           `json:"duration"`
	Frequency   int64           `json:"frequency"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Link        string          `json:"link"`
}

type AcceptLoanParams struct {
	ID string `json:"id"`
}

type IncreaseDepositParams struct {
	ID string `json:"id"`
}

// ReportDTO is the externally visible view of a protocol instance. State
// "done" with Unconsumed "0" means the amount was fully applied; any other
// unconsumed value is to be refunded to the sender by the token ledger.
type ReportDTO struct {
	TransferID string `json:"transfer_id"`
	LoanID     string `json:"loan_id"`
	Operation  string `json:"operation"`
	Amount     string `json:"amount"`
	State      string `json:"state"`
	Success    bool   `json:"success"`
	Unconsumed string `json:"unconsumed"`
	Error      string `json:"error,omitempty"`
}

func reportOf(rec *transferDomain.Record) *ReportDTO {
	return &ReportDTO{
		TransferID: rec.TransferID,
		LoanID:     rec.LoanID,
		Operation:  string(rec.Operation),
		Amount:     rec.Amount.String(),
		State:      string(rec.State),
		Success:    rec.Success,
		Unconsumed: rec.Unconsumed.String(),
		Error:      rec.Error,
	}
}
