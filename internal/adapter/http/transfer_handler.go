package http

import (
	"context"
	"errors"
	"net/http"

	tokenDomain "p2plend-backend/internal/domain/token"
	"p2plend-backend/internal/usecase/transfer"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// TokenAccounts resolves whether an account belongs to a registered token
// ledger; the inbound hook only accepts calls from those.
type TokenAccounts interface {
	List(ctx context.Context) ([]tokenDomain.Token, error)
}

type TransferHandler struct {
	orchestrator *transfer.Orchestrator
	tokens       TokenAccounts
}

func NewTransferHandler(orchestrator *transfer.Orchestrator, tokens TokenAccounts) *TransferHandler {
	return &TransferHandler{orchestrator: orchestrator, tokens: tokens}
}

type incomingTransferReq struct {
	SenderID string `json:"sender_id" validate:"required,account"`
	Amount   string `json:"amount"    validate:"required,amount"`
	Msg      string `json:"msg"       validate:"required"`
}

// Incoming is the single deposit hook the token ledger calls after moving
// funds to this contract. The response is the saga's initial report; the
// terminal unconsumed amount becomes visible on GET /transfers/:id.
func (h *TransferHandler) Incoming(c echo.Context) error {
	caller := callerAccount(c)
	if caller == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing " + HeaderAccountID})
	}
	registered, err := h.isTokenAccount(c.Request().Context(), caller)
	if err != nil {
		return jsonError(c, err)
	}
	if !registered {
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "only registered token ledgers can call the transfer hook"})
	}

	var req incomingTransferReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	dto, err := h.orchestrator.HandleIncoming(c.Request().Context(), req.SenderID, req.Amount, req.Msg)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusAccepted, dto)
}

func (h *TransferHandler) GetTransfer(c echo.Context) error {
	dto, err := h.orchestrator.GetTransfer(c.Request().Context(), c.Param("transfer_id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *TransferHandler) isTokenAccount(ctx context.Context, account string) (bool, error) {
	tokens, err := h.tokens.List(ctx)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	for _, t := range tokens {
		if t.Account == account {
			return true, nil
		}
	}
	return false, nil
}
