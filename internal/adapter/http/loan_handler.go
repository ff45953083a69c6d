package http

import (
	"net/http"

	"p2plend-backend/internal/usecase/loan"
	"p2plend-backend/internal/usecase/transfer"

	"github.com/labstack/echo/v4"
)

type LoanHandler struct {
	loans        *loan.Usecase
	orchestrator *transfer.Orchestrator
}

func NewLoanHandler(loans *loan.Usecase, orchestrator *transfer.Orchestrator) *LoanHandler {
	return &LoanHandler{loans: loans, orchestrator: orchestrator}
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	l, err := h.loans.Get(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

// ListLoans filters by exactly one of ?borrower= / ?lender=; with neither
// it returns every loan, with both it rejects.
func (h *LoanHandler) ListLoans(c echo.Context) error {
	loans, err := h.loans.List(c.Request().Context(), c.QueryParam("borrower"), c.QueryParam("lender"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *LoanHandler) GetInterest(c echo.Context) error {
	dto, err := h.loans.Interest(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Borrowers(c echo.Context) error {
	accounts, err := h.loans.Borrowers(c.Request().Context())
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, accounts)
}

func (h *LoanHandler) Lenders(c echo.Context) error {
	accounts, err := h.loans.Lenders(c.Request().Context())
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, accounts)
}

func (h *LoanHandler) BorrowerLoans(c echo.Context) error {
	idx, err := h.loans.BorrowerIndex(c.Request().Context())
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, idx)
}

func (h *LoanHandler) LenderLoans(c echo.Context) error {
	idx, err := h.loans.LenderIndex(c.Request().Context())
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, idx)
}

func (h *LoanHandler) CancelLoan(c echo.Context) error {
	caller := callerAccount(c)
	if caller == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing " + HeaderAccountID})
	}
	dto, err := h.orchestrator.Cancel(c.Request().Context(), caller, c.Param("loan_id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusAccepted, dto)
}

func (h *LoanHandler) CollectInterest(c echo.Context) error {
	caller := callerAccount(c)
	if caller == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing " + HeaderAccountID})
	}
	dto, err := h.orchestrator.Collect(c.Request().Context(), caller, c.Param("loan_id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusAccepted, dto)
}
