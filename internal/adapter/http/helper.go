package http

import (
	"errors"
	"net/http"
	"strings"

	loanDomain "p2plend-backend/internal/domain/loan"
	tokenDomain "p2plend-backend/internal/domain/token"
	transferDomain "p2plend-backend/internal/domain/transfer"

	"github.com/labstack/echo/v4"
)

// HeaderAccountID carries the caller identity on mutating calls.
const HeaderAccountID = "Ax-Account-Id"

func callerAccount(c echo.Context) string {
	return strings.TrimSpace(c.Request().Header.Get(HeaderAccountID))
}

// domainStatus maps domain errors to HTTP codes; unknown errors are 500.
func domainStatus(err error) int {
	switch {
	case errors.Is(err, loanDomain.ErrNotFound), errors.Is(err, transferDomain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, loanDomain.ErrLocked):
		return http.StatusConflict
	case errors.Is(err, loanDomain.ErrNotCounterparty), errors.Is(err, loanDomain.ErrNotLender):
		return http.StatusForbidden
	case errors.Is(err, loanDomain.ErrInvalidArgument),
		errors.Is(err, loanDomain.ErrNotPending),
		errors.Is(err, loanDomain.ErrNotActive),
		errors.Is(err, loanDomain.ErrAmountMismatch),
		errors.Is(err, loanDomain.ErrDepositExceedsRemaining),
		errors.Is(err, loanDomain.ErrInterestFullyRepaid),
		errors.Is(err, loanDomain.ErrNothingToCollect),
		errors.Is(err, tokenDomain.ErrUnsupported),
		errors.Is(err, transferDomain.ErrUnknownOperation),
		errors.Is(err, transferDomain.ErrBadAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func jsonError(c echo.Context, err error) error {
	return c.JSON(domainStatus(err), ErrorResponse{Error: err.Error()})
}
