package http

import (
	"net/http"

	"p2plend-backend/internal/usecase/registry"

	"github.com/labstack/echo/v4"
)

type RegistryHandler struct{ uc *registry.Usecase }

func NewRegistryHandler(uc *registry.Usecase) *RegistryHandler { return &RegistryHandler{uc: uc} }

func (h *RegistryHandler) GetGreeting(c echo.Context) error {
	msg, err := h.uc.Greeting(c.Request().Context())
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"greeting": msg})
}

type setGreetingReq struct {
	Message string `json:"message" validate:"required"`
}

func (h *RegistryHandler) SetGreeting(c echo.Context) error {
	var req setGreetingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	if err := h.uc.SetGreeting(c.Request().Context(), req.Message); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (h *RegistryHandler) GetEscrow(c echo.Context) error {
	escrow, err := h.uc.Escrow(c.Request().Context())
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"escrow": escrow})
}

type setEscrowReq struct {
	Escrow string `json:"escrow" validate:"required,account"`
}

func (h *RegistryHandler) SetEscrow(c echo.Context) error {
	var req setEscrowReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	if err := h.uc.SetEscrow(c.Request().Context(), req.Escrow); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

type addTokenReq struct {
	Token   string `json:"token"   validate:"required,symbol"`
	Account string `json:"account" validate:"required,account"`
}

func (h *RegistryHandler) AddToken(c echo.Context) error {
	var req addTokenReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	if err := h.uc.AddToken(c.Request().Context(), req.Token, req.Account); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]bool{"ok": true})
}

func (h *RegistryHandler) RemoveToken(c echo.Context) error {
	if err := h.uc.RemoveToken(c.Request().Context(), c.Param("symbol")); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (h *RegistryHandler) ListTokens(c echo.Context) error {
	symbols, err := h.uc.Symbols(c.Request().Context())
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, symbols)
}
