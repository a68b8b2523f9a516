package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/mlmcommerce/supplychain/internal/obs"
	"github.com/mlmcommerce/supplychain/internal/reqctx"
	"github.com/mlmcommerce/supplychain/internal/service"
)

type errorPayload struct {
	Code          string   `json:"code"`
	Message       string   `json:"message"`
	Reasons       []string `json:"reasons,omitempty"`
	CorrelationID string   `json:"correlationId,omitempty"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// Validator adapts go-playground/validator to echo's Validator interface.
type Validator struct {
	validator *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validator: validator.New()}
}

func (v *Validator) Validate(i any) error {
	return v.validator.Struct(i)
}

// writeError maps engine errors onto HTTP responses. System failures only
// expose a correlation id.
func writeError(c echo.Context, err error) error {
	var (
		rej *service.RejectionError
		se  *service.SystemError
	)
	switch {
	case errors.As(err, &rej):
		resp := NewErrorResponse("purchase_rejected", "purchase was not authorized")
		resp.Error.Reasons = rej.Reasons
		return c.JSON(http.StatusUnprocessableEntity, resp)
	case errors.Is(err, service.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", err.Error()))
	case errors.Is(err, service.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, NewErrorResponse("invalid_transition", err.Error()))
	case errors.As(err, &se):
		resp := NewErrorResponse("internal_error", "internal error, retry later")
		resp.Error.CorrelationID = se.CorrelationID
		return c.JSON(http.StatusInternalServerError, resp)
	default:
		ctx := c.Request().Context()
		obs.Error(ctx, "http.unhandled_error", map[string]any{"path": c.Path(), "err": err})
		resp := NewErrorResponse("internal_error", "internal error, retry later")
		resp.Error.CorrelationID = reqctx.CorrelationID(ctx)
		return c.JSON(http.StatusInternalServerError, resp)
	}
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", message))
}
