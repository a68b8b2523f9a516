package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mlmcommerce/supplychain/internal/model"
	"github.com/mlmcommerce/supplychain/internal/service"
)

type PurchaseHandler struct {
	orders *service.OrderService
}

func NewPurchaseHandler(orders *service.OrderService) *PurchaseHandler {
	return &PurchaseHandler{orders: orders}
}

type PurchaseResponse struct {
	ID              string  `json:"id"`
	OrderNo         string  `json:"orderNo"`
	BuyerID         string  `json:"buyerId"`
	SellerID        string  `json:"sellerId"`
	NominalSellerID string  `json:"nominalSellerId"`
	ProductID       string  `json:"productId"`
	SpecID          string  `json:"specId"`
	Quantity        int     `json:"quantity"`
	UnitPrice       string  `json:"unitPrice"`
	TotalAmount     string  `json:"totalAmount"`
	Status          string  `json:"status"`
	PaymentStatus   string  `json:"paymentStatus"`
	ConfirmedAt     *string `json:"confirmedAt,omitempty"`
	CompletedAt     *string `json:"completedAt,omitempty"`
	CancelledAt     *string `json:"cancelledAt,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	val := t.Format(time.RFC3339)
	return &val
}

func toPurchaseResponse(o *model.PurchaseOrder) PurchaseResponse {
	return PurchaseResponse{
		ID:              o.ID,
		OrderNo:         o.OrderNo,
		BuyerID:         o.BuyerID,
		SellerID:        o.SellerID,
		NominalSellerID: o.NominalSellerID,
		ProductID:       o.ProductID,
		SpecID:          o.SpecID,
		Quantity:        o.Quantity,
		UnitPrice:       o.UnitPrice.StringFixed(2),
		TotalAmount:     o.TotalAmount.StringFixed(2),
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		ConfirmedAt:     formatTime(o.ConfirmedAt),
		CompletedAt:     formatTime(o.CompletedAt),
		CancelledAt:     formatTime(o.CancelledAt),
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       o.UpdatedAt.Format(time.RFC3339),
	}
}

type CommissionResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	Level        int    `json:"level"`
	Rate         string `json:"rate"`
	Amount       string `json:"amount"`
	SourceUserID string `json:"sourceUserId"`
	Status       string `json:"status"`
}

func (h *PurchaseHandler) Place(c echo.Context) error {
	var req service.PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	o, err := h.orders.Place(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toPurchaseResponse(o))
}

func (h *PurchaseHandler) Get(c echo.Context) error {
	o, err := h.orders.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toPurchaseResponse(o))
}

func (h *PurchaseHandler) Commissions(c echo.Context) error {
	list, err := h.orders.Commissions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	resp := make([]CommissionResponse, 0, len(list))
	for _, r := range list {
		resp = append(resp, CommissionResponse{
			ID:           r.ID,
			UserID:       r.UserID,
			Level:        r.Level,
			Rate:         r.Rate.String(),
			Amount:       r.Amount.StringFixed(2),
			SourceUserID: r.SourceUserID,
			Status:       string(r.Status),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"commissions": resp})
}

func (h *PurchaseHandler) Confirm(c echo.Context) error {
	return h.transition(c, h.orders.Confirm)
}

func (h *PurchaseHandler) StartProcessing(c echo.Context) error {
	return h.transition(c, h.orders.StartProcessing)
}

func (h *PurchaseHandler) Complete(c echo.Context) error {
	return h.transition(c, h.orders.Complete)
}

func (h *PurchaseHandler) Cancel(c echo.Context) error {
	return h.transition(c, h.orders.Cancel)
}

func (h *PurchaseHandler) Refund(c echo.Context) error {
	return h.transition(c, h.orders.Refund)
}

func (h *PurchaseHandler) transition(c echo.Context, fn func(ctx context.Context, id string) (*model.PurchaseOrder, error)) error {
	o, err := fn(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toPurchaseResponse(o))
}
