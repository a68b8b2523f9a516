package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/mlmcommerce/supplychain/internal/model"
	"github.com/mlmcommerce/supplychain/internal/service"
	"github.com/shopspring/decimal"
)

type EngineHandler struct {
	engine *service.Engine
}

func NewEngineHandler(engine *service.Engine) *EngineHandler {
	return &EngineHandler{engine: engine}
}

type ParticipantResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rank   string `json:"rank"`
	Status string `json:"status"`
}

func toParticipantResponse(p model.Participant) ParticipantResponse {
	return ParticipantResponse{ID: p.ID, Name: p.Name, Rank: string(p.Rank), Status: string(p.Status)}
}

type PreviewCommissionRequest struct {
	SellerID    string          `json:"sellerId" validate:"required"`
	SellerRank  string          `json:"sellerRank" validate:"required"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	MaxDepth    int             `json:"maxDepth" validate:"gte=0"`
}

type DistributeRequest struct {
	OrderID     string          `json:"orderId" validate:"required"`
	SellerID    string          `json:"sellerId" validate:"required"`
	SellerRank  string          `json:"sellerRank" validate:"required"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	MaxDepth    int             `json:"maxDepth" validate:"gte=0"`
}

// Authorize returns the decision with 200 whether or not it is approved.
func (h *EngineHandler) Authorize(c echo.Context) error {
	var req service.AuthorizeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	auth, err := h.engine.Authorize(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, auth)
}

func (h *EngineHandler) PreviewCommission(c echo.Context) error {
	var req PreviewCommissionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}
	rank, err := model.ParseRank(req.SellerRank)
	if err != nil {
		return badRequest(c, err.Error())
	}
	preview, err := h.engine.PreviewCommission(c.Request().Context(), req.SellerID, rank, req.TotalAmount, req.MaxDepth)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, preview)
}

// Distribute persists commission for an order settled outside the order
// workflow. Calling it twice for one order pays twice.
func (h *EngineHandler) Distribute(c echo.Context) error {
	var req DistributeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}
	rank, err := model.ParseRank(req.SellerRank)
	if err != nil {
		return badRequest(c, err.Error())
	}
	records, err := h.engine.Distribute(c.Request().Context(), service.DistributeInput{
		OrderID:     req.OrderID,
		SellerID:    req.SellerID,
		SellerRank:  rank,
		TotalAmount: req.TotalAmount,
		MaxDepth:    req.MaxDepth,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"records": records})
}

func (h *EngineHandler) Ancestors(c echo.Context) error {
	depth, err := queryInt(c, "maxDepth")
	if err != nil {
		return badRequest(c, "invalid maxDepth")
	}
	list, err := h.engine.ResolveAncestors(c.Request().Context(), c.Param("id"), depth)
	if err != nil {
		return writeError(c, err)
	}
	resp := make([]ParticipantResponse, 0, len(list))
	for _, p := range list {
		resp = append(resp, toParticipantResponse(p))
	}
	return c.JSON(http.StatusOK, map[string]any{"ancestors": resp})
}

func (h *EngineHandler) SupplyPath(c echo.Context) error {
	depth, err := queryInt(c, "maxDepth")
	if err != nil {
		return badRequest(c, "invalid maxDepth")
	}
	opts, err := h.engine.FindOptimalSupplyPath(c.Request().Context(), c.Param("id"), depth)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"options": opts})
}

// HigherRankAncestor looks for the nearest active upline above minRank.
func (h *EngineHandler) HigherRankAncestor(c echo.Context) error {
	minRank, err := model.ParseRank(c.QueryParam("minRank"))
	if err != nil {
		return badRequest(c, "invalid minRank")
	}
	depth, err := queryInt(c, "maxDepth")
	if err != nil {
		return badRequest(c, "invalid maxDepth")
	}
	found, err := h.engine.FindHigherRankAncestor(c.Request().Context(), c.Param("id"), minRank.Index(), depth)
	if err != nil {
		return writeError(c, err)
	}
	if found == nil {
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "no qualifying ancestor"))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"participant": toParticipantResponse(found.Participant),
		"path":        found.Path,
	})
}

func (h *EngineHandler) CacheStats(c echo.Context) error {
	stats := h.engine.CacheStats()
	return c.JSON(http.StatusOK, map[string]any{
		"stats":   stats,
		"hitRate": stats.HitRate(),
	})
}

func (h *EngineHandler) ClearCache(c echo.Context) error {
	if err := h.engine.ClearCache(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to clear cache"))
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *EngineHandler) InvalidateParticipant(c echo.Context) error {
	h.engine.InvalidateParticipant(c.Request().Context(), c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

func (h *EngineHandler) InvalidateProduct(c echo.Context) error {
	h.engine.InvalidateProduct(c.Request().Context(), c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

func (h *EngineHandler) PerformanceStats(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"operations": h.engine.PerformanceStats()})
}

// queryInt returns 0 when the parameter is absent.
func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.ErrBadRequest
	}
	return n, nil
}
