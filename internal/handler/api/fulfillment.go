package api

import (
	"context"
	"errors"
	"net/http"

	"orderflow/internal/domain/shipment"
	reqdto "orderflow/internal/handler/dto/request"
	resdto "orderflow/internal/handler/dto/response"
	"orderflow/internal/saga/fulfillment"

	"github.com/gin-gonic/gin"
)

// FulfillmentCommands is the slice of the fulfillment participant the
// handler depends on.
type FulfillmentCommands interface {
	Prepare(ctx context.Context, orderID, userID string, items []shipment.Item, addr shipment.Address, sourceEvent string) (*shipment.Shipment, error)
	PurchaseLabel(ctx context.Context, orderID, sourceEvent string) (*shipment.Shipment, error)
	Cancel(ctx context.Context, orderID, reason, sourceEvent string) (*shipment.Shipment, error)
	Get(ctx context.Context, orderID string) (*shipment.Shipment, error)
}

type FulfillmentHandler struct {
	commands FulfillmentCommands
}

func NewFulfillmentHandler(commands FulfillmentCommands) *FulfillmentHandler {
	return &FulfillmentHandler{commands: commands}
}

func (h *FulfillmentHandler) PrepareShipment(c *gin.Context) {
	var req reqdto.PrepareShipmentRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	s, err := h.commands.Prepare(c.Request.Context(), req.OrderID, req.UserID, req.ToItems(), req.ToAddress(), sourceAdminAPI)
	if err != nil {
		h.writeShipmentError(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromShipment(s))
}

func (h *FulfillmentHandler) PurchaseLabel(c *gin.Context) {
	orderID := c.Param("order_id")

	s, err := h.commands.PurchaseLabel(c.Request.Context(), orderID, sourceAdminAPI)
	if err != nil {
		switch {
		case errors.Is(err, fulfillment.ErrShipmentNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Shipment not found",
			})
		case errors.Is(err, fulfillment.ErrProvider):
			c.JSON(http.StatusBadGateway, gin.H{
				"error": "Carrier label purchase failed",
			})
		case errors.Is(err, fulfillment.ErrStoreFailure):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Shipment store unavailable",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromShipment(s))
}

func (h *FulfillmentHandler) CancelShipment(c *gin.Context) {
	orderID := c.Param("order_id")

	var req reqdto.CancelShipmentRequest
	if c.Request.ContentLength > 0 {
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request format",
			})
			return
		}
	}
	reason := req.Reason
	if reason == "" {
		reason = "manual_cancel"
	}

	s, err := h.commands.Cancel(c.Request.Context(), orderID, reason, sourceAdminAPI)
	if err != nil {
		switch {
		// Cancellation is idempotent from the caller's view; an
		// already-canceled shipment is returned as is.
		case errors.Is(err, fulfillment.ErrAlreadyCanceled):
			c.JSON(http.StatusOK, resdto.FromShipment(s))
		case errors.Is(err, fulfillment.ErrShipmentNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Shipment not found",
			})
		case errors.Is(err, fulfillment.ErrNotCancelable):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Shipment is past the point of cancellation",
			})
		case errors.Is(err, fulfillment.ErrStoreFailure):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Shipment store unavailable",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromShipment(s))
}

func (h *FulfillmentHandler) GetShipment(c *gin.Context) {
	orderID := c.Param("order_id")

	s, err := h.commands.Get(c.Request.Context(), orderID)
	if err != nil {
		h.writeShipmentError(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromShipment(s))
}

func (h *FulfillmentHandler) writeShipmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, fulfillment.ErrShipmentNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Shipment not found",
		})
	case errors.Is(err, fulfillment.ErrStoreFailure):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Shipment store unavailable",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
