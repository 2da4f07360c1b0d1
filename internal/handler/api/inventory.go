package api

import (
	"context"
	"errors"
	"net/http"

	"orderflow/internal/domain/reservation"
	reqdto "orderflow/internal/handler/dto/request"
	resdto "orderflow/internal/handler/dto/response"
	"orderflow/internal/saga/inventory"

	"github.com/gin-gonic/gin"
)

// sourceAdminAPI is recorded as the source_event of operations driven
// through the administrative endpoints rather than by bus events.
const sourceAdminAPI = "admin_api"

// InventoryCommands is the slice of the inventory participant the
// handler depends on.
type InventoryCommands interface {
	Reserve(ctx context.Context, orderID, userID string, items []reservation.Item, sourceEvent string) (*reservation.Reservation, error)
	Commit(ctx context.Context, orderID, sourceEvent string) (*reservation.Reservation, error)
	Release(ctx context.Context, orderID, reason, sourceEvent string) (*reservation.Reservation, error)
	Get(ctx context.Context, orderID string) (*reservation.Reservation, error)
	ReleaseExpired(ctx context.Context) (int, error)
}

type InventoryHandler struct {
	commands InventoryCommands
}

func NewInventoryHandler(commands InventoryCommands) *InventoryHandler {
	return &InventoryHandler{commands: commands}
}

func (h *InventoryHandler) CreateReservation(c *gin.Context) {
	var req reqdto.ReserveRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	rsv, err := h.commands.Reserve(c.Request.Context(), req.OrderID, req.UserID, req.ToItems(), sourceAdminAPI)
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrNoValidItems):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "No valid items to reserve",
			})
		case errors.Is(err, inventory.ErrStoreFailure):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Reservation store unavailable",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromReservation(rsv))
}

func (h *InventoryHandler) CommitReservation(c *gin.Context) {
	orderID := c.Param("order_id")

	rsv, err := h.commands.Commit(c.Request.Context(), orderID, sourceAdminAPI)
	if err != nil {
		h.writeReservationError(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromReservation(rsv))
}

func (h *InventoryHandler) ReleaseReservation(c *gin.Context) {
	orderID := c.Param("order_id")

	var req reqdto.ReleaseRequest
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
		reason = "manual_release"
	}

	rsv, err := h.commands.Release(c.Request.Context(), orderID, reason, sourceAdminAPI)
	if err != nil {
		h.writeReservationError(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromReservation(rsv))
}

func (h *InventoryHandler) GetReservation(c *gin.Context) {
	orderID := c.Param("order_id")

	rsv, err := h.commands.Get(c.Request.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrReservationNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Reservation not found",
			})
		case errors.Is(err, inventory.ErrStoreFailure):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Reservation store unavailable",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromReservation(rsv))
}

// SweepExpired forces a release pass over expired reservations, the
// same work the scheduled sweeper performs.
func (h *InventoryHandler) SweepExpired(c *gin.Context) {
	released, err := h.commands.ReleaseExpired(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Reservation store unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, resdto.SweepResponse{Released: released})
}

func (h *InventoryHandler) writeReservationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, inventory.ErrNoActiveReservation):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No active reservation for order",
		})
	case errors.Is(err, inventory.ErrStoreFailure):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Reservation store unavailable",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
