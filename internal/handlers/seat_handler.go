package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"seatpool_backend/internal/services"
	"seatpool_backend/internal/services/dto"
)

type SeatHandler struct {
	*BaseHandler
	seatService services.SeatService
}

func NewSeatHandler(base *BaseHandler, seatService services.SeatService) *SeatHandler {
	return &SeatHandler{
		BaseHandler: base,
		seatService: seatService,
	}
}

func (h *SeatHandler) RegisterRoutes(r *gin.RouterGroup) {
	seats := r.Group("/seats")
	{
		seats.POST("/:seatId/assign", h.AssignSeat)
		seats.POST("/:seatId/reserve", h.ReserveSeat)
		seats.POST("/:seatId/release", h.ReleaseSeat)
	}
}

func (h *SeatHandler) AssignSeat(c *gin.Context) {
	var req dto.AssignSeatRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	seat, err := h.seatService.AssignSeat(c.Request.Context(), h.GetDB(c), c.Param("seatId"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, seat)
}

func (h *SeatHandler) ReserveSeat(c *gin.Context) {
	seat, err := h.seatService.ReserveSeat(c.Request.Context(), h.GetDB(c), c.Param("seatId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, seat)
}

func (h *SeatHandler) ReleaseSeat(c *gin.Context) {
	if err := h.seatService.ReleaseSeat(c.Request.Context(), h.GetDB(c), c.Param("seatId")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
