package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"seatpool_backend/internal/models"
	"seatpool_backend/internal/services"
	"seatpool_backend/internal/services/dto"
)

type PoolHandler struct {
	*BaseHandler
	poolService services.PoolService
	seatService services.SeatService
}

func NewPoolHandler(base *BaseHandler, poolService services.PoolService, seatService services.SeatService) *PoolHandler {
	return &PoolHandler{
		BaseHandler: base,
		poolService: poolService,
		seatService: seatService,
	}
}

func (h *PoolHandler) RegisterRoutes(r *gin.RouterGroup) {
	pools := r.Group("/pools")
	{
		pools.POST("", h.CreatePool)
		pools.GET("", h.ListPools)
		pools.GET("/:poolId", h.GetPool)
		pools.PATCH("/:poolId", h.UpdatePool)
		pools.DELETE("/:poolId", h.DeletePool)
		pools.PUT("/:poolId/size", h.ResizePool)
		pools.POST("/:poolId/archive", h.ArchivePool)
		pools.GET("/:poolId/integrity", h.CheckIntegrity)

		pools.GET("/:poolId/seats", h.ListSeats)
		pools.GET("/:poolId/seats/available", h.ListAvailableSeats)
		pools.POST("/:poolId/seats/next", h.AssignNextFreeSeat)
	}
}

// --- Pool handlers ---

func (h *PoolHandler) CreatePool(c *gin.Context) {
	var req dto.CreatePoolRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	pool, err := h.poolService.CreatePool(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pool)
}

func (h *PoolHandler) ListPools(c *gin.Context) {
	var query dto.PoolListQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}
	page, pageSize := ParsePagination(c)

	pools, err := h.poolService.ListPools(c.Request.Context(), h.GetDB(c), &query, page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pools)
}

func (h *PoolHandler) GetPool(c *gin.Context) {
	pool, err := h.poolService.GetPool(c.Request.Context(), h.GetDB(c), c.Param("poolId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pool)
}

func (h *PoolHandler) UpdatePool(c *gin.Context) {
	var req dto.UpdatePoolRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	pool, err := h.poolService.UpdatePool(c.Request.Context(), h.GetDB(c), c.Param("poolId"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pool)
}

func (h *PoolHandler) ResizePool(c *gin.Context) {
	var req dto.ResizePoolRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	pool, err := h.poolService.ResizePool(c.Request.Context(), h.GetDB(c), c.Param("poolId"), req.MaxSeats)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pool)
}

func (h *PoolHandler) ArchivePool(c *gin.Context) {
	pool, err := h.poolService.ArchivePool(c.Request.Context(), h.GetDB(c), c.Param("poolId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pool)
}

func (h *PoolHandler) DeletePool(c *gin.Context) {
	if err := h.poolService.DeletePool(c.Request.Context(), h.GetDB(c), c.Param("poolId")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CheckIntegrity отдает отчет; при нарушениях - 500 с отчетом в details
func (h *PoolHandler) CheckIntegrity(c *gin.Context) {
	report, err := h.poolService.CheckIntegrity(c.Request.Context(), h.GetDB(c), c.Param("poolId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// --- Seat handlers ---

func (h *PoolHandler) ListSeats(c *gin.Context) {
	var query dto.SeatListQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	seats, err := h.seatService.ListSeats(c.Request.Context(), h.GetDB(c), c.Param("poolId"), models.SeatStatus(query.Status))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"seats": seats,
		"total": len(seats),
	})
}

func (h *PoolHandler) ListAvailableSeats(c *gin.Context) {
	seats, err := h.seatService.ListAvailableSeats(c.Request.Context(), h.GetDB(c), c.Param("poolId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"seats": seats,
		"total": len(seats),
	})
}

func (h *PoolHandler) AssignNextFreeSeat(c *gin.Context) {
	var req dto.AssignSeatRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	seat, err := h.seatService.AssignNextFreeSeat(c.Request.Context(), h.GetDB(c), c.Param("poolId"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, seat)
}
