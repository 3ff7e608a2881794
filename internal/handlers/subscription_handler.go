package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"seatpool_backend/internal/services"
	"seatpool_backend/internal/services/dto"
)

type SubscriptionHandler struct {
	*BaseHandler
	subscriptionService services.SubscriptionService
	seatService         services.SeatService
}

func NewSubscriptionHandler(base *BaseHandler, subscriptionService services.SubscriptionService, seatService services.SeatService) *SubscriptionHandler {
	return &SubscriptionHandler{
		BaseHandler:         base,
		subscriptionService: subscriptionService,
		seatService:         seatService,
	}
}

func (h *SubscriptionHandler) RegisterRoutes(r *gin.RouterGroup) {
	subscriptions := r.Group("/subscriptions")
	{
		subscriptions.POST("", h.CreateSubscription)
		subscriptions.GET("", h.ListSubscriptions)
		subscriptions.GET("/:id", h.GetSubscription)
		subscriptions.GET("/:id/next-renewal", h.GetNextRenewal)
		subscriptions.GET("/:id/history", h.GetHistory)

		subscriptions.POST("/:id/renew", h.transition(h.subscriptionService.RenewNow))
		subscriptions.POST("/:id/overdue", h.transition(h.subscriptionService.MarkOverdue))
		subscriptions.POST("/:id/complete", h.transition(h.subscriptionService.Complete))
		subscriptions.POST("/:id/archive", h.transition(h.subscriptionService.Archive))
		subscriptions.POST("/:id/revert", h.transition(h.subscriptionService.Revert))
		subscriptions.POST("/:id/pause", h.transition(h.subscriptionService.Pause))
		subscriptions.POST("/:id/resume", h.transition(h.subscriptionService.Resume))
		subscriptions.POST("/:id/cancel", h.transition(h.subscriptionService.Cancel))

		subscriptions.PUT("/:id/custom-renewal-date", h.SetCustomRenewalDate)
		subscriptions.DELETE("/:id/custom-renewal-date", h.transition(h.subscriptionService.ClearCustomRenewalDate))

		subscriptions.POST("/:id/pool", h.LinkPool)
		subscriptions.DELETE("/:id/pool", h.UnlinkPool)
	}
}

func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	sub, err := h.subscriptionService.CreateSubscription(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	var query dto.SubscriptionListQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}
	page, pageSize := ParsePagination(c)

	subs, err := h.subscriptionService.ListSubscriptions(c.Request.Context(), h.GetDB(c), &query, page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	sub, err := h.subscriptionService.GetSubscription(c.Request.Context(), h.GetDB(c), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *SubscriptionHandler) GetNextRenewal(c *gin.Context) {
	next, err := h.subscriptionService.ComputeNextRenewal(c.Request.Context(), h.GetDB(c), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, next)
}

func (h *SubscriptionHandler) GetHistory(c *gin.Context) {
	events, err := h.subscriptionService.GetSubscriptionHistory(c.Request.Context(), h.GetDB(c), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"total":  len(events),
	})
}

type subscriptionOp func(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error)

// transition - общий обработчик для операций без тела запроса
func (h *SubscriptionHandler) transition(op subscriptionOp) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := op(c.Request.Context(), h.GetDB(c), c.Param("id"))
		if err != nil {
			h.HandleServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, sub)
	}
}

func (h *SubscriptionHandler) SetCustomRenewalDate(c *gin.Context) {
	var req dto.SetCustomRenewalDateRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	sub, err := h.subscriptionService.SetCustomRenewalDate(c.Request.Context(), h.GetDB(c), c.Param("id"), req.Date)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *SubscriptionHandler) LinkPool(c *gin.Context) {
	var req dto.LinkPoolRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	sub, err := h.seatService.LinkSubscriptionToPool(c.Request.Context(), h.GetDB(c), c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *SubscriptionHandler) UnlinkPool(c *gin.Context) {
	if err := h.seatService.UnlinkSubscriptionFromPool(c.Request.Context(), h.GetDB(c), c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
