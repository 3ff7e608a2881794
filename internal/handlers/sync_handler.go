package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"seatpool_backend/internal/services"
)

type SyncHandler struct {
	*BaseHandler
	syncService services.StatusSyncService
}

func NewSyncHandler(base *BaseHandler, syncService services.StatusSyncService) *SyncHandler {
	return &SyncHandler{
		BaseHandler: base,
		syncService: syncService,
	}
}

func (h *SyncHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/sync/sweep", h.RunSweep)
}

// RunSweep запускает синхронизатор вручную
func (h *SyncHandler) RunSweep(c *gin.Context) {
	result, err := h.syncService.RunSweep(c.Request.Context(), h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
