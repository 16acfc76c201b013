package handler

import (
	"github.com/bitfantasy/nimo-mfg/internal/mfg/service"
	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	svc *service.StatsService
}

// Get GET /stats
func (h *StatsHandler) Get(c *gin.Context) {
	stats, err := h.svc.Get(c.Request.Context())
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, stats)
}
