package handler

import (
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/service"
	"github.com/gin-gonic/gin"
)

type WorkstationHandler struct {
	svc *service.WorkstationService
}

// List GET /workstations?status=active
func (h *WorkstationHandler) List(c *gin.Context) {
	params := repository.WorkstationListParams{
		ListParams: listParams(c),
		Status:     c.Query("status"),
		Keyword:    keyword(c),
	}
	items, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		ServiceError(c, err)
		return
	}
	list(c, items, total, params.ListParams)
}

// Create POST /workstations
func (h *WorkstationHandler) Create(c *gin.Context) {
	var input service.WorkstationInput
	if !bindJSON(c, &input) {
		return
	}
	ws, err := h.svc.Create(c.Request.Context(), &input, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, ws)
}

// Get GET /workstations/:id
func (h *WorkstationHandler) Get(c *gin.Context) {
	ws, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, ws)
}

// Update PUT /workstations/:id
func (h *WorkstationHandler) Update(c *gin.Context) {
	var input service.WorkstationInput
	if !bindJSON(c, &input) {
		return
	}
	ws, err := h.svc.Update(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, ws)
}
