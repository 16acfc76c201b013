package handler

import (
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/service"
	"github.com/gin-gonic/gin"
)

type ItemHandler struct {
	svc *service.ItemService
}

// List GET /items
func (h *ItemHandler) List(c *gin.Context) {
	params := repository.ItemListParams{ListParams: listParams(c), Keyword: keyword(c)}
	items, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		ServiceError(c, err)
		return
	}
	list(c, items, total, params.ListParams)
}

// Create POST /items
func (h *ItemHandler) Create(c *gin.Context) {
	var input service.CreateItemInput
	if !bindJSON(c, &input) {
		return
	}
	item, err := h.svc.Create(c.Request.Context(), &input, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, item)
}

// Get GET /items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	item, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, item)
}
