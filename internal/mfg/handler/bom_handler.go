package handler

import (
	"strconv"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BOMHandler struct {
	svc    *service.BOMService
	logger *zap.Logger
}

// List GET /boms?item_id=&is_active=true
func (h *BOMHandler) List(c *gin.Context) {
	params := repository.BOMListParams{
		ListParams: listParams(c),
		ItemID:     c.Query("item_id"),
		Keyword:    keyword(c),
	}
	if v := c.Query("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			BadRequest(c, "is_active must be a boolean")
			return
		}
		params.IsActive = &active
	}
	boms, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		ServiceError(c, err)
		return
	}
	list(c, boms, total, params.ListParams)
}

// Create POST /boms
func (h *BOMHandler) Create(c *gin.Context) {
	var input service.BOMInput
	if !bindJSON(c, &input) {
		return
	}
	bom, err := h.svc.Create(c.Request.Context(), &input, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, bom)
}

// Get GET /boms/:id
func (h *BOMHandler) Get(c *gin.Context) {
	bom, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, bom)
}

// Update PUT /boms/:id
func (h *BOMHandler) Update(c *gin.Context) {
	var input service.BOMInput
	if !bindJSON(c, &input) {
		return
	}
	bom, err := h.svc.Update(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, bom)
}

// SetDefault POST /boms/:id/default
func (h *BOMHandler) SetDefault(c *gin.Context) {
	version, ok := bindVersion(c)
	if !ok {
		return
	}
	bom, err := h.svc.SetDefault(c.Request.Context(), c.Param("id"), version)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, bom)
}

// ToggleActive POST /boms/:id/toggle-active
func (h *BOMHandler) ToggleActive(c *gin.Context) {
	version, ok := bindVersion(c)
	if !ok {
		return
	}
	bom, err := h.svc.ToggleActive(c.Request.Context(), c.Param("id"), version)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, bom)
}

// Duplicate POST /boms/:id/duplicate
func (h *BOMHandler) Duplicate(c *gin.Context) {
	bom, err := h.svc.Duplicate(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, bom)
}

// Export GET /boms/:id/export
func (h *BOMHandler) Export(c *gin.Context) {
	f, filename, err := h.svc.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		h.logger.Error("write bom export", zap.String("bom_id", c.Param("id")), zap.Error(err))
	}
}
