package handler

import (
	"strconv"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/service"
	"github.com/gin-gonic/gin"
)

type WorkOrderHandler struct {
	svc *service.WorkOrderService
}

// List GET /work-orders?status=&item_id=&bom_id=
func (h *WorkOrderHandler) List(c *gin.Context) {
	params := repository.WOListParams{
		ListParams: listParams(c),
		Status:     c.Query("status"),
		ItemID:     c.Query("item_id"),
		BOMID:      c.Query("bom_id"),
		Keyword:    keyword(c),
	}
	wos, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		ServiceError(c, err)
		return
	}
	list(c, wos, total, params.ListParams)
}

// Create POST /work-orders
func (h *WorkOrderHandler) Create(c *gin.Context) {
	var input service.WorkOrderInput
	if !bindJSON(c, &input) {
		return
	}
	wo, err := h.svc.Create(c.Request.Context(), &input, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, wo)
}

// Get GET /work-orders/:id
func (h *WorkOrderHandler) Get(c *gin.Context) {
	wo, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, wo)
}

// Update PUT /work-orders/:id
func (h *WorkOrderHandler) Update(c *gin.Context) {
	var input service.WorkOrderInput
	if !bindJSON(c, &input) {
		return
	}
	wo, err := h.svc.Update(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, wo)
}

// Delete DELETE /work-orders/:id?version=
func (h *WorkOrderHandler) Delete(c *gin.Context) {
	version := 0
	if v := c.Query("version"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			BadRequest(c, "version must be an integer")
			return
		}
		version = n
	}
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), version); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

type woTransition func(c *gin.Context, id string, version int) (interface{}, error)

// transition 只带version的状态迁移
func (h *WorkOrderHandler) transition(fn woTransition) gin.HandlerFunc {
	return func(c *gin.Context) {
		version, ok := bindVersion(c)
		if !ok {
			return
		}
		wo, err := fn(c, c.Param("id"), version)
		if err != nil {
			ServiceError(c, err)
			return
		}
		Success(c, wo)
	}
}

// Submit POST /work-orders/:id/submit
func (h *WorkOrderHandler) Submit(c *gin.Context) {
	h.transition(func(c *gin.Context, id string, version int) (interface{}, error) {
		return h.svc.Submit(c.Request.Context(), id, version)
	})(c)
}

// Release POST /work-orders/:id/release
func (h *WorkOrderHandler) Release(c *gin.Context) {
	h.transition(func(c *gin.Context, id string, version int) (interface{}, error) {
		return h.svc.Release(c.Request.Context(), id, version)
	})(c)
}

// Start POST /work-orders/:id/start
func (h *WorkOrderHandler) Start(c *gin.Context) {
	h.transition(func(c *gin.Context, id string, version int) (interface{}, error) {
		return h.svc.Start(c.Request.Context(), id, version, GetUserID(c))
	})(c)
}

// Stop POST /work-orders/:id/stop
func (h *WorkOrderHandler) Stop(c *gin.Context) {
	h.transition(func(c *gin.Context, id string, version int) (interface{}, error) {
		return h.svc.Stop(c.Request.Context(), id, version)
	})(c)
}

// Cancel POST /work-orders/:id/cancel
func (h *WorkOrderHandler) Cancel(c *gin.Context) {
	h.transition(func(c *gin.Context, id string, version int) (interface{}, error) {
		return h.svc.Cancel(c.Request.Context(), id, version)
	})(c)
}

// Complete POST /work-orders/:id/complete
func (h *WorkOrderHandler) Complete(c *gin.Context) {
	var input service.CompleteWorkOrderInput
	if !bindJSON(c, &input) {
		return
	}
	wo, err := h.svc.Complete(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, wo)
}

// Transfer POST /work-orders/:id/transfer
func (h *WorkOrderHandler) Transfer(c *gin.Context) {
	var input service.MaterialMovementInput
	if !bindJSON(c, &input) {
		return
	}
	wo, err := h.svc.TransferMaterials(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, wo)
}

// Consume POST /work-orders/:id/consume
func (h *WorkOrderHandler) Consume(c *gin.Context) {
	var input service.MaterialMovementInput
	if !bindJSON(c, &input) {
		return
	}
	wo, err := h.svc.ConsumeMaterials(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, wo)
}
