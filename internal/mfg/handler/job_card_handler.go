package handler

import (
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/service"
	"github.com/gin-gonic/gin"
)

type JobCardHandler struct {
	svc *service.JobCardService
}

// List GET /job-cards?status=&work_order_id=
func (h *JobCardHandler) List(c *gin.Context) {
	params := repository.JobCardListParams{
		ListParams:  listParams(c),
		Status:      c.Query("status"),
		WorkOrderID: c.Query("work_order_id"),
		Keyword:     keyword(c),
	}
	cards, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		ServiceError(c, err)
		return
	}
	list(c, cards, total, params.ListParams)
}

// Create POST /job-cards
func (h *JobCardHandler) Create(c *gin.Context) {
	var input service.CreateJobCardInput
	if !bindJSON(c, &input) {
		return
	}
	jc, err := h.svc.Create(c.Request.Context(), &input, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, jc)
}

// Get GET /job-cards/:id
func (h *JobCardHandler) Get(c *gin.Context) {
	jc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, jc)
}

// Open POST /job-cards/:id/open
func (h *JobCardHandler) Open(c *gin.Context) {
	version, ok := bindVersion(c)
	if !ok {
		return
	}
	jc, err := h.svc.Open(c.Request.Context(), c.Param("id"), version)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, jc)
}

// Start POST /job-cards/:id/start
func (h *JobCardHandler) Start(c *gin.Context) {
	version, ok := bindVersion(c)
	if !ok {
		return
	}
	jc, err := h.svc.Start(c.Request.Context(), c.Param("id"), version)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, jc)
}

// AddTimeLog POST /job-cards/:id/time-logs
func (h *JobCardHandler) AddTimeLog(c *gin.Context) {
	var input service.TimeLogInput
	if !bindJSON(c, &input) {
		return
	}
	jc, err := h.svc.AddTimeLog(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, jc)
}

// Complete POST /job-cards/:id/complete
func (h *JobCardHandler) Complete(c *gin.Context) {
	var input service.CompleteJobCardInput
	if !bindJSON(c, &input) {
		return
	}
	jc, err := h.svc.Complete(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, jc)
}

// Cancel POST /job-cards/:id/cancel
func (h *JobCardHandler) Cancel(c *gin.Context) {
	version, ok := bindVersion(c)
	if !ok {
		return
	}
	jc, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), version)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, jc)
}
