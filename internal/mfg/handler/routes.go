package handler

import (
	"github.com/bitfantasy/nimo-mfg/internal/middleware"
	"github.com/gin-gonic/gin"
)

// 权限点
const (
	PermRead        = "mfg.read"
	PermItem        = "mfg.item.write"
	PermWorkstation = "mfg.workstation.write"
	PermBOM         = "mfg.bom.write"
	PermWorkOrder   = "mfg.work_order.write"
	PermJobCard     = "mfg.job_card.write"
)

// RegisterRoutes 注册生产模块路由，rg需已挂载JWT认证
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	mfg := rg.Group("/mfg")
	read := middleware.RequirePermission(PermRead)

	items := mfg.Group("/items")
	{
		items.GET("", read, h.Item.List)
		items.GET("/:id", read, h.Item.Get)
		items.POST("", middleware.RequirePermission(PermItem), h.Item.Create)
	}

	workstations := mfg.Group("/workstations")
	{
		write := middleware.RequirePermission(PermWorkstation)
		workstations.GET("", read, h.Workstation.List)
		workstations.GET("/:id", read, h.Workstation.Get)
		workstations.POST("", write, h.Workstation.Create)
		workstations.PUT("/:id", write, h.Workstation.Update)
	}

	boms := mfg.Group("/boms")
	{
		write := middleware.RequirePermission(PermBOM)
		boms.GET("", read, h.BOM.List)
		boms.GET("/:id", read, h.BOM.Get)
		boms.GET("/:id/export", read, h.BOM.Export)
		boms.POST("", write, h.BOM.Create)
		boms.PUT("/:id", write, h.BOM.Update)
		boms.POST("/:id/default", write, h.BOM.SetDefault)
		boms.POST("/:id/toggle-active", write, h.BOM.ToggleActive)
		boms.POST("/:id/duplicate", write, h.BOM.Duplicate)
	}

	workOrders := mfg.Group("/work-orders")
	{
		write := middleware.RequirePermission(PermWorkOrder)
		workOrders.GET("", read, h.WorkOrder.List)
		workOrders.GET("/:id", read, h.WorkOrder.Get)
		workOrders.POST("", write, h.WorkOrder.Create)
		workOrders.PUT("/:id", write, h.WorkOrder.Update)
		workOrders.DELETE("/:id", write, h.WorkOrder.Delete)
		workOrders.POST("/:id/submit", write, h.WorkOrder.Submit)
		workOrders.POST("/:id/release", write, h.WorkOrder.Release)
		workOrders.POST("/:id/start", write, h.WorkOrder.Start)
		workOrders.POST("/:id/stop", write, h.WorkOrder.Stop)
		workOrders.POST("/:id/complete", write, h.WorkOrder.Complete)
		workOrders.POST("/:id/cancel", write, h.WorkOrder.Cancel)
		workOrders.POST("/:id/transfer", write, h.WorkOrder.Transfer)
		workOrders.POST("/:id/consume", write, h.WorkOrder.Consume)
	}

	jobCards := mfg.Group("/job-cards")
	{
		write := middleware.RequirePermission(PermJobCard)
		jobCards.GET("", read, h.JobCard.List)
		jobCards.GET("/:id", read, h.JobCard.Get)
		jobCards.POST("", write, h.JobCard.Create)
		jobCards.POST("/:id/open", write, h.JobCard.Open)
		jobCards.POST("/:id/start", write, h.JobCard.Start)
		jobCards.POST("/:id/time-logs", write, h.JobCard.AddTimeLog)
		jobCards.POST("/:id/complete", write, h.JobCard.Complete)
		jobCards.POST("/:id/cancel", write, h.JobCard.Cancel)
	}

	mfg.GET("/stats", read, h.Stats.Get)
}
