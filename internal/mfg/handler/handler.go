package handler

import (
	"errors"
	"io"
	"strconv"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/service"
	"github.com/bitfantasy/nimo-mfg/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers 生产模块处理器集合
type Handlers struct {
	Item        *ItemHandler
	Workstation *WorkstationHandler
	BOM         *BOMHandler
	WorkOrder   *WorkOrderHandler
	JobCard     *JobCardHandler
	Stats       *StatsHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		Item:        &ItemHandler{svc: svc.Item},
		Workstation: &WorkstationHandler{svc: svc.Workstation},
		BOM:         &BOMHandler{svc: svc.BOM, logger: logger},
		WorkOrder:   &WorkOrderHandler{svc: svc.WorkOrder},
		JobCard:     &JobCardHandler{svc: svc.JobCard},
		Stats:       &StatsHandler{svc: svc.Stats},
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse 列表响应结构
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应，HTTP状态码取业务码前三位
func Error(c *gin.Context, code int, message string) {
	ErrorWithData(c, code, message, nil)
}

func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// ServiceError 将服务层错误映射为响应
func ServiceError(c *gin.Context, err error) {
	var (
		verr     *service.ValidationError
		nf       *service.NotFoundError
		conflict *service.ConflictError
		invalid  *service.InvalidTransitionError
	)
	switch {
	case errors.As(err, &verr):
		ErrorWithData(c, 40001, verr.Error(), gin.H{"violations": verr.Violations})
	case errors.As(err, &nf):
		NotFound(c, nf.Error())
	case errors.As(err, &conflict):
		Error(c, 40900, conflict.Error())
	case errors.As(err, &invalid):
		ErrorWithData(c, 40901, invalid.Error(), gin.H{"from": invalid.From, "action": invalid.Action})
	default:
		_ = c.Error(err)
		InternalError(c, "internal error")
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserID)
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func listParams(c *gin.Context) repository.ListParams {
	page, size := GetPagination(c)
	return repository.ListParams{Page: page, Size: size}
}

func list(c *gin.Context, items interface{}, total int64, params repository.ListParams) {
	pages := 0
	if params.Size > 0 {
		pages = int((total + int64(params.Size) - 1) / int64(params.Size))
	}
	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       params.Page,
			PageSize:   params.Size,
			Total:      int(total),
			TotalPages: pages,
		},
	})
}

// bindJSON 解析请求体，允许空body
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(c, "Invalid request: "+err.Error())
		return false
	}
	return true
}

// versionInput 状态迁移请求体，version为0时不做版本校验
type versionInput struct {
	Version int `json:"version"`
}

func bindVersion(c *gin.Context) (int, bool) {
	var in versionInput
	if !bindJSON(c, &in) {
		return 0, false
	}
	return in.Version, true
}

func keyword(c *gin.Context) string {
	if kw := c.Query("keyword"); kw != "" {
		return kw
	}
	return c.Query("search")
}
