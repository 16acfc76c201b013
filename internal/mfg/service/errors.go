package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
)

// FieldViolation 单个字段校验失败
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 输入校验失败，包含全部违规字段
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...interface{}) {
	e.Violations = append(e.Violations, FieldViolation{Field: field, Message: fmt.Sprintf(format, args...)})
}

// err 没有违规时返回nil
func (e *ValidationError) err() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}

// HasField 是否包含某字段的违规
func (e *ValidationError) HasField(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// NotFoundError 引用的实体不存在
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InvalidTransitionError 状态机不允许的操作
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	Action string
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s %s %s in status %s", e.Action, e.Entity, e.ID, e.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ConflictError 并发修改失败或引用约束冲突
type ConflictError struct {
	Entity string
	ID     string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s conflict: %s", e.Entity, e.ID, e.Reason)
}

const reasonStaleVersion = "modified by another request, reload and retry"

// wrapRepoErr 将仓库层错误转换为领域错误
func wrapRepoErr(err error, entityName, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return &NotFoundError{Entity: entityName, ID: id}
	case errors.Is(err, repository.ErrVersionConflict):
		return &ConflictError{Entity: entityName, ID: id, Reason: reasonStaleVersion}
	default:
		return fmt.Errorf("%s %s: %w", entityName, id, err)
	}
}

// checkVersion expected为0表示调用方未携带版本号
func checkVersion(entityName, id string, expected, actual int) error {
	if expected != 0 && expected != actual {
		return &ConflictError{Entity: entityName, ID: id, Reason: reasonStaleVersion}
	}
	return nil
}
