package entity

import (
	"time"

	"gorm.io/gorm"
)

// WorkOrderStatus 工单状态
const (
	WOStatusDraft      = "draft"
	WOStatusSubmitted  = "submitted"
	WOStatusNotStarted = "not_started"
	WOStatusInProgress = "in_progress"
	WOStatusStopped    = "stopped"
	WOStatusCompleted  = "completed"
	WOStatusCancelled  = "cancelled"
)

// OperationStatus 工单工序进度状态
const (
	OpStatusPending    = "pending"
	OpStatusInProgress = "in_progress"
	OpStatusCompleted  = "completed"
)

// WorkOrder 生产工单
type WorkOrder struct {
	ID                string         `json:"id" gorm:"primaryKey;size:36"`
	WorkOrderNumber   string         `json:"work_order_number" gorm:"size:50;not null;uniqueIndex"`
	ItemID            string         `json:"item_id" gorm:"size:36;not null;index"`
	ItemCode          string         `json:"item_code" gorm:"size:64"`
	ItemName          string         `json:"item_name" gorm:"size:128"`
	BOMID             string         `json:"bom_id" gorm:"size:36;not null;index"`
	BOMNumber         string         `json:"bom_number" gorm:"size:50"`
	Qty               float64        `json:"qty" gorm:"type:decimal(12,4);not null"`
	UOM               string         `json:"uom" gorm:"size:20;not null"`
	SourceWarehouse   string         `json:"source_warehouse" gorm:"size:64"`
	WIPWarehouse      string         `json:"wip_warehouse" gorm:"size:64"`
	TargetWarehouse   string         `json:"target_warehouse" gorm:"size:64"`
	PlannedStartDate  time.Time      `json:"planned_start_date" gorm:"type:date;not null"`
	PlannedEndDate    *time.Time     `json:"planned_end_date" gorm:"type:date"`
	ActualStartDate   *time.Time     `json:"actual_start_date"`
	ActualEndDate     *time.Time     `json:"actual_end_date"`
	StoppedAt         *time.Time     `json:"stopped_at"`
	Status            string         `json:"status" gorm:"size:20;not null;default:draft;index"`
	ProducedQty       float64        `json:"produced_qty" gorm:"type:decimal(12,4);default:0"`
	ActualCostPerUnit float64        `json:"actual_cost_per_unit" gorm:"type:decimal(15,4);default:0"`
	Currency          string         `json:"currency" gorm:"size:3;not null;default:SAR"`
	Remarks           string         `json:"remarks" gorm:"type:text"`
	Version           int            `json:"version" gorm:"not null;default:1"`
	CreatedBy         string         `json:"created_by" gorm:"size:64"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`

	RequiredItems []WorkOrderItem      `json:"required_items" gorm:"foreignKey:WorkOrderID"`
	Operations    []WorkOrderOperation `json:"operations" gorm:"foreignKey:WorkOrderID"`

	// 计算字段，每次读取时重新计算
	CompletionPercentage        float64 `json:"completion_percentage" gorm:"-"`
	MaterialsConsumedPercentage float64 `json:"materials_consumed_percentage" gorm:"-"`
	OperationsPercentage        float64 `json:"operations_percentage" gorm:"-"`
}

func (WorkOrder) TableName() string {
	return "mfg_work_orders"
}

// IsTerminal 已完成或已取消
func (wo *WorkOrder) IsTerminal() bool {
	return wo.Status == WOStatusCompleted || wo.Status == WOStatusCancelled
}

// WorkOrderItem 工单物料需求。需求数量不落库，由BOM行和工单数量计算
type WorkOrderItem struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	WorkOrderID     string    `json:"work_order_id" gorm:"size:36;not null;index"`
	LineNo          int       `json:"line_no" gorm:"not null;default:0"`
	BOMItemID       string    `json:"bom_item_id" gorm:"size:36;not null"`
	ItemID          string    `json:"item_id" gorm:"size:36;not null"`
	ItemCode        string    `json:"item_code" gorm:"size:64"`
	ItemName        string    `json:"item_name" gorm:"size:128"`
	UOM             string    `json:"uom" gorm:"size:20"`
	SourceWarehouse string    `json:"source_warehouse" gorm:"size:64"`
	TransferredQty  float64   `json:"transferred_qty" gorm:"type:decimal(12,4);default:0"`
	ConsumedQty     float64   `json:"consumed_qty" gorm:"type:decimal(12,4);default:0"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	RequiredQty float64 `json:"required_qty" gorm:"-"`
}

func (WorkOrderItem) TableName() string {
	return "mfg_work_order_items"
}

// WorkOrderOperation 工单工序进度，由作业卡汇总
type WorkOrderOperation struct {
	ID               string    `json:"id" gorm:"primaryKey;size:36"`
	WorkOrderID      string    `json:"work_order_id" gorm:"size:36;not null;index"`
	BOMOperationID   string    `json:"bom_operation_id" gorm:"size:36"`
	Sequence         int       `json:"sequence" gorm:"not null"`
	Operation        string    `json:"operation" gorm:"size:128;not null"`
	WorkstationID    string    `json:"workstation_id" gorm:"size:36"`
	ActualTimeInMins float64   `json:"actual_time_in_mins" gorm:"type:decimal(12,2);default:0"`
	CompletedQty     float64   `json:"completed_qty" gorm:"type:decimal(12,4);default:0"`
	Status           string    `json:"status" gorm:"size:20;not null;default:pending"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	PlannedTimeInMins float64 `json:"planned_time_in_mins" gorm:"-"`
}

func (WorkOrderOperation) TableName() string {
	return "mfg_work_order_operations"
}
