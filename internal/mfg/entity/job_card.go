package entity

import "time"

// JobCardStatus 作业卡状态
const (
	JCStatusDraft          = "draft"
	JCStatusOpen           = "open"
	JCStatusWorkInProgress = "work_in_progress"
	JCStatusCompleted      = "completed"
	JCStatusCancelled      = "cancelled"
)

// JobCard 作业卡：一个工单的一道工序的执行记录
type JobCard struct {
	ID                   string     `json:"id" gorm:"primaryKey;size:36"`
	JobCardNumber        string     `json:"job_card_number" gorm:"size:50;not null;uniqueIndex"`
	WorkOrderID          string     `json:"work_order_id" gorm:"size:36;not null;index"`
	WorkOrderNumber      string     `json:"work_order_number" gorm:"size:50"`
	WorkOrderOperationID string     `json:"work_order_operation_id" gorm:"size:36;not null;index"`
	Sequence             int        `json:"sequence" gorm:"not null"`
	Operation            string     `json:"operation" gorm:"size:128;not null"`
	WorkstationID        string     `json:"workstation_id" gorm:"size:36"`
	ItemID               string     `json:"item_id" gorm:"size:36"`
	ItemName             string     `json:"item_name" gorm:"size:128"`
	ForQuantity          float64    `json:"for_quantity" gorm:"type:decimal(12,4);not null"`
	CompletedQty         float64    `json:"completed_qty" gorm:"type:decimal(12,4);default:0"`
	TimeInMins           float64    `json:"time_in_mins" gorm:"type:decimal(12,2);default:0"` // 计划工时
	Status               string     `json:"status" gorm:"size:20;not null;default:draft;index"`
	StartedTime          *time.Time `json:"started_time"`
	CompletedTime        *time.Time `json:"completed_time"`
	Employee             string     `json:"employee" gorm:"size:64"`
	Remarks              string     `json:"remarks" gorm:"type:text"`
	Version              int        `json:"version" gorm:"not null;default:1"`
	CreatedBy            string     `json:"created_by" gorm:"size:64"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	TimeLogs []JobCardTimeLog `json:"time_logs" gorm:"foreignKey:JobCardID"`

	// 计算字段
	TotalTimeInMins      float64  `json:"total_time_in_mins" gorm:"-"`
	ElapsedSeconds       *int64   `json:"elapsed_seconds" gorm:"-"`
	Efficiency           *float64 `json:"efficiency" gorm:"-"`
	CompletionPercentage float64  `json:"completion_percentage" gorm:"-"`
	ActualOperatingCost  float64  `json:"actual_operating_cost" gorm:"-"`
}

func (JobCard) TableName() string {
	return "mfg_job_cards"
}

// IsTerminal 已完成或已取消
func (jc *JobCard) IsTerminal() bool {
	return jc.Status == JCStatusCompleted || jc.Status == JCStatusCancelled
}

// JobCardTimeLog 作业卡工时记录
type JobCardTimeLog struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	JobCardID    string    `json:"job_card_id" gorm:"size:36;not null;index"`
	FromTime     time.Time `json:"from_time" gorm:"not null"`
	ToTime       time.Time `json:"to_time" gorm:"not null"`
	CompletedQty float64   `json:"completed_qty" gorm:"type:decimal(12,4);default:0"`
	Remarks      string    `json:"remarks" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`

	DurationInMins int64 `json:"duration_in_mins" gorm:"-"`
}

func (JobCardTimeLog) TableName() string {
	return "mfg_job_card_time_logs"
}
