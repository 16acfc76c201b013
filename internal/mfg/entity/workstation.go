package entity

import "time"

// WorkstationStatus 工作站状态
const (
	WorkstationStatusActive   = "active"
	WorkstationStatusInactive = "inactive"
)

// Workstation 工作站（机器/产线/工位）
type Workstation struct {
	ID                 string    `json:"id" gorm:"primaryKey;size:36"`
	Name               string    `json:"name" gorm:"size:128;not null"`
	NameAr             string    `json:"name_ar" gorm:"size:128"`
	WorkstationType    string    `json:"workstation_type" gorm:"size:32;not null"`
	HourRate           float64   `json:"hour_rate" gorm:"type:decimal(15,2);default:0"`
	ElectricityCost    float64   `json:"electricity_cost" gorm:"type:decimal(15,2);default:0"`
	ConsumableCost     float64   `json:"consumable_cost" gorm:"type:decimal(15,2);default:0"`
	RentCost           float64   `json:"rent_cost" gorm:"type:decimal(15,2);default:0"`
	ProductionCapacity float64   `json:"production_capacity" gorm:"type:decimal(12,4);default:0"` // 每小时产能
	WorkingHoursPerDay float64   `json:"working_hours_per_day" gorm:"type:decimal(5,2);default:8"`
	Description        string    `json:"description" gorm:"type:text"`
	Status             string    `json:"status" gorm:"size:16;not null;default:active;index"`
	Version            int       `json:"version" gorm:"not null;default:1"`
	CreatedBy          string    `json:"created_by" gorm:"size:64"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	// 计算字段
	TotalHourlyCost float64 `json:"total_hourly_cost" gorm:"-"`
	DailyCapacity   float64 `json:"daily_capacity" gorm:"-"`
}

func (Workstation) TableName() string {
	return "mfg_workstations"
}
