package entity

import "time"

// BOMType BOM类型
const (
	BOMTypeStandard    = "standard"
	BOMTypeTemplate    = "template"
	BOMTypeSubcontract = "subcontract"
)

// BOM 物料清单
type BOM struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	BOMNumber      string    `json:"bom_number" gorm:"size:50;not null;uniqueIndex"`
	ItemID         string    `json:"item_id" gorm:"size:36;not null;index"`
	ItemCode       string    `json:"item_code" gorm:"size:64"`
	ItemName       string    `json:"item_name" gorm:"size:128"`
	BOMType        string    `json:"bom_type" gorm:"size:16;not null;default:standard"`
	Quantity       float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	UOM            string    `json:"uom" gorm:"size:20;not null"`
	IsActive       bool      `json:"is_active" gorm:"not null"`
	IsDefault      bool      `json:"is_default" gorm:"not null;default:false"`
	Currency       string    `json:"currency" gorm:"size:3;not null;default:SAR"`
	MaterialsCost  float64   `json:"materials_cost" gorm:"type:decimal(15,2);default:0"`
	OperationsCost float64   `json:"operations_cost" gorm:"type:decimal(15,2);default:0"`
	TotalCost      float64   `json:"total_cost" gorm:"type:decimal(15,2);default:0"`
	CostPerUnit    float64   `json:"cost_per_unit" gorm:"type:decimal(15,4);default:0"`
	Remarks        string    `json:"remarks" gorm:"type:text"`
	Version        int       `json:"version" gorm:"not null;default:1"`
	CreatedBy      string    `json:"created_by" gorm:"size:64"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Items      []BOMItem      `json:"items,omitempty" gorm:"foreignKey:BOMID"`
	Operations []BOMOperation `json:"operations,omitempty" gorm:"foreignKey:BOMID"`
}

func (BOM) TableName() string {
	return "mfg_boms"
}

// BOMItem BOM原材料行
type BOMItem struct {
	ID                     string    `json:"id" gorm:"primaryKey;size:36"`
	BOMID                  string    `json:"bom_id" gorm:"size:36;not null;index"`
	LineNo                 int       `json:"line_no" gorm:"not null"`
	ItemID                 string    `json:"item_id" gorm:"size:36;not null"`
	ItemCode               string    `json:"item_code" gorm:"size:64"`
	ItemName               string    `json:"item_name" gorm:"size:128"`
	Quantity               float64   `json:"qty" gorm:"type:decimal(12,4);not null"`
	UOM                    string    `json:"uom" gorm:"size:20"`
	Rate                   float64   `json:"rate" gorm:"type:decimal(15,4);default:0"`
	Amount                 float64   `json:"amount" gorm:"type:decimal(15,2);default:0"`
	SourceWarehouse        string    `json:"source_warehouse" gorm:"size:64"`
	IncludeInManufacturing bool      `json:"include_in_manufacturing" gorm:"not null"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (BOMItem) TableName() string {
	return "mfg_bom_items"
}

// BOMOperation BOM工序，按Sequence升序执行
type BOMOperation struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	BOMID         string    `json:"bom_id" gorm:"size:36;not null;uniqueIndex:idx_bom_op_seq"`
	Sequence      int       `json:"sequence" gorm:"not null;uniqueIndex:idx_bom_op_seq"`
	Operation     string    `json:"operation" gorm:"size:128;not null"`
	WorkstationID string    `json:"workstation_id" gorm:"size:36"`
	TimeInMins    float64   `json:"time_in_mins" gorm:"type:decimal(10,2);default:0"`
	OperatingCost float64   `json:"operating_cost" gorm:"type:decimal(15,2);default:0"`
	Description   string    `json:"description" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (BOMOperation) TableName() string {
	return "mfg_bom_operations"
}
