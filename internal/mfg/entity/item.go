package entity

import "time"

// Item 物料主数据（生产模块只读引用）
type Item struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	ItemCode      string    `json:"item_code" gorm:"size:64;not null;uniqueIndex"`
	Name          string    `json:"name" gorm:"size:128"`
	NameAr        string    `json:"name_ar" gorm:"size:128"`
	StockUOM      string    `json:"stock_uom" gorm:"size:20;not null;default:Nos"`
	ValuationRate float64   `json:"valuation_rate" gorm:"type:decimal(15,4);default:0"`
	IsStockItem   bool      `json:"is_stock_item" gorm:"not null"`
	CreatedBy     string    `json:"created_by" gorm:"size:64"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Item) TableName() string {
	return "mfg_items"
}

// DisplayName 按语言优先级选择显示名称:
//
//	ar: name_ar, name, item_code
//	其他: name, name_ar, item_code
func (i *Item) DisplayName(lang string) string {
	if lang == "ar" {
		return firstNonEmpty(i.NameAr, i.Name, i.ItemCode)
	}
	return firstNonEmpty(i.Name, i.NameAr, i.ItemCode)
}

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
