package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有生产表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 基础数据
		&Item{},
		&Workstation{},
		&NamingSeries{},

		// BOM
		&BOM{},
		&BOMItem{},
		&BOMOperation{},

		// 工单
		&WorkOrder{},
		&WorkOrderItem{},
		&WorkOrderOperation{},

		// 作业卡
		&JobCard{},
		&JobCardTimeLog{},
	)
}
