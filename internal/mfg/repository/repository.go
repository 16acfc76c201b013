package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 错误定义
var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("version conflict")
)

// Repositories 生产模块仓库集合
type Repositories struct {
	Item         *ItemRepository
	Workstation  *WorkstationRepository
	BOM          *BOMRepository
	WorkOrder    *WorkOrderRepository
	JobCard      *JobCardRepository
	NamingSeries *NamingSeriesRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Item:         NewItemRepository(db),
		Workstation:  NewWorkstationRepository(db),
		BOM:          NewBOMRepository(db),
		WorkOrder:    NewWorkOrderRepository(db),
		JobCard:      NewJobCardRepository(db),
		NamingSeries: NewNamingSeriesRepository(db),
	}
}

// ListParams 分页参数
type ListParams struct {
	Page int
	Size int
}

func (p ListParams) normalize() (offset, limit int) {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Size <= 0 {
		p.Size = 20
	}
	if p.Size > 100 {
		p.Size = 100
	}
	return (p.Page - 1) * p.Size, p.Size
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// saveVersioned 乐观锁更新: 仅当库中version与内存一致时写入，并将version加一。
// 关联表不随主表写入。
func saveVersioned(db *gorm.DB, model interface{}, version *int) error {
	expected := *version
	*version = expected + 1
	res := db.Model(model).
		Where("version = ?", expected).
		Select("*").
		Omit(clause.Associations, "created_at").
		Updates(model)
	if res.Error != nil {
		*version = expected
		return res.Error
	}
	if res.RowsAffected == 0 {
		*version = expected
		return ErrVersionConflict
	}
	return nil
}
