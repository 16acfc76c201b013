package repository

import (
	"context"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"gorm.io/gorm"
)

type WorkOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

func (r *WorkOrderRepository) WithTx(tx *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: tx}
}

// Create 创建工单及物料需求、工序
func (r *WorkOrderRepository) Create(ctx context.Context, wo *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Create(wo).Error
}

func (r *WorkOrderRepository) FindByID(ctx context.Context, id string) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := r.db.WithContext(ctx).
		Preload("RequiredItems", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Preload("Operations", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		First(&wo, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &wo, nil
}

// Update 乐观锁更新工单头
func (r *WorkOrderRepository) Update(ctx context.Context, wo *entity.WorkOrder) error {
	return saveVersioned(r.db.WithContext(ctx), wo, &wo.Version)
}

// Delete 软删除
func (r *WorkOrderRepository) Delete(ctx context.Context, wo *entity.WorkOrder) error {
	res := r.db.WithContext(ctx).Where("version = ?", wo.Version).Delete(wo)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *WorkOrderRepository) UpdateItem(ctx context.Context, item *entity.WorkOrderItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *WorkOrderRepository) UpdateOperation(ctx context.Context, op *entity.WorkOrderOperation) error {
	return r.db.WithContext(ctx).Save(op).Error
}

func (r *WorkOrderRepository) FindOperation(ctx context.Context, id string) (*entity.WorkOrderOperation, error) {
	var op entity.WorkOrderOperation
	if err := r.db.WithContext(ctx).First(&op, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &op, nil
}

// CountOpenByBOM 引用该BOM且未完结的工单数量
func (r *WorkOrderRepository) CountOpenByBOM(ctx context.Context, bomID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.WorkOrder{}).
		Where("bom_id = ? AND status NOT IN ?", bomID,
			[]string{entity.WOStatusCompleted, entity.WOStatusCancelled}).
		Count(&count).Error
	return count, err
}

// CountByBOM 引用该BOM的工单数量，含已完结
func (r *WorkOrderRepository) CountByBOM(ctx context.Context, bomID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.WorkOrder{}).
		Where("bom_id = ?", bomID).
		Count(&count).Error
	return count, err
}

type WOListParams struct {
	ListParams
	Status  string
	ItemID  string
	BOMID   string
	Keyword string
}

func (r *WorkOrderRepository) List(ctx context.Context, params WOListParams) ([]entity.WorkOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.WorkOrder{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.ItemID != "" {
		query = query.Where("item_id = ?", params.ItemID)
	}
	if params.BOMID != "" {
		query = query.Where("bom_id = ?", params.BOMID)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("work_order_number LIKE ? OR item_code LIKE ? OR item_name LIKE ?", kw, kw, kw)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := params.normalize()
	var wos []entity.WorkOrder
	err := query.
		Preload("RequiredItems", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Preload("Operations", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&wos).Error
	return wos, total, err
}

// CountByStatus 按状态统计工单
func (r *WorkOrderRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&entity.WorkOrder{}).
		Select("status, COUNT(*) AS total").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.Status] = row.Total
	}
	return result, nil
}
