package repository

import (
	"context"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"gorm.io/gorm"
)

type BOMRepository struct {
	db *gorm.DB
}

func NewBOMRepository(db *gorm.DB) *BOMRepository {
	return &BOMRepository{db: db}
}

func (r *BOMRepository) WithTx(tx *gorm.DB) *BOMRepository {
	return &BOMRepository{db: tx}
}

// Create 创建BOM及其行项、工序
func (r *BOMRepository) Create(ctx context.Context, bom *entity.BOM) error {
	return r.db.WithContext(ctx).Create(bom).Error
}

// FindByID 行项按行号、工序按序号排序
func (r *BOMRepository) FindByID(ctx context.Context, id string) (*entity.BOM, error) {
	var bom entity.BOM
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Preload("Operations", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		First(&bom, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &bom, nil
}

// FindByIDs 批量查询BOM（含行项与工序）
func (r *BOMRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*entity.BOM, error) {
	result := make(map[string]*entity.BOM, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var boms []entity.BOM
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Preload("Operations", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Where("id IN ?", ids).
		Find(&boms).Error
	if err != nil {
		return nil, err
	}
	for i := range boms {
		result[boms[i].ID] = &boms[i]
	}
	return result, nil
}

// FindDefaultByItem 物料的默认BOM
func (r *BOMRepository) FindDefaultByItem(ctx context.Context, itemID string) (*entity.BOM, error) {
	var bom entity.BOM
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND is_default = ? AND is_active = ?", itemID, true, true).
		First(&bom).Error
	if err != nil {
		return nil, translate(err)
	}
	return r.FindByID(ctx, bom.ID)
}

// Update 乐观锁更新BOM头
func (r *BOMRepository) Update(ctx context.Context, bom *entity.BOM) error {
	return saveVersioned(r.db.WithContext(ctx), bom, &bom.Version)
}

// ReplaceLines 用新的行项和工序整体替换
func (r *BOMRepository) ReplaceLines(ctx context.Context, bomID string, items []entity.BOMItem, ops []entity.BOMOperation) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("bom_id = ?", bomID).Delete(&entity.BOMItem{}).Error; err != nil {
		return err
	}
	if err := db.Where("bom_id = ?", bomID).Delete(&entity.BOMOperation{}).Error; err != nil {
		return err
	}
	if len(items) > 0 {
		if err := db.Create(&items).Error; err != nil {
			return err
		}
	}
	if len(ops) > 0 {
		if err := db.Create(&ops).Error; err != nil {
			return err
		}
	}
	return nil
}

// ClearDefault 清除同一物料下除exceptID外所有BOM的默认标记
func (r *BOMRepository) ClearDefault(ctx context.Context, itemID, exceptID string) error {
	return r.db.WithContext(ctx).Model(&entity.BOM{}).
		Where("item_id = ? AND id <> ? AND is_default = ?", itemID, exceptID, true).
		Updates(map[string]interface{}{
			"is_default": false,
			"version":    gorm.Expr("version + 1"),
		}).Error
}

// CountDefaults 物料下默认BOM数量
func (r *BOMRepository) CountDefaults(ctx context.Context, itemID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.BOM{}).
		Where("item_id = ? AND is_default = ?", itemID, true).Count(&count).Error
	return count, err
}

type BOMListParams struct {
	ListParams
	ItemID   string
	IsActive *bool
	Keyword  string
}

func (r *BOMRepository) List(ctx context.Context, params BOMListParams) ([]entity.BOM, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.BOM{})
	if params.ItemID != "" {
		query = query.Where("item_id = ?", params.ItemID)
	}
	if params.IsActive != nil {
		query = query.Where("is_active = ?", *params.IsActive)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("bom_number LIKE ? OR item_code LIKE ? OR item_name LIKE ?", kw, kw, kw)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := params.normalize()
	var boms []entity.BOM
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&boms).Error
	return boms, total, err
}

func (r *BOMRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.BOM{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}
