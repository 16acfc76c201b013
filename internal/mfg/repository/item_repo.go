package repository

import (
	"context"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) WithTx(tx *gorm.DB) *ItemRepository {
	return &ItemRepository{db: tx}
}

func (r *ItemRepository) Create(ctx context.Context, item *entity.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *ItemRepository) FindByID(ctx context.Context, id string) (*entity.Item, error) {
	var item entity.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// LockByID 在事务内对物料行加写锁（SQLite下忽略锁子句）
func (r *ItemRepository) LockByID(ctx context.Context, id string) (*entity.Item, error) {
	var item entity.Item
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// FindByIDs 批量查询，返回以ID为key的map
func (r *ItemRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*entity.Item, error) {
	result := make(map[string]*entity.Item, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var items []entity.Item
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for i := range items {
		result[items[i].ID] = &items[i]
	}
	return result, nil
}

// ExistsByCode 物料编码是否已存在
func (r *ItemRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Item{}).Where("item_code = ?", code).Count(&count).Error
	return count > 0, err
}

type ItemListParams struct {
	ListParams
	Keyword string
}

func (r *ItemRepository) List(ctx context.Context, params ItemListParams) ([]entity.Item, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Item{})
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("item_code LIKE ? OR name LIKE ? OR name_ar LIKE ?", kw, kw, kw)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := params.normalize()
	var items []entity.Item
	err := query.Order("item_code ASC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}
