package repository

import (
	"context"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"gorm.io/gorm"
)

type WorkstationRepository struct {
	db *gorm.DB
}

func NewWorkstationRepository(db *gorm.DB) *WorkstationRepository {
	return &WorkstationRepository{db: db}
}

func (r *WorkstationRepository) WithTx(tx *gorm.DB) *WorkstationRepository {
	return &WorkstationRepository{db: tx}
}

func (r *WorkstationRepository) Create(ctx context.Context, ws *entity.Workstation) error {
	return r.db.WithContext(ctx).Create(ws).Error
}

func (r *WorkstationRepository) FindByID(ctx context.Context, id string) (*entity.Workstation, error) {
	var ws entity.Workstation
	if err := r.db.WithContext(ctx).First(&ws, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &ws, nil
}

// FindByIDs 批量查询工作站（快照读）
func (r *WorkstationRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*entity.Workstation, error) {
	result := make(map[string]*entity.Workstation, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var list []entity.Workstation
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for i := range list {
		result[list[i].ID] = &list[i]
	}
	return result, nil
}

// Update 乐观锁更新
func (r *WorkstationRepository) Update(ctx context.Context, ws *entity.Workstation) error {
	return saveVersioned(r.db.WithContext(ctx), ws, &ws.Version)
}

type WorkstationListParams struct {
	ListParams
	Status  string
	Keyword string
}

func (r *WorkstationRepository) List(ctx context.Context, params WorkstationListParams) ([]entity.Workstation, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Workstation{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("name LIKE ? OR name_ar LIKE ?", kw, kw)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := params.normalize()
	var list []entity.Workstation
	err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}

func (r *WorkstationRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Workstation{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
