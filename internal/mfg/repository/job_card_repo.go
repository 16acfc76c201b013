package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"gorm.io/gorm"
)

type JobCardRepository struct {
	db *gorm.DB
}

func NewJobCardRepository(db *gorm.DB) *JobCardRepository {
	return &JobCardRepository{db: db}
}

func (r *JobCardRepository) WithTx(tx *gorm.DB) *JobCardRepository {
	return &JobCardRepository{db: tx}
}

func (r *JobCardRepository) Create(ctx context.Context, jc *entity.JobCard) error {
	return r.db.WithContext(ctx).Create(jc).Error
}

func (r *JobCardRepository) FindByID(ctx context.Context, id string) (*entity.JobCard, error) {
	var jc entity.JobCard
	err := r.db.WithContext(ctx).
		Preload("TimeLogs", func(db *gorm.DB) *gorm.DB { return db.Order("from_time ASC") }).
		First(&jc, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &jc, nil
}

// Update 乐观锁更新作业卡
func (r *JobCardRepository) Update(ctx context.Context, jc *entity.JobCard) error {
	return saveVersioned(r.db.WithContext(ctx), jc, &jc.Version)
}

func (r *JobCardRepository) CreateTimeLog(ctx context.Context, log *entity.JobCardTimeLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// ListByWorkOrder 工单下所有作业卡（含工时记录）
func (r *JobCardRepository) ListByWorkOrder(ctx context.Context, workOrderID string) ([]entity.JobCard, error) {
	var cards []entity.JobCard
	err := r.db.WithContext(ctx).
		Preload("TimeLogs", func(db *gorm.DB) *gorm.DB { return db.Order("from_time ASC") }).
		Where("work_order_id = ?", workOrderID).
		Order("sequence ASC, created_at ASC").
		Find(&cards).Error
	return cards, err
}

type JobCardListParams struct {
	ListParams
	Status      string
	WorkOrderID string
	Keyword     string
}

func (r *JobCardRepository) List(ctx context.Context, params JobCardListParams) ([]entity.JobCard, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.JobCard{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.WorkOrderID != "" {
		query = query.Where("work_order_id = ?", params.WorkOrderID)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("job_card_number LIKE ? OR operation LIKE ? OR work_order_number LIKE ?", kw, kw, kw)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := params.normalize()
	var cards []entity.JobCard
	err := query.Preload("TimeLogs").Order("created_at DESC").Offset(offset).Limit(limit).Find(&cards).Error
	return cards, total, err
}

// CountByStatus 按状态统计作业卡
func (r *JobCardRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&entity.JobCard{}).
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

// CountCompletedSince 指定时间后完成的作业卡数量
func (r *JobCardRepository) CountCompletedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.JobCard{}).
		Where("status = ? AND completed_time >= ?", entity.JCStatusCompleted, since).
		Count(&count).Error
	return count, err
}

// ListCompletedWithLogs 已完成作业卡（用于效率统计）
func (r *JobCardRepository) ListCompletedWithLogs(ctx context.Context) ([]entity.JobCard, error) {
	var cards []entity.JobCard
	err := r.db.WithContext(ctx).
		Preload("TimeLogs").
		Where("status = ?", entity.JCStatusCompleted).
		Find(&cards).Error
	return cards, err
}
