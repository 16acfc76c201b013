package repository

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NamingSeriesRepository struct {
	db *gorm.DB
}

func NewNamingSeriesRepository(db *gorm.DB) *NamingSeriesRepository {
	return &NamingSeriesRepository{db: db}
}

func (r *NamingSeriesRepository) WithTx(tx *gorm.DB) *NamingSeriesRepository {
	return &NamingSeriesRepository{db: tx}
}

// Next 递增并返回前缀的下一个序号。应在创建单据的同一事务内调用。
func (r *NamingSeriesRepository) Next(ctx context.Context, prefix string) (int, error) {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.NamingSeries{Prefix: prefix}).Error; err != nil {
		return 0, fmt.Errorf("init sequence %q: %w", prefix, err)
	}
	if err := db.Model(&entity.NamingSeries{}).Where("prefix = ?", prefix).
		Update("last_no", gorm.Expr("last_no + 1")).Error; err != nil {
		return 0, fmt.Errorf("advance sequence %q: %w", prefix, err)
	}
	var row entity.NamingSeries
	if err := db.First(&row, "prefix = ?", prefix).Error; err != nil {
		return 0, fmt.Errorf("read sequence %q: %w", prefix, err)
	}
	return row.LastNo, nil
}
