package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"gorm.io/gorm"
)

// expandSeries 展开命名规则中的日期占位符，如 MFG-WO-.YYYY.- => MFG-WO-2026-
func expandSeries(template string, now time.Time) string {
	r := strings.NewReplacer(
		".YYYY.", now.Format("2006"),
		".YY.", now.Format("06"),
		".MM.", now.Format("01"),
		".DD.", now.Format("02"),
	)
	return r.Replace(template)
}

func nextNumber(ctx context.Context, tx *gorm.DB, series *repository.NamingSeriesRepository, template string, now time.Time) (string, error) {
	prefix := expandSeries(template, now)
	n, err := series.WithTx(tx).Next(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%05d", prefix, n), nil
}
