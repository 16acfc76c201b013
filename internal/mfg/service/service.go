package service

import (
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/config"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Settings 生产设置，由配置注入
type Settings struct {
	BOMNamingSeries               string
	WorkOrderNamingSeries         string
	JobCardNamingSeries           string
	DefaultWIPWarehouse           string
	DefaultFinishedGoodsWarehouse string
	Currency                      string
	DisplayLanguage               string
	Overproduction                OverproductionPolicy
	StatsCacheTTL                 time.Duration
}

// SettingsFromConfig 从配置构建生产设置
func SettingsFromConfig(cfg config.ManufacturingConfig) Settings {
	return Settings{
		BOMNamingSeries:               cfg.BOMNamingSeries,
		WorkOrderNamingSeries:         cfg.WorkOrderNamingSeries,
		JobCardNamingSeries:           cfg.JobCardNamingSeries,
		DefaultWIPWarehouse:           cfg.DefaultWIPWarehouse,
		DefaultFinishedGoodsWarehouse: cfg.DefaultFinishedGoodsWarehouse,
		Currency:                      cfg.Currency,
		DisplayLanguage:               cfg.DisplayLanguage,
		Overproduction: OverproductionPolicy{
			Allow:      cfg.AllowOverproduction,
			Percentage: cfg.OverproductionPercentage,
		},
		StatsCacheTTL: cfg.StatsCacheTTL,
	}
}

// DefaultSettings 测试及未配置时使用的默认设置
func DefaultSettings() Settings {
	return Settings{
		BOMNamingSeries:               "BOM-.YYYY.-",
		WorkOrderNamingSeries:         "MFG-WO-.YYYY.-",
		JobCardNamingSeries:           "MFG-JC-.YYYY.-",
		DefaultWIPWarehouse:           "Work In Progress",
		DefaultFinishedGoodsWarehouse: "Finished Goods",
		Currency:                      "SAR",
		DisplayLanguage:               "ar",
		StatsCacheTTL:                 30 * time.Second,
	}
}

// core 各服务共享的依赖
type core struct {
	db       *gorm.DB
	repos    *repository.Repositories
	settings Settings
	cache    *StatsCache
	logger   *zap.Logger
	clock    *clock
}

type clock struct {
	now func() time.Time
}

func (c *core) now() time.Time {
	return c.clock.now()
}

// Services 生产模块服务集合
type Services struct {
	Item        *ItemService
	Workstation *WorkstationService
	BOM         *BOMService
	WorkOrder   *WorkOrderService
	JobCard     *JobCardService
	Stats       *StatsService

	clock *clock
}

// NewServices 创建服务集合，rdb为nil时统计不走缓存
func NewServices(db *gorm.DB, repos *repository.Repositories, rdb *redis.Client, settings Settings, logger *zap.Logger) *Services {
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := &clock{now: time.Now}
	c := &core{
		db:       db,
		repos:    repos,
		settings: settings,
		cache:    NewStatsCache(rdb, settings.StatsCacheTTL),
		logger:   logger,
		clock:    clk,
	}
	return &Services{
		Item:        &ItemService{core: c},
		Workstation: &WorkstationService{core: c},
		BOM:         &BOMService{core: c},
		WorkOrder:   &WorkOrderService{core: c},
		JobCard:     &JobCardService{core: c},
		Stats:       &StatsService{core: c},
		clock:       clk,
	}
}

// SetClock 替换时间源（测试用）
func (s *Services) SetClock(now func() time.Time) {
	s.clock.now = now
}
