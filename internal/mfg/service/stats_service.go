package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/redis/go-redis/v9"
)

const statsCacheKey = "mfg:stats"

// ManufacturingStats 生产统计
type ManufacturingStats struct {
	TotalWorkOrders        int64     `json:"total_work_orders"`
	ActiveWorkOrders       int64     `json:"active_work_orders"`
	InProgressWorkOrders   int64     `json:"in_progress_work_orders"`
	CompletedWorkOrders    int64     `json:"completed_work_orders"`
	TotalJobCards          int64     `json:"total_job_cards"`
	OpenJobCards           int64     `json:"open_job_cards"`
	InProgressJobCards     int64     `json:"in_progress_job_cards"`
	CompletedJobCardsToday int64     `json:"completed_job_cards_today"`
	ProductionEfficiency   *float64  `json:"production_efficiency"`
	ActiveBOMs             int64     `json:"active_boms"`
	ActiveWorkstations     int64     `json:"active_workstations"`
	GeneratedAt            time.Time `json:"generated_at"`
}

// StatsCache 统计缓存，client为nil时所有操作为空操作
type StatsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStatsCache(rdb *redis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatsCache{rdb: rdb, ttl: ttl}
}

func (c *StatsCache) Get(ctx context.Context) (*ManufacturingStats, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var stats ManufacturingStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, false
	}
	return &stats, true
}

func (c *StatsCache) Set(ctx context.Context, stats *ManufacturingStats) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, statsCacheKey, raw, c.ttl).Err()
}

// Invalidate 写操作后清除缓存，失败不影响主流程
func (c *StatsCache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, statsCacheKey).Err()
}

// StatsService 生产统计
type StatsService struct {
	*core
}

// Get 优先读缓存，未命中时实时计算并回填
func (s *StatsService) Get(ctx context.Context) (*ManufacturingStats, error) {
	if stats, ok := s.cache.Get(ctx); ok {
		return stats, nil
	}
	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, stats)
	return stats, nil
}

func (s *StatsService) compute(ctx context.Context) (*ManufacturingStats, error) {
	now := s.now()
	stats := &ManufacturingStats{GeneratedAt: now}

	woCounts, err := s.repos.WorkOrder.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	for status, n := range woCounts {
		stats.TotalWorkOrders += n
		switch status {
		case entity.WOStatusSubmitted, entity.WOStatusNotStarted, entity.WOStatusStopped:
			stats.ActiveWorkOrders += n
		case entity.WOStatusInProgress:
			stats.ActiveWorkOrders += n
			stats.InProgressWorkOrders += n
		case entity.WOStatusCompleted:
			stats.CompletedWorkOrders += n
		}
	}

	jcCounts, err := s.repos.JobCard.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range jcCounts {
		stats.TotalJobCards += n
	}
	stats.OpenJobCards = jcCounts[entity.JCStatusOpen]
	stats.InProgressJobCards = jcCounts[entity.JCStatusWorkInProgress]

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if stats.CompletedJobCardsToday, err = s.repos.JobCard.CountCompletedSince(ctx, midnight); err != nil {
		return nil, err
	}

	cards, err := s.repos.JobCard.ListCompletedWithLogs(ctx)
	if err != nil {
		return nil, err
	}
	var planned, logged float64
	var measured bool
	for i := range cards {
		if len(cards[i].TimeLogs) == 0 {
			continue
		}
		measured = true
		planned += cards[i].TimeInMins
		for j := range cards[i].TimeLogs {
			logged += float64(logMinutes(&cards[i].TimeLogs[j]))
		}
	}
	if measured {
		eff := percent(guardDiv(planned, logged))
		stats.ProductionEfficiency = &eff
	}

	if stats.ActiveBOMs, err = s.repos.BOM.CountActive(ctx); err != nil {
		return nil, err
	}
	if stats.ActiveWorkstations, err = s.repos.Workstation.CountByStatus(ctx, entity.WorkstationStatusActive); err != nil {
		return nil, err
	}
	return stats, nil
}
