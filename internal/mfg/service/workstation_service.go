package service

import (
	"context"
	"strings"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkstationService 工作站登记
type WorkstationService struct {
	*core
}

type WorkstationInput struct {
	Name               string   `json:"name"`
	NameAr             string   `json:"name_ar"`
	WorkstationType    string   `json:"workstation_type"`
	HourRate           float64  `json:"hour_rate"`
	ElectricityCost    float64  `json:"electricity_cost"`
	ConsumableCost     float64  `json:"consumable_cost"`
	RentCost           float64  `json:"rent_cost"`
	ProductionCapacity float64  `json:"production_capacity"`
	WorkingHoursPerDay *float64 `json:"working_hours_per_day"`
	Description        string   `json:"description"`
	Status             string   `json:"status"`
	Version            int      `json:"version"`
}

func (in *WorkstationInput) validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(in.Name) == "" {
		verr.add("name", "is required")
	}
	if strings.TrimSpace(in.WorkstationType) == "" {
		verr.add("workstation_type", "is required")
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"hour_rate", in.HourRate},
		{"electricity_cost", in.ElectricityCost},
		{"consumable_cost", in.ConsumableCost},
		{"rent_cost", in.RentCost},
		{"production_capacity", in.ProductionCapacity},
	} {
		if f.value < 0 {
			verr.add(f.name, "must be >= 0")
		}
	}
	if in.WorkingHoursPerDay != nil && (*in.WorkingHoursPerDay <= 0 || *in.WorkingHoursPerDay > 24) {
		verr.add("working_hours_per_day", "must be in (0, 24]")
	}
	if in.Status != "" && in.Status != entity.WorkstationStatusActive && in.Status != entity.WorkstationStatusInactive {
		verr.add("status", "must be active or inactive")
	}
	return verr.err()
}

func (in *WorkstationInput) apply(ws *entity.Workstation) {
	ws.Name = strings.TrimSpace(in.Name)
	ws.NameAr = strings.TrimSpace(in.NameAr)
	ws.WorkstationType = strings.TrimSpace(in.WorkstationType)
	ws.HourRate = in.HourRate
	ws.ElectricityCost = in.ElectricityCost
	ws.ConsumableCost = in.ConsumableCost
	ws.RentCost = in.RentCost
	ws.ProductionCapacity = in.ProductionCapacity
	ws.WorkingHoursPerDay = 8
	if in.WorkingHoursPerDay != nil {
		ws.WorkingHoursPerDay = *in.WorkingHoursPerDay
	}
	ws.Description = in.Description
	ws.Status = entity.WorkstationStatusActive
	if in.Status != "" {
		ws.Status = in.Status
	}
}

func (s *WorkstationService) Create(ctx context.Context, in *WorkstationInput, userID string) (*entity.Workstation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ws := &entity.Workstation{
		ID:        uuid.New().String(),
		Version:   1,
		CreatedBy: userID,
	}
	in.apply(ws)
	if err := s.repos.Workstation.Create(ctx, ws); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("workstation created", zap.String("workstation_id", ws.ID), zap.String("name", ws.Name))
	applyWorkstationProjections(ws)
	return ws, nil
}

// Update 更新工作站。费率变化不回写已有BOM的工序成本，下次保存BOM时重算。
func (s *WorkstationService) Update(ctx context.Context, id string, in *WorkstationInput) (*entity.Workstation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ws, err := s.repos.Workstation.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr(err, "workstation", id)
	}
	if err := checkVersion("workstation", id, in.Version, ws.Version); err != nil {
		return nil, err
	}
	in.apply(ws)
	if err := s.repos.Workstation.Update(ctx, ws); err != nil {
		return nil, wrapRepoErr(err, "workstation", id)
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("workstation updated", zap.String("workstation_id", id), zap.Int("version", ws.Version))
	applyWorkstationProjections(ws)
	return ws, nil
}

func (s *WorkstationService) Get(ctx context.Context, id string) (*entity.Workstation, error) {
	ws, err := s.repos.Workstation.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr(err, "workstation", id)
	}
	applyWorkstationProjections(ws)
	return ws, nil
}

func (s *WorkstationService) List(ctx context.Context, params repository.WorkstationListParams) ([]entity.Workstation, int64, error) {
	list, total, err := s.repos.Workstation.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	for i := range list {
		applyWorkstationProjections(&list[i])
	}
	return list, total, nil
}
