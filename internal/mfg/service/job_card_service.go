package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// JobCardService 作业卡引擎
type JobCardService struct {
	*core
}

type CreateJobCardInput struct {
	WorkOrderID string   `json:"work_order_id"`
	Sequence    int      `json:"sequence"`
	ForQuantity *float64 `json:"for_quantity"`
	Employee    string   `json:"employee"`
	Remarks     string   `json:"remarks"`
}

type TimeLogInput struct {
	FromTime     time.Time `json:"from_time"`
	ToTime       time.Time `json:"to_time"`
	CompletedQty float64   `json:"completed_qty"`
	Remarks      string    `json:"remarks"`
	Version      int       `json:"version"`
}

type CompleteJobCardInput struct {
	CompletedQty *float64 `json:"completed_qty"`
	Version      int      `json:"version"`
}

type jobCardDraft struct {
	ForQuantity float64
	Employee    string
	Remarks     string
	CreatedBy   string
}

// spawnJobCard 在事务内为工单工序生成作业卡，计划工时按数量折算
func (c *core) spawnJobCard(ctx context.Context, tx *gorm.DB, wo *entity.WorkOrder, op *entity.WorkOrderOperation, bom *entity.BOM, status string, in jobCardDraft) (*entity.JobCard, error) {
	var planned float64
	for _, bop := range bom.Operations {
		if bop.ID == op.BOMOperationID {
			planned = money(dec(requiredQty(bop.TimeInMins, in.ForQuantity, bom.Quantity)))
			break
		}
	}
	number, err := nextNumber(ctx, tx, c.repos.NamingSeries, c.settings.JobCardNamingSeries, c.now())
	if err != nil {
		return nil, err
	}
	jc := &entity.JobCard{
		ID:                   uuid.New().String(),
		JobCardNumber:        number,
		WorkOrderID:          wo.ID,
		WorkOrderNumber:      wo.WorkOrderNumber,
		WorkOrderOperationID: op.ID,
		Sequence:             op.Sequence,
		Operation:            op.Operation,
		WorkstationID:        op.WorkstationID,
		ItemID:               wo.ItemID,
		ItemName:             wo.ItemName,
		ForQuantity:          in.ForQuantity,
		TimeInMins:           planned,
		Status:               status,
		Employee:             in.Employee,
		Remarks:              in.Remarks,
		Version:              1,
		CreatedBy:            in.CreatedBy,
	}
	if err := c.repos.JobCard.WithTx(tx).Create(ctx, jc); err != nil {
		return nil, err
	}
	c.logger.Info("job card created",
		zap.String("job_card_id", jc.ID),
		zap.String("job_card_number", jc.JobCardNumber),
		zap.String("work_order_id", wo.ID),
		zap.Int("sequence", op.Sequence),
		zap.String("status", status))
	return jc, nil
}

// Create 手工创建作业卡。工单未开工时为草稿，已开工或暂停时直接打开。
func (s *JobCardService) Create(ctx context.Context, in *CreateJobCardInput, userID string) (*entity.JobCard, error) {
	verr := &ValidationError{}
	if strings.TrimSpace(in.WorkOrderID) == "" {
		verr.add("work_order_id", "is required")
	}
	if in.Sequence <= 0 {
		verr.add("sequence", "must be greater than 0")
	}
	if in.ForQuantity != nil && *in.ForQuantity <= 0 {
		verr.add("for_quantity", "must be greater than 0")
	}
	if err := verr.err(); err != nil {
		return nil, err
	}

	var result *entity.JobCard
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wo, err := s.repos.WorkOrder.WithTx(tx).FindByID(ctx, in.WorkOrderID)
		if err != nil {
			return wrapRepoErr(err, "work_order", in.WorkOrderID)
		}
		if wo.IsTerminal() {
			return &InvalidTransitionError{Entity: "work_order", ID: wo.ID, From: wo.Status, Action: "create_job_card"}
		}
		var op *entity.WorkOrderOperation
		for i := range wo.Operations {
			if wo.Operations[i].Sequence == in.Sequence {
				op = &wo.Operations[i]
				break
			}
		}
		if op == nil {
			verr.add("sequence", "work order has no operation with sequence %d", in.Sequence)
		}
		forQty := wo.Qty
		if in.ForQuantity != nil {
			forQty = *in.ForQuantity
		}
		if !s.settings.Overproduction.Permits(forQty, wo.Qty) {
			verr.add("for_quantity", "exceeds work order quantity %v", wo.Qty)
		}
		if err := verr.err(); err != nil {
			return err
		}

		status := entity.JCStatusDraft
		if wo.Status == entity.WOStatusInProgress || wo.Status == entity.WOStatusStopped {
			status = entity.JCStatusOpen
		}
		bom, err := s.repos.BOM.WithTx(tx).FindByID(ctx, wo.BOMID)
		if err != nil {
			return wrapRepoErr(err, "bom", wo.BOMID)
		}
		result, err = s.spawnJobCard(ctx, tx, wo, op, bom, status, jobCardDraft{
			ForQuantity: forQty,
			Employee:    in.Employee,
			Remarks:     in.Remarks,
			CreatedBy:   userID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	return s.project(ctx, result)
}

type jcHook func(tx *gorm.DB, jc *entity.JobCard) error

// checkParentOpen 工单已完结时作业卡不可再推进
func (s *JobCardService) checkParentOpen(ctx context.Context, tx *gorm.DB, jc *entity.JobCard, action string) error {
	wo, err := s.repos.WorkOrder.WithTx(tx).FindByID(ctx, jc.WorkOrderID)
	if err != nil {
		return wrapRepoErr(err, "work_order", jc.WorkOrderID)
	}
	if wo.IsTerminal() {
		return &InvalidTransitionError{Entity: "work_order", ID: wo.ID, From: wo.Status, Action: "job_card_" + action}
	}
	return nil
}

func (s *JobCardService) transition(ctx context.Context, id, action string, version int, before, after jcHook) (*entity.JobCard, error) {
	var (
		result *entity.JobCard
		from   string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repos.JobCard.WithTx(tx)
		jc, err := repo.FindByID(ctx, id)
		if err != nil {
			return wrapRepoErr(err, "job_card", id)
		}
		if err := checkVersion("job_card", id, version, jc.Version); err != nil {
			return err
		}
		next, ok := NextJobCardStatus(jc.Status, action)
		if !ok {
			return &InvalidTransitionError{Entity: "job_card", ID: id, From: jc.Status, Action: action}
		}
		if action != ActionCancel {
			if err := s.checkParentOpen(ctx, tx, jc, action); err != nil {
				return err
			}
		}
		from = jc.Status
		if before != nil {
			if err := before(tx, jc); err != nil {
				return err
			}
		}
		jc.Status = next
		if err := repo.Update(ctx, jc); err != nil {
			return wrapRepoErr(err, "job_card", id)
		}
		if after != nil {
			if err := after(tx, jc); err != nil {
				return err
			}
		}
		result = jc
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("job card "+action,
		zap.String("job_card_id", id),
		zap.String("from", from),
		zap.String("to", result.Status),
		zap.Int("version", result.Version))
	return s.project(ctx, result)
}

// Open 草稿 => 待开工
func (s *JobCardService) Open(ctx context.Context, id string, version int) (*entity.JobCard, error) {
	return s.transition(ctx, id, ActionOpen, version, nil, nil)
}

// Start 开工计时，工单工序进入进行中
func (s *JobCardService) Start(ctx context.Context, id string, version int) (*entity.JobCard, error) {
	before := func(_ *gorm.DB, jc *entity.JobCard) error {
		now := s.now()
		jc.StartedTime = &now
		return nil
	}
	after := func(tx *gorm.DB, jc *entity.JobCard) error {
		woRepo := s.repos.WorkOrder.WithTx(tx)
		op, err := woRepo.FindOperation(ctx, jc.WorkOrderOperationID)
		if err != nil {
			return wrapRepoErr(err, "work_order_operation", jc.WorkOrderOperationID)
		}
		if op.Status != entity.OpStatusPending {
			return nil
		}
		op.Status = entity.OpStatusInProgress
		return woRepo.UpdateOperation(ctx, op)
	}
	return s.transition(ctx, id, ActionStart, version, before, after)
}

// AddTimeLog 追加工时记录，仅限进行中
func (s *JobCardService) AddTimeLog(ctx context.Context, id string, in *TimeLogInput) (*entity.JobCard, error) {
	var result *entity.JobCard
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repos.JobCard.WithTx(tx)
		jc, err := repo.FindByID(ctx, id)
		if err != nil {
			return wrapRepoErr(err, "job_card", id)
		}
		if err := checkVersion("job_card", id, in.Version, jc.Version); err != nil {
			return err
		}
		if jc.Status != entity.JCStatusWorkInProgress {
			return &InvalidTransitionError{Entity: "job_card", ID: id, From: jc.Status, Action: "add_time_log"}
		}
		if err := s.checkParentOpen(ctx, tx, jc, "add_time_log"); err != nil {
			return err
		}

		verr := &ValidationError{}
		if in.FromTime.IsZero() {
			verr.add("from_time", "is required")
		}
		if in.ToTime.IsZero() {
			verr.add("to_time", "is required")
		}
		if !in.FromTime.IsZero() && !in.ToTime.IsZero() && !in.ToTime.After(in.FromTime) {
			verr.add("to_time", "must be after from_time")
		}
		if in.CompletedQty < 0 {
			verr.add("completed_qty", "must be >= 0")
		} else {
			logged := in.CompletedQty
			for _, l := range jc.TimeLogs {
				logged += l.CompletedQty
			}
			if !s.settings.Overproduction.Permits(logged, jc.ForQuantity) {
				verr.add("completed_qty", "logged quantity %v exceeds for_quantity %v", logged, jc.ForQuantity)
			}
		}
		if err := verr.err(); err != nil {
			return err
		}

		log := &entity.JobCardTimeLog{
			ID:           uuid.New().String(),
			JobCardID:    jc.ID,
			FromTime:     in.FromTime,
			ToTime:       in.ToTime,
			CompletedQty: in.CompletedQty,
			Remarks:      in.Remarks,
		}
		if err := repo.CreateTimeLog(ctx, log); err != nil {
			return err
		}
		jc.TimeLogs = append(jc.TimeLogs, *log)
		if err := repo.Update(ctx, jc); err != nil {
			return wrapRepoErr(err, "job_card", id)
		}
		result = jc
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("job card time logged",
		zap.String("job_card_id", id),
		zap.Float64("completed_qty", in.CompletedQty),
		zap.Int("version", result.Version))
	return s.project(ctx, result)
}

// Complete 完工，并把数量与工时汇总到工单工序
func (s *JobCardService) Complete(ctx context.Context, id string, in *CompleteJobCardInput) (*entity.JobCard, error) {
	before := func(_ *gorm.DB, jc *entity.JobCard) error {
		qty := jc.ForQuantity
		if in.CompletedQty != nil {
			qty = *in.CompletedQty
		}
		verr := &ValidationError{}
		if qty < 0 {
			verr.add("completed_qty", "must be >= 0")
		} else if !s.settings.Overproduction.Permits(qty, jc.ForQuantity) {
			verr.add("completed_qty", "exceeds for_quantity %v", jc.ForQuantity)
		}
		if err := verr.err(); err != nil {
			return err
		}
		now := s.now()
		jc.CompletedQty = qty
		jc.CompletedTime = &now
		return nil
	}
	after := func(tx *gorm.DB, jc *entity.JobCard) error {
		return s.rollUp(ctx, tx, jc)
	}
	return s.transition(ctx, id, ActionComplete, in.Version, before, after)
}

// rollUp 作业卡完工后更新工单工序的完成数量、实际工时和状态
func (s *JobCardService) rollUp(ctx context.Context, tx *gorm.DB, jc *entity.JobCard) error {
	woRepo := s.repos.WorkOrder.WithTx(tx)
	op, err := woRepo.FindOperation(ctx, jc.WorkOrderOperationID)
	if err != nil {
		return wrapRepoErr(err, "work_order_operation", jc.WorkOrderOperationID)
	}
	wo, err := woRepo.FindByID(ctx, jc.WorkOrderID)
	if err != nil {
		return wrapRepoErr(err, "work_order", jc.WorkOrderID)
	}

	var minutes int64
	for i := range jc.TimeLogs {
		minutes += logMinutes(&jc.TimeLogs[i])
	}
	op.CompletedQty += jc.CompletedQty
	op.ActualTimeInMins += float64(minutes)

	siblings, err := s.repos.JobCard.WithTx(tx).ListByWorkOrder(ctx, jc.WorkOrderID)
	if err != nil {
		return err
	}
	allDone := true
	for _, sib := range siblings {
		if sib.WorkOrderOperationID != op.ID || sib.Status == entity.JCStatusCancelled {
			continue
		}
		if sib.Status != entity.JCStatusCompleted {
			allDone = false
		}
	}
	if allDone || op.CompletedQty+qtyEpsilon >= wo.Qty {
		op.Status = entity.OpStatusCompleted
	} else {
		op.Status = entity.OpStatusInProgress
	}
	return woRepo.UpdateOperation(ctx, op)
}

// Cancel 取消未完结的作业卡
func (s *JobCardService) Cancel(ctx context.Context, id string, version int) (*entity.JobCard, error) {
	return s.transition(ctx, id, ActionCancel, version, nil, nil)
}

// project 以工作站快照计算派生字段
func (s *JobCardService) project(ctx context.Context, jc *entity.JobCard) (*entity.JobCard, error) {
	var ws *entity.Workstation
	if jc.WorkstationID != "" {
		found, err := s.repos.Workstation.FindByID(ctx, jc.WorkstationID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		ws = found
	}
	applyJobCardProjections(jc, ws, s.now(), s.settings.Overproduction)
	return jc, nil
}

func (s *JobCardService) Get(ctx context.Context, id string) (*entity.JobCard, error) {
	jc, err := s.repos.JobCard.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr(err, "job_card", id)
	}
	return s.project(ctx, jc)
}

func (s *JobCardService) List(ctx context.Context, params repository.JobCardListParams) ([]entity.JobCard, int64, error) {
	list, total, err := s.repos.JobCard.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]string, 0, len(list))
	for _, jc := range list {
		if jc.WorkstationID != "" {
			ids = append(ids, jc.WorkstationID)
		}
	}
	workstations, err := s.repos.Workstation.FindByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	for i := range list {
		applyJobCardProjections(&list[i], workstations[list[i].WorkstationID], now, s.settings.Overproduction)
	}
	return list, total, nil
}
