package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// WorkOrderService 工单引擎
type WorkOrderService struct {
	*core
}

type WorkOrderInput struct {
	ItemID           string  `json:"item_id"`
	BOMID            string  `json:"bom_id"`
	Qty              float64 `json:"qty"`
	SourceWarehouse  string  `json:"source_warehouse"`
	WIPWarehouse     string  `json:"wip_warehouse"`
	TargetWarehouse  string  `json:"target_warehouse"`
	PlannedStartDate string  `json:"planned_start_date"`
	PlannedEndDate   string  `json:"planned_end_date"`
	Remarks          string  `json:"remarks"`
	Version          int     `json:"version"`
}

type CompleteWorkOrderInput struct {
	ProducedQty *float64 `json:"produced_qty"`
	Version     int      `json:"version"`
}

type MaterialQtyInput struct {
	ItemID string  `json:"item_id"`
	Qty    float64 `json:"qty"`
}

// MaterialMovementInput 物料转移/消耗，Items为空时按剩余数量全部处理
type MaterialMovementInput struct {
	Items   []MaterialQtyInput `json:"items"`
	Version int                `json:"version"`
}

// parseDate 仅日期，兼容带时间的ISO-8601
func parseDate(verr *ValidationError, field, value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		ts, err2 := time.Parse(time.RFC3339, value)
		if err2 != nil {
			verr.add(field, "must be a date (YYYY-MM-DD)")
			return nil
		}
		t = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	}
	return &t
}

func (s *WorkOrderService) today() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Create 创建草稿工单，物料需求与工序取自BOM
func (s *WorkOrderService) Create(ctx context.Context, in *WorkOrderInput, userID string) (*entity.WorkOrder, error) {
	verr := &ValidationError{}
	if strings.TrimSpace(in.ItemID) == "" {
		verr.add("item_id", "is required")
	}
	if in.Qty <= 0 {
		verr.add("qty", "must be greater than 0")
	}
	start := parseDate(verr, "planned_start_date", in.PlannedStartDate)
	end := parseDate(verr, "planned_end_date", in.PlannedEndDate)
	if start == nil && !verr.HasField("planned_start_date") {
		t := s.today()
		start = &t
	}
	if start != nil && end != nil && end.Before(*start) {
		verr.add("planned_end_date", "must not be before planned_start_date")
	}
	if err := verr.err(); err != nil {
		return nil, err
	}

	item, err := s.repos.Item.FindByID(ctx, in.ItemID)
	if err != nil {
		return nil, wrapRepoErr(err, "item", in.ItemID)
	}
	bom, err := s.resolveBOM(ctx, item.ID, in.BOMID)
	if err != nil {
		return nil, err
	}

	wo := &entity.WorkOrder{
		ID:               uuid.New().String(),
		ItemID:           item.ID,
		ItemCode:         item.ItemCode,
		ItemName:         s.displayName(item),
		BOMID:            bom.ID,
		BOMNumber:        bom.BOMNumber,
		Qty:              in.Qty,
		UOM:              bom.UOM,
		SourceWarehouse:  in.SourceWarehouse,
		WIPWarehouse:     firstNonBlank(in.WIPWarehouse, s.settings.DefaultWIPWarehouse),
		TargetWarehouse:  firstNonBlank(in.TargetWarehouse, s.settings.DefaultFinishedGoodsWarehouse),
		PlannedStartDate: *start,
		PlannedEndDate:   end,
		Status:           entity.WOStatusDraft,
		Currency:         s.settings.Currency,
		Remarks:          in.Remarks,
		Version:          1,
		CreatedBy:        userID,
	}
	for _, line := range bom.Items {
		if !line.IncludeInManufacturing {
			continue
		}
		wo.RequiredItems = append(wo.RequiredItems, entity.WorkOrderItem{
			ID:              uuid.New().String(),
			WorkOrderID:     wo.ID,
			LineNo:          len(wo.RequiredItems) + 1,
			BOMItemID:       line.ID,
			ItemID:          line.ItemID,
			ItemCode:        line.ItemCode,
			ItemName:        line.ItemName,
			UOM:             line.UOM,
			SourceWarehouse: firstNonBlank(line.SourceWarehouse, wo.SourceWarehouse),
		})
	}
	for _, op := range bom.Operations {
		wo.Operations = append(wo.Operations, entity.WorkOrderOperation{
			ID:             uuid.New().String(),
			WorkOrderID:    wo.ID,
			BOMOperationID: op.ID,
			Sequence:       op.Sequence,
			Operation:      op.Operation,
			WorkstationID:  op.WorkstationID,
			Status:         entity.OpStatusPending,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := nextNumber(ctx, tx, s.repos.NamingSeries, s.settings.WorkOrderNamingSeries, s.now())
		if err != nil {
			return err
		}
		wo.WorkOrderNumber = number
		return s.repos.WorkOrder.WithTx(tx).Create(ctx, wo)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("work order created",
		zap.String("work_order_id", wo.ID),
		zap.String("work_order_number", wo.WorkOrderNumber),
		zap.String("bom_id", bom.ID),
		zap.Float64("qty", wo.Qty))
	applyWorkOrderProjections(wo, bom, s.settings.Overproduction)
	return wo, nil
}

// resolveBOM 未指定BOM时使用物料的默认BOM
func (s *WorkOrderService) resolveBOM(ctx context.Context, itemID, bomID string) (*entity.BOM, error) {
	if bomID == "" {
		bom, err := s.repos.BOM.FindDefaultByItem(ctx, itemID)
		if err == nil {
			return bom, nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &ValidationError{Violations: []FieldViolation{{Field: "bom_id", Message: "is required, item has no active default BOM"}}}
		}
		return nil, err
	}
	bom, err := s.repos.BOM.FindByID(ctx, bomID)
	if err != nil {
		return nil, wrapRepoErr(err, "bom", bomID)
	}
	verr := &ValidationError{}
	if !bom.IsActive {
		verr.add("bom_id", "BOM is not active")
	}
	if bom.ItemID != itemID {
		verr.add("bom_id", "BOM belongs to a different item")
	}
	if err := verr.err(); err != nil {
		return nil, err
	}
	return bom, nil
}

// Update 开工前可修改数量、日期、仓库，需求量随之重算
func (s *WorkOrderService) Update(ctx context.Context, id string, in *WorkOrderInput) (*entity.WorkOrder, error) {
	verr := &ValidationError{}
	if in.Qty <= 0 {
		verr.add("qty", "must be greater than 0")
	}
	start := parseDate(verr, "planned_start_date", in.PlannedStartDate)
	end := parseDate(verr, "planned_end_date", in.PlannedEndDate)
	if err := verr.err(); err != nil {
		return nil, err
	}

	var result *entity.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repos.WorkOrder.WithTx(tx)
		wo, err := repo.FindByID(ctx, id)
		if err != nil {
			return wrapRepoErr(err, "work_order", id)
		}
		if err := checkVersion("work_order", id, in.Version, wo.Version); err != nil {
			return err
		}
		switch wo.Status {
		case entity.WOStatusDraft, entity.WOStatusSubmitted, entity.WOStatusNotStarted:
		default:
			return &InvalidTransitionError{Entity: "work_order", ID: id, From: wo.Status, Action: "update"}
		}
		if in.ItemID != "" && in.ItemID != wo.ItemID {
			verr.add("item_id", "cannot be changed")
		}
		if in.BOMID != "" && in.BOMID != wo.BOMID {
			verr.add("bom_id", "cannot be changed")
		}
		if start != nil {
			wo.PlannedStartDate = *start
		}
		if end != nil {
			wo.PlannedEndDate = end
		}
		if wo.PlannedEndDate != nil && wo.PlannedEndDate.Before(wo.PlannedStartDate) {
			verr.add("planned_end_date", "must not be before planned_start_date")
		}
		if err := verr.err(); err != nil {
			return err
		}
		wo.Qty = in.Qty
		if in.SourceWarehouse != "" {
			wo.SourceWarehouse = in.SourceWarehouse
		}
		if in.WIPWarehouse != "" {
			wo.WIPWarehouse = in.WIPWarehouse
		}
		if in.TargetWarehouse != "" {
			wo.TargetWarehouse = in.TargetWarehouse
		}
		wo.Remarks = in.Remarks
		if err := repo.Update(ctx, wo); err != nil {
			return wrapRepoErr(err, "work_order", id)
		}
		result = wo
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("work order updated", zap.String("work_order_id", id), zap.Int("version", result.Version))
	return s.project(ctx, result)
}

type woHook func(tx *gorm.DB, wo *entity.WorkOrder) error

// transition 执行一次状态迁移。before在状态写入前执行，after在同一事务内写入后执行。
func (s *WorkOrderService) transition(ctx context.Context, id, action string, version int, before, after woHook) (*entity.WorkOrder, error) {
	var (
		result *entity.WorkOrder
		from   string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repos.WorkOrder.WithTx(tx)
		wo, err := repo.FindByID(ctx, id)
		if err != nil {
			return wrapRepoErr(err, "work_order", id)
		}
		if err := checkVersion("work_order", id, version, wo.Version); err != nil {
			return err
		}
		next, ok := NextWorkOrderStatus(wo.Status, action)
		if !ok {
			return &InvalidTransitionError{Entity: "work_order", ID: id, From: wo.Status, Action: action}
		}
		from = wo.Status
		if before != nil {
			if err := before(tx, wo); err != nil {
				return err
			}
		}
		wo.Status = next
		if err := repo.Update(ctx, wo); err != nil {
			return wrapRepoErr(err, "work_order", id)
		}
		if after != nil {
			if err := after(tx, wo); err != nil {
				return err
			}
		}
		result = wo
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("work order "+action,
		zap.String("work_order_id", id),
		zap.String("from", from),
		zap.String("to", result.Status),
		zap.Int("version", result.Version))
	return s.project(ctx, result)
}

// Submit 提交
func (s *WorkOrderService) Submit(ctx context.Context, id string, version int) (*entity.WorkOrder, error) {
	return s.transition(ctx, id, ActionSubmit, version, nil, nil)
}

// Release 下达到车间
func (s *WorkOrderService) Release(ctx context.Context, id string, version int) (*entity.WorkOrder, error) {
	return s.transition(ctx, id, ActionRelease, version, nil, nil)
}

// Start 开工或恢复。打开草稿作业卡，并为没有有效作业卡的工序创建作业卡。
func (s *WorkOrderService) Start(ctx context.Context, id string, version int, userID string) (*entity.WorkOrder, error) {
	var (
		cards   []entity.JobCard
		pending []*entity.WorkOrderOperation
	)
	before := func(tx *gorm.DB, wo *entity.WorkOrder) error {
		var err error
		cards, err = s.repos.JobCard.WithTx(tx).ListByWorkOrder(ctx, wo.ID)
		if err != nil {
			return err
		}
		live := make(map[string]bool, len(cards))
		for _, jc := range cards {
			if jc.Status != entity.JCStatusCancelled {
				live[jc.WorkOrderOperationID] = true
			}
		}
		pending = pending[:0]
		for i := range wo.Operations {
			op := &wo.Operations[i]
			if !live[op.ID] && wo.Qty-op.CompletedQty > qtyEpsilon {
				pending = append(pending, op)
			}
		}
		if len(live) == 0 && len(pending) == 0 {
			return &InvalidTransitionError{Entity: "work_order", ID: wo.ID, From: wo.Status, Action: ActionStart,
				Reason: "no job card can be created for this order"}
		}
		now := s.now()
		if wo.ActualStartDate == nil {
			wo.ActualStartDate = &now
		}
		return nil
	}
	after := func(tx *gorm.DB, wo *entity.WorkOrder) error {
		jcRepo := s.repos.JobCard.WithTx(tx)
		for i := range cards {
			if cards[i].Status != entity.JCStatusDraft {
				continue
			}
			cards[i].Status = entity.JCStatusOpen
			if err := jcRepo.Update(ctx, &cards[i]); err != nil {
				return wrapRepoErr(err, "job_card", cards[i].ID)
			}
		}
		if len(pending) == 0 {
			return nil
		}
		bom, err := s.repos.BOM.WithTx(tx).FindByID(ctx, wo.BOMID)
		if err != nil {
			return wrapRepoErr(err, "bom", wo.BOMID)
		}
		for _, op := range pending {
			in := jobCardDraft{ForQuantity: wo.Qty - op.CompletedQty, CreatedBy: userID}
			if _, err := s.spawnJobCard(ctx, tx, wo, op, bom, entity.JCStatusOpen, in); err != nil {
				return err
			}
		}
		return nil
	}
	return s.transition(ctx, id, ActionStart, version, before, after)
}

// Stop 暂停生产，仅记录时间
func (s *WorkOrderService) Stop(ctx context.Context, id string, version int) (*entity.WorkOrder, error) {
	return s.transition(ctx, id, ActionStop, version, func(_ *gorm.DB, wo *entity.WorkOrder) error {
		now := s.now()
		wo.StoppedAt = &now
		return nil
	}, nil)
}

// Complete 完工，未指定产量时按计划数量；未完结的作业卡随之取消
func (s *WorkOrderService) Complete(ctx context.Context, id string, in *CompleteWorkOrderInput) (*entity.WorkOrder, error) {
	return s.transition(ctx, id, ActionComplete, in.Version, func(tx *gorm.DB, wo *entity.WorkOrder) error {
		qty := wo.Qty
		if in.ProducedQty != nil {
			qty = *in.ProducedQty
		}
		verr := &ValidationError{}
		if qty <= 0 {
			verr.add("produced_qty", "must be greater than 0")
		} else if !s.settings.Overproduction.Permits(qty, wo.Qty) {
			verr.add("produced_qty", "exceeds ordered quantity %v", wo.Qty)
		}
		if err := verr.err(); err != nil {
			return err
		}
		unitCost, err := s.actualCostPerUnit(ctx, tx, wo, qty)
		if err != nil {
			return err
		}
		now := s.now()
		wo.ProducedQty = qty
		wo.ActualEndDate = &now
		wo.ActualCostPerUnit = unitCost
		return nil
	}, func(tx *gorm.DB, wo *entity.WorkOrder) error {
		return s.cancelLiveCards(ctx, tx, wo.ID)
	})
}

// actualCostPerUnit 有消耗记录时按实际消耗与作业卡工时成本计算，否则取BOM计划单位成本
func (s *WorkOrderService) actualCostPerUnit(ctx context.Context, tx *gorm.DB, wo *entity.WorkOrder, produced float64) (float64, error) {
	bom, err := s.repos.BOM.WithTx(tx).FindByID(ctx, wo.BOMID)
	if err != nil {
		return 0, wrapRepoErr(err, "bom", wo.BOMID)
	}
	rates := make(map[string]float64, len(bom.Items))
	for _, line := range bom.Items {
		rates[line.ID] = line.Rate
	}
	materials := decimal.Zero
	var consumed bool
	for _, it := range wo.RequiredItems {
		if it.ConsumedQty > 0 {
			consumed = true
		}
		materials = materials.Add(dec(it.ConsumedQty).Mul(dec(rates[it.BOMItemID])))
	}
	if !consumed {
		return bom.CostPerUnit, nil
	}

	cards, err := s.repos.JobCard.WithTx(tx).ListByWorkOrder(ctx, wo.ID)
	if err != nil {
		return 0, err
	}
	var wsIDs []string
	for _, jc := range cards {
		if jc.WorkstationID != "" {
			wsIDs = append(wsIDs, jc.WorkstationID)
		}
	}
	workstations, err := s.repos.Workstation.WithTx(tx).FindByIDs(ctx, wsIDs)
	if err != nil {
		return 0, err
	}
	operations := decimal.Zero
	for i := range cards {
		if cards[i].Status == entity.JCStatusCancelled {
			continue
		}
		applyJobCardProjections(&cards[i], workstations[cards[i].WorkstationID], s.now(), s.settings.Overproduction)
		operations = operations.Add(dec(cards[i].ActualOperatingCost))
	}
	if produced <= 0 {
		return 0, nil
	}
	return money(materials.Add(operations).Div(dec(produced))), nil
}

// Cancel 取消工单及其未完结作业卡
func (s *WorkOrderService) Cancel(ctx context.Context, id string, version int) (*entity.WorkOrder, error) {
	return s.transition(ctx, id, ActionCancel, version, nil, func(tx *gorm.DB, wo *entity.WorkOrder) error {
		return s.cancelLiveCards(ctx, tx, wo.ID)
	})
}

// cancelLiveCards 工单完结时取消其未完结的作业卡
func (s *WorkOrderService) cancelLiveCards(ctx context.Context, tx *gorm.DB, workOrderID string) error {
	jcRepo := s.repos.JobCard.WithTx(tx)
	cards, err := jcRepo.ListByWorkOrder(ctx, workOrderID)
	if err != nil {
		return err
	}
	for i := range cards {
		if cards[i].IsTerminal() {
			continue
		}
		cards[i].Status = entity.JCStatusCancelled
		if err := jcRepo.Update(ctx, &cards[i]); err != nil {
			return wrapRepoErr(err, "job_card", cards[i].ID)
		}
	}
	return nil
}

// Delete 软删除，仅限草稿或已取消
func (s *WorkOrderService) Delete(ctx context.Context, id string, version int) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repos.WorkOrder.WithTx(tx)
		wo, err := repo.FindByID(ctx, id)
		if err != nil {
			return wrapRepoErr(err, "work_order", id)
		}
		if err := checkVersion("work_order", id, version, wo.Version); err != nil {
			return err
		}
		if wo.Status != entity.WOStatusDraft && wo.Status != entity.WOStatusCancelled {
			return &InvalidTransitionError{Entity: "work_order", ID: id, From: wo.Status, Action: "delete"}
		}
		return wrapRepoErr(repo.Delete(ctx, wo), "work_order", id)
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("work order deleted", zap.String("work_order_id", id))
	return nil
}

// TransferMaterials 原材料转入在制品仓
func (s *WorkOrderService) TransferMaterials(ctx context.Context, id string, in *MaterialMovementInput) (*entity.WorkOrder, error) {
	return s.moveMaterials(ctx, id, "transfer", in,
		[]string{entity.WOStatusNotStarted, entity.WOStatusInProgress, entity.WOStatusStopped},
		func(it *entity.WorkOrderItem) float64 { return it.RequiredQty - it.TransferredQty },
		func(verr *ValidationError, field string, it *entity.WorkOrderItem, qty float64) {
			it.TransferredQty += qty
		})
}

// ConsumeMaterials 生产消耗，累计消耗不超过已转移数量
func (s *WorkOrderService) ConsumeMaterials(ctx context.Context, id string, in *MaterialMovementInput) (*entity.WorkOrder, error) {
	return s.moveMaterials(ctx, id, "consume", in,
		[]string{entity.WOStatusInProgress, entity.WOStatusStopped},
		func(it *entity.WorkOrderItem) float64 { return it.TransferredQty - it.ConsumedQty },
		func(verr *ValidationError, field string, it *entity.WorkOrderItem, qty float64) {
			if it.ConsumedQty+qty > it.TransferredQty+qtyEpsilon {
				verr.add(field, "exceeds transferred quantity (%v available)", it.TransferredQty-it.ConsumedQty)
				return
			}
			it.ConsumedQty += qty
		})
}

func (s *WorkOrderService) moveMaterials(
	ctx context.Context,
	id, action string,
	in *MaterialMovementInput,
	allowed []string,
	remaining func(it *entity.WorkOrderItem) float64,
	apply func(verr *ValidationError, field string, it *entity.WorkOrderItem, qty float64),
) (*entity.WorkOrder, error) {
	var result *entity.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repos.WorkOrder.WithTx(tx)
		wo, err := repo.FindByID(ctx, id)
		if err != nil {
			return wrapRepoErr(err, "work_order", id)
		}
		if err := checkVersion("work_order", id, in.Version, wo.Version); err != nil {
			return err
		}
		if !containsString(allowed, wo.Status) {
			return &InvalidTransitionError{Entity: "work_order", ID: id, From: wo.Status, Action: action}
		}
		bom, err := s.repos.BOM.WithTx(tx).FindByID(ctx, wo.BOMID)
		if err != nil {
			return wrapRepoErr(err, "bom", wo.BOMID)
		}
		applyWorkOrderProjections(wo, bom, s.settings.Overproduction)

		touched := make(map[int]bool)
		verr := &ValidationError{}
		if len(in.Items) == 0 {
			for i := range wo.RequiredItems {
				if qty := remaining(&wo.RequiredItems[i]); qty > qtyEpsilon {
					apply(verr, fmt.Sprintf("items[%d].qty", i), &wo.RequiredItems[i], qty)
					touched[i] = true
				}
			}
		}
		for i, m := range in.Items {
			idx := findRequiredItem(wo, m.ItemID)
			if idx < 0 {
				verr.add(fmt.Sprintf("items[%d].item_id", i), "is not a required item of this work order")
				continue
			}
			if m.Qty <= 0 {
				verr.add(fmt.Sprintf("items[%d].qty", i), "must be greater than 0")
				continue
			}
			apply(verr, fmt.Sprintf("items[%d].qty", i), &wo.RequiredItems[idx], m.Qty)
			touched[idx] = true
		}
		if err := verr.err(); err != nil {
			return err
		}
		if len(touched) == 0 {
			return &ValidationError{Violations: []FieldViolation{{Field: "items", Message: "nothing to " + action}}}
		}
		for idx := range touched {
			if err := repo.UpdateItem(ctx, &wo.RequiredItems[idx]); err != nil {
				return err
			}
		}
		if err := repo.Update(ctx, wo); err != nil {
			return wrapRepoErr(err, "work_order", id)
		}
		result = wo
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("work order materials "+action, zap.String("work_order_id", id), zap.Int("version", result.Version))
	return s.project(ctx, result)
}

func findRequiredItem(wo *entity.WorkOrder, key string) int {
	for i := range wo.RequiredItems {
		if wo.RequiredItems[i].ItemID == key || wo.RequiredItems[i].ID == key {
			return i
		}
	}
	return -1
}

// project 基于BOM快照计算派生字段
func (s *WorkOrderService) project(ctx context.Context, wo *entity.WorkOrder) (*entity.WorkOrder, error) {
	bom, err := s.repos.BOM.FindByID(ctx, wo.BOMID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	applyWorkOrderProjections(wo, bom, s.settings.Overproduction)
	return wo, nil
}

func (s *WorkOrderService) Get(ctx context.Context, id string) (*entity.WorkOrder, error) {
	wo, err := s.repos.WorkOrder.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr(err, "work_order", id)
	}
	return s.project(ctx, wo)
}

func (s *WorkOrderService) List(ctx context.Context, params repository.WOListParams) ([]entity.WorkOrder, int64, error) {
	list, total, err := s.repos.WorkOrder.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]string, 0, len(list))
	for _, wo := range list {
		ids = append(ids, wo.BOMID)
	}
	boms, err := s.repos.BOM.FindByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range list {
		applyWorkOrderProjections(&list[i], boms[list[i].BOMID], s.settings.Overproduction)
	}
	return list, total, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
