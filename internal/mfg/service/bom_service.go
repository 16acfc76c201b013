package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BOMService BOM解析器：校验、成本计算、默认BOM维护
type BOMService struct {
	*core
}

type BOMItemInput struct {
	ItemID                 string   `json:"item_id"`
	Qty                    float64  `json:"qty"`
	UOM                    string   `json:"uom"`
	Rate                   *float64 `json:"rate"`
	SourceWarehouse        string   `json:"source_warehouse"`
	IncludeInManufacturing *bool    `json:"include_in_manufacturing"`
}

type BOMOperationInput struct {
	Sequence      int     `json:"sequence"`
	Operation     string  `json:"operation"`
	WorkstationID string  `json:"workstation_id"`
	TimeInMins    float64 `json:"time_in_mins"`
	OperatingCost float64 `json:"operating_cost"`
	Description   string  `json:"description"`
}

type BOMInput struct {
	ItemID     string              `json:"item_id"`
	BOMType    string              `json:"bom_type"`
	Quantity   float64             `json:"quantity"`
	UOM        string              `json:"uom"`
	IsActive   *bool               `json:"is_active"`
	IsDefault  bool                `json:"is_default"`
	Remarks    string              `json:"remarks"`
	Items      []BOMItemInput      `json:"items"`
	Operations []BOMOperationInput `json:"operations"`
	Version    int                 `json:"version"`
}

// validate 收集全部字段错误
func (in *BOMInput) validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(in.ItemID) == "" {
		verr.add("item_id", "is required")
	}
	if in.Quantity <= 0 {
		verr.add("quantity", "must be greater than 0")
	}
	switch in.BOMType {
	case "", entity.BOMTypeStandard, entity.BOMTypeTemplate, entity.BOMTypeSubcontract:
	default:
		verr.add("bom_type", "must be one of standard, template, subcontract")
	}
	if len(in.Items) == 0 {
		verr.add("items", "at least one item is required")
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.ItemID) == "" {
			verr.add(fmt.Sprintf("items[%d].item_id", i), "is required")
		}
		if it.Qty <= 0 {
			verr.add(fmt.Sprintf("items[%d].qty", i), "must be greater than 0")
		}
		if it.Rate != nil && *it.Rate < 0 {
			verr.add(fmt.Sprintf("items[%d].rate", i), "must be >= 0")
		}
	}
	seen := make(map[int]int, len(in.Operations))
	for i, op := range in.Operations {
		if strings.TrimSpace(op.Operation) == "" {
			verr.add(fmt.Sprintf("operations[%d].operation", i), "is required")
		}
		if op.TimeInMins < 0 {
			verr.add(fmt.Sprintf("operations[%d].time_in_mins", i), "must be >= 0")
		}
		if op.OperatingCost < 0 {
			verr.add(fmt.Sprintf("operations[%d].operating_cost", i), "must be >= 0")
		}
		seq := op.Sequence
		if seq == 0 {
			seq = i + 1
		}
		if seq < 0 {
			verr.add(fmt.Sprintf("operations[%d].sequence", i), "must be greater than 0")
			continue
		}
		if prev, dup := seen[seq]; dup {
			verr.add(fmt.Sprintf("operations[%d].sequence", i), "duplicates operations[%d]", prev)
			continue
		}
		seen[seq] = i
	}
	if in.IsDefault && in.IsActive != nil && !*in.IsActive {
		verr.add("is_default", "an inactive BOM cannot be default")
	}
	return verr.err()
}

// assemble 解析引用并生成BOM头与行项，随后重算成本
func (s *BOMService) assemble(ctx context.Context, db *gorm.DB, bom *entity.BOM, in *BOMInput) error {
	items := s.repos.Item.WithTx(db)
	target, err := items.FindByID(ctx, in.ItemID)
	if err != nil {
		return wrapRepoErr(err, "item", in.ItemID)
	}

	lineIDs := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		lineIDs = append(lineIDs, it.ItemID)
	}
	lineItems, err := items.FindByIDs(ctx, lineIDs)
	if err != nil {
		return err
	}
	for _, id := range lineIDs {
		if _, ok := lineItems[id]; !ok {
			return &NotFoundError{Entity: "item", ID: id}
		}
	}

	var wsIDs []string
	for _, op := range in.Operations {
		if op.WorkstationID != "" {
			wsIDs = append(wsIDs, op.WorkstationID)
		}
	}
	workstations, err := s.repos.Workstation.WithTx(db).FindByIDs(ctx, wsIDs)
	if err != nil {
		return err
	}
	for _, id := range wsIDs {
		if _, ok := workstations[id]; !ok {
			return &NotFoundError{Entity: "workstation", ID: id}
		}
	}

	bom.ItemID = target.ID
	bom.ItemCode = target.ItemCode
	bom.ItemName = s.displayName(target)
	bom.BOMType = in.BOMType
	if bom.BOMType == "" {
		bom.BOMType = entity.BOMTypeStandard
	}
	bom.Quantity = in.Quantity
	bom.UOM = strings.TrimSpace(in.UOM)
	if bom.UOM == "" {
		bom.UOM = target.StockUOM
	}
	if bom.UOM == "" {
		return &ValidationError{Violations: []FieldViolation{{Field: "uom", Message: "is required"}}}
	}
	if in.IsActive != nil {
		bom.IsActive = *in.IsActive
	}
	bom.IsDefault = in.IsDefault
	bom.Remarks = in.Remarks

	bom.Items = make([]entity.BOMItem, 0, len(in.Items))
	for i, it := range in.Items {
		src := lineItems[it.ItemID]
		line := entity.BOMItem{
			ID:                     uuid.New().String(),
			BOMID:                  bom.ID,
			LineNo:                 i + 1,
			ItemID:                 src.ID,
			ItemCode:               src.ItemCode,
			ItemName:               s.displayName(src),
			Quantity:               it.Qty,
			UOM:                    it.UOM,
			Rate:                   src.ValuationRate,
			SourceWarehouse:        it.SourceWarehouse,
			IncludeInManufacturing: true,
		}
		if line.UOM == "" {
			line.UOM = src.StockUOM
		}
		if it.Rate != nil {
			line.Rate = *it.Rate
		}
		if it.IncludeInManufacturing != nil {
			line.IncludeInManufacturing = *it.IncludeInManufacturing
		}
		bom.Items = append(bom.Items, line)
	}

	bom.Operations = make([]entity.BOMOperation, 0, len(in.Operations))
	for i, op := range in.Operations {
		seq := op.Sequence
		if seq == 0 {
			seq = i + 1
		}
		bom.Operations = append(bom.Operations, entity.BOMOperation{
			ID:            uuid.New().String(),
			BOMID:         bom.ID,
			Sequence:      seq,
			Operation:     strings.TrimSpace(op.Operation),
			WorkstationID: op.WorkstationID,
			TimeInMins:    op.TimeInMins,
			OperatingCost: op.OperatingCost,
			Description:   op.Description,
		})
	}
	sort.SliceStable(bom.Operations, func(i, j int) bool {
		return bom.Operations[i].Sequence < bom.Operations[j].Sequence
	})

	costBOM(bom, workstations)
	return nil
}

// claimDefault 锁定物料行后清除其他默认BOM
func (s *BOMService) claimDefault(ctx context.Context, tx *gorm.DB, bom *entity.BOM) error {
	if _, err := s.repos.Item.WithTx(tx).LockByID(ctx, bom.ItemID); err != nil {
		return wrapRepoErr(err, "item", bom.ItemID)
	}
	return s.repos.BOM.WithTx(tx).ClearDefault(ctx, bom.ItemID, bom.ID)
}

// Create 创建BOM
func (s *BOMService) Create(ctx context.Context, in *BOMInput, userID string) (*entity.BOM, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	bom := &entity.BOM{
		ID:        uuid.New().String(),
		Currency:  s.settings.Currency,
		IsActive:  true,
		Version:   1,
		CreatedBy: userID,
	}
	if err := s.assemble(ctx, s.db, bom, in); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := nextNumber(ctx, tx, s.repos.NamingSeries, s.settings.BOMNamingSeries, s.now())
		if err != nil {
			return err
		}
		bom.BOMNumber = number
		if bom.IsDefault {
			if err := s.claimDefault(ctx, tx, bom); err != nil {
				return err
			}
		}
		return s.repos.BOM.WithTx(tx).Create(ctx, bom)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("bom created",
		zap.String("bom_id", bom.ID),
		zap.String("bom_number", bom.BOMNumber),
		zap.Float64("total_cost", bom.TotalCost))
	return bom, nil
}

// Update 整体更新BOM。被工单引用后不允许修改数量或行项。
func (s *BOMService) Update(ctx context.Context, id string, in *BOMInput) (*entity.BOM, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var result *entity.BOM
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repos.BOM.WithTx(tx)
		bom, err := repo.FindByID(ctx, id)
		if err != nil {
			return wrapRepoErr(err, "bom", id)
		}
		if err := checkVersion("bom", id, in.Version, bom.Version); err != nil {
			return err
		}
		if in.ItemID != bom.ItemID {
			return &ValidationError{Violations: []FieldViolation{{Field: "item_id", Message: "target item cannot be changed"}}}
		}

		before := bomSignature(bom)
		wasActive := bom.IsActive
		prevItems, prevOps := bom.Items, bom.Operations
		if err := s.assemble(ctx, tx, bom, in); err != nil {
			return err
		}
		if bom.IsDefault && !bom.IsActive {
			return &ValidationError{Violations: []FieldViolation{{Field: "is_default", Message: "an inactive BOM cannot be default"}}}
		}
		linesChanged := before != bomSignature(bom)
		if !linesChanged {
			// 行项未变时沿用原ID，工单的行引用保持有效
			for i := range bom.Items {
				bom.Items[i].ID = prevItems[i].ID
			}
			for i := range bom.Operations {
				bom.Operations[i].ID = prevOps[i].ID
			}
		}
		woRepo := s.repos.WorkOrder.WithTx(tx)
		if linesChanged {
			// 已完结的工单仍按行项ID计算需求量
			refs, err := woRepo.CountByBOM(ctx, id)
			if err != nil {
				return err
			}
			if refs > 0 {
				return &ConflictError{Entity: "bom", ID: id,
					Reason: fmt.Sprintf("lines are referenced by %d work orders", refs)}
			}
		}
		if wasActive && !bom.IsActive {
			open, err := woRepo.CountOpenByBOM(ctx, id)
			if err != nil {
				return err
			}
			if open > 0 {
				return &ConflictError{Entity: "bom", ID: id,
					Reason: fmt.Sprintf("referenced by %d open work orders", open)}
			}
		}

		if bom.IsDefault {
			if err := s.claimDefault(ctx, tx, bom); err != nil {
				return err
			}
		}
		if err := repo.ReplaceLines(ctx, bom.ID, bom.Items, bom.Operations); err != nil {
			return err
		}
		if err := repo.Update(ctx, bom); err != nil {
			return wrapRepoErr(err, "bom", id)
		}
		result = bom
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("bom updated", zap.String("bom_id", id), zap.Int("version", result.Version))
	return result, nil
}

// bomSignature 数量及行项的可比较摘要，不含派生金额
func bomSignature(bom *entity.BOM) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v|%s;", bom.Quantity, bom.UOM)
	for _, it := range bom.Items {
		fmt.Fprintf(&b, "i:%s|%v|%s|%v|%s|%t;", it.ItemID, it.Quantity, it.UOM, it.Rate, it.SourceWarehouse, it.IncludeInManufacturing)
	}
	for _, op := range bom.Operations {
		fmt.Fprintf(&b, "o:%d|%s|%s|%v;", op.Sequence, op.Operation, op.WorkstationID, op.TimeInMins)
		if op.WorkstationID == "" {
			fmt.Fprintf(&b, "%v;", op.OperatingCost)
		}
	}
	return b.String()
}

// SetDefault 设为物料默认BOM，同一事务内清除其他默认标记
func (s *BOMService) SetDefault(ctx context.Context, id string, expectedVersion int) (*entity.BOM, error) {
	var result *entity.BOM
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repos.BOM.WithTx(tx)
		bom, err := repo.FindByID(ctx, id)
		if err != nil {
			return wrapRepoErr(err, "bom", id)
		}
		if err := checkVersion("bom", id, expectedVersion, bom.Version); err != nil {
			return err
		}
		if !bom.IsActive {
			return &ValidationError{Violations: []FieldViolation{{Field: "is_active", Message: "an inactive BOM cannot be default"}}}
		}
		if err := s.claimDefault(ctx, tx, bom); err != nil {
			return err
		}
		bom.IsDefault = true
		if err := repo.Update(ctx, bom); err != nil {
			return wrapRepoErr(err, "bom", id)
		}
		result = bom
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("bom set as default", zap.String("bom_id", id), zap.String("item_id", result.ItemID))
	return result, nil
}

// ToggleActive 切换启用状态，被未完结工单引用时拒绝
func (s *BOMService) ToggleActive(ctx context.Context, id string, expectedVersion int) (*entity.BOM, error) {
	var result *entity.BOM
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repos.BOM.WithTx(tx)
		bom, err := repo.FindByID(ctx, id)
		if err != nil {
			return wrapRepoErr(err, "bom", id)
		}
		if err := checkVersion("bom", id, expectedVersion, bom.Version); err != nil {
			return err
		}
		open, err := s.repos.WorkOrder.WithTx(tx).CountOpenByBOM(ctx, id)
		if err != nil {
			return err
		}
		if open > 0 {
			return &ConflictError{Entity: "bom", ID: id,
				Reason: fmt.Sprintf("referenced by %d open work orders", open)}
		}
		bom.IsActive = !bom.IsActive
		if !bom.IsActive {
			bom.IsDefault = false
		}
		if err := repo.Update(ctx, bom); err != nil {
			return wrapRepoErr(err, "bom", id)
		}
		result = bom
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("bom active toggled", zap.String("bom_id", id), zap.Bool("is_active", result.IsActive))
	return result, nil
}

// Duplicate 复制为新的未启用BOM，行项与工序逐项拷贝
func (s *BOMService) Duplicate(ctx context.Context, id, userID string) (*entity.BOM, error) {
	var result *entity.BOM
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repos.BOM.WithTx(tx)
		src, err := repo.FindByID(ctx, id)
		if err != nil {
			return wrapRepoErr(err, "bom", id)
		}
		number, err := nextNumber(ctx, tx, s.repos.NamingSeries, s.settings.BOMNamingSeries, s.now())
		if err != nil {
			return err
		}

		dup := *src
		dup.ID = uuid.New().String()
		dup.BOMNumber = number
		dup.IsDefault = false
		dup.IsActive = false
		dup.Version = 1
		dup.CreatedBy = userID
		dup.Items = make([]entity.BOMItem, len(src.Items))
		for i, it := range src.Items {
			it.ID = uuid.New().String()
			it.BOMID = dup.ID
			dup.Items[i] = it
		}
		dup.Operations = make([]entity.BOMOperation, len(src.Operations))
		for i, op := range src.Operations {
			op.ID = uuid.New().String()
			op.BOMID = dup.ID
			dup.Operations[i] = op
		}
		resetTimestamps(&dup)
		if err := repo.Create(ctx, &dup); err != nil {
			return err
		}
		result = &dup
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("bom duplicated", zap.String("source_bom_id", id), zap.String("bom_id", result.ID))
	return result, nil
}

func resetTimestamps(bom *entity.BOM) {
	var zero entity.BOM
	bom.CreatedAt, bom.UpdatedAt = zero.CreatedAt, zero.UpdatedAt
	for i := range bom.Items {
		bom.Items[i].CreatedAt, bom.Items[i].UpdatedAt = zero.CreatedAt, zero.UpdatedAt
	}
	for i := range bom.Operations {
		bom.Operations[i].CreatedAt, bom.Operations[i].UpdatedAt = zero.CreatedAt, zero.UpdatedAt
	}
}

func (s *BOMService) Get(ctx context.Context, id string) (*entity.BOM, error) {
	bom, err := s.repos.BOM.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr(err, "bom", id)
	}
	return bom, nil
}

func (s *BOMService) List(ctx context.Context, params repository.BOMListParams) ([]entity.BOM, int64, error) {
	return s.repos.BOM.List(ctx, params)
}

var bomExportHeaders = []string{
	"#", "Item Code", "Item Name", "Qty", "UOM", "Rate", "Amount", "Source Warehouse",
}

// Export 导出BOM成本表为xlsx
func (s *BOMService) Export(ctx context.Context, id string) (*excelize.File, string, error) {
	bom, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheet := "BOM"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	f.SetCellValue(sheet, "A1", bom.BOMNumber)
	f.SetCellValue(sheet, "C1", bom.ItemName)
	f.SetCellValue(sheet, "D1", bom.Quantity)
	f.SetCellValue(sheet, "E1", bom.UOM)

	// 物料行
	header := 3
	for i, h := range bomExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s%d", col, header)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}
	row := header + 1
	for _, it := range bom.Items {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), it.LineNo)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), it.ItemCode)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), it.ItemName)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), it.Quantity)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), it.UOM)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), it.Rate)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), it.Amount)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), it.SourceWarehouse)
		row++
	}

	// 工序行
	row++
	opHeaders := []string{"Seq", "Operation", "Workstation", "Time (mins)", "Operating Cost"}
	for i, h := range opHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s%d", col, row)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}
	row++
	for _, op := range bom.Operations {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), op.Sequence)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), op.Operation)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), op.WorkstationID)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), op.TimeInMins)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), op.OperatingCost)
		row++
	}

	// 成本汇总
	row++
	summaryStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	summary := []struct {
		label string
		value float64
	}{
		{"Materials Cost", bom.MaterialsCost},
		{"Operations Cost", bom.OperationsCost},
		{"Total Cost", bom.TotalCost},
		{"Cost Per Unit", bom.CostPerUnit},
	}
	for _, line := range summary {
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), line.label)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), line.value)
		f.SetCellStyle(sheet, fmt.Sprintf("F%d", row), fmt.Sprintf("G%d", row), summaryStyle)
		row++
	}
	f.SetCellValue(sheet, fmt.Sprintf("H%d", row-1), bom.Currency)

	colWidths := []float64{6, 16, 28, 10, 8, 10, 12, 20}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("%s.xlsx", bom.BOMNumber)
	return f, filename, nil
}
