package service

import (
	"context"
	"strings"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/google/uuid"
)

// ItemService 物料目录
type ItemService struct {
	*core
}

type CreateItemInput struct {
	ItemCode      string  `json:"item_code"`
	Name          string  `json:"name"`
	NameAr        string  `json:"name_ar"`
	StockUOM      string  `json:"stock_uom"`
	ValuationRate float64 `json:"valuation_rate"`
	IsStockItem   *bool   `json:"is_stock_item"`
}

func (s *ItemService) Create(ctx context.Context, in *CreateItemInput, userID string) (*entity.Item, error) {
	verr := &ValidationError{}
	code := strings.TrimSpace(in.ItemCode)
	if code == "" {
		verr.add("item_code", "is required")
	}
	if strings.TrimSpace(in.Name) == "" && strings.TrimSpace(in.NameAr) == "" {
		verr.add("name", "name or name_ar is required")
	}
	if in.ValuationRate < 0 {
		verr.add("valuation_rate", "must be >= 0")
	}
	if err := verr.err(); err != nil {
		return nil, err
	}

	exists, err := s.repos.Item.ExistsByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &ConflictError{Entity: "item", ID: code, Reason: "item code already exists"}
	}

	item := &entity.Item{
		ID:            uuid.New().String(),
		ItemCode:      code,
		Name:          strings.TrimSpace(in.Name),
		NameAr:        strings.TrimSpace(in.NameAr),
		StockUOM:      in.StockUOM,
		ValuationRate: in.ValuationRate,
		IsStockItem:   true,
		CreatedBy:     userID,
	}
	if item.StockUOM == "" {
		item.StockUOM = "Nos"
	}
	if in.IsStockItem != nil {
		item.IsStockItem = *in.IsStockItem
	}
	if err := s.repos.Item.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ItemService) Get(ctx context.Context, id string) (*entity.Item, error) {
	item, err := s.repos.Item.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr(err, "item", id)
	}
	return item, nil
}

func (s *ItemService) List(ctx context.Context, params repository.ItemListParams) ([]entity.Item, int64, error) {
	return s.repos.Item.List(ctx, params)
}

// displayName 按设置语言解析物料名称
func (c *core) displayName(item *entity.Item) string {
	return item.DisplayName(c.settings.DisplayLanguage)
}
