package cost

import (
	"strings"

	"github.com/frahmantamala/cost-tracker/internal"
	"github.com/frahmantamala/cost-tracker/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

const (
	maxItemLength        = 200
	maxDescriptionLength = 500
)

// CreateCostDTO is the request payload for adding a cost.
type CreateCostDTO struct {
	Date        string           `json:"date"`
	Item        string           `json:"item"`
	Sum         *decimal.Decimal `json:"sum"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
}

func (dto *CreateCostDTO) Validate() error {
	dto.Category = strings.ToUpper(strings.TrimSpace(dto.Category))

	if err := validateCostFields(dto.Date, dto.Item, dto.Sum, dto.Category, dto.Description); err != nil {
		return err
	}
	return nil
}

// ToCost converts a validated payload into a draft.
func (dto *CreateCostDTO) ToCost() Cost {
	return NewCost(dto.Date, strings.TrimSpace(dto.Item), *dto.Sum, Category(dto.Category), dto.Description)
}

// UpdateCostDTO fully replaces an existing cost.
type UpdateCostDTO struct {
	Date        string           `json:"date"`
	Item        string           `json:"item"`
	Sum         *decimal.Decimal `json:"sum"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	Starred     bool             `json:"starred"`
}

func (dto *UpdateCostDTO) Validate() error {
	dto.Category = strings.ToUpper(strings.TrimSpace(dto.Category))

	if err := validateCostFields(dto.Date, dto.Item, dto.Sum, dto.Category, dto.Description); err != nil {
		return err
	}
	return nil
}

func (dto *UpdateCostDTO) ToCost(id int64) Cost {
	c := NewCost(dto.Date, strings.TrimSpace(dto.Item), *dto.Sum, Category(dto.Category), dto.Description)
	c.ID = id
	c.Starred = dto.Starred
	return c
}

// validateCostFields returns nil as a plain error so a typed nil never leaks out.
func validateCostFields(date, item string, sum *decimal.Decimal, category, description string) error {
	v := validation.NewValidator()
	v.Field("date", date).Required().Date()
	v.Field("item", strings.TrimSpace(item)).Required().MaxLength(maxItemLength)
	v.Field("sum", sum).Required().NonNegative(internal.ErrCodeInvalidAmount)
	v.Field("category", category).Required().OneOf(CategoryNames(), internal.ErrCodeInvalidCategory)
	v.Field("description", description).MaxLength(maxDescriptionLength)

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// FilterDTO sets the active filter. Null fields clear that constraint.
type FilterDTO struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
}

func (dto FilterDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("month", dto.Month).IntRange(1, 12, internal.ErrCodeInvalidFilter)
	v.Field("year", dto.Year).IntRange(1, 9999, internal.ErrCodeInvalidFilter)

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (dto FilterDTO) ToFilter() Filter {
	return NewFilter(dto.Year, dto.Month)
}

type SortDTO struct {
	Order string `json:"order"`
}

type CostResponse struct {
	Cost
	Icon string `json:"icon"`
}

type ViewResponse struct {
	Costs  []CostResponse  `json:"costs"`
	Total  decimal.Decimal `json:"total"`
	Filter Filter          `json:"filter"`
	Sort   SortOrder       `json:"sort"`
}

type TotalResponse struct {
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
	Filter Filter          `json:"filter"`
}

type CategoryResponse struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type CategoriesResponse struct {
	Categories []CategoryResponse `json:"categories"`
}

type FilterOptionsResponse struct {
	Years  []int `json:"years"`
	Months []int `json:"months"`
}
