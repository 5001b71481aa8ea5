package cost

import (
	"strings"
	"time"

	costDatamodel "github.com/frahmantamala/cost-tracker/internal/core/datamodel/cost"
	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryFood      Category = "FOOD"
	CategoryHealth    Category = "HEALTH"
	CategoryEducation Category = "EDUCATION"
	CategoryTravel    Category = "TRAVEL"
	CategoryHousing   Category = "HOUSING"
	CategoryOther     Category = "OTHER"
)

var categories = []Category{
	CategoryFood,
	CategoryHealth,
	CategoryEducation,
	CategoryTravel,
	CategoryHousing,
	CategoryOther,
}

// Categories returns the fixed category set in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// CategoryNames returns the category set as plain strings.
func CategoryNames() []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	return names
}

// ParseCategory accepts a category name in any letter case.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range categories {
		if c == known {
			return c, true
		}
	}
	return c, false
}

func (c Category) IsValid() bool {
	_, ok := ParseCategory(string(c))
	return ok
}

// Cost is one expense entry. A zero ID marks a draft that the store has not confirmed yet.
type Cost struct {
	ID          int64           `json:"id"`
	Date        string          `json:"date"`
	Item        string          `json:"item"`
	Sum         decimal.Decimal `json:"sum"`
	Category    Category        `json:"category"`
	Description string          `json:"description"`
	Starred     bool            `json:"starred"`
}

// NewCost builds a draft with no ID.
func NewCost(date, item string, sum decimal.Decimal, category Category, description string) Cost {
	return Cost{
		Date:        date,
		Item:        item,
		Sum:         sum,
		Category:    category,
		Description: description,
	}
}

func (c Cost) IsDraft() bool {
	return c.ID == 0
}

// YearMonth decomposes Date. ok is false when the date cannot be parsed.
func (c Cost) YearMonth() (year, month int, ok bool) {
	t, ok := parseDate(c.Date)
	if !ok {
		return 0, 0, false
	}
	return t.Year(), int(t.Month()), true
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func ToDataModel(c Cost) *costDatamodel.Cost {
	return &costDatamodel.Cost{
		ID:          c.ID,
		Date:        c.Date,
		Item:        c.Item,
		Sum:         c.Sum,
		Category:    string(c.Category),
		Description: c.Description,
		Starred:     c.Starred,
	}
}

func FromDataModel(c *costDatamodel.Cost) Cost {
	return Cost{
		ID:          c.ID,
		Date:        c.Date,
		Item:        c.Item,
		Sum:         c.Sum,
		Category:    Category(c.Category),
		Description: c.Description,
		Starred:     c.Starred,
	}
}

func FromDataModelSlice(rows []*costDatamodel.Cost) []Cost {
	result := make([]Cost, len(rows))
	for i, r := range rows {
		result[i] = FromDataModel(r)
	}
	return result
}
