package cost

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/frahmantamala/cost-tracker/internal"
)

// Filter matches costs by year and month. A nil field places no constraint.
type Filter struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
}

// NewFilter packages the inputs as-is. A month outside 1..12 is kept and simply never matches.
func NewFilter(year, month *int) Filter {
	return Filter{Year: copyInt(year), Month: copyInt(month)}
}

// YearMonth is a shorthand for a filter with both fields set.
func YearMonth(year, month int) Filter {
	return Filter{Year: &year, Month: &month}
}

// ForYear filters on the year only.
func ForYear(year int) Filter {
	return Filter{Year: &year}
}

// ForMonth filters on the month only, across every year.
func ForMonth(month int) Filter {
	return Filter{Month: &month}
}

func (f Filter) IsEmpty() bool {
	return f.Year == nil && f.Month == nil
}

// Matches reports whether c satisfies the filter. A cost whose date cannot be
// parsed matches only the empty filter.
func (f Filter) Matches(c Cost) bool {
	if f.IsEmpty() {
		return true
	}

	year, month, ok := c.YearMonth()
	if !ok {
		return false
	}

	switch {
	case f.Year != nil && f.Month == nil:
		return year == *f.Year
	case f.Year == nil && f.Month != nil:
		return month == *f.Month
	default:
		return year == *f.Year && month == *f.Month
	}
}

// Apply returns the costs that match, preserving their order.
func (f Filter) Apply(costs []Cost) []Cost {
	result := make([]Cost, 0, len(costs))
	for _, c := range costs {
		if f.Matches(c) {
			result = append(result, c)
		}
	}
	return result
}

func (f Filter) Equal(other Filter) bool {
	return intPtrEqual(f.Year, other.Year) && intPtrEqual(f.Month, other.Month)
}

func (f Filter) String() string {
	return fmt.Sprintf("year=%s month=%s", intPtrString(f.Year), intPtrString(f.Month))
}

// ParseFilter builds a filter from raw query or flag values; empty strings mean no constraint.
func ParseFilter(year, month string) (Filter, error) {
	var f Filter

	if s := strings.TrimSpace(year); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			return Filter{}, internal.NewValidationFieldError("year", "year must be a number", internal.ErrCodeInvalidFilter)
		}
		f.Year = &y
	}

	if s := strings.TrimSpace(month); s != "" {
		m, err := strconv.Atoi(s)
		if err != nil {
			return Filter{}, internal.NewValidationFieldError("month", "month must be a number", internal.ErrCodeInvalidFilter)
		}
		f.Month = &m
	}

	return f, nil
}

// Months returns the selectable months, 1 through 12.
func Months() []int {
	months := make([]int, 12)
	for i := range months {
		months[i] = i + 1
	}
	return months
}

// Years returns every year from..to inclusive, or nil when the range is empty.
func Years(from, to int) []int {
	if from > to {
		return nil
	}
	years := make([]int, 0, to-from+1)
	for y := from; y <= to; y++ {
		years = append(years, y)
	}
	return years
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func intPtrString(p *int) string {
	if p == nil {
		return "any"
	}
	return strconv.Itoa(*p)
}
