package cost

import (
	"slices"
	"strings"

	"github.com/frahmantamala/cost-tracker/internal"
)

// SortOrder orders the view by amount. SortNone keeps store order.
type SortOrder string

const (
	SortNone SortOrder = "none"
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortNone:
		return SortNone, nil
	case SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	}
	return SortNone, internal.NewValidationFieldError("order", "order must be one of [none asc desc]", internal.ErrCodeInvalidSort)
}

// Next returns the order a toggle moves to: asc after none or desc, desc after asc.
func (o SortOrder) Next() SortOrder {
	if o == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// Apply sorts costs in place. Equal amounts keep their relative order.
func (o SortOrder) Apply(costs []Cost) {
	switch o {
	case SortAsc:
		slices.SortStableFunc(costs, func(a, b Cost) int { return a.Sum.Cmp(b.Sum) })
	case SortDesc:
		slices.SortStableFunc(costs, func(a, b Cost) int { return b.Sum.Cmp(a.Sum) })
	}
}
