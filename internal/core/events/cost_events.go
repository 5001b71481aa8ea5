package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeCostAdded       = "cost.added"
	EventTypeCostUpdated     = "cost.updated"
	EventTypeCostDeleted     = "cost.deleted"
	EventTypeCostViewChanged = "cost.view_changed"
)

// CostEventTypes lists every event the collection manager emits.
var CostEventTypes = []string{
	EventTypeCostAdded,
	EventTypeCostUpdated,
	EventTypeCostDeleted,
	EventTypeCostViewChanged,
}

// CostChangedEvent tells dependents that the displayed collection changed and
// carries the figures they need to redraw a summary without re-reading.
type CostChangedEvent struct {
	BaseEvent
	CostID   int64           `json:"cost_id,omitempty"`
	ViewSize int             `json:"view_size"`
	Total    decimal.Decimal `json:"total"`
}

func NewCostChangedEvent(eventType string, costID int64, viewSize int, total decimal.Decimal) *CostChangedEvent {
	return &CostChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"cost_id":   costID,
				"view_size": viewSize,
				"total":     total.String(),
			},
		},
		CostID:   costID,
		ViewSize: viewSize,
		Total:    total,
	}
}
