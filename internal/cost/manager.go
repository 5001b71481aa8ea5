package cost

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/frahmantamala/cost-tracker/internal"
	"github.com/frahmantamala/cost-tracker/internal/core/events"
	"github.com/shopspring/decimal"
)

type State int

const (
	StateUninitialized State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "uninitialized"
}

// View is a consistent snapshot of what is currently displayed.
type View struct {
	Costs  []Cost          `json:"costs"`
	Total  decimal.Decimal `json:"total"`
	Filter Filter          `json:"filter"`
	Sort   SortOrder       `json:"sort"`
}

// Manager owns the in-memory mirror of the store and derives the filtered
// view and its total from it. It is the only writer of the mirror, and the
// mirror only changes after the store confirms a write.
type Manager struct {
	opener    Opener
	publisher events.Publisher
	logger    *slog.Logger

	mu     sync.RWMutex
	state  State
	store  Store
	full   []Cost
	filter Filter
	sort   SortOrder
	view   []Cost
	total  decimal.Decimal
}

// NewManager creates a manager in the uninitialized state. publisher may be nil.
func NewManager(opener Opener, publisher events.Publisher, logger *slog.Logger) *Manager {
	return &Manager{
		opener:    opener,
		publisher: publisher,
		logger:    logger,
		sort:      SortNone,
		view:      []Cost{},
		total:     decimal.Zero,
	}
}

// Open opens the store and loads the full set. It is a no-op once the manager is ready.
// On failure the manager stays uninitialized and Open may be called again.
func (m *Manager) Open(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateReady {
		m.mu.Unlock()
		return nil
	}

	store, err := m.opener.Open(ctx)
	if err != nil {
		m.mu.Unlock()
		m.logger.Error("failed to open cost store", "error", err)
		if _, ok := internal.IsAppError(err); ok {
			return err
		}
		return internal.NewStoreUnavailableError("failed to open cost store", err)
	}

	records, err := store.ListAll(ctx)
	if err != nil {
		m.mu.Unlock()
		m.logger.Error("failed to load costs", "error", err)
		return asReadError(err)
	}

	m.store = store
	m.full = records
	m.state = StateReady
	m.derive()
	event := m.changeEvent(events.EventTypeCostViewChanged, 0)
	m.mu.Unlock()

	m.logger.Info("cost store ready", "records", len(records))
	m.publish(ctx, event)
	return nil
}

// AddNewItem persists the draft and, once the store confirms, appends it with its new ID.
func (m *Manager) AddNewItem(ctx context.Context, draft Cost) (Cost, error) {
	draft.ID = 0

	err := m.mutate(ctx, events.EventTypeCostAdded, func(store Store) (int64, error) {
		id, err := store.Insert(ctx, draft)
		if err != nil {
			return 0, err
		}
		draft.ID = id
		m.full = append(m.full, draft)
		return id, nil
	})
	if err != nil {
		m.logger.Error("failed to add cost", "error", err, "item", draft.Item, "sum", draft.Sum.String())
		return Cost{}, asWriteError("failed to add cost", err)
	}

	m.logger.Info("cost added",
		"cost_id", draft.ID,
		"sum", draft.Sum.String(),
		"category", draft.Category)

	return draft, nil
}

// DeleteItem removes the record keyed by c.ID from the store and then from memory.
func (m *Manager) DeleteItem(ctx context.Context, c Cost) error {
	err := m.mutate(ctx, events.EventTypeCostDeleted, func(store Store) (int64, error) {
		if err := store.DeleteByKey(ctx, c.ID); err != nil {
			return 0, err
		}
		m.full = slices.DeleteFunc(m.full, func(x Cost) bool { return x.ID == c.ID })
		return c.ID, nil
	})
	if err != nil {
		m.logger.Error("failed to delete cost", "error", err, "cost_id", c.ID)
		return asWriteError("failed to delete cost", err)
	}

	m.logger.Info("cost deleted", "cost_id", c.ID)
	return nil
}

// UpdateItem fully replaces the record with c.ID.
func (m *Manager) UpdateItem(ctx context.Context, c Cost) (Cost, error) {
	err := m.mutate(ctx, events.EventTypeCostUpdated, func(store Store) (int64, error) {
		if err := store.Update(ctx, c); err != nil {
			return 0, err
		}
		m.replace(c)
		return c.ID, nil
	})
	if err != nil {
		m.logger.Error("failed to update cost", "error", err, "cost_id", c.ID)
		return Cost{}, asWriteError("failed to update cost", err)
	}

	m.logger.Info("cost updated", "cost_id", c.ID)
	return c, nil
}

// ToggleStar flips the starred flag of a loaded record.
func (m *Manager) ToggleStar(ctx context.Context, id int64) (Cost, error) {
	var updated Cost

	err := m.mutate(ctx, events.EventTypeCostUpdated, func(store Store) (int64, error) {
		idx := slices.IndexFunc(m.full, func(x Cost) bool { return x.ID == id })
		if idx < 0 {
			return 0, internal.ErrCostNotFound
		}
		updated = m.full[idx]
		updated.Starred = !updated.Starred
		if err := store.Update(ctx, updated); err != nil {
			return 0, err
		}
		m.full[idx] = updated
		return id, nil
	})
	if err != nil {
		m.logger.Error("failed to toggle star", "error", err, "cost_id", id)
		return Cost{}, err
	}

	m.logger.Info("cost star toggled", "cost_id", id, "starred", updated.Starred)
	return updated, nil
}

// Reload re-reads the full set from the store. On failure the current view is kept.
func (m *Manager) Reload(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateReady {
		m.mu.Unlock()
		return internal.ErrStoreNotOpen
	}

	records, err := m.store.ListAll(ctx)
	if err != nil {
		m.mu.Unlock()
		m.logger.Error("failed to reload costs", "error", err)
		return asReadError(err)
	}

	m.full = records
	m.derive()
	event := m.changeEvent(events.EventTypeCostViewChanged, 0)
	m.mu.Unlock()

	m.publish(ctx, event)
	return nil
}

// SetFilter replaces the active filter and re-derives the view from memory.
func (m *Manager) SetFilter(f Filter) {
	m.mu.Lock()
	m.filter = NewFilter(f.Year, f.Month)
	m.derive()
	event := m.changeEvent(events.EventTypeCostViewChanged, 0)
	m.mu.Unlock()

	m.logger.Debug("filter applied", "filter", f.String(), "view_size", event.ViewSize)
	m.publish(context.Background(), event)
}

// SetSort orders the view by amount.
func (m *Manager) SetSort(order SortOrder) {
	m.mu.Lock()
	m.sort = order
	m.derive()
	event := m.changeEvent(events.EventTypeCostViewChanged, 0)
	m.mu.Unlock()

	m.publish(context.Background(), event)
}

// ToggleSort flips between ascending and descending amount order and returns the new order.
func (m *Manager) ToggleSort() SortOrder {
	m.mu.Lock()
	m.sort = m.sort.Next()
	next := m.sort
	m.derive()
	event := m.changeEvent(events.EventTypeCostViewChanged, 0)
	m.mu.Unlock()

	m.publish(context.Background(), event)
	return next
}

func (m *Manager) CurrentView() []Cost {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.view)
}

func (m *Manager) CurrentTotal() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total
}

func (m *Manager) Filter() Filter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return NewFilter(m.filter.Year, m.filter.Month)
}

func (m *Manager) Sort() SortOrder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sort
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Snapshot returns view, total, filter and sort read under one lock.
func (m *Manager) Snapshot() View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return View{
		Costs:  slices.Clone(m.view),
		Total:  m.total,
		Filter: NewFilter(m.filter.Year, m.filter.Month),
		Sort:   m.sort,
	}
}

// Get looks a record up in the full set, ignoring the filter.
func (m *Manager) Get(id int64) (Cost, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx := slices.IndexFunc(m.full, func(x Cost) bool { return x.ID == id })
	if idx < 0 {
		return Cost{}, false
	}
	return m.full[idx], true
}

// Ping checks the store the manager holds. It fails with ErrStoreNotOpen until Open succeeds.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	store := m.store
	m.mu.RUnlock()

	if store == nil {
		return internal.ErrStoreNotOpen
	}
	return store.Ping(ctx)
}

// Close closes the store and returns the manager to the uninitialized state.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		return nil
	}
	err := m.store.Close()
	m.store = nil
	m.state = StateUninitialized
	m.full = nil
	m.derive()
	return err
}

// mutate runs fn against the store under the write lock, so no other mutation
// interleaves between the request and the mirror update. fn must change the
// mirror only after the store has confirmed.
func (m *Manager) mutate(ctx context.Context, eventType string, fn func(store Store) (int64, error)) error {
	m.mu.Lock()
	if m.state != StateReady {
		m.mu.Unlock()
		return internal.ErrStoreNotOpen
	}

	costID, err := fn(m.store)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	m.derive()
	event := m.changeEvent(eventType, costID)
	m.mu.Unlock()

	m.publish(ctx, event)
	return nil
}

func (m *Manager) replace(c Cost) {
	idx := slices.IndexFunc(m.full, func(x Cost) bool { return x.ID == c.ID })
	if idx < 0 {
		m.full = append(m.full, c)
		return
	}
	m.full[idx] = c
}

// derive recomputes the view and total. Callers hold the write lock.
func (m *Manager) derive() {
	m.view = m.filter.Apply(m.full)
	m.sort.Apply(m.view)
	m.total = Total(m.view)
}

func (m *Manager) changeEvent(eventType string, costID int64) *events.CostChangedEvent {
	return events.NewCostChangedEvent(eventType, costID, len(m.view), m.total)
}

func (m *Manager) publish(ctx context.Context, event events.Event) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		if errors.Is(err, events.ErrBusClosed) {
			m.logger.Debug("cost event dropped after shutdown", "event_type", event.EventType())
			return
		}
		m.logger.Warn("failed to publish cost event", "event_type", event.EventType(), "error", err)
	}
}

// Total sums the amounts of costs.
func Total(costs []Cost) decimal.Decimal {
	total := decimal.Zero
	for _, c := range costs {
		total = total.Add(c.Sum)
	}
	return total
}

func asWriteError(message string, err error) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	return internal.NewWriteError(message, err)
}

func asReadError(err error) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	return internal.NewReadError("failed to list costs", err)
}
