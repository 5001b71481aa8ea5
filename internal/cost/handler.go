package cost

import (
	"context"
	"net/http"
	"time"

	"github.com/frahmantamala/cost-tracker/internal"
	"github.com/frahmantamala/cost-tracker/internal/transport"
)

type ManagerAPI interface {
	AddNewItem(ctx context.Context, draft Cost) (Cost, error)
	UpdateItem(ctx context.Context, c Cost) (Cost, error)
	DeleteItem(ctx context.Context, c Cost) error
	ToggleStar(ctx context.Context, id int64) (Cost, error)
	SetFilter(f Filter)
	SetSort(order SortOrder)
	ToggleSort() SortOrder
	Snapshot() View
}

// categoryIcons maps each category to the Material icon name the UI draws for it.
var categoryIcons = map[Category]string{
	CategoryFood:      "fastfood",
	CategoryHealth:    "local_hospital",
	CategoryEducation: "school",
	CategoryTravel:    "explore",
	CategoryHousing:   "house",
	CategoryOther:     "more_horiz",
}

const defaultIcon = "more_horiz"

// IconFor returns the icon name for a category, falling back to the OTHER icon.
func IconFor(c Category) string {
	if icon, ok := categoryIcons[c]; ok {
		return icon
	}
	return defaultIcon
}

type Handler struct {
	*transport.BaseHandler
	Manager ManagerAPI
	Filters internal.FilterConfig
	now     func() time.Time
}

func NewHandler(baseHandler *transport.BaseHandler, manager ManagerAPI, filters internal.FilterConfig) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Manager:     manager,
		Filters:     filters,
		now:         time.Now,
	}
}

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	resp := CategoriesResponse{Categories: make([]CategoryResponse, 0, len(categories))}
	for _, c := range Categories() {
		resp.Categories = append(resp.Categories, CategoryResponse{Name: string(c), Icon: IconFor(c)})
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetCosts(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, toViewResponse(h.Manager.Snapshot()))
}

func (h *Handler) GetTotal(w http.ResponseWriter, r *http.Request) {
	view := h.Manager.Snapshot()
	h.WriteJSON(w, http.StatusOK, TotalResponse{
		Total:  view.Total,
		Count:  len(view.Costs),
		Filter: view.Filter,
	})
}

func (h *Handler) CreateCost(w http.ResponseWriter, r *http.Request) {
	var dto CreateCostDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("CreateCost: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := dto.Validate(); err != nil {
		h.Logger.Warn("CreateCost: validation error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	created, err := h.Manager.AddNewItem(r.Context(), dto.ToCost())
	if err != nil {
		h.Logger.Error("CreateCost: manager error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateCost: cost created successfully",
		"cost_id", created.ID,
		"sum", created.Sum.String(),
		"category", created.Category)

	h.WriteJSON(w, http.StatusCreated, toCostResponse(created))
}

func (h *Handler) UpdateCost(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid cost ID")
		return
	}

	var dto UpdateCostDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("UpdateCost: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	updated, err := h.Manager.UpdateItem(r.Context(), dto.ToCost(id))
	if err != nil {
		h.Logger.Error("UpdateCost: manager error", "error", err, "cost_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toCostResponse(updated))
}

func (h *Handler) DeleteCost(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid cost ID")
		return
	}

	if err := h.Manager.DeleteItem(r.Context(), Cost{ID: id}); err != nil {
		h.Logger.Error("DeleteCost: manager error", "error", err, "cost_id", id)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ToggleStar(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid cost ID")
		return
	}

	updated, err := h.Manager.ToggleStar(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toCostResponse(updated))
}

func (h *Handler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var dto FilterDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Manager.SetFilter(dto.ToFilter())
	h.WriteJSON(w, http.StatusOK, toViewResponse(h.Manager.Snapshot()))
}

func (h *Handler) SetSort(w http.ResponseWriter, r *http.Request) {
	var dto SortDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := ParseSortOrder(dto.Order)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Manager.SetSort(order)
	h.WriteJSON(w, http.StatusOK, toViewResponse(h.Manager.Snapshot()))
}

func (h *Handler) ToggleSort(w http.ResponseWriter, r *http.Request) {
	h.Manager.ToggleSort()
	h.WriteJSON(w, http.StatusOK, toViewResponse(h.Manager.Snapshot()))
}

func (h *Handler) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	from, to := h.Filters.YearRange(h.now())
	h.WriteJSON(w, http.StatusOK, FilterOptionsResponse{
		Years:  Years(from, to),
		Months: Months(),
	})
}

func toCostResponse(c Cost) CostResponse {
	return CostResponse{Cost: c, Icon: IconFor(c.Category)}
}

func toViewResponse(v View) ViewResponse {
	costs := make([]CostResponse, len(v.Costs))
	for i, c := range v.Costs {
		costs[i] = toCostResponse(c)
	}
	return ViewResponse{
		Costs:  costs,
		Total:  v.Total,
		Filter: v.Filter,
		Sort:   v.Sort,
	}
}
