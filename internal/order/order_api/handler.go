package order_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fanpit-ticketing/internal/logger"
	"fanpit-ticketing/internal/order"
	"fanpit-ticketing/internal/pricing"
	"fanpit-ticketing/internal/utils"
	"fanpit-ticketing/internal/vip"
)

type Handler struct {
	OrderService      *order.OrderService
	AllocationService *vip.AllocationService
	Logger            *logger.Logger
}

func NewHandler(orderService *order.OrderService, allocationService *vip.AllocationService, log *logger.Logger) *Handler {
	return &Handler{
		OrderService:      orderService,
		AllocationService: allocationService,
		Logger:            log,
	}
}

// CreateDraft handles POST /order/draft.
func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req order.DraftRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.WriteError(w, utils.ValidationError("invalid request body: %v", err))
			return
		}
	}

	created, err := h.OrderService.CreateDraft(req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateDraft: %v", err))
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"ok": true,
		"order": map[string]interface{}{
			"id":          created.ID,
			"publicToken": created.PublicToken,
			"status":      created.Status,
		},
	})
}

type itemsRequest struct {
	Items []pricing.ItemRequest `json:"items"`
}

// SyncItems handles PUT /order/{publicToken}/items.
func (h *Handler) SyncItems(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "publicToken")

	var req itemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, utils.ValidationError("invalid request body: %v", err))
		return
	}

	result, err := h.OrderService.SyncItems(token, req.Items)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("SyncItems %s: %v", token, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("items saved", result))
}

type allocationBody struct {
	Allocations []vip.AllocationRequest `json:"allocations"`
}

// AllocateVipTables handles PUT /order/{publicToken}/vip-allocation.
func (h *Handler) AllocateVipTables(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "publicToken")

	var req allocationBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, utils.ValidationError("invalid request body: %v", err))
		return
	}

	summary, err := h.AllocationService.Allocate(token, req.Allocations)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("AllocateVipTables %s: %v", token, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("allocation saved", summary))
}

// GetPublicOrder handles GET /order/public?token=...
func (h *Handler) GetPublicOrder(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		utils.WriteError(w, utils.ValidationError("token query parameter is required"))
		return
	}

	result, err := h.OrderService.GetPublicOrder(token)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetPublicOrder %s: %v", token, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("order", result))
}
