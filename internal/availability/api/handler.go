package api

import (
	"fmt"
	"net/http"
	"strings"

	"fanpit-ticketing/internal/availability"
	"fanpit-ticketing/internal/logger"
	"fanpit-ticketing/internal/utils"
)

type Handler struct {
	Service *availability.Service
	Logger  *logger.Logger
}

func NewHandler(service *availability.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// GetAvailability handles GET /fanpit/availability?days=fri,sat,sun,mon.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	var days []string
	if raw := r.URL.Query().Get("days"); raw != "" {
		days = strings.Split(raw, ",")
	}

	report, err := h.Service.GetReport(days)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetAvailability: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("availability", report))
}
