package ticket_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fanpit-ticketing/internal/logger"
	"fanpit-ticketing/internal/tickets/qr"
	tickets "fanpit-ticketing/internal/tickets/service"
	"fanpit-ticketing/internal/utils"
)

type Handler struct {
	TicketService *tickets.TicketService
	Logger        *logger.Logger
}

func NewHandler(ticketService *tickets.TicketService, log *logger.Logger) *Handler {
	return &Handler{TicketService: ticketService, Logger: log}
}

// GetPublicTickets handles GET /tickets/public?token=...
// Reading a paid order's tickets is what triggers issuance and the
// one-time confirmation email.
func (h *Handler) GetPublicTickets(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		utils.WriteError(w, utils.ValidationError("token query parameter is required"))
		return
	}

	result, err := h.TicketService.GetPublicTickets(token)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetPublicTickets %s: %v", token, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("tickets", result))
}

// GetTicketQR handles GET /tickets/{ticketID}/qr, rendering the ticket's
// payload as a PNG.
func (h *Handler) GetTicketQR(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	ticket, err := h.TicketService.GetTicket(ticketID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTicketQR %s: %v", ticketID, err))
		utils.WriteError(w, err)
		return
	}

	png, err := qr.EncodePNG(ticket.QRPayload)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTicketQR %s: encode failed: %v", ticketID, err))
		utils.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
