package handler

import (
	"encoding/json"
	"net/http"
	"roomslots/internal/reservations/service"
	httputil "roomslots/pkg/http"
	"roomslots/pkg/logger"
	"roomslots/pkg/middleware"
	"roomslots/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ReservationHandler struct {
	service service.ReservationService
	log     *logger.Logger
}

func NewReservationHandler(service service.ReservationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log,
	}
}

type ModifyResponse struct {
	ReservationID string `json:"reservation_id"`
	Modified      bool   `json:"modified"`
}

func (h *ReservationHandler) Reserve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var items []model.ReservationItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Reserve", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	reservation, err := h.service.Reserve(r.Context(), middleware.UserNameFromRequest(r), items)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Reserve", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, reservation); err != nil {
		h.log.Error("failed to write created response", "handler", "Reserve", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) Free(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var slotIDs []string
	if err := json.NewDecoder(r.Body).Decode(&slotIDs); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Free", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Free(r.Context(), slotIDs); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Free", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) Modify(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "Modify", "operation", "WriteJSON", "error", err)
		}
		return
	}

	var items []model.ReservationItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Modify", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	modified, err := h.service.Modify(r.Context(), id, items)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Modify", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, ModifyResponse{ReservationID: id, Modified: modified}); err != nil {
		h.log.Error("failed to write success response", "handler", "Modify", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Rooms(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rooms, err := h.service.Rooms(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Rooms", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, rooms); err != nil {
		h.log.Error("failed to write success response", "handler", "Rooms", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) SlotsByRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slots, err := h.service.SlotsByRoom(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "SlotsByRoom", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("failed to write success response", "handler", "SlotsByRoom", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) MySlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	slots, err := h.service.SlotsByOwner(r.Context(), middleware.UserNameFromRequest(r))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "MySlots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("failed to write success response", "handler", "MySlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) SlotsByReservation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slots, err := h.service.SlotsByReservation(r.Context(), ps.ByName("id"), middleware.UserNameFromRequest(r))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "SlotsByReservation", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("failed to write success response", "handler", "SlotsByReservation", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) AllSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "AllSlots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	slots, totalCount, err := h.service.AllSlots(r.Context(), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "AllSlots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, slots, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "AllSlots", "operation", "WritePaginated", "error", err)
	}
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/slots/reserve", h.Reserve)
	router.POST("/api/v1/slots/free", h.Free)
	router.GET("/api/v1/slots", h.AllSlots)
	router.GET("/api/v1/slots/my", h.MySlots)

	router.POST("/api/v1/reservations/:id/modify", h.Modify)
	router.GET("/api/v1/reservations/:id/slots", h.SlotsByReservation)

	router.GET("/api/v1/rooms", h.Rooms)
	router.GET("/api/v1/rooms/:id/slots", h.SlotsByRoom)
}
