package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/andikajayaw/queue-system-backend/internal/models"
	"github.com/andikajayaw/queue-system-backend/internal/queue"
	"github.com/andikajayaw/queue-system-backend/internal/store"

	"github.com/google/uuid"
)

type Handler struct {
	queue queue.Service
}

type createTicketRequest struct {
	Type         string `json:"type"`
	CustomerName string `json:"customer_name"`
	PhoneNumber  string `json:"phone_number"`
}

type callRequest struct {
	StaffID string `json:"staff_id"`
}

type callResponse struct {
	Ticket       *models.Ticket `json:"ticket,omitempty"`
	Staff        *models.Staff  `json:"staff,omitempty"`
	Announcement string         `json:"announcement"`
	NoneWaiting  bool           `json:"none_waiting"`
}

type recallResponse struct {
	TicketID     string `json:"ticket_id"`
	Announcement string `json:"announcement"`
}

type errorResponse struct {
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(service queue.Service) *Handler {
	return &Handler{queue: service}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/tickets", h.handleCreateTicket)
	mux.HandleFunc("/api/tickets/number/", h.handleTicketByNumber)
	mux.HandleFunc("/api/tickets/", h.handleTicketPath)
	mux.HandleFunc("/api/calls/next", h.handleCallNext)
	mux.HandleFunc("/api/calls/number/", h.handleCallByNumber)
	mux.HandleFunc("/api/calls/", h.handleCallTicket)
	mux.HandleFunc("/api/queue/waiting", h.handleWaiting)
	mux.HandleFunc("/api/queue/called", h.handleCalled)
	mux.HandleFunc("/api/queue/completed", h.handleCompleted)
	mux.HandleFunc("/api/queue/stats", h.handleStats)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req createTicketRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.Type = strings.TrimSpace(req.Type)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)

	if req.Type == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "type is required")
		return
	}
	if req.PhoneNumber != "" && !isValidPhone(req.PhoneNumber) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "phone_number must be 8-16 digits")
		return
	}

	ticket, err := h.queue.CreateTicket(r.Context(), queue.CreateTicketInput{
		Type:         req.Type,
		CustomerName: req.CustomerName,
		PhoneNumber:  req.PhoneNumber,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, r, status, code, msg)
		return
	}

	writeJSON(w, http.StatusCreated, ticket)
}

// handleTicketPath serves both GET /api/tickets/{id} and
// POST /api/tickets/{id}/actions/{action}.
func (h *Handler) handleTicketPath(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/tickets/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1:
		h.handleGetTicket(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "actions":
		h.handleTicketAction(w, r, parts[0], parts[2])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGetTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isValidUUID(ticketID) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "ticket_id must be a UUID")
		return
	}

	ticket, err := h.queue.GetTicket(r.Context(), ticketID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, r, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleTicketByNumber(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	number := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tickets/number/"), "/")
	if !isValidNumber(number) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "number must look like R001 or W001")
		return
	}

	ticket, err := h.queue.GetTicketByNumber(r.Context(), number)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, r, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleTicketAction(w http.ResponseWriter, r *http.Request, ticketID, action string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isValidUUID(ticketID) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "ticket_id must be a UUID")
		return
	}

	switch action {
	case "recall":
		announcement, err := h.queue.Recall(r.Context(), ticketID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, r, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, recallResponse{TicketID: ticketID, Announcement: announcement})
	case "start":
		req, ok := decodeCallRequest(w, r)
		if !ok {
			return
		}
		ticket, err := h.queue.BeginService(r.Context(), ticketID, req.StaffID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, r, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, ticket)
	case "complete":
		ticket, err := h.queue.CompleteService(r.Context(), ticketID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, r, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, ticket)
	case "cancel":
		req, ok := decodeCallRequest(w, r)
		if !ok {
			return
		}
		ticket, err := h.queue.Cancel(r.Context(), ticketID, req.StaffID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, r, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, ticket)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleCallNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, ok := decodeCallRequest(w, r)
	if !ok {
		return
	}

	result, err := h.queue.CallNext(r.Context(), req.StaffID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, r, status, code, msg)
		return
	}
	writeCallResult(w, result)
}

func (h *Handler) handleCallTicket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ticketID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/calls/"), "/")
	if !isValidUUID(ticketID) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "ticket_id must be a UUID")
		return
	}
	req, ok := decodeCallRequest(w, r)
	if !ok {
		return
	}

	result, err := h.queue.CallTicket(r.Context(), ticketID, req.StaffID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, r, status, code, msg)
		return
	}
	writeCallResult(w, result)
}

func (h *Handler) handleCallByNumber(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	number := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/calls/number/"), "/")
	if !isValidNumber(number) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "number must look like R001 or W001")
		return
	}
	req, ok := decodeCallRequest(w, r)
	if !ok {
		return
	}

	result, err := h.queue.CallByNumber(r.Context(), number, req.StaffID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, r, status, code, msg)
		return
	}
	writeCallResult(w, result)
}

func (h *Handler) handleWaiting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if limitRaw := strings.TrimSpace(r.URL.Query().Get("limit")); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil || parsed <= 0 {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	tickets, err := h.queue.ListWaiting(r.Context(), limit)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, r, status, code, msg)
		return
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleCalled(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	tickets, err := h.queue.ListCalled(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, r, status, code, msg)
		return
	}
	if tickets == nil {
		tickets = []models.CalledTicket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleCompleted(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	limit := 10
	if limitRaw := strings.TrimSpace(r.URL.Query().Get("limit")); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil || parsed <= 0 {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	tickets, err := h.queue.ListCompleted(r.Context(), limit)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, r, status, code, msg)
		return
	}
	if tickets == nil {
		tickets = []models.CalledTicket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, r, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func decodeCallRequest(w http.ResponseWriter, r *http.Request) (callRequest, bool) {
	var req callRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return callRequest{}, false
	}
	req.StaffID = strings.TrimSpace(req.StaffID)
	if req.StaffID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "staff_id is required")
		return callRequest{}, false
	}
	if !isValidUUID(req.StaffID) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "staff_id must be a UUID")
		return callRequest{}, false
	}
	return req, true
}

func writeCallResult(w http.ResponseWriter, result queue.CallResult) {
	resp := callResponse{
		Announcement: result.Announcement,
		NoneWaiting:  result.NoneWaiting,
	}
	if !result.NoneWaiting {
		ticket := result.Ticket
		staff := result.Staff
		resp.Ticket = &ticket
		resp.Staff = &staff
	}
	writeJSON(w, http.StatusOK, resp)
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func isValidPhone(value string) bool {
	if len(value) < 8 || len(value) > 16 {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isValidNumber(value string) bool {
	if len(value) < 2 {
		return false
	}
	if value[0] != 'R' && value[0] != 'W' {
		return false
	}
	for _, r := range value[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest, "invalid_request", err.Error()
	case errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "ticket_not_found", "ticket not found"
	case errors.Is(err, store.ErrStaffNotFound):
		return http.StatusNotFound, "staff_not_found", "staff not found"
	case errors.Is(err, store.ErrClaimConflict):
		return http.StatusConflict, "claim_conflict", "ticket was claimed by another station"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "ticket state does not allow this action"
	case errors.Is(err, store.ErrNotAssigned):
		return http.StatusConflict, "not_assigned", "ticket assigned to different staff"
	case errors.Is(err, store.ErrDuplicateNumber):
		return http.StatusConflict, "number_conflict", "queue number already taken"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestIDFrom(r),
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
