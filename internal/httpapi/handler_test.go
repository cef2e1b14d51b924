package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andikajayaw/queue-system-backend/internal/models"
	"github.com/andikajayaw/queue-system-backend/internal/queue"
	"github.com/andikajayaw/queue-system-backend/internal/store"
)

const (
	ticketUUID = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	staffUUID  = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
)

type fakeService struct {
	createFn      func(ctx context.Context, input queue.CreateTicketInput) (models.Ticket, error)
	callNextFn    func(ctx context.Context, staffID string) (queue.CallResult, error)
	callTicketFn  func(ctx context.Context, ticketID, staffID string) (queue.CallResult, error)
	callNumberFn  func(ctx context.Context, number, staffID string) (queue.CallResult, error)
	recallFn      func(ctx context.Context, ticketID string) (string, error)
	beginFn       func(ctx context.Context, ticketID, staffID string) (models.Ticket, error)
	completeFn    func(ctx context.Context, ticketID string) (models.Ticket, error)
	cancelFn      func(ctx context.Context, ticketID, staffID string) (models.Ticket, error)
	getFn         func(ctx context.Context, ticketID string) (models.Ticket, error)
	getByNumberFn func(ctx context.Context, number string) (models.Ticket, error)
	waitingFn     func(ctx context.Context, limit int) ([]models.Ticket, error)
	calledFn      func(ctx context.Context) ([]models.CalledTicket, error)
	completedFn   func(ctx context.Context, limit int) ([]models.CalledTicket, error)
	statsFn       func(ctx context.Context) (models.QueueStats, error)
}

func (f fakeService) CreateTicket(ctx context.Context, input queue.CreateTicketInput) (models.Ticket, error) {
	if f.createFn == nil {
		return models.Ticket{}, nil
	}
	return f.createFn(ctx, input)
}

func (f fakeService) CallNext(ctx context.Context, staffID string) (queue.CallResult, error) {
	if f.callNextFn == nil {
		return queue.CallResult{}, nil
	}
	return f.callNextFn(ctx, staffID)
}

func (f fakeService) CallTicket(ctx context.Context, ticketID, staffID string) (queue.CallResult, error) {
	if f.callTicketFn == nil {
		return queue.CallResult{}, nil
	}
	return f.callTicketFn(ctx, ticketID, staffID)
}

func (f fakeService) CallByNumber(ctx context.Context, number, staffID string) (queue.CallResult, error) {
	if f.callNumberFn == nil {
		return queue.CallResult{}, nil
	}
	return f.callNumberFn(ctx, number, staffID)
}

func (f fakeService) Recall(ctx context.Context, ticketID string) (string, error) {
	if f.recallFn == nil {
		return "", nil
	}
	return f.recallFn(ctx, ticketID)
}

func (f fakeService) BeginService(ctx context.Context, ticketID, staffID string) (models.Ticket, error) {
	if f.beginFn == nil {
		return models.Ticket{}, nil
	}
	return f.beginFn(ctx, ticketID, staffID)
}

func (f fakeService) CompleteService(ctx context.Context, ticketID string) (models.Ticket, error) {
	if f.completeFn == nil {
		return models.Ticket{}, nil
	}
	return f.completeFn(ctx, ticketID)
}

func (f fakeService) Cancel(ctx context.Context, ticketID, staffID string) (models.Ticket, error) {
	if f.cancelFn == nil {
		return models.Ticket{}, nil
	}
	return f.cancelFn(ctx, ticketID, staffID)
}

func (f fakeService) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	if f.getFn == nil {
		return models.Ticket{}, nil
	}
	return f.getFn(ctx, ticketID)
}

func (f fakeService) GetTicketByNumber(ctx context.Context, number string) (models.Ticket, error) {
	if f.getByNumberFn == nil {
		return models.Ticket{}, nil
	}
	return f.getByNumberFn(ctx, number)
}

func (f fakeService) ListWaiting(ctx context.Context, limit int) ([]models.Ticket, error) {
	if f.waitingFn == nil {
		return nil, nil
	}
	return f.waitingFn(ctx, limit)
}

func (f fakeService) ListCalled(ctx context.Context) ([]models.CalledTicket, error) {
	if f.calledFn == nil {
		return nil, nil
	}
	return f.calledFn(ctx)
}

func (f fakeService) ListCompleted(ctx context.Context, limit int) ([]models.CalledTicket, error) {
	if f.completedFn == nil {
		return nil, nil
	}
	return f.completedFn(ctx, limit)
}

func (f fakeService) Stats(ctx context.Context) (models.QueueStats, error) {
	if f.statsFn == nil {
		return models.QueueStats{}, nil
	}
	return f.statsFn(ctx)
}

func doJSON(t *testing.T, h *Handler, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	resp := httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, req)
	return resp
}

func TestCreateTicketSuccess(t *testing.T) {
	svc := fakeService{
		createFn: func(ctx context.Context, input queue.CreateTicketInput) (models.Ticket, error) {
			if input.Type != models.TypeWalkIn {
				t.Fatalf("unexpected input: %+v", input)
			}
			return models.Ticket{TicketID: ticketUUID, Number: "W001", Status: models.StatusWaiting}, nil
		},
	}
	h := NewHandler(svc)

	resp := doJSON(t, h, http.MethodPost, "/api/tickets", map[string]string{"type": "walk_in"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}

	var ticket models.Ticket
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if ticket.Number != "W001" {
		t.Fatalf("unexpected ticket: %+v", ticket)
	}
}

func TestCreateTicketValidationError(t *testing.T) {
	svc := fakeService{
		createFn: func(ctx context.Context, input queue.CreateTicketInput) (models.Ticket, error) {
			return models.Ticket{}, store.ErrValidation
		},
	}
	h := NewHandler(svc)

	resp := doJSON(t, h, http.MethodPost, "/api/tickets", map[string]string{"type": "reservation"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}

	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error.Code != "invalid_request" {
		t.Fatalf("unexpected error code %q", body.Error.Code)
	}
}

func TestCreateTicketRejectsUnknownFields(t *testing.T) {
	h := NewHandler(fakeService{})

	resp := doJSON(t, h, http.MethodPost, "/api/tickets", map[string]string{"type": "walk_in", "priority": "high"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestCallNextSuccess(t *testing.T) {
	svc := fakeService{
		callNextFn: func(ctx context.Context, staffID string) (queue.CallResult, error) {
			if staffID != staffUUID {
				t.Fatalf("unexpected staff id %q", staffID)
			}
			return queue.CallResult{
				Ticket:       models.Ticket{TicketID: ticketUUID, Number: "R001", Status: models.StatusCalled},
				Staff:        models.Staff{StaffID: staffUUID, Name: "Counter 1"},
				Announcement: "Queue number R 001, please proceed to the counter",
			}, nil
		},
	}
	h := NewHandler(svc)

	resp := doJSON(t, h, http.MethodPost, "/api/calls/next", map[string]string{"staff_id": staffUUID})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var result callResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.NoneWaiting || result.Ticket == nil || result.Ticket.Number != "R001" {
		t.Fatalf("unexpected response: %+v", result)
	}
}

func TestCallNextEmptyBacklogIsOK(t *testing.T) {
	svc := fakeService{
		callNextFn: func(ctx context.Context, staffID string) (queue.CallResult, error) {
			return queue.CallResult{NoneWaiting: true, Announcement: "There is no queue waiting"}, nil
		},
	}
	h := NewHandler(svc)

	resp := doJSON(t, h, http.MethodPost, "/api/calls/next", map[string]string{"staff_id": staffUUID})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var result callResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.NoneWaiting || result.Ticket != nil {
		t.Fatalf("unexpected response: %+v", result)
	}
}

func TestCallNextMissingStaff(t *testing.T) {
	h := NewHandler(fakeService{})

	resp := doJSON(t, h, http.MethodPost, "/api/calls/next", map[string]string{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestCallTicketConflict(t *testing.T) {
	svc := fakeService{
		callTicketFn: func(ctx context.Context, ticketID, staffID string) (queue.CallResult, error) {
			return queue.CallResult{}, store.ErrClaimConflict
		},
	}
	h := NewHandler(svc)

	resp := doJSON(t, h, http.MethodPost, "/api/calls/"+ticketUUID, map[string]string{"staff_id": staffUUID})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}

	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error.Code != "claim_conflict" {
		t.Fatalf("unexpected error code %q", body.Error.Code)
	}
}

func TestCallByNumberInvalidFormat(t *testing.T) {
	h := NewHandler(fakeService{})

	resp := doJSON(t, h, http.MethodPost, "/api/calls/number/X123", map[string]string{"staff_id": staffUUID})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestGetTicketNotFound(t *testing.T) {
	svc := fakeService{
		getFn: func(ctx context.Context, ticketID string) (models.Ticket, error) {
			return models.Ticket{}, store.ErrTicketNotFound
		},
	}
	h := NewHandler(svc)

	resp := doJSON(t, h, http.MethodGet, "/api/tickets/"+ticketUUID, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestGetTicketByNumber(t *testing.T) {
	svc := fakeService{
		getByNumberFn: func(ctx context.Context, number string) (models.Ticket, error) {
			return models.Ticket{TicketID: ticketUUID, Number: number, Status: models.StatusWaiting}, nil
		},
	}
	h := NewHandler(svc)

	resp := doJSON(t, h, http.MethodGet, "/api/tickets/number/W007", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}

func TestRecallInvalidState(t *testing.T) {
	svc := fakeService{
		recallFn: func(ctx context.Context, ticketID string) (string, error) {
			return "", store.ErrInvalidState
		},
	}
	h := NewHandler(svc)

	resp := doJSON(t, h, http.MethodPost, "/api/tickets/"+ticketUUID+"/actions/recall", nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestCancelWrongStaff(t *testing.T) {
	svc := fakeService{
		cancelFn: func(ctx context.Context, ticketID, staffID string) (models.Ticket, error) {
			return models.Ticket{}, store.ErrNotAssigned
		},
	}
	h := NewHandler(svc)

	resp := doJSON(t, h, http.MethodPost, "/api/tickets/"+ticketUUID+"/actions/cancel", map[string]string{"staff_id": staffUUID})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestUnknownActionIs404(t *testing.T) {
	h := NewHandler(fakeService{})

	resp := doJSON(t, h, http.MethodPost, "/api/tickets/"+ticketUUID+"/actions/archive", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestWaitingListDefaults(t *testing.T) {
	svc := fakeService{
		waitingFn: func(ctx context.Context, limit int) ([]models.Ticket, error) {
			if limit != 0 {
				t.Fatalf("expected no limit by default, got %d", limit)
			}
			return nil, nil
		},
	}
	h := NewHandler(svc)

	resp := doJSON(t, h, http.MethodGet, "/api/queue/waiting", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if body := resp.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty array, got %q", body)
	}
}

func TestWaitingListBadLimit(t *testing.T) {
	h := NewHandler(fakeService{})

	resp := doJSON(t, h, http.MethodGet, "/api/queue/waiting?limit=-3", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestStats(t *testing.T) {
	svc := fakeService{
		statsFn: func(ctx context.Context) (models.QueueStats, error) {
			return models.QueueStats{TotalToday: 7, WaitingCount: 3}, nil
		},
	}
	h := NewHandler(svc)

	resp := doJSON(t, h, http.MethodGet, "/api/queue/stats", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var stats models.QueueStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalToday != 7 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewHandler(fakeService{})

	resp := doJSON(t, h, http.MethodDelete, "/api/tickets", nil)
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", resp.Code)
	}
}
