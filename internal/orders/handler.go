package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dcastano/orders-ms/internal/domain"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type createOrderRequest struct {
	Items []domain.RequestedItem `json:"items"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Items) == 0 {
		h.writeError(w, http.StatusBadRequest, "order needs at least one item")
		return
	}
	for _, item := range req.Items {
		if item.ProductID == "" || item.Quantity < 1 {
			h.writeError(w, http.StatusBadRequest, "each item needs a product_id and a quantity of at least 1")
			return
		}
	}

	order, err := h.service.Create(r.Context(), req.Items)
	if err != nil {
		h.logger.Error("failed to create order", "error", err)
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.service.FindOne(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Page: defaultPage, Limit: defaultLimit}

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			h.writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		filter.Page = page
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.OrderStatus(raw)
		if !domain.ValidStatus(status) {
			h.writeError(w, http.StatusBadRequest, "unknown status "+raw)
			return
		}
		filter.Status = &status
	}

	page, err := h.service.FindAll(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, page)
}

type changeStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleChangeStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !domain.ValidStatus(req.Status) {
		h.writeError(w, http.StatusBadRequest, "unknown status "+string(req.Status))
		return
	}

	order, err := h.service.ChangeStatus(r.Context(), id, req.Status)
	if err != nil {
		h.logger.Error("failed to change order status", "error", err, "id", id)
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

// writeDomainError maps the workflow's error taxonomy onto HTTP statuses.
// Storage details never reach the client.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var domainErr *domain.Error
	message := "internal server error"
	status := http.StatusInternalServerError

	if errors.As(err, &domainErr) {
		switch domainErr.Kind {
		case domain.ErrKindNotFound:
			status = http.StatusNotFound
			message = domainErr.Message
		case domain.ErrKindUnknownProduct:
			status = http.StatusUnprocessableEntity
			message = domainErr.Message
		case domain.ErrKindRemoteValidation:
			status = http.StatusBadGateway
			message = domainErr.Message
		}
	}

	h.writeError(w, status, message)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
