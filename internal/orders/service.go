package orders

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dcastano/orders-ms/internal/catalog"
	"github.com/dcastano/orders-ms/internal/domain"
	"github.com/dcastano/orders-ms/internal/pricing"
)

// ListFilter selects a page of orders, optionally restricted to one status.
type ListFilter struct {
	Status *domain.OrderStatus
	Page   int
	Limit  int
}

// Store owns durable order state. GetByID and UpdateStatus return nil,nil
// when no order matches.
type Store interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Order, int, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

type Meta struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	LastPage int `json:"last_page"`
}

type Page struct {
	Data []domain.Order `json:"data"`
	Meta Meta           `json:"meta"`
}

// Service sequences remote validation, pricing and persistence for every
// order operation. All dependencies are injected; the service holds no
// state between calls.
type Service struct {
	store   Store
	catalog catalog.Client
	events  eventPublisher
	logger  *slog.Logger
}

// NewService wires the workflow. events may be nil when integration events
// are disabled.
func NewService(store Store, catalogClient catalog.Client, events eventPublisher, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		catalog: catalogClient,
		events:  events,
		logger:  logger,
	}
}

// Create validates the requested items against the catalog, prices them
// from the returned snapshots, and persists the order atomically. Totals
// are derived from catalog prices only; client-submitted data never reaches
// the money math. Any failure leaves storage untouched.
func (s *Service) Create(ctx context.Context, items []domain.RequestedItem) (*domain.Order, error) {
	snapshots, err := s.catalog.ValidateProducts(ctx, distinctProductIDs(items))
	if err != nil {
		return nil, asRemoteError(err)
	}

	valuation, err := pricing.Price(items, snapshots)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &domain.Order{
		Items:       valuation.Lines,
		TotalAmount: valuation.TotalAmount,
		TotalItems:  valuation.TotalItems,
		Status:      domain.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Create(ctx, order); err != nil {
		return nil, domain.NewStorageError(err)
	}

	if s.events != nil {
		event := domain.OrderCreatedEvent{
			OrderID:     order.ID,
			Items:       order.Items,
			TotalAmount: order.TotalAmount,
			TotalItems:  order.TotalItems,
			Timestamp:   order.CreatedAt,
		}
		if err := s.events.Publish(ctx, order.ID, event); err != nil {
			s.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
		}
	}

	s.logger.Info("order created",
		"order_id", order.ID,
		"total_amount", order.TotalAmount,
		"total_items", order.TotalItems,
	)
	return order, nil
}

// FindOne loads an order and re-validates its product ids so items carry
// current catalog names. The names are not denormalized into storage, so
// the catalog must be reachable even for this purely local read.
func (s *Service) FindOne(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewStorageError(err)
	}
	if order == nil {
		return nil, domain.NewNotFoundError(id)
	}

	ids := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}

	snapshots, err := s.catalog.ValidateProducts(ctx, ids)
	if err != nil {
		return nil, asRemoteError(err)
	}

	names := make(map[string]string, len(snapshots))
	for _, snapshot := range snapshots {
		names[snapshot.ID] = snapshot.Name
	}
	for i := range order.Items {
		// Products delisted since creation keep an empty name; the stored
		// price and quantity stay authoritative.
		order.Items[i].Name = names[order.Items[i].ProductID]
	}

	return order, nil
}

// FindAll is a local read: no catalog call, raw order rows without items.
func (s *Service) FindAll(ctx context.Context, filter ListFilter) (*Page, error) {
	data, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, domain.NewStorageError(err)
	}

	lastPage := 0
	if filter.Limit > 0 {
		lastPage = (total + filter.Limit - 1) / filter.Limit
	}

	return &Page{
		Data: data,
		Meta: Meta{
			Total:    total,
			Page:     filter.Page,
			LastPage: lastPage,
		},
	}, nil
}

// ChangeStatus moves an order to the given status. Requesting the status
// the order already has is a successful no-op with no write. No transition
// table restricts which status may follow which.
func (s *Service) ChangeStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	order, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status == status {
		return order, nil
	}

	updated, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, domain.NewStorageError(err)
	}
	if updated == nil {
		return nil, domain.NewNotFoundError(id)
	}

	if s.events != nil {
		event := domain.OrderStatusChangedEvent{
			OrderID:   id,
			OldStatus: order.Status,
			NewStatus: status,
			Timestamp: time.Now().UTC(),
		}
		if err := s.events.Publish(ctx, id, event); err != nil {
			s.logger.Error("failed to publish status changed event", "error", err, "order_id", id)
		}
	}

	s.logger.Info("order status changed", "order_id", id, "from", order.Status, "to", status)
	return updated, nil
}

// distinctProductIDs keeps one remote lookup per product even when the same
// id appears on several lines.
func distinctProductIDs(items []domain.RequestedItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

func asRemoteError(err error) error {
	var e *domain.Error
	if errors.As(err, &e) {
		return e
	}
	return domain.NewRemoteValidationError(err)
}
