//go:build integration

package test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dcastano/orders-ms/internal/catalog"
	"github.com/dcastano/orders-ms/internal/domain"
	"github.com/dcastano/orders-ms/internal/messaging"
	"github.com/dcastano/orders-ms/internal/orders"
)

// stubCatalog answers validations locally so storage tests do not need a
// broker.
type stubCatalog struct {
	products []domain.ProductSnapshot
}

func (s *stubCatalog) ValidateProducts(_ context.Context, ids []string) ([]domain.ProductSnapshot, error) {
	byID := make(map[string]domain.ProductSnapshot, len(s.products))
	for _, p := range s.products {
		byID[p.ID] = p
	}
	found := make([]domain.ProductSnapshot, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			found = append(found, p)
		}
	}
	return found, nil
}

func seededCatalog() *stubCatalog {
	return &stubCatalog{
		products: []domain.ProductSnapshot{
			{ID: "PROD-001", Name: "Widget", Price: decimal.NewFromInt(10)},
			{ID: "PROD-002", Name: "Gadget", Price: decimal.NewFromInt(5)},
		},
	}
}

func TestOrderLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := DBWithSchema(pg.ConnStr, "orders")
	if err != nil {
		t.Fatalf("failed to open orders DB: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := orders.NewOrderRepository(db)
	service := orders.NewService(repo, seededCatalog(), nil, slog.Default())

	created, err := service.Create(ctx, []domain.RequestedItem{
		{ProductID: "PROD-001", Quantity: 2},
		{ProductID: "PROD-002", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	if !created.TotalAmount.Equal(decimal.NewFromInt(25)) {
		t.Errorf("expected total amount 25, got %s", created.TotalAmount)
	}
	if created.TotalItems != 3 {
		t.Errorf("expected 3 total items, got %d", created.TotalItems)
	}

	stored, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if stored == nil {
		t.Fatal("order not found in database")
	}
	if len(stored.Items) != 2 {
		t.Fatalf("expected 2 stored items, got %d", len(stored.Items))
	}
	if !stored.Items[0].Price.Add(stored.Items[1].Price).Equal(decimal.NewFromInt(15)) {
		t.Errorf("unexpected stored unit prices: %s, %s", stored.Items[0].Price, stored.Items[1].Price)
	}

	found, err := service.FindOne(ctx, created.ID)
	if err != nil {
		t.Fatalf("failed to find order: %v", err)
	}
	names := map[string]bool{}
	for _, item := range found.Items {
		names[item.Name] = true
	}
	if !names["Widget"] || !names["Gadget"] {
		t.Errorf("expected enriched names Widget and Gadget, got %v", names)
	}

	// Same-status change is a no-op; updated_at must not move.
	noop, err := service.ChangeStatus(ctx, created.ID, domain.OrderStatusPending)
	if err != nil {
		t.Fatalf("failed no-op status change: %v", err)
	}
	if !noop.UpdatedAt.Equal(stored.UpdatedAt) {
		t.Errorf("expected no write on no-op, updated_at moved from %s to %s", stored.UpdatedAt, noop.UpdatedAt)
	}

	updated, err := service.ChangeStatus(ctx, created.ID, domain.OrderStatusPaid)
	if err != nil {
		t.Fatalf("failed status change: %v", err)
	}
	if updated.Status != domain.OrderStatusPaid {
		t.Errorf("expected paid status, got %s", updated.Status)
	}
	if !updated.UpdatedAt.After(stored.UpdatedAt) {
		t.Errorf("expected updated_at to advance, got %s", updated.UpdatedAt)
	}
}

func TestCreateLeavesNoPartialOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := DBWithSchema(pg.ConnStr, "orders")
	if err != nil {
		t.Fatalf("failed to open orders DB: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := orders.NewOrderRepository(db)
	service := orders.NewService(repo, seededCatalog(), nil, slog.Default())

	_, err = service.Create(ctx, []domain.RequestedItem{
		{ProductID: "PROD-001", Quantity: 1},
		{ProductID: "PROD-MISSING", Quantity: 1},
	})
	if err == nil {
		t.Fatal("expected create to fail for unknown product")
	}

	var orderCount, itemCount int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&orderCount); err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM order_items").Scan(&itemCount); err != nil {
		t.Fatalf("failed to count order items: %v", err)
	}
	if orderCount != 0 || itemCount != 0 {
		t.Errorf("expected empty storage, got %d orders and %d items", orderCount, itemCount)
	}
}

func TestListPagination(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := DBWithSchema(pg.ConnStr, "orders")
	if err != nil {
		t.Fatalf("failed to open orders DB: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := orders.NewOrderRepository(db)
	service := orders.NewService(repo, seededCatalog(), nil, slog.Default())

	for i := 0; i < 25; i++ {
		if _, err := service.Create(ctx, []domain.RequestedItem{{ProductID: "PROD-001", Quantity: 1}}); err != nil {
			t.Fatalf("failed to create order %d: %v", i, err)
		}
	}

	page, err := service.FindAll(ctx, orders.ListFilter{Page: 2, Limit: 10})
	if err != nil {
		t.Fatalf("failed to list orders: %v", err)
	}

	if page.Meta.Total != 25 {
		t.Errorf("expected total 25, got %d", page.Meta.Total)
	}
	if page.Meta.LastPage != 3 {
		t.Errorf("expected last page 3, got %d", page.Meta.LastPage)
	}
	if len(page.Data) != 10 {
		t.Errorf("expected 10 rows, got %d", len(page.Data))
	}

	pending := domain.OrderStatusPending
	filtered, err := service.FindAll(ctx, orders.ListFilter{Page: 1, Limit: 10, Status: &pending})
	if err != nil {
		t.Fatalf("failed to list by status: %v", err)
	}
	if filtered.Meta.Total != 25 {
		t.Errorf("expected 25 pending orders, got %d", filtered.Meta.Total)
	}
}

func TestCatalogValidateRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	brokers, cleanupKafka := SetupKafka(ctx, t)
	defer cleanupKafka()

	db, err := DBWithSchema(pg.ConnStr, "catalog")
	if err != nil {
		t.Fatalf("failed to open catalog DB: %v", err)
	}
	defer func() { _ = db.Close() }()

	logger := slog.Default()

	replyProducer := messaging.NewProducer(brokers, catalog.ReplyTopic,
		messaging.WithBatchTimeout(10*time.Millisecond),
	)
	defer func() { _ = replyProducer.Close() }()

	responder := catalog.NewResponder(catalog.NewProductRepository(db), replyProducer, logger)
	requestConsumer := messaging.NewConsumer(brokers, catalog.RequestTopic, "catalog-service-test")
	defer func() { _ = requestConsumer.Close() }()

	go func() {
		_ = requestConsumer.Consume(ctx, responder.Handle)
	}()

	client := catalog.NewKafkaClient(brokers, logger)
	defer func() { _ = client.Close() }()

	go func() {
		_ = client.Start(ctx)
	}()

	// First requests may race topic creation and consumer group setup;
	// retry with a short per-attempt deadline until the round trip succeeds.
	var snapshots []domain.ProductSnapshot
	deadline := time.Now().Add(2 * time.Minute)
	for {
		attemptCtx, attemptCancel := context.WithTimeout(ctx, 15*time.Second)
		snapshots, err = client.ValidateProducts(attemptCtx, []string{"PROD-001", "PROD-002", "PROD-MISSING"})
		attemptCancel()
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		t.Fatalf("validate round trip never succeeded: %v", err)
	}

	if len(snapshots) != 2 {
		t.Fatalf("expected 2 snapshots for known ids, got %d", len(snapshots))
	}
	prices := map[string]decimal.Decimal{}
	for _, s := range snapshots {
		prices[s.ID] = s.Price
	}
	if !prices["PROD-001"].Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected PROD-001 price 10, got %s", prices["PROD-001"])
	}
	if !prices["PROD-002"].Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected PROD-002 price 5, got %s", prices["PROD-002"])
	}
}
