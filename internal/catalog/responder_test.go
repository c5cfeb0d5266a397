package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dcastano/orders-ms/internal/domain"
)

type fakeFinder struct {
	products []domain.ProductSnapshot
	err      error
	gotIDs   []string
}

func (f *fakeFinder) FindByIDs(_ context.Context, ids []string) ([]domain.ProductSnapshot, error) {
	f.gotIDs = ids
	return f.products, f.err
}

type fakePublisher struct {
	key     string
	payload any
	err     error
	calls   int
}

func (f *fakePublisher) Publish(_ context.Context, key string, payload any) error {
	f.calls++
	f.key = key
	f.payload = payload
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResponder_Handle(t *testing.T) {
	t.Run("replies with found products keyed by correlation id", func(t *testing.T) {
		finder := &fakeFinder{
			products: []domain.ProductSnapshot{
				{ID: "A", Name: "Widget", Price: decimal.NewFromInt(10)},
			},
		}
		publisher := &fakePublisher{}
		responder := NewResponder(finder, publisher, discardLogger())

		payload, _ := json.Marshal(validateRequest{
			CorrelationID: "corr-1",
			ProductIDs:    []string{"A", "Z"},
		})

		if err := responder.Handle(context.Background(), payload); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if publisher.key != "corr-1" {
			t.Errorf("expected reply keyed by corr-1, got %s", publisher.key)
		}
		if len(finder.gotIDs) != 2 {
			t.Errorf("expected 2 requested ids, got %d", len(finder.gotIDs))
		}

		reply, ok := publisher.payload.(validateReply)
		if !ok {
			t.Fatalf("expected validateReply payload, got %T", publisher.payload)
		}
		if reply.CorrelationID != "corr-1" {
			t.Errorf("expected correlation id corr-1, got %s", reply.CorrelationID)
		}
		if len(reply.Products) != 1 || reply.Products[0].ID != "A" {
			t.Errorf("expected found subset [A], got %+v", reply.Products)
		}
		if reply.Error != "" {
			t.Errorf("expected no error in reply, got %q", reply.Error)
		}
	})

	t.Run("reports storage failure in the reply", func(t *testing.T) {
		finder := &fakeFinder{err: errors.New("connection refused")}
		publisher := &fakePublisher{}
		responder := NewResponder(finder, publisher, discardLogger())

		payload, _ := json.Marshal(validateRequest{CorrelationID: "corr-2", ProductIDs: []string{"A"}})

		if err := responder.Handle(context.Background(), payload); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		reply := publisher.payload.(validateReply)
		if reply.Error == "" {
			t.Error("expected error field set in reply")
		}
		if len(reply.Products) != 0 {
			t.Errorf("expected no products with error reply, got %d", len(reply.Products))
		}
	})

	t.Run("skips malformed requests without stopping the loop", func(t *testing.T) {
		publisher := &fakePublisher{}
		responder := NewResponder(&fakeFinder{}, publisher, discardLogger())

		if err := responder.Handle(context.Background(), []byte("not json")); err != nil {
			t.Fatalf("expected nil for malformed request, got %v", err)
		}
		if publisher.calls != 0 {
			t.Errorf("expected no reply for malformed request, got %d", publisher.calls)
		}
	})

	t.Run("propagates publish failure", func(t *testing.T) {
		publisher := &fakePublisher{err: errors.New("broker down")}
		responder := NewResponder(&fakeFinder{}, publisher, discardLogger())

		payload, _ := json.Marshal(validateRequest{CorrelationID: "corr-3"})

		if err := responder.Handle(context.Background(), payload); err == nil {
			t.Fatal("expected error when reply cannot be published")
		}
	})
}
