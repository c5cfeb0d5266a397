package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dcastano/orders-ms/internal/domain"
)

// ProductFinder is the storage the responder answers from.
type ProductFinder interface {
	FindByIDs(ctx context.Context, ids []string) ([]domain.ProductSnapshot, error)
}

type replyPublisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

// Responder is the catalog-service side of the validate_products contract:
// it consumes requests, looks the ids up, and publishes the found subset
// keyed by the request's correlation id. Unknown ids are left out of the
// reply; a storage failure is reported in the reply's error field so the
// caller fails instead of timing out.
type Responder struct {
	finder    ProductFinder
	publisher replyPublisher
	logger    *slog.Logger
}

func NewResponder(finder ProductFinder, publisher replyPublisher, logger *slog.Logger) *Responder {
	return &Responder{
		finder:    finder,
		publisher: publisher,
		logger:    logger,
	}
}

// Handle processes one validate request. Per-request failures are answered
// or logged rather than returned so one bad request cannot stop the
// consume loop.
func (r *Responder) Handle(ctx context.Context, payload []byte) error {
	var req validateRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		r.logger.Warn("discarding malformed validate request", "error", err)
		return nil
	}

	reply := validateReply{CorrelationID: req.CorrelationID}

	products, err := r.finder.FindByIDs(ctx, req.ProductIDs)
	if err != nil {
		r.logger.Error("product lookup failed", "error", err, "correlation_id", req.CorrelationID)
		reply.Error = fmt.Sprintf("product lookup failed: %v", err)
	} else {
		reply.Products = products
	}

	if err := r.publisher.Publish(ctx, req.CorrelationID, reply); err != nil {
		r.logger.Error("failed to publish validate reply", "error", err, "correlation_id", req.CorrelationID)
		return err
	}

	r.logger.Info("validate request answered",
		"correlation_id", req.CorrelationID,
		"requested", len(req.ProductIDs),
		"found", len(reply.Products),
	)
	return nil
}
