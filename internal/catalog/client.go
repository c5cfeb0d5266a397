// Package catalog talks to the product catalog service. The catalog is the
// system of record for product identity, name and price; orders only ever
// see point-in-time snapshots of it.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/dcastano/orders-ms/internal/domain"
	"github.com/dcastano/orders-ms/internal/messaging"
)

const (
	RequestTopic = "catalog.validate-products.request"
	ReplyTopic   = "catalog.validate-products.reply"
)

const defaultRequestTimeout = 5 * time.Second

// Client validates product ids against the catalog and returns a snapshot
// for every id the catalog knows. Ids unknown to the catalog are simply
// absent from the result; callers decide whether that is fatal.
type Client interface {
	ValidateProducts(ctx context.Context, productIDs []string) ([]domain.ProductSnapshot, error)
}

type validateRequest struct {
	CorrelationID string   `json:"correlation_id"`
	ProductIDs    []string `json:"product_ids"`
}

type validateReply struct {
	CorrelationID string                   `json:"correlation_id"`
	Products      []domain.ProductSnapshot `json:"products"`
	Error         string                   `json:"error,omitempty"`
}

// KafkaClient implements request/reply over two Kafka topics. Requests are
// keyed by a correlation id; a background consumer on the reply topic hands
// each reply to the call waiting on its correlation id. Every instance uses
// its own consumer group so all instances see all replies.
type KafkaClient struct {
	producer *messaging.Producer
	consumer *messaging.Consumer
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]chan validateReply
}

type KafkaClientOption func(*KafkaClient)

func WithRequestTimeout(d time.Duration) KafkaClientOption {
	return func(c *KafkaClient) {
		c.timeout = d
	}
}

func NewKafkaClient(brokers []string, logger *slog.Logger, opts ...KafkaClientOption) *KafkaClient {
	c := &KafkaClient{
		producer: messaging.NewProducer(brokers, RequestTopic,
			messaging.WithBatchTimeout(10*time.Millisecond),
			messaging.WithRequiredAcks(kafka.RequireOne),
		),
		consumer: messaging.NewConsumer(brokers, ReplyTopic,
			"catalog-replies-"+uuid.NewString(),
			messaging.WithStartOffset(kafka.LastOffset),
		),
		timeout: defaultRequestTimeout,
		logger:  logger,
		pending: make(map[string]chan validateReply),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start runs the reply consumer until ctx is cancelled. It must be running
// before ValidateProducts is called.
func (c *KafkaClient) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleReply)
}

func (c *KafkaClient) handleReply(_ context.Context, payload []byte) error {
	var reply validateReply
	if err := json.Unmarshal(payload, &reply); err != nil {
		c.logger.Warn("discarding malformed catalog reply", "error", err)
		return nil
	}

	c.mu.Lock()
	ch, ok := c.pending[reply.CorrelationID]
	delete(c.pending, reply.CorrelationID)
	c.mu.Unlock()

	if !ok {
		// Reply for a call that already timed out or another instance's call.
		return nil
	}

	ch <- reply
	return nil
}

func (c *KafkaClient) register(correlationID string) chan validateReply {
	ch := make(chan validateReply, 1)
	c.mu.Lock()
	c.pending[correlationID] = ch
	c.mu.Unlock()
	return ch
}

func (c *KafkaClient) deregister(correlationID string) {
	c.mu.Lock()
	delete(c.pending, correlationID)
	c.mu.Unlock()
}

func (c *KafkaClient) ValidateProducts(ctx context.Context, productIDs []string) ([]domain.ProductSnapshot, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	correlationID := uuid.NewString()
	ch := c.register(correlationID)
	defer c.deregister(correlationID)

	req := validateRequest{
		CorrelationID: correlationID,
		ProductIDs:    productIDs,
	}
	if err := c.producer.Publish(ctx, correlationID, req); err != nil {
		return nil, domain.NewRemoteValidationError(err)
	}

	select {
	case reply := <-ch:
		if reply.Error != "" {
			return nil, domain.NewRemoteValidationError(errors.New(reply.Error))
		}
		return reply.Products, nil
	case <-ctx.Done():
		return nil, domain.NewRemoteValidationError(ctx.Err())
	}
}

func (c *KafkaClient) Close() error {
	if err := c.producer.Close(); err != nil {
		_ = c.consumer.Close()
		return err
	}
	return c.consumer.Close()
}
