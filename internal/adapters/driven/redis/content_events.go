package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driving"
)

// ContentEventsConfig configures the CMS event stream consumer
type ContentEventsConfig struct {
	Stream       string
	Group        string
	Consumer     string
	BatchSize    int64
	BlockTimeout time.Duration // 0 uses the default; negative polls without blocking
	ClaimIdle    time.Duration // pending events idle this long are reclaimed for retry
}

func (c ContentEventsConfig) withDefaults() ContentEventsConfig {
	if c.Stream == "" {
		c.Stream = "cms:content-events"
	}
	if c.Group == "" {
		c.Group = "sercha-fuzzy"
	}
	if c.Consumer == "" {
		c.Consumer = newOwnerID()
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.BlockTimeout == 0 {
		c.BlockTimeout = 5 * time.Second
	}
	if c.ClaimIdle <= 0 {
		c.ClaimIdle = time.Minute
	}
	return c
}

// ContentEvent is one CMS mutation read from the stream.
// The stream entry carries event_type ("post.updated") and a JSON payload with the entity id.
type ContentEvent struct {
	MessageID string
	Type      string
	EntityID  int64
	CreatedAt time.Time
}

type contentPayload struct {
	ID int64 `json:"id"`
}

// ContentEventConsumer keeps the search indexes in step with CMS writes.
// Events that fail are left pending for redelivery; malformed ones are acknowledged and dropped.
type ContentEventConsumer struct {
	client  *redis.Client
	config  ContentEventsConfig
	index   driving.IndexService
	content driven.ContentRepository
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewContentEventConsumer creates a consumer on an existing client
func NewContentEventConsumer(client *redis.Client, cfg ContentEventsConfig, index driving.IndexService, content driven.ContentRepository, logger *slog.Logger) *ContentEventConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentEventConsumer{
		client:  client,
		config:  cfg.withDefaults(),
		index:   index,
		content: content,
		logger:  logger,
	}
}

// Start creates the consumer group if needed and begins consuming
func (c *ContentEventConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})

	c.logger.Info("content event consumer starting",
		"stream", c.config.Stream,
		"group", c.config.Group,
		"consumer", c.config.Consumer,
	)

	go c.consumeLoop(ctx)
	return nil
}

// Stop ends the consume loop and waits for the current batch
func (c *ContentEventConsumer) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	close(c.stopCh)
	c.mu.Unlock()

	<-c.doneCh

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	c.logger.Info("content event consumer stopped")
}

func (c *ContentEventConsumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.config.Stream, c.config.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", c.config.Group, err)
	}
	return nil
}

func (c *ContentEventConsumer) consumeLoop(ctx context.Context) {
	defer close(c.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		default:
		}

		if _, err := c.ProcessBatch(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("content event batch failed", "error", err)
			select {
			case <-time.After(time.Second):
			case <-c.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// ProcessBatch retries idle pending events, then reads one batch of new
// events. Events that apply cleanly are acknowledged. It returns the number
// acknowledged.
func (c *ContentEventConsumer) ProcessBatch(ctx context.Context) (int, error) {
	acked := 0

	reclaimed, err := c.reclaimIdle(ctx)
	if err != nil {
		c.logger.Warn("failed to reclaim pending content events", "error", err)
	}
	acked += c.apply(ctx, reclaimed)

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.config.Group,
		Consumer: c.config.Consumer,
		Streams:  []string{c.config.Stream, ">"},
		Count:    c.config.BatchSize,
		Block:    c.config.BlockTimeout,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return acked, nil
	}
	if err != nil {
		return acked, fmt.Errorf("read %s: %w", c.config.Stream, err)
	}

	for _, stream := range streams {
		acked += c.apply(ctx, stream.Messages)
	}
	return acked, nil
}

// reclaimIdle takes over events left pending longer than ClaimIdle, by this
// consumer after a failure or by one that died.
func (c *ContentEventConsumer) reclaimIdle(ctx context.Context) ([]redis.XMessage, error) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.config.Stream,
		Group:  c.config.Group,
		Start:  "-",
		End:    "+",
		Count:  c.config.BatchSize,
		Idle:   c.config.ClaimIdle,
	}).Result()
	if err != nil || len(pending) == 0 {
		return nil, err
	}

	ids := make([]string, len(pending))
	for i, p := range pending {
		ids[i] = p.ID
	}
	return c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.config.Stream,
		Group:    c.config.Group,
		Consumer: c.config.Consumer,
		MinIdle:  c.config.ClaimIdle,
		Messages: ids,
	}).Result()
}

func (c *ContentEventConsumer) apply(ctx context.Context, msgs []redis.XMessage) int {
	acked := 0
	for _, msg := range msgs {
		ev, err := parseContentEvent(msg)
		if err != nil {
			c.logger.Warn("dropping malformed content event", "message_id", msg.ID, "error", err)
		} else if err := c.Handle(ctx, ev); err != nil {
			c.logger.Error("failed to apply content event",
				"message_id", msg.ID,
				"event_type", ev.Type,
				"entity_id", ev.EntityID,
				"error", err,
			)
			continue
		}

		if err := c.client.XAck(ctx, c.config.Stream, c.config.Group, msg.ID).Err(); err != nil {
			c.logger.Error("failed to ack content event", "message_id", msg.ID, "error", err)
			continue
		}
		acked++
	}
	return acked
}

// Handle applies one event to the index
func (c *ContentEventConsumer) Handle(ctx context.Context, ev ContentEvent) error {
	entity, action, _ := strings.Cut(ev.Type, ".")
	indexType, ok := domain.ParseIndexType(entity)
	if !ok {
		c.logger.Debug("ignoring content event", "event_type", ev.Type)
		return nil
	}

	switch action {
	case "deleted", "unpublished":
		return c.index.RemoveRecord(ctx, indexType, ev.EntityID)
	case "created", "updated", "published", "restored":
		item, err := c.content.Get(ctx, indexType, ev.EntityID)
		if errors.Is(err, domain.ErrNotFound) {
			return c.index.RemoveRecord(ctx, indexType, ev.EntityID)
		}
		if err != nil {
			return fmt.Errorf("load %s %d: %w", indexType, ev.EntityID, err)
		}
		item.Type = indexType
		return c.index.UpdateRecord(ctx, item)
	default:
		c.logger.Debug("ignoring content event", "event_type", ev.Type)
		return nil
	}
}

func parseContentEvent(msg redis.XMessage) (ContentEvent, error) {
	ev := ContentEvent{MessageID: msg.ID}

	eventType, _ := msg.Values["event_type"].(string)
	if eventType == "" {
		return ev, errors.New("missing event_type")
	}
	ev.Type = strings.ToLower(strings.TrimSpace(eventType))

	raw, _ := msg.Values["payload"].(string)
	var p contentPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return ev, fmt.Errorf("decode payload: %w", err)
	}
	if p.ID <= 0 {
		return ev, errors.New("payload has no id")
	}
	ev.EntityID = p.ID

	if v, ok := msg.Values["created_at"].(string); ok {
		ev.CreatedAt, _ = time.Parse(time.RFC3339, v)
	}
	return ev, nil
}

// PublishContentEvent appends an event to the stream. The CMS side uses the
// same layout; it is exported for tooling and tests.
func PublishContentEvent(ctx context.Context, client *redis.Client, stream, eventType string, id int64) (string, error) {
	payload, err := json.Marshal(contentPayload{ID: id})
	if err != nil {
		return "", err
	}
	return client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"event_type": eventType,
			"payload":    string(payload),
			"created_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Result()
}
