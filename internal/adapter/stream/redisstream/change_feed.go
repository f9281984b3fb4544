package redisstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/justloccit/booking-backend/internal/core/domain"
)

const (
	DefaultStream = "reservation-changes"
	DefaultGroup  = "calendar-reconciler"

	payloadField = "reservation"
	readCount    = 16
	readBlock    = 5 * time.Second

	// Pending entries are replayed once they have sat unacked this long;
	// the reclaim pass runs on the same cadence.
	reclaimMinIdle  = time.Minute
	reclaimInterval = time.Minute
)

// Publisher appends reservation snapshots to a Redis stream. A single stream
// gives a total order, which subsumes the per-key ordering the reconciler
// needs; consumer-group delivery is at-least-once.
type Publisher struct {
	client *redis.Client
	stream string
}

func NewPublisher(client *redis.Client, stream string) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &Publisher{client: client, stream: stream}
}

func (p *Publisher) PublishChange(ctx context.Context, reservation *domain.Reservation) error {
	payload, err := json.Marshal(reservation)
	if err != nil {
		return fmt.Errorf("marshal reservation %s: %w", reservation.ID, err)
	}

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{payloadField: payload},
	}).Err()
}

// Handler processes one observed reservation change. A non-nil error leaves
// the entry pending; pending entries are replayed when the consumer starts
// and by the periodic reclaim pass.
type Handler func(ctx context.Context, reservation domain.Reservation) error

// Consumer reads the change stream through a consumer group and feeds each
// entry to a handler. Entries are acked only after the handler succeeds;
// unreadable payloads are acked and dropped so they cannot wedge the feed.
// Entries stranded in a pending list, whether by a handler failure or a
// crash between read and ack, are picked up again via the startup drain and
// XAUTOCLAIM.
type Consumer struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
}

func NewConsumer(client *redis.Client, stream, group, consumer string) *Consumer {
	if stream == "" {
		stream = DefaultStream
	}
	if group == "" {
		group = DefaultGroup
	}
	return &Consumer{client: client, stream: stream, group: group, consumer: consumer}
}

func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", c.group, err)
	}

	log.Printf("Change feed consumer %s started on stream %s", c.consumer, c.stream)

	// Work through entries a previous run read but never acked before
	// taking anything new.
	c.drainPending(ctx, handler)

	lastReclaim := time.Now()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if time.Since(lastReclaim) >= reclaimInterval {
			c.reclaimAbandoned(ctx, handler)
			lastReclaim = time.Now()
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumer,
			Streams:  []string{c.stream, ">"},
			Count:    readCount,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("Error reading change stream: %v", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				c.dispatch(ctx, handler, message)
			}
		}
	}
}

// drainPending replays this consumer's own pending entries. The cursor
// advances past entries whose handler keeps failing, so one poisoned change
// cannot stall the drain; the reclaim pass retries it later.
func (c *Consumer) drainPending(ctx context.Context, handler Handler) {
	cursor := "0"
	for {
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumer,
			Streams:  []string{c.stream, cursor},
			Count:    readCount,
		}).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				log.Printf("Error reading pending change entries: %v", err)
			}
			return
		}

		empty := true
		for _, stream := range streams {
			for _, message := range stream.Messages {
				empty = false
				c.dispatch(ctx, handler, message)
				cursor = message.ID
			}
		}
		if empty {
			return
		}
	}
}

// reclaimAbandoned takes over pending entries that have sat idle too long,
// whether they belong to a consumer that died or to this one after a failed
// handler run, and feeds them through the handler again.
func (c *Consumer) reclaimAbandoned(ctx context.Context, handler Handler) {
	start := "0-0"
	for {
		messages, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.stream,
			Group:    c.group,
			Consumer: c.consumer,
			MinIdle:  reclaimMinIdle,
			Start:    start,
			Count:    readCount,
		}).Result()
		if err != nil {
			log.Printf("Error reclaiming pending change entries: %v", err)
			return
		}

		for _, message := range messages {
			c.dispatch(ctx, handler, message)
		}

		if next == "0-0" || len(messages) == 0 {
			return
		}
		start = next
	}
}

func (c *Consumer) dispatch(ctx context.Context, handler Handler, message redis.XMessage) {
	raw, ok := message.Values[payloadField].(string)
	if !ok {
		log.Printf("Dropping change entry %s without a reservation payload", message.ID)
		c.ack(ctx, message.ID)
		return
	}

	var reservation domain.Reservation
	if err := json.Unmarshal([]byte(raw), &reservation); err != nil {
		log.Printf("Dropping unreadable change entry %s: %v", message.ID, err)
		c.ack(ctx, message.ID)
		return
	}

	if err := handler(ctx, reservation); err != nil {
		log.Printf("Error processing change for reservation %s, leaving pending: %v", reservation.ID, err)
		return
	}

	c.ack(ctx, message.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.stream, c.group, id).Err(); err != nil {
		log.Printf("Failed to ack change entry %s: %v", id, err)
	}
}
