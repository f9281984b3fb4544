package redisstream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/justloccit/booking-backend/internal/core/domain"
)

func pendingEntry(t *testing.T, id string, reservation domain.Reservation) redis.XMessage {
	t.Helper()
	payload, err := json.Marshal(reservation)
	assert.NoError(t, err)
	return redis.XMessage{
		ID:     id,
		Values: map[string]interface{}{payloadField: string(payload)},
	}
}

func TestDrainPending_ReplaysUnackedEntries(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	consumer := NewConsumer(db, "", "", "worker-1")

	entry := pendingEntry(t, "1-0", domain.Reservation{
		ID:     "res-1",
		Date:   "2024-06-01",
		Status: domain.ReservationLocked,
	})

	mockRedis.ExpectXReadGroup(&redis.XReadGroupArgs{
		Group:    DefaultGroup,
		Consumer: "worker-1",
		Streams:  []string{DefaultStream, "0"},
		Count:    readCount,
	}).SetVal([]redis.XStream{{Stream: DefaultStream, Messages: []redis.XMessage{entry}}})
	mockRedis.ExpectXAck(DefaultStream, DefaultGroup, "1-0").SetVal(1)
	mockRedis.ExpectXReadGroup(&redis.XReadGroupArgs{
		Group:    DefaultGroup,
		Consumer: "worker-1",
		Streams:  []string{DefaultStream, "1-0"},
		Count:    readCount,
	}).SetVal([]redis.XStream{{Stream: DefaultStream}})

	var seen []string
	consumer.drainPending(context.Background(), func(ctx context.Context, r domain.Reservation) error {
		seen = append(seen, r.ID)
		return nil
	})

	assert.Equal(t, []string{"res-1"}, seen)
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestDrainPending_AdvancesPastFailingEntry(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	consumer := NewConsumer(db, "", "", "worker-1")

	bad := pendingEntry(t, "1-0", domain.Reservation{ID: "res-1", Date: "2024-06-01"})
	good := pendingEntry(t, "2-0", domain.Reservation{ID: "res-2", Date: "2024-06-01"})

	mockRedis.ExpectXReadGroup(&redis.XReadGroupArgs{
		Group:    DefaultGroup,
		Consumer: "worker-1",
		Streams:  []string{DefaultStream, "0"},
		Count:    readCount,
	}).SetVal([]redis.XStream{{Stream: DefaultStream, Messages: []redis.XMessage{bad, good}}})
	// Only the entry whose handler succeeded is acked; res-1 stays pending
	// for the reclaim pass.
	mockRedis.ExpectXAck(DefaultStream, DefaultGroup, "2-0").SetVal(1)
	mockRedis.ExpectXReadGroup(&redis.XReadGroupArgs{
		Group:    DefaultGroup,
		Consumer: "worker-1",
		Streams:  []string{DefaultStream, "2-0"},
		Count:    readCount,
	}).SetVal([]redis.XStream{{Stream: DefaultStream}})

	consumer.drainPending(context.Background(), func(ctx context.Context, r domain.Reservation) error {
		if r.ID == "res-1" {
			return errors.New("store unavailable")
		}
		return nil
	})

	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestReclaimAbandoned_RetriesIdleEntries(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	consumer := NewConsumer(db, "", "", "worker-1")

	entry := pendingEntry(t, "1-0", domain.Reservation{
		ID:     "res-1",
		Date:   "2024-06-01",
		Status: domain.ReservationCancelled,
	})

	mockRedis.ExpectXAutoClaim(&redis.XAutoClaimArgs{
		Stream:   DefaultStream,
		Group:    DefaultGroup,
		Consumer: "worker-1",
		MinIdle:  reclaimMinIdle,
		Start:    "0-0",
		Count:    readCount,
	}).SetVal([]redis.XMessage{entry}, "0-0")
	mockRedis.ExpectXAck(DefaultStream, DefaultGroup, "1-0").SetVal(1)

	var seen []string
	consumer.reclaimAbandoned(context.Background(), func(ctx context.Context, r domain.Reservation) error {
		seen = append(seen, r.ID)
		return nil
	})

	assert.Equal(t, []string{"res-1"}, seen)
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestDispatch_FailedHandlerLeavesEntryPending(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	consumer := NewConsumer(db, "", "", "worker-1")

	entry := pendingEntry(t, "1-0", domain.Reservation{ID: "res-1", Date: "2024-06-01"})

	consumer.dispatch(context.Background(), func(ctx context.Context, r domain.Reservation) error {
		return errors.New("store unavailable")
	}, entry)

	// No XACK expected or issued.
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestDispatch_UnreadablePayloadIsAckedAndDropped(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	consumer := NewConsumer(db, "", "", "worker-1")

	mockRedis.ExpectXAck(DefaultStream, DefaultGroup, "1-0").SetVal(1)

	handled := false
	consumer.dispatch(context.Background(), func(ctx context.Context, r domain.Reservation) error {
		handled = true
		return nil
	}, redis.XMessage{ID: "1-0", Values: map[string]interface{}{payloadField: "{not json"}})

	assert.False(t, handled)
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}
