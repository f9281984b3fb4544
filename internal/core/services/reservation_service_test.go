package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/justloccit/booking-backend/internal/core/domain"
	"github.com/justloccit/booking-backend/internal/core/ports/mocks"
	"github.com/justloccit/booking-backend/internal/core/services"
)

func TestLockSingle_Success(t *testing.T) {
	mockReservations := mocks.NewReservationRepository(t)
	mockCatalog := mocks.NewSubServiceReader(t)
	mockChanges := mocks.NewChangePublisher(t)

	db, mockRedis := redismock.NewClientMock()

	service := services.NewReservationService(mockReservations, mockCatalog, mockChanges, db)

	ctx := context.Background()

	mockCatalog.On("GetSubService", ctx, "sub-1").Return(&domain.SubService{
		ID:       "sub-1",
		Name:     "Haircut",
		Duration: 30,
	}, nil)

	var created *domain.Reservation
	mockReservations.On("Create", ctx, mock.AnythingOfType("*domain.Reservation")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.Reservation) }).
		Return(nil)
	mockChanges.On("PublishChange", ctx, mock.AnythingOfType("*domain.Reservation")).Return(nil)
	mockReservations.On("MarkChangePublished", ctx, mock.AnythingOfType("string"), domain.ReservationLocked).Return(nil)
	mockRedis.ExpectDel("timeslots:2024-06-01").SetVal(1)

	resp, err := service.LockSingle(ctx, services.LockSingleRequest{
		SubServiceID: "sub-1",
		Date:         "2024-06-01",
		StartTime:    "09:00",
	})

	assert.NoError(t, err)
	if assert.NotNil(t, resp) {
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.BookingID)
		assert.Equal(t, "09:00", resp.StartTime)
		assert.Equal(t, "09:30", resp.EndTime)
		assert.Equal(t, 30, resp.Duration)
		assert.Equal(t, "Haircut", resp.ServiceName)
		assert.True(t, resp.LockExpiresAt.After(time.Now().UTC()))
	}

	if assert.NotNil(t, created) {
		assert.Equal(t, domain.ReservationLocked, created.Status)
		assert.Equal(t, "2024-06-01", created.PartitionKey)
		assert.Equal(t, "sub-1", created.SubServiceID)
	}

	if err := mockRedis.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestLockSingle_SubServiceNotFound(t *testing.T) {
	mockReservations := mocks.NewReservationRepository(t)
	mockCatalog := mocks.NewSubServiceReader(t)
	mockChanges := mocks.NewChangePublisher(t)
	db, _ := redismock.NewClientMock()

	service := services.NewReservationService(mockReservations, mockCatalog, mockChanges, db)

	ctx := context.Background()
	mockCatalog.On("GetSubService", ctx, "missing").Return(nil, domain.ErrNotFound)

	resp, err := service.LockSingle(ctx, services.LockSingleRequest{
		SubServiceID: "missing",
		Date:         "2024-06-01",
		StartTime:    "09:00",
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLockSingle_InvalidInput(t *testing.T) {
	mockReservations := mocks.NewReservationRepository(t)
	mockCatalog := mocks.NewSubServiceReader(t)
	mockChanges := mocks.NewChangePublisher(t)
	db, _ := redismock.NewClientMock()

	service := services.NewReservationService(mockReservations, mockCatalog, mockChanges, db)

	_, err := service.LockSingle(context.Background(), services.LockSingleRequest{
		SubServiceID: "sub-1",
		Date:         "not-a-date",
		StartTime:    "09:00",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = service.LockSingle(context.Background(), services.LockSingleRequest{
		SubServiceID: "sub-1",
		Date:         "2024-06-01",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLockSingle_RejectsWindowPastMidnight(t *testing.T) {
	mockReservations := mocks.NewReservationRepository(t)
	mockCatalog := mocks.NewSubServiceReader(t)
	mockChanges := mocks.NewChangePublisher(t)
	db, _ := redismock.NewClientMock()

	service := services.NewReservationService(mockReservations, mockCatalog, mockChanges, db)

	ctx := context.Background()
	mockCatalog.On("GetSubService", ctx, "sub-1").Return(&domain.SubService{
		ID:       "sub-1",
		Name:     "Full Treatment",
		Duration: 120,
	}, nil)

	resp, err := service.LockSingle(ctx, services.LockSingleRequest{
		SubServiceID: "sub-1",
		Date:         "2024-06-01",
		StartTime:    "23:00",
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	mockReservations.AssertNotCalled(t, "Create")
}

func TestLockMultiple_SkipsUnresolvedSubServices(t *testing.T) {
	mockReservations := mocks.NewReservationRepository(t)
	mockCatalog := mocks.NewSubServiceReader(t)
	mockChanges := mocks.NewChangePublisher(t)
	db, mockRedis := redismock.NewClientMock()

	service := services.NewReservationService(mockReservations, mockCatalog, mockChanges, db)

	ctx := context.Background()

	mockCatalog.On("GetSubService", ctx, "sub-1").Return(&domain.SubService{ID: "sub-1", Name: "Haircut", Duration: 30}, nil)
	mockCatalog.On("GetSubService", ctx, "sub-2").Return(nil, domain.ErrNotFound)

	mockReservations.On("Create", ctx, mock.AnythingOfType("*domain.Reservation")).Return(nil)
	mockChanges.On("PublishChange", ctx, mock.AnythingOfType("*domain.Reservation")).Return(nil)
	mockReservations.On("MarkChangePublished", ctx, mock.AnythingOfType("string"), domain.ReservationLocked).Return(nil)
	mockRedis.ExpectDel("timeslots:2024-06-01").SetVal(1)

	resp, err := service.LockMultiple(ctx, services.LockMultipleRequest{
		Date:      "2024-06-01",
		StartTime: "09:00",
		SubServices: []services.SubServiceRequest{
			{SubServiceID: "sub-1", Duration: 30},
			{SubServiceID: "sub-2", Duration: 45},
		},
	})

	assert.NoError(t, err)
	if assert.NotNil(t, resp) {
		assert.Len(t, resp.SubServices, 1)
		assert.Equal(t, 30, resp.Duration)
		assert.Equal(t, "09:30", resp.EndTime)
	}
}

func TestLockMultiple_NothingResolves(t *testing.T) {
	mockReservations := mocks.NewReservationRepository(t)
	mockCatalog := mocks.NewSubServiceReader(t)
	mockChanges := mocks.NewChangePublisher(t)
	db, _ := redismock.NewClientMock()

	service := services.NewReservationService(mockReservations, mockCatalog, mockChanges, db)

	ctx := context.Background()
	mockCatalog.On("GetSubService", ctx, "sub-1").Return(nil, domain.ErrNotFound)

	resp, err := service.LockMultiple(ctx, services.LockMultipleRequest{
		Date:        "2024-06-01",
		StartTime:   "09:00",
		SubServices: []services.SubServiceRequest{{SubServiceID: "sub-1", Duration: 30}},
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRelease_Success(t *testing.T) {
	mockReservations := mocks.NewReservationRepository(t)
	mockCatalog := mocks.NewSubServiceReader(t)
	mockChanges := mocks.NewChangePublisher(t)
	db, mockRedis := redismock.NewClientMock()

	service := services.NewReservationService(mockReservations, mockCatalog, mockChanges, db)

	ctx := context.Background()

	mockReservations.On("GetByIDAndDate", ctx, "res-1", "2024-06-01").Return(&domain.Reservation{
		ID:     "res-1",
		Date:   "2024-06-01",
		Status: domain.ReservationLocked,
	}, nil)
	mockReservations.On("UpdateStatusIf", ctx, "res-1", domain.ReservationLocked, domain.ReservationCancelled).Return(true, nil)

	var published *domain.Reservation
	mockChanges.On("PublishChange", ctx, mock.AnythingOfType("*domain.Reservation")).
		Run(func(args mock.Arguments) { published = args.Get(1).(*domain.Reservation) }).
		Return(nil)
	mockReservations.On("MarkChangePublished", ctx, "res-1", domain.ReservationCancelled).Return(nil)
	mockRedis.ExpectDel("timeslots:2024-06-01").SetVal(1)

	released, err := service.Release(ctx, "res-1", "2024-06-01")

	assert.NoError(t, err)
	assert.True(t, released)
	if assert.NotNil(t, published) {
		assert.Equal(t, domain.ReservationCancelled, published.Status)
	}
}

func TestRelease_FailedPublishKeepsChangePending(t *testing.T) {
	mockReservations := mocks.NewReservationRepository(t)
	mockCatalog := mocks.NewSubServiceReader(t)
	mockChanges := mocks.NewChangePublisher(t)
	db, mockRedis := redismock.NewClientMock()

	service := services.NewReservationService(mockReservations, mockCatalog, mockChanges, db)

	ctx := context.Background()

	mockReservations.On("GetByIDAndDate", ctx, "res-1", "2024-06-01").Return(&domain.Reservation{
		ID:     "res-1",
		Date:   "2024-06-01",
		Status: domain.ReservationLocked,
	}, nil)
	mockReservations.On("UpdateStatusIf", ctx, "res-1", domain.ReservationLocked, domain.ReservationCancelled).Return(true, nil)
	mockChanges.On("PublishChange", ctx, mock.AnythingOfType("*domain.Reservation")).Return(errors.New("stream down"))
	mockRedis.ExpectDel("timeslots:2024-06-01").SetVal(1)

	released, err := service.Release(ctx, "res-1", "2024-06-01")

	// The cancellation stands; the unpublished flag stays set for the
	// sweeper's republish pass.
	assert.NoError(t, err)
	assert.True(t, released)
	mockReservations.AssertNotCalled(t, "MarkChangePublished")
}

func TestRelease_NotFoundIsNotAnError(t *testing.T) {
	mockReservations := mocks.NewReservationRepository(t)
	mockCatalog := mocks.NewSubServiceReader(t)
	mockChanges := mocks.NewChangePublisher(t)
	db, _ := redismock.NewClientMock()

	service := services.NewReservationService(mockReservations, mockCatalog, mockChanges, db)

	ctx := context.Background()
	mockReservations.On("GetByIDAndDate", ctx, "ghost", "2024-06-01").Return(nil, domain.ErrNotFound)

	released, err := service.Release(ctx, "ghost", "2024-06-01")

	assert.NoError(t, err)
	assert.False(t, released)
}

func TestRelease_AlreadyTerminal(t *testing.T) {
	mockReservations := mocks.NewReservationRepository(t)
	mockCatalog := mocks.NewSubServiceReader(t)
	mockChanges := mocks.NewChangePublisher(t)
	db, _ := redismock.NewClientMock()

	service := services.NewReservationService(mockReservations, mockCatalog, mockChanges, db)

	ctx := context.Background()

	mockReservations.On("GetByIDAndDate", ctx, "res-1", "2024-06-01").Return(&domain.Reservation{
		ID:     "res-1",
		Date:   "2024-06-01",
		Status: domain.ReservationCancelled,
	}, nil)
	mockReservations.On("UpdateStatusIf", ctx, "res-1", domain.ReservationLocked, domain.ReservationCancelled).Return(false, nil)

	released, err := service.Release(ctx, "res-1", "2024-06-01")

	assert.NoError(t, err)
	assert.False(t, released)
}
