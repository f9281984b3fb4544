package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/justloccit/booking-backend/internal/core/domain"
	"github.com/justloccit/booking-backend/internal/core/ports/mocks"
	"github.com/justloccit/booking-backend/internal/core/services"
)

func lockedReservation() *domain.Reservation {
	return &domain.Reservation{
		ID:            "res-1",
		Date:          "2024-06-01",
		StartTime:     "09:00",
		EndTime:       "09:30",
		Duration:      30,
		Status:        domain.ReservationLocked,
		LockExpiresAt: time.Now().UTC().Add(5 * time.Minute),
		SubServiceID:  "sub-1",
		ServiceName:   "Haircut",
	}
}

func TestConfirm_Success_NewCustomer(t *testing.T) {
	mockReservations := mocks.NewReservationRepository(t)
	mockBookings := mocks.NewBookingRepository(t)
	mockCustomers := mocks.NewCustomerRepository(t)
	mockChanges := mocks.NewChangePublisher(t)
	mockEvents := mocks.NewEventPublisher(t)

	service := services.NewConfirmationService(mockReservations, mockBookings, mockCustomers, mockChanges, mockEvents)

	ctx := context.Background()

	mockReservations.On("GetByID", ctx, "res-1").Return(lockedReservation(), nil)

	var savedCustomer *domain.Customer
	mockCustomers.On("Put", ctx, mock.AnythingOfType("*domain.Customer")).
		Run(func(args mock.Arguments) { savedCustomer = args.Get(1).(*domain.Customer) }).
		Return(nil)

	var createdBooking *domain.Booking
	mockBookings.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).
		Run(func(args mock.Arguments) { createdBooking = args.Get(1).(*domain.Booking) }).
		Return(nil)

	mockReservations.On("UpdateStatusIf", ctx, "res-1", domain.ReservationLocked, domain.ReservationConfirmed).Return(true, nil)
	mockChanges.On("PublishChange", ctx, mock.AnythingOfType("*domain.Reservation")).Return(nil)
	mockReservations.On("MarkChangePublished", ctx, "res-1", domain.ReservationConfirmed).Return(nil)
	mockEvents.On("PublishJSON", ctx, services.EventBookingReserved, mock.Anything).Return(nil)

	resp, err := service.Confirm(ctx, services.ConfirmRequest{
		BookingID: "res-1",
		Customer:  services.CustomerInput{Name: "Jane Doe", Email: "jane@example.com"},
	})

	assert.NoError(t, err)
	if assert.NotNil(t, resp) {
		assert.True(t, resp.Success)
		assert.Equal(t, "2024-06-01", resp.Date)
		assert.Equal(t, "09:00", resp.StartTime)
		assert.Equal(t, "09:30", resp.EndTime)
	}

	if assert.NotNil(t, savedCustomer) {
		assert.NotEmpty(t, savedCustomer.ID)
		assert.Equal(t, "Jane Doe", savedCustomer.Name)
		assert.Equal(t, savedCustomer.ID, resp.CustomerID)
	}

	if assert.NotNil(t, createdBooking) {
		assert.Equal(t, domain.BookingPending, createdBooking.Status)
		assert.Equal(t, "sub-1", createdBooking.SubServiceID)
		assert.Equal(t, createdBooking.ID, resp.BookingID)
		assert.NotEqual(t, "res-1", createdBooking.ID)
	}
}

func TestConfirm_MergesExistingCustomer(t *testing.T) {
	mockReservations := mocks.NewReservationRepository(t)
	mockBookings := mocks.NewBookingRepository(t)
	mockCustomers := mocks.NewCustomerRepository(t)
	mockChanges := mocks.NewChangePublisher(t)
	mockEvents := mocks.NewEventPublisher(t)

	service := services.NewConfirmationService(mockReservations, mockBookings, mockCustomers, mockChanges, mockEvents)

	ctx := context.Background()

	mockReservations.On("GetByID", ctx, "res-1").Return(lockedReservation(), nil)
	mockCustomers.On("Get", ctx, "cust-1").Return(&domain.Customer{
		ID:    "cust-1",
		Name:  "Jane Doe",
		Email: "jane@example.com",
	}, nil)

	var savedCustomer *domain.Customer
	mockCustomers.On("Put", ctx, mock.AnythingOfType("*domain.Customer")).
		Run(func(args mock.Arguments) { savedCustomer = args.Get(1).(*domain.Customer) }).
		Return(nil)

	mockBookings.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil)
	mockReservations.On("UpdateStatusIf", ctx, "res-1", domain.ReservationLocked, domain.ReservationConfirmed).Return(true, nil)
	mockChanges.On("PublishChange", ctx, mock.AnythingOfType("*domain.Reservation")).Return(nil)
	mockReservations.On("MarkChangePublished", ctx, "res-1", domain.ReservationConfirmed).Return(nil)
	mockEvents.On("PublishJSON", ctx, services.EventBookingReserved, mock.Anything).Return(nil)

	// Only the phone is supplied; existing fields must survive the merge.
	resp, err := service.Confirm(ctx, services.ConfirmRequest{
		BookingID: "res-1",
		Customer:  services.CustomerInput{ID: "cust-1", Phone: "+4512345678"},
	})

	assert.NoError(t, err)
	assert.Equal(t, "cust-1", resp.CustomerID)

	if assert.NotNil(t, savedCustomer) {
		assert.Equal(t, "Jane Doe", savedCustomer.Name)
		assert.Equal(t, "jane@example.com", savedCustomer.Email)
		assert.Equal(t, "+4512345678", savedCustomer.Phone)
	}
}

func TestConfirm_ReservationNotFound(t *testing.T) {
	mockReservations := mocks.NewReservationRepository(t)
	mockBookings := mocks.NewBookingRepository(t)
	mockCustomers := mocks.NewCustomerRepository(t)
	mockChanges := mocks.NewChangePublisher(t)
	mockEvents := mocks.NewEventPublisher(t)

	service := services.NewConfirmationService(mockReservations, mockBookings, mockCustomers, mockChanges, mockEvents)

	ctx := context.Background()
	mockReservations.On("GetByID", ctx, "ghost").Return(nil, domain.ErrNotFound)

	resp, err := service.Confirm(ctx, services.ConfirmRequest{
		BookingID: "ghost",
		Customer:  services.CustomerInput{Name: "Jane"},
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfirm_ExpiredLockIsNonBinding(t *testing.T) {
	mockReservations := mocks.NewReservationRepository(t)
	mockBookings := mocks.NewBookingRepository(t)
	mockCustomers := mocks.NewCustomerRepository(t)
	mockChanges := mocks.NewChangePublisher(t)
	mockEvents := mocks.NewEventPublisher(t)

	service := services.NewConfirmationService(mockReservations, mockBookings, mockCustomers, mockChanges, mockEvents)

	ctx := context.Background()

	stale := lockedReservation()
	stale.LockExpiresAt = time.Now().UTC().Add(-time.Minute)
	mockReservations.On("GetByID", ctx, "res-1").Return(stale, nil)

	resp, err := service.Confirm(ctx, services.ConfirmRequest{
		BookingID: "res-1",
		Customer:  services.CustomerInput{Name: "Jane"},
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestConfirm_LostRaceWithdrawsBooking(t *testing.T) {
	mockReservations := mocks.NewReservationRepository(t)
	mockBookings := mocks.NewBookingRepository(t)
	mockCustomers := mocks.NewCustomerRepository(t)
	mockChanges := mocks.NewChangePublisher(t)
	mockEvents := mocks.NewEventPublisher(t)

	service := services.NewConfirmationService(mockReservations, mockBookings, mockCustomers, mockChanges, mockEvents)

	ctx := context.Background()

	mockReservations.On("GetByID", ctx, "res-1").Return(lockedReservation(), nil)
	mockCustomers.On("Put", ctx, mock.AnythingOfType("*domain.Customer")).Return(nil)

	var createdBooking *domain.Booking
	mockBookings.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).
		Run(func(args mock.Arguments) { createdBooking = args.Get(1).(*domain.Booking) }).
		Return(nil)

	// A concurrent release already moved the reservation out of Locked.
	mockReservations.On("UpdateStatusIf", ctx, "res-1", domain.ReservationLocked, domain.ReservationConfirmed).Return(false, nil)
	mockBookings.On("UpdateStatus", ctx, mock.AnythingOfType("string"), domain.BookingCancelled).Return(nil)

	resp, err := service.Confirm(ctx, services.ConfirmRequest{
		BookingID: "res-1",
		Customer:  services.CustomerInput{Name: "Jane"},
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.NotNil(t, createdBooking)
	mockBookings.AssertCalled(t, "UpdateStatus", ctx, createdBooking.ID, domain.BookingCancelled)
}
