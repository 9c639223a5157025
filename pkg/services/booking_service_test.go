package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railbook/pkg/inventory"
	"railbook/pkg/models"
	"railbook/pkg/payment"
	"railbook/pkg/repository"
)

// ---- in-memory doubles ----

type fakeCatalog struct {
	trains map[int]models.Train
}

func (f *fakeCatalog) ListStations() ([]models.Station, error)          { return nil, nil }
func (f *fakeCatalog) CreateStation(name string) (models.Station, error) { return models.Station{}, nil }
func (f *fakeCatalog) ListTrains() ([]models.Train, error)              { return nil, nil }
func (f *fakeCatalog) DeleteTrain(id int) error                         { return nil }

func (f *fakeCatalog) FindTrains(dep, arr int) ([]models.Train, error) {
	var out []models.Train
	for _, t := range f.trains {
		if t.DepartureStationID == dep && t.ArrivalStationID == arr {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetTrain(id int) (models.Train, error) {
	t, ok := f.trains[id]
	if !ok {
		return models.Train{}, fmt.Errorf("%w: train %d", models.ErrNotFound, id)
	}
	return t, nil
}

func (f *fakeCatalog) CreateTrain(req models.TrainCreateRequest) (models.Train, error) {
	return models.Train{}, nil
}

func (f *fakeCatalog) UpdateTrain(id int, req models.TrainUpdateRequest) (models.Train, error) {
	return models.Train{}, nil
}

type fakeStore struct {
	mu       sync.Mutex
	nextID   int
	bookings map[int]*models.Booking
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, bookings: make(map[int]*models.Booking)}
}

func (f *fakeStore) InsertDraft(b models.Booking) (models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b.ID = f.nextID
	f.nextID++
	b.Status = models.StatusDraft
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	f.bookings[b.ID] = &b
	return b, nil
}

func (f *fakeStore) AttachPassengers(id int, contact models.ContactInfo, passengers []models.Passenger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || (b.Status != models.StatusDraft && b.Status != models.StatusAwaitingPassengers) {
		return fmt.Errorf("%w: booking %d", models.ErrInvalidState, id)
	}
	b.ContactEmail = contact.Email
	b.ContactPhone = contact.Phone
	b.Passengers = append([]models.Passenger(nil), passengers...)
	b.Status = models.StatusAwaitingPassengers
	return nil
}

func (f *fakeStore) MarkAwaitingPayment(id int, total int64) error {
	return f.transition(id, models.StatusAwaitingPassengers, func(b *models.Booking) {
		b.TotalPrice = total
		b.Status = models.StatusAwaitingPayment
	})
}

func (f *fakeStore) MarkConfirmed(id int, ticketNumber, txID string, labels []string) error {
	return f.transition(id, models.StatusAwaitingPayment, func(b *models.Booking) {
		b.Status = models.StatusConfirmed
		b.TicketNumber = ticketNumber
		b.TransactionID = txID
		for i := range b.Passengers {
			if i < len(labels) {
				b.Passengers[i].SeatLabel = labels[i]
			}
		}
	})
}

func (f *fakeStore) MarkFailed(id int) error {
	return f.transition(id, models.StatusAwaitingPayment, func(b *models.Booking) {
		b.Status = models.StatusFailed
	})
}

func (f *fakeStore) MarkCancelled(id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status.Terminal() {
		return fmt.Errorf("%w: booking %d", models.ErrInvalidState, id)
	}
	b.Status = models.StatusCancelled
	return nil
}

func (f *fakeStore) transition(id int, from models.BookingStatus, apply func(*models.Booking)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status != from {
		return fmt.Errorf("%w: booking %d", models.ErrInvalidState, id)
	}
	apply(b)
	return nil
}

func (f *fakeStore) GetBooking(id int) (models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return models.Booking{}, fmt.Errorf("%w: booking %d", models.ErrNotFound, id)
	}
	out := *b
	out.Passengers = append([]models.Passenger(nil), b.Passengers...)
	return out, nil
}

func (f *fakeStore) ListByUser(userID int) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAll(limit, offset int) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeStore) CancelNonTerminal() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, b := range f.bookings {
		if !b.Status.Terminal() {
			b.Status = models.StatusCancelled
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ReservedCounts() ([]repository.ReservedCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	agg := make(map[inventory.Key]int)
	for _, b := range f.bookings {
		if b.Status == models.StatusConfirmed {
			agg[inventory.Key{TrainID: b.TrainID, TravelDate: b.TravelDate, Class: b.TicketClass}] += b.PassengerCount
		}
	}
	var out []repository.ReservedCount
	for k, seats := range agg {
		out = append(out, repository.ReservedCount{TrainID: k.TrainID, TravelDate: k.TravelDate, Class: k.Class, Seats: seats})
	}
	return out, nil
}

// ---- fixture ----

const (
	testDate    = "2026-09-10"
	testTrainID = 1
)

type fixture struct {
	svc   BookingService
	store *fakeStore
	inv   *inventory.Manager
}

func newFixture(t *testing.T, secondSeats int) *fixture {
	t.Helper()
	catalog := &fakeCatalog{trains: map[int]models.Train{
		testTrainID: {
			ID:                 testTrainID,
			TrainNumber:        "1080",
			Name:               "Udarata Menike",
			DepartureStationID: 1,
			ArrivalStationID:   2,
			DepartureTime:      "06:05",
			ArrivalTime:        "12:40",
			BasePrice:          100000,
			FirstSeats:         4,
			SecondSeats:        secondSeats,
			ThirdSeats:         20,
		},
	}}
	store := newFakeStore()
	inv := inventory.NewManager(15 * time.Minute)
	svc := NewBookingService(catalog, store, inv, payment.NewSimulated(0), nil, nil)
	return &fixture{svc: svc, store: store, inv: inv}
}

func createReq(count int) models.BookingCreateRequest {
	return models.BookingCreateRequest{
		TrainID:        testTrainID,
		TravelDate:     testDate,
		TicketClass:    models.ClassSecond,
		PassengerCount: count,
	}
}

func attachReq(count int) models.AttachPassengersRequest {
	req := models.AttachPassengersRequest{
		Contact: models.ContactInfo{Email: "traveller@example.com", Phone: "+94771234567"},
	}
	for i := 0; i < count; i++ {
		req.Passengers = append(req.Passengers, models.Passenger{
			FirstName: "Pax",
			LastName:  fmt.Sprintf("Number%d", i+1),
			IDNumber:  fmt.Sprintf("NIC%04d", i+1),
			Gender:    "female",
		})
	}
	return req
}

func goodCard() models.CardDetails {
	return models.CardDetails{
		Method: "card",
		Number: "4242424242424242",
		Holder: "N Perera",
		Expiry: time.Now().AddDate(1, 0, 0).Format("01/06"),
		CVV:    "123",
	}
}

func (fx *fixture) available() int {
	key := inventory.Key{TrainID: testTrainID, TravelDate: testDate, Class: models.ClassSecond}
	return fx.inv.Available(key, 10)
}

// ---- tests ----

func TestBooking_HappyPath(t *testing.T) {
	fx := newFixture(t, 10)

	b, err := fx.svc.CreateBooking(42, createReq(2))
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, b.Status)
	assert.Equal(t, 8, fx.available())

	b, err = fx.svc.AttachPassengers(b.ID, attachReq(2))
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingPayment, b.Status)
	// 2 x 1000.00 second class + 50.00 booking fee, in cents.
	assert.Equal(t, int64(205000), b.TotalPrice)

	b, err = fx.svc.SubmitPayment(b.ID, goodCard())
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, b.Status)
	assert.NotEmpty(t, b.TicketNumber)
	assert.NotEmpty(t, b.TransactionID)

	require.Len(t, b.Passengers, 2)
	assert.Equal(t, "80A1", b.Passengers[0].SeatLabel)
	assert.Equal(t, "80A2", b.Passengers[1].SeatLabel)
	assert.NotEqual(t, b.Passengers[0].SeatLabel, b.Passengers[1].SeatLabel)

	// Committed seats stay gone.
	assert.Equal(t, 8, fx.available())
}

func TestBooking_OverbookingRace(t *testing.T) {
	fx := newFixture(t, 1)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = fx.svc.CreateBooking(100+i, createReq(1))
		}(i)
	}
	wg.Wait()

	wins, losses := 0, 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, models.ErrInsufficientSeats)
			losses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)

	key := inventory.Key{TrainID: testTrainID, TravelDate: testDate, Class: models.ClassSecond}
	assert.Equal(t, 0, fx.inv.Available(key, 1))
}

func TestBooking_ReservationFailureCreatesNoRow(t *testing.T) {
	fx := newFixture(t, 1)

	_, err := fx.svc.CreateBooking(1, createReq(1))
	require.NoError(t, err)

	_, err = fx.svc.CreateBooking(2, createReq(1))
	require.ErrorIs(t, err, models.ErrInsufficientSeats)

	all, _ := fx.store.ListAll(0, 0)
	assert.Len(t, all, 1, "losing reserve must not create a booking")
}

func TestBooking_PaymentDeclineReleasesSeats(t *testing.T) {
	fx := newFixture(t, 10)

	b, err := fx.svc.CreateBooking(7, createReq(1))
	require.NoError(t, err)
	_, err = fx.svc.AttachPassengers(b.ID, attachReq(1))
	require.NoError(t, err)
	assert.Equal(t, 9, fx.available())

	card := goodCard()
	card.Number = "4242424242420000"
	b, err = fx.svc.SubmitPayment(b.ID, card)
	assert.ErrorIs(t, err, models.ErrPaymentDeclined)
	assert.Equal(t, models.StatusFailed, b.Status)
	assert.Equal(t, 10, fx.available())
}

func TestBooking_InvalidCardKeepsBookingOpen(t *testing.T) {
	fx := newFixture(t, 10)

	b, _ := fx.svc.CreateBooking(7, createReq(1))
	_, err := fx.svc.AttachPassengers(b.ID, attachReq(1))
	require.NoError(t, err)

	card := goodCard()
	card.CVV = "x"
	_, err = fx.svc.SubmitPayment(b.ID, card)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	b, _ = fx.svc.GetBooking(b.ID)
	assert.Equal(t, models.StatusAwaitingPayment, b.Status, "bad input must not fail the booking")
	assert.Equal(t, 9, fx.available())
}

func TestBooking_IllegalTransitions(t *testing.T) {
	fx := newFixture(t, 10)

	b, err := fx.svc.CreateBooking(1, createReq(1))
	require.NoError(t, err)

	// Paying a draft with no passengers.
	_, err = fx.svc.SubmitPayment(b.ID, goodCard())
	assert.ErrorIs(t, err, models.ErrInvalidState)

	// Wrong passenger count.
	_, err = fx.svc.AttachPassengers(b.ID, attachReq(3))
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	// Still a draft, seats still held.
	got, _ := fx.svc.GetBooking(b.ID)
	assert.Equal(t, models.StatusDraft, got.Status)
	assert.Equal(t, 9, fx.available())
}

func TestBooking_InvalidCreateInput(t *testing.T) {
	fx := newFixture(t, 10)

	req := createReq(1)
	req.TicketClass = "luxury"
	_, err := fx.svc.CreateBooking(1, req)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	req = createReq(0)
	_, err = fx.svc.CreateBooking(1, req)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	req = createReq(1)
	req.TravelDate = "10-09-2026"
	_, err = fx.svc.CreateBooking(1, req)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	assert.Equal(t, 10, fx.available(), "invalid input must not touch inventory")
}

func TestBooking_CancelReleasesSeats(t *testing.T) {
	fx := newFixture(t, 10)

	b, err := fx.svc.CreateBooking(1, createReq(4))
	require.NoError(t, err)
	assert.Equal(t, 6, fx.available())

	b, err = fx.svc.CancelBooking(b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, b.Status)
	assert.Equal(t, 10, fx.available())

	// Cancelling again is an illegal transition, not a double release.
	_, err = fx.svc.CancelBooking(b.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)
	assert.Equal(t, 10, fx.available())
}

func TestBooking_CancelConfirmedRejected(t *testing.T) {
	fx := newFixture(t, 10)

	b, _ := fx.svc.CreateBooking(1, createReq(1))
	_, err := fx.svc.AttachPassengers(b.ID, attachReq(1))
	require.NoError(t, err)
	_, err = fx.svc.SubmitPayment(b.ID, goodCard())
	require.NoError(t, err)

	_, err = fx.svc.CancelBooking(b.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)
	assert.Equal(t, 9, fx.available(), "confirmed seats stay committed")
}

func TestBooking_SweepExpiresStaleDraft(t *testing.T) {
	fx := newFixture(t, 10)

	b, err := fx.svc.CreateBooking(1, createReq(2))
	require.NoError(t, err)
	assert.Equal(t, 8, fx.available())

	// Not yet stale.
	fx.svc.ExpireStale(time.Now())
	got, _ := fx.svc.GetBooking(b.ID)
	assert.Equal(t, models.StatusDraft, got.Status)

	// Past the hold window.
	fx.svc.ExpireStale(time.Now().Add(16 * time.Minute))
	got, _ = fx.svc.GetBooking(b.ID)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, 10, fx.available())

	// Sweeping again is a no-op.
	fx.svc.ExpireStale(time.Now().Add(32 * time.Minute))
	assert.Equal(t, 10, fx.available())
}

func TestBooking_SweepLosesRaceToPayment(t *testing.T) {
	fx := newFixture(t, 10)

	b, _ := fx.svc.CreateBooking(1, createReq(1))
	_, err := fx.svc.AttachPassengers(b.ID, attachReq(1))
	require.NoError(t, err)
	_, err = fx.svc.SubmitPayment(b.ID, goodCard())
	require.NoError(t, err)

	// The hold was committed before the sweep fires; nothing to expire.
	fx.svc.ExpireStale(time.Now().Add(time.Hour))
	got, _ := fx.svc.GetBooking(b.ID)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, 9, fx.available())
}

func TestBooking_RecoverRebuildsInventory(t *testing.T) {
	fx := newFixture(t, 10)

	// A confirmed booking and an abandoned draft from a previous run.
	fx.store.bookings[1] = &models.Booking{
		ID: 1, UserID: 1, TrainID: testTrainID, TravelDate: testDate,
		TicketClass: models.ClassSecond, PassengerCount: 6, Status: models.StatusConfirmed,
	}
	fx.store.bookings[2] = &models.Booking{
		ID: 2, UserID: 2, TrainID: testTrainID, TravelDate: testDate,
		TicketClass: models.ClassSecond, PassengerCount: 2, Status: models.StatusDraft,
	}
	fx.store.nextID = 3

	require.NoError(t, fx.svc.Recover())

	orphan, _ := fx.svc.GetBooking(2)
	assert.Equal(t, models.StatusCancelled, orphan.Status)
	assert.Equal(t, 4, fx.available(), "only confirmed seats survive a restart")

	_, err := fx.svc.CreateBooking(3, createReq(5))
	assert.ErrorIs(t, err, models.ErrInsufficientSeats)
}

func TestBooking_ConcurrentPaymentAndCancelSettleOnce(t *testing.T) {
	fx := newFixture(t, 10)

	b, _ := fx.svc.CreateBooking(1, createReq(1))
	_, err := fx.svc.AttachPassengers(b.ID, attachReq(1))
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		fx.svc.SubmitPayment(b.ID, goodCard())
	}()
	go func() {
		defer wg.Done()
		fx.svc.CancelBooking(b.ID)
	}()
	wg.Wait()

	got, _ := fx.svc.GetBooking(b.ID)
	assert.True(t, got.Status.Terminal())

	// Exactly one outcome settled the hold: either 9 committed-away
	// seats (confirmed) or the full pool back (cancelled).
	switch got.Status {
	case models.StatusConfirmed:
		assert.Equal(t, 9, fx.available())
	case models.StatusCancelled:
		assert.Equal(t, 10, fx.available())
	default:
		t.Fatalf("unexpected terminal status %s", got.Status)
	}
}
