package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"railbook/pkg/broker"
	"railbook/pkg/cache"
	"railbook/pkg/envelope"
	"railbook/pkg/fare"
	"railbook/pkg/inventory"
	"railbook/pkg/models"
	"railbook/pkg/payment"
	"railbook/pkg/repository"
	"railbook/pkg/ticket"
)

// BookingService drives a booking through its lifecycle:
// draft -> awaiting_passengers -> awaiting_payment -> confirmed | failed,
// with cancellation possible from any non-terminal state. Seats are
// reserved before the draft row exists and released on every dead end.
type BookingService interface {
	CreateBooking(userID int, req models.BookingCreateRequest) (models.Booking, error)
	AttachPassengers(bookingID int, req models.AttachPassengersRequest) (models.Booking, error)
	SubmitPayment(bookingID int, card models.CardDetails) (models.Booking, error)
	CancelBooking(bookingID int) (models.Booking, error)
	GetBooking(bookingID int) (models.Booking, error)
	ListUserBookings(userID int) ([]models.Booking, error)
	ListAllBookings(limit, offset int) ([]models.Booking, error)

	// ExpireStale cancels bookings whose seat hold outlived the hold
	// window. Safe to race with payment: first terminal state wins.
	ExpireStale(now time.Time)

	// Recover rebuilds seat counters from confirmed bookings and sweeps
	// in-flight bookings orphaned by a restart. Call once at startup.
	Recover() error
}

type bookingService struct {
	catalog repository.CatalogRepository
	store   repository.BookingRepository
	inv     *inventory.Manager
	gateway payment.Gateway
	events  *broker.Broker // optional
	redis   *cache.Redis   // optional

	mu    sync.Mutex
	locks map[int]*sync.Mutex
	holds map[int]*inventory.Token
}

func NewBookingService(
	catalog repository.CatalogRepository,
	store repository.BookingRepository,
	inv *inventory.Manager,
	gateway payment.Gateway,
	events *broker.Broker,
	redis *cache.Redis,
) BookingService {
	return &bookingService{
		catalog: catalog,
		store:   store,
		inv:     inv,
		gateway: gateway,
		events:  events,
		redis:   redis,
		locks:   make(map[int]*sync.Mutex),
		holds:   make(map[int]*inventory.Token),
	}
}

func (s *bookingService) CreateBooking(userID int, req models.BookingCreateRequest) (models.Booking, error) {
	if err := validateCreate(req); err != nil {
		return models.Booking{}, err
	}

	train, err := s.catalog.GetTrain(req.TrainID)
	if err != nil {
		return models.Booking{}, err
	}

	key := inventory.Key{TrainID: train.ID, TravelDate: req.TravelDate, Class: req.TicketClass}

	// Reserve first: if the race for the last seats is lost, no booking
	// row is ever created.
	tok, err := s.inv.Reserve(key, train.CapacityFor(req.TicketClass), req.PassengerCount)
	if err != nil {
		return models.Booking{}, err
	}

	booking, err := s.store.InsertDraft(models.Booking{
		UserID:         userID,
		TrainID:        train.ID,
		TravelDate:     req.TravelDate,
		TicketClass:    req.TicketClass,
		PassengerCount: req.PassengerCount,
	})
	if err != nil {
		// Store failure must not leak the hold.
		if relErr := s.inv.Release(tok); relErr != nil {
			log.Printf("[BOOKING] release after failed insert: %v", relErr)
		}
		return models.Booking{}, err
	}

	s.mu.Lock()
	s.holds[booking.ID] = tok
	s.mu.Unlock()

	s.invalidateSearch()
	s.publish("booking.created", booking)
	return booking, nil
}

func (s *bookingService) AttachPassengers(bookingID int, req models.AttachPassengersRequest) (models.Booking, error) {
	unlock := s.lock(bookingID)
	defer unlock()

	booking, err := s.store.GetBooking(bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if booking.Status != models.StatusDraft && booking.Status != models.StatusAwaitingPassengers {
		return booking, fmt.Errorf("%w: booking %d is %s", models.ErrInvalidState, bookingID, booking.Status)
	}
	if err := validatePassengers(req, booking.PassengerCount); err != nil {
		return booking, err
	}

	if err := s.store.AttachPassengers(bookingID, req.Contact, req.Passengers); err != nil {
		return booking, err
	}

	train, err := s.catalog.GetTrain(booking.TrainID)
	if err != nil {
		return booking, err
	}
	quoted, err := fare.Quote(train, booking.TicketClass, booking.PassengerCount)
	if err != nil {
		return booking, err
	}

	if err := s.store.MarkAwaitingPayment(bookingID, fare.CheckoutTotal(quoted)); err != nil {
		return booking, err
	}

	booking, err = s.store.GetBooking(bookingID)
	if err != nil {
		return booking, err
	}
	s.publish("booking.awaiting_payment", booking)
	return booking, nil
}

func (s *bookingService) SubmitPayment(bookingID int, card models.CardDetails) (models.Booking, error) {
	unlock := s.lock(bookingID)
	defer unlock()

	booking, err := s.store.GetBooking(bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if booking.Status != models.StatusAwaitingPayment {
		return booking, fmt.Errorf("%w: booking %d is %s", models.ErrInvalidState, bookingID, booking.Status)
	}

	tx, err := s.gateway.Charge(card, booking.TotalPrice)
	if err != nil && !errors.Is(err, models.ErrPaymentDeclined) {
		// Malformed payment data or gateway trouble: surface it, keep
		// the booking open for another attempt.
		return booking, err
	}
	if err != nil {
		// Declined: the booking dies and the seats go back.
		if markErr := s.store.MarkFailed(bookingID); markErr != nil {
			return booking, markErr
		}
		s.releaseHold(bookingID)
		booking, _ = s.store.GetBooking(bookingID)
		s.publish("booking.failed", booking)
		return booking, err
	}

	train, err := s.catalog.GetTrain(booking.TrainID)
	if err != nil {
		return booking, err
	}
	issued := ticket.Issue(train.TrainNumber, booking.PassengerCount)

	err = s.store.MarkConfirmed(bookingID, issued.TicketNumber, tx.ID, issued.SeatLabels)
	if err != nil && !errors.Is(err, models.ErrInvalidState) {
		// Could be the ticket-number unique index firing; one retry with a
		// fresh number covers it.
		issued = ticket.Issue(train.TrainNumber, booking.PassengerCount)
		err = s.store.MarkConfirmed(bookingID, issued.TicketNumber, tx.ID, issued.SeatLabels)
	}
	if err != nil {
		return booking, err
	}
	s.commitHold(bookingID)

	booking, err = s.store.GetBooking(bookingID)
	if err != nil {
		return booking, err
	}
	s.publish("booking.confirmed", booking)
	return booking, nil
}

func (s *bookingService) CancelBooking(bookingID int) (models.Booking, error) {
	unlock := s.lock(bookingID)
	defer unlock()

	booking, err := s.store.GetBooking(bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if booking.Status.Terminal() {
		return booking, fmt.Errorf("%w: booking %d is %s", models.ErrInvalidState, bookingID, booking.Status)
	}

	if err := s.store.MarkCancelled(bookingID); err != nil {
		return booking, err
	}
	s.releaseHold(bookingID)

	booking, err = s.store.GetBooking(bookingID)
	if err != nil {
		return booking, err
	}
	s.publish("booking.cancelled", booking)
	return booking, nil
}

func (s *bookingService) GetBooking(bookingID int) (models.Booking, error) {
	return s.store.GetBooking(bookingID)
}

func (s *bookingService) ListUserBookings(userID int) ([]models.Booking, error) {
	return s.store.ListByUser(userID)
}

func (s *bookingService) ListAllBookings(limit, offset int) ([]models.Booking, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListAll(limit, offset)
}

func (s *bookingService) ExpireStale(now time.Time) {
	s.mu.Lock()
	var stale []int
	for id, tok := range s.holds {
		if tok.Expired(now) {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()

	for _, id := range stale {
		if _, err := s.CancelBooking(id); err != nil {
			if errors.Is(err, models.ErrInvalidState) {
				// Lost the race against a concurrent payment or cancel;
				// the other side already settled the hold.
				s.dropHold(id)
			} else {
				log.Printf("[SWEEP] cancel booking %d: %v", id, err)
			}
			continue
		}
		log.Printf("[SWEEP] expired booking %d, seats released", id)
	}
}

func (s *bookingService) Recover() error {
	if n, err := s.store.CancelNonTerminal(); err != nil {
		return err
	} else if n > 0 {
		log.Printf("[BOOKING] cancelled %d orphaned in-flight bookings", n)
	}

	counts, err := s.store.ReservedCounts()
	if err != nil {
		return err
	}
	for _, c := range counts {
		train, err := s.catalog.GetTrain(c.TrainID)
		if err != nil {
			log.Printf("[BOOKING] restore: train %d: %v", c.TrainID, err)
			continue
		}
		key := inventory.Key{TrainID: c.TrainID, TravelDate: c.TravelDate, Class: c.Class}
		s.inv.Restore(key, train.CapacityFor(c.Class), c.Seats)
	}
	log.Printf("[BOOKING] restored %d inventory keys", len(counts))
	return nil
}

// lock serializes transitions per booking id: at most one in flight.
func (s *bookingService) lock(bookingID int) func() {
	s.mu.Lock()
	l, ok := s.locks[bookingID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[bookingID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *bookingService) releaseHold(bookingID int) {
	tok := s.dropHold(bookingID)
	if tok == nil {
		return
	}
	if err := s.inv.Release(tok); err != nil {
		// Double release is a logged no-op, never a double decrement.
		log.Printf("[BOOKING] release hold for booking %d: %v", bookingID, err)
	}
	s.invalidateSearch()
}

func (s *bookingService) commitHold(bookingID int) {
	tok := s.dropHold(bookingID)
	if tok == nil {
		return
	}
	if err := s.inv.Commit(tok); err != nil {
		log.Printf("[BOOKING] commit hold for booking %d: %v", bookingID, err)
	}
}

func (s *bookingService) dropHold(bookingID int) *inventory.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := s.holds[bookingID]
	delete(s.holds, bookingID)
	return tok
}

func (s *bookingService) publish(action string, booking models.Booking) {
	if s.events == nil {
		return
	}
	env, err := envelope.NewEvent(action, "booking", booking)
	if err != nil {
		return
	}
	if err := s.events.Publish(broker.BookingsChannel, env); err != nil {
		log.Printf("[BOOKING] publish %s: %v", action, err)
	}
}

func (s *bookingService) invalidateSearch() {
	if s.redis == nil {
		return
	}
	s.redis.DelPattern("trains:search:*")
}

func validateCreate(req models.BookingCreateRequest) error {
	if !req.TicketClass.Valid() {
		return fmt.Errorf("%w: unknown ticket class %q", models.ErrInvalidInput, req.TicketClass)
	}
	if req.PassengerCount < fare.MinPassengers || req.PassengerCount > fare.MaxPassengers {
		return fmt.Errorf("%w: passenger count %d out of range", models.ErrInvalidInput, req.PassengerCount)
	}
	if _, err := time.Parse("2006-01-02", req.TravelDate); err != nil {
		return fmt.Errorf("%w: travel date must be YYYY-MM-DD", models.ErrInvalidInput)
	}
	return nil
}

func validatePassengers(req models.AttachPassengersRequest, expected int) error {
	if len(req.Passengers) != expected {
		return fmt.Errorf("%w: expected %d passengers, got %d", models.ErrInvalidInput, expected, len(req.Passengers))
	}
	if !strings.Contains(req.Contact.Email, "@") {
		return fmt.Errorf("%w: bad contact email", models.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Contact.Phone) == "" {
		return fmt.Errorf("%w: missing contact phone", models.ErrInvalidInput)
	}
	for i, p := range req.Passengers {
		if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
			return fmt.Errorf("%w: passenger %d missing name", models.ErrInvalidInput, i+1)
		}
		if strings.TrimSpace(p.IDNumber) == "" {
			return fmt.Errorf("%w: passenger %d missing NIC/passport", models.ErrInvalidInput, i+1)
		}
	}
	return nil
}
