package models

import "time"

type BookingStatus string

const (
	StatusDraft              BookingStatus = "draft"
	StatusAwaitingPassengers BookingStatus = "awaiting_passengers"
	StatusAwaitingPayment    BookingStatus = "awaiting_payment"
	StatusConfirmed          BookingStatus = "confirmed"
	StatusFailed             BookingStatus = "failed"
	StatusCancelled          BookingStatus = "cancelled"
)

// Terminal reports whether the booking can no longer transition.
func (s BookingStatus) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

type Booking struct {
	ID             int           `json:"id"`
	UserID         int           `json:"user_id"`
	TrainID        int           `json:"train_id"`
	TravelDate     string        `json:"travel_date"` // YYYY-MM-DD
	TicketClass    TicketClass   `json:"ticket_class"`
	PassengerCount int           `json:"passenger_count"`
	TotalPrice     int64         `json:"total_price"` // minor units, incl. booking fee once priced
	Status         BookingStatus `json:"status"`
	TicketNumber   string        `json:"ticket_number,omitempty"`
	TransactionID  string        `json:"transaction_id,omitempty"`
	ContactEmail   string        `json:"contact_email,omitempty"`
	ContactPhone   string        `json:"contact_phone,omitempty"`
	Passengers     []Passenger   `json:"passengers,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type Passenger struct {
	ID        int    `json:"id"`
	BookingID int    `json:"booking_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IDNumber  string `json:"id_number"` // NIC or passport
	Gender    string `json:"gender"`
	SeatLabel string `json:"seat_label,omitempty"` // set at confirmation
}

type ContactInfo struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CardDetails is the simulated payment input. Never persisted.
type CardDetails struct {
	Method string `json:"method"` // card, mobile
	Number string `json:"number"`
	Holder string `json:"holder"`
	Expiry string `json:"expiry"` // MM/YY
	CVV    string `json:"cvv"`
}

type BookingCreateRequest struct {
	TrainID        int         `json:"train_id"`
	TravelDate     string      `json:"travel_date"`
	TicketClass    TicketClass `json:"ticket_class"`
	PassengerCount int         `json:"passenger_count"`
}

type AttachPassengersRequest struct {
	Contact    ContactInfo `json:"contact"`
	Passengers []Passenger `json:"passengers"`
}

type QuoteRequest struct {
	TrainID        int         `json:"train_id"`
	TicketClass    TicketClass `json:"ticket_class"`
	PassengerCount int         `json:"passenger_count"`
}
