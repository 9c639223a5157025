package repository

import (
	"database/sql"
	"fmt"

	"railbook/pkg/models"
)

// ReservedCount is the number of committed seats per inventory key,
// used to rebuild the in-memory counters after a restart.
type ReservedCount struct {
	TrainID    int
	TravelDate string
	Class      models.TicketClass
	Seats      int
}

// BookingRepository is the durable booking store. Every lifecycle
// transition lands here so the admin/report side can query history.
type BookingRepository interface {
	InsertDraft(b models.Booking) (models.Booking, error)
	AttachPassengers(bookingID int, contact models.ContactInfo, passengers []models.Passenger) error
	MarkAwaitingPayment(bookingID int, totalPrice int64) error
	MarkConfirmed(bookingID int, ticketNumber, transactionID string, seatLabels []string) error
	MarkFailed(bookingID int) error
	MarkCancelled(bookingID int) error

	GetBooking(bookingID int) (models.Booking, error)
	ListByUser(userID int) ([]models.Booking, error)
	ListAll(limit, offset int) ([]models.Booking, error)
	ReservedCounts() ([]ReservedCount, error)

	// CancelNonTerminal sweeps every in-flight booking to cancelled.
	// Run once at startup: their seat holds died with the old process.
	CancelNonTerminal() (int64, error)
}

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) BookingRepository {
	return &bookingRepository{db: db}
}

const bookingColumns = `
	id, user_id, train_id, travel_date, ticket_class, passenger_count,
	total_price, status, COALESCE(ticket_number, ''), COALESCE(transaction_id, ''),
	COALESCE(contact_email, ''), COALESCE(contact_phone, ''), created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.UserID, &b.TrainID, &b.TravelDate, &b.TicketClass, &b.PassengerCount,
		&b.TotalPrice, &b.Status, &b.TicketNumber, &b.TransactionID,
		&b.ContactEmail, &b.ContactPhone, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

func (r *bookingRepository) InsertDraft(b models.Booking) (models.Booking, error) {
	return scanBooking(r.db.QueryRow(`
		INSERT INTO bookings (user_id, train_id, travel_date, ticket_class, passenger_count, status)
		VALUES ($1, $2, $3, $4, $5, 'draft')
		RETURNING `+bookingColumns,
		b.UserID, b.TrainID, b.TravelDate, b.TicketClass, b.PassengerCount,
	))
}

func (r *bookingRepository) AttachPassengers(bookingID int, contact models.ContactInfo, passengers []models.Passenger) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	res, err := tx.Exec(`
		UPDATE bookings
		SET contact_email = $2, contact_phone = $3, status = 'awaiting_passengers', updated_at = NOW()
		WHERE id = $1 AND status IN ('draft', 'awaiting_passengers')
	`, bookingID, contact.Email, contact.Phone)
	if err != nil {
		tx.Rollback()
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return fmt.Errorf("%w: booking %d not open for passengers", models.ErrInvalidState, bookingID)
	}

	// Re-attaching replaces the previous list wholesale.
	if _, err := tx.Exec(`DELETE FROM passengers WHERE booking_id = $1`, bookingID); err != nil {
		tx.Rollback()
		return err
	}
	for _, p := range passengers {
		_, err := tx.Exec(`
			INSERT INTO passengers (booking_id, first_name, last_name, id_number, gender)
			VALUES ($1, $2, $3, $4, $5)
		`, bookingID, p.FirstName, p.LastName, p.IDNumber, p.Gender)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (r *bookingRepository) MarkAwaitingPayment(bookingID int, totalPrice int64) error {
	return r.transition(bookingID, `
		UPDATE bookings
		SET total_price = $2, status = 'awaiting_payment', updated_at = NOW()
		WHERE id = $1 AND status = 'awaiting_passengers'
	`, totalPrice)
}

func (r *bookingRepository) MarkConfirmed(bookingID int, ticketNumber, transactionID string, seatLabels []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	res, err := tx.Exec(`
		UPDATE bookings
		SET status = 'confirmed', ticket_number = $2, transaction_id = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'awaiting_payment'
	`, bookingID, ticketNumber, transactionID)
	if err != nil {
		tx.Rollback()
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return fmt.Errorf("%w: booking %d not awaiting payment", models.ErrInvalidState, bookingID)
	}

	// Seat labels follow passenger insertion order.
	rows, err := tx.Query(`SELECT id FROM passengers WHERE booking_id = $1 ORDER BY id ASC`, bookingID)
	if err != nil {
		tx.Rollback()
		return err
	}
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err == nil {
			ids = append(ids, id)
		}
	}
	rows.Close()

	for i, id := range ids {
		if i >= len(seatLabels) {
			break
		}
		if _, err := tx.Exec(`UPDATE passengers SET seat_label = $2 WHERE id = $1`, id, seatLabels[i]); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (r *bookingRepository) MarkFailed(bookingID int) error {
	return r.transition(bookingID, `
		UPDATE bookings
		SET status = 'failed', updated_at = NOW()
		WHERE id = $1 AND status = 'awaiting_payment'
	`)
}

func (r *bookingRepository) MarkCancelled(bookingID int) error {
	return r.transition(bookingID, `
		UPDATE bookings
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status IN ('draft', 'awaiting_passengers', 'awaiting_payment')
	`)
}

// transition runs a guarded status update; zero rows means the booking was
// not in an eligible state.
func (r *bookingRepository) transition(bookingID int, query string, args ...any) error {
	all := append([]any{bookingID}, args...)
	res, err := r.db.Exec(query, all...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: booking %d", models.ErrInvalidState, bookingID)
	}
	return nil
}

func (r *bookingRepository) GetBooking(bookingID int) (models.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID))
	if err == sql.ErrNoRows {
		return b, fmt.Errorf("%w: booking %d", models.ErrNotFound, bookingID)
	}
	if err != nil {
		return b, err
	}

	rows, err := r.db.Query(`
		SELECT id, booking_id, first_name, last_name, id_number, gender, COALESCE(seat_label, '')
		FROM passengers WHERE booking_id = $1 ORDER BY id ASC
	`, bookingID)
	if err != nil {
		return b, err
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Passenger
		if err := rows.Scan(&p.ID, &p.BookingID, &p.FirstName, &p.LastName, &p.IDNumber, &p.Gender, &p.SeatLabel); err == nil {
			b.Passengers = append(b.Passengers, p)
		}
	}
	return b, nil
}

func (r *bookingRepository) ListByUser(userID int) ([]models.Booking, error) {
	return r.list(`SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *bookingRepository) ListAll(limit, offset int) ([]models.Booking, error) {
	return r.list(`SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *bookingRepository) list(query string, args ...any) ([]models.Booking, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			continue
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func (r *bookingRepository) CancelNonTerminal() (int64, error) {
	res, err := r.db.Exec(`
		UPDATE bookings
		SET status = 'cancelled', updated_at = NOW()
		WHERE status IN ('draft', 'awaiting_passengers', 'awaiting_payment')
	`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *bookingRepository) ReservedCounts() ([]ReservedCount, error) {
	rows, err := r.db.Query(`
		SELECT train_id, travel_date, ticket_class, SUM(passenger_count)
		FROM bookings
		WHERE status = 'confirmed'
		GROUP BY train_id, travel_date, ticket_class
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []ReservedCount
	for rows.Next() {
		var c ReservedCount
		if err := rows.Scan(&c.TrainID, &c.TravelDate, &c.Class, &c.Seats); err == nil {
			counts = append(counts, c)
		}
	}
	return counts, nil
}
