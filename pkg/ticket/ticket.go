package ticket

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// Issued is the output of confirming a booking: a globally unique ticket
// number plus one seat label per passenger.
type Issued struct {
	TicketNumber string
	SeatLabels   []string
}

// Issue assigns the deterministic seat layout for a booking and mints a
// fresh ticket number. Labels depend only on the train number and the
// passenger's index, so the same booking always reproduces the same seats.
// They are presentation labels, not physical allocations: two bookings on
// the same departure can print overlapping labels.
func Issue(trainNumber string, passengerCount int) Issued {
	labels := make([]string, 0, passengerCount)
	for i := 0; i < passengerCount; i++ {
		labels = append(labels, SeatLabel(trainNumber, i))
	}
	return Issued{
		TicketNumber: NewNumber(),
		SeatLabels:   labels,
	}
}

// SeatLabel derives the label for the i-th passenger (0-based): the last
// two digits of the train number, a row letter advancing every 4 seats,
// and the 1-based seat within the row.
func SeatLabel(trainNumber string, i int) string {
	prefix := trainNumber
	if len(prefix) > 2 {
		prefix = prefix[len(prefix)-2:]
	}
	row := rune('A' + i/4)
	return fmt.Sprintf("%s%c%d", prefix, row, i%4+1)
}

// NewNumber mints a human-presentable ticket number. 10 hex chars from
// crypto/rand; the bookings table carries a unique index as the backstop.
func NewNumber() string {
	b := make([]byte, 5)
	rand.Read(b)
	return "TK-" + strings.ToUpper(hex.EncodeToString(b))
}
