package fare

import (
	"fmt"

	"railbook/pkg/models"
)

// All amounts are minor units (cents) to keep multi-passenger maths exact.
const (
	// BookingFee is charged once per booking at checkout, not per passenger
	// and not at quote time.
	BookingFee int64 = 5000

	MinPassengers = 1
	MaxPassengers = 10
)

// Class multipliers over the second-class base price, in percent.
// Used only when the catalog stores no explicit per-class fare.
var classPercent = map[models.TicketClass]int64{
	models.ClassFirst:  150,
	models.ClassSecond: 100,
	models.ClassThird:  75,
}

// UnitPrice resolves the per-seat fare for a class. An explicit per-class
// price on the train record wins; the multiplier formula is the fallback.
func UnitPrice(train models.Train, class models.TicketClass) (int64, error) {
	if !class.Valid() {
		return 0, fmt.Errorf("%w: unknown ticket class %q", models.ErrInvalidInput, class)
	}
	if p, ok := train.ExplicitPrice(class); ok {
		return p, nil
	}
	return train.BasePrice * classPercent[class] / 100, nil
}

// Quote computes the fare for passengerCount seats. No booking fee here.
func Quote(train models.Train, class models.TicketClass, passengerCount int) (int64, error) {
	if passengerCount < MinPassengers || passengerCount > MaxPassengers {
		return 0, fmt.Errorf("%w: passenger count %d out of range", models.ErrInvalidInput, passengerCount)
	}
	unit, err := UnitPrice(train, class)
	if err != nil {
		return 0, err
	}
	return unit * int64(passengerCount), nil
}

// CheckoutTotal adds the flat per-booking fee to a quoted fare.
func CheckoutTotal(quoted int64) int64 {
	return quoted + BookingFee
}
