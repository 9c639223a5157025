package models

import "time"

type TicketClass string

const (
	ClassFirst  TicketClass = "first"
	ClassSecond TicketClass = "second"
	ClassThird  TicketClass = "third"
)

func (c TicketClass) Valid() bool {
	switch c {
	case ClassFirst, ClassSecond, ClassThird:
		return true
	}
	return false
}

// Train is reference-catalog data. Prices are minor units (cents).
// BasePrice is the second-class fare; the per-class price columns are
// optional and take precedence over the multiplier fallback when set.
type Train struct {
	ID                 int       `json:"id"`
	TrainNumber        string    `json:"train_number"`
	Name               string    `json:"name"`
	DepartureStationID int       `json:"departure_station_id"`
	ArrivalStationID   int       `json:"arrival_station_id"`
	DepartureTime      string    `json:"departure_time"` // HH:MM, local
	ArrivalTime        string    `json:"arrival_time"`   // HH:MM, may wrap past midnight
	TrainType          string    `json:"train_type"`
	BasePrice          int64     `json:"base_price"`
	FirstPrice         *int64    `json:"first_price,omitempty"`
	SecondPrice        *int64    `json:"second_price,omitempty"`
	ThirdPrice         *int64    `json:"third_price,omitempty"`
	FirstSeats         int       `json:"first_seats"`
	SecondSeats        int       `json:"second_seats"`
	ThirdSeats         int       `json:"third_seats"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ExplicitPrice returns the stored per-class fare, if the catalog has one.
func (t Train) ExplicitPrice(class TicketClass) (int64, bool) {
	var p *int64
	switch class {
	case ClassFirst:
		p = t.FirstPrice
	case ClassSecond:
		p = t.SecondPrice
	case ClassThird:
		p = t.ThirdPrice
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

func (t Train) CapacityFor(class TicketClass) int {
	switch class {
	case ClassFirst:
		return t.FirstSeats
	case ClassSecond:
		return t.SecondSeats
	case ClassThird:
		return t.ThirdSeats
	}
	return 0
}

// TrainSearchResult is a catalog hit enriched with live availability and
// the quoted fare for the requested class/passenger count.
type TrainSearchResult struct {
	Train
	TicketClass    TicketClass `json:"ticket_class"`
	AvailableSeats int         `json:"available_seats"`
	UnitPrice      int64       `json:"unit_price"`
	TotalPrice     int64       `json:"total_price"`
}

type TrainCreateRequest struct {
	TrainNumber        string `json:"train_number"`
	Name               string `json:"name"`
	DepartureStationID int    `json:"departure_station_id"`
	ArrivalStationID   int    `json:"arrival_station_id"`
	DepartureTime      string `json:"departure_time"`
	ArrivalTime        string `json:"arrival_time"`
	TrainType          string `json:"train_type"`
	BasePrice          int64  `json:"base_price"`
	FirstPrice         *int64 `json:"first_price,omitempty"`
	SecondPrice        *int64 `json:"second_price,omitempty"`
	ThirdPrice         *int64 `json:"third_price,omitempty"`
	FirstSeats         int    `json:"first_seats"`
	SecondSeats        int    `json:"second_seats"`
	ThirdSeats         int    `json:"third_seats"`
}

type TrainUpdateRequest struct {
	Name        string `json:"name"`
	TrainType   string `json:"train_type"`
	BasePrice   *int64 `json:"base_price,omitempty"`
	FirstPrice  *int64 `json:"first_price,omitempty"`
	SecondPrice *int64 `json:"second_price,omitempty"`
	ThirdPrice  *int64 `json:"third_price,omitempty"`
	FirstSeats  *int   `json:"first_seats,omitempty"`
	SecondSeats *int   `json:"second_seats,omitempty"`
	ThirdSeats  *int   `json:"third_seats,omitempty"`
}
