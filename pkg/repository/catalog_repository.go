package repository

import (
	"database/sql"
	"fmt"

	"railbook/pkg/models"
)

// CatalogRepository is the reference catalog: stations and trains with
// per-class fares and capacities. Read-mostly; writes come from the
// admin back-office only.
type CatalogRepository interface {
	ListStations() ([]models.Station, error)
	CreateStation(name string) (models.Station, error)

	FindTrains(departureStationID, arrivalStationID int) ([]models.Train, error)
	GetTrain(id int) (models.Train, error)
	ListTrains() ([]models.Train, error)
	CreateTrain(req models.TrainCreateRequest) (models.Train, error)
	UpdateTrain(id int, req models.TrainUpdateRequest) (models.Train, error)
	DeleteTrain(id int) error
}

type catalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListStations() ([]models.Station, error) {
	rows, err := r.db.Query(`SELECT id, name FROM stations ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		var s models.Station
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			continue
		}
		stations = append(stations, s)
	}
	return stations, nil
}

func (r *catalogRepository) CreateStation(name string) (models.Station, error) {
	var s models.Station
	err := r.db.QueryRow(`
		INSERT INTO stations (name) VALUES ($1)
		RETURNING id, name
	`, name).Scan(&s.ID, &s.Name)
	return s, err
}

const trainColumns = `
	id, train_number, name, departure_station_id, arrival_station_id,
	departure_time, arrival_time, train_type, base_price,
	first_price, second_price, third_price,
	first_seats, second_seats, third_seats, created_at, updated_at`

func scanTrain(row interface{ Scan(...any) error }) (models.Train, error) {
	var t models.Train
	var first, second, third sql.NullInt64

	err := row.Scan(
		&t.ID, &t.TrainNumber, &t.Name, &t.DepartureStationID, &t.ArrivalStationID,
		&t.DepartureTime, &t.ArrivalTime, &t.TrainType, &t.BasePrice,
		&first, &second, &third,
		&t.FirstSeats, &t.SecondSeats, &t.ThirdSeats, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return t, err
	}

	if first.Valid {
		v := first.Int64
		t.FirstPrice = &v
	}
	if second.Valid {
		v := second.Int64
		t.SecondPrice = &v
	}
	if third.Valid {
		v := third.Int64
		t.ThirdPrice = &v
	}
	return t, nil
}

func (r *catalogRepository) FindTrains(departureStationID, arrivalStationID int) ([]models.Train, error) {
	rows, err := r.db.Query(`
		SELECT `+trainColumns+`
		FROM trains
		WHERE departure_station_id = $1 AND arrival_station_id = $2
		ORDER BY departure_time ASC
	`, departureStationID, arrivalStationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trains []models.Train
	for rows.Next() {
		t, err := scanTrain(rows)
		if err != nil {
			continue
		}
		trains = append(trains, t)
	}
	return trains, nil
}

func (r *catalogRepository) GetTrain(id int) (models.Train, error) {
	t, err := scanTrain(r.db.QueryRow(`SELECT `+trainColumns+` FROM trains WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return t, fmt.Errorf("%w: train %d", models.ErrNotFound, id)
	}
	return t, err
}

func (r *catalogRepository) ListTrains() ([]models.Train, error) {
	rows, err := r.db.Query(`SELECT ` + trainColumns + ` FROM trains ORDER BY train_number ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trains []models.Train
	for rows.Next() {
		t, err := scanTrain(rows)
		if err != nil {
			continue
		}
		trains = append(trains, t)
	}
	return trains, nil
}

func (r *catalogRepository) CreateTrain(req models.TrainCreateRequest) (models.Train, error) {
	return scanTrain(r.db.QueryRow(`
		INSERT INTO trains (
			train_number, name, departure_station_id, arrival_station_id,
			departure_time, arrival_time, train_type, base_price,
			first_price, second_price, third_price,
			first_seats, second_seats, third_seats
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+trainColumns,
		req.TrainNumber, req.Name, req.DepartureStationID, req.ArrivalStationID,
		req.DepartureTime, req.ArrivalTime, req.TrainType, req.BasePrice,
		req.FirstPrice, req.SecondPrice, req.ThirdPrice,
		req.FirstSeats, req.SecondSeats, req.ThirdSeats,
	))
}

func (r *catalogRepository) UpdateTrain(id int, req models.TrainUpdateRequest) (models.Train, error) {
	t, err := scanTrain(r.db.QueryRow(`
		UPDATE trains SET
			name         = COALESCE(NULLIF($2, ''), name),
			train_type   = COALESCE(NULLIF($3, ''), train_type),
			base_price   = COALESCE($4, base_price),
			first_price  = COALESCE($5, first_price),
			second_price = COALESCE($6, second_price),
			third_price  = COALESCE($7, third_price),
			first_seats  = COALESCE($8, first_seats),
			second_seats = COALESCE($9, second_seats),
			third_seats  = COALESCE($10, third_seats),
			updated_at   = NOW()
		WHERE id = $1
		RETURNING `+trainColumns,
		id, req.Name, req.TrainType, req.BasePrice,
		req.FirstPrice, req.SecondPrice, req.ThirdPrice,
		req.FirstSeats, req.SecondSeats, req.ThirdSeats,
	))
	if err == sql.ErrNoRows {
		return t, fmt.Errorf("%w: train %d", models.ErrNotFound, id)
	}
	return t, err
}

func (r *catalogRepository) DeleteTrain(id int) error {
	_, err := r.db.Exec(`DELETE FROM trains WHERE id = $1`, id)
	return err
}
