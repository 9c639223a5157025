package services

import (
	"fmt"
	"time"

	"railbook/pkg/cache"
	"railbook/pkg/fare"
	"railbook/pkg/inventory"
	"railbook/pkg/models"
	"railbook/pkg/repository"
)

// CatalogService is the storefront's read side (station list, train
// search, quotes) plus the admin catalog maintenance operations.
type CatalogService interface {
	Stations() ([]models.Station, error)
	Search(departureID, arrivalID int, date string, class models.TicketClass, passengers int) ([]models.TrainSearchResult, error)
	Train(id int) (models.Train, error)
	Quote(req models.QuoteRequest) (int64, error)

	CreateStation(req models.StationCreateRequest) (models.Station, error)
	ListTrains() ([]models.Train, error)
	CreateTrain(req models.TrainCreateRequest) (models.Train, error)
	UpdateTrain(id int, req models.TrainUpdateRequest) (models.Train, error)
	DeleteTrain(id int) error
}

type catalogService struct {
	repo  repository.CatalogRepository
	inv   *inventory.Manager
	redis *cache.Redis // optional
}

func NewCatalogService(repo repository.CatalogRepository, inv *inventory.Manager, redis *cache.Redis) CatalogService {
	return &catalogService{repo: repo, inv: inv, redis: redis}
}

func (s *catalogService) Stations() ([]models.Station, error) {
	cacheKey := "stations:all"
	var cached []models.Station
	if s.redis != nil && s.redis.Get(cacheKey, &cached) {
		return cached, nil
	}

	stations, err := s.repo.ListStations()
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		s.redis.Set(cacheKey, stations, 5*time.Minute)
	}
	return stations, nil
}

// Search returns candidate trains with live (approximate) availability
// and the quoted fare for the requested class and party size. The count
// shown is display-only: a later reserve can still lose the race.
func (s *catalogService) Search(departureID, arrivalID int, date string, class models.TicketClass, passengers int) ([]models.TrainSearchResult, error) {
	if class == "" {
		class = models.ClassSecond
	}
	if passengers == 0 {
		passengers = 1
	}
	if !class.Valid() {
		return nil, fmt.Errorf("%w: unknown ticket class %q", models.ErrInvalidInput, class)
	}
	if passengers < fare.MinPassengers || passengers > fare.MaxPassengers {
		return nil, fmt.Errorf("%w: passenger count %d out of range", models.ErrInvalidInput, passengers)
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("%w: travel date must be YYYY-MM-DD", models.ErrInvalidInput)
	}

	cacheKey := fmt.Sprintf("trains:search:%d:%d:%s:%s:%d", departureID, arrivalID, date, class, passengers)
	var cached []models.TrainSearchResult
	if s.redis != nil && s.redis.Get(cacheKey, &cached) {
		return cached, nil
	}

	trains, err := s.repo.FindTrains(departureID, arrivalID)
	if err != nil {
		return nil, err
	}

	results := make([]models.TrainSearchResult, 0, len(trains))
	for _, t := range trains {
		unit, err := fare.UnitPrice(t, class)
		if err != nil {
			continue
		}
		key := inventory.Key{TrainID: t.ID, TravelDate: date, Class: class}
		results = append(results, models.TrainSearchResult{
			Train:          t,
			TicketClass:    class,
			AvailableSeats: s.inv.Available(key, t.CapacityFor(class)),
			UnitPrice:      unit,
			TotalPrice:     unit * int64(passengers),
		})
	}

	if s.redis != nil {
		s.redis.Set(cacheKey, results, 1*time.Second) // 1s micro-cache
	}
	return results, nil
}

func (s *catalogService) Train(id int) (models.Train, error) {
	return s.repo.GetTrain(id)
}

func (s *catalogService) Quote(req models.QuoteRequest) (int64, error) {
	train, err := s.repo.GetTrain(req.TrainID)
	if err != nil {
		return 0, err
	}
	return fare.Quote(train, req.TicketClass, req.PassengerCount)
}

func (s *catalogService) CreateStation(req models.StationCreateRequest) (models.Station, error) {
	if req.Name == "" {
		return models.Station{}, fmt.Errorf("%w: missing station name", models.ErrInvalidInput)
	}
	station, err := s.repo.CreateStation(req.Name)
	if err == nil && s.redis != nil {
		s.redis.Del("stations:all")
	}
	return station, err
}

func (s *catalogService) ListTrains() ([]models.Train, error) {
	return s.repo.ListTrains()
}

func (s *catalogService) CreateTrain(req models.TrainCreateRequest) (models.Train, error) {
	if err := validateTrain(req); err != nil {
		return models.Train{}, err
	}
	train, err := s.repo.CreateTrain(req)
	if err == nil {
		s.invalidate()
	}
	return train, err
}

func (s *catalogService) UpdateTrain(id int, req models.TrainUpdateRequest) (models.Train, error) {
	train, err := s.repo.UpdateTrain(id, req)
	if err == nil {
		s.invalidate()
	}
	return train, err
}

func (s *catalogService) DeleteTrain(id int) error {
	err := s.repo.DeleteTrain(id)
	if err == nil {
		s.invalidate()
	}
	return err
}

func (s *catalogService) invalidate() {
	if s.redis == nil {
		return
	}
	s.redis.DelPattern("trains:search:*")
}

func validateTrain(req models.TrainCreateRequest) error {
	if req.TrainNumber == "" || req.Name == "" {
		return fmt.Errorf("%w: missing train number or name", models.ErrInvalidInput)
	}
	if req.DepartureStationID == req.ArrivalStationID {
		return fmt.Errorf("%w: departure and arrival stations are the same", models.ErrInvalidInput)
	}
	for _, hhmm := range []string{req.DepartureTime, req.ArrivalTime} {
		if _, err := time.Parse("15:04", hhmm); err != nil {
			return fmt.Errorf("%w: times must be HH:MM", models.ErrInvalidInput)
		}
	}
	if req.BasePrice <= 0 {
		return fmt.Errorf("%w: base price must be positive", models.ErrInvalidInput)
	}
	if req.FirstSeats < 0 || req.SecondSeats < 0 || req.ThirdSeats < 0 {
		return fmt.Errorf("%w: negative seat capacity", models.ErrInvalidInput)
	}
	return nil
}
