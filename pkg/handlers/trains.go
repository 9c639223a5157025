package handlers

import (
	"github.com/gofiber/fiber/v2"

	"railbook/pkg/models"
	"railbook/pkg/services"
)

// TrainsHandler is the public storefront surface: stations, search, quotes.
type TrainsHandler struct {
	catalog services.CatalogService
}

func NewTrains(catalog services.CatalogService) *TrainsHandler {
	return &TrainsHandler{catalog: catalog}
}

func (h *TrainsHandler) Stations(c *fiber.Ctx) error {
	stations, err := h.catalog.Stations()
	if err != nil {
		return fail(c, err)
	}
	if stations == nil {
		stations = []models.Station{}
	}
	return c.JSON(stations)
}

func (h *TrainsHandler) Search(c *fiber.Ctx) error {
	from := c.QueryInt("from")
	to := c.QueryInt("to")
	date := c.Query("date")
	class := models.TicketClass(c.Query("class"))
	passengers := c.QueryInt("passengers")

	if from <= 0 || to <= 0 || date == "" {
		return c.Status(400).JSON(fiber.Map{"error": "from, to and date are required"})
	}

	results, err := h.catalog.Search(from, to, date, class, passengers)
	if err != nil {
		return fail(c, err)
	}
	if results == nil {
		results = []models.TrainSearchResult{}
	}
	return c.JSON(results)
}

func (h *TrainsHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid train ID"})
	}

	train, err := h.catalog.Train(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(train)
}

func (h *TrainsHandler) Quote(c *fiber.Ctx) error {
	var req models.QuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid body"})
	}

	total, err := h.catalog.Quote(req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"total_price": total})
}
