package handlers

import (
	"github.com/gofiber/fiber/v2"

	"railbook/pkg/models"
	"railbook/pkg/services"
)

// AdminHandler is the back-office: catalog maintenance and the raw
// booking data the report screens aggregate client-side.
type AdminHandler struct {
	catalog  services.CatalogService
	bookings services.BookingService
}

func NewAdmin(catalog services.CatalogService, bookings services.BookingService) *AdminHandler {
	return &AdminHandler{catalog: catalog, bookings: bookings}
}

func (h *AdminHandler) CreateStation(c *fiber.Ctx) error {
	var req models.StationCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid body"})
	}

	station, err := h.catalog.CreateStation(req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(station)
}

func (h *AdminHandler) ListTrains(c *fiber.Ctx) error {
	trains, err := h.catalog.ListTrains()
	if err != nil {
		return fail(c, err)
	}
	if trains == nil {
		trains = []models.Train{}
	}
	return c.JSON(trains)
}

func (h *AdminHandler) CreateTrain(c *fiber.Ctx) error {
	var req models.TrainCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid body"})
	}

	train, err := h.catalog.CreateTrain(req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(train)
}

func (h *AdminHandler) UpdateTrain(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid train ID"})
	}

	var req models.TrainUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid body"})
	}

	train, err := h.catalog.UpdateTrain(id, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(train)
}

func (h *AdminHandler) DeleteTrain(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid train ID"})
	}

	if err := h.catalog.DeleteTrain(id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

func (h *AdminHandler) ListBookings(c *fiber.Ctx) error {
	bookings, err := h.bookings.ListAllBookings(c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		return fail(c, err)
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return c.JSON(bookings)
}
