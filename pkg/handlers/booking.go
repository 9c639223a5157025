package handlers

import (
	"github.com/gofiber/fiber/v2"

	"railbook/pkg/models"
	"railbook/pkg/services"
)

// BookingHandler drives the customer-facing booking lifecycle. Every
// route requires the auth middleware to have set user_id.
type BookingHandler struct {
	bookings services.BookingService
}

func NewBooking(bookings services.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

func (h *BookingHandler) Create(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(int)
	if !ok || userID <= 0 {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req models.BookingCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid body"})
	}

	booking, err := h.bookings.CreateBooking(userID, req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(booking)
}

func (h *BookingHandler) AttachPassengers(c *fiber.Ctx) error {
	booking, ok := h.owned(c)
	if !ok {
		return nil
	}

	var req models.AttachPassengersRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid body"})
	}

	updated, err := h.bookings.AttachPassengers(booking.ID, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(updated)
}

func (h *BookingHandler) Pay(c *fiber.Ctx) error {
	booking, ok := h.owned(c)
	if !ok {
		return nil
	}

	var card models.CardDetails
	if err := c.BodyParser(&card); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid body"})
	}

	updated, err := h.bookings.SubmitPayment(booking.ID, card)
	if err != nil {
		// A decline still settles the booking; ship it with the error.
		resp := fiber.Map{"error": err.Error()}
		if updated.ID != 0 {
			resp["booking"] = updated
		}
		return c.Status(statusFor(err)).JSON(resp)
	}
	return c.JSON(updated)
}

func (h *BookingHandler) Cancel(c *fiber.Ctx) error {
	booking, ok := h.owned(c)
	if !ok {
		return nil
	}

	updated, err := h.bookings.CancelBooking(booking.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(updated)
}

func (h *BookingHandler) Get(c *fiber.Ctx) error {
	booking, ok := h.owned(c)
	if !ok {
		return nil
	}
	return c.JSON(booking)
}

func (h *BookingHandler) Mine(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(int)
	if !ok || userID <= 0 {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	bookings, err := h.bookings.ListUserBookings(userID)
	if err != nil {
		return fail(c, err)
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return c.JSON(bookings)
}

// owned loads the booking from the :id param and checks it belongs to
// the authenticated user. On failure it has already written the
// response and returns ok=false.
func (h *BookingHandler) owned(c *fiber.Ctx) (models.Booking, bool) {
	userID, okUser := c.Locals("user_id").(int)
	if !okUser || userID <= 0 {
		c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
		return models.Booking{}, false
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		c.Status(400).JSON(fiber.Map{"error": "Invalid booking ID"})
		return models.Booking{}, false
	}

	booking, err := h.bookings.GetBooking(id)
	if err != nil {
		fail(c, err)
		return models.Booking{}, false
	}
	if booking.UserID != userID {
		c.Status(404).JSON(fiber.Map{"error": "Booking not found"})
		return models.Booking{}, false
	}
	return booking, true
}
