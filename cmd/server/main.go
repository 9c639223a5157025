package main

import (
	"database/sql"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/pressly/goose/v3"

	"railbook/pkg/broker"
	"railbook/pkg/cache"
	"railbook/pkg/database"
	"railbook/pkg/database/migrations"
	"railbook/pkg/envelope"
	"railbook/pkg/handlers"
	"railbook/pkg/hub"
	"railbook/pkg/inventory"
	"railbook/pkg/middleware"
	"railbook/pkg/payment"
	"railbook/pkg/repository"
	"railbook/pkg/server"
	"railbook/pkg/services"
)

func main() {
	db := database.Connect()
	defer db.Close()

	// Serverless PG: keep pool small, connections short-lived
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	setupDatabase(db)

	log.Println("[RAILBOOK] Connecting to Redis...")
	redis := cache.New()
	defer redis.Close()
	log.Println("[RAILBOOK] Redis connected")

	events := broker.New()
	defer events.Close()

	inv := inventory.NewManager(holdWindow())
	gateway := payment.NewSimulated(300 * time.Millisecond)

	catalogRepo := repository.NewCatalogRepository(db)
	bookingRepo := repository.NewBookingRepository(db)

	catalog := services.NewCatalogService(catalogRepo, inv, redis)
	bookings := services.NewBookingService(catalogRepo, bookingRepo, inv, gateway, events, redis)

	if err := bookings.Recover(); err != nil {
		log.Fatalf("[RAILBOOK] inventory recovery failed: %v", err)
	}
	go sweepExpiredHolds(bookings)

	// Admin dashboards get every booking transition pushed live.
	wsHub := hub.New()
	events.OnAny(func(env envelope.Envelope) {
		wsHub.Broadcast(env)
	})
	events.Subscribe(broker.BookingsChannel)

	trainsHandler := handlers.NewTrains(catalog)
	bookingHandler := handlers.NewBooking(bookings)
	adminHandler := handlers.NewAdmin(catalog, bookings)

	app := server.NewApp("railbook")

	// ── Public storefront ──
	app.Get("/stations", trainsHandler.Stations)
	app.Get("/trains/search", trainsHandler.Search)
	app.Get("/trains/:id", trainsHandler.Get)
	app.Post("/quote", trainsHandler.Quote)

	// ── Booking lifecycle (authenticated customers) ──
	bookingGroup := app.Group("/bookings", middleware.AuthMiddleware)
	bookingGroup.Post("/", limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}), bookingHandler.Create)
	bookingGroup.Get("/", bookingHandler.Mine)
	bookingGroup.Get("/:id", bookingHandler.Get)
	bookingGroup.Post("/:id/passengers", bookingHandler.AttachPassengers)
	bookingGroup.Post("/:id/payment", bookingHandler.Pay)
	bookingGroup.Post("/:id/cancel", bookingHandler.Cancel)

	// ── Back-office ──
	admin := app.Group("/admin", middleware.AdminMiddleware)
	admin.Post("/stations", adminHandler.CreateStation)
	admin.Get("/trains", adminHandler.ListTrains)
	admin.Post("/trains", adminHandler.CreateTrain)
	admin.Put("/trains/:id", adminHandler.UpdateTrain)
	admin.Delete("/trains/:id", adminHandler.DeleteTrain)
	admin.Get("/bookings", adminHandler.ListBookings)

	app.Get("/hub/status", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"clients": wsHub.ClientCount()})
	})

	app.Use("/ws/admin", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return middleware.AdminMiddleware(c)
	})
	app.Get("/ws/admin", websocket.New(func(c *websocket.Conn) {
		wsHub.HandleAdminConn(c)
	}))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	addr := "0.0.0.0:" + port
	log.Printf("[RAILBOOK] Server starting on %s", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("[RAILBOOK] Failed to start: %v", err)
	}
}

func setupDatabase(db *sql.DB) {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("[DB] goose dialect err: %v", err)
	}
	if err := goose.Up(db, "."); err != nil {
		log.Fatalf("[DB] goose up err: %v", err)
	}
	log.Println("[DB] Schema up to date")
}

// holdWindow is how long a reservation may sit unpaid before the sweep
// releases its seats.
func holdWindow() time.Duration {
	if v := os.Getenv("BOOKING_HOLD_WINDOW"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
	}
	return 15 * time.Minute
}

func sweepExpiredHolds(bookings services.BookingService) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		bookings.ExpireStale(time.Now())
	}
}
