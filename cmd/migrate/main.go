package main

import (
	"log"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"railbook/pkg/database"
	"railbook/pkg/database/migrations"
)

func main() {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("[DB] goose dialect err: %v", err)
	}

	db := database.Connect()
	defer db.Close()

	if err := goose.Up(db, "."); err != nil {
		log.Fatalf("[DB] goose up err: %v", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		log.Fatalf("[DB] goose version err: %v", err)
	}
	log.Printf("[DB] migrations applied, version=%d", version)
}
