package database

import (
	"context"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/sethvargo/go-retry"

	"database/sql"
)

func Connect() *sql.DB {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		log.Println("[DB] Warning: DATABASE_URL not set.")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal("[DB] open failed:", err)
	}

	// Serverless PG can take a moment to wake; back off instead of dying
	// on the first cold ping.
	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		if pingErr := db.PingContext(ctx); pingErr != nil {
			log.Printf("[DB] ping failed, retrying: %v", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		log.Fatal("[DB] ping failed:", err)
	}

	log.Println("[DB] PostgreSQL connection established.")
	return db
}
