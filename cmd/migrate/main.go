package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"

	"MintLedger/internal/persistence"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: migrate <up|down>")
		fmt.Println("  up    apply all pending migrations")
		fmt.Println("  down  roll back the last applied migration")
		fmt.Println()
		fmt.Println("Environment:")
		fmt.Println("  MINT_POSTGRES_DSN    Postgres connection string")
		fmt.Println("  MINT_MIGRATIONS_DIR  migrations directory (default: migrations)")
		os.Exit(1)
	}

	dsn := os.Getenv("MINT_POSTGRES_DSN")
	if dsn == "" {
		dsn = "postgres://localhost:5432/mintledger?sslmode=disable"
	}

	dir := os.Getenv("MINT_MIGRATIONS_DIR")
	if dir == "" {
		dir = "migrations"
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("FATAL: open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	migrator := persistence.NewMigrator(db, dir)

	switch os.Args[1] {
	case "up":
		if err := migrator.Up(ctx); err != nil {
			log.Fatalf("FATAL: migrate up: %v", err)
		}

	case "down":
		if err := migrator.Down(ctx); err != nil {
			log.Fatalf("FATAL: migrate down: %v", err)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s (use 'up' or 'down')\n", os.Args[1])
		os.Exit(1)
	}
}
