// Command migrate applies (or rolls back) the durable-store schema with
// goose, reading the SQL migrations in internal/storage/migrations.
package main

import (
	"database/sql"
	"flag"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose"

	"github.com/enqio/enq/internal/config"
)

func main() {
	direction := flag.String("direction", "up", "up|down|status")
	dir := flag.String("dir", "internal/storage/migrations", "migrations directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatal(err)
	}

	switch *direction {
	case "up":
		err = goose.Up(db, *dir)
	case "down":
		err = goose.Down(db, *dir)
	case "status":
		err = goose.Status(db, *dir)
	default:
		log.Fatalf("unknown -direction %q", *direction)
	}
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(0)
}
