package main

import (
	"context"
	"flag"
	"log"
	"os"

	"illyrian_project/internal/db"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	cmd := flag.String("cmd", "status", "migration command: up, down or status")
	flag.Parse()

	ctx := context.Background()
	var err error
	switch *cmd {
	case "up":
		err = db.Migrate(ctx, dsn)
	case "down":
		err = db.Rollback(ctx, dsn)
	case "status":
		err = db.Status(ctx, dsn)
	default:
		log.Fatalf("unknown command %q", *cmd)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", *cmd, err)
	}
	log.Printf("%s done", *cmd)
}
