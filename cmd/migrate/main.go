package main

import (
	"fmt"
	"log"
	"os"
	"reflect"

	"github.com/zfogg/unify/internal/config"
	"github.com/zfogg/unify/internal/database"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/models"
)

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		connect()
		defer database.Close()
		if err := database.Migrate(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("All migrations completed successfully")
	case "status":
		connect()
		defer database.Close()
		status()
	default:
		fmt.Println("Usage: migrate [up|status]")
		fmt.Println("  up     - Create or update every table and index")
		fmt.Println("  status - Show which tables exist")
		os.Exit(1)
	}
}

func connect() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := logger.Initialize(cfg.LogLevel, "migrate.log"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	if err := database.Initialize(cfg.Database, false); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Printf("Connected to %s database", cfg.Database.Driver)
}

func status() {
	m := database.DB.Migrator()
	missing := 0
	for _, model := range models.All() {
		name := reflect.TypeOf(model).Elem().Name()
		if m.HasTable(model) {
			fmt.Printf("  [x] %s\n", name)
		} else {
			fmt.Printf("  [ ] %s\n", name)
			missing++
		}
	}
	if missing > 0 {
		fmt.Printf("%d tables missing, run `migrate up`\n", missing)
	}
}
