// journal-migrate copies a SQLite quest journal into PostgreSQL.
//
// Usage:
//
//	go run ./cmd/journal-migrate \
//	    -sqlite data/journal.db \
//	    -pg-host localhost \
//	    -pg-port 5432 \
//	    -pg-user quest \
//	    -pg-password quest \
//	    -pg-database quest
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/lawnchairsociety/questengine/internal/config"
	"github.com/lawnchairsociety/questengine/internal/journal"
	"github.com/lawnchairsociety/questengine/internal/logger"

	_ "github.com/lib/pq"
)

func main() {
	// Parse command-line flags
	sqlitePath := flag.String("sqlite", "data/journal.db", "Path to SQLite journal")
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "quest", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "quest", "PostgreSQL password")
	pgDatabase := flag.String("pg-database", "quest", "PostgreSQL database name")
	pgSSLMode := flag.String("pg-sslmode", "disable", "PostgreSQL SSL mode")
	npcName := flag.String("npc", "", "Only copy entries for this NPC")
	dryRun := flag.Bool("dry-run", false, "Show what would be migrated without making changes")
	flag.Parse()

	logCfg := logger.DefaultConfig()
	logCfg.Level = "WARN"
	if err := logger.Initialize(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	log.Println("Journal SQLite to PostgreSQL Migration")
	log.Println("======================================")

	if _, err := os.Stat(*sqlitePath); err != nil {
		log.Fatalf("SQLite journal not found: %v", err)
	}

	src := config.JournalConfig{Enabled: true, Driver: string(journal.DialectSQLite), SQLitePath: *sqlitePath}
	log.Printf("Opening SQLite journal: %s", *sqlitePath)
	from, err := journal.Open(src)
	if err != nil {
		log.Fatalf("Failed to open SQLite journal: %v", err)
	}
	defer from.Close()

	ctx := context.Background()
	entries, err := from.Entries(ctx, *npcName)
	if err != nil {
		log.Fatalf("Failed to read entries: %v", err)
	}
	log.Printf("Found %d entries", len(entries))

	if *dryRun {
		log.Println("DRY RUN MODE - No changes will be made")
		return
	}

	dst := config.JournalConfig{
		Enabled: true,
		Driver:  string(journal.DialectPostgres),
		Postgres: config.PostgresConfig{
			Host:     *pgHost,
			Port:     *pgPort,
			User:     *pgUser,
			Password: *pgPassword,
			Database: *pgDatabase,
			SSLMode:  *pgSSLMode,
		},
	}
	log.Printf("Opening PostgreSQL journal: %s@%s:%d/%s", *pgUser, *pgHost, *pgPort, *pgDatabase)
	to, err := journal.Open(dst)
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL journal: %v", err)
	}
	defer to.Close()

	count, err := to.Import(ctx, entries)
	if err != nil {
		log.Fatalf("Failed to import entries: %v", err)
	}

	log.Println("======================================")
	log.Printf("Migration complete! Total rows migrated: %d", count)
}
