package main

import (
	"log"
	"os"
	"strings"

	config "Hestia/internal/config"
	repo "Hestia/internal/repo"

	"github.com/joho/godotenv"
)

// Applies schema.sql (or the file given as the first argument) statement by
// statement against DATABASE_URL. Statements are idempotent, so re-running
// against an existing database is safe.
func main() {
	schemaFile := "schema.sql"
	if len(os.Args) > 1 {
		schemaFile = os.Args[1]
	}

	sqlContent, err := os.ReadFile(schemaFile)
	if err != nil {
		log.Fatalf("Failed to read schema file: %v", err)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, reading configuration from the environment")
	}
	cfg := config.Load()

	db, err := repo.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	applied := 0
	for i, stmt := range strings.Split(string(sqlContent), ";") {
		stmt = stripComments(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Failed to execute statement %d: %v", i+1, err)
		}
		applied++
	}
	log.Printf("Schema applied: %d statements", applied)
}

func stripComments(stmt string) string {
	var kept []string
	for _, line := range strings.Split(stmt, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
