package main

import (
	"bufio"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cashora/internal/config"
	"cashora/internal/db"
	"cashora/internal/logger"
)

func main() {
	log := logger.InitLog()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	defer database.Close()

	if _, err := database.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (filename text primary key, applied_at timestamptz default now())`); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema_migrations")
	}

	files, err := filepath.Glob("migrations/*.sql")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read migrations")
	}
	sort.Strings(files)

	for _, file := range files {
		filename := filepath.Base(file)
		var exists bool
		if err := database.Get(&exists, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, filename); err != nil {
			log.Fatal().Err(err).Str("file", filename).Msg("failed to read migration state")
		}
		if exists {
			continue
		}
		tx, err := database.Beginx()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to begin migration")
		}
		if err := applyFile(tx, file, filename); err != nil {
			_ = tx.Rollback()
			log.Fatal().Err(err).Str("file", filename).Msg("failed to apply migration")
		}
		if err := tx.Commit(); err != nil {
			log.Fatal().Err(err).Str("file", filename).Msg("failed to commit migration")
		}
		log.Info().Str("file", filename).Msg("applied migration")
	}
}

// applyFile runs the Up section of path through db and records it in
// schema_migrations.
func applyFile(db execer, path, filename string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for _, stmt := range splitSQL(upSection(string(content))) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	_, err = db.Exec(`INSERT INTO schema_migrations (filename) VALUES ($1)`, filename)
	return err
}

func upSection(content string) string {
	up, _, _ := strings.Cut(content, "-- +migrate Down")
	return up
}

func splitSQL(sqlText string) []string {
	var statements []string
	var current strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(sqlText))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		current.WriteString(line)
		current.WriteRune('\n')
		if strings.Contains(line, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}
