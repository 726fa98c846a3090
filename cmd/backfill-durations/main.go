package main

import (
	"database/sql"
	"flag"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// One-off maintenance utility: tool runs recorded before duration tracking
// landed have started_at/completed_at but a NULL duration_ms. Backfill the
// column from the timestamps so the audit listing sorts and reports
// consistently.
func main() {
	defaultPath := filepath.Join(os.ExpandEnv("$HOME/.local/share/greenroom"), "greenroom.db")
	dbPath := flag.String("db", defaultPath, "path to the greenroom sqlite database")
	dryRun := flag.Bool("dry-run", false, "report what would change without writing")
	flag.Parse()

	db, err := sql.Open("sqlite3", *dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT id,
		       CAST((JULIANDAY(completed_at) - JULIANDAY(started_at)) * 86400000 AS INTEGER)
		FROM tool_runs
		WHERE duration_ms IS NULL
		AND completed_at IS NOT NULL
		ORDER BY id
	`)
	if err != nil {
		log.Fatalf("Failed to query tool runs: %v", err)
	}
	defer rows.Close()

	type fix struct {
		id int64
		ms int64
	}
	var fixes []fix
	for rows.Next() {
		var f fix
		if err := rows.Scan(&f.id, &f.ms); err != nil {
			log.Printf("Failed to scan row: %v", err)
			continue
		}
		if f.ms < 0 {
			log.Printf("Skipping run %d: completed_at precedes started_at", f.id)
			continue
		}
		fixes = append(fixes, f)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Failed to read tool runs: %v", err)
	}

	if len(fixes) == 0 {
		log.Printf("No runs need a duration backfill")
		return
	}

	if *dryRun {
		for _, f := range fixes {
			log.Printf("Would set run %d duration to %dms", f.id, f.ms)
		}
		log.Printf("Dry run: %d runs would be updated", len(fixes))
		return
	}

	updated := 0
	for _, f := range fixes {
		if _, err := db.Exec("UPDATE tool_runs SET duration_ms = ? WHERE id = ?", f.ms, f.id); err != nil {
			log.Printf("Failed to update run %d: %v", f.id, err)
			continue
		}
		updated++
	}
	log.Printf("Backfilled durations for %d of %d runs", updated, len(fixes))
}
