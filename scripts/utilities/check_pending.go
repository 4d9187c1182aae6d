//go:build ignore

package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

// Prints the URL ledger broken down by source type and enrichment state.
// Development helper; run with go run scripts/utilities/check_pending.go
func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT source_type, is_enriched, COUNT(*), MIN(collected_at), MAX(collected_at)
		FROM collected_urls
		GROUP BY source_type, is_enriched
		ORDER BY source_type, is_enriched
	`)
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sourceType string
		var enriched bool
		var count int
		var oldest, newest sql.NullTime
		if err := rows.Scan(&sourceType, &enriched, &count, &oldest, &newest); err != nil {
			log.Fatalf("scan failed: %v", err)
		}

		state := "pending"
		if enriched {
			state = "enriched"
		}
		fmt.Printf("%-12s %-9s %6d  oldest=%s newest=%s\n",
			sourceType, state, count,
			oldest.Time.Format("2006-01-02 15:04"), newest.Time.Format("2006-01-02 15:04"))
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("iterate failed: %v", err)
	}
}
