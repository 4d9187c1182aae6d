//go:build ignore

package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

// Truncates all pipeline tables. Development helper; run with
// go run scripts/utilities/clear_db.go
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

	tables := []string{"event_actions", "collected_urls", "hackathons", "conferences"}
	for _, table := range tables {
		res, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			log.Fatalf("failed to clear %s: %v", table, err)
		}
		n, _ := res.RowsAffected()
		fmt.Printf("cleared %s (%d rows)\n", table, n)
	}

	fmt.Println("done")
}
