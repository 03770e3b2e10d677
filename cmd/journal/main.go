package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"smsgate/internal/database"
	"smsgate/internal/models"
)

func main() {
	dbPath := flag.String("db", "./smsgate.db", "Path to the status journal database")
	limit := flag.Int("limit", 20, "Number of recent status reports to print")
	id := flag.String("uuid", "", "Only print reports for this message uuid")
	flag.Parse()

	if _, err := os.Stat(*dbPath); os.IsNotExist(err) {
		log.Fatalf("Database file not found: %s", *dbPath)
	}

	// Opening applies the schema, so an older file is brought up to date here.
	db, err := database.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var reports []models.StatusReport
	if *id != "" {
		reports, err = db.StatusReportsFor(ctx, *id)
	} else {
		reports, err = db.RecentStatusReports(ctx, *limit)
	}
	if err != nil {
		log.Fatalf("Failed to read status reports: %v", err)
	}

	if len(reports) == 0 {
		fmt.Println("No status reports recorded")
		return
	}
	for _, report := range reports {
		fmt.Printf("%s  %-36s  %s\n", report.ReceivedAt.Format(time.RFC3339), report.CorrelationID, report.Status)
	}
}
