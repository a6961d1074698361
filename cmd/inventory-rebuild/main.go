package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/labstockhq/labstock_backend/config"
	"github.com/labstockhq/labstock_backend/models"
)

// Recomputes every inventory record from the received-item ledger. Run this
// after a partial failure was reported or whenever the projection is in
// doubt; the ledger rows are the source of truth.
func main() {
	timeoutSec := flag.Int("timeout", 300, "Optional: overall timeout in seconds")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeoutSec)*time.Second)
	defer cancel()

	start := time.Now()
	if err := models.RebuildInventoryFromLedger(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "rebuild failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("inventory rebuild complete in %s\n", time.Since(start).Round(time.Millisecond))
}
