/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the stock allocation server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Open the SQLite restriction store
  3. Create the dataset store, registry, and API handler
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 5001)
  -db      SQLite restrictions database path (default: restrictions.db)
           Use ":memory:" for an in-memory database
  -origin  Allowed CORS origin for the frontend (repeatable via comma list)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/restrictions.db"

  # Run with in-memory restrictions
  ./server -db=":memory:" -port=5001

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Restriction persistence
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/harvestline/allocation-engine/allocation"
	"github.com/harvestline/allocation-engine/api"
	"github.com/harvestline/allocation-engine/dataset"
	"github.com/harvestline/allocation-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 5001, "HTTP server port")
	dbPath := flag.String("db", "restrictions.db", "SQLite restrictions database path")
	origins := flag.String("origin", "http://localhost:3001", "comma-separated allowed CORS origins")
	flag.Parse()

	// Restriction persistence
	restrictionStore, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize restrictions database: %v", err)
	}
	defer restrictionStore.Close()

	// Wiring
	data := dataset.NewStore()
	registry := allocation.NewRegistry(restrictionStore)
	handler := api.NewHandler(data, registry)
	router := api.NewRouter(handler, strings.Split(*origins, ","))

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Allocation server starting on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
