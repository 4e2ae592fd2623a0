// File: cmd/server/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log" // Standard log for critical startup/shutdown messages before/after zap is active
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"coach_admin_backend/internal/config"
	"coach_admin_backend/internal/profile"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "reconcile-orphans" {
		os.Exit(runReconcileOrphans(os.Args[2:], os.Stdout))
	}

	// Default: Start server
	startServer()
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("FATAL: Server failed to start or crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
	log.Println("INFO: Application exiting.")
}

// runReconcileOrphans runs one orphan sweep and prints the accounts found.
// It returns the process exit code.
func runReconcileOrphans(args []string, out io.Writer) int {
	cmd := flag.NewFlagSet("reconcile-orphans", flag.ExitOnError)
	asJSON := cmd.Bool("json", false, "Print the orphaned accounts as JSON")
	timeout := cmd.Duration("timeout", 5*time.Minute, "Give up after this long")
	_ = cmd.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		log.Printf("FATAL: Failed to load configuration for reconciliation: %v", err)
		return 1
	}

	job, cleanup, err := initializeReconciler(cfg)
	if err != nil {
		log.Printf("FATAL: Failed to initialize reconciliation: %v", err)
		return 1
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	orphans, err := job.RunOnce(ctx)
	if err != nil {
		log.Printf("ERROR: Orphan reconciliation failed: %v", err)
		return 1
	}
	if err := printOrphans(out, orphans, *asJSON); err != nil {
		log.Printf("ERROR: Failed to print result: %v", err)
		return 1
	}
	return 0
}

type orphanOutput struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

func printOrphans(out io.Writer, orphans []profile.Account, asJSON bool) error {
	rows := make([]orphanOutput, 0, len(orphans))
	for _, acc := range orphans {
		row := orphanOutput{UID: acc.UID, Email: acc.Email, DisplayName: acc.DisplayName}
		if !acc.CreatedAt.IsZero() {
			row.CreatedAt = profile.FormatTimestamp(acc.CreatedAt)
		}
		rows = append(rows, row)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(out, "No orphaned accounts found.")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UID\tEMAIL\tNAME\tCREATED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.UID, r.Email, r.DisplayName, r.CreatedAt)
	}
	return tw.Flush()
}
