package main

import (
	"context"
	"fmt"
)

// cmdServe runs the API until ctx is cancelled (SIGINT/SIGTERM).
func (c *CLI) cmdServe(ctx context.Context) error {
	// Load or mine genesis before accepting requests.
	summary, err := c.ledger.Summary(ctx)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}

	api := NewAPIServer(c.ledger, c.cfg.DataDir, c.cfg.Store, c.log)
	if err := api.Start(c.cfg.APIAddr); err != nil {
		return fmt.Errorf("failed to start API: %w", err)
	}

	fmt.Fprintf(c.out, "\n%s\n", c.sectionHead("Raktchain "+Version))
	fmt.Fprintf(c.out, "  API:        http://%s/api\n", c.cfg.APIAddr)
	fmt.Fprintf(c.out, "  Cookie:     %s\n", api.cookiePath())
	fmt.Fprintf(c.out, "  Ledger:     %s (%s)\n", c.ledger.Location(), c.cfg.Store)
	fmt.Fprintf(c.out, "  Records:    %d\n", summary.TotalTransactions)
	fmt.Fprintf(c.out, "  Difficulty: %d\n", summary.Difficulty)
	fmt.Fprintln(c.out, "Press Ctrl+C to stop")

	<-ctx.Done()

	fmt.Fprintln(c.out, "\nShutting down...")
	api.Stop()
	return nil
}
