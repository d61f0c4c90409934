package worker

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"sharefun/internal/clock"
)

// Sweeper drops expired entries and reports how many were removed.
type Sweeper interface {
	Sweep(now time.Time) int
}

// RunJanitor sweeps s every interval until ctx is cancelled. The in-memory
// session store uses it; Redis expires sessions on its own.
func RunJanitor(ctx context.Context, s Sweeper, clk clock.Clock, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(clk.Now()); n > 0 {
				log.WithField("removed", n).Debug("[Janitor] Swept expired sessions")
			}
		}
	}
}
